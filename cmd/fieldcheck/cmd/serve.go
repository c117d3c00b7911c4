package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solatis/fieldcheck/internal/core/server"
)

// Version is the service version reported at startup.
const Version = "0.1.0"

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gRPC and HTTP validation service",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().String("host", "0.0.0.0", "listen host")
	cmd.Flags().Int("grpc-port", 50051, "gRPC port")
	cmd.Flags().Int("http-port", 8080, "HTTP port (0 disables HTTP)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	env, err := newServiceEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()
	cfg, logger := env.cfg, env.logger

	if cmd.Flags().Changed("host") {
		cfg.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("grpc-port") {
		cfg.GRPCPort, _ = cmd.Flags().GetInt("grpc-port")
	}
	if cmd.Flags().Changed("http-port") {
		cfg.HTTPPort, _ = cmd.Flags().GetInt("http-port")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	grpcServer, err := server.NewGRPCServer(cfg, env.service, logger)
	if err != nil {
		return fmt.Errorf("failed to create gRPC server: %w", err)
	}
	var httpServer *server.HTTPServer
	if cfg.HTTPAddr() != "" {
		if httpServer, err = server.NewHTTPServer(cfg, env.service, logger); err != nil {
			return fmt.Errorf("failed to create HTTP server: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting fieldcheck",
		zap.String("version", Version),
		zap.String("grpc_addr", cfg.GRPCAddr()),
		zap.String("http_addr", cfg.HTTPAddr()),
		zap.Strings("presets", env.service.Presets()))

	errChan := make(chan error, 2)
	go func() { errChan <- grpcServer.Start(ctx) }()
	if httpServer != nil {
		go func() { errChan <- httpServer.Start() }()
	}

	var serveErr error
	select {
	case serveErr = <-errChan:
		logger.Error("server stopped", zap.Error(serveErr))
	case <-ctx.Done():
		logger.Info("shutting down gracefully")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("HTTP shutdown", zap.Error(err))
		}
	}
	if err := grpcServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("gRPC shutdown", zap.Error(err))
	}
	return serveErr
}
