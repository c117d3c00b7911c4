// Package config provides configuration management for fieldcheck services.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/solatis/fieldcheck/internal/types"
)

// ServiceConfig holds configuration for the gRPC and HTTP validation service.
type ServiceConfig struct {
	Host            string        `validate:"required"`
	GRPCPort        int           `validate:"min=1,max=65535"`
	HTTPPort        int           `validate:"min=0,max=65535"`
	RequestTimeout  time.Duration `validate:"gt=0"`
	MaxDocumentSize int           `validate:"gt=0"`
	CacheTTL        time.Duration `validate:"gte=0"`
	PresetsFile     string        `validate:"omitempty,file"`
	Locale          string        `validate:"required,bcp47_language_tag"`
	DataDir         string        `validate:"required"`
	DatabaseURL     string        `validate:"omitempty,startswith=sqlite://|startswith=postgres://|startswith=postgresql://"`
}

// DefaultServiceConfig returns configuration with default values.
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		Host:            "0.0.0.0",
		GRPCPort:        50051,
		HTTPPort:        8080,
		RequestTimeout:  30 * time.Second,
		MaxDocumentSize: types.MaxDocumentSize,
		CacheTTL:        5 * time.Minute,
		Locale:          "en",
		DataDir:         "./data",
	}
}

// GRPCAddr is the host:port the gRPC listener binds.
func (c *ServiceConfig) GRPCAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.GRPCPort)
}

// HTTPAddr is the host:port the HTTP listener binds. Empty when HTTP is disabled.
func (c *ServiceConfig) HTTPAddr() string {
	if c.HTTPPort == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field ranges and formats.
func (c *ServiceConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s fails %q (got %v)", fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.MaxDocumentSize > types.MaxDocumentSize {
		return fmt.Errorf("invalid config: MaxDocumentSize must be at most %d, got %d", types.MaxDocumentSize, c.MaxDocumentSize)
	}
	return nil
}
