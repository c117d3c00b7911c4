package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. FC_SERVICE_GRPC_PORT.
const EnvPrefix = "FC"

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence; flags are
// applied by the caller.
func LoadConfig(configPath string) (*ServiceConfig, error) {
	v := viper.New()

	d := DefaultServiceConfig()
	v.SetDefault("service.host", d.Host)
	v.SetDefault("service.grpc_port", d.GRPCPort)
	v.SetDefault("service.http_port", d.HTTPPort)
	v.SetDefault("service.request_timeout", d.RequestTimeout.String())
	v.SetDefault("service.max_document_size", d.MaxDocumentSize)
	v.SetDefault("service.cache_ttl", d.CacheTTL.String())
	v.SetDefault("service.presets_file", "")
	v.SetDefault("service.locale", d.Locale)
	v.SetDefault("service.data_dir", d.DataDir)
	v.SetDefault("service.db_url", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := validateNoCredentialsInConfig(v, configPath); err != nil {
		return nil, err
	}

	cfg := &ServiceConfig{
		Host:            v.GetString("service.host"),
		GRPCPort:        v.GetInt("service.grpc_port"),
		HTTPPort:        v.GetInt("service.http_port"),
		RequestTimeout:  v.GetDuration("service.request_timeout"),
		MaxDocumentSize: v.GetInt("service.max_document_size"),
		CacheTTL:        v.GetDuration("service.cache_ttl"),
		PresetsFile:     v.GetString("service.presets_file"),
		Locale:          v.GetString("service.locale"),
		DataDir:         v.GetString("service.data_dir"),
		DatabaseURL:     v.GetString("service.db_url"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateNoCredentialsInConfig rejects database passwords committed to a
// config file; they belong in FC_SERVICE_DB_URL.
func validateNoCredentialsInConfig(v *viper.Viper, configPath string) error {
	if configPath == "" || !v.InConfig("service.db_url") {
		return nil
	}
	file := viper.New()
	file.SetConfigFile(configPath)
	if err := file.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	u, err := url.Parse(file.GetString("service.db_url"))
	if err != nil {
		return fmt.Errorf("invalid service.db_url: %w", err)
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		return fmt.Errorf("database passwords not allowed in config files (use %s_SERVICE_DB_URL environment variable)", EnvPrefix)
	}
	return nil
}
