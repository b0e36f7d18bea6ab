package config

import (
	"time"

	"github.com/vzdr/docuquery-rag/pkg/ragerr"
)

// ServerConfig holds HTTP server settings (address, timeouts, TLS, CORS).
// cmd/ragserver does not read it; it builds its server from RAGConfig.
type ServerConfig struct {
	Host         string        `json:"host" yaml:"host" env:"RAGSERVER_HOST"`
	Port         int           `json:"port" yaml:"port" env:"RAGSERVER_PORT"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout" env:"RAGSERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout" env:"RAGSERVER_WRITE_TIMEOUT"`
	IdleTimeout  time.Duration `json:"idle_timeout" yaml:"idle_timeout" env:"RAGSERVER_IDLE_TIMEOUT"`
	TLSEnabled   bool          `json:"tls_enabled" yaml:"tls_enabled" env:"RAGSERVER_TLS_ENABLED"`
	CertFile     string        `json:"cert_file" yaml:"cert_file" env:"RAGSERVER_CERT_FILE"`
	KeyFile      string        `json:"key_file" yaml:"key_file" env:"RAGSERVER_KEY_FILE"`
	CORS         CORSConfig    `json:"cors" yaml:"cors"`
}

// CORSConfig describes a cross-origin policy. The CORS middleware in
// cmd/ragserver takes its origins from RAGConfig, not from this type.
type CORSConfig struct {
	Enabled          bool     `json:"enabled" yaml:"enabled"`
	AllowedOrigins   []string `json:"allowed_origins" yaml:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods" yaml:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers" yaml:"allowed_headers"`
	ExposedHeaders   []string `json:"exposed_headers" yaml:"exposed_headers"`
	AllowCredentials bool     `json:"allow_credentials" yaml:"allow_credentials"`
	MaxAge           int      `json:"max_age" yaml:"max_age"`
}

// DefaultServerConfig returns the server defaults used when no file or env
// override is present.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		TLSEnabled:   false,
		CORS: CORSConfig{
			Enabled:        true,
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"*"},
			MaxAge:         3600,
		},
	}
}

// LoggingConfig controls the plain-text logger used throughout the server.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" env:"RAGSERVER_LOG_LEVEL"`
	Output string `json:"output" yaml:"output" env:"RAGSERVER_LOG_OUTPUT"`
}

// DefaultLoggingConfig returns the logging defaults.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:  "info",
		Output: "stdout",
	}
}

// AppConfig holds the top-level application settings: name, version, and
// the ambient server/logging config. It carries no RAG pipeline settings.
type AppConfig struct {
	Name    string        `json:"name" yaml:"name"`
	Version string        `json:"version" yaml:"version"`
	Server  ServerConfig  `json:"server" yaml:"server"`
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// DefaultAppConfig returns the default application configuration.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Name:    "ragserver",
		Version: "1.0.0",
		Server:  DefaultServerConfig(),
		Logging: DefaultLoggingConfig(),
	}
}

// Validate checks the application configuration for obvious misconfiguration
// before the server starts.
func (c *AppConfig) Validate() error {
	if c.Name == "" {
		return ragerr.ValidationError("name", "application name is required")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return ragerr.ValidationError("server.port", "port must be between 1 and 65535")
	}
	validLevels := []string{"debug", "info", "warn", "error", "fatal"}
	levelValid := false
	for _, level := range validLevels {
		if c.Logging.Level == level {
			levelValid = true
			break
		}
	}
	if !levelValid {
		return ragerr.ValidationError("logging.level", "invalid log level")
	}
	return nil
}
