// Package config loads dbmux configuration from file, environment and
// flags and produces the backend list the hub is seeded with. The hub
// itself reads no files or environment variables.
package config

import (
	"net"
	"strconv"
	"time"

	"github.com/dbmux-labs/dbmux/pkg/core"
)

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Log       LogConfig       `koanf:"log"`
	Databases []BackendConfig `koanf:"databases" validate:"dive"`
}

// Default returns a Config with every setting at its default and no
// databases.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=auto text json"`
}

// BackendConfig is one database entry of the config file. It mirrors
// core.DatabaseConfig with file-friendly types.
type BackendConfig struct {
	Name             string        `koanf:"name" validate:"required"`
	Engine           string        `koanf:"engine" validate:"required"`
	Host             string        `koanf:"host"`
	Port             int           `koanf:"port" validate:"min=0,max=65535"`
	Database         string        `koanf:"database"`
	Username         string        `koanf:"username"`
	Password         string        `koanf:"password"`
	ConnectionString string        `koanf:"connection_string"`
	Active           *bool         `koanf:"active"`
	MaxConnections   int           `koanf:"max_connections" validate:"min=0"`
	Timeout          time.Duration `koanf:"timeout"`
}

// Enabled reports whether the backend should participate in fan-out.
// Unset means enabled.
func (b BackendConfig) Enabled() bool {
	return b.Active == nil || *b.Active
}

// ToDatabaseConfig converts the file entry to the registry's config
// type.
func (b BackendConfig) ToDatabaseConfig() core.DatabaseConfig {
	return core.DatabaseConfig{
		Name:             b.Name,
		Engine:           core.Engine(b.Engine),
		Host:             b.Host,
		Port:             b.Port,
		Database:         b.Database,
		Username:         b.Username,
		Password:         b.Password,
		ConnectionString: b.ConnectionString,
		MaxConnections:   b.MaxConnections,
		Timeout:          b.Timeout,
	}
}
