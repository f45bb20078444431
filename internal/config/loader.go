package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Default server settings.
const (
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 8000
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "auto"
)

// flagKeys maps CLI flag names to config keys. Only mapped flags feed
// the config; everything else on the flag set is command-local.
var flagKeys = map[string]string{
	"host":       "server.host",
	"port":       "server.port",
	"log-level":  "log.level",
	"log-format": "log.format",
}

// configFileUsed records the file the last Load read, if any.
var configFileUsed string

// ConfigFileUsed returns the path of the config file the last Load
// read, or "" when configuration came from defaults, env and flags
// alone.
func ConfigFileUsed() string {
	return configFileUsed
}

// findConfigFile picks the config file to use.
// Priority: explicit path > dbmux.yaml > dbmux.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"dbmux.yaml", "dbmux.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load reads configuration and returns a validated Config.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
// A missing config file is not an error; the server can start empty and
// have backends registered over the API.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"server.host":             DefaultHost,
		"server.port":             DefaultPort,
		"server.read_timeout":     DefaultReadTimeout,
		"server.write_timeout":    DefaultWriteTimeout,
		"server.shutdown_timeout": DefaultShutdownTimeout,
		"log.level":               DefaultLogLevel,
		"log.format":              DefaultLogFormat,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	path := findConfigFile(cfgFile)
	configFileUsed = path
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// DBMUX_SERVER__PORT -> server.port. Double underscore separates
	// nesting levels; single underscores stay part of the key.
	if err := k.Load(env.Provider("DBMUX_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "DBMUX_")), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	for i := range cfg.Databases {
		expandBackendEnvVars(&cfg.Databases[i])
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	seen := make(map[string]bool, len(cfg.Databases))
	for _, db := range cfg.Databases {
		if seen[db.Name] {
			return fmt.Errorf("invalid configuration: duplicate database name %q", db.Name)
		}
		seen[db.Name] = true
	}
	return nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} references with environment values.
// Unset variables are left as-is.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})
}

// expandBackendEnvVars expands ${VAR} in the fields that commonly hold
// secrets, so credentials can stay out of the config file.
func expandBackendEnvVars(b *BackendConfig) {
	b.Host = expandEnvVars(b.Host)
	b.Database = expandEnvVars(b.Database)
	b.Username = expandEnvVars(b.Username)
	b.Password = expandEnvVars(b.Password)
	b.ConnectionString = expandEnvVars(b.ConnectionString)
}
