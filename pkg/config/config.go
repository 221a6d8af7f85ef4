// Package config loads server configuration from defaults, an optional config
// file and FILESTORE_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. FILESTORE_DATABASE_PATH
const EnvPrefix = "FILESTORE"

// Config is the complete server configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Query    QueryConfig    `mapstructure:"query"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
}

type DatabaseConfig struct {
	Path             string        `mapstructure:"path"`
	Backend          string        `mapstructure:"backend"` // file, sqlite or memory
	AutosaveInterval time.Duration `mapstructure:"autosaveInterval"`
	SaveOnWrite      bool          `mapstructure:"saveOnWrite"`
	Compress         bool          `mapstructure:"compress"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type QueryConfig struct {
	RegexCacheSize int `mapstructure:"regexCacheSize"`
}

// SetDefaults registers every key with its default value
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdownTimeout", 30*time.Second)
	v.SetDefault("database.path", "workspace")
	v.SetDefault("database.backend", "file")
	v.SetDefault("database.autosaveInterval", time.Duration(0))
	v.SetDefault("database.saveOnWrite", true)
	v.SetDefault("database.compress", true)
	v.SetDefault("log.level", "INFO")
	v.SetDefault("log.format", "text")
	v.SetDefault("query.regexCacheSize", 128)
}

// Load reads configuration into a Config. configFile may be empty.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks option values
func (c *Config) Validate() error {
	switch c.Database.Backend {
	case "file", "sqlite", "memory":
	default:
		return fmt.Errorf("unknown database backend %q (want file, sqlite or memory)", c.Database.Backend)
	}
	if c.Database.Backend != "memory" && c.Database.Path == "" {
		return fmt.Errorf("database.path is required for the %s backend", c.Database.Backend)
	}
	if c.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.AutosaveInterval < 0 {
		return fmt.Errorf("database.autosaveInterval cannot be negative")
	}
	return nil
}
