// Package config loads server configuration from an optional YAML file,
// LEDGER_* environment variables and built-in defaults, in that order of
// precedence (environment wins over file).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LedgerConfig tunes the mutation windows and the zone used to cut
// aggregation periods.
type LedgerConfig struct {
	EditWindow time.Duration `mapstructure:"edit_window"`
	UndoWindow time.Duration `mapstructure:"undo_window"`
	Timezone   string        `mapstructure:"timezone"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	CORS     CORSConfig     `mapstructure:"cors"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("database.path", "ledger.db")
	v.SetDefault("ledger.edit_window", 12*time.Hour)
	v.SetDefault("ledger.undo_window", 30*time.Second)
	v.SetDefault("ledger.timezone", "Local")
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:5173", "http://localhost:8080"})
}

// Load reads configuration. An empty path looks for config.yaml in the
// working directory; a missing default file is not an error, a missing
// explicit file is.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	// environment overrides, e.g. LEDGER_SERVER_PORT=9000
	v.SetEnvPrefix("LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}
	if c.Ledger.EditWindow <= 0 {
		return fmt.Errorf("ledger.edit_window must be positive, got %s", c.Ledger.EditWindow)
	}
	if c.Ledger.UndoWindow <= 0 {
		return fmt.Errorf("ledger.undo_window must be positive, got %s", c.Ledger.UndoWindow)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves ledger.timezone. "Local" and "" mean the host zone.
func (c *Config) Location() (*time.Location, error) {
	switch c.Ledger.Timezone {
	case "", "Local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Ledger.Timezone)
	if err != nil {
		return nil, fmt.Errorf("ledger.timezone: %w", err)
	}
	return loc, nil
}
