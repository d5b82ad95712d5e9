// Package config loads the roomserver's process configuration through
// github.com/spf13/viper, the way wfunc/gameserver's config package layers
// a typed struct over a YAML file plus environment overrides.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config is the roomserver process's full configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Definitions DefinitionsConfig `mapstructure:"definitions"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig configures the websocket listener.
type ServerConfig struct {
	HTTPAddress     string        `mapstructure:"http_address"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DefinitionsConfig locates the game definition documents the roomserver
// can create rooms from.
type DefinitionsConfig struct {
	Dir string `mapstructure:"dir"`
}

// LoggingConfig selects the zap logging profile.
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Load reads the file named config (parsed as YAML) from path plus any
// ROOMFORGE_-prefixed environment overrides, following the same
// AddConfigPath/SetConfigName/AutomaticEnv sequence the teacher's config
// package uses.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetDefault("server.http_address", ":8080")
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("definitions.dir", "definitions")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)

	v.SetEnvPrefix("ROOMFORGE")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
