// internal/config/config.go

// Package config loads the client configuration from an optional YAML file
// plus TABLETOP_-prefixed environment variables, with sane defaults for
// everything.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Identity IdentityConfig `mapstructure:"identity"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type ServerConfig struct {
	URL               string `mapstructure:"url"`
	GameID            string `mapstructure:"game_id"`
	PlayerName        string `mapstructure:"player_name"`
	ConnectTimeoutSec int    `mapstructure:"connect_timeout_sec"`
	MaxRetries        int    `mapstructure:"max_retries"`
}

type NotifyConfig struct {
	DiceSec    int `mapstructure:"dice_sec"`
	RestartSec int `mapstructure:"restart_sec"`
	ErrorSec   int `mapstructure:"error_sec"`
}

type IdentityConfig struct {
	Path    string `mapstructure:"path"`
	Persist bool   `mapstructure:"persist"`
}

type MetricsConfig struct {
	Address string `mapstructure:"address"`
}

func (c ServerConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSec) * time.Second
}

func (c NotifyConfig) DiceFor() time.Duration    { return time.Duration(c.DiceSec) * time.Second }
func (c NotifyConfig) RestartFor() time.Duration { return time.Duration(c.RestartSec) * time.Second }
func (c NotifyConfig) ErrorFor() time.Duration   { return time.Duration(c.ErrorSec) * time.Second }

// Load reads config.yaml from path if one exists there; a missing file is
// fine, defaults and environment variables cover everything.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetDefault("server.url", "ws://localhost:8080/ws")
	v.SetDefault("server.game_id", "")
	v.SetDefault("server.player_name", "")
	v.SetDefault("server.connect_timeout_sec", 10)
	v.SetDefault("server.max_retries", 3)
	v.SetDefault("notify.dice_sec", 4)
	v.SetDefault("notify.restart_sec", 5)
	v.SetDefault("notify.error_sec", 5)
	v.SetDefault("identity.path", "identity.json")
	v.SetDefault("identity.persist", true)
	v.SetDefault("metrics.address", "")

	v.SetEnvPrefix("TABLETOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}
