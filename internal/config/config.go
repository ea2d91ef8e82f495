// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every setting of the lobby server.
type Config struct {
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`

	DatabaseURL string `mapstructure:"database_url"`

	// IdleReload is the number of sweep ticks a session survives without activity.
	IdleReload    int           `mapstructure:"idle_reload"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	PollTimeout   time.Duration `mapstructure:"poll_timeout"`
	TokenExpiry   time.Duration `mapstructure:"token_expire_time"`

	Federation Federation `mapstructure:"federation"`
}

// Federation configures how this server announces itself to its peers.
type Federation struct {
	Enabled     bool          `mapstructure:"enabled"`
	RedisAddr   string        `mapstructure:"redis_addr"`
	RedisDB     int           `mapstructure:"redis_db"`
	Interval    time.Duration `mapstructure:"interval"`
	ServerName  string        `mapstructure:"server_name"`
	DisplayName string        `mapstructure:"display_name"`
	Address     string        `mapstructure:"server_address"`
	MaxPlayers  int           `mapstructure:"max_players"`
}

// Load reads configuration from the environment and, if LOBBY_CONFIG names
// one, a YAML file. Environment variables win; nested keys use underscores,
// e.g. FEDERATION_REDIS_ADDR.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("database_url", "")
	v.SetDefault("idle_reload", 300)
	v.SetDefault("sweep_interval", "1s")
	v.SetDefault("poll_timeout", "30s")
	v.SetDefault("token_expire_time", "72h")
	v.SetDefault("federation.enabled", false)
	v.SetDefault("federation.redis_addr", "localhost:6379")
	v.SetDefault("federation.redis_db", 0)
	v.SetDefault("federation.interval", "5s")
	v.SetDefault("federation.server_name", "lobby")
	v.SetDefault("federation.display_name", "")
	v.SetDefault("federation.server_address", "")
	v.SetDefault("federation.max_players", 8)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file := os.Getenv("LOBBY_CONFIG"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.IdleReload <= 0 {
		return errors.New("idle_reload must be positive")
	}
	if c.SweepInterval <= 0 || c.PollTimeout <= 0 {
		return errors.New("sweep_interval and poll_timeout must be positive")
	}
	if c.Federation.Enabled && c.Federation.ServerName == "" {
		return errors.New("federation.server_name is required when federation is enabled")
	}
	return nil
}
