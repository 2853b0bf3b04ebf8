// Package config provides Viper-based configuration loading for the game server.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds the websocket gateway listener settings.
type ServerConfig struct {
	// Host is the bind address for the HTTP/websocket listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port for the HTTP/websocket listener.
	Port int `mapstructure:"port"`
	// WriteTimeout is the per-write deadline for outbound frames.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// PingInterval is how often the server pings each client.
	PingInterval time.Duration `mapstructure:"ping_interval"`
	// PongTimeout is how long after a ping a pong must arrive.
	PongTimeout time.Duration `mapstructure:"pong_timeout"`
	// MaxMessageBytes is the maximum accepted inbound frame size.
	MaxMessageBytes int64 `mapstructure:"max_message_bytes"`
	// SendBufferSize is the per-client outbound frame queue length.
	SendBufferSize int `mapstructure:"send_buffer_size"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LobbyConfig holds matchmaking and session lifecycle settings.
type LobbyConfig struct {
	// MaxPlayers is the participant capacity of a session.
	MaxPlayers int `mapstructure:"max_players"`
	// MinPlayersToStart is the participant count at which a session starts playing.
	MinPlayersToStart int `mapstructure:"min_players_to_start"`
	// GracePeriod is the delay before reclaiming a session with no connected participants.
	GracePeriod time.Duration `mapstructure:"grace_period"`
	// FinishedRetention is how long a finished session is kept before the sweep removes it.
	FinishedRetention time.Duration `mapstructure:"finished_retention"`
	// SweepInterval is how often the finished-session sweep runs.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	// StatsLogInterval is how often the periodic stats snapshot is logged.
	StatsLogInterval time.Duration `mapstructure:"stats_log_interval"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Lobby   LobbyConfig   `mapstructure:"lobby"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateServer(c.Server); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLobby(c.Lobby); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateServer(s ServerConfig) error {
	var errs []string
	if s.Port < 1 || s.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", s.Port))
	}
	if s.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if s.PingInterval <= 0 {
		errs = append(errs, "server.ping_interval must be positive")
	}
	if s.PongTimeout <= 0 {
		errs = append(errs, "server.pong_timeout must be positive")
	}
	if s.MaxMessageBytes <= 0 {
		errs = append(errs, "server.max_message_bytes must be positive")
	}
	if s.SendBufferSize <= 0 {
		errs = append(errs, "server.send_buffer_size must be positive")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLobby(l LobbyConfig) error {
	var errs []string
	if l.MaxPlayers < 2 || l.MaxPlayers > 4 {
		errs = append(errs, fmt.Sprintf("lobby.max_players must be 2-4, got %d", l.MaxPlayers))
	}
	if l.MinPlayersToStart < 2 || l.MinPlayersToStart > l.MaxPlayers {
		errs = append(errs, fmt.Sprintf("lobby.min_players_to_start must be 2-%d, got %d", l.MaxPlayers, l.MinPlayersToStart))
	}
	if l.GracePeriod <= 0 {
		errs = append(errs, "lobby.grace_period must be positive")
	}
	if l.FinishedRetention <= 0 {
		errs = append(errs, "lobby.finished_retention must be positive")
	}
	if l.SweepInterval <= 0 {
		errs = append(errs, "lobby.sweep_interval must be positive")
	}
	if l.StatsLogInterval <= 0 {
		errs = append(errs, "lobby.stats_log_interval must be positive")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with LUDO_ prefix
	v.SetEnvPrefix("LUDO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Default returns the built-in defaults without reading any file.
//
// Postcondition: The returned Config passes Validate.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Unmarshalling pure built-in defaults cannot fail.
	_ = v.Unmarshal(&cfg)
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8765)
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.ping_interval", "30s")
	v.SetDefault("server.pong_timeout", "10s")
	v.SetDefault("server.max_message_bytes", 1<<20)
	v.SetDefault("server.send_buffer_size", 32)

	v.SetDefault("lobby.max_players", 4)
	v.SetDefault("lobby.min_players_to_start", 2)
	v.SetDefault("lobby.grace_period", "5m")
	v.SetDefault("lobby.finished_retention", "24h")
	v.SetDefault("lobby.sweep_interval", "1h")
	v.SetDefault("lobby.stats_log_interval", "1m")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
