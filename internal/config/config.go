// Package config loads the TOML server configuration.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/hailam/chessnet/internal/errs"
)

// Config is the root server configuration.
type Config struct {
	Network  NetworkConfig  `toml:"network"`
	Game     GameConfig     `toml:"game"`
	Security SecurityConfig `toml:"security"`
	Logging  LoggingConfig  `toml:"logging"`
}

// NetworkConfig controls the listener and per-connection limits.
type NetworkConfig struct {
	Host                  string `toml:"host"`
	Port                  int    `toml:"port"`
	MaxConnections        int    `toml:"max_connections"`
	ConnectionTimeoutSecs uint64 `toml:"connection_timeout_secs"`
	MaxMessageSize        int    `toml:"max_message_size"`
	HeartbeatIntervalSecs uint64 `toml:"heartbeat_interval_secs"`
	OutboundQueueSize     int    `toml:"outbound_queue_size"`
}

// GameConfig controls game lifecycle limits.
type GameConfig struct {
	MaxGamesPerPlayer   int    `toml:"max_games_per_player"`
	GameTimeoutSecs     uint64 `toml:"game_timeout_secs"`
	MoveTimeoutSecs     uint64 `toml:"move_timeout_secs"`
	CleanupIntervalSecs uint64 `toml:"cleanup_interval_secs"`
	MaxConcurrentGames  int    `toml:"max_concurrent_games"`
	AllowSpectators     bool   `toml:"allow_spectators"`
	AutoMatch           bool   `toml:"auto_match"`
}

// SecurityConfig controls authentication, naming and rate limits.
type SecurityConfig struct {
	RequireAuthentication    bool   `toml:"require_authentication"`
	RateLimitMovesPerMinute  uint32 `toml:"rate_limit_moves_per_minute"`
	RateLimitConnectionsPerIP uint32 `toml:"rate_limit_connections_per_ip"`
	MaxPlayerNameLength      int    `toml:"max_player_name_length"`
	SessionTimeoutSecs       uint64 `toml:"session_timeout_secs"`
}

// LoggingConfig controls the log level and optional file output.
type LoggingConfig struct {
	Level          string `toml:"level"`
	FilePath       string `toml:"file_path"`
	LogGames       bool   `toml:"log_games"`
	LogConnections bool   `toml:"log_connections"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Network: NetworkConfig{
			Host:                  "127.0.0.1",
			Port:                  8080,
			MaxConnections:        1000,
			ConnectionTimeoutSecs: 30,
			MaxMessageSize:        1024 * 1024,
			HeartbeatIntervalSecs: 30,
			OutboundQueueSize:     64,
		},
		Game: GameConfig{
			MaxGamesPerPlayer:   5,
			GameTimeoutSecs:     3600,
			MoveTimeoutSecs:     300,
			CleanupIntervalSecs: 300,
			MaxConcurrentGames:  10000,
			AllowSpectators:     true,
			AutoMatch:           true,
		},
		Security: SecurityConfig{
			RequireAuthentication:     false,
			RateLimitMovesPerMinute:   60,
			RateLimitConnectionsPerIP: 10,
			MaxPlayerNameLength:       20,
			SessionTimeoutSecs:        86400,
		},
		Logging: LoggingConfig{
			Level:          "info",
			LogGames:       true,
			LogConnections: true,
		},
	}
}

// Load reads a TOML config file, layering it over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Configuration(fmt.Sprintf("read %s: %v", path, err))
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, errs.Configuration(fmt.Sprintf("parse %s: %v", path, err))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.Network.Port <= 0 || c.Network.Port > 65535 {
		return errs.Configuration(fmt.Sprintf("port out of range: %d", c.Network.Port))
	}
	if c.Network.MaxConnections <= 0 {
		return errs.Configuration("max_connections must be positive")
	}
	if c.Network.MaxMessageSize <= 0 {
		return errs.Configuration("max_message_size must be positive")
	}
	if c.Network.OutboundQueueSize <= 0 {
		return errs.Configuration("outbound_queue_size must be positive")
	}
	if c.Security.SessionTimeoutSecs == 0 {
		return errs.Configuration("session_timeout_secs must be positive")
	}
	if c.Game.MaxGamesPerPlayer <= 0 {
		return errs.Configuration("max_games_per_player must be positive")
	}
	return nil
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Network.Host, c.Network.Port)
}
