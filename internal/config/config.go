package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

const (
	DefaultServerURL         = "ws://localhost:3001/ws"
	DefaultListenAddr        = ":3001"
	DefaultRoom              = "room-1"
	DefaultReconnectAttempts = 5
	DefaultReconnectDelay    = time.Second
	DefaultHandshakeTimeout  = 5 * time.Second
	DefaultHistoryDepth      = 100
	DefaultRoomGrace         = 30 * time.Second
)

type Config struct {
	// ServerURL is the relay's websocket URL. Empty means find one with mDNS.
	ServerURL  string
	ListenAddr string
	Room       string
	// RoomGrace is how long the relay keeps an empty room's elements. It has
	// to outlast the reconnect budget or a lone client returning from a
	// network blip is handed an empty batch.
	RoomGrace time.Duration

	UserName  string
	UserColor string

	ReconnectAttempts int
	ReconnectDelay    time.Duration
	HandshakeTimeout  time.Duration
	HistoryDepth      int

	MDNS     bool
	LogLevel string
}

// Load reads .env if present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerURL:  getEnvAllowEmpty("LIVEBOARD_SERVER_URL", DefaultServerURL),
		ListenAddr: getEnv("LIVEBOARD_LISTEN_ADDR", DefaultListenAddr),
		Room:       getEnv("LIVEBOARD_ROOM", DefaultRoom),
		RoomGrace:  getEnvDuration("LIVEBOARD_ROOM_GRACE", DefaultRoomGrace),

		UserName:  getEnv("LIVEBOARD_USER_NAME", ""),
		UserColor: getEnv("LIVEBOARD_USER_COLOR", ""),

		ReconnectAttempts: getEnvInt("LIVEBOARD_RECONNECT_ATTEMPTS", DefaultReconnectAttempts),
		ReconnectDelay:    getEnvDuration("LIVEBOARD_RECONNECT_DELAY", DefaultReconnectDelay),
		HandshakeTimeout:  getEnvDuration("LIVEBOARD_HANDSHAKE_TIMEOUT", DefaultHandshakeTimeout),
		HistoryDepth:      getEnvInt("LIVEBOARD_HISTORY_DEPTH", DefaultHistoryDepth),

		MDNS:     getEnvBool("LIVEBOARD_MDNS", true),
		LogLevel: getEnv("LIVEBOARD_LOG_LEVEL", "info"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// BindFlags registers command-line overrides, defaulting to the loaded values.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.ServerURL, "server", "s", c.ServerURL, "relay websocket URL (empty: discover via mDNS)")
	fs.StringVarP(&c.ListenAddr, "listen", "l", c.ListenAddr, "relay listen address")
	fs.StringVarP(&c.Room, "room", "r", c.Room, "room to join")
	fs.DurationVar(&c.RoomGrace, "room-grace", c.RoomGrace, "how long the relay keeps an empty room")
	fs.StringVarP(&c.UserName, "name", "n", c.UserName, "display name (default: generated)")
	fs.StringVar(&c.UserColor, "color", c.UserColor, "cursor color (default: from palette)")
	fs.IntVar(&c.ReconnectAttempts, "reconnect-attempts", c.ReconnectAttempts, "reconnection attempts before giving up")
	fs.DurationVar(&c.ReconnectDelay, "reconnect-delay", c.ReconnectDelay, "delay between reconnection attempts")
	fs.DurationVar(&c.HandshakeTimeout, "handshake-timeout", c.HandshakeTimeout, "connection handshake timeout")
	fs.IntVar(&c.HistoryDepth, "history", c.HistoryDepth, "undo history depth")
	fs.BoolVar(&c.MDNS, "mdns", c.MDNS, "advertise (relay) or discover (join) over mDNS")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")
}

// Validate checks values that would otherwise fail deep inside the client.
func (c *Config) Validate() error {
	switch {
	case c.ReconnectAttempts < 0:
		return fmt.Errorf("reconnect attempts must not be negative, got %d", c.ReconnectAttempts)
	case c.ReconnectDelay < 0:
		return fmt.Errorf("reconnect delay must not be negative, got %s", c.ReconnectDelay)
	case c.HandshakeTimeout <= 0:
		return fmt.Errorf("handshake timeout must be positive, got %s", c.HandshakeTimeout)
	case c.RoomGrace < 0:
		return fmt.Errorf("room grace must not be negative, got %s", c.RoomGrace)
	case c.HistoryDepth <= 0:
		return fmt.Errorf("history depth must be positive, got %d", c.HistoryDepth)
	case strings.TrimSpace(c.Room) == "":
		return fmt.Errorf("room is required")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level: %w", err)
	}
	return lvl, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty treats a variable set to "" as a value, not as unset.
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		slog.Warn("ignoring malformed integer", slog.String("key", key), slog.String("value", value))
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		slog.Warn("ignoring malformed duration", slog.String("key", key), slog.String("value", value))
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
		slog.Warn("ignoring malformed boolean", slog.String("key", key), slog.String("value", value))
	}
	return defaultValue
}
