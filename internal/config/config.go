// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Config is the runtime configuration shared by the server and historian binaries.
type Config struct {
	Port string

	// Env is "production" or anything else; production binds all interfaces
	// and restricts CORS to AllowedOrigins.
	Env            string
	AllowedOrigins []string

	MaxRooms        int
	MaxPlayers      int
	MaxRoomCapacity int
	ServerVersion   int

	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	OutboundBuffer    int

	LogLevel logrus.Level

	// TokenTTL is the session token lifetime; 0 means tokens never expire.
	TokenTTL time.Duration

	RedisAddr   string
	RedisDB     int
	QueueName   string
	DatabaseURL string

	HistorianBatchSize int
	HistorianFlush     time.Duration
}

// Load reads the configuration from the environment, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		Port:               getEnv("PORT", "20210"),
		Env:                getEnv("UNO_ENV", "development"),
		MaxRooms:           getEnvInt("MAX_ROOMS", 100),
		MaxPlayers:         getEnvInt("MAX_PLAYERS", 1000),
		MaxRoomCapacity:    getEnvInt("MAX_ROOM_CAPACITY", 10),
		ServerVersion:      getEnvInt("SERVER_VERSION", 1),
		OutboundBuffer:     getEnvInt("OUTBOUND_BUFFER", 64),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		QueueName:          getEnv("HISTORIAN_QUEUE_NAME", "uno_rounds"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		HistorianBatchSize: getEnvInt("HISTORIAN_BATCH_SIZE", 20),
		HistorianFlush:     time.Duration(getEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
	}

	var err error
	if cfg.HeartbeatInterval, err = getEnvDuration("HEARTBEAT_INTERVAL", 10*time.Second); err != nil {
		return cfg, err
	}
	if cfg.HeartbeatTimeout, err = getEnvDuration("HEARTBEAT_TIMEOUT", 30*time.Second); err != nil {
		return cfg, err
	}
	if cfg.TokenTTL, err = parseTokenTTL(os.Getenv("TOKEN_EXPIRE_TIME")); err != nil {
		return cfg, err
	}
	if cfg.LogLevel, err = logrus.ParseLevel(getEnv("LOG_LEVEL", "info")); err != nil {
		return cfg, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	cfg.AllowedOrigins = []string{"https://*", "http://*"}
	if cfg.Production() {
		cfg.AllowedOrigins = splitList(os.Getenv("ALLOWED_ORIGINS"))
	}

	if cfg.MaxRoomCapacity < 2 {
		return cfg, fmt.Errorf("MAX_ROOM_CAPACITY must be at least 2, got %d", cfg.MaxRoomCapacity)
	}
	if cfg.HeartbeatTimeout <= cfg.HeartbeatInterval {
		return cfg, fmt.Errorf("HEARTBEAT_TIMEOUT (%s) must exceed HEARTBEAT_INTERVAL (%s)", cfg.HeartbeatTimeout, cfg.HeartbeatInterval)
	}
	return cfg, nil
}

func (c Config) Production() bool {
	return c.Env == "production"
}

// Addr is the listen address for the HTTP server. Outside production only
// localhost is bound.
func (c Config) Addr() string {
	if c.Production() {
		return ":" + c.Port
	}
	return "localhost:" + c.Port
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// parseTokenTTL accepts a Go duration, or "never"/"0"/"" for tokens without expiry.
func parseTokenTTL(v string) (time.Duration, error) {
	if v == "" || v == "never" || v == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("failed to parse token expire time: %w", err)
	}
	return d, nil
}

// getEnv retrieves an environment variable's value or returns a default.
func getEnv(key, defVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defVal
}

// getEnvInt retrieves an integer value from an environment variable or returns a default value.
func getEnvInt(key string, defVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defVal
	}
	return i
}

func getEnvDuration(key string, defVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defVal, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
