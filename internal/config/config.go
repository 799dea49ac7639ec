package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort  string
	StoreDriver string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string

	RedisURL        string
	ProfileCacheTTL time.Duration

	JWTSecret string
	JWTTTL    time.Duration

	LogLevel  string
	LogFormat string

	WS WSConfig

	PresenceSweepCron string
}

// WSConfig holds the per-connection limits of the socket layer.
type WSConfig struct {
	SendBuffer      int
	MaxMessageBytes int64
	RatePerSec      float64
	RateBurst       int
	EventTimeout    time.Duration
	PingInterval    time.Duration
	AllowedOrigins  []string
}

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		StoreDriver:       strings.ToLower(getEnv("STORE_DRIVER", StorePostgres)),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBUser:            getEnv("DB_USER", "yaca"),
		DBPassword:        getEnv("DB_PASSWORD", "yaca_dev_password"),
		DBName:            getEnv("DB_NAME", "yaca"),
		RedisURL:          getEnv("REDIS_URL", ""),
		JWTSecret:         getEnv("JWT_SECRET", "dev-secret-change-me"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
		PresenceSweepCron: getEnv("PRESENCE_SWEEP_CRON", "*/5 * * * *"),
	}

	var p parser
	cfg.ProfileCacheTTL = p.duration("PROFILE_CACHE_TTL", 10*time.Minute)
	cfg.JWTTTL = p.duration("JWT_TTL", 24*time.Hour)
	cfg.WS = WSConfig{
		SendBuffer:      p.int("WS_SEND_BUFFER", 256),
		MaxMessageBytes: int64(p.int("WS_MAX_MESSAGE_BYTES", 64<<10)),
		RatePerSec:      p.float("WS_RATE_PER_SEC", 20),
		RateBurst:       p.int("WS_RATE_BURST", 40),
		EventTimeout:    p.duration("WS_EVENT_TIMEOUT", 10*time.Second),
		PingInterval:    p.duration("WS_PING_INTERVAL", 30*time.Second),
		AllowedOrigins:  splitList(getEnv("WS_ALLOWED_ORIGINS", "")),
	}
	if p.err != nil {
		return nil, p.err
	}

	switch cfg.StoreDriver {
	case StoreMemory, StorePostgres:
	default:
		return nil, fmt.Errorf("config: unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	val, exists := os.LookupEnv(key)

	if exists {
		return val
	}

	return fallback
}

// parser keeps the first conversion error so Load can report it once.
type parser struct {
	err error
}

func (p *parser) fail(key, val string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("config: invalid %s=%q: %w", key, val, err)
	}
}

func (p *parser) int(key string, fallback int) int {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		p.fail(key, val, err)
		return fallback
	}
	return n
}

func (p *parser) float(key string, fallback float64) float64 {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		p.fail(key, val, err)
		return fallback
	}
	return f
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		p.fail(key, val, err)
		return fallback
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
