package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Auth backends.
const (
	AuthRedis  = "redis"
	AuthHTTP   = "http"
	AuthStatic = "static"
)

type AppConfig struct {
	HTTPAddr string
	GinMode  string

	RedisURL    string
	DatabaseURL string

	AuthMode         string
	AuthBaseURL      string
	AuthStaticTokens string
	AuthTokenTTL     time.Duration

	GameTTL time.Duration

	WSSendQueue      int
	WSPingInterval   time.Duration
	WSAllowedOrigins []string

	MessagesDir string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		HTTPAddr:       ":8080",
		GinMode:        "release",
		AuthMode:       AuthRedis,
		AuthTokenTTL:   12 * time.Hour,
		GameTTL:        24 * time.Hour,
		WSSendQueue:    32,
		WSPingInterval: 30 * time.Second,
	}

	if v := env("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := env("GIN_MODE"); v != "" {
		cfg.GinMode = v
	}
	cfg.RedisURL = env("REDIS_URL")
	cfg.DatabaseURL = env("DATABASE_URL")

	if v := strings.ToLower(env("AUTH_MODE")); v != "" {
		cfg.AuthMode = v
	}
	cfg.AuthBaseURL = env("AUTH_BASE_URL")
	cfg.AuthStaticTokens = env("AUTH_STATIC_TOKENS")
	if n, ok := positiveInt("AUTH_TOKEN_TTL_SEC"); ok {
		cfg.AuthTokenTTL = time.Duration(n) * time.Second
	}

	if n, ok := positiveInt("GAME_TTL_SEC"); ok {
		cfg.GameTTL = time.Duration(n) * time.Second
	}
	if n, ok := positiveInt("WS_SEND_QUEUE"); ok {
		cfg.WSSendQueue = n
	}
	if n, ok := positiveInt("WS_PING_INTERVAL_SEC"); ok {
		cfg.WSPingInterval = time.Duration(n) * time.Second
	}
	if v := env("WS_ALLOWED_ORIGINS"); v != "" {
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				cfg.WSAllowedOrigins = append(cfg.WSAllowedOrigins, s)
			}
		}
	}
	cfg.MessagesDir = env("MESSAGES_DIR")

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	switch cfg.AuthMode {
	case AuthRedis:
	case AuthHTTP:
		if cfg.AuthBaseURL == "" {
			return nil, errors.New("AUTH_BASE_URL is required when AUTH_MODE=http")
		}
	case AuthStatic:
		if cfg.AuthStaticTokens == "" {
			return nil, errors.New("AUTH_STATIC_TOKENS is required when AUTH_MODE=static")
		}
	default:
		return nil, fmt.Errorf("unknown AUTH_MODE %q", cfg.AuthMode)
	}
	return cfg, nil
}

func env(k string) string { return strings.TrimSpace(os.Getenv(k)) }

func positiveInt(k string) (int, bool) {
	v := env(k)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
