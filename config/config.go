package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr      string
	RedisAddr     string // vacío = almacenamiento en memoria
	LogLevel      string
	RateLimit     int // solicitudes por minuto por IP
	CacheTTL      time.Duration
	SnowflakeNode int64
}

// MustLoad lee la configuración desde variables de entorno.
func MustLoad() Config {
	cfg := Config{
		HTTPAddr:      ":8080",
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		LogLevel:      "info",
		RateLimit:     60,
		CacheTTL:      time.Minute,
		SnowflakeNode: 1,
	}

	if addr := os.Getenv("HTTP_ADDR"); addr != "" {
		cfg.HTTPAddr = addr
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	applyLogLevel(cfg.LogLevel)

	if raw := os.Getenv("RATE_LIMIT"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			logg.Fatalf("RATE_LIMIT inválido: %q", raw)
		}
		cfg.RateLimit = n
	}

	if raw := os.Getenv("CACHE_TTL_SECONDS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			logg.Fatalf("CACHE_TTL_SECONDS inválido: %q", raw)
		}
		cfg.CacheTTL = time.Duration(n) * time.Second
	}

	if raw := os.Getenv("SNOWFLAKE_NODE"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			logg.Fatalf("SNOWFLAKE_NODE inválido: %q", raw)
		}
		cfg.SnowflakeNode = n
	}

	return cfg
}
