package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	RestEndpoint   string
	StreamEndpoint string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	HTTPAddr    string
	MetricsAddr string

	// WindowLimit bounds every candle window and cache slot.
	WindowLimit int
}

// Load reads the configuration from a .env file when present, otherwise
// from the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using process environment")
	}

	return &Config{
		RestEndpoint:   getEnv("BINANCE_REST_ENDPOINT", "https://api.binance.com"),
		StreamEndpoint: getEnv("BINANCE_WS_ENDPOINT", "wss://stream.binance.com:9443"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		MetricsAddr:    getEnv("METRICS_ADDR", ":9090"),
		WindowLimit:    getEnvInt("WINDOW_LIMIT", 500),
	}
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(name string, fallback int) int {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid value %q for %s, using %d", v, name, fallback)
		return fallback
	}
	return n
}
