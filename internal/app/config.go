package app

import (
	"fmt"
	"log"
	"os"
	"strings"
)

type Config struct {
	Env      string
	HTTPAddr string

	CORSAllow    []string // explicit origin allowlist
	OriginSuffix string   // subdomains of this suffix are also allowed, e.g. theqube.ai

	RedisAddr string // host:port for the avatar profile store
	RedisDB   int

	RoomCapacity int // max participants per auto-assigned room
}

func LoadConfig() Config {
	cfg := Config{
		Env:          getEnv("APP_ENV", "dev"),
		HTTPAddr:     getEnv("HTTP_ADDR", ":3001"),
		OriginSuffix: getEnv("ORIGIN_SUFFIX", "theqube.ai"),
		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
	}
	cfg.RedisDB = getEnvInt("REDIS_DB", 0)
	cfg.RoomCapacity = getEnvInt("ROOM_CAPACITY", 20)
	// CORS allowlist
	allow := getEnv("CORS_ALLOW", "http://localhost:3000")
	cfg.CORSAllow = splitCSV(allow)
	log.Printf("config: %+v\n", cfg)
	return cfg
}

// getEnv returns the env var or a default
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// getEnvInt parses an int env var with a fallback
func getEnvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		var i int
		_, _ = fmt.Sscanf(v, "%d", &i)
		if i > 0 {
			return i
		}
	}
	return def
}

// splitCSV trims and filters a comma-separated list
func splitCSV(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
