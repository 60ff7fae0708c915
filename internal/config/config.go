package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port       string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	JWTSecret    string
	JWTExpiresIn string // minutes

	// Broker (rosbridge / MQTT-over-websocket endpoint)
	BrokerURL string

	// Presence
	HeartbeatStalenessSeconds string

	// Initial operator account
	AdminEmail    string
	AdminPassword string
	AdminFullName string
}

func Load() *Config {
	return &Config{
		Port:       getenv("PORT", "8080"),
		DBHost:     getenv("DB_HOST", "localhost"),
		DBPort:     getenv("DB_PORT", "5432"),
		DBUser:     getenv("DB_USER", "postgres"),
		DBPassword: getenv("DB_PASSWORD", "postgres"),
		DBName:     getenv("DB_NAME", "classroom_db"),
		DBSSLMode:  getenv("DB_SSLMODE", "disable"),

		JWTSecret:    getenv("JWT_SECRET", "supersecret_change_me"),
		JWTExpiresIn: getenv("JWT_EXPIRES_IN", "60"),

		BrokerURL: getenv("BROKER_URL", "ws://localhost:9090"),

		HeartbeatStalenessSeconds: getenv("HEARTBEAT_STALENESS_SECONDS", "25"),

		AdminEmail:    getenv("ADMIN_EMAIL", "admin@example.com"),
		AdminPassword: getenv("ADMIN_PASSWORD", "admin123"),
		AdminFullName: getenv("ADMIN_FULL_NAME", "Administrator"),
	}
}

// StalenessTimeout parses the heartbeat threshold, falling back to 25s.
func (c *Config) StalenessTimeout() time.Duration {
	secs, err := strconv.Atoi(c.HeartbeatStalenessSeconds)
	if err != nil || secs <= 0 {
		secs = 25
	}
	return time.Duration(secs) * time.Second
}

func getenv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}
