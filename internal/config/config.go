package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	PostgresDSN string // empty: settings cache is memory-only

	SettingsBaseURL string
	SettingsTTL     time.Duration
	FetchTimeout    time.Duration

	CollectorURL    string
	PixelGatewayURL string
	PixelAccountID  string
	SendTimeout     time.Duration
	QueueMaxSize    int

	GatePollInterval time.Duration
	GateMaxAttempts  int

	MaxBodyBytes         int64
	RateLimitAdminPerMin int
	APIKeys              map[string]struct{}
	ClockSkew            time.Duration
}

func Parse() Config {
	// Optional .env for local runs; real deployments set the environment.
	_ = godotenv.Load()

	return Config{
		Port:        getString("PORT", "8080"),
		PostgresDSN: getString("POSTGRES_DSN", ""),

		SettingsBaseURL: getString("SETTINGS_BASE_URL", "http://localhost:9000"),
		SettingsTTL:     time.Duration(getInt("SETTINGS_TTL_SECONDS", 300)) * time.Second,
		FetchTimeout:    time.Duration(getInt("SETTINGS_FETCH_TIMEOUT_MS", 3000)) * time.Millisecond,

		CollectorURL:    getString("COLLECTOR_URL", "http://localhost:9100/events"),
		PixelGatewayURL: getString("PIXEL_GATEWAY_URL", "http://localhost:9200"),
		PixelAccountID:  getString("PIXEL_ACCOUNT_ID", ""),
		SendTimeout:     time.Duration(getInt("SEND_TIMEOUT_MS", 5000)) * time.Millisecond,
		QueueMaxSize:    getInt("QUEUE_MAX_SIZE", 10_000),

		GatePollInterval: time.Duration(getInt("GATE_POLL_INTERVAL_MS", 500)) * time.Millisecond,
		GateMaxAttempts:  getInt("GATE_MAX_ATTEMPTS", 20),

		MaxBodyBytes:         int64(getInt("MAX_BODY_BYTES", 262_144)),
		RateLimitAdminPerMin: getInt("RATE_LIMIT_ADMIN_PER_MIN", 20),
		APIKeys:              parseKeys(getString("API_KEYS", "")),
		ClockSkew:            time.Duration(getInt("CLOCK_SKEW_SECONDS", 300)) * time.Second,
	}
}

func parseKeys(csv string) map[string]struct{} {
	csv = strings.TrimSpace(csv)
	if csv == "" {
		return map[string]struct{}{}
	}
	m := make(map[string]struct{})
	for _, k := range strings.Split(csv, ",") {
		k = strings.TrimSpace(k)
		if k != "" {
			m[k] = struct{}{}
		}
	}
	return m
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
