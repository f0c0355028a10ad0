package config

import (
	"fmt"
	"os"
	"time"
)

// Config is process-wide immutable configuration, loaded once in main and
// passed explicitly into the components that need it.
type Config struct {
	ServiceName string
	Env         string
	HTTPAddr    string

	// Storage selects the repository backend: "memory" or "mysql". The
	// DSN must include parseTime=true so DATETIME columns scan into
	// time.Time.
	Storage  string
	MySQLDSN string

	// RedisAddr, when set, puts a Redis conditional-decrement guard in
	// front of the durable stock ledger.
	RedisAddr string

	// Razorpay credentials and endpoint. KeyID is public and returned to
	// clients so they can open checkout; KeySecret signs callbacks.
	RazorpayKeyID     string
	RazorpayKeySecret string
	GatewayBaseURL    string
	GatewayTimeout    time.Duration
}

const (
	defaultHTTPAddr       = ":8080"
	defaultGatewayBaseURL = "https://api.razorpay.com"
	defaultGatewayTimeout = 5 * time.Second
)

// Load reads the environment. Gateway credentials are required; everything
// else has a development default.
func Load() (*Config, error) {
	cfg := &Config{
		ServiceName:       getenvDefault("SERVICE_NAME", "pharmakart"),
		Env:               getenvDefault("ENV", "dev"),
		HTTPAddr:          getenvDefault("HTTP_ADDR", defaultHTTPAddr),
		Storage:           getenvDefault("STORAGE", "memory"),
		MySQLDSN:          os.Getenv("MYSQL_DSN"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RazorpayKeyID:     os.Getenv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret: os.Getenv("RAZORPAY_KEY_SECRET"),
		GatewayBaseURL:    getenvDefault("RAZORPAY_BASE_URL", defaultGatewayBaseURL),
		GatewayTimeout:    defaultGatewayTimeout,
	}

	if v := os.Getenv("GATEWAY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("config: parse GATEWAY_TIMEOUT: %w", err)
		}
		cfg.GatewayTimeout = d
	}

	if cfg.RazorpayKeyID == "" || cfg.RazorpayKeySecret == "" {
		return nil, fmt.Errorf("config: RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET are required")
	}
	if cfg.Storage == "mysql" && cfg.MySQLDSN == "" {
		return nil, fmt.Errorf("config: MYSQL_DSN is required when STORAGE=mysql")
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
