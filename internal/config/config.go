// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes client settings such
// as the backend base URL, HTTP timeouts, outbound rate limiting, the paid
// feature cost table, credential cache location, logging, and observability.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/agrovet/go-vetcare-client/internal/domain"
)

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the client.
type Config struct {
	// Backend
	APIBaseURL  string        // base URL of the care-coordination backend
	HTTPTimeout time.Duration // per-request timeout

	// Outbound rate limiting (politeness for polling screens)
	RateRPS   float64 // requests per second (0 disables)
	RateBurst int     // bucket size (>= 1 when limiting)

	// Identity
	UserID string      // current account id
	Role   domain.Role // farmer|vet

	// Paid features
	FeatureCosts domain.FeatureCosts // parsed from FEATURE_COSTS ("PRO_MODE=1,...")

	// Local cache
	CachePath string // SQLite path for the credential cache

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables, applies defaults,
// normalizes values, and validates the result.
func Load() (Config, error) {
	costs, err := parseFeatureCosts(getenv("FEATURE_COSTS", ""))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		APIBaseURL:  strings.TrimRight(getenv("API_BASE_URL", "https://api.vetcare.example"), "/"),
		HTTPTimeout: getdur("HTTP_TIMEOUT", 15*time.Second),

		RateRPS:   getfloat("RATE_RPS", 0),
		RateBurst: getint("RATE_BURST", 1),

		UserID: getenv("USER_ID", ""),
		Role:   domain.Role(strings.ToLower(getenv("USER_ROLE", "farmer"))),

		FeatureCosts: costs,

		CachePath: getenv("CACHE_PATH", "vetcare.db"),

		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-vetcare-client"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return cfg, errors.New("API_BASE_URL must not be empty")
	}
	if !strings.HasPrefix(cfg.APIBaseURL, "http://") && !strings.HasPrefix(cfg.APIBaseURL, "https://") {
		return cfg, errors.New("API_BASE_URL must start with http:// or https://")
	}
	if cfg.HTTPTimeout <= 0 {
		return cfg, errors.New("HTTP_TIMEOUT must be a positive duration")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if !cfg.Role.Valid() {
		return cfg, errors.New("USER_ROLE must be farmer or vet")
	}
	if strings.TrimSpace(cfg.CachePath) == "" {
		return cfg, errors.New("CACHE_PATH must not be empty")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// parseFeatureCosts reads a "FEATURE=cost,FEATURE=cost" list on top of the
// compiled-in defaults. The table is immutable after load.
func parseFeatureCosts(s string) (domain.FeatureCosts, error) {
	costs := domain.DefaultFeatureCosts()
	if strings.TrimSpace(s) == "" {
		return costs, nil
	}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, val, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("FEATURE_COSTS: malformed entry %q", pair)
		}
		cost, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil || cost < 0 {
			return nil, fmt.Errorf("FEATURE_COSTS: %q must map to a non-negative integer", name)
		}
		costs[domain.Feature(strings.TrimSpace(name))] = cost
	}
	return costs, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
