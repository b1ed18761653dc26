package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName          = "FacePass"
	defaultAppEnv           = "development"
	defaultPort             = "8080"
	defaultLogLevel         = "info"
	defaultLogFormat        = "json"
	defaultRedisPrefix      = "facepass:"
	defaultShutdownDelay    = 10 * time.Second
	defaultIdempotencyTTL   = 24 * time.Hour
	defaultScanDuration     = 3000 * time.Millisecond
	defaultScanFrame        = 16 * time.Millisecond
	defaultScanSettle       = 1000 * time.Millisecond
	defaultRegisterDelay    = 2000 * time.Millisecond
	defaultAuthenticateWait = 3000 * time.Millisecond
	defaultFlowSessionTTL   = 30 * time.Minute
	defaultAccessTokenTTL   = 15 * time.Minute
	defaultMatchMode        = "presence"
	defaultMatchThreshold   = 10
	defaultAuthRateLimit    = 10
	devJWTSecret            = "facepass-dev-secret"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName           string
	AppEnv            string
	Port              string
	LogLevel          string
	LogFormat         string
	DatabaseURL       string
	RedisURL          string
	RedisPrefix       string
	StoreFile         string
	ShutdownPeriod    time.Duration
	IdempotencyTTL    time.Duration
	ScanDuration      time.Duration
	ScanFrameInterval time.Duration
	ScanSettleDelay   time.Duration
	RegisterDelay     time.Duration
	AuthenticateDelay time.Duration
	FlowSessionTTL    time.Duration
	MatchMode         string
	MatchThreshold    int
	JWTSecret         string
	AccessTokenTTL    time.Duration
	AuthRateLimit     int
}

// Load reads configuration values from the environment and populates a Config instance.
// DATABASE_URL, REDIS_URL and STORE_FILE are optional; without them the
// service keeps credentials and activity in memory.
func Load() (Config, error) {
	cfg := Config{
		AppName:     getEnv("APP_NAME", defaultAppName),
		AppEnv:      getEnv("APP_ENV", defaultAppEnv),
		Port:        getEnv("PORT", defaultPort),
		LogLevel:    strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		LogFormat:   strings.ToLower(getEnv("LOG_FORMAT", defaultLogFormat)),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		RedisPrefix: getEnv("REDIS_PREFIX", defaultRedisPrefix),
		StoreFile:   os.Getenv("STORE_FILE"),
		MatchMode:   strings.ToLower(getEnv("MATCH_MODE", defaultMatchMode)),
		JWTSecret:   os.Getenv("JWT_SECRET"),
	}

	durations := []struct {
		name     string
		target   *time.Duration
		fallback time.Duration
	}{
		{"SHUTDOWN_TIMEOUT", &cfg.ShutdownPeriod, defaultShutdownDelay},
		{"IDEMPOTENCY_TTL", &cfg.IdempotencyTTL, defaultIdempotencyTTL},
		{"SCAN_DURATION", &cfg.ScanDuration, defaultScanDuration},
		{"SCAN_FRAME_INTERVAL", &cfg.ScanFrameInterval, defaultScanFrame},
		{"SCAN_SETTLE_DELAY", &cfg.ScanSettleDelay, defaultScanSettle},
		{"REGISTER_DELAY", &cfg.RegisterDelay, defaultRegisterDelay},
		{"AUTHENTICATE_DELAY", &cfg.AuthenticateDelay, defaultAuthenticateWait},
		{"FLOW_SESSION_TTL", &cfg.FlowSessionTTL, defaultFlowSessionTTL},
		{"ACCESS_TOKEN_TTL", &cfg.AccessTokenTTL, defaultAccessTokenTTL},
	}
	for _, d := range durations {
		v, err := getDuration(d.name, d.fallback)
		if err != nil {
			return Config{}, err
		}
		*d.target = v
	}

	var err error
	if cfg.MatchThreshold, err = getInt("MATCH_THRESHOLD", defaultMatchThreshold); err != nil {
		return Config{}, err
	}
	if cfg.AuthRateLimit, err = getInt("AUTH_RATE_LIMIT", defaultAuthRateLimit); err != nil {
		return Config{}, err
	}

	switch cfg.MatchMode {
	case "presence", "exact", "perceptual":
	default:
		return Config{}, fmt.Errorf("invalid MATCH_MODE %q", cfg.MatchMode)
	}

	if cfg.ScanFrameInterval <= 0 {
		return Config{}, fmt.Errorf("SCAN_FRAME_INTERVAL must be positive")
	}

	if cfg.JWTSecret == "" {
		if !cfg.IsDev() {
			return Config{}, fmt.Errorf("JWT_SECRET must be set when APP_ENV=%s", cfg.AppEnv)
		}
		cfg.JWTSecret = devJWTSecret
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the app runs in a local development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

// getDuration accepts NAME_MS, NAME_SECONDS (integers) or NAME as a Go
// duration string, in that order of precedence.
func getDuration(name string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(name + "_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s_MS: %w", name, err)
		}
		return time.Duration(ms) * time.Millisecond, nil
	}
	if v := os.Getenv(name + "_SECONDS"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s_SECONDS: %w", name, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(name); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", name, err)
		}
		return d, nil
	}
	return fallback, nil
}
