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
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration

	// Upstream identity backend
	UpstreamBaseURL string
	UpstreamTimeout time.Duration
	MockIdentity    bool
	DatabaseURL     string

	// Front-end origin page requests are forwarded to. Optional.
	FrontendOrigin string

	// Token issuance (mock identity backend only)
	JWTSecret        string
	JWTRefreshSecret string
	JWTAccessTTL     time.Duration
	JWTRefreshTTL    time.Duration

	// Cookie policy
	AccessCookieMaxAge   time.Duration
	RefreshCookieMaxAge  time.Duration
	AccessCookieHTTPOnly bool
	SecureCookies        bool

	// Locale routing
	Locales        []string
	DefaultLocale  string
	ProtectedPaths []string

	CORSOrigins      []string
	RateLimitRPM     int
	AuthRateLimitRPM int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:         getEnv("SERVER_PORT", "3000"),
		ServerReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 15*time.Second),
		ServerWriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		ServerIdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),

		UpstreamBaseURL: getEnv("UPSTREAM_API_URL", "http://localhost:8080/api"),
		UpstreamTimeout: getDuration("UPSTREAM_TIMEOUT", 10*time.Second),
		MockIdentity:    getBool("MOCK_IDENTITY", false),
		DatabaseURL:     strings.TrimSpace(os.Getenv("DATABASE_URL")),

		FrontendOrigin: strings.TrimSpace(os.Getenv("FRONTEND_ORIGIN")),

		JWTSecret:        strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTRefreshSecret: strings.TrimSpace(os.Getenv("JWT_REFRESH_SECRET")),
		JWTAccessTTL:     getDuration("JWT_ACCESS_TTL", 15*time.Minute),
		JWTRefreshTTL:    getDuration("JWT_REFRESH_TTL", 168*time.Hour),

		AccessCookieMaxAge:   getDuration("ACCESS_COOKIE_MAX_AGE", 15*time.Minute),
		RefreshCookieMaxAge:  getDuration("REFRESH_COOKIE_MAX_AGE", 168*time.Hour),
		AccessCookieHTTPOnly: getBool("ACCESS_COOKIE_HTTP_ONLY", true),
		SecureCookies:        getEnv("APP_ENV", "development") == "production",

		Locales:        splitCSV(getEnv("LOCALES", "en,zh")),
		DefaultLocale:  getEnv("DEFAULT_LOCALE", "zh"),
		ProtectedPaths: splitCSV(getEnv("PROTECTED_PATHS", "/dashboard,/profile,/admin,/workplace,/system")),

		CORSOrigins:      splitCSV(getEnv("CORS_ORIGINS", "*")),
		RateLimitRPM:     getInt("RATE_LIMIT_RPM", 100),
		AuthRateLimitRPM: getInt("AUTH_RATE_LIMIT_RPM", 10),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if strings.TrimSpace(c.UpstreamBaseURL) == "" {
		return fmt.Errorf("UPSTREAM_API_URL cannot be empty")
	}

	if c.MockIdentity {
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET is required when MOCK_IDENTITY is enabled")
		}
		if strings.TrimSpace(c.JWTRefreshSecret) == "" {
			return fmt.Errorf("JWT_REFRESH_SECRET is required when MOCK_IDENTITY is enabled")
		}
	}

	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive")
	}

	if len(c.Locales) == 0 {
		return fmt.Errorf("LOCALES cannot be empty")
	}

	if !contains(c.Locales, c.DefaultLocale) {
		return fmt.Errorf("DEFAULT_LOCALE %q is not in LOCALES", c.DefaultLocale)
	}

	if c.AccessCookieMaxAge <= 0 || c.RefreshCookieMaxAge <= 0 {
		return fmt.Errorf("cookie max-ages must be positive")
	}

	return nil
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}

	return false
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
