package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultTokenTTL    = 7 * 24 * time.Hour
	defaultBcryptCost  = 12
	minSecretLength    = 32
	developmentSecret  = "taskflow-development-secret-change-me"
	defaultStatsTTL    = 5 * time.Minute
	defaultReminderJob = "@hourly"
)

// Always allowed in addition to FRONTEND_URL, mirrors the local Vite dev ports.
var devOrigins = []string{
	"http://localhost:5173",
	"http://localhost:5174",
	"http://localhost:5175",
}

// Config holds the application configuration. It is built once at startup and
// never mutated afterwards.
type Config struct {
	ServerPort       int
	AppEnv           string
	DatabasePath     string
	JWTSecret        string
	JWTExpiresIn     time.Duration
	AllowedOrigins   []string
	BcryptCost       int
	LogLevel         string
	RedisURL         string
	StatsCacheTTL    time.Duration
	ReminderSchedule string
	StaticDir        string

	// UsingDevSecret is set when no JWT_SECRET was supplied outside production.
	UsingDevSecret bool
}

// IsProduction reports whether the app runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Load loads configuration from environment variables or sets defaults.
// A .env file in the working directory is read first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an arbitrary variable source.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, fallback string) string {
		if value, exists := lookup(key); exists && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
		return fallback
	}

	port, err := strconv.Atoi(get("PORT", "5000"))
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid PORT %q", get("PORT", ""))
	}

	ttl := defaultTokenTTL
	if raw := get("JWT_EXPIRES_IN", ""); raw != "" {
		if ttl, err = parseDuration(raw); err != nil {
			return nil, fmt.Errorf("invalid JWT_EXPIRES_IN: %w", err)
		}
	}

	cost, err := strconv.Atoi(get("BCRYPT_COST", strconv.Itoa(defaultBcryptCost)))
	if err != nil || cost < 4 || cost > 31 {
		return nil, fmt.Errorf("invalid BCRYPT_COST %q", get("BCRYPT_COST", ""))
	}

	statsTTL, err := parseDuration(get("STATS_CACHE_TTL", defaultStatsTTL.String()))
	if err != nil {
		return nil, fmt.Errorf("invalid STATS_CACHE_TTL: %w", err)
	}

	cfg := &Config{
		ServerPort:     port,
		AppEnv:         get("APP_ENV", "development"),
		DatabasePath:   get("DATABASE_PATH", "./taskflow.db"),
		JWTSecret:      get("JWT_SECRET", ""),
		JWTExpiresIn:   ttl,
		AllowedOrigins: parseOrigins(get("FRONTEND_URL", "")),
		BcryptCost:     cost,
		LogLevel:       get("LOG_LEVEL", "info"),
		RedisURL:       get("REDIS_URL", ""),
		StatsCacheTTL:  statsTTL,
		StaticDir:      get("STATIC_DIR", ""),
	}

	// An explicitly empty REMINDER_SCHEDULE turns the job off.
	if value, exists := lookup("REMINDER_SCHEDULE"); exists {
		cfg.ReminderSchedule = strings.TrimSpace(value)
	} else {
		cfg.ReminderSchedule = defaultReminderJob
	}

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			return nil, errors.New("JWT_SECRET is required in production")
		}
		cfg.JWTSecret = developmentSecret
		cfg.UsingDevSecret = true
	}
	if cfg.IsProduction() && len(cfg.JWTSecret) < minSecretLength {
		return nil, fmt.Errorf("JWT_SECRET must be at least %d characters", minSecretLength)
	}

	return cfg, nil
}

// parseDuration accepts Go durations plus the "7d" day shorthand used by
// jsonwebtoken's expiresIn.
func parseDuration(raw string) (time.Duration, error) {
	if strings.HasSuffix(raw, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(raw, "d"))
		if err != nil {
			return 0, fmt.Errorf("bad day count %q", raw)
		}
		if days <= 0 {
			return 0, fmt.Errorf("duration must be positive, got %q", raw)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %q", raw)
	}
	return d, nil
}

func parseOrigins(raw string) []string {
	seen := make(map[string]bool)
	var origins []string
	add := func(origin string) {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "" || seen[origin] {
			return
		}
		seen[origin] = true
		origins = append(origins, origin)
	}
	for _, origin := range strings.Split(raw, ",") {
		add(origin)
	}
	for _, origin := range devOrigins {
		add(origin)
	}
	return origins
}
