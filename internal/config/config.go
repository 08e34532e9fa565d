package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv" // godotenv loads KEY=VALUE pairs from a .env file into the environment
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Nothing here has a compiled-in credential: the
// database user, password and host must come from the environment.
type Config struct {
	Env          string // application environment (e.g. "dev", "prod")
	Port         string // HTTP port to listen on
	DBUser       string // database username
	DBPass       string // database password (optional)
	DBHost       string // database host address
	DBPort       string // database port number
	DBName       string // database name
	DBTable      string // table holding the restaurant rows
	LogLevel     string // trace, debug, info, warn or error
	LogFile      string // rotating log file; empty logs to console only
	JWTSecret    string // when set, the JSON API requires a bearer token
	AccessTTLMin int    // lifetime of issued API tokens in minutes
	AMQPURL      string // broker URL for search audit events; empty disables them
}

// DefaultTable is the table queried when DB_TABLE is not set.
const DefaultTable = "restaurants"

// LoadDotEnv loads the given .env files into the process environment.
// Variables already present in the environment win.  A missing file is
// not an error so that production deployments can rely on real env vars.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if f == "" {
			continue
		}
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads configuration values from environment variables and returns a
// Config.  Every required variable that is unset or empty is reported in a
// single error so operators can fix them in one pass.
func Load() (Config, error) {
	var missing []string
	must := func(key string) string {
		v, ok := os.LookupEnv(key)
		if !ok || strings.TrimSpace(v) == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg := Config{
		Env:       envStr("APP_ENV", "dev"),
		Port:      envStr("APP_PORT", "8080"),
		DBUser:    must("DB_USER"),
		DBPass:    os.Getenv("DB_PASS"), // empty allowed
		DBHost:    must("DB_HOST"),
		DBPort:    envStr("DB_PORT", "3306"),
		DBName:    must("DB_NAME"),
		DBTable:   envStr("DB_TABLE", DefaultTable),
		LogLevel:  strings.ToLower(envStr("LOG_LEVEL", "info")),
		LogFile:   os.Getenv("LOG_FILE"),
		JWTSecret: os.Getenv("JWT_SECRET"),
		AMQPURL:   envStr("AMQP_URL", os.Getenv("RABBITMQ_URL")),
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}

	ttl, err := envIntStrict("ACCESS_TOKEN_TTL_MIN", 60)
	if err != nil {
		return Config{}, err
	}
	if ttl < 1 {
		return Config{}, fmt.Errorf("invalid ACCESS_TOKEN_TTL_MIN: must be positive, got %d", ttl)
	}
	cfg.AccessTTLMin = ttl

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return Config{}, fmt.Errorf("invalid APP_PORT: %q", cfg.Port)
	}
	if _, err := strconv.Atoi(cfg.DBPort); err != nil {
		return Config{}, fmt.Errorf("invalid DB_PORT: %q", cfg.DBPort)
	}
	return cfg, nil
}

// envIntStrict is like envInt but rejects values that are set and not numeric.
func envIntStrict(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid int for %s: %q", key, s)
	}
	return n, nil
}
