package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matryer/is"
)

func setRequired(t *testing.T) {
	t.Setenv("DB_USER", "reader")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_NAME", "restaurant")
}

func TestLoadAppliesDefaults(t *testing.T) {
	is := is.New(t)
	setRequired(t)
	t.Setenv("DB_TABLE", "")
	t.Setenv("APP_PORT", "")
	t.Setenv("DB_PORT", "")

	cfg, err := Load()
	is.NoErr(err)
	is.Equal(cfg.DBTable, DefaultTable)
	is.Equal(cfg.Port, "8080")
	is.Equal(cfg.DBPort, "3306")
	is.Equal(cfg.AccessTTLMin, 60)
	is.Equal(cfg.DBUser, "reader")
}

func TestLoadReportsEveryMissingVariable(t *testing.T) {
	is := is.New(t)
	t.Setenv("DB_USER", "")
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_NAME", "restaurant")

	_, err := Load()
	is.True(err != nil)
	is.True(strings.Contains(err.Error(), "DB_USER"))
	is.True(strings.Contains(err.Error(), "DB_HOST"))
	is.True(!strings.Contains(err.Error(), "DB_NAME"))
}

func TestLoadRejectsNonNumericPort(t *testing.T) {
	is := is.New(t)
	setRequired(t)
	t.Setenv("DB_PORT", "mysql")

	_, err := Load()
	is.True(err != nil)
}

func TestLoadRejectsBadTokenTTL(t *testing.T) {
	is := is.New(t)
	setRequired(t)
	t.Setenv("ACCESS_TOKEN_TTL_MIN", "soon")

	_, err := Load()
	is.True(err != nil)
}

func TestLoadDotEnvDoesNotOverrideEnvironment(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	is.NoErr(os.WriteFile(path, []byte("DB_TABLE=business_location\nDB_NAME=from_file\n"), 0o600))

	t.Setenv("DB_NAME", "from_env")
	t.Setenv("DB_TABLE", "")
	os.Unsetenv("DB_TABLE")

	is.NoErr(LoadDotEnv(path))
	is.Equal(os.Getenv("DB_NAME"), "from_env")
	is.Equal(os.Getenv("DB_TABLE"), "business_location")
}

func TestLoadDotEnvIgnoresMissingFile(t *testing.T) {
	is := is.New(t)
	is.NoErr(LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
}

func TestLoadRateLimitConfigClampsValues(t *testing.T) {
	is := is.New(t)
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	is.Equal(cfg.Capacity, 1)
	is.Equal(cfg.TTL, 10*time.Second)
}

func TestLoadCacheConfigParsesMethods(t *testing.T) {
	is := is.New(t)
	t.Setenv("CACHE_METHODS", "get, head")

	cfg := LoadCacheConfig()
	is.True(cfg.Methods["GET"])
	is.True(cfg.Methods["HEAD"])
	is.True(!cfg.Methods["POST"])
}

func TestLoadCacheConfigRejectsNonPositiveTTL(t *testing.T) {
	is := is.New(t)
	t.Setenv("CACHE_TTL", "-5s")
	t.Setenv("CACHE_MAX_BODY_BYTES", "oops")

	cfg := LoadCacheConfig()
	is.Equal(cfg.TTL, 30*time.Second)
	is.Equal(cfg.MaxBodyBytes, int64(1<<20))
}

func TestEnvBoolAcceptsCommonSpellings(t *testing.T) {
	is := is.New(t)
	t.Setenv("FLAG", "Yes")
	is.True(envBool("FLAG", false))
	t.Setenv("FLAG", "OFF")
	is.True(!envBool("FLAG", true))
	t.Setenv("FLAG", "maybe")
	is.True(envBool("FLAG", true))
}
