package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies POLYDATA_* environment variable overrides, and
// returns the final Config. An empty path skips the file and uses defaults
// plus environment overrides only. The returned Config has NOT been
// validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known POLYDATA_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject endpoints and secrets at deploy
// time without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// Polymarket
	setStr(&cfg.Polymarket.ClobHost, "POLYDATA_POLYMARKET_CLOB_HOST")
	setStr(&cfg.Polymarket.GammaHost, "POLYDATA_POLYMARKET_GAMMA_HOST")
	setStr(&cfg.Polymarket.DataHost, "POLYDATA_POLYMARKET_DATA_HOST")
	setDuration(&cfg.Polymarket.Timeout, "POLYDATA_POLYMARKET_TIMEOUT")
	setInt(&cfg.Polymarket.MaxRetries, "POLYDATA_POLYMARKET_MAX_RETRIES")
	setDuration(&cfg.Polymarket.RetryDelay, "POLYDATA_POLYMARKET_RETRY_DELAY")
	setStr(&cfg.Polymarket.UserAgent, "POLYDATA_POLYMARKET_USER_AGENT")

	// Extract
	setStr(&cfg.Extract.Interval, "POLYDATA_EXTRACT_INTERVAL")
	setInt(&cfg.Extract.DaysBack, "POLYDATA_EXTRACT_DAYS_BACK")
	setDuration(&cfg.Extract.MarketDelay, "POLYDATA_EXTRACT_MARKET_DELAY")
	setInt(&cfg.Extract.MaxNarrowings, "POLYDATA_EXTRACT_MAX_NARROWINGS")
	setBool(&cfg.Extract.ReleaseMemory, "POLYDATA_EXTRACT_RELEASE_MEMORY")

	// Cache
	setBool(&cfg.Cache.Enabled, "POLYDATA_CACHE_ENABLED")
	setDuration(&cfg.Cache.TTL, "POLYDATA_CACHE_TTL")
	setStr(&cfg.Cache.Redis.Addr, "POLYDATA_REDIS_ADDR")
	setStr(&cfg.Cache.Redis.Password, "POLYDATA_REDIS_PASSWORD")
	setInt(&cfg.Cache.Redis.DB, "POLYDATA_REDIS_DB")
	setInt(&cfg.Cache.Redis.PoolSize, "POLYDATA_REDIS_POOL_SIZE")
	setInt(&cfg.Cache.Redis.MaxRetries, "POLYDATA_REDIS_MAX_RETRIES")
	setBool(&cfg.Cache.Redis.TLSEnabled, "POLYDATA_REDIS_TLS_ENABLED")

	// Archive
	setBool(&cfg.Archive.Enabled, "POLYDATA_ARCHIVE_ENABLED")
	setBool(&cfg.Archive.RunMigrations, "POLYDATA_ARCHIVE_RUN_MIGRATIONS")
	setStr(&cfg.Archive.Postgres.DSN, "POLYDATA_POSTGRES_DSN")
	setStr(&cfg.Archive.Postgres.Host, "POLYDATA_POSTGRES_HOST")
	setInt(&cfg.Archive.Postgres.Port, "POLYDATA_POSTGRES_PORT")
	setStr(&cfg.Archive.Postgres.Database, "POLYDATA_POSTGRES_DATABASE")
	setStr(&cfg.Archive.Postgres.User, "POLYDATA_POSTGRES_USER")
	setStr(&cfg.Archive.Postgres.Password, "POLYDATA_POSTGRES_PASSWORD")
	setStr(&cfg.Archive.Postgres.SSLMode, "POLYDATA_POSTGRES_SSLMODE")
	setInt(&cfg.Archive.Postgres.PoolMaxConns, "POLYDATA_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Archive.Postgres.PoolMinConns, "POLYDATA_POSTGRES_POOL_MIN_CONNS")

	// Export
	setStr(&cfg.Export.Dir, "POLYDATA_EXPORT_DIR")
	setStr(&cfg.Export.Format, "POLYDATA_EXPORT_FORMAT")
	setBool(&cfg.Export.Upload, "POLYDATA_EXPORT_UPLOAD")
	setStr(&cfg.Export.Prefix, "POLYDATA_EXPORT_PREFIX")
	setStr(&cfg.Export.S3.Endpoint, "POLYDATA_S3_ENDPOINT")
	setStr(&cfg.Export.S3.Region, "POLYDATA_S3_REGION")
	setStr(&cfg.Export.S3.Bucket, "POLYDATA_S3_BUCKET")
	setStr(&cfg.Export.S3.AccessKey, "POLYDATA_S3_ACCESS_KEY")
	setStr(&cfg.Export.S3.SecretKey, "POLYDATA_S3_SECRET_KEY")
	setBool(&cfg.Export.S3.UseSSL, "POLYDATA_S3_USE_SSL")
	setBool(&cfg.Export.S3.ForcePathStyle, "POLYDATA_S3_FORCE_PATH_STYLE")

	// Top-level
	setStr(&cfg.LogLevel, "POLYDATA_LOG_LEVEL")
	setStr(&cfg.LogFormat, "POLYDATA_LOG_FORMAT")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
