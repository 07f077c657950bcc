package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// envPrefix namespaces every environment override.
const envPrefix = "ARBWATCH_"

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ARBWATCH_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides overwrites Config fields from ARBWATCH_* variables that
// are set and non-empty, so secrets can be injected at deploy time.
func applyEnvOverrides(cfg *Config) {
	// ── Platforms ──
	setStr(&cfg.PlatformA.Kind, "PLATFORM_A_KIND")
	setStr(&cfg.PlatformA.Name, "PLATFORM_A_NAME")
	setStr(&cfg.PlatformA.Currency, "PLATFORM_A_CURRENCY")
	setStr(&cfg.PlatformB.Kind, "PLATFORM_B_KIND")
	setStr(&cfg.PlatformB.Name, "PLATFORM_B_NAME")
	setStr(&cfg.PlatformB.Currency, "PLATFORM_B_CURRENCY")

	// ── Venues ──
	setStr(&cfg.Polymarket.ClobHost, "POLYMARKET_CLOB_HOST")
	setDuration(&cfg.Polymarket.Timeout, "POLYMARKET_TIMEOUT")
	setStr(&cfg.Kalshi.BaseURL, "KALSHI_BASE_URL")
	setStr(&cfg.Kalshi.APIKey, "KALSHI_API_KEY")
	setStr(&cfg.Kalshi.RSAPrivateKeyPath, "KALSHI_RSA_PRIVATE_KEY_PATH")
	setDuration(&cfg.Kalshi.Timeout, "KALSHI_TIMEOUT")
	setStr(&cfg.Mock.FixturesPath, "MOCK_FIXTURES_PATH")
	setStr(&cfg.Mock.Currency, "MOCK_CURRENCY")

	// ── FX ──
	setStr(&cfg.FXRate.BaseURL, "FXRATE_BASE_URL")
	setDuration(&cfg.FXRate.Timeout, "FXRATE_TIMEOUT")
	setDuration(&cfg.FXRate.CacheTTL, "FXRATE_CACHE_TTL")
	setRateMap(&cfg.FXRate.Fallback, "FXRATE_FALLBACK")

	// ── Monitor ──
	setDuration(&cfg.Monitor.Interval, "MONITOR_INTERVAL")
	setInt(&cfg.Monitor.Concurrency, "MONITOR_CONCURRENCY")
	setFloat64(&cfg.Monitor.MinProfitPct, "MONITOR_MIN_PROFIT_PCT")
	setDuration(&cfg.Monitor.LockTTL, "MONITOR_LOCK_TTL")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "REDIS_ADDR")
	setStr(&cfg.Redis.Addr, "REDIS_URL") // compatibility alias
	setStr(&cfg.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.BookTTL, "REDIS_BOOK_TTL")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "S3_ENDPOINT")
	setStr(&cfg.S3.Region, "S3_REGION")
	setStr(&cfg.S3.Bucket, "S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "S3_FORCE_PATH_STYLE")
	setStr(&cfg.S3.Prefix, "S3_PREFIX")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "SERVER_ENABLED")
	setStr(&cfg.Server.Addr, "SERVER_ADDR")
	setStr(&cfg.Server.APIKey, "SERVER_API_KEY")
	setStringSlice(&cfg.Server.CORSOrigins, "SERVER_CORS_ORIGINS")
	setInt(&cfg.Server.RateLimit, "SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "SERVER_RATE_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "MODE")
	setStr(&cfg.LogLevel, "LOG_LEVEL")
	setStr(&cfg.SettlementCurrency, "SETTLEMENT_CURRENCY")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each takes the key without the ARBWATCH_ prefix and
// only mutates the target when the variable is present and parses.
// ---------------------------------------------------------------------------

func lookup(key string) string {
	return os.Getenv(envPrefix + key)
}

func setStr(dst *string, key string) {
	if v := lookup(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := lookup(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := lookup(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := lookup(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := lookup(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := lookup(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}

// setRateMap merges "INR:USD=0.012,EUR:USD=1.08" into dst. Malformed entries
// are skipped.
func setRateMap(dst *map[string]float64, key string) {
	v := lookup(key)
	if v == "" {
		return
	}
	if *dst == nil {
		*dst = make(map[string]float64)
	}
	for _, entry := range strings.Split(v, ",") {
		pair, rate, ok := strings.Cut(strings.TrimSpace(entry), "=")
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(rate), 64)
		if err != nil {
			continue
		}
		(*dst)[strings.ToUpper(strings.TrimSpace(pair))] = f
	}
}
