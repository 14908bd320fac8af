package config

import (
	"fmt"
	"net/url"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BlacklistPostgres = "postgres"
	BlacklistRedis    = "redis"
)

type Config struct {
	//App
	Env string // dev / staging / prod
	//HTTP
	HTTPAddr         string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	CookieSecure     bool
	InternalSecret   string
	// AllowedOrigins guards the cookie-authenticated refresh endpoint.
	AllowedOrigins []string

	//Tokens
	JWTSecret       string
	JWTIssuer       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// One-time codes
	OTPTTL    time.Duration
	OTPLength int

	// Password hashing
	BcryptCost  int
	HashWorkers int

	// Background reclamation
	SweepInterval   time.Duration
	UnverifiedGrace time.Duration
	SweepLock       bool

	// Infrastructure
	DBAddr            string
	DBDebug           bool
	DBAutoMigrate     bool
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	StoreTimeout      time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	BlacklistBackend string

	RabbitURL      string
	RabbitExchange string
	MailQueueSize  int
	MailWorkers    int

	// Optional bootstrap admin, created once if absent.
	AdminEmail    string
	AdminPassword string
	AdminName     string
}

func (c *Config) IsProd() bool { return c.Env == "prod" }

func Load() (*Config, error) {
	// .env is optional; real deployments inject env vars directly.
	_ = godotenv.Load()

	cfg := &Config{
		Env:            getEnv("APP_ENV", "dev"),
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		JWTIssuer:      getEnv("JWT_ISSUER", "workplace-auth"),
		InternalSecret: os.Getenv("INTERNAL_SECRET"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RabbitURL:      os.Getenv("RABBIT_URL"),
		RabbitExchange: getEnv("RABBIT_EXCHANGE", "workplace.events"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")),
		AdminEmail:     strings.TrimSpace(os.Getenv("ADMIN_EMAIL")),
		AdminPassword:  os.Getenv("ADMIN_PASSWORD"),
		AdminName:      getEnv("ADMIN_NAME", "Administrator"),
	}

	// required values
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("missing required env var: JWT_SECRET")
	}
	cfg.DBAddr = os.Getenv("DB_ADDR")
	if cfg.DBAddr == "" {
		return nil, fmt.Errorf("missing required env var: DB_ADDR")
	}
	if err := validatePostgresDSN(cfg.DBAddr); err != nil {
		return nil, err
	}

	var err error
	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"ACCESS_TOKEN_TTL", 15 * time.Minute, &cfg.AccessTokenTTL},
		{"REFRESH_TOKEN_TTL", 7 * 24 * time.Hour, &cfg.RefreshTokenTTL},
		{"OTP_TTL", 10 * time.Minute, &cfg.OTPTTL},
		{"SWEEP_INTERVAL", time.Hour, &cfg.SweepInterval},
		{"UNVERIFIED_GRACE", 24 * time.Hour, &cfg.UnverifiedGrace},
		{"STORE_TIMEOUT", 3 * time.Second, &cfg.StoreTimeout},
		{"DB_CONN_MAX_LIFETIME", time.Hour, &cfg.DBConnMaxLifetime},
		{"HTTP_READ_TIMEOUT", 10 * time.Second, &cfg.HTTPReadTimeout},
		{"HTTP_WRITE_TIMEOUT", 30 * time.Second, &cfg.HTTPWriteTimeout},
		{"HTTP_IDLE_TIMEOUT", time.Minute, &cfg.HTTPIdleTimeout},
	}
	for _, d := range durations {
		if *d.dst, err = getDuration(d.key, d.def); err != nil {
			return nil, err
		}
		if *d.dst <= 0 {
			return nil, fmt.Errorf("%s must be positive", d.key)
		}
	}
	if cfg.RefreshTokenTTL <= cfg.AccessTokenTTL {
		return nil, fmt.Errorf("REFRESH_TOKEN_TTL must be longer than ACCESS_TOKEN_TTL")
	}

	ints := []struct {
		key string
		def int
		dst *int
	}{
		{"OTP_LENGTH", 6, &cfg.OTPLength},
		{"BCRYPT_COST", 12, &cfg.BcryptCost},
		{"HASH_WORKERS", runtime.NumCPU(), &cfg.HashWorkers},
		{"DB_MAX_OPEN_CONNS", 20, &cfg.DBMaxOpenConns},
		{"DB_MAX_IDLE_CONNS", 10, &cfg.DBMaxIdleConns},
		{"REDIS_DB", 0, &cfg.RedisDB},
		{"MAIL_QUEUE_SIZE", 256, &cfg.MailQueueSize},
		{"MAIL_WORKERS", 2, &cfg.MailWorkers},
	}
	for _, i := range ints {
		if *i.dst, err = getInt(i.key, i.def); err != nil {
			return nil, err
		}
	}
	if cfg.OTPLength < 4 || cfg.OTPLength > 10 {
		return nil, fmt.Errorf("OTP_LENGTH must be between 4 and 10")
	}
	if cfg.HashWorkers < 1 || cfg.MailWorkers < 1 || cfg.MailQueueSize < 1 {
		return nil, fmt.Errorf("HASH_WORKERS, MAIL_WORKERS and MAIL_QUEUE_SIZE must be at least 1")
	}

	if cfg.DBDebug, err = getBool("DB_DEBUG", false); err != nil {
		return nil, err
	}
	if cfg.DBAutoMigrate, err = getBool("DB_AUTO_MIGRATE", true); err != nil {
		return nil, err
	}
	if cfg.CookieSecure, err = getBool("COOKIE_SECURE", cfg.IsProd()); err != nil {
		return nil, err
	}
	if cfg.SweepLock, err = getBool("SWEEP_LOCK", cfg.RedisAddr != ""); err != nil {
		return nil, err
	}
	if cfg.SweepLock && cfg.RedisAddr == "" {
		return nil, fmt.Errorf("SWEEP_LOCK requires REDIS_ADDR")
	}

	cfg.BlacklistBackend = getEnv("BLACKLIST_BACKEND", BlacklistPostgres)
	switch cfg.BlacklistBackend {
	case BlacklistPostgres:
	case BlacklistRedis:
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("BLACKLIST_BACKEND=redis requires REDIS_ADDR")
		}
	default:
		return nil, fmt.Errorf("unknown BLACKLIST_BACKEND %q", cfg.BlacklistBackend)
	}

	if (cfg.AdminEmail == "") != (cfg.AdminPassword == "") {
		return nil, fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}

	if cfg.IsProd() {
		if len(cfg.JWTSecret) < 32 {
			return nil, fmt.Errorf("JWT_SECRET must be at least 32 bytes in prod")
		}
		if cfg.InternalSecret == "" {
			return nil, fmt.Errorf("missing required env var in prod: INTERNAL_SECRET")
		}
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q: %w", key, v, err)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for %s: %q: %w", key, v, err)
	}
	return n, nil
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid bool for %s: %q: %w", key, v, err)
	}
	return b, nil
}

// splitList splits a comma separated value, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// validatePostgresDSN accepts postgres:// or postgresql:// URLs that name a database.
func validatePostgresDSN(dsn string) error {
	u, err := url.Parse(dsn)
	if err != nil {
		return fmt.Errorf("invalid DB_ADDR: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return fmt.Errorf("DB_ADDR must use postgres:// or postgresql://, got %q", u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		return fmt.Errorf("DB_ADDR must name a database")
	}
	return nil
}
