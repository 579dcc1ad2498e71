package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env         string // application environment (dev, test, prod)
	Port        string // HTTP port to listen on
	DBUser      string
	DBPass      string // empty allowed
	DBHost      string
	DBPort      string
	DBName      string
	DBMigrate   bool          // apply embedded migrations on startup
	JWTSecret   string        // secret used to sign session tokens
	TokenTTL    time.Duration // session token lifetime
	BcryptCost  int           // bcrypt cost for password hashing
	LogLevel    string
	LogFormat   string // json or text
	CORSOrigins []string

	Admin     AdminConfig
	Audit     AuditConfig
	Storage   StorageConfig
	RateLimit RateLimitConfig
	Redis     RedisConfig
}

// AdminConfig seeds the first Administrador on startup.  It is ignored
// unless both Email and Password are set.
type AdminConfig struct {
	Email    string
	Password string
	Name     string
}

// Enabled reports whether an administrator should be seeded.
func (a AdminConfig) Enabled() bool { return a.Email != "" && a.Password != "" }

// AuditConfig configures the AMQP fan-out of audit entries.  An empty URL
// disables publishing; entries are still written to the database.
type AuditConfig struct {
	AMQPURL string
	Queue   string
}

func loadAuditConfig() AuditConfig {
	return AuditConfig{
		AMQPURL: firstEnv("AMQP_URL", "RABBITMQ_URL"),
		Queue:   envStr("AUDIT_QUEUE", "audit.events"),
	}
}

// StorageConfig configures the S3 bucket used for justification evidence.
// An empty Bucket disables evidence uploads.
type StorageConfig struct {
	Endpoint   string // custom endpoint for MinIO or LocalStack; empty uses AWS
	Region     string
	Bucket     string
	AccessKey  string
	SecretKey  string
	PresignTTL time.Duration
}

// Enabled reports whether an evidence bucket is configured.
func (s StorageConfig) Enabled() bool { return s.Bucket != "" }

// Load reads configuration from the environment.  Every missing or invalid
// required variable is reported in the returned error, not just the first.
func Load() (Config, error) {
	var errs []error
	must := func(key string) string {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			errs = append(errs, fmt.Errorf("missing required env var: %s", key))
		}
		return v
	}
	optInt := func(key string, def int) int {
		s := os.Getenv(key)
		if s == "" {
			return def
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid int for %s: %q", key, s))
			return def
		}
		return n
	}

	cfg := Config{
		Env:         envStr("APP_ENV", "dev"),
		Port:        must("APP_PORT"),
		DBUser:      must("DB_USER"),
		DBPass:      os.Getenv("DB_PASS"),
		DBHost:      must("DB_HOST"),
		DBPort:      must("DB_PORT"),
		DBName:      must("DB_NAME"),
		DBMigrate:   envBool("DB_MIGRATE", true),
		JWTSecret:   must("JWT_SECRET"),
		TokenTTL:    time.Duration(optInt("TOKEN_TTL_SECONDS", 86400)) * time.Second,
		BcryptCost:  optInt("BCRYPT_COST", 10),
		LogLevel:    envStr("LOG_LEVEL", "info"),
		LogFormat:   envStr("LOG_FORMAT", "json"),
		CORSOrigins: splitList(envStr("CORS_ORIGINS", "*")),
		Admin: AdminConfig{
			Email:    os.Getenv("ADMIN_EMAIL"),
			Password: os.Getenv("ADMIN_PASSWORD"),
			Name:     envStr("ADMIN_NAME", "Administrador"),
		},
		Audit: loadAuditConfig(),
		Storage: StorageConfig{
			Endpoint:   os.Getenv("S3_ENDPOINT"),
			Region:     envStr("S3_REGION", "us-east-1"),
			Bucket:     os.Getenv("S3_BUCKET"),
			AccessKey:  os.Getenv("S3_ACCESS_KEY"),
			SecretKey:  os.Getenv("S3_SECRET_KEY"),
			PresignTTL: envDur("S3_PRESIGN_TTL", 15*time.Minute),
		},
		RateLimit: LoadRateLimitConfig(),
		Redis:     LoadRedisConfig(),
	}

	if cfg.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL_SECONDS must be positive"))
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST out of range: %d", cfg.BcryptCost))
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
