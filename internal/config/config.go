package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultDBDriver     = "sqlite"
	defaultDBConnection = "./data/resquick.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
)

type Config struct {
	// Application
	AppName     string
	AppEnv      string
	AppURL      string
	Port        string
	ContentPath string

	// Database (optional driver switch via ENV, default: sqlite)
	DBDriver     string
	DBConnection string

	// Security
	SessionSecret      string
	SessionExpiry      time.Duration
	OfficialsFile      string
	LoginRatePerMinute int
	TrustProxy         bool // Take client IPs from X-Real-IP / X-Forwarded-For

	// Evidence storage ("local" or "s3")
	StorageDriver string
	StorageRoot   string // Local driver: directory the upload prefix lives in
	UploadPrefix  string // Key prefix for stored evidence, also the public /uploads path
	MaxUploadSize int64

	// S3-compatible storage (STORAGE_DRIVER=s3)
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3Endpoint  string

	// AI assessment
	GeminiAPIKey     string
	GeminiModel      string
	CompensationBase float64

	// Observability (optional)
	SentryDSN string
}

func Load() *Config {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := &Config{
		// Application
		AppName:     envString("APP_NAME", "ResQuick"),
		AppEnv:      envRequired("APP_ENV"), // Required: 'development' or 'production'
		AppURL:      envString("APP_URL", "http://localhost:8090"),
		Port:        envString("PORT", "8090"),
		ContentPath: envString("CONTENT_PATH", "content"),

		// Database
		DBDriver:     envString("DB_DRIVER", defaultDBDriver),
		DBConnection: envString("DB_CONNECTION", defaultDBConnection),

		// Security
		SessionSecret:      envRequired("SESSION_SECRET"),
		SessionExpiry:      envDuration("SESSION_EXPIRY", 24*time.Hour),
		OfficialsFile:      envString("OFFICIALS_FILE", ""),
		LoginRatePerMinute: envInt("LOGIN_RATE_PER_MINUTE", 10),
		TrustProxy:         envBool("TRUST_PROXY", false),

		// Evidence storage
		StorageDriver: envString("STORAGE_DRIVER", "local"),
		StorageRoot:   envString("STORAGE_ROOT", "."),
		UploadPrefix:  envString("UPLOAD_PREFIX", "uploads"),
		MaxUploadSize: int64(envInt("MAX_UPLOAD_SIZE", 32<<20)), // 32MB per submission

		S3Region:    envString("S3_REGION", ""),
		S3Bucket:    envString("S3_BUCKET", ""),
		S3AccessKey: envString("S3_ACCESS_KEY", ""),
		S3SecretKey: envString("S3_SECRET_KEY", ""),
		S3Endpoint:  envString("S3_ENDPOINT", ""), // Optional: for non-AWS providers

		// AI assessment (GEMINI_API_KEY optional in development, required in production)
		GeminiAPIKey:     envString("GEMINI_API_KEY", ""),
		GeminiModel:      envString("GEMINI_MODEL", "gemini-1.5-flash"),
		CompensationBase: envFloat("COMPENSATION_BASE", 150000),

		// Observability
		SentryDSN: envString("SENTRY_DSN", ""),
	}

	if cfg.StorageDriver == "s3" {
		validateS3(cfg)
	}

	// Production: validate required services
	if cfg.IsProduction() {
		validateProduction(cfg)
	}

	return cfg
}

// Database returns only the database settings. Admin commands use it so
// they run without the server's required secrets.
func Database() (driver, connection string) {
	_ = godotenv.Load()
	return envString("DB_DRIVER", defaultDBDriver), envString("DB_CONNECTION", defaultDBConnection)
}

// validateProduction ensures the assessment model and official credentials are configured.
// Development runs without them: assessments fail with a clear message and no official can log in.
func validateProduction(cfg *Config) {
	if cfg.GeminiAPIKey == "" {
		slog.Error("production deployment requires GEMINI_API_KEY",
			"hint", "set APP_ENV=development to run without AI assessment")
		os.Exit(1)
	}
	if cfg.OfficialsFile == "" {
		slog.Error("production deployment requires OFFICIALS_FILE",
			"hint", "generate hashes with: go run ./cmd/admin hash-secret")
		os.Exit(1)
	}
}

func validateS3(cfg *Config) {
	if cfg.S3Bucket == "" || cfg.S3Region == "" {
		slog.Error("STORAGE_DRIVER=s3 requires S3_BUCKET and S3_REGION")
		os.Exit(1)
	}
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("config invalid int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return i
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("config invalid bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func envFloat(key string, def float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("config invalid float, using default", "key", key, "value", v, "default", def)
		return def
	}
	return f
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func envRequired(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Error("config required env var missing", "key", key)
	os.Exit(1)
	return ""
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Sanitized returns a copy of the config with only public/safe fields.
// Safe to expose in ctx and templates.
func (c *Config) Sanitized() *Config {
	return &Config{
		AppName:      c.AppName,
		AppEnv:       c.AppEnv,
		AppURL:       c.AppURL,
		Port:         c.Port,
		UploadPrefix: c.UploadPrefix,
		TrustProxy:   c.TrustProxy,
		S3Endpoint:   c.S3Endpoint, // Needed for CSP policies
	}
}
