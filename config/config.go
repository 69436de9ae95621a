package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	StoreDriverMongo  = "mongo"
	StoreDriverMemory = "memory"
)

// Config holds every setting of the admin service.
type Config struct {
	App       AppConfig
	Store     StoreConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Firebase  FirebaseConfig
	SMTP      SMTPConfig
	Approval  ApprovalConfig
	Bootstrap BootstrapConfig
}

type AppConfig struct {
	Env              string
	LogLevel         string
	Port             int
	RequestTimeout   time.Duration
	CORSOrigins      []string
	UploadsDir       string
	ReferralLinkBase string
	DashboardTTL     time.Duration
}

type StoreConfig struct {
	Driver       string
	MongoURI     string
	DBName       string
	Transactions bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret string
	JWTTTL    time.Duration
}

type FirebaseConfig struct {
	CredentialsBase64 string
	CredentialsFile   string
	ProjectID         string
}

type SMTPConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	FromEmail string
}

// Enabled reports whether outgoing email is configured.
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.FromEmail != ""
}

type ApprovalConfig struct {
	ReferralBonus float64
	StrictAmount  bool
	AgentLockTTL  time.Duration
}

// BootstrapConfig optionally creates the first operator account at startup.
type BootstrapConfig struct {
	AdminEmail    string
	AdminPassword string
}

// Load reads .env (when present) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	// App
	cfg.App.Env = getEnvDefault("APP_ENV", "development")
	cfg.App.LogLevel = getEnvDefault("LOG_LEVEL", "info")
	cfg.App.Port = getEnvIntDefault("PORT", 8080)
	cfg.App.RequestTimeout = getEnvDurationDefault("REQUEST_TIMEOUT", 10*time.Second)
	cfg.App.CORSOrigins = splitList(getEnvDefault("CORS_ALLOWED_ORIGINS", "*"))
	cfg.App.UploadsDir = getEnvDefault("UPLOADS_DIR", "uploads")
	cfg.App.ReferralLinkBase = getEnvDefault("REFERRAL_LINK_BASE", "https://leadbridge.app/signup?ref=")
	cfg.App.DashboardTTL = getEnvDurationDefault("DASHBOARD_CACHE_TTL", 30*time.Second)

	// Store
	cfg.Store.Driver = strings.ToLower(getEnvDefault("STORE_DRIVER", StoreDriverMongo))
	cfg.Store.MongoURI = os.Getenv("MONGO_URI")
	if cfg.Store.MongoURI == "" {
		cfg.Store.MongoURI = os.Getenv("MONGODB_URI")
	}
	cfg.Store.DBName = getEnvDefault("DB_NAME", "leadbridge")
	cfg.Store.Transactions = getEnvBoolDefault("MONGO_TRANSACTIONS", true)

	// Redis
	cfg.Redis.Addr = os.Getenv("REDIS_ADDR")
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	cfg.Redis.DB = getEnvIntDefault("REDIS_DB", 0)

	// Auth
	cfg.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	cfg.Auth.JWTTTL = getEnvDurationDefault("JWT_TTL", 12*time.Hour)

	// Firebase
	cfg.Firebase.CredentialsBase64 = os.Getenv("FIREBASE_CREDENTIALS_BASE64")
	cfg.Firebase.CredentialsFile = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	cfg.Firebase.ProjectID = os.Getenv("FIREBASE_PROJECT_ID")

	// SMTP
	cfg.SMTP.Host = os.Getenv("SMTP_HOST")
	cfg.SMTP.Port = getEnvIntDefault("SMTP_PORT", 587)
	cfg.SMTP.User = os.Getenv("SMTP_USER")
	cfg.SMTP.Password = os.Getenv("SMTP_PASS")
	cfg.SMTP.FromEmail = os.Getenv("FROM_EMAIL")

	// Approval engine
	cfg.Approval.ReferralBonus = getEnvFloatDefault("REFERRAL_BONUS", 500)
	cfg.Approval.StrictAmount = getEnvBoolDefault("APPROVAL_STRICT_AMOUNT", true)
	cfg.Approval.AgentLockTTL = getEnvDurationDefault("AGENT_LOCK_TTL", 15*time.Second)

	cfg.Bootstrap.AdminEmail = os.Getenv("BOOTSTRAP_ADMIN_EMAIL")
	cfg.Bootstrap.AdminPassword = os.Getenv("BOOTSTRAP_ADMIN_PASSWORD")

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// GetLogLevel maps LOG_LEVEL onto a zap level, defaulting to info.
func (c AppConfig) GetLogLevel() zap.AtomicLevel {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		return zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		return zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	}
}

func (c AppConfig) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "dev"
}

func getEnvDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getEnvFloatDefault(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getEnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// getEnvDurationDefault accepts Go durations ("15s") or plain seconds ("15").
func getEnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func validateConfig(cfg *Config) error {
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is not set")
	}
	switch cfg.Store.Driver {
	case StoreDriverMongo:
		if cfg.Store.MongoURI == "" {
			return fmt.Errorf("MONGO_URI or MONGODB_URI is required for STORE_DRIVER=mongo")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q (mongo, memory)", cfg.Store.Driver)
	}
	if cfg.Approval.ReferralBonus < 0 {
		return fmt.Errorf("REFERRAL_BONUS must not be negative")
	}
	if cfg.Approval.AgentLockTTL <= 0 {
		return fmt.Errorf("AGENT_LOCK_TTL must be positive")
	}
	return nil
}
