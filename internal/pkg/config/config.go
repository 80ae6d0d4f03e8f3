// internal/pkg/config/config.go
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingRequiredConfig is returned when a required setting is empty or a placeholder
var ErrMissingRequiredConfig = errors.New("missing required configuration")

// Storage drivers accepted by Catalog.StorageDriver
const (
	StoragePostgres = "postgres"
	StorageMongo    = "mongo"
	StorageMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	Asynq    AsynqConfig
	AWS      AWSConfig
	Catalog  CatalogConfig
	Layout   LayoutConfig
	Security SecurityConfig
	Server   ServerConfig
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Version     string
	LogLevel    string
	LogFormat   string // json, text
	Debug       bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxConnections     int32
	MinConnections     int32
	MaxConnLifetime    time.Duration
	MaxConnIdleTime    time.Duration
	HealthCheckPeriod  time.Duration
	ConnectTimeout     time.Duration
	EnableQueryLogging bool
	AutoMigrate        bool
}

// MongoConfig holds MongoDB configuration
type MongoConfig struct {
	URI            string
	Database       string
	Collection     string
	ConnectTimeout time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host         string
	Port         string
	Password     string
	DB           int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
	PoolTimeout  time.Duration
	TTL          time.Duration
}

// AsynqConfig holds Asynq configuration
type AsynqConfig struct {
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	Concurrency     int
	Queues          map[string]int // queue name -> priority
	StrictPriority  bool
	RetryMax        int
	ShutdownTimeout time.Duration
}

// AWSConfig holds AWS configuration
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	S3Bucket        string
	S3Endpoint      string // For MinIO in development
	UsePathStyle    bool   // For MinIO compatibility
	SecretName      string // Secrets Manager entry overriding credentials, empty to skip
	PresignExpiry   time.Duration
}

// CatalogConfig holds catalog service configuration
type CatalogConfig struct {
	StorageDriver     string // postgres, mongo, memory
	CacheEnabled      bool
	CacheTTL          time.Duration
	MaxPageSize       int
	ImportMaxSizeMB   int
	ProcessingTimeout time.Duration
	TempDir           string
	CleanupInterval   time.Duration
}

// LayoutConfig holds floor plan and viewport configuration
type LayoutConfig struct {
	FloorPlanFile string // empty uses the embedded plan
	ZoomStep      float64
	MinScale      float64
	MaxScale      float64
}

// SecurityConfig holds security configuration
type SecurityConfig struct {
	RateLimitRequests int
	RateLimitDuration time.Duration
	AllowedOrigins    []string
	TrustedProxies    []string
	SecureHeaders     bool
	RequestIDHeader   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string `required:"true"`
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	MaxHeaderBytes  int
	GracefulTimeout time.Duration
	TLSEnabled      bool
	TLSCertFile     string
	TLSKeyFile      string
}

// Load loads configuration from environment variables
func Load(logger *slog.Logger) (*Config, error) {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// Load .env file in development
	if env == "development" || env == "local" {
		if err := godotenv.Load(); err != nil {
			logger.Warn("no .env file found, using environment variables",
				slog.String("error", err.Error()))
		} else {
			logger.Info(".env file loaded successfully")
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	r := newReader(v)
	setDefaults(r, env)

	cfg := &Config{
		App: AppConfig{
			Name:        r.str("APP_NAME"),
			Environment: env,
			Version:     r.str("APP_VERSION"),
			LogLevel:    r.str("LOG_LEVEL"),
			LogFormat:   r.str("LOG_FORMAT"),
			Debug:       r.boolean("APP_DEBUG"),
		},
		Database: DatabaseConfig{
			Host:               r.str("DB_HOST"),
			Port:               r.str("DB_PORT"),
			User:               r.str("DB_USER"),
			Password:           r.str("DB_PASSWORD"),
			Name:               r.str("DB_NAME"),
			SSLMode:            r.str("DB_SSL_MODE"),
			MaxConnections:     int32(r.integer("DB_MAX_CONNECTIONS")),
			MinConnections:     int32(r.integer("DB_MIN_CONNECTIONS")),
			MaxConnLifetime:    r.duration("DB_CONNECTION_LIFETIME"),
			MaxConnIdleTime:    r.duration("DB_IDLE_TIME"),
			HealthCheckPeriod:  r.duration("DB_HEALTH_CHECK_PERIOD"),
			ConnectTimeout:     r.duration("DB_CONNECT_TIMEOUT"),
			EnableQueryLogging: r.boolean("DB_QUERY_LOGGING"),
			AutoMigrate:        r.boolean("DB_AUTO_MIGRATE"),
		},
		Mongo: MongoConfig{
			URI:            r.str("MONGO_URI"),
			Database:       r.str("MONGO_DATABASE"),
			Collection:     r.str("MONGO_COLLECTION"),
			ConnectTimeout: r.duration("MONGO_CONNECT_TIMEOUT"),
		},
		Redis: RedisConfig{
			Host:         r.str("REDIS_HOST"),
			Port:         r.str("REDIS_PORT"),
			Password:     r.str("REDIS_PASSWORD"),
			DB:           r.integer("REDIS_DB"),
			MaxRetries:   r.integer("REDIS_MAX_RETRIES"),
			DialTimeout:  r.duration("REDIS_DIAL_TIMEOUT"),
			ReadTimeout:  r.duration("REDIS_READ_TIMEOUT"),
			WriteTimeout: r.duration("REDIS_WRITE_TIMEOUT"),
			PoolSize:     r.integer("REDIS_POOL_SIZE"),
			MinIdleConns: r.integer("REDIS_MIN_IDLE_CONNS"),
			PoolTimeout:  r.duration("REDIS_POOL_TIMEOUT"),
			TTL:          r.duration("REDIS_TTL"),
		},
		Asynq: AsynqConfig{
			RedisAddr:       fmt.Sprintf("%s:%s", r.str("REDIS_HOST"), r.str("REDIS_PORT")),
			RedisPassword:   r.str("REDIS_PASSWORD"),
			RedisDB:         r.integer("ASYNQ_REDIS_DB"),
			Concurrency:     r.integer("ASYNQ_CONCURRENCY"),
			Queues:          parseQueues(r.str("ASYNQ_QUEUES")),
			StrictPriority:  r.boolean("ASYNQ_STRICT_PRIORITY"),
			RetryMax:        r.integer("ASYNQ_RETRY_MAX"),
			ShutdownTimeout: r.duration("ASYNQ_SHUTDOWN_TIMEOUT"),
		},
		AWS: AWSConfig{
			Region:          r.str("AWS_REGION"),
			AccessKeyID:     r.str("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: r.str("AWS_SECRET_ACCESS_KEY"),
			S3Bucket:        r.str("AWS_S3_BUCKET"),
			S3Endpoint:      r.str("AWS_S3_ENDPOINT"),
			UsePathStyle:    r.boolean("AWS_S3_PATH_STYLE"),
			SecretName:      r.str("AWS_SECRET_NAME"),
			PresignExpiry:   r.duration("AWS_PRESIGN_EXPIRY"),
		},
		Catalog: CatalogConfig{
			StorageDriver:     strings.ToLower(r.str("STORAGE_DRIVER")),
			CacheEnabled:      r.boolean("CATALOG_CACHE_ENABLED"),
			CacheTTL:          r.duration("CATALOG_CACHE_TTL"),
			MaxPageSize:       r.integer("CATALOG_MAX_PAGE_SIZE"),
			ImportMaxSizeMB:   r.integer("EXCEL_MAX_SIZE_MB"),
			ProcessingTimeout: r.duration("PROCESSING_TIMEOUT"),
			TempDir:           r.str("TEMP_DIR"),
			CleanupInterval:   r.duration("CLEANUP_INTERVAL"),
		},
		Layout: LayoutConfig{
			FloorPlanFile: r.str("LAYOUT_FLOOR_PLAN_FILE"),
			ZoomStep:      r.float("LAYOUT_ZOOM_STEP"),
			MinScale:      r.float("LAYOUT_MIN_SCALE"),
			MaxScale:      r.float("LAYOUT_MAX_SCALE"),
		},
		Security: SecurityConfig{
			RateLimitRequests: r.integer("RATE_LIMIT_REQUESTS"),
			RateLimitDuration: r.duration("RATE_LIMIT_DURATION"),
			AllowedOrigins:    r.slice("ALLOWED_ORIGINS"),
			TrustedProxies:    r.slice("TRUSTED_PROXIES"),
			SecureHeaders:     r.boolean("SECURE_HEADERS"),
			RequestIDHeader:   r.str("REQUEST_ID_HEADER"),
		},
		Server: ServerConfig{
			Host:            r.str("SERVER_HOST"),
			Port:            r.str("SERVER_PORT"),
			ReadTimeout:     r.duration("SERVER_READ_TIMEOUT"),
			WriteTimeout:    r.duration("SERVER_WRITE_TIMEOUT"),
			IdleTimeout:     r.duration("SERVER_IDLE_TIMEOUT"),
			MaxHeaderBytes:  r.integer("SERVER_MAX_HEADER_BYTES"),
			GracefulTimeout: r.duration("SERVER_GRACEFUL_TIMEOUT"),
			TLSEnabled:      r.boolean("TLS_ENABLED"),
			TLSCertFile:     r.str("TLS_CERT_FILE"),
			TLSKeyFile:      r.str("TLS_KEY_FILE"),
		},
	}

	if cfg.AWS.SecretName != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		sm, err := NewAWSSecretsManager(ctx, cfg.AWS.Region, cfg.AWS.SecretName, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create secrets manager: %w", err)
		}
		if err := cfg.ApplySecrets(ctx, sm); err != nil {
			return nil, fmt.Errorf("failed to apply secrets: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := (&BasicValidator{}).Validate(c); err != nil {
		return err
	}
	if c.IsProduction() {
		if err := (&ProductionValidator{}).Validate(c); err != nil {
			return err
		}
	}
	return (&SecurityValidator{}).Validate(c)
}

// GetRedisAddr returns the host:port of the cache server
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// GetServerAddress returns the formatted server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development" || c.App.Environment == "local"
}

func setDefaults(r *reader, env string) {
	dev := env == "development" || env == "local"

	r.setDefault("APP_NAME", "warehouse-crm")
	r.setDefault("APP_VERSION", "dev")
	r.setDefault("LOG_LEVEL", "debug")
	r.setDefault("LOG_FORMAT", "json")
	r.setDefault("APP_DEBUG", dev)

	r.setDefault("DB_HOST", "localhost")
	r.setDefault("DB_PORT", "5432")
	r.setDefault("DB_USER", "warehouse")
	r.setDefault("DB_PASSWORD", defaultSecret(env, "warehouse_dev"))
	r.setDefault("DB_NAME", "warehouse_crm")
	r.setDefault("DB_SSL_MODE", "disable")
	r.setDefault("DB_MAX_CONNECTIONS", 25)
	r.setDefault("DB_MIN_CONNECTIONS", 5)
	r.setDefault("DB_CONNECTION_LIFETIME", time.Hour)
	r.setDefault("DB_IDLE_TIME", 30*time.Minute)
	r.setDefault("DB_HEALTH_CHECK_PERIOD", time.Minute)
	r.setDefault("DB_CONNECT_TIMEOUT", 10*time.Second)
	r.setDefault("DB_QUERY_LOGGING", dev)
	r.setDefault("DB_AUTO_MIGRATE", dev)

	r.setDefault("MONGO_URI", "mongodb://localhost:27017")
	r.setDefault("MONGO_DATABASE", "warehouse_crm")
	r.setDefault("MONGO_COLLECTION", "catalog_records")
	r.setDefault("MONGO_CONNECT_TIMEOUT", 10*time.Second)

	r.setDefault("REDIS_HOST", "localhost")
	r.setDefault("REDIS_PORT", "6379")
	r.setDefault("REDIS_PASSWORD", "")
	r.setDefault("REDIS_DB", 0)
	r.setDefault("REDIS_MAX_RETRIES", 3)
	r.setDefault("REDIS_DIAL_TIMEOUT", 5*time.Second)
	r.setDefault("REDIS_READ_TIMEOUT", 3*time.Second)
	r.setDefault("REDIS_WRITE_TIMEOUT", 3*time.Second)
	r.setDefault("REDIS_POOL_SIZE", 10)
	r.setDefault("REDIS_MIN_IDLE_CONNS", 2)
	r.setDefault("REDIS_POOL_TIMEOUT", 4*time.Second)
	r.setDefault("REDIS_TTL", time.Hour)

	r.setDefault("ASYNQ_REDIS_DB", 0)
	r.setDefault("ASYNQ_CONCURRENCY", 10)
	r.setDefault("ASYNQ_QUEUES", "critical:6,default:3,low:1")
	r.setDefault("ASYNQ_STRICT_PRIORITY", false)
	r.setDefault("ASYNQ_RETRY_MAX", 3)
	r.setDefault("ASYNQ_SHUTDOWN_TIMEOUT", 30*time.Second)

	r.setDefault("AWS_REGION", "us-east-1")
	r.setDefault("AWS_ACCESS_KEY_ID", "minioadmin")
	r.setDefault("AWS_SECRET_ACCESS_KEY", "minioadmin123")
	r.setDefault("AWS_S3_BUCKET", "warehouse-reports")
	r.setDefault("AWS_S3_ENDPOINT", "")
	r.setDefault("AWS_S3_PATH_STYLE", dev)
	r.setDefault("AWS_SECRET_NAME", "")
	r.setDefault("AWS_PRESIGN_EXPIRY", 24*time.Hour)

	r.setDefault("STORAGE_DRIVER", StoragePostgres)
	r.setDefault("CATALOG_CACHE_ENABLED", true)
	r.setDefault("CATALOG_CACHE_TTL", 5*time.Minute)
	r.setDefault("CATALOG_MAX_PAGE_SIZE", 100)
	r.setDefault("EXCEL_MAX_SIZE_MB", 100)
	r.setDefault("PROCESSING_TIMEOUT", 5*time.Minute)
	r.setDefault("TEMP_DIR", os.TempDir())
	r.setDefault("CLEANUP_INTERVAL", time.Hour)

	r.setDefault("LAYOUT_FLOOR_PLAN_FILE", "")
	r.setDefault("LAYOUT_ZOOM_STEP", 0.1)
	r.setDefault("LAYOUT_MIN_SCALE", 0.1)
	r.setDefault("LAYOUT_MAX_SCALE", 10.0)

	r.setDefault("RATE_LIMIT_REQUESTS", 100)
	r.setDefault("RATE_LIMIT_DURATION", time.Minute)
	r.setDefault("ALLOWED_ORIGINS", "*")
	r.setDefault("TRUSTED_PROXIES", "")
	r.setDefault("SECURE_HEADERS", env == "production")
	r.setDefault("REQUEST_ID_HEADER", "X-Request-ID")

	r.setDefault("SERVER_HOST", "0.0.0.0")
	r.setDefault("SERVER_PORT", "8080")
	r.setDefault("SERVER_READ_TIMEOUT", 15*time.Second)
	r.setDefault("SERVER_WRITE_TIMEOUT", 15*time.Second)
	r.setDefault("SERVER_IDLE_TIMEOUT", 60*time.Second)
	r.setDefault("SERVER_MAX_HEADER_BYTES", 1<<20) // 1 MB
	r.setDefault("SERVER_GRACEFUL_TIMEOUT", 30*time.Second)
	r.setDefault("TLS_ENABLED", false)
	r.setDefault("TLS_CERT_FILE", "")
	r.setDefault("TLS_KEY_FILE", "")
}

// reader reads typed values from viper. A malformed value falls back to the registered default.
type reader struct {
	v        *viper.Viper
	defaults map[string]interface{}
}

func newReader(v *viper.Viper) *reader {
	return &reader{v: v, defaults: make(map[string]interface{})}
}

func (r *reader) setDefault(key string, value interface{}) {
	r.v.SetDefault(key, value)
	r.defaults[key] = value
}

func (r *reader) str(key string) string {
	return r.v.GetString(key)
}

func (r *reader) boolean(key string) bool {
	if b, err := strconv.ParseBool(r.v.GetString(key)); err == nil {
		return b
	}
	b, _ := r.defaults[key].(bool)
	return b
}

func (r *reader) integer(key string) int {
	if i, err := strconv.Atoi(r.v.GetString(key)); err == nil {
		return i
	}
	i, _ := r.defaults[key].(int)
	return i
}

func (r *reader) float(key string) float64 {
	if f, err := strconv.ParseFloat(r.v.GetString(key), 64); err == nil {
		return f
	}
	f, _ := r.defaults[key].(float64)
	return f
}

func (r *reader) duration(key string) time.Duration {
	if d, err := time.ParseDuration(r.v.GetString(key)); err == nil {
		return d
	}
	d, _ := r.defaults[key].(time.Duration)
	return d
}

func (r *reader) slice(key string) []string {
	raw := strings.TrimSpace(r.v.GetString(key))
	if raw == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseQueues(queuesStr string) map[string]int {
	queues := make(map[string]int)
	pairs := strings.Split(queuesStr, ",")
	for _, pair := range pairs {
		parts := strings.Split(pair, ":")
		if len(parts) == 2 {
			name := strings.TrimSpace(parts[0])
			priority, err := strconv.Atoi(strings.TrimSpace(parts[1]))
			if err == nil {
				queues[name] = priority
			}
		}
	}
	if len(queues) == 0 {
		queues["default"] = 1
	}
	return queues
}

func defaultSecret(env, dev string) string {
	if env == "production" {
		return "" // Force error in production if not set
	}
	return dev
}
