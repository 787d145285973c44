package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Firebase FirebaseConfig
	Storage  StorageConfig
	Auth     AuthConfig
	App      AppConfig
	Worker   WorkerConfig
	Projects ProjectsConfig
}

type ServerConfig struct {
	Port           string
	AllowedOrigins []string
	// RequestsPerSecond and Burst bound each authenticated subject.
	RequestsPerSecond float64
	Burst             int
	ShutdownTimeout   time.Duration
}

type DatabaseConfig struct {
	// URL wins over the individual parts when set.
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	MaxConns int
	MinConns int
	Migrate  bool
}

type RedisConfig struct {
	URL string
}

type FirebaseConfig struct {
	CredentialsPath string
	StorageBucket   string
}

type StorageConfig struct {
	Backend       string // "s3" or "firebase"
	S3Bucket      string
	S3Region      string
	S3Endpoint    string
	PublicBaseURL string
	MaxVideoBytes int64
}

type AuthConfig struct {
	Mode string // "firebase" or "header"
}

type AppConfig struct {
	Environment string
	LogLevel    string
	Version     string
}

type ProjectsConfig struct {
	Store string // "postgres" or "redis"
}

type WorkerConfig struct {
	StatusReportSchedule string
}

const (
	AuthModeFirebase = "firebase"
	AuthModeHeader   = "header"

	StorageS3       = "s3"
	StorageFirebase = "firebase"

	ProjectStorePostgres = "postgres"
	ProjectStoreRedis    = "redis"
)

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:              getEnv("PORT", "8080"),
			AllowedOrigins:    getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			RequestsPerSecond: getEnvAsFloat("RATE_LIMIT_RPS", 10),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 20),
			ShutdownTimeout:   getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DB_DSN", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "cutroom"),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns: getEnvAsInt("DB_MIN_CONNS", 2),
			Migrate:  getEnvAsBool("DB_AUTO_MIGRATE", false),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		Firebase: FirebaseConfig{
			CredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
			StorageBucket:   getEnv("FIREBASE_STORAGE_BUCKET", ""),
		},
		Storage: StorageConfig{
			Backend:       getEnv("STORAGE_BACKEND", StorageS3),
			S3Bucket:      getEnv("S3_BUCKET", ""),
			S3Region:      getEnv("S3_REGION", "us-east-1"),
			S3Endpoint:    getEnv("S3_ENDPOINT", ""),
			PublicBaseURL: getEnv("STORAGE_PUBLIC_BASE_URL", ""),
			MaxVideoBytes: int64(getEnvAsInt("UPLOAD_MAX_VIDEO_MB", 100)) << 20,
		},
		Auth: AuthConfig{
			Mode: getEnv("AUTH_MODE", AuthModeFirebase),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
		Worker: WorkerConfig{
			StatusReportSchedule: getEnv("STATUS_REPORT_SCHEDULE", "@every 5m"),
		},
		Projects: ProjectsConfig{
			Store: getEnv("PROJECT_STORE", ProjectStorePostgres),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Database.URL == "" && c.Database.Host == "" {
		return fmt.Errorf("DB_DSN or DB_HOST is required")
	}

	switch c.Auth.Mode {
	case AuthModeFirebase:
		if c.Firebase.CredentialsPath == "" {
			return fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required when AUTH_MODE=firebase")
		}
	case AuthModeHeader:
		if c.App.Environment == "production" {
			return fmt.Errorf("AUTH_MODE=header is not allowed in production")
		}
	default:
		return fmt.Errorf("unknown AUTH_MODE %q", c.Auth.Mode)
	}

	switch c.Storage.Backend {
	case StorageS3:
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when STORAGE_BACKEND=s3")
		}
	case StorageFirebase:
		if c.Firebase.CredentialsPath == "" {
			return fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required when STORAGE_BACKEND=firebase")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend)
	}

	switch c.Projects.Store {
	case ProjectStorePostgres:
	case ProjectStoreRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("REDIS_URL is required when PROJECT_STORE=redis")
		}
	default:
		return fmt.Errorf("unknown PROJECT_STORE %q", c.Projects.Store)
	}

	if c.Server.RequestsPerSecond <= 0 || c.Server.Burst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}

	return nil
}

// UsesFirebase reports whether any component needs a Firebase app.
func (c *Config) UsesFirebase() bool {
	return c.Auth.Mode == AuthModeFirebase || c.Storage.Backend == StorageFirebase
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Warn().Str("key", key).Int("default", defaultValue).Msg("invalid integer, using default")
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Warn().Str("key", key).Float64("default", defaultValue).Msg("invalid number, using default")
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Warn().Str("key", key).Bool("default", defaultValue).Msg("invalid boolean, using default")
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Warn().Str("key", key).Dur("default", defaultValue).Msg("invalid duration, using default")
		return defaultValue
	}

	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
