package config

import (
	"os"
	"strconv"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// KMSConfig selects and configures the key-management provider.
// Provider is "aws" (AWS KMS or a compatible endpoint such as LocalStack) or "local".
type KMSConfig struct {
	Provider  string
	KeyID     string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	// LocalMasterKey is a hex encoded 32 byte key used only by the local provider.
	LocalMasterKey string
	Timeout        time.Duration
}

// CatalogConfig selects the metadata catalog backend ("postgres" or "memory").
type CatalogConfig struct {
	Backend string
}

// StorageConfig selects the object store backend ("minio" or "memory").
type StorageConfig struct {
	Backend string
}

// AuthConfig names the headers through which the upstream gateway passes the
// already authenticated caller.
type AuthConfig struct {
	UserHeader  string
	RolesHeader string
	AdminRole   string
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level    string
	Timezone string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost  string
	Port     string
	Database DatabaseConfig
	MinIO    MinIOConfig
	KMS      KMSConfig
	Catalog  CatalogConfig
	Storage  StorageConfig
	Auth     AuthConfig
	Log      LogConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost: getEnv("APP_HOST", "localhost:8080"),
		Port:    getEnv("PORT", "8080"),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "documents"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		KMS: KMSConfig{
			Provider:       getEnv("KMS_PROVIDER", "aws"),
			KeyID:          getEnv("KMS_KEY_ID", ""),
			Region:         getEnv("KMS_REGION", "us-east-1"),
			Endpoint:       getEnv("KMS_ENDPOINT", ""),
			AccessKey:      getEnv("KMS_ACCESS_KEY", ""),
			SecretKey:      getEnv("KMS_SECRET_KEY", ""),
			LocalMasterKey: getEnv("KMS_LOCAL_MASTER_KEY", ""),
			Timeout:        getEnvDuration("KMS_TIMEOUT", 5*time.Second),
		},
		Catalog: CatalogConfig{
			Backend: getEnv("CATALOG_BACKEND", "postgres"),
		},
		Storage: StorageConfig{
			Backend: getEnv("STORAGE_BACKEND", "minio"),
		},
		Auth: AuthConfig{
			UserHeader:  getEnv("AUTH_USER_HEADER", "X-User-ID"),
			RolesHeader: getEnv("AUTH_ROLES_HEADER", "X-User-Roles"),
			AdminRole:   getEnv("AUTH_ADMIN_ROLE", "ADMIN"),
		},
		Log: LogConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Timezone: getEnv("APP_TIMEZONE", "UTC"),
		},
	}
}

// Location resolves the configured log timezone, falling back to UTC.
func (c LogConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil && d > 0 {
			return d
		}
	}
	return def
}
