package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultJWTSecret = "change-me-in-production"

// Config holds all service configuration loaded from environment variables.
type Config struct {
	Port        string
	Environment string
	LogLevel    string

	DBDriver    string
	SQLitePath  string
	PostgresDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MongoURI string
	MongoDB  string

	ImageBackend        string
	MinioEndpoint       string
	MinioAccessKey      string
	MinioSecretKey      string
	MinioBucket         string
	MinioUseSSL         bool
	CloudinaryName      string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryFolder    string
	MaxUploadMB         int64

	JWTSecret string
	TokenTTL  time.Duration

	AIBaseURL string
	AIAPIKey  string
	AIModel   string
	AITimeout time.Duration

	AllowedOrigins []string
	// TrustProxy makes client addresses come from X-Forwarded-For / X-Real-IP.
	// Enable only behind a proxy that overwrites those headers.
	TrustProxy     bool
}

func Load() *Config {
	return &Config{
		Port:        getenv("PORT", "8080"),
		Environment: strings.ToLower(strings.TrimSpace(getenv("ENV", "development"))),
		LogLevel:    getenv("LOG_LEVEL", "info"),

		DBDriver:    strings.ToLower(getenv("DB_DRIVER", "sqlite")),
		SQLitePath:  getenv("SQLITE_PATH", "nutrilog.db"),
		PostgresDSN: getenv("POSTGRES_DSN", ""),

		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),

		MongoURI: getenv("MONGO_URI", ""),
		MongoDB:  getenv("MONGO_DB", "nutrilog"),

		ImageBackend:        strings.ToLower(getenv("IMAGE_BACKEND", "minio")),
		MinioEndpoint:       getenv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey:      getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:      getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:         getenv("MINIO_BUCKET", "post-images"),
		MinioUseSSL:         getenv("MINIO_USE_SSL", "false") == "true",
		CloudinaryName:      getenv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getenv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getenv("CLOUDINARY_API_SECRET", ""),
		CloudinaryFolder:    getenv("CLOUDINARY_FOLDER", "nutrilog/posts"),
		MaxUploadMB:         int64(getenvInt("MAX_UPLOAD_MB", 5)),

		JWTSecret: getenv("JWT_SECRET", defaultJWTSecret),
		TokenTTL:  getenvDuration("TOKEN_TTL", 7*24*time.Hour),

		AIBaseURL: getenv("AI_BASE_URL", "https://api.openai.com/v1"),
		AIAPIKey:  getenv("AI_API_KEY", ""),
		AIModel:   getenv("AI_MODEL", "gpt-4o-mini"),
		AITimeout: getenvDuration("AI_TIMEOUT", 30*time.Second),

		AllowedOrigins: parseOrigins(getenv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")),
		TrustProxy:     getenv("TRUST_PROXY", "false") == "true",
	}
}

// IsProduction reports whether ENV is "production".
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.DBDriver {
	case "sqlite":
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite driver"))
		}
	case "postgres":
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("POSTGRES_DSN is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown DB_DRIVER %q (want sqlite or postgres)", c.DBDriver))
	}
	switch c.ImageBackend {
	case "minio", "none":
	case "cloudinary":
		if c.CloudinaryName == "" || c.CloudinaryAPIKey == "" || c.CloudinaryAPISecret == "" {
			errs = append(errs, errors.New("CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET are required for the cloudinary backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown IMAGE_BACKEND %q (want minio, cloudinary or none)", c.ImageBackend))
	}
	if c.IsProduction() && c.JWTSecret == defaultJWTSecret {
		errs = append(errs, errors.New("JWT_SECRET must be set in production"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.MaxUploadMB <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_MB must be positive"))
	}
	return errors.Join(errs...)
}

func parseOrigins(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
