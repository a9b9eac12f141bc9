package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all service configuration loaded from environment variables.
type Config struct {
	Port            string        `envconfig:"PORT" default:"5000"`
	Env             string        `envconfig:"APP_ENV" default:"dev"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"15s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	AllowedOrigins  []string      `envconfig:"ALLOWED_ORIGINS" default:"*"`

	StoreDriver string `envconfig:"STORE_DRIVER" default:"mongo"`
	MongoURI    string `envconfig:"MONGO_URI"`
	DBUser      string `envconfig:"DB_USER"`
	DBPassword  string `envconfig:"DB_PASSWORD"`
	DBHost      string `envconfig:"DB_HOST"`
	DBName      string `envconfig:"DB_NAME" default:"places"`
	PostgresDSN string `envconfig:"POSTGRES_DSN"`

	JWTKey     string        `envconfig:"JWT_KEY"`
	TokenTTL   time.Duration `envconfig:"TOKEN_TTL" default:"1h"`
	BcryptCost int           `envconfig:"BCRYPT_COST" default:"12"`

	GoogleAPIKey   string        `envconfig:"GOOGLE_API_KEY"`
	GeocodeURL     string        `envconfig:"GEOCODE_URL" default:"https://maps.googleapis.com/maps/api/geocode/json"`
	GeocodeTimeout time.Duration `envconfig:"GEOCODE_TIMEOUT" default:"5s"`

	ImageBackend   string `envconfig:"IMAGE_BACKEND" default:"disk"`
	UploadDir      string `envconfig:"UPLOAD_DIR" default:"uploads/images"`
	MaxUploadBytes int64  `envconfig:"MAX_UPLOAD_BYTES" default:"500000"`
	MinioEndpoint  string `envconfig:"MINIO_ENDPOINT" default:"minio:9000"`
	MinioAccessKey string `envconfig:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `envconfig:"MINIO_SECRET_KEY"`
	MinioBucket    string `envconfig:"MINIO_BUCKET" default:"place-images"`
	MinioRegion    string `envconfig:"MINIO_REGION" default:"us-east-1"`
	MinioUseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`

	RedisAddr        string        `envconfig:"REDIS_ADDR"`
	RedisPassword    string        `envconfig:"REDIS_PASSWORD"`
	LoginMaxAttempts int64         `envconfig:"LOGIN_MAX_ATTEMPTS" default:"10"`
	LoginWindow      time.Duration `envconfig:"LOGIN_WINDOW" default:"15m"`
}

// Load reads a .env file when present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.JWTKey == "" {
		return errors.New("JWT_KEY is required")
	}
	switch c.StoreDriver {
	case "mongo":
		if c.MongoURI == "" && (c.DBUser == "" || c.DBHost == "") {
			return errors.New("MONGO_URI or DB_USER/DB_PASSWORD/DB_HOST is required for the mongo store")
		}
	case "postgres":
		if c.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN is required for the postgres store")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.ImageBackend {
	case "disk":
	case "minio":
		if c.MinioAccessKey == "" || c.MinioSecretKey == "" {
			return errors.New("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required for the minio backend")
		}
	default:
		return fmt.Errorf("unknown IMAGE_BACKEND %q", c.ImageBackend)
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}

// MongoConnectionURI returns MONGO_URI, or builds an Atlas SRV URI from the
// DB_* components.
func (c *Config) MongoConnectionURI() string {
	if c.MongoURI != "" {
		return c.MongoURI
	}
	u := url.URL{
		Scheme:   "mongodb+srv",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     c.DBHost,
		Path:     "/" + c.DBName,
		RawQuery: "retryWrites=true&w=majority",
	}
	return u.String()
}

// IsDevelopment reports whether APP_ENV is dev.
func (c *Config) IsDevelopment() bool {
	return c.Env == "dev"
}
