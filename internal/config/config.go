package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"cafe-pos-service/internal/logx"
)

// Config holds the application's configuration values.
// Tags like `envconfig:"APP_PORT"` specify the environment variable name.
// `default:""` provides a default value if the env var is not set.
// `required:"true"` makes an environment variable mandatory.
type Config struct {
	AppEnv     string `envconfig:"APP_ENV" default:"development"` // development, staging, production
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`
	HttpServer ServerConfig
	GrpcServer GrpcServerConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Auth       AuthConfig
	Firebase   FirebaseConfig
	Cloudinary CloudinaryConfig
	Gemini     GeminiConfig
	POS        POSConfig
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// ServerConfig holds HTTP server-specific configurations.
type ServerConfig struct {
	Port         string        `envconfig:"HTTP_SERVER_PORT" default:"8080"`
	TimeoutRead  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_READ" default:"15s"`
	TimeoutWrite time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_WRITE" default:"15s"`
	TimeoutIdle  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_IDLE" default:"60s"`
	MaxUploadMB  int64         `envconfig:"HTTP_SERVER_MAX_UPLOAD_MB" default:"10"`
}

// GrpcServerConfig holds gRPC server-specific configurations.
type GrpcServerConfig struct {
	Port string `envconfig:"GRPC_SERVER_PORT" default:"9090"`
}

// PostgresConfig holds PostgreSQL database connection details.
type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" required:"true"`
	Port     string `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" required:"true"`
	Password string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	DBName   string `envconfig:"POSTGRES_DBNAME" required:"true"`
	SSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
}

// DSN constructs the Data Source Name string for connecting to PostgreSQL.
func (pc *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		pc.Host, pc.Port, pc.User, pc.Password, pc.DBName, pc.SSLMode)
}

// RedisConfig points at the Redis instance that keeps admin verification
// grants and revoked session tokens.
type RedisConfig struct {
	URL          string        `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	Prefix       string        `envconfig:"REDIS_PREFIX" default:"cafepos:"`
	ReadTimeout  time.Duration `envconfig:"REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"REDIS_WRITE_TIMEOUT" default:"3s"`
	DialTimeout  time.Duration `envconfig:"REDIS_DIAL_TIMEOUT" default:"5s"`
}

// AuthConfig holds session signing and access policy.
type AuthConfig struct {
	JWTSecret         string        `envconfig:"JWT_SECRET" required:"true"`
	Issuer            string        `envconfig:"JWT_ISSUER" default:"cafe-pos-service"`
	SessionTTL        time.Duration `envconfig:"SESSION_TTL" default:"12h"`
	AdminEmails       []string      `envconfig:"ADMIN_EMAILS" default:"admin@cafe.local"`
	AdminGateTTL      time.Duration `envconfig:"ADMIN_GATE_TTL" default:"30m"`
	AuthorizedDomains []string      `envconfig:"AUTHORIZED_DOMAINS"`
	BcryptCost        int           `envconfig:"BCRYPT_COST" default:"12"`
}

// FirebaseConfig enables Google sign-in. Leave ProjectID empty to disable it.
type FirebaseConfig struct {
	ProjectID       string `envconfig:"FIREBASE_PROJECT_ID"`
	CredentialsJSON string `envconfig:"FIREBASE_CREDENTIALS_JSON"`
}

// Enabled reports whether Google sign-in is configured.
func (f FirebaseConfig) Enabled() bool {
	return f.ProjectID != ""
}

// CloudinaryConfig configures unsigned image uploads.
type CloudinaryConfig struct {
	CloudName    string        `envconfig:"CLOUDINARY_CLOUD_NAME"`
	UploadPreset string        `envconfig:"CLOUDINARY_UPLOAD_PRESET" default:"ml_default"`
	APIURL       string        `envconfig:"CLOUDINARY_API_URL" default:"https://api.cloudinary.com"`
	Timeout      time.Duration `envconfig:"CLOUDINARY_TIMEOUT" default:"30s"`
}

// Enabled reports whether image uploads are configured.
func (c CloudinaryConfig) Enabled() bool {
	return c.CloudName != ""
}

// GeminiConfig configures product description suggestions. An empty API key
// disables them.
type GeminiConfig struct {
	APIKey  string        `envconfig:"GEMINI_API_KEY"`
	BaseURL string        `envconfig:"GEMINI_BASE_URL"`
	Model   string        `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
	Timeout time.Duration `envconfig:"GEMINI_TIMEOUT" default:"20s"`
}

// POSConfig holds counter defaults.
type POSConfig struct {
	DefaultCategory   string   `envconfig:"POS_DEFAULT_CATEGORY" default:"Drinks"`
	DefaultCategories []string `envconfig:"POS_SEED_CATEGORIES" default:"Drinks,Bakery,Desserts"`
	QRBaseURL         string   `envconfig:"POS_QR_BASE_URL" default:"https://api.qrserver.com/v1/create-qr-code/"`
}

// Load initializes the configuration from environment variables.
// It should be called once during application startup.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process configuration: %w", err)
	}
	if len(cfg.Auth.JWTSecret) < 16 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 16 characters")
	}
	for i, e := range cfg.Auth.AdminEmails {
		cfg.Auth.AdminEmails[i] = strings.ToLower(strings.TrimSpace(e))
	}
	if cfg.Cloudinary.CloudName == "" {
		logx.Warn().Msg("CLOUDINARY_CLOUD_NAME not set, image uploads are disabled")
	}
	logx.Info().Str("app_env", cfg.AppEnv).Msg("configuration loaded")
	return &cfg, nil
}
