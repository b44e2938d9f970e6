package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server  ServerConfig
	App     AppConfig
	Log     LogConfig
	Cache   CacheConfig
	Mirror  MirrorConfig
	Proxy   ProxyConfig
	Pricing PricingConfig
	Email   EmailConfig
	Kafka   KafkaConfig
	Cleanup CleanupConfig
	Auth    AuthConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	CORSOrigins     []string      `envconfig:"SERVER_CORS_ORIGINS" default:"*"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"decostore-api"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"APP_DEBUG" default:"false"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"` // json or text
	// File enables rotated file output in addition to stdout.
	File       string `envconfig:"LOG_FILE" default:""`
	MaxSizeMB  int    `envconfig:"LOG_MAX_SIZE_MB" default:"100"`
	MaxBackups int    `envconfig:"LOG_MAX_BACKUPS" default:"5"`
	MaxAgeDays int    `envconfig:"LOG_MAX_AGE_DAYS" default:"30"`
	Compress   bool   `envconfig:"LOG_COMPRESS" default:"true"`
}

// CacheConfig holds cache settings.
type CacheConfig struct {
	Type     string        `envconfig:"CACHE_TYPE" default:"memory"` // memory or redis
	TTL      time.Duration `envconfig:"CACHE_TTL" default:"5m"`
	PriceTTL time.Duration `envconfig:"CACHE_PRICE_TTL" default:"2h"`

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisPrefix   string `envconfig:"REDIS_PREFIX" default:"decostore:"`
}

// MirrorConfig holds the local cart mirror database settings.
type MirrorConfig struct {
	Type string `envconfig:"MIRROR_DB_TYPE" default:"sqlite"` // sqlite, postgres, or mysql
	Path string `envconfig:"MIRROR_DB_PATH" default:"./data/cart_mirror.db"`
	// PostgreSQL / MySQL settings
	Host     string `envconfig:"MIRROR_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"MIRROR_DB_PORT" default:"5432"`
	Name     string `envconfig:"MIRROR_DB_NAME" default:"decostore"`
	User     string `envconfig:"MIRROR_DB_USER" default:"postgres"`
	Password string `envconfig:"MIRROR_DB_PASS" default:""`
	SSLMode  string `envconfig:"MIRROR_DB_SSLMODE" default:"disable"`
	// MongoDB quote log settings
	MongoURI        string `envconfig:"MONGODB_URI" default:""`
	MongoDatabase   string `envconfig:"MONGODB_DATABASE" default:"decostore"`
	MongoCollection string `envconfig:"MONGODB_COLLECTION" default:"quote_logs"`
}

// ProxyConfig holds the external REST proxy settings.
type ProxyConfig struct {
	BaseURL string        `envconfig:"PROXY_BASE_URL" default:"http://localhost:3000"`
	APIKey  string        `envconfig:"PROXY_API_KEY" default:""`
	Timeout time.Duration `envconfig:"PROXY_TIMEOUT" default:"15s"`
}

// PricingConfig holds less-than-minimum fee settings.
type PricingConfig struct {
	LTMThreshold int     `envconfig:"PRICING_LTM_THRESHOLD" default:"24"`
	LTMFee       float64 `envconfig:"PRICING_LTM_FEE" default:"50.00"`
}

// EmailConfig holds transactional email service settings.
type EmailConfig struct {
	Enabled      bool          `envconfig:"EMAIL_ENABLED" default:"false"`
	BaseURL      string        `envconfig:"EMAIL_BASE_URL" default:"https://api.emailjs.com"`
	ServiceID    string        `envconfig:"EMAIL_SERVICE_ID" default:""`
	TemplateID   string        `envconfig:"EMAIL_TEMPLATE_ID" default:""`
	PublicKey    string        `envconfig:"EMAIL_PUBLIC_KEY" default:""`
	DefaultSales string        `envconfig:"EMAIL_DEFAULT_SALES" default:"sales@example.com"`
	Timeout      time.Duration `envconfig:"EMAIL_TIMEOUT" default:"10s"`
}

// KafkaConfig holds cart event publisher settings.
type KafkaConfig struct {
	Brokers []string `envconfig:"KAFKA_BROKERS" default:""`
	Topic   string   `envconfig:"KAFKA_TOPIC" default:"cart-events"`
}

// Enabled reports whether any broker is configured.
func (k *KafkaConfig) Enabled() bool {
	for _, b := range k.Brokers {
		if strings.TrimSpace(b) != "" {
			return true
		}
	}
	return false
}

// CleanupConfig holds mirror pruning settings.
type CleanupConfig struct {
	Interval  time.Duration `envconfig:"CLEANUP_INTERVAL" default:"24h"`
	Threshold time.Duration `envconfig:"CLEANUP_THRESHOLD" default:"720h"`
}

// AuthConfig holds staff API key settings.
type AuthConfig struct {
	APIKeys []string `envconfig:"STAFF_API_KEYS" default:""`
}

// PostgresDSN returns the PostgreSQL connection string.
func (m *MirrorConfig) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		m.User, m.Password, m.Host, m.Port, m.Name, m.SSLMode)
}

// MySQLDSN returns the MySQL data source name.
func (m *MirrorConfig) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		m.User, m.Password, m.Host, m.Port, m.Name)
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.Pricing.LTMThreshold <= 0 {
		return nil, fmt.Errorf("PRICING_LTM_THRESHOLD must be positive, got %d", cfg.Pricing.LTMThreshold)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
