package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store drivers
const (
	DriverPostgres  = "postgres"
	DriverPostgREST = "postgrest"
	DriverMemory    = "memory"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Database  DatabaseConfig  `yaml:"database"`
	PostgREST PostgRESTConfig `yaml:"postgrest"`
	Redis     RedisConfig     `yaml:"redis"`
	RabbitMQ  RabbitMQConfig  `yaml:"rabbitmq"`
	S3        S3Config        `yaml:"s3"`
	JWT       JWTConfig       `yaml:"jwt"`
	CORS      CORSConfig      `yaml:"cors"`
	Webhooks  WebhooksConfig  `yaml:"webhooks"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	BasePath        string        `yaml:"base_path"`
	Env             string        `yaml:"env"`
	LogLevel        string        `yaml:"log_level"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type StoreConfig struct {
	Driver       string        `yaml:"driver"`
	Timeout      time.Duration `yaml:"timeout"`
	SeedDefaults bool          `yaml:"seed_defaults"`
}

type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Name            string        `yaml:"name"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	AutoMigrate     bool          `yaml:"auto_migrate"`
}

// DSN returns the connection string, preferring an explicit URL
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type PostgRESTConfig struct {
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	LockKey  string        `yaml:"lock_key"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
}

// Enabled reports whether a Redis server is configured
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Host != ""
}

type RabbitMQConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	Queue      string `yaml:"queue"`
	MaxRetries int    `yaml:"max_retries"`
}

// Enabled reports whether a broker is configured
func (r RabbitMQConfig) Enabled() bool {
	return r.URL != ""
}

type S3Config struct {
	Bucket     string        `yaml:"bucket"`
	Region     string        `yaml:"region"`
	AccessKey  string        `yaml:"access_key"`
	SecretKey  string        `yaml:"secret_key"`
	Endpoint   string        `yaml:"endpoint"`
	PresignTTL time.Duration `yaml:"presign_ttl"`
	// Retention is how long uploaded exports are kept; zero keeps them
	Retention time.Duration `yaml:"retention"`
}

// Enabled reports whether board export storage is configured
func (s S3Config) Enabled() bool {
	return s.Bucket != ""
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type WebhooksConfig struct {
	Timeout       time.Duration        `yaml:"timeout"`
	Subscriptions []WebhookSubscription `yaml:"subscriptions"`
}

// WebhookSubscription is an outbound endpoint notified about pipeline events.
// An empty Events list subscribes to every event.
type WebhookSubscription struct {
	Name   string   `yaml:"name"`
	URL    string   `yaml:"url"`
	Events []string `yaml:"events"`
	Secret string   `yaml:"secret"`
	Active bool     `yaml:"active"`
}

type ReconcileConfig struct {
	Schedule              string `yaml:"schedule"`
	ExportCleanupSchedule string `yaml:"export_cleanup_schedule"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			BasePath:        "/api/pipeline",
			Env:             "dev",
			LogLevel:        "debug",
			ShutdownTimeout: 10 * time.Second,
		},
		Store: StoreConfig{
			Driver:       DriverPostgres,
			Timeout:      5 * time.Second,
			SeedDefaults: true,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "postgres",
			Name:            "crm",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			AutoMigrate:     true,
		},
		PostgREST: PostgRESTConfig{
			Timeout: 10 * time.Second,
		},
		Redis: RedisConfig{
			Port:    6379,
			LockKey: "crm-pipeline:stages:lock",
			LockTTL: 30 * time.Second,
		},
		RabbitMQ: RabbitMQConfig{
			Exchange:   "crm.pipeline",
			Queue:      "crm.pipeline.webhooks",
			MaxRetries: 3,
		},
		S3: S3Config{
			Region:     "ap-northeast-2",
			PresignTTL: 15 * time.Minute,
			Retention:  7 * 24 * time.Hour,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Webhooks: WebhooksConfig{
			Timeout: 10 * time.Second,
		},
		Reconcile: ReconcileConfig{
			Schedule:              "@every 5m",
			ExportCleanupSchedule: "@daily",
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := Default()

	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	// Load from yaml file if exists
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that cannot be defaulted
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverPostgres, DriverMemory:
	case DriverPostgREST:
		if c.PostgREST.URL == "" {
			return fmt.Errorf("postgrest.url is required for store driver %q", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Store.Timeout <= 0 {
		return fmt.Errorf("store.timeout must be positive")
	}
	if c.Redis.Enabled() && c.Store.Timeout >= c.Redis.LockTTL {
		return fmt.Errorf("store.timeout (%s) must be shorter than redis.lock_ttl (%s)", c.Store.Timeout, c.Redis.LockTTL)
	}
	for _, sub := range c.Webhooks.Subscriptions {
		if sub.URL == "" {
			return fmt.Errorf("webhook %q has no url", sub.Name)
		}
	}
	return nil
}

// Override with environment variables
func applyEnv(cfg *Config) {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if basePath := os.Getenv("SERVER_BASE_PATH"); basePath != "" {
		cfg.Server.BasePath = basePath
	}
	if env := os.Getenv("ENV"); env != "" {
		cfg.Server.Env = env
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.Server.LogLevel = logLevel
	}
	if driver := os.Getenv("STORE_DRIVER"); driver != "" {
		cfg.Store.Driver = driver
	}
	if timeout := os.Getenv("STORE_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			cfg.Store.Timeout = d
		}
	}
	if seed := os.Getenv("STORE_SEED_DEFAULTS"); seed != "" {
		if b, err := strconv.ParseBool(seed); err == nil {
			cfg.Store.SeedDefaults = b
		}
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Database.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Database.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.Database.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.Database.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Database.Name = name
	}
	if sslMode := os.Getenv("DB_SSLMODE"); sslMode != "" {
		cfg.Database.SSLMode = sslMode
	}
	if migrate := os.Getenv("DB_AUTO_MIGRATE"); migrate != "" {
		if b, err := strconv.ParseBool(migrate); err == nil {
			cfg.Database.AutoMigrate = b
		}
	}

	if url := os.Getenv("POSTGREST_URL"); url != "" {
		cfg.PostgREST.URL = url
	}
	if apiKey := os.Getenv("POSTGREST_API_KEY"); apiKey != "" {
		cfg.PostgREST.APIKey = apiKey
	}

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cfg.Redis.URL = redisURL
	}
	if redisHost := os.Getenv("REDIS_HOST"); redisHost != "" {
		cfg.Redis.Host = redisHost
	}
	if redisPort := os.Getenv("REDIS_PORT"); redisPort != "" {
		if p, err := strconv.Atoi(redisPort); err == nil {
			cfg.Redis.Port = p
		}
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		cfg.Redis.Password = redisPassword
	}

	if amqpURL := os.Getenv("RABBITMQ_URL"); amqpURL != "" {
		cfg.RabbitMQ.URL = amqpURL
	}

	if bucket := os.Getenv("S3_BUCKET"); bucket != "" {
		cfg.S3.Bucket = bucket
	}
	if region := os.Getenv("S3_REGION"); region != "" {
		cfg.S3.Region = region
	}
	if accessKey := os.Getenv("S3_ACCESS_KEY"); accessKey != "" {
		cfg.S3.AccessKey = accessKey
	}
	if secretKey := os.Getenv("S3_SECRET_KEY"); secretKey != "" {
		cfg.S3.SecretKey = secretKey
	}
	if endpoint := os.Getenv("S3_ENDPOINT"); endpoint != "" {
		cfg.S3.Endpoint = endpoint
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.JWT.Secret = secret
	}
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.CORS.AllowedOrigins = splitList(origins)
	}
	if schedule := os.Getenv("RECONCILE_SCHEDULE"); schedule != "" {
		cfg.Reconcile.Schedule = schedule
	}
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
