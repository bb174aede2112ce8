package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	Auth       AuthConfig
	Media      MediaConfig
	Pagination PaginationConfig
	Log        LogConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Driver         string // postgres, mysql or sqlite
	PostgresClient string // pq or pgdriver
	DSN            string
	Host           string
	Port           string
	Username       string
	Password       string
	Database       string
	SSLMode        string
	MaxOpenConns   int
	MaxIdleConns   int
	MaxLifetime    time.Duration
	ConnectRetries int
	RetryInterval  time.Duration
	AutoMigrate    bool
	Seed           bool
	Debug          bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Enabled  bool
	CacheTTL time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Enabled bool
	Topics  TopicConfig
}

type TopicConfig struct {
	ReservationEvents string
}

type AuthConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	Issuer     string
	OIDCIssuer string
	OIDCClient string
	AdminRole  string
	QRKey      string
}

type MediaConfig struct {
	Backend  string // local or s3
	Dir      string
	BaseURL  string
	S3Bucket string
	S3Region string
}

type PaginationConfig struct {
	DefaultPageSize int
	MaxPageSize     int
}

type LogConfig struct {
	Dir   string
	Level string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Driver:         getEnv("DB_DRIVER", "postgres"),
			PostgresClient: getEnv("DB_POSTGRES_CLIENT", "pq"),
			DSN:            getEnv("DB_DSN", ""),
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			Username:       getEnv("DB_USERNAME", "theatre"),
			Password:       getEnv("DB_PASSWORD", "theatre"),
			Database:       getEnv("DB_NAME", "theatre"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:   getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:   getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:    time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
			ConnectRetries: getEnvInt("DB_CONNECT_RETRIES", 5),
			RetryInterval:  getEnvDuration("DB_RETRY_INTERVAL", 2*time.Second),
			AutoMigrate:    getEnvBool("DB_AUTO_MIGRATE", true),
			Seed:           getEnvBool("DB_SEED", false),
			Debug:          getEnvBool("DB_DEBUG", false),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			CacheTTL: getEnvDuration("CATALOG_CACHE_TTL", 5*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvList("KAFKA_BROKERS", "localhost:9092"),
			Enabled: getEnvBool("KAFKA_ENABLED", false),
			Topics: TopicConfig{
				ReservationEvents: getEnv("KAFKA_TOPIC_RESERVATIONS", "reservation-events"),
			},
		},
		Auth: AuthConfig{
			JWTSecret:  getEnv("JWT_SECRET", "change-me"),
			TokenTTL:   getEnvDuration("JWT_TTL", 24*time.Hour),
			Issuer:     getEnv("JWT_ISSUER", "ms-theatre"),
			OIDCIssuer: getEnv("OIDC_ISSUER", ""),
			OIDCClient: getEnv("OIDC_CLIENT_ID", ""),
			AdminRole:  getEnv("OIDC_ADMIN_ROLE", "theatre-admin"),
			QRKey:      getEnv("QR_ENCRYPTION_KEY", "0123456789abcdef0123456789abcdef"),
		},
		Media: MediaConfig{
			Backend:  getEnv("MEDIA_BACKEND", "local"),
			Dir:      getEnv("MEDIA_DIR", "media"),
			BaseURL:  getEnv("MEDIA_BASE_URL", "/media"),
			S3Bucket: getEnv("MEDIA_S3_BUCKET", ""),
			S3Region: getEnv("MEDIA_S3_REGION", "us-east-1"),
		},
		Pagination: PaginationConfig{
			DefaultPageSize: getEnvInt("PAGE_SIZE", 2),
			MaxPageSize:     getEnvInt("MAX_PAGE_SIZE", 10),
		},
		Log: LogConfig{
			Dir:   getEnv("LOG_DIR", "logs"),
			Level: getEnv("LOG_LEVEL", "INFO"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value and drops empty items.
func getEnvList(key, defaultValue string) []string {
	var out []string
	for _, item := range strings.Split(getEnv(key, defaultValue), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
