package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Server ServerConfig `json:"server"`

	// Database Configuration
	Database DatabaseConfig `json:"database"`

	// MongoDB Configuration (attachment blobs)
	MongoDB MongoConfig `json:"mongodb"`

	// Redis Configuration (stats read cache)
	Redis RedisConfig `json:"redis"`

	// Kafka Configuration (change notifications)
	Kafka KafkaConfig `json:"kafka"`

	// Event dispatcher configuration
	Events EventConfig `json:"events"`

	// Logging Configuration
	Logging LoggingConfig `json:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Port         string `json:"port"`
	Host         string `json:"host"`
	ReadTimeout  int    `json:"read_timeout"`
	WriteTimeout int    `json:"write_timeout"`
	Environment  string `json:"environment"` // development, staging, production
}

// DatabaseConfig contains database connection configuration
type DatabaseConfig struct {
	Host         string `json:"host"`
	Port         string `json:"port"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	DatabaseName string `json:"database_name"`
	MaxOpenConns int    `json:"max_open_conns"`
	MaxIdleConns int    `json:"max_idle_conns"`
}

// MongoConfig contains GridFS storage configuration
type MongoConfig struct {
	URI      string `json:"uri"`
	Database string `json:"database"`
}

// RedisConfig contains the stats cache configuration
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Enabled  bool   `json:"enabled"`
}

// KafkaConfig contains the change-notification publisher configuration
type KafkaConfig struct {
	Brokers []string `json:"brokers"`
	Topic   string   `json:"topic"`
	Enabled bool     `json:"enabled"`
}

// EventConfig controls the notification dispatcher
type EventConfig struct {
	Workers           int `json:"workers"`
	ChannelBufferSize int `json:"channel_buffer_size"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// Load builds a Config from the environment, reading .env first if
// one is present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:         getEnvOrDefault("SERVER_PORT", "8080"),
			Host:         getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:  getEnvIntOrDefault("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvIntOrDefault("SERVER_WRITE_TIMEOUT", 15),
			Environment:  getEnvOrDefault("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:         getEnvOrDefault("DB_HOST", "localhost"),
			Port:         getEnvOrDefault("DB_PORT", "3306"),
			Username:     getEnvOrDefault("DB_USER", "freefeed"),
			Password:     getEnvOrDefault("DB_PASSWORD", ""),
			DatabaseName: getEnvOrDefault("DB_NAME", "freefeed"),
			MaxOpenConns: getEnvIntOrDefault("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvIntOrDefault("DB_MAX_IDLE_CONNS", 5),
		},
		MongoDB: MongoConfig{
			URI:      getEnvOrDefault("MONGO_URI", "mongodb://localhost:27017"),
			Database: getEnvOrDefault("MONGO_DB", "freefeed_media"),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getEnvIntOrDefault("REDIS_DB", 0),
			Enabled:  getEnvOrDefault("REDIS_ENABLED", "true") == "true",
		},
		Kafka: KafkaConfig{
			Brokers: []string{getEnvOrDefault("KAFKA_BROKER", "localhost:9092")},
			Topic:   getEnvOrDefault("KAFKA_TOPIC", "feed-events"),
			Enabled: getEnvOrDefault("KAFKA_ENABLED", "false") == "true",
		},
		Events: EventConfig{
			Workers:           getEnvIntOrDefault("EVENT_WORKERS", 4),
			ChannelBufferSize: getEnvIntOrDefault("EVENT_BUFFER_SIZE", 256),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "text"),
		},
	}
}

func (cfg *Config) DSN() string {
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == "" {
		cfg.Database.Port = "3306"
	}

	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.Database.Username,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.DatabaseName,
	)
}

func (cfg *Config) GetMongoURI() string {
	return cfg.MongoDB.URI
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
