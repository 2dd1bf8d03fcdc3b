package common

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	DataDir  string
	Store    StoreConfig
	Server   ServerConfig
	OCR      OCRConfig
	Delivery DeliveryConfig
	Worker   WorkerConfig
	Retry    RetryConfig
	Log      LogConfig
	WatchDir string
}

// StoreConfig selects and configures the job record store
type StoreConfig struct {
	Backend       string // sqlite | postgres | file | redis | mongo
	DSN           string
	MaxConns      int32
	MinConns      int32
	DialTimeout   time.Duration
	RedisURL      string
	MongoURI      string
	MongoDatabase string
}

// ServerConfig holds listener addresses
type ServerConfig struct {
	HTTPAddr string
	GRPCAddr string
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Tesseract           string
	Lang                string
	TessdataDir         string
	PSM                 int
	HeicConverter       string
	ArtifactCacheDir    string
	MinConfidence       float32
	EnableTSVConfidence bool
}

// DeliveryConfig holds the downstream webhook configuration
type DeliveryConfig struct {
	InboxURL    string
	Timeout     time.Duration
	MaxAttempts int
	AckPath     string
}

// WorkerConfig sizes the async processing queue
type WorkerConfig struct {
	Workers        int
	QueueSize      int
	ProcessTimeout time.Duration
}

// RetryConfig drives re-invocation of parked jobs
type RetryConfig struct {
	Schedule      string
	MinAge        time.Duration
	StaleAfter    time.Duration
	RequeuePolicy string // record | preserve
}

// LogConfig selects slog handler and level
type LogConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from environment variables.
// A .env file in the working directory is read first when present.
func LoadConfig() *Config {
	_ = godotenv.Load()

	dataDir := getEnv("DATA_DIR", "data")
	backend := strings.ToLower(getEnv("STORE_BACKEND", "sqlite"))
	defaultDSN := ""
	if backend == "sqlite" {
		defaultDSN = dataDir + "/lantern.db"
	}

	return &Config{
		DataDir: dataDir,
		Store: StoreConfig{
			Backend:       backend,
			DSN:           getEnv("DB_URL", defaultDSN),
			MaxConns:      getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:      getEnvAsInt32("DB_MIN_CONNS", 1),
			DialTimeout:   getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			RedisURL:      getEnv("REDIS_URL", "redis://localhost:6379/0"),
			MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			MongoDatabase: getEnv("MONGO_DATABASE", "lantern"),
		},
		Server: ServerConfig{
			HTTPAddr: getEnv("HTTP_ADDR", ":8000"),
			GRPCAddr: getEnvAllowEmpty("GRPC_ADDR", ":9090"),
		},
		OCR: OCRConfig{
			Tesseract:           getEnv("TESSERACT_BIN", "tesseract"),
			Lang:                getEnv("TESSERACT_LANG", "eng"),
			TessdataDir:         getEnv("TESSDATA_PREFIX", ""),
			PSM:                 getEnvAsInt("TESSERACT_PSM", 0),
			HeicConverter:       getEnv("HEIC_CONVERTER", "magick"),
			ArtifactCacheDir:    getEnv("ARTIFACT_CACHE_DIR", "./tmp"),
			MinConfidence:       getEnvAsFloat32("OCR_MIN_CONFIDENCE", 0.45),
			EnableTSVConfidence: getEnvAsBool("OCR_TSV_CONFIDENCE", false),
		},
		Delivery: DeliveryConfig{
			InboxURL:    getEnv("ROUTEBINDER_INBOX_URL", ""),
			Timeout:     getEnvAsDuration("DELIVERY_TIMEOUT", 10*time.Second),
			MaxAttempts: getEnvAsInt("DELIVERY_MAX_ATTEMPTS", 3),
			AckPath:     getEnv("DELIVERY_ACK_PATH", "$.id"),
		},
		Worker: WorkerConfig{
			Workers:        getEnvAsInt("WORKERS", 4),
			QueueSize:      getEnvAsInt("QUEUE_SIZE", 256),
			ProcessTimeout: getEnvAsDuration("PROCESS_TIMEOUT", 3*time.Minute),
		},
		Retry: RetryConfig{
			Schedule:      getEnvAllowEmpty("RETRY_SCHEDULE", "@every 5m"),
			MinAge:        getEnvAsDuration("RETRY_MIN_AGE", time.Minute),
			StaleAfter:    getEnvAsDuration("STALE_PROCESSING_AFTER", 15*time.Minute),
			RequeuePolicy: strings.ToLower(getEnv("REQUEUE_POLICY", "record")),
		},
		Log: LogConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "text")),
		},
		WatchDir: getEnv("WATCH_DIR", ""),
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty distinguishes "unset" from "set to empty" so a feature can be disabled.
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "sqlite", "postgres":
		if c.Store.DSN == "" {
			return NewAppError("CONFIG_ERROR", "DB_URL is required for the "+c.Store.Backend+" store", ErrInvalidInput)
		}
	case "file":
	case "redis":
		if c.Store.RedisURL == "" {
			return NewAppError("CONFIG_ERROR", "REDIS_URL is required for the redis store", ErrInvalidInput)
		}
	case "mongo":
		if c.Store.MongoURI == "" || c.Store.MongoDatabase == "" {
			return NewAppError("CONFIG_ERROR", "MONGO_URI and MONGO_DATABASE are required for the mongo store", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown STORE_BACKEND %q", c.Store.Backend), ErrInvalidInput)
	}
	if c.DataDir == "" {
		return NewAppError("CONFIG_ERROR", "DATA_DIR is required", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	switch c.Retry.RequeuePolicy {
	case "record", "preserve":
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown REQUEUE_POLICY %q", c.Retry.RequeuePolicy), ErrInvalidInput)
	}
	if c.Delivery.MaxAttempts < 1 {
		return NewAppError("CONFIG_ERROR", "DELIVERY_MAX_ATTEMPTS must be at least 1", ErrInvalidInput)
	}
	return nil
}

// NewLogger builds the process logger from LogConfig.
func (c LogConfig) NewLogger() *slog.Logger {
	var level slog.Level
	switch c.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
