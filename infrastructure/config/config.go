package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"notepad-backend/pkg/utils"

	"gopkg.in/yaml.v3"
)

// Store backends
const (
	StoreMemory   = "memory"
	StoreDynamoDB = "dynamodb"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string `yaml:"server_address"`
	Environment   string `yaml:"environment" validate:"required"`
	ServiceName   string `yaml:"service_name"`

	// Storage
	StoreBackend     string `yaml:"store_backend" validate:"oneof=memory dynamodb"`
	AWSRegion        string `yaml:"aws_region"`
	DynamoDBTable    string `yaml:"dynamodb_table" validate:"required_if=StoreBackend dynamodb"`
	DynamoDBEndpoint string `yaml:"dynamodb_endpoint"`
	Namespace        string `yaml:"namespace" validate:"required"`
	EventBusName     string `yaml:"event_bus_name"`

	// Lambda configuration
	IsLambda bool `yaml:"is_lambda"`

	// Logging
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`

	// Notes
	MigrateOnRequest bool   `yaml:"migrate_on_request"`
	LegacyKeyPrefix  string `yaml:"legacy_key_prefix" validate:"required"`
	MaxBodyBytes     int64  `yaml:"max_body_bytes" validate:"gt=0"`

	// Feature flags
	EnableMetrics      bool     `yaml:"enable_metrics"`
	EnableTracing      bool     `yaml:"enable_tracing"`
	EnableCORS         bool     `yaml:"enable_cors"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	OTLPEndpoint       string   `yaml:"otlp_endpoint"`

	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`

	// ConfigFile is the YAML file the values were overlaid from, if any.
	ConfigFile string `yaml:"-"`
}

// CircuitBreakerConfig configures the breaker in front of the store.
type CircuitBreakerConfig struct {
	Enabled          bool    `yaml:"enabled"`
	MaxRequests      int     `yaml:"max_requests" validate:"gte=0"`
	IntervalSeconds  int     `yaml:"interval_seconds" validate:"gte=0"`
	TimeoutSeconds   int     `yaml:"timeout_seconds" validate:"gte=0"`
	FailureThreshold float64 `yaml:"failure_threshold" validate:"gte=0,lte=1"`
	MinRequests      int     `yaml:"min_requests" validate:"gte=0"`
}

// defaults returns the configuration used when neither a file nor the
// environment sets a value.
func defaults() *Config {
	return &Config{
		ServerAddress:    ":8080",
		Environment:      "development",
		ServiceName:      "notepad-backend",
		AWSRegion:        "us-west-2",
		DynamoDBTable:    "notepad",
		Namespace:        "default",
		LogLevel:         "info",
		MigrateOnRequest: true,
		LegacyKeyPrefix:  "note:",
		MaxBodyBytes:     350 * 1024,
		EnableCORS:       true,
		OTLPEndpoint:     "localhost:4317",
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:          true,
			MaxRequests:      5,
			IntervalSeconds:  30,
			TimeoutSeconds:   60,
			FailureThreshold: 0.8,
			MinRequests:      5,
		},
	}
}

// LoadConfig loads configuration from defaults, then the YAML file named by
// CONFIG_FILE, then environment variables.
func LoadConfig() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
		cfg.ConfigFile = path
	}

	cfg.overlayEnv()

	if cfg.StoreBackend == "" {
		if cfg.IsDevelopment() {
			cfg.StoreBackend = StoreMemory
		} else {
			cfg.StoreBackend = StoreDynamoDB
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) overlayEnv() {
	c.ServerAddress = getEnv("SERVER_ADDRESS", c.ServerAddress)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.ServiceName = getEnv("SERVICE_NAME", c.ServiceName)

	c.StoreBackend = getEnv("STORE_BACKEND", c.StoreBackend)
	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.DynamoDBTable = getEnv("TABLE_NAME", getEnv("DYNAMODB_TABLE", c.DynamoDBTable))
	c.DynamoDBEndpoint = getEnv("DYNAMODB_ENDPOINT", c.DynamoDBEndpoint)
	c.Namespace = getEnv("KV_NAMESPACE", c.Namespace)
	c.EventBusName = getEnv("EVENT_BUS_NAME", c.EventBusName)

	c.IsLambda = getEnvBool("IS_LAMBDA", c.IsLambda || os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "")

	c.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", c.LogLevel))

	c.MigrateOnRequest = getEnvBool("MIGRATE_ON_REQUEST", c.MigrateOnRequest)
	c.LegacyKeyPrefix = getEnv("LEGACY_KEY_PREFIX", c.LegacyKeyPrefix)
	c.MaxBodyBytes = int64(getEnvInt("MAX_BODY_BYTES", int(c.MaxBodyBytes)))

	c.EnableMetrics = getEnvBool("ENABLE_METRICS", c.EnableMetrics)
	c.EnableTracing = getEnvBool("ENABLE_TRACING", c.EnableTracing)
	c.EnableCORS = getEnvBool("ENABLE_CORS", c.EnableCORS)
	if origins := getEnv("CORS_ALLOWED_ORIGINS", ""); origins != "" {
		c.CORSAllowedOrigins = strings.Split(origins, ",")
	}
	c.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.OTLPEndpoint)

	c.CircuitBreaker.Enabled = getEnvBool("CIRCUIT_BREAKER_ENABLED", c.CircuitBreaker.Enabled)
	c.CircuitBreaker.TimeoutSeconds = getEnvInt("CIRCUIT_BREAKER_TIMEOUT_SECONDS", c.CircuitBreaker.TimeoutSeconds)
	c.CircuitBreaker.FailureThreshold = getEnvFloat("CIRCUIT_BREAKER_FAILURE_THRESHOLD", c.CircuitBreaker.FailureThreshold)
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.IsProduction() && c.StoreBackend == StoreMemory {
		return fmt.Errorf("invalid configuration: the memory store cannot be used in production")
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
