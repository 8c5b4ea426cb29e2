package config

import (
	"fmt"
	"os"
	"strconv"
)

// Storage backends
const (
	StorageDynamoDB = "dynamodb"
	StorageMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// AWS configuration
	AWSRegion        string
	Storage          string
	TreesTable       string
	EventsTable      string
	MergeTable       string
	HistoryTable     string
	TargetIndexName  string // GSI1 - merge requests by target tree
	EventBusName     string
	MetricsNamespace string

	// Lambda configuration
	IsLambda           bool
	LambdaFunctionName string

	// Logging
	LogLevel string

	// Authentication
	JWTSecret    string
	JWTIssuer    string
	JWTAudience  string
	RolesClaim   string

	// Queries
	HistoryLimit int

	// Feature flags
	EnableMetrics bool
	EnableTracing bool
	EnableCORS    bool
	AllowedOrigin string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	table := getEnv("TABLE_NAME", "taxonomy")
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),

		AWSRegion:        getEnv("AWS_REGION", "us-west-2"),
		Storage:          getEnv("STORAGE", StorageDynamoDB),
		TreesTable:       getEnv("TREES_TABLE", table),
		EventsTable:      getEnv("EVENTS_TABLE", table+"-events"),
		MergeTable:       getEnv("MERGE_REQUESTS_TABLE", table),
		HistoryTable:     getEnv("HISTORY_TABLE", table+"-history"),
		TargetIndexName:  getEnv("TARGET_INDEX_NAME", "GSI1"),
		EventBusName:     getEnv("EVENT_BUS_NAME", "taxonomy-events"),
		MetricsNamespace: getEnv("METRICS_NAMESPACE", "Romulus/Taxonomy"),

		IsLambda:           getEnvBool("IS_LAMBDA", false),
		LambdaFunctionName: getEnv("AWS_LAMBDA_FUNCTION_NAME", ""),

		JWTSecret:    getEnv("JWT_SECRET", ""),
		JWTIssuer:    getEnv("JWT_ISSUER", "romulus"),
		JWTAudience:  getEnv("JWT_AUDIENCE", ""),
		RolesClaim:   getEnv("JWT_ROLES_CLAIM", "roles"),

		HistoryLimit: getEnvInt("HISTORY_LIMIT", 50),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		EnableMetrics: getEnvBool("ENABLE_METRICS", false),
		EnableTracing: getEnvBool("ENABLE_TRACING", false),
		EnableCORS:    getEnvBool("ENABLE_CORS", true),
		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "*"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.Storage {
	case StorageDynamoDB, StorageMemory:
	default:
		return fmt.Errorf("STORAGE must be %q or %q, got %q", StorageDynamoDB, StorageMemory, c.Storage)
	}

	if c.Environment == "production" {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.Storage != StorageDynamoDB {
			return fmt.Errorf("production requires dynamodb storage")
		}
		if c.TreesTable == "" || c.EventsTable == "" {
			return fmt.Errorf("TABLE_NAME is required")
		}
		if c.EventBusName == "" {
			return fmt.Errorf("EVENT_BUS_NAME is required")
		}
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

// UsesMemoryStorage reports whether the in-process stores are selected
func (c *Config) UsesMemoryStorage() bool {
	return c.Storage == StorageMemory
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
	value := os.Getenv(key)
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
