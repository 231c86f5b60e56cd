package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends
const (
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"
)

// Embedding backends
const (
	EmbeddingBackendHuggingFace = "huggingface"
	EmbeddingBackendOpenAI      = "openai"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Store         StoreConfig
	Embedding     EmbeddingConfig
	Retrieval     RetrievalConfig
	Chat          ChatConfig
	Providers     ProvidersConfig
	Observability ObservabilityConfig
	CORS          CORSConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string // From DATABASE_URL when set
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// StoreConfig selects where passages and their embeddings live
type StoreConfig struct {
	Backend     string // postgres or memory
	Table       string
	AutoMigrate bool
}

// EmbeddingConfig holds the embedding model configuration
type EmbeddingConfig struct {
	Backend     string // huggingface or openai
	BaseURL     string
	Model       string
	APIKey      string
	Dimensions  int
	Timeout     time.Duration
	InitTimeout time.Duration
	MaxRetries  int
	CacheSize   int
	EagerInit   bool
}

// RetrievalConfig holds similarity search settings
type RetrievalConfig struct {
	DefaultCount int
	MaxCount     int
	Timeout      time.Duration
}

// ChatConfig holds chat completion settings
type ChatConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// ProvidersConfig holds LLM provider configurations
type ProvidersConfig struct {
	OpenAI OpenAIConfig
}

// OpenAIConfig holds OpenAI provider configuration
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

// ObservabilityConfig holds monitoring and logging configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string // json or text
	MetricsEnabled bool
	MetricsPath    string
}

// CORSConfig holds cross-origin settings for the chat UI
type CORSConfig struct {
	AllowedOrigins []string
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: loadDatabaseConfig(),
		Store: StoreConfig{
			Backend:     strings.ToLower(getEnv("STORE_BACKEND", StoreBackendPostgres)),
			Table:       getEnv("KNOWLEDGE_TABLE", "nse_knowledge"),
			AutoMigrate: getEnvAsBool("AUTO_MIGRATE", false),
		},
		Embedding: loadEmbeddingConfig(),
		Retrieval: RetrievalConfig{
			DefaultCount: getEnvAsInt("RETRIEVAL_DEFAULT_COUNT", 3),
			MaxCount:     getEnvAsInt("RETRIEVAL_MAX_COUNT", 50),
			Timeout:      getEnvAsDuration("RETRIEVAL_TIMEOUT", 10*time.Second),
		},
		Chat: ChatConfig{
			Model:       getEnv("CHAT_MODEL", "gpt-4o"),
			Temperature: getEnvAsFloat("CHAT_TEMPERATURE", 1.0),
			MaxTokens:   getEnvAsInt("CHAT_MAX_TOKENS", 0),
		},
		Providers: ProvidersConfig{
			OpenAI: OpenAIConfig{
				APIKey:     getEnv("OPENAI_API_KEY", ""),
				BaseURL:    getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
				Timeout:    getEnvAsDuration("OPENAI_TIMEOUT", 60*time.Second),
				MaxRetries: getEnvAsInt("OPENAI_MAX_RETRIES", 3),
			},
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
			MetricsPath:    getEnv("METRICS_PATH", "/metrics"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:*", "https://*"}),
		},
	}

	// The openai embedding backend reuses the chat key unless one is set explicitly
	if cfg.Embedding.APIKey == "" && cfg.Embedding.Backend == EmbeddingBackendOpenAI {
		cfg.Embedding.APIKey = cfg.Providers.OpenAI.APIKey
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreBackendPostgres:
		// Database validation (DATABASE_URL or DB_* vars)
		if c.Database.ConnectionString == "" && c.Database.Host == "" {
			return fmt.Errorf("database configuration required: set DATABASE_URL or DB_HOST")
		}
		if c.Database.ConnectionString == "" {
			if c.Database.User == "" {
				return fmt.Errorf("database user is required")
			}
			if c.Database.Database == "" {
				return fmt.Errorf("database name is required")
			}
		}
		if c.Store.Table == "" {
			return fmt.Errorf("knowledge table name is required")
		}
	case StoreBackendMemory:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	switch c.Embedding.Backend {
	case EmbeddingBackendHuggingFace, EmbeddingBackendOpenAI:
	default:
		return fmt.Errorf("unknown embedding backend %q", c.Embedding.Backend)
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding model is required")
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding dimensions must be positive")
	}

	if c.Retrieval.MaxCount < 1 {
		return fmt.Errorf("retrieval max count must be at least 1")
	}
	if c.Retrieval.DefaultCount < 1 || c.Retrieval.DefaultCount > c.Retrieval.MaxCount {
		return fmt.Errorf("retrieval default count must be between 1 and %d", c.Retrieval.MaxCount)
	}

	// Provider validation (chat key required in production)
	if c.IsProduction() && c.Providers.OpenAI.APIKey == "" {
		return fmt.Errorf("OpenAI API key is required in production")
	}

	// Observability validation
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password). Parses ConnectionString when set.
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			host := u.Hostname()
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("host=%s port=%s database=%s", host, port, db)
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// loadDatabaseConfig loads database config from DATABASE_URL or DB_* env vars
func loadDatabaseConfig() DatabaseConfig {
	dbURL := getEnv("DATABASE_URL", "")
	if dbURL != "" {
		return DatabaseConfig{
			ConnectionString: dbURL,
			MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		}
	}
	return DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvAsInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "dev"),
		Password:        getEnv("DB_PASSWORD", "marketbot"),
		Database:        getEnv("DB_NAME", "marketbot"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

func loadEmbeddingConfig() EmbeddingConfig {
	backend := strings.ToLower(getEnv("EMBEDDING_BACKEND", EmbeddingBackendHuggingFace))

	baseURL := "https://api-inference.huggingface.co/pipeline/feature-extraction"
	model := "sentence-transformers/all-MiniLM-L6-v2"
	if backend == EmbeddingBackendOpenAI {
		baseURL = getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1")
		model = "text-embedding-3-small"
	}

	return EmbeddingConfig{
		Backend:     backend,
		BaseURL:     getEnv("EMBEDDING_BASE_URL", baseURL),
		Model:       getEnv("EMBEDDING_MODEL", model),
		APIKey:      getEnv("EMBEDDING_API_KEY", ""),
		Dimensions:  getEnvAsInt("EMBEDDING_DIMENSIONS", 384),
		Timeout:     getEnvAsDuration("EMBEDDING_TIMEOUT", 30*time.Second),
		InitTimeout: getEnvAsDuration("EMBEDDING_INIT_TIMEOUT", 2*time.Minute),
		MaxRetries:  getEnvAsInt("EMBEDDING_MAX_RETRIES", 3),
		CacheSize:   getEnvAsInt("EMBEDDING_CACHE_SIZE", 1024),
		EagerInit:   getEnvAsBool("EMBEDDING_EAGER_INIT", true),
	}
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 8080
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma separated value, dropping blank entries
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
