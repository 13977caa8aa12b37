// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override, DATABASE_URL included)
//  2. Environment-selected config file (configuration.<env>.yaml)
//  3. Default values (sensible defaults for quick start)
//
// The ENVIRONMENT variable selects the file: local (default), development,
// test, or production. A missing file is not an error (defaults apply), but
// an unrecognized ENVIRONMENT value is rejected at startup.
//
// Main configuration categories:
//   - Ingestion: data directory, chunk window, recognized file extensions
//   - Storage: PostgreSQL + pgvector connection (see storage.go)
//   - Embedder / Generator: backend selection for embedding and generation
//   - Answer: retrieval depth, score threshold, failure policy
//   - API: listen addresses, rate limiting, CORS
//
// Security: sensitive values (passwords) are masked in MarshalJSON/String.
// Validation: fail-fast range checks in validation.go with clear messages.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/spf13/viper"
)

var (
	// ErrInvalidEnvironment indicates ENVIRONMENT holds an unknown value.
	ErrInvalidEnvironment = errors.New("invalid environment")

	// ErrInvalidKey indicates a lookup key violates the key syntax.
	ErrInvalidKey = errors.New("invalid configuration key")

	// ErrKeyNotFound indicates a lookup key has no value in any source.
	ErrKeyNotFound = errors.New("configuration key not found")
)

// Environment names accepted in ENVIRONMENT and their config file basenames.
var environmentFiles = map[string]string{
	"local":       "configuration.local",
	"development": "configuration.dev",
	"test":        "configuration.test",
	"production":  "configuration.prod",
}

// EmbedderConfig selects and parameterizes the embedding backend.
type EmbedderConfig struct {
	// Provider is "service" (the embedding microservice) or "ollama".
	Provider   string `mapstructure:"provider" json:"provider"`
	ServiceURL string `mapstructure:"service_url" json:"service_url"`
	OllamaHost string `mapstructure:"ollama_host" json:"ollama_host"`
	Model      string `mapstructure:"model" json:"model"`
}

// GeneratorConfig selects and parameterizes the text-generation backend.
type GeneratorConfig struct {
	// Provider is "groq" or "ollama".
	Provider    string  `mapstructure:"provider" json:"provider"`
	Model       string  `mapstructure:"model" json:"model"`
	Temperature float32 `mapstructure:"temperature" json:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" json:"max_tokens"`
	OllamaHost  string  `mapstructure:"ollama_host" json:"ollama_host"`
	GroqURL     string  `mapstructure:"groq_url" json:"groq_url"`
}

// AnswerConfig parameterizes the question-answering pipeline.
type AnswerConfig struct {
	TopK              int     `mapstructure:"top_k" json:"top_k"`
	ScoreThreshold    float32 `mapstructure:"score_threshold" json:"score_threshold"`
	MaxQuestionLength int     `mapstructure:"max_question_length" json:"max_question_length"`

	// DegradeOnError turns generation failures into textual answers instead
	// of request errors. Default true, matching the historical behavior.
	DegradeOnError bool `mapstructure:"degrade_on_error" json:"degrade_on_error"`
}

// APIConfig parameterizes the HTTP surfaces.
type APIConfig struct {
	Addr       string   `mapstructure:"addr" json:"addr"`
	EmbedAddr  string   `mapstructure:"embed_addr" json:"embed_addr"`
	RatePerSec float64  `mapstructure:"rate_per_sec" json:"rate_per_sec"`
	RateBurst  int      `mapstructure:"rate_burst" json:"rate_burst"`
	TrustProxy bool     `mapstructure:"trust_proxy" json:"trust_proxy"`
	CORSOrigin []string `mapstructure:"cors_origins" json:"cors_origins"`
}

// LogConfig parameterizes logging output.
type LogConfig struct {
	Level string `mapstructure:"level" json:"level"`
	JSON  bool   `mapstructure:"json" json:"json"`
	// Dir, when set, adds a per-service log file under this directory.
	Dir string `mapstructure:"dir" json:"dir"`
}

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, API keys), update MarshalJSON.
type Config struct {
	// Environment is the resolved ENVIRONMENT value, not read from the file.
	Environment string `json:"environment"`

	// Ingestion configuration
	DataDir        string   `mapstructure:"data_dir" json:"data_dir"`
	ChunkSize      int      `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap   int      `mapstructure:"chunk_overlap" json:"chunk_overlap"`
	FileExtensions []string `mapstructure:"file_extensions" json:"file_extensions"`

	// Storage configuration (see storage.go for DSN builders)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// VectorDimension must match the vector(N) column of the chunks table.
	VectorDimension int `mapstructure:"vector_dimension" json:"vector_dimension"`

	Embedder  EmbedderConfig  `mapstructure:"embedder" json:"embedder"`
	Generator GeneratorConfig `mapstructure:"generator" json:"generator"`
	Answer    AnswerConfig    `mapstructure:"answer" json:"answer"`
	API       APIConfig       `mapstructure:"api" json:"api"`
	Log       LogConfig       `mapstructure:"log" json:"log"`

	// v retains the loaded sources for dotted-path Lookup.
	v *viper.Viper
}

// Load loads configuration for the environment selected by ENVIRONMENT.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "local"
	}
	fileName, ok := environmentFiles[env]
	if !ok {
		return nil, fmt.Errorf("%w: %q (expected local, development, test, or production)", ErrInvalidEnvironment, env)
	}

	v := viper.New()
	v.SetConfigName(fileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/sovereign")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine (defaults apply); a malformed one is fatal.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}
	cfg.Environment = env
	cfg.v = v

	// DATABASE_URL overrides individual postgres_* settings when set.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	// Ingestion defaults
	v.SetDefault("data_dir", "./data")
	v.SetDefault("chunk_size", 3000)
	v.SetDefault("chunk_overlap", 300)
	v.SetDefault("file_extensions", []string{".txt", ".text"})

	// PostgreSQL defaults (matching docker-compose.yml)
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "sovereign")
	v.SetDefault("postgres_password", "sovereign_dev_password")
	v.SetDefault("postgres_db_name", "sovereign")
	v.SetDefault("postgres_ssl_mode", "disable")
	v.SetDefault("vector_dimension", 768)

	// Embedder defaults
	v.SetDefault("embedder.provider", "service")
	v.SetDefault("embedder.service_url", "http://localhost:8001")
	v.SetDefault("embedder.ollama_host", "http://localhost:11434")
	v.SetDefault("embedder.model", "nomic-embed-text")

	// Generator defaults
	v.SetDefault("generator.provider", "ollama")
	v.SetDefault("generator.model", "llama3.2:1b-instruct-q2_K")
	v.SetDefault("generator.temperature", 0.0)
	v.SetDefault("generator.max_tokens", 2048)
	v.SetDefault("generator.ollama_host", "http://localhost:11434")
	v.SetDefault("generator.groq_url", "https://api.groq.com/openai/v1")

	// Answer defaults
	v.SetDefault("answer.top_k", 5)
	v.SetDefault("answer.score_threshold", 0.2)
	v.SetDefault("answer.max_question_length", 5120)
	v.SetDefault("answer.degrade_on_error", true)

	// API defaults
	v.SetDefault("api.addr", "127.0.0.1:8000")
	v.SetDefault("api.embed_addr", "127.0.0.1:8001")
	v.SetDefault("api.rate_per_sec", 5.0)
	v.SetDefault("api.rate_burst", 10)
	v.SetDefault("api.trust_proxy", false)
	v.SetDefault("api.cors_origins", []string{})

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.dir", "")
}

// bindEnvVariables binds runtime override variables explicitly.
// Secrets (DB_PASSWORD, GROQ_API_KEY) are NOT bound here: they go through
// the secret provider at the point of use.
func bindEnvVariables(v *viper.Viper) {
	// Hardcoded key/env pairs cannot fail to bind; a failure is a bug.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("data_dir", "SOVEREIGN_DATA_DIR")
	mustBind("api.addr", "SOVEREIGN_ADDR")
	mustBind("api.embed_addr", "SOVEREIGN_EMBED_ADDR")
	mustBind("api.trust_proxy", "SOVEREIGN_TRUST_PROXY")
	mustBind("api.cors_origins", "SOVEREIGN_CORS_ORIGINS")
	mustBind("embedder.provider", "SOVEREIGN_EMBEDDER")
	mustBind("embedder.service_url", "SOVEREIGN_EMBEDDER_URL")
	mustBind("generator.provider", "SOVEREIGN_GENERATOR")
	mustBind("generator.model", "SOVEREIGN_MODEL")
	mustBind("log.level", "SOVEREIGN_LOG_LEVEL")
}

// keyPattern is the allowed syntax for dotted-path lookup keys:
// lowercase ASCII letters, digits, '-', '_', with '.' separating segments.
var keyPattern = regexp.MustCompile(`^[a-z0-9_-]+(\.[a-z0-9_-]+)*$`)

// Lookup returns the string form of the configuration value at the given
// dotted path (e.g. "answer.top_k"). It returns ErrInvalidKey for malformed
// keys and ErrKeyNotFound when any path segment is absent from all sources.
func (c *Config) Lookup(key string) (string, error) {
	if !keyPattern.MatchString(key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if c.v == nil || !c.v.IsSet(key) {
		return "", fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	return c.v.GetString(key), nil
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Short secrets are fully masked; longer ones keep two characters on each
// side for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
