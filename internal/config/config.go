package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EmbeddingDimensions is the fixed vector width of stored embeddings.
const EmbeddingDimensions = 384

const (
	// LocalEmbeddingModel is served by a self-hosted OpenAI-compatible endpoint.
	LocalEmbeddingModel = "all-MiniLM-L6-v2"
	// OpenAIEmbeddingModel accepts a requested width, so it can return 384 dimensions.
	OpenAIEmbeddingModel = "text-embedding-3-small"
)

// defaultLLMModels is used when LLM_MODEL is unset.
var defaultLLMModels = map[string]string{
	"openai": "gpt-4o-mini",
	"groq":   "llama-3.1-8b-instant",
	"ollama": "llama3.1",
	"gemini": "gemini-2.0-flash",
}

type Config struct {
	App            AppConfig       `mapstructure:"app"`
	Port           string          `mapstructure:"port"`
	SecretKey      string          `mapstructure:"secret_key"`
	DatabaseURL    string          `mapstructure:"database_url"`
	UploadsDir     string          `mapstructure:"uploads_dir"`
	MaxUploadBytes int64           `mapstructure:"max_upload_bytes"`
	OpenAIAPIKey   string          `mapstructure:"openai_api_key"`
	GroqAPIKey     string          `mapstructure:"groq_api_key"`
	GeminiAPIKey   string          `mapstructure:"gemini_api_key"`
	LLM            LLMConfig       `mapstructure:"llm"`
	Embedding      EmbeddingConfig `mapstructure:"embedding"`
	Redis          RedisConfig     `mapstructure:"redis"`
	Minio          MinioConfig     `mapstructure:"minio"`
	SMTP           SMTPConfig      `mapstructure:"smtp"`
	Emails         EmailsConfig    `mapstructure:"emails"`
}

type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// LLM Configuration
type LLMConfig struct {
	Provider      string        `mapstructure:"provider"` // "openai", "groq", "ollama", "gemini" or "none"
	Model         string        `mapstructure:"model"`
	BaseURL       string        `mapstructure:"base_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	MaxElapsed    time.Duration `mapstructure:"max_elapsed"`
	MaxInputChars int           `mapstructure:"max_input_chars"`
}

type EmbeddingConfig struct {
	Model      string        `mapstructure:"model"`
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	Dimensions int           `mapstructure:"dimensions"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MinioConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	TLS      bool   `mapstructure:"tls"`
}

type EmailsConfig struct {
	FromEmail string `mapstructure:"from_email"`
	FromName  string `mapstructure:"from_name"`
}

var defaults = map[string]interface{}{
	"app.name":             "CV Processing Backend",
	"app.version":          "1.0.0",
	"port":                 "8080",
	"secret_key":           "",
	"database_url":         "",
	"uploads_dir":          "./uploads",
	"max_upload_bytes":     int64(10 << 20),
	"openai_api_key":       "",
	"groq_api_key":         "",
	"gemini_api_key":       "",
	"llm.provider":         "openai",
	"llm.model":            "",
	"llm.base_url":         "",
	"llm.timeout":          "30s",
	"llm.max_attempts":     3,
	"llm.max_elapsed":      "30s",
	"llm.max_input_chars":  4000,
	"embedding.model":      "",
	"embedding.base_url":   "",
	"embedding.api_key":    "",
	"embedding.dimensions": EmbeddingDimensions,
	"embedding.cache_ttl":  "24h",
	"redis.addr":           "",
	"redis.password":       "",
	"redis.db":             0,
	"minio.endpoint":       "",
	"minio.access_key":     "",
	"minio.secret_key":     "",
	"minio.bucket":         "cv-uploads",
	"minio.use_ssl":        false,
	"smtp.host":            "smtp.gmail.com",
	"smtp.port":            587,
	"smtp.user":            "",
	"smtp.password":        "",
	"smtp.tls":             true,
	"emails.from_email":    "noreply@cvprocessor.com",
	"emails.from_name":     "CV Processor",
}

// LoadConfig reads .env (if present), the optional config file and the environment.
// Environment variables use the upper-cased key with dots replaced by underscores,
// e.g. SMTP_HOST for smtp.host.
func LoadConfig(cfgFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if err = godotenv.Load("../../.env"); err != nil {
			log.Println("Warning: .env file not found, using environment variables")
		}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", cfgFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings the service cannot run without.
func (c *Config) Validate() error {
	if c.Embedding.Dimensions != EmbeddingDimensions {
		return fmt.Errorf("embedding dimensions must be %d, got %d", EmbeddingDimensions, c.Embedding.Dimensions)
	}
	if c.LLM.MaxAttempts < 1 {
		return fmt.Errorf("llm max attempts must be positive, got %d", c.LLM.MaxAttempts)
	}
	if c.Embedding.BaseURL == "" && c.Embedding.Model != "" && !strings.HasPrefix(c.Embedding.Model, "text-embedding-3") {
		return fmt.Errorf("embedding model %s needs EMBEDDING_BASE_URL: the OpenAI API only serves text-embedding-3 models at %d dimensions",
			c.Embedding.Model, EmbeddingDimensions)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive, got %d", c.MaxUploadBytes)
	}
	return nil
}

// LLMAPIKey returns the API key matching the configured provider.
func (c *Config) LLMAPIKey() string {
	switch strings.ToLower(c.LLM.Provider) {
	case "openai":
		return c.OpenAIAPIKey
	case "groq":
		return c.GroqAPIKey
	case "gemini":
		return c.GeminiAPIKey
	case "ollama":
		// Ollama's OpenAI-compatible endpoint ignores the key.
		return "ollama"
	default:
		return ""
	}
}

// LLMModel returns LLM_MODEL, or the provider's default model when unset.
func (c *Config) LLMModel() string {
	if c.LLM.Model != "" {
		return c.LLM.Model
	}
	return defaultLLMModels[strings.ToLower(c.LLM.Provider)]
}

// EmbeddingModel returns EMBEDDING_MODEL when set. Otherwise a self-hosted
// endpoint gets the MiniLM model and the OpenAI API gets text-embedding-3-small.
func (c *Config) EmbeddingModel() string {
	switch {
	case c.Embedding.Model != "":
		return c.Embedding.Model
	case c.Embedding.BaseURL != "":
		return LocalEmbeddingModel
	default:
		return OpenAIEmbeddingModel
	}
}

// EmbeddingAPIKey falls back to the OpenAI key when no dedicated key is set.
func (c *Config) EmbeddingAPIKey() string {
	if c.Embedding.APIKey != "" {
		return c.Embedding.APIKey
	}
	return c.OpenAIAPIKey
}
