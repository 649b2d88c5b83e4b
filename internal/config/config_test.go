package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "CV Processing Backend", cfg.App.Name)
	assert.Equal(t, "1.0.0", cfg.App.Version)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "gpt-4o-mini", cfg.LLMModel())
	assert.Equal(t, OpenAIEmbeddingModel, cfg.EmbeddingModel())
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 3, cfg.LLM.MaxAttempts)
	assert.Equal(t, 4000, cfg.LLM.MaxInputChars)
	assert.Equal(t, EmbeddingDimensions, cfg.Embedding.Dimensions)
	assert.Equal(t, "smtp.gmail.com", cfg.SMTP.Host)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.True(t, cfg.SMTP.TLS)
	assert.Equal(t, "noreply@cvprocessor.com", cfg.Emails.FromEmail)
	assert.Equal(t, "CV Processor", cfg.Emails.FromName)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SECRET_KEY", "s3cret")
	t.Setenv("SMTP_HOST", "mail.example.com")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("LLM_PROVIDER", "groq")
	t.Setenv("GROQ_API_KEY", "gsk")
	t.Setenv("LLM_TIMEOUT", "5s")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.SecretKey)
	assert.Equal(t, "mail.example.com", cfg.SMTP.Host)
	assert.Equal(t, 2525, cfg.SMTP.Port)
	assert.Equal(t, 5*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "gsk", cfg.LLMAPIKey())
	assert.Equal(t, "llama-3.1-8b-instant", cfg.LLMModel())
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "cv-processor.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app:\n  name: Custom\nllm:\n  provider: none\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "Custom", cfg.App.Name)
	assert.Equal(t, "", cfg.LLMAPIKey())
}

func TestValidateRejectsDimensions(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("EMBEDDING_DIMENSIONS", "1536")

	_, err := LoadConfig("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding dimensions must be 384")
}

func TestEmbeddingAPIKeyFallback(t *testing.T) {
	cfg := &Config{OpenAIAPIKey: "sk-openai"}
	assert.Equal(t, "sk-openai", cfg.EmbeddingAPIKey())

	cfg.Embedding.APIKey = "sk-embed"
	assert.Equal(t, "sk-embed", cfg.EmbeddingAPIKey())
}

func TestLLMModelDefaultsPerProvider(t *testing.T) {
	tests := []struct {
		provider string
		model    string
		want     string
	}{
		{provider: "openai", want: "gpt-4o-mini"},
		{provider: "Gemini", want: "gemini-2.0-flash"},
		{provider: "ollama", want: "llama3.1"},
		{provider: "gemini", model: "gemini-1.5-pro", want: "gemini-1.5-pro"},
		{provider: "none", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.provider+"/"+tt.model, func(t *testing.T) {
			cfg := &Config{LLM: LLMConfig{Provider: tt.provider, Model: tt.model}}
			assert.Equal(t, tt.want, cfg.LLMModel())
		})
	}
}

func TestEmbeddingModelSelection(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, OpenAIEmbeddingModel, cfg.EmbeddingModel())

	cfg.Embedding.BaseURL = "http://localhost:8081/v1"
	assert.Equal(t, LocalEmbeddingModel, cfg.EmbeddingModel())

	cfg.Embedding.Model = "bge-small-en"
	assert.Equal(t, "bge-small-en", cfg.EmbeddingModel())
}

func TestValidateRejectsLocalModelWithoutBaseURL(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("EMBEDDING_MODEL", "all-MiniLM-L6-v2")

	_, err := LoadConfig("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs EMBEDDING_BASE_URL")

	t.Setenv("EMBEDDING_BASE_URL", "http://localhost:8081/v1")
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "all-MiniLM-L6-v2", cfg.EmbeddingModel())
}
