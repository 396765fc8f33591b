package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"document-qa/internal/models"
	"document-qa/internal/parser"
)

type Config struct {
	LogLevel     string         `yaml:"log_level"`
	Server       ServerConfig   `yaml:"server"`
	EmbedLLM     LLMConfig      `yaml:"embed_llm"`
	InferenceLLM LLMConfig      `yaml:"inference_llm"`
	RAG          RAGConfig      `yaml:"rag"`
	Database     DatabaseConfig `yaml:"database"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	Mode           string   `yaml:"mode"`
	CORSOrigins    []string `yaml:"cors_origins"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes"`
}

// LLMConfig selects a model provider. Provider is one of ollama, openai, compat or gemini;
// embedders additionally accept hash, a local feature-hashing embedder sized by Dimensions.
type LLMConfig struct {
	Provider   string `yaml:"provider"`
	BaseURL    string `yaml:"base_url"`
	Key        string `yaml:"key"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

type RAGConfig struct {
	StorageDir   string `yaml:"storage_dir"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
	MaxTokens    int    `yaml:"max_tokens"`
	PreviewChars int    `yaml:"preview_chars"`
}

type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Driver   string `yaml:"driver"` // pgdriver or pq
	DSN      string `yaml:"dsn"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

const (
	defaultAddr           = ":8000"
	defaultStorageDir     = "./documents"
	defaultMaxUploadBytes = 32 << 20
	defaultProvider       = "ollama"
	defaultOllamaURL      = "http://localhost:11434"
	defaultEmbedModel     = "nomic-embed-text"
	defaultInferenceModel = "llama3.2"
	defaultDriver         = "pgdriver"
	defaultHashDimensions = 256
)

// LoadConfig reads the YAML file at path, then applies .env and environment overrides.
// A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg := seeded()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a fully defaulted config without touching the filesystem or environment.
func Default() *Config {
	cfg := seeded()
	applyDefaults(&cfg)
	return &cfg
}

// seeded carries the defaults whose zero value is a meaningful setting, so values
// present in the file replace them and absent ones keep them.
func seeded() Config {
	return Config{
		RAG: RAGConfig{
			ChunkSize:    models.DefaultChunkSize,
			ChunkOverlap: models.DefaultChunkOverlap,
		},
	}
}

// Validate checks the chunking parameters.
func (c *Config) Validate() error {
	return parser.ValidateChunking(c.RAG.ChunkSize, c.RAG.ChunkOverlap)
}

func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultAddr
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"http://localhost:8000", "http://localhost:8501"}
	}
	if cfg.Server.MaxUploadBytes <= 0 {
		cfg.Server.MaxUploadBytes = defaultMaxUploadBytes
	}

	if cfg.RAG.StorageDir == "" {
		cfg.RAG.StorageDir = defaultStorageDir
	}
	if cfg.RAG.MaxTokens <= 0 {
		cfg.RAG.MaxTokens = models.DefaultMaxTokens
	}
	if cfg.RAG.PreviewChars <= 0 {
		cfg.RAG.PreviewChars = models.DefaultPreviewChars
	}

	applyLLMDefaults(&cfg.EmbedLLM, defaultEmbedModel)
	applyLLMDefaults(&cfg.InferenceLLM, defaultInferenceModel)
	if cfg.EmbedLLM.Provider == "hash" && cfg.EmbedLLM.Dimensions <= 0 {
		cfg.EmbedLLM.Dimensions = defaultHashDimensions
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = defaultDriver
	}
}

func applyLLMDefaults(llm *LLMConfig, model string) {
	if llm.Provider == "" {
		llm.Provider = defaultProvider
	}
	if llm.Provider == "ollama" {
		if llm.BaseURL == "" {
			llm.BaseURL = defaultOllamaURL
		}
		if llm.Model == "" {
			llm.Model = model
		}
	}
}

func applyEnv(cfg *Config) {
	cfg.LogLevel = getEnv("DOCQA_LOG_LEVEL", cfg.LogLevel)
	cfg.Server.Addr = getEnv("DOCQA_ADDR", cfg.Server.Addr)
	if origins := os.Getenv("DOCQA_CORS_ORIGINS"); origins != "" {
		cfg.Server.CORSOrigins = strings.Split(origins, ",")
	}
	cfg.Server.MaxUploadBytes = getEnvInt64("DOCQA_MAX_UPLOAD_BYTES", cfg.Server.MaxUploadBytes)

	cfg.RAG.StorageDir = getEnv("DOCQA_STORAGE_DIR", cfg.RAG.StorageDir)
	cfg.RAG.ChunkSize = getEnvInt("DOCQA_CHUNK_SIZE", cfg.RAG.ChunkSize)
	cfg.RAG.ChunkOverlap = getEnvInt("DOCQA_CHUNK_OVERLAP", cfg.RAG.ChunkOverlap)

	cfg.EmbedLLM.Provider = getEnv("DOCQA_EMBED_PROVIDER", cfg.EmbedLLM.Provider)
	cfg.EmbedLLM.Model = getEnv("DOCQA_EMBED_MODEL", cfg.EmbedLLM.Model)
	cfg.EmbedLLM.BaseURL = getEnv("DOCQA_EMBED_BASE_URL", cfg.EmbedLLM.BaseURL)
	cfg.EmbedLLM.Key = getEnv("DOCQA_EMBED_KEY", cfg.EmbedLLM.Key)

	cfg.InferenceLLM.Provider = getEnv("DOCQA_LLM_PROVIDER", cfg.InferenceLLM.Provider)
	cfg.InferenceLLM.Model = getEnv("DOCQA_LLM_MODEL", cfg.InferenceLLM.Model)
	cfg.InferenceLLM.BaseURL = getEnv("DOCQA_LLM_BASE_URL", cfg.InferenceLLM.BaseURL)
	cfg.InferenceLLM.Key = getEnv("DOCQA_LLM_KEY", cfg.InferenceLLM.Key)

	if dsn := os.Getenv("DOCQA_DATABASE_DSN"); dsn != "" {
		cfg.Database.DSN = dsn
		cfg.Database.Enabled = true
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		intValue, err := strconv.Atoi(value)
		if err == nil {
			return intValue
		}
		log.Warn().Str("key", key).Str("value", value).Int("using", defaultValue).Msg("Ignoring invalid integer in environment")
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return intValue
		}
		log.Warn().Str("key", key).Str("value", value).Int64("using", defaultValue).Msg("Ignoring invalid integer in environment")
	}
	return defaultValue
}
