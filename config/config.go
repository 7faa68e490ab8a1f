package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"factorymind-backend/storage"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	ReportStoreFile     = "file"
	ReportStorePostgres = "postgres"
)

// Config is the full runtime configuration of the backend
type Config struct {
	Port    string
	DataDir string

	VectorStorePath     string
	DocumentCatalogPath string
	ReportsPath         string
	ReportStore         string
	DatabaseURL         string

	LLMProvider          string
	EmbeddingProvider    string
	GeminiAPIKey         string
	GeminiModel          string
	GeminiEmbeddingModel string
	OpenAIAPIKey         string
	OpenAIBaseURL        string
	OpenAIChatModel      string
	OpenAIEmbeddingModel string

	ChunkSize          int
	ChunkOverlap       int
	TopK               int
	EmbeddingBatchSize int
	LLMTimeout         time.Duration
	EmbeddingTimeout   time.Duration

	AdminTokenHash string

	Storage storage.Config
}

// fileConfig is the optional YAML overlay named by CONFIG_FILE
type fileConfig struct {
	RAG struct {
		ChunkSize          int  `yaml:"chunk_size"`
		ChunkOverlap       *int `yaml:"chunk_overlap"`
		TopK               int  `yaml:"top_k"`
		EmbeddingBatchSize int  `yaml:"embedding_batch_size"`
	} `yaml:"rag"`
	LLM struct {
		Provider          string `yaml:"provider"`
		Model             string `yaml:"model"`
		EmbeddingProvider string `yaml:"embedding_provider"`
		EmbeddingModel    string `yaml:"embedding_model"`
		BaseURL           string `yaml:"base_url"`
		TimeoutSecs       int    `yaml:"timeout_secs"`
	} `yaml:"llm"`
}

// Load builds the configuration from defaults, the optional YAML file named by
// CONFIG_FILE, then environment variables (including a .env file). Later
// sources win. Invalid numbers fall back to the previous value.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Port:                 "8000",
		DataDir:              "./data",
		ReportStore:          ReportStoreFile,
		LLMProvider:          ProviderGemini,
		EmbeddingProvider:    ProviderGemini,
		GeminiModel:          "gemini-1.5-flash",
		GeminiEmbeddingModel: "text-embedding-004",
		OpenAIChatModel:      "llama-3.3-70b-versatile",
		OpenAIEmbeddingModel: "text-embedding-3-small",
		ChunkSize:            1000,
		ChunkOverlap:         200,
		TopK:                 4,
		EmbeddingBatchSize:   100,
		LLMTimeout:           120 * time.Second,
		EmbeddingTimeout:     60 * time.Second,
		Storage:              storage.Config{Backend: storage.BackendLocal, S3Region: "us-east-1"},
	}
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	setPositive(&c.ChunkSize, fc.RAG.ChunkSize)
	if fc.RAG.ChunkOverlap != nil && *fc.RAG.ChunkOverlap >= 0 {
		c.ChunkOverlap = *fc.RAG.ChunkOverlap
	}
	setPositive(&c.TopK, fc.RAG.TopK)
	setPositive(&c.EmbeddingBatchSize, fc.RAG.EmbeddingBatchSize)

	if fc.LLM.Provider != "" {
		c.LLMProvider = fc.LLM.Provider
	}
	if fc.LLM.EmbeddingProvider != "" {
		c.EmbeddingProvider = fc.LLM.EmbeddingProvider
	}
	if fc.LLM.Model != "" {
		if c.LLMProvider == ProviderOpenAI {
			c.OpenAIChatModel = fc.LLM.Model
		} else {
			c.GeminiModel = fc.LLM.Model
		}
	}
	if fc.LLM.EmbeddingModel != "" {
		if c.EmbeddingProvider == ProviderOpenAI {
			c.OpenAIEmbeddingModel = fc.LLM.EmbeddingModel
		} else {
			c.GeminiEmbeddingModel = fc.LLM.EmbeddingModel
		}
	}
	if fc.LLM.BaseURL != "" {
		c.OpenAIBaseURL = fc.LLM.BaseURL
	}
	if fc.LLM.TimeoutSecs > 0 {
		c.LLMTimeout = time.Duration(fc.LLM.TimeoutSecs) * time.Second
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.DataDir = getEnv("DATA_DIR", c.DataDir)

	c.VectorStorePath = getEnv("VECTOR_STORE_PATH", filepath.Join(c.DataDir, "vector_store"))
	c.DocumentCatalogPath = getEnv("DOCUMENT_CATALOG_PATH", filepath.Join(c.DataDir, "documents.db"))
	c.ReportsPath = getEnv("REPORTS_PATH", filepath.Join(c.DataDir, "reports", "reports_metadata.json"))
	c.ReportStore = getEnv("REPORT_STORE", c.ReportStore)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)

	c.LLMProvider = getEnv("LLM_PROVIDER", c.LLMProvider)
	c.EmbeddingProvider = getEnv("EMBEDDING_PROVIDER", c.EmbeddingProvider)
	c.GeminiAPIKey = getEnv("GEMINI_API_KEY", c.GeminiAPIKey)
	c.GeminiModel = getEnv("GEMINI_MODEL", c.GeminiModel)
	c.GeminiEmbeddingModel = getEnv("GEMINI_EMBEDDING_MODEL", c.GeminiEmbeddingModel)
	c.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", c.OpenAIBaseURL)
	c.OpenAIChatModel = getEnv("OPENAI_CHAT_MODEL", c.OpenAIChatModel)
	c.OpenAIEmbeddingModel = getEnv("OPENAI_EMBEDDING_MODEL", c.OpenAIEmbeddingModel)

	c.ChunkSize = getEnvInt("CHUNK_SIZE", c.ChunkSize)
	c.ChunkOverlap = getEnvInt("CHUNK_OVERLAP", c.ChunkOverlap)
	c.TopK = getEnvInt("TOP_K", c.TopK)
	c.EmbeddingBatchSize = getEnvInt("EMBEDDING_BATCH_SIZE", c.EmbeddingBatchSize)
	c.LLMTimeout = getEnvDuration("LLM_TIMEOUT", c.LLMTimeout)
	c.EmbeddingTimeout = getEnvDuration("EMBEDDING_TIMEOUT", c.EmbeddingTimeout)

	c.AdminTokenHash = getEnv("ADMIN_TOKEN_HASH", c.AdminTokenHash)

	c.Storage.Backend = storage.Backend(getEnv("STORAGE_TYPE", string(c.Storage.Backend)))
	c.Storage.LocalPath = getEnv("STORAGE_LOCAL_PATH", filepath.Join(c.DataDir, "uploads"))
	c.Storage.S3Bucket = getEnv("AWS_S3_BUCKET", c.Storage.S3Bucket)
	c.Storage.S3Region = getEnv("AWS_REGION", c.Storage.S3Region)
	c.Storage.AWSAccessKey = getEnv("AWS_ACCESS_KEY_ID", c.Storage.AWSAccessKey)
	c.Storage.AWSSecretKey = getEnv("AWS_SECRET_ACCESS_KEY", c.Storage.AWSSecretKey)
}

// Validate checks settings that would otherwise fail later at first use
func (c *Config) Validate() error {
	for name, p := range map[string]string{"LLM_PROVIDER": c.LLMProvider, "EMBEDDING_PROVIDER": c.EmbeddingProvider} {
		if p != ProviderGemini && p != ProviderOpenAI {
			return fmt.Errorf("%s must be %q or %q, got %q", name, ProviderGemini, ProviderOpenAI, p)
		}
	}
	switch c.ReportStore {
	case ReportStoreFile:
	case ReportStorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when REPORT_STORE=postgres")
		}
	default:
		return fmt.Errorf("REPORT_STORE must be %q or %q, got %q", ReportStoreFile, ReportStorePostgres, c.ReportStore)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", c.ChunkOverlap)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
		log.Printf("Warning: Invalid %s=%q, using %d", key, val, defaultVal)
	}
	return defaultVal
}

// getEnvDuration accepts Go durations ("90s") or plain seconds ("90")
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(val); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	log.Printf("Warning: Invalid %s=%q, using %s", key, val, defaultVal)
	return defaultVal
}

func setPositive(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}
