package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"policy-rag/internal/models"
)

// ErrConfigurationMissing is returned when a required credential or
// connection setting is absent at startup
var ErrConfigurationMissing = errors.New("configuration missing")

const (
	VectorStoreChromem  = "chromem"
	VectorStorePGVector = "pgvector"

	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

type Config struct {
	LogLevel     string         `yaml:"log_level"`
	Database     DatabaseConfig `yaml:"database"`
	EmbedLLM     LLMConfig      `yaml:"embed_llm"`
	InferenceLLM LLMConfig      `yaml:"inference_llm"`
	RAG          RAGConfig      `yaml:"rag"`
}

type DatabaseConfig struct {
	// Driver is "pgdriver" (default) or "postgres" for lib/pq
	Driver     string `yaml:"driver"`
	DSN        string `yaml:"dsn"`
	Password   string `yaml:"password"`
	VectorSize int    `yaml:"vector_size"`
	Debug      bool   `yaml:"debug"`
}

type LLMConfig struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	Key      string `yaml:"key"`
	Model    string `yaml:"model"`
	// Temperature is nil when unset; 0 is a valid setting
	Temperature *float64 `yaml:"temperature"`
	MaxTokens   int      `yaml:"max_tokens"`
}

type RAGConfig struct {
	PDFPath         string   `yaml:"pdf_path"`
	VectorStore     string   `yaml:"vector_store"`
	DBPath          string   `yaml:"db_path"`
	CollectionName  string   `yaml:"collection_name"`
	InMemory        bool     `yaml:"in_memory"`
	EncryptionKey   string   `yaml:"encryption_key"`
	ChunkSize       int      `yaml:"chunk_size"`
	ChunkOverlap    int      `yaml:"chunk_overlap"`
	NResults        int      `yaml:"n_results"`
	MaxHistory      int      `yaml:"max_history_length"`
	RecentTurns     int      `yaml:"recent_turns"`
	PageOffset      int      `yaml:"page_offset"`
	FooterPatterns  []string `yaml:"footer_patterns"`
	TailWindow      *int     `yaml:"tail_window"`
	MaxPage         int      `yaml:"max_page"`
	MaxPromptTokens int      `yaml:"max_prompt_tokens"`
}

// LoadConfig reads the YAML file at path, applies .env and environment
// overrides, and fills defaults. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		if c.InferenceLLM.Key == "" {
			c.InferenceLLM.Key = v
		}
		if c.EmbedLLM.Key == "" {
			c.EmbedLLM.Key = v
		}
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		if c.InferenceLLM.BaseURL == "" {
			c.InferenceLLM.BaseURL = v
		}
		if c.EmbedLLM.BaseURL == "" && c.EmbedLLM.Provider != ProviderOllama {
			c.EmbedLLM.BaseURL = v
		}
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" && c.Database.DSN == "" {
		c.Database.DSN = v
	}
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "pgdriver"
	}
	if c.Database.VectorSize == 0 {
		c.Database.VectorSize = 1536
	}

	if c.EmbedLLM.Provider == "" {
		c.EmbedLLM.Provider = ProviderOpenAI
	}
	if c.EmbedLLM.Model == "" {
		if c.EmbedLLM.Provider == ProviderOllama {
			c.EmbedLLM.Model = "nomic-embed-text"
		} else {
			c.EmbedLLM.Model = "text-embedding-3-small"
		}
	}
	if c.EmbedLLM.Provider == ProviderOllama && c.EmbedLLM.BaseURL == "" {
		c.EmbedLLM.BaseURL = "http://localhost:11434"
	}

	if c.InferenceLLM.Provider == "" {
		c.InferenceLLM.Provider = ProviderOpenAI
	}
	if c.InferenceLLM.Model == "" {
		c.InferenceLLM.Model = "gpt-4o"
	}
	if c.InferenceLLM.Temperature == nil {
		t := 0.1
		c.InferenceLLM.Temperature = &t
	}
	if c.InferenceLLM.MaxTokens == 0 {
		c.InferenceLLM.MaxTokens = 1000
	}

	r := &c.RAG
	if r.PDFPath == "" {
		r.PDFPath = "policy.pdf"
	}
	if r.VectorStore == "" {
		r.VectorStore = VectorStoreChromem
	}
	if r.DBPath == "" {
		r.DBPath = "./chroma_db"
	}
	if r.CollectionName == "" {
		r.CollectionName = models.CollectionName
	}
	if r.ChunkSize == 0 {
		r.ChunkSize = 1000
	}
	if r.ChunkOverlap == 0 {
		r.ChunkOverlap = 200
	}
	if r.NResults == 0 {
		r.NResults = 3
	}
	if r.MaxHistory == 0 {
		r.MaxHistory = 10
	}
	if r.RecentTurns == 0 {
		r.RecentTurns = 5
	}
	if len(r.FooterPatterns) == 0 {
		r.FooterPatterns = models.FooterPatterns
	}
	if r.TailWindow == nil {
		n := 400
		r.TailWindow = &n
	}
	if r.MaxPage == 0 {
		r.MaxPage = 2000
	}
	if r.MaxPromptTokens == 0 {
		r.MaxPromptTokens = 6000
	}
}

// Validate checks what the chat session cannot start without
func (c *Config) Validate() error {
	if c.InferenceLLM.Provider == ProviderOpenAI && c.InferenceLLM.Key == "" {
		return fmt.Errorf("%w: OPENAI_API_KEY or inference_llm.key must be set", ErrConfigurationMissing)
	}
	if c.RAG.RecentTurns > c.RAG.MaxHistory {
		return fmt.Errorf("recent_turns (%d) cannot exceed max_history_length (%d)", c.RAG.RecentTurns, c.RAG.MaxHistory)
	}
	return c.ValidateStore()
}

// ValidateStore checks what ingestion and retrieval need: embeddings and the
// vector store
func (c *Config) ValidateStore() error {
	if c.EmbedLLM.Provider == ProviderOpenAI && c.EmbedLLM.Key == "" {
		return fmt.Errorf("%w: OPENAI_API_KEY or embed_llm.key must be set", ErrConfigurationMissing)
	}
	switch c.RAG.VectorStore {
	case VectorStoreChromem:
	case VectorStorePGVector:
		if c.Database.DSN == "" {
			return fmt.Errorf("%w: database.dsn or DATABASE_DSN must be set for pgvector", ErrConfigurationMissing)
		}
	default:
		return fmt.Errorf("unknown vector store %q", c.RAG.VectorStore)
	}
	if c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("chunk_overlap (%d) must be smaller than chunk_size (%d)", c.RAG.ChunkOverlap, c.RAG.ChunkSize)
	}
	return nil
}
