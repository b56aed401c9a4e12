// Package config loads application configuration from an optional YAML
// file with environment-variable overrides for deployment settings and
// secrets.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Backend selectors. Chosen once at process start, never per request.
const (
	ProviderOpenAI = "openai"
	ProviderAzure  = "azure"

	StoreFlatfile = "flatfile"
	StoreSQLite   = "sqlite"
	StoreQdrant   = "qdrant"
)

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	URL             string `yaml:"url"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_secs"`
}

// OpenAIConfig configures the standard OpenAI provider.
type OpenAIConfig struct {
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	ChatModel string `yaml:"chat_model"`
}

// AzureConfig configures the Azure OpenAI provider.
type AzureConfig struct {
	APIKey              string `yaml:"api_key"`
	Endpoint            string `yaml:"endpoint"`
	EmbeddingDeployment string `yaml:"embedding_deployment"`
	ChatDeployment      string `yaml:"chat_deployment"`
	APIVersion          string `yaml:"api_version"`
}

// AIConfig selects and configures the embedding/LLM provider pair.
type AIConfig struct {
	Provider string        `yaml:"provider"`
	OpenAI   *OpenAIConfig `yaml:"openai,omitempty"`
	Azure    *AzureConfig  `yaml:"azure,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// VectorStoreConfig selects and configures the vector store backend.
type VectorStoreConfig struct {
	Backend string        `yaml:"backend"`
	Dir     string        `yaml:"dir"`  // flatfile
	Path    string        `yaml:"path"` // sqlite
	Qdrant  *QdrantConfig `yaml:"qdrant,omitempty"`
}

// RetrievalConfig tunes the document-to-context pipeline.
type RetrievalConfig struct {
	ChunkSize           int     `yaml:"chunk_size"`
	ChunkOverlap        int     `yaml:"chunk_overlap"`
	MaxResults          int     `yaml:"max_results"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
}

// WorkerConfig tunes the background ingestion worker.
type WorkerConfig struct {
	Concurrency        int `yaml:"concurrency"`
	DequeueTimeoutSecs int `yaml:"dequeue_timeout_secs"`
}

// Config is the root application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	RedisURL    string            `yaml:"redis_url"`
	UploadDir   string            `yaml:"upload_dir"`
	AI          AIConfig          `yaml:"ai"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Worker      WorkerConfig      `yaml:"worker"`
}

// Load reads configuration from path (missing file yields defaults),
// then applies environment overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

// applyEnv overrides config values from the environment. Secrets are
// expected to arrive this way rather than in the YAML file.
func (c *Config) applyEnv() {
	c.Server.Host = getEnv("HOST", c.Server.Host)
	c.Server.Port = getEnvInt("PORT", c.Server.Port)
	c.Database.URL = getEnv("DATABASE_URL", c.Database.URL)
	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)
	c.UploadDir = getEnv("UPLOAD_DIR", c.UploadDir)

	c.AI.Provider = getEnv("AI_PROVIDER", c.AI.Provider)
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		if c.AI.OpenAI == nil {
			c.AI.OpenAI = &OpenAIConfig{}
		}
		c.AI.OpenAI.APIKey = key
	}
	if key := os.Getenv("AZURE_OPENAI_API_KEY"); key != "" {
		if c.AI.Azure == nil {
			c.AI.Azure = &AzureConfig{}
		}
		c.AI.Azure.APIKey = key
	}
	if c.AI.Azure != nil {
		c.AI.Azure.Endpoint = getEnv("AZURE_OPENAI_ENDPOINT", c.AI.Azure.Endpoint)
	}

	c.VectorStore.Backend = getEnv("VECTOR_STORE", c.VectorStore.Backend)
	if c.VectorStore.Qdrant != nil || os.Getenv("QDRANT_URL") != "" {
		if c.VectorStore.Qdrant == nil {
			c.VectorStore.Qdrant = &QdrantConfig{}
		}
		c.VectorStore.Qdrant.URL = getEnv("QDRANT_URL", c.VectorStore.Qdrant.URL)
		c.VectorStore.Qdrant.APIKey = getEnv("QDRANT_API_KEY", c.VectorStore.Qdrant.APIKey)
	}

	c.Retrieval.ChunkSize = getEnvInt("CHUNK_SIZE", c.Retrieval.ChunkSize)
	c.Retrieval.ChunkOverlap = getEnvInt("CHUNK_OVERLAP", c.Retrieval.ChunkOverlap)
	c.Retrieval.MaxResults = getEnvInt("MAX_CHUNKS_PER_QUERY", c.Retrieval.MaxResults)
	c.Retrieval.SimilarityThreshold = getEnvFloat("SIMILARITY_THRESHOLD", c.Retrieval.SimilarityThreshold)
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 300
	}
	if c.UploadDir == "" {
		c.UploadDir = "./data/uploads"
	}

	if c.AI.Provider == "" {
		c.AI.Provider = ProviderOpenAI
	}

	if c.VectorStore.Backend == "" {
		c.VectorStore.Backend = StoreFlatfile
	}
	if c.VectorStore.Dir == "" {
		c.VectorStore.Dir = "./data/vectors"
	}
	if c.VectorStore.Path == "" {
		c.VectorStore.Path = "./data/vectors.db"
	}
	if c.VectorStore.Qdrant != nil && c.VectorStore.Qdrant.TimeoutSecs == 0 {
		c.VectorStore.Qdrant.TimeoutSecs = 15
	}

	if c.Retrieval.ChunkSize == 0 {
		c.Retrieval.ChunkSize = 1000
	}
	if c.Retrieval.ChunkOverlap == 0 {
		c.Retrieval.ChunkOverlap = 200
	}
	if c.Retrieval.MaxResults == 0 {
		c.Retrieval.MaxResults = 5
	}
	if c.Retrieval.SimilarityThreshold == 0 {
		c.Retrieval.SimilarityThreshold = 0.3
	}

	if c.Worker.Concurrency == 0 {
		c.Worker.Concurrency = 1
	}
	if c.Worker.DequeueTimeoutSecs == 0 {
		c.Worker.DequeueTimeoutSecs = 5
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
