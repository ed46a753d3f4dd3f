package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the docrag service.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Store      StoreConfig      `yaml:"store"`
	Retrieve   RetrieveConfig   `yaml:"retrieve"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"DOCRAG_ADDR"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout" env:"DOCRAG_REQUEST_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" env:"DOCRAG_MAX_UPLOAD_BYTES"`
	Metrics         bool          `yaml:"metrics" env:"DOCRAG_METRICS"`
}

// IngestConfig holds loading and splitting configuration.
type IngestConfig struct {
	ChunkSize        int      `yaml:"chunk_size" env:"DOCRAG_CHUNK_SIZE"`
	ChunkOverlap     int      `yaml:"chunk_overlap" env:"DOCRAG_CHUNK_OVERLAP"`
	MaxDocumentBytes int64    `yaml:"max_document_bytes"`
	ArchiveDir       string   `yaml:"archive_dir" env:"DOCRAG_ARCHIVE_DIR"` // empty disables archiving
	Includes         []string `yaml:"includes"`                             // bulk ingest globs
	Excludes         []string `yaml:"excludes"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider          string        `yaml:"provider" env:"DOCRAG_EMBEDDING_PROVIDER"` // "gemini", "openai", "ollama", "hash"
	Model             string        `yaml:"model" env:"DOCRAG_EMBEDDING_MODEL"`
	APIKeyEnv         string        `yaml:"api_key_env"` // Environment variable for API key
	BaseURL           string        `yaml:"base_url" env:"DOCRAG_EMBEDDING_BASE_URL"`
	Dimension         int           `yaml:"dimension" env:"DOCRAG_EMBEDDING_DIMENSION"` // 0 uses the model's native size
	BatchSize         int           `yaml:"batch_size"`
	MaxInputChars     int           `yaml:"max_input_chars"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxRetries        int           `yaml:"max_retries"`
	RequestsPerSecond float64       `yaml:"requests_per_second"` // 0 disables client-side limiting
	Burst             int           `yaml:"burst"`
}

// GenerationConfig holds answer generation configuration.
type GenerationConfig struct {
	Provider        string        `yaml:"provider" env:"DOCRAG_GENERATION_PROVIDER"` // "gemini", "openai", "ollama", "mock"
	Model           string        `yaml:"model" env:"DOCRAG_GENERATION_MODEL"`
	APIKeyEnv       string        `yaml:"api_key_env"`
	BaseURL         string        `yaml:"base_url" env:"DOCRAG_GENERATION_BASE_URL"`
	Temperature     float64       `yaml:"temperature"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxRetries      int           `yaml:"max_retries"`
	MaxContextChars int           `yaml:"max_context_chars"`
}

// StoreConfig holds vector store configuration.
type StoreConfig struct {
	Backend    string `yaml:"backend" env:"DOCRAG_STORE_BACKEND"` // "bolt", "chromem", "memory"
	Path       string `yaml:"path" env:"DOCRAG_STORE_PATH"`
	Collection string `yaml:"collection" env:"DOCRAG_COLLECTION"`
	Metric     string `yaml:"metric"` // "cosine", "dot", "euclidean"
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	DefaultTopK  int           `yaml:"default_top_k"`
	MaxTopK      int           `yaml:"max_top_k"`
	MinScore     float64       `yaml:"min_score"` // Filter results below this score (0 = disabled)
	PreviewChars int           `yaml:"preview_chars"`
	CacheSize    int           `yaml:"cache_size"` // 0 disables the query cache
	CacheTTL     time.Duration `yaml:"cache_ttl"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"DOCRAG_LOG_LEVEL"`
	Format string `yaml:"format" env:"DOCRAG_LOG_FORMAT"` // "console" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8000",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    3 * time.Minute,
			IdleTimeout:     2 * time.Minute,
			RequestTimeout:  2 * time.Minute,
			ShutdownTimeout: 15 * time.Second,
			MaxUploadBytes:  64 << 20,
			Metrics:         true,
		},
		Ingest: IngestConfig{
			ChunkSize:        800,
			ChunkOverlap:     150,
			MaxDocumentBytes: 20 << 20,
			ArchiveDir:       "data",
			Includes:         []string{"**/*.txt", "**/*.md", "**/*.pdf", "**/*.docx"},
			Excludes:         []string{"**/.git/**", "**/node_modules/**", "**/.docrag/**"},
		},
		Embedding: EmbeddingConfig{
			Provider:          "gemini",
			Model:             "text-embedding-004",
			APIKeyEnv:         "GOOGLE_API_KEY",
			Dimension:         0,
			BatchSize:         100,
			MaxInputChars:     8000,
			Timeout:           30 * time.Second,
			MaxRetries:        3,
			RequestsPerSecond: 5,
			Burst:             5,
		},
		Generation: GenerationConfig{
			Provider:        "gemini",
			Model:           "gemini-2.0-flash",
			APIKeyEnv:       "GOOGLE_API_KEY",
			Temperature:     0.3,
			Timeout:         60 * time.Second,
			MaxRetries:      2,
			MaxContextChars: 12000,
		},
		Store: StoreConfig{
			Backend:    "bolt",
			Path:       filepath.Join("vector_db", "docrag.db"),
			Collection: "rag_collection",
			Metric:     "cosine",
		},
		Retrieve: RetrieveConfig{
			DefaultTopK:  3,
			MaxTopK:      10,
			PreviewChars: 150,
			CacheSize:    256,
			CacheTTL:     5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file, then applies .env and
// DOCRAG_* environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for docrag.yaml).
func LoadFromDir(dir string) (*Config, error) {
	// Try docrag.yaml in the directory
	path := filepath.Join(dir, "docrag.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	// Try .docrag/config.yaml; Load falls back to defaults if it is missing too
	return Load(filepath.Join(dir, ".docrag", "config.yaml"))
}

func applyEnv(cfg *Config) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return nil
}

// Validate checks option ranges that would otherwise fail deep inside a component.
func (c *Config) Validate() error {
	var errs []error
	if c.Ingest.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("ingest.chunk_size must be positive, got %d", c.Ingest.ChunkSize))
	}
	if c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		errs = append(errs, fmt.Errorf("ingest.chunk_overlap must be in [0, chunk_size), got %d", c.Ingest.ChunkOverlap))
	}
	if c.Retrieve.MaxTopK <= 0 {
		errs = append(errs, fmt.Errorf("retrieve.max_top_k must be positive, got %d", c.Retrieve.MaxTopK))
	}
	if c.Retrieve.DefaultTopK <= 0 || c.Retrieve.DefaultTopK > c.Retrieve.MaxTopK {
		errs = append(errs, fmt.Errorf("retrieve.default_top_k must be in [1, %d], got %d", c.Retrieve.MaxTopK, c.Retrieve.DefaultTopK))
	}
	switch c.Store.Metric {
	case "cosine", "dot", "euclidean":
	default:
		errs = append(errs, fmt.Errorf("store.metric %q is not one of cosine, dot, euclidean", c.Store.Metric))
	}
	switch c.Store.Backend {
	case "bolt", "chromem", "memory":
	default:
		errs = append(errs, fmt.Errorf("store.backend %q is not one of bolt, chromem, memory", c.Store.Backend))
	}
	if c.Store.Collection == "" {
		errs = append(errs, errors.New("store.collection must not be empty"))
	}
	if c.Embedding.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("embedding.batch_size must be positive, got %d", c.Embedding.BatchSize))
	}
	if c.Embedding.MaxInputChars <= 0 {
		errs = append(errs, fmt.Errorf("embedding.max_input_chars must be positive, got %d", c.Embedding.MaxInputChars))
	} else if c.Ingest.ChunkSize > c.Embedding.MaxInputChars {
		errs = append(errs, fmt.Errorf("ingest.chunk_size %d exceeds embedding.max_input_chars %d", c.Ingest.ChunkSize, c.Embedding.MaxInputChars))
	}
	if c.Embedding.Dimension < 0 {
		errs = append(errs, fmt.Errorf("embedding.dimension must not be negative, got %d", c.Embedding.Dimension))
	}
	return errors.Join(errs...)
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ResolvePath makes p absolute relative to root unless it already is.
func ResolvePath(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// APIKey reads the key named by envName from the environment.
func APIKey(envName string) string {
	if envName == "" {
		return ""
	}
	return os.Getenv(envName)
}
