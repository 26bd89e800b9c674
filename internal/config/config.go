package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"nb-assistant/internal/hnsw"
)

// Embedding providers.
const (
	ProviderLlamaCpp = "llamacpp"
	ProviderOpenAI   = "openai"
)

// Vector backends.
const (
	BackendHNSW   = "hnsw"
	BackendQdrant = "qdrant"
)

// Config holds all configuration for the application.
type Config struct {
	DataRoot string
	DBPath   string

	HostBaseURL string
	HostToken   string
	VaultRoot   string

	EmbeddingProvider   string
	EmbeddingBaseURL    string
	EmbeddingModelName  string
	EmbeddingAPIKey     string
	EmbeddingDimensions int
	EmbeddingInterval   time.Duration
	EmbeddingWorker     bool

	ChunkSize          int
	HNSWM              int
	HNSWEfConstruction int
	HNSWMetric         hnsw.Metric

	QueryMinScore float64
	QueryLimit    int
	FTSLimit      int
	HybridDedup   bool

	PersistRetryBackoff time.Duration

	QdrantURL              string
	QdrantCollectionPrefix string
	VectorBackend          string

	RebuildSchedule  string
	RebuildNotebooks map[string]string // notebook id -> display name

	APIPort   string
	LogLevel  slog.Level
	LogFormat string
}

// source resolves keys from the environment first, then from the optional YAML file.
type source struct {
	file map[string]string
}

func (s source) get(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if value, ok := s.file[key]; ok && value != "" {
		return value
	}
	return defaultValue
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// When CONFIG_FILE names a YAML file, its keys fill in whatever the environment leaves unset.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ { // Limit search depth
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break // Reached filesystem root
			}
			dir = parent
		}
	}

	src := source{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		file, err := readFile(path)
		if err != nil {
			return nil, err
		}
		src.file = file
	}
	return load(src)
}

// readFile parses a flat YAML mapping of configuration keys.
func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		out[strings.ToUpper(k)] = fmt.Sprint(v)
	}
	return out, nil
}

func load(src source) (*Config, error) {
	dataRoot := src.get("DATA_ROOT", "./data/nb-assistant")

	cfg := &Config{
		DataRoot:               dataRoot,
		DBPath:                 src.get("DB_PATH", filepath.Join(dataRoot, "cache.db")),
		HostBaseURL:            strings.TrimRight(src.get("HOST_BASE_URL", ""), "/"),
		HostToken:              src.get("HOST_TOKEN", ""),
		VaultRoot:              src.get("VAULT_ROOT", ""),
		EmbeddingProvider:      strings.ToLower(src.get("EMBEDDING_PROVIDER", ProviderLlamaCpp)),
		EmbeddingBaseURL:       src.get("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModelName:     src.get("EMBEDDING_MODEL_NAME", "all-MiniLM-L6-v2"),
		EmbeddingAPIKey:        src.get("EMBEDDING_API_KEY", ""),
		QdrantURL:              src.get("QDRANT_URL", ""),
		QdrantCollectionPrefix: src.get("QDRANT_COLLECTION_PREFIX", "nb_"),
		VectorBackend:          strings.ToLower(src.get("VECTOR_BACKEND", BackendHNSW)),
		RebuildSchedule:        src.get("REBUILD_SCHEDULE", ""),
		RebuildNotebooks:       parseNotebooks(src.get("REBUILD_NOTEBOOKS", "")),
		APIPort:                src.get("API_PORT", "9000"),
		LogFormat:              strings.ToLower(src.get("LOG_FORMAT", "text")),
	}

	var err error
	if cfg.EmbeddingDimensions, err = positiveInt(src, "EMBEDDING_DIMENSIONS", 384); err != nil {
		return nil, err
	}
	if cfg.ChunkSize, err = positiveInt(src, "CHUNK_SIZE", 128); err != nil {
		return nil, err
	}
	if cfg.HNSWM, err = positiveInt(src, "HNSW_M", 100); err != nil {
		return nil, err
	}
	if cfg.HNSWM < 2 {
		return nil, fmt.Errorf("HNSW_M must be at least 2")
	}
	if cfg.HNSWEfConstruction, err = positiveInt(src, "HNSW_EF_CONSTRUCTION", 16); err != nil {
		return nil, err
	}
	if cfg.QueryLimit, err = positiveInt(src, "QUERY_LIMIT", 50); err != nil {
		return nil, err
	}
	if cfg.FTSLimit, err = positiveInt(src, "FTS_LIMIT", 10); err != nil {
		return nil, err
	}
	if cfg.EmbeddingInterval, err = duration(src, "EMBEDDING_INTERVAL", 300*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.PersistRetryBackoff, err = duration(src, "PERSIST_RETRY_BACKOFF", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.EmbeddingWorker, err = boolean(src, "EMBEDDING_WORKER", false); err != nil {
		return nil, err
	}
	if cfg.HybridDedup, err = boolean(src, "HYBRID_DEDUP", true); err != nil {
		return nil, err
	}

	minScore, err := strconv.ParseFloat(src.get("QUERY_MIN_SCORE", "0.25"), 64)
	if err != nil {
		return nil, fmt.Errorf("QUERY_MIN_SCORE must be a valid number: %w", err)
	}
	if minScore < -1 || minScore > 1 {
		return nil, fmt.Errorf("QUERY_MIN_SCORE must be between -1 and 1")
	}
	cfg.QueryMinScore = minScore

	if cfg.HNSWMetric, err = hnsw.ParseMetric(strings.ToLower(src.get("HNSW_METRIC", string(hnsw.MetricCosine)))); err != nil {
		return nil, fmt.Errorf("HNSW_METRIC: %w", err)
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(src.get("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	// Validate required fields
	if cfg.HostBaseURL == "" && cfg.VaultRoot == "" {
		return nil, fmt.Errorf("HOST_BASE_URL or VAULT_ROOT is required")
	}
	switch cfg.EmbeddingProvider {
	case ProviderLlamaCpp:
	case ProviderOpenAI:
		if cfg.EmbeddingAPIKey == "" {
			return nil, fmt.Errorf("EMBEDDING_API_KEY is required for the openai provider")
		}
	default:
		return nil, fmt.Errorf("unknown EMBEDDING_PROVIDER %q", cfg.EmbeddingProvider)
	}
	switch cfg.VectorBackend {
	case BackendHNSW:
	case BackendQdrant:
		if cfg.QdrantURL == "" {
			return nil, fmt.Errorf("QDRANT_URL is required for the qdrant vector backend")
		}
	default:
		return nil, fmt.Errorf("unknown VECTOR_BACKEND %q", cfg.VectorBackend)
	}
	if cfg.RebuildSchedule != "" && len(cfg.RebuildNotebooks) == 0 {
		return nil, fmt.Errorf("REBUILD_NOTEBOOKS is required when REBUILD_SCHEDULE is set")
	}

	// Create the data directories if they don't exist
	for _, dir := range []string{cfg.DataRoot, filepath.Dir(cfg.DBPath)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	return cfg, nil
}

// HNSWConfig returns the index construction parameters.
func (c *Config) HNSWConfig() hnsw.Config {
	return hnsw.Config{M: c.HNSWM, EfConstruction: c.HNSWEfConstruction, Metric: c.HNSWMetric}
}

// NotebookName returns the configured display name of a notebook, or its id.
func (c *Config) NotebookName(id string) string {
	if name := c.RebuildNotebooks[id]; name != "" {
		return name
	}
	return id
}

// parseNotebooks reads "id" or "id=name" entries separated by commas.
func parseNotebooks(s string) map[string]string {
	out := make(map[string]string)
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		id, name, found := strings.Cut(entry, "=")
		id = strings.TrimSpace(id)
		name = strings.TrimSpace(name)
		if !found || name == "" {
			name = id
		}
		out[id] = name
	}
	return out
}

func positiveInt(src source, key string, defaultValue int) (int, error) {
	raw := src.get(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}
	return v, nil
}

func duration(src source, key string, defaultValue time.Duration) (time.Duration, error) {
	raw := src.get(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration: %w", key, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return v, nil
}

func boolean(src source, key string, defaultValue bool) (bool, error) {
	raw := src.get(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be true or false: %w", key, err)
	}
	return v, nil
}
