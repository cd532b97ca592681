package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
)

// Index backends
const (
	IndexMemory   = "memory"
	IndexPostgres = "postgres"
	IndexVespa    = "vespa"
)

// Cache backends
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Host         string              `yaml:"host"`
	Port         int                 `yaml:"port"`
	ResponseMode domain.ResponseMode `yaml:"response_mode"`
}

// AuthConfig holds the accepted bearer credentials.
// APIToken is hashed at startup when no APITokenHash is given.
type AuthConfig struct {
	APIToken     string `yaml:"api_token"`
	APITokenHash string `yaml:"api_token_hash"`
	JWTSecret    string `yaml:"jwt_secret"`
}

// LogConfig selects the slog handler
type LogConfig struct {
	Format string `yaml:"format"` // "text" or "json"
	Level  string `yaml:"level"`  // "debug", "info", "warn" or "error"
}

// FetchConfig bounds document downloads
type FetchConfig struct {
	Timeout          time.Duration `yaml:"timeout"`
	MaxDocumentBytes int64         `yaml:"max_document_bytes"`
}

// IndexConfig selects the remote vector index
type IndexConfig struct {
	Backend     string `yaml:"backend"`
	DatabaseURL string `yaml:"database_url"`

	VespaURL       string `yaml:"vespa_url"`
	VespaConfigURL string `yaml:"vespa_config_url"`
	// VespaDeploy pushes the chunk schema to VespaConfigURL at startup
	VespaDeploy bool `yaml:"vespa_deploy"`
}

// CacheConfig selects the index snapshot cache
type CacheConfig struct {
	Backend  string        `yaml:"backend"`
	RedisURL string        `yaml:"redis_url"`
	TTL      time.Duration `yaml:"ttl"`
	Capacity int           `yaml:"capacity"`
}

// Config is the root application configuration
type Config struct {
	Server   ServerConfig          `yaml:"server"`
	Auth     AuthConfig            `yaml:"auth"`
	Log      LogConfig             `yaml:"log"`
	Fetch    FetchConfig           `yaml:"fetch"`
	Pipeline domain.PipelineConfig `yaml:"pipeline"`
	AI       domain.AISettings     `yaml:"ai"`
	Index    IndexConfig           `yaml:"index"`
	Cache    CacheConfig           `yaml:"cache"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8000,
			ResponseMode: domain.ResponseModeExtended,
		},
		Log: LogConfig{Format: "text", Level: "info"},
		Fetch: FetchConfig{
			Timeout:          30 * time.Second,
			MaxDocumentBytes: 50 << 20,
		},
		Pipeline: domain.DefaultPipelineConfig(),
		Index:    IndexConfig{Backend: IndexMemory},
		Cache: CacheConfig{
			Backend:  CacheMemory,
			TTL:      time.Hour,
			Capacity: 32,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when empty or missing), then environment variables. Variables
// from envFiles (".env" when none given) are loaded first without
// overriding the real environment.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	applyEnv(cfg)
	resolveProviders(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides cfg with any environment variables that are set
func applyEnv(cfg *Config) {
	cfg.Server.Host = getEnv("HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvInt("PORT", cfg.Server.Port)
	cfg.Server.ResponseMode = domain.ResponseMode(getEnv("RESPONSE_MODE", string(cfg.Server.ResponseMode)))

	cfg.Auth.APIToken = getEnv("API_TOKEN", cfg.Auth.APIToken)
	cfg.Auth.APITokenHash = getEnv("API_TOKEN_HASH", cfg.Auth.APITokenHash)
	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)

	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)

	cfg.Fetch.Timeout = getEnvDuration("FETCH_TIMEOUT", cfg.Fetch.Timeout)
	cfg.Fetch.MaxDocumentBytes = int64(getEnvInt("MAX_DOCUMENT_BYTES", int(cfg.Fetch.MaxDocumentBytes)))

	p := &cfg.Pipeline
	p.ChunkSize = getEnvInt("CHUNK_SIZE", p.ChunkSize)
	p.ChunkOverlap = getEnvInt("CHUNK_OVERLAP", p.ChunkOverlap)
	p.MaxChunks = getEnvInt("MAX_CHUNKS", p.MaxChunks)
	p.MinDocumentChars = getEnvInt("MIN_DOCUMENT_CHARS", p.MinDocumentChars)
	p.EmbedBatchSize = getEnvInt("EMBED_BATCH_SIZE", p.EmbedBatchSize)
	p.EmbedRetries = getEnvInt("EMBED_RETRIES", p.EmbedRetries)
	p.TopK = getEnvInt("TOP_K", p.TopK)
	p.SimilarityThreshold = getEnvFloat("SIMILARITY_THRESHOLD", p.SimilarityThreshold)
	p.ContextBudget = getEnvInt("CONTEXT_BUDGET", p.ContextBudget)
	p.MaxTokens = getEnvInt("MAX_TOKENS", p.MaxTokens)
	p.Temperature = getEnvFloat("TEMPERATURE", p.Temperature)
	p.MaxConcurrency = getEnvInt("MAX_CONCURRENCY", p.MaxConcurrency)
	p.EmbedTimeout = getEnvDuration("EMBED_TIMEOUT", p.EmbedTimeout)
	p.QueryTimeout = getEnvDuration("QUERY_TIMEOUT", p.QueryTimeout)
	p.GenerateTimeout = getEnvDuration("GENERATE_TIMEOUT", p.GenerateTimeout)
	p.QuestionTimeout = getEnvDuration("QUESTION_TIMEOUT", p.QuestionTimeout)
	p.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", p.RequestTimeout)

	e := &cfg.AI.Embedding
	e.Provider = domain.AIProvider(getEnv("EMBEDDING_PROVIDER", string(e.Provider)))
	e.Model = getEnv("EMBEDDING_MODEL", e.Model)
	e.APIKey = getEnv("EMBEDDING_API_KEY", e.APIKey)
	e.BaseURL = getEnv("EMBEDDING_BASE_URL", e.BaseURL)
	e.Dimensions = getEnvInt("EMBEDDING_DIMENSIONS", e.Dimensions)
	e.RateLimit = getEnvFloat("EMBEDDING_RATE_LIMIT", e.RateLimit)

	l := &cfg.AI.LLM
	l.Provider = domain.AIProvider(getEnv("LLM_PROVIDER", string(l.Provider)))
	l.Model = getEnv("LLM_MODEL", l.Model)
	l.APIKey = getEnv("LLM_API_KEY", l.APIKey)
	l.BaseURL = getEnv("LLM_BASE_URL", l.BaseURL)
	l.RateLimit = getEnvFloat("LLM_RATE_LIMIT", l.RateLimit)

	cfg.Index.Backend = getEnv("INDEX_BACKEND", cfg.Index.Backend)
	cfg.Index.DatabaseURL = getEnv("DATABASE_URL", cfg.Index.DatabaseURL)
	cfg.Index.VespaURL = getEnv("VESPA_URL", cfg.Index.VespaURL)
	cfg.Index.VespaConfigURL = getEnv("VESPA_CONFIG_URL", cfg.Index.VespaConfigURL)
	cfg.Index.VespaDeploy = getEnvBool("VESPA_DEPLOY", cfg.Index.VespaDeploy)

	cfg.Cache.Backend = getEnv("CACHE_BACKEND", cfg.Cache.Backend)
	cfg.Cache.RedisURL = getEnv("REDIS_URL", cfg.Cache.RedisURL)
	cfg.Cache.TTL = getEnvDuration("CACHE_TTL", cfg.Cache.TTL)
	cfg.Cache.Capacity = getEnvInt("CACHE_CAPACITY", cfg.Cache.Capacity)
}

// resolveProviders fills unset AI providers: OpenAI when OPENAI_API_KEY is
// present, otherwise the local embedder and no generation backend
func resolveProviders(cfg *Config) {
	openAIKey := os.Getenv("OPENAI_API_KEY")

	e := &cfg.AI.Embedding
	if e.Provider == "" {
		e.Provider = domain.AIProviderLocal
		if openAIKey != "" {
			e.Provider = domain.AIProviderOpenAI
		}
	}
	if e.Provider == domain.AIProviderOpenAI && e.APIKey == "" {
		e.APIKey = openAIKey
	}

	l := &cfg.AI.LLM
	if l.Provider == "" && openAIKey != "" {
		l.Provider = domain.AIProviderOpenAI
	}
	if l.Provider == domain.AIProviderOpenAI && l.APIKey == "" {
		l.APIKey = openAIKey
	}
}

// Validate checks the configuration is usable
func (c *Config) Validate() error {
	if err := c.Pipeline.Validate(); err != nil {
		return err
	}
	if err := c.AI.Validate(); err != nil {
		return fmt.Errorf("%w: ai: %v", domain.ErrInvalidInput, err)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", domain.ErrInvalidInput, c.Server.Port)
	}
	switch c.Server.ResponseMode {
	case domain.ResponseModeMinimal, domain.ResponseModeExtended:
	default:
		return fmt.Errorf("%w: unknown response mode %q", domain.ErrInvalidInput, c.Server.ResponseMode)
	}

	switch c.Index.Backend {
	case IndexMemory:
	case IndexPostgres:
		if c.Index.DatabaseURL == "" {
			return fmt.Errorf("%w: postgres index requires DATABASE_URL", domain.ErrInvalidInput)
		}
	case IndexVespa:
		if c.Index.VespaURL == "" {
			return fmt.Errorf("%w: vespa index requires VESPA_URL", domain.ErrInvalidInput)
		}
		if c.Index.VespaDeploy && c.Index.VespaConfigURL == "" {
			return fmt.Errorf("%w: vespa deploy requires VESPA_CONFIG_URL", domain.ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown index backend %q", domain.ErrInvalidInput, c.Index.Backend)
	}

	switch c.Cache.Backend {
	case CacheNone:
	case CacheMemory:
		if c.Cache.Capacity <= 0 {
			return fmt.Errorf("%w: cache capacity must be positive", domain.ErrInvalidInput)
		}
	case CacheRedis:
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("%w: redis cache requires REDIS_URL", domain.ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown cache backend %q", domain.ErrInvalidInput, c.Cache.Backend)
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.ParseFloat(value, 64); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		value = strings.ToLower(value)
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s") or plain seconds ("90")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
