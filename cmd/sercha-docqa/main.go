package main

// @title           Sercha DocQA API
// @version         1.0
// @description     Document question answering. Fetches a document by URL, indexes it and answers questions strictly from its content.

// @contact.name   Sercha OSS
// @contact.url    https://github.com/custodia-labs/sercha-docqa/issues

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8000
// @BasePath  /
// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description API token or JWT Bearer token. Format: "Bearer {token}"

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	_ "github.com/custodia-labs/sercha-docqa/docs"
	"github.com/custodia-labs/sercha-docqa/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-docqa/internal/adapters/driven/auth"
	"github.com/custodia-labs/sercha-docqa/internal/adapters/driven/fetcher"
	"github.com/custodia-labs/sercha-docqa/internal/adapters/driven/memory"
	"github.com/custodia-labs/sercha-docqa/internal/adapters/driven/postgres"
	redisadapter "github.com/custodia-labs/sercha-docqa/internal/adapters/driven/redis"
	"github.com/custodia-labs/sercha-docqa/internal/adapters/driven/vespa"
	"github.com/custodia-labs/sercha-docqa/internal/adapters/driving/cli"
	"github.com/custodia-labs/sercha-docqa/internal/adapters/driving/http"
	"github.com/custodia-labs/sercha-docqa/internal/chunker"
	"github.com/custodia-labs/sercha-docqa/internal/config"
	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-docqa/internal/core/services"
	"github.com/custodia-labs/sercha-docqa/internal/normalisers"
	"github.com/custodia-labs/sercha-docqa/internal/runtime"
)

var version = "dev"

func main() {
	cfg, err := config.Load(getEnv("CONFIG_FILE", "config.yaml"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	slog.SetDefault(newLogger(cfg.Log))

	// RUN_MODE picks the command when none is given
	args := os.Args[1:]
	if len(args) == 0 {
		args = []string{getEnv("RUN_MODE", "serve")}
	}

	log.Printf("sercha-docqa %s starting (%s)", version, args[0])

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// ===== AI services =====
	aiFactory := ai.NewFactory()
	embedder, err := aiFactory.CreateEmbeddingService(&cfg.AI.Embedding)
	if err != nil {
		log.Fatalf("Failed to create embedding service: %v", err)
	}
	if embedder == nil {
		embedder = ai.NewLocalEmbedding(cfg.AI.Embedding.Dimensions)
		log.Println("Embedding provider not configured, using local embedder")
	}
	if err := embedder.HealthCheck(ctx); err != nil {
		log.Printf("Warning: embedding health check failed: %v (indexing may fail)", err)
	}

	llm, err := aiFactory.CreateLLMService(&cfg.AI.LLM)
	if err != nil {
		log.Fatalf("Failed to create LLM service: %v", err)
	}
	if llm == nil {
		log.Println("LLM provider not configured, answers will be extracted from the document")
	} else if err := llm.Ping(ctx); err != nil {
		log.Printf("Warning: LLM ping failed: %v (answers may degrade)", err)
	}

	// ===== Redis (optional) =====
	var redisClient *redis.Client
	if cfg.Cache.Backend == config.CacheRedis {
		log.Println("Connecting to Redis...")
		opts, err := redis.ParseURL(cfg.Cache.RedisURL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		log.Println("Redis connected")
	}

	// ===== Vector index =====
	var (
		indexProvider driven.VectorIndexProvider
		db            *postgres.DB
	)
	indexBackend := cfg.Index.Backend
	switch cfg.Index.Backend {
	case config.IndexPostgres:
		log.Println("Connecting to PostgreSQL...")
		db, err = postgres.Open(ctx, postgres.DefaultConfig(cfg.Index.DatabaseURL))
		if err != nil {
			log.Printf("Warning: PostgreSQL unavailable: %v (using in-process index)", err)
			indexBackend = config.IndexMemory
			break
		}
		defer db.Close()

		// Rows left behind by runs that crashed before clearing their scope
		if purged, err := db.PurgeStale(ctx, time.Hour); err != nil {
			log.Printf("Warning: %v", err)
		} else if purged > 0 {
			log.Printf("Purged %d stale chunk rows", purged)
		}
		indexProvider = postgres.NewIndexProvider(db)
		log.Println("PostgreSQL connected and schema initialized")

	case config.IndexVespa:
		if cfg.Index.VespaDeploy {
			log.Println("Deploying Vespa application package...")
			if err := vespa.NewDeployer().Deploy(ctx, cfg.Index.VespaConfigURL, embedder.Dimensions()); err != nil {
				log.Fatalf("Failed to deploy Vespa schema: %v", err)
			}
		}
		provider := vespa.NewIndexProvider(vespa.DefaultConfig(cfg.Index.VespaURL))
		if err := provider.HealthCheck(ctx); err != nil {
			log.Printf("Warning: Vespa health check failed: %v (queries will use the in-process index)", err)
		} else {
			log.Println("Vespa connected")
		}
		indexProvider = provider

	default:
		log.Println("Using in-process vector index")
	}

	// ===== Snapshot cache and build lock =====
	var (
		indexCache driven.IndexCache
		buildLock  driven.DistributedLock
	)
	switch cfg.Cache.Backend {
	case config.CacheRedis:
		indexCache = redisadapter.NewIndexCache(redisClient, cfg.Cache.TTL)
		buildLock = redisadapter.NewLock(redisClient)
		log.Println("Using Redis snapshot cache and build lock")
	case config.CacheMemory:
		cache, err := memory.NewIndexCache(memory.CacheConfig{Capacity: cfg.Cache.Capacity, TTL: cfg.Cache.TTL})
		if err != nil {
			log.Fatalf("Failed to create snapshot cache: %v", err)
		}
		indexCache = cache
		log.Printf("Using in-process snapshot cache (capacity=%d, ttl=%s)", cfg.Cache.Capacity, cfg.Cache.TTL)
	default:
		log.Println("Snapshot cache disabled")
	}
	if buildLock == nil && db != nil {
		buildLock = postgres.NewAdvisoryLock(db)
		log.Println("Using PostgreSQL advisory lock")
	}

	// ===== Runtime registry =====
	runtimeConfig := domain.NewRuntimeConfig(indexBackend, cfg.Cache.Backend)
	runtimeServices := runtime.NewServices(runtimeConfig)
	defer runtimeServices.Close()

	runtimeServices.SetEmbeddingService(embedder)
	runtimeServices.SetLLMService(llm)
	runtimeServices.SetIndexProvider(indexProvider)
	runtimeServices.SetIndexCache(indexCache)
	runtimeServices.SetLock(buildLock)

	log.Printf("Runtime config: index=%s, cache=%s, embedding=%s, generator=%s",
		runtimeConfig.IndexBackend,
		runtimeConfig.CacheBackend,
		embedder.Model(),
		runtimeConfig.EffectiveGenerator())

	// ===== Pipeline =====
	docFetcher := fetcher.New(fetcher.Config{
		Timeout:          cfg.Fetch.Timeout,
		MaxDocumentBytes: cfg.Fetch.MaxDocumentBytes,
		MinDocumentChars: cfg.Pipeline.MinDocumentChars,
		UserAgent:        fmt.Sprintf("sercha-docqa/%s", version),
	}, normalisers.DefaultRegistry())

	pipeline, err := services.NewAnswerPipeline(services.AnswerPipelineConfig{
		Fetcher:  docFetcher,
		Chunker:  chunker.New(),
		Services: runtimeServices,
		Fallback: memory.NewIndexProvider(),
		Settings: cfg.Pipeline,
		Logger:   slog.Default(),
	})
	if err != nil {
		log.Fatalf("Failed to create pipeline: %v", err)
	}

	// ===== Authentication =====
	authAdapter, err := newAuthAdapter(cfg.Auth)
	if err != nil {
		log.Fatalf("Failed to configure authentication: %v", err)
	}
	if authAdapter.Enabled() {
		log.Println("Bearer authentication enabled")
	} else {
		log.Println("Warning: no API token or JWT secret configured, query endpoints are open")
	}

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		AnswerService: pipeline,
		Serve: func(_ context.Context) error {
			return runAPI(cfg, pipeline, runtimeServices, authAdapter)
		},
	})

	if err := cli.Execute(ctx, args); err != nil {
		os.Exit(1)
	}
}

func runAPI(cfg *config.Config, pipeline *services.AnswerPipeline, status *runtime.Services, verifier driven.TokenVerifier) error {
	serverCfg := http.DefaultConfig()
	serverCfg.Host = cfg.Server.Host
	serverCfg.Port = cfg.Server.Port
	serverCfg.Version = version
	serverCfg.ResponseMode = cfg.Server.ResponseMode
	// Responses must be writable after the slowest allowed request
	if cfg.Pipeline.RequestTimeout >= serverCfg.WriteTimeout {
		serverCfg.WriteTimeout = cfg.Pipeline.RequestTimeout + 30*time.Second
	}

	server := http.NewServer(serverCfg, pipeline, status, verifier)

	log.Printf("API server starting on :%d", cfg.Server.Port)
	return server.Start()
}

// newAuthAdapter builds the token verifier, hashing a plain API token once at startup
func newAuthAdapter(cfg config.AuthConfig) (*auth.Adapter, error) {
	authCfg := auth.Config{
		APITokenHash: cfg.APITokenHash,
		JWTSecret:    cfg.JWTSecret,
	}
	if authCfg.APITokenHash == "" && cfg.APIToken != "" {
		hash, err := auth.NewAdapter(auth.Config{}).HashToken(cfg.APIToken)
		if err != nil {
			return nil, err
		}
		authCfg.APITokenHash = hash
	}
	return auth.NewAdapter(authCfg), nil
}

// newLogger builds the default slog logger from the log configuration
func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.Format) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
