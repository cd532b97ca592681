package services

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-docqa/internal/runtime"
)

// Ensure AnswerPipeline implements AnswerService
var _ driving.AnswerService = (*AnswerPipeline)(nil)

const (
	defaultRetryBase = 200 * time.Millisecond
	maxRetryBackoff  = 5 * time.Second

	// buildLockTTL bounds how long a crashed replica can block others
	buildLockTTL = 2 * time.Minute
	// buildLockWait is how long a replica waits for another's snapshot
	buildLockWait = 10 * time.Second
	lockPollEvery = 250 * time.Millisecond

	cleanupTimeout = 10 * time.Second
)

// AnswerPipeline answers a batch of questions about one document.
// It runs FETCHING → CHUNKING → EMBEDDING → INDEXING once per request,
// then ANSWERING per question with bounded concurrency.
type AnswerPipeline struct {
	fetcher  driven.DocumentFetcher
	chunker  driven.Chunker
	services *runtime.Services
	fallback driven.VectorIndexProvider
	cfg      domain.PipelineConfig
	logger   *slog.Logger

	retryBase time.Duration
	pollEvery time.Duration
	lockWait  time.Duration
}

// AnswerPipelineConfig holds dependencies for AnswerPipeline.
type AnswerPipelineConfig struct {
	Fetcher  driven.DocumentFetcher
	Chunker  driven.Chunker
	Services *runtime.Services

	// Fallback opens the in-process index used when the remote backend
	// is missing or fails
	Fallback driven.VectorIndexProvider

	Settings domain.PipelineConfig
	Logger   *slog.Logger
}

// NewAnswerPipeline creates a new answer pipeline.
func NewAnswerPipeline(cfg AnswerPipelineConfig) (*AnswerPipeline, error) {
	if cfg.Fetcher == nil || cfg.Chunker == nil || cfg.Services == nil || cfg.Fallback == nil {
		return nil, fmt.Errorf("%w: fetcher, chunker, services and fallback index are required", domain.ErrInvalidInput)
	}
	if err := cfg.Settings.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &AnswerPipeline{
		fetcher:   cfg.Fetcher,
		chunker:   cfg.Chunker,
		services:  cfg.Services,
		fallback:  cfg.Fallback,
		cfg:       cfg.Settings,
		logger:    logger,
		retryBase: defaultRetryBase,
		pollEvery: lockPollEvery,
		lockWait:  buildLockWait,
	}, nil
}

// CacheKey derives the snapshot cache key for a document URL and embedding model
func CacheKey(url, model string) string {
	sum := blake2b.Sum256([]byte(strings.TrimSpace(url)))
	return "url:" + hex.EncodeToString(sum[:]) + ":" + model
}

// documentCacheKey keys a snapshot by content hash, so the same bytes
// served from another URL reuse the index
func documentCacheKey(documentID, model string) string {
	return "doc:" + documentID + ":" + model
}

// run is the state of one request
type run struct {
	id     string
	stage  domain.Stage
	logger *slog.Logger
}

func (r *run) advance(next domain.Stage) error {
	if !r.stage.CanTransitionTo(next) {
		return fmt.Errorf("illegal stage transition %s -> %s", r.stage, next)
	}
	r.logger.Info("stage transition", "from", r.stage, "to", next)
	r.stage = next
	return nil
}

func (r *run) fail(err error) error {
	stage := r.stage
	if stage.CanTransitionTo(domain.StageFailed) {
		r.stage = domain.StageFailed
	}
	r.logger.Error("request failed", "stage", stage, "error", err)
	return err
}

// Answer runs the pipeline for one request.
// The result holds one answer per question, in question order. Per-question
// failures become placeholder answers; only document-level failures return
// an error.
func (p *AnswerPipeline) Answer(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	start := time.Now()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id := domain.RequestIDFrom(ctx)
	if id == "" {
		id = uuid.NewString()
	}
	r := &run{id: id, stage: domain.StageFetching}
	r.logger = p.logger.With("request_id", r.id)
	r.logger.Info("answering request", "document", req.Documents, "questions", len(req.Questions))

	ctx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	defer cancel()

	embedder := p.services.EmbeddingService()
	if embedder == nil {
		return nil, r.fail(fmt.Errorf("%w: no embedding service configured", domain.ErrEmbeddingService))
	}

	idx, documentID, cacheHit, err := p.prepareIndex(ctx, r, req.Documents, embedder)
	if err != nil {
		return nil, r.fail(p.deadlineError(ctx, err))
	}
	defer idx.close()

	answers := p.answerAll(ctx, r, req.Questions, idx, embedder)

	if err := r.advance(domain.StageDone); err != nil {
		return nil, r.fail(err)
	}

	result := &domain.QueryResult{
		RequestID:      r.id,
		DocumentID:     documentID,
		Answers:        answers,
		IndexBackend:   idx.backend(),
		CacheHit:       cacheHit,
		ProcessingTime: time.Since(start),
	}
	r.logger.Info("request complete",
		"duration", result.ProcessingTime,
		"index_backend", result.IndexBackend,
		"cache_hit", cacheHit,
	)
	return result, nil
}

// deadlineError reports an overrun of the request deadline as ErrTimeout
func (p *AnswerPipeline) deadlineError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, domain.ErrTimeout) {
		return fmt.Errorf("%w: request exceeded %s: %v", domain.ErrTimeout, p.cfg.RequestTimeout, err)
	}
	return err
}

// prepareIndex returns a queryable index for the document, from the cache
// when possible and otherwise by fetching, chunking and embedding it.
func (p *AnswerPipeline) prepareIndex(ctx context.Context, r *run, url string, embedder driven.EmbeddingService) (*runIndex, string, bool, error) {
	cache := p.services.IndexCache()
	model := embedder.Model()

	if snap := p.lookupSnapshot(ctx, r, cache, CacheKey(url, model), embedder); snap != nil {
		idx, err := p.loadSnapshot(ctx, r, snap)
		if err == nil {
			return idx, snap.DocumentID, true, r.advance(domain.StageAnswering)
		}
		r.logger.Warn("cached snapshot unusable, rebuilding", "error", err)
	}

	doc, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, "", false, err
	}
	r.logger.Info("document fetched", "document_id", doc.ID, "format", doc.Format, "chars", len(doc.Text))

	docKey := documentCacheKey(doc.ID, model)
	if snap := p.lookupSnapshot(ctx, r, cache, docKey, embedder); snap != nil {
		if idx, err := p.loadSnapshot(ctx, r, snap); err == nil {
			p.publish(ctx, r, cache, snap, CacheKey(url, model))
			return idx, doc.ID, true, r.advance(domain.StageAnswering)
		}
	}

	// Serialise builds of the same document across replicas
	if lock := p.services.Lock(); lock != nil && cache != nil {
		acquired, err := lock.Acquire(ctx, docKey, buildLockTTL)
		switch {
		case err != nil:
			r.logger.Warn("build lock unavailable, building without it", "error", err)
		case acquired:
			defer func() {
				releaseCtx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
				defer cancel()
				if err := lock.Release(releaseCtx, docKey); err != nil {
					r.logger.Warn("failed to release build lock", "error", err)
				}
			}()
		default:
			if snap := p.awaitSnapshot(ctx, r, cache, docKey, embedder); snap != nil {
				if idx, err := p.loadSnapshot(ctx, r, snap); err == nil {
					return idx, doc.ID, true, r.advance(domain.StageAnswering)
				}
			}
		}
	}

	snap, err := p.build(ctx, r, doc, embedder)
	if err != nil {
		return nil, "", false, err
	}

	if err := r.advance(domain.StageIndexing); err != nil {
		return nil, "", false, err
	}
	idx, err := p.openIndex(ctx, r, snap)
	if err != nil {
		return nil, "", false, err
	}

	p.publish(ctx, r, cache, snap, docKey, CacheKey(url, model))
	return idx, doc.ID, false, r.advance(domain.StageAnswering)
}

// build chunks and embeds the document into a snapshot
func (p *AnswerPipeline) build(ctx context.Context, r *run, doc *domain.Document, embedder driven.EmbeddingService) (*domain.IndexSnapshot, error) {
	if err := r.advance(domain.StageChunking); err != nil {
		return nil, err
	}
	chunks := p.chunker.Chunk(doc, driven.ChunkOptions{
		Size:             p.cfg.ChunkSize,
		Overlap:          p.cfg.ChunkOverlap,
		BoundaryLookback: p.cfg.BoundaryLookback,
		MinTailChars:     p.cfg.MinTailChars,
		MaxChunks:        p.cfg.MaxChunks,
	})
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: document produced no chunks", domain.ErrEmptyDocument)
	}
	r.logger.Info("document chunked", "chunks", len(chunks))

	if err := r.advance(domain.StageEmbedding); err != nil {
		return nil, err
	}
	vectors, err := p.embedChunks(ctx, r, chunks, embedder)
	if err != nil {
		return nil, err
	}

	return &domain.IndexSnapshot{
		DocumentID: doc.ID,
		SourceURL:  doc.SourceURL,
		Model:      embedder.Model(),
		Dimensions: len(vectors[0]),
		Chunks:     chunks,
		Vectors:    vectors,
		CreatedAt:  time.Now(),
	}, nil
}

// embedChunks embeds chunk texts in batches, retrying each failed batch
func (p *AnswerPipeline) embedChunks(ctx context.Context, r *run, chunks []*domain.Chunk, embedder driven.EmbeddingService) ([][]float32, error) {
	batchSize := p.cfg.EmbedBatchSize
	if batchSize <= 0 {
		batchSize = len(chunks)
	}

	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, end-start)
		for i, c := range chunks[start:end] {
			texts[i] = c.Text
		}

		var batch [][]float32
		attempt := 0
		err := retry(ctx, p.cfg.EmbedRetries, p.retryBase, maxRetryBackoff, func(ctx context.Context) error {
			attempt++
			embedCtx, cancel := context.WithTimeout(ctx, p.cfg.EmbedTimeout)
			defer cancel()

			out, err := embedder.Embed(embedCtx, texts)
			if err == nil && len(out) != len(texts) {
				err = fmt.Errorf("%w: expected %d vectors, got %d", domain.ErrEmbeddingService, len(texts), len(out))
			}
			if err != nil {
				r.logger.Warn("embedding batch failed", "stage", domain.StageEmbedding, "batch_start", start, "attempt", attempt, "error", err)
				return err
			}
			batch = out
			return nil
		})
		if err != nil {
			if !errors.Is(err, domain.ErrEmbeddingService) {
				err = fmt.Errorf("%w: %v", domain.ErrEmbeddingService, err)
			}
			return nil, err
		}
		vectors = append(vectors, batch...)
	}

	dims := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dims || dims == 0 {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, expected %d", domain.ErrEmbeddingService, i, len(v), dims)
		}
	}
	return vectors, nil
}

// lookupSnapshot reads a usable snapshot from the cache, or returns nil
func (p *AnswerPipeline) lookupSnapshot(ctx context.Context, r *run, cache driven.IndexCache, key string, embedder driven.EmbeddingService) *domain.IndexSnapshot {
	if cache == nil {
		return nil
	}
	snap, err := cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			r.logger.Warn("snapshot cache unavailable", "error", err)
		}
		return nil
	}
	if !snap.Valid() || snap.Model != embedder.Model() || snap.Dimensions != embedder.Dimensions() {
		return nil
	}
	r.logger.Info("snapshot cache hit", "document_id", snap.DocumentID, "chunks", len(snap.Chunks))
	return snap
}

// awaitSnapshot polls the cache while another replica builds the index
func (p *AnswerPipeline) awaitSnapshot(ctx context.Context, r *run, cache driven.IndexCache, key string, embedder driven.EmbeddingService) *domain.IndexSnapshot {
	r.logger.Info("index build in progress elsewhere, waiting", "key", key)
	deadline := time.NewTimer(p.lockWait)
	defer deadline.Stop()
	ticker := time.NewTicker(p.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-deadline.C:
			r.logger.Warn("gave up waiting for shared index, building locally")
			return nil
		case <-ticker.C:
			if snap := p.lookupSnapshot(ctx, r, cache, key, embedder); snap != nil {
				return snap
			}
		}
	}
}

// publish stores snap under every key; failures only cost future requests a rebuild
func (p *AnswerPipeline) publish(ctx context.Context, r *run, cache driven.IndexCache, snap *domain.IndexSnapshot, keys ...string) {
	if cache == nil {
		return
	}
	for _, key := range keys {
		if _, err := cache.Put(ctx, key, snap); err != nil {
			r.logger.Warn("failed to publish snapshot", "key", key, "error", err)
		}
	}
}

// loadSnapshot fills an in-process index from a cached snapshot
func (p *AnswerPipeline) loadSnapshot(ctx context.Context, r *run, snap *domain.IndexSnapshot) (*runIndex, error) {
	idx, err := p.fallback.Open(ctx, r.id)
	if err != nil {
		return nil, err
	}
	for i, c := range snap.Chunks {
		if err := idx.Upsert(ctx, c, snap.Vectors[i]); err != nil {
			return nil, err
		}
	}
	return &runIndex{active: idx, snap: snap, fallback: p.fallback, scope: r.id, logger: r.logger}, nil
}

// openIndex loads snap into the remote backend, falling back to the
// in-process index on any index error
func (p *AnswerPipeline) openIndex(ctx context.Context, r *run, snap *domain.IndexSnapshot) (*runIndex, error) {
	ri := &runIndex{snap: snap, fallback: p.fallback, scope: r.id, logger: r.logger}

	provider := p.services.IndexProvider()
	if provider != nil {
		idx, err := provider.Open(ctx, r.id)
		if err == nil {
			ri.active = idx
			if err = ri.fill(ctx, idx); err == nil {
				r.logger.Info("index built", "backend", idx.Backend(), "entries", len(snap.Chunks))
				return ri, nil
			}
		}
		if !errors.Is(err, domain.ErrIndex) {
			return nil, err
		}
		r.logger.Warn("remote index unavailable, using in-process index",
			"stage", domain.StageIndexing, "backend", provider.Name(), "error", err)
		ri.discard(ri.active)
		ri.active = nil
	}

	idx, err := p.fallback.Open(ctx, r.id)
	if err != nil {
		return nil, err
	}
	if err := ri.fill(ctx, idx); err != nil {
		return nil, err
	}
	ri.active = idx
	r.logger.Info("index built", "backend", idx.Backend(), "entries", len(snap.Chunks))
	return ri, nil
}

// runIndex is the index of one request. A query failing with ErrIndex on
// the remote backend swaps in an in-process index rebuilt from the run's
// own chunks and vectors, so callers never observe the failure.
type runIndex struct {
	mu       sync.Mutex
	active   driven.VectorIndex
	snap     *domain.IndexSnapshot
	fallback driven.VectorIndexProvider
	scope    string
	logger   *slog.Logger
}

func (ri *runIndex) fill(ctx context.Context, idx driven.VectorIndex) error {
	for i, c := range ri.snap.Chunks {
		if err := idx.Upsert(ctx, c, ri.snap.Vectors[i]); err != nil {
			return err
		}
	}
	return nil
}

func (ri *runIndex) current() driven.VectorIndex {
	ri.mu.Lock()
	defer ri.mu.Unlock()
	return ri.active
}

func (ri *runIndex) backend() string {
	return ri.current().Backend()
}

func (ri *runIndex) query(ctx context.Context, vector []float32, k int) ([]domain.ScoredChunk, error) {
	idx := ri.current()
	results, err := idx.Query(ctx, vector, k)
	if err == nil || !errors.Is(err, domain.ErrIndex) || idx.Backend() == ri.fallback.Name() {
		return results, err
	}

	ri.logger.Warn("index query failed, switching to in-process index", "backend", idx.Backend(), "error", err)
	replacement, err := ri.switchToFallback(ctx, idx)
	if err != nil {
		return nil, err
	}
	return replacement.Query(ctx, vector, k)
}

// switchToFallback replaces failed with an in-process index unless another
// query already did
func (ri *runIndex) switchToFallback(ctx context.Context, failed driven.VectorIndex) (driven.VectorIndex, error) {
	ri.mu.Lock()
	defer ri.mu.Unlock()

	if ri.active != failed {
		return ri.active, nil
	}
	idx, err := ri.fallback.Open(ctx, ri.scope)
	if err != nil {
		return nil, err
	}
	if err := ri.fill(ctx, idx); err != nil {
		return nil, err
	}
	ri.active = idx
	go ri.discard(failed)
	return idx, nil
}

// discard clears a remote scope so finished runs leave nothing behind
func (ri *runIndex) discard(idx driven.VectorIndex) {
	if idx == nil || idx.Backend() == ri.fallback.Name() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	if err := idx.Clear(ctx); err != nil {
		ri.logger.Warn("failed to clear index scope", "backend", idx.Backend(), "error", err)
	}
}

func (ri *runIndex) close() {
	ri.discard(ri.current())
}

type indexedAnswer struct {
	i      int
	answer *domain.Answer
}

// answerAll answers every question with at most MaxConcurrency in flight.
// Results are collected until the request deadline; questions still
// running then get a timeout placeholder.
func (p *AnswerPipeline) answerAll(ctx context.Context, r *run, questions []string, idx *runIndex, embedder driven.EmbeddingService) []*domain.Answer {
	generator := p.generator()
	r.logger.Info("answering questions", "generator", generator.Name(), "concurrency", p.cfg.MaxConcurrency)

	results := make(chan indexedAnswer, len(questions))
	g := new(errgroup.Group)
	g.SetLimit(p.cfg.MaxConcurrency)

	go func() {
		for i, q := range questions {
			g.Go(func() error {
				results <- indexedAnswer{i: i, answer: p.answerQuestion(ctx, r, i, q, idx, embedder, generator)}
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()

	answers := make([]*domain.Answer, len(questions))
collect:
	for received := 0; received < len(questions); received++ {
		select {
		case res, ok := <-results:
			if !ok {
				break collect
			}
			answers[res.i] = res.answer
		case <-ctx.Done():
			break collect
		}
	}

	for i, a := range answers {
		if a == nil {
			err := fmt.Errorf("%w: request deadline reached before the question was answered", domain.ErrTimeout)
			r.logger.Warn("question abandoned", "question_index", i, "error", err)
			answers[i] = domain.PlaceholderAnswer(questions[i], err)
		}
	}
	return answers
}

func (p *AnswerPipeline) generator() Generator {
	cfg := GeneratorConfigFrom(p.cfg)
	if llm := p.services.LLMService(); llm != nil {
		return NewGroundedGenerator(llm, cfg)
	}
	return NewExtractiveGenerator(cfg)
}

// answerQuestion retrieves and generates one answer. It never fails:
// errors become placeholder answers.
func (p *AnswerPipeline) answerQuestion(ctx context.Context, r *run, i int, question string, idx *runIndex, embedder driven.EmbeddingService, generator Generator) *domain.Answer {
	start := time.Now()
	logger := r.logger.With("question_index", i)

	ctx, cancel := context.WithTimeout(ctx, p.cfg.QuestionTimeout)
	defer cancel()

	answer, err := p.retrieveAndGenerate(ctx, question, idx, embedder, generator)
	if err != nil {
		if ctx.Err() != nil && !errors.Is(err, domain.ErrTimeout) {
			err = fmt.Errorf("%w: %v", domain.ErrTimeout, err)
		}
		logger.Warn("question failed, returning placeholder", "stage", domain.StageAnswering, "error", err)
		answer = domain.PlaceholderAnswer(question, err)
	}

	answer.Question = question
	answer.ProcessingTime = time.Since(start)
	logger.Debug("question answered", "confidence", answer.Confidence, "sources", len(answer.SourceChunks))
	return answer
}

func (p *AnswerPipeline) retrieveAndGenerate(ctx context.Context, question string, idx *runIndex, embedder driven.EmbeddingService, generator Generator) (*domain.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}

	embedCtx, cancel := context.WithTimeout(ctx, p.cfg.EmbedTimeout)
	vector, err := embedder.EmbedQuery(embedCtx, question)
	cancel()
	if err != nil {
		return nil, stageError(embedCtx, domain.ErrEmbeddingService, "question embedding", p.cfg.EmbedTimeout, err)
	}

	queryCtx, cancel := context.WithTimeout(ctx, p.cfg.QueryTimeout)
	retrieved, err := idx.query(queryCtx, vector, p.cfg.TopK)
	cancel()
	if err != nil {
		return nil, stageError(queryCtx, domain.ErrIndex, "retrieval", p.cfg.QueryTimeout, err)
	}

	genCtx, cancel := context.WithTimeout(ctx, p.cfg.GenerateTimeout)
	defer cancel()
	answer, err := generator.Generate(genCtx, question, retrieved)
	if err != nil {
		return nil, stageError(genCtx, domain.ErrGeneration, "generation", p.cfg.GenerateTimeout, err)
	}
	return answer, nil
}

// stageError classifies a per-question failure: deadline overruns become
// ErrTimeout, anything else is wrapped in the stage's sentinel
func stageError(ctx context.Context, sentinel error, stage string, limit time.Duration, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s exceeded %s", domain.ErrTimeout, stage, limit)
	}
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %v", sentinel, err)
}
