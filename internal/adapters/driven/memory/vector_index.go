package memory

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven"
)

// BackendName identifies the in-process index
const BackendName = "memory"

// Verify interface compliance
var (
	_ driven.VectorIndexProvider = (*IndexProvider)(nil)
	_ driven.VectorIndex         = (*VectorIndex)(nil)
)

// IndexProvider opens in-process indexes. Every scope gets a fresh index
// that lives as long as the caller holds it.
type IndexProvider struct{}

// NewIndexProvider creates a new in-process IndexProvider
func NewIndexProvider() *IndexProvider {
	return &IndexProvider{}
}

// Open returns an empty index for scope
func (p *IndexProvider) Open(ctx context.Context, scope string) (driven.VectorIndex, error) {
	return NewVectorIndex(scope), nil
}

// Name returns "memory"
func (p *IndexProvider) Name() string {
	return BackendName
}

// HealthCheck always succeeds
func (p *IndexProvider) HealthCheck(ctx context.Context) error {
	return nil
}

type entry struct {
	chunk  *domain.Chunk
	vector []float32 // L2-normalised
}

// VectorIndex is a brute-force cosine index held in memory.
// Safe for concurrent queries; writes take the exclusive lock.
type VectorIndex struct {
	mu         sync.RWMutex
	scope      string
	dimensions int
	entries    []entry
	byID       map[string]int
}

// NewVectorIndex creates an empty index for scope
func NewVectorIndex(scope string) *VectorIndex {
	return &VectorIndex{
		scope: scope,
		byID:  make(map[string]int),
	}
}

// Upsert adds or replaces the entry for chunk.ID.
// The first vector fixes the dimensionality of the index.
func (x *VectorIndex) Upsert(ctx context.Context, chunk *domain.Chunk, vector []float32) error {
	if chunk == nil || chunk.ID == "" {
		return fmt.Errorf("%w: chunk id is required", domain.ErrIndex)
	}
	if len(vector) == 0 {
		return fmt.Errorf("%w: empty vector for chunk %s", domain.ErrIndex, chunk.ID)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.dimensions == 0 {
		x.dimensions = len(vector)
	} else if len(vector) != x.dimensions {
		return fmt.Errorf("%w: vector has %d dimensions, index has %d", domain.ErrIndex, len(vector), x.dimensions)
	}

	e := entry{chunk: chunk, vector: Normalize(vector)}
	if i, ok := x.byID[chunk.ID]; ok {
		x.entries[i] = e
		return nil
	}
	x.byID[chunk.ID] = len(x.entries)
	x.entries = append(x.entries, e)
	return nil
}

// Query returns the k entries most similar to vector
func (x *VectorIndex) Query(ctx context.Context, vector []float32, k int) ([]domain.ScoredChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	if k <= 0 || len(x.entries) == 0 {
		return []domain.ScoredChunk{}, nil
	}
	if len(vector) != x.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", domain.ErrIndex, len(vector), x.dimensions)
	}

	q := Normalize(vector)
	results := make([]domain.ScoredChunk, len(x.entries))
	for i, e := range x.entries {
		results[i] = domain.ScoredChunk{Chunk: e.chunk, Score: dot(q, e.vector)}
	}

	domain.SortScored(results)
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Clear drops every entry
func (x *VectorIndex) Clear(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.entries = nil
	x.byID = make(map[string]int)
	x.dimensions = 0
	return nil
}

// Len returns the number of entries
func (x *VectorIndex) Len(ctx context.Context) (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries), nil
}

// Backend returns "memory"
func (x *VectorIndex) Backend() string {
	return BackendName
}

// Scope returns the scope this index was opened for
func (x *VectorIndex) Scope() string {
	return x.scope
}

// Normalize returns a unit-length copy of v. A zero vector stays zero.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}
	norm := math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
