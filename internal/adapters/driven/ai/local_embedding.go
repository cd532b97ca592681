package ai

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven"
)

// Ensure LocalEmbedding implements EmbeddingService
var _ driven.EmbeddingService = (*LocalEmbedding)(nil)

// DefaultLocalDimensions is the vector size of the local embedder
const DefaultLocalDimensions = 512

// stopWords are dropped before hashing
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"for": {}, "from": {}, "has": {}, "have": {}, "he": {}, "in": {}, "is": {}, "it": {},
	"its": {}, "of": {}, "on": {}, "or": {}, "that": {}, "the": {}, "this": {}, "to": {},
	"was": {}, "were": {}, "will": {}, "with": {}, "what": {}, "which": {}, "who": {},
	"how": {}, "does": {}, "do": {}, "can": {}, "any": {}, "there": {}, "under": {},
}

// LocalEmbedding is an in-process feature-hashing embedder.
// Each token and adjacent token pair is hashed into a signed bucket, and the
// result is L2-normalised. It needs no network and is fully deterministic.
type LocalEmbedding struct {
	dimensions int
}

// NewLocalEmbedding creates a local embedder; dimensions <= 0 uses the default
func NewLocalEmbedding(dimensions int) *LocalEmbedding {
	if dimensions <= 0 {
		dimensions = DefaultLocalDimensions
	}
	return &LocalEmbedding{dimensions: dimensions}
}

func (e *LocalEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *LocalEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.vector(query), nil
}

func (e *LocalEmbedding) Dimensions() int {
	return e.dimensions
}

func (e *LocalEmbedding) Model() string {
	return "local-hash"
}

func (e *LocalEmbedding) HealthCheck(ctx context.Context) error {
	return nil
}

func (e *LocalEmbedding) Close() error {
	return nil
}

// Tokenize lowercases text, splits on non-alphanumerics and drops stop words
func Tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := words[:0]
	for _, w := range words {
		if _, stop := stopWords[w]; stop {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

func (e *LocalEmbedding) vector(text string) []float32 {
	acc := make([]float64, e.dimensions)
	tokens := Tokenize(text)
	for i, tok := range tokens {
		e.add(acc, tok, 1)
		if i > 0 {
			e.add(acc, tokens[i-1]+" "+tok, 0.5)
		}
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	out := make([]float32, e.dimensions)
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i, v := range acc {
		out[i] = float32(v / norm)
	}
	return out
}

// add hashes feature into a bucket; one hash bit picks the sign
func (e *LocalEmbedding) add(acc []float64, feature string, weight float64) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()
	bucket := int(sum % uint64(e.dimensions))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	acc[bucket] += weight
}
