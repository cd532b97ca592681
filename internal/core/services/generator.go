package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven"
)

// Generator turns a question and its retrieved chunks into an answer.
// Implementations never cite a chunk outside the retrieved set.
type Generator interface {
	Generate(ctx context.Context, question string, retrieved []domain.ScoredChunk) (*domain.Answer, error)

	// Name returns the strategy name (domain.GeneratorGrounded or domain.GeneratorExtractive)
	Name() string
}

// GeneratorConfig holds the generation settings taken from domain.PipelineConfig
type GeneratorConfig struct {
	ContextBudget       int
	SimilarityThreshold float64
	MaxTokens           int
	Temperature         float64
}

// GeneratorConfigFrom extracts generation settings
func GeneratorConfigFrom(cfg domain.PipelineConfig) GeneratorConfig {
	return GeneratorConfig{
		ContextBudget:       cfg.ContextBudget,
		SimilarityThreshold: cfg.SimilarityThreshold,
		MaxTokens:           cfg.MaxTokens,
		Temperature:         cfg.Temperature,
	}
}

const systemPrompt = `You answer questions about a single document.
Use only the numbered context passages below. Do not use outside knowledge.
Cite every passage you rely on with its marker, for example [1] or [2][3].
Keep the answer concise and include exact figures, durations and conditions.
If the context does not contain the answer, reply exactly: ` + domain.DeclineAnswer

// contextEntry is one passage of the assembled context, numbered from 1
type contextEntry struct {
	n     int
	chunk *domain.Chunk
	score float64
}

// assembleContext picks passages best-first until the character budget
// would be exceeded. Passages scoring below threshold are skipped. The
// first passage is truncated rather than dropped so the context is never
// empty while candidates exist.
func assembleContext(retrieved []domain.ScoredChunk, budget int, threshold float64) ([]contextEntry, string) {
	ranked := make([]domain.ScoredChunk, 0, len(retrieved))
	for _, sc := range retrieved {
		if sc.Chunk != nil && sc.Score >= threshold {
			ranked = append(ranked, sc)
		}
	}
	domain.SortScored(ranked)

	var b strings.Builder
	entries := make([]contextEntry, 0, len(ranked))
	for _, sc := range ranked {
		n := len(entries) + 1
		block := formatPassage(n, sc.Chunk, sc.Chunk.Text)
		if b.Len()+len(block) > budget {
			if len(entries) > 0 {
				break
			}
			room := budget - len(formatPassage(n, sc.Chunk, ""))
			if room <= 0 {
				break
			}
			block = formatPassage(n, sc.Chunk, truncateRunes(sc.Chunk.Text, room))
		}
		b.WriteString(block)
		entries = append(entries, contextEntry{n: n, chunk: sc.Chunk, score: sc.Score})
	}
	return entries, b.String()
}

func formatPassage(n int, c *domain.Chunk, text string) string {
	if c.Page > 0 {
		return fmt.Sprintf("[%d] (page %d)\n%s\n\n", n, c.Page, strings.TrimSpace(text))
	}
	return fmt.Sprintf("[%d]\n%s\n\n", n, strings.TrimSpace(text))
}

// truncateRunes cuts s to at most max bytes on a rune boundary
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

func buildPrompt(contextText, question string) string {
	return fmt.Sprintf("Context:\n%s\nQuestion: %s\nAnswer:", contextText, strings.TrimSpace(question))
}

var citationPattern = regexp.MustCompile(`\[(\d+)\]`)

// citedChunks returns the context chunks referenced by [n] markers, in
// first-citation order. Markers outside the context are ignored.
func citedChunks(text string, entries []contextEntry) []*domain.Chunk {
	byN := make(map[int]*domain.Chunk, len(entries))
	for _, e := range entries {
		byN[e.n] = e.chunk
	}

	seen := make(map[int]bool)
	var cited []*domain.Chunk
	for _, m := range citationPattern.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || seen[n] {
			continue
		}
		if c, ok := byN[n]; ok {
			seen[n] = true
			cited = append(cited, c)
		}
	}
	return cited
}

func entryChunks(entries []contextEntry) []*domain.Chunk {
	chunks := make([]*domain.Chunk, len(entries))
	for i, e := range entries {
		chunks[i] = e.chunk
	}
	return chunks
}

var declinePhrases = []string{
	"not available in the provided",
	"not mentioned",
	"not specified",
	"does not contain",
	"does not mention",
	"no information",
	"cannot find",
	"unable to find",
}

func isDecline(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range declinePhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// retrievalStrength is the mean score of the best three passages, boosted
// by 20% and capped at 1.
func retrievalStrength(entries []contextEntry) float64 {
	if len(entries) == 0 {
		return 0
	}
	n := len(entries)
	if n > 3 {
		n = 3
	}
	var sum float64
	for _, e := range entries[:n] {
		sum += e.score
	}
	return domain.ClampConfidence(sum / float64(n) * 1.2)
}

// specificity rewards answers of useful length that carry concrete figures
func specificity(text string) float64 {
	if isDecline(text) {
		return 0
	}
	s := 0.4
	switch n := utf8.RuneCountInString(text); {
	case n >= 50 && n <= 500:
		s += 0.3
	case n < 15:
		s -= 0.2
	}
	if strings.IndexFunc(text, unicode.IsDigit) >= 0 {
		s += 0.3
	}
	return domain.ClampConfidence(s)
}

// heuristicConfidence combines retrieval strength with answer specificity.
// Declines never score above 0.2.
func heuristicConfidence(entries []contextEntry, text string) float64 {
	c := 0.6*retrievalStrength(entries) + 0.4*specificity(text)
	if isDecline(text) && c > 0.2 {
		c = 0.2
	}
	return domain.ClampConfidence(c)
}

func declineAnswer(question string) *domain.Answer {
	return &domain.Answer{
		Question:     question,
		Text:         domain.DeclineAnswer,
		Confidence:   0,
		SourceChunks: []*domain.Chunk{},
	}
}

// groundedGenerator answers with an LLM constrained to the assembled context
type groundedGenerator struct {
	llm driven.LLMService
	cfg GeneratorConfig
}

// NewGroundedGenerator creates a generator backed by llm
func NewGroundedGenerator(llm driven.LLMService, cfg GeneratorConfig) Generator {
	return &groundedGenerator{llm: llm, cfg: cfg}
}

func (g *groundedGenerator) Name() string {
	return domain.GeneratorGrounded
}

func (g *groundedGenerator) Generate(ctx context.Context, question string, retrieved []domain.ScoredChunk) (*domain.Answer, error) {
	entries, contextText := assembleContext(retrieved, g.cfg.ContextBudget, g.cfg.SimilarityThreshold)
	if len(entries) == 0 {
		return declineAnswer(question), nil
	}

	completion, err := g.llm.Complete(ctx, driven.CompletionRequest{
		System:      systemPrompt,
		Prompt:      buildPrompt(contextText, question),
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
	})
	if err != nil {
		if errors.Is(err, domain.ErrGeneration) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrGeneration, err)
	}

	text := strings.TrimSpace(completion.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty completion", domain.ErrGeneration)
	}

	answer := &domain.Answer{Question: question, Text: text, SourceChunks: []*domain.Chunk{}}
	decline := isDecline(text)
	if !decline {
		answer.SourceChunks = citedChunks(text, entries)
		if len(answer.SourceChunks) == 0 {
			answer.SourceChunks = entryChunks(entries)
		}
	}

	if completion.Confidence != nil {
		answer.Confidence = domain.ClampConfidence(*completion.Confidence)
		if decline && answer.Confidence > 0.2 {
			answer.Confidence = 0.2
		}
	} else {
		answer.Confidence = heuristicConfidence(entries, text)
	}
	return answer, nil
}

// extractiveGenerator answers with the context sentence sharing the most
// words with the question. Used when no LLM is configured.
type extractiveGenerator struct {
	cfg GeneratorConfig
}

// NewExtractiveGenerator creates the LLM-free generator
func NewExtractiveGenerator(cfg GeneratorConfig) Generator {
	return &extractiveGenerator{cfg: cfg}
}

func (g *extractiveGenerator) Name() string {
	return domain.GeneratorExtractive
}

func (g *extractiveGenerator) Generate(ctx context.Context, question string, retrieved []domain.ScoredChunk) (*domain.Answer, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGeneration, err)
	}

	entries, _ := assembleContext(retrieved, g.cfg.ContextBudget, g.cfg.SimilarityThreshold)
	qTerms := termSet(question)
	if len(entries) == 0 || len(qTerms) == 0 {
		return declineAnswer(question), nil
	}

	best, bestOverlap := "", 0.0
	for _, e := range entries {
		for _, sentence := range splitSentences(e.chunk.Text) {
			overlap := termOverlap(qTerms, termSet(sentence))
			if overlap > bestOverlap {
				best, bestOverlap = sentence, overlap
			}
		}
	}
	if best == "" {
		return declineAnswer(question), nil
	}

	var sources []*domain.Chunk
	for _, e := range entries {
		if strings.Contains(e.chunk.Text, best) {
			sources = append(sources, e.chunk)
		}
	}
	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].SequenceIndex < sources[j].SequenceIndex
	})

	return &domain.Answer{
		Question:     question,
		Text:         best,
		Confidence:   heuristicConfidence(entries, best),
		SourceChunks: sources,
	}, nil
}

var sentenceEnd = regexp.MustCompile(`[.!?]\s+|\n+`)

// splitSentences splits text after terminal punctuation or line breaks
func splitSentences(text string) []string {
	var out []string
	last := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		end := loc[0]
		if text[loc[0]] != '\n' {
			end++ // keep the punctuation
		}
		if s := strings.TrimSpace(text[last:end]); s != "" {
			out = append(out, s)
		}
		last = loc[1]
	}
	if s := strings.TrimSpace(text[last:]); s != "" {
		out = append(out, s)
	}
	return out
}

var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true, "be": true,
	"by": true, "does": true, "do": true, "for": true, "from": true, "how": true, "in": true,
	"is": true, "it": true, "of": true, "on": true, "or": true, "the": true, "this": true,
	"to": true, "under": true, "what": true, "when": true, "which": true, "who": true,
	"with": true, "there": true, "any": true,
}

func termSet(text string) map[string]bool {
	terms := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if !stopWords[w] {
			terms[w] = true
		}
	}
	return terms
}

// termOverlap is the fraction of question terms present in the sentence
func termOverlap(question, sentence map[string]bool) float64 {
	if len(question) == 0 {
		return 0
	}
	hits := 0
	for t := range question {
		if sentence[t] {
			hits++
		}
	}
	return float64(hits) / float64(len(question))
}
