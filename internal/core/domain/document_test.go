package domain

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"
)

func TestDocument_PageAt(t *testing.T) {
	doc := &Document{
		Text:        "page one\fpage two\fpage three",
		PageOffsets: []int{0, 9, 18},
	}

	tests := []struct {
		offset int
		want   int
	}{
		{0, 1},
		{8, 1},
		{9, 2},
		{17, 2},
		{18, 3},
		{27, 3},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("offset_%d", tt.offset), func(t *testing.T) {
			if got := doc.PageAt(tt.offset); got != tt.want {
				t.Errorf("PageAt(%d) = %d, want %d", tt.offset, got, tt.want)
			}
		})
	}
}

func TestDocument_PageAt_NoPages(t *testing.T) {
	doc := &Document{Text: "plain"}
	if got := doc.PageAt(3); got != 0 {
		t.Errorf("expected 0 for a document without pages, got %d", got)
	}

	var nilDoc *Document
	if got := nilDoc.PageAt(0); got != 0 {
		t.Errorf("expected 0 for nil document, got %d", got)
	}
}

func TestIndexSnapshot_Valid(t *testing.T) {
	snap := &IndexSnapshot{
		DocumentID: "doc",
		Dimensions: 2,
		Chunks:     []*Chunk{{ID: "doc:0"}, {ID: "doc:1"}},
		Vectors:    [][]float32{{1, 0}, {0, 1}},
		CreatedAt:  time.Now(),
	}
	if !snap.Valid() {
		t.Error("expected snapshot to be valid")
	}

	snap.Vectors[1] = []float32{1, 0, 0}
	if snap.Valid() {
		t.Error("expected mixed dimensionality to be invalid")
	}

	snap.Vectors = snap.Vectors[:1]
	if snap.Valid() {
		t.Error("expected chunk/vector count mismatch to be invalid")
	}
}

func TestSortScored_TieBreak(t *testing.T) {
	results := []ScoredChunk{
		{Chunk: &Chunk{ID: "c", SequenceIndex: 2}, Score: 0.5},
		{Chunk: &Chunk{ID: "a", SequenceIndex: 0}, Score: 0.5},
		{Chunk: &Chunk{ID: "top", SequenceIndex: 5}, Score: 0.9},
		{Chunk: &Chunk{ID: "b", SequenceIndex: 1}, Score: 0.5},
	}

	SortScored(results)

	want := []string{"top", "a", "b", "c"}
	for i, id := range want {
		if results[i].Chunk.ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, results[i].Chunk.ID)
		}
	}
}

func TestRetrievalResult_Helpers(t *testing.T) {
	r := RetrievalResult{
		{Chunk: &Chunk{ID: "x"}, Score: 0.8},
		{Chunk: &Chunk{ID: "y"}, Score: 0.3},
	}

	if !r.Contains("y") {
		t.Error("expected result to contain y")
	}
	if r.Contains("z") {
		t.Error("did not expect result to contain z")
	}
	if r.TopScore() != 0.8 {
		t.Errorf("expected top score 0.8, got %f", r.TopScore())
	}
	if len(r.Chunks()) != 2 {
		t.Errorf("expected 2 chunks, got %d", len(r.Chunks()))
	}
	if (RetrievalResult{}).TopScore() != 0 {
		t.Error("expected empty top score to be 0")
	}
}

func TestClampConfidence(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.42, 0.42},
		{1, 1},
		{3, 1},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		if got := ClampConfidence(tt.in); got != tt.want {
			t.Errorf("ClampConfidence(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPlaceholderAnswer(t *testing.T) {
	a := PlaceholderAnswer("What?", fmt.Errorf("%w: backend down", ErrGeneration))

	if !a.Placeholder {
		t.Error("expected placeholder flag")
	}
	if a.Confidence != 0 {
		t.Errorf("expected zero confidence, got %f", a.Confidence)
	}
	if a.Question != "What?" {
		t.Errorf("expected question to be kept, got %q", a.Question)
	}
	if a.Failure != "generation failed: backend down" {
		t.Errorf("unexpected failure text %q", a.Failure)
	}
	if len(a.SourceChunks) != 0 {
		t.Error("expected no sources on a placeholder")
	}
}

func TestQueryRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     QueryRequest
		wantErr bool
	}{
		{"valid", QueryRequest{Documents: "https://x/doc.pdf", Questions: []string{"q"}}, false},
		{"missing document", QueryRequest{Questions: []string{"q"}}, true},
		{"no questions", QueryRequest{Documents: "https://x/doc.pdf"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Errorf("expected ErrInvalidInput, got %v", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestQueryResult_Response(t *testing.T) {
	result := &QueryResult{
		Answers: []*Answer{
			{Text: "30 days", Confidence: 0.9, SourceChunks: []*Chunk{{SequenceIndex: 0, Page: 2}}},
			{Text: "unknown", Confidence: 0.1},
		},
		ProcessingTime: 1500 * time.Millisecond,
	}

	minimal := result.Response(ResponseModeMinimal)
	if len(minimal.Answers) != 2 || minimal.Answers[0] != "30 days" {
		t.Errorf("unexpected minimal answers %v", minimal.Answers)
	}
	if minimal.ConfidenceScores != nil || minimal.Sources != nil || minimal.ProcessingTime != nil {
		t.Error("minimal response should only carry answers")
	}

	extended := result.Response(ResponseModeExtended)
	if len(extended.ConfidenceScores) != 2 || extended.ConfidenceScores[0] != 0.9 {
		t.Errorf("unexpected confidence scores %v", extended.ConfidenceScores)
	}
	if extended.Sources[0] != "page 2 (chunk 0)" {
		t.Errorf("unexpected source %q", extended.Sources[0])
	}
	if extended.Sources[1] != "no source" {
		t.Errorf("unexpected source %q", extended.Sources[1])
	}
	if extended.ProcessingTime == nil || *extended.ProcessingTime != 1.5 {
		t.Errorf("unexpected processing time %v", extended.ProcessingTime)
	}
}

func TestStage_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to Stage
		want     bool
	}{
		{StageFetching, StageChunking, true},
		{StageChunking, StageEmbedding, true},
		{StageEmbedding, StageIndexing, true},
		{StageIndexing, StageAnswering, true},
		{StageAnswering, StageDone, true},
		{StageFetching, StageAnswering, true},
		{StageFetching, StageIndexing, false},
		{StageChunking, StageFetching, false},
		{StageIndexing, StageFailed, true},
		{StageDone, StageFailed, false},
		{StageFailed, StageFetching, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPipelineConfig_ValidateOverlapAndConcurrency(t *testing.T) {
	if err := DefaultPipelineConfig().Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}

	cfg := DefaultPipelineConfig()
	cfg.ChunkOverlap = cfg.ChunkSize
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for overlap >= size, got %v", err)
	}

	cfg = DefaultPipelineConfig()
	cfg.MaxConcurrency = 0
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for zero concurrency, got %v", err)
	}
}
