package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven"
)

func textDoc(text string) *domain.Document {
	return &domain.Document{ID: "doc", Text: text}
}

// assertCoverage checks chunks tile the text without gaps and match their offsets
func assertCoverage(t *testing.T, text string, chunks []*domain.Chunk) {
	t.Helper()
	if len(chunks) == 0 {
		t.Fatal("expected at least one chunk")
	}
	if chunks[0].StartOffset != 0 {
		t.Errorf("first chunk starts at %d, want 0", chunks[0].StartOffset)
	}
	if last := chunks[len(chunks)-1]; last.EndOffset != len(text) {
		t.Errorf("last chunk ends at %d, want %d", last.EndOffset, len(text))
	}
	for i, c := range chunks {
		if c.Text != text[c.StartOffset:c.EndOffset] {
			t.Errorf("chunk %d text does not match its offsets", i)
		}
		if c.SequenceIndex != i {
			t.Errorf("chunk %d has sequence index %d", i, c.SequenceIndex)
		}
		if i > 0 && c.StartOffset > chunks[i-1].EndOffset {
			t.Errorf("gap between chunk %d and %d", i-1, i)
		}
		if i > 0 && c.StartOffset <= chunks[i-1].StartOffset {
			t.Errorf("chunk %d does not advance", i)
		}
	}
}

func TestChunk_EmptyText(t *testing.T) {
	c := New()
	if chunks := c.Chunk(textDoc(""), driven.DefaultChunkOptions()); len(chunks) != 0 {
		t.Errorf("expected no chunks, got %d", len(chunks))
	}
	if chunks := c.Chunk(nil, driven.DefaultChunkOptions()); chunks != nil {
		t.Error("expected nil for nil document")
	}
}

func TestChunk_ShortTextSingleChunk(t *testing.T) {
	c := New()
	text := "Hello, world!"

	chunks := c.Chunk(textDoc(text), driven.DefaultChunkOptions())

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != text {
		t.Errorf("expected %q, got %q", text, chunks[0].Text)
	}
	if chunks[0].ID != "doc:0" {
		t.Errorf("expected id doc:0, got %s", chunks[0].ID)
	}
	if chunks[0].DocumentID != "doc" {
		t.Errorf("expected document id doc, got %s", chunks[0].DocumentID)
	}
}

func TestChunk_ExactlySizeIsSingleChunk(t *testing.T) {
	text := strings.Repeat("a", 100)
	chunks := New().Chunk(textDoc(text), driven.ChunkOptions{Size: 100, Overlap: 20})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
}

func TestChunk_HardCutoffOverlap(t *testing.T) {
	opts := driven.ChunkOptions{Size: 100, Overlap: 20, BoundaryLookback: 50}
	text := strings.Repeat("a", 250)

	chunks := New().Chunk(textDoc(text), opts)

	assertCoverage(t, text, chunks)
	for i := 1; i < len(chunks); i++ {
		overlap := chunks[i-1].EndOffset - chunks[i].StartOffset
		if overlap < opts.Overlap {
			t.Errorf("chunks %d/%d overlap by %d, want at least %d", i-1, i, overlap, opts.Overlap)
		}
	}
	for _, ch := range chunks[:len(chunks)-1] {
		if ch.Len() != opts.Size {
			t.Errorf("expected hard cutoff at %d chars, got %d", opts.Size, ch.Len())
		}
	}
}

func TestChunk_PrefersParagraphBoundary(t *testing.T) {
	para1 := "First paragraph talks about premiums. It has two sentences."
	para2 := "Second paragraph covers the claims process in some detail and keeps going for a while."
	text := para1 + "\n\n" + para2

	chunks := New().Chunk(textDoc(text), driven.ChunkOptions{Size: 80, Overlap: 10, BoundaryLookback: 40, MinTailChars: 5})

	assertCoverage(t, text, chunks)
	if chunks[0].EndOffset != len(para1)+2 {
		t.Errorf("expected first chunk to end after the blank line at %d, got %d", len(para1)+2, chunks[0].EndOffset)
	}
}

func TestChunk_PrefersSentenceBoundary(t *testing.T) {
	text := "This is sentence one. This is sentence two. This is sentence three."

	chunks := New().Chunk(textDoc(text), driven.ChunkOptions{Size: 50, Overlap: 10, BoundaryLookback: 30, MinTailChars: 5})

	assertCoverage(t, text, chunks)
	if got := chunks[0].Text; got != "This is sentence one. This is sentence two. " {
		t.Errorf("expected first chunk to end at a sentence, got %q", got)
	}
}

func TestChunk_BoundaryNeverBeforeOverlap(t *testing.T) {
	// The only sentence end sits inside the overlap region; taking it would stall the window
	text := "Hi. " + strings.Repeat("x", 200)

	chunks := New().Chunk(textDoc(text), driven.ChunkOptions{Size: 40, Overlap: 10, BoundaryLookback: 100})

	assertCoverage(t, text, chunks)
	if chunks[0].EndOffset != 40 {
		t.Errorf("expected hard cutoff at 40, got %d", chunks[0].EndOffset)
	}
}

func TestChunk_ShortTailMerged(t *testing.T) {
	opts := driven.ChunkOptions{Size: 100, Overlap: 20, MinTailChars: 30}
	text := strings.Repeat("b", 190)

	chunks := New().Chunk(textDoc(text), opts)

	assertCoverage(t, text, chunks)
	// 0-100, 80-180 leaves 10 new chars which is below the tail minimum
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks after tail merge, got %d", len(chunks))
	}
	if chunks[1].EndOffset != 190 {
		t.Errorf("expected merged tail to end at 190, got %d", chunks[1].EndOffset)
	}
}

func TestChunk_LongTailKept(t *testing.T) {
	opts := driven.ChunkOptions{Size: 100, Overlap: 20, MinTailChars: 30}
	text := strings.Repeat("b", 230)

	chunks := New().Chunk(textDoc(text), opts)

	assertCoverage(t, text, chunks)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[2].StartOffset != 160 {
		t.Errorf("expected tail to start at 160, got %d", chunks[2].StartOffset)
	}
}

func TestChunk_GracePeriodScenario(t *testing.T) {
	text := "Grace period is 30 days. PED waiting period is 48 months."

	chunks := New().Chunk(textDoc(text), driven.ChunkOptions{Size: 40, Overlap: 10, BoundaryLookback: 100, MinTailChars: 50})

	assertCoverage(t, text, chunks)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Text != "Grace period is 30 days. " {
		t.Errorf("unexpected first chunk %q", chunks[0].Text)
	}
	if !strings.Contains(chunks[1].Text, "48 months") {
		t.Errorf("expected second chunk to hold the waiting period, got %q", chunks[1].Text)
	}
	if chunks[0].EndOffset-chunks[1].StartOffset != 10 {
		t.Errorf("expected 10 bytes of overlap, got %d", chunks[0].EndOffset-chunks[1].StartOffset)
	}
}

func TestChunk_Deterministic(t *testing.T) {
	text := strings.Repeat("Coverage applies after the waiting period. Claims are paid in 30 days!\n\n", 40)
	opts := driven.DefaultChunkOptions()
	c := New()

	first := c.Chunk(textDoc(text), opts)
	second := c.Chunk(textDoc(text), opts)

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].StartOffset != second[i].StartOffset || first[i].EndOffset != second[i].EndOffset {
			t.Errorf("chunk %d boundaries differ", i)
		}
	}
	assertCoverage(t, text, first)
}

func TestChunk_MaxChunks(t *testing.T) {
	text := strings.Repeat("c", 1000)

	chunks := New().Chunk(textDoc(text), driven.ChunkOptions{Size: 100, Overlap: 10, MaxChunks: 3})

	if len(chunks) != 3 {
		t.Errorf("expected 3 chunks, got %d", len(chunks))
	}
}

func TestChunk_PageNumbers(t *testing.T) {
	page1 := strings.Repeat("p", 60)
	page2 := strings.Repeat("q", 60)
	doc := &domain.Document{
		ID:          "pdf",
		Text:        page1 + domain.PageBreak + page2,
		PageOffsets: []int{0, len(page1) + 1},
	}

	chunks := New().Chunk(doc, driven.ChunkOptions{Size: 50, Overlap: 5, MinTailChars: 5})

	if chunks[0].Page != 1 {
		t.Errorf("expected first chunk on page 1, got %d", chunks[0].Page)
	}
	if last := chunks[len(chunks)-1]; last.Page != 2 {
		t.Errorf("expected last chunk on page 2, got %d", last.Page)
	}
}

func TestChunk_MultibyteHardCutoff(t *testing.T) {
	text := strings.Repeat("é", 120)

	chunks := New().Chunk(textDoc(text), driven.ChunkOptions{Size: 51, Overlap: 10, MinTailChars: 5})

	assertCoverage(t, text, chunks)
	for i, c := range chunks {
		if !strings.HasPrefix(c.Text, "é") && c.StartOffset != 0 {
			t.Errorf("chunk %d starts mid-rune", i)
		}
	}
}

func TestChunk_OverlapStartsOnRuneBoundary(t *testing.T) {
	tests := []struct {
		name string
		text string
		opts driven.ChunkOptions
	}{
		{"devanagari default sizes", strings.Repeat("अनुग्रह", 200), driven.DefaultChunkOptions()},
		{"two-byte runes odd overlap", strings.Repeat("é", 300), driven.ChunkOptions{Size: 50, Overlap: 11, MinTailChars: 5}},
		{"mixed scripts", strings.Repeat("grace अवधि 30 दिन ", 80), driven.ChunkOptions{Size: 97, Overlap: 23, MinTailChars: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := New().Chunk(textDoc(tt.text), tt.opts)

			assertCoverage(t, tt.text, chunks)
			for i, c := range chunks {
				if !utf8.ValidString(c.Text) {
					t.Errorf("chunk %d [%d,%d) is not valid UTF-8", i, c.StartOffset, c.EndOffset)
				}
			}
		})
	}
}

func TestNormaliseOptions(t *testing.T) {
	opts := normaliseOptions(driven.ChunkOptions{Size: 0, Overlap: 5000, MinTailChars: 9999})

	if opts.Size != 1000 {
		t.Errorf("expected default size, got %d", opts.Size)
	}
	if opts.Overlap != 999 {
		t.Errorf("expected overlap clamped to 999, got %d", opts.Overlap)
	}
	if opts.MinTailChars != 1 {
		t.Errorf("expected tail minimum capped at stride, got %d", opts.MinTailChars)
	}
}
