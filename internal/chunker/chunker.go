package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Chunker = (*Chunker)(nil)

// Chunker splits document text into overlapping windows.
// It is stateless and safe for concurrent use.
type Chunker struct{}

// New creates a new chunker.
func New() *Chunker {
	return &Chunker{}
}

// span is a half-open byte range of the source text
type span struct {
	start, end int
}

// Chunk splits the document's text into chunks.
// Consecutive chunks share at least opts.Overlap bytes and together cover the
// whole text. Identical text and options always produce identical boundaries.
func (c *Chunker) Chunk(doc *domain.Document, opts driven.ChunkOptions) []*domain.Chunk {
	if doc == nil || len(doc.Text) == 0 {
		return nil
	}
	opts = normaliseOptions(opts)

	spans := splitSpans(doc.Text, opts)
	chunks := make([]*domain.Chunk, 0, len(spans))
	for i, s := range spans {
		chunks = append(chunks, &domain.Chunk{
			ID:            fmt.Sprintf("%s:%d", doc.ID, i),
			DocumentID:    doc.ID,
			Text:          doc.Text[s.start:s.end],
			StartOffset:   s.start,
			EndOffset:     s.end,
			SequenceIndex: i,
			Page:          doc.PageAt(s.start),
		})
	}
	return chunks
}

// normaliseOptions fills zero values with defaults and clamps overlap below size
func normaliseOptions(opts driven.ChunkOptions) driven.ChunkOptions {
	def := driven.DefaultChunkOptions()
	if opts.Size <= 0 {
		opts.Size = def.Size
	}
	if opts.Overlap < 0 {
		opts.Overlap = 0
	}
	if opts.Overlap >= opts.Size {
		opts.Overlap = opts.Size - 1
	}
	if opts.BoundaryLookback < 0 {
		opts.BoundaryLookback = 0
	}
	if opts.MinTailChars < 0 {
		opts.MinTailChars = 0
	}
	if stride := opts.Size - opts.Overlap; opts.MinTailChars > stride {
		opts.MinTailChars = stride
	}
	return opts
}

// splitSpans computes chunk boundaries.
func splitSpans(text string, opts driven.ChunkOptions) []span {
	n := len(text)
	if n <= opts.Size {
		return []span{{0, n}}
	}

	var spans []span
	start := 0
	for {
		// Final window
		if n-start <= opts.Size {
			if last := len(spans) - 1; last >= 0 && n-spans[last].end < opts.MinTailChars {
				spans[last].end = n
			} else {
				spans = append(spans, span{start, n})
			}
			break
		}

		end := start + opts.Size
		// A boundary must leave the next window starting after this one
		floor := start + opts.Overlap + 1
		if bp := findBreakPoint(text, floor, end, opts.BoundaryLookback); bp > 0 {
			end = bp
		} else {
			end = runeFloor(text, floor, end)
		}

		spans = append(spans, span{start, end})
		if opts.MaxChunks > 0 && len(spans) >= opts.MaxChunks {
			break
		}
		start = runeStartAfter(text, start, end-opts.Overlap)
	}
	return spans
}

// findBreakPoint finds a natural boundary in [max(floor, maxEnd-lookback), maxEnd).
// Paragraph breaks win over sentence ends. Returns 0 when none is found.
func findBreakPoint(text string, floor, maxEnd, lookback int) int {
	searchStart := maxEnd - lookback
	if searchStart < floor {
		searchStart = floor
	}
	if searchStart >= maxEnd {
		return 0
	}

	searchContent := text[searchStart:maxEnd]

	// Paragraph boundary (blank line)
	if idx := strings.LastIndex(searchContent, "\n\n"); idx != -1 {
		return searchStart + idx + 2
	}

	// Sentence boundary: terminator followed by whitespace
	for i := len(searchContent) - 2; i >= 0; i-- {
		switch searchContent[i] {
		case '.', '!', '?':
			switch searchContent[i+1] {
			case ' ', '\n', '\t', '\r', '\f':
				return searchStart + i + 2
			}
		}
	}

	return 0
}

// runeStartAfter moves a window start at pos back to the nearest rune start
// that still lies after prev, widening the overlap. When none exists it moves
// forward instead.
func runeStartAfter(text string, prev, pos int) int {
	for s := pos; s > prev; s-- {
		if utf8.RuneStart(text[s]) {
			return s
		}
	}
	for s := pos + 1; s < len(text); s++ {
		if utf8.RuneStart(text[s]) {
			return s
		}
	}
	return pos
}

// runeFloor moves a hard cutoff back to a rune boundary so chunks hold valid UTF-8
func runeFloor(text string, floor, end int) int {
	for e := end; e > floor; e-- {
		if e >= len(text) || utf8.RuneStart(text[e]) {
			return e
		}
	}
	return end
}
