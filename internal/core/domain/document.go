package domain

import (
	"sort"
	"time"
)

// DocumentFormat identifies how raw document bytes were decoded
type DocumentFormat string

const (
	FormatPDF   DocumentFormat = "pdf"
	FormatText  DocumentFormat = "text"
	FormatHTML  DocumentFormat = "html"
	FormatEmail DocumentFormat = "email"
	FormatDOCX  DocumentFormat = "docx"
)

// PageBreak separates consecutive pages in decoded PDF text
const PageBreak = "\f"

// Document is a fetched and decoded source document.
// It is immutable once decoding completes.
type Document struct {
	ID          string         `json:"id"` // Content hash of Raw
	SourceURL   string         `json:"source_url"`
	ContentType string         `json:"content_type"`
	Format      DocumentFormat `json:"format"`
	Raw         []byte         `json:"-"`
	Text        string         `json:"text"`
	PageOffsets []int          `json:"page_offsets,omitempty"` // Start offset of each page in Text
	FetchedAt   time.Time      `json:"fetched_at"`
}

// PageAt returns the 1-based page containing offset, or 0 when the
// document has no page structure.
func (d *Document) PageAt(offset int) int {
	if d == nil || len(d.PageOffsets) == 0 {
		return 0
	}
	// First page whose start is beyond offset, minus one
	idx := sort.SearchInts(d.PageOffsets, offset+1)
	if idx == 0 {
		return 1
	}
	return idx
}

// DecodedText is the output of a normaliser
type DecodedText struct {
	Text        string
	PageOffsets []int
}

// Chunk is a contiguous span of a document's text used as the unit of retrieval.
// Text always equals Document.Text[StartOffset:EndOffset].
type Chunk struct {
	ID            string `json:"id"`
	DocumentID    string `json:"document_id"`
	Text          string `json:"text"`
	StartOffset   int    `json:"start_offset"`
	EndOffset     int    `json:"end_offset"`
	SequenceIndex int    `json:"sequence_index"`
	Page          int    `json:"page,omitempty"`
}

// Len returns the chunk length in bytes
func (c *Chunk) Len() int {
	return c.EndOffset - c.StartOffset
}

// Embedding associates a vector with the chunk it was computed from
type Embedding struct {
	ChunkID string    `json:"chunk_id"`
	Vector  []float32 `json:"vector"`
	ModelID string    `json:"model_id"`
}

// IndexSnapshot is a fully built, immutable index for one document.
// It is what the cross-request cache stores.
type IndexSnapshot struct {
	DocumentID string      `json:"document_id"`
	SourceURL  string      `json:"source_url"`
	Model      string      `json:"model"`
	Dimensions int         `json:"dimensions"`
	Chunks     []*Chunk    `json:"chunks"`
	Vectors    [][]float32 `json:"vectors"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Valid reports whether the snapshot holds one vector per chunk, all of the
// declared dimensionality.
func (s *IndexSnapshot) Valid() bool {
	if s == nil || len(s.Chunks) != len(s.Vectors) {
		return false
	}
	for _, v := range s.Vectors {
		if len(v) != s.Dimensions {
			return false
		}
	}
	return true
}
