package driven

import "github.com/custodia-labs/sercha-docqa/internal/core/domain"

// Normaliser decodes raw document bytes of one family of formats into text.
type Normaliser interface {
	// Normalise decodes content. The mimeType is the detected type,
	// possibly with parameters such as charset.
	Normalise(content []byte, mimeType string) (*domain.DecodedText, error)

	// SupportedTypes returns MIME types this normaliser handles.
	// Can include wildcards like "text/*".
	SupportedTypes() []string

	// Format names the document format produced
	Format() domain.DocumentFormat

	// Priority returns the normaliser priority (higher = more specific).
	// Priority ranges:
	//   50-89:  Format-specific (PDF, DOCX, HTML, email)
	//   10-49:  Generic (structured text)
	//   1-9:    Fallback
	Priority() int
}

// NormaliserRegistry manages content normalisers.
// When multiple normalisers match a MIME type, the highest priority one is used.
type NormaliserRegistry interface {
	// Get retrieves the best-matching normaliser for a MIME type.
	// Returns nil if no normaliser is registered for the type.
	Get(mimeType string) Normaliser

	// Register registers a normaliser.
	Register(normaliser Normaliser)

	// List returns all registered MIME types.
	List() []string
}

// Chunker splits decoded document text into overlapping chunks
type Chunker interface {
	// Chunk splits the document's text. Chunks cover the text without gaps.
	Chunk(doc *domain.Document, opts ChunkOptions) []*domain.Chunk
}

// ChunkOptions configures chunking behavior
type ChunkOptions struct {
	Size             int // Window length in characters
	Overlap          int // Characters shared by consecutive chunks
	BoundaryLookback int // How far back from the hard cutoff to look for a boundary
	MinTailChars     int // Shorter final windows are merged into the previous chunk
	MaxChunks        int // 0 = unlimited
}

// DefaultChunkOptions returns sensible defaults
func DefaultChunkOptions() ChunkOptions {
	return ChunkOptions{
		Size:             1000,
		Overlap:          200,
		BoundaryLookback: 100,
		MinTailChars:     50,
	}
}
