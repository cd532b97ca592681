package domain

import (
	"fmt"
	"strings"
	"time"
)

// DeclineAnswer is returned when the supplied context does not contain the answer
const DeclineAnswer = "The information is not available in the provided document."

// Answer is the result for one question. Immutable once produced.
type Answer struct {
	Question       string        `json:"question"`
	Text           string        `json:"text"`
	Confidence     float64       `json:"confidence"`
	SourceChunks   []*Chunk      `json:"source_chunks"`
	ProcessingTime time.Duration `json:"processing_time" swaggertype:"integer" example:"1500000"`

	// Placeholder marks an answer substituted after a per-question failure
	Placeholder bool   `json:"placeholder,omitempty"`
	Failure     string `json:"failure,omitempty"`
}

// PlaceholderAnswer builds the declared-uncertain answer used when a question failed
func PlaceholderAnswer(question string, cause error) *Answer {
	reason := "unknown error"
	if cause != nil {
		reason = cause.Error()
	}
	return &Answer{
		Question:    question,
		Text:        fmt.Sprintf("Unable to answer this question: %s", reason),
		Confidence:  0,
		Placeholder: true,
		Failure:     reason,
	}
}

// SourceSummary renders the answer's sources as a short human-readable string
func (a *Answer) SourceSummary() string {
	if a == nil || len(a.SourceChunks) == 0 {
		return "no source"
	}
	parts := make([]string, 0, len(a.SourceChunks))
	for _, c := range a.SourceChunks {
		if c.Page > 0 {
			parts = append(parts, fmt.Sprintf("page %d (chunk %d)", c.Page, c.SequenceIndex))
		} else {
			parts = append(parts, fmt.Sprintf("chunk %d", c.SequenceIndex))
		}
	}
	return strings.Join(parts, ", ")
}

// ClampConfidence bounds a confidence value to [0,1]
func ClampConfidence(v float64) float64 {
	switch {
	case v != v: // NaN
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// QueryRequest is the inbound request: one document, many questions
type QueryRequest struct {
	Documents string   `json:"documents" example:"https://example.com/policy.pdf"`
	Questions []string `json:"questions"`
}

// Validate checks the request is answerable
func (r *QueryRequest) Validate() error {
	if strings.TrimSpace(r.Documents) == "" {
		return fmt.Errorf("%w: documents is required", ErrInvalidInput)
	}
	if len(r.Questions) == 0 {
		return fmt.Errorf("%w: at least one question is required", ErrInvalidInput)
	}
	return nil
}

// QueryResult holds one answer per question, in question order
type QueryResult struct {
	RequestID      string        `json:"request_id"`
	DocumentID     string        `json:"document_id"`
	Answers        []*Answer     `json:"answers"`
	IndexBackend   string        `json:"index_backend"`
	CacheHit       bool          `json:"cache_hit"`
	ProcessingTime time.Duration `json:"processing_time" swaggertype:"integer" example:"1500000"`
}

// ResponseMode selects the outbound response shape
type ResponseMode string

const (
	ResponseModeMinimal  ResponseMode = "minimal"
	ResponseModeExtended ResponseMode = "extended"
)

// QueryResponse is the outbound wire format
type QueryResponse struct {
	Answers          []string  `json:"answers"`
	ConfidenceScores []float64 `json:"confidence_scores,omitempty"`
	Sources          []string  `json:"sources,omitempty"`
	ProcessingTime   *float64  `json:"processing_time,omitempty"`
}

// Response converts a result to the wire format for the given mode
func (r *QueryResult) Response(mode ResponseMode) QueryResponse {
	resp := QueryResponse{Answers: make([]string, len(r.Answers))}
	for i, a := range r.Answers {
		resp.Answers[i] = a.Text
	}
	if mode == ResponseModeMinimal {
		return resp
	}

	resp.ConfidenceScores = make([]float64, len(r.Answers))
	resp.Sources = make([]string, len(r.Answers))
	for i, a := range r.Answers {
		resp.ConfidenceScores[i] = a.Confidence
		resp.Sources[i] = a.SourceSummary()
	}
	secs := r.ProcessingTime.Seconds()
	resp.ProcessingTime = &secs
	return resp
}
