package vespa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven"
)

// BackendName identifies the Vespa index
const BackendName = "vespa"

// Verify interface compliance
var (
	_ driven.VectorIndexProvider = (*IndexProvider)(nil)
	_ driven.VectorIndex         = (*VectorIndex)(nil)
)

// Config holds Vespa connection configuration
type Config struct {
	// BaseURL is the Vespa container endpoint (e.g., http://localhost:8080)
	BaseURL string

	// Namespace and Cluster address the document API
	Namespace string
	Cluster   string

	// Timeout for HTTP requests
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:   baseURL,
		Namespace: "docqa",
		Cluster:   "docqa",
		Timeout:   30 * time.Second,
	}
}

// IndexProvider opens scoped indexes on a Vespa chunk document type
type IndexProvider struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
}

// NewIndexProvider creates a new Vespa-backed IndexProvider
func NewIndexProvider(cfg Config) *IndexProvider {
	if cfg.Namespace == "" {
		cfg.Namespace = "docqa"
	}
	if cfg.Cluster == "" {
		cfg.Cluster = "docqa"
	}
	return &IndexProvider{
		cfg:     cfg,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Open verifies the cluster is healthy and returns the index for scope
func (p *IndexProvider) Open(ctx context.Context, scope string) (driven.VectorIndex, error) {
	if err := p.HealthCheck(ctx); err != nil {
		return nil, err
	}
	return &VectorIndex{provider: p, scope: scope}, nil
}

// Name returns "vespa"
func (p *IndexProvider) Name() string {
	return BackendName
}

// HealthCheck verifies the search container is up
func (p *IndexProvider) HealthCheck(ctx context.Context) error {
	url := fmt.Sprintf("%s/state/v1/health", p.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndex, err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: vespa health check failed: %v", domain.ErrIndex, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: vespa unhealthy: %s", domain.ErrIndex, resp.Status)
	}
	return nil
}

// VectorIndex is the slice of the chunk document type sharing one scope
type VectorIndex struct {
	provider *IndexProvider
	scope    string
}

// vespaDocument represents a document in Vespa format
type vespaDocument struct {
	Fields vespaFields `json:"fields"`
}

type vespaFields struct {
	Scope         string        `json:"scope"`
	ChunkID       string        `json:"chunk_id"`
	DocumentID    string        `json:"document_id"`
	Content       string        `json:"content"`
	StartOffset   int           `json:"start_offset"`
	EndOffset     int           `json:"end_offset"`
	SequenceIndex int           `json:"sequence_index"`
	Page          int           `json:"page"`
	Embedding     *tensorValues `json:"embedding,omitempty"`
}

type tensorValues struct {
	Values []float32 `json:"values"`
}

// Upsert feeds the chunk through the document API
func (x *VectorIndex) Upsert(ctx context.Context, chunk *domain.Chunk, vector []float32) error {
	if chunk == nil || chunk.ID == "" {
		return fmt.Errorf("%w: chunk id is required", domain.ErrIndex)
	}
	if len(vector) == 0 {
		return fmt.Errorf("%w: empty vector for chunk %s", domain.ErrIndex, chunk.ID)
	}

	doc := vespaDocument{
		Fields: vespaFields{
			Scope:         x.scope,
			ChunkID:       chunk.ID,
			DocumentID:    chunk.DocumentID,
			Content:       chunk.Text,
			StartOffset:   chunk.StartOffset,
			EndOffset:     chunk.EndOffset,
			SequenceIndex: chunk.SequenceIndex,
			Page:          chunk.Page,
			Embedding:     &tensorValues{Values: vector},
		},
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndex, err)
	}

	// Vespa document API: POST /document/v1/{namespace}/{doctype}/docid/{docid}
	resp, err := x.provider.do(ctx, http.MethodPost, x.documentURL(chunk.ID), body)
	if err != nil {
		return fmt.Errorf("%w: failed to index chunk %s: %v", domain.ErrIndex, chunk.ID, err)
	}
	resp.Body.Close()
	return nil
}

// Query runs a nearestNeighbor search restricted to the scope
func (x *VectorIndex) Query(ctx context.Context, vector []float32, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		return []domain.ScoredChunk{}, nil
	}

	searchReq := map[string]interface{}{
		"yql":             buildYQL(x.scope, k),
		"hits":            k,
		"ranking.profile": "docqa",
		"input.query(q)":  vector,
	}

	var searchResp vespaSearchResponse
	if err := x.provider.search(ctx, searchReq, &searchResp); err != nil {
		return nil, err
	}

	results := make([]domain.ScoredChunk, 0, len(searchResp.Root.Children))
	for _, hit := range searchResp.Root.Children {
		f := hit.Fields
		results = append(results, domain.ScoredChunk{
			Chunk: &domain.Chunk{
				ID:            f.ChunkID,
				DocumentID:    f.DocumentID,
				Text:          f.Content,
				StartOffset:   f.StartOffset,
				EndOffset:     f.EndOffset,
				SequenceIndex: f.SequenceIndex,
				Page:          f.Page,
			},
			Score: hit.Relevance,
		})
	}

	// Vespa orders equal relevance arbitrarily
	domain.SortScored(results)
	return results, nil
}

// Clear removes every document of the scope by selection
func (x *VectorIndex) Clear(ctx context.Context) error {
	p := x.provider
	selection := fmt.Sprintf("chunk.scope==\"%s\"", escapeQuotes(x.scope))
	u := fmt.Sprintf("%s/document/v1/%s/chunk/docid/?selection=%s&cluster=%s",
		p.baseURL, p.cfg.Namespace, url.QueryEscape(selection), url.QueryEscape(p.cfg.Cluster))

	resp, err := p.do(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return fmt.Errorf("%w: vespa delete by selection failed: %v", domain.ErrIndex, err)
	}
	resp.Body.Close()
	return nil
}

// Len returns the scope's document count
func (x *VectorIndex) Len(ctx context.Context) (int, error) {
	searchReq := map[string]interface{}{
		"yql":  fmt.Sprintf("select * from chunk where scope contains \"%s\"", escapeQuotes(x.scope)),
		"hits": 0,
	}

	var searchResp vespaSearchResponse
	if err := x.provider.search(ctx, searchReq, &searchResp); err != nil {
		return 0, err
	}
	return int(searchResp.Root.Fields.TotalCount), nil
}

// Backend returns "vespa"
func (x *VectorIndex) Backend() string {
	return BackendName
}

func (x *VectorIndex) documentURL(chunkID string) string {
	p := x.provider
	return fmt.Sprintf("%s/document/v1/%s/chunk/docid/%s",
		p.baseURL, p.cfg.Namespace, url.PathEscape(x.scope+"::"+chunkID))
}

func buildYQL(scope string, k int) string {
	return fmt.Sprintf(
		"select * from chunk where scope contains \"%s\" and ({targetHits:%d}nearestNeighbor(embedding,q))",
		escapeQuotes(scope), k,
	)
}

func escapeQuotes(s string) string {
	return strings.ReplaceAll(s, "\"", "\\\"")
}

// vespaSearchResponse represents Vespa's search response format
type vespaSearchResponse struct {
	Root struct {
		Fields struct {
			TotalCount int64 `json:"totalCount"`
		} `json:"fields"`
		Children []struct {
			Relevance float64     `json:"relevance"`
			Fields    vespaFields `json:"fields"`
		} `json:"children"`
	} `json:"root"`
}

func (p *IndexProvider) search(ctx context.Context, searchReq map[string]interface{}, out *vespaSearchResponse) error {
	body, err := json.Marshal(searchReq)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndex, err)
	}

	resp, err := p.do(ctx, http.MethodPost, p.baseURL+"/search/", body)
	if err != nil {
		return fmt.Errorf("%w: vespa search failed: %v", domain.ErrIndex, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: invalid vespa search response: %v", domain.ErrIndex, err)
	}
	return nil
}

// do sends a request and turns any status >= 400 into an error.
// The caller closes the body of a successful response.
func (p *IndexProvider) do(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("%s - %s", resp.Status, strings.TrimSpace(string(respBody)))
	}
	return resp, nil
}
