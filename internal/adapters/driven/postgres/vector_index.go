package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven"
)

// BackendName identifies the pgvector index
const BackendName = "postgres"

// Verify interface compliance
var (
	_ driven.VectorIndexProvider = (*IndexProvider)(nil)
	_ driven.VectorIndex         = (*VectorIndex)(nil)
)

// IndexProvider opens scoped indexes on the docqa_chunks table
type IndexProvider struct {
	db *DB
}

// NewIndexProvider creates a new pgvector IndexProvider
func NewIndexProvider(db *DB) *IndexProvider {
	return &IndexProvider{db: db}
}

// Open verifies the database is reachable and returns the index for scope
func (p *IndexProvider) Open(ctx context.Context, scope string) (driven.VectorIndex, error) {
	if err := p.HealthCheck(ctx); err != nil {
		return nil, err
	}
	return &VectorIndex{db: p.db, scope: scope}, nil
}

// Name returns "postgres"
func (p *IndexProvider) Name() string {
	return BackendName
}

// HealthCheck pings the database
func (p *IndexProvider) HealthCheck(ctx context.Context) error {
	if p.db == nil {
		return fmt.Errorf("%w: postgres not configured", domain.ErrIndex)
	}
	if err := p.db.Ping(ctx); err != nil {
		return fmt.Errorf("%w: postgres unreachable: %v", domain.ErrIndex, err)
	}
	return nil
}

// VectorIndex is a scope of the docqa_chunks table
type VectorIndex struct {
	db    *DB
	scope string
}

// Upsert adds or replaces the row for chunk.ID within the scope
func (x *VectorIndex) Upsert(ctx context.Context, chunk *domain.Chunk, vector []float32) error {
	if chunk == nil || chunk.ID == "" {
		return fmt.Errorf("%w: chunk id is required", domain.ErrIndex)
	}
	if len(vector) == 0 {
		return fmt.Errorf("%w: empty vector for chunk %s", domain.ErrIndex, chunk.ID)
	}

	query := `
		INSERT INTO docqa_chunks (scope, chunk_id, document_id, content, start_offset, end_offset, sequence_index, page, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::vector)
		ON CONFLICT (scope, chunk_id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			content = EXCLUDED.content,
			start_offset = EXCLUDED.start_offset,
			end_offset = EXCLUDED.end_offset,
			sequence_index = EXCLUDED.sequence_index,
			page = EXCLUDED.page,
			embedding = EXCLUDED.embedding
	`

	_, err := x.db.ExecContext(ctx, query,
		x.scope,
		chunk.ID,
		chunk.DocumentID,
		chunk.Text,
		chunk.StartOffset,
		chunk.EndOffset,
		chunk.SequenceIndex,
		chunk.Page,
		VectorLiteral(vector),
	)
	if err != nil {
		return wrapError("upsert chunk", err)
	}
	return nil
}

// Query returns the k rows nearest to vector by cosine distance
func (x *VectorIndex) Query(ctx context.Context, vector []float32, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		return []domain.ScoredChunk{}, nil
	}

	query := `
		SELECT chunk_id, document_id, content, start_offset, end_offset, sequence_index, page,
			1 - (embedding <=> $2::vector) AS score
		FROM docqa_chunks
		WHERE scope = $1
		ORDER BY embedding <=> $2::vector, sequence_index
		LIMIT $3
	`

	rows, err := x.db.QueryContext(ctx, query, x.scope, VectorLiteral(vector), k)
	if err != nil {
		return nil, wrapError("query chunks", err)
	}
	defer rows.Close()

	results := make([]domain.ScoredChunk, 0, k)
	for rows.Next() {
		var c domain.Chunk
		var score float64
		if err := rows.Scan(
			&c.ID,
			&c.DocumentID,
			&c.Text,
			&c.StartOffset,
			&c.EndOffset,
			&c.SequenceIndex,
			&c.Page,
			&score,
		); err != nil {
			return nil, wrapError("scan chunk", err)
		}
		if math.IsNaN(score) {
			score = 0
		}
		results = append(results, domain.ScoredChunk{Chunk: &c, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError("read chunks", err)
	}

	// Distances equal to float precision can still arrive out of sequence order
	domain.SortScored(results)
	return results, nil
}

// Clear deletes every row of the scope
func (x *VectorIndex) Clear(ctx context.Context) error {
	if _, err := x.db.ExecContext(ctx, `DELETE FROM docqa_chunks WHERE scope = $1`, x.scope); err != nil {
		return wrapError("clear scope", err)
	}
	return nil
}

// Len counts the rows of the scope
func (x *VectorIndex) Len(ctx context.Context) (int, error) {
	var n int
	err := x.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM docqa_chunks WHERE scope = $1`, x.scope).Scan(&n)
	if err != nil {
		return 0, wrapError("count chunks", err)
	}
	return n, nil
}

// Backend returns "postgres"
func (x *VectorIndex) Backend() string {
	return BackendName
}

// VectorLiteral formats v as a pgvector text literal, e.g. "[0.1,0.2]"
func VectorLiteral(v []float32) string {
	var b strings.Builder
	b.Grow(len(v) * 10)
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(x), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// wrapError marks every database failure as an index error so the
// pipeline can fall back to the in-process index.
func wrapError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("%w: failed to %s: %s (%s)", domain.ErrIndex, op, pqErr.Message, pqErr.Code.Name())
	}
	return fmt.Errorf("%w: failed to %s: %v", domain.ErrIndex, op, err)
}
