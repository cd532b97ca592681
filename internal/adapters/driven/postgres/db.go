package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
)

//go:embed schema.sql
var schema string

// DB is the pgvector store behind the remote chunk index
type DB struct {
	*sql.DB
}

// Config controls the connection pool. Answering runs at most a few
// concurrent index queries per request, so the pool stays small.
type Config struct {
	URL string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// ConnectTimeout bounds the initial ping
	ConnectTimeout time.Duration
}

// DefaultConfig returns pool settings for url
func DefaultConfig(url string) Config {
	return Config{
		URL:             url,
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: time.Minute,
		ConnectTimeout:  10 * time.Second,
	}
}

// Connect opens the pool and checks the server answers
func Connect(ctx context.Context, cfg Config) (*DB, error) {
	pool, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	pool.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	db := &DB{DB: pool}
	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if err := db.Ping(pingCtx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Open connects and initialises the schema. Failures wrap domain.ErrIndex
// so callers can fall back to an in-process index.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	db, err := Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIndex, err)
	}
	if err := db.InitSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrIndex, err)
	}
	return db, nil
}

// InitSchema installs the vector extension and the chunk table.
// Every statement is IF NOT EXISTS, so it runs on each start.
func (db *DB) InitSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// PurgeStale deletes chunk rows older than maxAge. Runs drop their own
// scope when they finish; rows only outlive a run when the process died
// mid-request.
func (db *DB) PurgeStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	res, err := db.ExecContext(ctx,
		`DELETE FROM docqa_chunks WHERE created_at < NOW() - make_interval(secs => $1)`,
		maxAge.Seconds())
	if err != nil {
		return 0, fmt.Errorf("failed to purge stale chunks: %w", err)
	}
	return res.RowsAffected()
}

// Ping checks the server is reachable
func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}
