// Package pgvector stores vectors in PostgreSQL with the pgvector
// extension. Each collection is one table.
package pgvector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/flarexio/ragblade/vector"
)

const codeUndefinedTable = "42P01"

// NewPostgresStore connects to dsn and verifies the connection.
func NewPostgresStore(ctx context.Context, cfg vector.Config) (vector.Store, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &postgresStore{pool}, nil
}

type postgresStore struct {
	pool *pgxpool.Pool
}

func table(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func (p *postgresStore) EnsureCollection(ctx context.Context, name string, dimension int) error {
	if _, err := p.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return err
	}

	// atttypmod of a vector column is its dimension
	var existing int
	err := p.pool.QueryRow(ctx, `
		SELECT a.atttypmod
		FROM pg_attribute a
		JOIN pg_class c ON c.oid = a.attrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = current_schema() AND c.relname = $1 AND a.attname = 'embedding'
	`, name).Scan(&existing)

	switch {
	case err == nil:
		if existing > 0 && existing != dimension {
			return fmt.Errorf("%w: table %s has dimension %d, want %d",
				vector.ErrDimensionMismatch, name, existing, dimension)
		}

		return nil

	case !errors.Is(err, pgx.ErrNoRows):
		return err
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id         uuid PRIMARY KEY,
			content    text NOT NULL,
			metadata   jsonb NOT NULL DEFAULT '{}',
			embedding  vector(%d) NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now()
		)`, table(name), dimension)

	if _, err := p.pool.Exec(ctx, query); err != nil {
		return err
	}

	index := pgx.Identifier{name + "_embedding_idx"}.Sanitize()
	query = fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding vector_cosine_ops)",
		index, table(name))

	_, err = p.pool.Exec(ctx, query)
	return err
}

func (p *postgresStore) Upsert(ctx context.Context, name string, records []vector.Record) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, content, metadata, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding
	`, table(name))

	batch := &pgx.Batch{}
	for _, r := range records {
		metadata, err := json.Marshal(r.Payload)
		if err != nil {
			return err
		}

		batch.Queue(query, r.ID, r.Content, string(metadata), pgvector.NewVector(r.Vector))
	}

	results := p.pool.SendBatch(ctx, batch)
	for range records {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return translate(err)
		}
	}

	return translate(results.Close())
}

func (p *postgresStore) Search(ctx context.Context, name string, vec []float32, k int) ([]vector.Hit, error) {
	query := fmt.Sprintf(`
		SELECT id::text, content, metadata, 1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2
	`, table(name))

	rows, err := p.pool.Query(ctx, query, pgvector.NewVector(vec), k)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	hits := make([]vector.Hit, 0, k)
	for rows.Next() {
		var (
			hit      vector.Hit
			metadata []byte
			score    float64
		)

		if err := rows.Scan(&hit.ID, &hit.Content, &metadata, &score); err != nil {
			return nil, err
		}

		if err := json.Unmarshal(metadata, &hit.Payload); err != nil {
			return nil, err
		}

		hit.Score = float32(score)
		hits = append(hits, hit)
	}

	if err := rows.Err(); err != nil {
		return nil, translate(err)
	}

	return hits, nil
}

func (p *postgresStore) DropCollection(ctx context.Context, name string) error {
	_, err := p.pool.Exec(ctx, "DROP TABLE IF EXISTS "+table(name))
	return err
}

func (p *postgresStore) Count(ctx context.Context, name string) (int, error) {
	var count int
	err := p.pool.QueryRow(ctx, "SELECT count(*) FROM "+table(name)).Scan(&count)
	if err != nil {
		return 0, translate(err)
	}

	return count, nil
}

func (p *postgresStore) Close() error {
	p.pool.Close()
	return nil
}

func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeUndefinedTable {
		return fmt.Errorf("%w: %w", vector.ErrCollectionNotFound, err)
	}

	return err
}
