package history

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// PostgresStore persists entries in Postgres with a pgvector embedding
// column; Similar is a cosine-distance (<=>) query served by the index.
type PostgresStore struct {
	db         *sql.DB
	dimensions int
}

// NewPostgresStore opens dsn and runs the migration. dimensions must match
// the embedding model (e.g. 768 for nomic-embed-text).
func NewPostgresStore(dsn string, dimensions int) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open postgres: %w", err)
	}
	s := &PostgresStore{db: db, dimensions: dimensions}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStoreWithDB wraps an existing connection; used by tests.
func NewPostgresStoreWithDB(db *sql.DB, dimensions int) *PostgresStore {
	return &PostgresStore{db: db, dimensions: dimensions}
}

func (s *PostgresStore) migrate() error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS command_history (
			id UUID PRIMARY KEY,
			instruction TEXT NOT NULL,
			category TEXT NOT NULL,
			action_json TEXT,
			status TEXT NOT NULL,
			detail TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			embedding vector(%d)
		)`, s.dimensions),
		`CREATE INDEX IF NOT EXISTS command_history_created_idx ON command_history (created_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(context.Background(), stmt); err != nil {
			return fmt.Errorf("history: migrate: %w", err)
		}
	}
	return nil
}

// vectorLiteral renders an embedding in pgvector's input syntax.
func vectorLiteral(embedding []float32) string {
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func (s *PostgresStore) Record(ctx context.Context, entry Entry, embedding []float32) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	var emb any
	if len(embedding) > 0 {
		emb = vectorLiteral(embedding)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO command_history (id, instruction, category, action_json, status, detail, embedding)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.Instruction, entry.Category, entry.ActionJSON, entry.Status, entry.Detail, emb)
	if err != nil {
		return fmt.Errorf("history: record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, instruction, category, COALESCE(action_json, ''), status, COALESCE(detail, ''), created_at
		 FROM command_history ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanEntries(rows, false)
}

func (s *PostgresStore) Similar(ctx context.Context, embedding []float32, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, instruction, category, COALESCE(action_json, ''), status, COALESCE(detail, ''), created_at,
		        1 - (embedding <=> $1) AS similarity
		 FROM command_history
		 WHERE embedding IS NOT NULL
		 ORDER BY embedding <=> $1
		 LIMIT $2`, vectorLiteral(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("history: similar: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanEntries(rows, true)
}

func scanEntries(rows *sql.Rows, withSimilarity bool) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var err error
		if withSimilarity {
			err = rows.Scan(&e.ID, &e.Instruction, &e.Category, &e.ActionJSON, &e.Status, &e.Detail, &e.CreatedAt, &e.Similarity)
		} else {
			err = rows.Scan(&e.ID, &e.Instruction, &e.Category, &e.ActionJSON, &e.Status, &e.Detail, &e.CreatedAt)
		}
		if err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: rows: %w", err)
	}
	return entries, nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }
