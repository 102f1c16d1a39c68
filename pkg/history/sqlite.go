package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// similarScanWindow bounds how many recent rows the SQLite backend loads
// when answering a similarity query.
const similarScanWindow = 500

// SQLiteStore is the zero-infrastructure backend. Embeddings are stored as
// JSON and compared brute-force in Go; fine for a single operator's command
// history, which is what this backend is for.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open sqlite: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.ExecContext(context.Background(), `
	CREATE TABLE IF NOT EXISTS command_history (
		id TEXT PRIMARY KEY,
		instruction TEXT NOT NULL,
		category TEXT NOT NULL,
		action_json TEXT,
		status TEXT NOT NULL,
		detail TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		embedding TEXT
	)`)
	if err != nil {
		return fmt.Errorf("history: migrate: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Record(ctx context.Context, entry Entry, embedding []float32) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	var emb any
	if len(embedding) > 0 {
		raw, err := json.Marshal(embedding)
		if err != nil {
			return fmt.Errorf("history: marshal embedding: %w", err)
		}
		emb = string(raw)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO command_history (id, instruction, category, action_json, status, detail, embedding)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Instruction, entry.Category, entry.ActionJSON, entry.Status, entry.Detail, emb)
	if err != nil {
		return fmt.Errorf("history: record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, instruction, category, COALESCE(action_json, ''), status, COALESCE(detail, ''), created_at
		 FROM command_history ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanEntries(rows, false)
}

func (s *SQLiteStore) Similar(ctx context.Context, embedding []float32, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, instruction, category, COALESCE(action_json, ''), status, COALESCE(detail, ''), created_at, embedding
		 FROM command_history WHERE embedding IS NOT NULL
		 ORDER BY created_at DESC LIMIT ?`, similarScanWindow)
	if err != nil {
		return nil, fmt.Errorf("history: similar: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var raw string
		if err := rows.Scan(&e.ID, &e.Instruction, &e.Category, &e.ActionJSON, &e.Status, &e.Detail, &e.CreatedAt, &raw); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		var stored []float32
		if json.Unmarshal([]byte(raw), &stored) != nil {
			continue
		}
		e.Similarity = cosineSimilarity(embedding, stored)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: rows: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Similarity > entries[j].Similarity })
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
