// Package history persists handled instructions together with an embedding
// of their text, enabling "what did I ask about vm 101 before" style
// semantic recall. Two backends: Postgres with pgvector for real
// deployments, SQLite for a zero-infrastructure default.
//
// Recording is best-effort by contract: the dispatcher's callers must never
// see a request fail because the history store was down.
package history

import (
	"context"
	"math"
	"time"
)

// Entry is one recorded interaction.
type Entry struct {
	ID          string    `json:"id"`
	Instruction string    `json:"instruction"`
	Category    string    `json:"category"`
	ActionJSON  string    `json:"action_json,omitempty"`
	Status      string    `json:"status"`
	Detail      string    `json:"detail,omitempty"`
	CreatedAt   time.Time `json:"created_at"`

	// Similarity is populated by Similar only; 1.0 is an exact match.
	Similarity float64 `json:"similarity,omitempty"`
}

// Store is the persistence capability.
type Store interface {
	Record(ctx context.Context, entry Entry, embedding []float32) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Similar(ctx context.Context, embedding []float32, limit int) ([]Entry, error)
	Close() error
}

// cosineSimilarity is used by the SQLite backend, which has no vector
// index and scans in Go instead.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
