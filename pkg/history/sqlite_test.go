package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteRecordAndRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entries := []Entry{
		{Instruction: "list all vms", Category: "vm", Status: "executed"},
		{Instruction: "delete vm 101", Category: "vm", Status: "needs_confirmation", Detail: "confirm before executing"},
		{Instruction: "show cluster status", Category: "cluster", Status: "executed"},
	}
	for _, e := range entries {
		require.NoError(t, store.Record(ctx, e, nil))
	}

	got, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)

	byInstruction := map[string]Entry{}
	for _, e := range got {
		assert.NotEmpty(t, e.ID, "id assigned on record")
		assert.False(t, e.CreatedAt.IsZero())
		byInstruction[e.Instruction] = e
	}
	assert.Equal(t, "needs_confirmation", byInstruction["delete vm 101"].Status)
	assert.Equal(t, "cluster", byInstruction["show cluster status"].Category)

	limited, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSQLiteRecordKeepsCallerID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, Entry{
		ID:          "fixed-id",
		Instruction: "list backups on node pve1",
		Category:    "backup",
		Status:      "executed",
	}, nil))

	got, err := store.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "fixed-id", got[0].ID)
}

func TestSQLiteSimilarOrdersByCosine(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx,
		Entry{Instruction: "exact", Category: "vm", Status: "executed"},
		[]float32{1, 0, 0}))
	require.NoError(t, store.Record(ctx,
		Entry{Instruction: "close", Category: "vm", Status: "executed"},
		[]float32{0.9, 0.1, 0}))
	require.NoError(t, store.Record(ctx,
		Entry{Instruction: "orthogonal", Category: "storage", Status: "executed"},
		[]float32{0, 1, 0}))
	// No embedding: must be invisible to similarity queries.
	require.NoError(t, store.Record(ctx,
		Entry{Instruction: "unembedded", Category: "api", Status: "failed"}, nil))

	got, err := store.Similar(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "exact", got[0].Instruction)
	assert.Equal(t, "close", got[1].Instruction)
	assert.InDelta(t, 1.0, got[0].Similarity, 1e-6)
	assert.Greater(t, got[0].Similarity, got[1].Similarity)

	all, err := store.Similar(ctx, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3, "entry without embedding excluded")
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)

	// Degenerate inputs rank nowhere instead of erroring.
	assert.Zero(t, cosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}))
	assert.Zero(t, cosineSimilarity(nil, nil))
	assert.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}
