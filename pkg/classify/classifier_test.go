package classify

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/contracts"
	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/llm"
)

// fakeClient replays a canned reply or error.
type fakeClient struct {
	reply string
	err   error
}

func (f *fakeClient) Chat(ctx context.Context, msgs []llm.Message, options *llm.SamplingOptions) (string, error) {
	return f.reply, f.err
}

func TestClassifyHappyPath(t *testing.T) {
	c, err := New(&fakeClient{reply: `{"category": "vm", "confidence": 0.92}`})
	require.NoError(t, err)

	intent, err := c.Classify(context.Background(), "delete vm 101")
	require.NoError(t, err)
	assert.Equal(t, contracts.CategoryVM, intent.Category)
	assert.InDelta(t, 0.92, intent.Confidence, 1e-9)
	assert.Equal(t, "delete", intent.Parameters["operation"])
	assert.Equal(t, "101", intent.Parameters["resource_id"])
	assert.False(t, intent.Fallback)
}

func TestClassifyProseWrappedJSON(t *testing.T) {
	c, err := New(&fakeClient{reply: "Sure! Here is my verdict:\n{\"category\": \"backup\", \"confidence\": 0.8}\nLet me know."})
	require.NoError(t, err)

	intent, err := c.Classify(context.Background(), "create a backup of vm 101")
	require.NoError(t, err)
	assert.Equal(t, contracts.CategoryBackup, intent.Category)
}

func TestClassifyEmptyInstruction(t *testing.T) {
	c, err := New(&fakeClient{reply: `{"category": "vm", "confidence": 1}`})
	require.NoError(t, err)

	_, err = c.Classify(context.Background(), "   \t\n ")
	assert.ErrorIs(t, err, contracts.ErrEmptyInstruction)
}

func TestClassifyServiceDown(t *testing.T) {
	c, err := New(&fakeClient{err: fmt.Errorf("connection refused")})
	require.NoError(t, err)

	_, err = c.Classify(context.Background(), "list all vms")
	assert.ErrorIs(t, err, contracts.ErrClassificationUnavailable)
}

func TestClassifyUnusableReplies(t *testing.T) {
	cases := []struct {
		name  string
		reply string
	}{
		{"no JSON at all", "I think this is about virtual machines."},
		{"schema violation", `{"category": "vm"}`},
		{"confidence out of range", `{"category": "vm", "confidence": 1.7}`},
		{"invented category", `{"category": "kubernetes", "confidence": 0.9}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := New(&fakeClient{reply: tc.reply})
			require.NoError(t, err)
			_, err = c.Classify(context.Background(), "list all vms")
			assert.ErrorIs(t, err, contracts.ErrClassificationUnavailable)
		})
	}
}

func TestClassifyLowConfidenceNeverGuesses(t *testing.T) {
	c, err := New(&fakeClient{reply: `{"category": "vm", "confidence": 0.3}`})
	require.NoError(t, err)

	intent, err := c.Classify(context.Background(), "do the thing")
	require.NoError(t, err)
	assert.Equal(t, contracts.CategoryClarification, intent.Category)
}

func TestClassifyThresholdOverride(t *testing.T) {
	c, err := New(&fakeClient{reply: `{"category": "vm", "confidence": 0.3}`}, WithThreshold(0.2))
	require.NoError(t, err)

	intent, err := c.Classify(context.Background(), "maybe a vm thing")
	require.NoError(t, err)
	assert.Equal(t, contracts.CategoryVM, intent.Category)
}

func TestKeywordFallback(t *testing.T) {
	fb := NewKeywordFallback(nil)

	intent, ok := fb.Match("list all vms")
	require.True(t, ok)
	assert.Equal(t, contracts.CategoryVM, intent.Category)
	assert.Equal(t, "read", intent.Parameters["operation"])
	assert.True(t, intent.Fallback)

	intent, ok = fb.Match("create a backup of vm 101")
	require.True(t, ok)
	assert.Equal(t, contracts.CategoryBackup, intent.Category)

	_, ok = fb.Match("please do something unspecified")
	assert.False(t, ok)
}

func TestKeywordFallbackOverridesWin(t *testing.T) {
	fb := NewKeywordFallback(map[string][]string{
		"cluster": {"fleet"},
	})

	intent, ok := fb.Match("show fleet status")
	require.True(t, ok)
	assert.Equal(t, contracts.CategoryCluster, intent.Category)
}

func TestClassifyCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c, err := New(&fakeClient{err: ctx.Err()})
	require.NoError(t, err)

	_, err = c.Classify(ctx, "list all vms")
	require.Error(t, err)
	assert.True(t, errors.Is(err, contracts.ErrClassificationUnavailable))
}
