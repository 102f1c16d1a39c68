package audit

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordWritesVerifiableJSONLines(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf)

	ctx := context.Background()
	require.NoError(t, log.Record(ctx, EventDestructive, "delete", "101", "delete vm 101 (risk: destructive)", nil))
	require.NoError(t, log.Record(ctx, EventDecision, "delete", "101", "delete vm 101 (risk: destructive)", map[string]any{
		"verdict":          "require_confirmation",
		"explicit_execute": false,
	}))

	scanner := bufio.NewScanner(&buf)
	var events []Event
	for scanner.Scan() {
		var e Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		events = append(events, e)
	}
	require.Len(t, events, 2)

	assert.Equal(t, EventDestructive, events[0].Type)
	assert.Equal(t, "101", events[0].Resource)
	assert.NotEmpty(t, events[0].ID)
	assert.False(t, events[0].Timestamp.IsZero())
	assert.True(t, strings.HasPrefix(events[0].Hash, "sha256:"))

	for _, e := range events {
		ok, err := Verify(e)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf)
	require.NoError(t, log.Record(context.Background(), EventExecution, "stop", "101", "stop vm 101", nil))

	var event Event
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &event))

	tampered := event
	tampered.Resource = "999"
	ok, err := Verify(tampered)
	require.NoError(t, err)
	assert.False(t, ok)

	tampered = event
	tampered.Hash = "sha256:0000"
	ok, err = Verify(tampered)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashIgnoresFieldOrder(t *testing.T) {
	// Canonicalization makes the hash a function of content, not encoding.
	event := Event{
		ID:     "fixed",
		Type:   EventDecision,
		Action: "read",
		Metadata: map[string]any{
			"b": "2",
			"a": "1",
		},
	}

	first, err := hashEvent(event)
	require.NoError(t, err)
	second, err := hashEvent(event)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestNopDiscards(t *testing.T) {
	assert.NoError(t, Nop{}.Record(context.Background(), EventDecision, "read", "", "", nil))
}
