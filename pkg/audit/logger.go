// Package audit records the consequential moments of a dispatch: gate
// decisions, destructive-action summaries and remote executions. Events are
// JSON lines with a canonical-form content hash, so an exported trail can be
// checked for tampering line by line.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gowebpki/jcs"
)

// EventType categorizes audit events.
type EventType string

const (
	EventDecision    EventType = "DECISION"    // gate verdicts
	EventDestructive EventType = "DESTRUCTIVE" // destructive action surfaced, pre-execution
	EventExecution   EventType = "EXECUTION"   // remote call issued and its outcome
)

// Event is one structured audit record.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Action    string         `json:"action"`
	Resource  string         `json:"resource"`
	Detail    string         `json:"detail,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`

	// Hash is the SHA-256 of the event's canonical JSON form (RFC 8785),
	// computed with the Hash field empty.
	Hash string `json:"hash"`
}

// Logger records audit events.
type Logger interface {
	Record(ctx context.Context, eventType EventType, action, resource, detail string, metadata map[string]any) error
}

type logger struct {
	mu     sync.Mutex
	writer io.Writer
	clock  func() time.Time
}

// NewLogger creates a Logger writing JSON lines to w. A nil writer falls
// back to stdout.
func NewLogger(w io.Writer) Logger {
	if w == nil {
		w = os.Stdout
	}
	return &logger{writer: w, clock: time.Now}
}

// NewFileLogger appends to the audit file at path.
func NewFileLogger(path string) (Logger, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	return &logger{writer: f, clock: time.Now}, nil
}

func (l *logger) Record(ctx context.Context, eventType EventType, action, resource, detail string, metadata map[string]any) error {
	_ = ctx
	event := Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Action:    action,
		Resource:  resource,
		Detail:    detail,
		Metadata:  metadata,
		Timestamp: l.clock().UTC(),
	}

	hash, err := hashEvent(event)
	if err != nil {
		return err
	}
	event.Hash = hash

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("audit: marshal event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = l.writer.Write(append(line, '\n'))
	return err
}

// hashEvent canonicalizes the event (hash field empty) and hashes it.
func hashEvent(event Event) (string, error) {
	event.Hash = ""
	raw, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("audit: marshal for hashing: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("audit: canonicalize: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return "sha256:" + hex.EncodeToString(sum[:]), nil
}

// Verify recomputes an event's hash and reports whether it matches.
func Verify(event Event) (bool, error) {
	want := event.Hash
	got, err := hashEvent(event)
	if err != nil {
		return false, err
	}
	return got == want, nil
}

// Nop is a Logger that discards everything; the default when auditing is
// not configured.
type Nop struct{}

func (Nop) Record(context.Context, EventType, string, string, string, map[string]any) error {
	return nil
}
