package ansible

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePlaybook(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("---\n- hosts: all\n"), 0o600))
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	writePlaybook(t, dir, "vm-resize.yml")
	writePlaybook(t, dir, "add-node.yaml")

	r := NewLocalRunner(dir, "")

	path, err := r.resolve("vm-resize")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "vm-resize.yml"), path)

	path, err = r.resolve("add-node")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "add-node.yaml"), path)

	_, err = r.resolve("missing")
	assert.Error(t, err)

	// Ids are names, never paths.
	for _, id := range []string{"", "../etc/passwd", `..\escape`, "sub/dir"} {
		_, err := r.resolve(id)
		assert.Error(t, err, id)
	}
}

func TestListPlaybooks(t *testing.T) {
	dir := t.TempDir()
	writePlaybook(t, dir, "vm-resize.yml")
	writePlaybook(t, dir, "add-node.yaml")
	writePlaybook(t, dir, "notes.txt")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "roles.yml"), 0o700))

	r := NewLocalRunner(dir, "")
	ids, err := r.ListPlaybooks()
	require.NoError(t, err)
	assert.Equal(t, []string{"add-node", "vm-resize"}, ids)
}

func TestRunSuccess(t *testing.T) {
	dir := t.TempDir()
	writePlaybook(t, dir, "noop.yml")

	// "true" ignores its arguments and exits zero.
	r := NewLocalRunner(dir, "true")
	result, err := r.Run(context.Background(), "noop", map[string]any{"vmid": "101"})
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestRunNonZeroExitIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	writePlaybook(t, dir, "noop.yml")

	r := NewLocalRunner(dir, "false")
	result, err := r.Run(context.Background(), "noop", nil)
	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestRunMissingBinary(t *testing.T) {
	dir := t.TempDir()
	writePlaybook(t, dir, "noop.yml")

	r := NewLocalRunner(dir, "definitely-not-on-path-3b1f")
	_, err := r.Run(context.Background(), "noop", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ansible: run")
}
