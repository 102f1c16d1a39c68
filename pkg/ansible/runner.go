// Package ansible is the imperative-automation backend for actions flagged
// ViaAutomation. The core only needs run-playbook-with-variables and a
// success/output pair back; playbooks themselves live on disk and are
// someone else's code.
package ansible

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/contracts"
)

// RunResult is the outcome of one playbook run.
type RunResult struct {
	Success bool   `json:"success"`
	Output  string `json:"output"`
}

// Runner executes playbooks by id.
type Runner interface {
	Run(ctx context.Context, playbookID string, vars map[string]any) (RunResult, error)
}

// LocalRunner shells out to ansible-playbook against a playbook directory.
type LocalRunner struct {
	dir    string
	binary string
}

// NewLocalRunner creates a runner over dir. The binary defaults to
// "ansible-playbook" on PATH.
func NewLocalRunner(dir, binary string) *LocalRunner {
	if binary == "" {
		binary = "ansible-playbook"
	}
	return &LocalRunner{dir: dir, binary: binary}
}

// resolve maps a playbook id to its file, accepting .yml and .yaml. The id
// is a bare name; path separators are rejected so an instruction cannot
// escape the playbook directory.
func (r *LocalRunner) resolve(playbookID string) (string, error) {
	if playbookID == "" || strings.ContainsAny(playbookID, `/\`) {
		return "", fmt.Errorf("ansible: invalid playbook id %q", playbookID)
	}
	for _, ext := range []string{".yml", ".yaml"} {
		path := filepath.Join(r.dir, playbookID+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("ansible: playbook %q not found in %s", playbookID, r.dir)
}

// Run executes one playbook, bounded by ctx. A non-zero exit is a failed
// RunResult with the captured output, not an error; errors are reserved for
// not being able to run at all.
func (r *LocalRunner) Run(ctx context.Context, playbookID string, vars map[string]any) (RunResult, error) {
	path, err := r.resolve(playbookID)
	if err != nil {
		return RunResult{}, err
	}

	args := []string{path}
	if len(vars) > 0 {
		extraVars, err := json.Marshal(vars)
		if err != nil {
			return RunResult{}, fmt.Errorf("ansible: marshal vars: %w", err)
		}
		args = append(args, "--extra-vars", string(extraVars))
	}

	cmd := exec.CommandContext(ctx, r.binary, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	runErr := cmd.Run()
	result := RunResult{Success: runErr == nil, Output: out.String()}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return result, nil
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return result, contracts.ErrRemoteTimeout
		}
		return result, fmt.Errorf("ansible: run %s: %w", playbookID, runErr)
	}
	return result, nil
}

// ListPlaybooks returns the ids of the playbooks in the directory, sorted.
func (r *LocalRunner) ListPlaybooks() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("ansible: read playbook dir: %w", err)
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		if ext == ".yml" || ext == ".yaml" {
			ids = append(ids, strings.TrimSuffix(name, ext))
		}
	}
	sort.Strings(ids)
	return ids, nil
}
