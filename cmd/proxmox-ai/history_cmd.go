package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/config"
	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/history"
	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/llm"
)

// runHistory prints recent interactions, or the semantically closest ones
// when --similar is given.
func runHistory(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("history", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		limit   int
		similar string
	)
	cmd.IntVar(&limit, "limit", 20, "Maximum entries to show")
	cmd.StringVar(&similar, "similar", "", "Rank by semantic similarity to this text instead of recency")

	if err := cmd.Parse(args); err != nil {
		return 2
	}

	cfg := config.Load()
	store, err := openHistory(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	entries, err := func() ([]historyEntry, error) {
		if similar == "" {
			got, err := store.Recent(ctx, limit)
			return toRows(got, false), err
		}
		client := llm.NewOllamaClient(cfg.OllamaBaseURL, cfg.OllamaModel, cfg.EmbedModel, cfg.ClassifyTimeout)
		embedding, err := client.Embed(ctx, similar)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		got, err := store.Similar(ctx, embedding, limit)
		return toRows(got, true), err
	}()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	for _, e := range entries {
		fmt.Fprintln(stdout, e.line)
	}
	return 0
}

type historyEntry struct{ line string }

func toRows(entries []history.Entry, withSimilarity bool) []historyEntry {
	rows := make([]historyEntry, 0, len(entries))
	for _, e := range entries {
		line := fmt.Sprintf("%s  [%s/%s]  %s",
			e.CreatedAt.Format(time.RFC3339), e.Category, e.Status, e.Instruction)
		if withSimilarity {
			line = fmt.Sprintf("%.3f  %s", e.Similarity, line)
		}
		rows = append(rows, historyEntry{line: line})
	}
	return rows
}
