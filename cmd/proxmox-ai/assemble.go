package main

import (
	"fmt"
	"io"
	"log"

	"golang.org/x/time/rate"

	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/agent"
	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/ansible"
	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/audit"
	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/classify"
	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/config"
	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/dispatch"
	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/gate"
	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/history"
	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/llm"
	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/proxmox"
)

// assemble wires the full dispatcher from configuration. The returned
// cleanup closes the history store.
func assemble(cfg *config.Config, stderr io.Writer) (*dispatch.Dispatcher, func(), error) {
	logger := log.New(stderr, "", log.LstdFlags)

	profile, err := config.LoadProfile(cfg.ProfilePath)
	if err != nil {
		return nil, nil, err
	}

	// Completion service. Missing config degrades to keyword-only routing
	// instead of refusing to start.
	var classifier dispatch.Classifier
	var embedder llm.Embedder
	if cfg.OllamaBaseURL != "" {
		client := llm.NewOllamaClient(cfg.OllamaBaseURL, cfg.OllamaModel, cfg.EmbedModel, cfg.ClassifyTimeout)
		c, err := classify.New(client,
			classify.WithThreshold(cfg.ConfidenceThreshold),
			classify.WithSampling(llm.SamplingOptions{
				Temperature: cfg.Temperature,
				TopP:        cfg.TopP,
				MaxTokens:   cfg.MaxTokens,
			}))
		if err != nil {
			return nil, nil, err
		}
		classifier = c
		embedder = client
	}

	if cfg.ProxmoxHost == "" || cfg.ProxmoxTokenID == "" || cfg.ProxmoxSecret == "" {
		return nil, nil, fmt.Errorf("PROXMOX_HOST, PROXMOX_TOKEN_ID and PROXMOX_SECRET must be set")
	}
	var remote proxmox.Service = proxmox.NewClient(proxmox.Config{
		Host:        cfg.ProxmoxHost,
		Port:        cfg.ProxmoxPort,
		TokenID:     cfg.ProxmoxTokenID,
		TokenSecret: cfg.ProxmoxSecret,
		VerifySSL:   cfg.ProxmoxVerifySSL,
		Timeout:     cfg.ExecuteTimeout,
		RateLimit:   rate.Limit(10),
	})
	if cfg.RedisAddr != "" {
		remote = proxmox.NewCachedService(remote, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, 0)
	}

	auditLog := audit.Logger(audit.Nop{})
	if cfg.AuditPath != "" {
		auditLog, err = audit.NewFileLogger(cfg.AuditPath)
		if err != nil {
			return nil, nil, err
		}
	}

	g, err := gate.New(auditLog, profile.DenyRules)
	if err != nil {
		return nil, nil, err
	}

	var store history.Store
	switch {
	case cfg.HistoryDSN != "":
		store, err = history.NewPostgresStore(cfg.HistoryDSN, cfg.EmbedDimensions)
	case cfg.HistoryPath != "":
		store, err = history.NewSQLiteStore(cfg.HistoryPath)
	}
	if err != nil {
		// History is an optional collaborator; log and continue.
		logger.Printf("history store unavailable: %v", err)
		store = nil
	}

	d := dispatch.New(
		classifier,
		classify.NewKeywordFallback(profile.KeywordOverrides),
		agent.NewRegistry(remote),
		g,
		remote,
		dispatch.Options{
			Runner:          ansible.NewLocalRunner(cfg.PlaybookDir, ""),
			History:         store,
			Embedder:        embedder,
			Audit:           auditLog,
			ClassifyTimeout: cfg.ClassifyTimeout,
			ExecuteTimeout:  cfg.ExecuteTimeout,
		},
	)

	cleanup := func() {
		if store != nil {
			_ = store.Close()
		}
	}
	return d, cleanup, nil
}

// openHistory opens just the history store, for the read-side commands.
func openHistory(cfg *config.Config) (history.Store, error) {
	switch {
	case cfg.HistoryDSN != "":
		return history.NewPostgresStore(cfg.HistoryDSN, cfg.EmbedDimensions)
	case cfg.HistoryPath != "":
		return history.NewSQLiteStore(cfg.HistoryPath)
	}
	return nil, fmt.Errorf("no history store configured")
}
