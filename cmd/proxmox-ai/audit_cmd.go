package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/audit"
	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/config"
)

// runAudit exports the local audit trail to the configured S3 bucket.
func runAudit(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("audit", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var export bool
	cmd.BoolVar(&export, "export", false, "Upload the audit trail to S3")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if !export {
		fmt.Fprintln(stderr, "usage: proxmox-ai audit --export")
		return 2
	}

	cfg := config.Load()
	if cfg.AuditPath == "" {
		fmt.Fprintln(stderr, "Error: AUDIT_PATH is not set; nothing to export")
		return 2
	}
	if cfg.S3Bucket == "" {
		fmt.Fprintln(stderr, "Error: AUDIT_S3_BUCKET is not set")
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	exporter, err := audit.NewS3Exporter(ctx, audit.S3ExporterConfig{
		Bucket:   cfg.S3Bucket,
		Region:   cfg.S3Region,
		Endpoint: cfg.S3Endpoint,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	key, err := exporter.ExportFile(ctx, cfg.AuditPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	fmt.Fprintf(stdout, "exported audit trail to s3://%s/%s\n", cfg.S3Bucket, key)
	return 0
}
