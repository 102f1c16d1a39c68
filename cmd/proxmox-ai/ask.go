package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/config"
	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/contracts"
)

// runAsk handles one instruction.
//
// Exit codes:
//
//	0 = executed (or read something)
//	1 = needs confirmation or rejected
//	2 = failed or usage error
func runAsk(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("ask", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		execute    bool
		agentName  string
		jsonOutput bool
	)
	cmd.BoolVar(&execute, "execute", false, "Execute state-changing actions without a confirmation round-trip")
	cmd.StringVar(&agentName, "agent", "", "Skip classification and route to this agent category")
	cmd.BoolVar(&jsonOutput, "json", false, "Print the full result as JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	text := strings.TrimSpace(strings.Join(cmd.Args(), " "))
	if text == "" {
		fmt.Fprintln(stderr, "usage: proxmox-ai ask [flags] <instruction>")
		return 2
	}

	cfg := config.Load()
	dispatcher, cleanup, err := assemble(cfg, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result := dispatcher.Handle(ctx, contracts.Instruction{
		Text:            text,
		ExplicitExecute: execute,
		AgentOverride:   agentName,
	})

	if jsonOutput {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printResult(stdout, result)
	}

	switch result.Status {
	case contracts.StatusExecuted:
		return 0
	case contracts.StatusNeedsConfirmation, contracts.StatusRejected:
		return 1
	default:
		return 2
	}
}

func printResult(w io.Writer, result contracts.ExecutionResult) {
	fmt.Fprintf(w, "[%s] %s\n", result.Status, result.Detail)
	if result.Status == contracts.StatusNeedsConfirmation && result.Action != nil {
		fmt.Fprintln(w, "re-run with --execute to proceed")
	}
	if result.RawResponse != nil {
		if data, ok := result.RawResponse["data"]; ok && data != nil {
			raw, err := json.MarshalIndent(data, "", "  ")
			if err == nil {
				fmt.Fprintln(w, string(raw))
			}
		}
	}
}
