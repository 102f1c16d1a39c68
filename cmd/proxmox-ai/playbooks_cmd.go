package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/ansible"
	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/config"
)

// runPlaybooks lists the playbook ids the automation runner can execute.
func runPlaybooks(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("playbooks", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var dir string
	cmd.StringVar(&dir, "dir", "", "Playbook directory (default: PLAYBOOK_DIR)")

	if err := cmd.Parse(args); err != nil {
		return 2
	}

	if dir == "" {
		dir = config.Load().PlaybookDir
	}
	runner := ansible.NewLocalRunner(dir, "")
	ids, err := runner.ListPlaybooks()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	for _, id := range ids {
		fmt.Fprintln(stdout, id)
	}
	return 0
}
