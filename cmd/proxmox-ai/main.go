// Command proxmox-ai is the CLI front end over the dispatch core: one
// instruction in, one structured result out. Conversational and HTTP
// surfaces are callers of the same core and live elsewhere.
package main

import (
	"fmt"
	"io"
	"os"
)

const version = "0.3.0"

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	var code int
	switch os.Args[1] {
	case "ask":
		code = runAsk(os.Args[2:], os.Stdout, os.Stderr)
	case "history":
		code = runHistory(os.Args[2:], os.Stdout, os.Stderr)
	case "playbooks":
		code = runPlaybooks(os.Args[2:], os.Stdout, os.Stderr)
	case "audit":
		code = runAudit(os.Args[2:], os.Stdout, os.Stderr)
	case "version":
		fmt.Fprintln(os.Stdout, "proxmox-ai "+version)
	case "help", "-h", "--help":
		usage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage(os.Stderr)
		code = 2
	}
	os.Exit(code)
}

func usage(w io.Writer) {
	fmt.Fprint(w, `Usage: proxmox-ai <command> [flags]

Commands:
  ask        handle one natural-language instruction
  history    show recent or similar past instructions
  playbooks  list available Ansible playbooks
  audit      export the audit trail
  version    print version

Run "proxmox-ai <command> -h" for command flags.
`)
}
