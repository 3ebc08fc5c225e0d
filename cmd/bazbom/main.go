// Command bazbom scans a workspace for dependency manifests across every
// supported ecosystem, queries an advisory source for known
// vulnerabilities, and emits an SBOM plus a merged SARIF report.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

type subcmd func(ctx context.Context, args []string) error

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fs := flag.NewFlagSet("bazbom", flag.ExitOnError)
	fs.Usage = func() {
		out := fs.Output()
		fmt.Fprintf(out, "Usage: %s <subcommand> [flags]\n\nSubcommands:\n", os.Args[0])
		fmt.Fprintln(out, "  scan       scan a workspace and emit an SBOM and SARIF report")
		fmt.Fprintln(out, "  serve      run scan as an HTTP server exposing Prometheus metrics")
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	var cmd subcmd
	switch n := fs.Arg(0); n {
	case "scan":
		cmd = runScan
	case "serve":
		cmd = runServe
	case "":
		fs.Usage()
		os.Exit(99)
	default:
		fs.Usage()
		fmt.Fprintf(os.Stderr, "\nunknown subcommand %q\n", n)
		os.Exit(99)
	}

	if err := cmd(ctx, fs.Args()[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "bazbom:", err)
		os.Exit(1)
	}
}
