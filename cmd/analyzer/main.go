// Package main provides the loki-analyzer command line tool.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Amazomic/loki-analyzer/internal/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cli.NewRootCmd(cli.DefaultBackend).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
