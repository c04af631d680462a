package main

import (
	"context"
	"fmt"
	"os"

	"finhealth/internal/cli"
	applog "finhealth/internal/log"
)

func main() {
	cfg, logger := cli.Init(applog.ComponentCLI)

	open := func(ctx context.Context) (*cli.App, error) {
		return cli.NewApp(ctx, cfg, logger)
	}
	if err := newRootCmd(os.Stdout, open).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
