package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"dompet/internal/cli"
	"dompet/internal/config"
)

func main() {
	cli.LoadEnvFile()
	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(cli.ExitUsage)
	}
	cli.SetupLogger(os.Getenv("LOG_LEVEL"), "text", os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.NewApp(os.Stdout, os.Stderr, *cfg).Run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
