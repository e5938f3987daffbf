package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/regurgitator/swagger2regurgitator/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cli.Execute(ctx)
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "❌ %v\n", err)
	}
	stop()
	os.Exit(cli.ExitCode(err))
}
