package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/tubetodo/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	runner := NewRunner(RunnerOpts{
		Logger:   logger,
		EnvFiles: []string{".env"},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := runner.App().Run(ctx, os.Args)
	stop()

	switch exitCode(err) {
	case 0:
	case 2:
		fmt.Fprintf(os.Stderr, "tubetodo: %v\n", err)
		os.Exit(2)
	default:
		logger.Fatalf("application error: %v", err)
	}
}
