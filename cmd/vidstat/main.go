// Command vidstat summarizes video campaign export files and pushes the
// summary row to a Feishu bitable.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/shandysiswandi/vidstat/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
