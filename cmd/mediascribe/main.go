// Command mediascribe is a batch transcriber for audio and video files
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jeff-barlow-spady/mediascribe/internal/cli"
)

// version is set with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.Version = version
	cli.Execute(ctx, cli.NewRootCommand())
}
