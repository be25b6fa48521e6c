package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cmd "github.com/gogpu/darkroom/cmd/darkroom/cmd"
)

var (
	GitSHA string = "NA"
)

func main() {
	// register sigterm for graceful shutdown
	ctx, cnc := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cnc()
	if err := cmd.NewRoot(ctx, GitSHA).Execute(); err != nil {
		cnc()
		os.Exit(1)
	}
}
