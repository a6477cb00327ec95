package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/forfeit-cli/forfeit/internal/build"
	"github.com/forfeit-cli/forfeit/internal/cmd/root"
	"github.com/forfeit-cli/forfeit/internal/iostreams"
)

var (
	// version may be overridden by the linker. See .goreleaser.yml
	version = "dev"
	// commit may be overridden by the linker. See .goreleaser.yml
	commit = "unknown"
	// date may be overridden by the linker. See .goreleaser.yml
	date = "unknown"
)

func registerSignalHandler() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigs)
		sig := <-sigs
		fmt.Println("received", sig, ", terminating...")
		cancel()
	}()
	return ctx
}

func main() {
	ctx := registerSignalHandler()
	root.Execute(ctx, iostreams.GetOSIOStreams(), &build.Info{
		Version: version,
		Commit:  commit,
		Date:    date,
	})
}
