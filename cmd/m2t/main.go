package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/vk/m2t/internal/cli"
)

// main is the entrypoint for the m2t application.
func main() {
	// Use a minimal logger until a subcommand raises it via --debug.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	// A template or macro evaluation bug should not crash the process
	// without a message; recover and report it as a normal failure.
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "m2t: a critical error occurred: %v\n", r)
			os.Exit(1)
		}
	}()

	root := cli.New(os.Stdout, os.Stderr)
	os.Exit(cli.Run(root))
}
