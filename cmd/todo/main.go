// Command todo is a command-line client for the todo API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/BuzzLyutic/todo-api/internal/cmd/todo"
)

func main() {
	fs := flag.NewFlagSet("todo", flag.ContinueOnError)
	cfg, err := todo.ParseConfig(fs, os.Args[1:], os.LookupEnv)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := todo.Run(ctx, cfg, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, todo.ErrUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
