package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Run is the CLI entrypoint used by cmd/iostack.
// It returns an error instead of calling os.Exit to keep defers effective and lint clean.
func Run() error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	// stdout carries the conversation, so logs go to stderr.
	log := NewLogger(cfg.LogLevel, cfg.LogFormat, cfg.LogColor, os.Stderr)

	a, err := New(cfg, log, os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return a.Run(ctx)
}
