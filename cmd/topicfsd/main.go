// Copyright 2026 The topicfs Authors
// SPDX-License-Identifier: Apache-2.0

// Command topicfsd mounts a broker's topic namespace as a directory
// tree: it connects to an MQTT-style broker, subscribes to every
// topic, and projects incoming publishes as files under a mountpoint,
// turning writes against those files back into outbound publishes.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
)

func main() {
	os.Exit(run())
}

func run() int {
	fs := pflag.NewFlagSet("topicfsd", pflag.ContinueOnError)
	configPath := fs.String("config", "", "path to a YAML config file")
	registerFlags(fs)
	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		fmt.Fprintf(os.Stderr, "topicfsd: %v\n", err)
		return exitCodeFor(err)
	}

	cfg, err := loadConfig(fs, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "topicfsd: %v\n", err)
		return exitCodeFor(err)
	}

	logger := newLogger(cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	service := NewTopicService(cfg, logger)
	if err := service.Run(ctx); err != nil {
		logger.Error("topicfsd exiting", "error", err)
		return exitCodeFor(err)
	}
	return 0
}

func newLogger(format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
