// Copyright 2026 The topicfs Authors
// SPDX-License-Identifier: Apache-2.0

// Command topicfs-monitor is a terminal dashboard for a running
// topicfsd: it polls the admin socket for connection state and topic
// counts, and periodically walks the mounted directory tree to show
// recent publishes, since the admin socket has no event stream.
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
)

func main() {
	os.Exit(run())
}

func run() int {
	fs := pflag.NewFlagSet("topicfs-monitor", pflag.ContinueOnError)
	adminSocket := fs.String("admin-socket", "", "path to topicfsd's admin socket")
	mountpoint := fs.String("mountpoint", "", "path topicfsd is mounted at")
	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		fmt.Fprintf(os.Stderr, "topicfs-monitor: %v\n", err)
		return 2
	}
	if *mountpoint == "" {
		fmt.Fprintln(os.Stderr, "topicfs-monitor: --mountpoint is required")
		return 2
	}

	m := newModel(*adminSocket, *mountpoint)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "topicfs-monitor: %v\n", err)
		return 1
	}
	return 0
}
