// Copyright 2026 The topicfs Authors
// SPDX-License-Identifier: Apache-2.0

package main

import "github.com/charmbracelet/lipgloss"

// theme is the color palette for the monitor dashboard, lifted down
// to the handful of roles this TUI actually needs: no priorities or
// statuses, just chrome, a connection indicator, and match
// highlighting in the filtered activity log.
type theme struct {
	NormalText     lipgloss.Color
	FaintText      lipgloss.Color
	HeaderFg       lipgloss.Color
	BorderColor    lipgloss.Color
	HelpText       lipgloss.Color
	Connected      lipgloss.Color
	Disconnected   lipgloss.Color
	MatchHighlight lipgloss.Color
}

var defaultTheme = theme{
	NormalText:     lipgloss.Color("250"),
	FaintText:      lipgloss.Color("244"),
	HeaderFg:       lipgloss.Color("117"),
	BorderColor:    lipgloss.Color("238"),
	HelpText:       lipgloss.Color("222"),
	Connected:      lipgloss.Color("114"),
	Disconnected:   lipgloss.Color("203"),
	MatchHighlight: lipgloss.Color("220"),
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(defaultTheme.HeaderFg)
	faintStyle  = lipgloss.NewStyle().Foreground(defaultTheme.FaintText)
	borderStyle = lipgloss.NewStyle().Foreground(defaultTheme.BorderColor)
	filterStyle = lipgloss.NewStyle().Foreground(defaultTheme.NormalText)
)

func connectionStyle(connected bool) lipgloss.Style {
	if connected {
		return lipgloss.NewStyle().Bold(true).Foreground(defaultTheme.Connected)
	}
	return lipgloss.NewStyle().Bold(true).Foreground(defaultTheme.Disconnected)
}

// highlightMatch renders text with the rune positions in positions
// (as produced by fuzzyMatch) painted in the match-highlight color.
func highlightMatch(text string, positions []int) string {
	if len(positions) == 0 {
		return text
	}
	marked := make(map[int]bool, len(positions))
	for _, p := range positions {
		marked[p] = true
	}

	highlight := lipgloss.NewStyle().Foreground(defaultTheme.MatchHighlight).Bold(true)
	var out []byte
	for i, r := range []rune(text) {
		if marked[i] {
			out = append(out, []byte(highlight.Render(string(r)))...)
		} else {
			out = append(out, []byte(string(r))...)
		}
	}
	return string(out)
}
