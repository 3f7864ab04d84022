// Copyright 2026 The topicfs Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/junegunn/fzf/src/util"

	"github.com/topicfs/topicfs/lib/adminsock"
)

// pollInterval is how often the model asks the admin socket for
// fresh stats and re-walks the mounted tree for the activity log.
const pollInterval = time.Second

// activityLimit bounds the scrolling log so a busy broker doesn't
// grow the model's memory without limit.
const activityLimit = 500

// activityEntry is one row of the scrolling log: a topic path and the
// time the monitor last observed its mtime change.
type activityEntry struct {
	Topic   string
	ModTime time.Time
	Seen    time.Time
	Preview string
}

type statsMsg struct {
	stats adminsock.StatsResponse
	err   error
}

type activityMsg struct {
	entries []activityEntry
	err     error
}

type tickMsg struct{}

// model is the monitor's bubbletea state. It polls the admin socket
// and the mounted directory tree on its own ticker rather than
// subscribing to anything, per the polling-dashboard design.
type model struct {
	adminSocket string
	mountpoint  string

	width, height int

	stats       adminsock.StatsResponse
	connected   bool
	lastErr     error
	activity    []activityEntry
	cursor      int
	showHelp    bool

	filterActive bool
	filterInput  textinput.Model
	slab         *util.Slab
}

func newModel(adminSocket, mountpoint string) model {
	input := textinput.New()
	input.Placeholder = "filter topics"
	input.Prompt = "/ "

	return model{
		adminSocket: adminSocket,
		mountpoint:  mountpoint,
		filterInput: input,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.pollStats(), m.pollActivity(), tickEvery())
}

func tickEvery() tea.Cmd {
	return tea.Tick(pollInterval, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m model) pollStats() tea.Cmd {
	adminSocket := m.adminSocket
	return func() tea.Msg {
		if adminSocket == "" {
			return statsMsg{err: fmt.Errorf("no admin socket configured")}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		stats, err := adminsock.Stats(ctx, adminSocket)
		return statsMsg{stats: stats, err: err}
	}
}

func (m model) pollActivity() tea.Cmd {
	mountpoint := m.mountpoint
	previous := m.activity
	return func() tea.Msg {
		entries, err := walkActivity(mountpoint, previous)
		return activityMsg{entries: entries, err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.pollStats(), m.pollActivity(), tickEvery())

	case statsMsg:
		m.lastErr = msg.err
		m.connected = msg.err == nil && msg.stats.Connected
		if msg.err == nil {
			m.stats = msg.stats
		}
		return m, nil

	case activityMsg:
		if msg.err == nil {
			m.activity = msg.entries
			if m.cursor >= len(m.filtered()) {
				m.cursor = max(0, len(m.filtered())-1)
			}
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.filterActive {
		switch msg.String() {
		case "esc":
			m.filterActive = false
			m.filterInput.Blur()
			m.filterInput.SetValue("")
			return m, nil
		case "enter":
			m.filterActive = false
			m.filterInput.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.filterInput, cmd = m.filterInput.Update(msg)
		m.cursor = 0
		return m, cmd
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "?":
		m.showHelp = !m.showHelp
		return m, nil
	case "esc":
		if m.showHelp {
			m.showHelp = false
			return m, nil
		}
		m.filterInput.SetValue("")
		return m, nil
	case "/":
		m.filterActive = true
		m.filterInput.Focus()
		return m, nil
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < len(m.filtered())-1 {
			m.cursor++
		}
		return m, nil
	case "c":
		return m, m.cancelSelected()
	}
	return m, nil
}

func (m model) cancelSelected() tea.Cmd {
	filtered := m.filtered()
	if m.cursor < 0 || m.cursor >= len(filtered) {
		return nil
	}
	topic := filtered[m.cursor].Topic
	adminSocket := m.adminSocket
	return func() tea.Msg {
		if adminSocket == "" {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		adminsock.Cancel(ctx, adminSocket, topic)
		return nil
	}
}

// filtered returns the activity log narrowed by the current filter
// text, highest fuzzy-match score first, or the full log unsorted by
// score when no filter is active.
func (m model) filtered() []activityEntry {
	pattern := m.filterInput.Value()
	if pattern == "" {
		return m.activity
	}

	topics := make([]string, len(m.activity))
	byTopic := make(map[string]activityEntry, len(m.activity))
	for i, e := range m.activity {
		topics[i] = e.Topic
		byTopic[e.Topic] = e
	}

	results := fuzzyFilter(topics, pattern, m.slab)
	out := make([]activityEntry, 0, len(results))
	for _, r := range results {
		out = append(out, byTopic[r.Topic])
	}
	return out
}

func (m model) View() string {
	if m.width == 0 {
		return "starting topicfs-monitor..."
	}

	header := m.renderHeader()
	body := m.renderActivity()

	var filterLine string
	if m.filterActive {
		filterLine = filterStyle.Render(m.filterInput.View())
	} else {
		filterLine = faintStyle.Render("press / to filter, ? for help, q to quit")
	}

	view := lipgloss.JoinVertical(lipgloss.Left, header, body, filterLine)
	if m.showHelp {
		overlay := renderHelp(minInt(m.width-4, 60))
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, overlay)
	}
	return view
}

func (m model) renderHeader() string {
	status := "disconnected"
	style := connectionStyle(false)
	if m.connected {
		status = "connected"
		style = connectionStyle(true)
	}
	line := fmt.Sprintf("topicfs monitor — %s  topics=%d  uptime=%ds",
		style.Render(status), m.stats.Topics, m.stats.UptimeSeconds)
	if m.lastErr != nil {
		line += "  " + faintStyle.Render(m.lastErr.Error())
	}
	return headerStyle.Render(line) + "\n" + borderStyle.Render(repeatRule(m.width))
}

func (m model) renderActivity() string {
	matched := m.filtered()
	if len(matched) == 0 {
		return faintStyle.Render("(no topics yet)")
	}

	// Copy before sorting: filtered() may return m.activity itself
	// (the unfiltered case), and View must never mutate model state.
	filtered := make([]activityEntry, len(matched))
	copy(filtered, matched)
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Seen.After(filtered[j].Seen)
	})
	if len(filtered) > activityLimit {
		filtered = filtered[:activityLimit]
	}

	pattern := []rune(m.filterInput.Value())
	var lines []string
	for i, entry := range filtered {
		label := entry.Topic
		if len(pattern) > 0 {
			if r, ok := fuzzyMatch(entry.Topic, pattern, m.slab); ok {
				label = highlightMatch(entry.Topic, r.Positions)
			}
		}
		row := fmt.Sprintf("%s  %-40s  %s", entry.Seen.Format("15:04:05"), label, faintStyle.Render(entry.Preview))
		if i == m.cursor {
			row = lipgloss.NewStyle().Reverse(true).Render(row)
		}
		lines = append(lines, row)
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func repeatRule(width int) string {
	if width <= 0 {
		return ""
	}
	rule := make([]byte, width)
	for i := range rule {
		rule[i] = '-'
	}
	return string(rule)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
