// Copyright 2026 The topicfs Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// helpMarkdown is the monitor's entire help overlay, parsed and
// styled on demand rather than kept as a pre-rendered string so the
// overlay reflows if the terminal is resized while it's open.
const helpMarkdown = `# topicfs monitor

- up/down or j/k: move the selection
- /: start a fuzzy filter over topic paths
- esc: clear the filter, or close this overlay
- c: cancel the selected pending publish
- ?: toggle this help
- q or ctrl+c: quit
`

var helpParser = goldmark.New()

// renderHelp parses helpMarkdown and renders it as plain styled
// terminal text: headings bold and accented, list items prefixed with
// a bullet, everything else passed through. The monitor's help text
// never needs tables, code blocks, or links, so this walks far fewer
// node kinds than a general-purpose renderer would.
func renderHelp(width int) string {
	source := []byte(helpMarkdown)
	doc := helpParser.Parser().Parse(text.NewReader(source))

	// Force ANSI256 regardless of terminal auto-detection, the same
	// way the overlay's markdown rendering forces a profile elsewhere
	// in the teacher's TUI stack — bubbletea's alt-screen session
	// otherwise leaves color-profile detection to lipgloss's default,
	// which can pick no color at all outside a real TTY.
	renderer := lipgloss.NewRenderer(os.Stderr, termenv.WithProfile(termenv.ANSI256))
	renderer.SetColorProfile(termenv.ANSI256)

	var out strings.Builder
	heading := renderer.NewStyle().Bold(true).Foreground(defaultTheme.HeaderFg)
	bullet := renderer.NewStyle().Foreground(defaultTheme.FaintText)

	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindHeading:
			content := inlineText(n, source)
			out.WriteString(heading.Render(content))
			out.WriteString("\n\n")
			return ast.WalkSkipChildren, nil
		case ast.KindListItem:
			content := inlineText(n, source)
			out.WriteString(bullet.Render("  • ") + content + "\n")
			return ast.WalkSkipChildren, nil
		case ast.KindParagraph:
			content := inlineText(n, source)
			if content != "" {
				out.WriteString(content + "\n\n")
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	box := renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(defaultTheme.BorderColor).
		Padding(0, 1).
		Width(width)
	return box.Render(strings.TrimRight(out.String(), "\n"))
}

// inlineText collects the raw text content of every Text child under
// node, ignoring emphasis/styling — the help overlay has none.
func inlineText(node ast.Node, source []byte) string {
	var out strings.Builder
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		collectText(child, source, &out)
	}
	return out.String()
}

func collectText(node ast.Node, source []byte, out *strings.Builder) {
	if textNode, ok := node.(*ast.Text); ok {
		out.Write(textNode.Segment.Value(source))
		return
	}
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		collectText(child, source, out)
	}
}
