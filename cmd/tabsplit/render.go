package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/b/tmux-tabsplit/pkg/colors"
	"github.com/b/tmux-tabsplit/pkg/grouping"
	"github.com/b/tmux-tabsplit/pkg/splitstore"
)

var (
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#7f8c8d"))
	activeStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2ecc71"))
	inactiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#95a5a6"))
	errorStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#e74c3c"))
)

func statusStyle(s splitstore.Status) lipgloss.Style {
	switch s {
	case splitstore.StatusActive:
		return activeStyle
	case splitstore.StatusDestroyed:
		return errorStyle
	}
	return inactiveStyle
}

func groupStyle(color string) lipgloss.Style {
	return lipgloss.NewStyle().
		Background(lipgloss.Color(color)).
		Foreground(lipgloss.Color(colors.TextColor(color)))
}

// renderState prints st for the state command, one group per line.
// ungrouped lists host panes in no group; it may be empty.
func renderState(st splitstore.State, ungrouped []string, styled bool) string {
	paint := func(s lipgloss.Style, text string) string {
		if !styled {
			return text
		}
		return s.Render(text)
	}

	var b strings.Builder
	selected := st.SelectedPanelID
	if selected == "" {
		selected = "-"
	}
	fmt.Fprintf(&b, "%s %s\n", paint(labelStyle, "status:  "), paint(statusStyle(st.Status), string(st.Status)))
	fmt.Fprintf(&b, "%s %d\n", paint(labelStyle, "width:   "), st.WindowWidth)
	fmt.Fprintf(&b, "%s %s\n", paint(labelStyle, "selected:"), selected)

	for _, g := range st.OrderedGroups() {
		members := make([]string, 0, len(g.Tabs))
		for _, t := range g.Tabs {
			members = append(members, fmt.Sprintf("%s=%.2f", t.PanelID, t.Distribution))
		}
		fmt.Fprintf(&b, "%s %s %s\n", paint(groupStyle(g.Color), " "+g.ID+" "), g.Layout, strings.Join(members, " "))
	}
	if len(ungrouped) > 0 {
		fmt.Fprintf(&b, "%s %s\n", paint(labelStyle, "ungrouped:"), strings.Join(ungrouped, " "))
	}
	return b.String()
}

// renderBar draws one group as a row of colored cells, one block per
// column, the selected column underlined.
func renderBar(g grouping.GroupedTabs) string {
	var b strings.Builder
	for _, col := range g.Columns {
		text := fmt.Sprintf(" %s %.0f%%", col.PanelID, col.Distribution*100)
		style := lipgloss.NewStyle().
			Background(lipgloss.Color(g.Color)).
			Foreground(lipgloss.Color(g.TextColor)).
			Width(col.Width).
			MaxWidth(col.Width)
		if col.Selected {
			style = style.Bold(true).Underline(true)
		}
		if col.Col > 0 {
			style = style.Background(lipgloss.Color(colors.Shade(g.Color, -0.15)))
		}
		b.WriteString(style.Render(grouping.Label(text, col.Width)))
	}
	return b.String()
}
