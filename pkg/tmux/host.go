// Package tmux adapts a tmux server to the split store's Host interface.
// Panel ids are tmux pane ids such as "%12".
package tmux

import (
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/b/tmux-tabsplit/pkg/splitstore"
)

// ansiEscapeRegex matches ANSI escape sequences
var ansiEscapeRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]|\x1b\].*?(?:\x07|\x1b\\)`)

// paneIDRegex matches a tmux pane id
var paneIDRegex = regexp.MustCompile(`^%[0-9]+$`)

// stripANSI removes ANSI escape sequences from a string
func stripANSI(s string) string {
	return ansiEscapeRegex.ReplaceAllString(s, "")
}

// Runner executes a tmux command and returns its stdout.
type Runner func(args ...string) ([]byte, error)

func execRunner(args ...string) ([]byte, error) {
	return exec.Command("tmux", args...).Output()
}

type Pane struct {
	ID       string
	WindowID string
	Index    int
	Active   bool
	Command  string // Current command running in pane
	Title    string // Pane title if set
}

// Host resolves panels against the running tmux server.
type Host struct {
	run Runner
}

var _ splitstore.Host = (*Host)(nil)

func NewHost() *Host {
	return &Host{run: execRunner}
}

// NewHostWithRunner is NewHost with a custom command runner.
func NewHostWithRunner(run Runner) *Host {
	return &Host{run: run}
}

// ResolveTab asks tmux for the pane. Anything that is not a pane id is
// rejected without running tmux.
func (h *Host) ResolveTab(panelID string) (splitstore.Tab, bool) {
	if !paneIDRegex.MatchString(panelID) {
		return splitstore.Tab{}, false
	}
	out, err := h.run("display-message", "-p", "-t", panelID, "#{pane_id}\x1f#{pane_title}")
	if err != nil {
		return splitstore.Tab{}, false
	}
	parts := strings.SplitN(strings.TrimRight(string(out), "\n"), "\x1f", 2)
	if len(parts) == 0 || parts[0] != panelID {
		return splitstore.Tab{}, false
	}
	tab := splitstore.Tab{PanelID: panelID}
	if len(parts) == 2 {
		tab.Title = stripANSI(parts[1])
	}
	return tab, true
}

// ResolveGroup finds the group holding panelID in st.
func (h *Host) ResolveGroup(panelID string, st *splitstore.State) (splitstore.TabGroup, bool) {
	if st == nil {
		return splitstore.TabGroup{}, false
	}
	return st.GroupForPanel(panelID)
}

// ListPanes returns every pane on the server, skipping tabsplit's own panes.
func (h *Host) ListPanes() ([]Pane, error) {
	out, err := h.run("list-panes", "-a", "-F",
		"#{pane_id}\x1f#{window_id}\x1f#{pane_index}\x1f#{pane_active}\x1f#{pane_current_command}\x1f#{pane_title}")
	if err != nil {
		return nil, fmt.Errorf("tmux list-panes failed: %w", err)
	}

	var panes []Pane
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	for _, line := range lines {
		if line == "" {
			continue
		}
		parts := strings.Split(line, "\x1f")
		if len(parts) < 6 {
			continue
		}
		index, err := strconv.Atoi(parts[2])
		if err != nil {
			continue
		}
		if strings.HasPrefix(parts[4], "tabsplit") {
			continue
		}
		panes = append(panes, Pane{
			ID:       parts[0],
			WindowID: parts[1],
			Index:    index,
			Active:   parts[3] == "1",
			Command:  stripANSI(parts[4]),
			Title:    stripANSI(parts[5]),
		})
	}
	return panes, nil
}

// WindowWidth returns the width in cells of the current tmux window.
func (h *Host) WindowWidth() (int, error) {
	out, err := h.run("display-message", "-p", "#{window_width}")
	if err != nil {
		return 0, fmt.Errorf("tmux display-message failed: %w", err)
	}
	width, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return 0, fmt.Errorf("parse window width %q: %w", strings.TrimSpace(string(out)), err)
	}
	return width, nil
}

// ActivePane returns the id of the focused pane.
func (h *Host) ActivePane() (string, error) {
	out, err := h.run("display-message", "-p", "#{pane_id}")
	if err != nil {
		return "", fmt.Errorf("tmux display-message failed: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}
