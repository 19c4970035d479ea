package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/b/tmux-tabsplit/pkg/config"
	"github.com/b/tmux-tabsplit/pkg/daemon"
	"github.com/b/tmux-tabsplit/pkg/grouping"
	"github.com/b/tmux-tabsplit/pkg/splitstore"
)

type keyMap struct {
	Quit key.Binding
	Help key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Help, k.Quit}}
}

var watchKeys = keyMap{
	Quit: key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	Help: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
}

type stateMsg daemon.StatePayload

type disconnectedMsg struct{ err error }

type watchModel struct {
	next     func() (daemon.StatePayload, error)
	payload  daemon.StatePayload
	received bool
	barWidth int
	hideHelp bool
	keys     keyMap
	help     help.Model
	err      error
}

func newWatchModel(cfg *config.Config, next func() (daemon.StatePayload, error)) watchModel {
	return watchModel{
		next:     next,
		barWidth: cfg.Watch.BarWidth,
		hideHelp: cfg.Watch.HideHelp,
		keys:     watchKeys,
		help:     help.New(),
	}
}

// waitForState blocks on the subscription and delivers the next state.
func (m watchModel) waitForState() tea.Cmd {
	next := m.next
	return func() tea.Msg {
		p, err := next()
		if err != nil {
			return disconnectedMsg{err: err}
		}
		return stateMsg(p)
	}
}

func (m watchModel) Init() tea.Cmd {
	return m.waitForState()
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stateMsg:
		m.payload = daemon.StatePayload(msg)
		m.received = true
		if m.payload.State.Status == splitstore.StatusDestroyed {
			return m, tea.Quit
		}
		return m, m.waitForState()

	case disconnectedMsg:
		m.err = msg.err
		return m, tea.Quit

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		if msg.Width > 0 && msg.Width < m.barWidth {
			m.barWidth = msg.Width
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
	}
	return m, nil
}

func (m watchModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("disconnected: %v", m.err)) + "\n"
	}
	if !m.received {
		return labelStyle.Render("waiting for daemon...") + "\n"
	}

	st := m.payload.State
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s  %s\n",
		statusStyle(st.Status).Render(string(st.Status)),
		labelStyle.Render(fmt.Sprintf("width %d", st.WindowWidth)),
		labelStyle.Render(fmt.Sprintf("#%d", m.payload.SequenceNum)))

	groups := grouping.Arrange(st, m.barWidth)
	if len(groups) == 0 {
		b.WriteString(labelStyle.Render("no split groups") + "\n")
	}
	changed := make(map[string]bool)
	for _, id := range m.payload.Change.Added {
		changed[id] = true
	}
	for _, id := range m.payload.Change.Updated {
		changed[id] = true
	}
	for _, g := range groups {
		marker := "  "
		if changed[g.ID] {
			marker = "* "
		}
		b.WriteString(marker + lipgloss.JoinHorizontal(lipgloss.Top, renderBar(g), " "+g.ID) + "\n")
	}
	if len(m.payload.Change.Removed) > 0 {
		b.WriteString(labelStyle.Render("removed: "+strings.Join(m.payload.Change.Removed, " ")) + "\n")
	}

	if !m.hideHelp {
		b.WriteString("\n" + m.help.View(m.keys) + "\n")
	}
	return b.String()
}

func runWatch(sessionID string, cfg *config.Config) error {
	client, err := daemon.Dial(sessionID)
	if err != nil {
		return err
	}
	defer client.Close()
	if err := client.Subscribe(); err != nil {
		return err
	}

	lipgloss.SetColorProfile(termenv.EnvColorProfile())

	p := tea.NewProgram(newWatchModel(cfg, client.Next), tea.WithOutput(os.Stdout))
	final, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(watchModel); ok && m.err != nil {
		return m.err
	}
	return nil
}
