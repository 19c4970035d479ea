package tmux

import (
	"errors"
	"strings"
	"testing"

	"github.com/b/tmux-tabsplit/pkg/splitstore"
)

// fakeTmux answers display-message for a fixed pane set.
type fakeTmux struct {
	panes map[string]string // pane id -> title
	calls [][]string
	out   map[string]string // format -> canned output
}

func (f *fakeTmux) run(args ...string) ([]byte, error) {
	f.calls = append(f.calls, args)
	if args[0] == "display-message" && len(args) >= 5 && args[2] == "-t" {
		title, ok := f.panes[args[3]]
		if !ok {
			return nil, errors.New("can't find pane")
		}
		return []byte(args[3] + "\x1f" + title + "\n"), nil
	}
	if out, ok := f.out[args[len(args)-1]]; ok {
		return []byte(out), nil
	}
	return nil, errors.New("unexpected command: " + strings.Join(args, " "))
}

func TestResolveTab(t *testing.T) {
	fake := &fakeTmux{panes: map[string]string{"%1": "vim \x1b[1mmain\x1b[0m"}}
	host := NewHostWithRunner(fake.run)

	tab, ok := host.ResolveTab("%1")
	if !ok {
		t.Fatalf("expected %%1 to resolve")
	}
	if tab.PanelID != "%1" || tab.Title != "vim main" {
		t.Fatalf("unexpected tab: %+v", tab)
	}

	if _, ok := host.ResolveTab("%2"); ok {
		t.Fatalf("expected %%2 not to resolve")
	}
}

func TestResolveTabRejectsNonPaneTargets(t *testing.T) {
	fake := &fakeTmux{panes: map[string]string{}}
	host := NewHostWithRunner(fake.run)

	for _, id := range []string{"", "@1", "main:1", "%1; kill-server"} {
		if _, ok := host.ResolveTab(id); ok {
			t.Fatalf("expected %q to be rejected", id)
		}
	}
	if len(fake.calls) != 0 {
		t.Fatalf("expected no tmux calls, got %v", fake.calls)
	}
}

func TestResolveGroup(t *testing.T) {
	host := NewHostWithRunner((&fakeTmux{}).run)
	st := splitstore.State{
		GroupOrder: []string{"group-1"},
		Groups: map[string]splitstore.TabGroup{
			"group-1": {ID: "group-1", Tabs: []splitstore.TabMember{{PanelID: "%1"}, {PanelID: "%2", Col: 1}}},
		},
	}
	if g, ok := host.ResolveGroup("%2", &st); !ok || g.ID != "group-1" {
		t.Fatalf("expected group-1, got %+v ok=%v", g, ok)
	}
	if _, ok := host.ResolveGroup("%3", &st); ok {
		t.Fatalf("expected no group")
	}
	if _, ok := host.ResolveGroup("%1", nil); ok {
		t.Fatalf("expected no group for nil state")
	}
}

func TestListPanes(t *testing.T) {
	format := "#{pane_id}\x1f#{window_id}\x1f#{pane_index}\x1f#{pane_active}\x1f#{pane_current_command}\x1f#{pane_title}"
	fake := &fakeTmux{out: map[string]string{
		format: "%1\x1f@1\x1f0\x1f1\x1fzsh\x1fshell\n" +
			"%2\x1f@1\x1f1\x1f0\x1ftabsplit\x1fwatch\n" +
			"%3\x1f@2\x1fx\x1f0\x1fzsh\x1fbad index\n" +
			"%4\x1f@2\x1f0\x1f0\x1fnvim\x1fedit\n",
	}}
	panes, err := NewHostWithRunner(fake.run).ListPanes()
	if err != nil {
		t.Fatalf("ListPanes: %v", err)
	}
	if len(panes) != 2 {
		t.Fatalf("expected 2 panes, got %+v", panes)
	}
	if panes[0].ID != "%1" || !panes[0].Active || panes[1].Command != "nvim" || panes[1].WindowID != "@2" {
		t.Fatalf("unexpected panes: %+v", panes)
	}
}

func TestWindowWidthAndActivePane(t *testing.T) {
	fake := &fakeTmux{out: map[string]string{
		"#{window_width}": "212\n",
		"#{pane_id}":      "%7\n",
	}}
	host := NewHostWithRunner(fake.run)

	width, err := host.WindowWidth()
	if err != nil || width != 212 {
		t.Fatalf("WindowWidth() = %d, %v", width, err)
	}
	pane, err := host.ActivePane()
	if err != nil || pane != "%7" {
		t.Fatalf("ActivePane() = %q, %v", pane, err)
	}
}

func TestWindowWidthParseError(t *testing.T) {
	fake := &fakeTmux{out: map[string]string{"#{window_width}": "wide\n"}}
	if _, err := NewHostWithRunner(fake.run).WindowWidth(); err == nil {
		t.Fatalf("expected parse error")
	}
}
