package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"golang.org/x/term"

	"github.com/b/tmux-tabsplit/pkg/colors"
	"github.com/b/tmux-tabsplit/pkg/config"
	"github.com/b/tmux-tabsplit/pkg/daemon"
	"github.com/b/tmux-tabsplit/pkg/grouping"
	"github.com/b/tmux-tabsplit/pkg/splitstore"
	"github.com/b/tmux-tabsplit/pkg/tmux"
)

const usage = `Usage: tabsplit [-session ID] <command> [args]

Commands:
  activate                          Turn tab splitting on
  deactivate                        Turn it off and clear all groups
  destroy                           Tear the store down for good
  width [N]                         Set the window width (default: probe tmux)
  select [PANE]                     Select a panel (default: active tmux pane)
  split PANE PANE [-color C] [-ratio R]
                                    Put two panels side by side
  unsplit GROUP                     Remove a group
  resize GROUP D0 D1                Change a group's column shares
  state                             Print the current state
  watch                             Follow the state live`

var errUsage = errors.New("bad arguments")

func main() {
	global := flag.NewFlagSet("tabsplit", flag.ExitOnError)
	sessionID := global.String("session", "", "tmux session ID")
	global.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	global.Parse(os.Args[1:])

	args := global.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}

	cfg, err := config.LoadOrDefault(config.DefaultConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := run(*sessionID, cfg, args[0], args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, usage)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(sessionID string, cfg *config.Config, command string, args []string) error {
	if command == "watch" {
		return runWatch(sessionID, cfg)
	}

	client, err := daemon.Dial(sessionID)
	if err != nil {
		return err
	}
	defer client.Close()

	if command == "state" {
		st, err := client.State()
		if err != nil {
			return err
		}
		var panes []string
		if list, err := tmux.NewHost().ListPanes(); err == nil {
			for _, p := range list {
				panes = append(panes, p.ID)
			}
		}
		styled := term.IsTerminal(int(os.Stdout.Fd()))
		fmt.Print(renderState(st, grouping.Ungrouped(st, panes), styled))
		return nil
	}

	actions, err := buildActions(command, args, cfg, client.State, tmux.NewHost())
	if err != nil {
		return err
	}
	change, err := client.Update(actions...)
	if err != nil {
		return err
	}
	for _, id := range change.Added {
		fmt.Printf("Added group: %s\n", id)
	}
	for _, id := range change.Removed {
		fmt.Printf("Removed group: %s\n", id)
	}
	for _, id := range change.Updated {
		fmt.Printf("Updated group: %s\n", id)
	}
	return nil
}

// tmuxProbe is the part of tmux.Host used to fill in omitted arguments.
type tmuxProbe interface {
	WindowWidth() (int, error)
	ActivePane() (string, error)
}

// buildActions turns a command line into the action batch to submit.
// state is only called by commands that need the current state.
func buildActions(command string, args []string, cfg *config.Config, state func() (splitstore.State, error), probe tmuxProbe) ([]splitstore.Action, error) {
	switch command {
	case "activate":
		return []splitstore.Action{splitstore.SetActive()}, nil

	case "deactivate":
		return []splitstore.Action{splitstore.SetInactive()}, nil

	case "destroy":
		return []splitstore.Action{splitstore.SetDestroyed()}, nil

	case "width":
		if len(args) == 0 {
			width, err := probe.WindowWidth()
			if err != nil {
				return nil, err
			}
			return []splitstore.Action{splitstore.UpdateWindowWidth(width)}, nil
		}
		width, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, fmt.Errorf("%w: width %q is not a number", errUsage, args[0])
		}
		return []splitstore.Action{splitstore.UpdateWindowWidth(width)}, nil

	case "select":
		if len(args) == 0 {
			pane, err := probe.ActivePane()
			if err != nil {
				return nil, err
			}
			return []splitstore.Action{splitstore.UpdateSelectedPanel(pane)}, nil
		}
		return []splitstore.Action{splitstore.UpdateSelectedPanel(args[0])}, nil

	case "split":
		if len(args) < 2 {
			return nil, fmt.Errorf("%w: split needs two panes", errUsage)
		}
		fs := flag.NewFlagSet("split", flag.ContinueOnError)
		color := fs.String("color", "", "group color (default: next palette color)")
		ratio := fs.Float64("ratio", cfg.Groups.DefaultSplit, "share of the left column")
		if err := fs.Parse(args[2:]); err != nil {
			return nil, fmt.Errorf("%w: %v", errUsage, err)
		}
		spec, err := newGroupSpec(cfg, args[0], args[1], *color, *ratio, state)
		if err != nil {
			return nil, err
		}
		return []splitstore.Action{splitstore.AddTabGroup(spec)}, nil

	case "unsplit":
		if len(args) < 1 {
			return nil, fmt.Errorf("%w: unsplit needs a group id", errUsage)
		}
		return []splitstore.Action{splitstore.RemoveTabGroup(args[0])}, nil

	case "resize":
		if len(args) < 3 {
			return nil, fmt.Errorf("%w: resize needs a group id and two shares", errUsage)
		}
		dists := make([]float64, 0, 2)
		for _, a := range args[1:3] {
			d, err := strconv.ParseFloat(a, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: share %q is not a number", errUsage, a)
			}
			dists = append(dists, d)
		}
		return []splitstore.Action{splitstore.UpdateTabDistributions(args[0], dists...)}, nil
	}
	return nil, fmt.Errorf("%w: unknown command %q", errUsage, command)
}

// newGroupSpec builds the group for a split. Without an explicit color the
// first palette color not used by an existing group is taken.
func newGroupSpec(cfg *config.Config, left, right, color string, ratio float64, state func() (splitstore.State, error)) (splitstore.GroupSpec, error) {
	if color == "" {
		st, err := state()
		if err != nil {
			return splitstore.GroupSpec{}, err
		}
		used := make([]string, 0, len(st.Groups))
		for _, g := range st.OrderedGroups() {
			used = append(used, g.Color)
		}
		color = colors.Pick(cfg.Groups.Palette, used)
	} else {
		normalized, err := colors.Normalize(color)
		if err != nil {
			return splitstore.GroupSpec{}, err
		}
		color = normalized
	}

	spec := splitstore.ColumnSplit(color, left, right, ratio)
	spec.Layout = splitstore.Layout(cfg.Groups.DefaultLayout)
	return spec, nil
}
