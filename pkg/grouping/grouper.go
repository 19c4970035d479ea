// Package grouping turns split state into an ordered, width-resolved view
// for display.
package grouping

import (
	"math"

	"github.com/mattn/go-runewidth"

	"github.com/b/tmux-tabsplit/pkg/colors"
	"github.com/b/tmux-tabsplit/pkg/splitstore"
)

type Column struct {
	PanelID      string
	Col          int
	Distribution float64
	Width        int // Cells assigned to this column
	Selected     bool
}

type GroupedTabs struct {
	ID        string
	Index     int // Position in display order
	Color     string
	TextColor string
	Columns   []Column
}

// Arrange lists the groups of st left to right and splits width between the
// columns of each group by distribution. A width of 0 uses st.WindowWidth.
// Column widths of a group always add up to width.
func Arrange(st splitstore.State, width int) []GroupedTabs {
	if width <= 0 {
		width = st.WindowWidth
	}

	var result []GroupedTabs
	for i, g := range st.OrderedGroups() {
		gt := GroupedTabs{
			ID:        g.ID,
			Index:     i,
			Color:     g.Color,
			TextColor: colors.TextColor(g.Color),
		}
		remaining := width
		for j, tab := range g.Tabs {
			w := remaining
			if j < len(g.Tabs)-1 {
				w = int(math.Round(float64(width) * tab.Distribution))
				if w > remaining {
					w = remaining
				}
			}
			remaining -= w
			gt.Columns = append(gt.Columns, Column{
				PanelID:      tab.PanelID,
				Col:          tab.Col,
				Distribution: tab.Distribution,
				Width:        w,
				Selected:     tab.PanelID == st.SelectedPanelID,
			})
		}
		result = append(result, gt)
	}
	return result
}

// Ungrouped returns the panel ids from all that are not in any group of st,
// keeping their order.
func Ungrouped(st splitstore.State, all []string) []string {
	var out []string
	for _, id := range all {
		if _, ok := st.GroupForPanel(id); !ok {
			out = append(out, id)
		}
	}
	return out
}

// Label fits text into width cells, adding an ellipsis when it is cut.
func Label(text string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(text) <= width {
		return text
	}
	return runewidth.Truncate(text, width, "…")
}
