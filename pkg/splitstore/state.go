package splitstore

// Status is the lifecycle status of the split feature.
type Status string

const (
	StatusInactive  Status = "inactive"
	StatusActive    Status = "active"
	StatusDestroyed Status = "destroyed"
)

// Layout identifies how the tabs of a group are arranged.
type Layout string

const (
	LayoutColumnSplit Layout = "column_split"
)

var supportedLayouts = map[Layout]bool{
	LayoutColumnSplit: true,
}

// IsSupported reports whether the store accepts groups with this layout.
func (l Layout) IsSupported() bool {
	return supportedLayouts[l]
}

// GroupSize is the number of tabs in every split group.
const GroupSize = 2

// Tab is a live host tab as seen through the Host adapter.
type Tab struct {
	PanelID string `json:"panel_id"`
	Title   string `json:"title,omitempty"`
}

// TabMember is one tab's participation in a group.
type TabMember struct {
	PanelID      string  `json:"panel_id"`
	Col          int     `json:"col"`
	Distribution float64 `json:"distribution"` // Share of window width, in (0,1)
}

// TabGroup is a pair of tabs shown side by side.
type TabGroup struct {
	ID     string      `json:"id"`
	Color  string      `json:"color"`
	Layout Layout      `json:"layout"`
	Tabs   []TabMember `json:"tabs"`
}

// Clone returns a copy of g that shares no memory with it.
func (g TabGroup) Clone() TabGroup {
	out := g
	if g.Tabs != nil {
		out.Tabs = make([]TabMember, len(g.Tabs))
		copy(out.Tabs, g.Tabs)
	}
	return out
}

// HasPanel reports whether panelID is a member of g.
func (g TabGroup) HasPanel(panelID string) bool {
	for _, tab := range g.Tabs {
		if tab.PanelID == panelID {
			return true
		}
	}
	return false
}

// State is the full split state. Values returned by the store are
// independent copies.
type State struct {
	Status          Status              `json:"status"`
	WindowWidth     int                 `json:"window_width"`
	SelectedPanelID string              `json:"selected_panel_id"`
	GroupOrder      []string            `json:"group_order"`
	Groups          map[string]TabGroup `json:"groups"`
}

func newState(status Status) State {
	return State{
		Status:     status,
		GroupOrder: []string{},
		Groups:     map[string]TabGroup{},
	}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := State{
		Status:          s.Status,
		WindowWidth:     s.WindowWidth,
		SelectedPanelID: s.SelectedPanelID,
		GroupOrder:      make([]string, len(s.GroupOrder)),
		Groups:          make(map[string]TabGroup, len(s.Groups)),
	}
	copy(out.GroupOrder, s.GroupOrder)
	for id, g := range s.Groups {
		out.Groups[id] = g.Clone()
	}
	return out
}

// GroupForPanel returns the group that panelID belongs to.
func (s *State) GroupForPanel(panelID string) (TabGroup, bool) {
	for _, id := range s.GroupOrder {
		g, ok := s.Groups[id]
		if ok && g.HasPanel(panelID) {
			return g, true
		}
	}
	return TabGroup{}, false
}

// OrderedGroups returns the groups in display order.
func (s *State) OrderedGroups() []TabGroup {
	out := make([]TabGroup, 0, len(s.GroupOrder))
	for _, id := range s.GroupOrder {
		if g, ok := s.Groups[id]; ok {
			out = append(out, g.Clone())
		}
	}
	return out
}
