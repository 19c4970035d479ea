package splitstore

// ActionType identifies a store mutation.
type ActionType string

const (
	ActionSetActive              ActionType = "set_active"
	ActionSetInactive            ActionType = "set_inactive"
	ActionSetDestroyed           ActionType = "set_destroyed"
	ActionUpdateWindowWidth      ActionType = "update_window_width"   // Value: int
	ActionUpdateSelectedPanel    ActionType = "update_selected_panel" // Value: string
	ActionAddTabGroup            ActionType = "add_tab_group"         // Value: GroupSpec
	ActionRemoveTabGroup         ActionType = "remove_tab_group"      // Value: string (group id)
	ActionUpdateTabDistributions ActionType = "update_tab_distributions"
)

// Action is a single mutation request submitted to Store.Update.
type Action struct {
	Type  ActionType `json:"type"`
	Value any        `json:"value,omitempty"`
}

// GroupSpec is a proposed group for ActionAddTabGroup. The store assigns the id.
type GroupSpec struct {
	Color  string      `json:"color"`
	Layout Layout      `json:"layout"`
	Tabs   []TabMember `json:"tabs"`
}

// DistributionUpdate is the value of ActionUpdateTabDistributions.
// Distributions are indexed by column.
type DistributionUpdate struct {
	GroupID       string    `json:"group_id"`
	Distributions []float64 `json:"distributions"`
}

func SetActive() Action    { return Action{Type: ActionSetActive} }
func SetInactive() Action  { return Action{Type: ActionSetInactive} }
func SetDestroyed() Action { return Action{Type: ActionSetDestroyed} }

func UpdateWindowWidth(width int) Action {
	return Action{Type: ActionUpdateWindowWidth, Value: width}
}

func UpdateSelectedPanel(panelID string) Action {
	return Action{Type: ActionUpdateSelectedPanel, Value: panelID}
}

func AddTabGroup(spec GroupSpec) Action {
	return Action{Type: ActionAddTabGroup, Value: spec}
}

func RemoveTabGroup(groupID string) Action {
	return Action{Type: ActionRemoveTabGroup, Value: groupID}
}

func UpdateTabDistributions(groupID string, distributions ...float64) Action {
	return Action{
		Type:  ActionUpdateTabDistributions,
		Value: DistributionUpdate{GroupID: groupID, Distributions: distributions},
	}
}

// ColumnSplit builds a two column GroupSpec where the left tab takes ratio
// of the width and the right tab the rest.
func ColumnSplit(color, left, right string, ratio float64) GroupSpec {
	return GroupSpec{
		Color:  color,
		Layout: LayoutColumnSplit,
		Tabs: []TabMember{
			{PanelID: left, Col: 0, Distribution: ratio},
			{PanelID: right, Col: 1, Distribution: 1 - ratio},
		},
	}
}
