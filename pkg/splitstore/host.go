package splitstore

import "sync"

// StaticHost is a Host backed by a fixed, editable set of tabs. It is used
// when no live host is attached and in tests.
type StaticHost struct {
	mu   sync.RWMutex
	tabs map[string]Tab
}

// NewStaticHost returns a host that knows the given panel ids.
func NewStaticHost(panelIDs ...string) *StaticHost {
	h := &StaticHost{tabs: make(map[string]Tab, len(panelIDs))}
	for _, id := range panelIDs {
		h.tabs[id] = Tab{PanelID: id}
	}
	return h
}

// Add registers tab, replacing any tab with the same panel id.
func (h *StaticHost) Add(tab Tab) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tabs[tab.PanelID] = tab
}

// Remove forgets panelID.
func (h *StaticHost) Remove(panelID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.tabs, panelID)
}

func (h *StaticHost) ResolveTab(panelID string) (Tab, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	tab, ok := h.tabs[panelID]
	return tab, ok
}

func (h *StaticHost) ResolveGroup(panelID string, st *State) (TabGroup, bool) {
	if st == nil {
		return TabGroup{}, false
	}
	return st.GroupForPanel(panelID)
}
