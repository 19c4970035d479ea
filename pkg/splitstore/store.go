// Package splitstore holds the authoritative tab-split state: which tabs are
// paired into groups, how each group's width is shared between its tabs, and
// whether the split feature is active.
//
// All mutation goes through Store.Update, which applies a batch of actions in
// order, stops at the first failure, and notifies subscribers once per
// successful batch that changed something. Reads go through GetState, which
// always returns a deep copy.
package splitstore

import (
	"fmt"
	"io"
	"log"
	"math"
	"reflect"
	"sync"

	"github.com/b/tmux-tabsplit/pkg/perf"
)

// GroupIDPrefix prefixes every generated group id.
const GroupIDPrefix = "group-"

// Host resolves panel ids against the live host tabs.
type Host interface {
	// ResolveTab returns the live tab identified by panelID.
	ResolveTab(panelID string) (Tab, bool)
	// ResolveGroup returns the group in st that panelID belongs to.
	ResolveGroup(panelID string, st *State) (TabGroup, bool)
}

// Listener is notified synchronously at the end of every batch that changed
// state. Implementations must be comparable (typically a pointer); others
// are refused by Subscribe.
type Listener interface {
	OnStateChange(s *Store, c Change)
}

// Change lists the group ids touched by one batch.
type Change struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
	Updated []string `json:"updated"`
}

// IsEmpty reports whether no group was touched. A status or width change
// yields an empty Change that is still delivered.
func (c Change) IsEmpty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Updated) == 0
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used to report rejected actions.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDistributionTolerance allows distribution pairs whose sum is within
// tolerance of 1. The default of 0 requires an exact sum.
func WithDistributionTolerance(tolerance float64) Option {
	return func(s *Store) {
		s.setTolerance(tolerance)
	}
}

// Store is the split state store. The zero value is not usable; call New.
type Store struct {
	mu        sync.Mutex
	host      Host
	state     State
	nextID    int
	listeners map[Listener]struct{}
	tolerance float64
	logger    *log.Logger
}

// New creates an inactive store that resolves panels through host.
func New(host Host, opts ...Option) *Store {
	if host == nil {
		host = noHost{}
	}
	s := &Store{
		host:      host,
		state:     newState(StatusInactive),
		listeners: make(map[Listener]struct{}),
		logger:    log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Update applies actions in order as one batch.
//
// The first failing action stops the batch: actions before it stay applied,
// it and everything after it are not, and no notification is sent. The
// returned error is an *ActionError wrapping one of the package errors.
// When every action succeeds and at least one changed state, each current
// subscriber is called once, after the store lock is released, so listeners
// may call Update again.
func (s *Store) Update(actions ...Action) (Change, error) {
	timer := perf.Start("splitstore.Update")
	defer timer.Stop()

	s.mu.Lock()
	b := &batch{}
	for i, action := range actions {
		if err := s.apply(b, action); err != nil {
			s.mu.Unlock()
			aerr := &ActionError{Index: i, Type: action.Type, Err: err}
			s.logger.Printf("update rejected: %v", aerr)
			return b.change(), aerr
		}
	}

	if !b.dirty {
		s.mu.Unlock()
		return b.change(), nil
	}

	listeners := b.released
	if listeners == nil {
		listeners = make([]Listener, 0, len(s.listeners))
		for l := range s.listeners {
			listeners = append(listeners, l)
		}
	}
	change := b.change()
	s.mu.Unlock()

	for _, l := range listeners {
		l.OnStateChange(s, change)
	}
	return change, nil
}

// GetState returns a deep copy of the current state.
func (s *Store) GetState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Status returns the current lifecycle status.
func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Status
}

// Subscribe registers l. Subscribing twice is a no-op, as is subscribing
// to a destroyed store.
func (s *Store) Subscribe(l Listener) {
	if l == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Status == StatusDestroyed {
		s.logger.Printf("subscribe ignored: %v", ErrStoreDestroyed)
		return
	}
	if !isComparable(l) {
		s.logger.Printf("subscribe ignored: listener %T is not comparable", l)
		return
	}
	s.listeners[l] = struct{}{}
}

// Unsubscribe removes l. Removing an unknown listener is a no-op.
func (s *Store) Unsubscribe(l Listener) {
	if l == nil || !isComparable(l) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.listeners, l)
}

// ListenerCount returns the number of registered listeners.
func (s *Store) ListenerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

// SetDistributionTolerance replaces the tolerance used for distribution sums.
// Negative, NaN and infinite values are treated as 0.
func (s *Store) SetDistributionTolerance(tolerance float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setTolerance(tolerance)
}

func (s *Store) setTolerance(tolerance float64) {
	if tolerance < 0 || math.IsNaN(tolerance) || math.IsInf(tolerance, 0) {
		tolerance = 0
	}
	s.tolerance = tolerance
}

// isComparable reports whether l can be used as a map key.
func isComparable(l Listener) bool {
	return reflect.TypeOf(l).Comparable()
}

// apply runs one action against s.state. s.mu must be held.
func (s *Store) apply(b *batch, action Action) error {
	if s.state.Status == StatusDestroyed {
		if action.Type == ActionSetDestroyed {
			return nil
		}
		return ErrStoreDestroyed
	}

	switch action.Type {
	case ActionSetActive:
		if s.state.Status == StatusActive {
			return fmt.Errorf("%w: already %s", ErrInvalidStatusTransition, StatusActive)
		}
		s.state.Status = StatusActive
		b.dirty = true

	case ActionSetInactive:
		if s.state.Status != StatusActive {
			return fmt.Errorf("%w: %s to %s", ErrInvalidStatusTransition, s.state.Status, StatusInactive)
		}
		s.reset(b, StatusInactive)

	case ActionSetDestroyed:
		s.reset(b, StatusDestroyed)
		// The batch that destroys the store still reaches the listeners that
		// were registered when it ran; nothing after it does.
		b.released = make([]Listener, 0, len(s.listeners))
		for l := range s.listeners {
			b.released = append(b.released, l)
		}
		s.listeners = make(map[Listener]struct{})

	case ActionUpdateWindowWidth:
		width, ok := action.Value.(int)
		if !ok {
			return invalidValue(action)
		}
		if width <= 0 {
			return fmt.Errorf("%w: got %d", ErrInvalidWindowWidth, width)
		}
		if width != s.state.WindowWidth {
			s.state.WindowWidth = width
			b.dirty = true
		}

	case ActionUpdateSelectedPanel:
		panelID, ok := action.Value.(string)
		if !ok {
			return invalidValue(action)
		}
		if _, ok := s.host.ResolveTab(panelID); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownPanel, panelID)
		}
		if panelID != s.state.SelectedPanelID {
			s.state.SelectedPanelID = panelID
			b.dirty = true
		}

	case ActionAddTabGroup:
		spec, ok := groupSpecValue(action.Value)
		if !ok {
			return invalidValue(action)
		}
		return s.addGroup(b, spec)

	case ActionRemoveTabGroup:
		groupID, ok := action.Value.(string)
		if !ok {
			return invalidValue(action)
		}
		return s.removeGroup(b, groupID)

	case ActionUpdateTabDistributions:
		update, ok := distributionValue(action.Value)
		if !ok {
			return invalidValue(action)
		}
		return s.updateDistributions(b, update)

	default:
		return fmt.Errorf("%w: %q", ErrUnknownActionType, action.Type)
	}
	return nil
}

func (s *Store) addGroup(b *batch, spec GroupSpec) error {
	// The host only ever sees a copy of the state.
	view := s.state.Clone()
	if err := validateGroup(spec, &view, s.host, s.tolerance); err != nil {
		return err
	}

	s.nextID++
	group := TabGroup{
		ID:     fmt.Sprintf("%s%d", GroupIDPrefix, s.nextID),
		Color:  spec.Color,
		Layout: spec.Layout,
		Tabs:   make([]TabMember, len(spec.Tabs)),
	}
	copy(group.Tabs, spec.Tabs)

	s.state.Groups[group.ID] = group
	s.state.GroupOrder = append(s.state.GroupOrder, group.ID)
	b.add(group.ID)
	return nil
}

func (s *Store) removeGroup(b *batch, groupID string) error {
	if _, ok := s.state.Groups[groupID]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownGroup, groupID)
	}
	delete(s.state.Groups, groupID)
	s.state.GroupOrder = removeString(s.state.GroupOrder, groupID)
	b.remove(groupID)
	return nil
}

func (s *Store) updateDistributions(b *batch, update DistributionUpdate) error {
	group, ok := s.state.Groups[update.GroupID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownGroup, update.GroupID)
	}
	if err := validateDistributions(update.Distributions, s.tolerance); err != nil {
		return err
	}

	changed := false
	next := group.Clone()
	for i := range next.Tabs {
		if next.Tabs[i].Distribution != update.Distributions[i] {
			next.Tabs[i].Distribution = update.Distributions[i]
			changed = true
		}
	}
	if !changed {
		return nil
	}
	s.state.Groups[group.ID] = next
	b.update(group.ID)
	return nil
}

// reset clears everything but the status and reports dropped groups.
func (s *Store) reset(b *batch, status Status) {
	for _, id := range s.state.GroupOrder {
		b.remove(id)
	}
	s.state = newState(status)
	b.dirty = true
}

func invalidValue(action Action) error {
	return fmt.Errorf("%w: %T for %s", ErrInvalidActionValue, action.Value, action.Type)
}

func groupSpecValue(v any) (GroupSpec, bool) {
	switch spec := v.(type) {
	case GroupSpec:
		return spec, true
	case *GroupSpec:
		if spec != nil {
			return *spec, true
		}
	}
	return GroupSpec{}, false
}

func distributionValue(v any) (DistributionUpdate, bool) {
	switch update := v.(type) {
	case DistributionUpdate:
		return update, true
	case *DistributionUpdate:
		if update != nil {
			return *update, true
		}
	}
	return DistributionUpdate{}, false
}

// batch accumulates the effects of one Update call.
type batch struct {
	dirty    bool
	added    []string
	removed  []string
	updated  []string
	released []Listener // listeners detached by SetDestroyed
}

func (b *batch) add(id string) {
	b.added = append(b.added, id)
	b.dirty = true
}

func (b *batch) remove(id string) {
	b.dirty = true
	b.updated = removeString(b.updated, id)
	if containsString(b.added, id) {
		// Created and dropped within the batch: nobody ever saw it.
		b.added = removeString(b.added, id)
		return
	}
	if !containsString(b.removed, id) {
		b.removed = append(b.removed, id)
	}
}

func (b *batch) update(id string) {
	b.dirty = true
	if containsString(b.added, id) || containsString(b.updated, id) {
		return
	}
	b.updated = append(b.updated, id)
}

func (b *batch) change() Change {
	return Change{
		Added:   append([]string{}, b.added...),
		Removed: append([]string{}, b.removed...),
		Updated: append([]string{}, b.updated...),
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}

type noHost struct{}

func (noHost) ResolveTab(string) (Tab, bool)                { return Tab{}, false }
func (noHost) ResolveGroup(string, *State) (TabGroup, bool) { return TabGroup{}, false }
