// Package store owns the canonical list of field groups and the derived
// selected-group view. Every mutation is synchronous: state changes under a
// lock, the new state is persisted, then subscribers are notified in
// mutation order.
//
// The selection invariant holds after every mutation: the selected id is
// either unset or names a group currently in the list, and the selected
// stream always carries the current copy of that group.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/storage"
)

// GroupsFunc receives the full group list on every emission.
type GroupsFunc func(groups []model.FieldGroup)

// SelectedFunc receives the selected group, or nil when nothing is selected.
type SelectedFunc func(group *model.FieldGroup)

// Store is the single source of truth for field groups. Callbacks may read
// the store from any goroutine but must not call mutators synchronously.
type Store struct {
	mu         sync.Mutex
	groups     []model.FieldGroup
	selectedID *int64
	highWater  int64

	emitMu sync.Mutex

	subsMu       sync.Mutex
	nextSub      int
	groupSubs    map[int]GroupsFunc
	selectedSubs map[int]SelectedFunc

	storage        storage.Storage
	logger         *zap.Logger
	persistTimeout time.Duration
}

// emission describes which streams a mutation touched.
type emission struct {
	groups   bool
	selected bool
}

// New constructs a store and restores state from the configured storage.
// Restore is tolerant: unreadable entries are logged and treated as empty,
// and a restored selection that does not resolve to a restored group is
// dropped.
func New(options ...Option) *Store {
	s := &Store{
		groups:         []model.FieldGroup{},
		groupSubs:      make(map[int]GroupsFunc),
		selectedSubs:   make(map[int]SelectedFunc),
		logger:         zap.NewNop(),
		persistTimeout: defaultPersistTimeout,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	s.restore()
	return s
}

func (s *Store) restore() {
	if s.storage == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
	defer cancel()

	snap, err := s.storage.Load(ctx)
	if err != nil {
		s.logger.Warn("store: restore incomplete", zap.Error(err))
	}
	if snap.Groups != nil {
		s.groups = model.CloneGroups(snap.Groups)
	}
	for _, group := range s.groups {
		if group.ID > s.highWater {
			s.highWater = group.ID
		}
	}
	if snap.Selected != nil {
		if s.indexOf(snap.Selected.ID) >= 0 {
			id := snap.Selected.ID
			s.selectedID = &id
		} else {
			s.logger.Info("store: dropping stale selection", zap.Int64("group_id", snap.Selected.ID))
		}
	}
	s.logger.Debug("store: restored", zap.Int("groups", len(s.groups)), zap.Bool("selected", s.selectedID != nil))
}

// SubscribeGroups registers fn and immediately delivers the current list.
// The returned func unsubscribes.
func (s *Store) SubscribeGroups(fn GroupsFunc) func() {
	if fn == nil {
		return func() {}
	}
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	s.mu.Lock()
	current := model.CloneGroups(s.groups)
	s.mu.Unlock()

	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.groupSubs[id] = fn
	s.subsMu.Unlock()

	fn(current)
	return func() {
		s.subsMu.Lock()
		delete(s.groupSubs, id)
		s.subsMu.Unlock()
	}
}

// SubscribeSelected registers fn and immediately delivers the current
// selection. The returned func unsubscribes.
func (s *Store) SubscribeSelected(fn SelectedFunc) func() {
	if fn == nil {
		return func() {}
	}
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	s.mu.Lock()
	current := s.selectedLocked()
	s.mu.Unlock()

	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.selectedSubs[id] = fn
	s.subsMu.Unlock()

	fn(current)
	return func() {
		s.subsMu.Lock()
		delete(s.selectedSubs, id)
		s.subsMu.Unlock()
	}
}

// Groups returns a deep copy of the current group list.
func (s *Store) Groups() []model.FieldGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CloneGroups(s.groups)
}

// Group returns a copy of the group with the given id.
func (s *Store) Group(id int64) (model.FieldGroup, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return model.FieldGroup{}, false
	}
	return s.groups[idx].Clone(), true
}

// Selected returns a copy of the selected group or nil.
func (s *Store) Selected() *model.FieldGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedLocked()
}

// SelectedID returns the selected group id, if any.
func (s *Store) SelectedID() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selectedID == nil {
		return 0, false
	}
	return *s.selectedID, true
}

// Snapshot returns the persisted view of the current state.
func (s *Store) Snapshot() storage.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return storage.Snapshot{
		Groups:   model.CloneGroups(s.groups),
		Selected: s.selectedLocked(),
	}
}

// SelectGroup selects the group with the given id. Unknown ids are a no-op.
func (s *Store) SelectGroup(id int64) bool {
	return s.mutate(func() (emission, bool) {
		if s.indexOf(id) < 0 {
			return emission{}, false
		}
		selected := id
		s.selectedID = &selected
		return emission{selected: true}, true
	})
}

// ClearSelection unsets the selection.
func (s *Store) ClearSelection() bool {
	return s.mutate(func() (emission, bool) {
		if s.selectedID == nil {
			return emission{}, false
		}
		s.selectedID = nil
		return emission{selected: true}, true
	})
}

// AddGroup appends a new group and returns it. The name is trimmed and must
// not be empty. Ids are one above the highest id ever seen by this store, so
// deleted ids are never reused. The new group is not selected.
func (s *Store) AddGroup(name, description string) (model.FieldGroup, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.FieldGroup{}, false
	}

	var created model.FieldGroup
	ok := s.mutate(func() (emission, bool) {
		created = model.FieldGroup{
			ID:          s.nextGroupID(),
			Name:        name,
			Description: strings.TrimSpace(description),
			Elements:    []model.FieldDefinition{},
		}
		s.groups = append(s.groups, created)
		return emission{groups: true}, true
	})
	return created.Clone(), ok
}

// UpdateGroup replaces the group with the same id. Unknown ids and blank
// names are a no-op.
func (s *Store) UpdateGroup(group model.FieldGroup) bool {
	group.Name = strings.TrimSpace(group.Name)
	if group.Name == "" {
		return false
	}
	replacement := group.Clone()
	return s.mutate(func() (emission, bool) {
		idx := s.indexOf(replacement.ID)
		if idx < 0 {
			return emission{}, false
		}
		s.groups[idx] = replacement
		return emission{groups: true, selected: s.isSelected(replacement.ID)}, true
	})
}

// UpdateGroupFunc applies fn to the current value of the group inside the
// mutation boundary, so no other mutation can interleave between the read
// and the write. fn receives a copy; returning false aborts without
// emitting. The id cannot be changed by fn.
func (s *Store) UpdateGroupFunc(id int64, fn func(model.FieldGroup) (model.FieldGroup, bool)) bool {
	if fn == nil {
		return false
	}
	return s.mutate(func() (emission, bool) {
		idx := s.indexOf(id)
		if idx < 0 {
			return emission{}, false
		}
		next, ok := fn(s.groups[idx].Clone())
		if !ok {
			return emission{}, false
		}
		next.ID = id
		next.Name = strings.TrimSpace(next.Name)
		if next.Name == "" {
			return emission{}, false
		}
		s.groups[idx] = next.Clone()
		return emission{groups: true, selected: s.isSelected(id)}, true
	})
}

// DeleteGroup removes the group and clears the selection if it pointed at it.
func (s *Store) DeleteGroup(id int64) bool {
	return s.mutate(func() (emission, bool) {
		idx := s.indexOf(id)
		if idx < 0 {
			return emission{}, false
		}
		s.groups = append(s.groups[:idx], s.groups[idx+1:]...)
		wasSelected := s.isSelected(id)
		if wasSelected {
			s.selectedID = nil
		}
		return emission{groups: true, selected: wasSelected}, true
	})
}

// AddElementToGroup appends element to the group. An unknown group or an
// element id already present in the group is a no-op.
func (s *Store) AddElementToGroup(groupID int64, element model.FieldDefinition) bool {
	element = element.Clone()
	return s.mutate(func() (emission, bool) {
		idx := s.indexOf(groupID)
		if idx < 0 || s.groups[idx].IndexOf(element.ID) >= 0 {
			return emission{}, false
		}
		group := s.groups[idx].Clone()
		group.Elements = append(group.Elements, element)
		s.groups[idx] = group
		return emission{groups: true, selected: s.isSelected(groupID)}, true
	})
}

// UpdateElement replaces the element with the same id inside the group.
func (s *Store) UpdateElement(groupID int64, element model.FieldDefinition) bool {
	element = element.Clone()
	return s.mutate(func() (emission, bool) {
		idx := s.indexOf(groupID)
		if idx < 0 {
			return emission{}, false
		}
		pos := s.groups[idx].IndexOf(element.ID)
		if pos < 0 {
			return emission{}, false
		}
		group := s.groups[idx].Clone()
		group.Elements[pos] = element
		s.groups[idx] = group
		return emission{groups: true, selected: s.isSelected(groupID)}, true
	})
}

// DeleteElementFromGroup removes the element with the given id.
func (s *Store) DeleteElementFromGroup(groupID, elementID int64) bool {
	return s.mutate(func() (emission, bool) {
		idx := s.indexOf(groupID)
		if idx < 0 {
			return emission{}, false
		}
		pos := s.groups[idx].IndexOf(elementID)
		if pos < 0 {
			return emission{}, false
		}
		group := s.groups[idx].Clone()
		group.Elements = append(group.Elements[:pos], group.Elements[pos+1:]...)
		s.groups[idx] = group
		return emission{groups: true, selected: s.isSelected(groupID)}, true
	})
}

// DuplicateGroup appends a copy of the group named "<name> (Copy)" with a
// new store id. When ids is non-nil every element receives a fresh id from
// it; otherwise element ids are kept, which is safe because they are scoped
// to their group.
func (s *Store) DuplicateGroup(id int64, ids *model.IDSource) (model.FieldGroup, bool) {
	var created model.FieldGroup
	ok := s.mutate(func() (emission, bool) {
		idx := s.indexOf(id)
		if idx < 0 {
			return emission{}, false
		}
		created = s.groups[idx].Clone()
		created.ID = s.nextGroupID()
		created.Name = created.Name + " (Copy)"
		if ids != nil {
			for pos := range created.Elements {
				created.Elements[pos].ID = ids.Next()
			}
		}
		s.groups = append(s.groups, created.Clone())
		return emission{groups: true}, true
	})
	return created, ok
}

// ReplaceAll swaps the whole group list, as done on import. The selection is
// always cleared.
func (s *Store) ReplaceAll(groups []model.FieldGroup) {
	replacement := model.CloneGroups(groups)
	s.mutate(func() (emission, bool) {
		s.groups = replacement
		for _, group := range s.groups {
			if group.ID > s.highWater {
				s.highWater = group.ID
			}
		}
		s.selectedID = nil
		return emission{groups: true, selected: true}, true
	})
}

// mutate runs fn under the state lock, persists on success and delivers the
// emissions. Lock order is always emitMu then mu; mu is released before
// persisting and delivering, so callbacks can read the store while other
// goroutines queue their mutations.
func (s *Store) mutate(fn func() (emission, bool)) bool {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	emit, ok := fn()
	if !ok {
		s.mu.Unlock()
		return false
	}
	snap := storage.Snapshot{
		Groups:   model.CloneGroups(s.groups),
		Selected: s.selectedLocked(),
	}
	s.mu.Unlock()

	s.persist(snap)
	s.deliver(emit, snap)
	return true
}

func (s *Store) persist(snap storage.Snapshot) {
	if s.storage == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
	defer cancel()
	if err := s.storage.Save(ctx, snap); err != nil {
		s.logger.Error("store: persist failed", zap.Error(err), zap.Int("groups", len(snap.Groups)))
	}
}

func (s *Store) deliver(emit emission, snap storage.Snapshot) {
	s.subsMu.Lock()
	groupSubs := make([]GroupsFunc, 0, len(s.groupSubs))
	for _, id := range sortedKeys(s.groupSubs) {
		groupSubs = append(groupSubs, s.groupSubs[id])
	}
	selectedSubs := make([]SelectedFunc, 0, len(s.selectedSubs))
	for _, id := range sortedKeys(s.selectedSubs) {
		selectedSubs = append(selectedSubs, s.selectedSubs[id])
	}
	s.subsMu.Unlock()

	if emit.groups {
		for _, fn := range groupSubs {
			fn(model.CloneGroups(snap.Groups))
		}
	}
	if emit.selected {
		for _, fn := range selectedSubs {
			var selected *model.FieldGroup
			if snap.Selected != nil {
				clone := snap.Selected.Clone()
				selected = &clone
			}
			fn(selected)
		}
	}
}

func (s *Store) selectedLocked() *model.FieldGroup {
	if s.selectedID == nil {
		return nil
	}
	idx := s.indexOf(*s.selectedID)
	if idx < 0 {
		return nil
	}
	clone := s.groups[idx].Clone()
	return &clone
}

func (s *Store) isSelected(id int64) bool {
	return s.selectedID != nil && *s.selectedID == id
}

func (s *Store) indexOf(id int64) int {
	for idx, group := range s.groups {
		if group.ID == id {
			return idx
		}
	}
	return -1
}

func (s *Store) nextGroupID() int64 {
	next := s.highWater
	for _, group := range s.groups {
		if group.ID > next {
			next = group.ID
		}
	}
	next++
	s.highWater = next
	return next
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Ints(keys)
	return keys
}
