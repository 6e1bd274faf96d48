// Package storage persists the builder workspace under two logical keys: the
// full group list and a snapshot of the selected group. The encoding is plain
// JSON without a version tag; readers are tolerant and treat missing or
// unreadable entries as empty state.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/goliatone/go-formbuilder/pkg/model"
)

const (
	// KeyGroups holds the JSON array of field groups.
	KeyGroups = "groups"
	// KeySelectedGroup holds the selected group as a JSON object, or is absent.
	KeySelectedGroup = "selectedGroup"
)

// ErrNotFound is returned by KV backends when a key is absent.
var ErrNotFound = errors.New("storage: key not found")

// Snapshot is the persisted view of a store.
type Snapshot struct {
	Groups   []model.FieldGroup
	Selected *model.FieldGroup
}

// Storage loads and saves workspace snapshots.
type Storage interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}

// KV is the byte-level contract backends implement. Put applies every entry
// in one call; a nil value deletes the key. Backends that can apply the batch
// atomically should do so.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, entries map[string][]byte) error
}

// KVStorage adapts a KV backend to Storage.
type KVStorage struct {
	kv KV
}

// New wraps a KV backend.
func New(kv KV) *KVStorage {
	return &KVStorage{kv: kv}
}

// Load reads both keys. Missing keys yield empty state. A corrupt entry is
// reported via the returned error alongside whatever could be decoded, so
// callers can log and continue.
func (s *KVStorage) Load(ctx context.Context) (Snapshot, error) {
	if s == nil || s.kv == nil {
		return Snapshot{}, errors.New("storage: backend is nil")
	}

	var (
		snap Snapshot
		errs []error
	)

	raw, err := s.kv.Get(ctx, KeyGroups)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return Snapshot{}, fmt.Errorf("storage: read %s: %w", KeyGroups, err)
	default:
		if err := json.Unmarshal(raw, &snap.Groups); err != nil {
			snap.Groups = nil
			errs = append(errs, fmt.Errorf("storage: decode %s: %w", KeyGroups, err))
		}
	}

	raw, err = s.kv.Get(ctx, KeySelectedGroup)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return Snapshot{}, fmt.Errorf("storage: read %s: %w", KeySelectedGroup, err)
	default:
		var selected *model.FieldGroup
		if err := json.Unmarshal(raw, &selected); err != nil {
			errs = append(errs, fmt.Errorf("storage: decode %s: %w", KeySelectedGroup, err))
		} else {
			snap.Selected = selected
		}
	}

	return snap, errors.Join(errs...)
}

// Save writes both keys in a single Put.
func (s *KVStorage) Save(ctx context.Context, snap Snapshot) error {
	if s == nil || s.kv == nil {
		return errors.New("storage: backend is nil")
	}

	groups := snap.Groups
	if groups == nil {
		groups = []model.FieldGroup{}
	}
	groupsRaw, err := json.Marshal(groups)
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", KeyGroups, err)
	}

	entries := map[string][]byte{
		KeyGroups:        groupsRaw,
		KeySelectedGroup: nil,
	}
	if snap.Selected != nil {
		selectedRaw, err := json.Marshal(snap.Selected)
		if err != nil {
			return fmt.Errorf("storage: encode %s: %w", KeySelectedGroup, err)
		}
		entries[KeySelectedGroup] = selectedRaw
	}

	if err := s.kv.Put(ctx, entries); err != nil {
		return fmt.Errorf("storage: write: %w", err)
	}
	return nil
}
