// Package filepreview manages revocable preview handles for upload fields.
// At most one handle is live per field id; replacing a file always revokes
// the previous handle before creating the next.
package filepreview

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

// DefaultMaxSize caps accepted blobs at one megabyte.
const DefaultMaxSize = 1_000_000

var (
	// ErrTooLarge is returned when a blob exceeds the configured size.
	ErrTooLarge = errors.New("filepreview: file too large")
	// ErrUnsupportedType is returned when a blob's sniffed type is not accepted.
	ErrUnsupportedType = errors.New("filepreview: unsupported file type")
)

// Option customises a Manager.
type Option func(*Manager)

// WithAccept sets accepted MIME patterns such as "image/*" or
// "application/pdf". An empty list accepts everything.
func WithAccept(patterns ...string) Option {
	return func(m *Manager) {
		m.accept = normalisePatterns(patterns)
	}
}

// WithMaxSize sets the largest accepted blob in bytes. Zero disables the cap.
func WithMaxSize(size int) Option {
	return func(m *Manager) {
		if size >= 0 {
			m.maxSize = size
		}
	}
}

// WithProvider replaces the default in-memory provider.
func WithProvider(provider Provider) Option {
	return func(m *Manager) {
		if provider != nil {
			m.provider = provider
		}
	}
}

// WithLogger sets the logger used for revocation failures.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// Manager tracks one handle per field id.
type Manager struct {
	mu       sync.Mutex
	handles  map[int64]Handle
	provider Provider
	accept   []string
	maxSize  int
	logger   *zap.Logger
}

// NewManager constructs a manager. Defaults: image/* only, DefaultMaxSize,
// MemoryProvider with blob: URLs.
func NewManager(options ...Option) *Manager {
	m := &Manager{
		handles: make(map[int64]Handle),
		accept:  []string{"image/*"},
		maxSize: DefaultMaxSize,
		logger:  zap.NewNop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(m)
	}
	if m.provider == nil {
		m.provider = NewMemoryProvider("")
	}
	return m
}

// Provider returns the handle provider in use.
func (m *Manager) Provider() Provider {
	return m.provider
}

// Set replaces the preview for fieldID. A blob rejected for its size or type
// leaves the existing handle live; an accepted one revokes it before the new
// handle is created.
func (m *Manager) Set(fieldID int64, blob Blob) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxSize > 0 && len(blob.Data) > m.maxSize {
		return Handle{}, fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, len(blob.Data), m.maxSize)
	}
	detected := mimetype.Detect(blob.Data)
	if !m.accepts(detected) {
		return Handle{}, fmt.Errorf("%w: %s", ErrUnsupportedType, detected.String())
	}
	blob.ContentType = detected.String()

	m.revokeLocked(fieldID)
	handle, err := m.provider.Create(fieldID, blob)
	if err != nil {
		return Handle{}, fmt.Errorf("filepreview: create handle: %w", err)
	}
	m.handles[fieldID] = handle
	return handle, nil
}

// Load reads path from disk and sets it as the preview for fieldID. Read
// failures are returned without touching existing handles.
func (m *Manager) Load(fieldID int64, path string) (Handle, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Handle{}, fmt.Errorf("filepreview: read %s: %w", path, err)
	}
	if m.maxSize > 0 && info.Size() > int64(m.maxSize) {
		return Handle{}, fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, info.Size(), m.maxSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Handle{}, fmt.Errorf("filepreview: read %s: %w", path, err)
	}
	return m.Set(fieldID, Blob{Name: filepath.Base(path), Data: data})
}

// Clear revokes and forgets the handle for fieldID.
func (m *Manager) Clear(fieldID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revokeLocked(fieldID)
}

// Get returns the live handle for fieldID.
func (m *Manager) Get(fieldID int64) (Handle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	handle, ok := m.handles[fieldID]
	return handle, ok
}

// Live returns every live handle ordered by field id.
func (m *Manager) Live() []Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Handle, 0, len(m.handles))
	for _, handle := range m.handles {
		out = append(out, handle)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FieldID < out[j].FieldID })
	return out
}

// Retain revokes every handle whose field id is not in fieldIDs. Call it
// when fields disappear from the rendered form.
func (m *Manager) Retain(fieldIDs []int64) int {
	keep := make(map[int64]struct{}, len(fieldIDs))
	for _, id := range fieldIDs {
		keep[id] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	released := 0
	for id := range m.handles {
		if _, ok := keep[id]; ok {
			continue
		}
		if m.revokeLocked(id) {
			released++
		}
	}
	return released
}

// ReleaseAll revokes every live handle.
func (m *Manager) ReleaseAll() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	released := 0
	for id := range m.handles {
		if m.revokeLocked(id) {
			released++
		}
	}
	return released
}

func (m *Manager) revokeLocked(fieldID int64) bool {
	handle, ok := m.handles[fieldID]
	if !ok {
		return false
	}
	delete(m.handles, fieldID)
	if err := m.provider.Revoke(handle.ID); err != nil {
		m.logger.Warn("filepreview: revoke failed",
			zap.Int64("field_id", fieldID),
			zap.String("handle_id", handle.ID),
			zap.Error(err),
		)
	}
	return true
}

func (m *Manager) accepts(detected *mimetype.MIME) bool {
	if len(m.accept) == 0 {
		return true
	}
	for _, pattern := range m.accept {
		if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
			for mime := detected; mime != nil; mime = mime.Parent() {
				if strings.HasPrefix(mime.String(), prefix+"/") {
					return true
				}
			}
			continue
		}
		if detected.Is(pattern) {
			return true
		}
	}
	return false
}

func normalisePatterns(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		if pattern != "" {
			out = append(out, pattern)
		}
	}
	return out
}
