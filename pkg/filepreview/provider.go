package filepreview

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrUnknownHandle is returned when a handle id is not live.
var ErrUnknownHandle = errors.New("filepreview: unknown handle")

// Blob is file content selected for an upload field.
type Blob struct {
	Name        string
	ContentType string
	Data        []byte
}

// Handle is a live, revocable reference to a previewable blob.
type Handle struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	FieldID int64  `json:"fieldId"`
	Name    string `json:"name"`
	Size    int    `json:"size"`
	MIME    string `json:"mime"`
}

// Provider issues and revokes handles.
type Provider interface {
	Create(fieldID int64, blob Blob) (Handle, error)
	Revoke(handleID string) error
}

// MemoryProvider keeps blobs in memory and issues blob: URLs. It can serve
// live blobs back to an HTTP adapter through Open.
type MemoryProvider struct {
	mu      sync.RWMutex
	prefix  string
	entries map[string]memoryEntry
}

type memoryEntry struct {
	handle Handle
	blob   Blob
}

// NewMemoryProvider returns a provider whose URLs start with prefix. An empty
// prefix yields "blob:" URLs.
func NewMemoryProvider(prefix string) *MemoryProvider {
	if prefix == "" {
		prefix = "blob:"
	}
	return &MemoryProvider{prefix: prefix, entries: make(map[string]memoryEntry)}
}

// Create implements Provider.
func (p *MemoryProvider) Create(fieldID int64, blob Blob) (Handle, error) {
	id := uuid.NewString()
	handle := Handle{
		ID:      id,
		URL:     p.prefix + id,
		FieldID: fieldID,
		Name:    blob.Name,
		Size:    len(blob.Data),
		MIME:    blob.ContentType,
	}
	stored := blob
	stored.Data = append([]byte(nil), blob.Data...)

	p.mu.Lock()
	p.entries[id] = memoryEntry{handle: handle, blob: stored}
	p.mu.Unlock()
	return handle, nil
}

// Revoke implements Provider.
func (p *MemoryProvider) Revoke(handleID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.entries[handleID]; !ok {
		return ErrUnknownHandle
	}
	delete(p.entries, handleID)
	return nil
}

// Open returns the blob behind a live handle.
func (p *MemoryProvider) Open(handleID string) (Blob, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entry, ok := p.entries[handleID]
	if !ok {
		return Blob{}, ErrUnknownHandle
	}
	return entry.blob, nil
}

// Live returns the number of handles not yet revoked.
func (p *MemoryProvider) Live() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}
