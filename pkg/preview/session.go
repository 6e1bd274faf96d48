// Package preview binds the store's selected group to a live runtime form.
// Every emission of the selected group discards the current form, compiles a
// new one and releases all file-preview handles.
package preview

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/goliatone/go-formbuilder/pkg/compiler"
	"github.com/goliatone/go-formbuilder/pkg/filepreview"
	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/store"
)

var (
	// ErrNoForm is returned when no group is selected.
	ErrNoForm = errors.New("preview: no group selected")
	// ErrNotUpload is returned when a file targets a field that is not an
	// upload field of the current form.
	ErrNotUpload = errors.New("preview: field is not an upload field")
	// ErrStale is returned when a file read finishes after its field left
	// the form.
	ErrStale = errors.New("preview: form changed while reading file")
)

// Option customises a Session.
type Option func(*Session)

// WithManager supplies the file-preview manager.
func WithManager(manager *filepreview.Manager) Option {
	return func(s *Session) {
		if manager != nil {
			s.files = manager
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// OnRebuild registers a callback invoked after each recompilation with a
// copy of the new controls, or nil when the selection was cleared.
func OnRebuild(fn func(groupID int64, controls []compiler.Control)) Option {
	return func(s *Session) {
		s.onRebuild = fn
	}
}

// Session owns the runtime form of the selected group.
type Session struct {
	mu          sync.Mutex
	form        *compiler.Form
	files       *filepreview.Manager
	logger      *zap.Logger
	onRebuild   func(int64, []compiler.Control)
	unsubscribe func()
}

// NewSession subscribes to the store's selected group. The first form is
// compiled immediately from the current selection.
func NewSession(st *store.Store, options ...Option) *Session {
	s := &Session{logger: zap.NewNop()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	if s.files == nil {
		s.files = filepreview.NewManager(filepreview.WithLogger(s.logger))
	}
	s.unsubscribe = st.SubscribeSelected(s.rebuild)
	return s
}

func (s *Session) rebuild(group *model.FieldGroup) {
	s.mu.Lock()
	released := s.files.ReleaseAll()
	var (
		groupID  int64
		controls []compiler.Control
	)
	if group == nil {
		s.form = nil
	} else {
		s.form = compiler.Compile(*group)
		groupID = group.ID
		controls = s.form.Controls()
	}
	callback := s.onRebuild
	s.mu.Unlock()

	s.logger.Debug("preview: rebuilt",
		zap.Int64("group_id", groupID),
		zap.Int("controls", len(controls)),
		zap.Int("released_handles", released),
	)
	if callback != nil {
		callback(groupID, controls)
	}
}

// Active reports whether a form is compiled.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form != nil
}

// GroupID returns the id of the group the form was compiled from.
func (s *Session) GroupID() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.form == nil {
		return 0, false
	}
	return s.form.GroupID, true
}

// Controls returns copies of the current controls.
func (s *Session) Controls() ([]compiler.Control, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.form == nil {
		return nil, ErrNoForm
	}
	return s.form.Controls(), nil
}

// With runs fn with the current form while holding the session lock. fn
// must not retain the form.
func (s *Session) With(fn func(form *compiler.Form) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.form == nil {
		return ErrNoForm
	}
	return fn(s.form)
}

// SetValue assigns a value to a control.
func (s *Session) SetValue(key string, value any) error {
	return s.With(func(form *compiler.Form) error {
		return form.SetValue(key, value)
	})
}

// SetInput parses raw text for the control's type and assigns it.
func (s *Session) SetInput(key string, raw string) error {
	return s.With(func(form *compiler.Form) error {
		control, ok := form.Control(key)
		if !ok {
			return fmt.Errorf("%w: %s", compiler.ErrUnknownControl, key)
		}
		value, err := compiler.ParseInput(control.Type, raw)
		if err != nil {
			return err
		}
		return form.SetValue(key, value)
	})
}

// SetFile attaches blob to an upload field. The control value becomes the
// new handle.
func (s *Session) SetFile(fieldID int64, blob filepreview.Blob) (filepreview.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setFileLocked(fieldID, blob)
}

// LoadFile reads path and attaches it to an upload field. The read happens
// outside the session lock; if the form was rebuilt meanwhile and the field
// is gone the result is discarded with ErrStale.
func (s *Session) LoadFile(ctx context.Context, fieldID int64, path string) (filepreview.Handle, error) {
	s.mu.Lock()
	if _, err := s.uploadControlLocked(fieldID); err != nil {
		s.mu.Unlock()
		return filepreview.Handle{}, err
	}
	s.mu.Unlock()

	data, err := readFile(ctx, path)
	if err != nil {
		return filepreview.Handle{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.uploadControlLocked(fieldID); err != nil {
		return filepreview.Handle{}, fmt.Errorf("%w: %w", ErrStale, err)
	}
	return s.setFileLocked(fieldID, filepreview.Blob{Name: filepath.Base(path), Data: data})
}

// ClearFile releases the field's handle and resets its value to nil.
func (s *Session) ClearFile(fieldID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	control, err := s.uploadControlLocked(fieldID)
	if err != nil {
		return err
	}
	s.files.Clear(fieldID)
	return s.form.SetValue(control.Key, nil)
}

// PreviewURL returns the live preview URL for an upload field.
func (s *Session) PreviewURL(fieldID int64) (string, bool) {
	handle, ok := s.files.Get(fieldID)
	if !ok {
		return "", false
	}
	return handle.URL, true
}

// Submit validates and collects the form values.
func (s *Session) Submit() (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.form == nil {
		return nil, ErrNoForm
	}
	return s.form.Submit()
}

// Close unsubscribes from the store and releases every handle.
func (s *Session) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files.ReleaseAll()
	s.form = nil
}

func (s *Session) setFileLocked(fieldID int64, blob filepreview.Blob) (filepreview.Handle, error) {
	control, err := s.uploadControlLocked(fieldID)
	if err != nil {
		return filepreview.Handle{}, err
	}
	handle, err := s.files.Set(fieldID, blob)
	if err != nil {
		// A rejected blob keeps the previous preview; a failed create has
		// already revoked it.
		if _, live := s.files.Get(fieldID); !live {
			_ = s.form.SetValue(control.Key, nil)
		}
		return filepreview.Handle{}, err
	}
	if err := s.form.SetValue(control.Key, handle); err != nil {
		s.files.Clear(fieldID)
		return filepreview.Handle{}, err
	}
	return handle, nil
}

func (s *Session) uploadControlLocked(fieldID int64) (compiler.Control, error) {
	if s.form == nil {
		return compiler.Control{}, ErrNoForm
	}
	control, ok := s.form.Control(compiler.ControlKey(fieldID))
	if !ok || control.Type != model.FieldTypeUpload {
		return compiler.Control{}, fmt.Errorf("%w: %d", ErrNotUpload, fieldID)
	}
	return control, nil
}

func readFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("preview: read %s: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return data, nil
}
