package tui

import (
	"github.com/goliatone/go-formbuilder/pkg/compiler"
	"github.com/goliatone/go-formbuilder/pkg/render"
)

// State tracks prefilled answers, server-provided errors and attempt counts
// keyed by control key for one Render call.
type State struct {
	prefill  map[string]any
	errors   map[string][]string
	attempts map[string]int
}

// NewState seeds the state with prefilled values and errors.
func NewState(prefill map[string]any, errs map[string][]string) *State {
	s := &State{
		prefill:  make(map[string]any, len(prefill)),
		errors:   make(map[string][]string, len(errs)),
		attempts: make(map[string]int),
	}
	for key, value := range prefill {
		s.prefill[key] = value
	}
	for key, messages := range errs {
		s.errors[key] = append([]string(nil), messages...)
	}
	return s
}

// Default returns the text shown as the prompt default for a control.
func (s *State) Default(control render.ControlView, current any) string {
	if s != nil {
		if value, ok := s.prefill[control.Key]; ok {
			return compiler.FormatValue(control.Type, value)
		}
	}
	return compiler.FormatValue(control.Type, current)
}

// Selected returns the prefilled selection for a control, if any.
func (s *State) Selected(control render.ControlView) []string {
	if s == nil {
		return nil
	}
	switch v := s.prefill[control.Key].(type) {
	case string:
		return []string{v}
	case []string:
		return v
	default:
		return nil
	}
}

// TakeErrors returns and clears the server errors for key so they are shown
// once.
func (s *State) TakeErrors(key string) []string {
	if s == nil {
		return nil
	}
	messages := s.errors[key]
	delete(s.errors, key)
	return messages
}

// Attempt records an attempt for key and reports whether limit is exceeded.
func (s *State) Attempt(key string, limit int) bool {
	s.attempts[key]++
	return s.attempts[key] > limit
}

// ResetAttempts clears the counter for key.
func (s *State) ResetAttempts(key string) {
	delete(s.attempts, key)
}
