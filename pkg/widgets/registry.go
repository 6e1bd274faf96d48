package widgets

import (
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-formbuilder/pkg/compiler"
	"github.com/goliatone/go-formbuilder/pkg/model"
)

// Built-in widget identifiers exposed by the registry.
const (
	WidgetTextInput      = "text-input"
	WidgetEmail          = "email"
	WidgetTextarea       = "textarea"
	WidgetNumber         = "number"
	WidgetDatePicker     = "date-picker"
	WidgetTimePicker     = "time-picker"
	WidgetDateTimePicker = "datetime-picker"
	WidgetSelect         = "select"
	WidgetRadioGroup     = "radio-group"
	WidgetCheckboxGroup  = "checkbox-group"
	WidgetFileUpload     = "file-upload"
)

// Matcher decides whether a widget should handle the supplied control.
type Matcher func(control compiler.Control) bool

type rule struct {
	name     string
	priority int
	match    Matcher
	order    int
}

// Registry selects widgets for compiled controls based on registered
// matchers. Higher priority wins; ties fall back to registration order. An
// empty registry never resolves a widget.
type Registry struct {
	mu        sync.RWMutex
	rules     []rule
	overrides map[int64]string
}

// NewRegistry constructs a registry with the built-in widget matchers
// registered.
func NewRegistry() *Registry {
	reg := &Registry{}
	reg.registerBuiltins()
	return reg
}

// Register adds a widget matcher with the provided name and priority. Higher
// priority values take precedence. Callers should avoid duplicate names; the
// latest registration wins during resolution.
func (r *Registry) Register(name string, priority int, matcher Matcher) {
	if r == nil || matcher == nil {
		return
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rules = append(r.rules, rule{
		name:     trimmed,
		priority: priority,
		match:    matcher,
		order:    len(r.rules),
	})
}

// Override pins a widget for one field id regardless of matchers. An empty
// name removes the pin.
func (r *Registry) Override(fieldID int64, name string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	name = strings.TrimSpace(name)
	if name == "" {
		delete(r.overrides, fieldID)
		return
	}
	if r.overrides == nil {
		r.overrides = make(map[int64]string)
	}
	r.overrides[fieldID] = name
}

// Resolve returns the widget name for a control. Pinned overrides are
// honoured before matcher evaluation.
func (r *Registry) Resolve(control compiler.Control) (string, bool) {
	if r == nil {
		return "", false
	}
	r.mu.RLock()
	if pinned, ok := r.overrides[control.FieldID]; ok {
		r.mu.RUnlock()
		return pinned, true
	}
	if len(r.rules) == 0 {
		r.mu.RUnlock()
		return "", false
	}
	rules := append([]rule(nil), r.rules...)
	r.mu.RUnlock()
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].priority == rules[j].priority {
			return rules[i].order < rules[j].order
		}
		return rules[i].priority > rules[j].priority
	})
	for _, entry := range rules {
		if entry.match(control) {
			return entry.name, true
		}
	}
	return "", false
}

// Assign resolves a widget for every control and returns them keyed by
// control key. Controls with no match are omitted.
func (r *Registry) Assign(controls []compiler.Control) map[string]string {
	out := make(map[string]string, len(controls))
	for _, control := range controls {
		if widget, ok := r.Resolve(control); ok && widget != "" {
			out[control.Key] = widget
		}
	}
	return out
}

func (r *Registry) registerBuiltins() {
	r.Register(WidgetFileUpload, 90, func(control compiler.Control) bool {
		return control.Type == model.FieldTypeUpload
	})

	r.Register(WidgetEmail, 80, func(control compiler.Control) bool {
		return control.Type == model.FieldTypeSingleLineText && control.HasValidator(compiler.ValidatorEmail)
	})

	r.Register(WidgetCheckboxGroup, 70, func(control compiler.Control) bool {
		return control.Type == model.FieldTypeMultiSelection
	})

	r.Register(WidgetRadioGroup, 70, func(control compiler.Control) bool {
		return control.Type == model.FieldTypeSingleSelection
	})

	r.Register(WidgetSelect, 70, func(control compiler.Control) bool {
		return control.Type == model.FieldTypeDropdown
	})

	r.Register(WidgetTextarea, 60, func(control compiler.Control) bool {
		return control.Type == model.FieldTypeMultiLineText
	})

	r.Register(WidgetNumber, 60, func(control compiler.Control) bool {
		return control.Type == model.FieldTypeInteger
	})

	r.Register(WidgetDatePicker, 60, func(control compiler.Control) bool {
		return control.Type == model.FieldTypeDate
	})

	r.Register(WidgetTimePicker, 60, func(control compiler.Control) bool {
		return control.Type == model.FieldTypeTime
	})

	r.Register(WidgetDateTimePicker, 60, func(control compiler.Control) bool {
		return control.Type == model.FieldTypeDateTime
	})

	r.Register(WidgetTextInput, 0, func(compiler.Control) bool {
		return true
	})
}
