package compiler

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	MessageRequired = "This field is required"
	MessageEmail    = "Please enter a valid email address"
)

// ErrUnknownControl is returned when a key does not name a control.
var ErrUnknownControl = errors.New("compiler: unknown control")

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidationError reports every failing control by key.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "compiler: validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", key, strings.Join(e.Fields[key], ", ")))
	}
	return "compiler: validation failed: " + strings.Join(parts, "; ")
}

// Form is a compiled group. It is not safe for concurrent use.
type Form struct {
	GroupID     int64
	Name        string
	Description string

	controls []*Control
	index    map[string]int
}

// Controls returns copies of the controls in element order.
func (f *Form) Controls() []Control {
	if f == nil {
		return nil
	}
	out := make([]Control, len(f.controls))
	for idx, control := range f.controls {
		out[idx] = cloneControl(*control)
	}
	return out
}

// Control returns a copy of the control with the given key.
func (f *Form) Control(key string) (Control, bool) {
	if f == nil {
		return Control{}, false
	}
	idx, ok := f.index[key]
	if !ok {
		return Control{}, false
	}
	return cloneControl(*f.controls[idx]), true
}

// Len returns the number of controls.
func (f *Form) Len() int {
	if f == nil {
		return 0
	}
	return len(f.controls)
}

// SetValue assigns a value to a control and marks it touched. Previous
// error messages are cleared until the next validation.
func (f *Form) SetValue(key string, value any) error {
	control, err := f.lookup(key)
	if err != nil {
		return err
	}
	control.Value = value
	control.Touched = true
	control.Errors = nil
	return nil
}

// Value returns the current value of a control.
func (f *Form) Value(key string) (any, bool) {
	control, err := f.lookup(key)
	if err != nil {
		return nil, false
	}
	return control.Value, true
}

// Values returns the current values keyed by control key.
func (f *Form) Values() map[string]any {
	if f == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(f.controls))
	for _, control := range f.controls {
		out[control.Key] = control.Value
	}
	return out
}

// Validate checks every control, records messages on each control and
// returns the failing ones. A nil map means the form is valid.
func (f *Form) Validate() map[string][]string {
	if f == nil {
		return nil
	}
	var failures map[string][]string
	for _, control := range f.controls {
		control.Errors = checkControl(*control)
		if len(control.Errors) == 0 {
			continue
		}
		if failures == nil {
			failures = make(map[string][]string)
		}
		failures[control.Key] = append([]string(nil), control.Errors...)
	}
	return failures
}

// Valid reports whether every control passes validation.
func (f *Form) Valid() bool {
	return len(f.Validate()) == 0
}

// MarkAllTouched flags every control as touched so messages become visible.
func (f *Form) MarkAllTouched() {
	if f == nil {
		return
	}
	for _, control := range f.controls {
		control.Touched = true
	}
}

// Submit validates the whole form. On success it returns the values keyed by
// control key. On failure every control is marked touched, values are left
// as they were and a *ValidationError is returned. Nothing is partially
// submitted.
func (f *Form) Submit() (map[string]any, error) {
	if f == nil {
		return nil, errors.New("compiler: form is nil")
	}
	if failures := f.Validate(); failures != nil {
		f.MarkAllTouched()
		return nil, &ValidationError{Fields: failures}
	}
	return f.Values(), nil
}

func (f *Form) lookup(key string) (*Control, error) {
	if f == nil {
		return nil, ErrUnknownControl
	}
	idx, ok := f.index[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownControl, key)
	}
	return f.controls[idx], nil
}

func checkControl(control Control) []string {
	var messages []string
	for _, kind := range control.Validators {
		switch kind {
		case ValidatorRequired:
			if isEmpty(control.Value) {
				messages = append(messages, MessageRequired)
			}
		case ValidatorEmail:
			if !isEmail(control.Value) {
				messages = append(messages, MessageEmail)
			}
		}
	}
	return messages
}

func isEmpty(value any) bool {
	if value == nil {
		return true
	}
	switch v := value.(type) {
	case string:
		return v == ""
	case []string:
		return len(v) == 0
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// isEmail passes empty values so optional fields stay valid. Anything other
// than a string cannot be an address.
func isEmail(value any) bool {
	if value == nil {
		return true
	}
	text, ok := value.(string)
	if !ok {
		return false
	}
	if text == "" {
		return true
	}
	return validate.Var(text, "email") == nil
}

func cloneControl(c Control) Control {
	out := c
	if c.Options != nil {
		out.Options = append([]string{}, c.Options...)
	}
	if c.Validators != nil {
		out.Validators = append([]ValidatorKind{}, c.Validators...)
	}
	if c.Errors != nil {
		out.Errors = append([]string(nil), c.Errors...)
	}
	if values, ok := c.Value.([]string); ok {
		out.Value = append([]string{}, values...)
	}
	return out
}
