package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/goliatone/go-formbuilder/pkg/compiler"
	"github.com/goliatone/go-formbuilder/pkg/filepreview"
	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/render"
)

// Name is the registry name of the TUI renderer.
const Name = "tui"

const skipOption = "(none)"

// Renderer implements render.Renderer by filling the compiled form through
// terminal prompts. Render returns the submitted values, not markup.
type Renderer struct {
	driver            PromptDriver
	outputFormat      OutputFormat
	files             *filepreview.Manager
	maxAttempts       int
	confirmSubmit     bool
	submitTransformer SubmitTransformer
	theme             Theme
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs a TUI renderer with defaults (survey driver, JSON output).
func New(options ...Option) *Renderer {
	r := &Renderer{
		outputFormat: OutputFormatJSON,
		maxAttempts:  DefaultMaxAttempts,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	if r.driver == nil {
		r.driver = NewSurveyDriver(nil)
	}
	return r
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return Name
}

// ContentType reports the serialization format used by Render.
func (r *Renderer) ContentType() string {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return "application/x-www-form-urlencoded"
	case OutputFormatPrettyText:
		return "text/plain; charset=utf-8"
	default:
		return "application/json"
	}
}

// Render prompts every control in element order, re-prompting a control
// until its answer parses and passes the control's validators. The form is
// then submitted; controls still failing are prompted again up to the attempt
// limit. The submitted values are serialized in the configured format.
func (r *Renderer) Render(ctx context.Context, form *compiler.Form, opts render.RenderOptions) ([]byte, error) {
	if ctx == nil {
		return nil, errors.New("tui: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.driver == nil {
		return nil, errors.New("tui: prompt driver is nil")
	}
	if form == nil {
		return nil, errors.New("tui: form is nil")
	}

	view := render.BuildView(form, opts)
	state := NewState(opts.Values, opts.Errors)

	if view.Title != "" {
		if err := r.driver.Info(ctx, r.info(view.Title)); err != nil {
			return nil, err
		}
	}
	for _, message := range view.FormErrors {
		if err := r.driver.Info(ctx, r.errorLine(message)); err != nil {
			return nil, err
		}
	}

	for _, control := range view.Controls {
		if err := r.promptControl(ctx, form, control, state); err != nil {
			return nil, err
		}
	}

	values, err := r.submit(ctx, form, view, state)
	if err != nil {
		return nil, err
	}

	if r.confirmSubmit {
		ok, err := r.driver.Confirm(ctx, ConfirmConfig{Message: view.SubmitLabel + "?", Default: true})
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrDeclined
		}
	}

	out := render.ExportValues(form, values)
	if r.submitTransformer != nil {
		out, err = r.submitTransformer(out)
		if err != nil {
			return nil, fmt.Errorf("tui: submit transformer: %w", err)
		}
	}
	return r.serialize(out)
}

// submit re-prompts failing controls until the form validates, giving up
// after maxAttempts rounds.
func (r *Renderer) submit(ctx context.Context, form *compiler.Form, view render.FormView, state *State) (map[string]any, error) {
	byKey := make(map[string]render.ControlView, len(view.Controls))
	for _, control := range view.Controls {
		byKey[control.Key] = control
	}

	for round := 0; ; round++ {
		values, err := form.Submit()
		if err == nil {
			return values, nil
		}
		var verr *compiler.ValidationError
		if !errors.As(err, &verr) {
			return nil, err
		}
		if round >= r.maxAttempts {
			return nil, fmt.Errorf("%w: %w", ErrTooManyAttempts, verr)
		}
		for _, key := range sortedKeys(verr.Fields) {
			if err := r.promptControl(ctx, form, byKey[key], state); err != nil {
				return nil, err
			}
		}
	}
}

func (r *Renderer) promptControl(ctx context.Context, form *compiler.Form, control render.ControlView, state *State) error {
	for _, message := range state.TakeErrors(control.Key) {
		if err := r.driver.Info(ctx, r.errorLine(control.Label+": "+message)); err != nil {
			return err
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		value, skip, err := r.ask(ctx, form, control, state)
		if err != nil {
			var invalid *answerError
			if !errors.As(err, &invalid) {
				return err
			}
			if r.exhausted(control.Key, state) {
				return fmt.Errorf("%w: %s: %w", ErrTooManyAttempts, control.Key, err)
			}
			if infoErr := r.driver.Info(ctx, r.errorLine(fmt.Sprintf("Invalid %s: %v", control.Label, err))); infoErr != nil {
				return infoErr
			}
			continue
		}
		if skip {
			state.ResetAttempts(control.Key)
			return nil
		}

		if err := form.SetValue(control.Key, value); err != nil {
			return err
		}
		failures := form.Validate()[control.Key]
		if len(failures) == 0 {
			state.ResetAttempts(control.Key)
			return nil
		}
		if r.exhausted(control.Key, state) {
			return fmt.Errorf("%w: %s: %s", ErrTooManyAttempts, control.Key, strings.Join(failures, ", "))
		}
		for _, message := range failures {
			if err := r.driver.Info(ctx, r.errorLine(control.Label+": "+message)); err != nil {
				return err
			}
		}
	}
}

func (r *Renderer) exhausted(key string, state *State) bool {
	return state.Attempt(key, r.maxAttempts-1)
}

// ask runs one prompt for control. skip reports that the control keeps its
// current value.
func (r *Renderer) ask(ctx context.Context, form *compiler.Form, control render.ControlView, state *State) (any, bool, error) {
	current, _ := form.Value(control.Key)
	message := control.Label
	if control.Required {
		message += " *"
	}

	switch control.Type {
	case model.FieldTypeMultiLineText:
		text, err := r.driver.TextArea(ctx, TextAreaConfig{
			Message: message,
			Default: state.Default(control, current),
			Help:    control.Placeholder,
		})
		return text, false, err

	case model.FieldTypeDropdown, model.FieldTypeSingleSelection:
		return r.askSingle(ctx, control, message, state)

	case model.FieldTypeMultiSelection:
		return r.askMulti(ctx, control, message, state)

	case model.FieldTypeUpload:
		return r.askUpload(ctx, control, message)

	default:
		answer, err := r.driver.Input(ctx, InputConfig{
			Message: message,
			Default: state.Default(control, current),
			Help:    inputHelp(control),
			Validator: func(raw string) error {
				_, err := compiler.ParseInput(control.Type, raw)
				return err
			},
		})
		if err != nil {
			return nil, false, err
		}
		value, err := compiler.ParseInput(control.Type, answer)
		if err != nil {
			return nil, false, &answerError{err: err}
		}
		return value, false, nil
	}
}

// answerError marks an answer that can be corrected by prompting again.
type answerError struct {
	err error
}

func (e *answerError) Error() string { return e.err.Error() }

func (e *answerError) Unwrap() error { return e.err }

func (r *Renderer) askSingle(ctx context.Context, control render.ControlView, message string, state *State) (any, bool, error) {
	options, labels := optionLists(control)
	offset := 0
	if !control.Required {
		labels = append([]string{skipOption}, labels...)
		offset = 1
	}

	defaultIndex := 0
	if selected := state.Selected(control); len(selected) > 0 {
		defaultIndex = indexOf(options, selected[0]) + offset
	} else if idx := selectedIndices(control); len(idx) > 0 {
		defaultIndex = idx[0] + offset
	}

	idx, err := r.driver.Select(ctx, SelectConfig{
		Message:      message,
		Options:      labels,
		DefaultIndex: defaultIndex,
		Help:         control.Placeholder,
	})
	if err != nil {
		return nil, false, err
	}
	if offset == 1 && idx == 0 {
		return "", false, nil
	}
	idx -= offset
	if idx < 0 || idx >= len(options) {
		return nil, false, &answerError{err: fmt.Errorf("selection %d out of range", idx)}
	}
	return options[idx], false, nil
}

func (r *Renderer) askMulti(ctx context.Context, control render.ControlView, message string, state *State) (any, bool, error) {
	options, labels := optionLists(control)

	defaults := selectedIndices(control)
	if selected := state.Selected(control); len(selected) > 0 {
		defaults = indicesOf(options, selected)
	}

	indices, err := r.driver.MultiSelect(ctx, SelectConfig{
		Message:  message,
		Options:  labels,
		Defaults: defaults,
		Help:     control.Placeholder,
	})
	if err != nil {
		return nil, false, err
	}
	return defaultsFromIndices(options, indices), false, nil
}

func (r *Renderer) askUpload(ctx context.Context, control render.ControlView, message string) (any, bool, error) {
	if r.files == nil {
		if err := r.driver.Info(ctx, r.info(control.Label+": file uploads are not available here")); err != nil {
			return nil, false, err
		}
		return nil, true, nil
	}

	path, err := r.driver.Input(ctx, InputConfig{
		Message: message,
		Help:    "Path to a file on disk",
	})
	if err != nil {
		return nil, false, err
	}
	path = strings.TrimSpace(path)
	if path == "" {
		r.files.Clear(control.FieldID)
		return nil, false, nil
	}
	handle, err := r.files.Load(control.FieldID, path)
	if err != nil {
		return nil, false, &answerError{err: err}
	}
	return handle, false, nil
}

func (r *Renderer) info(msg string) string {
	return r.theme.InfoPrefix + msg
}

func (r *Renderer) errorLine(msg string) string {
	return r.theme.ErrorPrefix + msg
}

func (r *Renderer) serialize(values map[string]any) ([]byte, error) {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return []byte(flattenForm(values)), nil
	case OutputFormatPrettyText:
		return []byte(prettyPrint(values)), nil
	default:
		return json.Marshal(values)
	}
}

func inputHelp(control render.ControlView) string {
	switch control.Type {
	case model.FieldTypeDate:
		return "Format: " + compiler.DateLayout
	case model.FieldTypeTime:
		return "Format: " + compiler.TimeLayout
	case model.FieldTypeDateTime:
		return "Format: RFC 3339 or " + compiler.DateTimeLocalLayout
	case model.FieldTypeInteger:
		return "Whole number"
	default:
		return control.Placeholder
	}
}

func optionLists(control render.ControlView) ([]string, []string) {
	values := make([]string, len(control.Options))
	labels := make([]string, len(control.Options))
	for i, option := range control.Options {
		values[i] = option.Value
		labels[i] = option.Label
	}
	return values, labels
}

func selectedIndices(control render.ControlView) []int {
	var out []int
	for i, option := range control.Options {
		if option.Selected {
			out = append(out, i)
		}
	}
	return out
}

func flattenForm(values map[string]any) string {
	flattened := url.Values{}
	for key, value := range values {
		switch v := value.(type) {
		case nil:
			flattened.Set(key, "")
		case []string:
			for _, item := range v {
				flattened.Add(key, item)
			}
		case render.FileInfo:
			flattened.Set(key, v.Name)
		default:
			flattened.Set(key, fmt.Sprint(v))
		}
	}
	return flattened.Encode()
}

func prettyPrint(values map[string]any) string {
	var b strings.Builder
	for _, key := range sortedKeys(values) {
		switch v := values[key].(type) {
		case nil:
			fmt.Fprintf(&b, "%s=\n", key)
		case []string:
			fmt.Fprintf(&b, "%s=%s\n", key, strings.Join(v, ", "))
		case render.FileInfo:
			fmt.Fprintf(&b, "%s=%s\n", key, v.Name)
		default:
			fmt.Fprintf(&b, "%s=%v\n", key, v)
		}
	}
	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
