package render

import (
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-formbuilder/pkg/compiler"
	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/widgets"
)

// FormView is the localised, display-ready projection of a compiled form that
// renderers consume.
type FormView struct {
	GroupID     int64
	Title       string
	Description string
	Action      string
	Method      string
	SubmitLabel string
	Multipart   bool
	Controls    []ControlView
	Hidden      []HiddenField
	FormErrors  []string
}

// ControlView is the display state of a single control.
type ControlView struct {
	Key         string
	FieldID     int64
	Type        model.FieldType
	Widget      string
	Label       string
	Placeholder string
	Required    bool
	Email       bool
	Value       string
	Options     []OptionView
	Errors      []string
	PreviewURL  string
}

// OptionView is one choice of a selection control.
type OptionView struct {
	Value    string
	Label    string
	Selected bool
}

// HasErrors reports whether the control carries messages.
func (c ControlView) HasErrors() bool {
	return len(c.Errors) > 0
}

// BuildView projects form and opts into a FormView. Control errors are shown
// only for touched controls; errors supplied through opts are always shown.
func BuildView(form *compiler.Form, opts RenderOptions) FormView {
	l := newLocalizer(opts)

	registry := opts.Widgets
	if registry == nil {
		registry = widgets.NewRegistry()
	}

	method := strings.ToUpper(strings.TrimSpace(opts.Method))
	if method == "" {
		method = http.MethodPost
	}
	submit := strings.TrimSpace(opts.SubmitLabel)
	if submit == "" {
		submit = l.text(KeySubmit, DefaultSubmitLabel)
	}

	view := FormView{
		Action:      strings.TrimSpace(opts.Action),
		Method:      method,
		SubmitLabel: submit,
		FormErrors:  normalizeMessages(l.messages(opts.FormErrors)),
	}
	if form == nil {
		view.Hidden = SortedHiddenFields(opts.HiddenFields)
		return view
	}

	view.GroupID = form.GroupID
	view.Title = form.Name
	view.Description = form.Description
	view.Hidden = SortedHiddenFields(MergeHiddenFields(opts.HiddenFields, GroupField(form.GroupID)))

	controls := form.Controls()
	view.Controls = make([]ControlView, 0, len(controls))
	for _, control := range controls {
		value := control.Value
		if override, ok := opts.Values[control.Key]; ok {
			value = override
		}

		var errs []string
		if control.Touched {
			errs = append(errs, control.Errors...)
		}
		errs = append(errs, opts.Errors[control.Key]...)

		widget, _ := registry.Resolve(control)
		cv := ControlView{
			Key:         control.Key,
			FieldID:     control.FieldID,
			Type:        control.Type,
			Widget:      widget,
			Label:       l.text(FieldKey(control.FieldID, "label"), control.Label),
			Placeholder: l.text(FieldKey(control.FieldID, "placeholder"), control.Placeholder),
			Required:    control.Required,
			Email:       control.HasValidator(compiler.ValidatorEmail),
			Value:       displayValue(control.Type, value),
			Options:     optionViews(control, value, l),
			Errors:      normalizeMessages(l.messages(errs)),
			PreviewURL:  opts.PreviewURLs[control.FieldID],
		}
		if control.Type == model.FieldTypeUpload {
			view.Multipart = true
		}
		view.Controls = append(view.Controls, cv)
	}
	return view
}

func displayValue(t model.FieldType, value any) string {
	if ts, ok := value.(time.Time); ok && t == model.FieldTypeDateTime {
		return ts.Format(compiler.DateTimeLocalLayout)
	}
	if t.IsSelection() {
		return ""
	}
	return compiler.FormatValue(t, value)
}

func optionViews(control compiler.Control, value any, l localizer) []OptionView {
	if len(control.Options) == 0 {
		return nil
	}
	selected := map[string]bool{}
	switch v := value.(type) {
	case string:
		selected[v] = true
	case []string:
		for _, s := range v {
			selected[s] = true
		}
	}

	out := make([]OptionView, len(control.Options))
	for i, option := range control.Options {
		out[i] = OptionView{
			Value:    option,
			Label:    l.text(FieldKey(control.FieldID, "options."+option), option),
			Selected: selected[option],
		}
	}
	return out
}
