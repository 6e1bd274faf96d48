// Package html renders compiled forms as HTML fragments or standalone pages
// using pongo2 templates embedded in the binary.
package html

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formbuilder/pkg/compiler"
	"github.com/goliatone/go-formbuilder/pkg/render"
	rendertemplate "github.com/goliatone/go-formbuilder/pkg/render/template"
	"github.com/goliatone/go-formbuilder/pkg/render/template/gotemplate"
	"github.com/goliatone/go-formbuilder/pkg/widgets"
)

// Name is the registry name of the HTML renderer.
const Name = "html"

const (
	formTemplate   = "templates/form"
	fieldTemplate  = "templates/field"
	pageTemplate   = "templates/page"
	widgetTemplate = "templates/widgets/"
)

// inputTypes maps widgets rendered by the shared input template to their
// HTML input type.
var inputTypes = map[string]string{
	widgets.WidgetTextInput:      "text",
	widgets.WidgetEmail:          "email",
	widgets.WidgetNumber:         "number",
	widgets.WidgetDatePicker:     "date",
	widgets.WidgetTimePicker:     "time",
	widgets.WidgetDateTimePicker: "datetime-local",
}

// Option configures the renderer.
type Option func(*config)

type config struct {
	templateFS       fs.FS
	templateRenderer rendertemplate.TemplateRenderer
	accept           []string
	policy           *bluemonday.Policy
	standalone       bool
}

// WithTemplatesFS supplies an alternate template bundle via fs.FS.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir loads templates from a directory on disk.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		if path == "" {
			return
		}
		cfg.templateFS = os.DirFS(path)
	}
}

// WithTemplateRenderer injects a custom template engine.
func WithTemplateRenderer(renderer rendertemplate.TemplateRenderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.templateRenderer = renderer
		}
	}
}

// WithAccept sets the accept attribute of upload inputs.
func WithAccept(patterns ...string) Option {
	return func(cfg *config) {
		cfg.accept = append([]string(nil), patterns...)
	}
}

// WithPolicy overrides the sanitiser applied to group descriptions.
func WithPolicy(policy *bluemonday.Policy) Option {
	return func(cfg *config) {
		cfg.policy = policy
	}
}

// WithStandalone wraps the form in a complete HTML document with the bundled
// stylesheet inlined.
func WithStandalone() Option {
	return func(cfg *config) {
		cfg.standalone = true
	}
}

// Renderer implements render.Renderer for HTML output.
type Renderer struct {
	templates  rendertemplate.TemplateRenderer
	accept     string
	policy     *bluemonday.Policy
	standalone bool
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs the HTML renderer.
func New(options ...Option) (*Renderer, error) {
	cfg := config{
		templateFS: TemplatesFS(),
		accept:     []string{"image/*"},
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	if cfg.templateFS == nil {
		cfg.templateFS = TemplatesFS()
	}

	engine := cfg.templateRenderer
	if engine == nil {
		built, err := gotemplate.New(
			gotemplate.WithFS(cfg.templateFS),
			gotemplate.WithExtension(".tmpl"),
		)
		if err != nil {
			return nil, fmt.Errorf("html renderer: configure template renderer: %w", err)
		}
		engine = built
	}

	policy := cfg.policy
	if policy == nil {
		policy = descriptionSanitizer()
	}

	return &Renderer{
		templates:  engine,
		accept:     strings.Join(cfg.accept, ","),
		policy:     policy,
		standalone: cfg.standalone,
	}, nil
}

func (r *Renderer) Name() string {
	return Name
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Render produces the form markup. Descriptions are sanitised; every other
// text value is escaped by the template engine.
func (r *Renderer) Render(ctx context.Context, form *compiler.Form, options render.RenderOptions) ([]byte, error) {
	if r == nil || r.templates == nil {
		return nil, fmt.Errorf("html renderer: template renderer is nil")
	}
	if form == nil {
		return nil, fmt.Errorf("html renderer: form is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	view := render.BuildView(form, options)
	translate := render.TemplateI18nFuncs(options)["t"]

	fields := make([]string, 0, len(view.Controls))
	for _, control := range view.Controls {
		markup, err := r.renderControl(control, translate)
		if err != nil {
			return nil, err
		}
		fields = append(fields, markup)
	}

	body, err := r.templates.RenderTemplate(formTemplate, map[string]any{
		"form":        view,
		"fields":      fields,
		"description": sanitizeDescription(r.policy, view.Description),
	})
	if err != nil {
		return nil, fmt.Errorf("html renderer: render form: %w", err)
	}
	if !r.standalone {
		return []byte(body), nil
	}

	page, err := r.templates.RenderTemplate(pageTemplate, map[string]any{
		"title":      view.Title,
		"lang":       options.Locale,
		"stylesheet": Stylesheet(),
		"body":       body,
	})
	if err != nil {
		return nil, fmt.Errorf("html renderer: render page: %w", err)
	}
	return []byte(page), nil
}

func (r *Renderer) renderControl(control render.ControlView, translate any) (string, error) {
	name := control.Widget
	if name == "" {
		name = widgets.WidgetTextInput
	}

	data := map[string]any{
		"control": control,
		"accept":  r.accept,
		"t":       translate,
	}
	tmpl := widgetTemplate + name
	if inputType, ok := inputTypes[name]; ok {
		tmpl = widgetTemplate + "input"
		data["input_type"] = inputType
	}

	input, err := r.templates.RenderTemplate(tmpl, data)
	if err != nil {
		return "", fmt.Errorf("html renderer: render widget %q for %s: %w", name, control.Key, err)
	}

	markup, err := r.templates.RenderTemplate(fieldTemplate, map[string]any{
		"control":   control,
		"input":     strings.TrimSpace(input),
		"label_for": labelSupportsFor(name),
	})
	if err != nil {
		return "", fmt.Errorf("html renderer: render field %s: %w", control.Key, err)
	}
	return markup, nil
}

// labelSupportsFor reports whether the widget renders a single focusable
// element a <label for> can point at.
func labelSupportsFor(widget string) bool {
	switch widget {
	case widgets.WidgetRadioGroup, widgets.WidgetCheckboxGroup:
		return false
	default:
		return true
	}
}
