package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/goliatone/go-formbuilder/pkg/compiler"
	"github.com/goliatone/go-formbuilder/pkg/filepreview"
	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/render"
	"github.com/goliatone/go-formbuilder/pkg/renderers/html"
	"github.com/goliatone/go-formbuilder/pkg/widgets"
)

const defaultRendererName = html.Name

// ErrGroupNotFound is returned when a request names a group the source does
// not hold.
var ErrGroupNotFound = errors.New("orchestrator: group not found")

// GroupSource looks groups up by id. *store.Store satisfies it.
type GroupSource interface {
	Group(id int64) (model.FieldGroup, bool)
}

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithSource sets the group source requests resolve GroupID against.
func WithSource(source GroupSource) Option {
	return func(o *Orchestrator) {
		o.source = source
	}
}

// WithRegistry injects a renderer registry.
func WithRegistry(registry *render.Registry) Option {
	return func(o *Orchestrator) {
		o.registry = registry
	}
}

// WithDefaultRenderer overrides the renderer used when a request omits an
// explicit Renderer field.
func WithDefaultRenderer(name string) Option {
	return func(o *Orchestrator) {
		o.defaultRenderer = name
	}
}

// WithWidgets sets the widget registry passed to renderers when a request
// does not carry its own.
func WithWidgets(registry *widgets.Registry) Option {
	return func(o *Orchestrator) {
		o.widgets = registry
	}
}

// WithFiles supplies live preview handles; their URLs fill
// RenderOptions.PreviewURLs for fields the request leaves unset.
func WithFiles(manager *filepreview.Manager) Option {
	return func(o *Orchestrator) {
		o.files = manager
	}
}

// WithSchemaTransformer registers a Transformer that runs on the group copy
// before decorators.
func WithSchemaTransformer(t Transformer) Option {
	return func(o *Orchestrator) {
		o.transformer = t
	}
}

// WithDecorators registers decorators that run against the group copy
// before compilation.
func WithDecorators(decorators ...model.Decorator) Option {
	return func(o *Orchestrator) {
		if len(decorators) == 0 {
			return
		}
		o.decorators = append(o.decorators, decorators...)
	}
}

// WithLogger sets the logger used for pipeline diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Orchestrator coordinates the pipeline from a stored group to rendered
// output. It applies defaults (HTML renderer, built-in widgets) while
// remaining open to dependency injection.
type Orchestrator struct {
	source          GroupSource
	registry        *render.Registry
	defaultRenderer string
	widgets         *widgets.Registry
	files           *filepreview.Manager
	transformer     Transformer
	decorators      []model.Decorator
	logger          *zap.Logger
	initialiseErr   error
}

// New constructs an Orchestrator applying any provided options.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{
		defaultRenderer: defaultRendererName,
		logger:          zap.NewNop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	o.applyDefaults()
	return o
}

// Request describes one render.
type Request struct {
	// GroupID selects the group from the configured source. Ignored when
	// Group is set.
	GroupID int64

	// Group bypasses the source with an explicit group value.
	Group *model.FieldGroup

	// Renderer names the renderer to use. Empty selects the default.
	Renderer string

	// RenderOptions carries per-request values, errors and hidden fields.
	RenderOptions render.RenderOptions
}

// Registry returns the renderer registry in use.
func (o *Orchestrator) Registry() *render.Registry {
	return o.registry
}

// Compile resolves the request's group, runs the transformer and decorators
// on a copy, and compiles the result.
func (o *Orchestrator) Compile(ctx context.Context, req Request) (*compiler.Form, error) {
	if ctx == nil {
		return nil, errors.New("orchestrator: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	group, err := o.resolveGroup(req)
	if err != nil {
		return nil, err
	}
	if err := o.applyTransformer(ctx, &group); err != nil {
		return nil, err
	}
	if err := o.applyDecorators(&group); err != nil {
		return nil, err
	}
	return compiler.Compile(group), nil
}

// Generate compiles the request's group and renders it with the named
// renderer.
func (o *Orchestrator) Generate(ctx context.Context, req Request) ([]byte, error) {
	if err := o.initialiseErr; err != nil {
		return nil, err
	}

	form, err := o.Compile(ctx, req)
	if err != nil {
		return nil, err
	}
	renderer, err := o.rendererFor(req.Renderer)
	if err != nil {
		return nil, err
	}

	options := o.renderOptions(form, req.RenderOptions)
	output, err := renderer.Render(ctx, form, options)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: render output: %w", err)
	}

	o.logger.Debug("form rendered",
		zap.Int64("group_id", form.GroupID),
		zap.String("renderer", renderer.Name()),
		zap.Int("controls", form.Len()),
		zap.Int("bytes", len(output)),
	)
	return output, nil
}

func (o *Orchestrator) resolveGroup(req Request) (model.FieldGroup, error) {
	if req.Group != nil {
		return req.Group.Clone(), nil
	}
	if o.source == nil {
		return model.FieldGroup{}, errors.New("orchestrator: group source or group is required")
	}
	group, ok := o.source.Group(req.GroupID)
	if !ok {
		return model.FieldGroup{}, fmt.Errorf("%w: %d", ErrGroupNotFound, req.GroupID)
	}
	return group.Clone(), nil
}

func (o *Orchestrator) renderOptions(form *compiler.Form, options render.RenderOptions) render.RenderOptions {
	if options.Widgets == nil {
		options.Widgets = o.widgets
	}
	if o.files == nil {
		return options
	}

	urls := make(map[int64]string, len(options.PreviewURLs))
	for id, url := range options.PreviewURLs {
		urls[id] = url
	}
	for _, control := range form.Controls() {
		if control.Type != model.FieldTypeUpload {
			continue
		}
		if _, set := urls[control.FieldID]; set {
			continue
		}
		if handle, ok := o.files.Get(control.FieldID); ok {
			urls[control.FieldID] = handle.URL
		}
	}
	if len(urls) > 0 {
		options.PreviewURLs = urls
	}
	return options
}

func (o *Orchestrator) rendererFor(name string) (render.Renderer, error) {
	if o.registry == nil {
		return nil, errors.New("orchestrator: renderer registry is nil")
	}

	target := name
	if target == "" {
		target = o.defaultRenderer
	}

	if target != "" {
		renderer, err := o.registry.Get(target)
		if err == nil {
			return renderer, nil
		}
		if name != "" {
			return nil, fmt.Errorf("orchestrator: renderer %q: %w", name, err)
		}
	}

	renderer, err := o.registry.Resolve("")
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	return renderer, nil
}

func (o *Orchestrator) applyDecorators(group *model.FieldGroup) error {
	for _, decorator := range o.decorators {
		if decorator == nil {
			continue
		}
		if err := decorator.Decorate(group); err != nil {
			return fmt.Errorf("orchestrator: decorate group: %w", err)
		}
	}
	return nil
}

func (o *Orchestrator) applyTransformer(ctx context.Context, group *model.FieldGroup) error {
	if o.transformer == nil {
		return nil
	}
	if err := o.transformer.Transform(ctx, group); err != nil {
		return fmt.Errorf("orchestrator: transform group: %w", err)
	}
	return nil
}

func (o *Orchestrator) applyDefaults() {
	if o.widgets == nil {
		o.widgets = widgets.NewRegistry()
	}
	if o.registry == nil {
		o.registry = render.NewRegistry()
		renderer, err := html.New()
		if err != nil {
			o.initialiseErr = fmt.Errorf("orchestrator: default renderer: %w", err)
		} else {
			o.registry.MustRegister(renderer)
		}
	}
	if o.defaultRenderer == "" {
		o.defaultRenderer = defaultRendererName
	}
}
