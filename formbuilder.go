// Package formbuilder is the top-level entry point: it re-exports the
// orchestrator so callers can render stored field groups with a single
// import.
package formbuilder

import (
	"context"

	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/orchestrator"
	"github.com/goliatone/go-formbuilder/pkg/render"
)

// RenderOptions describes per-request overrides that renderers can use to
// prefill values or surface server-side validation errors.
type RenderOptions = render.RenderOptions

// NewOrchestrator exposes the orchestrator constructor from the top-level
// module.
func NewOrchestrator(options ...orchestrator.Option) *orchestrator.Orchestrator {
	return orchestrator.New(options...)
}

// RenderGroup compiles group and renders it using the named renderer. An
// empty name selects the HTML renderer.
func RenderGroup(ctx context.Context, group model.FieldGroup, rendererName string, options ...orchestrator.Option) ([]byte, error) {
	gen := orchestrator.New(options...)
	return gen.Generate(ctx, orchestrator.Request{
		Group:    &group,
		Renderer: rendererName,
	})
}

// RenderStored renders the group with id from source, typically a
// *store.Store.
func RenderStored(ctx context.Context, source orchestrator.GroupSource, groupID int64, rendererName string, options ...orchestrator.Option) ([]byte, error) {
	gen := orchestrator.New(append([]orchestrator.Option{orchestrator.WithSource(source)}, options...)...)
	return gen.Generate(ctx, orchestrator.Request{
		GroupID:  groupID,
		Renderer: rendererName,
	})
}
