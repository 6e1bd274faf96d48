package render

import (
	"context"

	"github.com/goliatone/go-formbuilder/pkg/compiler"
)

// Renderer converts a compiled form into a byte representation (HTML, plain
// text, etc.).
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, form *compiler.Form, options RenderOptions) ([]byte, error)
}
