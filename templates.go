package formbuilder

import (
	"io/fs"

	"github.com/goliatone/go-formbuilder/pkg/renderers/html"
)

// EmbeddedTemplates exposes the built-in HTML renderer templates so callers
// can reuse or extend them without importing the renderer package directly.
func EmbeddedTemplates() fs.FS {
	return html.TemplatesFS()
}

// EmbeddedAssets exposes the stylesheet served next to rendered forms.
func EmbeddedAssets() fs.FS {
	return html.AssetsFS()
}
