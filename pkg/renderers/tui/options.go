package tui

import "github.com/goliatone/go-formbuilder/pkg/filepreview"

// OutputFormat controls how submitted values are serialized.
type OutputFormat string

const (
	// OutputFormatJSON emits application/json payloads.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatFormURLEncoded emits application/x-www-form-urlencoded payloads.
	OutputFormatFormURLEncoded OutputFormat = "form"
	// OutputFormatPrettyText emits a human-friendly text summary.
	OutputFormatPrettyText OutputFormat = "pretty"
)

// DefaultMaxAttempts bounds re-prompts per control.
const DefaultMaxAttempts = 3

// Theme captures optional message prefixes the renderer applies when
// printing feedback.
type Theme struct {
	InfoPrefix  string
	ErrorPrefix string
}

// SubmitTransformer mutates submitted values before serialization.
type SubmitTransformer func(map[string]any) (map[string]any, error)

// Option configures the TUI renderer.
type Option func(*Renderer)

// WithPromptDriver overrides the prompt driver used by the renderer.
func WithPromptDriver(driver PromptDriver) Option {
	return func(r *Renderer) {
		if driver != nil {
			r.driver = driver
		}
	}
}

// WithOutputFormat selects the output serialization format.
func WithOutputFormat(format OutputFormat) Option {
	return func(r *Renderer) {
		if format != "" {
			r.outputFormat = format
		}
	}
}

// WithFiles lets upload controls read files from disk through manager. Without
// it upload controls are skipped.
func WithFiles(manager *filepreview.Manager) Option {
	return func(r *Renderer) {
		r.files = manager
	}
}

// WithMaxAttempts bounds re-prompts per control.
func WithMaxAttempts(n int) Option {
	return func(r *Renderer) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithConfirmSubmit asks for confirmation before submitting.
func WithConfirmSubmit() Option {
	return func(r *Renderer) {
		r.confirmSubmit = true
	}
}

// WithSubmitTransformer allows callers to mutate submitted values prior to
// serialization.
func WithSubmitTransformer(fn SubmitTransformer) Option {
	return func(r *Renderer) {
		r.submitTransformer = fn
	}
}

// WithTheme applies optional message prefixes.
func WithTheme(theme Theme) Option {
	return func(r *Renderer) {
		r.theme = theme
	}
}
