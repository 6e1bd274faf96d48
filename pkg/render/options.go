package render

import "github.com/goliatone/go-formbuilder/pkg/widgets"

// RenderOptions describe per-request data that renderers can use to customise
// their output without touching the compiled form.
type RenderOptions struct {
	// Action is the submission URL. Renderers that emit HTML forms leave the
	// action attribute out when it is empty.
	Action string
	// Method defaults to POST.
	Method string
	// Values overrides control values by control key for display only.
	Values map[string]any
	// Errors surfaces server-side validation feedback keyed by control key.
	// Use MapErrorPayload to normalise foreign payloads first.
	Errors map[string][]string
	// FormErrors are messages not tied to a control.
	FormErrors []string
	// PreviewURLs maps upload field ids to live preview URLs.
	PreviewURLs map[int64]string
	// HiddenFields are emitted as hidden inputs.
	HiddenFields map[string]string
	// Widgets resolves widget names per control. Nil uses the built-ins.
	Widgets *widgets.Registry
	// Locale and Translator localise labels and validation messages.
	Locale     string
	Translator Translator
	// OnMissing decides the text used when a translation is missing.
	OnMissing MissingTranslationHandler
	// SubmitLabel overrides the submit button caption.
	SubmitLabel string
}
