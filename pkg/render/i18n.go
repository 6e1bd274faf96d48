package render

import (
	"errors"
	"strconv"
	"strings"

	"github.com/goliatone/go-formbuilder/pkg/compiler"
)

// Translator resolves a message key for a locale.
type Translator interface {
	Translate(locale, key string, args ...any) (string, error)
}

// TranslatorFunc adapts a function to the Translator interface.
type TranslatorFunc func(locale, key string, args ...any) (string, error)

// Translate calls fn.
func (fn TranslatorFunc) Translate(locale, key string, args ...any) (string, error) {
	return fn(locale, key, args...)
}

// MissingTranslationHandler returns the text used when a key cannot be
// translated. args carries a map with the "default" fallback text.
type MissingTranslationHandler func(locale, key string, args []any, err error) string

// ErrNoTranslation is passed to the missing handler when the translator
// returned a blank string without an error.
var ErrNoTranslation = errors.New("render: empty translation")

// Translation keys. Field keys embed the element id, e.g. "fields.7.label".
const (
	KeySubmit             = "form.submit"
	KeyValidationRequired = "validation.required"
	KeyValidationEmail    = "validation.email"
	KeyUploadPreview      = "upload.preview"
)

// DefaultSubmitLabel is the untranslated submit caption.
const DefaultSubmitLabel = "Submit"

// FieldKey returns the translation key for an element attribute
// ("label", "placeholder", "options.0").
func FieldKey(fieldID int64, attr string) string {
	return "fields." + strconv.FormatInt(fieldID, 10) + "." + attr
}

var messageKeys = map[string]string{
	compiler.MessageRequired: KeyValidationRequired,
	compiler.MessageEmail:    KeyValidationEmail,
}

func missingTranslationDefault(_ string, _ string, args []any, _ error) string {
	for _, arg := range args {
		if m, ok := arg.(map[string]any); ok {
			if fallback, ok := m["default"].(string); ok {
				return fallback
			}
		}
	}
	return ""
}

type localizer struct {
	locale     string
	translator Translator
	onMissing  MissingTranslationHandler
}

func newLocalizer(opts RenderOptions) localizer {
	onMissing := opts.OnMissing
	if onMissing == nil {
		onMissing = missingTranslationDefault
	}
	return localizer{locale: opts.Locale, translator: opts.Translator, onMissing: onMissing}
}

// text translates key. Without a translator the fallback is returned as is.
func (l localizer) text(key, fallback string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return fallback
	}
	if l.translator == nil {
		return fallback
	}
	result, err := l.translator.Translate(l.locale, key)
	if err == nil && strings.TrimSpace(result) != "" {
		return result
	}
	if err == nil {
		err = ErrNoTranslation
	}
	return l.onMissing(l.locale, key, []any{map[string]any{"default": fallback}}, err)
}

// message localises a compiler validation message. Unknown messages pass
// through untouched.
func (l localizer) message(msg string) string {
	key, ok := messageKeys[msg]
	if !ok {
		return msg
	}
	return l.text(key, msg)
}

func (l localizer) messages(msgs []string) []string {
	if len(msgs) == 0 {
		return nil
	}
	out := make([]string, len(msgs))
	for i, msg := range msgs {
		out[i] = l.message(msg)
	}
	return out
}

// TemplateI18nFuncs exposes translation helpers to templates:
// t(key, fallback) and locale().
func TemplateI18nFuncs(opts RenderOptions) map[string]any {
	l := newLocalizer(opts)
	return map[string]any{
		"t": func(key, fallback string) string {
			return l.text(key, fallback)
		},
		"locale": func() string { return l.locale },
	}
}
