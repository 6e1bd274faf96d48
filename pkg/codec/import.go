package codec

import (
	"fmt"

	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/validation"
)

// Replacer is the store surface an import writes through.
type Replacer interface {
	ReplaceAll(groups []model.FieldGroup)
}

// ImportOption customises Import.
type ImportOption func(*importConfig)

type importConfig struct {
	strict bool
}

// WithStrict additionally runs group validation (names, labels, known types,
// unique ids, options on selection fields) and rejects the envelope on any
// issue.
func WithStrict() ImportOption {
	return func(cfg *importConfig) {
		cfg.strict = true
	}
}

// Import decodes data and, only when it is valid, replaces every group in
// target. On failure target is left untouched.
func Import(target Replacer, data []byte, options ...ImportOption) (Envelope, error) {
	cfg := importConfig{}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}

	env, err := Decode(data)
	if err != nil {
		return Envelope{}, err
	}
	if cfg.strict {
		if result := validation.ValidateGroups(env.FormGroups); !result.Valid {
			return Envelope{}, &FormatError{Result: prefixIssues(result, "/formGroups")}
		}
	}
	if target == nil {
		return Envelope{}, fmt.Errorf("codec: import target is nil")
	}
	target.ReplaceAll(env.FormGroups)
	return env, nil
}

func prefixIssues(result validation.SchemaValidationResult, prefix string) validation.SchemaValidationResult {
	out := validation.SchemaValidationResult{Valid: result.Valid}
	for _, issue := range result.Issues {
		field := "formGroups"
		if issue.Field != "" {
			field += "." + issue.Field
		}
		out.Issues = append(out.Issues, validation.SchemaIssue{
			Path:    prefix + issue.Path,
			Field:   field,
			Message: issue.Message,
		})
	}
	return out
}
