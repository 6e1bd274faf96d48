package compiler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-formbuilder/pkg/model"
)

// Layouts accepted for temporal input.
const (
	DateLayout          = "2006-01-02"
	TimeLayout          = "15:04"
	DateTimeLocalLayout = "2006-01-02T15:04"
)

// ErrInvalidInput is wrapped by ParseInput failures.
var ErrInvalidInput = errors.New("compiler: invalid input")

// ParseInput converts textual input into the value type a control of type t
// holds. Blank input yields the type's default value. Multi-selection input
// is split on commas; upload controls do not accept text.
func ParseInput(t model.FieldType, raw string) (any, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return DefaultValue(t), nil
	}

	switch t {
	case model.FieldTypeInteger:
		n, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrInvalidInput, raw)
		}
		return n, nil
	case model.FieldTypeDate:
		return parseTime(raw, trimmed, DateLayout)
	case model.FieldTypeTime:
		return parseTime(raw, trimmed, TimeLayout)
	case model.FieldTypeDateTime:
		return parseTime(raw, trimmed, time.RFC3339, DateTimeLocalLayout)
	case model.FieldTypeMultiSelection:
		parts := strings.Split(trimmed, ",")
		values := make([]string, 0, len(parts))
		for _, part := range parts {
			if part = strings.TrimSpace(part); part != "" {
				values = append(values, part)
			}
		}
		return values, nil
	case model.FieldTypeUpload:
		return nil, fmt.Errorf("%w: upload fields take a file", ErrInvalidInput)
	default:
		return raw, nil
	}
}

func parseTime(raw, trimmed string, layouts ...string) (any, error) {
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed, nil
		}
	}
	return nil, fmt.Errorf("%w: %q does not match %s", ErrInvalidInput, raw, strings.Join(layouts, " or "))
}

// FormatValue renders a control value back to text, the inverse of
// ParseInput for display purposes.
func FormatValue(t model.FieldType, value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		return strings.Join(v, ", ")
	case int64:
		return strconv.FormatInt(v, 10)
	case time.Time:
		switch t {
		case model.FieldTypeDate:
			return v.Format(DateLayout)
		case model.FieldTypeTime:
			return v.Format(TimeLayout)
		default:
			return v.Format(time.RFC3339)
		}
	default:
		return fmt.Sprint(v)
	}
}
