// ABOUTME: Form field definitions and client-side serialization of field values
// ABOUTME: Coerces numeric fields, omits blank optionals, rejects blank required fields

package panels

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/2389/factdesk/internal/api"
)

// FieldKind selects input rendering and value coercion.
type FieldKind int

const (
	KindText FieldKind = iota
	KindEmail
	KindPassword
	KindURL
	KindTextArea
	KindInt
	KindFloat
	KindDate
	KindSelect
)

// InputType returns the HTML input type for the kind.
func (k FieldKind) InputType() string {
	switch k {
	case KindEmail:
		return "email"
	case KindPassword:
		return "password"
	case KindURL:
		return "url"
	case KindInt, KindFloat:
		return "number"
	case KindDate:
		return "date"
	default:
		return "text"
	}
}

// Option is one choice of a select field.
type Option struct {
	Value string
	Label string
}

// Field describes one form input.
type Field struct {
	Name        string
	Label       string
	Kind        FieldKind
	Required    bool
	Default     string
	Placeholder string
	// Options are the static choices of a select. A form's Load may offer
	// choices for other fields through FormState.Options.
	Options []Option
	Min     *float64
	Max     *float64
	Step    string
}

// Bounded reports whether the field has a numeric range.
func (f Field) Bounded() bool {
	return f.Min != nil || f.Max != nil
}

func bound(v float64) *float64 {
	return &v
}

// dateLayout is the value format of date inputs.
const dateLayout = "2006-01-02"

// serialize converts raw form values into the JSON body for the request.
func serialize(fields []Field, values map[string]string) (map[string]any, error) {
	out := make(map[string]any, len(fields))

	for _, f := range fields {
		raw := values[f.Name]
		if f.Kind != KindPassword {
			raw = strings.TrimSpace(raw)
		}
		if raw == "" {
			if f.Required {
				return nil, api.Validation("%s is required", f.Label)
			}
			continue
		}

		v, err := coerce(f, raw)
		if err != nil {
			return nil, err
		}

		if f.Kind == KindSelect && !hasOption(f.Options, raw) {
			return nil, api.Validation("%s: %q is not one of the offered choices", f.Label, raw)
		}

		out[f.Name] = v
	}
	return out, nil
}

func coerce(f Field, raw string) (any, error) {
	switch f.Kind {
	case KindInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, api.Validation("%s must be a whole number", f.Label)
		}
		if err := checkRange(f, float64(n)); err != nil {
			return nil, err
		}
		return n, nil

	case KindFloat:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, api.Validation("%s must be a number", f.Label)
		}
		if err := checkRange(f, n); err != nil {
			return nil, err
		}
		return n, nil

	case KindDate:
		if _, err := time.Parse(dateLayout, raw); err != nil {
			return nil, api.Validation("%s must be a date (YYYY-MM-DD)", f.Label)
		}
		return raw, nil

	case KindEmail:
		if !strings.Contains(raw, "@") {
			return nil, api.Validation("%s must be an email address", f.Label)
		}
		return raw, nil

	default:
		return raw, nil
	}
}

func checkRange(f Field, n float64) error {
	if f.Min != nil && n < *f.Min {
		return rangeError(f)
	}
	if f.Max != nil && n > *f.Max {
		return rangeError(f)
	}
	return nil
}

func rangeError(f Field) error {
	switch {
	case f.Min != nil && f.Max != nil:
		return api.Validation("%s must be between %s and %s", f.Label, formatBound(*f.Min), formatBound(*f.Max))
	case f.Min != nil:
		return api.Validation("%s must be at least %s", f.Label, formatBound(*f.Min))
	default:
		return api.Validation("%s must be at most %s", f.Label, formatBound(*f.Max))
	}
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func hasOption(opts []Option, value string) bool {
	return slices.ContainsFunc(opts, func(o Option) bool { return o.Value == value })
}

// Describe renders a field for CLI help.
func (f Field) Describe() string {
	var b strings.Builder
	b.WriteString(f.Name)
	if !f.Required {
		b.WriteString(" (optional)")
	}
	if f.Bounded() {
		fmt.Fprintf(&b, " [%s..%s]", formatBoundPtr(f.Min), formatBoundPtr(f.Max))
	}
	return b.String()
}

func formatBoundPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return formatBound(*v)
}
