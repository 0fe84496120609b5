// internal/form/validate.go
//
// Forms subsystem: draft field validation.
//
// Context
//   Before any network call, a submitted draft is checked against the
//   entity's length bounds.  The rules are expressed as go-playground
//   validator tags built from the EntityDef, so brand and category share
//   one code path and only differ in their numbers.
//
// Workflow
//   •  Validate checks every field together and returns FieldErrors.  An
//      empty map means the draft is submittable.
//   •  ValidateField checks a single field for live feedback.
//   •  Messages come from the localized catalog, never from the validator.
//
// Rules
//   •  name         required, rune length within [NameMin, NameMax].
//   •  description  optional, rune length at most DescriptionMax.
//   •  thumbnail    not validated here; only the persisted URL matters and
//                   the backend owns that check.
//
//------------------------------------------------------------------------------

package form

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Field names understood by the validator.
const (
	FieldName        = "name"
	FieldDescription = "description"
	FieldThumbnail   = "thumbnail"
)

// -----------------------------------------------------------------------------
// Error types
// -----------------------------------------------------------------------------

// FieldErrors maps field name to a user-facing message.
type FieldErrors map[string]string

// Valid reports whether no field failed.
func (fe FieldErrors) Valid() bool { return len(fe) == 0 }

// Error satisfies error so callers can return FieldErrors directly.
func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "form validation failed: " + strings.Join(keys, ", ")
}

// -----------------------------------------------------------------------------
// Values
// -----------------------------------------------------------------------------

// Values holds the user-editable text fields of a draft.
type Values struct {
	Name        string
	Description string
}

// Normalize trims surrounding whitespace.
func (v Values) Normalize() Values {
	return Values{
		Name:        strings.TrimSpace(v.Name),
		Description: strings.TrimSpace(v.Description),
	}
}

// Get returns the value for a field name.
func (v Values) Get(field string) (string, bool) {
	switch field {
	case FieldName:
		return v.Name, true
	case FieldDescription:
		return v.Description, true
	default:
		return "", false
	}
}

// -----------------------------------------------------------------------------
// Validator
// -----------------------------------------------------------------------------

// Translator resolves message keys.  *i18n.Catalog satisfies it.
type Translator interface {
	T(locale, key string, args map[string]string) string
}

// Validator checks drafts against an EntityDef.  Safe for concurrent use.
type Validator struct {
	v  *validator.Validate
	tr Translator
}

// NewValidator returns a Validator that localizes messages through tr.
func NewValidator(tr Translator) *Validator {
	return &Validator{v: validator.New(), tr: tr}
}

// Validate checks all fields.  The returned map is empty when valid.
func (val *Validator) Validate(def *EntityDef, locale string, in Values) FieldErrors {
	in = in.Normalize()
	errs := make(FieldErrors)
	for _, f := range []string{FieldName, FieldDescription} {
		raw, _ := in.Get(f)
		if msg, ok := val.check(def, locale, f, raw); !ok {
			errs[f] = msg
		}
	}
	return errs
}

// ValidateField checks one field.  Unknown fields, thumbnail included, are
// always valid.
func (val *Validator) ValidateField(def *EntityDef, locale, field, value string) (string, bool) {
	return val.check(def, locale, field, strings.TrimSpace(value))
}

func (val *Validator) check(def *EntityDef, locale, field, value string) (string, bool) {
	tag := rulesFor(def, field)
	if tag == "" {
		return "", true
	}
	err := val.v.Var(value, tag)
	if err == nil {
		return "", true
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return val.message(def, locale, field, "required", ""), false
	}
	fe := verrs[0]
	return val.message(def, locale, field, fe.Tag(), fe.Param()), false
}

// rulesFor builds the validator tag for a field from the entity bounds.
func rulesFor(def *EntityDef, field string) string {
	b := def.Bounds
	switch field {
	case FieldName:
		return fmt.Sprintf("required,min=%d,max=%d", b.NameMin, b.NameMax)
	case FieldDescription:
		return fmt.Sprintf("omitempty,max=%d", b.DescriptionMax)
	default:
		return ""
	}
}

func (val *Validator) message(def *EntityDef, locale, field, tag, param string) string {
	args := map[string]string{
		"field": val.tr.T(locale, def.FieldLabel(field), nil),
	}
	switch tag {
	case "min":
		args["min"] = param
		return val.tr.T(locale, "validation.min", args)
	case "max":
		args["max"] = param
		return val.tr.T(locale, "validation.max", args)
	default:
		return val.tr.T(locale, "validation.required", args)
	}
}

// MaxLength returns the upper bound for a field, or 0 when unbounded.
// Templates use it for the maxlength attribute.
func MaxLength(def *EntityDef, field string) int {
	switch field {
	case FieldName:
		return def.Bounds.NameMax
	case FieldDescription:
		return def.Bounds.DescriptionMax
	default:
		return 0
	}
}

// itoa keeps template helpers free of strconv imports.
func itoa(n int) string { return strconv.Itoa(n) }
