// internal/form/renderer.go
//
// Forms subsystem: field view models.
//
// Context
//   Templates should not know about bounds, message keys, or validation
//   tags.  Fields turns an EntityDef, the current draft values, and any
//   field errors into a flat slice the form template ranges over.  Label
//   text, maxlength hints, and error messages are resolved here.
//
//------------------------------------------------------------------------------

package form

// FieldView is one text input as the template sees it.
type FieldView struct {
	Name      string
	Label     string
	Value     string
	Error     string
	Multiline bool
	Required  bool
	MaxLength string // empty when unbounded
	MinLength string
}

// Fields returns name and description views in display order.
func Fields(def *EntityDef, tr Translator, locale string, in Values, errs FieldErrors) []FieldView {
	name := FieldView{
		Name:      FieldName,
		Label:     tr.T(locale, def.FieldLabel(FieldName), nil),
		Value:     in.Name,
		Error:     errs[FieldName],
		Required:  true,
		MaxLength: itoa(MaxLength(def, FieldName)),
		MinLength: itoa(def.Bounds.NameMin),
	}
	desc := FieldView{
		Name:      FieldDescription,
		Label:     tr.T(locale, def.FieldLabel(FieldDescription), nil),
		Value:     in.Description,
		Error:     errs[FieldDescription],
		Multiline: true,
		MaxLength: itoa(MaxLength(def, FieldDescription)),
	}
	return []FieldView{name, desc}
}
