// Package statement turns the plain text of one pension-contribution
// statement page into the worker identity used to name that page.
package statement

// FieldName identifies one of the identity fields of a statement page
type FieldName string

const (
	FieldFullName FieldName = "full_name"
	FieldIDCode   FieldName = "id_code"
	FieldMonth    FieldName = "month"
)

// Field holds one extracted value. A missing field has Found == false and an
// empty Value; Value is never consulted for a missing field.
type Field struct {
	Value string `json:"value,omitempty"`
	Found bool   `json:"found"`
}

// Present builds a found field
func Present(value string) Field {
	return Field{Value: value, Found: true}
}

// Missing is the explicit missing marker
var Missing = Field{}

// ExtractedFields is the identity recovered from one page
type ExtractedFields struct {
	FullName Field `json:"full_name"`
	IDCode   Field `json:"id_code"`
	Month    Field `json:"month"`
}

// Get returns the field for a name
func (f ExtractedFields) Get(name FieldName) Field {
	switch name {
	case FieldFullName:
		return f.FullName
	case FieldIDCode:
		return f.IDCode
	case FieldMonth:
		return f.Month
	default:
		return Missing
	}
}

func (f *ExtractedFields) set(name FieldName, v Field) {
	switch name {
	case FieldFullName:
		f.FullName = v
	case FieldIDCode:
		f.IDCode = v
	case FieldMonth:
		f.Month = v
	}
}

// MissingFields lists the names of missing fields in canonical order
func (f ExtractedFields) MissingFields() []FieldName {
	var out []FieldName
	for _, name := range []FieldName{FieldFullName, FieldIDCode, FieldMonth} {
		if !f.Get(name).Found {
			out = append(out, name)
		}
	}
	return out
}

// Complete reports whether every field was found
func (f ExtractedFields) Complete() bool {
	return len(f.MissingFields()) == 0
}
