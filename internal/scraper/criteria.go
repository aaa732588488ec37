package scraper

import (
	"fmt"
	"strings"
)

// Field names a search input.
type Field string

const (
	FieldTaxNum  Field = "taxnum"
	FieldName    Field = "name"
	FieldAddress Field = "address"
	FieldIDNum   Field = "idnum"
)

// FieldOrder is the canonical order of search fields.
var FieldOrder = []Field{FieldTaxNum, FieldName, FieldAddress, FieldIDNum}

// ParseField validates a field name.
func ParseField(name string) (Field, error) {
	f := Field(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range FieldOrder {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, name)
}

// Criteria is an immutable set of search terms.
type Criteria struct {
	values map[Field]string
}

// NewCriteria builds criteria from field name/value pairs. Blank values
// leave their field unset.
func NewCriteria(terms map[string]string) (Criteria, error) {
	values := make(map[Field]string, len(terms))
	for name, value := range terms {
		f, err := ParseField(name)
		if err != nil {
			return Criteria{}, err
		}
		if strings.TrimSpace(value) == "" {
			continue
		}
		values[f] = value
	}
	if len(values) == 0 {
		return Criteria{}, ErrEmptyCriteria
	}
	return Criteria{values: values}, nil
}

// TaxNumber returns criteria searching a single tax number.
func TaxNumber(mst string) Criteria {
	return Criteria{values: map[Field]string{FieldTaxNum: mst}}
}

// Get returns the value of f.
func (c Criteria) Get(f Field) (string, bool) {
	v, ok := c.values[f]
	return v, ok
}

// Fields returns the set fields in canonical order.
func (c Criteria) Fields() []Field {
	out := make([]Field, 0, len(c.values))
	for _, f := range FieldOrder {
		if _, ok := c.values[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

// Map returns a copy of the criteria keyed by field name.
func (c Criteria) Map() map[string]string {
	out := make(map[string]string, len(c.values))
	for f, v := range c.values {
		out[string(f)] = v
	}
	return out
}

// String renders the criteria the way result files key them, e.g.
// {'taxnum': '0301234567'}.
func (c Criteria) String() string {
	parts := make([]string, 0, len(c.values))
	for _, f := range c.Fields() {
		parts = append(parts, fmt.Sprintf("'%s': %s", f, quoteKeyValue(c.values[f])))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// quoteKeyValue quotes v with single quotes, switching to double quotes when
// v holds a single quote and no double quote.
func quoteKeyValue(v string) string {
	quote := byte('\'')
	if strings.ContainsRune(v, '\'') && !strings.ContainsRune(v, '"') {
		quote = '"'
	}
	var b strings.Builder
	b.WriteByte(quote)
	for _, r := range v {
		switch {
		case r == '\\':
			b.WriteString(`\\`)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r == rune(quote):
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte(quote)
	return b.String()
}
