package action

import (
	"maps"
	"regexp"
	"strings"
)

// Action is an immutable, validated set of field values of one schema.
// The zero value is not usable.
type Action struct {
	schema *Schema
	data   map[string]any
}

// Schema returns the schema the action was built from.
func (a Action) Schema() *Schema { return a.schema }

// IsZero reports whether a was not produced by a schema.
func (a Action) IsZero() bool { return a.schema == nil }

// Get returns the value of a field.
func (a Action) Get(name string) (any, bool) {
	v, ok := a.data[name]
	return v, ok
}

// Values returns a copy of the field values.
func (a Action) Values() Values {
	return Values(maps.Clone(a.data))
}

// Lookup returns the value of a field converted to T.
func Lookup[T any](a Action, name string) (T, bool) {
	var zero T
	v, ok := a.data[name]
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// Serialize encodes the action. It cannot fail because values were checked at construction.
func (a Action) Serialize() string {
	if a.schema == nil {
		return ""
	}
	parts := make([]string, len(a.schema.fields))
	for i, f := range a.schema.fields {
		s, err := f.Serialize(a.data[f.Name()])
		if err != nil {
			panic(err)
		}
		parts[i] = s
	}
	return strings.Join(parts, a.schema.sep)
}

func (a Action) String() string { return a.Serialize() }

// Clone returns a new action with overrides applied, validated like New.
func (a Action) Clone(overrides Values) (Action, error) {
	values := a.Values()
	for k, v := range overrides {
		values[k] = v
	}
	return a.schema.New(values)
}

// MustClone is like Clone but panics on error.
func (a Action) MustClone(overrides Values) Action {
	c, err := a.Clone(overrides)
	if err != nil {
		panic(err)
	}
	return c
}

// Equal reports whether both actions share a schema and all field values.
func (a Action) Equal(other Action) bool {
	if a.schema != other.schema {
		return false
	}
	return maps.Equal(a.data, other.data)
}

// Matcher is something that can be turned into a callback data pattern:
// a whole schema or a Parameterization of it.
type Matcher interface {
	MatchPattern() (string, error)
	SchemaName() string
}

// Parameterization is a schema with some fields bound to fixed values.
type Parameterization struct {
	schema *Schema
	values Values
}

// Schema returns the underlying schema.
func (p Parameterization) Schema() *Schema { return p.schema }

// Pattern returns the pattern with the bound values merged with extra.
func (p Parameterization) Pattern(extra Values) (string, error) {
	if p.schema == nil {
		return "", errNilSchema
	}
	merged := maps.Clone(p.values)
	if merged == nil {
		merged = Values{}
	}
	maps.Copy(merged, extra)
	return p.schema.Pattern(merged)
}

// MatchPattern implements Matcher.
func (p Parameterization) MatchPattern() (string, error) { return p.Pattern(nil) }

// SchemaName implements Matcher.
func (p Parameterization) SchemaName() string {
	if p.schema == nil {
		return ""
	}
	return p.schema.name
}

// Compile turns a matcher into a regular expression. The dot matches
// newlines too, since string values may contain them.
func Compile(m Matcher) (*regexp.Regexp, error) {
	if m == nil {
		return nil, errNilSchema
	}
	pattern, err := m.MatchPattern()
	if err != nil {
		return nil, err
	}
	return regexp.Compile("(?s)" + pattern)
}
