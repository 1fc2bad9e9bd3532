package action

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
)

// DefaultSeparator joins field segments in a token.
const DefaultSeparator = "/"

// MaxCallbackDataBytes is the Telegram limit for inline button callback data.
// The codec does not enforce it; page rendering does.
const MaxCallbackDataBytes = 64

// Values maps field names to concrete values.
type Values map[string]any

// SchemaOption customises a schema at definition time.
type SchemaOption func(*Schema)

// WithSeparator replaces the default "/" separator. It must be a single ASCII character.
func WithSeparator(sep string) SchemaOption {
	return func(s *Schema) { s.sep = sep }
}

// Schema is a named, ordered set of fields. Fields are sorted by name once at
// definition, so declaration order never affects tokens or patterns.
// A Schema is immutable and safe for concurrent use.
type Schema struct {
	name   string
	sep    string
	fields []Field
	index  map[string]int
}

// NewSchema defines a schema from fields.
func NewSchema(name string, fields []Field, opts ...SchemaOption) (*Schema, error) {
	s := &Schema{name: name, sep: DefaultSeparator}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if strings.TrimSpace(name) == "" {
		return nil, &Error{Err: ErrSchema, Detail: "empty schema name"}
	}
	if len(s.sep) != 1 || s.sep[0] < 0x21 || s.sep[0] > 0x7e {
		return nil, &Error{Schema: name, Err: ErrSchema, Detail: fmt.Sprintf("separator %q must be one printable ASCII character", s.sep)}
	}
	if len(fields) == 0 {
		return nil, &Error{Schema: name, Err: ErrSchema, Detail: "no fields"}
	}

	s.fields = make([]Field, 0, len(fields))
	for _, f := range fields {
		if f == nil {
			return nil, &Error{Schema: name, Err: ErrSchema, Detail: "nil field"}
		}
		if strings.TrimSpace(f.Name()) == "" {
			return nil, &Error{Schema: name, Err: ErrSchema, Detail: "empty field name"}
		}
		if err := f.Validate(s.sep); err != nil {
			return nil, withSchema(name, err)
		}
		s.fields = append(s.fields, f)
	}
	slices.SortFunc(s.fields, func(a, b Field) int { return strings.Compare(a.Name(), b.Name()) })

	s.index = make(map[string]int, len(s.fields))
	for i, f := range s.fields {
		if _, dup := s.index[f.Name()]; dup {
			return nil, &Error{Schema: name, Field: f.Name(), Err: ErrSchema, Detail: "duplicate field"}
		}
		s.index[f.Name()] = i
	}
	return s, nil
}

// MustSchema is like NewSchema but panics on error. Intended for package-level declarations.
func MustSchema(name string, fields []Field, opts ...SchemaOption) *Schema {
	s, err := NewSchema(name, fields, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the schema name.
func (s *Schema) Name() string { return s.name }

// Separator returns the token separator.
func (s *Schema) Separator() string { return s.sep }

// Fields returns the fields in token order.
func (s *Schema) Fields() []Field { return slices.Clone(s.fields) }

// Field looks up a declared field by name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.fields[i], true
}

// New builds an Action. Every declared field must be given and no other key is allowed.
func (s *Schema) New(values Values) (Action, error) {
	data := make(map[string]any, len(s.fields))
	for name, v := range values {
		f, ok := s.Field(name)
		if !ok {
			return Action{}, &Error{Schema: s.name, Field: name, Err: ErrInvalidField}
		}
		checked, err := f.Check(v)
		if err != nil {
			return Action{}, withSchema(s.name, err)
		}
		if str, ok := checked.(string); ok && strings.Contains(str, s.sep) {
			return Action{}, &Error{Schema: s.name, Field: name, Err: ErrSeparatorInValue, Detail: fmt.Sprintf("%q", str)}
		}
		data[name] = checked
	}
	for _, f := range s.fields {
		if _, ok := data[f.Name()]; !ok {
			return Action{}, &Error{Schema: s.name, Field: f.Name(), Err: ErrMissingField}
		}
	}
	return Action{schema: s, data: data}, nil
}

// MustNew is like New but panics on error.
func (s *Schema) MustNew(values Values) Action {
	a, err := s.New(values)
	if err != nil {
		panic(err)
	}
	return a
}

// Pattern returns the anchored pattern matching tokens whose values agree
// with fixed on every field it names. A nil map matches any token of the schema.
func (s *Schema) Pattern(fixed Values) (string, error) {
	if s == nil {
		return "", errNilSchema
	}
	for name := range fixed {
		if _, ok := s.index[name]; !ok {
			return "", &Error{Schema: s.name, Field: name, Err: ErrInvalidField}
		}
	}
	parts := make([]string, len(s.fields))
	for i, f := range s.fields {
		p, err := f.Pattern(fixed[f.Name()])
		if err != nil {
			return "", withSchema(s.name, err)
		}
		parts[i] = p
	}
	return "^" + strings.Join(parts, regexp.QuoteMeta(s.sep)) + "$", nil
}

// Serialize encodes a into its token.
func (s *Schema) Serialize(a Action) (string, error) {
	if a.schema != s {
		return "", &Error{Schema: s.name, Err: ErrInvalidField, Detail: "action belongs to another schema"}
	}
	return a.Serialize(), nil
}

// Deserialize decodes a token produced by Serialize.
func (s *Schema) Deserialize(token string) (Action, error) {
	parts := strings.Split(token, s.sep)
	if len(parts) != len(s.fields) {
		return Action{}, &Error{
			Schema: s.name,
			Err:    ErrArityMismatch,
			Detail: fmt.Sprintf("got %d segments, want %d", len(parts), len(s.fields)),
		}
	}
	values := make(Values, len(s.fields))
	for i, f := range s.fields {
		v, err := f.Deserialize(parts[i])
		if err != nil {
			return Action{}, withSchema(s.name, err)
		}
		values[f.Name()] = v
	}
	return s.New(values)
}

// When binds some fields to fixed values. The result is only usable as a
// route matcher, never as an Action.
func (s *Schema) When(fixed Values) (Parameterization, error) {
	if _, err := s.Pattern(fixed); err != nil {
		return Parameterization{}, err
	}
	return Parameterization{schema: s, values: maps.Clone(fixed)}, nil
}

// MustWhen is like When but panics on error.
func (s *Schema) MustWhen(fixed Values) Parameterization {
	p, err := s.When(fixed)
	if err != nil {
		panic(err)
	}
	return p
}

// MatchPattern implements Matcher with every field left open.
func (s *Schema) MatchPattern() (string, error) { return s.Pattern(nil) }

// SchemaName implements Matcher.
func (s *Schema) SchemaName() string {
	if s == nil {
		return ""
	}
	return s.name
}

func (s *Schema) String() string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name() + ":" + f.Kind().String()
	}
	return s.name + "{" + strings.Join(names, ",") + "}"
}
