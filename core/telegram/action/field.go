package action

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Kind identifies the value domain of a field.
type Kind int

const (
	KindString Kind = iota + 1
	KindInt
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindEnum:
		return "enum"
	}
	return "unknown"
}

// Field converts a single typed value to and from a token segment and
// contributes the matching sub-pattern of a schema pattern.
//
// Serialize and Deserialize must be mutual inverses on the field domain and
// Pattern(nil) must match every serialized value of that domain.
type Field interface {
	Name() string
	Kind() Kind
	// Pattern returns the wildcard sub-pattern for a nil value, or the quoted
	// literal encoding of value otherwise.
	Pattern(value any) (string, error)
	Serialize(value any) (string, error)
	Deserialize(token string) (any, error)
	// Check validates value against the field domain and returns the
	// normalized form stored in an Action.
	Check(value any) (any, error)
	// Validate reports whether the field can be used with the given separator.
	Validate(sep string) error
}

// FieldOption customises a field at declaration time.
type FieldOption func(*fieldConfig)

type fieldConfig struct {
	pattern string
}

// WithPattern replaces the wildcard sub-pattern of a string or int field.
// The expression must only match valid encodings of the field domain.
func WithPattern(expr string) FieldOption {
	return func(c *fieldConfig) { c.pattern = expr }
}

func buildFieldConfig(def string, opts []FieldOption) fieldConfig {
	cfg := fieldConfig{pattern: def}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.pattern == "" {
		cfg.pattern = def
	}
	return cfg
}

// StringField holds free-form text. Values are NFC-normalized so equal text
// always produces the same callback token.
type StringField struct {
	name    string
	pattern string
}

// String declares a string field with wildcard pattern ".*".
func String(name string, opts ...FieldOption) *StringField {
	cfg := buildFieldConfig(".*", opts)
	return &StringField{name: name, pattern: cfg.pattern}
}

func (f *StringField) Name() string { return f.name }
func (f *StringField) Kind() Kind   { return KindString }

func (f *StringField) Check(value any) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, fieldErr(f.name, ErrTypeMismatch, "want string, got %T", value)
	}
	return norm.NFC.String(s), nil
}

func (f *StringField) Pattern(value any) (string, error) {
	if value == nil {
		return f.pattern, nil
	}
	s, err := f.Serialize(value)
	if err != nil {
		return "", err
	}
	return regexp.QuoteMeta(s), nil
}

func (f *StringField) Serialize(value any) (string, error) {
	v, err := f.Check(value)
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (f *StringField) Deserialize(token string) (any, error) {
	return token, nil
}

func (f *StringField) Validate(string) error {
	if _, err := regexp.Compile(f.pattern); err != nil {
		return fieldErr(f.name, ErrSchema, "bad pattern %q: %v", f.pattern, err)
	}
	return nil
}

// IntField holds a signed decimal integer stored as int64.
type IntField struct {
	name    string
	pattern string
}

// Int declares an integer field with wildcard pattern `-?\d+`.
func Int(name string, opts ...FieldOption) *IntField {
	cfg := buildFieldConfig(`-?\d+`, opts)
	return &IntField{name: name, pattern: cfg.pattern}
}

func (f *IntField) Name() string { return f.name }
func (f *IntField) Kind() Kind   { return KindInt }

func (f *IntField) Check(value any) (any, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	}
	return nil, fieldErr(f.name, ErrTypeMismatch, "want integer, got %T", value)
}

func (f *IntField) Pattern(value any) (string, error) {
	if value == nil {
		return f.pattern, nil
	}
	s, err := f.Serialize(value)
	if err != nil {
		return "", err
	}
	return regexp.QuoteMeta(s), nil
}

func (f *IntField) Serialize(value any) (string, error) {
	v, err := f.Check(value)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(v.(int64), 10), nil
}

func (f *IntField) Deserialize(token string) (any, error) {
	n, err := strconv.ParseInt(token, 10, 64)
	if err != nil || strconv.FormatInt(n, 10) != token {
		return nil, fieldErr(f.name, ErrDecode, "%q is not a canonical decimal integer", token)
	}
	return n, nil
}

func (f *IntField) Validate(sep string) error {
	if sep == "-" || (len(sep) == 1 && sep[0] >= '0' && sep[0] <= '9') {
		return fieldErr(f.name, ErrSchema, "separator %q collides with integer encoding", sep)
	}
	if _, err := regexp.Compile(f.pattern); err != nil {
		return fieldErr(f.name, ErrSchema, "bad pattern %q: %v", f.pattern, err)
	}
	return nil
}

// Member is the constraint for enum values: the member name is its String form.
type Member interface {
	comparable
	fmt.Stringer
}

// EnumField holds one of a fixed, ordered set of members. Tokens carry the
// member name, never its underlying value.
type EnumField[E Member] struct {
	name    string
	members []E
	byName  map[string]E
}

// Enum declares an enum field over the given members in declaration order.
func Enum[E Member](name string, members ...E) *EnumField[E] {
	f := &EnumField[E]{
		name:    name,
		members: append([]E(nil), members...),
		byName:  make(map[string]E, len(members)),
	}
	for _, m := range members {
		if _, dup := f.byName[m.String()]; !dup {
			f.byName[m.String()] = m
		}
	}
	return f
}

func (f *EnumField[E]) Name() string { return f.name }
func (f *EnumField[E]) Kind() Kind   { return KindEnum }

// Members returns the declared members in declaration order.
func (f *EnumField[E]) Members() []E {
	return append([]E(nil), f.members...)
}

func (f *EnumField[E]) Check(value any) (any, error) {
	v, ok := value.(E)
	if !ok {
		var zero E
		return nil, fieldErr(f.name, ErrTypeMismatch, "want %T, got %T", zero, value)
	}
	if m, ok := f.byName[v.String()]; !ok || m != v {
		return nil, fieldErr(f.name, ErrTypeMismatch, "%v is not a declared member", v)
	}
	return v, nil
}

func (f *EnumField[E]) Pattern(value any) (string, error) {
	if value == nil {
		names := make([]string, len(f.members))
		for i, m := range f.members {
			names[i] = regexp.QuoteMeta(m.String())
		}
		return "(" + strings.Join(names, "|") + ")", nil
	}
	s, err := f.Serialize(value)
	if err != nil {
		return "", err
	}
	return regexp.QuoteMeta(s), nil
}

func (f *EnumField[E]) Serialize(value any) (string, error) {
	v, err := f.Check(value)
	if err != nil {
		return "", err
	}
	return v.(E).String(), nil
}

func (f *EnumField[E]) Deserialize(token string) (any, error) {
	m, ok := f.byName[token]
	if !ok {
		return nil, fieldErr(f.name, ErrDecode, "no member named %q", token)
	}
	return m, nil
}

func (f *EnumField[E]) Validate(sep string) error {
	if len(f.members) == 0 {
		return fieldErr(f.name, ErrSchema, "enum has no members")
	}
	if len(f.byName) != len(f.members) {
		return fieldErr(f.name, ErrSchema, "duplicate member names")
	}
	for _, m := range f.members {
		name := m.String()
		if name == "" {
			return fieldErr(f.name, ErrSchema, "empty member name")
		}
		if strings.Contains(name, sep) {
			return fieldErr(f.name, ErrSchema, "member %q contains separator %q", name, sep)
		}
	}
	return nil
}
