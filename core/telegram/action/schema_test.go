package action

import (
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type actionType int

const (
	show actionType = iota + 1
	like
)

func (a actionType) String() string {
	switch a {
	case show:
		return "show"
	case like:
		return "like"
	}
	return "unknown"
}

type ordinal int

const (
	first ordinal = iota
	second
)

func (o ordinal) String() string {
	if o == first {
		return "first"
	}
	if o == second {
		return "second"
	}
	return ""
}

func recipeSchema(t *testing.T) *Schema {
	t.Helper()
	s, err := NewSchema("recipe", []Field{
		Enum("action_type", show, like),
		String("title"),
	})
	require.NoError(t, err)
	return s
}

func TestSchemaShowPokeScenario(t *testing.T) {
	s := recipeSchema(t)

	a, err := s.New(Values{"action_type": show, "title": "Poke"})
	require.NoError(t, err)
	assert.Equal(t, "show/Poke", a.Serialize())

	all, err := s.Pattern(nil)
	require.NoError(t, err)
	assert.Equal(t, `^(show|like)/.*$`, all)

	p, err := s.Pattern(Values{"action_type": show})
	require.NoError(t, err)
	assert.Equal(t, `^show/.*$`, p)

	re := regexp.MustCompile(p)
	assert.True(t, re.MatchString("show/Poke"))
	assert.False(t, re.MatchString("like/Poke"))
}

func TestSchemaOriginalFixture(t *testing.T) {
	s, err := NewSchema("my", []Field{
		String("some_str"),
		Enum("enum_value", first, second),
	})
	require.NoError(t, err)

	tests := []struct {
		fixed Values
		want  string
	}{
		{nil, `^(first|second)/.*$`},
		{Values{"some_str": "thing"}, `^(first|second)/thing$`},
		{Values{"enum_value": first}, `^first/.*$`},
		{Values{"some_str": "thing", "enum_value": first}, `^first/thing$`},
	}
	for _, tt := range tests {
		got, err := s.Pattern(tt.fixed)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	a := s.MustNew(Values{"some_str": "qwerty", "enum_value": second})
	assert.Equal(t, "second/qwerty", a.Serialize())

	back, err := s.Deserialize("second/qwerty")
	require.NoError(t, err)
	assert.True(t, back.Equal(a))

	other, err := s.Deserialize("first/qwerty")
	require.NoError(t, err)
	assert.False(t, other.Equal(a))
}

func TestDeserializeErrors(t *testing.T) {
	s := recipeSchema(t)

	_, err := s.Deserialize("unknown/Poke")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecode)

	var ae *Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "recipe", ae.Schema)
	assert.Equal(t, "action_type", ae.Field)
	assert.Equal(t, "DECODE_ERROR", ae.Code())

	_, err = s.Deserialize("show")
	assert.ErrorIs(t, err, ErrArityMismatch)

	_, err = s.Deserialize("show/Poke/extra")
	assert.ErrorIs(t, err, ErrArityMismatch)

	counted := MustSchema("counted", []Field{Int("n")})
	_, err = counted.Deserialize("abc")
	assert.ErrorIs(t, err, ErrDecode)
	_, err = counted.Deserialize("")
	assert.ErrorIs(t, err, ErrDecode)
}

func TestRoundTrip(t *testing.T) {
	s := MustSchema("mixed", []Field{
		String("title"),
		Int("page"),
		Enum("action_type", show, like),
	})

	cases := []Values{
		{"title": "Poke", "page": 0, "action_type": show},
		{"title": "", "page": int64(-42), "action_type": like},
		{"title": "Fantastic Menemen", "page": int32(7), "action_type": show},
		{"title": "a.b*c(d)", "page": uint16(65535), "action_type": like},
		{"title": "Crème brûlée", "page": 1 << 40, "action_type": show},
		{"title": "Poke\nBowl", "page": 3, "action_type": like},
	}

	all, err := Compile(s)
	require.NoError(t, err)
	for _, values := range cases {
		a, err := s.New(values)
		require.NoError(t, err)

		token := a.Serialize()
		assert.Truef(t, all.MatchString(token), "pattern %s must match %q", all, token)

		back, err := s.Deserialize(token)
		require.NoError(t, err)
		assert.Truef(t, back.Equal(a), "round trip of %q", token)
	}
}

func TestPatternSpecialization(t *testing.T) {
	s := MustSchema("mixed", []Field{
		Enum("action_type", show, like),
		String("title"),
		Int("count"),
	})

	types := []actionType{show, like}
	titles := []string{"Poke", "Menemen", "Poke\nBowl"}
	counts := []int64{0, -3, 42}

	var actions []Action
	for _, at := range types {
		for _, ti := range titles {
			for _, c := range counts {
				actions = append(actions, s.MustNew(Values{"action_type": at, "title": ti, "count": c}))
			}
		}
	}

	// Every action doubles as a source of fixed subsets.
	subsets := [][]string{
		{},
		{"action_type"},
		{"title"},
		{"count"},
		{"action_type", "title"},
		{"title", "count"},
		{"action_type", "title", "count"},
	}
	for _, src := range actions {
		for _, keys := range subsets {
			fixed := Values{}
			for _, k := range keys {
				v, _ := src.Get(k)
				fixed[k] = v
			}
			re, err := Compile(s.MustWhen(fixed))
			require.NoError(t, err)
			for _, a := range actions {
				agree := true
				for k, v := range fixed {
					got, _ := a.Get(k)
					if got != v {
						agree = false
					}
				}
				assert.Equalf(t, agree, re.MatchString(a.Serialize()),
					"pattern %s vs token %q", re, a.Serialize())
			}
		}
	}
}

func TestDeclarationOrderDoesNotMatter(t *testing.T) {
	a := MustSchema("a", []Field{String("title"), Int("page"), Enum("action_type", show, like)})
	b := MustSchema("b", []Field{Enum("action_type", show, like), String("title"), Int("page")})

	values := Values{"title": "Poke", "page": 3, "action_type": like}
	assert.Equal(t, a.MustNew(values).Serialize(), b.MustNew(values).Serialize())
	assert.Equal(t, must(a.Pattern(nil)), must(b.Pattern(nil)))
	assert.Equal(t, must(a.Pattern(Values{"page": 3})), must(b.Pattern(Values{"page": 3})))

	fromA, err := a.Deserialize("like/3/Poke")
	require.NoError(t, err)
	fromB, err := b.Deserialize("like/3/Poke")
	require.NoError(t, err)
	assert.Equal(t, fromA.Values(), fromB.Values())
}

func TestNewValidation(t *testing.T) {
	s := recipeSchema(t)

	_, err := s.New(Values{"action_type": show, "title": "Poke", "owner": "x"})
	assert.ErrorIs(t, err, ErrInvalidField)

	_, err = s.New(Values{"action_type": show})
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = s.New(Values{"action_type": "show", "title": "Poke"})
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = s.New(Values{"action_type": actionType(99), "title": "Poke"})
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = s.New(Values{"action_type": show, "title": "a/b"})
	assert.ErrorIs(t, err, ErrSeparatorInValue)

	_, err = s.Pattern(Values{"title": 12})
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = s.Pattern(Values{"nope": 1})
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestSchemaDefinitionErrors(t *testing.T) {
	tests := []struct {
		name   string
		fields []Field
		opts   []SchemaOption
	}{
		{"no fields", nil, nil},
		{"duplicate field", []Field{String("a"), Int("a")}, nil},
		{"empty field name", []Field{String(" ")}, nil},
		{"member contains separator", []Field{Enum("o", badMember("a/b"))}, nil},
		{"no members", []Field{Enum[actionType]("t")}, nil},
		{"dash separator with ints", []Field{Int("n")}, []SchemaOption{WithSeparator("-")}},
		{"multi-char separator", []Field{String("s")}, []SchemaOption{WithSeparator("::")}},
		{"bad custom pattern", []Field{String("s", WithPattern("("))}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSchema("broken", tt.fields, tt.opts...)
			assert.ErrorIs(t, err, ErrSchema)
		})
	}
}

type badMember string

func (b badMember) String() string { return string(b) }

func TestCustomSeparator(t *testing.T) {
	s := MustSchema("colon", []Field{String("title"), Int("page")}, WithSeparator(":"))
	a := s.MustNew(Values{"title": "a/b", "page": 2})
	assert.Equal(t, "2:a/b", a.Serialize())
	assert.Equal(t, `^-?\d+:.*$`, must(s.Pattern(nil)))

	back, err := s.Deserialize("2:a/b")
	require.NoError(t, err)
	assert.True(t, back.Equal(a))
}

func TestCloneAndEqual(t *testing.T) {
	s := recipeSchema(t)
	a := s.MustNew(Values{"action_type": show, "title": "Poke"})

	liked, err := a.Clone(Values{"action_type": like})
	require.NoError(t, err)
	assert.Equal(t, "like/Poke", liked.Serialize())
	assert.Equal(t, "show/Poke", a.Serialize())
	assert.False(t, liked.Equal(a))
	assert.True(t, a.Equal(s.MustNew(Values{"title": "Poke", "action_type": show})))

	_, err = a.Clone(Values{"owner": "angela"})
	assert.ErrorIs(t, err, ErrInvalidField)

	other := MustSchema("other", []Field{Enum("action_type", show, like), String("title")})
	assert.False(t, a.Equal(other.MustNew(a.Values())))

	_, err = other.Serialize(a)
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestLookupAndNormalization(t *testing.T) {
	s := MustSchema("n", []Field{String("title"), Int("page"), Enum("action_type", show, like)})
	a := s.MustNew(Values{"title": "Crème", "page": 5, "action_type": like})

	title, ok := Lookup[string](a, "title")
	require.True(t, ok)
	assert.Equal(t, "Crème", title)

	page, ok := Lookup[int64](a, "page")
	require.True(t, ok)
	assert.Equal(t, int64(5), page)

	at, ok := Lookup[actionType](a, "action_type")
	require.True(t, ok)
	assert.Equal(t, like, at)

	_, ok = Lookup[int](a, "page")
	assert.False(t, ok)
}

func TestParameterization(t *testing.T) {
	s := recipeSchema(t)

	p, err := s.When(Values{"action_type": like})
	require.NoError(t, err)
	assert.Equal(t, "recipe", p.SchemaName())

	got, err := p.MatchPattern()
	require.NoError(t, err)
	assert.Equal(t, `^like/.*$`, got)

	narrowed, err := p.Pattern(Values{"title": "Poke"})
	require.NoError(t, err)
	assert.Equal(t, `^like/Poke$`, narrowed)

	re, err := Compile(p)
	require.NoError(t, err)
	assert.True(t, re.MatchString("like/Salmon Poke"))

	_, err = s.When(Values{"owner": "x"})
	assert.ErrorIs(t, err, ErrInvalidField)
}

func must(s string, err error) string {
	if err != nil {
		panic(err)
	}
	return s
}

func TestNilSchemaMatchers(t *testing.T) {
	var nilSchema *Schema
	for _, m := range []Matcher{Parameterization{}, nilSchema, nil} {
		_, err := Compile(m)
		assert.ErrorIs(t, err, ErrSchema)
	}
	assert.Empty(t, nilSchema.SchemaName())
}
