package textpatch

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLiteral(t *testing.T) {
	tests := []struct {
		name    string
		lit     Literal
		in      string
		want    string
		applied bool
	}{
		{"replaces first only", Literal{Old: "a", New: "b"}, "a a", "b a", true},
		{"absent", Literal{Old: "x", New: "y"}, "abc", "abc", false},
		{"empty old", Literal{Old: "", New: "y"}, "abc", "abc", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.lit.Apply(tt.in)
			assert.Equal(t, tt.applied, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInsertAfter(t *testing.T) {
	got, ok := InsertAfter("#include \"a.h\"", "\n#include \"b.h\"").Apply("#include \"a.h\"\nint x;\n")
	assert.True(t, ok)
	assert.Equal(t, "#include \"a.h\"\n#include \"b.h\"\nint x;\n", got)
}

func TestAnchored(t *testing.T) {
	a := Anchored{Begin: "struct s {", End: "};", Block: "\n\tint y;\n"}

	t.Run("replaces interior and keeps markers", func(t *testing.T) {
		got, ok := a.Apply("struct s {\n\tint x;\n};\nstruct t {\n};\n")
		assert.True(t, ok)
		assert.Equal(t, "struct s {\n\tint y;\n};\nstruct t {\n};\n", got)
	})

	t.Run("missing begin", func(t *testing.T) {
		in := "struct t {\n};\n"
		got, ok := a.Apply(in)
		assert.False(t, ok)
		assert.Equal(t, in, got)
	})

	t.Run("end only before begin", func(t *testing.T) {
		in := "};\nstruct s {\n\tint x;\n"
		got, ok := a.Apply(in)
		assert.False(t, ok)
		assert.Equal(t, in, got)
	})
}

func TestRegexBounded(t *testing.T) {
	r := Regex{
		Pattern:     regexp.MustCompile(`#include\s*"stream\.h"`),
		Replacement: `#include "stream_mdxtools.h"`,
		Max:         2,
	}

	in := "#include \"stream.h\"\n#include  \"stream.h\"\n#include \"stream.h\"\n"
	got, ok := r.Apply(in)
	assert.True(t, ok)
	assert.Equal(t, "#include \"stream_mdxtools.h\"\n#include \"stream_mdxtools.h\"\n#include \"stream.h\"\n", got)

	_, ok = r.Apply("#include \"other.h\"\n")
	assert.False(t, ok)
}

func TestRegexSubmatchAndDefaultMax(t *testing.T) {
	r := Regex{Pattern: regexp.MustCompile(`tbl(\d)`), Replacement: "table_$1"}

	got, ok := r.Apply("tbl3 tbl4")
	assert.True(t, ok)
	assert.Equal(t, "table_3 tbl4", got, "Max <= 0 replaces once")
}

func TestRegexNilPattern(t *testing.T) {
	_, ok := Regex{}.Apply("abc")
	assert.False(t, ok)
}

func TestSequenceAllOrNothing(t *testing.T) {
	seq := Sequence{
		Literal{Old: "a", New: "A"},
		Literal{Old: "b", New: "B"},
	}

	got, ok := seq.Apply("ab")
	assert.True(t, ok)
	assert.Equal(t, "AB", got)

	got, ok = seq.Apply("ac")
	assert.False(t, ok)
	assert.Equal(t, "ac", got, "partial application must be discarded")

	_, ok = Sequence{}.Apply("ab")
	assert.False(t, ok)
}
