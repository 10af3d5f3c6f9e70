package lexer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokens(t *testing.T, src string) []Token {
	t.Helper()

	l := New("test.vn", src)

	var ts []Token

	for !l.Done() {
		ts = append(ts, l.Current())
		l.Advance()
	}

	return ts
}

func kinds(ts []Token) []Kind {
	ks := make([]Kind, len(ts))

	for i, tk := range ts {
		ks[i] = tk.Kind
	}

	return ks
}

func TestEmpty(t *testing.T) {
	l := New("test.vn", "")

	require.Equal(t, EOF, l.Current().Kind)
	require.True(t, l.Done())

	// EOF is sticky
	require.Equal(t, EOF, l.Advance().Kind)
	require.Equal(t, EOF, l.Advance().Kind)
}

func TestOperators(t *testing.T) {
	ts := tokens(t, "= + - * / % < > -> == != <= >= ++")

	assert.Equal(t, []Kind{
		Assign, Plus, Minus, Star, Slash, Percent, Less, Greater,
		Arrow, Equals, NotEquals, LessEq, GreaterEq, Concat,
	}, kinds(ts))
}

func TestTwoCharBeforeOneChar(t *testing.T) {
	ts := tokens(t, "-->")

	require.Len(t, ts, 2)
	assert.Equal(t, Minus, ts[0].Kind)
	assert.Equal(t, Arrow, ts[1].Kind)
}

func TestNumbers(t *testing.T) {
	ts := tokens(t, "0 007 1234567890")

	require.Len(t, ts, 3)

	for _, tk := range ts {
		assert.Equal(t, Int, tk.Kind)
	}

	assert.Equal(t, "007", ts[1].Lexeme)
}

func TestStrings(t *testing.T) {
	ts := tokens(t, `"hello" "a \" b"`)

	require.Len(t, ts, 2)
	assert.Equal(t, Str, ts[0].Kind)
	assert.Equal(t, `"hello"`, ts[0].Lexeme)
	assert.Equal(t, `"a \" b"`, ts[1].Lexeme)
}

func TestUnterminatedString(t *testing.T) {
	l := New("test.vn", `"oops`)

	tk := l.Current()
	assert.Equal(t, Str, tk.Kind)
	assert.Equal(t, `"oops`, tk.Lexeme)

	errs := l.Errors()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "unterminated")
}

func TestKeywordsAndSymbols(t *testing.T) {
	ts := tokens(t, "let letter func f while whiley true false _x")

	assert.Equal(t, []Kind{
		KwLet, Symbol, KwFunc, Symbol, KwWhile, Symbol, True, False, Symbol,
	}, kinds(ts))
}

func TestComments(t *testing.T) {
	ts := tokens(t, "let x // the rest is ignored = 1\nreturn")

	assert.Equal(t, []Kind{KwLet, Symbol, KwReturn}, kinds(ts))
}

func TestUnknown(t *testing.T) {
	ts := tokens(t, "x @ y")

	require.Len(t, ts, 3)
	assert.Equal(t, Unknown, ts[1].Kind)
	assert.Equal(t, "@", ts[1].Lexeme)
}

func TestLocations(t *testing.T) {
	ts := tokens(t, "let x\n  = 1;")

	require.Len(t, ts, 5)

	assert.Equal(t, 1, ts[0].Loc.Line)
	assert.Equal(t, 1, ts[0].Loc.Column)
	assert.Equal(t, 1, ts[1].Loc.Line)
	assert.Equal(t, 5, ts[1].Loc.Column)
	assert.Equal(t, 2, ts[2].Loc.Line)
	assert.Equal(t, 3, ts[2].Loc.Column)
	assert.Equal(t, "line 2, column 3 of test.vn", ts[2].Loc.String())
}

func TestLocationMonotonic(t *testing.T) {
	ts := tokens(t, "func main() -> i64 {\n\tlet x: i64 = 0;\n\treturn x;\n}\n")

	for i := 1; i < len(ts); i++ {
		p, c := ts[i-1].Loc, ts[i].Loc

		if c.Line < p.Line || c.Line == p.Line && c.Column <= p.Column {
			t.Errorf("token %d at %v not after %v", i, c, p)
		}
	}
}

func TestReprintRelex(t *testing.T) {
	src := `func main() -> i64 { let s: string = "hi"; print(s); return 0; }`

	ts := tokens(t, src)

	var b strings.Builder

	for _, tk := range ts {
		b.WriteString(tk.Lexeme)
		b.WriteByte(' ')
	}

	ts2 := tokens(t, b.String())

	require.Len(t, ts2, len(ts))

	for i := range ts {
		assert.Equal(t, ts[i].Kind, ts2[i].Kind)
		assert.Equal(t, ts[i].Lexeme, ts2[i].Lexeme)
	}
}
