package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venice-lang/venice/compiler/ast"
	"github.com/venice-lang/venice/compiler/common"
	"github.com/venice-lang/venice/compiler/lexer"
)

func parseProgram(t *testing.T, src string) *ast.Program[ast.Untyped] {
	t.Helper()

	prog, err := Parse(context.Background(), lexer.New("test.vn", src))
	require.NoError(t, err)

	return prog
}

// parseStatement parses a single statement by wrapping it in a function.
func parseStatement(t *testing.T, src string) ast.Statement[ast.Untyped] {
	t.Helper()

	prog := parseProgram(t, "func f() -> i64 { "+src+" }")

	require.Len(t, prog.Declarations, 1)

	f := prog.Declarations[0].(*ast.FunctionDeclaration[ast.Untyped])
	require.Len(t, f.Body, 1)

	return f.Body[0]
}

func golden(t *testing.T, src, want string) {
	t.Helper()

	s := parseStatement(t, src)

	b := []byte(nil)
	b = formatOne(b, s)

	assert.Equal(t, want, string(b), "source: %s", src)
}

func formatOne(b []byte, s ast.Statement[ast.Untyped]) []byte {
	p := &ast.Program[ast.Untyped]{
		Declarations: []ast.Declaration[ast.Untyped]{
			&ast.FunctionDeclaration[ast.Untyped]{
				Name:   "f",
				Return: ast.SyntacticType{Name: "i64"},
				Body:   []ast.Statement[ast.Untyped]{s},
			},
		},
	}

	full := ast.Format(nil, p)

	// strip the (program (func f () (type i64) ...)) wrapper
	const prefix = "(program (func f () (type i64) "

	return append(b, full[len(prefix):len(full)-2]...)
}

func TestLetStatement(t *testing.T) {
	golden(t, "let x: i64 = 0;", "(let x (type i64) 0)")
}

func TestAssignStatement(t *testing.T) {
	golden(t, "x = 42;", "(assign x 42)")
}

func TestAssertStatement(t *testing.T) {
	golden(t, "assert false;", "(assert false)")
}

func TestReturnStatement(t *testing.T) {
	golden(t, "return 42;", "(return 42)")
}

func TestSimpleExpression(t *testing.T) {
	golden(t, "return 12 + 34;", "(return (binary Add 12 34))")
}

func TestPrecedence(t *testing.T) {
	golden(t, "return 1 * 2 + 3;", "(return (binary Add (binary Mul 1 2) 3))")
	golden(t, "return 1 + 2 * 3;", "(return (binary Add 1 (binary Mul 2 3)))")
	golden(t, "return 1 < 2 + 3;", "(return (binary Lt 1 (binary Add 2 3)))")
	golden(t, "return not a and b;", "(return (binary And (unary Not a) b))")
	golden(t, "return a and b or c;", "(return (binary Or (binary And a b) c))")
}

func TestParens(t *testing.T) {
	golden(t, "return (1 + 2) * 3;", "(return (binary Mul (binary Add 1 2) 3))")
}

func TestCall(t *testing.T) {
	golden(t, "return 2 * f(1, 2 + x, 3);",
		"(return (binary Mul 2 (call f (1 (binary Add 2 x) 3))))")
}

func TestExpressionStatement(t *testing.T) {
	golden(t, `print("hi");`, `(call print ("hi"))`)
}

func TestIfStatement(t *testing.T) {
	golden(t, "if true {\n  x = 42;\n} else {\n  x = 0;\n}\n",
		"(if true (block (assign x 42)) (else (block (assign x 0)))")
}

func TestElseIfChain(t *testing.T) {
	golden(t, "if a { x = 1; } else if b { x = 2; } else { x = 3; }",
		"(if a (block (assign x 1)) (elif b (block (assign x 2))) (else (block (assign x 3)))")
}

func TestWhileStatement(t *testing.T) {
	golden(t, "while x > 0 { x = x - 1; }",
		"(while (binary Gt x 0) (block (assign x (binary Sub x 1))))")
}

func TestForStatement(t *testing.T) {
	golden(t, "for x in xs { print_int(x); }",
		"(for x xs(block (call print_int (x)))")
	golden(t, "for k, v in m { print(k); }",
		"(for (k v) m(block (call print (k)))")
}

func TestPostfix(t *testing.T) {
	golden(t, "return xs[0];", "(return (index xs 0))")
	golden(t, "return t.1;", "(return (tuple-index t 1))")
	golden(t, "return p.name;", "(return (attrib p name))")
	golden(t, "return m[k].0;", "(return (tuple-index (index m k) 0))")
}

func TestLiterals(t *testing.T) {
	golden(t, "let xs: list[i64] = [1, 2, 3];",
		"(let xs (type list (type i64)) (list 1 2 3))")
	golden(t, "let t: tuple[i64, string] = (1, \"a\");",
		`(let t (type tuple (type i64) (type string)) (tuple 1 "a"))`)
	golden(t, `let m: map[string, i64] = {"a": 1};`,
		`(let m (type map (type string) (type i64)) (map ("a" 1)))`)
	golden(t, "let p: Point = new Point { x: 1, y: 2 };",
		"(let p (type Point) (record Point (x 1) (y 2)))")
}

func TestStringEscapes(t *testing.T) {
	s := parseStatement(t, `print("a\nb\"c");`)

	es := s.(*ast.ExpressionStatement[ast.Untyped])
	call := es.Expr.Kind.(ast.CallExpression[ast.Untyped])

	require.Len(t, call.Args, 1)
	assert.Equal(t, "a\nb\"c", call.Args[0].Kind.(ast.StringLiteral).Value)
}

func TestDeclarations(t *testing.T) {
	prog := parseProgram(t, `
const limit: i64 = 10;

record Point {
	x: i64,
	y: i64,
}

func dist(p: Point, q: Point) -> i64 {
	return p.x - q.x;
}
`)

	require.Len(t, prog.Declarations, 3)

	b := ast.Format(nil, prog)
	assert.Equal(t,
		"(program (const limit (type i64) 10)"+
			" (record-decl Point(x (type i64))(y (type i64)))"+
			" (func dist ((p (type Point)) (q (type Point))) (type i64)"+
			" (return (binary Sub (attrib p x) (attrib q x)))))",
		string(b))
}

func TestSyntaxError(t *testing.T) {
	_, err := Parse(context.Background(), lexer.New("test.vn", "func f() -> i64 { let = 1; }"))
	require.Error(t, err)

	errs, ok := err.(common.Errors)
	require.True(t, ok)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Message, "expected symbol")
}

func TestErrorRecovery(t *testing.T) {
	// two bad statements yield two diagnostics, not one
	_, err := Parse(context.Background(),
		lexer.New("test.vn", "func f() -> i64 { let = 1; let = 2; return 0; }"))
	require.Error(t, err)

	errs := err.(common.Errors)
	assert.Len(t, errs, 2)
}

func TestAssignToNonSymbol(t *testing.T) {
	_, err := Parse(context.Background(),
		lexer.New("test.vn", "func f() -> i64 { xs[0] = 1; }"))
	require.Error(t, err)

	errs := err.(common.Errors)
	require.NotEmpty(t, errs)
	assert.Equal(t, "can only assign to symbols", errs[0].Message)
}

func TestTopLevelGarbage(t *testing.T) {
	_, err := Parse(context.Background(), lexer.New("test.vn", "let x: i64 = 0;"))
	require.Error(t, err)

	errs := err.(common.Errors)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Message, "expected const, func, or record declaration")
}

func TestParseAgainstConstructedTree(t *testing.T) {
	// the parsed tree must print the same as one built by hand
	want := &ast.Program[ast.Untyped]{
		Declarations: []ast.Declaration[ast.Untyped]{
			&ast.FunctionDeclaration[ast.Untyped]{
				Name:   "main",
				Return: ast.SyntacticType{Name: "i64"},
				Body: []ast.Statement[ast.Untyped]{
					&ast.LetStatement[ast.Untyped]{
						Symbol: "x",
						Type:   ast.SyntacticType{Name: "i64"},
						Value:  ast.Expression[ast.Untyped]{Kind: ast.IntegerLiteral{Value: 5}},
					},
					&ast.ReturnStatement[ast.Untyped]{
						Value: ast.Expression[ast.Untyped]{Kind: ast.SymbolExpression{Name: "x"}},
					},
				},
			},
		},
	}

	got := parseProgram(t, `func main() -> i64 { let x: i64 = 5; return x; }`)

	assert.Equal(t, string(ast.Format(nil, want)), string(ast.Format(nil, got)))
}

func TestFormattingInsensitive(t *testing.T) {
	src := `func main() -> i64 { let x: i64 = 5; while x > 0 { print_int(x); x = x - 1; } return 0; }`

	reformatted := `
// countdown
func main() -> i64 {
	let x: i64 = 5;

	while x > 0 {
		print_int(x); // one line
		x = x - 1;
	}

	return 0;
}
`

	b1 := ast.Format(nil, parseProgram(t, src))
	b2 := ast.Format(nil, parseProgram(t, reformatted))

	assert.Equal(t, string(b1), string(b2))
}
