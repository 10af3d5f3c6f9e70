package codegen

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venice-lang/venice/compiler/analyzer"
	"github.com/venice-lang/venice/compiler/lexer"
	"github.com/venice-lang/venice/compiler/parser"
	"github.com/venice-lang/venice/compiler/vil"
)

func lower(t *testing.T, src string) *vil.Program {
	t.Helper()

	ctx := context.Background()

	prog, err := parser.Parse(ctx, lexer.New("test.vn", src))
	require.NoError(t, err, "parse")

	typed, err := analyzer.Analyze(ctx, prog)
	require.NoError(t, err, "analyze")

	p, err := Generate(ctx, typed)
	require.NoError(t, err, "lower")

	return p
}

// checkWellFormed checks the block invariants on the emitted program.
func checkWellFormed(t *testing.T, p *vil.Program) {
	t.Helper()

	for _, f := range p.Functions {
		labels := map[string]bool{}

		for _, blk := range f.Blocks {
			require.False(t, labels[blk.Label], "duplicate label %s", blk.Label)
			labels[blk.Label] = true
		}

		require.True(t, strings.HasPrefix(f.Blocks[0].Label, f.Name+"_"),
			"entry label %s not derived from function name", f.Blocks[0].Label)

		for _, blk := range f.Blocks {
			switch x := blk.Exit.(type) {
			case vil.Ret:
			case vil.Jump:
				require.True(t, labels[x.To], "unknown label %s", x.To)
			case vil.JumpCond:
				require.True(t, labels[x.True], "unknown label %s", x.True)
				require.True(t, labels[x.False], "unknown label %s", x.False)
			default:
				t.Errorf("block %s: bad terminator %T", blk.Label, blk.Exit)
			}
		}
	}
}

func TestHelloWorld(t *testing.T) {
	p := lower(t, `func main() -> i64 { print("Hello, world!"); return 0; }`)
	checkWellFormed(t, p)

	out := string(vil.Format(nil, p))

	assert.Contains(t, out, "extern venice_println;")
	assert.Contains(t, out, "call venice_println(ptr i64 s_0)")
	assert.Contains(t, out, "ret i64 0")
	assert.Contains(t, out, `data s_0 = "Hello, world!";`)
}

func TestStringsDeduplicated(t *testing.T) {
	p := lower(t, `func main() -> i64 { print("a"); print("a"); print("b"); return 0; }`)

	require.Len(t, p.Strings, 2)
}

func TestWhileShape(t *testing.T) {
	p := lower(t, `func main() -> i64 { let x: i64 = 5; while x > 0 { print_int(x); x = x - 1; } return 0; }`)
	checkWellFormed(t, p)

	f := p.Functions[0]

	// entry, cond, body, end
	require.Len(t, f.Blocks, 4)
	assert.Contains(t, f.Blocks[1].Label, "while_cond")
	assert.Contains(t, f.Blocks[3].Label, "while_end")

	// entry falls through to cond
	assert.Equal(t, vil.Jump{To: f.Blocks[1].Label}, f.Blocks[0].Exit)

	// cond forks to body/end
	jc, ok := f.Blocks[1].Exit.(vil.JumpCond)
	require.True(t, ok)
	assert.Equal(t, f.Blocks[2].Label, jc.True)
	assert.Equal(t, f.Blocks[3].Label, jc.False)

	// body loops back
	assert.Equal(t, vil.Jump{To: f.Blocks[1].Label}, f.Blocks[2].Exit)
}

func TestIfElseShape(t *testing.T) {
	p := lower(t, `func main() -> i64 { if 1 < 2 { print("yes"); } else { print("no"); } return 0; }`)
	checkWellFormed(t, p)

	f := p.Functions[0]

	// entry, then, else, join
	require.Len(t, f.Blocks, 4)

	jc, ok := f.Blocks[0].Exit.(vil.JumpCond)
	require.True(t, ok)
	assert.Equal(t, f.Blocks[1].Label, jc.True)
	assert.Equal(t, f.Blocks[2].Label, jc.False)

	join := f.Blocks[3].Label
	assert.Equal(t, vil.Jump{To: join}, f.Blocks[1].Exit)
	assert.Equal(t, vil.Jump{To: join}, f.Blocks[2].Exit)
}

func TestFunctionParamsSpilled(t *testing.T) {
	p := lower(t, `func square(n: i64) -> i64 { return n * n; } func main() -> i64 { print_int(square(7)); return 0; }`)
	checkWellFormed(t, p)

	require.Len(t, p.Functions, 2)

	sq := p.Functions[0]
	require.Len(t, sq.Params, 1)
	assert.Equal(t, vil.Symbol("n"), sq.Params[0].Name)

	// entry allocates a slot and stores the incoming parameter
	code := sq.Blocks[0].Code

	al, ok := code[0].(vil.Alloca)
	require.True(t, ok)

	st, ok := code[1].(vil.Store)
	require.True(t, ok)
	assert.Equal(t, al.Dst, st.Addr)
	assert.Equal(t, vil.Symbol("n"), st.Value.Sym)
}

func TestShortCircuit(t *testing.T) {
	p := lower(t, `
func check(n: i64) -> bool { return n > 0; }
func main() -> i64 {
	if check(1) and check(2) {
		print("both");
	}
	return 0;
}
`)
	checkWellFormed(t, p)

	out := string(vil.Format(nil, p))

	// the right operand evaluates in its own block
	assert.Contains(t, out, "and_rhs")
	assert.Contains(t, out, "and_end")
}

func TestAssertLowering(t *testing.T) {
	p := lower(t, `func main() -> i64 { assert 1 < 2; return 0; }`)
	checkWellFormed(t, p)

	out := string(vil.Format(nil, p))

	assert.Contains(t, out, "assert_fail")
	assert.Contains(t, out, "call venice_panic")
	assert.Contains(t, out, "assertion failed at line 1")
}

func TestForListLowering(t *testing.T) {
	p := lower(t, `func main() -> i64 { let xs: list[i64] = [1, 2, 3]; for x in xs { print_int(x); } return 0; }`)
	checkWellFormed(t, p)

	out := string(vil.Format(nil, p))

	assert.Contains(t, out, "venice_list_from_varargs")
	assert.Contains(t, out, "venice_list_length")
	assert.Contains(t, out, "venice_list_index")
}

func TestForMapLowering(t *testing.T) {
	p := lower(t, `
func main() -> i64 {
	let m: map[string, i64] = {"a": 1, "b": 2};
	for k, v in m {
		print(k);
		print_int(v);
	}
	return 0;
}
`)
	checkWellFormed(t, p)

	out := string(vil.Format(nil, p))

	assert.Contains(t, out, "venice_map_new")
	assert.Contains(t, out, "venice_map_insert")
	assert.Contains(t, out, "venice_map_size")
	assert.Contains(t, out, "venice_map_key_at")
	assert.Contains(t, out, "venice_map_value_at")
}

func TestRecordsAndTuples(t *testing.T) {
	p := lower(t, `
record Point { x: i64, y: i64, }
func main() -> i64 {
	let p: Point = new Point { y: 2, x: 1 };
	let t: tuple[i64, i64] = (10, 20);
	return p.x + t.1;
}
`)
	checkWellFormed(t, p)

	out := string(vil.Format(nil, p))

	assert.Contains(t, out, "venice_malloc")

	// p.x reads cell 0, t.1 reads cell 8
	assert.Contains(t, out, ", i64 0\n")
	assert.Contains(t, out, ", i64 8\n")
}

func TestConstInlined(t *testing.T) {
	p := lower(t, `
const limit: i64 = 10;
func main() -> i64 { return limit; }
`)
	checkWellFormed(t, p)

	f := p.Functions[0]

	ret, ok := f.Blocks[len(f.Blocks)-1].Exit.(vil.Ret)
	require.True(t, ok)
	assert.Equal(t, int64(10), ret.Value.Imm)
}

func TestStringEquality(t *testing.T) {
	p := lower(t, `func eq(a: string, b: string) -> bool { return a == b; } func main() -> i64 { return 0; }`)
	checkWellFormed(t, p)

	out := string(vil.Format(nil, p))
	assert.Contains(t, out, "venice_string_equals")
}

func TestUnreachableAfterReturn(t *testing.T) {
	p := lower(t, `func main() -> i64 { return 0; print("never"); }`)
	checkWellFormed(t, p)

	f := p.Functions[0]
	require.Len(t, f.Blocks, 1)
	assert.Empty(t, f.Blocks[0].Code)
}

func TestSymbolsUnique(t *testing.T) {
	p := lower(t, `func main() -> i64 { let x: i64 = 1; if true { let x: i64 = 2; print_int(x); } return x; }`)
	checkWellFormed(t, p)

	f := p.Functions[0]
	seen := map[vil.Symbol]bool{}

	for _, blk := range f.Blocks {
		for _, ins := range blk.Code {
			al, ok := ins.(vil.Alloca)
			if !ok {
				continue
			}

			require.False(t, seen[al.Dst], "symbol %s allocated twice", al.Dst)
			seen[al.Dst] = true
		}
	}
}
