package compiler

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venice-lang/venice/compiler/common"
)

func compileString(t *testing.T, text string) string {
	t.Helper()

	asm, err := Compile(context.Background(), "test.vn", text, nil)
	require.NoError(t, err)

	return string(asm)
}

func TestCompileHello(t *testing.T) {
	asm := compileString(t, `func main() -> i64 { print("Hello, world!"); return 0; }`)

	assert.Contains(t, asm, "extern venice_println\n")
	assert.Contains(t, asm, "global main\n")
	assert.Contains(t, asm, "call venice_println\n")
	assert.Contains(t, asm, `db "Hello, world!", 0`)
}

func TestCompileIf(t *testing.T) {
	asm := compileString(t, `func main() -> i64 { if 1 < 2 { print("yes"); } else { print("no"); } return 0; }`)

	assert.Contains(t, asm, "  setl al\n")
	assert.Contains(t, asm, "  jne if_then_")
	assert.Contains(t, asm, `db "yes", 0`)
	assert.Contains(t, asm, `db "no", 0`)
}

func TestCompileCountdown(t *testing.T) {
	asm := compileString(t, `func main() -> i64 { let x: i64 = 5; while x > 0 { print_int(x); x = x - 1; } return 0; }`)

	assert.Contains(t, asm, "extern venice_printint\n")
	assert.Contains(t, asm, "  setg al\n")
	assert.Contains(t, asm, "  jmp while_cond_")
}

func TestCompileCall(t *testing.T) {
	asm := compileString(t, `func square(n: i64) -> i64 { return n * n; } func main() -> i64 { print_int(square(7)); return 0; }`)

	assert.Contains(t, asm, "\nsquare:\n")
	assert.Contains(t, asm, "  imul rax, rcx\n")
	assert.Contains(t, asm, "  call square\n")
	assert.Contains(t, asm, "  mov rdi, 7\n")
}

func TestCompileFibIterative(t *testing.T) {
	asm := compileString(t, `
func fib(n: i64) -> i64 {
	let a: i64 = 0;
	let b: i64 = 1;
	let i: i64 = 0;
	while i < n {
		let t: i64 = a + b;
		a = b;
		b = t;
		i = i + 1;
	}
	return a;
}

func main() -> i64 {
	print("F(10) = ");
	print_int(fib(10));
	return 0;
}
`)

	assert.Contains(t, asm, "\nfib:\n")
	assert.Contains(t, asm, "  call fib\n")
	assert.Contains(t, asm, `db "F(10) = ", 0`)
}

func TestCompileFibRecursive(t *testing.T) {
	asm := compileString(t, `
func fib(n: i64) -> i64 {
	if n < 2 {
		return n;
	}
	return fib(n - 1) + fib(n - 2);
}

func main() -> i64 {
	print("F(10) = ");
	print_int(fib(10));
	return 0;
}
`)

	assert.Contains(t, asm, "\nfib:\n")
	assert.Contains(t, asm, "  call fib\n")
	assert.Contains(t, asm, "  setl al\n")
}

func TestCompileTypeError(t *testing.T) {
	_, err := Compile(context.Background(), "test.vn", `func main() -> i64 { let x: i64 = "hello"; return 0; }`, nil)
	require.Error(t, err)

	diags, ok := err.(common.Errors)
	require.True(t, ok)
	require.Len(t, diags, 1)

	assert.Equal(t, "expected i64, got string", diags[0].Message)
}

func TestCompileUndefinedSymbol(t *testing.T) {
	_, err := Compile(context.Background(), "test.vn", `func main() -> i64 { return y; }`, nil)
	require.Error(t, err)

	diags, ok := err.(common.Errors)
	require.True(t, ok)
	require.Len(t, diags, 1)

	assert.Equal(t, "undefined symbol: y", diags[0].Message)
}

func TestCompileSyntaxError(t *testing.T) {
	_, err := Compile(context.Background(), "test.vn", `func main() -> i64 { let ; return 0; }`, nil)
	require.Error(t, err)

	_, ok := err.(common.Errors)
	require.True(t, ok)
}

func TestCompileFileDebug(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "hello.vn")

	err := os.WriteFile(name, []byte(`func main() -> i64 { print("hi"); return 0; }`), 0o644)
	require.NoError(t, err)

	var buf bytes.Buffer

	defer func(w io.Writer) { Stdout = w }(Stdout)
	Stdout = &buf

	asm, err := CompileFile(context.Background(), name, &Options{Debug: true})
	require.NoError(t, err)
	require.NotEmpty(t, asm)

	for _, ext := range []string{".ast", ".typed", ".vil"} {
		_, err = os.Stat(name + ext)
		assert.NoError(t, err, ext)
	}

	// each intermediate form goes to stdout too
	out := buf.String()

	assert.Contains(t, out, "(program (func main () (type i64) ")
	assert.Contains(t, out, "func main() i64 {\n")
	assert.Contains(t, out, "extern venice_println;\n")
}
