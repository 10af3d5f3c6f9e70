package compiler

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/venice-lang/venice/compiler/analyzer"
	"github.com/venice-lang/venice/compiler/ast"
	"github.com/venice-lang/venice/compiler/codegen"
	"github.com/venice-lang/venice/compiler/lexer"
	"github.com/venice-lang/venice/compiler/parser"
	"github.com/venice-lang/venice/compiler/vil"
	"github.com/venice-lang/venice/compiler/x86"
)

type (
	Options struct {
		// Debug dumps each intermediate form next to the input file
		// and keeps the assembly and object files after linking.
		Debug bool
	}
)

// SourceExt is the conventional source file extension.
const SourceExt = ".vn"

// Stdout receives intermediate form dumps in debug mode.
var Stdout io.Writer = os.Stdout

func (o *Options) debug() bool { return o != nil && o.Debug }

func CompileFile(ctx context.Context, name string, opt *Options) (asm []byte, err error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return Compile(ctx, name, string(text), opt)
}

// Compile runs the pipeline from source text to assembly text. The
// returned error is the first failing pass's diagnostics.
func Compile(ctx context.Context, name, text string, opt *Options) (asm []byte, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile", "name", name)
	defer tr.Finish("err", &err)

	l := lexer.New(name, text)

	prog, err := parser.Parse(ctx, l)
	if err != nil {
		return nil, err
	}

	if opt.debug() {
		dump(name, ".ast", ast.Format(nil, prog))
	}

	typed, err := analyzer.Analyze(ctx, prog)
	if err != nil {
		return nil, err
	}

	if opt.debug() {
		dump(name, ".typed", ast.Format(nil, typed))
	}

	vp, err := codegen.Generate(ctx, typed)
	if err != nil {
		return nil, err
	}

	if opt.debug() {
		dump(name, ".vil", vil.Format(nil, vp))
	}

	xp, err := x86.Generate(ctx, vp)
	if err != nil {
		return nil, err
	}

	return x86.Format(nil, xp), nil
}

// BuildFile compiles a source file and assembles and links it into an
// executable next to it. It returns the executable path.
func BuildFile(ctx context.Context, name string, opt *Options) (bin string, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "build", "name", name)
	defer tr.Finish("err", &err)

	asm, err := CompileFile(ctx, name, opt)
	if err != nil {
		return "", err
	}

	base := strings.TrimSuffix(name, SourceExt)

	asmFile := base + ".s"
	objFile := base + ".o"

	err = os.WriteFile(asmFile, asm, 0o644)
	if err != nil {
		return "", errors.Wrap(err, "write assembly")
	}

	if !opt.debug() {
		defer func() {
			_ = os.Remove(asmFile)
			_ = os.Remove(objFile)
		}()
	}

	err = run(ctx, "nasm", "-g", "-F", "dwarf", "-f", "elf64", "-o", objFile, asmFile)
	if err != nil {
		return "", err
	}

	err = run(ctx, "ld",
		"-dynamic-linker", "/lib64/ld-linux-x86-64.so.2",
		"/usr/lib/x86_64-linux-gnu/crt1.o",
		"/usr/lib/x86_64-linux-gnu/crti.o",
		"runtime/libvenice.so",
		"-lc",
		objFile,
		"/usr/lib/x86_64-linux-gnu/crtn.o",
		"-o", base,
	)
	if err != nil {
		return "", err
	}

	return base, nil
}

func run(ctx context.Context, name string, args ...string) error {
	tlog.SpanFromContext(ctx).Printw("exec", "cmd", name, "args", args)

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err != nil {
		return errors.Wrap(err, "%v", name)
	}

	return nil
}

// dump prints an intermediate form to stdout and writes it next to the
// input file.
func dump(name, ext string, text []byte) {
	_, _ = Stdout.Write(text)

	if len(text) != 0 && text[len(text)-1] != '\n' {
		_, _ = Stdout.Write([]byte{'\n'})
	}

	err := os.WriteFile(name+ext, text, 0o644)
	if err != nil {
		tlog.Printw("dump intermediate", "file", name+ext, "err", err)
	}
}
