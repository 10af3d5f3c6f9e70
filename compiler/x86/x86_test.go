package x86

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venice-lang/venice/compiler/vil"
)

func TestGenerateMain(t *testing.T) {
	p := &vil.Program{
		Functions: []*vil.Function{{
			Name:   "main",
			Return: vil.I64{},
			Blocks: []*vil.Block{{
				Label: "main_1",
				Code: []vil.Instruction{
					vil.Alloca{Dst: "x", Type: vil.I64{}, Size: 8},
					vil.Store{Addr: "x", Value: vil.Imm(vil.I64{}, 5)},
					vil.Load{Dst: "t", Src: vil.Sym(vil.I64{}, "x")},
				},
				Exit: vil.Ret{Value: vil.Sym(vil.I64{}, "t")},
			}},
		}},
	}

	out, err := Generate(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, []string{"main"}, out.Globals)

	exp := `global main

section .text

main:
  push rbp
  mov rbp, rsp
  sub rsp, 16

main_1:
  mov rax, 5
  mov [rbp-8], rax
  mov rax, [rbp-8]
  mov [rbp-16], rax
  mov rax, [rbp-16]
  mov rsp, rbp
  pop rbp
  ret
`

	assert.Equal(t, exp, string(Format(nil, out)))
}

func TestGenerateCall(t *testing.T) {
	p := &vil.Program{
		Externs: []string{"venice_println"},
		Functions: []*vil.Function{{
			Name: "f",
			Params: []vil.Param{
				{Name: "a", Type: vil.I64{}},
				{Name: "b", Type: vil.I64{}},
			},
			Return: vil.I64{},
			Blocks: []*vil.Block{{
				Label: "f_1",
				Code: []vil.Instruction{
					vil.Call{Dst: "r_2", Func: "venice_println", Args: []vil.Expr{
						vil.Sym(vil.Pointer{Elem: vil.I64{}}, "s_0"),
					}},
				},
				Exit: vil.Ret{Value: vil.Imm(vil.I64{}, 0)},
			}},
		}},
		Strings: []vil.StringData{{Name: "s_0", Value: "hi"}},
	}

	out, err := Generate(context.Background(), p)
	require.NoError(t, err)

	exp := `extern venice_println

section .text

f:
  push rbp
  mov rbp, rsp
  sub rsp, 32
  mov [rbp-8], rdi
  mov [rbp-16], rsi

f_1:
  mov rdi, s_0
  call venice_println
  mov [rbp-24], rax
  mov rax, 0
  mov rsp, rbp
  pop rbp
  ret

section .data

s_0:
  dq 2
  dq s_0_str
s_0_str:
  db "hi", 0
`

	assert.Equal(t, exp, string(Format(nil, out)))
}

func TestGenerateBranch(t *testing.T) {
	p := &vil.Program{
		Functions: []*vil.Function{{
			Name:   "f",
			Params: []vil.Param{{Name: "n", Type: vil.I64{}}},
			Return: vil.I64{},
			Blocks: []*vil.Block{
				{
					Label: "f_1",
					Code: []vil.Instruction{
						vil.Cmp{Dst: "c", Cond: vil.Gt, L: vil.Sym(vil.I64{}, "n"), R: vil.Imm(vil.I64{}, 0)},
					},
					Exit: vil.JumpCond{Cond: vil.Sym(vil.I64{}, "c"), True: "then_2", False: "end_3"},
				},
				{
					Label: "then_2",
					Exit:  vil.Ret{Value: vil.Imm(vil.I64{}, 1)},
				},
				{
					Label: "end_3",
					Exit:  vil.Ret{Value: vil.Imm(vil.I64{}, 0)},
				},
			},
		}},
	}

	out, err := Generate(context.Background(), p)
	require.NoError(t, err)

	asm := string(Format(nil, out))

	assert.Contains(t, asm, `f_1:
  mov rax, [rbp-8]
  mov rcx, 0
  cmp rax, rcx
  setg al
  movzx rax, al
  mov [rbp-16], rax
  mov rax, [rbp-16]
  cmp rax, 0
  jne then_2
  jmp end_3
`)
}

func TestGenerateArith(t *testing.T) {
	p := &vil.Program{
		Functions: []*vil.Function{{
			Name:   "f",
			Return: vil.I64{},
			Blocks: []*vil.Block{{
				Label: "f_1",
				Code: []vil.Instruction{
					vil.Mul{Dst: "a", L: vil.Imm(vil.I64{}, 6), R: vil.Imm(vil.I64{}, 7)},
					vil.Mod{Dst: "b", L: vil.Sym(vil.I64{}, "a"), R: vil.Imm(vil.I64{}, 10)},
				},
				Exit: vil.Ret{Value: vil.Sym(vil.I64{}, "b")},
			}},
		}},
	}

	out, err := Generate(context.Background(), p)
	require.NoError(t, err)

	asm := string(Format(nil, out))

	assert.Contains(t, asm, "  imul rax, rcx\n")
	assert.Contains(t, asm, `  cqo
  idiv rcx
  mov [rbp-16], rdx
`)
}

func TestGenerateStackArgs(t *testing.T) {
	args := make([]vil.Expr, 8)
	for i := range args {
		args[i] = vil.Imm(vil.I64{}, int64(i))
	}

	p := &vil.Program{
		Externs: []string{"g"},
		Functions: []*vil.Function{{
			Name:   "f",
			Return: vil.I64{},
			Blocks: []*vil.Block{{
				Label: "f_1",
				Code: []vil.Instruction{
					vil.Call{Dst: "r", Func: "g", Args: args},
				},
				Exit: vil.Ret{Value: vil.Sym(vil.I64{}, "r")},
			}},
		}},
	}

	out, err := Generate(context.Background(), p)
	require.NoError(t, err)

	asm := string(Format(nil, out))

	// the last two arguments are pushed right to left
	assert.Contains(t, asm, `  mov r9, 5
  mov rax, 7
  push rax
  mov rax, 6
  push rax
  call g
  add rsp, 16
`)
}

func TestGenerateIndirect(t *testing.T) {
	p := &vil.Program{
		Externs: []string{"venice_list_index"},
		Functions: []*vil.Function{{
			Name:   "f",
			Params: []vil.Param{{Name: "l", Type: vil.Pointer{Elem: vil.I64{}}}},
			Return: vil.I64{},
			Blocks: []*vil.Block{{
				Label: "f_1",
				Code: []vil.Instruction{
					vil.Call{Dst: "p", Func: "venice_list_index", Args: []vil.Expr{
						vil.Sym(vil.Pointer{Elem: vil.I64{}}, "l"),
						vil.Imm(vil.I64{}, 0),
					}},
					vil.Store{Addr: "p", Value: vil.Imm(vil.I64{}, 9)},
					vil.Load{Dst: "v", Src: vil.Sym(vil.I64{}, "p")},
				},
				Exit: vil.Ret{Value: vil.Sym(vil.I64{}, "v")},
			}},
		}},
	}

	out, err := Generate(context.Background(), p)
	require.NoError(t, err)

	asm := string(Format(nil, out))

	// p holds an address, not an alloca slot, so stores and loads
	// go through it
	assert.Contains(t, asm, `  mov rax, 9
  mov rcx, [rbp-16]
  mov [rcx], rax
  mov rcx, [rbp-16]
  mov rax, [rcx]
  mov [rbp-24], rax
`)
}

func TestFormatDataEscapes(t *testing.T) {
	b := formatData(nil, Data{Name: "s_0", Value: "a\"b\nc"})

	assert.Contains(t, string(b), `  db "a", 34, "b", 10, "c", 0`)
}
