package x86

import (
	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"
)

// Format renders the program as NASM source.
func Format(b []byte, p *Program) []byte {
	for _, e := range p.Externs {
		b = hfmt.Appendf(b, "extern %s\n", e)
	}

	if len(p.Externs) != 0 {
		b = append(b, '\n')
	}

	for _, g := range p.Globals {
		b = hfmt.Appendf(b, "global %s\n", g)
	}

	if len(p.Globals) != 0 {
		b = append(b, '\n')
	}

	b = append(b, "section .text\n"...)

	for _, blk := range p.Blocks {
		b = hfmt.Appendf(b, "\n%s:\n", blk.Label)

		for _, ins := range blk.Code {
			b = formatInstruction(b, ins)
		}
	}

	if len(p.Data) == 0 {
		return b
	}

	b = append(b, "\nsection .data\n"...)

	for _, d := range p.Data {
		b = formatData(b, d)
	}

	return b
}

func formatInstruction(b []byte, ins Instruction) []byte {
	switch ins := ins.(type) {
	case Push:
		b = hfmt.Appendf(b, "  push %s\n", ins.Src)
	case Pop:
		b = hfmt.Appendf(b, "  pop %s\n", ins.Dst)
	case Mov:
		b = append(b, "  mov "...)
		b = formatOperand(b, ins.Dst)
		b = append(b, ", "...)
		b = formatOperand(b, ins.Src)
		b = append(b, '\n')
	case Add:
		b = binaryIns(b, "add", ins.Dst, ins.Src)
	case Sub:
		b = binaryIns(b, "sub", ins.Dst, ins.Src)
	case IMul:
		b = binaryIns(b, "imul", ins.Dst, ins.Src)
	case Cqo:
		b = append(b, "  cqo\n"...)
	case IDiv:
		b = hfmt.Appendf(b, "  idiv %s\n", ins.Src)
	case Cmp:
		b = binaryIns(b, "cmp", ins.A, ins.B)
	case Setcc:
		b = hfmt.Appendf(b, "  set%s al\n", ins.Cond)
	case Movzx:
		b = append(b, "  movzx rax, al\n"...)
	case Jmp:
		b = hfmt.Appendf(b, "  jmp %s\n", ins.To)
	case Jne:
		b = hfmt.Appendf(b, "  jne %s\n", ins.To)
	case Call:
		b = hfmt.Appendf(b, "  call %s\n", ins.Target)
	case Ret:
		b = append(b, "  ret\n"...)
	default:
		panic(errors.New("unknown instruction: %T", ins))
	}

	return b
}

func binaryIns(b []byte, name string, dst Reg, src Operand) []byte {
	b = hfmt.Appendf(b, "  %s %s, ", name, dst)
	b = formatOperand(b, src)
	b = append(b, '\n')

	return b
}

func formatOperand(b []byte, op Operand) []byte {
	switch op := op.(type) {
	case Reg:
		b = append(b, op...)
	case Imm:
		b = hfmt.Appendf(b, "%d", int64(op))
	case Mem:
		if op.Off < 0 {
			b = hfmt.Appendf(b, "[rbp-%d]", -op.Off)
		} else {
			b = hfmt.Appendf(b, "[rbp+%d]", op.Off)
		}
	case Ind:
		b = hfmt.Appendf(b, "[%s]", op.Base)
	case Sym:
		b = append(b, op...)
	default:
		panic(errors.New("unknown operand: %T", op))
	}

	return b
}

// formatData lays a string out as the runtime's record: length, pointer
// to the bytes, then the NUL-terminated bytes themselves.
func formatData(b []byte, d Data) []byte {
	b = hfmt.Appendf(b, "\n%s:\n", d.Name)
	b = hfmt.Appendf(b, "  dq %d\n", len(d.Value))
	b = hfmt.Appendf(b, "  dq %s_str\n", d.Name)
	b = hfmt.Appendf(b, "%s_str:\n", d.Name)
	b = append(b, "  db "...)
	b = formatBytes(b, d.Value)
	b = append(b, ", 0\n"...)

	return b
}

// formatBytes emits string bytes for a db directive: printable runs as
// quoted text, everything else numerically.
func formatBytes(b []byte, s string) []byte {
	if s == "" {
		return append(b, `""`...)
	}

	first := true

	sep := func() {
		if !first {
			b = append(b, ", "...)
		}

		first = false
	}

	for i := 0; i < len(s); {
		j := i
		for j < len(s) && printable(s[j]) {
			j++
		}

		if j > i {
			sep()
			b = append(b, '"')
			b = append(b, s[i:j]...)
			b = append(b, '"')

			i = j
			continue
		}

		sep()
		b = hfmt.Appendf(b, "%d", s[i])
		i++
	}

	return b
}

func printable(c byte) bool {
	return c >= 0x20 && c < 0x7f && c != '"' && c != '`' && c != '\\'
}
