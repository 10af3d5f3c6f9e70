package vil

import (
	"github.com/nikandfor/hacked/hfmt"
)

// Format appends the canonical textual form of the program to b. It is
// total and is what --debug prints and golden tests compare against.
func Format(b []byte, p *Program) []byte {
	for _, e := range p.Externs {
		b = hfmt.Appendf(b, "extern %s;\n", e)
	}

	if len(p.Externs) != 0 {
		b = append(b, '\n')
	}

	for i, f := range p.Functions {
		if i != 0 {
			b = append(b, '\n')
		}

		b = FormatFunction(b, f)
	}

	if len(p.Strings) != 0 {
		b = append(b, '\n')
	}

	for _, s := range p.Strings {
		b = hfmt.Appendf(b, "data %s = %q;\n", s.Name, s.Value)
	}

	return b
}

func FormatFunction(b []byte, f *Function) []byte {
	b = hfmt.Appendf(b, "func %s(", f.Name)

	for i, p := range f.Params {
		if i != 0 {
			b = append(b, ", "...)
		}

		b = hfmt.Appendf(b, "%s %s", p.Name, p.Type)
	}

	b = hfmt.Appendf(b, ") %s {\n", f.Return)

	for _, blk := range f.Blocks {
		b = hfmt.Appendf(b, "%s:\n", blk.Label)

		for _, ins := range blk.Code {
			b = append(b, "  "...)
			b = formatInstruction(b, ins)
			b = append(b, '\n')
		}

		b = append(b, "  "...)
		b = formatTerminator(b, blk.Exit)
		b = append(b, '\n')
	}

	b = append(b, "}\n"...)

	return b
}

func formatInstruction(b []byte, ins Instruction) []byte {
	switch ins := ins.(type) {
	case Alloca:
		b = hfmt.Appendf(b, "%s = alloca %s, %d", ins.Dst, ins.Type, ins.Size)
	case Store:
		b = hfmt.Appendf(b, "store %s, ", ins.Addr)
		b = formatExpr(b, ins.Value)
	case Load:
		b = hfmt.Appendf(b, "%s = load ", ins.Dst)
		b = formatExpr(b, ins.Src)
	case Add:
		b = formatBinary(b, ins.Dst, "add", ins.L, ins.R)
	case Sub:
		b = formatBinary(b, ins.Dst, "sub", ins.L, ins.R)
	case Mul:
		b = formatBinary(b, ins.Dst, "mul", ins.L, ins.R)
	case Div:
		b = formatBinary(b, ins.Dst, "div", ins.L, ins.R)
	case Mod:
		b = formatBinary(b, ins.Dst, "mod", ins.L, ins.R)
	case Cmp:
		b = formatBinary(b, ins.Dst, "cmp_"+string(ins.Cond), ins.L, ins.R)
	case Call:
		if ins.Dst != "" {
			b = hfmt.Appendf(b, "%s = ", ins.Dst)
		}

		b = hfmt.Appendf(b, "call %s(", ins.Func)

		for i, a := range ins.Args {
			if i != 0 {
				b = append(b, ", "...)
			}

			b = formatExpr(b, a)
		}

		b = append(b, ')')
	}

	return b
}

func formatTerminator(b []byte, t Terminator) []byte {
	switch t := t.(type) {
	case Ret:
		b = append(b, "ret "...)
		b = formatExpr(b, t.Value)
	case Jump:
		b = hfmt.Appendf(b, "jump %s", t.To)
	case JumpCond:
		b = append(b, "jump_cond "...)
		b = formatExpr(b, t.Cond)
		b = hfmt.Appendf(b, ", %s, %s", t.True, t.False)
	case Placeholder, nil:
		b = append(b, "placeholder"...)
	}

	return b
}

func formatBinary(b []byte, dst Symbol, op string, l, r Expr) []byte {
	b = hfmt.Appendf(b, "%s = %s ", dst, op)
	b = formatExpr(b, l)
	b = append(b, ", "...)
	b = formatExpr(b, r)

	return b
}

func formatExpr(b []byte, e Expr) []byte {
	if e.Sym != "" {
		return hfmt.Appendf(b, "%s %s", e.Type, e.Sym)
	}

	return hfmt.Appendf(b, "%s %d", e.Type, e.Imm)
}
