// Package x86 turns VIL into x86-64 assembly in NASM syntax. Every
// virtual symbol gets a stack slot; operands are materialized into
// scratch registers at each use and results spilled back.
package x86

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/venice-lang/venice/compiler/vil"
)

type (
	Program struct {
		Externs []string
		Globals []string
		Blocks  []Block
		Data    []Data
	}

	Block struct {
		Label string
		Code  []Instruction
	}

	// Data is a string constant laid out as the runtime's string
	// record: a length quadword and a pointer to the bytes.
	Data struct {
		Name  string
		Value string
	}

	Instruction interface {
		instruction()
	}

	Operand interface {
		operand()
	}

	Reg string
	Imm int64

	// Mem is an rbp-relative stack slot.
	Mem struct {
		Off int
	}

	// Ind is an indirect access through a register.
	Ind struct {
		Base Reg
	}

	// Sym is the address of a data-section label.
	Sym string

	Push struct{ Src Reg }
	Pop  struct{ Dst Reg }

	Mov struct {
		Dst, Src Operand
	}

	Add struct {
		Dst Reg
		Src Operand
	}

	Sub struct {
		Dst Reg
		Src Operand
	}

	IMul struct {
		Dst Reg
		Src Operand
	}

	Cqo struct{}

	IDiv struct{ Src Reg }

	Cmp struct {
		A Reg
		B Operand
	}

	// Setcc sets al from the flags; Movzx widens it back to rax.
	Setcc struct{ Cond string }
	Movzx struct{}

	Jmp  struct{ To string }
	Jne  struct{ To string }
	Call struct{ Target string }
	Ret  struct{}
)

func (Reg) operand() {}
func (Imm) operand() {}
func (Mem) operand() {}
func (Ind) operand() {}
func (Sym) operand() {}

func (Push) instruction()  {}
func (Pop) instruction()   {}
func (Mov) instruction()   {}
func (Add) instruction()   {}
func (Sub) instruction()   {}
func (IMul) instruction()  {}
func (Cqo) instruction()   {}
func (IDiv) instruction()  {}
func (Cmp) instruction()   {}
func (Setcc) instruction() {}
func (Movzx) instruction() {}
func (Jmp) instruction()   {}
func (Jne) instruction()   {}
func (Call) instruction()  {}
func (Ret) instruction()   {}

// System V AMD64 integer argument registers.
var argRegs = []Reg{"rdi", "rsi", "rdx", "rcx", "r8", "r9"}

type fngen struct {
	offsets map[vil.Symbol]int
	allocas map[vil.Symbol]bool
	data    map[vil.Symbol]bool
	frame   int

	blk *Block
}

// Generate lowers a VIL program to assembly.
func Generate(ctx context.Context, p *vil.Program) (_ *Program, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "lower to x86")
	defer tr.Finish("err", &err)

	out := &Program{Externs: p.Externs}

	data := make(map[vil.Symbol]bool, len(p.Strings))
	for _, s := range p.Strings {
		data[vil.Symbol(s.Name)] = true
		out.Data = append(out.Data, Data{Name: s.Name, Value: s.Value})
	}

	for _, f := range p.Functions {
		if f.Name == "main" {
			out.Globals = append(out.Globals, f.Name)
		}

		err = generateFunction(out, f, data)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", f.Name)
		}
	}

	tr.Printw("lowered", "blocks", len(out.Blocks), "data", len(out.Data))

	return out, nil
}

func generateFunction(out *Program, f *vil.Function, data map[vil.Symbol]bool) error {
	g := &fngen{
		offsets: map[vil.Symbol]int{},
		allocas: map[vil.Symbol]bool{},
		data:    data,
	}

	if err := g.assignSlots(f); err != nil {
		return err
	}

	// entry block carries the callable label and the prologue
	g.blk = &Block{Label: f.Name}
	g.emit(Push{Src: "rbp"})
	g.emit(Mov{Dst: Reg("rbp"), Src: Reg("rsp")})

	if g.frame != 0 {
		g.emit(Sub{Dst: "rsp", Src: Imm(g.frame)})
	}

	for i, p := range f.Params {
		if i < len(argRegs) {
			g.emit(Mov{Dst: g.slot(p.Name), Src: argRegs[i]})
		} else {
			// stack arguments sit above the saved rbp and return
			// address
			g.emit(Mov{Dst: Reg("rax"), Src: Mem{Off: 16 + 8*(i-len(argRegs))}})
			g.emit(Mov{Dst: g.slot(p.Name), Src: Reg("rax")})
		}
	}

	out.Blocks = append(out.Blocks, *g.blk)

	for _, blk := range f.Blocks {
		g.blk = &Block{Label: blk.Label}

		for _, ins := range blk.Code {
			if err := g.instruction(ins); err != nil {
				return errors.Wrap(err, "block %v", blk.Label)
			}
		}

		if err := g.terminator(blk.Exit); err != nil {
			return errors.Wrap(err, "block %v", blk.Label)
		}

		out.Blocks = append(out.Blocks, *g.blk)
	}

	return nil
}

// assignSlots gives every symbol defined in the function a stack slot
// at rbp-8k and records which ones are alloca slots.
func (g *fngen) assignSlots(f *vil.Function) error {
	define := func(s vil.Symbol) {
		if s == "" {
			return
		}

		if _, ok := g.offsets[s]; ok {
			return
		}

		g.frame += 8
		g.offsets[s] = g.frame
	}

	for _, p := range f.Params {
		define(p.Name)
	}

	for _, blk := range f.Blocks {
		for _, ins := range blk.Code {
			switch ins := ins.(type) {
			case vil.Alloca:
				define(ins.Dst)
				g.allocas[ins.Dst] = true
			case vil.Load:
				define(ins.Dst)
			case vil.Add:
				define(ins.Dst)
			case vil.Sub:
				define(ins.Dst)
			case vil.Mul:
				define(ins.Dst)
			case vil.Div:
				define(ins.Dst)
			case vil.Mod:
				define(ins.Dst)
			case vil.Cmp:
				define(ins.Dst)
			case vil.Call:
				define(ins.Dst)
			case vil.Store:
			default:
				return errors.New("unsupported instruction: %T", ins)
			}
		}
	}

	g.frame = align16(g.frame)

	return nil
}

func (g *fngen) instruction(ins vil.Instruction) error {
	switch ins := ins.(type) {
	case vil.Alloca:
		// slot already reserved by the prologue
	case vil.Store:
		g.emit(Mov{Dst: Reg("rax"), Src: g.operand(ins.Value)})

		if g.allocas[ins.Addr] {
			g.emit(Mov{Dst: g.slot(ins.Addr), Src: Reg("rax")})
		} else {
			// the symbol holds an address; store through it
			g.emit(Mov{Dst: Reg("rcx"), Src: g.slot(ins.Addr)})
			g.emit(Mov{Dst: Ind{Base: "rcx"}, Src: Reg("rax")})
		}
	case vil.Load:
		switch {
		case ins.Src.Sym == "":
			g.emit(Mov{Dst: Reg("rax"), Src: Imm(ins.Src.Imm)})
		case g.data[ins.Src.Sym]:
			g.emit(Mov{Dst: Reg("rax"), Src: Sym(ins.Src.Sym)})
		case g.allocas[ins.Src.Sym]:
			g.emit(Mov{Dst: Reg("rax"), Src: g.slot(ins.Src.Sym)})
		default:
			g.emit(Mov{Dst: Reg("rcx"), Src: g.slot(ins.Src.Sym)})
			g.emit(Mov{Dst: Reg("rax"), Src: Ind{Base: "rcx"}})
		}

		g.emit(Mov{Dst: g.slot(ins.Dst), Src: Reg("rax")})
	case vil.Add:
		g.binary(ins.Dst, ins.L, ins.R, func(r Operand) Instruction { return Add{Dst: "rax", Src: r} })
	case vil.Sub:
		g.binary(ins.Dst, ins.L, ins.R, func(r Operand) Instruction { return Sub{Dst: "rax", Src: r} })
	case vil.Mul:
		g.binary(ins.Dst, ins.L, ins.R, func(r Operand) Instruction { return IMul{Dst: "rax", Src: r} })
	case vil.Div:
		g.divide(ins.Dst, ins.L, ins.R, "rax")
	case vil.Mod:
		g.divide(ins.Dst, ins.L, ins.R, "rdx")
	case vil.Cmp:
		g.emit(Mov{Dst: Reg("rax"), Src: g.operand(ins.L)})
		g.emit(Mov{Dst: Reg("rcx"), Src: g.operand(ins.R)})
		g.emit(Cmp{A: "rax", B: Reg("rcx")})
		g.emit(Setcc{Cond: setcc(ins.Cond)})
		g.emit(Movzx{})
		g.emit(Mov{Dst: g.slot(ins.Dst), Src: Reg("rax")})
	case vil.Call:
		g.call(ins)
	default:
		return errors.New("unsupported instruction: %T", ins)
	}

	return nil
}

func (g *fngen) call(ins vil.Call) {
	n := len(ins.Args)

	reg := n
	if reg > len(argRegs) {
		reg = len(argRegs)
	}

	for i := 0; i < reg; i++ {
		g.emit(Mov{Dst: argRegs[i], Src: g.operand(ins.Args[i])})
	}

	// remaining arguments go on the stack right to left, keeping rsp
	// 16-byte aligned at the call
	stack := n - reg
	if stack%2 == 1 {
		g.emit(Sub{Dst: "rsp", Src: Imm(8)})
	}

	for i := n - 1; i >= reg; i-- {
		g.emit(Mov{Dst: Reg("rax"), Src: g.operand(ins.Args[i])})
		g.emit(Push{Src: "rax"})
	}

	g.emit(Call{Target: ins.Func})

	if stack != 0 {
		g.emit(Add{Dst: "rsp", Src: Imm(int64(8 * (stack + stack%2)))})
	}

	if ins.Dst != "" {
		g.emit(Mov{Dst: g.slot(ins.Dst), Src: Reg("rax")})
	}
}

func (g *fngen) terminator(t vil.Terminator) error {
	switch t := t.(type) {
	case vil.Ret:
		g.emit(Mov{Dst: Reg("rax"), Src: g.operand(t.Value)})
		g.emit(Mov{Dst: Reg("rsp"), Src: Reg("rbp")})
		g.emit(Pop{Dst: "rbp"})
		g.emit(Ret{})
	case vil.Jump:
		g.emit(Jmp{To: t.To})
	case vil.JumpCond:
		g.emit(Mov{Dst: Reg("rax"), Src: g.operand(t.Cond)})
		g.emit(Cmp{A: "rax", B: Imm(0)})
		g.emit(Jne{To: t.True})
		g.emit(Jmp{To: t.False})
	default:
		return errors.New("unsupported terminator: %T", t)
	}

	return nil
}

// operand maps a VIL expression to an instruction operand.
func (g *fngen) operand(e vil.Expr) Operand {
	if e.Sym == "" {
		return Imm(e.Imm)
	}

	if g.data[e.Sym] {
		return Sym(e.Sym)
	}

	return g.slot(e.Sym)
}

func (g *fngen) slot(s vil.Symbol) Mem {
	off, ok := g.offsets[s]
	if !ok {
		panic(errors.New("internal error: no slot for symbol %s", s))
	}

	return Mem{Off: -off}
}

func (g *fngen) binary(dst vil.Symbol, l, r vil.Expr, op func(Operand) Instruction) {
	g.emit(Mov{Dst: Reg("rax"), Src: g.operand(l)})
	g.emit(Mov{Dst: Reg("rcx"), Src: g.operand(r)})
	g.emit(op(Reg("rcx")))
	g.emit(Mov{Dst: g.slot(dst), Src: Reg("rax")})
}

// divide lowers Div and Mod through idiv, taking the result from rax
// or rdx respectively.
func (g *fngen) divide(dst vil.Symbol, l, r vil.Expr, res Reg) {
	g.emit(Mov{Dst: Reg("rax"), Src: g.operand(l)})
	g.emit(Mov{Dst: Reg("rcx"), Src: g.operand(r)})
	g.emit(Cqo{})
	g.emit(IDiv{Src: "rcx"})
	g.emit(Mov{Dst: g.slot(dst), Src: res})
}

func (g *fngen) emit(ins Instruction) {
	g.blk.Code = append(g.blk.Code, ins)
}

func setcc(c vil.Cond) string {
	switch c {
	case vil.Lt:
		return "l"
	case vil.Le:
		return "le"
	case vil.Gt:
		return "g"
	case vil.Ge:
		return "ge"
	case vil.Eq:
		return "e"
	case vil.Ne:
		return "ne"
	}

	panic(errors.New("unknown condition: %v", c))
}

func align16(n int) int {
	return (n + 15) &^ 15
}
