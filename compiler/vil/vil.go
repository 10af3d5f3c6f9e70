// Package vil defines the Venice Intermediate Language: a linear, typed
// IR of basic blocks with explicit control flow, sitting between the
// typed tree and the machine backend.
package vil

type (
	Type interface {
		viltype()
		String() string
	}

	I64 struct{}

	Pointer struct {
		Elem Type
	}

	// Symbol names a virtual register or stack slot. Symbols are
	// unique within a function.
	Symbol string

	// Expr is a typed operand: an immediate or a symbol reference.
	Expr struct {
		Type Type
		Sym  Symbol
		Imm  int64
	}

	Program struct {
		Externs   []string
		Functions []*Function
		Strings   []StringData
	}

	// StringData is a string literal hoisted into the data section.
	StringData struct {
		Name  string
		Value string
	}

	Param struct {
		Name Symbol
		Type Type
	}

	Function struct {
		Name   string
		Params []Param
		Return Type
		Blocks []*Block
	}

	// Block is a basic block: instructions followed by exactly one
	// terminator.
	Block struct {
		Label string

		Code []Instruction
		Exit Terminator
	}

	Instruction interface {
		instruction()
	}

	Terminator interface {
		terminator()
	}

	Alloca struct {
		Dst  Symbol
		Type Type
		Size int
	}

	Store struct {
		Addr  Symbol
		Value Expr
	}

	Load struct {
		Dst Symbol
		Src Expr
	}

	Add struct {
		Dst  Symbol
		L, R Expr
	}

	Sub struct {
		Dst  Symbol
		L, R Expr
	}

	Mul struct {
		Dst  Symbol
		L, R Expr
	}

	Div struct {
		Dst  Symbol
		L, R Expr
	}

	Mod struct {
		Dst  Symbol
		L, R Expr
	}

	// Cmp computes a comparison into Dst as 0 or 1.
	Cmp struct {
		Dst  Symbol
		Cond Cond
		L, R Expr
	}

	// Call invokes a function. Dst is empty for void calls.
	Call struct {
		Dst  Symbol
		Func string
		Args []Expr
	}

	Ret struct {
		Value Expr
	}

	Jump struct {
		To string
	}

	JumpCond struct {
		Cond        Expr
		True, False string
	}

	// Placeholder marks a block whose terminator has not been decided
	// yet. It must never survive into a finished program.
	Placeholder struct{}

	Cond string
)

const (
	Lt Cond = "lt"
	Le Cond = "le"
	Gt Cond = "gt"
	Ge Cond = "ge"
	Eq Cond = "eq"
	Ne Cond = "ne"
)

func (I64) viltype()     {}
func (Pointer) viltype() {}

func (I64) String() string       { return "i64" }
func (t Pointer) String() string { return "ptr " + t.Elem.String() }

func (Alloca) instruction() {}
func (Store) instruction()  {}
func (Load) instruction()   {}
func (Add) instruction()    {}
func (Sub) instruction()    {}
func (Mul) instruction()    {}
func (Div) instruction()    {}
func (Mod) instruction()    {}
func (Cmp) instruction()    {}
func (Call) instruction()   {}

func (Ret) terminator()         {}
func (Jump) terminator()        {}
func (JumpCond) terminator()    {}
func (Placeholder) terminator() {}

// Imm makes an immediate operand.
func Imm(t Type, v int64) Expr { return Expr{Type: t, Imm: v} }

// Sym makes a symbol operand.
func Sym(t Type, s Symbol) Expr { return Expr{Type: t, Sym: s} }
