package common

import (
	"fmt"
	"strings"
)

type (
	// Location is a position in a source file. Lines and columns are
	// one-based; a zero Location means the position is unknown.
	Location struct {
		File   string
		Line   int
		Column int
	}

	BinaryOp int
	UnaryOp  int

	// Error is a diagnostic addressed to the user, as opposed to an
	// internal failure of the compiler itself.
	Error struct {
		Message string
		Loc     Location
	}

	Errors []Error
)

const (
	Add BinaryOp = iota
	Sub
	Mul
	Div
	Mod
	Concat
	And
	Or
	Lt
	Le
	Gt
	Ge
	Eq
	Ne
)

const (
	Neg UnaryOp = iota
	Not
)

func (l Location) String() string {
	return fmt.Sprintf("line %d, column %d of %s", l.Line, l.Column, l.File)
}

func (op BinaryOp) String() string {
	switch op {
	case Add:
		return "Add"
	case Sub:
		return "Sub"
	case Mul:
		return "Mul"
	case Div:
		return "Div"
	case Mod:
		return "Mod"
	case Concat:
		return "Concat"
	case And:
		return "And"
	case Or:
		return "Or"
	case Lt:
		return "Lt"
	case Le:
		return "Le"
	case Gt:
		return "Gt"
	case Ge:
		return "Ge"
	case Eq:
		return "Eq"
	case Ne:
		return "Ne"
	default:
		return fmt.Sprintf("BinaryOp(%d)", int(op))
	}
}

func (op UnaryOp) String() string {
	switch op {
	case Neg:
		return "Neg"
	case Not:
		return "Not"
	default:
		return fmt.Sprintf("UnaryOp(%d)", int(op))
	}
}

func (e Error) Error() string {
	return fmt.Sprintf("error: %s (%s)", e.Message, e.Loc)
}

func (es Errors) Error() string {
	var b strings.Builder

	for i, e := range es {
		if i != 0 {
			b.WriteByte('\n')
		}

		b.WriteString(e.Error())
	}

	return b.String()
}

func (es Errors) Err() error {
	if len(es) == 0 {
		return nil
	}

	return es
}
