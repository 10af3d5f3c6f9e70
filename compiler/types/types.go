// Package types defines the resolved types of the language.
package types

import (
	"strings"
)

type (
	Type interface {
		Matches(Type) bool
		String() string
	}

	Boolean struct{}
	I64     struct{}
	String  struct{}
	Void    struct{}

	// Error is a sentinel substituted for the type of a construct that
	// already produced a diagnostic. It matches anything so one mistake
	// yields one message, not a cascade.
	Error struct{}

	Tuple struct {
		Elems []Type
	}

	List struct {
		Elem Type
	}

	Map struct {
		Key, Value Type
	}

	Field struct {
		Name string
		Type Type
	}

	Record struct {
		Name   string
		Fields []Field
	}

	Function struct {
		Params []Type
		Return Type
	}
)

func (Boolean) String() string { return "bool" }
func (I64) String() string     { return "i64" }
func (String) String() string  { return "string" }
func (Void) String() string    { return "void" }
func (Error) String() string   { return "<error>" }

func (t Tuple) String() string {
	var b strings.Builder

	b.WriteString("tuple[")

	for i, e := range t.Elems {
		if i != 0 {
			b.WriteString(", ")
		}

		b.WriteString(e.String())
	}

	b.WriteString("]")

	return b.String()
}

func (t List) String() string { return "list[" + t.Elem.String() + "]" }

func (t Map) String() string {
	return "map[" + t.Key.String() + ", " + t.Value.String() + "]"
}

func (t Record) String() string { return t.Name }

func (t Function) String() string {
	var b strings.Builder

	b.WriteString("func(")

	for i, p := range t.Params {
		if i != 0 {
			b.WriteString(", ")
		}

		b.WriteString(p.String())
	}

	b.WriteString(") -> ")
	b.WriteString(t.Return.String())

	return b.String()
}

func (Boolean) Matches(u Type) bool {
	_, ok := u.(Boolean)
	return ok || isError(u)
}

func (I64) Matches(u Type) bool {
	_, ok := u.(I64)
	return ok || isError(u)
}

func (String) Matches(u Type) bool {
	_, ok := u.(String)
	return ok || isError(u)
}

func (Void) Matches(u Type) bool {
	_, ok := u.(Void)
	return ok || isError(u)
}

func (Error) Matches(Type) bool { return true }

func (t Tuple) Matches(u Type) bool {
	if isError(u) {
		return true
	}

	q, ok := u.(Tuple)
	if !ok || len(q.Elems) != len(t.Elems) {
		return false
	}

	for i, e := range t.Elems {
		if !e.Matches(q.Elems[i]) {
			return false
		}
	}

	return true
}

func (t List) Matches(u Type) bool {
	if isError(u) {
		return true
	}

	q, ok := u.(List)

	return ok && t.Elem.Matches(q.Elem)
}

func (t Map) Matches(u Type) bool {
	if isError(u) {
		return true
	}

	q, ok := u.(Map)

	return ok && t.Key.Matches(q.Key) && t.Value.Matches(q.Value)
}

func (t Record) Matches(u Type) bool {
	if isError(u) {
		return true
	}

	q, ok := u.(Record)

	return ok && t.Name == q.Name
}

func (t Function) Matches(u Type) bool {
	if isError(u) {
		return true
	}

	q, ok := u.(Function)
	if !ok || len(q.Params) != len(t.Params) {
		return false
	}

	for i, p := range t.Params {
		if !p.Matches(q.Params[i]) {
			return false
		}
	}

	return t.Return.Matches(q.Return)
}

// Field returns the type of the named field, nil if there is none.
func (t Record) Field(name string) Type {
	for _, f := range t.Fields {
		if f.Name == name {
			return f.Type
		}
	}

	return nil
}

func isError(t Type) bool {
	_, ok := t.(Error)
	return ok
}
