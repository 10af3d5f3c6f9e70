package vil

import (
	"fmt"

	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"
)

// Builder assembles one function block by block. It owns the current
// block, which is either open (no terminator, accepting instructions)
// or sealed. Starting a new block while the current one is open seals
// it with an implicit jump to the new label.
type Builder struct {
	fn  *Function
	cur *Block

	// n numbers labels and symbols, monotonic within the function.
	n int
}

func NewBuilder(name string, params []Param, ret Type) *Builder {
	b := &Builder{
		fn: &Function{
			Name:   name,
			Params: params,
			Return: ret,
		},
	}

	b.startBlock(b.Label(name))

	return b
}

// Symbol returns a fresh virtual symbol named after the hint.
func (b *Builder) Symbol(hint string) Symbol {
	b.n++
	return Symbol(fmt.Sprintf("%s_%d", hint, b.n))
}

// Label returns a fresh label named after the hint.
func (b *Builder) Label(hint string) string {
	b.n++
	return fmt.Sprintf("%s_%d", hint, b.n)
}

// Emit appends an instruction to the current block. Emitting into a
// sealed block is a compiler bug.
func (b *Builder) Emit(ins Instruction) {
	if b.cur.Exit != nil {
		panic(errors.New("internal error: emit into sealed block %s", b.cur.Label))
	}

	tlog.V("vil").Printw("emit", "block", b.cur.Label, "ins", tlog.NextAsType, ins, "from", loc.Callers(1, 2))

	b.cur.Code = append(b.cur.Code, ins)
}

// Terminate seals the current block.
func (b *Builder) Terminate(t Terminator) {
	if b.cur.Exit != nil {
		panic(errors.New("internal error: block %s terminated twice", b.cur.Label))
	}

	tlog.V("vil").Printw("terminate", "block", b.cur.Label, "exit", tlog.NextAsType, t, "from", loc.Callers(1, 2))

	b.cur.Exit = t
}

// Terminated reports whether the current block is sealed.
func (b *Builder) Terminated() bool {
	return b.cur.Exit != nil
}

// StartBlock begins a new current block under the given label. An open
// current block falls through with an implicit jump.
func (b *Builder) StartBlock(label string) {
	if b.cur != nil && b.cur.Exit == nil {
		b.cur.Exit = Jump{To: label}
	}

	b.startBlock(label)
}

func (b *Builder) startBlock(label string) {
	blk := &Block{Label: label}

	b.fn.Blocks = append(b.fn.Blocks, blk)
	b.cur = blk
}

// Finish checks block invariants and returns the function. A
// placeholder or missing terminator at this point is a compiler bug.
func (b *Builder) Finish() (*Function, error) {
	labels := make(map[string]bool, len(b.fn.Blocks))

	for _, blk := range b.fn.Blocks {
		if labels[blk.Label] {
			return nil, errors.New("internal error: duplicate label %s", blk.Label)
		}

		labels[blk.Label] = true
	}

	for _, blk := range b.fn.Blocks {
		switch t := blk.Exit.(type) {
		case nil, Placeholder:
			return nil, errors.New("internal error: block %s has no terminator", blk.Label)
		case Jump:
			if !labels[t.To] {
				return nil, errors.New("internal error: jump to unknown label %s", t.To)
			}
		case JumpCond:
			if !labels[t.True] || !labels[t.False] {
				return nil, errors.New("internal error: jump to unknown label %s or %s", t.True, t.False)
			}
		}
	}

	return b.fn, nil
}
