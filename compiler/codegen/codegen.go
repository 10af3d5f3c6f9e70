// Package codegen lowers the typed tree to VIL. Structured control flow
// becomes basic blocks with explicit jumps; variables become stack
// slots addressed through virtual symbols.
package codegen

import (
	"context"
	"fmt"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/venice-lang/venice/compiler/ast"
	"github.com/venice-lang/venice/compiler/common"
	"github.com/venice-lang/venice/compiler/types"
	"github.com/venice-lang/venice/compiler/vil"
)

type (
	gen struct {
		prog *vil.Program
		b    *vil.Builder

		// scopes maps identifiers to their stack slots, mirroring the
		// analyzer's scope stack so shadowed names resolve the same.
		scopes []map[string]binding

		// consts are lowered by inlining their initializers at each
		// use site.
		consts map[string]texpr

		strings map[string]string // value -> data label
		externs map[string]bool

		ret vil.Type
	}

	binding struct {
		Slot vil.Symbol
		Type vil.Type
	}

	texpr = ast.Expression[types.Type]
	tstmt = ast.Statement[types.Type]
)

// runtime entry points, linked from libvenice.so
const (
	rtPrintln          = "venice_println"
	rtPrintInt         = "venice_printint"
	rtMalloc           = "venice_malloc"
	rtPanic            = "venice_panic"
	rtStringConcat     = "venice_string_concat"
	rtStringEquals     = "venice_string_equals"
	rtListFromVarargs  = "venice_list_from_varargs"
	rtListIndex        = "venice_list_index"
	rtListLength       = "venice_list_length"
	rtMapNew           = "venice_map_new"
	rtMapInsert        = "venice_map_insert"
	rtMapIndex         = "venice_map_index"
	rtMapSize          = "venice_map_size"
	rtMapKeyAt         = "venice_map_key_at"
	rtMapValueAt       = "venice_map_value_at"
)

var builtins = map[string]string{
	"print":     rtPrintln,
	"print_int": rtPrintInt,
}

// Generate lowers the typed program to VIL.
func Generate(ctx context.Context, prog *ast.Program[types.Type]) (_ *vil.Program, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "lower to vil")
	defer tr.Finish("err", &err)

	g := &gen{
		prog:    &vil.Program{},
		consts:  map[string]texpr{},
		strings: map[string]string{},
		externs: map[string]bool{},
	}

	for _, d := range prog.Declarations {
		c, ok := d.(*ast.ConstDeclaration[types.Type])
		if !ok {
			continue
		}

		g.consts[c.Symbol] = c.Value
	}

	for _, d := range prog.Declarations {
		f, ok := d.(*ast.FunctionDeclaration[types.Type])
		if !ok {
			continue
		}

		fn, err := g.function(f)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", f.Name)
		}

		g.prog.Functions = append(g.prog.Functions, fn)
	}

	tr.Printw("lowered", "funcs", len(g.prog.Functions), "strings", len(g.prog.Strings), "externs", len(g.prog.Externs))

	return g.prog, nil
}

func (g *gen) function(f *ast.FunctionDeclaration[types.Type]) (*vil.Function, error) {
	params := make([]vil.Param, len(f.Params))

	for i, p := range f.Params {
		params[i] = vil.Param{Name: vil.Symbol(p.Name), Type: vilType(p.Resolved)}
	}

	g.ret = vilType(f.Type.(types.Function).Return)
	g.b = vil.NewBuilder(f.Name, params, g.ret)

	g.push()
	defer g.pop()

	// spill parameters into slots so assignment works uniformly
	for i, p := range f.Params {
		slot := g.b.Symbol(p.Name)

		g.b.Emit(vil.Alloca{Dst: slot, Type: params[i].Type, Size: 8})
		g.b.Emit(vil.Store{Addr: slot, Value: vil.Sym(params[i].Type, params[i].Name)})

		g.bind(p.Name, binding{Slot: slot, Type: params[i].Type})
	}

	g.statements(f.Body)

	if !g.b.Terminated() {
		g.b.Terminate(vil.Ret{Value: vil.Imm(g.ret, 0)})
	}

	return g.b.Finish()
}

func (g *gen) statements(body []tstmt) {
	for _, s := range body {
		if g.b.Terminated() {
			// unreachable code after return
			return
		}

		g.statement(s)
	}
}

func (g *gen) block(body []tstmt) {
	g.push()
	defer g.pop()

	g.statements(body)
}

func (g *gen) statement(s tstmt) {
	switch s := s.(type) {
	case *ast.LetStatement[types.Type]:
		t := vilType(s.Resolved)
		value := g.expression(s.Value)

		slot := g.b.Symbol(s.Symbol)
		g.b.Emit(vil.Alloca{Dst: slot, Type: t, Size: 8})
		g.b.Emit(vil.Store{Addr: slot, Value: value})

		g.bind(s.Symbol, binding{Slot: slot, Type: t})
	case *ast.AssignStatement[types.Type]:
		value := g.expression(s.Value)

		bnd, ok := g.lookup(s.Symbol)
		if !ok {
			panic(errors.New("internal error: unbound symbol %s", s.Symbol))
		}

		g.b.Emit(vil.Store{Addr: bnd.Slot, Value: value})
	case *ast.IfStatement[types.Type]:
		g.ifStatement(s)
	case *ast.WhileStatement[types.Type]:
		cond := g.b.Label("while_cond")
		body := g.b.Label("while")
		end := g.b.Label("while_end")

		g.b.StartBlock(cond)
		c := g.expression(s.Cond)
		g.b.Terminate(vil.JumpCond{Cond: c, True: body, False: end})

		g.b.StartBlock(body)
		g.block(s.Body)

		if !g.b.Terminated() {
			g.b.Terminate(vil.Jump{To: cond})
		}

		g.b.StartBlock(end)
	case *ast.ForStatement[types.Type]:
		g.forStatement(s)
	case *ast.ReturnStatement[types.Type]:
		g.b.Terminate(vil.Ret{Value: g.expression(s.Value)})
	case *ast.AssertStatement[types.Type]:
		cond := g.expression(s.Cond)

		ok := g.b.Label("assert_ok")
		fail := g.b.Label("assert_fail")

		g.b.Terminate(vil.JumpCond{Cond: cond, True: ok, False: fail})

		g.b.StartBlock(fail)
		msg := g.internString(assertMessage(s.Loc))
		g.b.Emit(vil.Call{Func: g.extern(rtPanic), Args: []vil.Expr{msg}})
		g.b.Terminate(vil.Jump{To: ok})

		g.b.StartBlock(ok)
	case *ast.ExpressionStatement[types.Type]:
		g.expression(s.Expr)
	default:
		panic(errors.New("unsupported statement: %T", s))
	}
}

func (g *gen) ifStatement(s *ast.IfStatement[types.Type]) {
	join := g.b.Label("if_end")

	for i, c := range s.Clauses {
		cond := g.expression(c.Cond)

		then := g.b.Label("if_then")

		next := join
		if i+1 < len(s.Clauses) || len(s.Else) != 0 {
			next = g.b.Label("if_else")
		}

		g.b.Terminate(vil.JumpCond{Cond: cond, True: then, False: next})

		g.b.StartBlock(then)
		g.block(c.Body)

		if !g.b.Terminated() {
			g.b.Terminate(vil.Jump{To: join})
		}

		if next != join {
			g.b.StartBlock(next)
		}
	}

	if len(s.Else) != 0 {
		g.block(s.Else)

		if !g.b.Terminated() {
			g.b.Terminate(vil.Jump{To: join})
		}
	}

	g.b.StartBlock(join)
}

// forStatement desugars iteration into an index counter loop over the
// runtime's length and element accessors. Maps iterate in insertion
// order, which venice_map_key_at and venice_map_value_at follow.
func (g *gen) forStatement(s *ast.ForStatement[types.Type]) {
	iter := g.expression(s.Iterator)

	var length vil.Expr

	isMap := false
	if _, ok := s.Iterator.Type.(types.Map); ok {
		isMap = true
	}

	lenSym := g.b.Symbol("len")
	if isMap {
		g.b.Emit(vil.Call{Dst: lenSym, Func: g.extern(rtMapSize), Args: []vil.Expr{iter}})
	} else {
		g.b.Emit(vil.Call{Dst: lenSym, Func: g.extern(rtListLength), Args: []vil.Expr{iter}})
	}

	length = vil.Sym(vil.I64{}, lenSym)

	idx := g.b.Symbol("i")
	g.b.Emit(vil.Alloca{Dst: idx, Type: vil.I64{}, Size: 8})
	g.b.Emit(vil.Store{Addr: idx, Value: vil.Imm(vil.I64{}, 0)})

	cond := g.b.Label("for_cond")
	body := g.b.Label("for")
	end := g.b.Label("for_end")

	g.b.StartBlock(cond)

	cur := g.b.Symbol("i")
	g.b.Emit(vil.Load{Dst: cur, Src: vil.Sym(vil.I64{}, idx)})

	c := g.b.Symbol("t")
	g.b.Emit(vil.Cmp{Dst: c, Cond: vil.Lt, L: vil.Sym(vil.I64{}, cur), R: length})
	g.b.Terminate(vil.JumpCond{Cond: vil.Sym(vil.I64{}, c), True: body, False: end})

	g.b.StartBlock(body)

	g.push()

	cur2 := g.b.Symbol("i")
	g.b.Emit(vil.Load{Dst: cur2, Src: vil.Sym(vil.I64{}, idx)})

	if isMap {
		mt := s.Iterator.Type.(types.Map)

		key := g.b.Symbol(s.Symbol)
		g.b.Emit(vil.Call{Dst: key, Func: g.extern(rtMapKeyAt), Args: []vil.Expr{iter, vil.Sym(vil.I64{}, cur2)}})
		g.bindValue(s.Symbol, vilType(mt.Key), vil.Sym(vilType(mt.Key), key))

		if s.Symbol2 != "" {
			val := g.b.Symbol(s.Symbol2)
			g.b.Emit(vil.Call{Dst: val, Func: g.extern(rtMapValueAt), Args: []vil.Expr{iter, vil.Sym(vil.I64{}, cur2)}})
			g.bindValue(s.Symbol2, vilType(mt.Value), vil.Sym(vilType(mt.Value), val))
		}
	} else {
		lt := s.Iterator.Type.(types.List)

		elem := g.b.Symbol(s.Symbol)
		g.b.Emit(vil.Call{Dst: elem, Func: g.extern(rtListIndex), Args: []vil.Expr{iter, vil.Sym(vil.I64{}, cur2)}})
		g.bindValue(s.Symbol, vilType(lt.Elem), vil.Sym(vilType(lt.Elem), elem))
	}

	g.statements(s.Body)

	g.pop()

	if !g.b.Terminated() {
		next := g.b.Symbol("t")
		cur3 := g.b.Symbol("i")
		g.b.Emit(vil.Load{Dst: cur3, Src: vil.Sym(vil.I64{}, idx)})
		g.b.Emit(vil.Add{Dst: next, L: vil.Sym(vil.I64{}, cur3), R: vil.Imm(vil.I64{}, 1)})
		g.b.Emit(vil.Store{Addr: idx, Value: vil.Sym(vil.I64{}, next)})
		g.b.Terminate(vil.Jump{To: cond})
	}

	g.b.StartBlock(end)
}

func (g *gen) expression(e texpr) vil.Expr {
	switch k := e.Kind.(type) {
	case ast.IntegerLiteral:
		return vil.Imm(vil.I64{}, k.Value)
	case ast.BooleanLiteral:
		v := int64(0)
		if k.Value {
			v = 1
		}

		return vil.Imm(vil.I64{}, v)
	case ast.StringLiteral:
		return g.internString(k.Value)
	case ast.SymbolExpression:
		if c, ok := g.consts[k.Name]; ok {
			if _, local := g.lookup(k.Name); !local {
				return g.expression(c)
			}
		}

		bnd, ok := g.lookup(k.Name)
		if !ok {
			panic(errors.New("internal error: unbound symbol %s", k.Name))
		}

		dst := g.b.Symbol("t")
		g.b.Emit(vil.Load{Dst: dst, Src: vil.Sym(bnd.Type, bnd.Slot)})

		return vil.Sym(bnd.Type, dst)
	case ast.BinaryExpression[types.Type]:
		return g.binary(k)
	case ast.UnaryExpression[types.Type]:
		operand := g.expression(*k.Operand)
		dst := g.b.Symbol("t")

		if k.Op == common.Neg {
			g.b.Emit(vil.Sub{Dst: dst, L: vil.Imm(vil.I64{}, 0), R: operand})
		} else {
			g.b.Emit(vil.Cmp{Dst: dst, Cond: vil.Eq, L: operand, R: vil.Imm(vil.I64{}, 0)})
		}

		return vil.Sym(vil.I64{}, dst)
	case ast.CallExpression[types.Type]:
		args := make([]vil.Expr, len(k.Args))
		for i, a := range k.Args {
			args[i] = g.expression(a)
		}

		name := k.Function
		if rt, ok := builtins[name]; ok {
			name = g.extern(rt)
		}

		if _, void := e.Type.(types.Void); void {
			g.b.Emit(vil.Call{Func: name, Args: args})
			return vil.Imm(vil.I64{}, 0)
		}

		dst := g.b.Symbol("t")
		g.b.Emit(vil.Call{Dst: dst, Func: name, Args: args})

		return vil.Sym(vilType(e.Type), dst)
	case ast.IndexExpression[types.Type]:
		value := g.expression(*k.Value)
		index := g.expression(*k.Index)

		fn := rtListIndex
		if _, ok := k.Value.Type.(types.Map); ok {
			fn = rtMapIndex
		}

		dst := g.b.Symbol("t")
		g.b.Emit(vil.Call{Dst: dst, Func: g.extern(fn), Args: []vil.Expr{value, index}})

		return vil.Sym(vilType(e.Type), dst)
	case ast.TupleIndexExpression[types.Type]:
		value := g.expression(*k.Value)
		return g.loadField(value, k.Index, vilType(e.Type))
	case ast.AttributeExpression[types.Type]:
		value := g.expression(*k.Value)

		rec := k.Value.Type.(types.Record)
		idx := fieldIndex(rec, k.Attribute)

		return g.loadField(value, idx, vilType(e.Type))
	case ast.ListLiteral[types.Type]:
		args := make([]vil.Expr, 0, len(k.Items)+1)
		args = append(args, vil.Imm(vil.I64{}, int64(len(k.Items))))

		for _, it := range k.Items {
			args = append(args, g.expression(it))
		}

		dst := g.b.Symbol("list")
		g.b.Emit(vil.Call{Dst: dst, Func: g.extern(rtListFromVarargs), Args: args})

		return vil.Sym(vilType(e.Type), dst)
	case ast.TupleLiteral[types.Type]:
		items := make([]vil.Expr, len(k.Items))
		for i, it := range k.Items {
			items[i] = g.expression(it)
		}

		return g.heapBlock("tuple", items)
	case ast.MapLiteral[types.Type]:
		dst := g.b.Symbol("map")
		g.b.Emit(vil.Call{Dst: dst, Func: g.extern(rtMapNew), Args: nil})

		m := vil.Sym(vilType(e.Type), dst)

		for _, it := range k.Items {
			key := g.expression(it.Key)
			value := g.expression(it.Value)

			g.b.Emit(vil.Call{Func: g.extern(rtMapInsert), Args: []vil.Expr{m, key, value}})
		}

		return m
	case ast.RecordLiteral[types.Type]:
		rec := e.Type.(types.Record)

		// fields are stored in declaration order whatever the literal
		// order was
		items := make([]vil.Expr, len(rec.Fields))

		for _, it := range k.Items {
			items[fieldIndex(rec, it.Name)] = g.expression(it.Value)
		}

		return g.heapBlock("record", items)
	}

	panic(errors.New("unsupported expression: %T", e.Kind))
}

func (g *gen) binary(k ast.BinaryExpression[types.Type]) vil.Expr {
	if k.Op == common.And || k.Op == common.Or {
		return g.shortCircuit(k)
	}

	left := g.expression(*k.Left)

	_, leftStr := k.Left.Type.(types.String)

	right := g.expression(*k.Right)
	dst := g.b.Symbol("t")

	switch k.Op {
	case common.Add:
		g.b.Emit(vil.Add{Dst: dst, L: left, R: right})
	case common.Sub:
		g.b.Emit(vil.Sub{Dst: dst, L: left, R: right})
	case common.Mul:
		g.b.Emit(vil.Mul{Dst: dst, L: left, R: right})
	case common.Div:
		g.b.Emit(vil.Div{Dst: dst, L: left, R: right})
	case common.Mod:
		g.b.Emit(vil.Mod{Dst: dst, L: left, R: right})
	case common.Concat:
		g.b.Emit(vil.Call{Dst: dst, Func: g.extern(rtStringConcat), Args: []vil.Expr{left, right}})

		return vil.Sym(left.Type, dst)
	case common.Lt, common.Le, common.Gt, common.Ge:
		g.b.Emit(vil.Cmp{Dst: dst, Cond: cmpCond(k.Op), L: left, R: right})
	case common.Eq, common.Ne:
		if leftStr {
			g.b.Emit(vil.Call{Dst: dst, Func: g.extern(rtStringEquals), Args: []vil.Expr{left, right}})

			if k.Op == common.Ne {
				inv := g.b.Symbol("t")
				g.b.Emit(vil.Cmp{Dst: inv, Cond: vil.Eq, L: vil.Sym(vil.I64{}, dst), R: vil.Imm(vil.I64{}, 0)})

				return vil.Sym(vil.I64{}, inv)
			}

			return vil.Sym(vil.I64{}, dst)
		}

		g.b.Emit(vil.Cmp{Dst: dst, Cond: cmpCond(k.Op), L: left, R: right})
	default:
		panic(errors.New("unsupported binary op: %v", k.Op))
	}

	return vil.Sym(vil.I64{}, dst)
}

// shortCircuit lowers and/or to control flow: the right operand only
// runs when the left does not decide the result.
func (g *gen) shortCircuit(k ast.BinaryExpression[types.Type]) vil.Expr {
	hint := "and"
	if k.Op == common.Or {
		hint = "or"
	}

	slot := g.b.Symbol(hint)
	g.b.Emit(vil.Alloca{Dst: slot, Type: vil.I64{}, Size: 8})

	left := g.expression(*k.Left)
	g.b.Emit(vil.Store{Addr: slot, Value: left})

	rhs := g.b.Label(hint + "_rhs")
	join := g.b.Label(hint + "_end")

	if k.Op == common.And {
		g.b.Terminate(vil.JumpCond{Cond: left, True: rhs, False: join})
	} else {
		g.b.Terminate(vil.JumpCond{Cond: left, True: join, False: rhs})
	}

	g.b.StartBlock(rhs)

	right := g.expression(*k.Right)
	g.b.Emit(vil.Store{Addr: slot, Value: right})
	g.b.Terminate(vil.Jump{To: join})

	g.b.StartBlock(join)

	dst := g.b.Symbol("t")
	g.b.Emit(vil.Load{Dst: dst, Src: vil.Sym(vil.I64{}, slot)})

	return vil.Sym(vil.I64{}, dst)
}

// heapBlock allocates a block of 8-byte cells and stores the items into
// it, returning the pointer.
func (g *gen) heapBlock(hint string, items []vil.Expr) vil.Expr {
	dst := g.b.Symbol(hint)
	size := vil.Imm(vil.I64{}, int64(8*len(items)))

	g.b.Emit(vil.Call{Dst: dst, Func: g.extern(rtMalloc), Args: []vil.Expr{size}})

	base := vil.Sym(vil.Pointer{Elem: vil.I64{}}, dst)

	for i, it := range items {
		addr := g.b.Symbol("addr")
		g.b.Emit(vil.Add{Dst: addr, L: base, R: vil.Imm(vil.I64{}, int64(8*i))})
		g.b.Emit(vil.Store{Addr: addr, Value: it})
	}

	return base
}

// loadField reads cell i of a heap block.
func (g *gen) loadField(base vil.Expr, i int, t vil.Type) vil.Expr {
	addr := g.b.Symbol("addr")
	g.b.Emit(vil.Add{Dst: addr, L: base, R: vil.Imm(vil.I64{}, int64(8*i))})

	dst := g.b.Symbol("t")
	g.b.Emit(vil.Load{Dst: dst, Src: vil.Sym(t, addr)})

	return vil.Sym(t, dst)
}

func (g *gen) internString(v string) vil.Expr {
	name, ok := g.strings[v]
	if !ok {
		name = fmt.Sprintf("s_%d", len(g.prog.Strings))
		g.strings[v] = name
		g.prog.Strings = append(g.prog.Strings, vil.StringData{Name: name, Value: v})
	}

	return vil.Sym(vil.Pointer{Elem: vil.I64{}}, vil.Symbol(name))
}

func (g *gen) extern(name string) string {
	if !g.externs[name] {
		g.externs[name] = true
		g.prog.Externs = append(g.prog.Externs, name)
	}

	return name
}

func (g *gen) push() { g.scopes = append(g.scopes, map[string]binding{}) }
func (g *gen) pop()  { g.scopes = g.scopes[:len(g.scopes)-1] }

func (g *gen) bind(name string, b binding) {
	g.scopes[len(g.scopes)-1][name] = b
}

// bindValue allocates a slot for name and stores value into it.
func (g *gen) bindValue(name string, t vil.Type, value vil.Expr) {
	slot := g.b.Symbol(name)

	g.b.Emit(vil.Alloca{Dst: slot, Type: t, Size: 8})
	g.b.Emit(vil.Store{Addr: slot, Value: value})

	g.bind(name, binding{Slot: slot, Type: t})
}

func (g *gen) lookup(name string) (binding, bool) {
	for i := len(g.scopes) - 1; i >= 0; i-- {
		if b, ok := g.scopes[i][name]; ok {
			return b, true
		}
	}

	return binding{}, false
}

func vilType(t types.Type) vil.Type {
	switch t.(type) {
	case types.I64, types.Boolean, types.Void, types.Error:
		return vil.I64{}
	default:
		return vil.Pointer{Elem: vil.I64{}}
	}
}

func cmpCond(op common.BinaryOp) vil.Cond {
	switch op {
	case common.Lt:
		return vil.Lt
	case common.Le:
		return vil.Le
	case common.Gt:
		return vil.Gt
	case common.Ge:
		return vil.Ge
	case common.Eq:
		return vil.Eq
	case common.Ne:
		return vil.Ne
	}

	panic(errors.New("not a comparison: %v", op))
}

func fieldIndex(rec types.Record, name string) int {
	for i, f := range rec.Fields {
		if f.Name == name {
			return i
		}
	}

	panic(errors.New("internal error: no field %s in record %s", name, rec.Name))
}

func assertMessage(loc common.Location) string {
	return fmt.Sprintf("assertion failed at %s", loc)
}
