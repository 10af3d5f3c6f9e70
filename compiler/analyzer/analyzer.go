// Package analyzer resolves names and types, turning the untyped tree
// into the typed one.
package analyzer

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/venice-lang/venice/compiler/ast"
	"github.com/venice-lang/venice/compiler/common"
	"github.com/venice-lang/venice/compiler/types"
)

type (
	analyzer struct {
		typeNames map[string]types.Type
		values    *scopes
		errs      common.Errors

		// ret is the declared return type of the function being
		// analyzed.
		ret types.Type
	}

	uexpr = ast.Expression[ast.Untyped]
	texpr = ast.Expression[types.Type]
	ustmt = ast.Statement[ast.Untyped]
	tstmt = ast.Statement[types.Type]
)

// Analyze type-checks the program. The returned tree has every
// expression, parameter and const annotated with its resolved type.
func Analyze(ctx context.Context, prog *ast.Program[ast.Untyped]) (_ *ast.Program[types.Type], err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "analyze")
	defer tr.Finish("err", &err)

	a := &analyzer{
		typeNames: map[string]types.Type{
			"i64":    types.I64{},
			"bool":   types.Boolean{},
			"string": types.String{},
			"void":   types.Void{},
		},
		values: newScopes(),
	}

	a.values.define("print", entry{
		Type:  types.Function{Params: []types.Type{types.String{}}, Return: types.Void{}},
		Const: true,
	})
	a.values.define("print_int", entry{
		Type:  types.Function{Params: []types.Type{types.I64{}}, Return: types.Void{}},
		Const: true,
	})

	typed := a.program(prog)

	if err := a.errs.Err(); err != nil {
		return nil, err
	}

	tr.Printw("analyzed", "decls", len(typed.Declarations))

	return typed, nil
}

// program runs the declaration passes: record names first, then record
// fields, then function signatures, then consts, then function bodies.
// Later passes may refer to anything registered by earlier ones, so
// calls and record references resolve forward.
func (a *analyzer) program(prog *ast.Program[ast.Untyped]) *ast.Program[types.Type] {
	out := make([]ast.Declaration[types.Type], len(prog.Declarations))

	for _, d := range prog.Declarations {
		r, ok := d.(*ast.RecordDeclaration[ast.Untyped])
		if !ok {
			continue
		}

		if _, dup := a.typeNames[r.Name]; dup {
			a.errorf(r.Loc, "duplicate type %s", r.Name)
			continue
		}

		a.typeNames[r.Name] = types.Record{Name: r.Name}
	}

	for i, d := range prog.Declarations {
		r, ok := d.(*ast.RecordDeclaration[ast.Untyped])
		if !ok {
			continue
		}

		rec := types.Record{Name: r.Name}

		for _, f := range r.Fields {
			rec.Fields = append(rec.Fields, types.Field{Name: f.Name, Type: a.resolveType(f.Type)})
		}

		a.typeNames[r.Name] = rec

		out[i] = &ast.RecordDeclaration[types.Type]{Name: r.Name, Fields: r.Fields, Loc: r.Loc}
	}

	for _, d := range prog.Declarations {
		f, ok := d.(*ast.FunctionDeclaration[ast.Untyped])
		if !ok {
			continue
		}

		sig := types.Function{Return: a.resolveType(f.Return)}

		for _, p := range f.Params {
			sig.Params = append(sig.Params, a.resolveType(p.Type))
		}

		if !a.values.define(f.Name, entry{Type: sig, Const: true}) {
			a.errorf(f.Loc, "duplicate symbol %s", f.Name)
		}
	}

	for i, d := range prog.Declarations {
		c, ok := d.(*ast.ConstDeclaration[ast.Untyped])
		if !ok {
			continue
		}

		declared := a.resolveType(c.Type)
		value := a.expression(c.Value)

		a.assertType(value.Type, declared, c.Loc)

		if !a.values.define(c.Symbol, entry{Type: declared, Const: true}) {
			a.errorf(c.Loc, "duplicate symbol %s", c.Symbol)
		}

		out[i] = &ast.ConstDeclaration[types.Type]{
			Symbol:   c.Symbol,
			Type:     c.Type,
			Value:    value,
			Resolved: declared,
			Loc:      c.Loc,
		}
	}

	for i, d := range prog.Declarations {
		f, ok := d.(*ast.FunctionDeclaration[ast.Untyped])
		if !ok {
			continue
		}

		out[i] = a.function(f)
	}

	return &ast.Program[types.Type]{Declarations: out}
}

func (a *analyzer) function(f *ast.FunctionDeclaration[ast.Untyped]) *ast.FunctionDeclaration[types.Type] {
	sig := types.Function{Return: a.resolveType(f.Return)}

	typed := &ast.FunctionDeclaration[types.Type]{
		Name:   f.Name,
		Return: f.Return,
		Loc:    f.Loc,
	}

	a.values.push()
	defer a.values.pop()

	for _, p := range f.Params {
		t := a.resolveType(p.Type)
		sig.Params = append(sig.Params, t)

		if !a.values.define(p.Name, entry{Type: t}) {
			a.errorf(f.Loc, "duplicate symbol %s", p.Name)
		}

		typed.Params = append(typed.Params, ast.Param[types.Type]{Name: p.Name, Type: p.Type, Resolved: t})
	}

	typed.Type = sig

	prev := a.ret
	a.ret = sig.Return
	defer func() { a.ret = prev }()

	typed.Body = a.statements(f.Body)

	return typed
}

// statements analyzes a body in the current scope. Callers that need a
// fresh frame push one first.
func (a *analyzer) statements(body []ustmt) []tstmt {
	out := make([]tstmt, 0, len(body))

	for _, s := range body {
		out = append(out, a.statement(s))
	}

	return out
}

func (a *analyzer) block(body []ustmt) []tstmt {
	a.values.push()
	defer a.values.pop()

	return a.statements(body)
}

func (a *analyzer) statement(s ustmt) tstmt {
	switch s := s.(type) {
	case *ast.LetStatement[ast.Untyped]:
		declared := a.resolveType(s.Type)
		value := a.expression(s.Value)

		a.assertType(value.Type, declared, s.Loc)

		if !a.values.define(s.Symbol, entry{Type: declared}) {
			a.errorf(s.Loc, "duplicate symbol %s", s.Symbol)
		}

		return &ast.LetStatement[types.Type]{
			Symbol:   s.Symbol,
			Type:     s.Type,
			Value:    value,
			Resolved: declared,
			Loc:      s.Loc,
		}
	case *ast.AssignStatement[ast.Untyped]:
		value := a.expression(s.Value)

		e, ok := a.values.lookup(s.Symbol)
		switch {
		case !ok:
			a.errorf(s.Loc, "assignment to unknown symbol %s", s.Symbol)
		case e.Const:
			a.errorf(s.Loc, "cannot assign to constant %s", s.Symbol)
		default:
			a.assertType(value.Type, e.Type, s.Loc)
		}

		return &ast.AssignStatement[types.Type]{Symbol: s.Symbol, Value: value, Loc: s.Loc}
	case *ast.IfStatement[ast.Untyped]:
		typed := &ast.IfStatement[types.Type]{Loc: s.Loc}

		for _, c := range s.Clauses {
			cond := a.expression(c.Cond)
			a.assertType(cond.Type, types.Boolean{}, c.Cond.Loc)

			typed.Clauses = append(typed.Clauses, ast.IfClause[types.Type]{
				Cond: cond,
				Body: a.block(c.Body),
			})
		}

		if s.Else != nil {
			typed.Else = a.block(s.Else)
		}

		return typed
	case *ast.WhileStatement[ast.Untyped]:
		cond := a.expression(s.Cond)
		a.assertType(cond.Type, types.Boolean{}, s.Cond.Loc)

		return &ast.WhileStatement[types.Type]{Cond: cond, Body: a.block(s.Body), Loc: s.Loc}
	case *ast.ForStatement[ast.Untyped]:
		return a.forStatement(s)
	case *ast.ReturnStatement[ast.Untyped]:
		value := a.expression(s.Value)

		if a.ret != nil {
			a.assertType(value.Type, a.ret, s.Loc)
		}

		return &ast.ReturnStatement[types.Type]{Value: value, Loc: s.Loc}
	case *ast.AssertStatement[ast.Untyped]:
		cond := a.expression(s.Cond)
		a.assertType(cond.Type, types.Boolean{}, s.Cond.Loc)

		return &ast.AssertStatement[types.Type]{Cond: cond, Loc: s.Loc}
	case *ast.ExpressionStatement[ast.Untyped]:
		return &ast.ExpressionStatement[types.Type]{Expr: a.expression(s.Expr)}
	}

	panic(errors.New("unsupported statement: %T", s))
}

func (a *analyzer) forStatement(s *ast.ForStatement[ast.Untyped]) tstmt {
	iter := a.expression(s.Iterator)

	a.values.push()
	defer a.values.pop()

	switch t := iter.Type.(type) {
	case types.List:
		if s.Symbol2 != "" {
			a.errorf(s.Loc, "expected map, got %s", t)
		}

		a.values.define(s.Symbol, entry{Type: t.Elem})
	case types.Map:
		a.values.define(s.Symbol, entry{Type: t.Key})

		if s.Symbol2 != "" {
			a.values.define(s.Symbol2, entry{Type: t.Value})
		}
	case types.Error:
		a.values.define(s.Symbol, entry{Type: types.Error{}})

		if s.Symbol2 != "" {
			a.values.define(s.Symbol2, entry{Type: types.Error{}})
		}
	default:
		a.errorf(s.Iterator.Loc, "cannot iterate over type %s", iter.Type)
		a.values.define(s.Symbol, entry{Type: types.Error{}})

		if s.Symbol2 != "" {
			a.values.define(s.Symbol2, entry{Type: types.Error{}})
		}
	}

	return &ast.ForStatement[types.Type]{
		Symbol:   s.Symbol,
		Symbol2:  s.Symbol2,
		Iterator: iter,
		Body:     a.statements(s.Body),
		Loc:      s.Loc,
	}
}

func (a *analyzer) expression(e uexpr) texpr {
	switch k := e.Kind.(type) {
	case ast.BooleanLiteral:
		return texpr{Kind: k, Type: types.Boolean{}, Loc: e.Loc}
	case ast.IntegerLiteral:
		return texpr{Kind: k, Type: types.I64{}, Loc: e.Loc}
	case ast.StringLiteral:
		return texpr{Kind: k, Type: types.String{}, Loc: e.Loc}
	case ast.SymbolExpression:
		ent, ok := a.values.lookup(k.Name)
		if !ok {
			a.errorf(e.Loc, "undefined symbol: %s", k.Name)
			return a.errExpr(e.Loc)
		}

		return texpr{Kind: k, Type: ent.Type, Loc: e.Loc}
	case ast.BinaryExpression[ast.Untyped]:
		return a.binary(e, k)
	case ast.UnaryExpression[ast.Untyped]:
		operand := a.expression(*k.Operand)

		var want, result types.Type

		if k.Op == common.Neg {
			want, result = types.I64{}, types.I64{}
		} else {
			want, result = types.Boolean{}, types.Boolean{}
		}

		a.assertType(operand.Type, want, k.Operand.Loc)

		return texpr{
			Kind: ast.UnaryExpression[types.Type]{Op: k.Op, Operand: &operand},
			Type: result,
			Loc:  e.Loc,
		}
	case ast.CallExpression[ast.Untyped]:
		return a.call(e, k)
	case ast.IndexExpression[ast.Untyped]:
		return a.index(e, k)
	case ast.TupleIndexExpression[ast.Untyped]:
		return a.tupleIndex(e, k)
	case ast.AttributeExpression[ast.Untyped]:
		return a.attribute(e, k)
	case ast.ListLiteral[ast.Untyped]:
		if len(k.Items) == 0 {
			a.errorf(e.Loc, "cannot infer the type of an empty literal")
			return a.errExpr(e.Loc)
		}

		items := make([]texpr, 0, len(k.Items))

		for _, it := range k.Items {
			items = append(items, a.expression(it))
		}

		for _, it := range items[1:] {
			a.assertType(it.Type, items[0].Type, it.Loc)
		}

		return texpr{
			Kind: ast.ListLiteral[types.Type]{Items: items},
			Type: types.List{Elem: items[0].Type},
			Loc:  e.Loc,
		}
	case ast.TupleLiteral[ast.Untyped]:
		items := make([]texpr, 0, len(k.Items))
		elems := make([]types.Type, 0, len(k.Items))

		for _, it := range k.Items {
			t := a.expression(it)
			items = append(items, t)
			elems = append(elems, t.Type)
		}

		return texpr{
			Kind: ast.TupleLiteral[types.Type]{Items: items},
			Type: types.Tuple{Elems: elems},
			Loc:  e.Loc,
		}
	case ast.MapLiteral[ast.Untyped]:
		if len(k.Items) == 0 {
			a.errorf(e.Loc, "cannot infer the type of an empty literal")
			return a.errExpr(e.Loc)
		}

		items := make([]ast.MapEntry[types.Type], 0, len(k.Items))

		for _, it := range k.Items {
			items = append(items, ast.MapEntry[types.Type]{
				Key:   a.expression(it.Key),
				Value: a.expression(it.Value),
			})
		}

		for _, it := range items[1:] {
			a.assertType(it.Key.Type, items[0].Key.Type, it.Key.Loc)
			a.assertType(it.Value.Type, items[0].Value.Type, it.Value.Loc)
		}

		return texpr{
			Kind: ast.MapLiteral[types.Type]{Items: items},
			Type: types.Map{Key: items[0].Key.Type, Value: items[0].Value.Type},
			Loc:  e.Loc,
		}
	case ast.RecordLiteral[ast.Untyped]:
		return a.recordLiteral(e, k)
	}

	panic(errors.New("unsupported expression: %T", e.Kind))
}

func (a *analyzer) binary(e uexpr, k ast.BinaryExpression[ast.Untyped]) texpr {
	left := a.expression(*k.Left)
	right := a.expression(*k.Right)

	var result types.Type

	switch k.Op {
	case common.Add, common.Sub, common.Mul, common.Div, common.Mod:
		a.assertType(left.Type, types.I64{}, k.Left.Loc)
		a.assertType(right.Type, types.I64{}, k.Right.Loc)

		result = types.I64{}
	case common.Concat:
		a.assertType(left.Type, types.String{}, k.Left.Loc)
		a.assertType(right.Type, types.String{}, k.Right.Loc)

		result = types.String{}
	case common.And, common.Or:
		a.assertType(left.Type, types.Boolean{}, k.Left.Loc)
		a.assertType(right.Type, types.Boolean{}, k.Right.Loc)

		result = types.Boolean{}
	case common.Lt, common.Le, common.Gt, common.Ge:
		a.assertType(left.Type, types.I64{}, k.Left.Loc)
		a.assertType(right.Type, types.I64{}, k.Right.Loc)

		result = types.Boolean{}
	case common.Eq, common.Ne:
		a.assertType(right.Type, left.Type, k.Left.Loc)

		result = types.Boolean{}
	default:
		panic(errors.New("unsupported binary op: %v", k.Op))
	}

	return texpr{
		Kind: ast.BinaryExpression[types.Type]{Op: k.Op, Left: &left, Right: &right},
		Type: result,
		Loc:  e.Loc,
	}
}

func (a *analyzer) call(e uexpr, k ast.CallExpression[ast.Untyped]) texpr {
	ent, ok := a.values.lookup(k.Function)
	if !ok {
		a.errorf(e.Loc, "undefined symbol: %s", k.Function)
		return a.errExpr(e.Loc)
	}

	sig, ok := ent.Type.(types.Function)
	if !ok {
		if _, isErr := ent.Type.(types.Error); isErr {
			return a.errExpr(e.Loc)
		}

		a.errorf(e.Loc, "cannot call non-function type %s", ent.Type)

		return a.errExpr(e.Loc)
	}

	if len(sig.Params) != len(k.Args) {
		a.errorf(e.Loc, "expected %d parameter(s), got %d", len(sig.Params), len(k.Args))
	}

	args := make([]texpr, 0, len(k.Args))

	for i, arg := range k.Args {
		t := a.expression(arg)

		if i < len(sig.Params) {
			a.assertType(t.Type, sig.Params[i], arg.Loc)
		}

		args = append(args, t)
	}

	return texpr{
		Kind: ast.CallExpression[types.Type]{Function: k.Function, Args: args},
		Type: sig.Return,
		Loc:  e.Loc,
	}
}

func (a *analyzer) index(e uexpr, k ast.IndexExpression[ast.Untyped]) texpr {
	value := a.expression(*k.Value)
	index := a.expression(*k.Index)

	var result types.Type

	switch t := value.Type.(type) {
	case types.List:
		a.assertType(index.Type, types.I64{}, k.Index.Loc)
		result = t.Elem
	case types.Map:
		a.assertType(index.Type, t.Key, k.Index.Loc)
		result = t.Value
	case types.Error:
		result = types.Error{}
	default:
		a.errorf(k.Value.Loc, "cannot index non-list, non-map type %s", value.Type)
		result = types.Error{}
	}

	return texpr{
		Kind: ast.IndexExpression[types.Type]{Value: &value, Index: &index},
		Type: result,
		Loc:  e.Loc,
	}
}

func (a *analyzer) tupleIndex(e uexpr, k ast.TupleIndexExpression[ast.Untyped]) texpr {
	value := a.expression(*k.Value)

	var result types.Type

	switch t := value.Type.(type) {
	case types.Tuple:
		if k.Index < 0 || k.Index >= len(t.Elems) {
			a.errorf(e.Loc, "tuple index out of range")
			result = types.Error{}
		} else {
			result = t.Elems[k.Index]
		}
	case types.Error:
		result = types.Error{}
	default:
		a.errorf(e.Loc, "cannot index non-tuple type %s", value.Type)
		result = types.Error{}
	}

	return texpr{
		Kind: ast.TupleIndexExpression[types.Type]{Value: &value, Index: k.Index},
		Type: result,
		Loc:  e.Loc,
	}
}

func (a *analyzer) attribute(e uexpr, k ast.AttributeExpression[ast.Untyped]) texpr {
	value := a.expression(*k.Value)

	var result types.Type

	switch t := value.Type.(type) {
	case types.Record:
		result = t.Field(k.Attribute)
		if result == nil {
			a.errorf(e.Loc, "no field %s in record %s", k.Attribute, t.Name)
			result = types.Error{}
		}
	case types.Error:
		result = types.Error{}
	default:
		a.errorf(e.Loc, "cannot access attribute of non-record type %s", value.Type)
		result = types.Error{}
	}

	return texpr{
		Kind: ast.AttributeExpression[types.Type]{Value: &value, Attribute: k.Attribute},
		Type: result,
		Loc:  e.Loc,
	}
}

func (a *analyzer) recordLiteral(e uexpr, k ast.RecordLiteral[ast.Untyped]) texpr {
	t, ok := a.typeNames[k.Name]
	rec, isRec := t.(types.Record)

	if !ok || !isRec {
		a.errorf(e.Loc, "unknown record %s", k.Name)
		return a.errExpr(e.Loc)
	}

	items := make([]ast.FieldInit[types.Type], 0, len(k.Items))
	seen := map[string]bool{}

	for _, it := range k.Items {
		value := a.expression(it.Value)

		if seen[it.Name] {
			a.errorf(it.Value.Loc, "duplicate field %s in record %s", it.Name, rec.Name)
			continue
		}

		ft := rec.Field(it.Name)
		if ft == nil {
			a.errorf(it.Value.Loc, "no field %s in record %s", it.Name, rec.Name)
		} else {
			a.assertType(value.Type, ft, it.Value.Loc)
		}

		seen[it.Name] = true
		items = append(items, ast.FieldInit[types.Type]{Name: it.Name, Value: value})
	}

	for _, f := range rec.Fields {
		if !seen[f.Name] {
			a.errorf(e.Loc, "missing field %s in record %s", f.Name, rec.Name)
		}
	}

	return texpr{
		Kind: ast.RecordLiteral[types.Type]{Name: k.Name, Items: items},
		Type: rec,
		Loc:  e.Loc,
	}
}

// resolveType maps a syntactic type to a resolved one, reporting an
// unknown type diagnostic on failure.
func (a *analyzer) resolveType(st ast.SyntacticType) types.Type {
	if len(st.Parameters) == 0 {
		if t, ok := a.typeNames[st.Name]; ok {
			return t
		}

		a.errorf(st.Loc, "unknown type %s", st.Name)

		return types.Error{}
	}

	switch st.Name {
	case "list":
		if len(st.Parameters) == 1 {
			return types.List{Elem: a.resolveType(st.Parameters[0])}
		}
	case "map":
		if len(st.Parameters) == 2 {
			return types.Map{
				Key:   a.resolveType(st.Parameters[0]),
				Value: a.resolveType(st.Parameters[1]),
			}
		}
	case "tuple":
		elems := make([]types.Type, 0, len(st.Parameters))

		for _, p := range st.Parameters {
			elems = append(elems, a.resolveType(p))
		}

		return types.Tuple{Elems: elems}
	}

	a.errorf(st.Loc, "unknown type %s", st.Name)

	return types.Error{}
}

func (a *analyzer) assertType(actual, expected types.Type, loc common.Location) {
	if !actual.Matches(expected) {
		a.errorf(loc, "expected %s, got %s", expected, actual)
	}
}

func (a *analyzer) errExpr(loc common.Location) texpr {
	return texpr{Kind: ast.BooleanLiteral{}, Type: types.Error{}, Loc: loc}
}

func (a *analyzer) errorf(loc common.Location, format string, args ...any) {
	a.errs = append(a.errs, common.Error{
		Message: errors.New(format, args...).Error(),
		Loc:     loc,
	})
}
