// Package parser builds the untyped syntax tree from the token stream.
package parser

import (
	"context"
	"strconv"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/venice-lang/venice/compiler/ast"
	"github.com/venice-lang/venice/compiler/common"
	"github.com/venice-lang/venice/compiler/lexer"
)

type (
	parser struct {
		l    *lexer.Lexer
		errs common.Errors

		depth int // open braces
	}

	expr = ast.Expression[ast.Untyped]
	stmt = ast.Statement[ast.Untyped]
)

// errSyntax aborts the enclosing production after a diagnostic has been
// recorded; it never escapes Parse.
var errSyntax = errors.New("syntax error")

// Parse consumes the lexer and returns the program, or the accumulated
// diagnostics as a common.Errors. The tree is returned only when the
// diagnostic list is empty.
func Parse(ctx context.Context, l *lexer.Lexer) (_ *ast.Program[ast.Untyped], err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "parse")
	defer tr.Finish("err", &err)

	p := &parser{l: l}

	prog := p.parse(ctx)

	p.errs = append(p.errs, l.Errors()...)

	if err := p.errs.Err(); err != nil {
		return nil, err
	}

	tr.Printw("parsed", "decls", len(prog.Declarations))

	return prog, nil
}

func (p *parser) parse(ctx context.Context) *ast.Program[ast.Untyped] {
	prog := &ast.Program[ast.Untyped]{}

	for !p.l.Done() {
		tok := p.l.Current()

		var d ast.Declaration[ast.Untyped]
		var err error

		switch tok.Kind {
		case lexer.KwFunc:
			d, err = p.function()
		case lexer.KwConst:
			d, err = p.constDecl()
		case lexer.KwRecord:
			d, err = p.record()
		default:
			p.errorf(tok.Loc, "expected const, func, or record declaration, got %s", describe(tok))
			p.l.Advance()

			continue
		}

		if err != nil {
			p.sync()

			continue
		}

		prog.Declarations = append(prog.Declarations, d)
	}

	return prog
}

func (p *parser) function() (*ast.FunctionDeclaration[ast.Untyped], error) {
	loc := p.l.Current().Loc

	if err := p.expect(lexer.KwFunc, "func keyword"); err != nil {
		return nil, err
	}

	name := p.l.Current()
	if err := p.expect(lexer.Symbol, "function name"); err != nil {
		return nil, err
	}

	if err := p.expect(lexer.LeftParen, "("); err != nil {
		return nil, err
	}

	var params []ast.Param[ast.Untyped]

	for p.l.Current().Kind != lexer.RightParen {
		pname := p.l.Current()
		if err := p.expect(lexer.Symbol, "parameter name"); err != nil {
			return nil, err
		}

		if err := p.expect(lexer.Colon, ":"); err != nil {
			return nil, err
		}

		ptype, err := p.syntacticType()
		if err != nil {
			return nil, err
		}

		params = append(params, ast.Param[ast.Untyped]{Name: pname.Lexeme, Type: ptype})

		if p.l.Current().Kind == lexer.Comma {
			p.l.Advance()
		} else if p.l.Current().Kind != lexer.RightParen {
			return nil, p.unexpected("comma or )")
		}
	}

	p.l.Advance() // )

	if err := p.expect(lexer.Arrow, "->"); err != nil {
		return nil, err
	}

	ret, err := p.syntacticType()
	if err != nil {
		return nil, err
	}

	body, err := p.block()
	if err != nil {
		return nil, err
	}

	return &ast.FunctionDeclaration[ast.Untyped]{
		Name:   name.Lexeme,
		Params: params,
		Return: ret,
		Body:   body,
		Loc:    loc,
	}, nil
}

func (p *parser) constDecl() (*ast.ConstDeclaration[ast.Untyped], error) {
	loc := p.l.Current().Loc

	if err := p.expect(lexer.KwConst, "const keyword"); err != nil {
		return nil, err
	}

	name := p.l.Current()
	if err := p.expect(lexer.Symbol, "const name"); err != nil {
		return nil, err
	}

	if err := p.expect(lexer.Colon, ":"); err != nil {
		return nil, err
	}

	typ, err := p.syntacticType()
	if err != nil {
		return nil, err
	}

	if err := p.expect(lexer.Assign, "="); err != nil {
		return nil, err
	}

	value, err := p.expression()
	if err != nil {
		return nil, err
	}

	if err := p.expect(lexer.Semicolon, ";"); err != nil {
		return nil, err
	}

	return &ast.ConstDeclaration[ast.Untyped]{
		Symbol: name.Lexeme,
		Type:   typ,
		Value:  value,
		Loc:    loc,
	}, nil
}

func (p *parser) record() (*ast.RecordDeclaration[ast.Untyped], error) {
	loc := p.l.Current().Loc

	if err := p.expect(lexer.KwRecord, "record keyword"); err != nil {
		return nil, err
	}

	name := p.l.Current()
	if err := p.expect(lexer.Symbol, "record name"); err != nil {
		return nil, err
	}

	if err := p.expect(lexer.LeftBrace, "{"); err != nil {
		return nil, err
	}

	p.depth++
	defer func() { p.depth-- }()

	var fields []ast.RecordField

	for p.l.Current().Kind != lexer.RightBrace {
		fname := p.l.Current()
		if err := p.expect(lexer.Symbol, "field name"); err != nil {
			return nil, err
		}

		if err := p.expect(lexer.Colon, ":"); err != nil {
			return nil, err
		}

		ftype, err := p.syntacticType()
		if err != nil {
			return nil, err
		}

		fields = append(fields, ast.RecordField{Name: fname.Lexeme, Type: ftype})

		if p.l.Current().Kind == lexer.Comma {
			p.l.Advance()
		} else if p.l.Current().Kind != lexer.RightBrace {
			return nil, p.unexpected("comma or }")
		}
	}

	p.l.Advance() // }

	return &ast.RecordDeclaration[ast.Untyped]{Name: name.Lexeme, Fields: fields, Loc: loc}, nil
}

func (p *parser) block() ([]stmt, error) {
	if err := p.expect(lexer.LeftBrace, "{"); err != nil {
		return nil, err
	}

	p.depth++
	defer func() { p.depth-- }()

	var stmts []stmt

	for {
		tok := p.l.Current()

		if tok.Kind == lexer.RightBrace {
			p.l.Advance()
			break
		}

		if tok.Kind == lexer.EOF {
			return nil, p.unexpected("statement or end of block")
		}

		s, err := p.statement()
		if err != nil {
			p.sync()
			continue
		}

		stmts = append(stmts, s)
	}

	return stmts, nil
}

func (p *parser) statement() (stmt, error) {
	tok := p.l.Current()

	switch tok.Kind {
	case lexer.KwAssert:
		return p.assertStatement()
	case lexer.KwFor:
		return p.forStatement()
	case lexer.KwIf:
		return p.ifStatement()
	case lexer.KwLet:
		return p.letStatement()
	case lexer.KwReturn:
		return p.returnStatement()
	case lexer.KwWhile:
		return p.whileStatement()
	}

	e, err := p.expression()
	if err != nil {
		return nil, err
	}

	switch p.l.Current().Kind {
	case lexer.Assign:
		return p.assignStatement(e)
	case lexer.Semicolon:
		p.l.Advance()
		return &ast.ExpressionStatement[ast.Untyped]{Expr: e}, nil
	}

	return nil, p.unexpected("start of statement")
}

func (p *parser) letStatement() (stmt, error) {
	loc := p.l.Current().Loc

	p.l.Advance() // let

	name := p.l.Current()
	if err := p.expect(lexer.Symbol, "symbol"); err != nil {
		return nil, err
	}

	if err := p.expect(lexer.Colon, ":"); err != nil {
		return nil, err
	}

	typ, err := p.syntacticType()
	if err != nil {
		return nil, err
	}

	if err := p.expect(lexer.Assign, "="); err != nil {
		return nil, err
	}

	value, err := p.expression()
	if err != nil {
		return nil, err
	}

	if err := p.expect(lexer.Semicolon, ";"); err != nil {
		return nil, err
	}

	return &ast.LetStatement[ast.Untyped]{Symbol: name.Lexeme, Type: typ, Value: value, Loc: loc}, nil
}

func (p *parser) assignStatement(lhs expr) (stmt, error) {
	sym, ok := lhs.Kind.(ast.SymbolExpression)
	if !ok {
		p.errorf(lhs.Loc, "can only assign to symbols")
		return nil, errSyntax
	}

	p.l.Advance() // =

	value, err := p.expression()
	if err != nil {
		return nil, err
	}

	if err := p.expect(lexer.Semicolon, ";"); err != nil {
		return nil, err
	}

	return &ast.AssignStatement[ast.Untyped]{Symbol: sym.Name, Value: value, Loc: lhs.Loc}, nil
}

func (p *parser) ifStatement() (stmt, error) {
	loc := p.l.Current().Loc

	p.l.Advance() // if

	cond, err := p.expression()
	if err != nil {
		return nil, err
	}

	body, err := p.block()
	if err != nil {
		return nil, err
	}

	s := &ast.IfStatement[ast.Untyped]{
		Clauses: []ast.IfClause[ast.Untyped]{{Cond: cond, Body: body}},
		Loc:     loc,
	}

	for p.l.Current().Kind == lexer.KwElse {
		p.l.Advance()

		// else-if chains flatten into the clause list
		if p.l.Current().Kind == lexer.KwIf {
			p.l.Advance()

			cond, err := p.expression()
			if err != nil {
				return nil, err
			}

			body, err := p.block()
			if err != nil {
				return nil, err
			}

			s.Clauses = append(s.Clauses, ast.IfClause[ast.Untyped]{Cond: cond, Body: body})

			continue
		}

		s.Else, err = p.block()
		if err != nil {
			return nil, err
		}

		break
	}

	return s, nil
}

func (p *parser) whileStatement() (stmt, error) {
	loc := p.l.Current().Loc

	p.l.Advance() // while

	cond, err := p.expression()
	if err != nil {
		return nil, err
	}

	body, err := p.block()
	if err != nil {
		return nil, err
	}

	return &ast.WhileStatement[ast.Untyped]{Cond: cond, Body: body, Loc: loc}, nil
}

func (p *parser) forStatement() (stmt, error) {
	loc := p.l.Current().Loc

	p.l.Advance() // for

	name := p.l.Current()
	if err := p.expect(lexer.Symbol, "loop variable"); err != nil {
		return nil, err
	}

	var name2 string

	if p.l.Current().Kind == lexer.Comma {
		p.l.Advance()

		tok := p.l.Current()
		if err := p.expect(lexer.Symbol, "loop variable"); err != nil {
			return nil, err
		}

		name2 = tok.Lexeme
	}

	if err := p.expect(lexer.KwIn, "in"); err != nil {
		return nil, err
	}

	iter, err := p.expression()
	if err != nil {
		return nil, err
	}

	body, err := p.block()
	if err != nil {
		return nil, err
	}

	return &ast.ForStatement[ast.Untyped]{
		Symbol:   name.Lexeme,
		Symbol2:  name2,
		Iterator: iter,
		Body:     body,
		Loc:      loc,
	}, nil
}

func (p *parser) returnStatement() (stmt, error) {
	loc := p.l.Current().Loc

	p.l.Advance() // return

	value, err := p.expression()
	if err != nil {
		return nil, err
	}

	if err := p.expect(lexer.Semicolon, ";"); err != nil {
		return nil, err
	}

	return &ast.ReturnStatement[ast.Untyped]{Value: value, Loc: loc}, nil
}

func (p *parser) assertStatement() (stmt, error) {
	loc := p.l.Current().Loc

	p.l.Advance() // assert

	cond, err := p.expression()
	if err != nil {
		return nil, err
	}

	if err := p.expect(lexer.Semicolon, ";"); err != nil {
		return nil, err
	}

	return &ast.AssertStatement[ast.Untyped]{Cond: cond, Loc: loc}, nil
}

// expression parses with conventional precedence:
// or < and < comparison < addition < multiplication < unary < postfix.

func (p *parser) expression() (expr, error) {
	return p.orExpr()
}

func (p *parser) orExpr() (expr, error) {
	e, err := p.andExpr()
	if err != nil {
		return e, err
	}

	for p.l.Current().Kind == lexer.KwOr {
		loc := p.l.Current().Loc
		p.l.Advance()

		r, err := p.andExpr()
		if err != nil {
			return e, err
		}

		e = binary(common.Or, e, r, loc)
	}

	return e, nil
}

func (p *parser) andExpr() (expr, error) {
	e, err := p.cmpExpr()
	if err != nil {
		return e, err
	}

	for p.l.Current().Kind == lexer.KwAnd {
		loc := p.l.Current().Loc
		p.l.Advance()

		r, err := p.cmpExpr()
		if err != nil {
			return e, err
		}

		e = binary(common.And, e, r, loc)
	}

	return e, nil
}

var cmpOps = map[lexer.Kind]common.BinaryOp{
	lexer.Less:      common.Lt,
	lexer.LessEq:    common.Le,
	lexer.Greater:   common.Gt,
	lexer.GreaterEq: common.Ge,
	lexer.Equals:    common.Eq,
	lexer.NotEquals: common.Ne,
}

func (p *parser) cmpExpr() (expr, error) {
	e, err := p.addExpr()
	if err != nil {
		return e, err
	}

	for {
		op, ok := cmpOps[p.l.Current().Kind]
		if !ok {
			return e, nil
		}

		loc := p.l.Current().Loc
		p.l.Advance()

		r, err := p.addExpr()
		if err != nil {
			return e, err
		}

		e = binary(op, e, r, loc)
	}
}

var addOps = map[lexer.Kind]common.BinaryOp{
	lexer.Plus:   common.Add,
	lexer.Minus:  common.Sub,
	lexer.Concat: common.Concat,
}

func (p *parser) addExpr() (expr, error) {
	e, err := p.mulExpr()
	if err != nil {
		return e, err
	}

	for {
		op, ok := addOps[p.l.Current().Kind]
		if !ok {
			return e, nil
		}

		loc := p.l.Current().Loc
		p.l.Advance()

		r, err := p.mulExpr()
		if err != nil {
			return e, err
		}

		e = binary(op, e, r, loc)
	}
}

var mulOps = map[lexer.Kind]common.BinaryOp{
	lexer.Star:    common.Mul,
	lexer.Slash:   common.Div,
	lexer.Percent: common.Mod,
}

func (p *parser) mulExpr() (expr, error) {
	e, err := p.unaryExpr()
	if err != nil {
		return e, err
	}

	for {
		op, ok := mulOps[p.l.Current().Kind]
		if !ok {
			return e, nil
		}

		loc := p.l.Current().Loc
		p.l.Advance()

		r, err := p.unaryExpr()
		if err != nil {
			return e, err
		}

		e = binary(op, e, r, loc)
	}
}

func (p *parser) unaryExpr() (expr, error) {
	tok := p.l.Current()

	var op common.UnaryOp

	switch tok.Kind {
	case lexer.Minus:
		op = common.Neg
	case lexer.KwNot:
		op = common.Not
	default:
		return p.postfixExpr()
	}

	p.l.Advance()

	operand, err := p.unaryExpr()
	if err != nil {
		return operand, err
	}

	return expr{
		Kind: ast.UnaryExpression[ast.Untyped]{Op: op, Operand: &operand},
		Loc:  tok.Loc,
	}, nil
}

func (p *parser) postfixExpr() (expr, error) {
	e, err := p.primary()
	if err != nil {
		return e, err
	}

	for {
		tok := p.l.Current()

		switch tok.Kind {
		case lexer.LeftParen:
			sym, ok := e.Kind.(ast.SymbolExpression)
			if !ok {
				p.errorf(e.Loc, "function must be a symbol")
				return e, errSyntax
			}

			p.l.Advance()

			args, err := p.expressionList(lexer.RightParen)
			if err != nil {
				return e, err
			}

			if err := p.expect(lexer.RightParen, ")"); err != nil {
				return e, err
			}

			e = expr{
				Kind: ast.CallExpression[ast.Untyped]{Function: sym.Name, Args: args},
				Loc:  e.Loc,
			}
		case lexer.LeftBracket:
			p.l.Advance()

			idx, err := p.expression()
			if err != nil {
				return e, err
			}

			if err := p.expect(lexer.RightBracket, "]"); err != nil {
				return e, err
			}

			v := e
			e = expr{
				Kind: ast.IndexExpression[ast.Untyped]{Value: &v, Index: &idx},
				Loc:  e.Loc,
			}
		case lexer.Dot:
			p.l.Advance()

			field := p.l.Current()

			switch field.Kind {
			case lexer.Int:
				n, err := strconv.Atoi(field.Lexeme)
				if err != nil {
					p.errorf(field.Loc, "could not parse integer literal")
					return e, errSyntax
				}

				p.l.Advance()

				v := e
				e = expr{
					Kind: ast.TupleIndexExpression[ast.Untyped]{Value: &v, Index: n},
					Loc:  e.Loc,
				}
			case lexer.Symbol:
				p.l.Advance()

				v := e
				e = expr{
					Kind: ast.AttributeExpression[ast.Untyped]{Value: &v, Attribute: field.Lexeme},
					Loc:  e.Loc,
				}
			default:
				return e, p.unexpected("field name or tuple index")
			}
		default:
			return e, nil
		}
	}
}

func (p *parser) primary() (expr, error) {
	tok := p.l.Current()

	switch tok.Kind {
	case lexer.Int:
		p.l.Advance()

		n, err := strconv.ParseInt(tok.Lexeme, 10, 64)
		if err != nil {
			p.errorf(tok.Loc, "could not parse integer literal")
			return expr{}, errSyntax
		}

		return expr{Kind: ast.IntegerLiteral{Value: n}, Loc: tok.Loc}, nil
	case lexer.True, lexer.False:
		p.l.Advance()

		return expr{Kind: ast.BooleanLiteral{Value: tok.Kind == lexer.True}, Loc: tok.Loc}, nil
	case lexer.Str:
		p.l.Advance()

		s, ok := unquote(tok.Lexeme)
		if !ok {
			p.errorf(tok.Loc, "could not parse string literal")
			return expr{}, errSyntax
		}

		return expr{Kind: ast.StringLiteral{Value: s}, Loc: tok.Loc}, nil
	case lexer.Symbol:
		p.l.Advance()

		return expr{Kind: ast.SymbolExpression{Name: tok.Lexeme}, Loc: tok.Loc}, nil
	case lexer.LeftParen:
		return p.parenOrTuple()
	case lexer.LeftBracket:
		p.l.Advance()

		items, err := p.expressionList(lexer.RightBracket)
		if err != nil {
			return expr{}, err
		}

		if err := p.expect(lexer.RightBracket, "]"); err != nil {
			return expr{}, err
		}

		return expr{Kind: ast.ListLiteral[ast.Untyped]{Items: items}, Loc: tok.Loc}, nil
	case lexer.LeftBrace:
		return p.mapLiteral()
	case lexer.KwNew:
		return p.recordLiteral()
	}

	err := p.unexpected("start of expression")
	p.l.Advance()

	return expr{}, err
}

// parenOrTuple disambiguates a parenthesized expression from a tuple
// literal by the presence of a comma.
func (p *parser) parenOrTuple() (expr, error) {
	loc := p.l.Current().Loc

	p.l.Advance() // (

	first, err := p.expression()
	if err != nil {
		return first, err
	}

	if p.l.Current().Kind != lexer.Comma {
		if err := p.expect(lexer.RightParen, ")"); err != nil {
			return first, err
		}

		return first, nil
	}

	p.l.Advance() // ,

	items := []expr{first}

	rest, err := p.expressionList(lexer.RightParen)
	if err != nil {
		return first, err
	}

	items = append(items, rest...)

	if err := p.expect(lexer.RightParen, ")"); err != nil {
		return first, err
	}

	return expr{Kind: ast.TupleLiteral[ast.Untyped]{Items: items}, Loc: loc}, nil
}

func (p *parser) mapLiteral() (expr, error) {
	loc := p.l.Current().Loc

	p.l.Advance() // {

	p.depth++
	defer func() { p.depth-- }()

	var items []ast.MapEntry[ast.Untyped]

	for p.l.Current().Kind != lexer.RightBrace {
		key, err := p.expression()
		if err != nil {
			return expr{}, err
		}

		if err := p.expect(lexer.Colon, ":"); err != nil {
			return expr{}, err
		}

		value, err := p.expression()
		if err != nil {
			return expr{}, err
		}

		items = append(items, ast.MapEntry[ast.Untyped]{Key: key, Value: value})

		if p.l.Current().Kind == lexer.Comma {
			p.l.Advance()
		} else if p.l.Current().Kind != lexer.RightBrace {
			return expr{}, p.unexpected("comma or }")
		}
	}

	p.l.Advance() // }

	return expr{Kind: ast.MapLiteral[ast.Untyped]{Items: items}, Loc: loc}, nil
}

func (p *parser) recordLiteral() (expr, error) {
	loc := p.l.Current().Loc

	p.l.Advance() // new

	name := p.l.Current()
	if err := p.expect(lexer.Symbol, "record name"); err != nil {
		return expr{}, err
	}

	if err := p.expect(lexer.LeftBrace, "{"); err != nil {
		return expr{}, err
	}

	p.depth++
	defer func() { p.depth-- }()

	var items []ast.FieldInit[ast.Untyped]

	for p.l.Current().Kind != lexer.RightBrace {
		fname := p.l.Current()
		if err := p.expect(lexer.Symbol, "field name"); err != nil {
			return expr{}, err
		}

		if err := p.expect(lexer.Colon, ":"); err != nil {
			return expr{}, err
		}

		value, err := p.expression()
		if err != nil {
			return expr{}, err
		}

		items = append(items, ast.FieldInit[ast.Untyped]{Name: fname.Lexeme, Value: value})

		if p.l.Current().Kind == lexer.Comma {
			p.l.Advance()
		} else if p.l.Current().Kind != lexer.RightBrace {
			return expr{}, p.unexpected("comma or }")
		}
	}

	p.l.Advance() // }

	return expr{Kind: ast.RecordLiteral[ast.Untyped]{Name: name.Lexeme, Items: items}, Loc: loc}, nil
}

func (p *parser) expressionList(end lexer.Kind) ([]expr, error) {
	var items []expr

	for {
		if p.l.Current().Kind == end {
			return items, nil
		}

		e, err := p.expression()
		if err != nil {
			return items, err
		}

		items = append(items, e)

		if p.l.Current().Kind == lexer.Comma {
			p.l.Advance()
		} else if p.l.Current().Kind != end {
			return items, p.unexpected("comma or closing bracket")
		}
	}
}

func (p *parser) syntacticType() (ast.SyntacticType, error) {
	tok := p.l.Current()
	if err := p.expect(lexer.Symbol, "type"); err != nil {
		return ast.SyntacticType{}, err
	}

	t := ast.SyntacticType{Name: tok.Lexeme, Loc: tok.Loc}

	if p.l.Current().Kind != lexer.LeftBracket {
		return t, nil
	}

	p.l.Advance() // [

	for p.l.Current().Kind != lexer.RightBracket {
		param, err := p.syntacticType()
		if err != nil {
			return t, err
		}

		t.Parameters = append(t.Parameters, param)

		if p.l.Current().Kind == lexer.Comma {
			p.l.Advance()
		} else if p.l.Current().Kind != lexer.RightBracket {
			return t, p.unexpected("comma or ]")
		}
	}

	p.l.Advance() // ]

	return t, nil
}

// sync performs panic mode recovery: skip to the next statement keyword,
// past the next semicolon, or to a closing brace at the current depth.
func (p *parser) sync() {
	depth := p.depth

	for !p.l.Done() {
		tok := p.l.Current()

		switch tok.Kind {
		case lexer.KwAssert, lexer.KwConst, lexer.KwFor, lexer.KwFunc,
			lexer.KwIf, lexer.KwLet, lexer.KwRecord, lexer.KwReturn, lexer.KwWhile:
			return
		case lexer.Semicolon:
			if p.depth == depth {
				p.l.Advance()
				return
			}
		case lexer.LeftBrace:
			p.depth++
		case lexer.RightBrace:
			if p.depth <= depth {
				return
			}

			p.depth--
		}

		p.l.Advance()
	}
}

func (p *parser) expect(kind lexer.Kind, what string) error {
	tok := p.l.Current()

	if tok.Kind != kind {
		return p.unexpected(what)
	}

	p.l.Advance()

	return nil
}

func (p *parser) unexpected(what string) error {
	tok := p.l.Current()

	if tok.Kind == lexer.EOF {
		p.errorf(tok.Loc, "expected %s, got end of file", what)
	} else {
		p.errorf(tok.Loc, "expected %s, got %s", what, describe(tok))
	}

	return errSyntax
}

func (p *parser) errorf(loc common.Location, format string, args ...any) {
	p.errs = append(p.errs, common.Error{
		Message: errors.New(format, args...).Error(),
		Loc:     loc,
	})
}

func binary(op common.BinaryOp, l, r expr, loc common.Location) expr {
	return expr{
		Kind: ast.BinaryExpression[ast.Untyped]{Op: op, Left: &l, Right: &r},
		Loc:  loc,
	}
}

func describe(tok lexer.Token) string {
	if tok.Lexeme != "" {
		return tok.Lexeme
	}

	return tok.Kind.String()
}

func unquote(lexeme string) (string, bool) {
	if len(lexeme) < 2 || lexeme[0] != '"' {
		return "", false
	}

	body := lexeme[1:]
	if strings.HasSuffix(body, `"`) {
		body = body[:len(body)-1]
	}

	var b strings.Builder

	for i := 0; i < len(body); i++ {
		c := body[i]

		if c != '\\' || i+1 == len(body) {
			b.WriteByte(c)
			continue
		}

		i++

		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '0':
			b.WriteByte(0)
		default:
			b.WriteByte(body[i])
		}
	}

	return b.String(), true
}
