package ast

import (
	"github.com/nikandfor/hacked/hfmt"
)

// Format appends the canonical s-expression form of the program to b.
// It never fails; the output is the ground truth for golden tests.
func Format[T any](b []byte, p *Program[T]) []byte {
	b = append(b, "(program"...)

	for _, d := range p.Declarations {
		b = append(b, ' ')
		b = formatDecl[T](b, d)
	}

	b = append(b, ')')

	return b
}

func formatDecl[T any](b []byte, d Declaration[T]) []byte {
	switch d := d.(type) {
	case *FunctionDeclaration[T]:
		b = hfmt.Appendf(b, "(func %s (", d.Name)

		for i, p := range d.Params {
			if i != 0 {
				b = append(b, ' ')
			}

			b = hfmt.Appendf(b, "(%s ", p.Name)
			b = FormatType(b, p.Type)
			b = append(b, ')')
		}

		b = append(b, ") "...)
		b = FormatType(b, d.Return)

		for _, s := range d.Body {
			b = append(b, ' ')
			b = formatStmt[T](b, s)
		}

		b = append(b, ')')
	case *ConstDeclaration[T]:
		b = hfmt.Appendf(b, "(const %s ", d.Symbol)
		b = FormatType(b, d.Type)
		b = append(b, ' ')
		b = formatExpr(b, d.Value)
		b = append(b, ')')
	case *RecordDeclaration[T]:
		b = hfmt.Appendf(b, "(record-decl %s", d.Name)

		for _, f := range d.Fields {
			b = hfmt.Appendf(b, "(%s ", f.Name)
			b = FormatType(b, f.Type)
			b = append(b, ')')
		}

		b = append(b, ')')
	}

	return b
}

func formatStmt[T any](b []byte, s Statement[T]) []byte {
	switch s := s.(type) {
	case *LetStatement[T]:
		b = hfmt.Appendf(b, "(let %s ", s.Symbol)
		b = FormatType(b, s.Type)
		b = append(b, ' ')
		b = formatExpr(b, s.Value)
		b = append(b, ')')
	case *AssignStatement[T]:
		b = hfmt.Appendf(b, "(assign %s ", s.Symbol)
		b = formatExpr(b, s.Value)
		b = append(b, ')')
	case *IfStatement[T]:
		for i, c := range s.Clauses {
			if i == 0 {
				b = append(b, "(if "...)
			} else {
				b = append(b, " (elif "...)
			}

			b = formatExpr(b, c.Cond)
			b = append(b, ' ')
			b = formatBlock(b, c.Body)

			if i != 0 {
				b = append(b, ')')
			}
		}

		if len(s.Else) != 0 {
			b = append(b, " (else "...)
			b = formatBlock(b, s.Else)
			b = append(b, ')')
		}
	case *WhileStatement[T]:
		b = append(b, "(while "...)
		b = formatExpr(b, s.Cond)
		b = append(b, ' ')
		b = formatBlock(b, s.Body)
		b = append(b, ')')
	case *ForStatement[T]:
		b = append(b, "(for "...)

		if s.Symbol2 != "" {
			b = hfmt.Appendf(b, "(%s %s)", s.Symbol, s.Symbol2)
		} else {
			b = append(b, s.Symbol...)
		}

		b = append(b, ' ')
		b = formatExpr(b, s.Iterator)
		b = formatBlock(b, s.Body)
	case *ReturnStatement[T]:
		b = append(b, "(return "...)
		b = formatExpr(b, s.Value)
		b = append(b, ')')
	case *AssertStatement[T]:
		b = append(b, "(assert "...)
		b = formatExpr(b, s.Cond)
		b = append(b, ')')
	case *ExpressionStatement[T]:
		b = formatExpr(b, s.Expr)
	}

	return b
}

func formatBlock[T any](b []byte, body []Statement[T]) []byte {
	b = append(b, "(block"...)

	for _, s := range body {
		b = append(b, ' ')
		b = formatStmt[T](b, s)
	}

	b = append(b, ')')

	return b
}

func formatExpr[T any](b []byte, e Expression[T]) []byte {
	switch k := e.Kind.(type) {
	case BooleanLiteral:
		b = hfmt.Appendf(b, "%v", k.Value)
	case IntegerLiteral:
		b = hfmt.Appendf(b, "%d", k.Value)
	case StringLiteral:
		b = hfmt.Appendf(b, "%q", k.Value)
	case SymbolExpression:
		b = append(b, k.Name...)
	case BinaryExpression[T]:
		b = hfmt.Appendf(b, "(binary %v ", k.Op)
		b = formatExpr(b, *k.Left)
		b = append(b, ' ')
		b = formatExpr(b, *k.Right)
		b = append(b, ')')
	case UnaryExpression[T]:
		b = hfmt.Appendf(b, "(unary %v ", k.Op)
		b = formatExpr(b, *k.Operand)
		b = append(b, ')')
	case CallExpression[T]:
		b = hfmt.Appendf(b, "(call %s (", k.Function)

		for i, a := range k.Args {
			if i != 0 {
				b = append(b, ' ')
			}

			b = formatExpr(b, a)
		}

		b = append(b, "))"...)
	case IndexExpression[T]:
		b = append(b, "(index "...)
		b = formatExpr(b, *k.Value)
		b = append(b, ' ')
		b = formatExpr(b, *k.Index)
		b = append(b, ')')
	case TupleIndexExpression[T]:
		b = append(b, "(tuple-index "...)
		b = formatExpr(b, *k.Value)
		b = hfmt.Appendf(b, " %d)", k.Index)
	case AttributeExpression[T]:
		b = append(b, "(attrib "...)
		b = formatExpr(b, *k.Value)
		b = hfmt.Appendf(b, " %s)", k.Attribute)
	case ListLiteral[T]:
		b = append(b, "(list"...)

		for _, it := range k.Items {
			b = append(b, ' ')
			b = formatExpr(b, it)
		}

		b = append(b, ')')
	case TupleLiteral[T]:
		b = append(b, "(tuple"...)

		for _, it := range k.Items {
			b = append(b, ' ')
			b = formatExpr(b, it)
		}

		b = append(b, ')')
	case MapLiteral[T]:
		b = append(b, "(map"...)

		for _, it := range k.Items {
			b = append(b, " ("...)
			b = formatExpr(b, it.Key)
			b = append(b, ' ')
			b = formatExpr(b, it.Value)
			b = append(b, ')')
		}

		b = append(b, ')')
	case RecordLiteral[T]:
		b = hfmt.Appendf(b, "(record %s", k.Name)

		for _, it := range k.Items {
			b = hfmt.Appendf(b, " (%s ", it.Name)
			b = formatExpr(b, it.Value)
			b = append(b, ')')
		}

		b = append(b, ')')
	}

	return b
}

// FormatType appends the (type ...) form of a syntactic type.
func FormatType(b []byte, t SyntacticType) []byte {
	b = hfmt.Appendf(b, "(type %s", t.Name)

	for _, p := range t.Parameters {
		b = append(b, ' ')
		b = FormatType(b, p)
	}

	b = append(b, ')')

	return b
}
