// Package ast defines the syntax tree. The tree is generic over its
// annotation: Program[Untyped] is what the parser builds, and
// Program[types.Type] is the same shape with every expression, parameter
// and const carrying its resolved type.
package ast

import (
	"github.com/venice-lang/venice/compiler/common"
)

type (
	// Untyped is the annotation of a tree that has not been analyzed.
	Untyped struct{}

	Program[T any] struct {
		Declarations []Declaration[T]
	}

	Declaration[T any] interface {
		declaration()
	}

	FunctionDeclaration[T any] struct {
		Name   string
		Params []Param[T]
		Return SyntacticType

		// Type is the resolved function signature.
		Type T

		Body []Statement[T]
		Loc  common.Location
	}

	Param[T any] struct {
		Name string
		Type SyntacticType

		Resolved T
	}

	ConstDeclaration[T any] struct {
		Symbol string
		Type   SyntacticType
		Value  Expression[T]

		Resolved T

		Loc common.Location
	}

	RecordDeclaration[T any] struct {
		Name   string
		Fields []RecordField
		Loc    common.Location
	}

	RecordField struct {
		Name string
		Type SyntacticType
	}

	// SyntacticType is a type as written in the source, before
	// resolution: a bare name or a name with bracketed parameters.
	SyntacticType struct {
		Name       string
		Parameters []SyntacticType
		Loc        common.Location
	}

	Statement[T any] interface {
		statement()
	}

	LetStatement[T any] struct {
		Symbol string
		Type   SyntacticType
		Value  Expression[T]

		Resolved T

		Loc common.Location
	}

	AssignStatement[T any] struct {
		Symbol string
		Value  Expression[T]
		Loc    common.Location
	}

	IfStatement[T any] struct {
		// Clauses holds the leading if and any else-if arms, in order.
		Clauses []IfClause[T]
		Else    []Statement[T]
		Loc     common.Location
	}

	IfClause[T any] struct {
		Cond Expression[T]
		Body []Statement[T]
	}

	WhileStatement[T any] struct {
		Cond Expression[T]
		Body []Statement[T]
		Loc  common.Location
	}

	ForStatement[T any] struct {
		Symbol string

		// Symbol2 is the second loop variable of the two-variable
		// form, empty otherwise.
		Symbol2 string

		Iterator Expression[T]
		Body     []Statement[T]
		Loc      common.Location
	}

	ReturnStatement[T any] struct {
		Value Expression[T]
		Loc   common.Location
	}

	AssertStatement[T any] struct {
		Cond Expression[T]
		Loc  common.Location
	}

	ExpressionStatement[T any] struct {
		Expr Expression[T]
	}

	Expression[T any] struct {
		Kind ExpressionKind[T]

		// Type is the annotation: Untyped before analysis, the
		// resolved type after.
		Type T

		Loc common.Location
	}

	ExpressionKind[T any] interface {
		expression()
	}

	BooleanLiteral struct {
		Value bool
	}

	IntegerLiteral struct {
		Value int64
	}

	StringLiteral struct {
		// Value is the string contents with quotes stripped and
		// escapes resolved.
		Value string
	}

	SymbolExpression struct {
		Name string
	}

	BinaryExpression[T any] struct {
		Op          common.BinaryOp
		Left, Right *Expression[T]
	}

	UnaryExpression[T any] struct {
		Op      common.UnaryOp
		Operand *Expression[T]
	}

	CallExpression[T any] struct {
		Function string
		Args     []Expression[T]
	}

	IndexExpression[T any] struct {
		Value, Index *Expression[T]
	}

	TupleIndexExpression[T any] struct {
		Value *Expression[T]
		Index int
	}

	AttributeExpression[T any] struct {
		Value     *Expression[T]
		Attribute string
	}

	ListLiteral[T any] struct {
		Items []Expression[T]
	}

	TupleLiteral[T any] struct {
		Items []Expression[T]
	}

	MapLiteral[T any] struct {
		Items []MapEntry[T]
	}

	MapEntry[T any] struct {
		Key, Value Expression[T]
	}

	RecordLiteral[T any] struct {
		Name  string
		Items []FieldInit[T]
	}

	FieldInit[T any] struct {
		Name  string
		Value Expression[T]
	}
)

func (*FunctionDeclaration[T]) declaration() {}
func (*ConstDeclaration[T]) declaration()    {}
func (*RecordDeclaration[T]) declaration()   {}

func (*LetStatement[T]) statement()        {}
func (*AssignStatement[T]) statement()     {}
func (*IfStatement[T]) statement()         {}
func (*WhileStatement[T]) statement()      {}
func (*ForStatement[T]) statement()        {}
func (*ReturnStatement[T]) statement()     {}
func (*AssertStatement[T]) statement()     {}
func (*ExpressionStatement[T]) statement() {}

func (BooleanLiteral) expression()          {}
func (IntegerLiteral) expression()          {}
func (StringLiteral) expression()           {}
func (SymbolExpression) expression()        {}
func (BinaryExpression[T]) expression()     {}
func (UnaryExpression[T]) expression()      {}
func (CallExpression[T]) expression()       {}
func (IndexExpression[T]) expression()      {}
func (TupleIndexExpression[T]) expression() {}
func (AttributeExpression[T]) expression()  {}
func (ListLiteral[T]) expression()          {}
func (TupleLiteral[T]) expression()         {}
func (MapLiteral[T]) expression()           {}
func (RecordLiteral[T]) expression()        {}
