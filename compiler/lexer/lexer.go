package lexer

import (
	"unicode"
	"unicode/utf8"

	"github.com/venice-lang/venice/compiler/common"
)

type (
	Kind int

	// Token is (kind, lexeme, location). Lexeme is the exact source
	// slice. Location is not significant for equality.
	Token struct {
		Kind   Kind
		Lexeme string
		Loc    common.Location
	}

	// Lexer stages one token at a time. Construction primes the pump,
	// so Current returns the first token right away. After the source
	// is exhausted Current stays EOF forever.
	Lexer struct {
		file string
		src  string

		pos  int
		line int
		col  int

		cur  Token
		errs common.Errors
	}
)

const (
	EOF Kind = iota
	Unknown

	Int
	Str
	Symbol
	True
	False

	Assign
	Plus
	Minus
	Star
	Slash
	Percent
	Less
	Greater
	Dot
	Comma
	Semicolon
	Colon
	LeftParen
	RightParen
	LeftBracket
	RightBracket
	LeftBrace
	RightBrace

	Arrow
	Equals
	NotEquals
	LessEq
	GreaterEq
	Concat

	KwAnd
	KwAssert
	KwConst
	KwElse
	KwFor
	KwFunc
	KwIf
	KwIn
	KwLet
	KwNew
	KwNot
	KwOr
	KwRecord
	KwReturn
	KwWhile
)

var oneChar = map[byte]Kind{
	'=': Assign,
	'+': Plus,
	'-': Minus,
	'*': Star,
	'/': Slash,
	'%': Percent,
	'<': Less,
	'>': Greater,
	'.': Dot,
	',': Comma,
	';': Semicolon,
	':': Colon,
	'(': LeftParen,
	')': RightParen,
	'[': LeftBracket,
	']': RightBracket,
	'{': LeftBrace,
	'}': RightBrace,
}

var twoChar = map[string]Kind{
	"->": Arrow,
	"==": Equals,
	"!=": NotEquals,
	"<=": LessEq,
	">=": GreaterEq,
	"++": Concat,
}

var keywords = map[string]Kind{
	"and":    KwAnd,
	"assert": KwAssert,
	"const":  KwConst,
	"else":   KwElse,
	"false":  False,
	"for":    KwFor,
	"func":   KwFunc,
	"if":     KwIf,
	"in":     KwIn,
	"let":    KwLet,
	"new":    KwNew,
	"not":    KwNot,
	"or":     KwOr,
	"record": KwRecord,
	"return": KwReturn,
	"true":   True,
	"while":  KwWhile,
}

func New(file, src string) *Lexer {
	l := &Lexer{
		file: file,
		src:  src,
		line: 1,
		col:  1,
	}

	l.cur = l.scan()

	return l
}

// Current returns the staged token without consuming it.
func (l *Lexer) Current() Token { return l.cur }

// Advance consumes the staged token and returns the next one.
func (l *Lexer) Advance() Token {
	if l.cur.Kind != EOF {
		l.cur = l.scan()
	}

	return l.cur
}

func (l *Lexer) Done() bool { return l.cur.Kind == EOF }

// Errors returns diagnostics found while scanning, such as an
// unterminated string literal.
func (l *Lexer) Errors() common.Errors { return l.errs }

func (l *Lexer) scan() Token {
	l.skipSpace()

	loc := l.loc()

	if l.pos == len(l.src) {
		return Token{Kind: EOF, Loc: loc}
	}

	if l.pos+1 < len(l.src) {
		if kind, ok := twoChar[l.src[l.pos:l.pos+2]]; ok {
			st := l.pos
			l.take()
			l.take()

			return Token{Kind: kind, Lexeme: l.src[st:l.pos], Loc: loc}
		}
	}

	c := l.src[l.pos]

	switch {
	case c >= '0' && c <= '9':
		return l.scanNumber(loc)
	case c == '"':
		return l.scanString(loc)
	case isSymbolStart(c):
		return l.scanSymbol(loc)
	}

	if kind, ok := oneChar[c]; ok {
		st := l.pos
		l.take()

		return Token{Kind: kind, Lexeme: l.src[st:l.pos], Loc: loc}
	}

	st := l.pos
	l.take()

	return Token{Kind: Unknown, Lexeme: l.src[st:l.pos], Loc: loc}
}

func (l *Lexer) scanNumber(loc common.Location) Token {
	st := l.pos

	for l.pos < len(l.src) && l.src[l.pos] >= '0' && l.src[l.pos] <= '9' {
		l.take()
	}

	return Token{Kind: Int, Lexeme: l.src[st:l.pos], Loc: loc}
}

func (l *Lexer) scanString(loc common.Location) Token {
	st := l.pos
	l.take() // opening quote

	for l.pos < len(l.src) && l.src[l.pos] != '"' {
		if l.src[l.pos] == '\\' && l.pos+1 < len(l.src) {
			l.take()
		}

		l.take()
	}

	if l.pos == len(l.src) {
		l.errs = append(l.errs, common.Error{Message: "unterminated string literal", Loc: loc})
	} else {
		l.take() // closing quote
	}

	return Token{Kind: Str, Lexeme: l.src[st:l.pos], Loc: loc}
}

func (l *Lexer) scanSymbol(loc common.Location) Token {
	st := l.pos

	for l.pos < len(l.src) && isSymbolCont(l.src[l.pos]) {
		l.take()
	}

	lex := l.src[st:l.pos]

	if kind, ok := keywords[lex]; ok {
		return Token{Kind: kind, Lexeme: lex, Loc: loc}
	}

	return Token{Kind: Symbol, Lexeme: lex, Loc: loc}
}

func (l *Lexer) skipSpace() {
	for l.pos < len(l.src) {
		if l.src[l.pos] == '/' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '/' {
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.take()
			}

			continue
		}

		r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
		if !unicode.IsSpace(r) {
			return
		}

		l.take()
	}
}

// take consumes one code point keeping line and column in sync.
func (l *Lexer) take() {
	r, size := utf8.DecodeRuneInString(l.src[l.pos:])
	l.pos += size

	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
}

func (l *Lexer) loc() common.Location {
	return common.Location{File: l.file, Line: l.line, Column: l.col}
}

func isSymbolStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isSymbolCont(c byte) bool {
	return isSymbolStart(c) || c >= '0' && c <= '9'
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return "Kind(?)"
}

var kindNames = map[Kind]string{
	EOF:          "EOF",
	Unknown:      "Unknown",
	Int:          "Int",
	Str:          "Str",
	Symbol:       "Symbol",
	True:         "True",
	False:        "False",
	Assign:       "Assign",
	Plus:         "Plus",
	Minus:        "Minus",
	Star:         "Star",
	Slash:        "Slash",
	Percent:      "Percent",
	Less:         "Less",
	Greater:      "Greater",
	Dot:          "Dot",
	Comma:        "Comma",
	Semicolon:    "Semicolon",
	Colon:        "Colon",
	LeftParen:    "LeftParen",
	RightParen:   "RightParen",
	LeftBracket:  "LeftBracket",
	RightBracket: "RightBracket",
	LeftBrace:    "LeftBrace",
	RightBrace:   "RightBrace",
	Arrow:        "Arrow",
	Equals:       "Equals",
	NotEquals:    "NotEquals",
	LessEq:       "LessEq",
	GreaterEq:    "GreaterEq",
	Concat:       "Concat",
	KwAnd:        "and",
	KwAssert:     "assert",
	KwConst:      "const",
	KwElse:       "else",
	KwFor:        "for",
	KwFunc:       "func",
	KwIf:         "if",
	KwIn:         "in",
	KwLet:        "let",
	KwNew:        "new",
	KwNot:        "not",
	KwOr:         "or",
	KwRecord:     "record",
	KwReturn:     "return",
	KwWhile:      "while",
}
