package main

// TokenKind is the lexical class of a token.
type TokenKind int

const (
	Identifier TokenKind = iota
	NumberLiteral
	CharLiteral
	StringLiteral
	Symbol
	EndOfInput
)

func (k TokenKind) String() string {
	switch k {
	case Identifier:
		return "ID"
	case NumberLiteral:
		return "NUML"
	case CharLiteral:
		return "CHARL"
	case StringLiteral:
		return "STRL"
	case Symbol:
		return "SYMB"
	case EndOfInput:
		return "EOF"
	default:
		return "UNKNOWN"
	}
}

// Token is immutable once produced. Pos is informational only.
type Token struct {
	Kind TokenKind
	Text string
	Pos  Pos
}

func (t Token) IsSymbol(s string) bool {
	return t.Kind == Symbol && t.Text == s
}
