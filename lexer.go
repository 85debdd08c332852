package main

// Lexer turns source text into tokens one at a time.
// Call NextToken repeatedly until CurrToken.Kind == EndOfInput.
type Lexer struct {
	input string
	pos   int // current reading position in input
	line  int
	col   int

	CurrToken Token

	Errors ErrorList
}

// NewLexer creates a lexer positioned before the first token.
func NewLexer(src string) *Lexer {
	return &Lexer{input: src, line: 1, col: 1}
}

// Tokenize scans all of src. The result always ends with exactly one
// EndOfInput token.
func Tokenize(src string) ([]Token, *ErrorList) {
	l := NewLexer(src)
	var toks []Token
	for {
		l.NextToken()
		toks = append(toks, l.CurrToken)
		if l.CurrToken.Kind == EndOfInput {
			break
		}
	}
	return toks, &l.Errors
}

// NextToken scans the next token into CurrToken.
func (l *Lexer) NextToken() {
	l.skipWhitespace()

	start := l.here()
	if l.pos >= len(l.input) {
		l.CurrToken = Token{Kind: EndOfInput, Text: "EOF", Pos: start}
		return
	}

	c := l.input[l.pos]
	switch {
	case isLetter(c):
		l.CurrToken = Token{Kind: Identifier, Text: l.readWhile(isLetter), Pos: start}
	case isDigit(c):
		l.CurrToken = Token{Kind: NumberLiteral, Text: l.readWhile(isDigit), Pos: start}
	case c == '"':
		l.CurrToken = Token{Kind: StringLiteral, Text: l.readString(start), Pos: start}
	case c == '\'':
		l.CurrToken = Token{Kind: CharLiteral, Text: l.readCharLiteral(start), Pos: start}
	default:
		l.advance()
		l.CurrToken = Token{Kind: Symbol, Text: string(c), Pos: start}
	}
}

func (l *Lexer) here() Pos {
	return Pos{Line: l.line, Col: l.col}
}

func (l *Lexer) advance() {
	if l.input[l.pos] == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	l.pos++
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && isWhitespace(l.input[l.pos]) {
		l.advance()
	}
}

func (l *Lexer) readWhile(pred func(byte) bool) string {
	start := l.pos
	for l.pos < len(l.input) && pred(l.input[l.pos]) {
		l.advance()
	}
	return l.input[start:l.pos]
}

func (l *Lexer) readString(start Pos) string {
	l.advance() // opening quote
	text := l.readWhile(func(c byte) bool { return c != '"' })
	if l.pos >= len(l.input) {
		l.Errors.Add(start, "unterminated string literal")
		return text
	}
	l.advance() // closing quote
	return text
}

func (l *Lexer) readCharLiteral(start Pos) string {
	l.advance() // opening quote
	if l.pos >= len(l.input) {
		l.Errors.Add(start, "unterminated character literal")
		return ""
	}
	text := l.input[l.pos : l.pos+1]
	l.advance()
	if l.pos >= len(l.input) || l.input[l.pos] != '\'' {
		found := "end of input"
		if l.pos < len(l.input) {
			found = "'" + l.input[l.pos:l.pos+1] + "'"
		}
		l.Errors.Add(start, "expected ' to finish character literal, found %s", found)
		return text
	}
	l.advance() // closing quote
	return text
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
