package main

// Parser builds an AST from a token stream by recursive descent.
//
//	program   := statement*
//	statement := IDENTIFIER '=' expr | expr
//	expr      := term (('+' | '-') term)*
//	term      := value (('*' | '/' | '%') value)*
//	value     := NUMBER | IDENTIFIER | STRING | CHAR | '(' expr ')' | '-' value
//
// The parser never fails. Malformed input becomes placeholder nodes and a
// diagnostic in Errors, and every call to parseValue consumes at least one
// token unless the stream is exhausted, so parsing always terminates.
type Parser struct {
	toks []Token

	Errors ErrorList
}

// NewParser takes ownership of toks and reads them front to back.
func NewParser(toks []Token) *Parser {
	return &Parser{toks: toks}
}

// Parse is shorthand for NewParser(toks).ParseProgram().
func Parse(toks []Token) (*Program, *ErrorList) {
	p := NewParser(toks)
	prog := p.ParseProgram()
	return prog, &p.Errors
}

// ParseSource tokenizes and parses src, merging lexer and parser diagnostics.
func ParseSource(src string) (*Program, *ErrorList) {
	toks, lexErrs := Tokenize(src)
	prog, parseErrs := Parse(toks)
	var errs ErrorList
	errs.Append(lexErrs)
	errs.Append(parseErrs)
	return prog, &errs
}

func (p *Parser) peek() Token {
	if len(p.toks) == 0 {
		return Token{Kind: EndOfInput, Text: "EOF"}
	}
	return p.toks[0]
}

func (p *Parser) atEOF() bool {
	return len(p.toks) == 0 || p.toks[0].Kind == EndOfInput
}

func (p *Parser) next() Token {
	t := p.peek()
	if len(p.toks) > 0 {
		p.toks = p.toks[1:]
	}
	return t
}

func (p *Parser) isSymbol(s ...string) bool {
	t := p.peek()
	for _, sym := range s {
		if t.IsSymbol(sym) {
			return true
		}
	}
	return false
}

// ParseProgram consumes every token up to the end marker.
func (p *Parser) ParseProgram() *Program {
	prog := &Program{}
	for !p.atEOF() {
		if p.isSymbol(";") {
			p.next()
			continue
		}
		prog.Statements = append(prog.Statements, p.ParseStatement())
	}
	// Drop the end marker so the stream is fully consumed.
	p.next()
	return prog
}

// ParseStatement parses an assignment or a bare expression.
func (p *Parser) ParseStatement() Node {
	if len(p.toks) >= 2 && p.toks[0].Kind == Identifier && p.toks[1].IsSymbol("=") {
		target := p.next()
		p.next() // '='
		return &Assignment{Target: target, Value: p.ParseExpression()}
	}
	return p.ParseExpression()
}

// ParseExpression parses a sum of terms.
func (p *Parser) ParseExpression() Node {
	left := p.parseTerm()
	for p.isSymbol("+", "-") {
		op := p.next()
		right := p.parseTerm()
		left = &BinaryOp{Left: left, Op: op, Right: right}
	}
	return left
}

func (p *Parser) parseTerm() Node {
	left := p.parseValue()
	for p.isSymbol("*", "/", "%") {
		op := p.next()
		right := p.parseValue()
		left = &BinaryOp{Left: left, Op: op, Right: right}
	}
	return left
}

func (p *Parser) parseValue() Node {
	if p.atEOF() {
		p.Errors.Add(p.peek().Pos, "unexpected end of input, expected a value")
		return &Literal{}
	}

	tok := p.next()
	switch tok.Kind {
	case NumberLiteral, Identifier, StringLiteral, CharLiteral:
		return &Literal{Token: &tok}
	}

	switch {
	case tok.IsSymbol("("):
		inner := p.ParseExpression()
		if p.isSymbol(")") {
			p.next()
		} else {
			p.Errors.Add(tok.Pos, "missing ')' to close '('")
		}
		return inner
	case tok.IsSymbol("-"):
		// -x is 0 - x.
		zero := Token{Kind: NumberLiteral, Text: "0", Pos: tok.Pos}
		return &BinaryOp{Left: &Literal{Token: &zero}, Op: tok, Right: p.parseValue()}
	}

	p.Errors.Add(tok.Pos, "unexpected %q, expected a value", tok.Text)
	return &Literal{Token: &tok}
}
