package main

import (
	"strconv"
	"strings"
)

// Node is one of *Program, *Assignment, *BinaryOp or *Literal.
type Node interface {
	node()
}

// Program is the root: top-level statements in source order.
type Program struct {
	Statements []Node
}

// Assignment stores Value into the variable named by Target.
// Its value as an expression is the assigned value.
type Assignment struct {
	Target Token
	Value  Node
}

// BinaryOp applies Op (one of + - * / %) to Left and Right.
type BinaryOp struct {
	Left  Node
	Op    Token
	Right Node
}

// Literal wraps a single token. A nil Token is the placeholder the parser
// produces where an operand is missing.
type Literal struct {
	Token *Token
}

func (*Program) node()    {}
func (*Assignment) node() {}
func (*BinaryOp) node()   {}
func (*Literal) node()    {}

// ToSExpr converts an AST node to s-expression string representation
func ToSExpr(node Node) string {
	var sb strings.Builder
	writeSExpr(&sb, node)
	return sb.String()
}

func writeSExpr(sb *strings.Builder, node Node) {
	switch n := node.(type) {
	case *Program:
		sb.WriteString("(program")
		for _, stmt := range n.Statements {
			sb.WriteByte(' ')
			writeSExpr(sb, stmt)
		}
		sb.WriteByte(')')
	case *Assignment:
		sb.WriteString("(assign " + strconv.Quote(n.Target.Text) + " ")
		writeSExpr(sb, n.Value)
		sb.WriteByte(')')
	case *BinaryOp:
		sb.WriteString("(binary " + strconv.Quote(n.Op.Text) + " ")
		writeSExpr(sb, n.Left)
		sb.WriteByte(' ')
		writeSExpr(sb, n.Right)
		sb.WriteByte(')')
	case *Literal:
		if n.Token == nil {
			sb.WriteString("(empty)")
			return
		}
		switch n.Token.Kind {
		case NumberLiteral:
			sb.WriteString("(integer " + n.Token.Text + ")")
		case Identifier:
			sb.WriteString("(ident " + strconv.Quote(n.Token.Text) + ")")
		case StringLiteral:
			sb.WriteString("(string " + strconv.Quote(n.Token.Text) + ")")
		case CharLiteral:
			sb.WriteString("(char " + strconv.Quote(n.Token.Text) + ")")
		default:
			sb.WriteString("(symbol " + strconv.Quote(n.Token.Text) + ")")
		}
	default:
		sb.WriteString("(empty)")
	}
}
