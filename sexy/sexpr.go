package sexy

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

// NodeType represents the type of a Node
type NodeType int

const (
	NodeSymbol NodeType = iota + 1
	NodeString
	NodeInteger
	NodeEllipsis
	NodeList
)

// Node represents any Sexy datum
type Node struct {
	Type NodeType

	Text  string  // NodeSymbol, NodeString, NodeInteger
	Items []*Node // NodeList
}

func (n *Node) String() string {
	switch n.Type {
	case NodeSymbol, NodeInteger:
		return n.Text
	case NodeString:
		escaped := strings.ReplaceAll(n.Text, "\\", "\\\\")
		escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
		return "\"" + escaped + "\""
	case NodeEllipsis:
		return "..."
	case NodeList:
		parts := make([]string, len(n.Items))
		for i, item := range n.Items {
			parts[i] = item.String()
		}
		return "(" + strings.Join(parts, " ") + ")"
	default:
		return "UNKNOWN_NODE_TYPE_" + strconv.Itoa(int(n.Type))
	}
}

func NewSymbol(name string) *Node { return &Node{Type: NodeSymbol, Text: name} }
func NewString(value string) *Node { return &Node{Type: NodeString, Text: value} }
func NewInteger(text string) *Node { return &Node{Type: NodeInteger, Text: text} }
func NewEllipsis() *Node { return &Node{Type: NodeEllipsis} }
func NewList(items []*Node) *Node { return &Node{Type: NodeList, Items: items} }
func (n *Node) IsAtom() bool { return n.Type != NodeList }

// Parse reads exactly one datum from input. Comments start with ';'.
func Parse(input string) (*Node, error) {
	p := &parser{input: input}
	p.skipSpace()
	n, err := p.datum()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.input) {
		return nil, errors.Errorf("offset %d: expected EOF but got %q", p.pos, p.input[p.pos:p.pos+1])
	}
	return n, nil
}

// ParseAll reads every datum in input.
func ParseAll(input string) ([]*Node, error) {
	p := &parser{input: input}
	var nodes []*Node
	for {
		p.skipSpace()
		if p.pos >= len(p.input) {
			return nodes, nil
		}
		n, err := p.datum()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
}

type parser struct {
	input string
	pos   int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) {
		c := rune(p.input[p.pos])
		if c == ';' {
			for p.pos < len(p.input) && p.input[p.pos] != '\n' {
				p.pos++
			}
			continue
		}
		if !unicode.IsSpace(c) {
			return
		}
		p.pos++
	}
}

func (p *parser) peekAt(i int) byte {
	if p.pos+i >= len(p.input) {
		return 0
	}
	return p.input[p.pos+i]
}

func (p *parser) datum() (*Node, error) {
	start := p.pos
	c := p.peekAt(0)
	switch {
	case c == 0:
		return nil, errors.New("unexpected EOF")
	case c == '(':
		p.pos++
		var items []*Node
		for {
			p.skipSpace()
			if p.peekAt(0) == 0 {
				return nil, errors.Errorf("offset %d: expected ')' but got EOF", start)
			}
			if p.peekAt(0) == ')' {
				p.pos++
				return NewList(items), nil
			}
			item, err := p.datum()
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
	case c == ')':
		return nil, errors.Errorf("offset %d: unexpected ')'", start)
	case c == '"':
		return p.str()
	case c == '.' && strings.HasPrefix(p.input[p.pos:], "..."):
		p.pos += 3
		return NewEllipsis(), nil
	case isDigit(c) || ((c == '-' || c == '+') && isDigit(p.peekAt(1))):
		p.pos++
		for isDigit(p.peekAt(0)) {
			p.pos++
		}
		return NewInteger(p.input[start:p.pos]), nil
	case isSymbolChar(rune(c)):
		for p.pos < len(p.input) && isSymbolChar(rune(p.input[p.pos])) {
			p.pos++
		}
		return NewSymbol(p.input[start:p.pos]), nil
	default:
		return nil, errors.Errorf("offset %d: unexpected character %q", start, c)
	}
}

func (p *parser) str() (*Node, error) {
	start := p.pos
	p.pos++ // opening quote
	var sb strings.Builder
	for {
		c := p.peekAt(0)
		switch c {
		case 0:
			return nil, errors.Errorf("offset %d: unterminated string", start)
		case '"':
			p.pos++
			return NewString(sb.String()), nil
		case '\\':
			esc := p.peekAt(1)
			if esc != '"' && esc != '\\' {
				return nil, errors.Errorf("offset %d: invalid escape sequence: \\%c", p.pos, esc)
			}
			sb.WriteByte(esc)
			p.pos += 2
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isSymbolChar(r rune) bool {
	if unicode.IsSpace(r) {
		return false
	}
	switch r {
	case '(', ')', '"', ';', 0:
		return false
	}
	return true
}

// Match reports whether got has the shape of pattern. An ellipsis in a
// pattern list matches any number of remaining items; a bare ellipsis
// matches any datum. The error names the path of the first mismatch.
func Match(pattern, got *Node) error {
	return match(pattern, got, "root")
}

func match(pattern, got *Node, path string) error {
	if pattern.Type == NodeEllipsis {
		return nil
	}
	if pattern.Type != got.Type {
		return errors.Errorf("at %s: expected %s, got %s", path, pattern, got)
	}
	if pattern.Type != NodeList {
		if pattern.Text != got.Text {
			return errors.Errorf("at %s: expected %s, got %s", path, pattern, got)
		}
		return nil
	}
	for i, want := range pattern.Items {
		if want.Type == NodeEllipsis && i == len(pattern.Items)-1 {
			return nil
		}
		if i >= len(got.Items) {
			return errors.Errorf("at %s: expected %s, got %s", path, pattern, got)
		}
		if err := match(want, got.Items[i], path+"."+strconv.Itoa(i)); err != nil {
			return err
		}
	}
	if len(got.Items) != len(pattern.Items) {
		return errors.Errorf("at %s: expected %d items, got %s", path, len(pattern.Items), got)
	}
	return nil
}
