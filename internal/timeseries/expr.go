package timeseries

import (
	"errors"
	"fmt"
	"strconv"
	"unicode"
)

var errDivisionByZero = errors.New("division by zero")

type exprNode interface {
	eval(operands map[string]float64) (float64, error)
}

type numberNode float64

func (n numberNode) eval(map[string]float64) (float64, error) {
	return float64(n), nil
}

type refNode string

func (n refNode) eval(operands map[string]float64) (float64, error) {
	v, ok := operands[string(n)]
	if !ok {
		return 0, fmt.Errorf("unbound operand %q", string(n))
	}
	return v, nil
}

type negNode struct {
	x exprNode
}

func (n negNode) eval(operands map[string]float64) (float64, error) {
	v, err := n.x.eval(operands)
	return -v, err
}

type binaryNode struct {
	op          byte
	left, right exprNode
}

func (n binaryNode) eval(operands map[string]float64) (float64, error) {
	l, err := n.left.eval(operands)
	if err != nil {
		return 0, err
	}
	r, err := n.right.eval(operands)
	if err != nil {
		return 0, err
	}
	switch n.op {
	case '+':
		return l + r, nil
	case '-':
		return l - r, nil
	case '*':
		return l * r, nil
	case '/':
		if r == 0 {
			return 0, errDivisionByZero
		}
		return l / r, nil
	}
	return 0, fmt.Errorf("unknown operator %q", n.op)
}

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokIdent
	tokOp
	tokEOF
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func tokenize(src string) ([]token, error) {
	var tokens []token
	runes := []rune(src)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '+' || r == '-' || r == '*' || r == '/' || r == '(' || r == ')':
			tokens = append(tokens, token{kind: tokOp, text: string(r), pos: i})
			i++
		case unicode.IsDigit(r) || r == '.':
			start := i
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '.') {
				i++
			}
			tokens = append(tokens, token{kind: tokNumber, text: string(runes[start:i]), pos: start})
		case r == '_' || unicode.IsLetter(r):
			start := i
			for i < len(runes) && (runes[i] == '_' || unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i])) {
				i++
			}
			tokens = append(tokens, token{kind: tokIdent, text: string(runes[start:i]), pos: start})
		default:
			return nil, fmt.Errorf("unexpected character %q at position %d", r, i)
		}
	}
	return append(tokens, token{kind: tokEOF, pos: len(runes)}), nil
}

// parser is a recursive descent parser for + - * / with parentheses and unary minus.
type parser struct {
	tokens []token
	pos    int
	refs   []string
	seen   map[string]struct{}
}

func parseExpression(src string) (exprNode, []string, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, nil, err
	}
	p := &parser{tokens: tokens, seen: map[string]struct{}{}}
	node, err := p.parseSum()
	if err != nil {
		return nil, nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, nil, fmt.Errorf("unexpected %q at position %d", tok.text, tok.pos)
	}
	return node, p.refs, nil
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) parseSum() (exprNode, error) {
	left, err := p.parseProduct()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokOp || (tok.text != "+" && tok.text != "-") {
			return left, nil
		}
		p.next()
		right, err := p.parseProduct()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: tok.text[0], left: left, right: right}
	}
}

func (p *parser) parseProduct() (exprNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokOp || (tok.text != "*" && tok.text != "/") {
			return left, nil
		}
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: tok.text[0], left: left, right: right}
	}
}

func (p *parser) parseUnary() (exprNode, error) {
	tok := p.peek()
	if tok.kind == tokOp && (tok.text == "-" || tok.text == "+") {
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if tok.text == "-" {
			return negNode{x: x}, nil
		}
		return x, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (exprNode, error) {
	tok := p.next()
	switch tok.kind {
	case tokNumber:
		v, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q at position %d", tok.text, tok.pos)
		}
		return numberNode(v), nil
	case tokIdent:
		if _, ok := p.seen[tok.text]; !ok {
			p.seen[tok.text] = struct{}{}
			p.refs = append(p.refs, tok.text)
		}
		return refNode(tok.text), nil
	case tokOp:
		if tok.text == "(" {
			inner, err := p.parseSum()
			if err != nil {
				return nil, err
			}
			if closing := p.next(); closing.kind != tokOp || closing.text != ")" {
				return nil, fmt.Errorf("missing closing parenthesis at position %d", closing.pos)
			}
			return inner, nil
		}
		return nil, fmt.Errorf("unexpected %q at position %d", tok.text, tok.pos)
	}
	return nil, fmt.Errorf("unexpected end of expression")
}
