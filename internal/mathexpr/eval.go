// Package mathexpr evaluates small arithmetic expressions embedded in chat
// text. The grammar is fixed: numbers, + - * / ^, parentheses and sqrt.
// Nothing else is ever executed.
package mathexpr

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrSyntax       = errors.New("mathexpr: syntax error")
	ErrDivideByZero = errors.New("mathexpr: division by zero")
	ErrNonFinite    = errors.New("mathexpr: non-finite result")
	ErrTooDeep      = errors.New("mathexpr: expression nested too deeply")
)

// MaxDepth bounds parenthesis and unary-operator nesting.
const MaxDepth = 64

// sqrtSym is the sanitized stand-in for the word "sqrt".
const sqrtSym = '√'

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokOp
	tokLParen
	tokRParen
	tokSqrt
	tokEOF
)

type token struct {
	kind tokenKind
	op   byte
	num  float64
}

func lex(expr string) ([]token, error) {
	var toks []token
	rs := []rune(expr)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case r == ' ':
			i++
		case r >= '0' && r <= '9' || r == '.':
			j := i
			for j < len(rs) && (rs[j] >= '0' && rs[j] <= '9' || rs[j] == '.') {
				j++
			}
			v, err := strconv.ParseFloat(string(rs[i:j]), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: bad number %q", ErrSyntax, string(rs[i:j]))
			}
			toks = append(toks, token{kind: tokNumber, num: v})
			i = j
		case strings.ContainsRune("+-*/^", r):
			toks = append(toks, token{kind: tokOp, op: byte(r)})
			i++
		case r == '(':
			toks = append(toks, token{kind: tokLParen})
			i++
		case r == ')':
			toks = append(toks, token{kind: tokRParen})
			i++
		case r == sqrtSym:
			toks = append(toks, token{kind: tokSqrt})
			i++
		default:
			return nil, fmt.Errorf("%w: unexpected %q", ErrSyntax, r)
		}
	}
	return append(toks, token{kind: tokEOF}), nil
}

type parser struct {
	toks  []token
	pos   int
	depth int
}

// Eval parses and evaluates expr. The word sqrt may appear in place of the
// internal square-root symbol.
func Eval(expr string) (float64, error) {
	toks, err := lex(strings.ReplaceAll(expr, "sqrt", string(sqrtSym)))
	if err != nil {
		return 0, err
	}
	p := &parser{toks: toks}
	v, err := p.expr()
	if err != nil {
		return 0, err
	}
	if p.peek().kind != tokEOF {
		return 0, fmt.Errorf("%w: trailing input", ErrSyntax)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrNonFinite
	}
	return v, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > MaxDepth {
		return ErrTooDeep
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

// expr := term (('+'|'-') term)*
func (p *parser) expr() (float64, error) {
	left, err := p.term()
	if err != nil {
		return 0, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp || (t.op != '+' && t.op != '-') {
			return left, nil
		}
		p.next()
		right, err := p.term()
		if err != nil {
			return 0, err
		}
		if t.op == '+' {
			left += right
		} else {
			left -= right
		}
	}
}

// term := unary (('*'|'/') unary)*
func (p *parser) term() (float64, error) {
	left, err := p.unary()
	if err != nil {
		return 0, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp || (t.op != '*' && t.op != '/') {
			return left, nil
		}
		p.next()
		right, err := p.unary()
		if err != nil {
			return 0, err
		}
		if t.op == '*' {
			left *= right
			continue
		}
		if right == 0 {
			return 0, ErrDivideByZero
		}
		left /= right
	}
}

// unary := ('-'|'+') unary | power
func (p *parser) unary() (float64, error) {
	t := p.peek()
	if t.kind == tokOp && (t.op == '-' || t.op == '+') {
		if err := p.enter(); err != nil {
			return 0, err
		}
		defer p.leave()
		p.next()
		v, err := p.unary()
		if err != nil {
			return 0, err
		}
		if t.op == '-' {
			return -v, nil
		}
		return v, nil
	}
	return p.power()
}

// power := primary ('^' unary)?   right associative
func (p *parser) power() (float64, error) {
	base, err := p.primary()
	if err != nil {
		return 0, err
	}
	t := p.peek()
	if t.kind != tokOp || t.op != '^' {
		return base, nil
	}
	p.next()
	if err := p.enter(); err != nil {
		return 0, err
	}
	defer p.leave()
	exp, err := p.unary()
	if err != nil {
		return 0, err
	}
	return math.Pow(base, exp), nil
}

// primary := number | '(' expr ')' | sqrt primary
func (p *parser) primary() (float64, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return t.num, nil
	case tokLParen:
		if err := p.enter(); err != nil {
			return 0, err
		}
		defer p.leave()
		v, err := p.expr()
		if err != nil {
			return 0, err
		}
		if p.next().kind != tokRParen {
			return 0, fmt.Errorf("%w: missing )", ErrSyntax)
		}
		return v, nil
	case tokSqrt:
		if err := p.enter(); err != nil {
			return 0, err
		}
		defer p.leave()
		v, err := p.primary()
		if err != nil {
			return 0, err
		}
		if v < 0 {
			return 0, ErrNonFinite
		}
		return math.Sqrt(v), nil
	}
	return 0, fmt.Errorf("%w: unexpected token", ErrSyntax)
}
