// Package formula converts raw stored table values to and from engineering
// units through small single-variable arithmetic expressions. Expressions
// are parsed by a recursive-descent parser into a tiny AST that is walked
// directly; nothing outside the allowed character set is ever evaluated.
package formula

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/thebringerofdeath789/535xi-sub001/internal/common"
)

var (
	ErrBadExpression = errors.New("malformed formula expression")
	ErrDivideByZero  = errors.New("formula division by zero")
)

// Formula pairs the raw-to-real expression with its inverse. Formulas are
// defined once per tunable table at registry-load time and never mutated.
type Formula struct {
	Forward string `yaml:"forward" json:"forward"`
	Inverse string `yaml:"inverse" json:"inverse"`
	Units   string `yaml:"units" json:"units"`
}

// Identity maps raw values straight through.
var Identity = Formula{Forward: "x", Inverse: "x", Units: "raw"}

type node interface {
	eval(x float64) (float64, error)
}

type literal float64

func (l literal) eval(float64) (float64, error) { return float64(l), nil }

type variable struct{}

func (variable) eval(x float64) (float64, error) { return x, nil }

type negate struct{ n node }

func (u negate) eval(x float64) (float64, error) {
	v, err := u.n.eval(x)
	return -v, err
}

type binary struct {
	op          byte
	left, right node
}

func (b binary) eval(x float64) (float64, error) {
	l, err := b.left.eval(x)
	if err != nil {
		return 0, err
	}
	r, err := b.right.eval(x)
	if err != nil {
		return 0, err
	}
	switch b.op {
	case '+':
		return l + r, nil
	case '-':
		return l - r, nil
	case '*':
		return l * r, nil
	default:
		if r == 0 {
			return 0, ErrDivideByZero
		}
		return l / r, nil
	}
}

// Expr is a compiled formula expression.
type Expr struct {
	src  string
	root node
}

// Compile validates the character set of src and parses it. The allowed
// alphabet is digits, '.', the four operators, parentheses, spaces and the
// variable symbol 'x'; anything else is rejected before parsing.
func Compile(src string) (*Expr, error) {
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case c >= '0' && c <= '9':
		case c == '.' || c == '+' || c == '-' || c == '*' || c == '/':
		case c == '(' || c == ')' || c == ' ' || c == 'x':
		default:
			return nil, fmt.Errorf("%w: disallowed character %q in %q", ErrBadExpression, c, src)
		}
	}
	p := &parser{src: strings.TrimSpace(src)}
	if p.src == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrBadExpression)
	}
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("%w: unexpected %q at position %d in %q",
			ErrBadExpression, p.src[p.pos], p.pos, src)
	}
	return &Expr{src: src, root: root}, nil
}

// Eval evaluates the compiled expression at x.
func (e *Expr) Eval(x float64) (float64, error) {
	v, err := e.root.eval(x)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", e.src, err)
	}
	return v, nil
}

// Eval compiles and evaluates src at x in one step.
func Eval(src string, x float64) (float64, error) {
	e, err := Compile(src)
	if err != nil {
		return 0, err
	}
	return e.Eval(x)
}

type parser struct {
	src string
	pos int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *parser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

// expr := term (('+'|'-') term)*
func (p *parser) parseExpr() (node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		op := p.peek()
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = binary{op: op, left: left, right: right}
	}
}

// term := factor (('*'|'/') factor)*
func (p *parser) parseTerm() (node, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		op := p.peek()
		if op != '*' && op != '/' {
			return left, nil
		}
		p.pos++
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = binary{op: op, left: left, right: right}
	}
}

// factor := number | 'x' | '(' expr ')' | '-' factor
func (p *parser) parseFactor() (node, error) {
	p.skipSpace()
	switch c := p.peek(); {
	case c == 0:
		return nil, fmt.Errorf("%w: unexpected end of %q", ErrBadExpression, p.src)
	case c == '-':
		p.pos++
		inner, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return negate{n: inner}, nil
	case c == '(':
		p.pos++
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.peek() != ')' {
			return nil, fmt.Errorf("%w: missing ')' in %q", ErrBadExpression, p.src)
		}
		p.pos++
		return inner, nil
	case c == 'x':
		p.pos++
		return variable{}, nil
	case c >= '0' && c <= '9' || c == '.':
		start := p.pos
		for p.pos < len(p.src) {
			c := p.src[p.pos]
			if (c < '0' || c > '9') && c != '.' {
				break
			}
			p.pos++
		}
		v, err := strconv.ParseFloat(p.src[start:p.pos], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad number %q", ErrBadExpression, p.src[start:p.pos])
		}
		return literal(v), nil
	default:
		return nil, fmt.Errorf("%w: unexpected %q at position %d in %q",
			ErrBadExpression, c, p.pos, p.src)
	}
}

// Validate compiles both directions of the formula.
func (f Formula) Validate() error {
	if _, err := Compile(f.Forward); err != nil {
		return fmt.Errorf("forward: %w", err)
	}
	if _, err := Compile(f.Inverse); err != nil {
		return fmt.Errorf("inverse: %w", err)
	}
	return nil
}

// RawToReal converts a raw stored value to engineering units.
func RawToReal(raw uint16, f Formula) (float64, error) {
	return Eval(f.Forward, float64(raw))
}

// RealToRaw converts an engineering-unit value back to a raw stored value,
// rounding to the nearest integer and clamping to the representable range.
// Clamping is logged, not failed.
func RealToRaw(real float64, f Formula) (uint16, error) {
	v, err := Eval(f.Inverse, real)
	if err != nil {
		return 0, err
	}
	rounded := math.Round(v)
	switch {
	case math.IsNaN(rounded):
		return 0, fmt.Errorf("%w: inverse of %g is not a number", ErrBadExpression, real)
	case rounded < 0:
		common.Logf("clamped %g %s: raw %.0f below 0", real, f.Units, rounded)
		return 0, nil
	case rounded > 65535:
		common.Logf("clamped %g %s: raw %.0f above 65535", real, f.Units, rounded)
		return 65535, nil
	}
	return uint16(rounded), nil
}
