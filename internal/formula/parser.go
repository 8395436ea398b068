package formula

import (
	"fmt"
	"strconv"
	"strings"
)

type parser struct {
	src  string
	toks []token
	pos  int
}

// parseExpr parses src into a tree. src must not carry the "=" prefix.
func parseExpr(src string) (Node, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks}
	if p.peek().kind == tokEOF {
		return nil, p.errorf(p.peek(), "empty formula")
	}
	n, err := p.comparison()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		if t.kind == tokRParen {
			return nil, p.errorf(t, "unbalanced parenthesis")
		}
		return nil, p.errorf(t, "unexpected token")
	}
	return n, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(t token, format string, args ...any) *SyntaxError {
	return &SyntaxError{Formula: p.src, Token: t.text, Pos: t.pos, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) isOp(ops ...string) bool {
	t := p.peek()
	if t.kind != tokOp {
		return false
	}
	for _, op := range ops {
		if t.text == op {
			return true
		}
	}
	return false
}

func (p *parser) comparison() (Node, error) {
	left, err := p.additive()
	if err != nil {
		return nil, err
	}
	for p.isOp("<", "<=", ">", ">=", "==", "!=", "<>") {
		op := p.next().text
		if op == "<>" {
			op = "!="
		}
		right, err := p.additive()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) additive() (Node, error) {
	left, err := p.multiplicative()
	if err != nil {
		return nil, err
	}
	for p.isOp("+", "-") {
		op := p.next().text
		right, err := p.multiplicative()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) multiplicative() (Node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.isOp("*", "/", "%") {
		op := p.next().text
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) unary() (Node, error) {
	if p.isOp("+", "-") {
		op := p.next().text
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: op, X: x}, nil
	}
	return p.power()
}

// power is right associative and binds tighter than unary minus on its
// left: -2^2 is -(2^2).
func (p *parser) power() (Node, error) {
	base, err := p.primary()
	if err != nil {
		return nil, err
	}
	if p.isOp("^") {
		p.next()
		exp, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &Binary{Op: "^", Left: base, Right: exp}, nil
	}
	return base, nil
}

func (p *parser) primary() (Node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		v, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, p.errorf(t, "invalid number")
		}
		return &Literal{Value: v}, nil

	case tokIdent:
		if p.peek().kind == tokLParen {
			return p.call(t)
		}
		if p.peek().kind == tokDot {
			p.next()
			field := p.next()
			if field.kind != tokIdent {
				return nil, p.errorf(field, "expected name after %q", t.text+".")
			}
			return &Reference{Name: t.text, Field: field.text}, nil
		}
		return &Reference{Name: t.text}, nil

	case tokLParen:
		inner, err := p.comparison()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			if p.peek().kind == tokEOF {
				return nil, p.errorf(t, "unterminated parenthesis")
			}
			return nil, p.errorf(p.peek(), "expected %q", ")")
		}
		p.next()
		return inner, nil

	case tokEOF:
		return nil, p.errorf(t, "unexpected end of formula")
	}
	return nil, p.errorf(t, "unexpected token")
}

func (p *parser) call(name token) (Node, error) {
	fn, ok := Lookup(name.text)
	if !ok {
		return nil, p.errorf(name, "unknown function %q", name.text)
	}
	open := p.next()

	var args []Node
	if p.peek().kind != tokRParen {
		for {
			if p.peek().kind == tokEOF {
				return nil, p.errorf(open, "unterminated parenthesis")
			}
			arg, err := p.comparison()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
	}
	switch p.peek().kind {
	case tokRParen:
		p.next()
	case tokEOF:
		return nil, p.errorf(open, "unterminated parenthesis")
	default:
		return nil, p.errorf(p.peek(), "expected %q or %q", ",", ")")
	}

	if len(args) < fn.MinArgs {
		if len(args) == 0 {
			return nil, p.errorf(name, "function %s requires arguments", fn.Name)
		}
		return nil, p.errorf(name, "function %s requires at least %d argument(s), got %d", fn.Name, fn.MinArgs, len(args))
	}
	if fn.MaxArgs >= 0 && len(args) > fn.MaxArgs {
		return nil, p.errorf(name, "function %s accepts at most %d argument(s), got %d", fn.Name, fn.MaxArgs, len(args))
	}
	return &Call{Name: strings.ToLower(name.text), Args: args}, nil
}
