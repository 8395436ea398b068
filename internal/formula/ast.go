package formula

import (
	"strconv"
	"strings"
)

// Node is a parsed formula expression.
//
// Node is a sealed interface: only types in this package implement it.
type Node interface {
	node()
	String() string
}

// Literal is a numeric constant.
type Literal struct {
	Value float64
}

// Reference names a measurement item, a local name, or with Field set, a
// variable or joint stage of another item ("item.field").
type Reference struct {
	Name  string
	Field string
}

// Call is a function invocation. Name is always lowercase.
type Call struct {
	Name string
	Args []Node
}

// Unary is a prefix + or -.
type Unary struct {
	Op string
	X  Node
}

// Binary is an infix operation.
type Binary struct {
	Op    string
	Left  Node
	Right Node
}

func (Literal) node()   {}
func (Reference) node() {}
func (Call) node()      {}
func (Unary) node()     {}
func (Binary) node()    {}

func (l Literal) String() string {
	return strconv.FormatFloat(l.Value, 'g', -1, 64)
}

func (r Reference) String() string {
	if r.Field != "" {
		return r.Name + "." + r.Field
	}
	return r.Name
}

// IsBare reports whether the reference is a plain identifier.
func (r Reference) IsBare() bool {
	return r.Field == ""
}

func (c Call) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return c.Name + "(" + strings.Join(args, ",") + ")"
}

func (u Unary) String() string {
	return u.Op + u.X.String()
}

func (b Binary) String() string {
	return "(" + b.Left.String() + b.Op + b.Right.String() + ")"
}

// Use is one occurrence of a reference inside a formula.
type Use struct {
	Ref Reference

	// Aggregated is true when the reference is the sole argument of an
	// aggregate call such as avg(x).
	Aggregated bool
}

// Walk calls fn for every node in depth-first order. If fn returns false
// the children of that node are skipped.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch v := n.(type) {
	case *Call:
		for _, a := range v.Args {
			Walk(a, fn)
		}
	case *Unary:
		Walk(v.X, fn)
	case *Binary:
		Walk(v.Left, fn)
		Walk(v.Right, fn)
	}
}

// Uses returns every reference in n in source order. Duplicates are kept.
func Uses(n Node) []Use {
	var uses []Use
	Walk(n, func(n Node) bool {
		switch v := n.(type) {
		case *Reference:
			uses = append(uses, Use{Ref: *v})
		case *Call:
			if IsAggregateCall(v.Name, len(v.Args)) {
				if ref, ok := v.Args[0].(*Reference); ok {
					uses = append(uses, Use{Ref: *ref, Aggregated: true})
					return false
				}
			}
		}
		return true
	})
	return uses
}

// AggregateArgs returns the arguments of aggregate calls that are not a
// bare reference. Those are invalid: aggregates read a sample series, not
// a computed scalar.
func AggregateArgs(n Node) []*Call {
	var bad []*Call
	Walk(n, func(n Node) bool {
		c, ok := n.(*Call)
		if !ok || !IsAggregateCall(c.Name, len(c.Args)) {
			return true
		}
		ref, ok := c.Args[0].(*Reference)
		if !ok || !ref.IsBare() {
			bad = append(bad, c)
		}
		return true
	})
	return bad
}
