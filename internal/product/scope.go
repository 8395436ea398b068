package product

import (
	"github.com/roach88/gauge/internal/formula"
)

type nameKind int

const (
	kindScalar nameKind = iota
	kindSeries
)

// scope is the set of names visible to one formula: local names declared
// so far in the item, plus every item before position pos.
type scope struct {
	pos    int
	nameID string
	locals map[string]nameKind
}

// resolve checks every reference in f and records cross-item edges.
func (v *validator) resolve(sc *scope, field string, f *formula.Formula) {
	for _, call := range formula.AggregateArgs(f.Root) {
		v.add(sc.nameID, field, ErrAggregateArgument,
			"%s() takes a measurement item or sample series by name, got %s", call.Name, call.Args[0])
	}

	for _, use := range f.Uses() {
		ref := use.Ref
		if !ref.IsBare() {
			v.dotRef(sc, field, ref)
			continue
		}
		if kind, ok := sc.locals[ref.Name]; ok {
			switch {
			case kind == kindSeries && !use.Aggregated:
				v.add(sc.nameID, field, ErrSeriesAsScalar,
					"%q is a per-sample series here; aggregate it, e.g. avg(%s)", ref.Name, ref.Name)
			case kind == kindScalar && use.Aggregated:
				v.add(sc.nameID, field, ErrAggregateArgument,
					"%q is a single value and cannot be aggregated", ref.Name)
			}
			continue
		}
		pos, ok := v.itemRef(sc, field, ref.Name)
		if ok && use.Aggregated {
			if src := v.items[pos]; src != nil && src.Nature.Kind() == NatureQualitative {
				v.add(sc.nameID, field, ErrAggregateArgument, "item %q is qualitative and has no numeric samples", ref.Name)
			}
		}
	}
}

// dotRef checks a reference of the form item.name.
func (v *validator) dotRef(sc *scope, field string, ref formula.Reference) {
	pos, ok := v.itemRef(sc, field, ref.Name)
	if !ok {
		return
	}
	if target := v.items[pos]; target != nil && !target.Exports(ref.Field) {
		v.addRef(sc.nameID, field, ErrUndefinedReference, ref.String(),
			"item %q has no variable or joint formula named %q", ref.Name, ref.Field)
	}
}

// itemRef resolves name as a measurement item declared before sc.pos.
func (v *validator) itemRef(sc *scope, field, name string) (int, bool) {
	pos, known := v.position[name]
	switch {
	case !known:
		v.addRef(sc.nameID, field, ErrUndefinedReference, name,
			"formula references %q, which is not a measurement item or a name declared before this formula", name)
		return 0, false
	case pos == sc.pos:
		v.addRef(sc.nameID, field, ErrForwardReference, name,
			"item %q cannot reference itself", name)
		return 0, false
	case pos > sc.pos:
		v.addRef(sc.nameID, field, ErrForwardReference, name,
			"formula references %q, which is declared after this item", name)
		return 0, false
	}
	v.addEdge(sc.nameID, name)
	return pos, true
}

func (v *validator) addEdge(from, to string) {
	for _, existing := range v.edges[from] {
		if existing == to {
			return
		}
	}
	v.edges[from] = append(v.edges[from], to)
}
