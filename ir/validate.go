package ir

import (
	"strings"

	"github.com/pkg/errors"
)

// Validate checks the function with handle h and every callable it reaches:
// the call graph must be acyclic and every frozen hash must still match a
// fresh recomputation.
func Validate(arena *Arena, h FunctionHandle) error {
	f := arena.Function(h)
	if f == nil {
		return NewError(ErrStructural, "no function with handle %d", h)
	}
	if !f.finished {
		return NewErrorWithContext(ErrStructural, f.String(), "function is not finished")
	}
	if err := checkAcyclic(f); err != nil {
		return err
	}
	for _, g := range append(ReachableCallables(f), f) {
		if err := checkHashes(g); err != nil {
			return errors.Wrapf(err, "validating %v", g)
		}
	}
	return nil
}

// checkAcyclic walks the call graph depth-first and reports the first back edge.
func checkAcyclic(f *Function) error {
	const (
		white = iota
		grey
		black
	)
	color := make(map[FunctionHandle]int)
	var path []string
	var visit func(*Function) error
	visit = func(g *Function) error {
		color[g.handle] = grey
		path = append(path, g.String())
		for _, callee := range g.Callables() {
			switch color[callee.handle] {
			case grey:
				return NewErrorWithContext(ErrConsistency, f.String(),
					"call cycle %s -> %v", strings.Join(path, " -> "), callee)
			case white:
				if err := visit(callee); err != nil {
					return err
				}
			}
		}
		path = path[:len(path)-1]
		color[g.handle] = black
		return nil
	}
	return visit(f)
}

func checkHashes(f *Function) error {
	var err error
	InspectStatement(f.body, func(s Statement) bool {
		if err != nil {
			return false
		}
		if got := hash64(uint64(s.Tag()), s.computeHash()); got != s.Hash() {
			err = NewErrorWithContext(ErrConsistency, s.Tag().String()+" statement",
				"hash %s changed to %s", HashString(s.Hash()), HashString(got))
			return false
		}
		for _, e := range StatementExpressions(s) {
			InspectExpression(e, func(e Expression) bool {
				if err != nil {
					return false
				}
				if got := structuralHash(e); got != e.Hash() {
					err = NewErrorWithContext(ErrConsistency, e.Tag().String()+" expression",
						"hash %s changed to %s", HashString(e.Hash()), HashString(got))
					return false
				}
				return true
			})
		}
		return true
	})
	if err != nil {
		return err
	}
	if got := f.computeHash(); got != f.hash {
		return NewErrorWithContext(ErrConsistency, f.String(),
			"function hash %s changed to %s", HashString(f.hash), HashString(got))
	}
	return nil
}
