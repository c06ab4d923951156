package ir

import "maps"

// ResolveUsage brings the usage map of f to a fixed point over its call
// graph. Every custom call reachable from the body is re-marked with the
// final per-parameter usage of its callee until no variable usage changes.
//
// Callees are finished before they can be called, so their usage is final
// and a single extra pass normally suffices. Builder.Finish calls this.
func ResolveUsage(f *Function) {
	for {
		before := maps.Clone(f.usages)
		InspectStatement(f.body, func(s Statement) bool {
			for _, e := range StatementExpressions(s) {
				InspectExpression(e, func(e Expression) bool {
					if call, ok := e.(*CallExpr); ok && !call.IsBuiltin() && call.Usage() != UsageNone {
						call.markArguments()
					}
					return true
				})
			}
			return true
		})
		if maps.Equal(before, f.usages) {
			return
		}
	}
}

// propagateBuiltinOps unions the built-in sets of every reachable callable
// into f. Callees are finished, so their propagated sets are already closed.
func propagateBuiltinOps(f *Function) {
	ops := f.directOps
	for _, callee := range f.Callables() {
		ops.Union(callee.propagatedOps)
	}
	f.propagatedOps = ops
}

// ReachableCallables returns every callable reachable from f, callees before
// callers, each once.
func ReachableCallables(f *Function) []*Function {
	var out []*Function
	seen := make(map[FunctionHandle]bool)
	var visit func(*Function)
	visit = func(g *Function) {
		for _, callee := range g.Callables() {
			if seen[callee.handle] {
				continue
			}
			seen[callee.handle] = true
			visit(callee)
			out = append(out, callee)
		}
	}
	visit(f)
	return out
}
