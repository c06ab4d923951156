package cuda

import (
	"slices"

	"github.com/gogpu/lcgen/ir"
)

// resourceAlignment is the alignment class resources sort under when
// ordering capture record fields.
const resourceAlignment = 16

type rayQueryEntry struct {
	stmt  *ir.RayQueryStmt
	owner *ir.Function
}

// outlineInfo is the capture classification of one ray query statement.
type outlineInfo struct {
	index    int
	locals   []ir.Variable
	captured []ir.Variable
}

// rayQueryLowering turns the candidate bodies of ray query statements into
// standalone device functions and rewrites each statement into a call to the
// traversal entry point. Discovery (preprocess) runs over the whole kernel
// before any outline is written, since the outline count is emitted as a
// define ahead of everything else.
type rayQueryLowering struct {
	w *Writer

	entries []rayQueryEntry
	index   map[*ir.RayQueryStmt]int
	visited map[uint64]bool
	owners  map[uint64]*ir.Function

	outlines     map[*ir.RayQueryStmt]*outlineInfo
	preprocessed bool
}

func newRayQueryLowering(w *Writer) *rayQueryLowering {
	return &rayQueryLowering{
		w:        w,
		index:    make(map[*ir.RayQueryStmt]int),
		visited:  make(map[uint64]bool),
		owners:   make(map[uint64]*ir.Function),
		outlines: make(map[*ir.RayQueryStmt]*outlineInfo),
	}
}

// preprocess collects every ray query statement reachable from f in
// encounter order and writes the outline count.
func (r *rayQueryLowering) preprocess(f *ir.Function) {
	r.discover(f)
	r.preprocessed = true
	r.w.writeLine("#define LUISA_RAY_QUERY_IMPL_COUNT %d", len(r.entries))
}

func (r *rayQueryLowering) discover(f *ir.Function) {
	// Keyed by hash like the emitted callables, so identical callables
	// contribute their queries once.
	if r.visited[f.Hash()] {
		return
	}
	r.visited[f.Hash()] = true
	r.owners[f.Hash()] = f
	ir.InspectStatement(f.Body(), func(s ir.Statement) bool {
		for _, e := range ir.StatementExpressions(s) {
			ir.InspectExpression(e, func(e ir.Expression) bool {
				if call, ok := e.(*ir.CallExpr); ok && !call.IsBuiltin() {
					r.discover(call.Custom())
				}
				return true
			})
		}
		rq, ok := s.(*ir.RayQueryStmt)
		if !ok {
			return true
		}
		if _, seen := r.index[rq]; !seen {
			r.index[rq] = len(r.entries)
			r.entries = append(r.entries, rayQueryEntry{stmt: rq, owner: f})
		}
		// Candidate bodies are outlined, not searched.
		return false
	})
}

func (r *rayQueryLowering) count() int { return len(r.entries) }

// representative returns the function discovery walked for f's hash. Its
// statements are the ones that own outline indices.
func (r *rayQueryLowering) representative(f *ir.Function) *ir.Function {
	if g, ok := r.owners[f.Hash()]; ok {
		return g
	}
	return f
}

// outline writes the capture records and candidate functions of every ray
// query owned by f. Statements that are already outlined are skipped.
func (r *rayQueryLowering) outline(f *ir.Function) error {
	if !r.preprocessed {
		return ir.NewErrorWithContext(ir.ErrConsistency, f.String(), "ray queries outlined before discovery")
	}
	for i, e := range r.entries {
		if e.owner != f {
			continue
		}
		if _, done := r.outlines[e.stmt]; done {
			continue
		}
		info := r.partition(e.owner, e.stmt)
		info.index = i
		if err := r.writeOutline(e.stmt, info); err != nil {
			return err
		}
		r.outlines[e.stmt] = info
	}
	return nil
}

// partition classifies the variables of owner relative to the candidate
// bodies of stmt. A local is private to the outlined functions when it is
// never referenced outside them; everything else referenced inside is
// captured, ordered by descending alignment and then by first reference.
func (r *rayQueryLowering) partition(owner *ir.Function, stmt *ir.RayQueryStmt) *outlineInfo {
	var within []ir.Variable
	inWithin := make(map[uint32]bool)
	without := make(map[uint32]bool)

	var walk func(s ir.Statement, inside bool)
	walk = func(s ir.Statement, inside bool) {
		for _, e := range ir.StatementExpressions(s) {
			ir.InspectExpression(e, func(e ir.Expression) bool {
				ref, ok := e.(*ir.RefExpr)
				if !ok {
					return true
				}
				v := ref.Variable()
				switch {
				case !inside:
					without[v.UID()] = true
				case !inWithin[v.UID()]:
					inWithin[v.UID()] = true
					within = append(within, v)
				}
				return true
			})
		}
		if scope, ok := s.(*ir.ScopeStmt); ok {
			for _, child := range scope.Statements() {
				walk(child, inside)
			}
			return
		}
		if s == ir.Statement(stmt) {
			inside = true
		}
		for _, scope := range ir.StatementScopes(s) {
			walk(scope, inside)
		}
	}
	walk(owner.Body(), false)

	excluded := func(v ir.Variable) bool {
		return v.IsBuiltin() || ir.IsRayQueryType(v.Type())
	}
	info := &outlineInfo{}
	isLocal := make(map[uint32]bool)
	for _, v := range owner.LocalVariables() {
		if without[v.UID()] || excluded(v) {
			continue
		}
		isLocal[v.UID()] = true
		info.locals = append(info.locals, v)
	}
	for _, v := range within {
		if isLocal[v.UID()] || excluded(v) {
			continue
		}
		info.captured = append(info.captured, v)
	}
	slices.SortStableFunc(info.captured, func(a, b ir.Variable) int {
		return int(captureAlignment(b)) - int(captureAlignment(a))
	})
	return info
}

func captureAlignment(v ir.Variable) uint32 {
	if v.IsResource() {
		return resourceAlignment
	}
	return v.Type().Alignment()
}

// recordField declares v as a capture record member.
func (r *rayQueryLowering) recordField(v ir.Variable) string {
	if v.Tag() == ir.VarBuffer {
		elem := typeName(v.Type().Element())
		if r.w.fn.VariableUsage(v.UID()).IsReadOnly() {
			elem = "const " + elem
		}
		return "LCBuffer<" + elem + "> " + variableName(v)
	}
	return typeName(v.Type()) + " " + variableName(v)
}

func (r *rayQueryLowering) writeOutline(stmt *ir.RayQueryStmt, info *outlineInfo) error {
	w := r.w
	w.write("struct LCRayQueryCtx%d {", info.index)
	for _, v := range info.captured {
		w.write("\n  %s;", r.recordField(v))
	}
	w.write("\n};\n\n")

	bodies := []struct {
		decl   string
		result string
		body   *ir.ScopeStmt
	}{
		{"LUISA_DECL_RAY_QUERY_TRIANGLE_IMPL", "LCTriangleIntersectionResult", stmt.OnTriangleCandidate()},
		{"LUISA_DECL_RAY_QUERY_PROCEDURAL_IMPL", "LCProceduralIntersectionResult", stmt.OnProceduralCandidate()},
	}
	for _, b := range bodies {
		w.write("%s(%d) {\n", b.decl, info.index)
		w.write("  auto ctx = static_cast<LCRayQueryCtx%d *>(ctx_in);\n", info.index)
		w.write("  %s result{};", b.result)
		w.writeBuiltins()
		w.write("\n")
		for _, v := range info.captured {
			w.write("  %s = ctx->%s;\n", w.variableDecl(v, false), variableName(v))
		}
		for _, v := range info.locals {
			if w.fn.VariableUsage(v.UID()) == ir.UsageNone {
				continue
			}
			w.write("  %s{};\n", w.variableDecl(v, false))
		}
		w.write("  { // intersection handling body\n")
		w.indent = 2
		for _, s := range b.body.Statements() {
			if s.Tag() == ir.StmtComment && !w.options.EmitComments {
				continue
			}
			w.writeIndent()
			if err := w.writeStatement(s); err != nil {
				return err
			}
			w.write("\n")
		}
		w.indent = 0
		w.write("  } // intersection handling body\n")
		for _, v := range info.captured {
			if v.IsResource() {
				continue
			}
			w.write("  ctx->%s = %s;\n", variableName(v), variableName(v))
		}
		w.write("  return result;\n}\n\n")
	}
	return nil
}

// lower replaces stmt at the current position with a capture record, the
// traversal call and the copy-back of captured values.
func (r *rayQueryLowering) lower(stmt *ir.RayQueryStmt) error {
	info, ok := r.outlines[stmt]
	if !ok {
		return ir.NewErrorWithContext(ir.ErrConsistency, "ray_query statement",
			"ray query lowered before outlining")
	}
	w := r.w
	w.write("{ // ray query #%d\n", info.index)
	w.indent++
	w.writeLine("LCRayQueryCtx%d ctx{", info.index)
	w.indent++
	for _, v := range info.captured {
		w.writeLine("%s,", variableName(v))
	}
	w.indent--
	w.writeLine("};")
	w.writeIndent()
	w.write("lc_ray_query_trace(")
	if err := w.writeExpression(stmt.Query()); err != nil {
		return err
	}
	w.write(", %d, &ctx);\n", info.index)
	for _, v := range info.captured {
		if v.IsResource() {
			continue
		}
		w.writeLine("%s = ctx.%s;", variableName(v), variableName(v))
	}
	w.indent--
	w.writeIndent()
	w.write("} // ray query #%d", info.index)
	return nil
}
