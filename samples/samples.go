// Package samples records small kernels used by the generators' tests, the
// benchmarks and the lcc list command.
package samples

import (
	"sort"

	"github.com/gogpu/lcgen/ir"
)

// Recorder records a sample into arena and returns its entry kernel.
type Recorder func(arena *ir.Arena) (*ir.Function, error)

var registry = map[string]Recorder{
	"saxpy":           Saxpy,
	"callable_chain":  CallableChain,
	"two_ray_queries": TwoRayQueries,
}

// Names returns the registered sample names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the recorder registered under name.
func Lookup(name string) (Recorder, bool) {
	r, ok := registry[name]
	return r, ok
}

// Saxpy records y[i] = alpha * x[i] + y[i] over the dispatch x extent.
func Saxpy(arena *ir.Arena) (*ir.Function, error) {
	b := arena.NewKernel("saxpy")
	alpha := b.Argument(ir.Float())
	x := b.BufferArgument(ir.Float())
	y := b.BufferArgument(ir.Float())
	i := b.Local(ir.Uint())
	b.Assign(b.Ref(i), b.Swizzle(b.Ref(b.DispatchID()), 0))
	ax := b.Binary(ir.Float(), ir.BinaryMul, b.Ref(alpha), b.Call(ir.Float(), ir.CallBufferRead, b.Ref(x), b.Ref(i)))
	sum := b.Binary(ir.Float(), ir.BinaryAdd, ax, b.Call(ir.Float(), ir.CallBufferRead, b.Ref(y), b.Ref(i)))
	b.Expr(b.Call(nil, ir.CallBufferWrite, b.Ref(y), b.Ref(i), sum))
	return b.Finish()
}

// CallableChain records a kernel that calls scale, which itself calls
// add_one through a reference, so usage has to flow through two levels.
func CallableChain(arena *ir.Arena) (*ir.Function, error) {
	ab := arena.NewCallable("add_one")
	r := ab.Reference(ir.Float())
	ab.Assign(ab.Ref(r), ab.Binary(ir.Float(), ir.BinaryAdd, ab.Ref(r), ab.Literal(ir.LiteralFloat(1))))
	addOne, err := ab.Finish()
	if err != nil {
		return nil, err
	}

	sb := arena.NewCallable("scale")
	v := sb.Reference(ir.Float())
	k := sb.Argument(ir.Float())
	sb.Expr(sb.CallCustom(addOne, sb.Ref(v)))
	sb.Assign(sb.Ref(v), sb.Binary(ir.Float(), ir.BinaryMul, sb.Ref(v), sb.Ref(k)))
	sb.Return(sb.Ref(v))
	scale, err := sb.Finish()
	if err != nil {
		return nil, err
	}

	b := arena.NewKernel("callable_chain")
	buf := b.BufferArgument(ir.Float())
	i := b.Local(ir.Uint())
	x := b.Local(ir.Float())
	b.Assign(b.Ref(i), b.Swizzle(b.Ref(b.DispatchID()), 0))
	b.Assign(b.Ref(x), b.Call(ir.Float(), ir.CallBufferRead, b.Ref(buf), b.Ref(i)))
	b.Expr(b.CallCustom(scale, b.Ref(x), b.Literal(ir.LiteralFloat(0.5))))
	b.Expr(b.Call(nil, ir.CallBufferWrite, b.Ref(buf), b.Ref(i), b.Ref(x)))
	return b.Finish()
}

// TwoRayQueryVars names the variables of the TwoRayQueries kernel that
// tests inspect.
type TwoRayQueryVars struct {
	// Hits is read and written both inside the candidate bodies and after
	// the queries.
	Hits ir.Variable

	// Distance is only referenced inside the first query's triangle body.
	Distance ir.Variable

	Image ir.Variable
	Accel ir.Variable
}

// TwoRayQueries records a kernel with two sequential ray queries that count
// accepted candidates into a shared counter.
func TwoRayQueries(arena *ir.Arena) (*ir.Function, error) {
	f, _, err := RecordTwoRayQueries(arena)
	return f, err
}

// RecordTwoRayQueries is TwoRayQueries, also returning the variables of
// interest.
func RecordTwoRayQueries(arena *ir.Arena) (*ir.Function, TwoRayQueryVars, error) {
	b := arena.NewKernel("two_ray_queries")
	b.SetBlockSize(16, 16, 1)
	vars := TwoRayQueryVars{
		Accel: b.AccelArgument(),
		Image: b.BufferArgument(ir.Uint()),
	}
	ray := b.Local(ir.RayType())
	vars.Hits = b.Local(ir.Uint())
	vars.Distance = b.Local(ir.Float())
	all := b.Local(ir.RayQueryAllType())
	anyHit := b.Local(ir.RayQueryAnyType())

	b.Assign(b.Ref(all), b.Call(ir.RayQueryAllType(), ir.CallQueryAll, b.Ref(vars.Accel), b.Ref(ray)))
	b.RayQuery(b.Ref(all), func() {
		hit := b.Call(ir.TriangleHitType(), ir.CallRayQueryTriangleCandidateHit)
		b.Assign(b.Ref(vars.Distance), b.Member(hit, 3))
		b.If(b.Binary(ir.Bool(), ir.BinaryLess, b.Ref(vars.Distance), b.Literal(ir.LiteralFloat(100))), func() {
			b.Assign(b.Ref(vars.Hits), b.Binary(ir.Uint(), ir.BinaryAdd, b.Ref(vars.Hits), b.Literal(ir.LiteralUint(1))))
			b.Expr(b.Call(nil, ir.CallRayQueryCommitTriangle))
		}, nil)
	}, func() {
		b.Expr(b.Call(nil, ir.CallRayQueryTerminate))
	})

	b.Assign(b.Ref(anyHit), b.Call(ir.RayQueryAnyType(), ir.CallQueryAny, b.Ref(vars.Accel), b.Ref(ray)))
	b.RayQuery(b.Ref(anyHit), func() {
		b.Assign(b.Ref(vars.Hits), b.Binary(ir.Uint(), ir.BinaryAdd, b.Ref(vars.Hits), b.Literal(ir.LiteralUint(1))))
		b.Expr(b.Call(nil, ir.CallRayQueryCommitTriangle))
	}, nil)

	did := b.Swizzle(b.Ref(b.DispatchID()), 0)
	b.Expr(b.Call(nil, ir.CallBufferWrite, b.Ref(vars.Image), did, b.Ref(vars.Hits)))
	f, err := b.Finish()
	return f, vars, err
}
