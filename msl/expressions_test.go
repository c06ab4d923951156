package msl

import (
	"fmt"
	"strings"
	"testing"

	"github.com/gogpu/lcgen/ir"
	"github.com/gogpu/lcgen/samples"
)

func TestBuiltinCalls(t *testing.T) {
	f3 := ir.Vector(ir.Float(), 3)
	tests := []struct {
		name   string
		record func(b *ir.Builder, x, y ir.Variable) ir.Expression
		want   string
	}{
		{"lerp", func(b *ir.Builder, x, y ir.Variable) ir.Expression {
			return b.Call(f3, ir.CallLerp, b.Ref(x), b.Ref(y), b.Literal(ir.LiteralFloat(0.5)))
		}, "metal::mix(X, Y, 0.5f)"},
		{"dot", func(b *ir.Builder, x, y ir.Variable) ir.Expression {
			return b.Call(ir.Float(), ir.CallDot, b.Ref(x), b.Ref(y))
		}, "metal::dot(X, Y)"},
		{"length squared", func(b *ir.Builder, x, _ ir.Variable) ir.Expression {
			return b.Call(ir.Float(), ir.CallLengthSquared, b.Ref(x))
		}, "metal::length_squared(X)"},
		{"float mod", func(b *ir.Builder, x, y ir.Variable) ir.Expression {
			return b.Binary(f3, ir.BinaryMod, b.Ref(x), b.Ref(y))
		}, "metal::fmod(X, Y)"},
		{"swizzle", func(b *ir.Builder, x, _ ir.Variable) ir.Expression {
			return b.Swizzle(b.Ref(x), 2, 1, 0)
		}, "X.zyx"},
		{"make vector", func(b *ir.Builder, x, _ ir.Variable) ir.Expression {
			return b.Call(ir.Vector(ir.Float(), 4), ir.CallMakeVector, b.Ref(x), b.Literal(ir.LiteralFloat(1)))
		}, "metal::float4(X, 1.0f)"},
		{"bit cast", func(b *ir.Builder, x, _ ir.Variable) ir.Expression {
			return b.Cast(ir.Vector(ir.Uint(), 3), ir.CastBitwise, b.Ref(x))
		}, "as_type<metal::uint3>(X)"},
		{"static cast", func(b *ir.Builder, x, _ ir.Variable) ir.Expression {
			return b.Cast(ir.Vector(ir.Int(), 3), ir.CastStatic, b.Ref(x))
		}, "static_cast<metal::int3>(X)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := ir.NewArena()
			var x, y ir.Variable
			f := record(t, a, func(b *ir.Builder) {
				x = b.Local(f3)
				y = b.Local(f3)
				b.Expr(tt.record(b, x, y))
			})
			out, _ := compileKernel(t, f)
			want := strings.NewReplacer(
				"X", fmt.Sprintf("v%d", x.UID()),
				"Y", fmt.Sprintf("v%d", y.UID()),
			).Replace(tt.want)
			mustContain(t, out, "    "+want+";\n")
		})
	}
}

func TestIntegerModulo(t *testing.T) {
	a := ir.NewArena()
	var n ir.Variable
	f := record(t, a, func(b *ir.Builder) {
		n = b.Local(ir.Int())
		b.Assign(b.Ref(n), b.Binary(ir.Int(), ir.BinaryMod, b.Ref(n), b.Literal(ir.LiteralInt(3))))
	})
	out, _ := compileKernel(t, f)
	v := fmt.Sprintf("v%d", n.UID())
	mustContain(t, out, v+" = ("+v+" % 3);")
}

func TestAtomics(t *testing.T) {
	a := ir.NewArena()
	var buf, counter ir.Variable
	f := record(t, a, func(b *ir.Builder) {
		buf = b.BufferArgument(ir.Uint())
		counter = b.Shared(ir.Int())
		old := b.Local(ir.Uint())
		b.Assign(b.Ref(old), b.Call(ir.Uint(), ir.CallAtomicFetchAdd, b.Ref(buf), b.Literal(ir.LiteralUint(0)), b.Literal(ir.LiteralUint(1))))
		b.Expr(b.Call(ir.Int(), ir.CallAtomicFetchMax, b.Ref(counter), b.Literal(ir.LiteralInt(3))))
		b.Expr(b.Call(nil, ir.CallSynchronizeBlock))
		b.Assign(b.Ref(old), b.Call(ir.Uint(), ir.CallAtomicCompareExchange, b.Ref(buf), b.Literal(ir.LiteralUint(1)), b.Ref(old), b.Literal(ir.LiteralUint(7))))
	})
	out, _ := compileKernel(t, f)
	bn := fmt.Sprintf("b%d", buf.UID())
	sn := fmt.Sprintf("s%d", counter.UID())
	mustContain(t, out,
		"device uint *"+bn+" [[buffer(0)]],",
		"    threadgroup int "+sn+";\n",
		"metal::atomic_fetch_add_explicit(reinterpret_cast<device metal::atomic_uint *>(&"+bn+"[0u]), 1u, metal::memory_order_relaxed)",
		"    metal::atomic_fetch_max_explicit(reinterpret_cast<threadgroup metal::atomic_int *>(&"+sn+"), 3, metal::memory_order_relaxed);\n",
		"    metal::threadgroup_barrier(metal::mem_flags::mem_threadgroup);\n",
		"template <typename A, typename T>\ninline T _lc_atomic_compare_exchange(A object, T cmp, T value) {",
		"_lc_atomic_compare_exchange(reinterpret_cast<device metal::atomic_uint *>(&"+bn+"[1u]), v",
	)
	if strings.Index(out, "_lc_atomic_compare_exchange(A") > strings.Index(out, "kernel void") {
		t.Error("compare-exchange helper declared after the kernel")
	}
}

func TestCompareExchangeHelperOnlyWhenUsed(t *testing.T) {
	f, err := samples.Saxpy(ir.NewArena())
	if err != nil {
		t.Fatal(err)
	}
	out, _ := compileKernel(t, f)
	if strings.Contains(out, "_lc_atomic_compare_exchange") {
		t.Error("unused compare-exchange helper emitted")
	}
}

func TestCallableChain(t *testing.T) {
	f, err := samples.CallableChain(ir.NewArena())
	if err != nil {
		t.Fatal(err)
	}
	scale := f.Callables()[0]
	addOne := scale.Callables()[0]
	out, _ := compileKernel(t, f)

	ref := addOne.Arguments()[0]
	v, k := scale.Arguments()[0], scale.Arguments()[1]
	addOneDecl := fmt.Sprintf("inline void custom_%s(thread float &r%d) {\n", ir.HashString(addOne.Hash()), ref.UID())
	scaleDecl := fmt.Sprintf("inline float custom_%s(thread float &r%d, float v%d) {\n", ir.HashString(scale.Hash()), v.UID(), k.UID())
	mustContain(t, out,
		addOneDecl,
		scaleDecl,
		fmt.Sprintf("    custom_%s(r%d);\n", ir.HashString(addOne.Hash()), v.UID()),
		fmt.Sprintf("    return r%d;\n}\n", v.UID()),
	)
	a, s, kern := strings.Index(out, addOneDecl), strings.Index(out, scaleDecl), strings.Index(out, "kernel void")
	if !(a < s && s < kern) {
		t.Errorf("declaration order add_one=%d scale=%d kernel=%d, want callees first", a, s, kern)
	}
}

func TestCallableBuiltinsPropagate(t *testing.T) {
	a := ir.NewArena()
	cb := a.NewCallable("lane")
	cb.Return(cb.Swizzle(cb.Ref(cb.ThreadID()), 0))
	lane, err := cb.Finish()
	if err != nil {
		t.Fatal(err)
	}
	ob := a.NewCallable("outer")
	ob.Return(ob.Binary(ir.Uint(), ir.BinaryMul, ob.CallCustom(lane), ob.Literal(ir.LiteralUint(2))))
	outer, err := ob.Finish()
	if err != nil {
		t.Fatal(err)
	}
	pb := a.NewCallable("one")
	pb.Return(pb.Literal(ir.LiteralUint(1)))
	one, err := pb.Finish()
	if err != nil {
		t.Fatal(err)
	}

	f := record(t, a, func(b *ir.Builder) {
		x := b.Local(ir.Uint())
		b.Assign(b.Ref(x), b.Binary(ir.Uint(), ir.BinaryAdd, b.CallCustom(outer), b.CallCustom(one)))
	})
	out, _ := compileKernel(t, f)
	builtins := "metal::uint3 tid, metal::uint3 bid, metal::uint3 did, metal::uint3 ls"
	mustContain(t, out,
		"inline uint custom_"+ir.HashString(lane.Hash())+"("+builtins+") {\n    return tid.x;\n}\n",
		"inline uint custom_"+ir.HashString(outer.Hash())+"("+builtins+") {\n    return (custom_"+ir.HashString(lane.Hash())+"(tid, bid, did, ls) * 2u);\n}\n",
		"inline uint custom_"+ir.HashString(one.Hash())+"() {\n",
		"(custom_"+ir.HashString(outer.Hash())+"(tid, bid, did, ls) + custom_"+ir.HashString(one.Hash())+"())",
	)
}

func TestUnsupportedExpressions(t *testing.T) {
	tests := []struct {
		name   string
		record func(b *ir.Builder, v ir.Variable) ir.Expression
	}{
		{"cpu custom", func(b *ir.Builder, v ir.Variable) ir.Expression { return b.CPUCustom(ir.Float(), 7, b.Ref(v)) }},
		{"gpu custom", func(b *ir.Builder, v ir.Variable) ir.Expression { return b.GPUCustom(ir.Float(), "f(x)", b.Ref(v)) }},
		{"inverse", func(b *ir.Builder, v ir.Variable) ir.Expression {
			m := b.Call(ir.Matrix(2), ir.CallMakeMatrix, b.Ref(v), b.Ref(v), b.Ref(v), b.Ref(v))
			return b.Call(ir.Matrix(2), ir.CallInverse, m)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := ir.NewArena()
			f := record(t, a, func(b *ir.Builder) {
				v := b.Local(ir.Float())
				b.Expr(tt.record(b, v))
			})
			if _, _, err := Compile(a, f.Handle(), DefaultOptions()); !ir.IsKind(err, ir.ErrNotImplemented) {
				t.Errorf("Compile() error = %v, want NotImplemented", err)
			}
		})
	}
}

func TestNestedUnaryParenthesized(t *testing.T) {
	a := ir.NewArena()
	var x, y, z ir.Variable
	f := record(t, a, func(b *ir.Builder) {
		x = b.Local(ir.Int())
		y = b.Local(ir.Int())
		z = b.Local(ir.Int())
		b.Assign(b.Ref(y), b.Unary(ir.Int(), ir.UnaryMinus, b.Unary(ir.Int(), ir.UnaryMinus, b.Ref(x))))
		b.Assign(b.Ref(z), b.Unary(ir.Int(), ir.UnaryMinus, b.Literal(ir.LiteralInt(-5))))
	})
	out, _ := compileKernel(t, f)
	mustContain(t, out,
		fmt.Sprintf("v%d = -(-(v%d));", y.UID(), x.UID()),
		fmt.Sprintf("v%d = -(-5);", z.UID()),
	)
	for _, bad := range []string{"--v", "--5"} {
		if strings.Contains(out, bad) {
			t.Errorf("output contains %q\n%s", bad, out)
		}
	}
}

func TestIdenticalCallablesShareDefinition(t *testing.T) {
	a := ir.NewArena()
	var callees []*ir.Function
	for _, name := range []string{"double", "twice"} {
		cb := a.NewCallable(name)
		x := cb.Argument(ir.Float())
		cb.Return(cb.Binary(ir.Float(), ir.BinaryMul, cb.Ref(x), cb.Literal(ir.LiteralFloat(2))))
		c, err := cb.Finish()
		if err != nil {
			t.Fatal(err)
		}
		callees = append(callees, c)
	}
	if callees[0].Hash() != callees[1].Hash() {
		t.Fatal("identical callables hash differently")
	}
	f := record(t, a, func(b *ir.Builder) {
		x := b.Local(ir.Float())
		for _, c := range callees {
			b.Assign(b.Ref(x), b.CallCustom(c, b.Ref(x)))
		}
	})
	out, _ := compileKernel(t, f)
	decl := "inline float custom_" + ir.HashString(callees[0].Hash()) + "("
	if n := strings.Count(out, decl); n != 1 {
		t.Errorf("identical callables defined %d times, want 1\n%s", n, out)
	}
}
