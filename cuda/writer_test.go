package cuda

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/lcgen/ir"
	"github.com/gogpu/lcgen/samples"
)

// =============================================================================
// Helpers
// =============================================================================

// record finishes a kernel recorded by body or fails the test.
func record(t *testing.T, a *ir.Arena, body func(b *ir.Builder)) *ir.Function {
	t.Helper()
	b := a.NewKernel("test")
	body(b)
	f, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	return f
}

// compileKernel compiles f with default options or fails the test.
func compileKernel(t *testing.T, f *ir.Function) (string, TranslationInfo) {
	t.Helper()
	out, info, err := Compile(f.Arena(), f.Handle(), DefaultOptions())
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	return out, info
}

func mustContain(t *testing.T, out string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q\n%s", want, out)
		}
	}
}

// =============================================================================
// Kernels and callables
// =============================================================================

func TestCompileSaxpy(t *testing.T) {
	f, err := samples.Saxpy(ir.NewArena())
	if err != nil {
		t.Fatal(err)
	}
	out, info := compileKernel(t, f)

	mustContain(t, out,
		"#define LC_BLOCK_SIZE lc_make_uint3(256, 1, 1)\n\n#include \"device_library.h\"\n\n",
		"extern \"C\" __global__ void kernel_main(",
		"\n    const lc_uint3 dispatch_size) {",
		"\n  constexpr auto bs = lc_block_size();",
		"\n  if (lc_any(did >= dispatch_size)) { return; }",
		"const LCBuffer<const lc_float> b",
		"const LCBuffer<lc_float> b",
		"lc_buffer_write(b",
		"}\n\n",
	)
	if strings.Contains(out, "LUISA_ENABLE_OPTIX") {
		t.Error("non ray tracing kernel enables OptiX")
	}
	want := TranslationInfo{
		EntryPoint: "kernel_main",
		BlockSize:  ir.DefaultBlockSize,
		BuiltinOps: []string{"buffer_read", "buffer_write"},
	}
	if diff := cmp.Diff(want, info); diff != "" {
		t.Errorf("TranslationInfo mismatch (-want +got):\n%s", diff)
	}
}

func TestEmitFunctionIdempotent(t *testing.T) {
	f, err := samples.CallableChain(ir.NewArena())
	if err != nil {
		t.Fatal(err)
	}
	w := NewWriter(f.Arena(), DefaultOptions())
	if err := w.EmitFunction(f.Handle()); err != nil {
		t.Fatalf("EmitFunction() error = %v", err)
	}
	first := w.String()
	if err := w.EmitFunction(f.Handle()); err != nil {
		t.Fatalf("second EmitFunction() error = %v", err)
	}
	if w.Len() != len(first) {
		t.Errorf("second EmitFunction() wrote %d bytes", w.Len()-len(first))
	}

	// Callables already written are skipped too.
	scale := f.Callables()[0]
	if err := w.EmitFunction(scale.Handle()); err != nil {
		t.Fatalf("EmitFunction(scale) error = %v", err)
	}
	if w.String() != first {
		t.Error("EmitFunction(scale) changed the output")
	}
}

func TestEmitIdempotent(t *testing.T) {
	f, err := samples.TwoRayQueries(ir.NewArena())
	if err != nil {
		t.Fatal(err)
	}
	w := NewWriter(f.Arena(), DefaultOptions())
	if err := w.Emit(f.Handle()); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	first, info := w.String(), w.Info()
	if err := w.Emit(f.Handle()); err != nil {
		t.Fatalf("second Emit() error = %v", err)
	}
	if w.Len() != len(first) {
		t.Errorf("second Emit() wrote %d bytes", w.Len()-len(first))
	}
	if diff := cmp.Diff(info, w.Info()); diff != "" {
		t.Errorf("second Emit() changed TranslationInfo (-first +second):\n%s", diff)
	}
}

// recordScaleBy records a callable returning its argument times k.
func recordScaleBy(t *testing.T, a *ir.Arena, name string, k float32) *ir.Function {
	t.Helper()
	cb := a.NewCallable(name)
	x := cb.Argument(ir.Float())
	cb.Return(cb.Binary(ir.Float(), ir.BinaryMul, cb.Ref(x), cb.Literal(ir.LiteralFloat(k))))
	f, err := cb.Finish()
	if err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	return f
}

func TestIdenticalCallablesShareDefinition(t *testing.T) {
	a := ir.NewArena()
	double := recordScaleBy(t, a, "double", 2)
	twice := recordScaleBy(t, a, "twice", 2)
	if double.Hash() != twice.Hash() {
		t.Fatalf("identical callables hash to %s and %s", ir.HashString(double.Hash()), ir.HashString(twice.Hash()))
	}
	f := record(t, a, func(b *ir.Builder) {
		x := b.Local(ir.Float())
		b.Assign(b.Ref(x), b.CallCustom(double, b.Ref(x)))
		b.Assign(b.Ref(x), b.CallCustom(twice, b.Ref(x)))
	})
	out, _ := compileKernel(t, f)
	decl := "inline __device__ lc_float custom_" + ir.HashString(double.Hash()) + "("
	if n := strings.Count(out, decl); n != 1 {
		t.Errorf("identical callables defined %d times, want 1\n%s", n, out)
	}
}

func TestCallableChainOrder(t *testing.T) {
	f, err := samples.CallableChain(ir.NewArena())
	if err != nil {
		t.Fatal(err)
	}
	scale := f.Callables()[0]
	addOne := scale.Callables()[0]
	out, _ := compileKernel(t, f)

	addOneDecl := "inline __device__ void custom_" + ir.HashString(addOne.Hash()) + "("
	scaleDecl := "inline __device__ lc_float custom_" + ir.HashString(scale.Hash()) + "("
	mustContain(t, out, addOneDecl, scaleDecl, ") noexcept {")

	a, s, k := strings.Index(out, addOneDecl), strings.Index(out, scaleDecl), strings.Index(out, "kernel_main")
	if !(a < s && s < k) {
		t.Errorf("declaration order add_one=%d scale=%d kernel=%d, want callees first", a, s, k)
	}
	if n := strings.Count(out, addOneDecl); n != 1 {
		t.Errorf("add_one declared %d times, want 1", n)
	}

	ref := addOne.Arguments()[0]
	mustContain(t, out, fmt.Sprintf("\n    lc_float &r%d) noexcept {", ref.UID()))
	mustContain(t, out, fmt.Sprintf("custom_%s(r%d);", ir.HashString(addOne.Hash()), scale.Arguments()[0].UID()))
}

func TestCallableBuiltinsOnlyWhenUsed(t *testing.T) {
	a := ir.NewArena()
	cb := a.NewCallable("lane")
	cb.Return(cb.Swizzle(cb.Ref(cb.ThreadID()), 0))
	lane, err := cb.Finish()
	if err != nil {
		t.Fatal(err)
	}
	plain := a.NewCallable("one")
	plain.Return(plain.Literal(ir.LiteralUint(1)))
	one, err := plain.Finish()
	if err != nil {
		t.Fatal(err)
	}

	w := NewWriter(a, DefaultOptions())
	if err := w.EmitFunction(one.Handle()); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(w.String(), "lc_thread_id()") {
		t.Errorf("callable without built-ins reconstructs them:\n%s", w.String())
	}
	if err := w.EmitFunction(lane.Handle()); err != nil {
		t.Fatal(err)
	}
	mustContain(t, w.String(), "const auto tid = lc_thread_id();", "return tid.x;")
}

func TestVariableDeclarations(t *testing.T) {
	a := ir.NewArena()
	var used, unused, shared ir.Variable
	f := record(t, a, func(b *ir.Builder) {
		used = b.Local(ir.Float())
		unused = b.Local(ir.Int())
		shared = b.Shared(ir.Array(ir.Float(), 64))
		b.Assign(b.Ref(used), b.Literal(ir.LiteralFloat(1)))
		b.Assign(b.Access(b.Ref(shared), b.Literal(ir.LiteralUint(0))), b.Ref(used))
	})
	out, _ := compileKernel(t, f)
	mustContain(t, out,
		fmt.Sprintf("\n  lc_float v%d{};", used.UID()),
		fmt.Sprintf("\n  __shared__ lc_array<lc_float, 64> s%d;", shared.UID()),
		fmt.Sprintf("s%d[0u] = v%d;", shared.UID(), used.UID()),
	)
	if strings.Contains(out, fmt.Sprintf("v%d", unused.UID())) {
		t.Errorf("unused local declared:\n%s", out)
	}
}

func TestStructDeclaration(t *testing.T) {
	st := ir.Struct(8, ir.Float(), ir.Vector(ir.Uint(), 2))
	a := ir.NewArena()
	var v ir.Variable
	f := record(t, a, func(b *ir.Builder) {
		v = b.Local(st)
		b.Assign(b.Member(b.Ref(v), 0), b.Literal(ir.LiteralFloat(2.5)))
	})
	out, _ := compileKernel(t, f)
	name := "S" + ir.HashString(st.Hash())
	mustContain(t, out,
		"struct alignas(8) "+name+" {\n  lc_float m0{};\n  lc_uint2 m1{};\n};\n",
		fmt.Sprintf("v%d.m0 = 2.5f;", v.UID()),
	)
	if n := strings.Count(out, "struct alignas(8) "+name); n != 1 {
		t.Errorf("struct declared %d times, want 1", n)
	}
}

func TestIntrinsicStructsNotDeclared(t *testing.T) {
	a := ir.NewArena()
	f := record(t, a, func(b *ir.Builder) {
		r := b.Local(ir.RayType())
		b.Assign(b.Member(b.Ref(r), 1), b.Literal(ir.LiteralFloat(0)))
	})
	out, _ := compileKernel(t, f)
	mustContain(t, out, "LCRay v")
	if strings.Contains(out, "struct alignas(16) S") {
		t.Errorf("intrinsic ray structure declared:\n%s", out)
	}
}

// =============================================================================
// Literals and constants
// =============================================================================

func TestFormatLiteral(t *testing.T) {
	tests := []struct {
		name  string
		value ir.LiteralValue
		want  string
	}{
		{"bool", ir.LiteralBool(true), "true"},
		{"int", ir.LiteralInt(-3), "-3"},
		{"uint", ir.LiteralUint(7), "7u"},
		{"whole float", ir.LiteralFloat(2), "2.0f"},
		{"fraction", ir.LiteralFloat(0.25), "0.25f"},
		{"exponent", ir.LiteralFloat(1e20), "1e+20f"},
		{"+inf", ir.LiteralFloat(math.Inf(1)), " __int_as_float(0x7f800000)"},
		{"-inf", ir.LiteralFloat(math.Inf(-1)), " __int_as_float(0xff800000)"},
		{"vector", ir.LiteralVector{Components: []ir.LiteralValue{ir.LiteralInt(1), ir.LiteralInt(2), ir.LiteralInt(3)}}, "lc_make_int3(1, 2, 3)"},
		{"matrix", ir.LiteralMatrix{Dim: 2, Elements: []float32{1, 2, 3, 4}}, "lc_make_float2x2(1.0f, 2.0f, 3.0f, 4.0f)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatLiteral(tt.value)
			if err != nil {
				t.Fatalf("formatLiteral() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("formatLiteral() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNaNLiteralIsFatal(t *testing.T) {
	a := ir.NewArena()
	var v ir.Variable
	f := record(t, a, func(b *ir.Builder) {
		v = b.Local(ir.Float())
		b.Assign(b.Ref(v), b.Literal(ir.LiteralFloat(math.NaN())))
	})

	out, _, err := Compile(a, f.Handle(), DefaultOptions())
	if !ir.IsKind(err, ir.ErrNumeric) {
		t.Fatalf("Compile() error = %v, want NumericError", err)
	}
	if out != "" {
		t.Errorf("Compile() returned text on error")
	}

	w := NewWriter(a, DefaultOptions())
	if err := w.EmitFunction(f.Handle()); !ir.IsKind(err, ir.ErrNumeric) {
		t.Fatalf("EmitFunction() error = %v, want NumericError", err)
	}
	want := fmt.Sprintf("v%d = ", v.UID())
	if !strings.HasSuffix(w.String(), want) {
		t.Errorf("output after NaN ends with %q, want the literal dropped after %q",
			w.String()[max(0, w.Len()-20):], want)
	}

	vec := ir.LiteralVector{Components: []ir.LiteralValue{ir.LiteralFloat(1), ir.LiteralFloat(math.NaN())}}
	if s, err := formatLiteral(vec); err == nil || s != "" {
		t.Errorf("formatLiteral(NaN vector) = %q, %v; want no text and an error", s, err)
	}
}

func TestConstantTable(t *testing.T) {
	values := make([]ir.LiteralValue, 20)
	for i := range values {
		values[i] = ir.LiteralUint(uint32(i))
	}
	data, err := ir.NewConstantData(values...)
	if err != nil {
		t.Fatal(err)
	}
	a := ir.NewArena()
	f := record(t, a, func(b *ir.Builder) {
		x := b.Local(ir.Uint())
		b.Assign(b.Ref(x), b.Access(b.Constant(data), b.Literal(ir.LiteralUint(3))))
		b.Assign(b.Ref(x), b.Access(b.Constant(data), b.Ref(x)))
	})
	out, _ := compileKernel(t, f)
	name := "c" + ir.HashString(data.Hash())
	mustContain(t, out,
		"__constant__ LC_CONSTANT lc_array<lc_uint, 20> "+name+"{\n    0u, 1u,",
		", 15u, \n    16u, 17u, 18u, 19u};\n",
		name+"[3u]",
	)
	if n := strings.Count(out, "__constant__ LC_CONSTANT"); n != 1 {
		t.Errorf("constant declared %d times, want 1", n)
	}
}

// =============================================================================
// Statements
// =============================================================================

func TestStatements(t *testing.T) {
	a := ir.NewArena()
	var i ir.Variable
	f := record(t, a, func(b *ir.Builder) {
		i = b.Local(ir.Int())
		b.Comment("branches")
		b.If(b.Binary(ir.Bool(), ir.BinaryLess, b.Ref(i), b.Literal(ir.LiteralInt(0))), func() {
			b.Assign(b.Ref(i), b.Literal(ir.LiteralInt(0)))
		}, func() {
			b.If(b.Binary(ir.Bool(), ir.BinaryGreater, b.Ref(i), b.Literal(ir.LiteralInt(9))), func() {
				b.Assign(b.Ref(i), b.Literal(ir.LiteralInt(9)))
			}, nil)
		})
		b.For(b.Ref(i), b.Binary(ir.Bool(), ir.BinaryLess, b.Ref(i), b.Literal(ir.LiteralInt(4))), b.Literal(ir.LiteralInt(1)), func() {
			b.Continue()
		})
		b.Loop(func() { b.Break() })
		b.Switch(b.Ref(i), func() {
			b.Case(b.Literal(ir.LiteralInt(1)), func() { b.Break() })
			b.Default(func() { b.Break() })
		})
	})
	out, _ := compileKernel(t, f)
	v := fmt.Sprintf("v%d", i.UID())
	mustContain(t, out,
		"\n  /* branches */",
		"\n  if (("+v+" < 0)) {\n    "+v+" = 0;\n  } else if (("+v+" > 9)) {\n    "+v+" = 9;\n  }",
		"\n  for (; ("+v+" < 4); "+v+" += 1) {\n    continue;\n  }",
		"\n  for (;;) {\n    break;\n  }",
		"\n  switch ("+v+") {\n    case 1: {\n      break;\n    }\n    default: {\n      break;\n    }\n  }",
	)

	opts := DefaultOptions()
	opts.EmitComments = false
	out, _, err := Compile(a, f.Handle(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "/* branches */") {
		t.Error("comment emitted with EmitComments disabled")
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

func TestCommentTerminatorEscaped(t *testing.T) {
	f := record(t, ir.NewArena(), func(b *ir.Builder) {
		b.Comment("a */ b")
	})
	out, _ := compileKernel(t, f)
	mustContain(t, out, "/* a * / b */")
}

func TestForeignCustomExpressions(t *testing.T) {
	tests := []struct {
		name   string
		record func(b *ir.Builder, x ir.Expression) ir.Expression
	}{
		{"cpu", func(b *ir.Builder, x ir.Expression) ir.Expression { return b.CPUCustom(ir.Float(), 7, x) }},
		{"gpu", func(b *ir.Builder, x ir.Expression) ir.Expression { return b.GPUCustom(ir.Float(), "f(x)", x) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := ir.NewArena()
			f := record(t, a, func(b *ir.Builder) {
				v := b.Local(ir.Float())
				b.Expr(tt.record(b, b.Ref(v)))
			})
			_, _, err := Compile(a, f.Handle(), DefaultOptions())
			if !ir.IsKind(err, ir.ErrNotImplemented) {
				t.Errorf("Compile() error = %v, want NotImplemented", err)
			}
		})
	}
}

func TestCompileRejectsCallable(t *testing.T) {
	a := ir.NewArena()
	cb := a.NewCallable("c")
	c, err := cb.Finish()
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := Compile(a, c.Handle(), DefaultOptions()); !ir.IsKind(err, ir.ErrStructural) {
		t.Errorf("Compile(callable) error = %v, want StructuralError", err)
	}
	if _, _, err := Compile(a, 99, DefaultOptions()); !ir.IsKind(err, ir.ErrStructural) {
		t.Errorf("Compile(missing) error = %v, want StructuralError", err)
	}
}
