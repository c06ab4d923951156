package ir

import (
	"runtime"
	"testing"
)

// ---------------------------------------------------------------------------
// Recording benchmarks
// ---------------------------------------------------------------------------

// recordSaxpy records y[i] = a * x[i] + y[i] into a fresh arena.
func recordSaxpy() (*Function, error) {
	arena := NewArena()
	b := arena.NewKernel("saxpy")
	alpha := b.Argument(Float())
	x := b.BufferArgument(Float())
	y := b.BufferArgument(Float())
	i := b.Local(Uint())
	b.Assign(b.Ref(i), b.Swizzle(b.Ref(b.DispatchID()), 0))
	ax := b.Binary(Float(), BinaryMul, b.Ref(alpha), b.Call(Float(), CallBufferRead, b.Ref(x), b.Ref(i)))
	sum := b.Binary(Float(), BinaryAdd, ax, b.Call(Float(), CallBufferRead, b.Ref(y), b.Ref(i)))
	b.Expr(b.Call(nil, CallBufferWrite, b.Ref(y), b.Ref(i), sum))
	return b.Finish()
}

// BenchmarkRecordKernel benchmarks recording and finishing a small kernel,
// including usage resolution and hashing.
func BenchmarkRecordKernel(b *testing.B) {
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		f, err := recordSaxpy()
		if err != nil {
			b.Fatal(err)
		}
		runtime.KeepAlive(f)
	}
}

// BenchmarkValidate benchmarks hash recomputation over a finished kernel.
func BenchmarkValidate(b *testing.B) {
	f, err := recordSaxpy()
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if err := Validate(f.Arena(), f.Handle()); err != nil {
			b.Fatal(err)
		}
	}
}
