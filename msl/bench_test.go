package msl

import (
	"runtime"
	"testing"

	"github.com/gogpu/lcgen/ir"
	"github.com/gogpu/lcgen/samples"
)

// benchKernel records the named sample into a fresh arena.
func benchKernel(b *testing.B, name string) *ir.Function {
	b.Helper()
	rec, ok := samples.Lookup(name)
	if !ok {
		b.Fatalf("no sample %q", name)
	}
	f, err := rec(ir.NewArena())
	if err != nil {
		b.Fatalf("record %s: %v", name, err)
	}
	return f
}

// BenchmarkMSLEmit benchmarks MSL code generation for every sample.
func BenchmarkMSLEmit(b *testing.B) {
	for _, name := range samples.Names() {
		b.Run(name, func(b *testing.B) {
			f := benchKernel(b, name)
			opts := DefaultOptions()

			b.ReportAllocs()
			b.ResetTimer()

			var result string
			for i := 0; i < b.N; i++ {
				var err error
				result, _, err = Compile(f.Arena(), f.Handle(), opts)
				if err != nil {
					b.Fatalf("msl emit failed: %v", err)
				}
			}
			runtime.KeepAlive(result)
		})
	}
}

// BenchmarkMSLVersions benchmarks MSL generation across the versions that
// accept intersection queries.
func BenchmarkMSLVersions(b *testing.B) {
	f := benchKernel(b, "two_ray_queries")

	versions := []struct {
		name    string
		version Version
	}{
		{"v2_4", Version2_4},
		{"v3_0", Version3_0},
	}

	for _, vv := range versions {
		b.Run(vv.name, func(b *testing.B) {
			opts := DefaultOptions()
			opts.LangVersion = vv.version

			b.ReportAllocs()
			b.ResetTimer()

			var result string
			for i := 0; i < b.N; i++ {
				var err error
				result, _, err = Compile(f.Arena(), f.Handle(), opts)
				if err != nil {
					b.Fatalf("msl %s emit failed: %v", vv.name, err)
				}
			}
			runtime.KeepAlive(result)
		})
	}
}
