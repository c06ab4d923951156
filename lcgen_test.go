package lcgen

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/lcgen/ir"
	"github.com/gogpu/lcgen/samples"
)

// recordSamples records every sample into one arena and returns the kernel
// handles in sample name order.
func recordSamples(t testing.TB) (*ir.Arena, []ir.FunctionHandle) {
	t.Helper()
	arena := ir.NewArena()
	var handles []ir.FunctionHandle
	for _, name := range samples.Names() {
		rec, _ := samples.Lookup(name)
		f, err := rec(arena)
		if err != nil {
			t.Fatalf("recording %s: %v", name, err)
		}
		handles = append(handles, f.Handle())
	}
	return arena, handles
}

func TestParseBackend(t *testing.T) {
	tests := []struct {
		name    string
		want    Backend
		wantErr bool
	}{
		{"cuda", BackendCUDA, false},
		{"msl", BackendMetal, false},
		{"metal", BackendMetal, false},
		{"hlsl", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseBackend(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseBackend(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseBackend(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestCompileBothBackends(t *testing.T) {
	arena := ir.NewArena()
	f, err := samples.Saxpy(arena)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		backend Backend
		marker  string
	}{
		{BackendCUDA, "extern \"C\" __global__ void"},
		{BackendMetal, "kernel void kernel_main("},
	}
	for _, tt := range tests {
		t.Run(string(tt.backend), func(t *testing.T) {
			opts := DefaultOptions()
			opts.Backend = tt.backend
			r, err := Compile(arena, f.Handle(), opts)
			if err != nil {
				t.Fatalf("Compile() error = %v", err)
			}
			if !strings.Contains(r.Source, tt.marker) {
				t.Errorf("source does not contain %q\n%s", tt.marker, r.Source)
			}
			if r.Kernel != "saxpy" || r.Hash != f.Hash() {
				t.Errorf("Result = {%s %x}, want {saxpy %x}", r.Kernel, r.Hash, f.Hash())
			}
			if (r.CUDA != nil) != (tt.backend == BackendCUDA) || (r.MSL != nil) != (tt.backend == BackendMetal) {
				t.Errorf("translation info set for the wrong backend: %+v", r)
			}
		})
	}
}

func TestCompileErrors(t *testing.T) {
	arena := ir.NewArena()
	f, err := samples.Saxpy(arena)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Compile(arena, 42, DefaultOptions()); !ir.IsKind(err, ir.ErrStructural) {
		t.Errorf("Compile(missing) error = %v, want StructuralError", err)
	}
	opts := DefaultOptions()
	opts.Backend = "wgsl"
	if _, err := Compile(arena, f.Handle(), opts); err == nil {
		t.Error("Compile(unknown backend) succeeded")
	}

	b := arena.NewKernel("bindless")
	b.BindlessArrayArgument()
	k, err := b.Finish()
	if err != nil {
		t.Fatal(err)
	}
	opts.Backend = BackendMetal
	_, err = Compile(arena, k.Handle(), opts)
	if !ir.IsKind(err, ir.ErrNotImplemented) {
		t.Fatalf("Compile(bindless, msl) error = %v, want NotImplemented", err)
	}
	if !strings.Contains(err.Error(), "kernel bindless") {
		t.Errorf("error %q does not name the kernel", err)
	}
}

func TestCompileAllMatchesSequential(t *testing.T) {
	arena, handles := recordSamples(t)
	for _, backend := range Backends() {
		t.Run(string(backend), func(t *testing.T) {
			opts := DefaultOptions()
			opts.Backend = backend
			got, err := CompileAll(context.Background(), arena, handles, opts)
			if err != nil {
				t.Fatalf("CompileAll() error = %v", err)
			}
			if len(got) != len(handles) {
				t.Fatalf("CompileAll() returned %d results, want %d", len(got), len(handles))
			}
			for i, h := range handles {
				want, err := Compile(arena, h, opts)
				if err != nil {
					t.Fatal(err)
				}
				if diff := cmp.Diff(want, got[i]); diff != "" {
					t.Errorf("result %d mismatch (-sequential +concurrent):\n%s", i, diff)
				}
			}
		})
	}
}

func TestCompileAllStopsOnError(t *testing.T) {
	arena, handles := recordSamples(t)
	handles = append(handles, 1000)
	if _, err := CompileAll(context.Background(), arena, handles, DefaultOptions()); err == nil {
		t.Error("CompileAll() succeeded with a missing handle")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := CompileAll(ctx, arena, handles[:1], DefaultOptions()); err == nil {
		t.Error("CompileAll() succeeded on a cancelled context")
	}
}
