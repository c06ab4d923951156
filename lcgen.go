// Package lcgen generates native GPU source from recorded compute kernels.
//
// Kernels are recorded into an ir.Arena through an ir.Builder and lowered by
// one of the backends:
//   - CUDA: OptiX-aware CUDA C++ for NVRTC, with ray queries outlined
//   - MSL: Metal Shading Language, with ray queries inline
//
// The package provides backend selection, batch compilation, configuration
// files and the manifest consumed by the native compiler harness. The
// backends can also be used directly:
//
//	arena := ir.NewArena()
//	f, _ := samples.Saxpy(arena)
//	src, info, err := cuda.Compile(arena, f.Handle(), cuda.DefaultOptions())
package lcgen

import (
	"context"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/lcgen/cuda"
	"github.com/gogpu/lcgen/ir"
	"github.com/gogpu/lcgen/msl"
)

// Backend names a code generator.
type Backend string

const (
	BackendCUDA  Backend = "cuda"
	BackendMetal Backend = "msl"
)

// Backends returns every supported backend.
func Backends() []Backend {
	return []Backend{BackendCUDA, BackendMetal}
}

// ParseBackend maps a backend name to a Backend. "metal" is accepted as an
// alias of "msl".
func ParseBackend(name string) (Backend, error) {
	switch name {
	case "cuda":
		return BackendCUDA, nil
	case "msl", "metal":
		return BackendMetal, nil
	}
	return "", errors.Errorf("unknown backend %q", name)
}

// Extension returns the file extension of generated sources.
func (b Backend) Extension() string {
	if b == BackendMetal {
		return ".metal"
	}
	return ".cu"
}

// Options configures compilation.
type Options struct {
	// Backend selects the code generator.
	Backend Backend

	// CUDA and MSL hold the per-backend options. Only the selected one is used.
	CUDA cuda.Options
	MSL  msl.Options
}

// DefaultOptions returns sensible default options (CUDA backend).
func DefaultOptions() Options {
	return Options{
		Backend: BackendCUDA,
		CUDA:    cuda.DefaultOptions(),
		MSL:     msl.DefaultOptions(),
	}
}

// Result is the output of compiling one kernel.
type Result struct {
	// Kernel is the recorded kernel name.
	Kernel string

	// Hash is the structural hash of the kernel.
	Hash uint64

	Backend Backend
	Source  string

	// CUDA or MSL is set, depending on Backend.
	CUDA *cuda.TranslationInfo
	MSL  *msl.TranslationInfo
}

// Compile lowers the kernel with handle h to source for opts.Backend.
func Compile(arena *ir.Arena, h ir.FunctionHandle, opts Options) (*Result, error) {
	f := arena.Function(h)
	if f == nil {
		return nil, ir.NewError(ir.ErrStructural, "unknown function handle %d", h)
	}
	r := &Result{Kernel: f.Name(), Hash: f.Hash(), Backend: opts.Backend}
	switch opts.Backend {
	case BackendCUDA:
		src, info, err := cuda.Compile(arena, h, opts.CUDA)
		if err != nil {
			return nil, errors.Wrapf(err, "kernel %s", f.Name())
		}
		r.Source, r.CUDA = src, &info
	case BackendMetal:
		src, info, err := msl.Compile(arena, h, opts.MSL)
		if err != nil {
			return nil, errors.Wrapf(err, "kernel %s", f.Name())
		}
		r.Source, r.MSL = src, &info
	default:
		return nil, errors.Errorf("unknown backend %q", opts.Backend)
	}
	return r, nil
}

// CompileAll compiles every handle concurrently, one writer per kernel.
// Results are in the order of handles. The first error cancels the batch.
func CompileAll(ctx context.Context, arena *ir.Arena, handles []ir.FunctionHandle, opts Options) ([]*Result, error) {
	results := make([]*Result, len(handles))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, h := range handles {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := Compile(arena, h, opts)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
