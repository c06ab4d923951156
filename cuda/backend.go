package cuda

import (
	"github.com/pkg/errors"

	"github.com/gogpu/lcgen/ir"
)

// DefaultDeviceLibrary is the header that declares the lc_* device library.
const DefaultDeviceLibrary = "device_library.h"

// Options configures CUDA code generation.
type Options struct {
	// EmitComments controls whether comment statements reach the output.
	EmitComments bool

	// DeviceLibrary is the header included after the feature defines.
	// Defaults to DefaultDeviceLibrary if empty.
	DeviceLibrary string
}

// DefaultOptions returns sensible default options for CUDA generation.
func DefaultOptions() Options {
	return Options{
		EmitComments:  true,
		DeviceLibrary: DefaultDeviceLibrary,
	}
}

// TranslationInfo describes the compiled kernel to the native compiler harness.
type TranslationInfo struct {
	// EntryPoint is the generated entry point symbol.
	EntryPoint string

	// BlockSize is the launch block size of the kernel.
	BlockSize [3]uint32

	// RayTracing is set when the kernel needs the OptiX pipeline.
	RayTracing bool

	// TraceClosest, TraceAny and RayQuery mirror the LUISA_ENABLE_OPTIX_* defines.
	TraceClosest bool
	TraceAny     bool
	RayQuery     bool

	// OutlineCount is the number of outlined ray queries, which sizes the
	// dispatch table of the harness.
	OutlineCount int

	// BuiltinOps lists the built-in operations used by the kernel and its
	// callables, in ascending order.
	BuiltinOps []string
}

// Compile generates CUDA source for the kernel with handle h.
// Returns the source and translation info, or an error and no text.
func Compile(arena *ir.Arena, h ir.FunctionHandle, options Options) (string, TranslationInfo, error) {
	if options.DeviceLibrary == "" {
		options.DeviceLibrary = DefaultDeviceLibrary
	}
	if err := ir.Validate(arena, h); err != nil {
		return "", TranslationInfo{}, errors.Wrap(err, "cuda")
	}

	w := NewWriter(arena, options)
	if err := w.Emit(h); err != nil {
		return "", TranslationInfo{}, errors.Wrap(err, "cuda")
	}
	return w.String(), w.Info(), nil
}
