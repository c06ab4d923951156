package msl

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/gogpu/lcgen/ir"
)

// Version represents an MSL language version.
type Version struct {
	Major uint8
	Minor uint8
}

// Common MSL versions.
var (
	Version2_1 = Version{Major: 2, Minor: 1}
	Version2_3 = Version{Major: 2, Minor: 3}
	Version2_4 = Version{Major: 2, Minor: 4}
	Version3_0 = Version{Major: 3, Minor: 0}
)

// String returns the version as "major.minor".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Less reports whether v is older than other.
func (v Version) Less(other Version) bool {
	if v.Major != other.Major {
		return v.Major < other.Major
	}
	return v.Minor < other.Minor
}

// Options configures MSL code generation.
type Options struct {
	// LangVersion is the target MSL version.
	// Defaults to Version2_4 if zero. Ray tracing needs at least 2.3 and
	// intersection queries 2.4.
	LangVersion Version

	// EmitComments controls whether comment statements reach the output.
	EmitComments bool
}

// DefaultOptions returns sensible default options for MSL generation.
func DefaultOptions() Options {
	return Options{
		LangVersion:  Version2_4,
		EmitComments: true,
	}
}

// BindingSlot records where the host binds one kernel argument.
type BindingSlot struct {
	// Name is the generated parameter name.
	Name string

	// Kind is "buffer" or "texture", the Metal argument table the slot
	// indexes.
	Kind string

	// Index is the slot within that table.
	Index uint32
}

// TranslationInfo contains information about the compiled MSL output.
type TranslationInfo struct {
	// EntryPoint is the generated kernel function name.
	EntryPoint string

	// BlockSize is the threadgroup size the kernel was recorded for.
	BlockSize [3]uint32

	// Bindings lists the argument slots in parameter order.
	Bindings []BindingSlot

	// DispatchSizeSlot is the buffer slot of the dispatch size constant.
	DispatchSizeSlot uint32

	// RayTracing is set when the kernel uses metal::raytracing.
	RayTracing bool

	// RayQuery is set when the kernel runs intersection queries.
	RayQuery bool
}

// Compile generates MSL source for the kernel with handle h.
// Returns the MSL source as a string and translation info, or an error.
func Compile(arena *ir.Arena, h ir.FunctionHandle, options Options) (string, TranslationInfo, error) {
	// Apply defaults for zero values
	if options.LangVersion.Major == 0 {
		options.LangVersion = Version2_4
	}
	if err := ir.Validate(arena, h); err != nil {
		return "", TranslationInfo{}, errors.Wrap(err, "msl")
	}

	w := NewWriter(arena, options)
	if err := w.Emit(h); err != nil {
		return "", TranslationInfo{}, errors.Wrap(err, "msl")
	}
	return w.String(), w.Info(), nil
}
