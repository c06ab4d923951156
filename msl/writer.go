package msl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/lcgen/ir"
)

// Writer generates MSL source code from IR.
//
// Like the CUDA writer, a Writer is one generation session: structures,
// constants and functions are written at most once per Writer.
type Writer struct {
	arena   *ir.Arena
	options *Options

	// Output buffer
	out strings.Builder

	// Current indentation level
	indent int

	// Function context (set during function writing)
	currentFunction *ir.Function

	// Query variable of the candidate body being written
	currentQuery string

	// Per-session dedup sets
	generatedStructs   map[*ir.Type]bool
	generatedConstants map[uint64]bool
	generatedFunctions map[ir.FunctionHandle]bool
	generatedCallables map[uint64]bool

	// Callables that take the launch built-ins as parameters
	builtinCallables map[ir.FunctionHandle]bool

	info TranslationInfo
}

// NewWriter creates an MSL generation session over arena.
func NewWriter(arena *ir.Arena, options Options) *Writer {
	if options.LangVersion.Major == 0 {
		options.LangVersion = Version2_4
	}
	return &Writer{
		arena:              arena,
		options:            &options,
		generatedStructs:   make(map[*ir.Type]bool),
		generatedConstants: make(map[uint64]bool),
		generatedFunctions: make(map[ir.FunctionHandle]bool),
		generatedCallables: make(map[uint64]bool),
		builtinCallables:   make(map[ir.FunctionHandle]bool),
	}
}

// String returns the generated MSL source code.
func (w *Writer) String() string {
	return w.out.String()
}

// Len returns the number of bytes generated so far.
func (w *Writer) Len() int {
	return w.out.Len()
}

// Info returns the translation info of the last emitted kernel.
func (w *Writer) Info() TranslationInfo {
	return w.info
}

func (w *Writer) function(h ir.FunctionHandle) (*ir.Function, error) {
	f := w.arena.Function(h)
	if f == nil {
		return nil, ir.NewError(ir.ErrStructural, "no function with handle %d", h)
	}
	if !f.Finished() {
		return nil, ir.NewErrorWithContext(ir.ErrStructural, f.String(), "function is not finished")
	}
	return f, nil
}

// Emit writes a complete translation unit for the kernel with handle h.
func (w *Writer) Emit(h ir.FunctionHandle) error {
	f, err := w.function(h)
	if err != nil {
		return err
	}
	if !f.IsKernel() {
		return ir.NewErrorWithContext(ir.ErrStructural, f.String(), "only kernels can be entry points")
	}
	if w.generatedFunctions[h] {
		return nil
	}

	ops := f.PropagatedBuiltinOps()
	w.info = TranslationInfo{
		EntryPoint: "kernel_main",
		BlockSize:  f.BlockSize(),
		RayTracing: f.RequiresRayTracing(),
		RayQuery:   ops.Has(ir.CallQueryAll) || ops.Has(ir.CallQueryAny),
	}
	if w.info.RayTracing && w.options.LangVersion.Less(Version2_3) {
		return ir.NewErrorWithContext(ir.ErrStructural, f.String(),
			"ray tracing needs MSL 2.3, targeting %s", w.options.LangVersion)
	}
	if w.info.RayQuery && w.options.LangVersion.Less(Version2_4) {
		return ir.NewErrorWithContext(ir.ErrStructural, f.String(),
			"intersection queries need MSL 2.4, targeting %s", w.options.LangVersion)
	}

	w.writeHeader(w.info.RayTracing)
	if w.info.RayTracing {
		w.writeRayTracingHelpers()
	}
	if ops.Has(ir.CallAtomicCompareExchange) {
		w.writeCompareExchangeHelper()
	}
	return w.emitFunction(f)
}

// EmitFunction writes the function with handle h and the callables it
// reaches. It is a no-op for a function this Writer has already emitted.
func (w *Writer) EmitFunction(h ir.FunctionHandle) error {
	f, err := w.function(h)
	if err != nil {
		return err
	}
	return w.emitFunction(f)
}

// writeHeader writes the MSL file header.
func (w *Writer) writeHeader(rayTracing bool) {
	w.writeLine("// language version %s", w.options.LangVersion)
	w.writeLine("#include <metal_stdlib>")
	w.writeLine("#include <simd/simd.h>")
	if rayTracing {
		w.writeLine("#include <metal_raytracing>")
	}
	w.writeLine("")
	w.writeLine("using metal::uint;")
	w.writeLine("")
}

// Output helpers

// write writes text to the output. If args are provided, uses fmt.Fprintf.
//
//nolint:goprintffuncname
func (w *Writer) write(format string, args ...any) {
	if len(args) == 0 {
		w.out.WriteString(format)
	} else {
		fmt.Fprintf(&w.out, format, args...)
	}
}

// writeLine writes a line with optional format args and a newline.
//
//nolint:goprintffuncname
func (w *Writer) writeLine(format string, args ...any) {
	w.writeIndent()
	if len(args) == 0 {
		w.out.WriteString(format)
	} else {
		fmt.Fprintf(&w.out, format, args...)
	}
	w.out.WriteByte('\n')
}

// writeIndent writes the current indentation.
func (w *Writer) writeIndent() {
	for i := 0; i < w.indent; i++ {
		w.out.WriteString("    ")
	}
}

// pushIndent increases indentation.
func (w *Writer) pushIndent() {
	w.indent++
}

// popIndent decreases indentation.
func (w *Writer) popIndent() {
	if w.indent > 0 {
		w.indent--
	}
}

// variableName returns the generated name of v. The scheme matches the CUDA
// backend so kernels read the same in both outputs.
func variableName(v ir.Variable) string {
	uid := strconv.FormatUint(uint64(v.UID()), 10)
	switch v.Tag() {
	case ir.VarLocal:
		return "v" + uid
	case ir.VarShared:
		return "s" + uid
	case ir.VarReference:
		return "r" + uid
	case ir.VarBuffer:
		return "b" + uid
	case ir.VarTexture:
		return "i" + uid
	case ir.VarBindlessArray:
		return "h" + uid
	case ir.VarAccel:
		return "a" + uid
	case ir.VarThreadID:
		return "tid"
	case ir.VarBlockID:
		return "bid"
	case ir.VarDispatchID:
		return "did"
	case ir.VarDispatchSize:
		return "ls"
	default:
		return "x" + uid
	}
}
