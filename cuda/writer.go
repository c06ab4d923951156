package cuda

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/lcgen/ir"
)

// Writer generates CUDA source from IR.
//
// A Writer is one code generation session. The sets of generated
// structures, constants and functions are instance state, so a function is
// emitted at most once per Writer. A Writer is not safe for concurrent use.
type Writer struct {
	arena   *ir.Arena
	options *Options

	// Output buffer
	out strings.Builder

	// Current indentation level
	indent int

	// Function being emitted
	fn *ir.Function

	// Per-session dedup sets
	generatedStructs   map[*ir.Type]bool
	generatedConstants map[uint64]bool
	generatedFunctions map[ir.FunctionHandle]bool
	generatedCallables map[uint64]bool

	// Ray query outlining state; nil unless the kernel uses ray queries
	rayQueries *rayQueryLowering

	info TranslationInfo
}

// NewWriter creates a code generation session over arena.
func NewWriter(arena *ir.Arena, options Options) *Writer {
	if options.DeviceLibrary == "" {
		options.DeviceLibrary = DefaultDeviceLibrary
	}
	return &Writer{
		arena:              arena,
		options:            &options,
		generatedStructs:   make(map[*ir.Type]bool),
		generatedConstants: make(map[uint64]bool),
		generatedFunctions: make(map[ir.FunctionHandle]bool),
		generatedCallables: make(map[uint64]bool),
	}
}

// String returns the generated source.
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

// Emit writes a complete translation unit for the kernel with handle h:
// feature defines, the device library include, structure declarations and
// every function the kernel reaches.
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
	}
	for _, op := range ops.Ops() {
		w.info.BuiltinOps = append(w.info.BuiltinOps, op.String())
	}

	if f.RequiresRayTracing() {
		w.info.RayTracing = true
		w.info.EntryPoint = "__raygen__main"
		w.writeLine("#define LUISA_ENABLE_OPTIX")
		if ops.Has(ir.CallTraceClosest) {
			w.info.TraceClosest = true
			w.writeLine("#define LUISA_ENABLE_OPTIX_TRACE_CLOSEST")
		}
		if ops.Has(ir.CallTraceAny) {
			w.info.TraceAny = true
			w.writeLine("#define LUISA_ENABLE_OPTIX_TRACE_ANY")
		}
		if ops.Has(ir.CallQueryAll) || ops.Has(ir.CallQueryAny) {
			w.info.RayQuery = true
			w.writeLine("#define LUISA_ENABLE_OPTIX_RAY_QUERY")
			w.rayQueries = newRayQueryLowering(w)
			w.rayQueries.preprocess(f)
			w.info.OutlineCount = w.rayQueries.count()
		}
	}
	bs := f.BlockSize()
	w.writeLine("#define LC_BLOCK_SIZE lc_make_uint3(%d, %d, %d)", bs[0], bs[1], bs[2])
	w.writeLine("")
	w.writeLine("#include \"%s\"", w.options.DeviceLibrary)
	w.writeLine("")

	for _, g := range append(ir.ReachableCallables(f), f) {
		if err := w.writeStructs(g); err != nil {
			return err
		}
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
	w.write(format, args...)
	w.out.WriteByte('\n')
}

// writeIndent writes the current indentation.
func (w *Writer) writeIndent() {
	for i := 0; i < w.indent; i++ {
		w.out.WriteString("  ")
	}
}

// newLine starts a new line at the current indentation.
func (w *Writer) newLine() {
	w.out.WriteByte('\n')
	w.writeIndent()
}

// Variables

// variableName returns the generated name of v. Names are a pure function of
// the tag and uid; built-ins have fixed names.
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

// variableDecl returns the declaration of v without initializer. Read-only
// references and buffers are declared const, as is everything when
// forceConst is set.
func (w *Writer) variableDecl(v ir.Variable, forceConst bool) string {
	readonly := w.fn.VariableUsage(v.UID()).IsReadOnly()
	name := variableName(v)
	switch v.Tag() {
	case ir.VarShared:
		return "__shared__ " + typeName(v.Type()) + " " + name
	case ir.VarReference:
		if readonly || forceConst {
			return "const " + typeName(v.Type()) + " " + name
		}
		return typeName(v.Type()) + " &" + name
	case ir.VarBuffer:
		elem := typeName(v.Type().Element())
		if readonly || forceConst {
			elem = "const " + elem
		}
		return "const LCBuffer<" + elem + "> " + name
	case ir.VarTexture:
		return "const LCSurface " + name
	case ir.VarBindlessArray:
		return "const LCBindlessArray " + name
	case ir.VarAccel:
		return "const LCAccel " + name
	default:
		return typeName(v.Type()) + " " + name
	}
}

// entryArguments returns the explicit arguments of f followed by its
// captured resource bindings.
func entryArguments(f *ir.Function) []ir.Variable {
	args := append([]ir.Variable(nil), f.Arguments()...)
	for _, b := range f.Bindings() {
		args = append(args, b.Variable)
	}
	return args
}
