package cuda

import (
	"strings"

	"github.com/gogpu/lcgen/ir"
)

// emitFunction writes f after every callable it reaches. Each function is
// written once per Writer.
func (w *Writer) emitFunction(f *ir.Function) error {
	if w.generatedFunctions[f.Handle()] {
		return nil
	}
	w.generatedFunctions[f.Handle()] = true

	for _, callee := range f.Callables() {
		if err := w.emitFunction(callee); err != nil {
			return err
		}
	}
	// Callables are named by hash; identical ones share one definition.
	if f.IsCallable() {
		if w.rayQueries != nil {
			if g := w.rayQueries.representative(f); g != f {
				return w.emitFunction(g)
			}
		}
		if w.generatedCallables[f.Hash()] {
			return nil
		}
		w.generatedCallables[f.Hash()] = true
	}

	prevFn, prevIndent := w.fn, w.indent
	defer func() { w.fn, w.indent = prevFn, prevIndent }()
	w.fn = f
	w.indent = 0

	if err := w.writeStructs(f); err != nil {
		return err
	}

	constants := f.Constants()
	for _, c := range constants {
		if err := w.writeConstant(c); err != nil {
			return err
		}
	}
	if len(constants) > 0 {
		w.write("\n")
	}

	rtKernel := f.IsKernel() && f.RequiresRayTracing()
	args := f.Arguments()
	if f.IsKernel() {
		args = entryArguments(f)
	}

	if rtKernel {
		w.write("struct alignas(16) Params {")
		for _, arg := range args {
			w.write("\n  alignas(16) %s{};", w.variableDecl(arg, arg.Tag() != ir.VarBuffer))
		}
		w.write("\n};\n\nextern \"C\" { __constant__ Params params; }\n\n")
	}

	if w.rayQueries != nil {
		if err := w.rayQueries.outline(f); err != nil {
			return err
		}
	}

	w.writeSignature(f, args, rtKernel)

	if f.IsKernel() || len(f.Builtins()) > 0 {
		w.writeBuiltins()
	}
	if f.IsKernel() && !rtKernel {
		w.write("\n  if (lc_any(did >= dispatch_size)) { return; }")
	}

	for _, v := range f.SharedVariables() {
		if f.VariableUsage(v.UID()) == ir.UsageNone {
			continue
		}
		w.write("\n  %s;", w.variableDecl(v, false))
	}
	for _, v := range f.LocalVariables() {
		if f.VariableUsage(v.UID()) == ir.UsageNone {
			continue
		}
		w.write("\n  %s{};", w.variableDecl(v, false))
	}

	if err := w.writeStatements(f.Body().Statements()); err != nil {
		return err
	}
	if !strings.HasSuffix(w.out.String(), "\n") {
		w.write("\n")
	}
	w.write("}\n\n")
	return nil
}

// writeSignature writes the function header up to and including the
// opening brace.
func (w *Writer) writeSignature(f *ir.Function, args []ir.Variable, rtKernel bool) {
	switch {
	case rtKernel:
		w.write("extern \"C\" __global__ void __raygen__main() {")
		for _, arg := range args {
			if f.VariableUsage(arg.UID())&ir.UsageWrite != 0 {
				w.write("\n  auto %s = params.%s;", variableName(arg), variableName(arg))
			} else {
				w.write("\n  const auto &%s = params.%s;", variableName(arg), variableName(arg))
			}
		}
	case f.IsKernel():
		w.write("extern \"C\" __global__ void kernel_main(")
		for _, arg := range args {
			w.write("\n    %s,", w.variableDecl(arg, false))
		}
		w.write("\n    const lc_uint3 dispatch_size) {")
	default:
		ret := "void"
		if t := f.ReturnType(); t != nil {
			ret = typeName(t)
		}
		w.write("inline __device__ %s custom_%s(", ret, ir.HashString(f.Hash()))
		for i, arg := range args {
			if i > 0 {
				w.write(",")
			}
			w.write("\n    %s", w.variableDecl(arg, false))
		}
		w.write(") noexcept {")
	}
}

// writeBuiltins reconstructs the launch built-ins at function scope.
func (w *Writer) writeBuiltins() {
	w.write("\n  constexpr auto bs = lc_block_size();")
	w.write("\n  const auto ls = lc_dispatch_size();")
	w.write("\n  const auto did = lc_dispatch_id();")
	w.write("\n  const auto tid = lc_thread_id();")
	w.write("\n  const auto bid = lc_block_id();")
}
