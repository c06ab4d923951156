package msl

import (
	"fmt"

	"github.com/gogpu/lcgen/ir"
)

// emitFunction writes f after every callable it reaches. Each function is
// written once per Writer.
func (w *Writer) emitFunction(f *ir.Function) error {
	if w.generatedFunctions[f.Handle()] {
		return nil
	}
	w.generatedFunctions[f.Handle()] = true

	needsBuiltins := len(f.Builtins()) > 0
	for _, callee := range f.Callables() {
		if err := w.emitFunction(callee); err != nil {
			return err
		}
		if w.builtinCallables[callee.Handle()] {
			needsBuiltins = true
		}
	}
	if f.IsCallable() && needsBuiltins {
		w.builtinCallables[f.Handle()] = true
	}
	// Callables are named by hash; identical ones share one definition.
	if f.IsCallable() {
		if w.generatedCallables[f.Hash()] {
			return nil
		}
		w.generatedCallables[f.Hash()] = true
	}

	prevFn, prevIndent := w.currentFunction, w.indent
	defer func() { w.currentFunction, w.indent = prevFn, prevIndent }()
	w.currentFunction = f
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
		w.writeLine("")
	}

	if f.IsKernel() {
		w.writeKernelSignature(f)
	} else {
		w.writeCallableSignature(f)
	}

	w.pushIndent()
	if f.IsKernel() {
		w.writeLine("if (%sany(did >= ls)) { return; }", Namespace)
		w.writeArgumentCopies(f)
	}
	w.writeLocals(f)
	w.popIndent()

	if err := w.writeBlock(f.Body().Statements()); err != nil {
		return err
	}
	w.writeLine("}")
	w.writeLine("")
	return nil
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

// writtenValue reports whether v is a by-value kernel argument the body
// assigns to. Those arrive in constant memory and are copied to a local.
func writtenValue(f *ir.Function, v ir.Variable) bool {
	return v.Tag() == ir.VarLocal && f.VariableUsage(v.UID())&ir.UsageWrite != 0
}

// writeKernelSignature writes the kernel header and records the argument
// table layout in the translation info.
func (w *Writer) writeKernelSignature(f *ir.Function) {
	bs := f.BlockSize()
	w.writeLine("[[max_total_threads_per_threadgroup(%d)]]", bs[0]*bs[1]*bs[2])
	w.writeLine("kernel void kernel_main(")
	w.pushIndent()

	var bindings []BindingSlot
	var buffers, textures uint32
	for _, arg := range entryArguments(f) {
		name := variableName(arg)
		readonly := f.VariableUsage(arg.UID()).IsReadOnly()
		var decl string
		switch arg.Tag() {
		case ir.VarBuffer:
			decl = fmt.Sprintf("%s%s [[buffer(%d)]]", bufferTypeName(arg.Type(), readonly), name, buffers)
			bindings = append(bindings, BindingSlot{Name: name, Kind: "buffer", Index: buffers})
			buffers++
		case ir.VarTexture:
			decl = fmt.Sprintf("%s %s [[texture(%d)]]", typeName(arg.Type()), name, textures)
			bindings = append(bindings, BindingSlot{Name: name, Kind: "texture", Index: textures})
			textures++
		case ir.VarAccel:
			decl = fmt.Sprintf("%s %s [[buffer(%d)]]", typeName(arg.Type()), name, buffers)
			bindings = append(bindings, BindingSlot{Name: name, Kind: "buffer", Index: buffers})
			buffers++
		default:
			if writtenValue(f, arg) {
				name += "_arg"
			}
			decl = fmt.Sprintf("constant %s &%s [[buffer(%d)]]", typeName(arg.Type()), name, buffers)
			bindings = append(bindings, BindingSlot{Name: name, Kind: "buffer", Index: buffers})
			buffers++
		}
		w.writeLine("%s,", decl)
	}
	w.writeLine("constant %suint3 &ls [[buffer(%d)]],", Namespace, buffers)
	w.writeLine("%suint3 tid [[thread_position_in_threadgroup]],", Namespace)
	w.writeLine("%suint3 bid [[threadgroup_position_in_grid]],", Namespace)
	w.writeLine("%suint3 did [[thread_position_in_grid]]) {", Namespace)
	w.popIndent()

	w.info.Bindings = bindings
	w.info.DispatchSizeSlot = buffers
}

// writeArgumentCopies makes writable locals of assigned value arguments.
func (w *Writer) writeArgumentCopies(f *ir.Function) {
	for _, arg := range f.Arguments() {
		if writtenValue(f, arg) {
			name := variableName(arg)
			w.writeLine("%s %s = %s_arg;", typeName(arg.Type()), name, name)
		}
	}
}

// writeCallableSignature writes an inline device function header.
func (w *Writer) writeCallableSignature(f *ir.Function) {
	w.writeIndent()
	w.write("inline %s custom_%s(", typeName(f.ReturnType()), ir.HashString(f.Hash()))
	for i, arg := range f.Arguments() {
		if i > 0 {
			w.write(", ")
		}
		w.out.WriteString(w.parameterDecl(f, arg))
	}
	if w.builtinCallables[f.Handle()] {
		if len(f.Arguments()) > 0 {
			w.write(", ")
		}
		w.write("%[1]suint3 tid, %[1]suint3 bid, %[1]suint3 did, %[1]suint3 ls", Namespace)
	}
	w.write(") {\n")
}

// parameterDecl declares a callable parameter.
func (w *Writer) parameterDecl(f *ir.Function, v ir.Variable) string {
	name := variableName(v)
	readonly := f.VariableUsage(v.UID()).IsReadOnly()
	switch v.Tag() {
	case ir.VarReference:
		return "thread " + typeName(v.Type()) + " &" + name
	case ir.VarBuffer:
		return bufferTypeName(v.Type(), readonly) + name
	default:
		return typeName(v.Type()) + " " + name
	}
}

// writeLocals declares the shared and local variables the body uses.
func (w *Writer) writeLocals(f *ir.Function) {
	for _, v := range f.SharedVariables() {
		if f.VariableUsage(v.UID()) == ir.UsageNone {
			continue
		}
		w.writeLine("threadgroup %s %s;", typeName(v.Type()), variableName(v))
	}
	for _, v := range f.LocalVariables() {
		if f.VariableUsage(v.UID()) == ir.UsageNone {
			continue
		}
		if ir.IsRayQueryType(v.Type()) {
			w.writeLine("%s %s;", typeName(v.Type()), variableName(v))
			continue
		}
		w.writeLine("%s %s{};", typeName(v.Type()), variableName(v))
	}
}
