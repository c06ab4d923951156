package ir

import "fmt"

// FunctionKind distinguishes dispatchable kernels from callables.
type FunctionKind uint8

const (
	KindKernel FunctionKind = iota
	KindCallable
)

// String returns a human-readable kind name.
func (k FunctionKind) String() string {
	if k == KindKernel {
		return "kernel"
	}
	return "callable"
}

// FunctionHandle is the index of a Function in its Arena.
type FunctionHandle uint32

// BindingKind identifies the resource class of a captured binding.
type BindingKind uint8

const (
	BindingBuffer BindingKind = iota
	BindingTexture
	BindingBindlessArray
	BindingAccel
)

// Binding is a resource captured by a kernel at record time. The resource is
// passed to the generated entry point like an argument, through Variable.
type Binding struct {
	Kind     BindingKind
	Variable Variable
	// Handle is the opaque resource handle issued by the device layer.
	Handle uint64
	// Offset is the byte offset for buffers and the mip level for textures.
	Offset uint64
}

// Hash returns the binding hash, seeded per resource class.
func (b Binding) Hash() uint64 {
	switch b.Kind {
	case BindingBuffer:
		return hash64(seedBuffer, b.Handle, b.Offset)
	case BindingTexture:
		return hash64(seedTexture, b.Handle, b.Offset)
	case BindingBindlessArray:
		return hash64(seedBindlessArray, b.Handle)
	default:
		return hash64(seedAccel, b.Handle)
	}
}

// ConstantBinding is a constant table referenced by a function body.
type ConstantBinding struct {
	Type *Type // array type of the table
	Data ConstantData
}

// Hash returns the binding hash.
func (c ConstantBinding) Hash() uint64 {
	return hash64(seedConstant, c.Type.Hash(), c.Data.Hash())
}

// Function is a recorded kernel or callable. It is created by an Arena,
// filled in by a Builder and immutable after Builder.Finish except for
// usage annotations. Two Functions are the same definition iff they are
// the same pointer, equivalently iff their handles are equal.
type Function struct {
	arena  *Arena
	handle FunctionHandle
	kind   FunctionKind
	name   string

	body      *ScopeStmt
	arguments []Variable
	bindings  []Binding
	builtins  []Variable
	locals    []Variable
	shared    []Variable
	constants []ConstantBinding
	usages    map[uint32]Usage
	callables []FunctionHandle

	directOps     CallOpSet
	propagatedOps CallOpSet

	blockSize  [3]uint32
	returnType *Type

	finished bool
	hash     uint64
}

// Handle returns the arena index of the function.
func (f *Function) Handle() FunctionHandle { return f.handle }

// Arena returns the arena owning the function.
func (f *Function) Arena() *Arena { return f.arena }

// Kind returns whether f is a kernel or a callable.
func (f *Function) Kind() FunctionKind { return f.kind }

// Name returns the diagnostic name given at creation.
func (f *Function) Name() string { return f.name }

func (f *Function) IsKernel() bool   { return f.kind == KindKernel }
func (f *Function) IsCallable() bool { return f.kind == KindCallable }

// Body returns the root scope.
func (f *Function) Body() *ScopeStmt { return f.body }

// Arguments returns the explicit arguments in declaration order.
func (f *Function) Arguments() []Variable { return f.arguments }

// Bindings returns the captured resources in capture order.
func (f *Function) Bindings() []Binding { return f.bindings }

// Builtins returns the launch built-in variables the function references.
func (f *Function) Builtins() []Variable { return f.builtins }

// LocalVariables returns the function-local variables in declaration order.
func (f *Function) LocalVariables() []Variable { return f.locals }

// SharedVariables returns the block-shared variables in declaration order.
func (f *Function) SharedVariables() []Variable { return f.shared }

// Constants returns the constant tables referenced by the body.
func (f *Function) Constants() []ConstantBinding { return f.constants }

// Callables returns the custom callables invoked directly, in first-call order.
func (f *Function) Callables() []*Function {
	out := make([]*Function, len(f.callables))
	for i, h := range f.callables {
		out[i] = f.arena.Function(h)
	}
	return out
}

// VariableUsage returns the accumulated usage of the variable with the given uid.
func (f *Function) VariableUsage(uid uint32) Usage { return f.usages[uid] }

func (f *Function) markVariableUsage(uid uint32, u Usage) {
	f.usages[uid] = f.usages[uid].Merge(u)
}

// DirectBuiltinOps returns the built-in operations called in the body itself.
func (f *Function) DirectBuiltinOps() CallOpSet { return f.directOps }

// PropagatedBuiltinOps returns the built-in operations called by f or by any
// callable it reaches.
func (f *Function) PropagatedBuiltinOps() CallOpSet { return f.propagatedOps }

// RequiresRayTracing reports whether f, or a callable it reaches, uses any
// ray tracing operation.
func (f *Function) RequiresRayTracing() bool {
	for _, op := range f.propagatedOps.Ops() {
		if op.IsRayTracing() {
			return true
		}
	}
	return false
}

// BlockSize returns the launch block size. It is meaningful for kernels only.
func (f *Function) BlockSize() [3]uint32 { return f.blockSize }

// ReturnType returns the callable's result type, or nil for void.
func (f *Function) ReturnType() *Type { return f.returnType }

// Finished reports whether recording has completed.
func (f *Function) Finished() bool { return f.finished }

// Hash returns the structural hash of the function. It is available once
// the function is finished.
func (f *Function) Hash() uint64 { return f.hash }

// String implements fmt.Stringer.
func (f *Function) String() string {
	if f.name != "" {
		return fmt.Sprintf("%s %s#%d", f.kind, f.name, f.handle)
	}
	return fmt.Sprintf("%s#%d", f.kind, f.handle)
}

func (f *Function) computeHash() uint64 {
	words := []uint64{uint64(f.kind), f.body.Hash()}
	for _, v := range f.arguments {
		words = append(words, v.Hash())
	}
	for _, b := range f.bindings {
		words = append(words, b.Hash())
	}
	for _, c := range f.constants {
		words = append(words, c.Hash())
	}
	if f.returnType != nil {
		words = append(words, f.returnType.Hash())
	}
	if f.kind == KindKernel {
		words = append(words, uint64(f.blockSize[0]), uint64(f.blockSize[1]), uint64(f.blockSize[2]))
	}
	return hash64(seedFunction, words...)
}
