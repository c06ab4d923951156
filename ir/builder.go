package ir

import (
	"github.com/pkg/errors"
)

// Builder records the body of one Function. It is the only way to create
// expressions and statements, and it is owned by a single goroutine.
//
// Factory methods never panic on malformed input. The first error is kept
// and returned by Err and Finish; once it is set, expression factories
// return nil and statement factories do nothing.
type Builder struct {
	fn     *Function
	frames []frame
	err    error

	rayQueryDepth int
	returnSet     bool

	builtins  map[VariableTag]Variable
	constants map[uint64]bool
	callables map[FunctionHandle]bool
	nvars     uint32
}

type frame struct {
	scope    *ScopeStmt
	isSwitch bool
}

func newBuilder(f *Function) *Builder {
	return &Builder{
		fn:        f,
		frames:    []frame{{scope: f.body}},
		builtins:  make(map[VariableTag]Variable),
		constants: make(map[uint64]bool),
		callables: make(map[FunctionHandle]bool),
	}
}

// Function returns the function being recorded.
func (b *Builder) Function() *Function { return b.fn }

// Err returns the first recording error, if any.
func (b *Builder) Err() error { return b.err }

func (b *Builder) fail(kind ErrorKind, format string, args ...any) {
	if b.err == nil {
		b.err = NewErrorWithContext(kind, b.fn.String(), format, args...)
	}
}

func (b *Builder) ok() bool { return b.err == nil && !b.fn.finished }

// Variables

func (b *Builder) newVariable(tag VariableTag, t *Type) Variable {
	v := Variable{uid: b.fn.arena.nextUID(), ordinal: b.nvars, tag: tag, typ: t}
	b.nvars++
	return v
}

func (b *Builder) addArgument(tag VariableTag, t *Type) Variable {
	if !b.ok() {
		return Variable{}
	}
	v := b.newVariable(tag, t)
	b.fn.arguments = append(b.fn.arguments, v)
	return v
}

func isValueType(t *Type) bool {
	return t != nil && !t.IsResource() && t.Tag() != TypeCustom
}

// Argument declares a by-value argument of type t.
func (b *Builder) Argument(t *Type) Variable {
	if !isValueType(t) {
		b.fail(ErrStructural, "argument of type %v is not a value type", t)
		return Variable{}
	}
	return b.addArgument(VarLocal, t)
}

// Reference declares a by-reference argument of a callable.
func (b *Builder) Reference(t *Type) Variable {
	if b.fn.kind != KindCallable {
		b.fail(ErrStructural, "kernels cannot take reference arguments")
		return Variable{}
	}
	if !isValueType(t) {
		b.fail(ErrStructural, "reference of type %v is not a value type", t)
		return Variable{}
	}
	return b.addArgument(VarReference, t)
}

// BufferArgument declares a buffer argument with element type elem.
func (b *Builder) BufferArgument(elem *Type) Variable {
	return b.addArgument(VarBuffer, Buffer(elem))
}

// TextureArgument declares a texture argument.
func (b *Builder) TextureArgument(dim uint32, elem *Type) Variable {
	return b.addArgument(VarTexture, Texture(dim, elem))
}

// BindlessArrayArgument declares a bindless array argument.
func (b *Builder) BindlessArrayArgument() Variable {
	return b.addArgument(VarBindlessArray, BindlessArray())
}

// AccelArgument declares an acceleration structure argument.
func (b *Builder) AccelArgument() Variable {
	return b.addArgument(VarAccel, Accel())
}

func (b *Builder) bind(kind BindingKind, tag VariableTag, t *Type, handle, offset uint64) Variable {
	if !b.ok() {
		return Variable{}
	}
	if b.fn.kind != KindKernel {
		b.fail(ErrStructural, "only kernels capture resources")
		return Variable{}
	}
	v := b.newVariable(tag, t)
	b.fn.bindings = append(b.fn.bindings, Binding{Kind: kind, Variable: v, Handle: handle, Offset: offset})
	return v
}

// BindBuffer captures a device buffer at a byte offset.
func (b *Builder) BindBuffer(handle, offset uint64, elem *Type) Variable {
	return b.bind(BindingBuffer, VarBuffer, Buffer(elem), handle, offset)
}

// BindTexture captures one mip level of a device texture.
func (b *Builder) BindTexture(handle uint64, level uint32, dim uint32, elem *Type) Variable {
	return b.bind(BindingTexture, VarTexture, Texture(dim, elem), handle, uint64(level))
}

// BindBindlessArray captures a bindless array.
func (b *Builder) BindBindlessArray(handle uint64) Variable {
	return b.bind(BindingBindlessArray, VarBindlessArray, BindlessArray(), handle, 0)
}

// BindAccel captures an acceleration structure.
func (b *Builder) BindAccel(handle uint64) Variable {
	return b.bind(BindingAccel, VarAccel, Accel(), handle, 0)
}

// Local declares a function-local variable.
func (b *Builder) Local(t *Type) Variable {
	if !b.ok() {
		return Variable{}
	}
	if t == nil || t.IsResource() || (t.Tag() == TypeCustom && !IsRayQueryType(t)) {
		b.fail(ErrStructural, "local of type %v", t)
		return Variable{}
	}
	v := b.newVariable(VarLocal, t)
	b.fn.locals = append(b.fn.locals, v)
	return v
}

// Shared declares a variable shared by the threads of a block.
func (b *Builder) Shared(t *Type) Variable {
	if !b.ok() {
		return Variable{}
	}
	if b.fn.kind != KindKernel {
		b.fail(ErrStructural, "shared variables are only allowed in kernels")
		return Variable{}
	}
	if !isValueType(t) {
		b.fail(ErrStructural, "shared variable of type %v", t)
		return Variable{}
	}
	v := b.newVariable(VarShared, t)
	b.fn.shared = append(b.fn.shared, v)
	return v
}

func (b *Builder) builtin(tag VariableTag) Variable {
	if v, ok := b.builtins[tag]; ok {
		return v
	}
	if !b.ok() {
		return Variable{}
	}
	v := b.newVariable(tag, Vector(Uint(), 3))
	b.builtins[tag] = v
	b.fn.builtins = append(b.fn.builtins, v)
	return v
}

func (b *Builder) ThreadID() Variable     { return b.builtin(VarThreadID) }
func (b *Builder) BlockID() Variable      { return b.builtin(VarBlockID) }
func (b *Builder) DispatchID() Variable   { return b.builtin(VarDispatchID) }
func (b *Builder) DispatchSize() Variable { return b.builtin(VarDispatchSize) }

// SetBlockSize sets the launch block size of a kernel.
func (b *Builder) SetBlockSize(x, y, z uint32) {
	if b.fn.kind != KindKernel {
		b.fail(ErrStructural, "block size set on a callable")
		return
	}
	if x == 0 || y == 0 || z == 0 {
		b.fail(ErrStructural, "block size (%d, %d, %d) has a zero extent", x, y, z)
		return
	}
	b.fn.blockSize = [3]uint32{x, y, z}
}

// Expressions

// attach checks that each child can be adopted by a new parent and marks it
// as adopted.
func (b *Builder) attach(children ...Expression) bool {
	if !b.ok() {
		return false
	}
	for _, c := range children {
		if c == nil {
			b.fail(ErrStructural, "nil operand")
			return false
		}
		base := c.base()
		if base.owner != b.fn {
			b.fail(ErrStructural, "%s expression belongs to %v", base.tag, base.owner)
			return false
		}
		if base.attached {
			b.fail(ErrStructural, "%s expression already has a parent", base.tag)
			return false
		}
	}
	for _, c := range children {
		c.base().attached = true
	}
	return true
}

// Literal creates an immediate value.
func (b *Builder) Literal(v LiteralValue) Expression {
	if !b.ok() {
		return nil
	}
	t, err := LiteralType(v)
	if err != nil {
		b.fail(ErrStructural, "%v", err)
		return nil
	}
	e := &LiteralExpr{value: v}
	e.init(e, ExprLiteral, t, b.fn)
	return e
}

// Ref creates a reference to v. Every use of a variable needs its own Ref.
func (b *Builder) Ref(v Variable) Expression {
	if !b.ok() {
		return nil
	}
	if v.typ == nil {
		b.fail(ErrStructural, "reference to an undeclared variable")
		return nil
	}
	e := &RefExpr{variable: v}
	e.init(e, ExprRef, v.typ, b.fn)
	return e
}

// Constant references a constant table, binding it to the function on first use.
func (b *Builder) Constant(data ConstantData) Expression {
	if !b.ok() {
		return nil
	}
	if data.Len() == 0 {
		b.fail(ErrStructural, "empty constant table")
		return nil
	}
	elem, err := LiteralType(data.values[0])
	if err != nil {
		b.fail(ErrStructural, "%v", err)
		return nil
	}
	t := Array(elem, uint32(data.Len())) //nolint:gosec // G115: table length fits uint32
	if !b.constants[data.Hash()] {
		b.constants[data.Hash()] = true
		b.fn.constants = append(b.fn.constants, ConstantBinding{Type: t, Data: data})
	}
	e := &ConstantExpr{data: data}
	e.init(e, ExprConstant, t, b.fn)
	return e
}

// Unary applies op to operand, producing a value of type t.
func (b *Builder) Unary(t *Type, op UnaryOperator, operand Expression) Expression {
	if !b.attach(operand) {
		return nil
	}
	e := &UnaryExpr{op: op, operand: operand}
	e.init(e, ExprUnary, t, b.fn)
	return e
}

// Binary applies op to lhs and rhs, producing a value of type t.
func (b *Builder) Binary(t *Type, op BinaryOperator, lhs, rhs Expression) Expression {
	if !b.attach(lhs, rhs) {
		return nil
	}
	e := &BinaryExpr{op: op, lhs: lhs, rhs: rhs}
	e.init(e, ExprBinary, t, b.fn)
	return e
}

// Member selects member index of a structure value.
func (b *Builder) Member(self Expression, index uint32) Expression {
	if !b.ok() || self == nil {
		b.attach(self)
		return nil
	}
	st := self.Type()
	if st == nil || !st.IsStructure() || int(index) >= len(st.Members()) {
		b.fail(ErrStructural, "member %d of %v", index, st)
		return nil
	}
	if !b.attach(self) {
		return nil
	}
	e := &MemberExpr{self: self, member: index}
	e.init(e, ExprMember, st.Members()[index], b.fn)
	return e
}

// Swizzle selects the given components of a vector value.
func (b *Builder) Swizzle(self Expression, components ...uint32) Expression {
	if !b.ok() || self == nil {
		b.attach(self)
		return nil
	}
	vt := self.Type()
	if vt == nil || vt.Tag() != TypeVector || len(components) == 0 || len(components) > 4 {
		b.fail(ErrStructural, "swizzle of %d components on %v", len(components), vt)
		return nil
	}
	var code uint32
	for i, c := range components {
		if c >= vt.Dimension() {
			b.fail(ErrStructural, "swizzle component %d out of range for %v", c, vt)
			return nil
		}
		code |= c << (4 * uint32(i)) //nolint:gosec // G115: i < 4
	}
	t := vt.Element()
	if len(components) > 1 {
		t = Vector(vt.Element(), uint32(len(components))) //nolint:gosec // G115: at most 4
	}
	if !b.attach(self) {
		return nil
	}
	e := &MemberExpr{self: self, swizzleSize: uint32(len(components)), swizzleCode: code} //nolint:gosec // G115: at most 4
	e.init(e, ExprMember, t, b.fn)
	return e
}

// Access indexes a vector, matrix or array value.
func (b *Builder) Access(rng, index Expression) Expression {
	if !b.ok() || rng == nil || index == nil {
		b.attach(rng, index)
		return nil
	}
	rt := rng.Type()
	var t *Type
	switch {
	case rt == nil:
	case rt.Tag() == TypeVector, rt.Tag() == TypeArray:
		t = rt.Element()
	case rt.Tag() == TypeMatrix:
		t = Vector(Float(), rt.Dimension())
	}
	if t == nil {
		b.fail(ErrStructural, "%v is not indexable", rt)
		return nil
	}
	if it := index.Type(); it != Int() && it != Uint() {
		b.fail(ErrStructural, "index of type %v", it)
		return nil
	}
	if !b.attach(rng, index) {
		return nil
	}
	e := &AccessExpr{rng: rng, index: index}
	e.init(e, ExprAccess, t, b.fn)
	return e
}

func isCandidateOp(op CallOp) bool {
	switch op {
	case CallRayQueryTriangleCandidateHit, CallRayQueryProceduralCandidateHit,
		CallRayQueryCommitTriangle, CallRayQueryCommitProcedural, CallRayQueryTerminate:
		return true
	default:
		return false
	}
}

// Call invokes the built-in op. t is nil for operations without a result.
func (b *Builder) Call(t *Type, op CallOp, args ...Expression) Expression {
	if op == CallCustom || op >= callOpCount {
		b.fail(ErrStructural, "invalid built-in %d", op)
		return nil
	}
	if isCandidateOp(op) && b.rayQueryDepth == 0 && b.ok() {
		b.fail(ErrStructural, "%s outside of a ray query candidate body", op)
		return nil
	}
	if !b.attach(args...) {
		return nil
	}
	b.fn.directOps.Add(op)
	e := &CallExpr{op: op, args: args}
	e.init(e, ExprCall, t, b.fn)
	return e
}

// CallCustom invokes a finished callable. The result type is the callee's
// return type.
func (b *Builder) CallCustom(callee *Function, args ...Expression) Expression {
	if !b.ok() {
		return nil
	}
	switch {
	case callee == nil:
		b.fail(ErrStructural, "call to a nil callable")
		return nil
	case callee.arena != b.fn.arena:
		b.fail(ErrStructural, "call to %v from another arena", callee)
		return nil
	case callee.kind != KindCallable:
		b.fail(ErrStructural, "call to %v, which is not a callable", callee)
		return nil
	case !callee.finished:
		b.fail(ErrConsistency, "call to unfinished %v; recursive call graphs are not supported", callee)
		return nil
	case len(args) != len(callee.arguments):
		b.fail(ErrStructural, "call to %v with %d arguments, want %d", callee, len(args), len(callee.arguments))
		return nil
	}
	if !b.attach(args...) {
		return nil
	}
	if !b.callables[callee.handle] {
		b.callables[callee.handle] = true
		b.fn.callables = append(b.fn.callables, callee.handle)
	}
	e := &CallExpr{op: CallCustom, custom: callee, args: args}
	e.init(e, ExprCall, callee.returnType, b.fn)
	return e
}

// Cast converts expr to type t.
func (b *Builder) Cast(t *Type, op CastOperator, expr Expression) Expression {
	if t == nil || !(t.IsScalar() || t.Tag() == TypeVector) {
		b.fail(ErrStructural, "cast to %v", t)
		return nil
	}
	if !b.attach(expr) {
		return nil
	}
	e := &CastExpr{op: op, expr: expr}
	e.init(e, ExprCast, t, b.fn)
	return e
}

// CPUCustom invokes the host callback registered under id on arg.
func (b *Builder) CPUCustom(t *Type, callback uint64, arg Expression) Expression {
	if !b.attach(arg) {
		return nil
	}
	e := &CPUCustomExpr{callback: callback, arg: arg}
	e.init(e, ExprCPUCustom, t, b.fn)
	return e
}

// GPUCustom splices backend source text applied to arg.
func (b *Builder) GPUCustom(t *Type, source string, arg Expression) Expression {
	if !b.attach(arg) {
		return nil
	}
	e := &GPUCustomExpr{source: source, arg: arg}
	e.init(e, ExprGPUCustom, t, b.fn)
	return e
}

// Statements

func (b *Builder) current() frame { return b.frames[len(b.frames)-1] }

// push appends s to the current scope. Inside a switch body only case and
// default arms are allowed.
func (b *Builder) push(s Statement) bool {
	if !b.ok() {
		return false
	}
	top := b.current()
	isArm := s.Tag() == StmtSwitchCase || s.Tag() == StmtSwitchDefault
	if top.isSwitch != isArm {
		if isArm {
			b.fail(ErrStructural, "%s outside of a switch body", s.Tag())
		} else {
			b.fail(ErrStructural, "%s directly inside a switch body", s.Tag())
		}
		return false
	}
	top.scope.append(s)
	return true
}

// nested records the statements made by body into a fresh scope.
func (b *Builder) nested(isSwitch bool, body func()) *ScopeStmt {
	scope := newScope()
	if body == nil || !b.ok() {
		return scope
	}
	b.frames = append(b.frames, frame{scope: scope, isSwitch: isSwitch})
	body()
	b.frames = b.frames[:len(b.frames)-1]
	return scope
}

func (b *Builder) Break() {
	s := &BreakStmt{}
	s.init(s, StmtBreak)
	b.push(s)
}

func (b *Builder) Continue() {
	s := &ContinueStmt{}
	s.init(s, StmtContinue)
	b.push(s)
}

// Return returns from the function. expr is nil for a void return; the
// first valued return of a callable fixes its return type.
func (b *Builder) Return(expr Expression) {
	if !b.ok() {
		return
	}
	if expr != nil {
		if b.fn.kind == KindKernel {
			b.fail(ErrStructural, "kernels cannot return a value")
			return
		}
		if !b.attach(expr) {
			return
		}
		switch {
		case !b.returnSet:
			b.fn.returnType = expr.Type()
		case b.fn.returnType != expr.Type():
			b.fail(ErrStructural, "return of %v, want %v", expr.Type(), b.fn.returnType)
			return
		}
		expr.Mark(UsageRead)
	} else if b.returnSet && b.fn.returnType != nil {
		b.fail(ErrStructural, "void return, want %v", b.fn.returnType)
		return
	}
	b.returnSet = true
	s := &ReturnStmt{expr: expr}
	s.init(s, StmtReturn)
	b.push(s)
}

// Comment emits text as a comment in the generated source.
func (b *Builder) Comment(text string) {
	s := &CommentStmt{comment: text}
	s.init(s, StmtComment)
	b.push(s)
}

// Expr evaluates expr for its side effects.
func (b *Builder) Expr(expr Expression) {
	if !b.attach(expr) {
		return
	}
	expr.Mark(UsageRead)
	s := &ExprStmt{expr: expr}
	s.init(s, StmtExpr)
	b.push(s)
}

// Assign stores rhs into lhs.
func (b *Builder) Assign(lhs, rhs Expression) {
	if !b.attach(lhs, rhs) {
		return
	}
	lhs.Mark(UsageWrite)
	rhs.Mark(UsageRead)
	s := &AssignStmt{lhs: lhs, rhs: rhs}
	s.init(s, StmtAssign)
	b.push(s)
}

// If records a conditional. otherwise may be nil.
func (b *Builder) If(cond Expression, then, otherwise func()) {
	if !b.attach(cond) {
		return
	}
	cond.Mark(UsageRead)
	s := &IfStmt{cond: cond}
	s.init(s, StmtIf)
	s.trueBranch = b.nested(false, then)
	s.falseBranch = b.nested(false, otherwise)
	b.push(s)
}

// Loop records an unconditional loop.
func (b *Builder) Loop(body func()) {
	if !b.ok() {
		return
	}
	s := &LoopStmt{}
	s.init(s, StmtLoop)
	s.body = b.nested(false, body)
	b.push(s)
}

// For records a loop that runs while cond holds and adds step to variable
// after every iteration.
func (b *Builder) For(variable, cond, step Expression, body func()) {
	if !b.attach(variable, cond, step) {
		return
	}
	variable.Mark(UsageReadWrite)
	cond.Mark(UsageRead)
	step.Mark(UsageRead)
	s := &ForStmt{variable: variable, condition: cond, step: step}
	s.init(s, StmtFor)
	s.body = b.nested(false, body)
	b.push(s)
}

// Switch records a switch on expr. body may only record Case and Default arms.
func (b *Builder) Switch(expr Expression, body func()) {
	if !b.attach(expr) {
		return
	}
	expr.Mark(UsageRead)
	s := &SwitchStmt{expr: expr}
	s.init(s, StmtSwitch)
	s.body = b.nested(true, body)
	b.push(s)
}

// Case records a switch arm taken when the switch value equals value.
func (b *Builder) Case(value Expression, body func()) {
	if !b.attach(value) {
		return
	}
	value.Mark(UsageRead)
	s := &SwitchCaseStmt{expr: value}
	s.init(s, StmtSwitchCase)
	s.body = b.nested(false, body)
	b.push(s)
}

// Default records the default switch arm.
func (b *Builder) Default(body func()) {
	if !b.ok() {
		return
	}
	s := &SwitchDefaultStmt{}
	s.init(s, StmtSwitchDefault)
	s.body = b.nested(false, body)
	b.push(s)
}

// Scope records a nested block.
func (b *Builder) Scope(body func()) {
	if !b.ok() {
		return
	}
	s := b.nested(false, body)
	b.push(s)
}

// RayQuery records a traversal of query, which must be a reference to a
// RayQueryAll or RayQueryAny local. The candidate bodies run once per
// candidate intersection; either may be nil.
func (b *Builder) RayQuery(query Expression, onTriangle, onProcedural func()) {
	if !b.ok() {
		return
	}
	ref, ok := query.(*RefExpr)
	if !ok || !IsRayQueryType(ref.Type()) {
		b.fail(ErrStructural, "ray query on a non ray query value")
		return
	}
	if b.rayQueryDepth > 0 {
		b.fail(ErrStructural, "nested ray query")
		return
	}
	if !b.attach(query) {
		return
	}
	query.Mark(UsageReadWrite)
	s := &RayQueryStmt{query: ref}
	s.init(s, StmtRayQuery)
	b.rayQueryDepth++
	s.onTriangle = b.nested(false, onTriangle)
	s.onProcedural = b.nested(false, onProcedural)
	b.rayQueryDepth--
	b.push(s)
}

// Finish completes recording: usage is resolved across the call graph, the
// propagated built-in set is computed and the function hash is frozen.
func (b *Builder) Finish() (*Function, error) {
	if b.err != nil {
		return nil, errors.Wrapf(b.err, "recording %v", b.fn)
	}
	if b.fn.finished {
		return nil, NewErrorWithContext(ErrStructural, b.fn.String(), "already finished")
	}
	if len(b.frames) != 1 {
		return nil, NewErrorWithContext(ErrStructural, b.fn.String(), "unbalanced scopes")
	}
	ResolveUsage(b.fn)
	propagateBuiltinOps(b.fn)
	b.fn.hash = b.fn.computeHash()
	b.fn.finished = true
	return b.fn, nil
}
