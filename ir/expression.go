package ir

import "sync"

// ExpressionTag identifies the concrete kind of an Expression.
type ExpressionTag uint8

const (
	ExprUnary ExpressionTag = iota
	ExprBinary
	ExprMember
	ExprAccess
	ExprLiteral
	ExprRef
	ExprConstant
	ExprCall
	ExprCast
	ExprCPUCustom
	ExprGPUCustom
)

// String returns a human-readable tag name.
func (t ExpressionTag) String() string {
	switch t {
	case ExprUnary:
		return "unary"
	case ExprBinary:
		return "binary"
	case ExprMember:
		return "member"
	case ExprAccess:
		return "access"
	case ExprLiteral:
		return "literal"
	case ExprRef:
		return "ref"
	case ExprConstant:
		return "constant"
	case ExprCall:
		return "call"
	case ExprCast:
		return "cast"
	case ExprCPUCustom:
		return "cpu_custom"
	case ExprGPUCustom:
		return "gpu_custom"
	default:
		return "unknown"
	}
}

// Expression is a value-producing node of the IR tree.
//
// The set of implementations is closed: *UnaryExpr, *BinaryExpr, *MemberExpr,
// *AccessExpr, *LiteralExpr, *RefExpr, *ConstantExpr, *CallExpr, *CastExpr,
// *CPUCustomExpr and *GPUCustomExpr.
type Expression interface {
	// Tag returns the node kind.
	Tag() ExpressionTag
	// Type returns the result type, or nil for void calls.
	Type() *Type
	// Usage returns the accumulated usage of the value.
	Usage() Usage
	// Mark merges u into the usage and, if it changed, propagates it one level down.
	Mark(u Usage)
	// Hash returns the structural hash. It is computed once and then frozen.
	Hash() uint64
	// Accept dispatches to the visitor method for the node's tag.
	Accept(v ExprVisitor) error

	base() *exprBase
	computeHash() uint64
	propagate(u Usage)
}

// exprBase holds the state shared by every expression node.
type exprBase struct {
	tag   ExpressionTag
	typ   *Type
	owner *Function
	node  Expression // the concrete node embedding this base
	usage Usage

	// attached is set once the node becomes the child of another node or a
	// statement, which keeps the tree free of sharing.
	attached bool

	hashOnce sync.Once
	hash     uint64
}

func (b *exprBase) init(node Expression, tag ExpressionTag, typ *Type, owner *Function) {
	b.node = node
	b.tag = tag
	b.typ = typ
	b.owner = owner
}

func (b *exprBase) Tag() ExpressionTag { return b.tag }
func (b *exprBase) Type() *Type        { return b.typ }
func (b *exprBase) Usage() Usage       { return b.usage }
func (b *exprBase) base() *exprBase    { return b }

func (b *exprBase) Mark(u Usage) {
	if merged := b.usage.Merge(u); merged != b.usage {
		b.usage = merged
		b.node.propagate(u)
	}
}

func (b *exprBase) Hash() uint64 {
	b.hashOnce.Do(func() { b.hash = structuralHash(b.node) })
	return b.hash
}

// structuralHash computes the hash of e without consulting its memoized value.
func structuralHash(e Expression) uint64 {
	b := e.base()
	h := hash64(uint64(b.tag), e.computeHash(), seedExpression)
	if b.typ != nil {
		h = hash64(b.typ.Hash(), h)
	}
	return h
}

// UnaryExpr applies a unary operator to an operand.
type UnaryExpr struct {
	exprBase
	op      UnaryOperator
	operand Expression
}

func (e *UnaryExpr) Op() UnaryOperator   { return e.op }
func (e *UnaryExpr) Operand() Expression { return e.operand }

func (e *UnaryExpr) computeHash() uint64 { return hash64(uint64(e.op), e.operand.Hash()) }
func (e *UnaryExpr) propagate(Usage)     { e.operand.Mark(UsageRead) }

// BinaryExpr applies a binary operator to two operands.
type BinaryExpr struct {
	exprBase
	op       BinaryOperator
	lhs, rhs Expression
}

func (e *BinaryExpr) Op() BinaryOperator { return e.op }
func (e *BinaryExpr) LHS() Expression    { return e.lhs }
func (e *BinaryExpr) RHS() Expression    { return e.rhs }

func (e *BinaryExpr) computeHash() uint64 { return hash64(uint64(e.op), e.lhs.Hash(), e.rhs.Hash()) }

func (e *BinaryExpr) propagate(Usage) {
	e.lhs.Mark(UsageRead)
	e.rhs.Mark(UsageRead)
}

// MemberExpr selects a structure member or swizzles vector components.
type MemberExpr struct {
	exprBase
	self        Expression
	member      uint32
	swizzleSize uint32
	swizzleCode uint32 // 4 bits per component index
}

func (e *MemberExpr) Self() Expression { return e.self }

// IsSwizzle reports whether the expression swizzles vector components.
func (e *MemberExpr) IsSwizzle() bool { return e.swizzleSize != 0 }

// MemberIndex returns the selected structure member.
func (e *MemberExpr) MemberIndex() uint32 { return e.member }

// SwizzleSize returns the number of swizzled components.
func (e *MemberExpr) SwizzleSize() uint32 { return e.swizzleSize }

// SwizzleIndex returns the source component of swizzled component i.
func (e *MemberExpr) SwizzleIndex(i uint32) uint32 { return (e.swizzleCode >> (4 * i)) & 0xf }

func (e *MemberExpr) computeHash() uint64 {
	return hash64(uint64(e.member), uint64(e.swizzleSize), uint64(e.swizzleCode), e.self.Hash())
}

// Writing a member writes the aggregate.
func (e *MemberExpr) propagate(u Usage) { e.self.Mark(u) }

// AccessExpr indexes into a vector, matrix, array or buffer-like range.
type AccessExpr struct {
	exprBase
	rng   Expression
	index Expression
}

func (e *AccessExpr) Range() Expression { return e.rng }
func (e *AccessExpr) Index() Expression { return e.index }

func (e *AccessExpr) computeHash() uint64 { return hash64(e.rng.Hash(), e.index.Hash()) }

func (e *AccessExpr) propagate(u Usage) {
	e.rng.Mark(u)
	e.index.Mark(UsageRead)
}

// LiteralExpr is an immediate value.
type LiteralExpr struct {
	exprBase
	value LiteralValue
}

func (e *LiteralExpr) Value() LiteralValue { return e.value }

func (e *LiteralExpr) computeHash() uint64 { return hashBytes(0, e.value.appendBytes(nil)) }
func (e *LiteralExpr) propagate(Usage)     {}

// RefExpr references a variable.
type RefExpr struct {
	exprBase
	variable Variable
}

func (e *RefExpr) Variable() Variable { return e.variable }

func (e *RefExpr) computeHash() uint64 { return e.variable.Hash() }

func (e *RefExpr) propagate(u Usage) { e.owner.markVariableUsage(e.variable.uid, u) }

// ConstantExpr references a constant table bound to the function.
type ConstantExpr struct {
	exprBase
	data ConstantData
}

func (e *ConstantExpr) Data() ConstantData { return e.data }

func (e *ConstantExpr) computeHash() uint64 { return e.data.Hash() }
func (e *ConstantExpr) propagate(Usage)     {}

// CallExpr invokes a built-in operation or a custom callable.
type CallExpr struct {
	exprBase
	op     CallOp
	custom *Function
	args   []Expression
}

func (e *CallExpr) Op() CallOp              { return e.op }
func (e *CallExpr) Arguments() []Expression { return e.args }

// IsBuiltin reports whether the callee is a built-in operation.
func (e *CallExpr) IsBuiltin() bool { return e.op != CallCustom }

// Custom returns the callee of a custom call, or nil for built-ins.
func (e *CallExpr) Custom() *Function { return e.custom }

func (e *CallExpr) computeHash() uint64 {
	words := make([]uint64, 0, len(e.args)+1)
	if e.custom != nil {
		words = append(words, e.custom.Hash())
	}
	for _, arg := range e.args {
		words = append(words, arg.Hash())
	}
	return hash64(uint64(e.op), words...)
}

func (e *CallExpr) propagate(Usage) { e.markArguments() }

// markArguments marks each argument with the usage the callee imposes on it.
func (e *CallExpr) markArguments() {
	if e.IsBuiltin() {
		if e.op.IsMutating() && len(e.args) > 0 {
			e.args[0].Mark(UsageWrite)
			for _, arg := range e.args[1:] {
				arg.Mark(UsageRead)
			}
			return
		}
		for _, arg := range e.args {
			arg.Mark(UsageRead)
		}
		return
	}
	params := e.custom.Arguments()
	for i, arg := range e.args {
		p := params[i]
		switch p.tag {
		case VarReference, VarBuffer, VarAccel, VarTexture:
			arg.Mark(e.custom.VariableUsage(p.uid))
		default:
			arg.Mark(UsageRead)
		}
	}
}

// CastExpr converts a value to the expression's type.
type CastExpr struct {
	exprBase
	op   CastOperator
	expr Expression
}

func (e *CastExpr) Op() CastOperator       { return e.op }
func (e *CastExpr) Expression() Expression { return e.expr }

func (e *CastExpr) computeHash() uint64 { return hash64(uint64(e.op), e.expr.Hash()) }
func (e *CastExpr) propagate(Usage)     { e.expr.Mark(UsageRead) }

// CPUCustomExpr invokes a host callback with a pointer to its argument.
// Only host backends can lower it.
type CPUCustomExpr struct {
	exprBase
	callback uint64
	arg      Expression
}

// Callback returns the id of the registered host callback.
func (e *CPUCustomExpr) Callback() uint64   { return e.callback }
func (e *CPUCustomExpr) Argument() Expression { return e.arg }

func (e *CPUCustomExpr) computeHash() uint64 {
	return hash64(seedCustomCallback, e.callback, e.arg.Hash())
}

// The callback receives a mutable pointer to its argument.
func (e *CPUCustomExpr) propagate(Usage) { e.arg.Mark(UsageReadWrite) }

// GPUCustomExpr splices backend source text applied to its argument.
type GPUCustomExpr struct {
	exprBase
	source string
	arg    Expression
}

func (e *GPUCustomExpr) Source() string       { return e.source }
func (e *GPUCustomExpr) Argument() Expression { return e.arg }

func (e *GPUCustomExpr) computeHash() uint64 {
	return hash64(hashBytes(seedCustomCallback, []byte(e.source)), e.arg.Hash())
}

func (e *GPUCustomExpr) propagate(Usage) { e.arg.Mark(UsageReadWrite) }

// NewExpression creates an expression from its tag alone.
// Nodes can only be created through a Builder, so this always fails.
func NewExpression(tag ExpressionTag) (Expression, error) {
	return nil, NewErrorWithContext(ErrNotImplemented, tag.String()+" expression",
		"expressions must be created through a Builder")
}
