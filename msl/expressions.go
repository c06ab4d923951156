package msl

import (
	"github.com/gogpu/lcgen/ir"
)

// exprWriter renders expressions inline into the Writer's output.
type exprWriter struct{ w *Writer }

// writeExpression writes e at the current position.
func (w *Writer) writeExpression(e ir.Expression) error {
	return e.Accept(exprWriter{w})
}

var xyzw = [4]string{"x", "y", "z", "w"}

func (x exprWriter) VisitUnary(e *ir.UnaryExpr) error {
	switch e.Op() {
	case ir.UnaryPlus:
		x.w.write("+")
	case ir.UnaryMinus:
		x.w.write("-")
	case ir.UnaryNot:
		x.w.write("!")
	case ir.UnaryBitNot:
		x.w.write("~")
	}
	// Parenthesized so nested signs never lex as ++ or --.
	x.w.write("(")
	if err := x.w.writeExpression(e.Operand()); err != nil {
		return err
	}
	x.w.write(")")
	return nil
}

func (x exprWriter) VisitBinary(e *ir.BinaryExpr) error {
	// % is integer-only in MSL
	if e.Op() == ir.BinaryMod && isFloat(e.Type()) {
		return x.w.writeCall(Namespace+"fmod", e.LHS(), e.RHS())
	}
	x.w.write("(")
	if err := x.w.writeExpression(e.LHS()); err != nil {
		return err
	}
	x.w.write(" %s ", e.Op().Token())
	if err := x.w.writeExpression(e.RHS()); err != nil {
		return err
	}
	x.w.write(")")
	return nil
}

func isFloat(t *ir.Type) bool {
	if t == nil {
		return false
	}
	if t.Tag() == ir.TypeVector {
		t = t.Element()
	}
	return t.Tag() == ir.TypeFloat32
}

func (x exprWriter) VisitMember(e *ir.MemberExpr) error {
	if err := x.w.writeExpression(e.Self()); err != nil {
		return err
	}
	if !e.IsSwizzle() {
		x.w.write(".m%d", e.MemberIndex())
		return nil
	}
	x.w.write(".")
	for i := uint32(0); i < e.SwizzleSize(); i++ {
		x.w.out.WriteString(xyzw[e.SwizzleIndex(i)])
	}
	return nil
}

func (x exprWriter) VisitAccess(e *ir.AccessExpr) error {
	if err := x.w.writeExpression(e.Range()); err != nil {
		return err
	}
	x.w.write("[")
	if err := x.w.writeExpression(e.Index()); err != nil {
		return err
	}
	x.w.write("]")
	return nil
}

func (x exprWriter) VisitLiteral(e *ir.LiteralExpr) error {
	s, err := formatLiteral(e.Value())
	if err != nil {
		return err
	}
	x.w.out.WriteString(s)
	return nil
}

func (x exprWriter) VisitRef(e *ir.RefExpr) error {
	x.w.out.WriteString(variableName(e.Variable()))
	return nil
}

func (x exprWriter) VisitConstant(e *ir.ConstantExpr) error {
	x.w.write("c%s", ir.HashString(e.Data().Hash()))
	return nil
}

// mathFunctionName maps the built-ins that have a direct metal:: counterpart.
func mathFunctionName(op ir.CallOp) string {
	switch op {
	case ir.CallLerp:
		return "mix"
	case ir.CallReverse:
		return "reverse_bits"
	case ir.CallAll, ir.CallAny, ir.CallSelect, ir.CallClamp, ir.CallStep,
		ir.CallAbs, ir.CallMin, ir.CallMax,
		ir.CallClz, ir.CallCtz, ir.CallPopcount,
		ir.CallIsInf, ir.CallIsNan,
		ir.CallAcos, ir.CallAsin, ir.CallAtan, ir.CallAtan2,
		ir.CallCos, ir.CallSin, ir.CallTan,
		ir.CallExp, ir.CallLog, ir.CallPow, ir.CallSqrt, ir.CallRsqrt,
		ir.CallCeil, ir.CallFloor, ir.CallFract, ir.CallTrunc, ir.CallRound,
		ir.CallFma, ir.CallCopysign,
		ir.CallCross, ir.CallDot, ir.CallLength, ir.CallLengthSquared,
		ir.CallNormalize, ir.CallFaceforward, ir.CallDeterminant, ir.CallTranspose:
		return op.String()
	default:
		return ""
	}
}

// atomicFunctionName returns the explicit-order atomic function for op.
func atomicFunctionName(op ir.CallOp) string {
	switch op {
	case ir.CallAtomicExchange:
		return Namespace + "atomic_exchange_explicit"
	case ir.CallAtomicFetchAdd:
		return Namespace + "atomic_fetch_add_explicit"
	case ir.CallAtomicFetchSub:
		return Namespace + "atomic_fetch_sub_explicit"
	case ir.CallAtomicFetchAnd:
		return Namespace + "atomic_fetch_and_explicit"
	case ir.CallAtomicFetchOr:
		return Namespace + "atomic_fetch_or_explicit"
	case ir.CallAtomicFetchXor:
		return Namespace + "atomic_fetch_xor_explicit"
	case ir.CallAtomicFetchMin:
		return Namespace + "atomic_fetch_min_explicit"
	case ir.CallAtomicFetchMax:
		return Namespace + "atomic_fetch_max_explicit"
	case ir.CallAtomicCompareExchange:
		return compareExchangeHelper
	default:
		return ""
	}
}

func (x exprWriter) VisitCall(e *ir.CallExpr) error {
	w := x.w
	op := e.Op()
	args := e.Arguments()

	if name := mathFunctionName(op); name != "" {
		return w.writeCall(Namespace+name, args...)
	}
	if name := atomicFunctionName(op); name != "" {
		return w.writeAtomic(e, name)
	}

	switch op {
	case ir.CallCustom:
		return w.writeCustomCall(e)

	case ir.CallBufferRead:
		return x.indexed(args[0], args[1])

	case ir.CallBufferWrite:
		if err := x.indexed(args[0], args[1]); err != nil {
			return err
		}
		w.write(" = ")
		return w.writeExpression(args[2])

	case ir.CallTextureRead:
		if err := w.writeExpression(args[0]); err != nil {
			return err
		}
		return w.writeCall(".read", args[1])

	case ir.CallTextureWrite:
		if err := w.writeExpression(args[0]); err != nil {
			return err
		}
		return w.writeCall(".write", args[2], args[1])

	case ir.CallMakeVector, ir.CallMakeMatrix:
		return w.writeCall(typeName(e.Type()), args...)

	case ir.CallSynchronizeBlock:
		w.write("%sthreadgroup_barrier(%smem_flags::mem_threadgroup)", Namespace, Namespace)
		return nil

	case ir.CallAssume:
		return w.writeCall("__builtin_assume", args...)

	case ir.CallUnreachable:
		w.write("__builtin_unreachable()")
		return nil

	case ir.CallTraceClosest:
		return w.writeCall("_lc_trace_closest", args...)

	case ir.CallTraceAny:
		return w.writeCall("_lc_trace_any", args...)

	case ir.CallRayQueryCommittedHit:
		return w.writeCall("_lc_committed_hit", args...)

	case ir.CallRayQueryTriangleCandidateHit:
		w.write("_lc_triangle_candidate(%s)", w.currentQuery)
		return nil

	case ir.CallRayQueryProceduralCandidateHit:
		w.write("_lc_procedural_candidate(%s)", w.currentQuery)
		return nil

	case ir.CallRayQueryCommitTriangle:
		w.write("%s.commit_triangle_intersection()", w.currentQuery)
		return nil

	case ir.CallRayQueryCommitProcedural:
		w.write("%s.commit_bounding_box_intersection(", w.currentQuery)
		if err := w.writeExpression(args[0]); err != nil {
			return err
		}
		w.write(")")
		return nil

	case ir.CallRayQueryTerminate:
		w.write("%s.abort()", w.currentQuery)
		return nil

	case ir.CallQueryAll, ir.CallQueryAny:
		return ir.NewErrorWithContext(ir.ErrNotImplemented, op.String(),
			"intersection queries are not copyable; start a query by assigning it to a ray query local")

	case ir.CallInverse:
		return ir.NewErrorWithContext(ir.ErrNotImplemented, op.String(),
			"the Metal standard library has no matrix inverse")

	case ir.CallBindlessTexture2DSample, ir.CallBindlessTexture2DSampleLevel,
		ir.CallBindlessTexture2DRead, ir.CallBindlessTexture2DSize, ir.CallBindlessBufferRead:
		return ir.NewErrorWithContext(ir.ErrNotImplemented, op.String(),
			"bindless arrays are not supported by the Metal backend")

	case ir.CallInstanceTransform, ir.CallSetInstanceTransform,
		ir.CallSetInstanceVisibility, ir.CallSetInstanceOpacity:
		return ir.NewErrorWithContext(ir.ErrNotImplemented, op.String(),
			"Metal instance descriptors are written by the host")
	}
	return ir.NewError(ir.ErrStructural, "unknown built-in %s", op)
}

// indexed writes range[index].
func (x exprWriter) indexed(rng, index ir.Expression) error {
	if err := x.w.writeExpression(rng); err != nil {
		return err
	}
	x.w.write("[")
	if err := x.w.writeExpression(index); err != nil {
		return err
	}
	x.w.write("]")
	return nil
}

// writeCall writes name(args...).
func (w *Writer) writeCall(name string, args ...ir.Expression) error {
	w.out.WriteString(name)
	w.write("(")
	for i, arg := range args {
		if i > 0 {
			w.write(", ")
		}
		if err := w.writeExpression(arg); err != nil {
			return err
		}
	}
	w.write(")")
	return nil
}

// writeCustomCall writes a callable invocation. Callables that read launch
// built-ins receive them after their declared arguments.
func (w *Writer) writeCustomCall(e *ir.CallExpr) error {
	callee := e.Custom()
	w.write("custom_%s(", ir.HashString(callee.Hash()))
	for i, arg := range e.Arguments() {
		if i > 0 {
			w.write(", ")
		}
		if err := w.writeExpression(arg); err != nil {
			return err
		}
	}
	if w.builtinCallables[callee.Handle()] {
		if len(e.Arguments()) > 0 {
			w.write(", ")
		}
		w.write("tid, bid, did, ls")
	}
	w.write(")")
	return nil
}

// writeAtomic writes an atomic built-in. The target is either a buffer
// element, given as buffer and index, or a shared or local lvalue.
func (w *Writer) writeAtomic(e *ir.CallExpr, name string) error {
	args := e.Arguments()
	target, values := args[0], args[1:]
	space := "thread"
	switch {
	case target.Type().Tag() == ir.TypeBuffer:
		space = "device"
	case isShared(target):
		space = "threadgroup"
	}

	elem := e.Type()
	if target.Type().Tag() == ir.TypeBuffer {
		elem = target.Type().Element()
	}
	w.write("%s(reinterpret_cast<%s %satomic_%s *>(&", name, space, Namespace, scalarTypeName(elem))
	if target.Type().Tag() == ir.TypeBuffer {
		if err := (exprWriter{w}).indexed(target, values[0]); err != nil {
			return err
		}
		values = values[1:]
	} else if err := w.writeExpression(target); err != nil {
		return err
	}
	w.write(")")
	for _, v := range values {
		w.write(", ")
		if err := w.writeExpression(v); err != nil {
			return err
		}
	}
	if e.Op() != ir.CallAtomicCompareExchange {
		w.write(", %smemory_order_relaxed", Namespace)
	}
	w.write(")")
	return nil
}

// isShared reports whether e designates threadgroup memory.
func isShared(e ir.Expression) bool {
	for {
		switch x := e.(type) {
		case *ir.RefExpr:
			return x.Variable().Tag() == ir.VarShared
		case *ir.AccessExpr:
			e = x.Range()
		case *ir.MemberExpr:
			e = x.Self()
		default:
			return false
		}
	}
}

func (x exprWriter) VisitCast(e *ir.CastExpr) error {
	switch e.Op() {
	case ir.CastStatic:
		x.w.write("static_cast<%s>(", typeName(e.Type()))
	case ir.CastBitwise:
		x.w.write("as_type<%s>(", typeName(e.Type()))
	}
	if err := x.w.writeExpression(e.Expression()); err != nil {
		return err
	}
	x.w.write(")")
	return nil
}

func (x exprWriter) VisitCPUCustom(*ir.CPUCustomExpr) error {
	return ir.NewErrorWithContext(ir.ErrNotImplemented, "cpu_custom expression",
		"host callbacks are not supported by the Metal backend")
}

func (x exprWriter) VisitGPUCustom(*ir.GPUCustomExpr) error {
	return ir.NewErrorWithContext(ir.ErrNotImplemented, "gpu_custom expression",
		"custom device code is not supported by the Metal backend")
}
