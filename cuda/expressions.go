package cuda

import (
	"strconv"
	"strings"

	"github.com/gogpu/lcgen/ir"
)

// exprWriter renders expressions inline into the Writer's output.
type exprWriter struct{ w *Writer }

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

func (x exprWriter) VisitMember(e *ir.MemberExpr) error {
	if !e.IsSwizzle() {
		if err := x.w.writeExpression(e.Self()); err != nil {
			return err
		}
		x.w.write(".m%d", e.MemberIndex())
		return nil
	}
	n := e.SwizzleSize()
	if n == 1 {
		if err := x.w.writeExpression(e.Self()); err != nil {
			return err
		}
		x.w.write(".%s", xyzw[e.SwizzleIndex(0)])
		return nil
	}
	x.w.write("lc_make_%s%d(", scalarName(e.Type().Element()), n)
	for i := uint32(0); i < n; i++ {
		if i > 0 {
			x.w.write(", ")
		}
		if err := x.w.writeExpression(e.Self()); err != nil {
			return err
		}
		x.w.write(".%s", xyzw[e.SwizzleIndex(i)])
	}
	x.w.write(")")
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

// callName returns the device library function or macro invoked for e.
func callName(e *ir.CallExpr) string {
	op := e.Op()
	switch op {
	case ir.CallCustom:
		return "custom_" + ir.HashString(e.Custom().Hash())
	case ir.CallTextureRead, ir.CallTextureWrite:
		tex := e.Arguments()[0].Type()
		verb := "read"
		if op == ir.CallTextureWrite {
			verb = "write"
		}
		return "lc_surf" + strconv.FormatUint(uint64(tex.Dimension()), 10) + "d_" + verb +
			"<lc_" + tex.Element().Description() + ">"
	case ir.CallBindlessTexture2DSample:
		return "lc_bindless_texture_sample2d"
	case ir.CallBindlessTexture2DSampleLevel:
		return "lc_bindless_texture_sample2d_level"
	case ir.CallBindlessTexture2DRead:
		return "lc_bindless_texture_read2d"
	case ir.CallBindlessTexture2DSize:
		return "lc_bindless_texture_size2d"
	case ir.CallBindlessBufferRead:
		return "lc_bindless_buffer_read<" + typeName(e.Type()) + ">"
	case ir.CallMakeVector:
		t := e.Type()
		return "lc_make_" + scalarName(t.Element()) + strconv.FormatUint(uint64(t.Dimension()), 10)
	case ir.CallMakeMatrix:
		return typeNameToMake(e.Type())
	case ir.CallAssume:
		return "__builtin_assume"
	case ir.CallUnreachable:
		return "__builtin_unreachable"
	case ir.CallInstanceTransform, ir.CallSetInstanceTransform,
		ir.CallSetInstanceVisibility, ir.CallSetInstanceOpacity,
		ir.CallTraceClosest, ir.CallTraceAny, ir.CallQueryAll, ir.CallQueryAny:
		return "lc_accel_" + op.String()
	case ir.CallRayQueryTriangleCandidateHit, ir.CallRayQueryProceduralCandidateHit,
		ir.CallRayQueryCommitTriangle, ir.CallRayQueryCommitProcedural, ir.CallRayQueryTerminate:
		// Candidate handling is a macro over the outlined function's result.
		return "LC_" + strings.ToUpper(op.String())
	default:
		return "lc_" + op.String()
	}
}

// typeNameToMake returns the constructor of a matrix type.
func typeNameToMake(t *ir.Type) string {
	return "lc_make_" + strings.TrimPrefix(typeName(t), "lc_")
}

func (x exprWriter) VisitCall(e *ir.CallExpr) error {
	x.w.out.WriteString(callName(e))
	x.w.write("(")
	for i, arg := range e.Arguments() {
		if i > 0 {
			x.w.write(", ")
		}
		if err := x.w.writeExpression(arg); err != nil {
			return err
		}
	}
	x.w.write(")")
	return nil
}

func (x exprWriter) VisitCast(e *ir.CastExpr) error {
	switch e.Op() {
	case ir.CastStatic:
		x.w.write("static_cast<%s>(", typeName(e.Type()))
	case ir.CastBitwise:
		x.w.write("lc_bit_cast<%s>(", typeName(e.Type()))
	}
	if err := x.w.writeExpression(e.Expression()); err != nil {
		return err
	}
	x.w.write(")")
	return nil
}

func (x exprWriter) VisitCPUCustom(*ir.CPUCustomExpr) error {
	return ir.NewErrorWithContext(ir.ErrNotImplemented, "cpu_custom expression",
		"host callbacks are not supported by the CUDA backend")
}

func (x exprWriter) VisitGPUCustom(*ir.GPUCustomExpr) error {
	return ir.NewErrorWithContext(ir.ErrNotImplemented, "gpu_custom expression",
		"custom device code is not supported by the CUDA backend")
}
