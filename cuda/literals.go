package cuda

import (
	"math"
	"strconv"
	"strings"

	"github.com/gogpu/lcgen/ir"
)

// formatLiteral renders v completely before anything is written, so a
// rejected value leaves no partial text behind.
func formatLiteral(v ir.LiteralValue) (string, error) {
	var b strings.Builder
	if err := appendLiteral(&b, v); err != nil {
		return "", err
	}
	return b.String(), nil
}

func appendLiteral(b *strings.Builder, v ir.LiteralValue) error {
	switch v := v.(type) {
	case ir.LiteralBool:
		if v {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case ir.LiteralInt:
		b.WriteString(strconv.FormatInt(int64(v), 10))
	case ir.LiteralUint:
		b.WriteString(strconv.FormatUint(uint64(v), 10))
		b.WriteByte('u')
	case ir.LiteralFloat:
		s, err := formatFloat(float32(v))
		if err != nil {
			return err
		}
		b.WriteString(s)
	case ir.LiteralVector:
		t, err := ir.LiteralType(v)
		if err != nil {
			return err
		}
		b.WriteString("lc_make_")
		b.WriteString(scalarName(t.Element()))
		b.WriteString(strconv.Itoa(len(v.Components)))
		b.WriteByte('(')
		for i, c := range v.Components {
			if i > 0 {
				b.WriteString(", ")
			}
			if err := appendLiteral(b, c); err != nil {
				return err
			}
		}
		b.WriteByte(')')
	case ir.LiteralMatrix:
		if _, err := ir.LiteralType(v); err != nil {
			return err
		}
		n := strconv.FormatUint(uint64(v.Dim), 10)
		b.WriteString("lc_make_float" + n + "x" + n + "(")
		for col := uint32(0); col < v.Dim; col++ {
			for row := uint32(0); row < v.Dim; row++ {
				if col+row > 0 {
					b.WriteString(", ")
				}
				s, err := formatFloat(v.At(col, row))
				if err != nil {
					return err
				}
				b.WriteString(s)
			}
		}
		b.WriteByte(')')
	default:
		return ir.NewError(ir.ErrStructural, "unknown literal %T", v)
	}
	return nil
}

// formatFloat renders a float literal. Infinities are bit patterns since CUDA
// has no infinity token; NaN is rejected.
func formatFloat(f float32) (string, error) {
	switch {
	case math.IsNaN(float64(f)):
		return "", ir.NewErrorWithContext(ir.ErrNumeric, "float literal", "encountered NaN")
	case math.IsInf(float64(f), 1):
		return " __int_as_float(0x7f800000)", nil
	case math.IsInf(float64(f), -1):
		return " __int_as_float(0xff800000)", nil
	}
	s := strconv.FormatFloat(float64(f), 'g', -1, 32)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s + "f", nil
}

// writeConstant declares a constant table once per data hash, wrapping the
// elements every 16 values when the table is longer than that.
func (w *Writer) writeConstant(c ir.ConstantBinding) error {
	if w.generatedConstants[c.Data.Hash()] {
		return nil
	}
	const wrap = 16
	values := c.Data.Values()
	var b strings.Builder
	b.WriteString("__constant__ LC_CONSTANT ")
	b.WriteString(typeName(c.Type))
	b.WriteString(" c")
	b.WriteString(ir.HashString(c.Data.Hash()))
	b.WriteByte('{')
	for i, v := range values {
		if i > 0 {
			b.WriteString(", ")
		}
		if len(values) > wrap && i%wrap == 0 {
			b.WriteString("\n    ")
		}
		if err := appendLiteral(&b, v); err != nil {
			return err
		}
	}
	b.WriteString("};\n")
	w.generatedConstants[c.Data.Hash()] = true
	w.out.WriteString(b.String())
	return nil
}
