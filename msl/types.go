package msl

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gogpu/lcgen/ir"
)

// Namespace is the MSL standard library namespace prefix.
const Namespace = "metal::"

// rtNamespace prefixes the ray tracing library.
const rtNamespace = "metal::raytracing::"

// queryTypeName is the intersection query type both ray query handles
// lower to; any-hit behavior is selected by intersection_params.
const queryTypeName = "metal::raytracing::intersection_query<metal::raytracing::instancing, metal::raytracing::triangle_data>"

// intrinsicName returns the fixed name of a well-known ray tracing
// structure, or "" for ordinary types.
func intrinsicName(t *ir.Type) string {
	switch t {
	case ir.RayType():
		return "LCRay"
	case ir.TriangleHitType():
		return "LCTriangleHit"
	case ir.ProceduralHitType():
		return "LCProceduralHit"
	case ir.CommittedHitType():
		return "LCCommittedHit"
	default:
		return ""
	}
}

// scalarTypeName returns the MSL name for a scalar type.
func scalarTypeName(t *ir.Type) string {
	switch t.Tag() {
	case ir.TypeBool:
		return "bool"
	case ir.TypeInt32:
		return "int"
	case ir.TypeUint32:
		return "uint"
	case ir.TypeFloat32:
		return "float"
	default:
		return "unknown_scalar"
	}
}

// typeName returns the MSL spelling of a value type. Unsupported types are
// rejected by collectStructs before any name is needed.
func typeName(t *ir.Type) string {
	if t == nil {
		return "void"
	}
	switch t.Tag() {
	case ir.TypeBool, ir.TypeInt32, ir.TypeUint32, ir.TypeFloat32:
		return scalarTypeName(t)
	case ir.TypeVector:
		return fmt.Sprintf("%s%s%d", Namespace, scalarTypeName(t.Element()), t.Dimension())
	case ir.TypeMatrix:
		return fmt.Sprintf("%sfloat%dx%d", Namespace, t.Dimension(), t.Dimension())
	case ir.TypeArray:
		return fmt.Sprintf("%sarray<%s, %d>", Namespace, typeName(t.Element()), t.Dimension())
	case ir.TypeStructure:
		if name := intrinsicName(t); name != "" {
			return name
		}
		return "S" + ir.HashString(t.Hash())
	case ir.TypeCustom:
		if ir.IsRayQueryType(t) {
			return queryTypeName
		}
		return "unknown_custom"
	case ir.TypeTexture:
		return textureTypeName(t)
	case ir.TypeAccel:
		return rtNamespace + "instance_acceleration_structure"
	default:
		return "unknown_type"
	}
}

// textureTypeName returns the read-write texture type for t.
func textureTypeName(t *ir.Type) string {
	elem := t.Element()
	if elem.Tag() == ir.TypeVector {
		elem = elem.Element()
	}
	return fmt.Sprintf("%stexture%dd<%s, %saccess::read_write>", Namespace, t.Dimension(), scalarTypeName(elem), Namespace)
}

// bufferTypeName returns the pointer type of a buffer parameter.
func bufferTypeName(t *ir.Type, readonly bool) string {
	if readonly {
		return "const device " + typeName(t.Element()) + " *"
	}
	return "device " + typeName(t.Element()) + " *"
}

// collectStructs returns the structures reachable from f, dependencies
// first, in discovery order. Types without an MSL rule are rejected here.
func collectStructs(f *ir.Function) ([]*ir.Type, error) {
	var out []*ir.Type
	seen := make(map[*ir.Type]bool)
	var visit func(t *ir.Type) error
	visit = func(t *ir.Type) error {
		if t == nil || seen[t] {
			return nil
		}
		seen[t] = true
		switch t.Tag() {
		case ir.TypeCustom:
			if !ir.IsRayQueryType(t) {
				return ir.NewErrorWithContext(ir.ErrNotImplemented, t.Description(), "unsupported custom type")
			}
		case ir.TypeBindlessArray:
			return ir.NewErrorWithContext(ir.ErrNotImplemented, t.Description(),
				"bindless arrays need argument buffers, which the Metal backend does not generate")
		case ir.TypeArray, ir.TypeBuffer, ir.TypeTexture:
			return visit(t.Element())
		case ir.TypeStructure:
			for _, m := range t.Members() {
				if err := visit(m); err != nil {
					return err
				}
			}
			out = append(out, t)
		}
		return nil
	}

	var types []*ir.Type
	for _, v := range f.Arguments() {
		types = append(types, v.Type())
	}
	for _, b := range f.Bindings() {
		types = append(types, b.Variable.Type())
	}
	for _, v := range f.LocalVariables() {
		types = append(types, v.Type())
	}
	for _, v := range f.SharedVariables() {
		types = append(types, v.Type())
	}
	for _, c := range f.Constants() {
		types = append(types, c.Type)
	}
	types = append(types, f.ReturnType())
	for _, t := range types {
		if err := visit(t); err != nil {
			return nil, err
		}
	}

	var err error
	ir.InspectStatement(f.Body(), func(s ir.Statement) bool {
		for _, e := range ir.StatementExpressions(s) {
			ir.InspectExpression(e, func(e ir.Expression) bool {
				if err == nil {
					err = visit(e.Type())
				}
				return err == nil
			})
		}
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// writeStructs declares every structure reachable from f that this session
// has not declared yet.
func (w *Writer) writeStructs(f *ir.Function) error {
	structs, err := collectStructs(f)
	if err != nil {
		return err
	}
	w.writeStructDefinitions(structs)
	return nil
}

func (w *Writer) writeStructDefinitions(structs []*ir.Type) {
	for _, t := range structs {
		if w.generatedStructs[t] {
			continue
		}
		w.generatedStructs[t] = true
		w.writeLine("struct alignas(%d) %s {", t.Alignment(), typeName(t))
		w.pushIndent()
		for i, m := range t.Members() {
			w.writeLine("%s m%d;", typeName(m), i)
		}
		w.popIndent()
		w.writeLine("};")
		w.writeLine("")
	}
}

// writeConstant declares a constant table at program scope, once per data
// hash, wrapping every 16 values when the table is longer than that.
func (w *Writer) writeConstant(c ir.ConstantBinding) error {
	if w.generatedConstants[c.Data.Hash()] {
		return nil
	}
	const wrap = 16
	values := c.Data.Values()
	var b strings.Builder
	b.WriteString("constant ")
	b.WriteString(typeName(c.Type))
	b.WriteString(" c")
	b.WriteString(ir.HashString(c.Data.Hash()))
	b.WriteString(" = {")
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
		b.WriteString(strconv.FormatBool(bool(v)))
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
		b.WriteString(typeName(t))
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
		t, err := ir.LiteralType(v)
		if err != nil {
			return err
		}
		b.WriteString(typeName(t))
		b.WriteByte('(')
		for i, e := range v.Elements {
			if i > 0 {
				b.WriteString(", ")
			}
			s, err := formatFloat(e)
			if err != nil {
				return err
			}
			b.WriteString(s)
		}
		b.WriteByte(')')
	default:
		return ir.NewError(ir.ErrStructural, "unknown literal %T", v)
	}
	return nil
}

// formatFloat renders a float literal. Infinities are reinterpreted bit
// patterns; NaN is rejected.
func formatFloat(f float32) (string, error) {
	switch {
	case math.IsNaN(float64(f)):
		return "", ir.NewErrorWithContext(ir.ErrNumeric, "float literal", "encountered NaN")
	case math.IsInf(float64(f), 1):
		return "as_type<float>(0x7f800000u)", nil
	case math.IsInf(float64(f), -1):
		return "as_type<float>(0xff800000u)", nil
	}
	s := strconv.FormatFloat(float64(f), 'g', -1, 32)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s + "f", nil
}
