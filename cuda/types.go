package cuda

import (
	"strconv"

	"github.com/gogpu/lcgen/ir"
)

// intrinsicName returns the device library name of a well-known ray tracing
// type, or "" for ordinary types.
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
	case ir.RayQueryAllType():
		return "LCRayQueryAll"
	case ir.RayQueryAnyType():
		return "LCRayQueryAny"
	default:
		return ""
	}
}

// typeName returns the CUDA spelling of t. Unsupported custom types are
// rejected by collectStructs before any name is needed.
func typeName(t *ir.Type) string {
	switch t.Tag() {
	case ir.TypeBool:
		return "lc_bool"
	case ir.TypeFloat32:
		return "lc_float"
	case ir.TypeInt32:
		return "lc_int"
	case ir.TypeUint32:
		return "lc_uint"
	case ir.TypeVector:
		return typeName(t.Element()) + strconv.FormatUint(uint64(t.Dimension()), 10)
	case ir.TypeMatrix:
		n := strconv.FormatUint(uint64(t.Dimension()), 10)
		return "lc_float" + n + "x" + n
	case ir.TypeArray:
		return "lc_array<" + typeName(t.Element()) + ", " + strconv.FormatUint(uint64(t.Dimension()), 10) + ">"
	case ir.TypeStructure, ir.TypeCustom:
		if name := intrinsicName(t); name != "" {
			return name
		}
		return "S" + ir.HashString(t.Hash())
	case ir.TypeBuffer:
		return "LCBuffer<" + typeName(t.Element()) + ">"
	case ir.TypeTexture:
		return "LCSurface"
	case ir.TypeBindlessArray:
		return "LCBindlessArray"
	case ir.TypeAccel:
		return "LCAccel"
	default:
		return "void"
	}
}

// scalarName returns the lc_make_* stem of a scalar type.
func scalarName(t *ir.Type) string {
	return t.Description()
}

// collectStructs returns the structures reachable from f that need a
// declaration, dependencies first, in discovery order.
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
		case ir.TypeArray, ir.TypeBuffer, ir.TypeTexture:
			return visit(t.Element())
		case ir.TypeStructure:
			for _, m := range t.Members() {
				if err := visit(m); err != nil {
					return err
				}
			}
			if intrinsicName(t) == "" {
				out = append(out, t)
			}
		}
		return nil
	}

	var vars []ir.Variable
	vars = append(vars, entryArguments(f)...)
	vars = append(vars, f.LocalVariables()...)
	vars = append(vars, f.SharedVariables()...)
	for _, v := range vars {
		if err := visit(v.Type()); err != nil {
			return nil, err
		}
	}
	for _, c := range f.Constants() {
		if err := visit(c.Type); err != nil {
			return nil, err
		}
	}
	if err := visit(f.ReturnType()); err != nil {
		return nil, err
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
	for _, t := range structs {
		if w.generatedStructs[t] {
			continue
		}
		w.generatedStructs[t] = true
		w.writeLine("struct alignas(%d) %s {", t.Alignment(), typeName(t))
		for i, m := range t.Members() {
			w.writeLine("  %s m%d{};", typeName(m), i)
		}
		w.writeLine("};")
		w.writeLine("")
	}
	return nil
}
