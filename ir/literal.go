package ir

import (
	"encoding/binary"
	"fmt"
	"math"
)

// LiteralValue represents the value of a literal or a constant table element.
type LiteralValue interface {
	literalValue()
	// appendBytes appends a kind byte followed by the value bytes.
	appendBytes(b []byte) []byte
}

// Literal kind bytes, folded into hashes so that equal bits of different
// kinds never collide.
const (
	litKindBool byte = iota + 1
	litKindInt
	litKindUint
	litKindFloat
	litKindVector
	litKindMatrix
)

// LiteralBool represents a boolean literal.
type LiteralBool bool

func (LiteralBool) literalValue() {}

func (v LiteralBool) appendBytes(b []byte) []byte {
	if v {
		return append(b, litKindBool, 1)
	}
	return append(b, litKindBool, 0)
}

// LiteralInt represents a 32-bit signed integer literal.
type LiteralInt int32

func (LiteralInt) literalValue() {}

func (v LiteralInt) appendBytes(b []byte) []byte {
	return binary.LittleEndian.AppendUint32(append(b, litKindInt), uint32(v)) //nolint:gosec // G115: bit reinterpretation
}

// LiteralUint represents a 32-bit unsigned integer literal.
type LiteralUint uint32

func (LiteralUint) literalValue() {}

func (v LiteralUint) appendBytes(b []byte) []byte {
	return binary.LittleEndian.AppendUint32(append(b, litKindUint), uint32(v))
}

// LiteralFloat represents a 32-bit float literal. NaN is representable in the
// IR but rejected by every backend.
type LiteralFloat float32

func (LiteralFloat) literalValue() {}

func (v LiteralFloat) appendBytes(b []byte) []byte {
	return binary.LittleEndian.AppendUint32(append(b, litKindFloat), math.Float32bits(float32(v)))
}

// LiteralVector represents a vector literal. All components share one scalar kind.
type LiteralVector struct {
	Components []LiteralValue
}

func (LiteralVector) literalValue() {}

func (v LiteralVector) appendBytes(b []byte) []byte {
	b = append(b, litKindVector, byte(len(v.Components)))
	for _, c := range v.Components {
		b = c.appendBytes(b)
	}
	return b
}

// LiteralMatrix represents a square float matrix literal.
// Elements are stored column-major: Elements[col*Dim+row].
type LiteralMatrix struct {
	Dim      uint32
	Elements []float32
}

func (LiteralMatrix) literalValue() {}

func (v LiteralMatrix) appendBytes(b []byte) []byte {
	b = append(b, litKindMatrix, byte(v.Dim))
	for _, e := range v.Elements {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(e))
	}
	return b
}

// At returns the element in column col, row row.
func (v LiteralMatrix) At(col, row uint32) float32 {
	return v.Elements[col*v.Dim+row]
}

// LiteralType returns the IR type of a literal value.
func LiteralType(v LiteralValue) (*Type, error) {
	switch v := v.(type) {
	case LiteralBool:
		return Bool(), nil
	case LiteralInt:
		return Int(), nil
	case LiteralUint:
		return Uint(), nil
	case LiteralFloat:
		return Float(), nil
	case LiteralVector:
		n := len(v.Components)
		if n < 2 || n > 4 {
			return nil, NewError(ErrStructural, "vector literal with %d components", n)
		}
		elem, err := LiteralType(v.Components[0])
		if err != nil {
			return nil, err
		}
		for _, c := range v.Components[1:] {
			t, err := LiteralType(c)
			if err != nil {
				return nil, err
			}
			if t != elem {
				return nil, NewError(ErrStructural, "vector literal mixes %s and %s", elem, t)
			}
		}
		if !elem.IsScalar() {
			return nil, NewError(ErrStructural, "vector literal of %s", elem)
		}
		return Vector(elem, uint32(n)), nil //nolint:gosec // G115: n is 2..4
	case LiteralMatrix:
		if v.Dim < 2 || v.Dim > 4 || uint32(len(v.Elements)) != v.Dim*v.Dim { //nolint:gosec // G115: small
			return nil, NewError(ErrStructural, "matrix literal of dimension %d with %d elements", v.Dim, len(v.Elements))
		}
		return Matrix(v.Dim), nil
	default:
		return nil, NewError(ErrStructural, "unknown literal %T", v)
	}
}

// ConstantData is a constant table: a homogeneous sequence of literal values
// identified by its content hash.
type ConstantData struct {
	values []LiteralValue
	hash   uint64
}

// NewConstantData creates a constant table from values.
// All values must have the same literal type.
func NewConstantData(values ...LiteralValue) (ConstantData, error) {
	if len(values) == 0 {
		return ConstantData{}, NewError(ErrStructural, "empty constant table")
	}
	elem, err := LiteralType(values[0])
	if err != nil {
		return ConstantData{}, err
	}
	b := make([]byte, 0, len(values)*5)
	for i, v := range values {
		t, err := LiteralType(v)
		if err != nil {
			return ConstantData{}, err
		}
		if t != elem {
			return ConstantData{}, NewError(ErrStructural, "constant element %d is %s, want %s", i, t, elem)
		}
		b = v.appendBytes(b)
	}
	return ConstantData{values: values, hash: hashBytes(seedConstantData, b)}, nil
}

// Values returns the table elements.
func (c ConstantData) Values() []LiteralValue { return c.values }

// Len returns the number of elements.
func (c ConstantData) Len() int { return len(c.values) }

// Hash returns the content hash of the table.
func (c ConstantData) Hash() uint64 { return c.hash }

// String implements fmt.Stringer.
func (c ConstantData) String() string {
	return fmt.Sprintf("constant[%d]#%s", len(c.values), HashString(c.hash))
}
