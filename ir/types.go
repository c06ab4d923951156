package ir

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// TypeTag represents the kind of a Type.
type TypeTag uint8

const (
	TypeBool TypeTag = iota
	TypeInt32
	TypeUint32
	TypeFloat32
	TypeVector
	TypeMatrix
	TypeArray
	TypeStructure
	TypeBuffer
	TypeTexture
	TypeBindlessArray
	TypeAccel
	TypeCustom // Opaque backend object, e.g. a ray query handle
)

// Type describes the type of a value, variable or binding.
//
// Types are interned: two structurally identical types are the same *Type,
// so pointer comparison is structural comparison.
type Type struct {
	tag         TypeTag
	size        uint32
	alignment   uint32
	dimension   uint32
	element     *Type
	members     []*Type
	description string
	hash        uint64
}

// Tag returns the kind of the type.
func (t *Type) Tag() TypeTag { return t.tag }

// Size returns the storage size in bytes.
func (t *Type) Size() uint32 { return t.size }

// Alignment returns the storage alignment in bytes.
func (t *Type) Alignment() uint32 { return t.alignment }

// Dimension returns the component count of a vector, the column count of a
// matrix, the length of an array or the dimensionality of a texture.
func (t *Type) Dimension() uint32 { return t.dimension }

// Element returns the element type of vectors, matrices, arrays, buffers and textures.
func (t *Type) Element() *Type { return t.element }

// Members returns the member types of a structure.
func (t *Type) Members() []*Type { return t.members }

// Description returns the canonical textual form of the type.
func (t *Type) Description() string { return t.description }

// Hash returns the structural hash of the type.
func (t *Type) Hash() uint64 { return t.hash }

// String implements fmt.Stringer.
func (t *Type) String() string { return t.description }

// IsScalar reports whether t is bool, int, uint or float.
func (t *Type) IsScalar() bool { return t.tag <= TypeFloat32 }

// IsStructure reports whether t is a structure.
func (t *Type) IsStructure() bool { return t.tag == TypeStructure }

// IsResource reports whether t is a buffer, texture, bindless array or accel.
func (t *Type) IsResource() bool {
	switch t.tag {
	case TypeBuffer, TypeTexture, TypeBindlessArray, TypeAccel:
		return true
	default:
		return false
	}
}

// typeRegistry interns types by their canonical description.
// Structurally identical types share one *Type.
type typeRegistry struct {
	mu    sync.Mutex
	types map[string]*Type
}

var registry = &typeRegistry{types: make(map[string]*Type, 32)}

// getOrCreate returns the registered type for t's description, registering t if new.
func (r *typeRegistry) getOrCreate(t *Type) *Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.types[t.description]; ok {
		return existing
	}
	t.hash = hashBytes(seedType, []byte(t.description))
	r.types[t.description] = t
	return t
}

func scalar(tag TypeTag, desc string, size uint32) *Type {
	return registry.getOrCreate(&Type{tag: tag, size: size, alignment: size, description: desc})
}

// Bool returns the boolean type.
func Bool() *Type { return scalar(TypeBool, "bool", 1) }

// Int returns the 32-bit signed integer type.
func Int() *Type { return scalar(TypeInt32, "int", 4) }

// Uint returns the 32-bit unsigned integer type.
func Uint() *Type { return scalar(TypeUint32, "uint", 4) }

// Float returns the 32-bit floating point type.
func Float() *Type { return scalar(TypeFloat32, "float", 4) }

// Vector returns the vector type with n components of the scalar type elem.
// It panics if elem is not scalar or n is not 2, 3 or 4.
func Vector(elem *Type, n uint32) *Type {
	if !elem.IsScalar() || n < 2 || n > 4 {
		panic(fmt.Sprintf("ir: invalid vector<%s,%d>", elem, n))
	}
	lanes := n
	if lanes == 3 {
		lanes = 4
	}
	return registry.getOrCreate(&Type{
		tag:         TypeVector,
		size:        elem.size * lanes,
		alignment:   elem.size * lanes,
		dimension:   n,
		element:     elem,
		description: "vector<" + elem.description + "," + strconv.FormatUint(uint64(n), 10) + ">",
	})
}

// Matrix returns the n×n float matrix type, stored as n column vectors.
// It panics if n is not 2, 3 or 4.
func Matrix(n uint32) *Type {
	if n < 2 || n > 4 {
		panic(fmt.Sprintf("ir: invalid matrix<%d>", n))
	}
	column := Vector(Float(), n)
	return registry.getOrCreate(&Type{
		tag:         TypeMatrix,
		size:        column.size * n,
		alignment:   column.alignment,
		dimension:   n,
		element:     Float(),
		description: "matrix<" + strconv.FormatUint(uint64(n), 10) + ">",
	})
}

// Array returns the fixed-size array type with n elements of elem.
func Array(elem *Type, n uint32) *Type {
	if n == 0 || elem.IsResource() {
		panic(fmt.Sprintf("ir: invalid array<%s,%d>", elem, n))
	}
	return registry.getOrCreate(&Type{
		tag:         TypeArray,
		size:        elem.size * n,
		alignment:   elem.alignment,
		dimension:   n,
		element:     elem,
		description: "array<" + elem.description + "," + strconv.FormatUint(uint64(n), 10) + ">",
	})
}

// Struct returns the structure type with the given members.
// An alignment of zero uses the largest member alignment.
func Struct(alignment uint32, members ...*Type) *Type {
	maxAlign := uint32(1)
	for _, m := range members {
		if m.IsResource() || m.tag == TypeCustom {
			panic(fmt.Sprintf("ir: structure member cannot be %s", m))
		}
		maxAlign = max(maxAlign, m.alignment)
	}
	if alignment == 0 {
		alignment = maxAlign
	}
	if alignment < maxAlign || alignment&(alignment-1) != 0 {
		panic(fmt.Sprintf("ir: invalid structure alignment %d", alignment))
	}
	var offset uint32
	var b strings.Builder
	b.WriteString("struct<")
	b.WriteString(strconv.FormatUint(uint64(alignment), 10))
	for _, m := range members {
		offset = alignUp(offset, m.alignment) + m.size
		b.WriteByte(',')
		b.WriteString(m.description)
	}
	b.WriteByte('>')
	return registry.getOrCreate(&Type{
		tag:         TypeStructure,
		size:        alignUp(offset, alignment),
		alignment:   alignment,
		dimension:   uint32(len(members)), //nolint:gosec // G115: member count is small
		members:     members,
		description: b.String(),
	})
}

// Buffer returns the buffer type with elements of elem.
func Buffer(elem *Type) *Type {
	return registry.getOrCreate(&Type{
		tag:         TypeBuffer,
		size:        8,
		alignment:   8,
		element:     elem,
		description: "buffer<" + elem.description + ">",
	})
}

// Texture returns the dim-dimensional texture type whose texels are elem.
func Texture(dim uint32, elem *Type) *Type {
	if dim != 2 && dim != 3 {
		panic(fmt.Sprintf("ir: invalid texture dimension %d", dim))
	}
	return registry.getOrCreate(&Type{
		tag:         TypeTexture,
		size:        8,
		alignment:   8,
		dimension:   dim,
		element:     elem,
		description: "texture<" + strconv.FormatUint(uint64(dim), 10) + "," + elem.description + ">",
	})
}

// BindlessArray returns the bindless array type.
func BindlessArray() *Type {
	return registry.getOrCreate(&Type{tag: TypeBindlessArray, size: 8, alignment: 8, description: "bindless_array"})
}

// Accel returns the acceleration structure type.
func Accel() *Type {
	return registry.getOrCreate(&Type{tag: TypeAccel, size: 8, alignment: 8, description: "accel"})
}

// Custom returns the opaque custom type with the given name.
func Custom(name string) *Type {
	return registry.getOrCreate(&Type{tag: TypeCustom, size: 8, alignment: 8, description: name})
}

func alignUp(offset, alignment uint32) uint32 {
	return (offset + alignment - 1) / alignment * alignment
}
