package ir

// VariableTag represents the role of a Variable.
type VariableTag uint8

const (
	VarLocal VariableTag = iota
	VarShared
	VarReference // Argument passed by reference into a callable
	VarBuffer
	VarTexture
	VarBindlessArray
	VarAccel
	VarThreadID
	VarBlockID
	VarDispatchID
	VarDispatchSize
)

// String returns a human-readable tag name.
func (t VariableTag) String() string {
	switch t {
	case VarLocal:
		return "local"
	case VarShared:
		return "shared"
	case VarReference:
		return "reference"
	case VarBuffer:
		return "buffer"
	case VarTexture:
		return "texture"
	case VarBindlessArray:
		return "bindless_array"
	case VarAccel:
		return "accel"
	case VarThreadID:
		return "thread_id"
	case VarBlockID:
		return "block_id"
	case VarDispatchID:
		return "dispatch_id"
	case VarDispatchSize:
		return "dispatch_size"
	default:
		return "unknown"
	}
}

// Variable is a named storage location. Variables are compared by uid,
// which is unique within the Arena that issued it. The ordinal counts the
// variables of the owning function and is what the hash sees, so hashes do
// not depend on what else the arena holds.
type Variable struct {
	uid     uint32
	ordinal uint32
	tag     VariableTag
	typ     *Type
}

// UID returns the unique id of the variable.
func (v Variable) UID() uint32 { return v.uid }

// Tag returns the role of the variable.
func (v Variable) Tag() VariableTag { return v.tag }

// Type returns the type of the variable.
func (v Variable) Type() *Type { return v.typ }

// IsBuiltin reports whether v is one of the launch built-ins.
func (v Variable) IsBuiltin() bool { return v.tag >= VarThreadID }

// IsResource reports whether v refers to a buffer, texture, bindless array or accel.
func (v Variable) IsResource() bool {
	switch v.tag {
	case VarBuffer, VarTexture, VarBindlessArray, VarAccel:
		return true
	default:
		return false
	}
}

// Hash returns the structural hash of the variable.
func (v Variable) Hash() uint64 {
	return hash64(seedVariable, uint64(v.ordinal), uint64(v.tag), v.typ.Hash())
}
