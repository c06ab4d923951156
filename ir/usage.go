package ir

// Usage records whether a value is read, written, both or neither.
// It is a lattice: Merge only ever adds bits.
type Usage uint8

const (
	UsageNone      Usage = 0
	UsageRead      Usage = 1 << 0
	UsageWrite     Usage = 1 << 1
	UsageReadWrite       = UsageRead | UsageWrite
)

// Merge returns the least upper bound of u and other.
func (u Usage) Merge(other Usage) Usage { return u | other }

// IsReadOnly reports whether the value is never written.
func (u Usage) IsReadOnly() bool { return u&UsageWrite == 0 }

// String returns a human-readable usage name.
func (u Usage) String() string {
	switch u {
	case UsageNone:
		return "none"
	case UsageRead:
		return "read"
	case UsageWrite:
		return "write"
	case UsageReadWrite:
		return "read_write"
	default:
		return "invalid"
	}
}
