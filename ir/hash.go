package ir

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Domain separation seeds. Each hashed entity mixes in its own seed so that,
// for example, a variable and a literal with equal payloads never collide.
var (
	seedExpression     = xxhash.Sum64String("__hash_expression")
	seedType           = xxhash.Sum64String("__hash_type")
	seedVariable       = xxhash.Sum64String("__hash_variable")
	seedConstantData   = xxhash.Sum64String("__hash_constant_data")
	seedConstant       = xxhash.Sum64String("__hash_constant_binding")
	seedBuffer         = xxhash.Sum64String("__hash_buffer_binding")
	seedTexture        = xxhash.Sum64String("__hash_texture_binding")
	seedBindlessArray  = xxhash.Sum64String("__hash_bindless_array_binding")
	seedAccel          = xxhash.Sum64String("__hash_accel_binding")
	seedFunction       = xxhash.Sum64String("__hash_function")
	seedCustomCallback = xxhash.Sum64String("__hash_custom_callback")
)

// hash64 folds words into seed. Words are written little-endian so the result
// is identical on every platform and every run.
func hash64(seed uint64, words ...uint64) uint64 {
	d := xxhash.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], seed)
	_, _ = d.Write(buf[:])
	for _, w := range words {
		binary.LittleEndian.PutUint64(buf[:], w)
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}

// hashBytes folds raw bytes into seed.
func hashBytes(seed uint64, data []byte) uint64 {
	d := xxhash.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], seed)
	_, _ = d.Write(buf[:])
	_, _ = d.Write(data)
	return d.Sum64()
}

// HashString renders a hash the way generated symbol names embed it.
func HashString(h uint64) string {
	return fmt.Sprintf("%016X", h)
}
