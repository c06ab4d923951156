package ir

import "math/bits"

// UnaryOperator represents unary operations.
type UnaryOperator uint8

const (
	UnaryPlus   UnaryOperator = iota // Unary plus (+)
	UnaryMinus                       // Arithmetic negation (-)
	UnaryNot                         // Logical not (!)
	UnaryBitNot                      // Bitwise not (~)
)

// BinaryOperator represents binary operations.
type BinaryOperator uint8

const (
	// Arithmetic operations
	BinaryAdd BinaryOperator = iota // Addition
	BinarySub                       // Subtraction
	BinaryMul                       // Multiplication
	BinaryDiv                       // Division
	BinaryMod                       // Modulo (remainder)

	// Bitwise operations
	BinaryBitAnd // Bitwise AND
	BinaryBitOr  // Bitwise OR
	BinaryBitXor // Bitwise XOR
	BinaryShl    // Left shift (<<)
	BinaryShr    // Right shift (>>)

	// Logical operations
	BinaryAnd // Logical AND (&&)
	BinaryOr  // Logical OR (||)

	// Comparison operations
	BinaryLess         // Less than (<)
	BinaryGreater      // Greater than (>)
	BinaryLessEqual    // Less than or equal (<=)
	BinaryGreaterEqual // Greater than or equal (>=)
	BinaryEqual        // Equal (==)
	BinaryNotEqual     // Not equal (!=)
)

// Token returns the C-family operator token for op.
func (op BinaryOperator) Token() string {
	switch op {
	case BinaryAdd:
		return "+"
	case BinarySub:
		return "-"
	case BinaryMul:
		return "*"
	case BinaryDiv:
		return "/"
	case BinaryMod:
		return "%"
	case BinaryBitAnd:
		return "&"
	case BinaryBitOr:
		return "|"
	case BinaryBitXor:
		return "^"
	case BinaryShl:
		return "<<"
	case BinaryShr:
		return ">>"
	case BinaryAnd:
		return "&&"
	case BinaryOr:
		return "||"
	case BinaryLess:
		return "<"
	case BinaryGreater:
		return ">"
	case BinaryLessEqual:
		return "<="
	case BinaryGreaterEqual:
		return ">="
	case BinaryEqual:
		return "=="
	case BinaryNotEqual:
		return "!="
	default:
		return "?"
	}
}

// CastOperator represents value conversions.
type CastOperator uint8

const (
	CastStatic  CastOperator = iota // Value-preserving conversion
	CastBitwise                     // Bit reinterpretation
)

// CallOp identifies the callee of a CallExpr: a built-in or a custom callable.
type CallOp uint8

const (
	CallCustom CallOp = iota // User callable, see CallExpr.Custom

	// Relational and selection
	CallAll
	CallAny
	CallSelect
	CallClamp
	CallLerp
	CallStep
	CallAbs
	CallMin
	CallMax

	// Bit manipulation
	CallClz
	CallCtz
	CallPopcount
	CallReverse

	// Floating point math
	CallIsInf
	CallIsNan
	CallAcos
	CallAsin
	CallAtan
	CallAtan2
	CallCos
	CallSin
	CallTan
	CallExp
	CallLog
	CallPow
	CallSqrt
	CallRsqrt
	CallCeil
	CallFloor
	CallFract
	CallTrunc
	CallRound
	CallFma
	CallCopysign

	// Geometry
	CallCross
	CallDot
	CallLength
	CallLengthSquared
	CallNormalize
	CallFaceforward
	CallDeterminant
	CallTranspose
	CallInverse

	// Synchronization and atomics
	CallSynchronizeBlock
	CallAtomicExchange
	CallAtomicCompareExchange
	CallAtomicFetchAdd
	CallAtomicFetchSub
	CallAtomicFetchAnd
	CallAtomicFetchOr
	CallAtomicFetchXor
	CallAtomicFetchMin
	CallAtomicFetchMax

	// Resources
	CallBufferRead
	CallBufferWrite
	CallTextureRead
	CallTextureWrite
	CallBindlessTexture2DSample
	CallBindlessTexture2DSampleLevel
	CallBindlessTexture2DRead
	CallBindlessTexture2DSize
	CallBindlessBufferRead

	// Constructors; the result type selects the vector or matrix shape
	CallMakeVector
	CallMakeMatrix

	// Compiler hints
	CallAssume
	CallUnreachable

	// Ray tracing
	CallInstanceTransform
	CallSetInstanceTransform
	CallSetInstanceVisibility
	CallSetInstanceOpacity
	CallTraceClosest
	CallTraceAny
	CallQueryAll
	CallQueryAny

	// Ray query candidate handling, valid inside RayQueryStmt bodies
	CallRayQueryTriangleCandidateHit
	CallRayQueryProceduralCandidateHit
	CallRayQueryCommittedHit
	CallRayQueryCommitTriangle
	CallRayQueryCommitProcedural
	CallRayQueryTerminate

	callOpCount
)

// IsMutating reports whether the built-in writes through its first argument.
func (op CallOp) IsMutating() bool {
	switch op {
	case CallBufferWrite, CallTextureWrite,
		CallSetInstanceTransform, CallSetInstanceVisibility,
		CallAtomicExchange, CallAtomicCompareExchange,
		CallAtomicFetchAdd, CallAtomicFetchSub,
		CallAtomicFetchAnd, CallAtomicFetchOr, CallAtomicFetchXor,
		CallAtomicFetchMin, CallAtomicFetchMax:
		return true
	default:
		return false
	}
}

// IsRayTracing reports whether the built-in requires a ray tracing pipeline.
func (op CallOp) IsRayTracing() bool {
	return op >= CallInstanceTransform && op < callOpCount
}

// CallOpSet is a set of built-in call operations.
type CallOpSet [2]uint64

// Add inserts op into the set.
func (s *CallOpSet) Add(op CallOp) { s[op/64] |= 1 << (op % 64) }

// Has reports whether op is in the set.
func (s CallOpSet) Has(op CallOp) bool { return s[op/64]&(1<<(op%64)) != 0 }

// Union adds every member of other to s.
func (s *CallOpSet) Union(other CallOpSet) {
	s[0] |= other[0]
	s[1] |= other[1]
}

// Len returns the number of members.
func (s CallOpSet) Len() int { return bits.OnesCount64(s[0]) + bits.OnesCount64(s[1]) }

// Ops returns the members in ascending order.
func (s CallOpSet) Ops() []CallOp {
	ops := make([]CallOp, 0, s.Len())
	for op := CallOp(0); op < callOpCount; op++ {
		if s.Has(op) {
			ops = append(ops, op)
		}
	}
	return ops
}

var callOpNames = [callOpCount]string{
	CallCustom:                         "custom",
	CallAll:                            "all",
	CallAny:                            "any",
	CallSelect:                         "select",
	CallClamp:                          "clamp",
	CallLerp:                           "lerp",
	CallStep:                           "step",
	CallAbs:                            "abs",
	CallMin:                            "min",
	CallMax:                            "max",
	CallClz:                            "clz",
	CallCtz:                            "ctz",
	CallPopcount:                       "popcount",
	CallReverse:                        "reverse",
	CallIsInf:                          "isinf",
	CallIsNan:                          "isnan",
	CallAcos:                           "acos",
	CallAsin:                           "asin",
	CallAtan:                           "atan",
	CallAtan2:                          "atan2",
	CallCos:                            "cos",
	CallSin:                            "sin",
	CallTan:                            "tan",
	CallExp:                            "exp",
	CallLog:                            "log",
	CallPow:                            "pow",
	CallSqrt:                           "sqrt",
	CallRsqrt:                          "rsqrt",
	CallCeil:                           "ceil",
	CallFloor:                          "floor",
	CallFract:                          "fract",
	CallTrunc:                          "trunc",
	CallRound:                          "round",
	CallFma:                            "fma",
	CallCopysign:                       "copysign",
	CallCross:                          "cross",
	CallDot:                            "dot",
	CallLength:                         "length",
	CallLengthSquared:                  "length_squared",
	CallNormalize:                      "normalize",
	CallFaceforward:                    "faceforward",
	CallDeterminant:                    "determinant",
	CallTranspose:                      "transpose",
	CallInverse:                        "inverse",
	CallSynchronizeBlock:               "synchronize_block",
	CallAtomicExchange:                 "atomic_exchange",
	CallAtomicCompareExchange:          "atomic_compare_exchange",
	CallAtomicFetchAdd:                 "atomic_fetch_add",
	CallAtomicFetchSub:                 "atomic_fetch_sub",
	CallAtomicFetchAnd:                 "atomic_fetch_and",
	CallAtomicFetchOr:                  "atomic_fetch_or",
	CallAtomicFetchXor:                 "atomic_fetch_xor",
	CallAtomicFetchMin:                 "atomic_fetch_min",
	CallAtomicFetchMax:                 "atomic_fetch_max",
	CallBufferRead:                     "buffer_read",
	CallBufferWrite:                    "buffer_write",
	CallTextureRead:                    "texture_read",
	CallTextureWrite:                   "texture_write",
	CallBindlessTexture2DSample:        "bindless_texture2d_sample",
	CallBindlessTexture2DSampleLevel:   "bindless_texture2d_sample_level",
	CallBindlessTexture2DRead:          "bindless_texture2d_read",
	CallBindlessTexture2DSize:          "bindless_texture2d_size",
	CallBindlessBufferRead:             "bindless_buffer_read",
	CallMakeVector:                     "make_vector",
	CallMakeMatrix:                     "make_matrix",
	CallAssume:                         "assume",
	CallUnreachable:                    "unreachable",
	CallInstanceTransform:              "instance_transform",
	CallSetInstanceTransform:           "set_instance_transform",
	CallSetInstanceVisibility:          "set_instance_visibility",
	CallSetInstanceOpacity:             "set_instance_opacity",
	CallTraceClosest:                   "trace_closest",
	CallTraceAny:                       "trace_any",
	CallQueryAll:                       "query_all",
	CallQueryAny:                       "query_any",
	CallRayQueryTriangleCandidateHit:   "ray_query_triangle_candidate_hit",
	CallRayQueryProceduralCandidateHit: "ray_query_procedural_candidate_hit",
	CallRayQueryCommittedHit:           "ray_query_committed_hit",
	CallRayQueryCommitTriangle:         "ray_query_commit_triangle",
	CallRayQueryCommitProcedural:       "ray_query_commit_procedural",
	CallRayQueryTerminate:              "ray_query_terminate",
}

// String returns the snake_case name of the operation.
func (op CallOp) String() string {
	if op < callOpCount {
		return callOpNames[op]
	}
	return "unknown"
}
