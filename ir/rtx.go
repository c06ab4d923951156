package ir

// Well-known ray tracing types. Backends declare these in their device
// libraries, so generators refer to them by fixed names instead of emitting
// structure declarations.

// RayType returns the ray structure: compressed origin, t_min, compressed direction, t_max.
func RayType() *Type {
	return Struct(16, Array(Float(), 3), Float(), Array(Float(), 3), Float())
}

// TriangleHitType returns the triangle candidate structure: instance, primitive, barycentrics, ray t.
func TriangleHitType() *Type {
	return Struct(8, Uint(), Uint(), Vector(Float(), 2), Float())
}

// ProceduralHitType returns the procedural candidate structure: instance, primitive.
func ProceduralHitType() *Type {
	return Struct(8, Uint(), Uint())
}

// CommittedHitType returns the committed hit structure: instance, primitive, barycentrics, hit kind, ray t.
func CommittedHitType() *Type {
	return Struct(16, Uint(), Uint(), Vector(Float(), 2), Uint(), Float())
}

// RayQueryAllType returns the handle type of a query that visits every candidate.
func RayQueryAllType() *Type { return Custom("LC_RayQueryAll") }

// RayQueryAnyType returns the handle type of a query that stops at the first accepted candidate.
func RayQueryAnyType() *Type { return Custom("LC_RayQueryAny") }

// IsRayQueryType reports whether t is one of the ray query handle types.
func IsRayQueryType(t *Type) bool {
	return t == RayQueryAllType() || t == RayQueryAnyType()
}
