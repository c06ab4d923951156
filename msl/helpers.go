package msl

import (
	"github.com/gogpu/lcgen/ir"
)

const compareExchangeHelper = "_lc_atomic_compare_exchange"

// writeCompareExchangeHelper declares the strong compare-exchange the IR
// expects on top of Metal's weak one. It returns the previous value.
func (w *Writer) writeCompareExchangeHelper() {
	w.writeLine("template <typename A, typename T>")
	w.writeLine("inline T %s(A object, T cmp, T value) {", compareExchangeHelper)
	w.pushIndent()
	w.writeLine("T expected = cmp;")
	w.writeLine("while (!%[1]satomic_compare_exchange_weak_explicit(object, &expected, value, %[1]smemory_order_relaxed, %[1]smemory_order_relaxed) && expected == cmp) {}", Namespace)
	w.writeLine("return expected;")
	w.popIndent()
	w.writeLine("}")
	w.writeLine("")
}

// writeRayTracingHelpers declares the ray tracing structures and the
// conversions between them and metal::raytracing objects. Hit kinds follow
// the committed hit layout: 0 miss, 1 triangle, 2 procedural.
func (w *Writer) writeRayTracingHelpers() {
	w.writeStructDefinitions([]*ir.Type{
		ir.RayType(),
		ir.TriangleHitType(),
		ir.ProceduralHitType(),
		ir.CommittedHitType(),
	})

	const rt = rtNamespace
	w.writeLine("inline %sray _lc_ray(LCRay r) {", rt)
	w.pushIndent()
	w.writeLine("return %sray(%[2]sfloat3(r.m0[0], r.m0[1], r.m0[2]), %[2]sfloat3(r.m2[0], r.m2[1], r.m2[2]), r.m1, r.m3);", rt, Namespace)
	w.popIndent()
	w.writeLine("}")
	w.writeLine("")

	w.writeLine("inline %sintersection_params _lc_query_params(bool any_hit) {", rt)
	w.pushIndent()
	w.writeLine("%sintersection_params p;", rt)
	w.writeLine("p.assume_geometry_type(%[1]sgeometry_type::triangle | %[1]sgeometry_type::bounding_box);", rt)
	w.writeLine("p.force_opacity(%sforced_opacity::non_opaque);", rt)
	w.writeLine("p.accept_any_intersection(any_hit);")
	w.writeLine("return p;")
	w.popIndent()
	w.writeLine("}")
	w.writeLine("")

	w.writeLine("inline LCTriangleHit _lc_triangle_candidate(thread %s &q) {", queryTypeName)
	w.pushIndent()
	w.writeLine("return LCTriangleHit{q.get_candidate_instance_id(), q.get_candidate_primitive_id(), q.get_candidate_triangle_barycentric_coord(), q.get_candidate_triangle_distance()};")
	w.popIndent()
	w.writeLine("}")
	w.writeLine("")

	w.writeLine("inline LCProceduralHit _lc_procedural_candidate(thread %s &q) {", queryTypeName)
	w.pushIndent()
	w.writeLine("return LCProceduralHit{q.get_candidate_instance_id(), q.get_candidate_primitive_id()};")
	w.popIndent()
	w.writeLine("}")
	w.writeLine("")

	w.writeLine("inline LCCommittedHit _lc_committed_hit(thread %s &q) {", queryTypeName)
	w.pushIndent()
	w.writeLine("LCCommittedHit hit{};")
	w.writeLine("switch (q.get_committed_intersection_type()) {")
	w.writeLine("case %sintersection_type::triangle:", rt)
	w.pushIndent()
	w.writeLine("hit = LCCommittedHit{q.get_committed_instance_id(), q.get_committed_primitive_id(), q.get_committed_triangle_barycentric_coord(), 1u, q.get_committed_distance()};")
	w.writeLine("break;")
	w.popIndent()
	w.writeLine("case %sintersection_type::bounding_box:", rt)
	w.pushIndent()
	w.writeLine("hit = LCCommittedHit{q.get_committed_instance_id(), q.get_committed_primitive_id(), %sfloat2(0.0f), 2u, q.get_committed_distance()};", Namespace)
	w.writeLine("break;")
	w.popIndent()
	w.writeLine("default:")
	w.pushIndent()
	w.writeLine("hit.m0 = ~0u;")
	w.writeLine("break;")
	w.popIndent()
	w.writeLine("}")
	w.writeLine("return hit;")
	w.popIndent()
	w.writeLine("}")
	w.writeLine("")

	w.writeLine("inline LCCommittedHit _lc_trace_closest(%sinstance_acceleration_structure accel, LCRay r, uint mask = 0xffu) {", rt)
	w.pushIndent()
	w.writeLine("%[1]sintersector<%[1]sinstancing, %[1]striangle_data> isect;", rt)
	w.writeLine("auto result = isect.intersect(_lc_ray(r), accel, mask);")
	w.writeLine("if (result.type != %sintersection_type::triangle) {", rt)
	w.pushIndent()
	w.writeLine("return LCCommittedHit{~0u, ~0u, %sfloat2(0.0f), 0u, 0.0f};", Namespace)
	w.popIndent()
	w.writeLine("}")
	w.writeLine("return LCCommittedHit{result.instance_id, result.primitive_id, result.triangle_barycentric_coord, 1u, result.distance};")
	w.popIndent()
	w.writeLine("}")
	w.writeLine("")

	w.writeLine("inline bool _lc_trace_any(%sinstance_acceleration_structure accel, LCRay r, uint mask = 0xffu) {", rt)
	w.pushIndent()
	w.writeLine("%[1]sintersector<%[1]sinstancing, %[1]striangle_data> isect;", rt)
	w.writeLine("isect.accept_any_intersection(true);")
	w.writeLine("return isect.intersect(_lc_ray(r), accel, mask).type != %sintersection_type::none;", rt)
	w.popIndent()
	w.writeLine("}")
	w.writeLine("")
}
