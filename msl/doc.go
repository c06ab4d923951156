// Package msl implements Metal Shading Language (MSL) code generation for
// recorded kernels.
//
// MSL is Apple's shader language for the Metal API. It is based on C++14
// with extensions for GPU programming, including explicit address spaces,
// attribute-based parameter binding, and a metal:: namespace for standard
// library functions.
//
// # Usage
//
//	arena := ir.NewArena()
//	kernel, err := samples.Saxpy(arena)
//	if err != nil {
//	    return err
//	}
//	source, info, err := msl.Compile(arena, kernel.Handle(), msl.DefaultOptions())
//
// # Type Mapping
//
//	IR             MSL
//	--             ---
//	bool           bool
//	int            int
//	uint           uint
//	float          float
//	vector<T, N>   metal::TN
//	matrix<N>      metal::floatNxN
//	array<T, N>    metal::array<T, N>
//	buffer<T>      device T *
//	texture<N, T>  metal::textureNd<T, metal::access::read_write>
//	accel          metal::raytracing::instance_acceleration_structure
//	ray query      metal::raytracing::intersection_query<...>
//
// Bindless arrays need argument buffers and are not supported.
//
// # Entry Points
//
// A kernel becomes "kernel void kernel_main" with one [[buffer(n)]] or
// [[texture(n)]] slot per argument in declaration order, followed by the
// dispatch size constant and the thread position attributes. Callables that
// read launch built-ins, directly or through their callees, receive them as
// trailing parameters.
//
// # Ray Queries
//
// Metal intersection queries hand candidates back to the caller, so a ray
// query statement lowers inline to a next() loop that dispatches on the
// candidate type. No outlining or capture records are involved.
package msl
