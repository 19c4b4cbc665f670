// Package m1series owns Layer 1 of the motion data model: chunked storage.
//
// Responsibilities: append-only flat arrays grouped into chunks by
// monotonic offsets, O(1) chunk access, O(log n) item-to-chunk lookup, and
// the fixed-interval time/offset clock used by every sampler above it.
// Key types: ChunkOffsets, Series, SampleClock.
//
// Dependency rule: m1series depends on nothing else in the module.
package m1series
