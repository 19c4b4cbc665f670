// Package motion is the root of the motion matching data model.
//
// It owns the logging streams shared by the layer packages below it.
// The layers, leaves first:
//
//	m1series   chunked, offset-indexed flat storage
//	m2skeleton joint arena and pose-vector channel layout
//	m3corpus   clip resampling into an immutable Asset, plus its artifact codec
//	m4index    trajectory features, k-d tree and k-means cluster search
//	m5match    live trajectory matching and pose re-ranking
//	m6blend    dual-slot blend player with root reprojection
//
// Dependency rule: layer mN may import m1..m(N-1), geom, and this package,
// never a higher layer. Storage, interchange and reporting packages sit
// beside the layers and may import any of them.
package motion
