// Package m5match owns Layer 5: choosing the clip window that best
// continues the live character.
//
// Responsibilities: encoding the live desired path with the index's feature
// extractor, querying the index for trajectory candidates, and re-ranking
// those candidates by full-body pose distance.
// Key types: Matcher, LiveTrajectory.
//
// Dependency rule: m5match may depend on m1series..m4index, geom and the
// root motion package. It must not import m6blend.
package m5match
