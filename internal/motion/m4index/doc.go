// Package m4index owns Layer 4: nearest-neighbour search over trajectory
// shape features.
//
// Responsibilities: turning trajectory windows into rotation- and
// translation-invariant difference features, and answering top-K queries
// through one of two strategies chosen at build time: an exact k-d tree or
// an approximate k-means cluster index.
// Key types: Index, Extractor, Strategy, Candidate, QueryOptions.
//
// Dependency rule: m4index may depend on m1series..m3corpus, geom, config
// and the root motion package. It must not import m5match or above.
package m4index
