// Package m3corpus owns Layer 3 of the motion data model: the matchable corpus.
//
// Responsibilities: resampling decoded clips into fixed-interval root
// trajectories with loop-aware unwrapping, storing raw pose frames, and
// exposing the immutable Asset with time-based pose and root sampling. The
// Asset round-trips through a compact protobuf-wire artifact.
// Key types: Asset, Clip, BuildConfig, TrajectoryPoint, BuildReport.
//
// Dependency rule: m3corpus may depend on m1series, m2skeleton, geom,
// config and the root motion package. It must not import m4index or above.
package m3corpus
