// Package clipio reads and writes decoded motion clips as JSON and
// generates synthetic locomotion clips.
//
// A decoded clip is what a motion-capture parser hands the corpus builder:
// a joint hierarchy, a frame interval and flat per-frame channel vectors.
// Clip satisfies m3corpus.Clip.
package clipio
