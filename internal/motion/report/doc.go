// Package report renders offline views of a motion corpus and of a player
// run: a PNG of every chunk's root path and an HTML timeline of blend and
// match activity.
package report
