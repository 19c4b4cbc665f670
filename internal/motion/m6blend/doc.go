// Package m6blend owns Layer 6: the dual-slot blend player.
//
// Responsibilities: deciding when to re-match, holding the previous and the
// newly matched clip segment in two slots, advancing their playback time,
// and cross-fading between them while reprojecting root motion into world
// space without positional pops.
// Key types: Player, Config, Slot, Frame, LiveInput.
//
// Dependency rule: m6blend sits at the top of the motion stack and may
// depend on every lower layer.
package m6blend
