package clipio

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/motion.match/internal/motion/m2skeleton"
)

// Root height of the synthetic rig, in the same units as Speed.
const synthHipHeight = 90.0

// Rig returns the small hips/spine/head skeleton used by synthetic clips.
// The root carries position plus Z-X-Y rotation channels; the other joints
// rotate only.
func Rig() []m2skeleton.Joint {
	rot := func(base int) []m2skeleton.Channel {
		return []m2skeleton.Channel{
			{Kind: m2skeleton.ZRotation, Index: base},
			{Kind: m2skeleton.XRotation, Index: base + 1},
			{Kind: m2skeleton.YRotation, Index: base + 2},
		}
	}
	return []m2skeleton.Joint{
		{
			Name:   "Hips",
			Parent: m2skeleton.NoParent,
			Channels: append([]m2skeleton.Channel{
				{Kind: m2skeleton.XPosition, Index: 0},
				{Kind: m2skeleton.YPosition, Index: 1},
				{Kind: m2skeleton.ZPosition, Index: 2},
			}, rot(3)...),
		},
		{Name: "Spine", Parent: 0, Offset: r3.Vec{Y: 20}, Channels: rot(6)},
		{Name: "Head", Parent: 1, Offset: r3.Vec{Y: 40}, Channels: rot(9)},
	}
}

// Synth describes a synthetic locomotion clip: the root moves at Speed
// along a path that turns at TurnRate, while spine and head sway at
// Cadence steps per second.
type Synth struct {
	Name     string
	Frames   int
	Interval float64 // seconds per frame
	Speed    float64 // units per second
	TurnRate float64 // radians per second, positive turns toward +X
	Heading  float64 // initial heading
	Start    r2.Vec  // initial ground position
	Cadence  float64
	Sway     float64 // spine sway amplitude in degrees
	Loop     bool
}

// Generate builds the clip described by s.
func Generate(s Synth) *Clip {
	c := &Clip{
		ClipName: s.Name,
		Interval: s.Interval,
		Loop:     s.Loop,
		Skeleton: Rig(),
		Frames:   make([]m2skeleton.PoseFrame, s.Frames),
	}
	for i := range c.Frames {
		t := float64(i) * s.Interval
		pos, heading := s.RootAt(t)
		phase := 2 * math.Pi * s.Cadence * t
		sway := s.Sway * math.Sin(phase)
		c.Frames[i] = m2skeleton.PoseFrame{
			pos.X, synthHipHeight, pos.Y,
			0, 0, heading * 180 / math.Pi,
			sway, 0.5 * sway, 0,
			-0.5 * sway, 0, 0.25 * sway,
		}
	}
	return c
}

// RootAt returns the analytic root position and heading at time t.
func (s Synth) RootAt(t float64) (r2.Vec, float64) {
	heading := s.Heading + s.TurnRate*t
	if math.Abs(s.TurnRate) < 1e-12 {
		return r2.Add(s.Start, r2.Scale(s.Speed*t, r2.Vec{X: math.Sin(s.Heading), Y: math.Cos(s.Heading)})), heading
	}
	radius := s.Speed / s.TurnRate
	return r2.Add(s.Start, r2.Vec{
		X: radius * (math.Cos(s.Heading) - math.Cos(heading)),
		Y: radius * (math.Sin(heading) - math.Sin(s.Heading)),
	}), heading
}

// Straight returns a clip walking along +Z at speed.
func Straight(name string, frames int, interval, speed float64) *Clip {
	return Generate(Synth{
		Name:     name,
		Frames:   frames,
		Interval: interval,
		Speed:    speed,
		Cadence:  1.8,
		Sway:     6,
	})
}

// Arc returns a clip walking along a circular arc.
func Arc(name string, frames int, interval, speed, turnRate float64) *Clip {
	return Generate(Synth{
		Name:     name,
		Frames:   frames,
		Interval: interval,
		Speed:    speed,
		TurnRate: turnRate,
		Cadence:  1.8,
		Sway:     6,
	})
}
