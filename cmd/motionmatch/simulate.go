package main

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/motion.match/internal/motion/clipio"
	"github.com/banshee-data/motion.match/internal/motion/geom"
	"github.com/banshee-data/motion.match/internal/motion/m3corpus"
	"github.com/banshee-data/motion.match/internal/motion/m4index"
	"github.com/banshee-data/motion.match/internal/motion/m5match"
	"github.com/banshee-data/motion.match/internal/motion/m6blend"
	"github.com/banshee-data/motion.match/internal/motion/report"
)

// simParams describe the desired motion a simulated host asks for.
type simParams struct {
	Speed    float64
	TurnRate float64
	Zigzag   time.Duration
	Seconds  float64
	FPS      float64
	UsePose  bool
}

// simulate steps a player for p.Seconds. Each frame the desired path is
// laid out ahead of the character from its current placement, and the
// character then moves wherever the player puts it.
func simulate(asset *m3corpus.Asset, ix *m4index.Index, cfg m6blend.Config, p simParams) ([]report.RunSample, error) {
	if p.FPS <= 0 || p.Seconds <= 0 {
		return nil, fmt.Errorf("%w: fps and seconds must be positive", errUsage)
	}
	player, err := m6blend.New(asset, ix, cfg)
	if err != nil {
		return nil, err
	}

	dt := 1 / p.FPS
	frames := int(math.Round(p.Seconds * p.FPS))
	samples := make([]report.RunSample, 0, frames)

	var character geom.Transform2D
	var in m6blend.LiveInput
	for i := range frames {
		t := float64(i+1) * dt
		in.Trajectory = desiredPath(asset, character, p.turnAt(t), p.Speed)
		in.Character = character

		frame, err := player.Advance(dt, in)
		if err != nil {
			return samples, fmt.Errorf("frame %d: %w", i, err)
		}
		target := player.Slot(player.Target())
		samples = append(samples, report.NewRunSample(t, frame, target))
		character = frame.World

		in.Pose = nil
		if p.UsePose && target.Occupied {
			ps, err := asset.PoseAt(target.Candidate.ChunkIndex, target.Elapsed)
			if err == nil {
				in.Pose = ps.Nearest()
			}
		}
	}
	return samples, nil
}

func (p simParams) turnAt(t float64) float64 {
	if p.Zigzag <= 0 {
		return p.TurnRate
	}
	if int(t/p.Zigzag.Seconds())%2 == 1 {
		return -p.TurnRate
	}
	return p.TurnRate
}

// desiredPath samples a constant-speed, constant-turn path in the
// character's frame, with the anchor at the character.
func desiredPath(asset *m3corpus.Asset, character geom.Transform2D, turn, speed float64) m5match.LiveTrajectory {
	tc := asset.Config().Trajectory
	path := clipio.Synth{Speed: speed, TurnRate: turn}
	live := m5match.LiveTrajectory{
		Points:  make([]r2.Vec, tc.NumPoints),
		Heading: character.Heading,
	}
	for i := range live.Points {
		pos, _ := path.RootAt(float64(i-tc.HistoryCount) * tc.IntervalTime)
		live.Points[i] = character.FromLocal(pos)
	}
	return live
}

type runSummary struct {
	Frames       int
	Rematches    int
	Idle         int
	Travelled    float64
	MeanDistance float64
}

func summarize(samples []report.RunSample) runSummary {
	s := runSummary{Frames: len(samples)}
	matched := 0
	for i, rs := range samples {
		if rs.Rematched {
			s.Rematches++
		}
		if rs.Idle {
			s.Idle++
		}
		if rs.Matched {
			s.MeanDistance += rs.Distance
			matched++
		}
		if i > 0 {
			s.Travelled += math.Hypot(rs.X-samples[i-1].X, rs.Z-samples[i-1].Z)
		}
	}
	if matched > 0 {
		s.MeanDistance /= float64(matched)
	}
	return s
}
