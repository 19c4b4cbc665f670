package m3corpus

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/motion.match/internal/motion"
	"github.com/banshee-data/motion.match/internal/motion/geom"
	"github.com/banshee-data/motion.match/internal/motion/m2skeleton"
)

// sampleEpsilon keeps resampling strictly inside the last frame segment.
const sampleEpsilon = 1e-6

// Clip is a decoded motion-capture recording.
type Clip interface {
	Name() string
	Joints() []m2skeleton.Joint
	FrameInterval() float64
	FrameCount() int
	Frame(i int) m2skeleton.PoseFrame
	Loopable() bool
}

// SkipReason explains why a clip was left out of the corpus.
type SkipReason string

const (
	SkipIntervalMismatch SkipReason = "frame interval mismatch"
	SkipTooFewFrames     SkipReason = "fewer than two frames"
	SkipSkeletonMismatch SkipReason = "skeleton differs from corpus"
	SkipBadFrame         SkipReason = "malformed frame"
	SkipTooShort         SkipReason = "too short for one trajectory window"
)

// ClipResult records what happened to one input clip.
type ClipResult struct {
	Name     string
	Chunk    int // -1 when skipped
	Frames   int
	Points   int
	Loopable bool
	Reason   SkipReason
	Detail   string
}

// BuildReport lists accepted and skipped clips in input order.
type BuildReport struct {
	Accepted []ClipResult
	Skipped  []ClipResult
}

// Build resamples clips into a new Asset. Malformed clips are skipped and
// reported; an invalid config or skeleton aborts the build. Zero accepted
// clips yields an empty asset, not an error.
func Build(clips []Clip, cfg BuildConfig) (*Asset, BuildReport, error) {
	var report BuildReport
	if err := cfg.Validate(); err != nil {
		return nil, report, err
	}

	asset := newAsset(cfg)
	for ci, clip := range clips {
		name := clip.Name()
		if name == "" {
			name = fmt.Sprintf("clip-%d", ci)
		}
		skel, err := m2skeleton.New(clip.Joints())
		if err != nil {
			return nil, report, fmt.Errorf("%w: clip %q: %w", ErrInvalidSkeleton, name, err)
		}

		skip := func(reason SkipReason, format string, args ...any) {
			detail := fmt.Sprintf(format, args...)
			motion.Opsf("corpus: skipping clip %q: %s (%s)", name, reason, detail)
			report.Skipped = append(report.Skipped, ClipResult{
				Name:     name,
				Chunk:    -1,
				Frames:   clip.FrameCount(),
				Loopable: clip.Loopable(),
				Reason:   reason,
				Detail:   detail,
			})
		}

		fi := clip.FrameInterval()
		if math.Abs(fi-cfg.PoseInterval) > cfg.IntervalTolerance {
			skip(SkipIntervalMismatch, "interval %.6fs, corpus %.6fs", fi, cfg.PoseInterval)
			continue
		}
		n := clip.FrameCount()
		if n < 2 {
			skip(SkipTooFewFrames, "%d frames", n)
			continue
		}
		if asset.skeleton != nil && !asset.skeleton.Equivalent(skel) {
			skip(SkipSkeletonMismatch, "%d joints, corpus has %d", skel.NumJoints(), asset.skeleton.NumJoints())
			continue
		}

		frames := make([]m2skeleton.PoseFrame, n)
		bad := -1
		for i := range n {
			f := clip.Frame(i)
			if err := skel.CheckFrame(f); err != nil {
				bad = i
				skip(SkipBadFrame, "frame %d: %v", i, err)
				break
			}
			frames[i] = slices.Clone(f)
		}
		if bad >= 0 {
			continue
		}

		duration := float64(n-1) * fi
		required := requiredSamples(duration, cfg.Trajectory.IntervalTime)
		if !clip.Loopable() && required < cfg.Trajectory.NumPoints {
			skip(SkipTooShort, "%.3fs gives %d samples, window needs %d", duration, required, cfg.Trajectory.NumPoints)
			continue
		}

		points := resampleRoot(skel, frames, fi, clip.Loopable(), cfg.Trajectory)
		if err := asset.trajectories.PushChunk(points); err != nil {
			return nil, report, fmt.Errorf("clip %q: %w", name, err)
		}
		if err := asset.poses.PushChunk(frames); err != nil {
			return nil, report, fmt.Errorf("clip %q: %w", name, err)
		}
		if asset.skeleton == nil {
			asset.skeleton = skel
		}
		asset.loopable = append(asset.loopable, clip.Loopable())
		asset.clipNames = append(asset.clipNames, name)

		report.Accepted = append(report.Accepted, ClipResult{
			Name:     name,
			Chunk:    asset.NumChunks() - 1,
			Frames:   n,
			Points:   len(points),
			Loopable: clip.Loopable(),
		})
	}

	motion.Diagf("corpus: built %d chunks (%d skipped), %d poses, %d trajectory points",
		asset.NumChunks(), len(report.Skipped), asset.poses.Len(), asset.trajectories.Len())
	return asset, report, nil
}

// requiredSamples is the number of trajectory samples that fit in duration.
func requiredSamples(duration, interval float64) int {
	return int(math.Floor(duration/interval+sampleEpsilon)) + 1
}

// resampleRoot samples the root joint of frames at the trajectory interval.
// Positions are unwrapped across loop seams so the path stays continuous.
func resampleRoot(skel *m2skeleton.Skeleton, frames []m2skeleton.PoseFrame, fi float64, loop bool, tc TrajectoryConfig) []TrajectoryPoint {
	n := len(frames)
	roots := make([]geom.Transform, n)
	for i, f := range frames {
		roots[i] = skel.LocalTransform(f, 0)
	}
	firstPos := roots[0].Translation
	lastPos := roots[n-1].Translation

	duration := float64(n-1) * fi
	count := max(requiredSamples(duration, tc.IntervalTime), tc.NumPoints)
	points := make([]TrajectoryPoint, 0, count)

	var prevT float64
	var prevPos, prevWorld r3.Vec
	for p := range count {
		t := tc.IntervalTime * float64(p)
		if loop {
			t = math.Mod(t, duration)
		}
		t = math.Max(0, math.Min(t, duration-sampleEpsilon))

		i := min(int(t/fi), n-2)
		f := math.Max(0, math.Min(1, (t-float64(i)*fi)/fi))
		root := geom.Interpolate(roots[i], roots[i+1], f)
		vel := r2.Scale(1/fi, geom.Planar(r3.Sub(roots[i+1].Translation, roots[i].Translation)))

		pos := root.Translation
		var world r3.Vec
		switch {
		case p == 0:
			world = pos
		case t >= prevT:
			world = r3.Add(prevWorld, r3.Sub(pos, prevPos))
		default:
			seam := r3.Add(r3.Sub(lastPos, prevPos), r3.Sub(pos, firstPos))
			world = r3.Add(prevWorld, seam)
		}
		prevT, prevPos, prevWorld = t, pos, world

		points = append(points, TrajectoryPoint{
			Transform: geom.Transform{Rotation: root.Rotation, Translation: world},
			Velocity:  vel,
		})
	}
	return points
}
