package m3corpus

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/motion.match/internal/motion/geom"
	"github.com/banshee-data/motion.match/internal/motion/m1series"
	"github.com/banshee-data/motion.match/internal/motion/m2skeleton"
)

// TrajectoryPoint is one resampled root sample. Transform carries the
// unwrapped world position; Velocity is planar, in clip units per second.
type TrajectoryPoint struct {
	Transform geom.Transform
	Velocity  r2.Vec
}

// Position returns the point's ground-plane position.
func (p TrajectoryPoint) Position() r2.Vec { return geom.Planar(p.Transform.Translation) }

// Heading returns the point's planar facing angle.
func (p TrajectoryPoint) Heading() float64 { return geom.Yaw(p.Transform.Rotation) }

// Asset is an immutable motion corpus. Chunk i of the pose series and of
// the trajectory series both come from the i-th accepted clip.
type Asset struct {
	cfg          BuildConfig
	skeleton     *m2skeleton.Skeleton
	poses        *m1series.Series[m2skeleton.PoseFrame]
	trajectories *m1series.Series[TrajectoryPoint]
	loopable     []bool
	clipNames    []string
}

func newAsset(cfg BuildConfig) *Asset {
	return &Asset{
		cfg:          cfg,
		poses:        m1series.NewSeries[m2skeleton.PoseFrame](),
		trajectories: m1series.NewSeries[TrajectoryPoint](),
	}
}

// Config returns the settings the asset was built with.
func (a *Asset) Config() BuildConfig { return a.cfg }

// Skeleton returns the shared skeleton, or nil for an empty asset.
func (a *Asset) Skeleton() *m2skeleton.Skeleton { return a.skeleton }

// Joints returns the skeleton joints, or nil for an empty asset.
func (a *Asset) Joints() []m2skeleton.Joint {
	if a.skeleton == nil {
		return nil
	}
	return a.skeleton.Joints()
}

// Poses returns the pose series. Callers must not modify it.
func (a *Asset) Poses() *m1series.Series[m2skeleton.PoseFrame] { return a.poses }

// Trajectories returns the trajectory series. Callers must not modify it.
func (a *Asset) Trajectories() *m1series.Series[TrajectoryPoint] { return a.trajectories }

// NumChunks returns the number of accepted clips.
func (a *Asset) NumChunks() int { return a.trajectories.NumChunks() }

// Empty reports whether the asset holds no clips.
func (a *Asset) Empty() bool { return a == nil || a.NumChunks() == 0 }

// Loopable reports whether chunk loops. Out-of-range chunks report false.
func (a *Asset) Loopable(chunk int) bool {
	if chunk < 0 || chunk >= len(a.loopable) {
		return false
	}
	return a.loopable[chunk]
}

// ClipName returns the source clip name of chunk, or "" when out of range.
func (a *Asset) ClipName(chunk int) string {
	if chunk < 0 || chunk >= len(a.clipNames) {
		return ""
	}
	return a.clipNames[chunk]
}

// ChunkDuration returns the playable length of a pose chunk in seconds.
func (a *Asset) ChunkDuration(chunk int) (float64, error) {
	n, err := a.poses.ChunkOffsets().ChunkLen(chunk)
	if err != nil {
		return 0, err
	}
	return float64(n-1) * a.cfg.PoseInterval, nil
}

// TrajectoryWindow returns the NumPoints trajectory points starting at offset.
func (a *Asset) TrajectoryWindow(chunk, offset int) ([]TrajectoryPoint, error) {
	points, err := a.trajectories.Chunk(chunk)
	if err != nil {
		return nil, err
	}
	n := a.cfg.Trajectory.NumPoints
	if offset < 0 || offset+n > len(points) {
		return nil, fmt.Errorf("%w: window at %d needs %d points, chunk %d has %d",
			m1series.ErrOutOfRange, offset, n, chunk, len(points))
	}
	return points[offset : offset+n], nil
}

// PoseSample is a chunk sampled at a point in time: the two frames that
// bracket it and the blend factor between them.
type PoseSample struct {
	Chunk  int
	Frame  int // index of A within the chunk
	A, B   m2skeleton.PoseFrame
	Factor float64
	// Cycles counts completed loops for loopable chunks; always 0 otherwise.
	Cycles int
}

// Nearest returns whichever bracketing frame is closer in time.
func (s PoseSample) Nearest() m2skeleton.PoseFrame {
	if s.Factor < 0.5 {
		return s.A
	}
	return s.B
}

// PoseAt samples chunk at time t. Loopable chunks wrap by their duration;
// others clamp to their first and last frames.
func (a *Asset) PoseAt(chunk int, t float64) (PoseSample, error) {
	frames, err := a.poses.Chunk(chunk)
	if err != nil {
		return PoseSample{}, err
	}
	if len(frames) < 2 {
		return PoseSample{}, fmt.Errorf("chunk %d has %d frames", chunk, len(frames))
	}
	duration := float64(len(frames)-1) * a.cfg.PoseInterval

	cycles := 0
	switch {
	case a.Loopable(chunk):
		c := math.Floor(t / duration)
		t -= c * duration
		cycles = int(c)
	case t < 0:
		t = 0
	case t > duration:
		t = duration
	}

	clock := m1series.SampleClock{Interval: a.cfg.PoseInterval}
	i := clock.OffsetFromTime(t)
	f := clock.InterpFactor(t)
	if i >= len(frames)-1 {
		i, f = len(frames)-2, 1
	}
	if i < 0 {
		i, f = 0, 0
	}
	return PoseSample{
		Chunk:  chunk,
		Frame:  i,
		A:      frames[i],
		B:      frames[i+1],
		Factor: f,
		Cycles: cycles,
	}, nil
}

// LocalPoseAt returns every joint's local transform for chunk at time t.
func (a *Asset) LocalPoseAt(chunk int, t float64, dst []geom.Transform) ([]geom.Transform, error) {
	s, err := a.PoseAt(chunk, t)
	if err != nil {
		return dst, err
	}
	return a.skeleton.SampleLocal(s.A, s.B, s.Factor, dst), nil
}

// RootAt returns the root joint transform for chunk at time t. For
// loopable chunks the root keeps travelling across loop seams: each
// completed cycle applies the planar displacement between the chunk's
// first and last root.
func (a *Asset) RootAt(chunk int, t float64) (geom.Transform, error) {
	s, err := a.PoseAt(chunk, t)
	if err != nil {
		return geom.Transform{}, err
	}
	root := geom.Interpolate(a.skeleton.LocalTransform(s.A, 0), a.skeleton.LocalTransform(s.B, 0), s.Factor)
	if s.Cycles == 0 {
		return root, nil
	}

	step, err := a.cycleTransform(chunk)
	if err != nil {
		return geom.Transform{}, err
	}
	if s.Cycles < 0 {
		step = step.Inverse()
	}
	acc := geom.Identity()
	for range abs(s.Cycles) {
		acc = geom.Mul(step, acc)
	}
	return geom.Mul(acc, root), nil
}

// cycleTransform is the planar motion of the root over one loop of chunk.
func (a *Asset) cycleTransform(chunk int) (geom.Transform, error) {
	frames, err := a.poses.Chunk(chunk)
	if err != nil {
		return geom.Transform{}, err
	}
	first := a.skeleton.LocalTransform(frames[0], 0)
	last := a.skeleton.LocalTransform(frames[len(frames)-1], 0)

	rot := geom.YawRotation(geom.Yaw(last.Rotation) - geom.Yaw(first.Rotation))
	move := r3.Sub(last.Translation, geom.Rotate(rot, first.Translation))
	move.Y = 0
	return geom.Transform{Rotation: rot, Translation: move}, nil
}

// Validate checks the chunk invariants tying the series together.
func (a *Asset) Validate() error {
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	n := a.poses.NumChunks()
	if t := a.trajectories.NumChunks(); t != n {
		return fmt.Errorf("pose chunks %d != trajectory chunks %d", n, t)
	}
	if len(a.loopable) != n || len(a.clipNames) != n {
		return fmt.Errorf("chunk metadata length mismatch: %d loop flags, %d names, %d chunks",
			len(a.loopable), len(a.clipNames), n)
	}
	if a.skeleton == nil {
		if n != 0 {
			return fmt.Errorf("%w: %d chunks without a skeleton", ErrInvalidSkeleton, n)
		}
		return nil
	}

	channels := a.skeleton.ChannelCount()
	for i, frames := range a.poses.Chunks() {
		if len(frames) < 2 {
			return fmt.Errorf("pose chunk %d has %d frames", i, len(frames))
		}
		for j, f := range frames {
			if len(f) != channels {
				return fmt.Errorf("pose chunk %d frame %d: %w", i, j, m2skeleton.ErrFrameLength)
			}
		}
	}
	for i, points := range a.trajectories.Chunks() {
		if len(points) < a.cfg.Trajectory.NumPoints {
			return fmt.Errorf("trajectory chunk %d has %d points, need %d", i, len(points), a.cfg.Trajectory.NumPoints)
		}
	}
	return nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
