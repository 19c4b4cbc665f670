package m5match

import (
	"errors"
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/motion.match/internal/motion/clipio"
	"github.com/banshee-data/motion.match/internal/motion/m2skeleton"
	"github.com/banshee-data/motion.match/internal/motion/m3corpus"
	"github.com/banshee-data/motion.match/internal/motion/m4index"
)

const fps30 = 1.0 / 30

func testConfig() m3corpus.BuildConfig {
	return m3corpus.BuildConfig{
		PoseInterval: fps30,
		Trajectory: m3corpus.TrajectoryConfig{
			IntervalTime: 0.1,
			NumPoints:    7,
			HistoryCount: 3,
		},
		UnitScale:         0.01,
		IntervalTolerance: 1e-4,
	}
}

// curvy returns a clip whose turn rate drifts randomly.
func curvy(name string, frames int, rng *rand.Rand) *clipio.Clip {
	c := &clipio.Clip{ClipName: name, Interval: fps30, Skeleton: clipio.Rig()}
	var pos r2.Vec
	var heading, turn float64
	for range frames {
		c.Frames = append(c.Frames, m2skeleton.PoseFrame{pos.X, 90, pos.Y, 0, 0, heading * 180 / math.Pi, 0, 0, 0, 0, 0, 0})
		turn = 0.9*turn + rng.NormFloat64()*0.5
		heading += turn * fps30
		pos = r2.Add(pos, r2.Scale(120*fps30, r2.Vec{X: math.Sin(heading), Y: math.Cos(heading)}))
	}
	return c
}

func buildAsset(t *testing.T, clips ...*clipio.Clip) *m3corpus.Asset {
	t.Helper()
	in := make([]m3corpus.Clip, len(clips))
	for i, c := range clips {
		in[i] = c
	}
	asset, report, err := m3corpus.Build(in, testConfig())
	require.NoError(t, err)
	require.Len(t, report.Accepted, len(clips))
	return asset
}

func liveFromWindow(t *testing.T, asset *m3corpus.Asset, chunk, offset int) LiveTrajectory {
	t.Helper()
	w, err := asset.TrajectoryWindow(chunk, offset)
	require.NoError(t, err)
	live := LiveTrajectory{Heading: w[asset.Config().Trajectory.HistoryCount].Heading()}
	for _, p := range w {
		live.Points = append(live.Points, p.Position())
	}
	return live
}

func TestFindNearestRecoversWindow(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	asset := buildAsset(t, curvy("a", 120, rng), curvy("b", 120, rng))
	for _, s := range []m4index.Strategy{
		m4index.TreeStrategy(),
		m4index.ClusterStrategy(m4index.ClusterParams{K: 4, Iterations: 10, Seed: 3}),
	} {
		ix, err := m4index.Build(asset, s)
		require.NoError(t, err)
		m := NewMatcher(ix, m4index.QueryOptions{MaxMatchCount: 4, Threshold: 2})

		got, err := m.FindNearest(liveFromWindow(t, asset, 1, 17), 1)
		require.NoError(t, err)
		require.Len(t, got, 1, s.Kind)
		assert.InDelta(t, 0, got[0].Distance, 1e-9)
		assert.Equal(t, 1, got[0].ChunkIndex)
		assert.Equal(t, 17, got[0].ChunkOffset)
	}
}

func TestMatchTrajectoryIgnoresWorldPlacement(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	asset := buildAsset(t, curvy("a", 150, rng))
	ix, err := m4index.Build(asset, m4index.TreeStrategy())
	require.NoError(t, err)
	m := NewMatcher(ix, m4index.QueryOptions{MaxMatchCount: 3, Threshold: 2})

	live := liveFromWindow(t, asset, 0, 30)
	// Rotate and shift the whole path; the match must not change.
	const turn = 1.3
	shift := r2.Vec{X: 800, Y: -250}
	for i, p := range live.Points {
		sin, cos := math.Sincos(turn)
		live.Points[i] = r2.Add(shift, r2.Vec{X: p.X*cos + p.Y*sin, Y: -p.X*sin + p.Y*cos})
	}
	live.Heading += turn

	got, err := m.MatchTrajectory(live)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, 30, got[0].ChunkOffset)
	assert.InDelta(t, 0, got[0].Distance, 1e-9)
}

func TestMatchTrajectoryEmptyIndex(t *testing.T) {
	asset, _, err := m3corpus.Build(nil, testConfig())
	require.NoError(t, err)
	ix, err := m4index.Build(asset, m4index.TreeStrategy())
	require.NoError(t, err)

	got, err := NewMatcher(ix, m4index.QueryOptions{MaxMatchCount: 1}).MatchTrajectory(LiveTrajectory{})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = NewMatcher(nil, m4index.QueryOptions{MaxMatchCount: 1}).MatchTrajectory(LiveTrajectory{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMatchTrajectoryWrongLength(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 8))
	asset := buildAsset(t, curvy("a", 90, rng))
	ix, err := m4index.Build(asset, m4index.TreeStrategy())
	require.NoError(t, err)

	_, err = NewMatcher(ix, m4index.QueryOptions{MaxMatchCount: 1}).MatchTrajectory(LiveTrajectory{Points: make([]r2.Vec, 3)})
	assert.True(t, errors.Is(err, m4index.ErrWindowLength))
}

func TestDirection(t *testing.T) {
	live := LiveTrajectory{Points: []r2.Vec{{}, {}, {X: 1, Y: 1}}}
	angle, ok := live.Direction(1)
	require.True(t, ok)
	assert.InDelta(t, math.Pi/4, angle, 1e-12)

	_, ok = LiveTrajectory{Points: []r2.Vec{{}, {}}}.Direction(1)
	assert.False(t, ok)
	_, ok = LiveTrajectory{Points: []r2.Vec{{}, {}, {}}}.Direction(0)
	assert.False(t, ok, "standing still has no direction")
}

func TestPoseDistance(t *testing.T) {
	skel, err := m2skeleton.New(clipio.Rig())
	require.NoError(t, err)

	a := make(m2skeleton.PoseFrame, 12)
	b := make(m2skeleton.PoseFrame, 12)
	assert.Equal(t, 0.0, PoseDistance(skel, a, b))

	// Root placement is ignored.
	b[0], b[2] = 500, -300
	assert.Equal(t, 0.0, PoseDistance(skel, a, b))

	// Spine differs by a 3-4-5 triangle, head by 9: sqrt(5 + 9).
	b[6], b[7] = 3, 4
	b[10] = 9
	assert.InDelta(t, math.Sqrt(14), PoseDistance(skel, a, b), 1e-12)

	// Rotations wrap.
	c := make(m2skeleton.PoseFrame, 12)
	d := make(m2skeleton.PoseFrame, 12)
	c[5], d[5] = 179, -179
	assert.InDelta(t, math.Sqrt(2), PoseDistance(skel, c, d), 1e-9)
}

func TestScorePosesPicksClosestPose(t *testing.T) {
	calm := clipio.Generate(clipio.Synth{Name: "calm", Frames: 90, Interval: fps30, Speed: 100})
	sway := clipio.Generate(clipio.Synth{Name: "sway", Frames: 90, Interval: fps30, Speed: 100, Cadence: 1.5, Sway: 25})
	asset := buildAsset(t, sway, calm)

	candidates := []m4index.Candidate{
		{ChunkIndex: 0, ChunkOffset: 2, Distance: 0.01},
		{ChunkIndex: 9, ChunkOffset: 0},
		{ChunkIndex: 1, ChunkOffset: 2, Distance: 0.02},
		{ChunkIndex: 1, ChunkOffset: 500},
	}
	s, err := asset.PoseAt(1, CandidateTime(asset, candidates[2]))
	require.NoError(t, err)

	best, dist, ok, err := ScorePoses(asset, candidates, s.Nearest())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, candidates[2], best)
	assert.InDelta(t, 0, dist, 1e-12)
}

func TestScorePosesIgnoresRootPlacement(t *testing.T) {
	asset := buildAsset(t, clipio.Straight("walk", 90, fps30, 100))
	c := m4index.Candidate{ChunkIndex: 0, ChunkOffset: 3}
	s, err := asset.PoseAt(0, CandidateTime(asset, c))
	require.NoError(t, err)

	// Same pose, elsewhere in the world and one full turn further round.
	live := slices.Clone(s.Nearest())
	live[0] += 1000
	live[2] -= 250
	live[5] += 360

	_, dist, ok, err := ScorePoses(asset, []m4index.Candidate{c}, live)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 0, dist, 1e-4)
}

func TestScorePosesNothingToScore(t *testing.T) {
	asset := buildAsset(t, clipio.Straight("s", 60, fps30, 100))
	live := make(m2skeleton.PoseFrame, 12)

	_, _, ok, err := ScorePoses(asset, nil, live)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, ok, err = ScorePoses(asset, []m4index.Candidate{{ChunkIndex: 4}}, live)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, _, err = ScorePoses(asset, []m4index.Candidate{{}}, live[:5])
	assert.True(t, errors.Is(err, ErrPoseLength))
}

func TestCandidateTime(t *testing.T) {
	asset := buildAsset(t, clipio.Straight("s", 60, fps30, 100))
	assert.InDelta(t, 0.8, CandidateTime(asset, m4index.Candidate{ChunkOffset: 5}), 1e-12)
}
