package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/motion.match/internal/motion/clipio"
	"github.com/banshee-data/motion.match/internal/motion/m3corpus"
	"github.com/banshee-data/motion.match/internal/motion/m4index"
	"github.com/banshee-data/motion.match/internal/motion/m6blend"
)

func testAsset(t *testing.T) *m3corpus.Asset {
	t.Helper()
	cfg := m3corpus.DefaultBuildConfig()
	asset, _, err := m3corpus.Build([]m3corpus.Clip{
		clipio.Straight("walk", 121, cfg.PoseInterval, 100),
		clipio.Arc("turn", 121, cfg.PoseInterval, 100, 0.8),
	}, cfg)
	require.NoError(t, err)
	require.Equal(t, 2, asset.NumChunks())
	return asset
}

func TestPlotTrajectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.png")
	require.NoError(t, PlotTrajectories(testAsset(t), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")), "expected a PNG file")
}

func TestPlotTrajectoriesEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.png")
	assert.ErrorIs(t, PlotTrajectories(nil, path), ErrNothingToPlot)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestRenderRun(t *testing.T) {
	samples := []RunSample{
		{Time: 0, Interp: 1, Target: "B", Idle: true},
		{Time: 1.0 / 60, X: 0.1, Z: 1.2, Interp: 1, Matched: true, Distance: 0.02, Target: "B", Rematched: true},
		{Time: 2.0 / 60, X: 0.2, Z: 1.4, Interp: 0.9, Matched: true, Distance: 0.05, Target: "A", Rematched: true},
	}
	var buf bytes.Buffer
	require.NoError(t, RenderRun(&buf, "walk run", samples))

	html := buf.String()
	assert.Contains(t, html, "walk run")
	assert.Contains(t, html, "rematches=2")
	assert.Contains(t, html, "target slot")
}

func TestRenderRunEmpty(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, RenderRun(&buf, "empty", nil), ErrNothingToPlot)
	assert.Zero(t, buf.Len())
}

func TestNewRunSampleFromPlayer(t *testing.T) {
	asset := testAsset(t)
	ix, err := m4index.Build(asset, m4index.TreeStrategy())
	require.NoError(t, err)
	player, err := m6blend.New(asset, ix, m6blend.DefaultConfig())
	require.NoError(t, err)

	cfg := asset.Config().Trajectory
	path := clipio.Synth{Speed: 100}
	var in m6blend.LiveInput
	for i := range cfg.NumPoints {
		p, _ := path.RootAt(float64(i-cfg.HistoryCount) * cfg.IntervalTime)
		in.Trajectory.Points = append(in.Trajectory.Points, p)
	}

	frame, err := player.Advance(1.0/60, in)
	require.NoError(t, err)
	s := NewRunSample(1.0/60, frame, player.Slot(player.Target()))
	assert.True(t, s.Rematched)
	assert.False(t, s.Idle)
	assert.Equal(t, "A", s.Target)
	assert.True(t, s.Matched)
	assert.GreaterOrEqual(t, s.Distance, 0.0)

	idle := NewRunSample(0, m6blend.Frame{Idle: true}, m6blend.Slot{})
	assert.False(t, idle.Matched)
	assert.Zero(t, idle.Distance)
}

func TestGenerateColors(t *testing.T) {
	assert.Nil(t, generateColors(0))
	colors := generateColors(3)
	require.Len(t, colors, 3)
	r, g, b, _ := colors[0].RGBA()
	assert.Greater(t, r, g)
	assert.Greater(t, r, b)
	assert.NotEqual(t, colors[0], colors[1])
}
