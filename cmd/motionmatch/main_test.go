package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/motion.match/internal/motion/clipio"
	"github.com/banshee-data/motion.match/internal/motion/m3corpus"
	"github.com/banshee-data/motion.match/internal/motion/m4index"
	"github.com/banshee-data/motion.match/internal/motion/m6blend"
	"github.com/banshee-data/motion.match/internal/motion/storage/sqlite"
)

func writeClips(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	interval := m3corpus.DefaultBuildConfig().PoseInterval
	jog := clipio.Straight("jog", 61, interval, 100)
	jog.Loop = true
	for _, c := range []*clipio.Clip{
		clipio.Straight("walk", 181, interval, 100),
		jog,
		clipio.Arc("left", 181, interval, 100, -0.6),
		clipio.Arc("right", 181, interval, 100, 0.6),
	} {
		require.NoError(t, clipio.Save(filepath.Join(dir, c.ClipName+clipio.Ext), c))
	}
	return dir
}

func TestBuildInspectSimulateReport(t *testing.T) {
	clips := writeClips(t)
	work := t.TempDir()
	artifact := filepath.Join(work, "corpus.motion")
	library := filepath.Join(work, "library.db")

	var out bytes.Buffer
	require.NoError(t, handleBuild([]string{"-clips", clips, "-out", artifact, "-db", library, "-name", "locomotion"}, &out))
	assert.Contains(t, out.String(), "walk")
	assert.Contains(t, out.String(), "saved locomotion as ")

	db, err := sqlite.Open(library)
	require.NoError(t, err)
	records, err := sqlite.NewAssetStore(db.DB).List()
	require.NoError(t, err)
	require.NoError(t, db.Close())
	require.Len(t, records, 1)
	assert.Equal(t, 4, records[0].NumChunks)

	out.Reset()
	require.NoError(t, handleInspect([]string{"-asset", artifact}, &out))
	assert.Contains(t, out.String(), "chunks:         4")
	assert.Contains(t, out.String(), "index:          tree")

	out.Reset()
	require.NoError(t, handleInspect([]string{"-db", library}, &out))
	assert.Contains(t, out.String(), records[0].AssetID)

	run := filepath.Join(work, "run.json")
	html := filepath.Join(work, "run.html")
	out.Reset()
	require.NoError(t, handleSimulate([]string{"-db", library, "-seconds", "2", "-turn", "0.3", "-out", run, "-html", html}, &out))
	assert.Contains(t, out.String(), "frames=120")

	samples, err := readSamples(run)
	require.NoError(t, err)
	assert.Len(t, samples, 120)

	png := filepath.Join(work, "corpus.png")
	rerendered := filepath.Join(work, "again.html")
	out.Reset()
	require.NoError(t, handleReport([]string{"-asset", artifact, "-png", png, "-run", run, "-html", rerendered}, &out))
	for _, path := range []string{html, png, rerendered} {
		info, err := os.Stat(path)
		require.NoError(t, err, path)
		assert.Positive(t, info.Size(), path)
	}
}

func TestBuildOutsideRepository(t *testing.T) {
	clips := writeClips(t)
	t.Chdir(t.TempDir())

	tuning, err := loadTuning("")
	require.NoError(t, err)
	assert.Equal(t, 7, tuning.GetNumPoints())

	var out bytes.Buffer
	require.NoError(t, handleBuild([]string{"-clips", clips, "-out", "corpus.motion"}, &out))
	info, err := os.Stat("corpus.motion")
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestHandlersRejectMissingFlags(t *testing.T) {
	var out bytes.Buffer
	assert.ErrorIs(t, handleBuild(nil, &out), errUsage)
	assert.ErrorIs(t, handleBuild([]string{"-clips", t.TempDir()}, &out), errUsage)
	assert.ErrorIs(t, handleInspect(nil, &out), errUsage)
	assert.ErrorIs(t, handleReport(nil, &out), errUsage)
	assert.ErrorIs(t, handleReport([]string{"-html", "x.html"}, &out), errUsage)
	assert.ErrorIs(t, handleSimulate([]string{"-nope"}, &out), errUsage)
}

func TestSimulateFollowsPath(t *testing.T) {
	clips, err := clipio.LoadDir(writeClips(t))
	require.NoError(t, err)
	in := make([]m3corpus.Clip, len(clips))
	for i, c := range clips {
		in[i] = c
	}
	asset, _, err := m3corpus.Build(in, m3corpus.DefaultBuildConfig())
	require.NoError(t, err)
	ix, err := m4index.Build(asset, m4index.TreeStrategy())
	require.NoError(t, err)

	tests := []struct {
		name string
		p    simParams
	}{
		{"straight", simParams{Speed: 100, Seconds: 3, FPS: 60}},
		{"straight with pose", simParams{Speed: 100, Seconds: 3, FPS: 60, UsePose: true}},
		{"zigzag", simParams{Speed: 100, TurnRate: 0.6, Zigzag: time.Second, Seconds: 3, FPS: 60, UsePose: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			samples, err := simulate(asset, ix, m6blend.DefaultConfig(), tt.p)
			require.NoError(t, err)
			require.Len(t, samples, 180)

			sum := summarize(samples)
			assert.Zero(t, sum.Idle)
			// One match every 250ms, plus the first frame.
			assert.GreaterOrEqual(t, sum.Rematches, 10)
			assert.InDelta(t, 100*3, sum.Travelled, 30)
			assert.GreaterOrEqual(t, sum.MeanDistance, 0.0)
		})
	}
}

func TestSimulateRejectsBadParams(t *testing.T) {
	_, err := simulate(nil, nil, m6blend.DefaultConfig(), simParams{Speed: 100})
	assert.ErrorIs(t, err, errUsage)
}

func TestTurnAt(t *testing.T) {
	p := simParams{TurnRate: 0.5, Zigzag: time.Second}
	assert.Equal(t, 0.5, p.turnAt(0.2))
	assert.Equal(t, -0.5, p.turnAt(1.2))
	assert.Equal(t, 0.5, p.turnAt(2.2))
	assert.Equal(t, 0.5, simParams{TurnRate: 0.5}.turnAt(1.2))
}
