package clipio

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/motion.match/internal/motion/m2skeleton"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "walk"+Ext)

	orig := Straight("walk", 40, 1.0/60, 120)
	orig.Loop = true
	require.NoError(t, Save(path, orig))

	got, err := Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff(orig, got); diff != "" {
		t.Errorf("clip mismatch (-want +got):\n%s", diff)
	}

	_, err = m2skeleton.New(got.Joints())
	assert.NoError(t, err)
}

func TestLoadNamesFromFile(t *testing.T) {
	dir := t.TempDir()
	c := Straight("", 10, 1.0/30, 100)
	path := filepath.Join(dir, "jog_fwd"+Ext)
	require.NoError(t, Save(path, c))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "jog_fwd", got.Name())
}

func TestLoadRejectsEmptyClip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty"+Ext)
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"empty","frame_interval":0.1}`), 0644))

	_, err := Load(path)
	assert.True(t, errors.Is(err, ErrNoFrames))
}

func TestLoadDirSkipsBadFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(filepath.Join(dir, "b"+Ext), Straight("b", 10, 0.1, 1)))
	require.NoError(t, Save(filepath.Join(dir, "a"+Ext), Straight("a", 10, 0.1, 1)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken"+Ext), []byte("{"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	clips, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, clips, 2)
	assert.Equal(t, "a", clips[0].Name())
	assert.Equal(t, "b", clips[1].Name())
}

func TestStraightRoot(t *testing.T) {
	c := Straight("s", 61, 1.0/60, 150)
	assert.Equal(t, 61, c.FrameCount())
	assert.InDelta(t, 1.0, c.Duration(), 1e-12)

	last := c.Frame(60)
	assert.InDelta(t, 0.0, last[0], 1e-9)
	assert.InDelta(t, synthHipHeight, last[1], 1e-9)
	assert.InDelta(t, 150.0, last[2], 1e-9)
	assert.InDelta(t, 0.0, last[5], 1e-9)
}

func TestArcStaysOnCircle(t *testing.T) {
	const speed, turn = 100.0, 0.5
	c := Arc("a", 120, 1.0/30, speed, turn)

	radius := speed / turn
	centre := r2.Vec{X: radius}
	for i, f := range c.Frames {
		p := r2.Vec{X: f[0], Y: f[2]}
		assert.InDelta(t, radius, r2.Norm(r2.Sub(p, centre)), 1e-6, "frame %d", i)
		wantHeading := turn * float64(i) / 30
		assert.InDelta(t, wantHeading*180/math.Pi, f[5], 1e-9)
	}
}

func TestRootAtMatchesIntegration(t *testing.T) {
	s := Synth{Speed: 2, TurnRate: -0.7, Heading: 0.3, Start: r2.Vec{X: 1, Y: -4}}
	const dt = 1e-4
	p, _ := s.RootAt(0)
	for i := 0; i < 10000; i++ {
		_, h := s.RootAt(float64(i) * dt)
		p = r2.Add(p, r2.Scale(s.Speed*dt, r2.Vec{X: math.Sin(h), Y: math.Cos(h)}))
	}
	want, _ := s.RootAt(1)
	assert.InDelta(t, want.X, p.X, 1e-3)
	assert.InDelta(t, want.Y, p.Y, 1e-3)
}
