package m4index

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/motion.match/internal/motion/geom"
	"github.com/banshee-data/motion.match/internal/motion/m3corpus"
)

var ErrWindowLength = errors.New("trajectory window has the wrong number of points")

// Extractor turns a window of NumPoints trajectory points into a feature
// vector. Every point is expressed in the planar frame of the anchor point
// (index HistoryCount), scaled by UnitScale, and consecutive differences
// are emitted as x, z pairs.
type Extractor struct {
	NumPoints    int
	HistoryCount int
	UnitScale    float64
}

// ExtractorFor returns the extractor matching an asset's build settings.
func ExtractorFor(cfg m3corpus.BuildConfig) Extractor {
	return Extractor{
		NumPoints:    cfg.Trajectory.NumPoints,
		HistoryCount: cfg.Trajectory.HistoryCount,
		UnitScale:    cfg.UnitScale,
	}
}

// Dim returns the feature vector length.
func (e Extractor) Dim() int { return 2 * (e.NumPoints - 1) }

// Window extracts the feature of a corpus window. The anchor heading is the
// yaw of the anchor point's root rotation.
func (e Extractor) Window(points []m3corpus.TrajectoryPoint, dst []float64) ([]float64, error) {
	if len(points) != e.NumPoints {
		return dst, fmt.Errorf("%w: got %d, want %d", ErrWindowLength, len(points), e.NumPoints)
	}
	anchor := points[e.HistoryCount]
	frame := geom.Transform2D{Position: anchor.Position(), Heading: anchor.Heading()}
	return e.encode(frame, len(points), func(i int) r2.Vec { return points[i].Position() }, dst), nil
}

// Planar extracts the feature of a live trajectory given as ground points,
// anchored at points[HistoryCount] facing anchorHeading.
func (e Extractor) Planar(points []r2.Vec, anchorHeading float64, dst []float64) ([]float64, error) {
	if len(points) != e.NumPoints {
		return dst, fmt.Errorf("%w: got %d, want %d", ErrWindowLength, len(points), e.NumPoints)
	}
	frame := geom.Transform2D{Position: points[e.HistoryCount], Heading: anchorHeading}
	return e.encode(frame, len(points), func(i int) r2.Vec { return points[i] }, dst), nil
}

func (e Extractor) encode(frame geom.Transform2D, n int, at func(int) r2.Vec, dst []float64) []float64 {
	dst = dst[:0]
	prev := r2.Scale(e.UnitScale, frame.ToLocal(at(0)))
	for i := 1; i < n; i++ {
		cur := r2.Scale(e.UnitScale, frame.ToLocal(at(i)))
		d := r2.Sub(cur, prev)
		dst = append(dst, d.X, d.Y)
		prev = cur
	}
	return dst
}
