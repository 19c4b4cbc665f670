package m5match

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/motion.match/internal/motion/m4index"
)

// LiveTrajectory is the character's desired path sampled at the corpus
// trajectory interval: HistoryCount past points, the current position,
// then future points. Heading is the character's current facing.
type LiveTrajectory struct {
	Points  []r2.Vec
	Heading float64
}

// Direction returns the planar angle from the anchor point to the last
// future point, measured like a heading. ok is false when the path has no
// future or the character is standing still.
func (l LiveTrajectory) Direction(historyCount int) (angle float64, ok bool) {
	if historyCount < 0 || historyCount >= len(l.Points)-1 {
		return 0, false
	}
	d := r2.Sub(l.Points[len(l.Points)-1], l.Points[historyCount])
	if r2.Norm(d) < 1e-9 {
		return 0, false
	}
	return math.Atan2(d.X, d.Y), true
}

// Matcher runs trajectory queries against an index.
type Matcher struct {
	index *m4index.Index
	opts  m4index.QueryOptions
}

// NewMatcher returns a Matcher querying ix with opts.
func NewMatcher(ix *m4index.Index, opts m4index.QueryOptions) *Matcher {
	return &Matcher{index: ix, opts: opts}
}

// Index returns the index the matcher queries.
func (m *Matcher) Index() *m4index.Index { return m.index }

// MatchTrajectory returns the candidates whose trajectory windows best fit
// live, nearest first. An empty index or no window within the threshold
// gives an empty result.
func (m *Matcher) MatchTrajectory(live LiveTrajectory) ([]m4index.Candidate, error) {
	return m.query(live, m.opts)
}

// FindNearest returns the k nearest windows regardless of the match
// threshold.
func (m *Matcher) FindNearest(live LiveTrajectory, k int) ([]m4index.Candidate, error) {
	return m.query(live, m4index.QueryOptions{MaxMatchCount: k})
}

func (m *Matcher) query(live LiveTrajectory, opts m4index.QueryOptions) ([]m4index.Candidate, error) {
	if m.index == nil || m.index.Len() == 0 {
		return nil, nil
	}
	e := m.index.Extractor()
	feature, err := e.Planar(live.Points, live.Heading, make([]float64, 0, e.Dim()))
	if err != nil {
		return nil, err
	}
	return m.index.Query(feature, opts)
}
