package m4index

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/banshee-data/motion.match/internal/config"
	"github.com/banshee-data/motion.match/internal/motion"
	"github.com/banshee-data/motion.match/internal/motion/m3corpus"
)

var (
	ErrDimension       = errors.New("feature dimension does not match index")
	ErrInvalidStrategy = errors.New("invalid index strategy")
	ErrInvalidQuery    = errors.New("invalid query options")
)

// Candidate is one search result: a trajectory window identified by its
// chunk and starting offset, and its Euclidean feature distance.
type Candidate struct {
	Distance    float64
	ChunkIndex  int
	ChunkOffset int
}

// StrategyKind selects the search structure.
type StrategyKind uint8

const (
	KindTree StrategyKind = iota
	KindCluster
)

func (k StrategyKind) String() string {
	switch k {
	case KindTree:
		return config.StrategyTree
	case KindCluster:
		return config.StrategyCluster
	default:
		return fmt.Sprintf("StrategyKind(%d)", k)
	}
}

// ClusterParams configures the k-means strategy.
type ClusterParams struct {
	K          int
	Iterations int
	Seed       uint64
}

// Strategy is the closed set of search structures. Cluster is read only
// when Kind is KindCluster.
type Strategy struct {
	Kind    StrategyKind
	Cluster ClusterParams
}

// TreeStrategy returns the exact k-d tree strategy.
func TreeStrategy() Strategy { return Strategy{Kind: KindTree} }

// ClusterStrategy returns the approximate k-means strategy.
func ClusterStrategy(p ClusterParams) Strategy { return Strategy{Kind: KindCluster, Cluster: p} }

func (s Strategy) validate() error {
	switch s.Kind {
	case KindTree:
		return nil
	case KindCluster:
		if s.Cluster.K < 1 || s.Cluster.Iterations < 1 {
			return fmt.Errorf("%w: cluster k=%d iterations=%d", ErrInvalidStrategy, s.Cluster.K, s.Cluster.Iterations)
		}
		return nil
	default:
		return fmt.Errorf("%w: kind %d", ErrInvalidStrategy, s.Kind)
	}
}

// QueryOptions bounds a search. A Threshold of zero or less disables the
// distance filter.
type QueryOptions struct {
	MaxMatchCount int
	Threshold     float64
}

func (o QueryOptions) limit() float64 {
	if o.Threshold <= 0 {
		return math.Inf(1)
	}
	return o.Threshold
}

// Options groups the index settings loaded from tuning.
type Options struct {
	Strategy Strategy
	Query    QueryOptions
}

// OptionsFromTuning builds index Options from a loaded TuningConfig.
func OptionsFromTuning(cfg *config.TuningConfig) Options {
	s := TreeStrategy()
	if cfg.GetStrategy() == config.StrategyCluster {
		s = ClusterStrategy(ClusterParams{
			K:          cfg.GetClusterK(),
			Iterations: cfg.GetClusterIterations(),
			Seed:       cfg.GetClusterSeed(),
		})
	}
	return Options{
		Strategy: s,
		Query: QueryOptions{
			MaxMatchCount: cfg.GetMaxMatchCount(),
			Threshold:     cfg.GetMatchThreshold(),
		},
	}
}

// Index answers nearest-trajectory queries over every window of an
// asset. It is immutable after Build and safe for concurrent queries.
type Index struct {
	extractor Extractor
	strategy  Strategy
	points    featurePoints // build order: by chunk, then offset
	skipped   int

	tree     *kdtree.Tree
	clusters []cluster
}

// Build extracts every window of every trajectory chunk in asset and
// builds the structure chosen by s. Chunks shorter than one window are
// skipped. A nil or empty asset yields an empty index.
func Build(asset *m3corpus.Asset, s Strategy) (*Index, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	ix := &Index{strategy: s}
	if asset == nil {
		return ix, nil
	}
	ix.extractor = ExtractorFor(asset.Config())

	n := ix.extractor.NumPoints
	for chunk, pts := range asset.Trajectories().Chunks() {
		if len(pts) < n {
			ix.skipped++
			motion.Opsf("index: chunk %d (%s) has %d points, window needs %d", chunk, asset.ClipName(chunk), len(pts), n)
			continue
		}
		for start := 0; start+n <= len(pts); start++ {
			vec, err := ix.extractor.Window(pts[start:start+n], make([]float64, 0, ix.extractor.Dim()))
			if err != nil {
				return nil, fmt.Errorf("chunk %d offset %d: %w", chunk, start, err)
			}
			ix.points = append(ix.points, featurePoint{vec: vec, chunk: chunk, offset: start})
		}
	}

	if len(ix.points) > 0 {
		switch s.Kind {
		case KindTree:
			ix.tree = buildTree(ix.points)
		case KindCluster:
			ix.clusters = buildClusters(ix.points, s.Cluster)
		}
	}
	motion.Diagf("index: %d windows from %d chunks (%d skipped), dim %d, strategy %s",
		len(ix.points), asset.NumChunks(), ix.skipped, ix.extractor.Dim(), s.Kind)
	return ix, nil
}

// Extractor returns the feature extractor queries must use.
func (ix *Index) Extractor() Extractor { return ix.extractor }

// Strategy returns the strategy the index was built with.
func (ix *Index) Strategy() Strategy { return ix.strategy }

// Len returns the number of indexed windows.
func (ix *Index) Len() int { return len(ix.points) }

// Query returns up to MaxMatchCount windows within Threshold of feature,
// nearest first with ties ordered by chunk then offset. An empty result is
// not an error.
func (ix *Index) Query(feature []float64, opts QueryOptions) ([]Candidate, error) {
	if err := ix.checkQuery(feature, opts); err != nil {
		return nil, err
	}
	if len(ix.points) == 0 {
		return nil, nil
	}
	switch ix.strategy.Kind {
	case KindTree:
		return ix.queryTree(feature, opts), nil
	case KindCluster:
		return ix.queryClusters(feature, opts), nil
	}
	return nil, fmt.Errorf("%w: kind %d", ErrInvalidStrategy, ix.strategy.Kind)
}

// BruteForce answers the same query as Query by scanning every window.
func (ix *Index) BruteForce(feature []float64, opts QueryOptions) ([]Candidate, error) {
	if err := ix.checkQuery(feature, opts); err != nil {
		return nil, err
	}
	limit := opts.limit()
	var out []Candidate
	for _, p := range ix.points {
		if d := math.Sqrt(sqDist(p.vec, feature)); d <= limit {
			out = append(out, p.candidate(d))
		}
	}
	return topN(out, opts.MaxMatchCount), nil
}

func (ix *Index) checkQuery(feature []float64, opts QueryOptions) error {
	if opts.MaxMatchCount < 1 {
		return fmt.Errorf("%w: max match count %d", ErrInvalidQuery, opts.MaxMatchCount)
	}
	if ix.extractor.NumPoints > 0 && len(feature) != ix.extractor.Dim() {
		return fmt.Errorf("%w: got %d, want %d", ErrDimension, len(feature), ix.extractor.Dim())
	}
	return nil
}

// Stats summarises an index.
type Stats struct {
	Windows       int
	Dim           int
	Strategy      string
	SkippedChunks int
	ClusterSizes  []int
}

// Stats returns a summary of the index.
func (ix *Index) Stats() Stats {
	st := Stats{
		Windows:       len(ix.points),
		Dim:           ix.extractor.Dim(),
		Strategy:      ix.strategy.Kind.String(),
		SkippedChunks: ix.skipped,
	}
	for _, c := range ix.clusters {
		st.ClusterSizes = append(st.ClusterSizes, len(c.members))
	}
	return st
}

func compareCandidates(a, b Candidate) int {
	return cmp.Or(
		cmp.Compare(a.Distance, b.Distance),
		cmp.Compare(a.ChunkIndex, b.ChunkIndex),
		cmp.Compare(a.ChunkOffset, b.ChunkOffset),
	)
}

// topN sorts cs and keeps the first n.
func topN(cs []Candidate, n int) []Candidate {
	slices.SortFunc(cs, compareCandidates)
	if len(cs) > n {
		cs = cs[:n]
	}
	return cs
}

func sqDist(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
