package m4index

import (
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// featurePoint is one indexed window. It satisfies kdtree.Comparable.
type featurePoint struct {
	vec    []float64
	chunk  int
	offset int
}

func (p featurePoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p.vec[d] - c.(featurePoint).vec[d]
}

func (p featurePoint) Dims() int { return len(p.vec) }

// Distance returns the squared Euclidean distance, as kdtree expects.
func (p featurePoint) Distance(c kdtree.Comparable) float64 {
	return sqDist(p.vec, c.(featurePoint).vec)
}

func (p featurePoint) candidate(dist float64) Candidate {
	return Candidate{Distance: dist, ChunkIndex: p.chunk, ChunkOffset: p.offset}
}

// featurePoints satisfies kdtree.Interface.
type featurePoints []featurePoint

func (p featurePoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p featurePoints) Len() int                              { return len(p) }
func (p featurePoints) Pivot(d kdtree.Dim) int                { return featurePlane{featurePoints: p, Dim: d}.Pivot() }
func (p featurePoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// featurePlane orders points along one dimension while the tree is built.
type featurePlane struct {
	kdtree.Dim
	featurePoints
}

func (p featurePlane) Less(i, j int) bool {
	return p.featurePoints[i].vec[p.Dim] < p.featurePoints[j].vec[p.Dim]
}
func (p featurePlane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p featurePlane) Slice(start, end int) kdtree.SortSlicer {
	p.featurePoints = p.featurePoints[start:end]
	return p
}
func (p featurePlane) Swap(i, j int) {
	p.featurePoints[i], p.featurePoints[j] = p.featurePoints[j], p.featurePoints[i]
}

// buildTree builds over a copy; kdtree.New reorders its input.
func buildTree(points featurePoints) *kdtree.Tree {
	return kdtree.New(append(featurePoints(nil), points...), false)
}

func (ix *Index) queryTree(feature []float64, opts QueryOptions) []Candidate {
	keep := kdtree.NewNKeeper(opts.MaxMatchCount)
	ix.tree.NearestSet(keep, featurePoint{vec: feature, chunk: -1, offset: -1})

	limit := opts.limit()
	out := make([]Candidate, 0, keep.Len())
	for _, cd := range keep.Heap {
		p, ok := cd.Comparable.(featurePoint)
		if !ok {
			continue
		}
		if d := math.Sqrt(cd.Dist); d <= limit {
			out = append(out, p.candidate(d))
		}
	}
	return topN(out, opts.MaxMatchCount)
}
