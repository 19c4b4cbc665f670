package m4index

import (
	"math"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/sampleuv"
)

type cluster struct {
	centroid []float64
	members  []int // indices into Index.points
}

// buildClusters runs k-means over points. Initial centroids are distinct
// points drawn without replacement from a seeded source; a cluster that
// loses every member keeps its previous centroid.
func buildClusters(points featurePoints, p ClusterParams) []cluster {
	n := len(points)
	k := min(p.K, n)
	dim := len(points[0].vec)

	seeds := make([]int, k)
	sampleuv.WithoutReplacement(seeds, n, rand.NewPCG(p.Seed, p.Seed^0x9e3779b97f4a7c15))
	slices.Sort(seeds)

	centroids := make([][]float64, k)
	for i, s := range seeds {
		centroids[i] = slices.Clone(points[s].vec)
	}

	assign := make([]int, n)
	for i := range assign {
		assign[i] = -1
	}
	sums := make([][]float64, k)
	for i := range sums {
		sums[i] = make([]float64, dim)
	}
	counts := make([]int, k)

	for iter := 0; iter < p.Iterations; iter++ {
		if !assignAll(points, centroids, assign) && iter > 0 {
			break
		}
		for c := range sums {
			clear(sums[c])
			counts[c] = 0
		}
		for i, pt := range points {
			floats.Add(sums[assign[i]], pt.vec)
			counts[assign[i]]++
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			floats.Scale(1/float64(counts[c]), sums[c])
			copy(centroids[c], sums[c])
		}
	}
	// Membership always reflects the final centroids.
	assignAll(points, centroids, assign)

	clusters := make([]cluster, k)
	for c := range clusters {
		clusters[c].centroid = centroids[c]
	}
	for i, c := range assign {
		clusters[c].members = append(clusters[c].members, i)
	}
	return clusters
}

// assignAll moves every point to its nearest centroid and reports whether
// any assignment changed.
func assignAll(points featurePoints, centroids [][]float64, assign []int) bool {
	changed := false
	for i, pt := range points {
		best, bestDist := 0, math.Inf(1)
		for c, centroid := range centroids {
			if d := sqDist(pt.vec, centroid); d < bestDist {
				best, bestDist = c, d
			}
		}
		if assign[i] != best {
			assign[i] = best
			changed = true
		}
	}
	return changed
}

// queryClusters scans the members of every cluster whose centroid lies
// within the threshold. Neighbours in clusters just outside it are missed.
func (ix *Index) queryClusters(feature []float64, opts QueryOptions) []Candidate {
	limit := opts.limit()
	var out []Candidate
	for _, c := range ix.clusters {
		if math.Sqrt(sqDist(c.centroid, feature)) > limit {
			continue
		}
		for _, m := range c.members {
			p := ix.points[m]
			if d := math.Sqrt(sqDist(p.vec, feature)); d <= limit {
				out = append(out, p.candidate(d))
			}
		}
	}
	return topN(out, opts.MaxMatchCount)
}
