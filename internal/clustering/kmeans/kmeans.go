// Package kmeans implements ports.Clusterer: a cosine-k-means adapter over
// gonum vectors, deterministically seeded and with a distance-based
// outlier rule. No Go equivalent of BERTopic/HDBSCAN/UMAP exists anywhere
// in the retrieved corpus (see DESIGN.md's grounding search), so the
// clustering routine is modeled as a port with this one concrete,
// from-scratch adapter.
package kmeans

import (
	"context"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"

	"ckexporter/internal/ports"
)

// Clusterer implements ports.Clusterer with cosine-distance k-means.
type Clusterer struct {
	// MaxIterations bounds Lloyd's algorithm; 0 uses the default of 25.
	MaxIterations int
	// OutlierCosineFloor is the minimum cosine similarity to a point's
	// assigned centroid below which the point is relocated to cluster -1;
	// 0 uses the default of 0.15.
	OutlierCosineFloor float64
}

// Cluster implements ports.Clusterer.
func (c Clusterer) Cluster(ctx context.Context, embeddings [][]float32, targetClusters int) (ports.ClusterResult, error) {
	n := len(embeddings)
	if n == 0 {
		return ports.ClusterResult{Labels: nil, Keywords: map[int][]string{}}, nil
	}
	k := targetClusters
	if k <= 0 {
		k = 1
	}
	if k > n {
		k = n
	}

	maxIter := c.MaxIterations
	if maxIter <= 0 {
		maxIter = 25
	}
	floor := c.OutlierCosineFloor
	if floor <= 0 {
		floor = 0.15
	}

	data := make([][]float64, n)
	for i, e := range embeddings {
		data[i] = toFloat64(e)
	}

	centroids := seedCentroids(data, k)
	labels := make([]int, n)

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, v := range data {
			best, bestSim := 0, -2.0
			for c, centroid := range centroids {
				sim := cosine(v, centroid)
				if sim > bestSim {
					best, bestSim = c, sim
				}
			}
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}
		centroids = recomputeCentroids(data, labels, k)
		if !changed {
			break
		}
	}

	relocateOutliers(data, labels, centroids, floor)

	keywords := map[int][]string{}
	for _, l := range labels {
		if l == -1 {
			continue
		}
		if _, ok := keywords[l]; !ok {
			keywords[l] = nil
		}
	}

	return ports.ClusterResult{Labels: labels, Keywords: keywords}, nil
}

// seedCentroids picks the first k distinct (by exact content) documents in
// input order, a deterministic alternative to k-means++'s random seeding.
func seedCentroids(data [][]float64, k int) [][]float64 {
	seen := map[string]bool{}
	var out [][]float64
	for _, v := range data {
		key := vectorKey(v)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, append([]float64(nil), v...))
		if len(out) == k {
			return out
		}
	}
	for len(out) < k && len(data) > 0 {
		out = append(out, append([]float64(nil), data[len(out)%len(data)]...))
	}
	return out
}

func vectorKey(v []float64) string {
	var b strings.Builder
	for _, x := range v {
		fmt.Fprintf(&b, "%.6f,", x)
	}
	return b.String()
}

func recomputeCentroids(data [][]float64, labels []int, k int) [][]float64 {
	dims := 0
	if len(data) > 0 {
		dims = len(data[0])
	}
	sums := make([][]float64, k)
	counts := make([]int, k)
	for i := range sums {
		sums[i] = make([]float64, dims)
	}
	for i, v := range data {
		l := labels[i]
		floats.Add(sums[l], v)
		counts[l]++
	}
	for i := range sums {
		if counts[i] > 0 {
			floats.Scale(1/float64(counts[i]), sums[i])
		}
	}
	return sums
}

// relocateOutliers moves any point whose cosine similarity to its own
// cluster's centroid falls below floor into cluster -1 (spec §4.7's
// "routine may relocate outliers").
func relocateOutliers(data [][]float64, labels []int, centroids [][]float64, floor float64) {
	for i, v := range data {
		l := labels[i]
		if l < 0 || l >= len(centroids) {
			continue
		}
		if cosine(v, centroids[l]) < floor {
			labels[i] = -1
		}
	}
}

func cosine(a, b []float64) float64 {
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
