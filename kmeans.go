package lpca

import (
	"math"
	"math/rand"
	"slices"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const defaultKMeansIterations = 100

// kMeans runs Lloyd's algorithm on the rows of x with k centroids seeded by
// k-means++. It returns the final assignment and the total squared distance
// of the rows to their centroids. A centroid that loses all of its rows is
// moved onto the row farthest from its own centroid. Every cluster in the
// returned assignment is non-empty.
func kMeans(x *mat.Dense, k, maxIter int, rng *rand.Rand) ([]int, float64) {
	n, p := x.Dims()
	centroids := kMeansPPSeeds(x, k, rng)

	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}
	dists := make([]float64, n)
	counts := make([]int, k)

	for iter := 0; iter < maxIter; iter++ {
		changed := false

		// Assignment step
		for i := 0; i < n; i++ {
			best, d := nearestCentroid(x.RawRowView(i), centroids)
			dists[i] = d
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}

		// Update step
		for j := range centroids {
			clear(centroids[j])
			counts[j] = 0
		}
		for i, l := range labels {
			row := x.RawRowView(i)
			for d := 0; d < p; d++ {
				centroids[l][d] += row[d]
			}
			counts[l]++
		}
		for j := range centroids {
			if counts[j] == 0 {
				far := farthestRow(dists, labels, counts)
				copy(centroids[j], x.RawRowView(far))
				continue
			}
			scale := 1 / float64(counts[j])
			for d := range centroids[j] {
				centroids[j][d] *= scale
			}
		}
	}

	var total float64
	for i := range labels {
		labels[i], dists[i] = nearestCentroid(x.RawRowView(i), centroids)
		total += dists[i]
	}
	if countEmpty(labels, k) > 0 {
		fillEmptyClusters(labels, k, rowsByDistanceDesc(dists))
	}
	return labels, total
}

// kMeansPPSeeds picks k rows as initial centroids: the first uniformly, each
// next one with probability proportional to its squared distance from the
// nearest centroid chosen so far.
func kMeansPPSeeds(x *mat.Dense, k int, rng *rand.Rand) [][]float64 {
	n, _ := x.Dims()
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, slices.Clone(x.RawRowView(rng.Intn(n))))

	d2 := make([]float64, n)
	for i := range d2 {
		d2[i] = squaredEuclidean(x.RawRowView(i), centroids[0])
	}
	for len(centroids) < k {
		next := -1
		if sum := floats.Sum(d2); sum > 0 {
			r := rng.Float64() * sum
			for i, d := range d2 {
				if d == 0 {
					continue
				}
				next = i
				if r -= d; r < 0 {
					break
				}
			}
		} else {
			// Every row sits on a centroid already.
			next = rng.Intn(n)
		}
		c := slices.Clone(x.RawRowView(next))
		centroids = append(centroids, c)
		for i := range d2 {
			d2[i] = math.Min(d2[i], squaredEuclidean(x.RawRowView(i), c))
		}
	}
	return centroids
}

// farthestRow returns the row with the largest distance to its centroid among
// rows whose cluster has more than one member.
func farthestRow(dists []float64, labels, counts []int) int {
	best := 0
	bestDist := -1.0
	for i, d := range dists {
		if counts[labels[i]] > 1 && d > bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

// rowsByDistanceDesc returns row indices ordered by decreasing distance,
// ties by index.
func rowsByDistanceDesc(dists []float64) []int {
	order := make([]int, len(dists))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return dists[order[a]] > dists[order[b]]
	})
	return order
}
