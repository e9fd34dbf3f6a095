package lpca

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// labelsEquivalent checks whether two labelings are equivalent up to a
// permutation of cluster IDs.
func labelsEquivalent(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}

	mapping := make(map[int]int)
	for i := range a {
		if mapped, ok := mapping[a[i]]; ok {
			if mapped != b[i] {
				return false
			}
		} else {
			mapping[a[i]] = b[i]
		}
	}

	// Check reverse mapping is injective
	reverse := make(map[int]int)
	for k, v := range mapping {
		if rk, ok := reverse[v]; ok && rk != k {
			return false
		}
		reverse[v] = k
	}
	return true
}

// requireValidLabels asserts len(labels) == n and every label is in [0, k).
func requireValidLabels(t *testing.T, labels []int, n, k int) {
	t.Helper()
	require.Len(t, labels, n)
	for i, l := range labels {
		require.GreaterOrEqualf(t, l, 0, "label of row %d", i)
		require.Lessf(t, l, k, "label of row %d", i)
	}
}

// twoPlanes returns 2*perPlane rows in 3D: the first perPlane lie on
// z = 0.2x - 0.1y and the rest on the parallel plane shifted by 8 in z.
// noise adds Gaussian jitter to z.
func twoPlanes(perPlane int, noise float64, seed int64) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(seed))
	data := make([][]float64, 0, 2*perPlane)
	truth := make([]int, 0, 2*perPlane)
	for c := 0; c < 2; c++ {
		for i := 0; i < perPlane; i++ {
			x := rng.Float64() * 10
			y := rng.Float64() * 10
			z := 0.2*x - 0.1*y + 8*float64(c) + noise*rng.NormFloat64()
			data = append(data, []float64{x, y, z})
			truth = append(truth, c)
		}
	}
	return data, truth
}

// interleavedPlanes returns 4*quarter rows on two parallel planes spread
// over [0, 100]² in x and y. Rows 0..2q-1 hold 3/4 of plane 0 and 1/4 of
// plane 1; the remaining rows hold the rest, so a uniform initial split is
// 75% correct.
func interleavedPlanes(quarter int, noise float64, seed int64) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(seed))
	row := func(c int) []float64 {
		x := rng.Float64() * 100
		y := rng.Float64() * 100
		return []float64{x, y, 0.2*x - 0.1*y + 8*float64(c) + noise*rng.NormFloat64()}
	}
	var data [][]float64
	var truth []int
	for _, c := range []int{0, 0, 0, 1, 0, 1, 1, 1} {
		for i := 0; i < quarter/2; i++ {
			data = append(data, row(c))
			truth = append(truth, c)
		}
	}
	return data, truth
}

// blobs returns k Gaussian blobs of perBlob rows in dims dimensions with
// centers spacing apart along every axis.
func blobs(k, perBlob, dims int, spacing, spread float64, seed int64) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(seed))
	var data [][]float64
	var truth []int
	for c := 0; c < k; c++ {
		for i := 0; i < perBlob; i++ {
			row := make([]float64, dims)
			for d := range row {
				row[d] = spacing*float64(c) + spread*rng.NormFloat64()
			}
			data = append(data, row)
			truth = append(truth, c)
		}
	}
	return data, truth
}

func toDense(data [][]float64) *mat.Dense {
	x := mat.NewDense(len(data), len(data[0]), nil)
	for i, row := range data {
		x.SetRow(i, row)
	}
	return x
}

func randomFlat(n, dims int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	data := make([]float64, n*dims)
	for i := range data {
		data[i] = rng.Float64() * 100
	}
	return data
}
