package lpca

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// squaredEuclidean returns the squared Euclidean distance between a and b.
// Spatial trees use it as the reduced distance: it orders points the same way
// as the true distance and skips the sqrt.
func squaredEuclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func euclidean(a, b []float64) float64 {
	return math.Sqrt(squaredEuclidean(a, b))
}

// nearestCentroid returns the index of the closest centroid to row and the
// squared distance to it. Ties go to the lowest index.
func nearestCentroid(row []float64, centroids [][]float64) (int, float64) {
	best := -1
	bestDist := math.Inf(1)
	for j, c := range centroids {
		if d := squaredEuclidean(row, c); d < bestDist {
			best = j
			bestDist = d
		}
	}
	return best, bestDist
}

// flatRows returns x as a flat row-major slice. The backing array is reused
// when x is not a strided view.
func flatRows(x *mat.Dense) []float64 {
	raw := x.RawMatrix()
	if raw.Stride == raw.Cols {
		return raw.Data[:raw.Rows*raw.Cols]
	}
	out := make([]float64, raw.Rows*raw.Cols)
	for i := 0; i < raw.Rows; i++ {
		copy(out[i*raw.Cols:], x.RawRowView(i))
	}
	return out
}
