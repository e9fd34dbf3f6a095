package lpca

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Reclassify assigns every row of x to the model with the smallest corrected
// reconstruction error (error divided by the model's Correction). Ties go to
// the lowest cluster index. The models are only read; rows are split across
// workers.
func Reclassify(x *mat.Dense, models []*LocalModel, workers int) []int {
	n, p := x.Dims()
	labels := make([]int, n)
	if len(models) == 0 {
		return labels
	}
	_, q := models[0].Dims()

	forEachRowRange(n, workers, func(start, end int) {
		resid := make([]float64, p)
		scores := make([]float64, q)
		for i := start; i < end; i++ {
			row := x.RawRowView(i)
			best := 0
			bestErr := math.Inf(1)
			for j, m := range models {
				e := m.reconstructionError(row, resid, scores) / m.Correction
				if e < bestErr {
					best = j
					bestErr = e
				}
			}
			labels[i] = best
		}
	})
	return labels
}

// ReconstructionErrors returns the n×k matrix of uncorrected reconstruction
// errors of every row of x under every model.
func ReconstructionErrors(x *mat.Dense, models []*LocalModel) *mat.Dense {
	n, p := x.Dims()
	out := mat.NewDense(n, len(models), nil)
	if len(models) == 0 {
		return out
	}
	_, q := models[0].Dims()
	resid := make([]float64, p)
	scores := make([]float64, q)
	for i := 0; i < n; i++ {
		row := x.RawRowView(i)
		for j, m := range models {
			out.Set(i, j, m.reconstructionError(row, resid, scores))
		}
	}
	return out
}

// totalReconstructionError sums the uncorrected error of every row under the
// model of the cluster it is assigned to.
func totalReconstructionError(x *mat.Dense, labels []int, models []*LocalModel, workers int) float64 {
	n, p := x.Dims()
	if n == 0 || len(models) == 0 {
		return 0
	}
	_, q := models[0].Dims()

	// One partial sum per row range keeps the total independent of
	// goroutine scheduling.
	rowsPerWorker := max((n+max(workers, 1)-1)/max(workers, 1), 1)
	partial := make([]float64, (n+rowsPerWorker-1)/rowsPerWorker)
	forEachRowRange(n, workers, func(start, end int) {
		resid := make([]float64, p)
		scores := make([]float64, q)
		var sum float64
		for i := start; i < end; i++ {
			sum += models[labels[i]].reconstructionError(x.RawRowView(i), resid, scores)
		}
		partial[start/rowsPerWorker] = sum
	})

	var total float64
	for _, s := range partial {
		total += s
	}
	return total
}
