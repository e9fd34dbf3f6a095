package lpca

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Model is a fitted LPCA clustering: the preprocessing learned from the
// training data and one local model per cluster.
type Model struct {
	Preprocessing    *Preprocessing
	Clusters         []*LocalModel
	CorrectionFactor CorrectionFactor

	workers int
}

// Classify assigns each observation to the cluster whose local model
// reconstructs it best after applying the training preprocessing.
func (m *Model) Classify(data [][]float64) ([]int, error) {
	if len(data) == 0 {
		return []int{}, nil
	}
	p := len(m.Preprocessing.Center)
	flat := make([]float64, 0, len(data)*p)
	for i, row := range data {
		if len(row) != p {
			return nil, fmt.Errorf("%w: row %d has %d values, model has %d", ErrDimensionMismatch, i, len(row), p)
		}
		flat = append(flat, row...)
	}
	return m.ClassifyMatrix(mat.NewDense(len(data), p, flat))
}

// ClassifyMatrix is Classify for observations held in the rows of y.
func (m *Model) ClassifyMatrix(y mat.Matrix) ([]int, error) {
	yd := mat.DenseCopyOf(y)
	if err := checkFinite(yd); err != nil {
		return nil, err
	}
	yt, err := m.Preprocessing.Transform(yd)
	if err != nil {
		return nil, err
	}
	return Reclassify(yt, m.Clusters, m.workers), nil
}

// NumClusters returns the number of local models.
func (m *Model) NumClusters() int { return len(m.Clusters) }
