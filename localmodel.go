package lpca

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// LocalModel is the linear model of one cluster: its centroid and the top-q
// principal directions of its members.
type LocalModel struct {
	// Centroid is the arithmetic mean of the member rows (length p).
	Centroid []float64

	// Basis holds the retained eigenvectors as orthonormal columns (p×q).
	Basis *mat.Dense

	// Eigenvalues are the q retained eigenvalues, descending.
	Eigenvalues []float64

	// Spectrum holds all p eigenvalues of the member covariance, descending
	// and clamped at zero.
	Spectrum []float64

	// TotalVariance is the trace of the member covariance.
	TotalVariance float64

	// Size is the number of member rows the model was fitted on.
	Size int

	// Correction divides this cluster's reconstruction error during
	// reclassification. It is 1 when no correction factor is configured.
	Correction float64
}

// FitLocalModel fits a local model to the rows of x listed in rows, retaining
// q principal directions. It returns ErrDegenerateCluster when fewer than q+1
// rows are given.
func FitLocalModel(x *mat.Dense, rows []int, q int) (*LocalModel, error) {
	return fitCluster(x, rows, q, CorrectionOff)
}

// fitCluster fits a local model and evaluates the configured correction
// factor on the same members.
func fitCluster(x *mat.Dense, rows []int, q int, cf CorrectionFactor) (*LocalModel, error) {
	_, p := x.Dims()
	if q < 1 || q > p {
		return nil, fmt.Errorf("%w: NumEigenvectors must be in [1, %d], got %d", ErrInvalidConfiguration, p, q)
	}
	if len(rows) < q+1 {
		return nil, fmt.Errorf("%w: %d members, need at least %d", ErrDegenerateCluster, len(rows), q+1)
	}
	members := gatherRows(x, rows)
	m, err := fitMembers(members, q)
	if err != nil {
		return nil, err
	}
	m.Correction = correctionFor(cf, members, m)
	return m, nil
}

// gatherRows copies the listed rows of x into a new matrix.
func gatherRows(x *mat.Dense, rows []int) *mat.Dense {
	_, p := x.Dims()
	out := mat.NewDense(len(rows), p, nil)
	for i, r := range rows {
		copy(out.RawRowView(i), x.RawRowView(r))
	}
	return out
}

// fitMembers computes the centroid and eigen decomposition of the sample
// covariance of members. members must have at least two rows.
func fitMembers(members *mat.Dense, q int) (*LocalModel, error) {
	n, p := members.Dims()

	centroid := make([]float64, p)
	col := make([]float64, n)
	for j := 0; j < p; j++ {
		mat.Col(col, j, members)
		centroid[j] = stat.Mean(col, nil)
	}

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, members, nil)

	var eig mat.EigenSym
	if ok := eig.Factorize(&cov, true); !ok {
		return nil, fmt.Errorf("%w: %d×%d covariance of %d members", ErrEigenFailed, p, p, n)
	}
	values := eig.Values(nil) // ascending
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	// Descending by eigenvalue; the stable sort keeps the original
	// eigenvector order for ties.
	order := make([]int, p)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]] > values[order[b]]
	})

	spectrum := make([]float64, p)
	var total float64
	for i, idx := range order {
		spectrum[i] = math.Max(values[idx], 0)
		total += spectrum[i]
	}

	basis := mat.NewDense(p, q, nil)
	v := make([]float64, p)
	for c := 0; c < q; c++ {
		mat.Col(v, order[c], &vectors)
		orientVector(v)
		basis.SetCol(c, v)
	}

	return &LocalModel{
		Centroid:      centroid,
		Basis:         basis,
		Eigenvalues:   spectrum[:q:q],
		Spectrum:      spectrum,
		TotalVariance: total,
		Size:          n,
		Correction:    1,
	}, nil
}

// orientVector flips v so that its largest-magnitude component is positive,
// which makes fitted bases reproducible across runs.
func orientVector(v []float64) {
	maxIdx := 0
	for i := range v {
		if math.Abs(v[i]) > math.Abs(v[maxIdx]) {
			maxIdx = i
		}
	}
	if v[maxIdx] < 0 {
		for i := range v {
			v[i] = -v[i]
		}
	}
}

// Dims returns the number of variables p and retained directions q.
func (m *LocalModel) Dims() (p, q int) {
	return m.Basis.Dims()
}

// ReconstructionError returns the squared norm of the part of row - Centroid
// that lies outside the span of Basis.
func (m *LocalModel) ReconstructionError(row []float64) float64 {
	p, q := m.Dims()
	return m.reconstructionError(row, make([]float64, p), make([]float64, q))
}

// reconstructionError is ReconstructionError with caller-owned scratch
// buffers of length p and q.
func (m *LocalModel) reconstructionError(row, resid, scores []float64) float64 {
	raw := m.Basis.RawMatrix()
	p, q, stride := raw.Rows, raw.Cols, raw.Stride

	for j := 0; j < p; j++ {
		resid[j] = row[j] - m.Centroid[j]
	}
	for c := 0; c < q; c++ {
		scores[c] = 0
	}
	for j := 0; j < p; j++ {
		b := raw.Data[j*stride : j*stride+q]
		for c, bc := range b {
			scores[c] += bc * resid[j]
		}
	}
	var sum float64
	for j := 0; j < p; j++ {
		b := raw.Data[j*stride : j*stride+q]
		e := resid[j]
		for c, bc := range b {
			e -= bc * scores[c]
		}
		sum += e * e
	}
	return sum
}

// ExplainedVariance returns the fraction of the cluster's variance captured
// by the retained directions, in [0, 1]. A cluster with no variance is fully
// explained.
func (m *LocalModel) ExplainedVariance() float64 {
	if m.TotalVariance <= 0 {
		return 1
	}
	var kept float64
	for _, v := range m.Eigenvalues {
		kept += v
	}
	return math.Min(kept/m.TotalVariance, 1)
}
