package lpca

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// correctionFloor bounds every correction factor away from zero.
const correctionFloor = 1e-12

// corrector computes a cluster's correction scalar from its members and its
// freshly fitted model. Larger internal dispersion yields a larger scalar,
// which lowers the weight of that cluster's reconstruction error.
type corrector func(members *mat.Dense, m *LocalModel) float64

var correctors = map[CorrectionFactor]corrector{
	CorrectionOff:           func(*mat.Dense, *LocalModel) float64 { return 1 },
	CorrectionCRange:        rangeCorrection,
	CorrectionUncorrelation: uncorrelationCorrection,
	CorrectionLocalVariance: localVarianceCorrection,
	CorrectionPHCMulti:      phcCorrection,
	CorrectionLocalSkewness: skewnessCorrection,
}

// correctionFor evaluates cf on the cluster and applies the floor.
func correctionFor(cf CorrectionFactor, members *mat.Dense, m *LocalModel) float64 {
	fn, ok := correctors[cf]
	if !ok {
		return 1
	}
	c := fn(members, m)
	if math.IsNaN(c) || c < correctionFloor {
		return correctionFloor
	}
	return c
}

// rangeCorrection is the mean per-variable range of the members.
func rangeCorrection(members *mat.Dense, _ *LocalModel) float64 {
	r, p := members.Dims()
	col := make([]float64, r)
	var sum float64
	for j := 0; j < p; j++ {
		mat.Col(col, j, members)
		sum += floats.Max(col) - floats.Min(col)
	}
	return sum / float64(p)
}

// uncorrelationCorrection is the mean variance along the discarded
// directions, i.e. the residual variance per dimension outside the subspace.
func uncorrelationCorrection(_ *mat.Dense, m *LocalModel) float64 {
	discarded := m.Spectrum[len(m.Eigenvalues):]
	if len(discarded) == 0 {
		return 1
	}
	return stat.Mean(discarded, nil)
}

// localVarianceCorrection is the mean per-variable variance of the members.
func localVarianceCorrection(_ *mat.Dense, m *LocalModel) float64 {
	return m.TotalVariance / float64(len(m.Spectrum))
}

// phcCorrection is the share of variance the local subspace leaves
// unexplained; it is recomputed every iteration from the current members.
func phcCorrection(_ *mat.Dense, m *LocalModel) float64 {
	return 1 - m.ExplainedVariance()
}

// skewnessCorrection is 1 plus the mean absolute skewness of the variables.
// Variables without spread contribute nothing, and so do clusters with fewer
// than three members.
func skewnessCorrection(members *mat.Dense, _ *LocalModel) float64 {
	r, p := members.Dims()
	if r < 3 {
		return 1
	}
	col := make([]float64, r)
	var sum float64
	for j := 0; j < p; j++ {
		mat.Col(col, j, members)
		if floats.Max(col) == floats.Min(col) {
			continue
		}
		if s := stat.Skew(col, nil); !math.IsNaN(s) && !math.IsInf(s, 0) {
			sum += math.Abs(s)
		}
	}
	return 1 + sum/float64(p)
}
