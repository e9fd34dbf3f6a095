package lpca

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// EvaluatePHC computes the Principal Homogeneity Criterion of every cluster
// id in [0, max label]. PHC is the fraction of a cluster's variance captured
// by its own top-q principal directions: 1 for a cluster lying exactly on a
// q-dimensional affine subspace, lower for less homogeneous clusters. Clusters
// with fewer than two members score 1. The second slice holds the mean
// per-variable population standard deviation of each cluster. Cluster ids
// without members get NaN in both slices.
func EvaluatePHC(x mat.Matrix, labels []int, q int) ([]float64, []float64, error) {
	xd := mat.DenseCopyOf(x)
	n, p := xd.Dims()
	k, err := checkLabels(labels, n)
	if err != nil {
		return nil, nil, err
	}
	if q < 1 || q > p {
		return nil, nil, fmt.Errorf("%w: NumEigenvectors must be in [1, %d], got %d", ErrInvalidConfiguration, p, q)
	}

	phc := make([]float64, k)
	deviations := make([]float64, k)
	for j, rows := range membersOf(labels, k) {
		switch len(rows) {
		case 0:
			phc[j], deviations[j] = math.NaN(), math.NaN()
			continue
		case 1:
			phc[j], deviations[j] = 1, 0
			continue
		}
		members := gatherRows(xd, rows)
		m, err := fitMembers(members, q)
		if err != nil {
			return nil, nil, fmt.Errorf("cluster %d: %w", j, err)
		}
		phc[j] = m.ExplainedVariance()

		col := make([]float64, len(rows))
		var sum float64
		for c := 0; c < p; c++ {
			mat.Col(col, c, members)
			sum += stat.PopStdDev(col, nil)
		}
		deviations[j] = sum / float64(p)
	}
	return phc, deviations, nil
}

// DaviesBouldin returns the Davies–Bouldin index of the partition over its
// non-empty clusters: the mean over clusters of the worst ratio
// (S_i + S_j) / M_ij, where S is the mean member distance to the centroid and
// M the distance between centroids. Lower is better; 0 means every cluster
// collapses onto its centroid.
func DaviesBouldin(x mat.Matrix, labels []int) (float64, error) {
	xd := mat.DenseCopyOf(x)
	n, p := xd.Dims()
	k, err := checkLabels(labels, n)
	if err != nil {
		return 0, err
	}

	var (
		centroids [][]float64
		scatter   []float64
	)
	for j, rows := range membersOf(labels, k) {
		if len(rows) == 0 {
			continue
		}
		if len(rows) < 2 {
			return 0, fmt.Errorf("%w: cluster %d has a single member", ErrInsufficientClusterSize, j)
		}
		c := make([]float64, p)
		for _, i := range rows {
			floats.Add(c, xd.RawRowView(i))
		}
		floats.Scale(1/float64(len(rows)), c)

		var s float64
		for _, i := range rows {
			s += floats.Distance(xd.RawRowView(i), c, 2)
		}
		centroids = append(centroids, c)
		scatter = append(scatter, s/float64(len(rows)))
	}
	if len(centroids) < 2 {
		return 0, fmt.Errorf("%w: need at least 2 non-empty clusters, got %d", ErrInsufficientClusterSize, len(centroids))
	}

	var db float64
	for i := range centroids {
		worst := 0.0
		for j := range centroids {
			if i == j {
				continue
			}
			sep := floats.Distance(centroids[i], centroids[j], 2)
			if sep == 0 {
				return 0, fmt.Errorf("%w: coincident centroids", ErrInsufficientClusterSize)
			}
			worst = math.Max(worst, (scatter[i]+scatter[j])/sep)
		}
		db += worst
	}
	return db / float64(len(centroids)), nil
}

// checkLabels validates a label vector against n rows and returns the
// number of cluster ids it spans.
func checkLabels(labels []int, n int) (int, error) {
	if len(labels) != n {
		return 0, fmt.Errorf("%w: %d labels for %d rows", ErrDimensionMismatch, len(labels), n)
	}
	k := 0
	for i, l := range labels {
		if l < 0 {
			return 0, fmt.Errorf("%w: negative label %d at row %d", ErrInvalidConfiguration, l, i)
		}
		k = max(k, l+1)
	}
	return k, nil
}
