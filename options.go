package lpca

import "fmt"

// CenteringMethod selects the column centering statistic.
type CenteringMethod string

const (
	CenteringMean CenteringMethod = "mean"
	CenteringMin  CenteringMethod = "min"
	CenteringNone CenteringMethod = "none"
)

// ScalingMethod selects the column scaling statistic.
type ScalingMethod string

const (
	ScalingAuto   ScalingMethod = "auto"   // standard deviation
	ScalingPareto ScalingMethod = "pareto" // square root of the standard deviation
	ScalingRange  ScalingMethod = "range"  // max - min
	ScalingVast   ScalingMethod = "vast"   // variance / mean
	ScalingLevel  ScalingMethod = "level"  // mean
	ScalingMax    ScalingMethod = "max"
	ScalingNone   ScalingMethod = "none"
)

// InitMethod selects the strategy that produces the initial partition.
type InitMethod string

const (
	InitRandom       InitMethod = "random"
	InitObservations InitMethod = "observations"
	InitKMeans       InitMethod = "kmeans"
	InitUniform      InitMethod = "uniform"
	InitPKCIA        InitMethod = "pkcia"
)

// CorrectionFactor selects how each cluster's reconstruction error is
// normalized during reclassification.
type CorrectionFactor string

const (
	CorrectionOff           CorrectionFactor = "off"
	CorrectionCRange        CorrectionFactor = "c_range"
	CorrectionUncorrelation CorrectionFactor = "uncorrelation"
	CorrectionLocalVariance CorrectionFactor = "local_variance"
	CorrectionPHCMulti      CorrectionFactor = "phc_multi"
	CorrectionLocalSkewness CorrectionFactor = "local_skewness"
)

// NeighborAlgorithm selects the nearest-neighbor index used by the kNN
// post-processor.
type NeighborAlgorithm string

const (
	NeighborAuto     NeighborAlgorithm = "auto"
	NeighborBrute    NeighborAlgorithm = "brute"
	NeighborKDTree   NeighborAlgorithm = "kdtree"
	NeighborBallTree NeighborAlgorithm = "balltree"
)

// kdTreeMaxDims is the dimensionality above which auto selection prefers a
// ball tree over a KD-tree.
const kdTreeMaxDims = 60

func (m CenteringMethod) valid() bool {
	switch m {
	case CenteringMean, CenteringMin, CenteringNone:
		return true
	}
	return false
}

func (m ScalingMethod) valid() bool {
	switch m {
	case ScalingAuto, ScalingPareto, ScalingRange, ScalingVast, ScalingLevel, ScalingMax, ScalingNone:
		return true
	}
	return false
}

func (m InitMethod) valid() bool {
	switch m {
	case InitRandom, InitObservations, InitKMeans, InitUniform, InitPKCIA:
		return true
	}
	return false
}

func (c CorrectionFactor) valid() bool {
	_, ok := correctors[c]
	return ok
}

func (a NeighborAlgorithm) valid() bool {
	switch a {
	case NeighborAuto, NeighborBrute, NeighborKDTree, NeighborBallTree:
		return true
	}
	return false
}

// selectNeighborAlgorithm resolves NeighborAuto into a concrete index based on
// the data dimensionality.
func selectNeighborAlgorithm(algo NeighborAlgorithm, n, dims int) (NeighborAlgorithm, error) {
	if !algo.valid() {
		return "", fmt.Errorf("%w: unknown NeighborAlgorithm %q", ErrInvalidConfiguration, algo)
	}
	if algo != NeighborAuto {
		return algo, nil
	}
	if n <= 1 {
		return NeighborBrute, nil
	}
	if dims <= kdTreeMaxDims {
		return NeighborKDTree, nil
	}
	return NeighborBallTree, nil
}
