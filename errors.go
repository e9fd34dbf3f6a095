package lpca

import "errors"

// Sentinel errors returned by the engine. Callers match them with errors.Is;
// returned errors wrap them with context via fmt.Errorf("...: %w", ...).
var (
	// ErrInvalidConfiguration is returned before any work is done when a
	// Config field is out of range or names an unknown method.
	ErrInvalidConfiguration = errors.New("lpca: invalid configuration")

	// ErrDimensionMismatch indicates rows of unequal length, or a matrix whose
	// column count does not match the fitted preprocessing or models.
	ErrDimensionMismatch = errors.New("lpca: dimension mismatch")

	// ErrNaNInf signals a NaN or ±Inf value in the input data.
	ErrNaNInf = errors.New("lpca: NaN or Inf in input")

	// ErrDegenerateCluster is returned by FitLocalModel when a cluster has
	// fewer than q+1 members. The engine recovers from it by re-seeding.
	ErrDegenerateCluster = errors.New("lpca: degenerate cluster")

	// ErrNonConvergence is returned only when Config.StrictConvergence is set
	// and the run stopped without converging.
	ErrNonConvergence = errors.New("lpca: clustering did not converge")

	// ErrInsufficientClusterSize is returned by the quality indices when a
	// cluster is too small or two centroids coincide.
	ErrInsufficientClusterSize = errors.New("lpca: insufficient cluster size")

	// ErrEigenFailed indicates the symmetric eigendecomposition of a local
	// covariance matrix did not succeed.
	ErrEigenFailed = errors.New("lpca: eigen decomposition failed")
)
