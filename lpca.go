package lpca

import (
	"errors"
	"fmt"
	"math"
	"runtime"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

// Config controls LPCA clustering behavior.
// Start with [DefaultConfig] and override the fields you need; a zero
// Config leaves Center and Scale off.
type Config struct {
	// Center enables column centering with CenteringMethod. Default: true.
	Center bool

	// CenteringMethod is the statistic subtracted from every column.
	// Ignored when Center is false. Default: "mean".
	CenteringMethod CenteringMethod

	// Scale enables column scaling with ScalingMethod. Default: true.
	Scale bool

	// ScalingMethod is the statistic every centered column is divided by.
	// Ignored when Scale is false. Default: "auto" (standard deviation).
	ScalingMethod ScalingMethod

	// InitializationMethod chooses how the first partition is built.
	// Default: "uniform".
	InitializationMethod InitMethod

	// NumClusters is the number of clusters k. Must be >= 1. Default: 2.
	NumClusters int

	// NumEigenvectors is the dimension q of every local subspace.
	// Must be in [1, number of variables]. Default: 1.
	NumEigenvectors int

	// CorrectionFactor normalizes each cluster's reconstruction error
	// during reclassification. Default: "off".
	CorrectionFactor CorrectionFactor

	// KNNPost enables the kNN smoothing pass on the converged labels.
	// Default: false.
	KNNPost bool

	// NeighborsNumber is the number of neighbors that vote in the kNN
	// pass. Must be >= 1 when KNNPost is set. Default: 10.
	NeighborsNumber int

	// KNNPasses is the number of smoothing passes. Default: 1.
	KNNPasses int

	// NeighborAlgorithm selects the nearest-neighbor index for the kNN
	// pass. "auto" uses a KD-tree up to 60 dimensions and a ball tree
	// above. Default: "auto".
	NeighborAlgorithm NeighborAlgorithm

	// LeafSize is the maximum number of points in a spatial tree leaf.
	// Default: 40.
	LeafSize int

	// EvaluateClustering computes PHC and the Davies–Bouldin index of the
	// final partition into Result.Quality. Default: false.
	EvaluateClustering bool

	// MaxIterations caps the fit/reclassify passes. Default: 500.
	MaxIterations int

	// ConvergenceTolerance is the fraction of rows allowed to change label
	// in a pass that still counts as converged. Must be in [0, 1).
	// Default: 0 (the partition must repeat exactly).
	ConvergenceTolerance float64

	// StrictConvergence turns a run that stops without converging into an
	// ErrNonConvergence error. The partial Result is still returned.
	StrictConvergence bool

	// MaxReseeds is the number of consecutive iterations in which clusters
	// may be re-seeded before the run is declared degenerate. Default: 25.
	MaxReseeds int

	// KMeansIterations caps Lloyd's iterations of the "kmeans"
	// initializer. Default: 100.
	KMeansIterations int

	// ScaleFloor replaces scale factors of smaller magnitude.
	// Must be > 0. Default: 1e-12.
	ScaleFloor float64

	// Seed drives the random, observations and kmeans initializers.
	Seed int64

	// Workers controls the number of goroutines for per-cluster fits,
	// reclassification and neighbor queries. 0 means runtime.NumCPU().
	Workers int

	// Logger receives iteration progress. The zero value discards
	// everything.
	Logger zerolog.Logger
}

// Quality holds the clustering quality indices of the final partition.
type Quality struct {
	// PHC is the Principal Homogeneity Criterion per cluster; see EvaluatePHC.
	PHC []float64

	// PHCDeviations is the mean per-variable standard deviation per cluster.
	PHCDeviations []float64

	// MeanPHC averages PHC over non-empty clusters.
	MeanPHC float64

	// DaviesBouldin is the Davies–Bouldin index, or NaN when it could not be
	// computed; DaviesBouldinErr then holds the reason.
	DaviesBouldin    float64
	DaviesBouldinErr error
}

// Result contains the output of LPCA clustering.
type Result struct {
	// Labels assigns each row to a cluster in [0, NumClusters).
	Labels []int

	// Status reports whether the iterations converged.
	Status Status

	// Iterations is the number of fit/reclassify passes run.
	Iterations int

	// Reseeds counts the clusters re-seeded because they fell below
	// NumEigenvectors+1 members.
	Reseeds int

	// History is the total reconstruction error of each pass.
	History []float64

	// Model classifies new observations with the fitted preprocessing and
	// local models. Nil for empty input.
	Model *Model

	// Quality is set when Config.EvaluateClustering is true.
	Quality *Quality
}

const (
	defaultNumClusters     = 2
	defaultNumEigenvectors = 1
	defaultNeighbors       = 10
	defaultMaxIterations   = 500
	defaultMaxReseeds      = 25
	defaultScaleFloor      = 1e-12
)

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		Center:               true,
		CenteringMethod:      CenteringMean,
		Scale:                true,
		ScalingMethod:        ScalingAuto,
		InitializationMethod: InitUniform,
		NumClusters:          defaultNumClusters,
		NumEigenvectors:      defaultNumEigenvectors,
		CorrectionFactor:     CorrectionOff,
		NeighborsNumber:      defaultNeighbors,
		KNNPasses:            1,
		NeighborAlgorithm:    NeighborAuto,
		LeafSize:             defaultLeafSize,
		MaxIterations:        defaultMaxIterations,
		MaxReseeds:           defaultMaxReseeds,
		KMeansIterations:     defaultKMeansIterations,
		ScaleFloor:           defaultScaleFloor,
	}
}

// applyDefaults fills in zero-valued config fields with their defaults.
// NumClusters and NumEigenvectors have no zero default; 0 is rejected.
func applyDefaults(cfg *Config) {
	if cfg.CenteringMethod == "" {
		cfg.CenteringMethod = CenteringMean
	}
	if !cfg.Center {
		cfg.CenteringMethod = CenteringNone
	}
	if cfg.ScalingMethod == "" {
		cfg.ScalingMethod = ScalingAuto
	}
	if !cfg.Scale {
		cfg.ScalingMethod = ScalingNone
	}
	if cfg.InitializationMethod == "" {
		cfg.InitializationMethod = InitUniform
	}
	if cfg.CorrectionFactor == "" {
		cfg.CorrectionFactor = CorrectionOff
	}
	if cfg.NeighborsNumber == 0 {
		cfg.NeighborsNumber = defaultNeighbors
	}
	if cfg.KNNPasses == 0 {
		cfg.KNNPasses = 1
	}
	if cfg.NeighborAlgorithm == "" {
		cfg.NeighborAlgorithm = NeighborAuto
	}
	if cfg.LeafSize == 0 {
		cfg.LeafSize = defaultLeafSize
	}
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = defaultMaxIterations
	}
	if cfg.MaxReseeds == 0 {
		cfg.MaxReseeds = defaultMaxReseeds
	}
	if cfg.KMeansIterations == 0 {
		cfg.KMeansIterations = defaultKMeansIterations
	}
	if cfg.ScaleFloor == 0 {
		cfg.ScaleFloor = defaultScaleFloor
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
}

// validateConfig checks every field against the data shape (n rows, p
// columns) and reports all problems at once.
func validateConfig(cfg *Config, n, p int) error {
	var result *multierror.Error
	invalid := func(format string, args ...any) {
		result = multierror.Append(result, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfiguration}, args...)...))
	}

	if !cfg.CenteringMethod.valid() {
		invalid("unknown CenteringMethod %q", cfg.CenteringMethod)
	}
	if !cfg.ScalingMethod.valid() {
		invalid("unknown ScalingMethod %q", cfg.ScalingMethod)
	}
	if !cfg.InitializationMethod.valid() {
		invalid("unknown InitializationMethod %q", cfg.InitializationMethod)
	}
	if !cfg.CorrectionFactor.valid() {
		invalid("unknown CorrectionFactor %q", cfg.CorrectionFactor)
	}
	if !cfg.NeighborAlgorithm.valid() {
		invalid("unknown NeighborAlgorithm %q", cfg.NeighborAlgorithm)
	}
	if cfg.NumClusters < 1 {
		invalid("NumClusters must be >= 1, got %d", cfg.NumClusters)
	}
	if cfg.NumEigenvectors < 1 {
		invalid("NumEigenvectors must be >= 1, got %d", cfg.NumEigenvectors)
	} else if p > 0 && cfg.NumEigenvectors > p {
		invalid("NumEigenvectors must be <= %d variables, got %d", p, cfg.NumEigenvectors)
	}
	if n > 0 && cfg.NumClusters >= 1 && cfg.NumEigenvectors >= 1 {
		if need := cfg.NumClusters * (cfg.NumEigenvectors + 1); n < need {
			invalid("%d observations cannot fill %d clusters of at least %d members", n, cfg.NumClusters, cfg.NumEigenvectors+1)
		}
	}
	if cfg.KNNPost && cfg.NeighborsNumber < 1 {
		invalid("NeighborsNumber must be >= 1, got %d", cfg.NeighborsNumber)
	}
	if cfg.KNNPasses < 1 {
		invalid("KNNPasses must be >= 1, got %d", cfg.KNNPasses)
	}
	if cfg.LeafSize < 1 {
		invalid("LeafSize must be >= 1, got %d", cfg.LeafSize)
	}
	if cfg.MaxIterations < 1 {
		invalid("MaxIterations must be >= 1, got %d", cfg.MaxIterations)
	}
	if !(cfg.ConvergenceTolerance >= 0 && cfg.ConvergenceTolerance < 1) {
		invalid("ConvergenceTolerance must be in [0, 1), got %g", cfg.ConvergenceTolerance)
	}
	if cfg.MaxReseeds < 1 {
		invalid("MaxReseeds must be >= 1, got %d", cfg.MaxReseeds)
	}
	if cfg.KMeansIterations < 1 {
		invalid("KMeansIterations must be >= 1, got %d", cfg.KMeansIterations)
	}
	if !(cfg.ScaleFloor > 0) {
		invalid("ScaleFloor must be > 0, got %g", cfg.ScaleFloor)
	}
	if cfg.Workers < 0 {
		invalid("Workers must be >= 0, got %d", cfg.Workers)
	}
	return result.ErrorOrNil()
}

// Cluster performs LPCA clustering on the given data.
// Each element is an observation; all observations must have the same
// number of variables. data is not modified.
func Cluster(data [][]float64, cfg Config) (*Result, error) {
	if len(data) == 0 {
		return clusterDense(nil, cfg)
	}
	p := len(data[0])
	flat := make([]float64, 0, len(data)*p)
	for i, row := range data {
		if len(row) != p {
			return nil, fmt.Errorf("%w: row %d has %d values, row 0 has %d", ErrDimensionMismatch, i, len(row), p)
		}
		flat = append(flat, row...)
	}
	if p == 0 {
		return nil, fmt.Errorf("%w: observations have no variables", ErrDimensionMismatch)
	}
	return clusterDense(mat.NewDense(len(data), p, flat), cfg)
}

// ClusterMatrix is Cluster for data already held in a gonum matrix, one
// observation per row. x is copied and not modified.
func ClusterMatrix(x mat.Matrix, cfg Config) (*Result, error) {
	return clusterDense(mat.DenseCopyOf(x), cfg)
}

// clusterDense runs the pipeline on x, which it owns. A nil x is empty input.
func clusterDense(x *mat.Dense, cfg Config) (*Result, error) {
	applyDefaults(&cfg)
	n, p := 0, 0
	if x != nil {
		n, p = x.Dims()
	}
	if err := validateConfig(&cfg, n, p); err != nil {
		return nil, err
	}
	if n == 0 {
		return &Result{Labels: []int{}, Status: StatusConverged}, nil
	}
	if err := checkFinite(x); err != nil {
		return nil, err
	}
	log := cfg.Logger

	pre, err := FitPreprocessing(x, cfg.CenteringMethod, cfg.ScalingMethod, cfg.ScaleFloor)
	if err != nil {
		return nil, err
	}
	if len(pre.LowVariance) > 0 {
		log.Warn().Ints("columns", pre.LowVariance).Float64("floor", cfg.ScaleFloor).Msg("scale factor below floor")
	}
	xt, err := pre.Transform(x)
	if err != nil {
		return nil, err
	}

	initializer, err := newInitializer(cfg)
	if err != nil {
		return nil, err
	}
	initial, err := initializer.InitialPartition(xt, cfg.NumClusters)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("method", string(cfg.InitializationMethod)).Ints("sizes", clusterSizes(initial, cfg.NumClusters)).Msg("initial partition")

	out, err := newController(xt, cfg).run(initial)
	if err != nil {
		return nil, err
	}

	labels := out.labels
	if cfg.KNNPost {
		smoothed, err := KNNSmooth(xt, labels, cfg.NeighborsNumber, KNNOptions{
			Algorithm: cfg.NeighborAlgorithm,
			LeafSize:  cfg.LeafSize,
			Passes:    cfg.KNNPasses,
			Workers:   cfg.Workers,
		})
		if err != nil {
			return nil, err
		}
		log.Debug().Int("changed", countChanged(labels, smoothed)).Msg("kNN smoothing")
		labels = smoothed
	}

	res := &Result{
		Labels:     labels,
		Status:     out.status,
		Iterations: out.iterations,
		Reseeds:    out.reseeds,
		History:    out.history,
		Model: &Model{
			Preprocessing:    pre,
			Clusters:         out.models,
			CorrectionFactor: cfg.CorrectionFactor,
			workers:          cfg.Workers,
		},
	}

	if cfg.EvaluateClustering {
		q, err := evaluate(xt, labels, cfg.NumEigenvectors)
		if err != nil {
			return nil, err
		}
		res.Quality = q
	}

	if cfg.StrictConvergence && res.Status != StatusConverged {
		err := fmt.Errorf("%w: %s after %d iterations", ErrNonConvergence, res.Status, res.Iterations)
		if res.Status == StatusDegenerate {
			err = fmt.Errorf("%w (%w)", err, ErrDegenerateCluster)
		}
		return res, err
	}
	return res, nil
}

// evaluate computes the quality indices on the preprocessed data. A
// Davies–Bouldin failure is recorded rather than returned.
func evaluate(xt *mat.Dense, labels []int, q int) (*Quality, error) {
	phc, dev, err := EvaluatePHC(xt, labels, q)
	if err != nil {
		return nil, err
	}
	quality := &Quality{PHC: phc, PHCDeviations: dev}

	var sum float64
	var count int
	for _, v := range phc {
		if !math.IsNaN(v) {
			sum += v
			count++
		}
	}
	if count > 0 {
		quality.MeanPHC = sum / float64(count)
	}

	db, err := DaviesBouldin(xt, labels)
	switch {
	case errors.Is(err, ErrInsufficientClusterSize):
		quality.DaviesBouldin = math.NaN()
		quality.DaviesBouldinErr = err
	case err != nil:
		return nil, err
	default:
		quality.DaviesBouldin = db
	}
	return quality, nil
}

// checkFinite rejects matrices holding NaN or ±Inf.
func checkFinite(x *mat.Dense) error {
	n, _ := x.Dims()
	for i := 0; i < n; i++ {
		for j, v := range x.RawRowView(i) {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: row %d column %d", ErrNaNInf, i, j)
			}
		}
	}
	return nil
}
