package lpca

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Preprocessing holds the column-wise center and scale factors fitted on a
// training matrix. The same factors are applied to any matrix classified
// later, so they are kept for the lifetime of a Model.
type Preprocessing struct {
	CenteringMethod CenteringMethod
	ScalingMethod   ScalingMethod

	// Center and Scale have one entry per column. Transform computes
	// (x - Center[j]) / Scale[j].
	Center []float64
	Scale  []float64

	// LowVariance lists the columns whose scale factor fell below the floor
	// and was replaced by it.
	LowVariance []int
}

// FitPreprocessing computes center and scale factors for every column of x.
// Scale factors whose magnitude is below floor are replaced by floor and
// reported in LowVariance; this is not an error.
func FitPreprocessing(x mat.Matrix, centering CenteringMethod, scaling ScalingMethod, floor float64) (*Preprocessing, error) {
	if !centering.valid() {
		return nil, fmt.Errorf("%w: unknown CenteringMethod %q", ErrInvalidConfiguration, centering)
	}
	if !scaling.valid() {
		return nil, fmt.Errorf("%w: unknown ScalingMethod %q", ErrInvalidConfiguration, scaling)
	}
	if !(floor > 0) {
		return nil, fmt.Errorf("%w: ScaleFloor must be > 0, got %g", ErrInvalidConfiguration, floor)
	}
	r, c := x.Dims()
	if r == 0 || c == 0 {
		return nil, fmt.Errorf("%w: cannot fit preprocessing on a %dx%d matrix", ErrDimensionMismatch, r, c)
	}

	p := &Preprocessing{
		CenteringMethod: centering,
		ScalingMethod:   scaling,
		Center:          make([]float64, c),
		Scale:           make([]float64, c),
	}
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, x)
		p.Center[j] = centerOf(col, centering)
		s := scaleOf(col, scaling)
		if math.IsNaN(s) || math.Abs(s) < floor {
			s = floor
			p.LowVariance = append(p.LowVariance, j)
		}
		p.Scale[j] = s
	}
	return p, nil
}

func centerOf(col []float64, method CenteringMethod) float64 {
	switch method {
	case CenteringMean:
		return stat.Mean(col, nil)
	case CenteringMin:
		return floats.Min(col)
	default:
		return 0
	}
}

func scaleOf(col []float64, method ScalingMethod) float64 {
	switch method {
	case ScalingAuto:
		return stat.PopStdDev(col, nil)
	case ScalingPareto:
		return math.Sqrt(stat.PopStdDev(col, nil))
	case ScalingRange:
		return floats.Max(col) - floats.Min(col)
	case ScalingVast:
		mean, variance := stat.PopMeanVariance(col, nil)
		if mean == 0 {
			return 0
		}
		return variance / mean
	case ScalingLevel:
		return stat.Mean(col, nil)
	case ScalingMax:
		return floats.Max(col)
	default:
		return 1
	}
}

// Transform returns (x - Center) / Scale as a new matrix. x is not modified.
func (p *Preprocessing) Transform(x mat.Matrix) (*mat.Dense, error) {
	r, c := x.Dims()
	if c != len(p.Center) {
		return nil, fmt.Errorf("%w: matrix has %d columns, preprocessing was fitted on %d", ErrDimensionMismatch, c, len(p.Center))
	}
	if r == 0 {
		return &mat.Dense{}, nil
	}
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		row := out.RawRowView(i)
		for j := range row {
			row[j] = (x.At(i, j) - p.Center[j]) / p.Scale[j]
		}
	}
	return out, nil
}

// Inverse undoes Transform: xt*Scale + Center.
func (p *Preprocessing) Inverse(xt mat.Matrix) (*mat.Dense, error) {
	r, c := xt.Dims()
	if c != len(p.Center) {
		return nil, fmt.Errorf("%w: matrix has %d columns, preprocessing was fitted on %d", ErrDimensionMismatch, c, len(p.Center))
	}
	if r == 0 {
		return &mat.Dense{}, nil
	}
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		row := out.RawRowView(i)
		for j := range row {
			row[j] = xt.At(i, j)*p.Scale[j] + p.Center[j]
		}
	}
	return out, nil
}
