package lpca

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// KNNOptions controls the neighbor smoothing pass.
type KNNOptions struct {
	// Algorithm selects the neighbor index. Default: NeighborAuto.
	Algorithm NeighborAlgorithm

	// LeafSize is the maximum number of points per spatial tree leaf.
	// Default: 40.
	LeafSize int

	// Passes is the number of smoothing passes; each pass votes on the
	// previous pass's output. Default: 1.
	Passes int

	// Workers is the number of goroutines used for neighbor queries and
	// votes. 0 or 1 runs inline.
	Workers int
}

const defaultLeafSize = 40

// KNNSmooth relabels every row of x with the majority label among its m
// nearest other rows. A tie for the majority, or a tie between the majority
// and the row's current label, keeps the current label. Each pass reads the
// labels of the previous pass and writes a new slice; labels is not modified.
// m larger than n-1 is clamped.
func KNNSmooth(x *mat.Dense, labels []int, m int, opts KNNOptions) ([]int, error) {
	n, _ := x.Dims()
	k, err := checkLabels(labels, n)
	if err != nil {
		return nil, err
	}
	if m < 1 {
		return nil, fmt.Errorf("%w: neighbor count must be >= 1, got %d", ErrInvalidConfiguration, m)
	}
	if opts.Algorithm == "" {
		opts.Algorithm = NeighborAuto
	}
	if opts.LeafSize < 1 {
		opts.LeafSize = defaultLeafSize
	}
	if opts.Passes < 1 {
		opts.Passes = 1
	}

	out := slices.Clone(labels)
	if n <= 1 {
		return out, nil
	}
	m = min(m, n-1)

	neighbors, err := nearestOthers(x, m, opts)
	if err != nil {
		return nil, err
	}

	for pass := 0; pass < opts.Passes; pass++ {
		prev := out
		out = make([]int, n)
		forEachRowRange(n, opts.Workers, func(start, end int) {
			votes := make([]int, k)
			for i := start; i < end; i++ {
				out[i] = majorityLabel(prev, prev[i], neighbors[i], votes)
			}
		})
		if slices.Equal(prev, out) {
			break
		}
	}
	return out, nil
}

// nearestOthers returns, for each row, the indices of its m nearest rows
// excluding the row itself.
func nearestOthers(x *mat.Dense, m int, opts KNNOptions) ([][]int, error) {
	n, p := x.Dims()
	data := flatRows(x)
	index, err := newNeighborIndex(opts.Algorithm, data, n, p, opts.LeafSize)
	if err != nil {
		return nil, err
	}

	neighbors := make([][]int, n)
	forEachRowRange(n, opts.Workers, func(start, end int) {
		idx, _ := index.QueryKNN(data[start*p:end*p], end-start, m+1)
		for r, row := range idx {
			i := start + r
			if pos := slices.Index(row, i); pos >= 0 {
				row = slices.Delete(row, pos, pos+1)
			}
			neighbors[i] = row[:min(len(row), m)]
		}
	})
	return neighbors, nil
}

// majorityLabel counts the labels of the neighbors. votes is scratch space
// of length k and is cleared on return.
func majorityLabel(labels []int, current int, neighbors []int, votes []int) int {
	for _, nb := range neighbors {
		votes[labels[nb]]++
	}
	best, bestCount, tied := current, votes[current], false
	for l, c := range votes {
		if l == current {
			continue
		}
		switch {
		case c > bestCount:
			best, bestCount, tied = l, c, false
		case c == bestCount && best != current:
			tied = true
		}
	}
	clear(votes)
	if tied {
		return current
	}
	return best
}
