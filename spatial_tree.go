package lpca

import (
	"container/heap"
	"math"
)

// NodeData describes a single node in a spatial tree.
type NodeData struct {
	IdxStart, IdxEnd int
	IsLeaf           bool
	Radius           float64 // ball tree radius; 0 for KD-tree
}

// NeighborIndex answers k-nearest-neighbor queries over a fixed point set
// using Euclidean distance.
type NeighborIndex interface {
	// QueryKNN finds the k nearest indexed points for each row in queryData.
	// queryData is flat row-major with queryRows rows.
	// Returns per-query neighbor indices and distances (both sorted by distance).
	QueryKNN(queryData []float64, queryRows, k int) (indices [][]int, distances [][]float64)

	// NumPoints returns the number of indexed points.
	NumPoints() int

	// NumFeatures returns the dimensionality of each point.
	NumFeatures() int
}

// newNeighborIndex builds the index selected by algo over flat row-major data.
func newNeighborIndex(algo NeighborAlgorithm, data []float64, n, dims, leafSize int) (NeighborIndex, error) {
	algo, err := selectNeighborAlgorithm(algo, n, dims)
	if err != nil {
		return nil, err
	}
	switch algo {
	case NeighborKDTree:
		return NewKDTree(data, n, dims, leafSize), nil
	case NeighborBallTree:
		return NewBallTree(data, n, dims, leafSize), nil
	default:
		return NewBruteIndex(data, n, dims), nil
	}
}

// BruteIndex answers queries by scanning every point.
type BruteIndex struct {
	data []float64
	n    int
	dims int
}

// NewBruteIndex wraps flat row-major data without copying it.
func NewBruteIndex(data []float64, n, dims int) *BruteIndex {
	return &BruteIndex{data: data, n: n, dims: dims}
}

func (b *BruteIndex) NumPoints() int   { return b.n }
func (b *BruteIndex) NumFeatures() int { return b.dims }

// QueryKNN finds the k nearest neighbors for each row in queryData.
func (b *BruteIndex) QueryKNN(queryData []float64, queryRows, k int) ([][]int, [][]float64) {
	indices := make([][]int, queryRows)
	distances := make([][]float64, queryRows)
	for q := 0; q < queryRows; q++ {
		query := queryData[q*b.dims : (q+1)*b.dims]
		h := &knnHeap{}
		for i := 0; i < b.n; i++ {
			h.offer(knnItem{index: i, dist: squaredEuclidean(query, b.data[i*b.dims:(i+1)*b.dims])}, k)
		}
		indices[q], distances[q] = h.drainSorted()
	}
	return indices, distances
}

// --- max-heap for KNN queries ---

type knnItem struct {
	index int
	dist  float64 // squared Euclidean while searching
}

// knnHeap is a max-heap of knnItem (largest distance on top) used as a
// bounded priority queue for KNN queries. Among equal distances the larger
// index is evicted first, so results are independent of traversal order.
type knnHeap []knnItem

func (h knnHeap) Len() int { return len(h) }
func (h knnHeap) Less(i, j int) bool {
	if h[i].dist != h[j].dist {
		return h[i].dist > h[j].dist
	}
	return h[i].index > h[j].index
}
func (h knnHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *knnHeap) Push(x interface{}) { *h = append(*h, x.(knnItem)) }
func (h *knnHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// offer adds it if the heap holds fewer than k items or it beats the current
// worst item.
func (h *knnHeap) offer(it knnItem, k int) {
	if h.Len() < k {
		heap.Push(h, it)
		return
	}
	top := (*h)[0]
	if it.dist < top.dist || (it.dist == top.dist && it.index < top.index) {
		(*h)[0] = it
		heap.Fix(h, 0)
	}
}

// worst returns the largest squared distance held, valid when Len() > 0.
func (h knnHeap) worst() float64 { return h[0].dist }

// drainSorted empties the heap and returns indices and true distances in
// ascending order.
func (h *knnHeap) drainSorted() ([]int, []float64) {
	nResults := h.Len()
	idx := make([]int, nResults)
	dist := make([]float64, nResults)
	for i := nResults - 1; i >= 0; i-- {
		item := heap.Pop(h).(knnItem)
		idx[i] = item.index
		dist[i] = math.Sqrt(item.dist)
	}
	return idx, dist
}
