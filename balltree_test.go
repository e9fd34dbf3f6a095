package lpca

import (
	"math"
	"testing"
)

// --- Construction tests ---

func TestBallTree_Construction_BasicProperties(t *testing.T) {
	data := []float64{
		0, 0,
		1, 0,
		2, 0,
		0, 3,
		1, 3,
		2, 3,
	}
	n, dims := 6, 2
	tree := NewBallTree(data, n, dims, 2)

	if tree.NumPoints() != n {
		t.Errorf("NumPoints() = %d, want %d", tree.NumPoints(), n)
	}
	if tree.NumFeatures() != dims {
		t.Errorf("NumFeatures() = %d, want %d", tree.NumFeatures(), dims)
	}

	seen := make(map[int]bool)
	for _, v := range tree.idxArray {
		if v < 0 || v >= n {
			t.Errorf("idxArray contains out-of-range index %d", v)
		}
		if seen[v] {
			t.Errorf("idxArray contains duplicate index %d", v)
		}
		seen[v] = true
	}
}

func TestBallTree_Construction_RadiusCoversPoints(t *testing.T) {
	n, dims := 200, 4
	data := randomFlat(n, dims, 3)
	tree := NewBallTree(data, n, dims, 8)

	for nodeID, nd := range tree.NodeDataArray() {
		c := tree.centroids[nodeID*dims : (nodeID+1)*dims]
		for i := nd.IdxStart; i < nd.IdxEnd; i++ {
			pi := tree.idxArray[i]
			if d := euclidean(c, data[pi*dims:(pi+1)*dims]); d > nd.Radius+floatTol {
				t.Errorf("node %d: point %d at distance %v outside radius %v", nodeID, pi, d, nd.Radius)
			}
		}
	}
}

func TestBallTree_Construction_LeafSize1(t *testing.T) {
	data := []float64{0, 0, 1, 1, 2, 2, 3, 3}
	tree := NewBallTree(data, 4, 2, 1)

	for _, nd := range tree.NodeDataArray() {
		if nd.IsLeaf && (nd.IdxEnd-nd.IdxStart) != 1 {
			t.Errorf("leaf has %d points, want 1", nd.IdxEnd-nd.IdxStart)
		}
	}
}

func TestBallTree_Construction_LeafSizeLargerThanN(t *testing.T) {
	data := []float64{1, 2, 3, 4}
	tree := NewBallTree(data, 2, 2, 100)

	nodes := tree.NodeDataArray()
	if len(nodes) != 1 {
		t.Errorf("expected 1 node for leafSize > n, got %d", len(nodes))
	}
	if !nodes[0].IsLeaf {
		t.Error("root should be a leaf when leafSize > n")
	}
}

func TestBallTree_Construction_SinglePoint(t *testing.T) {
	tree := NewBallTree([]float64{5, 5}, 1, 2, 10)

	if tree.NumPoints() != 1 {
		t.Errorf("NumPoints() = %d, want 1", tree.NumPoints())
	}
	if len(tree.NodeDataArray()) != 1 {
		t.Errorf("nodes = %d, want 1", len(tree.NodeDataArray()))
	}
	if tree.nodes[0].Radius != 0 {
		t.Errorf("radius of a single point = %v, want 0", tree.nodes[0].Radius)
	}
}

// --- KNN query tests ---

func TestBallTree_KNN_RandomData(t *testing.T) {
	// 70 dimensions is where auto selection switches to the ball tree.
	for _, dims := range []int{2, 5, 70} {
		n := 250
		data := randomFlat(n, dims, 11)
		queries := randomFlat(20, dims, 12)
		for _, leafSize := range []int{1, 10, 40} {
			tree := NewBallTree(data, n, dims, leafSize)
			indices, distances := tree.QueryKNN(queries, 20, 6)
			for q := 0; q < 20; q++ {
				bruteIdx, bruteDist := bruteForceKNN(data, n, dims, queries[q*dims:(q+1)*dims], 6)
				if !sameIndices(indices[q], bruteIdx) || !knnResultsMatch(indices[q], distances[q], bruteIdx, bruteDist, 1e-8) {
					t.Errorf("dims=%d leaf=%d query=%d: got %v, want %v", dims, leafSize, q, indices[q], bruteIdx)
				}
			}
		}
	}
}

func TestBallTree_KNN_KLargerThanN(t *testing.T) {
	data := []float64{0, 0, 1, 1, 2, 2}
	tree := NewBallTree(data, 3, 2, 1)

	indices, distances := tree.QueryKNN(data[:2], 1, 10)
	if len(indices[0]) != 3 {
		t.Fatalf("expected 3 results, got %d", len(indices[0]))
	}
	want := []float64{0, math.Sqrt2, 2 * math.Sqrt2}
	for i := range want {
		if !almostEqual(distances[0][i], want[i], floatTol) {
			t.Errorf("distance %d = %v, want %v", i, distances[0][i], want[i])
		}
	}
}

func TestBallTree_MinRdistPoint_LowerBound(t *testing.T) {
	data := []float64{
		0, 0,
		1, 1,
		5, 5,
		6, 6,
	}
	n, dims := 4, 2
	tree := NewBallTree(data, n, dims, 1)

	for _, pt := range [][]float64{{3, 3}, {-1, -1}, {10, 10}, {0, 0}} {
		for nodeID, nd := range tree.NodeDataArray() {
			lb := tree.minRdistPoint(nodeID, pt)
			minActual := minRdistPointToNode(tree.data, tree.idxArray, nd, dims, pt)
			if lb > minActual+floatTol {
				t.Errorf("minRdistPoint(%d, %v) = %v > actual %v", nodeID, pt, lb, minActual)
			}
		}
	}
}
