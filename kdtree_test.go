package lpca

import (
	"math"
	"sort"
	"testing"
)

// --- Construction tests ---

func TestKDTree_Construction_BasicProperties(t *testing.T) {
	data := []float64{
		0, 0,
		1, 0,
		2, 0,
		0, 3,
		1, 3,
		2, 3,
	}
	n, dims := 6, 2
	tree := NewKDTree(data, n, dims, 2)

	if tree.NumPoints() != n {
		t.Errorf("NumPoints() = %d, want %d", tree.NumPoints(), n)
	}
	if tree.NumFeatures() != dims {
		t.Errorf("NumFeatures() = %d, want %d", tree.NumFeatures(), dims)
	}

	// idxArray should be a permutation of 0..n-1.
	if len(tree.idxArray) != n {
		t.Fatalf("idxArray length = %d, want %d", len(tree.idxArray), n)
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

func TestKDTree_Construction_CopiesData(t *testing.T) {
	data := []float64{0, 0, 1, 1, 2, 2}
	tree := NewKDTree(data, 3, 2, 1)
	data[0] = 100

	idx, _ := tree.QueryKNN([]float64{0, 0}, 1, 1)
	if idx[0][0] != 0 {
		t.Errorf("nearest to origin = %d, want 0 (tree must not alias input)", idx[0][0])
	}
}

func TestKDTree_Construction_LeafSize1(t *testing.T) {
	data := []float64{0, 0, 1, 1, 2, 2, 3, 3}
	tree := NewKDTree(data, 4, 2, 1)

	for _, nd := range tree.NodeDataArray() {
		if nd.IsLeaf && (nd.IdxEnd-nd.IdxStart) != 1 {
			t.Errorf("leaf has %d points, want 1", nd.IdxEnd-nd.IdxStart)
		}
	}
}

func TestKDTree_Construction_LeafSizeLargerThanN(t *testing.T) {
	data := []float64{1, 2, 3, 4}
	tree := NewKDTree(data, 2, 2, 100)

	nodes := tree.NodeDataArray()
	if len(nodes) != 1 {
		t.Errorf("expected 1 node for leafSize > n, got %d", len(nodes))
	}
	if !nodes[0].IsLeaf {
		t.Error("root should be a leaf when leafSize > n")
	}
}

func TestKDTree_Construction_Empty(t *testing.T) {
	tree := NewKDTree(nil, 0, 3, 10)
	idx, dist := tree.QueryKNN([]float64{1, 2, 3}, 1, 2)
	if len(idx[0]) != 0 || len(dist[0]) != 0 {
		t.Errorf("empty tree returned %v %v", idx[0], dist[0])
	}
}

// --- KNN query tests ---

func TestKDTree_KNN_BruteForceMatch(t *testing.T) {
	data := []float64{
		0, 0,
		3, 0,
		0, 4,
		3, 4,
		1.5, 2,
	}
	n, dims := 5, 2
	tree := NewKDTree(data, n, dims, 1)
	for k := 1; k <= n; k++ {
		indices, distances := tree.QueryKNN(data, n, k)
		for q := 0; q < n; q++ {
			bruteIdx, bruteDist := bruteForceKNN(data, n, dims, data[q*dims:(q+1)*dims], k)
			if !knnResultsMatch(indices[q], distances[q], bruteIdx, bruteDist, floatTol) {
				t.Errorf("k=%d query=%d: tree KNN doesn't match brute force.\n  tree: idx=%v dist=%v\n  brute: idx=%v dist=%v",
					k, q, indices[q], distances[q], bruteIdx, bruteDist)
			}
		}
	}
}

func TestKDTree_KNN_RandomData(t *testing.T) {
	for _, dims := range []int{1, 3, 8} {
		n := 300
		data := randomFlat(n, dims, 7)
		queries := randomFlat(25, dims, 8)
		for _, leafSize := range []int{1, 5, 40} {
			tree := NewKDTree(data, n, dims, leafSize)
			indices, distances := tree.QueryKNN(queries, 25, 7)
			for q := 0; q < 25; q++ {
				bruteIdx, bruteDist := bruteForceKNN(data, n, dims, queries[q*dims:(q+1)*dims], 7)
				if !sameIndices(indices[q], bruteIdx) || !knnResultsMatch(indices[q], distances[q], bruteIdx, bruteDist, floatTol) {
					t.Errorf("dims=%d leaf=%d query=%d: got %v, want %v", dims, leafSize, q, indices[q], bruteIdx)
				}
			}
		}
	}
}

func TestKDTree_KNN_AllSamePoints(t *testing.T) {
	data := []float64{5, 5, 5, 5, 5, 5, 5, 5}
	n, dims := 4, 2
	tree := NewKDTree(data, n, dims, 2)

	indices, distances := tree.QueryKNN(data, n, 3)
	for q := 0; q < n; q++ {
		for j := 0; j < len(distances[q]); j++ {
			if distances[q][j] != 0 {
				t.Errorf("query %d: expected all distances 0, got %v", q, distances[q][j])
			}
		}
		// Equal distances resolve to the lowest indices.
		if !sameIndices(indices[q], []int{0, 1, 2}) {
			t.Errorf("query %d: got %v, want [0 1 2]", q, indices[q])
		}
	}
}

func TestKDTree_KNN_KEqualsN(t *testing.T) {
	data := []float64{0, 0, 1, 1, 2, 2}
	n, dims := 3, 2
	tree := NewKDTree(data, n, dims, 1)

	indices, distances := tree.QueryKNN(data, n, n)
	for q := 0; q < n; q++ {
		if len(indices[q]) != n {
			t.Errorf("query %d: expected %d results, got %d", q, n, len(indices[q]))
		}
		if distances[q][0] != 0 {
			t.Errorf("query %d: expected self-distance 0, got %v", q, distances[q][0])
		}
	}
}

func TestKDTree_MinRdistPoint_LowerBound(t *testing.T) {
	data := []float64{
		0, 0,
		1, 1,
		5, 5,
		6, 6,
	}
	n, dims := 4, 2
	tree := NewKDTree(data, n, dims, 2)

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

// --- Helper: brute-force KNN ---

func bruteForceKNN(data []float64, n, dims int, query []float64, k int) ([]int, []float64) {
	type distIdx struct {
		dist  float64
		index int
	}
	all := make([]distIdx, n)
	for i := 0; i < n; i++ {
		all[i] = distIdx{dist: euclidean(query, data[i*dims:(i+1)*dims]), index: i}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].dist == all[j].dist {
			return all[i].index < all[j].index
		}
		return all[i].dist < all[j].dist
	})
	k = min(k, n)
	idx := make([]int, k)
	dists := make([]float64, k)
	for i := 0; i < k; i++ {
		idx[i] = all[i].index
		dists[i] = all[i].dist
	}
	return idx, dists
}

// knnResultsMatch checks that two KNN results agree on distances (indices
// may differ when distances are tied).
func knnResultsMatch(idx1 []int, dist1 []float64, idx2 []int, dist2 []float64, tol float64) bool {
	if len(idx1) != len(idx2) || len(dist1) != len(dist2) {
		return false
	}
	for i := range dist1 {
		if !almostEqual(dist1[i], dist2[i], tol) {
			return false
		}
	}
	return true
}

func sameIndices(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// minRdistPointToNode computes the actual minimum squared distance from a
// point to any point in a tree node.
func minRdistPointToNode(data []float64, idxArray []int, nd NodeData, dims int, point []float64) float64 {
	minRdist := math.Inf(1)
	for i := nd.IdxStart; i < nd.IdxEnd; i++ {
		pi := idxArray[i]
		minRdist = math.Min(minRdist, squaredEuclidean(point, data[pi*dims:(pi+1)*dims]))
	}
	return minRdist
}
