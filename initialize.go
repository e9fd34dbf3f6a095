package lpca

import (
	"fmt"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Initializer produces the starting partition for the LPCA iterations.
// Implementations return n labels in [0, k) with every cluster non-empty.
type Initializer interface {
	InitialPartition(x *mat.Dense, k int) ([]int, error)
}

// maxRandomDraws bounds the rejection sampling in RandomInitializer.
const maxRandomDraws = 100

// newInitializer returns the strategy named by cfg.InitializationMethod.
func newInitializer(cfg Config) (Initializer, error) {
	switch cfg.InitializationMethod {
	case InitUniform:
		return UniformInitializer{}, nil
	case InitRandom:
		return RandomInitializer{Seed: cfg.Seed}, nil
	case InitObservations:
		return ObservationsInitializer{Seed: cfg.Seed}, nil
	case InitKMeans:
		return KMeansInitializer{Seed: cfg.Seed, MaxIterations: cfg.KMeansIterations}, nil
	case InitPKCIA:
		return PKCIAInitializer{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown InitializationMethod %q", ErrInvalidConfiguration, cfg.InitializationMethod)
	}
}

func checkPartitionArgs(n, k int) error {
	if k < 1 || k > n {
		return fmt.Errorf("%w: cannot split %d observations into %d clusters", ErrInvalidConfiguration, n, k)
	}
	return nil
}

// UniformInitializer splits the row index range into k contiguous blocks of
// equal size; the first n%k blocks get one extra row.
type UniformInitializer struct{}

func (UniformInitializer) InitialPartition(x *mat.Dense, k int) ([]int, error) {
	n, _ := x.Dims()
	if err := checkPartitionArgs(n, k); err != nil {
		return nil, err
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return blockPartition(order, k), nil
}

// blockPartition labels order[0:b0] as cluster 0, the next block as cluster
// 1 and so on, with block sizes differing by at most one.
func blockPartition(order []int, k int) []int {
	n := len(order)
	labels := make([]int, n)
	base, extra := n/k, n%k
	pos := 0
	for j := 0; j < k; j++ {
		size := base
		if j < extra {
			size++
		}
		for _, idx := range order[pos : pos+size] {
			labels[idx] = j
		}
		pos += size
	}
	return labels
}

// RandomInitializer draws every label uniformly. Draws that leave a cluster
// empty are rejected; after maxRandomDraws attempts, rows are moved into the
// missing clusters instead.
type RandomInitializer struct {
	Seed int64
}

func (r RandomInitializer) InitialPartition(x *mat.Dense, k int) ([]int, error) {
	n, _ := x.Dims()
	if err := checkPartitionArgs(n, k); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(r.Seed))
	labels := make([]int, n)
	for attempt := 0; attempt < maxRandomDraws; attempt++ {
		for i := range labels {
			labels[i] = rng.Intn(k)
		}
		if countEmpty(labels, k) == 0 {
			return labels, nil
		}
	}
	fillEmptyClusters(labels, k, rng.Perm(n))
	return labels, nil
}

// ObservationsInitializer picks k distinct rows as seeds and assigns every row
// to its nearest seed. Each seed row stays in its own cluster.
type ObservationsInitializer struct {
	Seed int64
}

func (o ObservationsInitializer) InitialPartition(x *mat.Dense, k int) ([]int, error) {
	n, _ := x.Dims()
	if err := checkPartitionArgs(n, k); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(o.Seed))
	seeds := rng.Perm(n)[:k]
	centroids := make([][]float64, k)
	for j, s := range seeds {
		centroids[j] = x.RawRowView(s)
	}
	labels := make([]int, n)
	for i := range labels {
		labels[i], _ = nearestCentroid(x.RawRowView(i), centroids)
	}
	for j, s := range seeds {
		labels[s] = j
	}
	return labels, nil
}

// KMeansInitializer uses the partition found by Lloyd's k-means, seeded from
// observations with k-means++.
type KMeansInitializer struct {
	Seed          int64
	MaxIterations int
}

func (km KMeansInitializer) InitialPartition(x *mat.Dense, k int) ([]int, error) {
	n, _ := x.Dims()
	if err := checkPartitionArgs(n, k); err != nil {
		return nil, err
	}
	iters := km.MaxIterations
	if iters < 1 {
		iters = defaultKMeansIterations
	}
	labels, _ := kMeans(x, k, iters, rand.New(rand.NewSource(km.Seed)))
	return labels, nil
}

// PKCIAInitializer orders the rows by their score on the first global
// principal component and splits that ordering into k contiguous blocks.
type PKCIAInitializer struct{}

func (PKCIAInitializer) InitialPartition(x *mat.Dense, k int) ([]int, error) {
	n, p := x.Dims()
	if err := checkPartitionArgs(n, k); err != nil {
		return nil, err
	}
	if n < 2 {
		return make([]int, n), nil
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(x, nil); !ok {
		return nil, fmt.Errorf("%w: global principal components of %d×%d matrix", ErrEigenFailed, n, p)
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	first := mat.Col(nil, 0, &vecs)
	orientVector(first)

	scores := make([]float64, n)
	for i := range scores {
		scores[i] = floats.Dot(x.RawRowView(i), first)
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] < scores[order[b]]
	})
	return blockPartition(order, k), nil
}

// clusterSizes counts the members of each of the k clusters.
func clusterSizes(labels []int, k int) []int {
	counts := make([]int, k)
	for _, l := range labels {
		counts[l]++
	}
	return counts
}

func countEmpty(labels []int, k int) int {
	empty := 0
	for _, c := range clusterSizes(labels, k) {
		if c == 0 {
			empty++
		}
	}
	return empty
}

// fillEmptyClusters moves one row into every empty cluster. Candidates are
// tried in the given order; a row is only taken from a cluster that keeps at
// least one member.
func fillEmptyClusters(labels []int, k int, candidates []int) {
	counts := clusterSizes(labels, k)
	next := 0
	for j := 0; j < k; j++ {
		if counts[j] > 0 {
			continue
		}
		for ; next < len(candidates); next++ {
			i := candidates[next]
			if counts[labels[i]] > 1 {
				counts[labels[i]]--
				labels[i] = j
				counts[j]++
				next++
				break
			}
		}
	}
}
