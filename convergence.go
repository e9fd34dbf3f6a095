package lpca

import (
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

// Status reports how the iterations ended.
type Status string

const (
	// StatusConverged means the changed-label fraction fell to the configured
	// tolerance.
	StatusConverged Status = "converged"

	// StatusMaxIterReached means MaxIterations passes ran without
	// converging. The lowest-error partition seen is returned.
	StatusMaxIterReached Status = "max_iter_reached"

	// StatusDegenerate means clusters had to be re-seeded in more than
	// MaxReseeds consecutive iterations. The lowest-error partition seen is
	// returned.
	StatusDegenerate Status = "degenerate"
)

// controller alternates local model fits and reclassification until the
// partition stops changing.
type controller struct {
	x          *mat.Dense
	k, q       int
	correction CorrectionFactor
	maxIter    int
	tolerance  float64
	maxReseeds int
	workers    int
	log        zerolog.Logger
}

func newController(x *mat.Dense, cfg Config) *controller {
	return &controller{
		x:          x,
		k:          cfg.NumClusters,
		q:          cfg.NumEigenvectors,
		correction: cfg.CorrectionFactor,
		maxIter:    cfg.MaxIterations,
		tolerance:  cfg.ConvergenceTolerance,
		maxReseeds: cfg.MaxReseeds,
		workers:    cfg.Workers,
		log:        cfg.Logger,
	}
}

// outcome is the state of a finished run.
type outcome struct {
	labels     []int
	models     []*LocalModel
	status     Status
	iterations int
	reseeds    int
	history    []float64
}

// run iterates from the initial partition. Only fit failures other than
// undersized clusters are returned as errors.
func (c *controller) run(initial []int) (*outcome, error) {
	n, _ := c.x.Dims()
	labels := append([]int(nil), initial...)
	out := &outcome{status: StatusMaxIterReached}

	var (
		prevModels  []*LocalModel
		bestLabels  []int
		bestModels  []*LocalModel
		bestErr     = math.Inf(1)
		consecutive int
	)

	for iter := 1; iter <= c.maxIter; iter++ {
		reseeded := c.ensureMembers(labels, prevModels)
		if reseeded > 0 {
			out.reseeds += reseeded
			consecutive++
			c.log.Warn().Int("iteration", iter).Int("clusters", reseeded).Msg("re-seeded undersized clusters")
			if consecutive > c.maxReseeds {
				out.status = StatusDegenerate
				break
			}
		} else {
			consecutive = 0
		}

		models, err := fitModels(c.x, membersOf(labels, c.k), c.q, c.correction, c.workers)
		if err != nil {
			return nil, err
		}
		total := totalReconstructionError(c.x, labels, models, c.workers)
		out.history = append(out.history, total)
		out.iterations = iter
		if total < bestErr || bestLabels == nil {
			bestErr = total
			bestLabels = append(bestLabels[:0], labels...)
			bestModels = models
		}

		next := Reclassify(c.x, models, c.workers)
		changed := countChanged(labels, next)
		c.log.Debug().
			Int("iteration", iter).
			Int("changed", changed).
			Float64("error", total).
			Msg("lpca iteration")

		if float64(changed) <= c.tolerance*float64(n) {
			if changed > 0 {
				// Refit so the returned models describe the returned labels.
				out.reseeds += c.ensureMembers(next, models)
				if models, err = fitModels(c.x, membersOf(next, c.k), c.q, c.correction, c.workers); err != nil {
					return nil, err
				}
			}
			out.labels = next
			out.models = models
			out.status = StatusConverged
			c.log.Info().Int("iterations", iter).Str("status", string(out.status)).Msg("lpca finished")
			return out, nil
		}
		labels = next
		prevModels = models
	}

	if bestLabels == nil {
		// Degenerate before the first fit: reclaim the seeded partition.
		bestLabels = labels
		models, err := fitModels(c.x, membersOf(labels, c.k), c.q, c.correction, c.workers)
		if err != nil {
			return nil, err
		}
		bestModels = models
	}
	out.labels = bestLabels
	out.models = bestModels
	c.log.Info().
		Int("iterations", out.iterations).
		Int("reseeds", out.reseeds).
		Str("status", string(out.status)).
		Float64("error", bestErr).
		Msg("lpca finished without converging")
	return out, nil
}

// ensureMembers tops up every cluster with fewer than q+1 members, in
// cluster order, and returns how many clusters it touched. A short cluster
// first takes the row that its current cluster explains worst, then the
// rows nearest to that anchor. Rows are only taken from clusters that keep
// at least q+1 members. models may be nil, in which case the distance to the
// cluster mean stands in for the reconstruction error.
func (c *controller) ensureMembers(labels []int, models []*LocalModel) int {
	need := c.q + 1
	sizes := clusterSizes(labels, c.k)
	short := 0
	for _, s := range sizes {
		if s < need {
			short++
		}
	}
	if short == 0 {
		return 0
	}

	scores := c.ownErrors(labels, models)
	spare := func(i, j int) bool { return labels[i] != j && sizes[labels[i]] > need }
	move := func(i, j int) {
		sizes[labels[i]]--
		labels[i] = j
		sizes[j]++
	}

	touched := 0
	for j := 0; j < c.k; j++ {
		if sizes[j] >= need {
			continue
		}
		touched++

		anchor := -1
		for i := range labels {
			if spare(i, j) && (anchor < 0 || scores[i] > scores[anchor]) {
				anchor = i
			}
		}
		if anchor < 0 {
			break
		}
		move(anchor, j)
		a := c.x.RawRowView(anchor)

		for sizes[j] < need {
			nearest := -1
			nearestDist := math.Inf(1)
			for i := range labels {
				if !spare(i, j) {
					continue
				}
				if d := squaredEuclidean(a, c.x.RawRowView(i)); d < nearestDist {
					nearest = i
					nearestDist = d
				}
			}
			if nearest < 0 {
				break
			}
			move(nearest, j)
		}
	}
	return touched
}

// ownErrors scores every row against the cluster it currently belongs to.
func (c *controller) ownErrors(labels []int, models []*LocalModel) []float64 {
	n, p := c.x.Dims()
	scores := make([]float64, n)
	if len(models) == c.k {
		forEachRowRange(n, c.workers, func(start, end int) {
			resid := make([]float64, p)
			buf := make([]float64, c.q)
			for i := start; i < end; i++ {
				if m := models[labels[i]]; m != nil {
					scores[i] = m.reconstructionError(c.x.RawRowView(i), resid, buf)
				}
			}
		})
		return scores
	}

	means := make([][]float64, c.k)
	for j := range means {
		means[j] = make([]float64, p)
	}
	counts := clusterSizes(labels, c.k)
	for i, l := range labels {
		row := c.x.RawRowView(i)
		for d := range row {
			means[l][d] += row[d] / float64(counts[l])
		}
	}
	for i, l := range labels {
		scores[i] = squaredEuclidean(c.x.RawRowView(i), means[l])
	}
	return scores
}

// membersOf groups row indices by label. Every cluster gets a non-nil slice.
func membersOf(labels []int, k int) [][]int {
	sizes := clusterSizes(labels, k)
	members := make([][]int, k)
	for j := range members {
		members[j] = make([]int, 0, sizes[j])
	}
	for i, l := range labels {
		members[l] = append(members[l], i)
	}
	return members
}

func countChanged(a, b []int) int {
	changed := 0
	for i := range a {
		if a[i] != b[i] {
			changed++
		}
	}
	return changed
}
