package anomaly

import (
	"math"
	"math/rand"
	"sort"

	"codeberg.org/mutker/printwatch/internal/errors"
)

const eulerGamma = 0.5772156649015329

type ForestConfig struct {
	// Trees is the ensemble size.
	Trees int
	// Contamination is the expected outlier fraction in the baseline; it
	// positions the score cutoff at the matching training-score quantile.
	Contamination float64
	// Seed makes fitting deterministic for a given baseline.
	Seed int64
}

func DefaultForestConfig() ForestConfig {
	return ForestConfig{
		Trees:         100,
		Contamination: 0.1,
		Seed:          42,
	}
}

func (c ForestConfig) Validate() error {
	errFactory := errors.New()

	if c.Trees <= 0 {
		return errFactory.WithMessage(ErrInvalidConfig, "forest must have at least one tree")
	}
	if c.Contamination <= 0 || c.Contamination >= 0.5 {
		return errFactory.WithData(ErrInvalidConfig, struct {
			Field string
			Value float64
		}{"contamination", c.Contamination})
	}

	return nil
}

// forest is a one-dimensional isolation forest. Isolation trees partition
// the baseline with random splits; values that isolate in few splits are
// scored close to 1, values buried in the bulk close to 0.5 or below.
type forest struct {
	trees      []*treeNode
	sampleSize int
	offset     float64
}

// treeNode is an isolation-tree node. Leaves have nil children and keep
// their subset size for the path-length adjustment.
type treeNode struct {
	split float64
	left  *treeNode
	right *treeNode
	size  int
}

// fitForest trains on the baseline. The score cutoff is the
// (1 − contamination) quantile of the baseline's own scores, so a perfectly
// uniform baseline (all scores equal) can never vote itself an outlier.
func fitForest(baseline []float64, cfg ForestConfig) *forest {
	rng := rand.New(rand.NewSource(cfg.Seed))
	n := len(baseline)
	maxDepth := int(math.Ceil(math.Log2(float64(n))))

	trees := make([]*treeNode, cfg.Trees)
	sample := make([]float64, n)
	for i := range trees {
		copy(sample, baseline)
		rng.Shuffle(n, func(a, b int) {
			sample[a], sample[b] = sample[b], sample[a]
		})
		trees[i] = buildTree(sample, 0, maxDepth, rng)
	}

	f := &forest{
		trees:      trees,
		sampleSize: n,
	}

	scores := make([]float64, n)
	for i, v := range baseline {
		scores[i] = f.score(v)
	}
	sort.Float64s(scores)
	idx := int(math.Ceil(float64(n)*(1-cfg.Contamination))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	f.offset = scores[idx]

	return f
}

func buildTree(values []float64, depth, maxDepth int, rng *rand.Rand) *treeNode {
	lo, hi := minMax(values)
	if len(values) <= 1 || depth >= maxDepth || lo == hi {
		return &treeNode{size: len(values)}
	}

	split := lo + rng.Float64()*(hi-lo)
	var left, right []float64
	for _, v := range values {
		if v < split {
			left = append(left, v)
		} else {
			right = append(right, v)
		}
	}

	return &treeNode{
		split: split,
		left:  buildTree(left, depth+1, maxDepth, rng),
		right: buildTree(right, depth+1, maxDepth, rng),
		size:  len(values),
	}
}

func (n *treeNode) pathLength(v float64, depth float64) float64 {
	if n.left == nil {
		return depth + avgPathLength(n.size)
	}
	if v < n.split {
		return n.left.pathLength(v, depth+1)
	}
	return n.right.pathLength(v, depth+1)
}

// avgPathLength is c(n), the average unsuccessful-search path length of a
// binary search tree over n points.
func avgPathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	default:
		nf := float64(n)
		return 2*(math.Log(nf-1)+eulerGamma) - 2*(nf-1)/nf
	}
}

// score maps v to (0, 1): 2^(−E[h(v)] / c(ψ)).
func (f *forest) score(v float64) float64 {
	var sum float64
	for _, t := range f.trees {
		sum += t.pathLength(v, 0)
	}
	avg := sum / float64(len(f.trees))

	return math.Pow(2, -avg/avgPathLength(f.sampleSize))
}

func (f *forest) isOutlier(v float64) bool {
	return f.score(v) > f.offset
}

func minMax(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
