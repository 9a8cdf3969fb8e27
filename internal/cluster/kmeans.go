package cluster

import (
	"math/rand"

	"github.com/hashicorp/go-hclog"

	"github.com/wallshift/wallshift/internal/pixels"
)

// KMeans clusters pixels with Lloyd's iteration, adapting the cluster count
// as it runs: centres that attract no pixels are dropped, and centres that
// converge too close together are pruned down to the one with the largest
// group.
type KMeans struct {
	K                   int
	MaxIterations       int
	ConvergenceDistance float64
	PruneDistance       float64
	Rand                *rand.Rand
	Logger              hclog.Logger
}

// Cluster runs k-means over the pixel population.
func (k *KMeans) Cluster(px []pixels.Pixel) (Result, error) {
	if len(px) == 0 {
		return nil, ErrEmptyInput
	}
	logger := k.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	rng := k.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	points := toPoints(px)

	// Centres start inside the data distribution: sample distinct pixels,
	// never arbitrary random colours.
	count := k.K
	if count > len(points) {
		logger.Warn("fewer pixels than requested clusters", "pixels", len(points), "clusters", k.K)
		count = len(points)
	}
	means := make([]point, count)
	for i, idx := range rng.Perm(len(points))[:count] {
		means[i] = points[idx]
	}

	var groups [][]int
	for iter := 0; iter < k.MaxIterations; iter++ {
		groups = groupByNearest(points, means)

		// A centre with no pixels is a casualty of poor initialisation;
		// drop it and carry on with a smaller k.
		var removed int
		means, groups, removed = dropEmptyGroups(means, groups)
		if removed > 0 {
			logger.Warn("removed empty groups", "removed", removed, "remaining", len(means))
		}
		if len(means) == 0 {
			return nil, ErrDegenerateClustering
		}

		old := means
		means = recomputeMeans(points, groups)
		logger.Debug("kmeans iteration", "iteration", iter, "means", len(means))

		if !allWithinDistance(old, means, k.ConvergenceDistance) {
			continue
		}
		if k.PruneDistance <= 0 {
			break
		}
		var pruned bool
		means, groups, pruned = pruneMeans(means, groups, k.PruneDistance)
		if !pruned {
			break
		}
		// Pruned centres leave orphaned pixels; keep iterating so they get
		// re-balanced against the survivors.
		logger.Debug("pruned means", "remaining", len(means))
	}

	result := make(Result, len(means))
	for i, m := range means {
		result[i] = Weighted{Color: m.round(), Count: len(groups[i])}
	}
	result.sortByCount()
	return result, nil
}

// groupByNearest assigns every point to its nearest mean, breaking distance
// ties by the lower mean index.
func groupByNearest(points []point, means []point) [][]int {
	groups := make([][]int, len(means))
	for i, p := range points {
		nearest := 0
		minDist := p.distance(means[0])
		for j := 1; j < len(means); j++ {
			if d := p.distance(means[j]); d < minDist {
				minDist = d
				nearest = j
			}
		}
		groups[nearest] = append(groups[nearest], i)
	}
	return groups
}

// dropEmptyGroups removes means with no assigned points, returning how many
// were dropped.
func dropEmptyGroups(means []point, groups [][]int) ([]point, [][]int, int) {
	keptMeans := means[:0]
	keptGroups := groups[:0]
	removed := 0
	for i, g := range groups {
		if len(g) == 0 {
			removed++
			continue
		}
		keptMeans = append(keptMeans, means[i])
		keptGroups = append(keptGroups, g)
	}
	return keptMeans, keptGroups, removed
}

// recomputeMeans replaces each mean with the coordinate-wise mean of its
// assigned points. Groups are non-empty by the time this runs.
func recomputeMeans(points []point, groups [][]int) []point {
	means := make([]point, len(groups))
	for i, g := range groups {
		var sum point
		for _, idx := range g {
			sum.r += points[idx].r
			sum.g += points[idx].g
			sum.b += points[idx].b
		}
		n := float64(len(g))
		means[i] = point{r: sum.r / n, g: sum.g / n, b: sum.b / n}
	}
	return means
}

// allWithinDistance reports whether every mean moved at most maxDistance
// from its previous position.
func allWithinDistance(old, updated []point, maxDistance float64) bool {
	for i := range old {
		if old[i].distance(updated[i]) > maxDistance {
			return false
		}
	}
	return true
}

// pruneMeans merges means that sit within pruneDistance of each other.
// Means are nodes of an undirected "too close" graph; for each connected
// component only the mean with the largest pixel group survives. Reports
// whether anything was removed.
func pruneMeans(means []point, groups [][]int, pruneDistance float64) ([]point, [][]int, bool) {
	n := len(means)
	component := make([]int, n)
	for i := range component {
		component[i] = -1
	}

	// Flood-fill components over the closeness graph.
	next := 0
	for i := 0; i < n; i++ {
		if component[i] >= 0 {
			continue
		}
		stack := []int{i}
		component[i] = next
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for j := 0; j < n; j++ {
				if component[j] >= 0 || means[cur].distance(means[j]) > pruneDistance {
					continue
				}
				component[j] = next
				stack = append(stack, j)
			}
		}
		next++
	}

	// Every mean alone in its component means there is nothing to prune.
	if next == n {
		return means, groups, false
	}

	// Keep the mean with the largest group per component, preserving the
	// original mean order.
	best := make([]int, next)
	for c := range best {
		best[c] = -1
	}
	for i := 0; i < n; i++ {
		c := component[i]
		if best[c] == -1 || len(groups[i]) > len(groups[best[c]]) {
			best[c] = i
		}
	}
	keep := make([]bool, n)
	for _, i := range best {
		keep[i] = true
	}

	var keptMeans []point
	var keptGroups [][]int
	for i := 0; i < n; i++ {
		if keep[i] {
			keptMeans = append(keptMeans, means[i])
			keptGroups = append(keptGroups, groups[i])
		}
	}
	return keptMeans, keptGroups, true
}
