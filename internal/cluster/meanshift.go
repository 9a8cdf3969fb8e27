package cluster

import (
	"github.com/hashicorp/go-hclog"

	"github.com/wallshift/wallshift/internal/pixels"
)

// MeanShift clusters pixels by mode seeking with point removal: each seed
// climbs to a local density peak, claims every point within Radius of it,
// and those points are permanently removed from the working set. The
// cluster count is discovered, not fixed.
type MeanShift struct {
	Radius        float64
	Tolerance     float64
	MaxIterations int
	Logger        hclog.Logger
}

// Cluster runs mean shift over the pixel population.
func (m *MeanShift) Cluster(px []pixels.Pixel) (Result, error) {
	if len(px) == 0 {
		return nil, ErrEmptyInput
	}
	logger := m.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	working := toPoints(px)
	var result Result

	for len(working) > 0 {
		logger.Debug("points remaining", "count", len(working))

		// Seed at the first remaining point.
		center := working[0]
		var within []int
		for i := 0; i < m.MaxIterations; i++ {
			within = indicesWithinRadius(working, center, m.Radius)
			if len(within) == 0 {
				break
			}
			next := meanOfIndices(working, within)
			if next.distance(center) < m.Tolerance {
				break
			}
			center = next
		}

		if len(within) == 0 {
			// The candidate drifted somewhere with no neighbours. Drop just
			// the seed point; no cluster is formed for it.
			logger.Debug("abandoning seed with no points in radius")
			working = working[1:]
			continue
		}

		result = append(result, Weighted{Color: center.round(), Count: len(within)})
		working = removeIndices(working, within)
	}

	logger.Debug("done finding clusters", "clusters", len(result))
	result.sortByCount()
	return result, nil
}

// indicesWithinRadius returns the indices of points strictly closer than
// radius to center.
func indicesWithinRadius(points []point, center point, radius float64) []int {
	var within []int
	for i, p := range points {
		if p.distance(center) < radius {
			within = append(within, i)
		}
	}
	return within
}

// meanOfIndices returns the coordinate-wise mean of the selected points.
func meanOfIndices(points []point, indices []int) point {
	var sum point
	for _, i := range indices {
		sum.r += points[i].r
		sum.g += points[i].g
		sum.b += points[i].b
	}
	n := float64(len(indices))
	return point{r: sum.r / n, g: sum.g / n, b: sum.b / n}
}

// removeIndices drops the points at the given sorted indices.
func removeIndices(points []point, indices []int) []point {
	kept := make([]point, 0, len(points)-len(indices))
	next := 0
	for i, p := range points {
		if next < len(indices) && indices[next] == i {
			next++
			continue
		}
		kept = append(kept, p)
	}
	return kept
}
