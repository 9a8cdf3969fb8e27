// Package cluster reduces a pixel population to a small ranked set of
// representative colours.
package cluster

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/hashicorp/go-hclog"

	"github.com/wallshift/wallshift/internal/pixels"
)

var (
	// ErrEmptyInput is returned when there are no pixels to cluster.
	ErrEmptyInput = errors.New("no pixels to cluster")

	// ErrDegenerateClustering is returned when every cluster ends up empty.
	ErrDegenerateClustering = errors.New("degenerate clustering: no clusters survived")
)

// Clusterer reduces a pixel population to a ranked colour list.
type Clusterer interface {
	// Cluster consumes a pixel sequence and produces colours paired with
	// their pixel-count weights, ordered by descending weight.
	Cluster(px []pixels.Pixel) (Result, error)
}

// Algorithm selects the clustering implementation.
type Algorithm string

const (
	// AlgorithmKMeans uses Lloyd's iteration with post-convergence pruning
	// of centres that land too close together.
	AlgorithmKMeans Algorithm = "kmeans"

	// AlgorithmMeanShift uses mode seeking with permanent removal of
	// claimed points, discovering the cluster count on its own.
	AlgorithmMeanShift Algorithm = "meanshift"
)

// ValidAlgorithms returns the recognised algorithm names.
func ValidAlgorithms() []Algorithm {
	return []Algorithm{AlgorithmKMeans, AlgorithmMeanShift}
}

// Params holds configuration for either clustering algorithm.
type Params struct {
	Algorithm Algorithm

	// Clusters is the initial cluster count. K-means only; mean shift
	// discovers its own count.
	Clusters int

	// MaxIterations bounds the refinement loop of either algorithm.
	MaxIterations int

	// ConvergenceDistance stops k-means once no centre moves further than
	// this between iterations.
	ConvergenceDistance float64

	// PruneDistance merges k-means centres at most this far apart after
	// convergence. Zero disables pruning.
	PruneDistance float64

	// Radius is the mean-shift neighbourhood radius.
	Radius float64

	// Tolerance stops a mean-shift seed once its centre moves less than
	// this between iterations.
	Tolerance float64

	// Rand supplies randomness for centre initialisation. Nil falls back
	// to the shared source.
	Rand *rand.Rand

	// Logger receives per-iteration diagnostics. Nil disables them.
	Logger hclog.Logger
}

// DefaultParams returns the parameters the rotation loop uses.
func DefaultParams(alg Algorithm) Params {
	switch alg {
	case AlgorithmMeanShift:
		return Params{
			Algorithm:     AlgorithmMeanShift,
			MaxIterations: 100,
			Radius:        30,
			Tolerance:     0.001,
		}
	default:
		return Params{
			Algorithm:           AlgorithmKMeans,
			Clusters:            5,
			MaxIterations:       10,
			ConvergenceDistance: 1.0,
			PruneDistance:       10.0,
		}
	}
}

// Validate checks the parameters for the selected algorithm.
func (p Params) Validate() error {
	if p.MaxIterations < 1 {
		return fmt.Errorf("max iterations must be at least 1, got %d", p.MaxIterations)
	}
	switch p.Algorithm {
	case AlgorithmKMeans:
		if p.Clusters < 1 {
			return fmt.Errorf("cluster count must be at least 1, got %d", p.Clusters)
		}
		if p.ConvergenceDistance < 0 {
			return fmt.Errorf("convergence distance must not be negative, got %g", p.ConvergenceDistance)
		}
		if p.PruneDistance < 0 {
			return fmt.Errorf("pruning distance must not be negative, got %g", p.PruneDistance)
		}
	case AlgorithmMeanShift:
		if p.Radius <= 0 {
			return fmt.Errorf("radius must be positive, got %g", p.Radius)
		}
		if p.Tolerance <= 0 {
			return fmt.Errorf("tolerance must be positive, got %g", p.Tolerance)
		}
	default:
		return fmt.Errorf("unknown algorithm: %s (valid algorithms: %v)", p.Algorithm, ValidAlgorithms())
	}
	return nil
}

// New creates a Clusterer for the configured algorithm.
func New(p Params) (Clusterer, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	logger := p.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	switch p.Algorithm {
	case AlgorithmKMeans:
		return &KMeans{
			K:                   p.Clusters,
			MaxIterations:       p.MaxIterations,
			ConvergenceDistance: p.ConvergenceDistance,
			PruneDistance:       p.PruneDistance,
			Rand:                p.Rand,
			Logger:              logger,
		}, nil
	case AlgorithmMeanShift:
		return &MeanShift{
			Radius:        p.Radius,
			Tolerance:     p.Tolerance,
			MaxIterations: p.MaxIterations,
			Logger:        logger,
		}, nil
	default:
		return nil, fmt.Errorf("unknown algorithm: %s (valid algorithms: %v)", p.Algorithm, ValidAlgorithms())
	}
}

// point is a position in RGB space. Centroids live here as floats and are
// only rounded to pixels at output.
type point struct {
	r, g, b float64
}

func pointFromPixel(p pixels.Pixel) point {
	return point{r: float64(p.R), g: float64(p.G), b: float64(p.B)}
}

func (p point) round() pixels.Pixel {
	return pixels.Pixel{
		R: roundComponent(p.r),
		G: roundComponent(p.g),
		B: roundComponent(p.b),
	}
}

func roundComponent(v float64) uint8 {
	r := math.Round(v)
	if r < 0 {
		return 0
	}
	if r > 255 {
		return 255
	}
	return uint8(r)
}

func (p point) distance(other point) float64 {
	dr := p.r - other.r
	dg := p.g - other.g
	db := p.b - other.b
	return math.Sqrt(dr*dr + dg*dg + db*db)
}

func toPoints(px []pixels.Pixel) []point {
	points := make([]point, len(px))
	for i, p := range px {
		points[i] = pointFromPixel(p)
	}
	return points
}
