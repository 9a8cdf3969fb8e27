// Package selection chooses the next image from a catalog of usage-tracked
// records.
package selection

import (
	"errors"
	"fmt"
	"math/rand"
)

var (
	// ErrEmptyCatalog is returned when no record is eligible for selection.
	// Not retryable: the catalog needs images before picking can work.
	ErrEmptyCatalog = errors.New("no eligible images in catalog")

	// ErrInvalidStrategy is returned for an unrecognised strategy name.
	ErrInvalidStrategy = errors.New("invalid selection strategy")
)

// Strategy names a selection algorithm.
type Strategy string

const (
	// Uniform picks with equal probability over all eligible records.
	Uniform Strategy = "uniform"

	// UsageWeighted weights each record by max(times_used) - times_used + 1,
	// so less-used images come up more often.
	UsageWeighted Strategy = "usage-weighted"

	// LeastUsed picks uniformly among the records sharing the minimum
	// times_used.
	LeastUsed Strategy = "least-used"
)

// ValidStrategies returns the recognised strategy names.
func ValidStrategies() []Strategy {
	return []Strategy{Uniform, UsageWeighted, LeastUsed}
}

// ParseStrategy converts a configuration string into a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case Uniform, UsageWeighted, LeastUsed:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("%w: %q (valid strategies: %v)", ErrInvalidStrategy, s, ValidStrategies())
	}
}

// ImageRecord is one catalog row as the selector sees it.
type ImageRecord struct {
	ID          int64
	Filepath    string
	Active      bool
	IsDirectory bool
	Hidden      bool

	// TimesUsed is the windowed usage counter driving weighted selection.
	// It is renormalised after every pick so the weight range stays
	// bounded over unbounded runtime.
	TimesUsed int64

	// TotalTimesUsed is the lifetime usage ledger. Never renormalised.
	TotalTimesUsed int64
}

// Eligible reports whether the record can be selected: active, a concrete
// file, and not hidden.
func (r ImageRecord) Eligible() bool {
	return r.Active && !r.IsDirectory && !r.Hidden
}

// Engine picks images from record sets. It holds no state across calls
// beyond its random source.
type Engine struct {
	rng *rand.Rand
}

// NewEngine creates an Engine. A nil rng falls back to a freshly seeded
// source; tests inject a fixed seed.
func NewEngine(rng *rand.Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Engine{rng: rng}
}

// Pick selects the next filepath using the given strategy and applies the
// usage bookkeeping to records in place. When increment is false (preview
// modes) the chosen record's counters are left alone, but the normalization
// pass still runs.
func (e *Engine) Pick(strategy Strategy, records []ImageRecord, increment bool) (string, error) {
	eligible := make([]int, 0, len(records))
	for i, r := range records {
		if r.Eligible() {
			eligible = append(eligible, i)
		}
	}
	if len(eligible) == 0 {
		return "", ErrEmptyCatalog
	}

	var chosen int
	switch strategy {
	case Uniform:
		chosen = eligible[e.rng.Intn(len(eligible))]
	case UsageWeighted:
		chosen = e.pickWeighted(records, eligible)
	case LeastUsed:
		chosen = e.pickLeastUsed(records, eligible)
	default:
		return "", fmt.Errorf("%w: %q (valid strategies: %v)", ErrInvalidStrategy, strategy, ValidStrategies())
	}

	if increment {
		records[chosen].TimesUsed++
		records[chosen].TotalTimesUsed++
	}
	Normalize(records)
	return records[chosen].Filepath, nil
}

// pickWeighted samples an eligible index with weight max(times_used) -
// times_used + 1, so every weight is at least 1.
func (e *Engine) pickWeighted(records []ImageRecord, eligible []int) int {
	var maxUsed int64
	for _, i := range eligible {
		if records[i].TimesUsed > maxUsed {
			maxUsed = records[i].TimesUsed
		}
	}
	var total int64
	for _, i := range eligible {
		total += maxUsed - records[i].TimesUsed + 1
	}
	target := e.rng.Int63n(total)
	for _, i := range eligible {
		target -= maxUsed - records[i].TimesUsed + 1
		if target < 0 {
			return i
		}
	}
	// Unreachable: the weights sum to total.
	return eligible[len(eligible)-1]
}

// pickLeastUsed picks uniformly among the eligible records sharing the
// minimum times_used.
func (e *Engine) pickLeastUsed(records []ImageRecord, eligible []int) int {
	minUsed := records[eligible[0]].TimesUsed
	for _, i := range eligible[1:] {
		if records[i].TimesUsed < minUsed {
			minUsed = records[i].TimesUsed
		}
	}
	var leastUsed []int
	for _, i := range eligible {
		if records[i].TimesUsed == minUsed {
			leastUsed = append(leastUsed, i)
		}
	}
	return leastUsed[e.rng.Intn(len(leastUsed))]
}

// Normalize subtracts the minimum times_used from every active,
// non-directory record, so the minimum lands back at zero. Hidden records
// are included on purpose: they stay in the same counting frame as their
// visible peers. TotalTimesUsed is untouched.
func Normalize(records []ImageRecord) {
	var minUsed int64 = -1
	for _, r := range records {
		if !r.Active || r.IsDirectory {
			continue
		}
		if minUsed == -1 || r.TimesUsed < minUsed {
			minUsed = r.TimesUsed
		}
	}
	if minUsed <= 0 {
		return
	}
	for i := range records {
		if records[i].Active && !records[i].IsDirectory {
			records[i].TimesUsed -= minUsed
		}
	}
}
