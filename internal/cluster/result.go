package cluster

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/wallshift/wallshift/internal/pixels"
)

// Weighted pairs a representative colour with the number of pixels that
// backed it.
type Weighted struct {
	Color pixels.Pixel
	Count int
}

// Result is the ranked colour list produced by a Clusterer, ordered by
// descending count. Ties keep the order the clusters were finalised in.
type Result []Weighted

// sortByCount orders the result by descending count without disturbing the
// relative order of equal counts.
func (r Result) sortByCount() {
	sort.SliceStable(r, func(i, j int) bool {
		return r[i].Count > r[j].Count
	})
}

// Colors returns just the ranked colours.
func (r Result) Colors() []pixels.Pixel {
	colors := make([]pixels.Pixel, len(r))
	for i, w := range r {
		colors[i] = w.Color
	}
	return colors
}

// Hex returns the ranked colours as hex strings.
func (r Result) Hex() []string {
	hexColors := make([]string, len(r))
	for i, w := range r {
		hexColors[i] = w.Color.Hex()
	}
	return hexColors
}

// TotalWeight returns the number of pixels claimed across all clusters.
func (r Result) TotalWeight() int {
	total := 0
	for _, w := range r {
		total += w.Count
	}
	return total
}

// colorJSON is the JSON shape of a single ranked colour.
type colorJSON struct {
	Hex   string       `json:"hex"`
	RGB   pixels.Pixel `json:"rgb"`
	Count int          `json:"count"`
}

// resultJSON is the JSON shape of the whole result.
type resultJSON struct {
	Count  int         `json:"count"`
	Colors []colorJSON `json:"colors"`
}

// ToJSON renders the result as indented JSON.
func (r Result) ToJSON() ([]byte, error) {
	colors := make([]colorJSON, len(r))
	for i, w := range r {
		colors[i] = colorJSON{
			Hex:   w.Color.Hex(),
			RGB:   w.Color,
			Count: w.Count,
		}
	}
	return json.MarshalIndent(resultJSON{Count: len(r), Colors: colors}, "", "  ")
}

// String returns a human-readable representation of the result.
func (r Result) String() string {
	if len(r) == 0 {
		return "Empty result"
	}
	out := fmt.Sprintf("Result with %d colours:\n", len(r))
	for i, w := range r {
		out += fmt.Sprintf("  %2d: %s (%d pixels)\n", i+1, w.Color.Hex(), w.Count)
	}
	return out
}
