package cluster

import (
	"errors"
	"testing"

	"github.com/wallshift/wallshift/internal/pixels"
)

func TestMeanShiftEmptyInput(t *testing.T) {
	ms := &MeanShift{Radius: 30, Tolerance: 0.001, MaxIterations: 100}
	_, err := ms.Cluster(nil)
	if !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("Cluster(nil) error = %v, want ErrEmptyInput", err)
	}
}

func TestMeanShiftFindsBlobModes(t *testing.T) {
	// Two blobs of different sizes. The radius covers a whole blob but never
	// reaches across, so each seed climbs to its blob mean and claims it.
	big := []pixels.Pixel{
		{R: 8, G: 10, B: 12}, {R: 12, G: 10, B: 8}, {R: 10, G: 8, B: 12},
		{R: 10, G: 12, B: 8}, {R: 9, G: 10, B: 11}, {R: 11, G: 10, B: 9},
		{R: 10, G: 9, B: 11}, {R: 10, G: 11, B: 9},
	}
	small := []pixels.Pixel{
		{R: 198, G: 100, B: 52}, {R: 202, G: 100, B: 48},
		{R: 200, G: 98, B: 52}, {R: 200, G: 102, B: 48},
	}
	px := append(append([]pixels.Pixel{}, big...), small...)

	ms := &MeanShift{Radius: 30, Tolerance: 0.001, MaxIterations: 100}
	result, err := ms.Cluster(px)
	if err != nil {
		t.Fatalf("Cluster() unexpected error: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("Cluster() produced %d clusters, want 2", len(result))
	}

	// Larger cluster sorts first.
	if result[0].Count != len(big) || result[1].Count != len(small) {
		t.Fatalf("cluster counts = (%d, %d), want (%d, %d)",
			result[0].Count, result[1].Count, len(big), len(small))
	}
	wantBig := pixels.Pixel{R: 10, G: 10, B: 10}
	wantSmall := pixels.Pixel{R: 200, G: 100, B: 50}
	if result[0].Color != wantBig {
		t.Errorf("large cluster centre = %v, want %v", result[0].Color, wantBig)
	}
	if result[1].Color != wantSmall {
		t.Errorf("small cluster centre = %v, want %v", result[1].Color, wantSmall)
	}
}

func TestMeanShiftExhaustsWorkingSet(t *testing.T) {
	// Every pixel ends up counted in exactly one cluster, so the weights sum
	// to the input size.
	px := []pixels.Pixel{
		{R: 0, G: 0, B: 0}, {R: 2, G: 2, B: 2}, {R: 4, G: 4, B: 4},
		{R: 100, G: 0, B: 0}, {R: 104, G: 0, B: 0},
		{R: 0, G: 200, B: 0},
		{R: 240, G: 240, B: 240}, {R: 244, G: 244, B: 244},
	}

	ms := &MeanShift{Radius: 15, Tolerance: 0.001, MaxIterations: 100}
	result, err := ms.Cluster(px)
	if err != nil {
		t.Fatalf("Cluster() unexpected error: %v", err)
	}
	if got := result.TotalWeight(); got != len(px) {
		t.Errorf("TotalWeight() = %d, want %d", got, len(px))
	}
}

func TestMeanShiftTinyRadiusYieldsSingletons(t *testing.T) {
	// With a radius smaller than any pairwise distance, every point is its
	// own density peak.
	px := []pixels.Pixel{
		{R: 0, G: 0, B: 0},
		{R: 50, G: 50, B: 50},
		{R: 100, G: 100, B: 100},
	}

	ms := &MeanShift{Radius: 0.5, Tolerance: 0.001, MaxIterations: 100}
	result, err := ms.Cluster(px)
	if err != nil {
		t.Fatalf("Cluster() unexpected error: %v", err)
	}
	if len(result) != len(px) {
		t.Fatalf("Cluster() produced %d clusters, want %d", len(result), len(px))
	}
	for _, w := range result {
		if w.Count != 1 {
			t.Errorf("cluster %v has count %d, want 1", w.Color, w.Count)
		}
	}
}

func TestRemoveIndices(t *testing.T) {
	points := []point{
		{r: 0}, {r: 1}, {r: 2}, {r: 3}, {r: 4},
	}

	kept := removeIndices(points, []int{0, 2, 4})
	if len(kept) != 2 {
		t.Fatalf("removeIndices() kept %d points, want 2", len(kept))
	}
	if kept[0].r != 1 || kept[1].r != 3 {
		t.Errorf("removeIndices() kept %v, want points 1 and 3", kept)
	}
}
