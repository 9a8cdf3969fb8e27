package pixels

import (
	"image"
	"image/color"
	"math/rand"
	"testing"
)

func TestPixelHex(t *testing.T) {
	tests := []struct {
		pixel Pixel
		want  string
	}{
		{pixel: Pixel{R: 0, G: 0, B: 0}, want: "#000000"},
		{pixel: Pixel{R: 255, G: 255, B: 255}, want: "#ffffff"},
		{pixel: Pixel{R: 26, G: 43, B: 60}, want: "#1a2b3c"},
	}
	for _, tt := range tests {
		if got := tt.pixel.Hex(); got != tt.want {
			t.Errorf("%v.Hex() = %q, want %q", tt.pixel, got, tt.want)
		}
	}
}

func TestDistanceTo(t *testing.T) {
	a := Pixel{R: 0, G: 0, B: 0}
	b := Pixel{R: 3, G: 4, B: 0}
	if got := a.DistanceTo(b); got != 5 {
		t.Errorf("DistanceTo() = %g, want 5", got)
	}
	if got := a.DistanceTo(a); got != 0 {
		t.Errorf("DistanceTo(self) = %g, want 0", got)
	}
}

func TestFromImageFlattensAgainstWhite(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	// Fully transparent pixel becomes pure white.
	img.SetNRGBA(0, 0, color.NRGBA{R: 200, G: 10, B: 10, A: 0})
	// Opaque pixel keeps its colour.
	img.SetNRGBA(1, 0, color.NRGBA{R: 200, G: 10, B: 10, A: 255})

	px := FromImage(img)
	if len(px) != 2 {
		t.Fatalf("FromImage() returned %d pixels, want 2", len(px))
	}
	if px[0] != White {
		t.Errorf("transparent pixel flattened to %v, want white", px[0])
	}
	if px[1] != (Pixel{R: 200, G: 10, B: 10}) {
		t.Errorf("opaque pixel = %v, want rgb(200, 10, 10)", px[1])
	}
}

func TestFromImagePartialAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	// 50% black over white should land mid-grey.
	img.SetNRGBA(0, 0, color.NRGBA{R: 0, G: 0, B: 0, A: 128})

	px := FromImage(img)
	p := px[0]
	if p.R < 120 || p.R > 135 || p.R != p.G || p.G != p.B {
		t.Errorf("half-transparent black flattened to %v, want mid-grey", p)
	}
}

func TestDownscale(t *testing.T) {
	large := image.NewRGBA(image.Rect(0, 0, 1000, 500))
	got := Downscale(large, 200)
	bounds := got.Bounds()
	if bounds.Dx() != 200 || bounds.Dy() != 100 {
		t.Errorf("Downscale() bounds = %dx%d, want 200x100", bounds.Dx(), bounds.Dy())
	}

	// Images already within bounds come back untouched.
	small := image.NewRGBA(image.Rect(0, 0, 100, 50))
	if got := Downscale(small, 200); got != image.Image(small) {
		t.Error("Downscale() resized an image already within bounds")
	}
}

func TestSubsample(t *testing.T) {
	px := make([]Pixel, 100)
	for i := range px {
		px[i] = Pixel{R: uint8(i)}
	}
	rng := rand.New(rand.NewSource(7))

	got := Subsample(px, 10, rng)
	if len(got) != 10 {
		t.Fatalf("Subsample() returned %d pixels, want 10", len(got))
	}
	// Without replacement: no red value can repeat.
	seen := make(map[uint8]bool)
	for _, p := range got {
		if seen[p.R] {
			t.Fatalf("Subsample() drew pixel %v twice", p)
		}
		seen[p.R] = true
	}
}

func TestSubsampleKeepsSmallPopulations(t *testing.T) {
	px := []Pixel{{R: 1}, {R: 2}}
	rng := rand.New(rand.NewSource(7))

	if got := Subsample(px, 2, rng); len(got) != 2 {
		t.Errorf("Subsample(n == len) returned %d pixels, want 2", len(got))
	}
	if got := Subsample(px, 10, rng); len(got) != 2 {
		t.Errorf("Subsample(n > len) returned %d pixels, want 2", len(got))
	}
	if got := Subsample(px, 0, rng); len(got) != 2 {
		t.Errorf("Subsample(0) returned %d pixels, want 2", len(got))
	}
}

func TestExcludeNearWhite(t *testing.T) {
	px := []Pixel{
		{R: 255, G: 255, B: 255}, // distance 0, dropped
		{R: 250, G: 250, B: 250}, // distance ~8.7, dropped
		{R: 0, G: 0, B: 0},       // far away, kept
		{R: 200, G: 200, B: 200}, // distance ~95, kept at threshold 50
	}

	got := ExcludeNearWhite(px, 50)
	if len(got) != 2 {
		t.Fatalf("ExcludeNearWhite() kept %d pixels, want 2", len(got))
	}

	// Filtering is idempotent: a second pass removes nothing.
	again := ExcludeNearWhite(got, 50)
	if len(again) != len(got) {
		t.Errorf("second ExcludeNearWhite() pass removed %d pixels", len(got)-len(again))
	}
}

func TestExcludeNearWhiteKeepsBoundary(t *testing.T) {
	// A pixel exactly at the threshold distance survives.
	px := []Pixel{{R: 255, G: 255, B: 245}} // distance 10 from white
	if got := ExcludeNearWhite(px, 10); len(got) != 1 {
		t.Error("pixel exactly at the exclusion distance was dropped")
	}
	if got := ExcludeNearWhite(px, 10.5); len(got) != 0 {
		t.Error("pixel inside the exclusion distance was kept")
	}
}

func TestExcludeNearWhiteDisabled(t *testing.T) {
	px := []Pixel{White}
	if got := ExcludeNearWhite(px, 0); len(got) != 1 {
		t.Error("ExcludeNearWhite(0) filtered pixels while disabled")
	}
}

func TestPrepare(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 30, G: 60, B: 90, A: 255})
		}
	}
	// Two white pixels that the exclusion pass must drop.
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	opts := Options{
		DownscaleMaxDim:        0,
		SubsampleCount:         0,
		WhiteExclusionDistance: 100,
	}
	px := Prepare(img, opts, rand.New(rand.NewSource(1)))
	if len(px) != 14 {
		t.Fatalf("Prepare() returned %d pixels, want 14", len(px))
	}
	for _, p := range px {
		if p != (Pixel{R: 30, G: 60, B: 90}) {
			t.Fatalf("Prepare() kept unexpected pixel %v", p)
		}
	}
}
