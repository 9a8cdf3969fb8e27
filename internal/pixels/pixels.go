// Package pixels converts decoded images into flat pixel populations
// suitable for clustering.
package pixels

import (
	"fmt"
	"image"
	"math"
	"math/rand"

	"github.com/disintegration/imaging"
)

// Pixel is an RGB colour value. Transparency is flattened away before
// pixels reach this package's consumers.
type Pixel struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// String returns the pixel as a string in the format "rgb(r, g, b)".
func (p Pixel) String() string {
	return fmt.Sprintf("rgb(%d, %d, %d)", p.R, p.G, p.B)
}

// Hex returns the pixel as a hex string (e.g., "#1a2b3c").
func (p Pixel) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", p.R, p.G, p.B)
}

// White is the reference pixel used by ExcludeNearWhite.
var White = Pixel{R: 255, G: 255, B: 255}

// DistanceTo returns the Euclidean distance between two pixels in RGB space.
func (p Pixel) DistanceTo(other Pixel) float64 {
	dr := float64(p.R) - float64(other.R)
	dg := float64(p.G) - float64(other.G)
	db := float64(p.B) - float64(other.B)
	return math.Sqrt(dr*dr + dg*dg + db*db)
}

// Options controls how an image is turned into a pixel population.
type Options struct {
	// DownscaleMaxDim shrinks the image so its larger dimension does not
	// exceed this value before sampling. Zero or negative disables it.
	// Images are never upscaled.
	DownscaleMaxDim int

	// SubsampleCount draws this many pixels uniformly without replacement
	// from the flattened population. Zero or negative keeps every pixel.
	SubsampleCount int

	// WhiteExclusionDistance drops pixels closer than this Euclidean
	// distance to pure white. Zero or negative keeps every pixel.
	WhiteExclusionDistance float64
}

// DefaultOptions returns the options used by the rotation loop.
func DefaultOptions() Options {
	return Options{
		DownscaleMaxDim:        700,
		SubsampleCount:         0,
		WhiteExclusionDistance: 100,
	}
}

// Prepare runs the full pipeline: optional downscale, transparency
// flattening, optional subsample, optional white exclusion.
func Prepare(img image.Image, opts Options, rng *rand.Rand) []Pixel {
	if opts.DownscaleMaxDim > 0 {
		img = Downscale(img, opts.DownscaleMaxDim)
	}
	px := FromImage(img)
	if opts.SubsampleCount > 0 {
		px = Subsample(px, opts.SubsampleCount, rng)
	}
	if opts.WhiteExclusionDistance > 0 {
		px = ExcludeNearWhite(px, opts.WhiteExclusionDistance)
	}
	return px
}

// FromImage flattens an image into a pixel slice, compositing any
// transparency against a white background.
func FromImage(img image.Image) []Pixel {
	bounds := img.Bounds()
	out := make([]Pixel, 0, bounds.Dx()*bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			// RGBA returns alpha-premultiplied 16-bit components, so
			// compositing over white is component + (0xffff - alpha).
			r, g, b, a := img.At(x, y).RGBA()
			inv := 0xffff - a
			out = append(out, Pixel{
				R: clamp16(r + inv),
				G: clamp16(g + inv),
				B: clamp16(b + inv),
			})
		}
	}
	return out
}

func clamp16(v uint32) uint8 {
	if v > 0xffff {
		v = 0xffff
	}
	return uint8(v >> 8)
}

// Downscale resizes the image so the larger dimension matches maxDim while
// keeping the aspect ratio. Images already within bounds are returned as-is.
func Downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	if bounds.Dx() <= maxDim && bounds.Dy() <= maxDim {
		return img
	}
	return imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
}

// Subsample draws n pixels uniformly without replacement. If n is not
// smaller than the population, the input is returned unchanged.
func Subsample(px []Pixel, n int, rng *rand.Rand) []Pixel {
	if n <= 0 || n >= len(px) {
		return px
	}
	out := make([]Pixel, n)
	for i, idx := range rng.Perm(len(px))[:n] {
		out[i] = px[idx]
	}
	return out
}

// ExcludeNearWhite drops pixels within dist of pure white. Blown-out
// backgrounds otherwise dominate the clustering. Applying it twice with the
// same threshold is a no-op the second time.
func ExcludeNearWhite(px []Pixel, dist float64) []Pixel {
	if dist <= 0 {
		return px
	}
	out := make([]Pixel, 0, len(px))
	for _, p := range px {
		if p.DistanceTo(White) >= dist {
			out = append(out, p)
		}
	}
	return out
}
