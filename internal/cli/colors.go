package cli

import (
	"fmt"
	"math/rand"
	"os"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wallshift/wallshift/internal/cluster"
	"github.com/wallshift/wallshift/internal/image"
	"github.com/wallshift/wallshift/internal/pixels"
)

var (
	// Colors command flags
	colorsAlgorithm      string
	colorsClusters       int
	colorsMaxIterations  int
	colorsConvergence    float64
	colorsPruneDistance  float64
	colorsRadius         float64
	colorsTolerance      float64
	colorsMaxDim         int
	colorsSubsample      int
	colorsWhiteExclusion float64
	colorsFormat         string
	colorsShowPreview    bool
	colorsSeed           int64
)

// colorsCmd represents the colors command
var colorsCmd = &cobra.Command{
	Use:   "colors <image>",
	Short: "Extract the dominant colours from an image",
	Long: `Extract a ranked list of dominant colours from an image.

Two clustering algorithms are available. K-means starts from a fixed
cluster count, drops clusters that attract no pixels, and prunes clusters
that converge too close together. Mean shift discovers the cluster count by
itself, claiming pixels around each density peak and removing them from
further consideration.

Supported image formats: JPEG, PNG, GIF, WebP

Examples:
  # Extract the 5 most dominant colours (default)
  wallshift colors wallpaper.jpg

  # Mean shift with a wider neighbourhood
  wallshift colors --algorithm meanshift --radius 40 wallpaper.png

  # JSON output including pixel counts
  wallshift colors --format json wallpaper.jpg

  # Keep blown-out whites in the population
  wallshift colors --white-exclusion 0 wallpaper.jpg`,
	Args: cobra.ExactArgs(1),
	RunE: runColors,
}

func init() {
	colorsCmd.Flags().StringVarP(&colorsAlgorithm, "algorithm", "a", string(cluster.AlgorithmKMeans), "clustering algorithm (kmeans, meanshift)")
	colorsCmd.Flags().IntVarP(&colorsClusters, "clusters", "k", 5, "initial cluster count (kmeans only)")
	colorsCmd.Flags().IntVar(&colorsMaxIterations, "max-iterations", 0, "iteration limit (default 10 kmeans, 100 meanshift)")
	colorsCmd.Flags().Float64Var(&colorsConvergence, "convergence-distance", 1.0, "centre movement below which kmeans converges")
	colorsCmd.Flags().Float64Var(&colorsPruneDistance, "prune-distance", 10.0, "merge kmeans centres closer than this, 0 disables")
	colorsCmd.Flags().Float64Var(&colorsRadius, "radius", 30, "neighbourhood radius (meanshift only)")
	colorsCmd.Flags().Float64Var(&colorsTolerance, "tolerance", 0.001, "centre movement below which a meanshift seed converges")
	colorsCmd.Flags().IntVar(&colorsMaxDim, "max-dim", 700, "downscale so the larger dimension fits this, 0 disables")
	colorsCmd.Flags().IntVar(&colorsSubsample, "subsample", 0, "cluster only this many randomly drawn pixels, 0 keeps all")
	colorsCmd.Flags().Float64Var(&colorsWhiteExclusion, "white-exclusion", 100, "drop pixels within this distance of pure white, 0 keeps all")
	colorsCmd.Flags().StringVarP(&colorsFormat, "format", "f", "hex", "output format (hex, rgb, json)")
	colorsCmd.Flags().BoolVar(&colorsShowPreview, "preview", false, "show colour swatches in the terminal")
	colorsCmd.Flags().Int64Var(&colorsSeed, "seed", 0, "random seed for reproducible runs, 0 picks one")
}

// runColors executes the colors command.
func runColors(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd)
	imagePath := args[0]

	params := cluster.DefaultParams(cluster.Algorithm(colorsAlgorithm))
	params.Algorithm = cluster.Algorithm(colorsAlgorithm)
	params.Clusters = colorsClusters
	if colorsMaxIterations > 0 {
		params.MaxIterations = colorsMaxIterations
	}
	params.ConvergenceDistance = colorsConvergence
	params.PruneDistance = colorsPruneDistance
	params.Radius = colorsRadius
	params.Tolerance = colorsTolerance
	params.Logger = logger.Named("cluster")

	var rng *rand.Rand
	if colorsSeed != 0 {
		rng = rand.New(rand.NewSource(colorsSeed))
		params.Rand = rng
	}

	clusterer, err := cluster.New(params)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	loader := image.NewFileLoader()
	img, err := loader.Load(imagePath)
	if err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}
	bounds := img.Bounds()
	logger.Debug("image loaded", "width", bounds.Dx(), "height", bounds.Dy())

	px := pixels.Prepare(img, pixels.Options{
		DownscaleMaxDim:        colorsMaxDim,
		SubsampleCount:         colorsSubsample,
		WhiteExclusionDistance: colorsWhiteExclusion,
	}, rng)
	logger.Debug("pixel population prepared", "pixels", len(px))

	result, err := clusterer.Cluster(px)
	if err != nil {
		return fmt.Errorf("failed to extract colours: %w", err)
	}
	logger.Debug("clustering finished", "colours", len(result))

	output, err := formatResult(result, colorsFormat, colorsShowPreview)
	if err != nil {
		return err
	}
	fmt.Print(output)
	return nil
}

// formatResult formats the ranked colours according to the selected format.
func formatResult(result cluster.Result, format string, showPreview bool) (string, error) {
	switch format {
	case "hex":
		var out strings.Builder
		for _, w := range result {
			if showPreview {
				out.WriteString(swatch(w.Color, 8) + " ")
			}
			out.WriteString(w.Color.Hex() + "\n")
		}
		return out.String(), nil
	case "rgb":
		var out strings.Builder
		for _, w := range result {
			if showPreview {
				out.WriteString(swatch(w.Color, 8) + " ")
			}
			out.WriteString(fmt.Sprintf("%s  %d pixels\n", w.Color.String(), w.Count))
		}
		return out.String(), nil
	case "json":
		data, err := result.ToJSON()
		if err != nil {
			return "", fmt.Errorf("failed to convert to JSON: %w", err)
		}
		return string(data) + "\n", nil
	default:
		return "", fmt.Errorf("unsupported format: %s (supported: hex, rgb, json)", format)
	}
}

// swatch renders a solid colour block with the hex code overlaid, choosing
// the text colour for contrast. Falls back to plain text off a TTY.
func swatch(p pixels.Pixel, width int) string {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return strings.Repeat(" ", width)
	}
	c := colorful.Color{R: float64(p.R) / 255, G: float64(p.G) / 255, B: float64(p.B) / 255}
	_, _, lightness := c.Hsl()
	var fg string
	if lightness > 0.5 {
		fg = "\033[38;2;0;0;0m"
	} else {
		fg = "\033[38;2;255;255;255m"
	}
	bg := fmt.Sprintf("\033[48;2;%d;%d;%dm", p.R, p.G, p.B)
	text := p.Hex()
	if len(text) > width {
		text = text[:width]
	} else if len(text) < width {
		pad := width - len(text)
		text = strings.Repeat(" ", pad/2) + text + strings.Repeat(" ", pad-pad/2)
	}
	return bg + fg + text + "\033[0m"
}
