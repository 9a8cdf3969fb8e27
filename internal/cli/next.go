package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wallshift/wallshift/internal/selection"
)

var (
	// Next command flags
	nextStrategy string
	nextPreview  bool
)

// nextCmd represents the next command
var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Pick the next wallpaper from the catalog",
	Long: `Pick the next wallpaper filepath from the catalog and print it.

The pick updates the chosen image's usage counters and renormalises the
windowed counters unless --preview is given, which leaves the counters of
the chosen image alone (useful for test-wallpaper modes).

Strategies:
  uniform          every eligible image is equally likely
  usage-weighted   less-used images are weighted more heavily
  least-used       only images tied for the fewest uses are considered

Examples:
  # Pick with the default usage weighting
  wallshift next

  # Pick uniformly from the "Nature" list without counting the pick
  wallshift next --list Nature --strategy uniform --preview`,
	Args: cobra.NoArgs,
	RunE: runNext,
}

func init() {
	nextCmd.Flags().StringVarP(&nextStrategy, "strategy", "s", string(selection.UsageWeighted), "selection strategy (uniform, usage-weighted, least-used)")
	nextCmd.Flags().BoolVarP(&nextPreview, "preview", "p", false, "do not count this pick against the image")
}

// runNext executes the next command.
func runNext(cmd *cobra.Command, args []string) error {
	strategy, err := selection.ParseStrategy(nextStrategy)
	if err != nil {
		return err
	}
	increment := !nextPreview

	logger := newLogger(cmd)
	db, store, err := openStore(logger)
	if err != nil {
		return err
	}
	defer db.Close()

	filepath, err := store.Pick(strategy, increment)
	if err != nil {
		return err
	}
	fmt.Println(filepath)
	return nil
}
