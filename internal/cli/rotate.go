package cli

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wallshift/wallshift/internal/cluster"
	"github.com/wallshift/wallshift/internal/image"
	"github.com/wallshift/wallshift/internal/pixels"
	"github.com/wallshift/wallshift/internal/rotate"
	"github.com/wallshift/wallshift/internal/selection"
)

var (
	// Rotate command flags
	rotateInterval  time.Duration
	rotateStrategy  string
	rotateAlgorithm string
	rotateExec      string
	rotateNoWatch   bool
	rotateOnce      bool
)

// rotateCmd represents the rotate command
var rotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Rotate the wallpaper on a schedule",
	Long: `Rotate the wallpaper on a fixed interval.

Each rotation picks the next image from the catalog, works out its dominant
colours (using the catalog's colour cache when possible), and either prints
the result or runs a hook command with it. Followed folders are watched so
new image files join the catalog automatically.

The hook command receives the chosen image in $WALLSHIFT_IMAGE and the
ranked colours as space-separated hex codes in $WALLSHIFT_COLORS.

Examples:
  # Print a new wallpaper and its colours every 30 minutes
  wallshift rotate

  # Rotate every 10 minutes through a hook script
  wallshift rotate --interval 10m --exec 'set-wallpaper "$WALLSHIFT_IMAGE"'

  # One rotation, then exit
  wallshift rotate --once`,
	Args: cobra.NoArgs,
	RunE: runRotate,
}

func init() {
	rotateCmd.Flags().DurationVarP(&rotateInterval, "interval", "i", 30*time.Minute, "time between rotations")
	rotateCmd.Flags().StringVarP(&rotateStrategy, "strategy", "s", string(selection.UsageWeighted), "selection strategy (uniform, usage-weighted, least-used)")
	rotateCmd.Flags().StringVarP(&rotateAlgorithm, "algorithm", "a", string(cluster.AlgorithmKMeans), "clustering algorithm (kmeans, meanshift)")
	rotateCmd.Flags().StringVar(&rotateExec, "exec", "", "shell command to run for each rotation")
	rotateCmd.Flags().BoolVar(&rotateNoWatch, "no-watch", false, "do not watch followed folders for new images")
	rotateCmd.Flags().BoolVar(&rotateOnce, "once", false, "rotate once and exit")
}

// runRotate executes the rotate command.
func runRotate(cmd *cobra.Command, args []string) error {
	strategy, err := selection.ParseStrategy(rotateStrategy)
	if err != nil {
		return err
	}

	logger := newLogger(cmd)
	db, store, err := openStore(logger)
	if err != nil {
		return err
	}
	defer db.Close()

	params := cluster.DefaultParams(cluster.Algorithm(rotateAlgorithm))
	params.Logger = logger.Named("cluster")
	clusterer, err := cluster.New(params)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	cfg := rotate.DefaultConfig()
	cfg.Interval = rotateInterval
	cfg.Strategy = strategy
	cfg.PixelOptions = pixels.DefaultOptions()
	cfg.WatchFolders = !rotateNoWatch

	rotator := rotate.New(store, clusterer, image.NewFileLoader(), applier(), cfg, logger.Named("rotate"))

	if rotateOnce {
		return rotator.RotateOnce()
	}

	if err := rotator.Start(); err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")
	return rotator.Stop()
}

// applier builds the rotation sink: run the hook command if one was given,
// otherwise print the change to stdout.
func applier() rotate.Applier {
	return func(change rotate.Change) error {
		hexColors := make([]string, len(change.Colors))
		for i, c := range change.Colors {
			hexColors[i] = c.Hex()
		}
		if rotateExec == "" {
			fmt.Printf("%s %s\n", change.Filepath, strings.Join(hexColors, " "))
			return nil
		}
		hook := exec.Command("sh", "-c", rotateExec) // #nosec G204 - User-supplied hook command, intended to run
		hook.Env = append(os.Environ(),
			"WALLSHIFT_IMAGE="+change.Filepath,
			"WALLSHIFT_COLORS="+strings.Join(hexColors, " "),
		)
		hook.Stdout = os.Stdout
		hook.Stderr = os.Stderr
		if err := hook.Run(); err != nil {
			return fmt.Errorf("hook command failed: %w", err)
		}
		return nil
	}
}
