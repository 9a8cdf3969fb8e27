// Package cli provides the command-line interface for wallshift.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/wallshift/wallshift/internal/catalog"
	"github.com/wallshift/wallshift/internal/version"
)

var (
	// Global flags
	globalDatabase string
	globalList     string

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "wallshift",
		Short: "A catalog-driven wallpaper rotator",
		Long: `Wallshift rotates desktop wallpapers from a curated catalog, tracking how
often each image has been shown and extracting each image's dominant colours
so the surrounding background and padding can be tinted to match.

Images are organised into file lists stored in a local SQLite catalog. The
next wallpaper is chosen uniformly, weighted towards less-used images, or
strictly from the least-used ones.`,
		Version:      version.Short(),
		SilenceUsage: true,
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&globalDatabase, "database", "", "catalog database path (default: user config dir)")
	rootCmd.PersistentFlags().StringVarP(&globalList, "list", "l", "Default", "file list to operate on")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress non-error output")

	// Set version template
	rootCmd.SetVersionTemplate(version.String() + "\n")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(colorsCmd)
	rootCmd.AddCommand(rotateCmd)
	rootCmd.AddCommand(catalogCmd)
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print detailed version information including build date, commit hash, and Go version.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.String())
	},
}

// newLogger builds the hclog logger for a command run, honouring the
// verbose/quiet flags.
func newLogger(cmd *cobra.Command) hclog.Logger {
	level := hclog.Info
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = hclog.Debug
	}
	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		level = hclog.Error
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "wallshift",
		Level:  level,
		Output: os.Stderr,
	})
}

// databasePath resolves the catalog database location, creating its parent
// directory when falling back to the user config dir.
func databasePath() (string, error) {
	if globalDatabase != "" {
		return globalDatabase, nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve config directory: %w", err)
	}
	dir := filepath.Join(configDir, "wallshift")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return filepath.Join(dir, "catalog.db"), nil
}

// openStore opens the catalog database and the selected file list.
// The caller closes the returned DB.
func openStore(logger hclog.Logger) (*catalog.DB, *catalog.Store, error) {
	path, err := databasePath()
	if err != nil {
		return nil, nil, err
	}
	db, err := catalog.Open(path, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	store, err := db.OpenList(globalList)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to open file list %q: %w", globalList, err)
	}
	return db, store, nil
}
