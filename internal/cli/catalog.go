package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wallshift/wallshift/internal/catalog"
	"github.com/wallshift/wallshift/internal/image"
)

// catalogCmd groups the catalog maintenance commands.
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the image catalog",
	Long: `Manage the image catalog: register images and folders, toggle their
activity, and inspect usage counters.`,
}

var catalogAddCmd = &cobra.Command{
	Use:   "add <image>...",
	Short: "Register image files in the catalog",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger(cmd)
		db, store, err := openStore(logger)
		if err != nil {
			return err
		}
		defer db.Close()

		var paths []string
		for _, p := range args {
			if !image.IsImageFile(p) {
				logger.Warn("skipping unsupported file", "filepath", p)
				continue
			}
			paths = append(paths, p)
		}
		if len(paths) == 0 {
			return fmt.Errorf("no supported image files given")
		}
		if err := store.AddImages(paths, false); err != nil {
			return err
		}
		fmt.Printf("Added %d image(s) to %q\n", len(paths), store.ListName())
		return nil
	},
}

var catalogAddDirIncludeSub bool

var catalogAddDirCmd = &cobra.Command{
	Use:   "add-dir <directory>",
	Short: "Follow a directory of images",
	Long: `Follow a directory: its image files are registered immediately and the
rotate command keeps watching it for new ones.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger(cmd)
		db, store, err := openStore(logger)
		if err != nil {
			return err
		}
		defer db.Close()

		dir := args[0]
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("failed to access directory: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("not a directory: %s", dir)
		}
		if err := store.AddDirectory(dir, catalogAddDirIncludeSub); err != nil {
			return err
		}
		found, err := image.ScanDirectory(dir, catalogAddDirIncludeSub)
		if err != nil {
			return err
		}
		if len(found) > 0 {
			if err := store.AddImages(found, true); err != nil {
				return err
			}
		}
		fmt.Printf("Following %s (%d image(s) registered)\n", dir, len(found))
		return nil
	},
}

var catalogSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Rescan followed directories",
	Long:  `Rescan every followed directory and register any image files found.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger(cmd)
		db, store, err := openStore(logger)
		if err != nil {
			return err
		}
		defer db.Close()

		folders, err := store.ActiveFolders()
		if err != nil {
			return err
		}
		total := 0
		for _, f := range folders {
			found, err := image.ScanDirectory(f.Path, f.IncludeSubdirectories)
			if err != nil {
				logger.Warn("failed to scan folder", "path", f.Path, "error", err)
				continue
			}
			if len(found) == 0 {
				continue
			}
			if err := store.AddImages(found, true); err != nil {
				return err
			}
			total += len(found)
		}
		fmt.Printf("Synced %d folder(s), %d image(s) registered\n", len(folders), total)
		return nil
	},
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog records with their usage counters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger(cmd)
		db, store, err := openStore(logger)
		if err != nil {
			return err
		}
		defer db.Close()

		records, err := store.ListAll()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "FILEPATH\tACTIVE\tHIDDEN\tUSED\tTOTAL")
		for _, r := range records {
			fmt.Fprintf(w, "%s\t%t\t%t\t%d\t%d\n",
				r.Filepath, r.Active, r.Hidden, r.TimesUsed, r.TotalTimesUsed)
		}
		return w.Flush()
	},
}

var catalogListsCmd = &cobra.Command{
	Use:   "lists",
	Short: "Show all file lists in the catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger(cmd)
		path, err := databasePath()
		if err != nil {
			return err
		}
		db, err := catalog.Open(path, logger)
		if err != nil {
			return err
		}
		defer db.Close()

		names, err := db.FileLists()
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

var catalogHideCmd = &cobra.Command{
	Use:   "hide <image>...",
	Short: "Hide images from selection without losing their history",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(store *catalog.Store) error {
			return store.HideImages(args)
		})
	},
}

var catalogActivateCmd = &cobra.Command{
	Use:   "activate <image>",
	Short: "Mark an image as active",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(store *catalog.Store) error {
			return store.SetActive(args[0], true)
		})
	},
}

var catalogDeactivateCmd = &cobra.Command{
	Use:   "deactivate <image>",
	Short: "Mark an image as inactive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(store *catalog.Store) error {
			return store.SetActive(args[0], false)
		})
	},
}

var catalogUnfollowCmd = &cobra.Command{
	Use:   "unfollow <directory>",
	Short: "Stop following a directory",
	Long: `Stop following a directory: the folder record is removed and every image
that was auto-registered from it is culled. Images added by hand keep their
records and history.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(store *catalog.Store) error {
			if err := store.Delete(args[0]); err != nil {
				return err
			}
			return store.RemoveEphemeralInFolder(args[0])
		})
	},
}

var catalogRemoveCmd = &cobra.Command{
	Use:   "remove <image>",
	Short: "Delete an image record from the catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(store *catalog.Store) error {
			return store.Delete(args[0])
		})
	},
}

// withStore runs fn against the selected file list's store.
func withStore(cmd *cobra.Command, fn func(*catalog.Store) error) error {
	db, store, err := openStore(newLogger(cmd))
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(store)
}

func init() {
	catalogAddDirCmd.Flags().BoolVarP(&catalogAddDirIncludeSub, "include-subdirectories", "r", true, "also register images in subdirectories")

	catalogCmd.AddCommand(catalogAddCmd)
	catalogCmd.AddCommand(catalogAddDirCmd)
	catalogCmd.AddCommand(catalogSyncCmd)
	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogListsCmd)
	catalogCmd.AddCommand(catalogHideCmd)
	catalogCmd.AddCommand(catalogActivateCmd)
	catalogCmd.AddCommand(catalogDeactivateCmd)
	catalogCmd.AddCommand(catalogUnfollowCmd)
	catalogCmd.AddCommand(catalogRemoveCmd)
}
