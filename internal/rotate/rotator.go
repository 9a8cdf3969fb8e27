// Package rotate drives the periodic wallpaper rotation: pick an image,
// work out its dominant colours, and hand both to the applier.
package rotate

import (
	"fmt"
	goimage "image"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"
	"github.com/hashicorp/go-hclog"

	"github.com/wallshift/wallshift/internal/catalog"
	"github.com/wallshift/wallshift/internal/cluster"
	wimage "github.com/wallshift/wallshift/internal/image"
	"github.com/wallshift/wallshift/internal/pixels"
	"github.com/wallshift/wallshift/internal/selection"
)

// Change is one rotation outcome: the chosen image and its ranked colours
// for the surrounding background and padding.
type Change struct {
	Filepath string
	Colors   []pixels.Pixel
}

// Applier consumes a rotation outcome. The compositor or a user hook lives
// behind this.
type Applier func(Change) error

// Config controls the rotation loop.
type Config struct {
	Interval       time.Duration
	Strategy       selection.Strategy
	PixelOptions   pixels.Options
	Fallback       pixels.Pixel
	MaxPickRetries int
	WatchFolders   bool
}

// DefaultConfig returns the rotation defaults.
func DefaultConfig() Config {
	return Config{
		Interval:       30 * time.Minute,
		Strategy:       selection.UsageWeighted,
		PixelOptions:   pixels.DefaultOptions(),
		Fallback:       pixels.Pixel{},
		MaxPickRetries: 5,
		WatchFolders:   true,
	}
}

// Rotator owns the rotation schedule and the followed-folder watcher.
type Rotator struct {
	store     *catalog.Store
	clusterer cluster.Clusterer
	loader    wimage.Loader
	apply     Applier
	cfg       Config
	log       hclog.Logger
	rng       *rand.Rand

	scheduler gocron.Scheduler
	watcher   *fsnotify.Watcher
	done      chan struct{}
}

// New creates a Rotator.
func New(store *catalog.Store, clusterer cluster.Clusterer, loader wimage.Loader,
	apply Applier, cfg Config, logger hclog.Logger) *Rotator {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if cfg.MaxPickRetries < 1 {
		cfg.MaxPickRetries = 1
	}
	return &Rotator{
		store:     store,
		clusterer: clusterer,
		loader:    loader,
		apply:     apply,
		cfg:       cfg,
		log:       logger,
		rng:       rand.New(rand.NewSource(rand.Int63())),
		done:      make(chan struct{}),
	}
}

// Start begins the rotation schedule and, if configured, the folder
// watcher. The first rotation happens immediately.
func (r *Rotator) Start() error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(r.cfg.Interval),
		gocron.NewTask(r.tick),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule rotation: %w", err)
	}
	r.scheduler = scheduler
	scheduler.Start()
	r.log.Info("rotation started", "interval", r.cfg.Interval.String(), "strategy", string(r.cfg.Strategy))

	if r.cfg.WatchFolders {
		if err := r.startWatcher(); err != nil {
			// The watcher is a convenience; rotation works without it.
			r.log.Warn("folder watcher unavailable", "error", err)
		}
	}
	return nil
}

// Stop shuts the schedule and watcher down.
func (r *Rotator) Stop() error {
	close(r.done)
	if r.watcher != nil {
		if err := r.watcher.Close(); err != nil {
			r.log.Warn("failed to close watcher", "error", err)
		}
	}
	if r.scheduler != nil {
		return r.scheduler.Shutdown()
	}
	return nil
}

func (r *Rotator) tick() {
	if err := r.RotateOnce(); err != nil {
		r.log.Error("rotation failed", "error", err)
	}
}

// RotateOnce performs a single rotation. Images that fail to load are
// skipped and picking retries; clustering failures fall back to the default
// colour so rotation never stalls on a bad image.
func (r *Rotator) RotateOnce() error {
	var (
		path string
		img  goimage.Image
	)
	for attempt := 0; attempt < r.cfg.MaxPickRetries; attempt++ {
		p, err := r.store.Pick(r.cfg.Strategy, true)
		if err != nil {
			return err
		}
		img, err = r.loader.Load(p)
		if err != nil {
			r.log.Warn("skipping unloadable image", "filepath", p, "error", err)
			continue
		}
		path = p
		break
	}
	if path == "" {
		return fmt.Errorf("no loadable image after %d picks", r.cfg.MaxPickRetries)
	}

	change := Change{Filepath: path, Colors: r.colorsFor(path, img)}
	if err := r.apply(change); err != nil {
		return fmt.Errorf("failed to apply change: %w", err)
	}
	r.log.Info("rotated wallpaper", "filepath", path, "colors", len(change.Colors))
	return nil
}

// colorsFor returns the ranked colours for an image, consulting the catalog
// cache before clustering.
func (r *Rotator) colorsFor(path string, img goimage.Image) []pixels.Pixel {
	if cached, err := r.store.CachedColors(path); err != nil {
		r.log.Warn("colour cache read failed", "filepath", path, "error", err)
	} else if len(cached) > 0 {
		r.log.Debug("colour cache hit", "filepath", path)
		return cached
	}

	px := pixels.Prepare(img, r.cfg.PixelOptions, r.rng)
	result, err := r.clusterer.Cluster(px)
	if err != nil {
		r.log.Warn("clustering failed, using fallback colour", "filepath", path, "error", err)
		return []pixels.Pixel{r.cfg.Fallback}
	}
	colors := result.Colors()
	if err := r.store.SetCachedColors(path, colors); err != nil {
		r.log.Warn("colour cache write failed", "filepath", path, "error", err)
	}
	return colors
}

// startWatcher watches followed folders and keeps the catalog in sync:
// new image files are registered as ephemeral records, removed ones hidden.
func (r *Rotator) startWatcher() error {
	folders, err := r.store.ActiveFolders()
	if err != nil {
		return err
	}
	if len(folders) == 0 {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, f := range folders {
		if err := watcher.Add(f.Path); err != nil {
			r.log.Warn("failed to watch folder", "path", f.Path, "error", err)
			continue
		}
		if f.IncludeSubdirectories {
			r.watchSubdirectories(watcher, f.Path)
		}
	}
	r.watcher = watcher
	go r.watchLoop()
	r.log.Info("watching folders", "count", len(folders))
	return nil
}

func (r *Rotator) watchSubdirectories(watcher *fsnotify.Watcher, root string) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		sub := filepath.Join(root, entry.Name())
		if err := watcher.Add(sub); err != nil {
			r.log.Warn("failed to watch subfolder", "path", sub, "error", err)
			continue
		}
		r.watchSubdirectories(watcher, sub)
	}
}

func (r *Rotator) watchLoop() {
	for {
		select {
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			r.handleEvent(event)
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.log.Warn("watcher error", "error", err)
		case <-r.done:
			return
		}
	}
}

// handleEvent applies a single filesystem event to the catalog.
func (r *Rotator) handleEvent(event fsnotify.Event) {
	if !wimage.IsImageFile(event.Name) {
		return
	}
	switch {
	case event.Op.Has(fsnotify.Create):
		if err := r.store.AddImages([]string{event.Name}, true); err != nil {
			r.log.Warn("failed to register new image", "filepath", event.Name, "error", err)
			return
		}
		r.log.Info("registered new image", "filepath", event.Name)
	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		if err := r.store.HideImages([]string{event.Name}); err != nil {
			r.log.Warn("failed to hide removed image", "filepath", event.Name, "error", err)
			return
		}
		r.log.Info("hid removed image", "filepath", event.Name)
	}
}
