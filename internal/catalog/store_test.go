package catalog

import (
	"errors"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"

	"github.com/wallshift/wallshift/internal/pixels"
	"github.com/wallshift/wallshift/internal/selection"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "catalog.db"), hclog.NewNullLogger())
	if err != nil {
		t.Fatalf("Open() unexpected error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := db.OpenList("Test")
	if err != nil {
		t.Fatalf("OpenList() unexpected error: %v", err)
	}
	store.rng = rand.New(rand.NewSource(1))
	return store
}

func mustAdd(t *testing.T, s *Store, paths ...string) {
	t.Helper()
	if err := s.AddImages(paths, false); err != nil {
		t.Fatalf("AddImages() unexpected error: %v", err)
	}
}

func TestOpenListCreatesTablePerList(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "catalog.db"), hclog.NewNullLogger())
	if err != nil {
		t.Fatalf("Open() unexpected error: %v", err)
	}
	defer db.Close()

	a, err := db.OpenList("Nature Shots")
	if err != nil {
		t.Fatalf("OpenList() unexpected error: %v", err)
	}
	b, err := db.OpenList("Default")
	if err != nil {
		t.Fatalf("OpenList() unexpected error: %v", err)
	}
	if a.tableID == b.tableID {
		t.Fatalf("two lists share table %q", a.tableID)
	}

	// Reopening binds to the existing table instead of creating a new one.
	again, err := db.OpenList("Nature Shots")
	if err != nil {
		t.Fatalf("OpenList() reopen unexpected error: %v", err)
	}
	if again.tableID != a.tableID {
		t.Errorf("reopened list got table %q, want %q", again.tableID, a.tableID)
	}

	names, err := db.FileLists()
	if err != nil {
		t.Fatalf("FileLists() unexpected error: %v", err)
	}
	if len(names) != 2 || names[0] != "Default" || names[1] != "Nature Shots" {
		t.Errorf("FileLists() = %v, want [Default, Nature Shots]", names)
	}
}

func TestAddImagesAndListEligible(t *testing.T) {
	store := testStore(t)
	mustAdd(t, store, "/pics/a.jpg", "/pics/b.jpg")

	records, err := store.ListEligible()
	if err != nil {
		t.Fatalf("ListEligible() unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("ListEligible() returned %d records, want 2", len(records))
	}
	for _, r := range records {
		if !r.Active || r.Hidden || r.IsDirectory {
			t.Errorf("new record has unexpected flags: %+v", r)
		}
		if r.TimesUsed != 0 || r.TotalTimesUsed != 0 {
			t.Errorf("new record has nonzero counters: %+v", r)
		}
	}

	n, err := store.ActiveCount()
	if err != nil {
		t.Fatalf("ActiveCount() unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("ActiveCount() = %d, want 2", n)
	}
}

func TestAddImagesUnhidesOnConflict(t *testing.T) {
	store := testStore(t)
	mustAdd(t, store, "/pics/a.jpg")
	if err := store.HideImages([]string{"/pics/a.jpg"}); err != nil {
		t.Fatalf("HideImages() unexpected error: %v", err)
	}
	if n, _ := store.ActiveCount(); n != 0 {
		t.Fatalf("hidden image still counted as eligible")
	}

	// Re-adding an existing path clears the hidden flag.
	mustAdd(t, store, "/pics/a.jpg")
	if n, _ := store.ActiveCount(); n != 1 {
		t.Errorf("re-added image not unhidden")
	}
}

func TestAddImagesNormalizesPaths(t *testing.T) {
	store := testStore(t)
	mustAdd(t, store, `C:\pics\a.jpg`)

	records, err := store.ListAll()
	if err != nil {
		t.Fatalf("ListAll() unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].Filepath != "C:/pics/a.jpg" {
		t.Errorf("ListAll() = %+v, want forward-slash path", records)
	}

	// Lookups with the original spelling still hit the record.
	if err := store.HideImages([]string{`C:\pics\a.jpg`}); err != nil {
		t.Fatalf("HideImages() unexpected error: %v", err)
	}
	if n, _ := store.ActiveCount(); n != 0 {
		t.Error("backslash lookup missed the normalized record")
	}
}

func TestSetActiveFiltersSelection(t *testing.T) {
	store := testStore(t)
	mustAdd(t, store, "/pics/a.jpg", "/pics/b.jpg")

	if err := store.SetActive("/pics/a.jpg", false); err != nil {
		t.Fatalf("SetActive() unexpected error: %v", err)
	}
	records, err := store.ListEligible()
	if err != nil {
		t.Fatalf("ListEligible() unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].Filepath != "/pics/b.jpg" {
		t.Fatalf("ListEligible() after deactivate = %+v", records)
	}

	if err := store.SetActive("/pics/a.jpg", true); err != nil {
		t.Fatalf("SetActive() unexpected error: %v", err)
	}
	if n, _ := store.ActiveCount(); n != 2 {
		t.Error("reactivated image not eligible again")
	}
}

func TestDelete(t *testing.T) {
	store := testStore(t)
	mustAdd(t, store, "/pics/a.jpg")

	if err := store.Delete("/pics/a.jpg"); err != nil {
		t.Fatalf("Delete() unexpected error: %v", err)
	}
	records, err := store.ListAll()
	if err != nil {
		t.Fatalf("ListAll() unexpected error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("record survived Delete(): %+v", records)
	}
}

func TestPickEmptyList(t *testing.T) {
	store := testStore(t)
	_, err := store.Pick(selection.Uniform, true)
	if !errors.Is(err, selection.ErrEmptyCatalog) {
		t.Fatalf("Pick() error = %v, want ErrEmptyCatalog", err)
	}
}

func TestPickPersistsCountersAndNormalizes(t *testing.T) {
	store := testStore(t)
	mustAdd(t, store, "/pics/a.jpg", "/pics/b.jpg", "/pics/c.jpg")

	for i := 0; i < 20; i++ {
		if _, err := store.Pick(selection.UsageWeighted, true); err != nil {
			t.Fatalf("Pick() unexpected error: %v", err)
		}

		records, err := store.ListAll()
		if err != nil {
			t.Fatalf("ListAll() unexpected error: %v", err)
		}
		minUsed := records[0].TimesUsed
		var lifetime int64
		for _, r := range records {
			if r.TimesUsed < minUsed {
				minUsed = r.TimesUsed
			}
			if r.TimesUsed < 0 {
				t.Fatalf("times_used went negative: %+v", r)
			}
			lifetime += r.TotalTimesUsed
		}
		if minUsed != 0 {
			t.Fatalf("min(times_used) after pick %d = %d, want 0", i, minUsed)
		}
		if lifetime != int64(i+1) {
			t.Fatalf("sum(total_times_used) after pick %d = %d, want %d", i, lifetime, i+1)
		}
	}
}

func TestPickPreviewLeavesLifetimeCounters(t *testing.T) {
	store := testStore(t)
	mustAdd(t, store, "/pics/a.jpg", "/pics/b.jpg")

	if _, err := store.Pick(selection.Uniform, false); err != nil {
		t.Fatalf("Pick() unexpected error: %v", err)
	}

	records, err := store.ListAll()
	if err != nil {
		t.Fatalf("ListAll() unexpected error: %v", err)
	}
	for _, r := range records {
		if r.TimesUsed != 0 || r.TotalTimesUsed != 0 {
			t.Errorf("preview pick touched counters: %+v", r)
		}
	}
}

func TestPickSkipsHiddenAndDirectories(t *testing.T) {
	store := testStore(t)
	mustAdd(t, store, "/pics/a.jpg", "/pics/hidden.jpg")
	if err := store.AddDirectory("/pics", true); err != nil {
		t.Fatalf("AddDirectory() unexpected error: %v", err)
	}
	if err := store.HideImages([]string{"/pics/hidden.jpg"}); err != nil {
		t.Fatalf("HideImages() unexpected error: %v", err)
	}

	for i := 0; i < 10; i++ {
		got, err := store.Pick(selection.Uniform, true)
		if err != nil {
			t.Fatalf("Pick() unexpected error: %v", err)
		}
		if got != "/pics/a.jpg" {
			t.Fatalf("Pick() chose ineligible record %q", got)
		}
	}
}

func TestActiveFolders(t *testing.T) {
	store := testStore(t)
	if err := store.AddDirectory("/pics/nature", true); err != nil {
		t.Fatalf("AddDirectory() unexpected error: %v", err)
	}
	if err := store.AddDirectory("/pics/flat", false); err != nil {
		t.Fatalf("AddDirectory() unexpected error: %v", err)
	}

	folders, err := store.ActiveFolders()
	if err != nil {
		t.Fatalf("ActiveFolders() unexpected error: %v", err)
	}
	if len(folders) != 2 {
		t.Fatalf("ActiveFolders() returned %d folders, want 2", len(folders))
	}
	byPath := make(map[string]bool)
	for _, f := range folders {
		byPath[f.Path] = f.IncludeSubdirectories
	}
	if !byPath["/pics/nature"] || byPath["/pics/flat"] {
		t.Errorf("folder recursion flags wrong: %v", byPath)
	}
}

func TestRemoveEphemeralInFolder(t *testing.T) {
	store := testStore(t)
	// Curated image in the same folder must survive the cull.
	mustAdd(t, store, "/pics/nature/keep.jpg")
	if err := store.AddImages([]string{"/pics/nature/auto.jpg"}, true); err != nil {
		t.Fatalf("AddImages() unexpected error: %v", err)
	}
	if err := store.AddImages([]string{"/pics/city/auto.jpg"}, true); err != nil {
		t.Fatalf("AddImages() unexpected error: %v", err)
	}

	if err := store.RemoveEphemeralInFolder("/pics/nature"); err != nil {
		t.Fatalf("RemoveEphemeralInFolder() unexpected error: %v", err)
	}

	records, err := store.ListAll()
	if err != nil {
		t.Fatalf("ListAll() unexpected error: %v", err)
	}
	paths := make(map[string]bool)
	for _, r := range records {
		paths[r.Filepath] = true
	}
	if !paths["/pics/nature/keep.jpg"] {
		t.Error("curated image was culled with the ephemerals")
	}
	if paths["/pics/nature/auto.jpg"] {
		t.Error("ephemeral image in folder survived the cull")
	}
	if !paths["/pics/city/auto.jpg"] {
		t.Error("ephemeral image outside the folder was culled")
	}
}

func TestColorCacheRoundTrip(t *testing.T) {
	store := testStore(t)
	mustAdd(t, store, "/pics/a.jpg")

	// Nothing cached yet.
	colors, err := store.CachedColors("/pics/a.jpg")
	if err != nil {
		t.Fatalf("CachedColors() unexpected error: %v", err)
	}
	if colors != nil {
		t.Fatalf("CachedColors() on fresh record = %v, want nil", colors)
	}

	want := []pixels.Pixel{
		{R: 10, G: 20, B: 30},
		{R: 200, G: 100, B: 50},
	}
	if err := store.SetCachedColors("/pics/a.jpg", want); err != nil {
		t.Fatalf("SetCachedColors() unexpected error: %v", err)
	}

	got, err := store.CachedColors("/pics/a.jpg")
	if err != nil {
		t.Fatalf("CachedColors() unexpected error: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("CachedColors() returned %d colours, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("cached colour %d = %v, want %v", i, got[i], want[i])
		}
	}

	// Unknown paths report an empty cache, not an error.
	colors, err = store.CachedColors("/pics/missing.jpg")
	if err != nil {
		t.Fatalf("CachedColors() on missing record unexpected error: %v", err)
	}
	if colors != nil {
		t.Errorf("CachedColors() on missing record = %v, want nil", colors)
	}
}
