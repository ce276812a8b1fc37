package state

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAbsentFileReturnsZero(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "nested", "daily_sends.json"))

	d, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if d.Date != "" || d.Count != 0 {
		t.Fatalf("expected zero value, got %+v", d)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "daily_sends.json"))

	if err := store.Save(DailySends{Date: "2026-03-14", Count: 3}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	d, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if d.Date != "2026-03-14" || d.Count != 3 {
		t.Fatalf("round trip mismatch: %+v", d)
	}
}

func TestSaveOverwritesAndLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "daily_sends.json")
	store := New(path)

	if err := store.Save(DailySends{Date: "2026-03-14", Count: 1}); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}
	if err := store.Save(DailySends{Date: "2026-03-14", Count: 2}); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	d, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if d.Count != 2 {
		t.Fatalf("count = %d, want 2", d.Count)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("temp file left behind")
	}
}

func TestLoadCorruptFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daily_sends.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	if _, err := New(path).Load(); err == nil {
		t.Fatal("expected an error for corrupt state")
	}
}

func TestCountForOtherDateIsZero(t *testing.T) {
	d := DailySends{Date: "2026-03-14", Count: 9}
	if got := d.CountFor("2026-03-15"); got != 0 {
		t.Fatalf("CountFor = %d, want 0 after rollover", got)
	}
	if got := d.CountFor("2026-03-14"); got != 9 {
		t.Fatalf("CountFor = %d, want 9 for same date", got)
	}
}
