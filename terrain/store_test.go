package terrain

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	if _, _, _, err := s.LoadHeights("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	heights := []float32{0.1, 0.2, 0.3, 0.4}
	if err := s.SaveHeights("a", 2, 2, heights); err != nil {
		t.Fatal(err)
	}
	heights[0] = 9 // store must keep its own copy

	w, h, got, err := s.LoadHeights("a")
	if err != nil {
		t.Fatal(err)
	}
	if w != 2 || h != 2 || got[0] != 0.1 || got[3] != 0.4 {
		t.Errorf("loaded %dx%d %v", w, h, got)
	}
	if s.Saves("a") != 1 {
		t.Errorf("saves = %d", s.Saves("a"))
	}
}

func TestSQLStore(t *testing.T) {
	s, err := OpenSQLStore(filepath.Join(t.TempDir(), "heights.db"))
	if err != nil {
		t.Fatalf("OpenSQLStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if _, _, _, err := s.LoadHeights("field"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if rev, err := s.Revision("field"); err != nil || rev != 0 {
		t.Errorf("Revision before save = %d, %v", rev, err)
	}

	if err := s.SaveHeights("field", 2, 2, []float32{1, 2, 3, 4}); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := s.SaveHeights("field", 2, 2, []float32{4, 3, 2, 1}); err != nil {
		t.Fatalf("second save: %v", err)
	}

	w, h, got, err := s.LoadHeights("field")
	if err != nil {
		t.Fatal(err)
	}
	if w != 2 || h != 2 {
		t.Errorf("dims = %dx%d", w, h)
	}
	want := []float32{4, 3, 2, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if rev, err := s.Revision("field"); err != nil || rev != 2 {
		t.Errorf("Revision = %d, %v; want 2", rev, err)
	}
}

func TestGridPersistsThroughSQLStore(t *testing.T) {
	s, err := OpenSQLStore(filepath.Join(t.TempDir(), "grid.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })

	g := newTestGrid(t, 24, s)
	g.Set(12, 12, 1.5)
	if err := g.Save(); err != nil {
		t.Fatal(err)
	}
	_, _, got, err := s.LoadHeights("test")
	if err != nil {
		t.Fatal(err)
	}
	// Height scale is 2, so the raw value is 0.75.
	if got[12*24+12] != 0.75 {
		t.Errorf("persisted raw height = %v, want 0.75", got[12*24+12])
	}
}
