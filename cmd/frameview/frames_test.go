package main

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/choonkeat/frameview/cmd/frameview/selector"
)

// writePNG writes a solid w x h image to path
func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

// writeFrames creates frame files for the given indices in dir
func writeFrames(t *testing.T, dir string, indices ...int) {
	t.Helper()
	layout := selector.DefaultLayout()
	for _, i := range indices {
		writePNG(t, filepath.Join(dir, layout.FileName(i, selector.DefaultPadWidth)), 8, 4)
	}
}

func TestFrameStoreScan(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, 0, 1, 2, 5, 1000)
	// noise the store must ignore
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(dir, "frame_abc.png"), []byte("x"), 0644)
	os.Mkdir(filepath.Join(dir, "frame_777.png"), 0755)

	store := NewFrameStore(dir, selector.DefaultLayout())
	if err := store.Scan(); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if got := store.Count(); got != 5 {
		t.Errorf("Count() = %d, want 5", got)
	}
	if got := store.Max(); got != 1000 {
		t.Errorf("Max() = %d, want 1000", got)
	}
	if got, want := store.Indices(), []int{0, 1, 2, 5, 1000}; !reflect.DeepEqual(got, want) {
		t.Errorf("Indices() = %v, want %v", got, want)
	}
	if !store.Has(5) || store.Has(4) {
		t.Errorf("Has(5)=%v Has(4)=%v, want true/false", store.Has(5), store.Has(4))
	}
}

func TestFrameStoreEmpty(t *testing.T) {
	store := NewFrameStore(t.TempDir(), selector.DefaultLayout())
	if err := store.Scan(); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	summary := store.Summary()
	if summary.Max != -1 || summary.Count != 0 || len(summary.Gaps) != 0 {
		t.Errorf("Summary() = %+v, want max -1 and nothing else", summary)
	}
}

func TestFrameStoreScanMissingDir(t *testing.T) {
	store := NewFrameStore(filepath.Join(t.TempDir(), "nope"), selector.DefaultLayout())
	err := store.Scan()
	if err == nil {
		t.Fatal("Scan of a missing directory should fail")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Scan error should wrap os.ErrNotExist, got %v", err)
	}
}

func TestFrameStoreGaps(t *testing.T) {
	tests := []struct {
		name    string
		indices []int
		want    []int
	}{
		{"contiguous", []int{0, 1, 2}, nil},
		{"missing start", []int{2, 3}, []int{0, 1}},
		{"holes", []int{0, 3, 4, 7}, []int{1, 2, 5, 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFrames(t, dir, tt.indices...)
			store := NewFrameStore(dir, selector.DefaultLayout())
			if err := store.Scan(); err != nil {
				t.Fatalf("Scan: %v", err)
			}
			if got := store.Gaps(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Gaps() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFrameStoreFilePath(t *testing.T) {
	dir := t.TempDir()
	store := NewFrameStore(dir, selector.DefaultLayout())

	tests := []struct {
		name string
		ok   bool
	}{
		{"frame_001.png", true},
		{"frame_1000.png", true},
		{"../secret.png", false},
		{"frame_../x.png", false},
		{"frame_.png", false},
		{"other_001.png", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := store.FilePath(tt.name)
			if ok != tt.ok {
				t.Fatalf("FilePath(%q) ok = %v, want %v", tt.name, ok, tt.ok)
			}
			if ok && got != filepath.Join(dir, tt.name) {
				t.Errorf("FilePath(%q) = %q", tt.name, got)
			}
		})
	}
}

func TestFrameStoreWatch(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, 0)
	store := NewFrameStore(dir, selector.DefaultLayout())
	if err := store.Scan(); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan FrameSummary, 4)
	done := make(chan error, 1)
	go func() {
		done <- store.Watch(ctx, func(s FrameSummary) { changes <- s })
	}()

	// give the watcher time to register before writing
	time.Sleep(100 * time.Millisecond)
	writeFrames(t, dir, 1, 2)

	timeout := time.After(5 * time.Second)
	for s := (FrameSummary{}); s.Max != 2; {
		select {
		case s = <-changes:
			if s.Max == 2 && s.Count != 3 {
				t.Errorf("change = %+v, want max 2 count 3", s)
			}
		case <-timeout:
			t.Fatal("timed out waiting for frame change")
		}
	}

	if got := store.Max(); got != 2 {
		t.Errorf("Max() after watch = %d, want 2", got)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestFrameSummaryEqual(t *testing.T) {
	base := FrameSummary{Max: 5, Count: 4, Gaps: []int{3, 4}}
	tests := []struct {
		name  string
		other FrameSummary
		want  bool
	}{
		{"same", FrameSummary{Max: 5, Count: 4, Gaps: []int{3, 4}}, true},
		{"moved gap", FrameSummary{Max: 5, Count: 4, Gaps: []int{2, 4}}, false},
		{"more frames", FrameSummary{Max: 5, Count: 5, Gaps: []int{4}}, false},
		{"new max", FrameSummary{Max: 6, Count: 4, Gaps: []int{3, 4}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.Equal(tt.other); got != tt.want {
				t.Errorf("Equal(%+v) = %v, want %v", tt.other, got, tt.want)
			}
		})
	}
}

func TestFrameStoreWatchRename(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, 0, 1, 2, 5)
	store := NewFrameStore(dir, selector.DefaultLayout())
	if err := store.Scan(); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan FrameSummary, 4)
	go store.Watch(ctx, func(s FrameSummary) { changes <- s })
	time.Sleep(100 * time.Millisecond)

	// max and count stay the same, only the gap moves
	if err := os.Rename(filepath.Join(dir, "frame_002.png"), filepath.Join(dir, "frame_003.png")); err != nil {
		t.Fatalf("Rename: %v", err)
	}

	select {
	case s := <-changes:
		if s.Max != 5 || s.Count != 4 || !reflect.DeepEqual(s.Gaps, []int{2, 4}) {
			t.Errorf("change = %+v, want max 5 count 4 gaps [2 4]", s)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("onChange not called after rename; gaps now %v", store.Gaps())
	}
}
