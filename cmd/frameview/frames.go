package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/choonkeat/frameview/cmd/frameview/selector"
	"github.com/fsnotify/fsnotify"
)

// FrameSummary describes the frames currently on disk
type FrameSummary struct {
	Max   int   `json:"max"`
	Count int   `json:"count"`
	Gaps  []int `json:"gaps,omitempty"`
}

// Equal reports whether both summaries describe the same frames
func (s FrameSummary) Equal(other FrameSummary) bool {
	return s.Max == other.Max && s.Count == other.Count && slices.Equal(s.Gaps, other.Gaps)
}

// FrameStore indexes the frame files of one directory
type FrameStore struct {
	dir     string
	layout  selector.Layout
	mu      sync.RWMutex
	indices []int // sorted, unique
}

// NewFrameStore creates a store for dir. Call Scan to populate it.
func NewFrameStore(dir string, layout selector.Layout) *FrameStore {
	return &FrameStore{
		dir:    dir,
		layout: layout,
	}
}

// Dir returns the frames directory
func (st *FrameStore) Dir() string {
	return st.dir
}

// Scan re-reads the directory listing
func (st *FrameStore) Scan() error {
	entries, err := os.ReadDir(st.dir)
	if err != nil {
		return fmt.Errorf("failed to read frames directory %q: %w", st.dir, err)
	}

	var indices []int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if index, ok := st.layout.ParseFileName(entry.Name()); ok {
			indices = append(indices, index)
		}
	}
	slices.Sort(indices)
	indices = slices.Compact(indices)

	st.mu.Lock()
	st.indices = indices
	st.mu.Unlock()
	return nil
}

// Max returns the highest frame index, or -1 when there are no frames
func (st *FrameStore) Max() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if len(st.indices) == 0 {
		return -1
	}
	return st.indices[len(st.indices)-1]
}

// Count returns the number of frame files found
func (st *FrameStore) Count() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.indices)
}

// Indices returns a copy of the sorted frame indices
func (st *FrameStore) Indices() []int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return slices.Clone(st.indices)
}

// Has reports whether a frame with the given index exists
func (st *FrameStore) Has(index int) bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	_, found := slices.BinarySearch(st.indices, index)
	return found
}

// Gaps returns the indices in [0, Max] with no file
func (st *FrameStore) Gaps() []int {
	st.mu.RLock()
	defer st.mu.RUnlock()

	var gaps []int
	next := 0
	for _, index := range st.indices {
		for ; next < index; next++ {
			gaps = append(gaps, next)
		}
		next = index + 1
	}
	return gaps
}

// Summary snapshots max, count and gaps
func (st *FrameStore) Summary() FrameSummary {
	return FrameSummary{
		Max:   st.Max(),
		Count: st.Count(),
		Gaps:  st.Gaps(),
	}
}

// FilePath returns the on-disk path of the frame file name.
// Names that do not follow the layout are rejected.
func (st *FrameStore) FilePath(name string) (string, bool) {
	if _, ok := st.layout.ParseFileName(name); !ok {
		return "", false
	}
	return filepath.Join(st.dir, name), true
}

// Watch rescans whenever a frame file is created, removed or renamed and
// calls onChange if the summary (max, count or gaps) changed. It returns when ctx is done.
func (st *FrameStore) Watch(ctx context.Context, onChange func(FrameSummary)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(st.dir); err != nil {
		return fmt.Errorf("failed to watch %q: %w", st.dir, err)
	}
	log.Printf("[FRAMES] Watching %s", st.dir)

	// A simulator writes frames in bursts; coalesce events before rescanning.
	const settle = 100 * time.Millisecond
	var pending <-chan time.Time
	last := st.Summary()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			if _, ok := st.layout.ParseFileName(filepath.Base(event.Name)); !ok {
				continue
			}
			if pending == nil {
				pending = time.After(settle)
			}
		case <-pending:
			pending = nil
			if err := st.Scan(); err != nil {
				log.Printf("[FRAMES] Rescan failed: %v", err)
				continue
			}
			summary := st.Summary()
			if summary.Equal(last) {
				continue
			}
			last = summary
			log.Printf("[FRAMES] %d frames, max=%d", summary.Count, summary.Max)
			if onChange != nil {
				onChange(summary)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("[FRAMES] Watcher error: %v", err)
		}
	}
}
