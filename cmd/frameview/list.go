package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// handleList prints a summary of the frames directory
func handleList(args []string) {
	cfg, err := parseConfig("list", args, os.Getenv, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		log.Fatalf("Invalid options: %v", err)
	}

	store := NewFrameStore(cfg.FramesDir, cfg.Layout)
	if err := store.Scan(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Printf("No frames directory at %s\n", cfg.FramesDir)
			return
		}
		log.Fatalf("Failed to scan frames: %v", err)
	}

	printSummary(os.Stdout, store, cfg)
}

// printSummary writes count, range, pad width and gaps of the store
func printSummary(w io.Writer, store *FrameStore, cfg Config) {
	summary := store.Summary()
	if summary.Count == 0 {
		fmt.Fprintf(w, "No frames in %s\n", store.Dir())
		return
	}

	width := cfg.Layout.WidthFor(summary.Max)
	fmt.Fprintf(w, "Frames in %s (%d):\n", store.Dir(), summary.Count)
	fmt.Fprintf(w, "  first: %s\n", cfg.Layout.FileName(store.Indices()[0], width))
	fmt.Fprintf(w, "  last:  %s\n", cfg.Layout.FileName(summary.Max, width))
	fmt.Fprintf(w, "  slider: 0..%d (pad %d)\n", summary.Max, width)

	if len(summary.Gaps) == 0 {
		return
	}
	fmt.Fprintf(w, "  missing (%d): %s\n", len(summary.Gaps), formatRanges(summary.Gaps))
}

// formatRanges renders sorted indices compactly: 3, 7-9, 12
func formatRanges(indices []int) string {
	var parts []string
	for i := 0; i < len(indices); {
		j := i
		for j+1 < len(indices) && indices[j+1] == indices[j]+1 {
			j++
		}
		if i == j {
			parts = append(parts, fmt.Sprintf("%d", indices[i]))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", indices[i], indices[j]))
		}
		i = j + 1
	}
	return strings.Join(parts, ", ")
}
