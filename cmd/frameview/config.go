package main

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/choonkeat/frameview/cmd/frameview/selector"
)

// Config holds the settings of the serve and list commands
type Config struct {
	Addr       string
	FramesDir  string
	Layout     selector.Layout
	Initial    int // -1 means the first frame on disk
	SessionTTL time.Duration
	TLS        bool
	TLSHost    string
	Password   string
	Title      string
	Thumbs     bool
}

// defaultConfig returns the settings used when no flag or env var is given
func defaultConfig() Config {
	return Config{
		Addr:       ":8080",
		FramesDir:  "frames",
		Layout:     selector.DefaultLayout(),
		Initial:    -1,
		SessionTTL: time.Hour,
		Title:      "frameview",
		Thumbs:     true,
	}
}

// parsePad accepts a positive width or "auto"
func parsePad(value string, layout *selector.Layout) error {
	if value == "auto" {
		layout.AutoPad = true
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return fmt.Errorf("invalid --pad %q: want a positive number or \"auto\"", value)
	}
	layout.PadWidth = n
	layout.AutoPad = false
	return nil
}

// padSetting renders the layout's pad choice the way --pad accepts it
func padSetting(layout selector.Layout) string {
	if layout.AutoPad {
		return "auto"
	}
	return strconv.Itoa(layout.PadWidth)
}

// parseConfig reads flags for the named command. Environment variables
// override defaults; flags override both.
func parseConfig(command string, args []string, getenv func(string) string, output io.Writer) (Config, error) {
	cfg := defaultConfig()

	if port := getenv("PORT"); port != "" {
		cfg.Addr = ":" + port
	}
	if dir := getenv("FRAMEVIEW_FRAMES_DIR"); dir != "" {
		cfg.FramesDir = dir
	}
	cfg.Password = getenv("FRAMEVIEW_PASSWORD")

	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&cfg.FramesDir, "frames", cfg.FramesDir, "Directory holding frame_NNN.png files")
	pad := fs.String("pad", padSetting(cfg.Layout), "Zero-pad width of frame numbers, or \"auto\" to follow the last frame")

	if command == "serve" {
		fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "Listen address")
		fs.IntVar(&cfg.Initial, "initial", cfg.Initial, "Frame shown on page load (default: first frame on disk)")
		fs.DurationVar(&cfg.SessionTTL, "session-ttl", cfg.SessionTTL, "How long a viewer session outlives its last tab")
		fs.BoolVar(&cfg.TLS, "tls", cfg.TLS, "Serve HTTPS with a self-signed certificate")
		fs.StringVar(&cfg.TLSHost, "tls-host", cfg.TLSHost, "Extra hostname or IP for the self-signed certificate")
		fs.StringVar(&cfg.Title, "title", cfg.Title, "Page title")
		fs.BoolVar(&cfg.Thumbs, "thumbs", cfg.Thumbs, "Show thumbnail previews when hovering the slider")
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if err := parsePad(*pad, &cfg.Layout); err != nil {
		return Config{}, err
	}
	if cfg.SessionTTL <= 0 {
		return Config{}, fmt.Errorf("invalid --session-ttl %v: must be positive", cfg.SessionTTL)
	}

	dir, err := resolveFramesDir(cfg.FramesDir)
	if err != nil {
		return Config{}, err
	}
	cfg.FramesDir = dir
	return cfg, nil
}
