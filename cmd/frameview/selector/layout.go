// Package selector maps a slider value to a frame image path and label.
//
// The mapping is a pure function of the value: parse it, zero-pad it into a
// token, and substitute the token into a file name template. FrameSelector
// wires that function to three injected surfaces so any host (the browser
// DOM under js/wasm, a test stub) can drive it.
package selector

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultBase is the frame directory relative to the viewer page.
	DefaultBase = "../frames"
	// DefaultPrefix and DefaultExt frame the token in a file name.
	DefaultPrefix = "frame_"
	DefaultExt    = ".png"
	// DefaultPadWidth matches the simulator writing frame_{step:03d}.png.
	DefaultPadWidth = 3
)

// ErrInvalidValue is returned when a slider value is not a base-10 integer.
var ErrInvalidValue = errors.New("invalid frame value")

// Layout describes how frame files are named and where they live.
type Layout struct {
	Base     string `json:"base"` // directory reference, no trailing slash
	Prefix   string `json:"prefix"`
	Ext      string `json:"ext"`
	PadWidth int    `json:"padWidth"`
	// AutoPad widens the pad to the digit count of the slider maximum.
	AutoPad bool `json:"autoPad"`
}

// Update is the result of resolving one slider value.
type Update struct {
	Index int    `json:"index"`
	Token string `json:"token"`
	Path  string `json:"path"`
	Label string `json:"label"`
}

// DefaultLayout returns ../frames/frame_NNN.png with a fixed width of 3.
func DefaultLayout() Layout {
	return Layout{
		Base:     DefaultBase,
		Prefix:   DefaultPrefix,
		Ext:      DefaultExt,
		PadWidth: DefaultPadWidth,
	}
}

// PadToken left-pads the decimal form of index with '0' up to width.
// Wider values are returned as is.
func PadToken(index, width int) string {
	s := strconv.Itoa(index)
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

// WidthFor returns the pad width to use for a slider whose maximum is max.
func (l Layout) WidthFor(max int) int {
	width := l.PadWidth
	if width < 1 {
		width = DefaultPadWidth
	}
	if l.AutoPad && max > 0 {
		if digits := len(strconv.Itoa(max)); digits > width {
			width = digits
		}
	}
	return width
}

// FileName returns the bare file name of a frame.
func (l Layout) FileName(index, width int) string {
	return l.Prefix + PadToken(index, width) + l.Ext
}

// Path returns the frame reference assigned to the image surface.
func (l Layout) Path(index, width int) string {
	if l.Base == "" {
		return l.FileName(index, width)
	}
	return l.Base + "/" + l.FileName(index, width)
}

// ParseFileName reports the frame index encoded in name. Any number of
// digits is accepted so that frame_1000.png follows frame_999.png.
func (l Layout) ParseFileName(name string) (int, bool) {
	if len(name) <= len(l.Prefix)+len(l.Ext) {
		return 0, false
	}
	if !strings.HasPrefix(name, l.Prefix) || !strings.HasSuffix(name, l.Ext) {
		return 0, false
	}
	digits := name[len(l.Prefix) : len(name)-len(l.Ext)]
	for _, c := range digits {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	index, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return index, true
}

// Resolve turns a raw slider value into the path and label to display.
// No bounds check is made: the control's min/max/step define the range.
func (l Layout) Resolve(value string, width int) (Update, error) {
	index, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return Update{}, fmt.Errorf("%w: %q", ErrInvalidValue, value)
	}
	return Update{
		Index: index,
		Token: PadToken(index, width),
		Path:  l.Path(index, width),
		Label: strconv.Itoa(index),
	}, nil
}
