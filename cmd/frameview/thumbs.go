package main

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/image/draw"
)

const (
	DefaultThumbWidth = 160
	MinThumbWidth     = 16
	MaxThumbWidth     = 640
)

// ErrNotFrame is returned for names outside the frame layout
var ErrNotFrame = errors.New("not a frame file")

// Thumbnailer renders scaled-down copies of frames for slider previews
type Thumbnailer struct {
	store *FrameStore
	cache *cache.Cache
}

// NewThumbnailer caches rendered thumbnails for ttl
func NewThumbnailer(store *FrameStore, ttl time.Duration) *Thumbnailer {
	return &Thumbnailer{
		store: store,
		cache: cache.New(ttl, 2*ttl),
	}
}

// clampThumbWidth keeps requested widths within the supported range
func clampThumbWidth(width int) int {
	if width <= 0 {
		return DefaultThumbWidth
	}
	if width < MinThumbWidth {
		return MinThumbWidth
	}
	if width > MaxThumbWidth {
		return MaxThumbWidth
	}
	return width
}

// Thumbnail returns the PNG bytes of frame name scaled to width.
// Frames narrower than width are re-encoded at their own size.
func (t *Thumbnailer) Thumbnail(name string, width int) ([]byte, error) {
	filePath, ok := t.store.FilePath(name)
	if !ok {
		return nil, ErrNotFrame
	}
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, err
	}

	width = clampThumbWidth(width)
	// mtime in the key: a rewritten frame gets a fresh thumbnail
	key := fmt.Sprintf("%s@%d@%d", name, width, info.ModTime().UnixNano())
	if cached, found := t.cache.Get(key); found {
		return cached.([]byte), nil
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, scaleToWidth(src, width)); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail of %s: %w", name, err)
	}

	data := buf.Bytes()
	t.cache.Set(key, data, cache.DefaultExpiration)
	return data, nil
}

// CachedCount returns the number of thumbnails held in memory
func (t *Thumbnailer) CachedCount() int {
	return t.cache.ItemCount()
}

func scaleToWidth(src image.Image, width int) image.Image {
	b := src.Bounds()
	if b.Dx() <= width || b.Dx() == 0 {
		width = b.Dx()
	}
	height := 1
	if b.Dx() > 0 {
		height = max(b.Dy()*width/b.Dx(), 1)
	}
	dst := image.NewRGBA(image.Rect(0, 0, max(width, 1), height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}
