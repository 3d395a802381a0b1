package selector

import "strconv"

// Slider is a range input: its current value and declared maximum.
type Slider interface {
	Value() string
	Max() string
}

// ImageSurface displays the resource at a source reference.
type ImageSurface interface {
	SetSource(path string)
}

// LabelSurface displays a line of text.
type LabelSurface interface {
	SetText(text string)
}

// Option configures a FrameSelector.
type Option func(*FrameSelector)

// WithLayout replaces DefaultLayout.
func WithLayout(l Layout) Option {
	return func(s *FrameSelector) {
		s.layout = l
	}
}

// FrameSelector keeps an image surface and a label in step with a slider.
// It holds no per-event state; every change is resolved from the value alone.
type FrameSelector struct {
	slider Slider
	image  ImageSurface
	label  LabelSurface
	layout Layout
	max    int
	width  int
}

// New binds the three surfaces. Call Initialize before the first event.
func New(slider Slider, image ImageSurface, label LabelSurface, opts ...Option) *FrameSelector {
	s := &FrameSelector{
		slider: slider,
		image:  image,
		label:  label,
		layout: DefaultLayout(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.width = s.layout.WidthFor(0)
	return s
}

// Initialize copies the slider's starting value, verbatim, into the label.
// The image surface is left alone: the host markup shows the first frame.
func (s *FrameSelector) Initialize() {
	s.max = -1
	if n, err := strconv.Atoi(s.slider.Max()); err == nil {
		s.max = n
	}
	s.width = s.layout.WidthFor(s.max)
	s.label.SetText(s.slider.Value())
}

// OnValueChange points the image at the frame for value and mirrors the
// unpadded index into the label. An unparsable value leaves both surfaces
// untouched.
func (s *FrameSelector) OnValueChange(value string) (Update, error) {
	u, err := s.Resolve(value)
	if err != nil {
		return Update{}, err
	}
	s.image.SetSource(u.Path)
	s.label.SetText(u.Label)
	return u, nil
}

// Resolve maps value to an Update without touching any surface.
func (s *FrameSelector) Resolve(value string) (Update, error) {
	return s.layout.Resolve(value, s.width)
}

// Max is the slider maximum read by Initialize, or -1 if it was not a number.
func (s *FrameSelector) Max() int {
	return s.max
}

// Layout returns the layout in use.
func (s *FrameSelector) Layout() Layout {
	return s.layout
}
