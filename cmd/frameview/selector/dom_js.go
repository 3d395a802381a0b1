//go:build js && wasm

package selector

import (
	"fmt"
	"syscall/js"
)

// Element adapts a DOM element to the Slider, ImageSurface and LabelSurface
// interfaces.
type Element struct {
	v js.Value
}

// Value returns the element's value property, "" when unset.
func (e Element) Value() string {
	return stringProp(e.v, "value")
}

// Max returns the element's max property, "" when unset.
func (e Element) Max() string {
	return stringProp(e.v, "max")
}

// SetSource assigns the element's src.
func (e Element) SetSource(path string) {
	e.v.Set("src", path)
}

// SetText replaces the element's text content.
func (e Element) SetText(text string) {
	e.v.Set("textContent", text)
}

func stringProp(v js.Value, name string) string {
	p := v.Get(name)
	if p.IsUndefined() || p.IsNull() {
		return ""
	}
	return p.String()
}

// IDs names the three host elements.
type IDs struct {
	Slider string
	Image  string
	Label  string
}

// DefaultIDs are the element ids used by the viewer page.
func DefaultIDs() IDs {
	return IDs{
		Slider: "timeSlider",
		Image:  "simulationImage",
		Label:  "frameNumber",
	}
}

// Binding is a FrameSelector attached to live DOM elements.
type Binding struct {
	*FrameSelector
	slider   js.Value
	listener js.Func
}

// Bind looks the elements up in document, initializes the selector and
// registers an input listener on the slider.
func Bind(document js.Value, ids IDs, opts ...Option) (*Binding, error) {
	lookup := func(id string) (js.Value, error) {
		el := document.Call("getElementById", id)
		if el.IsNull() || el.IsUndefined() {
			return js.Value{}, fmt.Errorf("element #%s not found", id)
		}
		return el, nil
	}

	slider, err := lookup(ids.Slider)
	if err != nil {
		return nil, err
	}
	image, err := lookup(ids.Image)
	if err != nil {
		return nil, err
	}
	label, err := lookup(ids.Label)
	if err != nil {
		return nil, err
	}

	b := &Binding{
		FrameSelector: New(Element{slider}, Element{image}, Element{label}, opts...),
		slider:        slider,
	}
	b.listener = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		// Unparsable values are dropped; the control only emits numbers.
		b.OnValueChange(stringProp(this, "value"))
		return nil
	})
	b.Initialize()
	slider.Call("addEventListener", "input", b.listener)
	return b, nil
}

// Release detaches the listener and frees the callback.
func (b *Binding) Release() {
	b.slider.Call("removeEventListener", "input", b.listener)
	b.listener.Release()
}
