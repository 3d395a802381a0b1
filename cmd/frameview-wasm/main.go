//go:build js && wasm

// frameview-wasm binds the viewer slider in the browser. The frameview
// server embeds it after `go generate ./cmd/frameview`, which runs:
//
//	GOOS=js GOARCH=wasm go build -o static/wasm/frameview.wasm ../frameview-wasm
package main

import (
	"strconv"
	"syscall/js"

	"github.com/choonkeat/frameview/cmd/frameview/selector"
)

func main() {
	document := js.Global().Get("document")
	console := js.Global().Get("console")

	ids := selector.DefaultIDs()
	layout := selector.DefaultLayout()

	// The host script tag may override ids and layout via data-* attributes.
	if script := document.Call("querySelector", "script[data-frameview]"); !script.IsNull() {
		data := script.Get("dataset")
		override := func(key string, dst *string) {
			if v := data.Get(key); !v.IsUndefined() && v.String() != "" {
				*dst = v.String()
			}
		}
		override("slider", &ids.Slider)
		override("image", &ids.Image)
		override("label", &ids.Label)
		override("base", &layout.Base)
		if v := data.Get("pad"); !v.IsUndefined() {
			if v.String() == "auto" {
				layout.AutoPad = true
			} else if n, err := strconv.Atoi(v.String()); err == nil && n > 0 {
				layout.PadWidth = n
			}
		}
	}

	if _, err := selector.Bind(document, ids, selector.WithLayout(layout)); err != nil {
		console.Call("warn", "frameview: "+err.Error())
		return
	}
	// viewer.js stops resolving slider input itself once this is set.
	js.Global().Set("frameviewBound", true)

	select {}
}
