//go:generate sh -c "GOOS=js GOARCH=wasm go build -o static/wasm/frameview.wasm ../frameview-wasm"
//go:generate sh -c "cp \"$(go env GOROOT)/lib/wasm/wasm_exec.js\" static/wasm/ 2>/dev/null || cp \"$(go env GOROOT)/misc/wasm/wasm_exec.js\" static/wasm/"

package main

import (
	"crypto/sha1"
	"embed"
	"encoding/hex"
	"io/fs"
	"path"
	"strings"
)

//go:embed index.html.tmpl
var indexTemplate string

// static/wasm holds frameview.wasm and wasm_exec.js after go generate.
// Without them the page falls back to the viewer.js slider binding.
//
//go:embed static/css/*.css static/js/*.js static/wasm/*
var staticFiles embed.FS

// Asset keys looked up by the page
const (
	cssAsset      = "css/viewer.css"
	jsAsset       = "js/viewer.js"
	wasmAsset     = "wasm/frameview.wasm"
	wasmExecAsset = "wasm/wasm_exec.js"
)

// contentTypes lists the servable asset extensions
var contentTypes = map[string]string{
	".css":  "text/css; charset=utf-8",
	".js":   "application/javascript; charset=utf-8",
	".wasm": "application/wasm",
}

// AssetInfo holds the content-hashed URL of an embedded asset
type AssetInfo struct {
	Path string
	Hash string
}

// staticFS returns the embedded static directory as its own root
func staticFS() fs.FS {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// getAssetHash returns the first 8 hex chars of the SHA1 of data
func getAssetHash(data []byte) string {
	hash := sha1.Sum(data)
	return hex.EncodeToString(hash[:])[:8]
}

// getStaticAssets maps "css/viewer.css" style paths to their hashed names
func getStaticAssets(fsys fs.FS) (map[string]AssetInfo, error) {
	assets := make(map[string]AssetInfo)

	err := fs.WalkDir(fsys, ".", func(filePath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := path.Ext(filePath)
		if _, ok := contentTypes[ext]; !ok {
			return nil
		}

		content, err := fs.ReadFile(fsys, filePath)
		if err != nil {
			return err
		}
		hash := getAssetHash(content)

		dir := path.Dir(filePath)
		base := path.Base(filePath)
		assets[filePath] = AssetInfo{
			Path: path.Join(dir, strings.TrimSuffix(base, ext)+"."+hash+ext),
			Hash: hash,
		}
		return nil
	})

	return assets, err
}
