package main

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/choonkeat/frameview/cmd/frameview/selector"
)

// Server serves the viewer page, the frames and the live session hub
type Server struct {
	cfg    Config
	store  *FrameStore
	hub    *Hub
	thumbs *Thumbnailer
	static fs.FS
	assets map[string]AssetInfo
	index  *template.Template
}

// NewServer wires the HTTP side around an already scanned store
func NewServer(cfg Config, store *FrameStore) (*Server, error) {
	return newServer(cfg, store, staticFS())
}

func newServer(cfg Config, store *FrameStore, static fs.FS) (*Server, error) {
	assets, err := getStaticAssets(static)
	if err != nil {
		return nil, fmt.Errorf("failed to hash static assets: %w", err)
	}
	for _, required := range []string{cssAsset, jsAsset} {
		if _, ok := assets[required]; !ok {
			return nil, fmt.Errorf("embedded asset %s missing", required)
		}
	}

	index, err := template.New("index").Parse(indexTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse index template: %w", err)
	}

	return &Server{
		cfg:    cfg,
		store:  store,
		hub:    NewHub(store, cfg.Layout, cfg.SessionTTL),
		thumbs: NewThumbnailer(store, 10*time.Minute),
		static: static,
		assets: assets,
		index:  index,
	}, nil
}

// Hub exposes the session hub, for the frame watcher to notify
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the routes, behind the password gate when one is set
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.rootHandler)
	mux.HandleFunc("/view/", s.viewHandler)
	mux.HandleFunc("/static/", s.staticHandler)
	mux.HandleFunc("/frames/", s.frameFileHandler)
	mux.HandleFunc("/thumbs/", s.thumbHandler)
	mux.HandleFunc("/api/frame", s.resolveHandler)
	mux.HandleFunc("/api/frames", s.summaryHandler)
	mux.HandleFunc("/ws/", s.wsHandler)

	var h http.Handler = mux
	if s.cfg.Password != "" {
		gate := &PasswordGate{secret: s.cfg.Password, title: s.cfg.Title}
		h = gate.Wrap(h)
	}
	return logRequests(h)
}

// initialFrame picks the frame the page opens on
func (s *Server) initialFrame() int {
	if s.cfg.Initial >= 0 {
		return s.cfg.Initial
	}
	if indices := s.store.Indices(); len(indices) > 0 {
		return indices[0]
	}
	return 0
}

// wasmPaths returns the hashed wasm binary and loader, or empty strings
// when either was not generated
func (s *Server) wasmPaths() (string, string) {
	wasm, okWasm := s.assets[wasmAsset]
	exec, okExec := s.assets[wasmExecAsset]
	if !okWasm || !okExec {
		return "", ""
	}
	return wasm.Path, exec.Path
}

// padWidth is the width every client uses for the current frame set
func (s *Server) padWidth() int {
	return s.cfg.Layout.WidthFor(s.store.Max())
}

// pageData is what index.html.tmpl renders
type pageData struct {
	Title         string
	SessionID     string
	CSSPath       string
	JSPath        string
	WasmPath      string
	WasmExecPath  string
	Max           int
	SliderMax     int
	Initial       int
	InitialPath   string
	FramesDir     string
	ExampleToken  string
	Base          string
	Pad           string
	ThumbsEnabled bool
}

func (s *Server) pageData(sessionID string) pageData {
	last := s.store.Max()
	initial := s.initialFrame()
	width := s.padWidth()
	wasmPath, wasmExecPath := s.wasmPaths()
	return pageData{
		Title:         s.cfg.Title,
		SessionID:     sessionID,
		CSSPath:       s.assets[cssAsset].Path,
		JSPath:        s.assets[jsAsset].Path,
		WasmPath:      wasmPath,
		WasmExecPath:  wasmExecPath,
		Max:           last,
		SliderMax:     max(last, 0),
		Initial:       initial,
		InitialPath:   s.cfg.Layout.Path(initial, width),
		FramesDir:     s.store.Dir(),
		ExampleToken:  selector.PadToken(0, width),
		Base:          s.cfg.Layout.Base,
		Pad:           padSetting(s.cfg.Layout),
		ThumbsEnabled: s.cfg.Thumbs,
	}
}
