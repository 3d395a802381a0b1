package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/choonkeat/frameview/cmd/frameview/selector"
	"github.com/google/uuid"
)

// rootHandler opens a fresh viewer session
func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, "/view/?session="+uuid.New().String(), http.StatusFound)
}

// viewHandler renders the viewer page for a session
func (s *Server) viewHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/view/" {
		http.NotFound(w, r)
		return
	}

	sessionID := r.URL.Query().Get("session")
	if _, err := uuid.Parse(sessionID); err != nil {
		http.Redirect(w, r, "/view/?session="+uuid.New().String(), http.StatusFound)
		return
	}

	var buf bytes.Buffer
	if err := s.index.Execute(&buf, s.pageData(sessionID)); err != nil {
		log.Printf("[SERVE] Template error: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// staticHandler serves embedded assets by their hashed names
func (s *Server) staticHandler(w http.ResponseWriter, r *http.Request) {
	urlPath := strings.TrimPrefix(r.URL.Path, "/static/")

	var originalPath string
	for orig, info := range s.assets {
		if urlPath == info.Path {
			originalPath = orig
			break
		}
	}
	if originalPath == "" {
		http.NotFound(w, r)
		return
	}

	content, err := fs.ReadFile(s.static, originalPath)
	if err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentTypes[path.Ext(originalPath)])
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Write(content)
}

// frameFileHandler serves frame_NNN.png from the frames directory.
// Missing frames are plain 404s; the page shows a broken image.
func (s *Server) frameFileHandler(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/frames/")
	filePath, ok := s.store.FilePath(name)
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, filePath)
}

// thumbHandler serves a scaled-down frame: /thumbs/frame_NNN.png?w=160
func (s *Server) thumbHandler(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/thumbs/")
	width := DefaultThumbWidth
	if v := r.URL.Query().Get("w"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "invalid width", http.StatusBadRequest)
			return
		}
		width = n
	}

	data, err := s.thumbs.Thumbnail(name, width)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFrame), errors.Is(err, os.ErrNotExist):
		http.NotFound(w, r)
		return
	default:
		log.Printf("[THUMB] %s: %v", name, err)
		http.Error(w, "thumbnail failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(data)
}

// resolveHandler maps ?value=N to the path and label a viewer shows
func (s *Server) resolveHandler(w http.ResponseWriter, r *http.Request) {
	u, err := s.hub.Resolve(r.URL.Query().Get("value"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// summaryHandler reports what is on disk
func (s *Server) summaryHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		FrameSummary
		PadWidth int             `json:"padWidth"`
		Layout   selector.Layout `json:"layout"`
	}{
		FrameSummary: s.store.Summary(),
		PadWidth:     s.padWidth(),
		Layout:       s.cfg.Layout,
	})
}

// wsHandler joins /ws/<session-uuid>
func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimPrefix(r.URL.Path, "/ws/")
	if _, err := uuid.Parse(sessionID); err != nil {
		http.Error(w, "invalid session", http.StatusBadRequest)
		return
	}
	s.hub.ServeWebSocket(w, r, sessionID)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[SERVE] JSON encode error: %v", err)
	}
}

// statusRecorder captures the status code for request logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// logRequests logs non-asset requests with status and duration
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/ws/") {
			// gorilla/websocket needs the original writer to hijack
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if strings.HasPrefix(r.URL.Path, "/frames/") || strings.HasPrefix(r.URL.Path, "/thumbs/") || strings.HasPrefix(r.URL.Path, "/static/") {
			return
		}
		log.Printf("[SERVE] %s %s %d %v", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}
