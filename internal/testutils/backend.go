// Package testutils provides a fake TubeSync backend for tests.
package testutils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/handiism/tubesync/internal/model"
)

// Backend is an in-memory stand-in for the TubeSync server.
//
// Each job replays a scripted list of statuses, one per progress request;
// the last status repeats once the script is exhausted.
type Backend struct {
	Server *httptest.Server

	mu        sync.Mutex
	videos    map[string]*model.VideoInfo
	scripts   map[string][]map[string]any
	polls     map[string]int
	files     map[string][]byte
	assets    map[string][]byte
	started   []map[string]any
	nextID    int
	requests  map[string]int
	failStart bool
}

// NewBackend starts a fake backend that is closed with the test.
func NewBackend(t *testing.T) *Backend {
	t.Helper()

	b := &Backend{
		videos:   make(map[string]*model.VideoInfo),
		scripts:  make(map[string][]map[string]any),
		polls:    make(map[string]int),
		files:    make(map[string][]byte),
		assets:   make(map[string][]byte),
		requests: make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/video-info", b.handleVideoInfo)
	mux.HandleFunc("POST /api/download", b.handleStart("download"))
	mux.HandleFunc("POST /api/download-playlist", b.handleStart("playlist"))
	mux.HandleFunc("GET /api/progress/{id}", b.handleProgress)
	mux.HandleFunc("GET /api/downloads", b.handleList)
	mux.HandleFunc("GET /downloads/{name}", b.handleFile)
	mux.HandleFunc("GET /assets/{name}", b.handleAsset)

	b.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.requests[r.Method+" "+r.URL.Path]++
		b.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(b.Server.Close)
	return b
}

// URL returns the server's base URL.
func (b *Backend) URL() string {
	return b.Server.URL
}

// AddVideo registers the response for a video-info request for url.
func (b *Backend) AddVideo(url string, info *model.VideoInfo) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.videos[url] = info
}

// Script sets the statuses returned for job id. Started jobs are numbered
// "download_<n>" or "playlist_<n>" from one counter, starting at 1.
func (b *Backend) Script(id string, statuses ...map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scripts[id] = statuses
}

// AddFile registers a finished file.
func (b *Backend) AddFile(name string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.files[name] = data
}

// AddAsset serves data at /assets/<name> and returns its absolute URL,
// for thumbnails.
func (b *Backend) AddAsset(name string, data []byte) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.assets[name] = data
	return b.Server.URL + "/assets/" + name
}

// FailStarts makes both download endpoints return 500.
func (b *Backend) FailStarts(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failStart = fail
}

// Requests returns how many requests hit method+" "+path.
func (b *Backend) Requests(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests[key]
}

// Polls returns how many progress requests were made for id.
func (b *Backend) Polls(id string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.polls[id]
}

// Started returns the request bodies of every accepted start request.
func (b *Backend) Started() []map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]map[string]any, len(b.started))
	copy(out, b.started)
	return out
}

func (b *Backend) handleVideoInfo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "URL is required"})
		return
	}

	b.mu.Lock()
	info, ok := b.videos[req.URL]
	b.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Could not fetch video information"})
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (b *Backend) handleStart(prefix string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if req["url"] == nil || req["url"] == "" || req["format_id"] == nil || req["format_id"] == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "URL and format ID are required"})
			return
		}

		b.mu.Lock()
		if b.failStart {
			b.mu.Unlock()
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "backend unavailable"})
			return
		}
		b.nextID++
		id := fmt.Sprintf("%s_%d", prefix, b.nextID)
		b.started = append(b.started, req)
		b.mu.Unlock()

		resp := map[string]any{"download_id": id, "message": "Download started"}
		if prefix == "playlist" {
			total := 10
			if mv, ok := req["max_videos"].(float64); ok && mv > 0 {
				total = int(mv)
			}
			resp["total_videos"] = total
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (b *Backend) handleProgress(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	b.mu.Lock()
	script, ok := b.scripts[id]
	n := b.polls[id]
	b.polls[id]++
	b.mu.Unlock()

	if !ok || len(script) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Download ID not found"})
		return
	}
	if n >= len(script) {
		n = len(script) - 1
	}
	writeJSON(w, http.StatusOK, script[n])
}

func (b *Backend) handleList(w http.ResponseWriter, r *http.Request) {
	dir := r.URL.Query().Get("path")

	b.mu.Lock()
	defer b.mu.Unlock()
	files := make([]model.DownloadedFile, 0, len(b.files))
	i := 0
	for name, data := range b.files {
		i++
		files = append(files, model.DownloadedFile{
			Name:     name,
			Size:     int64(len(data)),
			Modified: float64(1700000000 + i),
			Path:     dir,
		})
	}
	writeJSON(w, http.StatusOK, files)
}

func (b *Backend) handleFile(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	b.mu.Lock()
	data, ok := b.files[name]
	b.mu.Unlock()
	if !ok || strings.Contains(name, "/") {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "File not found"})
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(data)
}

func (b *Backend) handleAsset(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	data, ok := b.assets[r.PathValue("name")]
	b.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Write(data)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
