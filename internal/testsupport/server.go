package testsupport

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// ImageServer serves fixed payloads by path and 404s everything else. It
// counts requests per path so tests can assert fetch behavior.
type ImageServer struct {
	*httptest.Server

	mu     sync.Mutex
	files  map[string]served
	counts map[string]int
}

type served struct {
	body        []byte
	contentType string
}

// NewImageServer starts a server and closes it at test cleanup.
func NewImageServer(t testing.TB) *ImageServer {
	t.Helper()
	s := &ImageServer{files: map[string]served{}, counts: map[string]int{}}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Add registers a payload at path and returns its absolute URL.
func (s *ImageServer) Add(path string, body []byte, contentType string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = served{body: body, contentType: contentType}
	return s.URL + path
}

// Requests returns how often path was requested.
func (s *ImageServer) Requests(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[path]
}

func (s *ImageServer) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.counts[r.URL.Path]++
	file, ok := s.files[r.URL.Path]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	if file.contentType != "" {
		w.Header().Set("Content-Type", file.contentType)
	}
	_, _ = w.Write(file.body)
}
