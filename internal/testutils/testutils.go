// Package testutils provides shared test infrastructure.
package testutils

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// CutoutServer is an HTTP test server that plays the role of the image
// cutout service. Behavior is keyed on the "ra" query parameter.
type CutoutServer struct {
	*httptest.Server

	mu       sync.Mutex
	payload  []byte
	statuses map[string]int // ra value -> forced status code
	requests map[string]int // ra value -> request count
}

// StartCutoutServer starts a cutout server returning payload for every
// request. Use FailWith to script failures for specific coordinates.
func StartCutoutServer(t *testing.T, payload []byte) *CutoutServer {
	t.Helper()

	s := &CutoutServer{
		payload:  payload,
		statuses: make(map[string]int),
		requests: make(map[string]int),
	}

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ra := r.URL.Query().Get("ra")

		s.mu.Lock()
		s.requests[ra]++
		status := s.statuses[ra]
		body := s.payload
		s.mu.Unlock()

		if status != 0 {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(body)
	}))
	t.Cleanup(s.Close)

	return s
}

// FailWith forces every request for the given ra value to return status.
func (s *CutoutServer) FailWith(ra string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[ra] = status
}

// Requests returns how many requests were made for the given ra value.
func (s *CutoutServer) Requests(ra string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[ra]
}

// TotalRequests returns the number of requests across all coordinates.
func (s *CutoutServer) TotalRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.requests {
		total += n
	}
	return total
}

// WriteInputCSV writes a coordinate table with ra, dec and objid columns
// to a temp file and returns its path. Each row is "ra,dec,objid".
func WriteInputCSV(t *testing.T, rows []string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "input.csv")
	content := "ra,dec,objid\n" + strings.Join(rows, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write input csv: %v", err)
	}
	return path
}
