package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSPA(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>board</html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644); err != nil {
		t.Fatal(err)
	}
	e := newTestEnv(t, func(d *Deps) { d.SPADir = dir })

	tests := []struct {
		path     string
		status   int
		contains string
	}{
		{path: "/", status: http.StatusOK, contains: "board"},
		{path: "/sessions", status: http.StatusOK, contains: "board"},
		{path: "/sessions/3", status: http.StatusOK, contains: "board"},
		{path: "/app.js", status: http.StatusOK, contains: "console.log"},
		{path: "/api/unknown", status: http.StatusNotFound, contains: codeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := e.do(t, http.MethodGet, tt.path, "", nil)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			if !strings.Contains(w.Body.String(), tt.contains) {
				t.Errorf("body %q missing %q", w.Body.String(), tt.contains)
			}
		})
	}
}
