package web

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
)

func TestSPAHandler(t *testing.T) {
	root := fstest.MapFS{
		"index.html": {Data: []byte("<html>index</html>")},
		"app.js":     {Data: []byte("console.log('app')")},
	}
	h := spaHandler(root)

	tests := []struct {
		path string
		want string
	}{
		{"/", "index"},
		{"/app.js", "console.log"},
		{"/some/client/route", "index"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", w.Code)
			}
			body, _ := io.ReadAll(w.Body)
			if !strings.Contains(string(body), tt.want) {
				t.Errorf("body = %q, want it to contain %q", body, tt.want)
			}
		})
	}
}

func TestEmbeddedClientPresent(t *testing.T) {
	for _, name := range []string{"dist/index.html", "dist/app.js", "dist/style.css"} {
		if _, err := distFS.Open(name); err != nil {
			t.Errorf("embedded %s missing: %v", name, err)
		}
	}
}
