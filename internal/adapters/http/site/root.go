// Package site serves the landing page at the server root.
package site

import (
	"net/http"
)

// Register attaches the landing page to mux. It owns "/", so any path no
// other route claims ends up here and gets a 404.
func Register(mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("/", HandleRoot)
}

// HandleRoot serves the landing page for exactly "/".
func HandleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}

const indexHTML = `<!doctype html>
<html>
  <head><meta charset="utf-8"><title>Trapper Keeper</title></head>
  <body>
    <h1>Trapper Keeper</h1>
    <ul>
      <li><a href="/api/v1/notes">/api/v1/notes</a></li>
      <li><a href="/api-docs">/api-docs</a></li>
      <li><a href="/healthz">/healthz</a></li>
      <li><a href="/stats">/stats</a></li>
      <li><a href="/metrics">/metrics</a></li>
    </ul>
  </body>
</html>`
