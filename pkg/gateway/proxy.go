package gateway

import (
	"io"
	"net/http"
)

// proxiedResponseHeaders are the backend response headers copied back to
// the browser on pass-through calls.
var proxiedResponseHeaders = []string{
	"Content-Type",
	"Cache-Control",
	"ETag",
}

// handleProxy forwards a request to the same path on the backend with the
// session token attached, and copies the response back untouched. No state
// is kept; the envelope is not interpreted.
func (g *Gateway) handleProxy(w http.ResponseWriter, r *http.Request) {
	token, _ := g.cookies.Token(r)

	path := r.URL.Path
	if r.URL.RawQuery != "" {
		path += "?" + r.URL.RawQuery
	}

	resp, err := g.backend.Do(r.Context(), r.Method, path, token, r.Body)
	if err != nil {
		g.backendDown(w, "proxy", err)
		return
	}
	defer resp.Body.Close()

	for _, name := range proxiedResponseHeaders {
		if v := resp.Header.Get(name); v != "" {
			w.Header().Set(name, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		g.logger.Warn("proxy response copy interrupted", "path", r.URL.Path, "error", err)
	}
}
