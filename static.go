package flexi

import (
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/flexireact/flexi/pkg/assets"
)

// staticRelPath returns a sanitized relative path for a static file request.
// It rejects traversal and absolute-path tricks so static serving cannot
// escape the public-assets root.
func staticRelPath(urlPath string) (string, bool) {
	rel := strings.TrimPrefix(urlPath, "/")
	if rel == "" {
		return "", false
	}

	// Reject NUL early (can appear via %00).
	if strings.IndexByte(rel, 0) != -1 {
		return "", false
	}

	// Reject platform-dependent separators.
	if strings.Contains(rel, "\\") {
		return "", false
	}

	// After prefix stripping, a leading "/" indicates an absolute-path
	// attempt (e.g. "//etc/passwd" => "/etc/passwd").
	if strings.HasPrefix(rel, "/") {
		return "", false
	}

	// Reject dot-segments before cleaning to avoid "cleaning away"
	// traversal attempts and changing the meaning of the request path.
	for _, seg := range strings.Split(rel, "/") {
		if seg == "." || seg == ".." {
			return "", false
		}
	}

	clean := path.Clean(rel)
	if clean == "." || clean == "" || clean == ".." || strings.HasPrefix(clean, "../") || strings.HasPrefix(clean, "/") {
		return "", false
	}

	// Defense-in-depth: reject OS-absolute/volume paths after slash conversion.
	osPath := filepath.FromSlash(clean)
	if filepath.IsAbs(osPath) || filepath.VolumeName(osPath) != "" {
		return "", false
	}

	return clean, true
}

// tryServeStatic serves a public asset at the effective path if one exists.
// Returns false when the request should continue to route matching; any
// filesystem error is treated as "not found here", not a request failure.
func (a *App) tryServeStatic(w http.ResponseWriter, r *http.Request, ctx *Context) bool {
	if a.staticFS == nil {
		return false
	}

	rel, ok := staticRelPath(ctx.Path())
	if !ok {
		return false
	}

	f, err := a.staticFS.Open(rel)
	if err != nil {
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return false
	}

	// Only GET and HEAD make sense for files.
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return true
	}

	applyCacheHeaders(w, rel, a.config.DevMode)
	for key, value := range a.config.Static.Headers {
		w.Header().Set(key, value)
	}

	ctx.applyTo(w)
	http.ServeContent(w, r, rel, info.ModTime(), f)
	return true
}

// applyCacheHeaders sets long-lived cache headers for production assets.
// Fingerprinted files are immutable.
func applyCacheHeaders(w http.ResponseWriter, filePath string, devMode bool) {
	if devMode {
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
		return
	}
	if assets.IsFingerprinted(filePath) {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=3600, must-revalidate")
}

// serveBuiltAsset serves a built client bundle under the internal prefix.
func (a *App) serveBuiltAsset(w http.ResponseWriter, r *http.Request) {
	if a.buildFS == nil {
		http.NotFound(w, r)
		return
	}

	rel, ok := staticRelPath(strings.TrimPrefix(r.URL.Path, InternalPrefix+"assets"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	f, err := a.buildFS.Open(rel)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	applyCacheHeaders(w, rel, a.config.DevMode)
	http.ServeContent(w, r, rel, info.ModTime(), f)
}
