package router

import (
	"bufio"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Directive strings recognized on the first line of a route file.
const (
	directiveServer = "//flexi:server"
	directiveClient = "//flexi:client"
	directiveIsland = "//flexi:island"
)

// ConventionRoot pairs a routing convention with its directory on disk.
type ConventionRoot struct {
	Convention Convention
	Dir        string
}

// ScanConfig configures a scan pass.
type ScanConfig struct {
	// Roots are the convention directories to scan. Missing directories
	// contribute no routes.
	Roots []ConventionRoot

	// Extensions are the file extensions treated as route modules.
	// Defaults to [".go"].
	Extensions []string

	// Logger receives scan diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// Scanner discovers route files across convention directories.
type Scanner struct {
	roots  []ConventionRoot
	exts   map[string]bool
	logger *slog.Logger
}

// NewScanner creates a scanner for the given configuration.
func NewScanner(cfg ScanConfig) *Scanner {
	exts := make(map[string]bool)
	if len(cfg.Extensions) == 0 {
		exts[".go"] = true
	}
	for _, ext := range cfg.Extensions {
		exts[strings.ToLower(ext)] = true
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scanner{
		roots:  cfg.Roots,
		exts:   exts,
		logger: logger,
	}
}

// specialRefs carries the nearest enclosing special-file paths down the
// directory walk. Values are convention-root-relative source paths.
type specialRefs struct {
	layout     string
	loading    string
	errorPage  string
	middleware string
}

// Scan walks every convention root depth-first and returns the discovered
// descriptors. An unreadable directory contributes nothing for its subtree;
// route discovery never fails outright on filesystem errors.
func (s *Scanner) Scan() []Descriptor {
	var out []Descriptor
	for _, root := range s.roots {
		out = append(out, s.walk(root.Dir, root.Convention, root.Dir, nil, specialRefs{})...)
	}
	return out
}

// walk scans one directory level. Special files found here override the
// inherited refs before routes are emitted and subdirectories visited, so
// reference resolution is a single pass over the tree.
func (s *Scanner) walk(dir string, conv Convention, root string, segs []Segment, refs specialRefs) []Descriptor {
	entries, err := os.ReadDir(dir)
	if err != nil {
		// Tolerated degradation: a transient filesystem problem must not
		// take route discovery down with it.
		s.logger.Debug("skipping unreadable route directory", "dir", dir, "error", err)
		return nil
	}

	var out []Descriptor

	// First pass: special files at this level update the nearest refs.
	for _, entry := range entries {
		if entry.IsDir() || !s.isRouteFile(entry.Name()) {
			continue
		}
		rel := s.relPath(root, dir, entry.Name())
		switch specialStem(stemOf(entry.Name()), conv) {
		case KindLayout:
			refs.layout = rel
			out = append(out, s.specialDescriptor(KindLayout, conv, rel, segs))
		case KindLoading:
			refs.loading = rel
			out = append(out, s.specialDescriptor(KindLoading, conv, rel, segs))
		case KindError:
			refs.errorPage = rel
			out = append(out, s.specialDescriptor(KindError, conv, rel, segs))
		case KindNotFound:
			out = append(out, s.specialDescriptor(KindNotFound, conv, rel, segs))
		case KindMiddleware:
			refs.middleware = rel
			out = append(out, s.specialDescriptor(KindMiddleware, conv, rel, segs))
		}
	}

	// Second pass: every remaining source file becomes a route.
	for _, entry := range entries {
		if entry.IsDir() || !s.isRouteFile(entry.Name()) {
			continue
		}
		stem := stemOf(entry.Name())
		if specialStem(stem, conv) != kindNone || strings.HasPrefix(stem, "_") {
			continue
		}

		rel := s.relPath(root, dir, entry.Name())
		d := s.routeDescriptor(conv, root, rel, stem, segs, refs)
		if d != nil {
			out = append(out, *d)
		}
	}

	// Recurse. Directory name transforms: "(group)" contributes no URL
	// segment, "[...slug]" a catch-all, "[id]" a parameter.
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
			continue
		}

		childSegs := segs
		if seg, grouping := dirSegment(name); !grouping {
			childSegs = append(append([]Segment{}, segs...), seg)
		}

		out = append(out, s.walk(filepath.Join(dir, name), conv, root, childSegs, refs)...)
	}

	return out
}

// routeDescriptor builds the descriptor for one route file, or nil when the
// resulting template cannot be compiled.
func (s *Scanner) routeDescriptor(conv Convention, root, rel, stem string, dirSegs []Segment, refs specialRefs) *Descriptor {
	segs := append([]Segment{}, dirSegs...)

	switch {
	case stem == "index":
		// Index contributes no segment; it maps to the parent path.
	case stem == "home" && len(dirSegs) == 0:
		// A root-level "home" file maps to "/".
	default:
		seg, grouping := dirSegment(stem)
		if !grouping {
			segs = append(segs, seg)
		}
	}

	urlPath := joinSegments(segs)
	isAPI := strings.HasPrefix(rel, "api/")

	kind := KindPage
	caps := Capabilities{}
	if isAPI {
		kind = KindAPI
		// API routes bypass component capability detection.
	} else {
		caps = s.readCapabilities(filepath.Join(root, filepath.FromSlash(rel)))
	}

	matcher, err := Compile(urlPath)
	if err != nil {
		s.logger.Warn("skipping route with invalid template", "file", rel, "template", urlPath, "error", err)
		return nil
	}

	return &Descriptor{
		Kind:          kind,
		Convention:    conv,
		URLPath:       urlPath,
		SourceFile:    rel,
		Segments:      segs,
		Matcher:       matcher,
		LayoutRef:     refs.layout,
		LoadingRef:    refs.loading,
		ErrorRef:      refs.errorPage,
		MiddlewareRef: refs.middleware,
		Capabilities:  caps,
	}
}

// specialDescriptor builds a descriptor for a layout/loading/error/
// not-found/middleware file. Special files never become matchable routes.
func (s *Scanner) specialDescriptor(kind Kind, conv Convention, rel string, segs []Segment) Descriptor {
	return Descriptor{
		Kind:       kind,
		Convention: conv,
		URLPath:    joinSegments(segs),
		SourceFile: rel,
		Segments:   append([]Segment{}, segs...),
	}
}

// readCapabilities reads the first line of a route file and interprets the
// directive, if any. IO failure or a missing directive leaves all flags false.
func (s *Scanner) readCapabilities(file string) Capabilities {
	f, err := os.Open(file)
	if err != nil {
		return Capabilities{}
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		return Capabilities{}
	}

	switch strings.TrimSpace(sc.Text()) {
	case directiveServer:
		return Capabilities{ServerOnly: true}
	case directiveClient:
		return Capabilities{ClientHydrated: true}
	case directiveIsland:
		return Capabilities{Island: true}
	default:
		return Capabilities{}
	}
}

// isRouteFile reports whether a filename has a configured route extension.
// Test files are never routes.
func (s *Scanner) isRouteFile(name string) bool {
	if strings.HasSuffix(name, "_test.go") {
		return false
	}
	return s.exts[strings.ToLower(path.Ext(name))]
}

// relPath returns the convention-root-relative slash path for a file.
func (s *Scanner) relPath(root, dir, name string) string {
	rel, err := filepath.Rel(root, filepath.Join(dir, name))
	if err != nil {
		return name
	}
	return filepath.ToSlash(rel)
}

// stemOf strips the extension from a filename.
func stemOf(name string) string {
	return strings.TrimSuffix(name, path.Ext(name))
}

// kindNone marks a non-special stem.
const kindNone Kind = -1

// specialStem maps a filename stem to its special kind, or kindNone.
// Underscore-prefixed stems are special in every convention. The bare
// aliases (layout, loading, error, not-found, middleware) are app-convention
// vocabulary only, so a legacy pages/error.go stays a routable page.
func specialStem(stem string, conv Convention) Kind {
	switch stem {
	case "_layout":
		return KindLayout
	case "_loading":
		return KindLoading
	case "_error":
		return KindError
	case "_404", "_not-found":
		return KindNotFound
	case "_middleware":
		return KindMiddleware
	}

	if conv != ConventionApp {
		return kindNone
	}
	switch stem {
	case "layout":
		return KindLayout
	case "loading":
		return KindLoading
	case "error":
		return KindError
	case "not-found":
		return KindNotFound
	case "middleware":
		return KindMiddleware
	default:
		return kindNone
	}
}

// dirSegment translates a directory or file stem into a path segment.
// The second return is true for grouping segments, which contribute nothing.
func dirSegment(name string) (Segment, bool) {
	if strings.HasPrefix(name, "(") && strings.HasSuffix(name, ")") {
		return Segment{}, true
	}

	if strings.HasPrefix(name, "[") && strings.HasSuffix(name, "]") {
		inner := name[1 : len(name)-1]
		if strings.HasPrefix(inner, "...") {
			return Segment{Param: inner[3:], CatchAll: true}, false
		}
		return Segment{Param: inner}, false
	}

	return Segment{Literal: name}, false
}

// joinSegments renders segments back into a normalized URL path template.
func joinSegments(segs []Segment) string {
	if len(segs) == 0 {
		return "/"
	}

	var b strings.Builder
	for _, seg := range segs {
		b.WriteByte('/')
		switch {
		case seg.CatchAll:
			b.WriteByte('*')
			b.WriteString(seg.Param)
		case seg.Param != "":
			b.WriteByte(':')
			b.WriteString(seg.Param)
		default:
			b.WriteString(seg.Literal)
		}
	}
	return b.String()
}
