package router

import (
	"fmt"
	"regexp"
	"strings"
)

// Matcher is a compiled route path template. Literal segments match
// verbatim, :name matches one non-slash segment, *name greedily captures
// all remaining segments including slashes.
//
// A trailing catch-all also matches when zero segments remain: the template
// "/files/*rest" matches "/files" with rest captured as the empty string.
type Matcher struct {
	template   string
	re         *regexp.Regexp
	paramNames []string
}

// Compile translates a path template into an anchored matcher.
func Compile(template string) (*Matcher, error) {
	if template == "" {
		template = "/"
	}
	if !strings.HasPrefix(template, "/") {
		return nil, fmt.Errorf("route template %q must start with /", template)
	}

	var pattern strings.Builder
	pattern.WriteString("^")

	// Parameter names are collected in the same left-to-right scan that
	// builds the pattern, so capture groups and names stay aligned.
	var names []string

	segments := splitPath(template)
	for i, seg := range segments {
		switch {
		case strings.HasPrefix(seg, "*"):
			// Catch-all consumes the rest of the path, slash included,
			// and tolerates zero remaining segments.
			names = append(names, seg[1:])
			pattern.WriteString("(?:/(.*))?")
			if i != len(segments)-1 {
				return nil, fmt.Errorf("route template %q: catch-all must be the last segment", template)
			}
		case strings.HasPrefix(seg, ":"):
			names = append(names, seg[1:])
			pattern.WriteString("/([^/]+)")
		default:
			pattern.WriteString("/")
			pattern.WriteString(regexp.QuoteMeta(seg))
		}
	}

	if len(segments) == 0 {
		pattern.WriteString("/")
	}
	pattern.WriteString("/?$")

	re, err := regexp.Compile(pattern.String())
	if err != nil {
		return nil, fmt.Errorf("compiling route template %q: %w", template, err)
	}

	return &Matcher{
		template:   template,
		re:         re,
		paramNames: names,
	}, nil
}

// MustCompile is Compile but panics on error. For use with templates the
// scanner has already normalized.
func MustCompile(template string) *Matcher {
	m, err := Compile(template)
	if err != nil {
		panic(err)
	}
	return m
}

// Template returns the original path template.
func (m *Matcher) Template() string {
	return m.template
}

// ParamNames returns the parameter names in declaration order.
func (m *Matcher) ParamNames() []string {
	return m.paramNames
}

// Match tests a concrete URL against the matcher and extracts parameter
// bindings. Any query string is stripped before comparison and an empty
// path is normalized to "/".
func (m *Matcher) Match(url string) (map[string]string, bool) {
	path := url
	if idx := strings.IndexByte(path, '?'); idx != -1 {
		path = path[:idx]
	}
	if path == "" {
		path = "/"
	}

	groups := m.re.FindStringSubmatch(path)
	if groups == nil {
		return nil, false
	}

	params := make(map[string]string, len(m.paramNames))
	for i, name := range m.paramNames {
		params[name] = groups[i+1]
	}
	return params, true
}

// splitPath splits a path into segments, dropping empty ones.
func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
