package flexi

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gobwas/glob"
)

// OutcomeKind tags the middleware outcome union.
type OutcomeKind int

const (
	// OutcomeContinue lets the request proceed, optionally adding headers.
	OutcomeContinue OutcomeKind = iota

	// OutcomeRedirect terminates the request with a redirect.
	OutcomeRedirect

	// OutcomeRewrite changes the effective path for subsequent static
	// resolution and route matching without changing the client URL.
	OutcomeRewrite

	// OutcomeResponse terminates the request with a verbatim response.
	OutcomeResponse
)

// Outcome is the tagged result of evaluating one middleware. It is consumed
// immediately by the dispatcher and never stored.
type Outcome struct {
	Kind OutcomeKind

	// Headers are added to the response for Continue and Response outcomes.
	Headers http.Header

	// URL is the redirect or rewrite target.
	URL string

	// Code is the redirect status code.
	Code int

	// Status and Body describe a direct response.
	Status int
	Body   []byte
}

// Continue lets the request proceed unchanged.
func Continue() Outcome {
	return Outcome{Kind: OutcomeContinue}
}

// ContinueWith lets the request proceed and adds response headers.
func ContinueWith(headers http.Header) Outcome {
	return Outcome{Kind: OutcomeContinue, Headers: headers}
}

// Redirect terminates the request with a redirect. A zero code defaults
// to 307.
func Redirect(url string, code int) Outcome {
	if code == 0 {
		code = http.StatusTemporaryRedirect
	}
	return Outcome{Kind: OutcomeRedirect, URL: url, Code: code}
}

// Rewrite changes the effective path for the rest of the request.
func Rewrite(url string) Outcome {
	return Outcome{Kind: OutcomeRewrite, URL: url}
}

// Respond terminates the request with the given status, headers, and body.
func Respond(status int, headers http.Header, body []byte) Outcome {
	return Outcome{Kind: OutcomeResponse, Status: status, Headers: headers, Body: body}
}

// MiddlewareFunc inspects a request and decides its outcome.
type MiddlewareFunc func(ctx *Context) Outcome

// Middleware pairs a handler with optional path matchers. When Matchers is
// non-empty, the request path must match at least one pattern or the
// middleware is skipped entirely.
//
// Patterns are glob-like: "*" matches within one path segment, "**" crosses
// segments, and ":name" matches one segment (the binding is not captured,
// only tested). Examples: "/admin/**", "/blog/:slug", "/api/*".
type Middleware struct {
	// Name identifies the middleware in logs.
	Name string

	// Matchers restricts which paths the middleware sees.
	Matchers []string

	// Handler produces the outcome. A nil handler always continues.
	Handler MiddlewareFunc

	compiled []glob.Glob
}

// compile builds the glob matchers. Called once at registration; an invalid
// pattern is reported and never matches.
func (m *Middleware) compile() error {
	m.compiled = m.compiled[:0]
	var errs []error
	for _, pattern := range m.Matchers {
		g, err := glob.Compile(translateMatcher(pattern), '/')
		if err != nil {
			errs = append(errs, fmt.Errorf("middleware %q: invalid matcher %q: %w", m.Name, pattern, err))
			continue
		}
		m.compiled = append(m.compiled, g)
	}
	return errors.Join(errs...)
}

// matches reports whether the middleware applies to a path. An empty
// matcher list applies to everything.
func (m *Middleware) matches(path string) bool {
	if len(m.Matchers) == 0 {
		return true
	}
	for _, g := range m.compiled {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// translateMatcher converts :param segments to single-segment wildcards so
// route-style patterns work as glob matchers.
func translateMatcher(pattern string) string {
	parts := strings.Split(pattern, "/")
	for i, part := range parts {
		if strings.HasPrefix(part, ":") {
			parts[i] = "*"
		}
	}
	return strings.Join(parts, "/")
}

// EvaluateMiddleware runs middlewares in order against the request and
// returns the first short-circuiting outcome. Continue outcomes accumulate
// their headers onto the context and evaluation proceeds.
//
// A middleware that panics is logged and treated as Continue. Failing open
// is deliberate: a buggy middleware must not take down page serving.
func EvaluateMiddleware(ctx *Context, middlewares []Middleware, logger *slog.Logger) Outcome {
	if logger == nil {
		logger = slog.Default()
	}

	for i := range middlewares {
		mw := &middlewares[i]
		if mw.Handler == nil || !mw.matches(ctx.Path()) {
			continue
		}

		outcome := evaluateOne(ctx, mw, logger)
		switch outcome.Kind {
		case OutcomeContinue:
			for key, vals := range outcome.Headers {
				for _, v := range vals {
					ctx.SetHeader(key, v)
				}
			}
		case OutcomeRewrite:
			// Rewrites apply immediately and evaluation continues, so a
			// later middleware sees the rewritten path.
			ctx.rewrite(outcome.URL)
		default:
			return outcome
		}
	}

	return Continue()
}

// evaluateOne invokes a single middleware, converting panics to Continue.
func evaluateOne(ctx *Context, mw *Middleware, logger *slog.Logger) (outcome Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("middleware panic, failing open",
				"middleware", mw.Name, "path", ctx.Path(), "panic", rec)
			outcome = Continue()
		}
	}()
	return mw.Handler(ctx)
}
