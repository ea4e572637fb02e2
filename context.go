package flexi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
)

// Context is the enhanced request/response view handed to middleware, data
// hooks, and API handlers. It gives read access to the request (method,
// effective path, query, cookies, headers, route params) and a concrete
// response capability set: status setting, header setting, body sending.
//
// Status, headers, and cookies set through the context are deferred until
// the response body is written, so middleware can stack headers before a
// handler decides the outcome.
type Context struct {
	w   http.ResponseWriter
	req *http.Request

	params map[string]string
	logger *slog.Logger

	// effectivePath is what route matching uses. A middleware rewrite
	// changes it without changing what the client sees.
	effectivePath string

	status    int
	header    http.Header
	cookies   []*http.Cookie
	responded bool

	values map[any]any
}

// NewContext builds a Context for a request outside the normal serving
// path. Middleware packages use it in their own tests.
func NewContext(w http.ResponseWriter, r *http.Request) *Context {
	return newContext(w, r, nil)
}

func newContext(w http.ResponseWriter, r *http.Request, logger *slog.Logger) *Context {
	return &Context{
		w:             w,
		req:           r,
		params:        map[string]string{},
		logger:        logger,
		effectivePath: r.URL.Path,
		status:        http.StatusOK,
		header:        make(http.Header),
		values:        make(map[any]any),
	}
}

// Request returns the underlying http.Request.
func (c *Context) Request() *http.Request { return c.req }

// Method returns the request method.
func (c *Context) Method() string { return c.req.Method }

// Path returns the effective request path: the original path unless a
// middleware rewrite replaced it.
func (c *Context) Path() string { return c.effectivePath }

// OriginalPath returns the path the client actually requested.
func (c *Context) OriginalPath() string { return c.req.URL.Path }

// Query returns the parsed query parameters.
func (c *Context) Query() url.Values { return c.req.URL.Query() }

// QueryParam returns one query parameter value.
func (c *Context) QueryParam(key string) string { return c.req.URL.Query().Get(key) }

// Param returns one route parameter value.
func (c *Context) Param(key string) string { return c.params[key] }

// Params returns the route parameter bindings.
func (c *Context) Params() map[string]string { return c.params }

// Header returns a request header value.
func (c *Context) Header(key string) string { return c.req.Header.Get(key) }

// Cookie returns a named request cookie.
func (c *Context) Cookie(name string) (*http.Cookie, error) { return c.req.Cookie(name) }

// Cookies returns all parsed request cookies.
func (c *Context) Cookies() []*http.Cookie { return c.req.Cookies() }

// Body returns the request body reader.
func (c *Context) Body() io.ReadCloser { return c.req.Body }

// DecodeJSON decodes the request body into v.
func (c *Context) DecodeJSON(v any) error {
	return json.NewDecoder(c.req.Body).Decode(v)
}

// Status sets the deferred response status code.
func (c *Context) Status(code int) {
	c.status = code
}

// SetHeader sets a deferred response header, replacing any prior value.
func (c *Context) SetHeader(key, value string) {
	c.header.Set(key, value)
}

// AddHeader appends a deferred response header value. Multi-valued headers
// such as Set-Cookie keep every appended value.
func (c *Context) AddHeader(key, value string) {
	c.header.Add(key, value)
}

// SetCookie adds a deferred response cookie.
func (c *Context) SetCookie(cookie *http.Cookie) {
	c.cookies = append(c.cookies, cookie)
}

// JSON writes a JSON response with the given status code.
func (c *Context) JSON(code int, v any) error {
	c.status = code
	c.header.Set("Content-Type", "application/json")
	c.applyTo(c.w)
	c.w.WriteHeader(c.status)
	c.responded = true
	return json.NewEncoder(c.w).Encode(v)
}

// Send writes a response body with the given status and content type.
func (c *Context) Send(code int, contentType string, body []byte) error {
	c.status = code
	if contentType != "" {
		c.header.Set("Content-Type", contentType)
	}
	c.applyTo(c.w)
	c.w.WriteHeader(c.status)
	c.responded = true
	_, err := c.w.Write(body)
	return err
}

// HTML writes an HTML response with the given status code.
func (c *Context) HTML(code int, body string) error {
	return c.Send(code, "text/html; charset=utf-8", []byte(body))
}

// Redirect writes a redirect response immediately: the Location header and
// the status code, with an empty body. http.Redirect is not used because it
// writes an HTML link body on GET responses.
func (c *Context) Redirect(url string, code int) {
	if code == 0 {
		code = http.StatusTemporaryRedirect
	}
	c.applyTo(c.w)
	c.w.Header().Set("Location", url)
	c.w.WriteHeader(code)
	c.responded = true
}

// Logger returns the request logger.
func (c *Context) Logger() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.Default()
}

// StdContext returns the request's context.Context.
func (c *Context) StdContext() context.Context {
	return c.req.Context()
}

// SetValue stores a request-scoped value.
func (c *Context) SetValue(key, value any) { c.values[key] = value }

// Value retrieves a request-scoped value.
func (c *Context) Value(key any) any { return c.values[key] }

// rewrite replaces the effective path used for subsequent static resolution
// and route matching. The client-visible URL is untouched.
func (c *Context) rewrite(path string) {
	if path != "" {
		c.effectivePath = path
	}
}

// setParams installs the matched route's parameter bindings.
func (c *Context) setParams(params map[string]string) {
	if params != nil {
		c.params = params
	}
}

// applyTo writes deferred headers and cookies onto the response.
func (c *Context) applyTo(w http.ResponseWriter) {
	for key, vals := range c.header {
		for _, v := range vals {
			w.Header().Add(key, v)
		}
	}
	for _, cookie := range c.cookies {
		http.SetCookie(w, cookie)
	}
	// Applied once; a second body writer must not duplicate them.
	c.header = make(http.Header)
	c.cookies = nil
}
