package flexi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testContext(method, target string) (*Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	return newContext(rec, req, nil), rec
}

func TestContextRequestAccessors(t *testing.T) {
	ctx, _ := testContext(http.MethodGet, "/blog/hello?draft=1&tag=go")

	if ctx.Method() != http.MethodGet {
		t.Errorf("Method() = %q", ctx.Method())
	}
	if ctx.Path() != "/blog/hello" {
		t.Errorf("Path() = %q", ctx.Path())
	}
	if ctx.QueryParam("draft") != "1" {
		t.Errorf("QueryParam(draft) = %q", ctx.QueryParam("draft"))
	}
	if got := ctx.Query()["tag"]; len(got) != 1 || got[0] != "go" {
		t.Errorf("Query()[tag] = %v", got)
	}
}

func TestContextParams(t *testing.T) {
	ctx, _ := testContext(http.MethodGet, "/blog/hello")
	ctx.setParams(map[string]string{"slug": "hello"})

	if ctx.Param("slug") != "hello" {
		t.Errorf("Param(slug) = %q", ctx.Param("slug"))
	}
	if ctx.Param("missing") != "" {
		t.Errorf("Param(missing) = %q", ctx.Param("missing"))
	}
}

func TestContextRewriteKeepsOriginalPath(t *testing.T) {
	ctx, _ := testContext(http.MethodGet, "/old")
	ctx.rewrite("/new")

	if ctx.Path() != "/new" {
		t.Errorf("Path() = %q, want rewritten", ctx.Path())
	}
	if ctx.OriginalPath() != "/old" {
		t.Errorf("OriginalPath() = %q, want client path", ctx.OriginalPath())
	}

	// Empty rewrite is ignored.
	ctx.rewrite("")
	if ctx.Path() != "/new" {
		t.Errorf("Path() after empty rewrite = %q", ctx.Path())
	}
}

func TestContextDeferredHeaders(t *testing.T) {
	ctx, rec := testContext(http.MethodGet, "/")
	ctx.SetHeader("X-Stage", "middleware")
	ctx.SetCookie(&http.Cookie{Name: "session", Value: "abc"})

	// Nothing reaches the wire until a body writer runs.
	if rec.Header().Get("X-Stage") != "" {
		t.Error("header written before response")
	}

	if err := ctx.Send(http.StatusOK, "text/plain", []byte("hi")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if rec.Header().Get("X-Stage") != "middleware" {
		t.Error("deferred header missing from response")
	}
	if !strings.Contains(rec.Header().Get("Set-Cookie"), "session=abc") {
		t.Errorf("cookie missing: %q", rec.Header().Get("Set-Cookie"))
	}
	if rec.Body.String() != "hi" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestContextHeadersAppliedOnce(t *testing.T) {
	ctx, rec := testContext(http.MethodGet, "/")
	ctx.SetHeader("X-Once", "yes")
	ctx.applyTo(rec)
	ctx.applyTo(rec)

	if got := rec.Header().Values("X-Once"); len(got) != 1 {
		t.Errorf("header applied %d times: %v", len(got), got)
	}
}

func TestContextJSON(t *testing.T) {
	ctx, rec := testContext(http.MethodGet, "/")
	if err := ctx.JSON(http.StatusCreated, map[string]int{"n": 7}); err != nil {
		t.Fatalf("JSON: %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Errorf("code = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), `"n":7`) {
		t.Errorf("body = %q", rec.Body.String())
	}
	if !ctx.responded {
		t.Error("responded flag not set")
	}
}

func TestContextRedirect(t *testing.T) {
	ctx, rec := testContext(http.MethodGet, "/private")
	ctx.Redirect("/login", 0)

	if rec.Code != http.StatusTemporaryRedirect {
		t.Errorf("code = %d, want default 307", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q", loc)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("redirect body = %q, want empty", rec.Body.String())
	}
	if !ctx.responded {
		t.Error("responded flag not set")
	}
}

func TestContextValues(t *testing.T) {
	ctx, _ := testContext(http.MethodGet, "/")
	type key struct{}
	ctx.SetValue(key{}, 42)
	if got := ctx.Value(key{}); got != 42 {
		t.Errorf("Value = %v", got)
	}
	if got := ctx.Value("absent"); got != nil {
		t.Errorf("missing value = %v", got)
	}
}
