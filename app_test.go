package flexi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/flexireact/flexi/pkg/islands"
	"github.com/flexireact/flexi/pkg/markup"
	"github.com/flexireact/flexi/pkg/router"
)

// writeRouteFiles materializes a route tree under dir. Contents only matter
// for the first-line directive.
func writeRouteFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func newTestApp(t *testing.T, files map[string]string, cfg Config) *App {
	t.Helper()
	routesDir := filepath.Join(t.TempDir(), "routes")
	writeRouteFiles(t, routesDir, files)
	cfg.Routes.RoutesDir = routesDir
	return New(cfg)
}

func get(t *testing.T, app *App, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestAppServesPageWithLayout(t *testing.T) {
	app := newTestApp(t, map[string]string{
		"_layout.go": "package routes\n",
		"index.go":   "package routes\n",
	}, Config{})

	app.Registry().Layout(router.ConventionRoutes, "_layout.go", &LayoutModule{
		Component: func(ctx *Context, props Props, children *markup.Node) *markup.Node {
			return markup.Div(markup.Class("shell"), children)
		},
	})
	app.Registry().Page(router.ConventionRoutes, "index.go", &PageModule{
		Title: "Home",
		Component: func(ctx *Context, props Props) *markup.Node {
			return markup.H1(markup.Text("Welcome"))
		},
	})

	rec := get(t, app, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, body:\n%s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()

	if !strings.Contains(body, "<title>Home</title>") {
		t.Errorf("title missing:\n%s", body)
	}
	if !strings.Contains(body, `<div class="shell"><h1>Welcome</h1></div>`) {
		t.Errorf("layout did not wrap page:\n%s", body)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
}

func TestAppPageWithServerProps(t *testing.T) {
	app := newTestApp(t, map[string]string{
		"blog/[slug].go": "package routes\n",
	}, Config{})

	app.Registry().Page(router.ConventionRoutes, "blog/[slug].go", &PageModule{
		GetServerProps: func(ctx *Context) (*HookResult, error) {
			return &HookResult{Props: Props{"slug": ctx.Param("slug")}}, nil
		},
		Component: func(ctx *Context, props Props) *markup.Node {
			return markup.H1(markup.Textf("Post: %v", props["slug"]))
		},
	})

	rec := get(t, app, "/blog/hello-world")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Post: hello-world") {
		t.Errorf("param-derived props missing:\n%s", rec.Body.String())
	}
}

func TestAppPageHookRedirect(t *testing.T) {
	app := newTestApp(t, map[string]string{
		"old.go": "package routes\n",
	}, Config{})

	app.Registry().Page(router.ConventionRoutes, "old.go", &PageModule{
		GetServerProps: func(ctx *Context) (*HookResult, error) {
			return &HookResult{Redirect: &RedirectResult{Destination: "/new", StatusCode: http.StatusMovedPermanently}}, nil
		},
		Component: func(ctx *Context, props Props) *markup.Node { return markup.Div() },
	})

	rec := get(t, app, "/old")
	if rec.Code != http.StatusMovedPermanently {
		t.Errorf("code = %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/new" {
		t.Errorf("Location = %q", loc)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("redirect body = %q, want empty", rec.Body.String())
	}
}

func TestAppPageHookSignalPanic(t *testing.T) {
	app := newTestApp(t, map[string]string{
		"gone.go": "package routes\n",
	}, Config{})

	app.Registry().Page(router.ConventionRoutes, "gone.go", &PageModule{
		GetServerProps: func(ctx *Context) (*HookResult, error) {
			panic(NotFound())
		},
		Component: func(ctx *Context, props Props) *markup.Node { return markup.Div() },
	})

	rec := get(t, app, "/gone")
	if rec.Code != http.StatusNotFound {
		t.Errorf("code = %d, want 404 from panicked signal", rec.Code)
	}
}

func TestAppPageHookErrorHidesDetailInProd(t *testing.T) {
	app := newTestApp(t, map[string]string{
		"boom.go": "package routes\n",
	}, Config{})

	app.Registry().Page(router.ConventionRoutes, "boom.go", &PageModule{
		GetServerProps: func(ctx *Context) (*HookResult, error) {
			return nil, &HTTPError{Code: http.StatusBadGateway, Message: "upstream exploded"}
		},
		Component: func(ctx *Context, props Props) *markup.Node { return markup.Div() },
	})

	rec := get(t, app, "/boom")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("code = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "upstream exploded") {
		t.Errorf("production error leaked detail:\n%s", rec.Body.String())
	}
}

func TestAppPageHookErrorShowsDetailInDev(t *testing.T) {
	app := newTestApp(t, map[string]string{
		"boom.go": "package routes\n",
	}, Config{DevMode: true})

	app.Registry().Page(router.ConventionRoutes, "boom.go", &PageModule{
		GetServerProps: func(ctx *Context) (*HookResult, error) {
			return nil, &HTTPError{Code: http.StatusBadGateway, Message: "upstream exploded"}
		},
		Component: func(ctx *Context, props Props) *markup.Node { return markup.Div() },
	})

	rec := get(t, app, "/boom")
	if !strings.Contains(rec.Body.String(), "upstream exploded") {
		t.Errorf("dev error detail missing:\n%s", rec.Body.String())
	}
}

func TestAppErrorComponentCatchesRenderFailure(t *testing.T) {
	app := newTestApp(t, map[string]string{
		"_error.go": "package routes\n",
		"crash.go":  "package routes\n",
	}, Config{})

	app.Registry().ErrorPage(router.ConventionRoutes, "_error.go",
		func(err error, reset func() *markup.Node) *markup.Node {
			return markup.Div(markup.Class("error-page"), markup.Text("Something went wrong"))
		})
	app.Registry().Page(router.ConventionRoutes, "crash.go", &PageModule{
		Component: func(ctx *Context, props Props) *markup.Node {
			panic("component exploded")
		},
	})

	rec := get(t, app, "/crash")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, boundary fallback renders inside the page", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Something went wrong") {
		t.Errorf("error component output missing:\n%s", body)
	}
}

func TestAppIslandBootstrap(t *testing.T) {
	app := newTestApp(t, map[string]string{
		"index.go": "package routes\n",
	}, Config{Islands: IslandsConfig{Enabled: true}})

	app.Registry().Page(router.ConventionRoutes, "index.go", &PageModule{
		Component: func(ctx *Context, props Props) *markup.Node {
			counter := islands.New(ctx.Islands(), "Counter", markup.Func(func() *markup.Node {
				return markup.Button(markup.Text("0"))
			}), islands.Options{ClientEntry: "/assets/islands/counter.js"})
			return markup.Main(markup.H1(markup.Text("With island")), counter)
		},
	})

	body := get(t, app, "/").Body.String()

	if !strings.Contains(body, `data-flexi-island="Counter"`) {
		t.Errorf("island wrapper missing:\n%s", body)
	}
	if !strings.Contains(body, "<button>0</button>") {
		t.Errorf("server-rendered island content missing:\n%s", body)
	}
	if !strings.Contains(body, `/assets/islands/counter.js`) {
		t.Errorf("bootstrap script missing island entry:\n%s", body)
	}
	// The bootstrap renders after the body, so the browser finds the
	// island nodes when it runs.
	if strings.Index(body, "data-flexi-island") > strings.Index(body, "const islands=") {
		t.Errorf("bootstrap emitted before island markup:\n%s", body)
	}
}

func TestAppNoIslandScriptWithoutIslands(t *testing.T) {
	app := newTestApp(t, map[string]string{
		"plain.go": "package routes\n",
	}, Config{Islands: IslandsConfig{Enabled: true}})

	app.Registry().Page(router.ConventionRoutes, "plain.go", &PageModule{
		Component: func(ctx *Context, props Props) *markup.Node {
			return markup.P(markup.Text("no islands here"))
		},
	})

	body := get(t, app, "/plain").Body.String()
	if strings.Contains(body, "const islands=") {
		t.Errorf("island bootstrap shipped for island-free page:\n%s", body)
	}
}

func TestAppClientHydratedPage(t *testing.T) {
	app := newTestApp(t, map[string]string{
		"dash.go": "//flexi:client\npackage routes\n",
	}, Config{})

	app.Registry().Page(router.ConventionRoutes, "dash.go", &PageModule{
		GetServerProps: func(ctx *Context) (*HookResult, error) {
			return &HookResult{Props: Props{"user": "ada"}}, nil
		},
		Component: func(ctx *Context, props Props) *markup.Node {
			return markup.Div(markup.Textf("Hello %v", props["user"]))
		},
	})

	body := get(t, app, "/dash").Body.String()

	if !strings.Contains(body, `id="__FLEXI_DATA__"`) {
		t.Errorf("hydration props blob missing:\n%s", body)
	}
	if !strings.Contains(body, `"user":"ada"`) {
		t.Errorf("props payload missing:\n%s", body)
	}
	if !strings.Contains(body, `src="/_flexi/assets/routes/dash.js" type="module"`) {
		t.Errorf("client entry module script missing:\n%s", body)
	}
}

func TestAppServerOnlyPageShipsNoProps(t *testing.T) {
	app := newTestApp(t, map[string]string{
		"secret.go": "//flexi:server\npackage routes\n",
	}, Config{})

	app.Registry().Page(router.ConventionRoutes, "secret.go", &PageModule{
		GetServerProps: func(ctx *Context) (*HookResult, error) {
			return &HookResult{Props: Props{"apiKey": "hunter2"}}, nil
		},
		Component: func(ctx *Context, props Props) *markup.Node {
			return markup.Div(markup.Text("rendered server side"))
		},
	})

	body := get(t, app, "/secret").Body.String()
	if strings.Contains(body, "hunter2") {
		t.Errorf("server-only props leaked to the client:\n%s", body)
	}
	if strings.Contains(body, "__FLEXI_DATA__") {
		t.Errorf("props blob emitted for server-only page:\n%s", body)
	}
}

func TestAppAPIRoutes(t *testing.T) {
	app := newTestApp(t, map[string]string{
		"api/users.go":      "package routes\n",
		"api/users/[id].go": "package routes\n",
	}, Config{})

	app.Registry().API(router.ConventionRoutes, "api/users.go", &APIModule{
		Handlers: map[string]APIHandler{
			"GET": func(ctx *Context) error {
				return ctx.JSON(http.StatusOK, []string{"ada", "grace"})
			},
			"POST": func(ctx *Context) error {
				return ctx.JSON(http.StatusCreated, map[string]string{"status": "created"})
			},
		},
	})
	app.Registry().API(router.ConventionRoutes, "api/users/[id].go", &APIModule{
		Handlers: map[string]APIHandler{
			"GET": func(ctx *Context) error {
				return ctx.JSON(http.StatusOK, map[string]string{"id": ctx.Param("id")})
			},
		},
	})

	rec := get(t, app, "/api/users")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ada") {
		t.Errorf("GET /api/users: %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/users", nil))
	if rec.Code != http.StatusCreated {
		t.Errorf("POST /api/users: %d", rec.Code)
	}

	rec = get(t, app, "/api/users/42")
	if !strings.Contains(rec.Body.String(), `"id":"42"`) {
		t.Errorf("GET /api/users/42: %s", rec.Body.String())
	}
}

func TestAppAPIMethodNotAllowed(t *testing.T) {
	app := newTestApp(t, map[string]string{
		"api/items.go": "package routes\n",
	}, Config{})

	app.Registry().API(router.ConventionRoutes, "api/items.go", &APIModule{
		Handlers: map[string]APIHandler{
			"GET": func(ctx *Context) error { return nil },
		},
	})

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/items", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("code = %d", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow != "GET" {
		t.Errorf("Allow = %q", allow)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("405 body not JSON: %s", rec.Body.String())
	}
	if body["error"] == "" {
		t.Errorf("405 body = %v", body)
	}
}

func TestAppAPIErrorMapping(t *testing.T) {
	app := newTestApp(t, map[string]string{
		"api/fail.go": "package routes\n",
	}, Config{})

	app.Registry().API(router.ConventionRoutes, "api/fail.go", &APIModule{
		Handlers: map[string]APIHandler{
			"GET": func(ctx *Context) error {
				return &HTTPError{Code: http.StatusTeapot, Message: "short and stout"}
			},
		},
	})

	rec := get(t, app, "/api/fail")
	if rec.Code != http.StatusTeapot {
		t.Errorf("code = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "short and stout") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestAppGlobalMiddlewareRedirect(t *testing.T) {
	app := newTestApp(t, map[string]string{
		"private.go": "package routes\n",
	}, Config{})

	app.Registry().Page(router.ConventionRoutes, "private.go", &PageModule{
		Component: func(ctx *Context, props Props) *markup.Node { return markup.Div() },
	})
	app.Use(Middleware{
		Name:     "auth",
		Matchers: []string{"/private"},
		Handler: func(ctx *Context) Outcome {
			return Redirect("/login", http.StatusFound)
		},
	})

	rec := get(t, app, "/private")
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
		t.Errorf("code=%d location=%q", rec.Code, rec.Header().Get("Location"))
	}

	// A non-matching path is untouched.
	rec = get(t, app, "/")
	if rec.Code == http.StatusFound {
		t.Error("middleware ran outside its matcher")
	}
}

func TestAppGlobalMiddlewareRewrite(t *testing.T) {
	app := newTestApp(t, map[string]string{
		"canonical.go": "package routes\n",
	}, Config{})

	app.Registry().Page(router.ConventionRoutes, "canonical.go", &PageModule{
		Component: func(ctx *Context, props Props) *markup.Node {
			return markup.H1(markup.Text("canonical content"))
		},
	})
	app.Use(Middleware{
		Name: "alias",
		Handler: func(ctx *Context) Outcome {
			if ctx.Path() == "/legacy" {
				return Rewrite("/canonical")
			}
			return Continue()
		},
	})

	rec := get(t, app, "/legacy")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "canonical content") {
		t.Errorf("rewrite did not reach the target route:\n%s", rec.Body.String())
	}
}

func TestAppMiddlewareRespondKeepsMultiValuedHeaders(t *testing.T) {
	app := newTestApp(t, map[string]string{
		"index.go": "package routes\n",
	}, Config{})
	app.Registry().Page(router.ConventionRoutes, "index.go", &PageModule{
		Component: func(ctx *Context, props Props) *markup.Node { return markup.Div() },
	})
	headers := http.Header{}
	headers.Add("Set-Cookie", "a=1; Path=/")
	headers.Add("Set-Cookie", "b=2; Path=/")
	app.Use(Middleware{
		Name: "session",
		Handler: func(ctx *Context) Outcome {
			return Respond(http.StatusOK, headers, []byte("done"))
		},
	})

	rec := get(t, app, "/")
	got := rec.Header().Values("Set-Cookie")
	if len(got) != 2 || got[0] != "a=1; Path=/" || got[1] != "b=2; Path=/" {
		t.Errorf("Set-Cookie values = %q, want both cookies", got)
	}
}

func TestAppRouteMiddlewareFromFile(t *testing.T) {
	app := newTestApp(t, map[string]string{
		"admin/_middleware.go": "package routes\n",
		"admin/index.go":       "package routes\n",
		"index.go":             "package routes\n",
	}, Config{})

	app.Registry().Middleware(router.ConventionRoutes, "admin/_middleware.go", Middleware{
		Name: "admin-gate",
		Handler: func(ctx *Context) Outcome {
			if ctx.Header("X-Admin-Token") == "" {
				return Respond(http.StatusForbidden, nil, []byte("forbidden"))
			}
			return Continue()
		},
	})
	adminPage := &PageModule{Component: func(ctx *Context, props Props) *markup.Node {
		return markup.H1(markup.Text("admin home"))
	}}
	app.Registry().Page(router.ConventionRoutes, "admin/index.go", adminPage)
	app.Registry().Page(router.ConventionRoutes, "index.go", &PageModule{
		Component: func(ctx *Context, props Props) *markup.Node { return markup.Div() },
	})

	rec := get(t, app, "/admin")
	if rec.Code != http.StatusForbidden {
		t.Errorf("unauthenticated admin request: code = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("X-Admin-Token", "secret")
	rec = httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "admin home") {
		t.Errorf("authenticated admin request: code=%d body:\n%s", rec.Code, rec.Body.String())
	}

	// The middleware file scopes to its subtree only.
	rec = get(t, app, "/")
	if rec.Code != http.StatusOK {
		t.Errorf("middleware leaked outside its directory: code = %d", rec.Code)
	}
}

func TestAppDefaultNotFound(t *testing.T) {
	app := newTestApp(t, map[string]string{
		"index.go": "package routes\n",
	}, Config{})
	app.Registry().Page(router.ConventionRoutes, "index.go", &PageModule{
		Component: func(ctx *Context, props Props) *markup.Node { return markup.Div() },
	})

	rec := get(t, app, "/nope")
	if rec.Code != http.StatusNotFound {
		t.Errorf("code = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "404") {
		t.Errorf("default 404 body:\n%s", rec.Body.String())
	}
}

func TestAppCustomNotFound(t *testing.T) {
	app := newTestApp(t, map[string]string{
		"_404.go":  "package routes\n",
		"index.go": "package routes\n",
	}, Config{})

	app.Registry().NotFoundPage(router.ConventionRoutes, "_404.go", func(ctx *Context) *markup.Node {
		return markup.Main(markup.H1(markup.Text("Lost?")), markup.P(markup.Text(ctx.Path())))
	})
	app.Registry().Page(router.ConventionRoutes, "index.go", &PageModule{
		Component: func(ctx *Context, props Props) *markup.Node { return markup.Div() },
	})

	rec := get(t, app, "/missing/deeply")
	if rec.Code != http.StatusNotFound {
		t.Errorf("code = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Lost?") {
		t.Errorf("custom 404 not used:\n%s", rec.Body.String())
	}
}

func TestAppStaticFiles(t *testing.T) {
	staticDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(staticDir, "logo.svg"), []byte("<svg/>"), 0o644); err != nil {
		t.Fatal(err)
	}

	app := newTestApp(t, map[string]string{
		"index.go": "package routes\n",
	}, Config{Static: StaticConfig{Dir: staticDir, Headers: map[string]string{"X-Static": "yes"}}})
	app.Registry().Page(router.ConventionRoutes, "index.go", &PageModule{
		Component: func(ctx *Context, props Props) *markup.Node { return markup.Div() },
	})

	rec := get(t, app, "/logo.svg")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if rec.Body.String() != "<svg/>" {
		t.Errorf("body = %q", rec.Body.String())
	}
	if rec.Header().Get("X-Static") != "yes" {
		t.Error("configured static header missing")
	}
	if rec.Header().Get("Cache-Control") == "" {
		t.Error("cache headers missing")
	}

	// Missing files fall through to routing, not a bare file-server 404.
	rec = get(t, app, "/missing.png")
	if rec.Code != http.StatusNotFound {
		t.Errorf("code = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "404") {
		t.Errorf("fallthrough 404 body:\n%s", rec.Body.String())
	}
}

func TestAppServerActions(t *testing.T) {
	app := newTestApp(t, map[string]string{
		"index.go": "package routes\n",
	}, Config{})
	app.Registry().Page(router.ConventionRoutes, "index.go", &PageModule{
		Component: func(ctx *Context, props Props) *markup.Node { return markup.Div() },
	})
	app.Actions().Register("counter.increment", func(ctx context.Context, args json.RawMessage) (any, error) {
		var in []int
		if err := json.Unmarshal(args, &in); err != nil {
			return nil, err
		}
		return in[0] + 1, nil
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/_flexi/action",
		strings.NewReader(`{"actionId":"counter.increment","args":[41]}`))
	app.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, body: %s", rec.Code, rec.Body.String())
	}
	var result struct {
		Data  json.RawMessage `json:"data"`
		Error string          `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if string(result.Data) != "42" {
		t.Errorf("data = %s", result.Data)
	}

	// Unknown action id.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/_flexi/action",
		strings.NewReader(`{"actionId":"nope","args":null}`))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown action code = %d", rec.Code)
	}

	// GET is rejected.
	rec = get(t, app, "/_flexi/action")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET action code = %d", rec.Code)
	}
}

func TestAppStreamingPage(t *testing.T) {
	app := newTestApp(t, map[string]string{
		"feed.go": "package routes\n",
	}, Config{})

	app.Registry().Page(router.ConventionRoutes, "feed.go", &PageModule{
		Stream: true,
		Component: func(ctx *Context, props Props) *markup.Node {
			return markup.Main(
				markup.H1(markup.Text("Feed")),
				markup.Async(markup.P(markup.Text("loading posts")),
					func(context.Context) (*markup.Node, error) {
						return markup.Ul(markup.Li(markup.Text("first post"))), nil
					}),
			)
		},
	})

	rec := get(t, app, "/feed")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	body := rec.Body.String()

	if !strings.Contains(body, "loading posts") {
		t.Errorf("shell fallback missing:\n%s", body)
	}
	if !strings.Contains(body, "data-flexi-slot") {
		t.Errorf("slot markers missing:\n%s", body)
	}
	if !strings.Contains(body, "first post") {
		t.Errorf("streamed chunk missing:\n%s", body)
	}
	if !strings.Contains(body, "data-flexi-tpl") {
		t.Errorf("chunk template missing:\n%s", body)
	}
	if strings.Index(body, "loading posts") > strings.Index(body, "first post") {
		t.Errorf("chunk arrived before shell:\n%s", body)
	}
}

func TestAppDevModeInjectsLiveReload(t *testing.T) {
	app := newTestApp(t, map[string]string{
		"index.go": "package routes\n",
	}, Config{DevMode: true})
	app.Registry().Page(router.ConventionRoutes, "index.go", &PageModule{
		Component: func(ctx *Context, props Props) *markup.Node { return markup.Div() },
	})

	body := get(t, app, "/").Body.String()
	if !strings.Contains(body, "/_flexi/livereload") {
		t.Errorf("live reload client missing in dev mode:\n%s", body)
	}

	prodApp := newTestApp(t, map[string]string{
		"index.go": "package routes\n",
	}, Config{})
	prodApp.Registry().Page(router.ConventionRoutes, "index.go", &PageModule{
		Component: func(ctx *Context, props Props) *markup.Node { return markup.Div() },
	})
	body = get(t, prodApp, "/").Body.String()
	if strings.Contains(body, "livereload") {
		t.Errorf("live reload client leaked into production:\n%s", body)
	}
}

func TestAppRouteCachePersistence(t *testing.T) {
	app := newTestApp(t, map[string]string{
		"index.go":       "package routes\n",
		"blog/[slug].go": "package routes\n",
	}, Config{})
	register := func(a *App) {
		a.Registry().Page(router.ConventionRoutes, "index.go", &PageModule{
			Component: func(ctx *Context, props Props) *markup.Node { return markup.Text("home") },
		})
		a.Registry().Page(router.ConventionRoutes, "blog/[slug].go", &PageModule{
			Component: func(ctx *Context, props Props) *markup.Node {
				return markup.Text(ctx.Param("slug"))
			},
		})
	}
	register(app)

	cacheFile := filepath.Join(t.TempDir(), "routes.json")
	if err := app.SaveRoutes(cacheFile); err != nil {
		t.Fatalf("SaveRoutes: %v", err)
	}

	// A second app starts from the cache without scanning.
	restored := New(Config{Routes: RoutesConfig{RoutesDir: filepath.Join(t.TempDir(), "empty")}})
	register(restored)
	if err := restored.LoadRoutes(cacheFile); err != nil {
		t.Fatalf("LoadRoutes: %v", err)
	}

	rec := get(t, restored, "/blog/from-cache")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "from-cache") {
		t.Errorf("cached dynamic route lost its matcher:\n%s", rec.Body.String())
	}
}

func TestAppRescanPicksUpNewRoutes(t *testing.T) {
	routesDir := filepath.Join(t.TempDir(), "routes")
	writeRouteFiles(t, routesDir, map[string]string{"index.go": "package routes\n"})

	app := New(Config{Routes: RoutesConfig{RoutesDir: routesDir}})
	app.Registry().Page(router.ConventionRoutes, "index.go", &PageModule{
		Component: func(ctx *Context, props Props) *markup.Node { return markup.Div() },
	})

	if rec := get(t, app, "/about"); rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected route before rescan: %d", rec.Code)
	}

	writeRouteFiles(t, routesDir, map[string]string{"about.go": "package routes\n"})
	app.Registry().Page(router.ConventionRoutes, "about.go", &PageModule{
		Component: func(ctx *Context, props Props) *markup.Node { return markup.Text("about us") },
	})
	app.Rescan()

	rec := get(t, app, "/about")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "about us") {
		t.Errorf("rescan missed the new route: code=%d body:\n%s", rec.Code, rec.Body.String())
	}
}

func TestAppDevModeSeesNewRoutesPerRequest(t *testing.T) {
	routesDir := filepath.Join(t.TempDir(), "routes")
	writeRouteFiles(t, routesDir, map[string]string{"index.go": "package routes\n"})

	app := New(Config{DevMode: true, Routes: RoutesConfig{RoutesDir: routesDir}})
	app.Registry().Page(router.ConventionRoutes, "index.go", &PageModule{
		Component: func(ctx *Context, props Props) *markup.Node { return markup.Div() },
	})

	// No Rescan, no watcher: the dev dispatcher rescans before matching.
	writeRouteFiles(t, routesDir, map[string]string{"fresh.go": "package routes\n"})
	app.Registry().Page(router.ConventionRoutes, "fresh.go", &PageModule{
		Component: func(ctx *Context, props Props) *markup.Node { return markup.Text("fresh route") },
	})

	rec := get(t, app, "/fresh")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "fresh route") {
		t.Errorf("dev dispatch missed a new route file: code=%d body:\n%s", rec.Code, rec.Body.String())
	}
}

func TestAppHookPanicBecomesError(t *testing.T) {
	app := newTestApp(t, map[string]string{
		"kaput.go": "package routes\n",
	}, Config{})

	app.Registry().Page(router.ConventionRoutes, "kaput.go", &PageModule{
		GetServerProps: func(ctx *Context) (*HookResult, error) {
			panic("totally unexpected")
		},
		Component: func(ctx *Context, props Props) *markup.Node { return markup.Div() },
	})

	rec := get(t, app, "/kaput")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("code = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "totally unexpected") {
		t.Errorf("panic detail leaked outside dev mode:\n%s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Internal Server Error") {
		t.Errorf("generic error body missing:\n%s", rec.Body.String())
	}
}
