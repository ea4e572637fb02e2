package flexi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/flexireact/flexi/internal/dev"
	"github.com/flexireact/flexi/pkg/actions"
	"github.com/flexireact/flexi/pkg/router"
)

// App is the framework server: it scans routes, dispatches requests through
// middleware to static files, API handlers, and page renders, and hosts the
// internal endpoints under /_flexi/.
type App struct {
	config   Config
	logger   *slog.Logger
	registry *ModuleRegistry
	modules  *ModuleCache
	scanner  *router.Scanner
	routes   atomic.Pointer[router.Table]

	staticFS http.FileSystem
	buildFS  http.FileSystem

	globals []Middleware
	actions *actions.Registry
	reload  *dev.ReloadHub
}

// New creates an App from the resolved configuration and runs the initial
// route scan. Register modules against Registry() before serving.
func New(cfg Config) *App {
	if cfg.Routes.RoutesDir == "" && cfg.Routes.AppDir == "" && cfg.Routes.PagesDir == "" {
		cfg.Routes = DefaultRoutesConfig()
	}
	if cfg.Server.Port == 0 {
		cfg.Server = DefaultServerConfig()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{
		config:   cfg,
		logger:   logger,
		registry: NewModuleRegistry(),
		actions:  actions.NewRegistry(),
	}
	a.modules = NewModuleCache(a.registry, !cfg.DevMode)
	a.scanner = router.NewScanner(router.ScanConfig{
		Roots:      cfg.Routes.ConventionRoots(),
		Extensions: cfg.Routes.Extensions,
		Logger:     logger,
	})

	if cfg.Static.Dir != "" {
		a.staticFS = http.Dir(cfg.Static.Dir)
	}
	if cfg.Static.BuildDir != "" {
		a.buildFS = http.Dir(cfg.Static.BuildDir)
	}
	if cfg.DevMode {
		a.reload = dev.NewReloadHub()
	}

	a.Rescan()
	return a
}

// Registry returns the module registry route files register against.
func (a *App) Registry() *ModuleRegistry { return a.registry }

// Actions returns the server-action registry.
func (a *App) Actions() *actions.Registry { return a.actions }

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// Use appends global middleware, run on every request before static
// resolution and route matching.
func (a *App) Use(mws ...Middleware) {
	for i := range mws {
		if err := mws[i].compile(); err != nil {
			a.logger.Warn("global middleware has invalid matchers", "error", err)
		}
	}
	a.globals = append(a.globals, mws...)
}

// Rescan walks the route directories and swaps in a freshly built route
// table. Requests in flight keep the table they started with.
func (a *App) Rescan() {
	descriptors := a.scanner.Scan()
	table := router.Build(descriptors, a.logger)
	a.routes.Store(table)
	a.logger.Info("route table built",
		"pages", len(table.Pages), "apis", len(table.APIs))
}

// devRescan rebuilds the route table before matching so route-file edits are
// visible without the watcher running. Dev mode only; the table swap is
// atomic so requests in flight are unaffected.
func (a *App) devRescan() {
	a.routes.Store(router.Build(a.scanner.Scan(), a.logger))
}

// table returns the current route table.
func (a *App) table() *router.Table {
	return a.routes.Load()
}

// RouteList returns a human-readable summary of the current route table,
// one line per route in match order.
func (a *App) RouteList() []string {
	table := a.table()
	var lines []string
	for _, d := range table.Pages {
		lines = append(lines, fmt.Sprintf("PAGE %-30s %s (%s)", d.URLPath, d.SourceFile, d.Convention))
	}
	for _, d := range table.APIs {
		lines = append(lines, fmt.Sprintf("API  %-30s %s (%s)", d.URLPath, d.SourceFile, d.Convention))
	}
	return lines
}

// SaveRoutes writes the scanned descriptors to disk so production startup
// can skip the filesystem walk.
func (a *App) SaveRoutes(path string) error {
	descriptors := a.scanner.Scan()
	data, err := json.MarshalIndent(descriptors, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadRoutes builds the route table from a descriptor file written by
// SaveRoutes, recompiling matchers from the stored templates.
func (a *App) LoadRoutes(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var descriptors []router.Descriptor
	if err := json.Unmarshal(data, &descriptors); err != nil {
		return fmt.Errorf("parsing route cache: %w", err)
	}
	for i := range descriptors {
		d := &descriptors[i]
		if d.Kind != router.KindPage && d.Kind != router.KindAPI {
			continue
		}
		matcher, err := router.Compile(d.URLPath)
		if err != nil {
			return fmt.Errorf("recompiling %s: %w", d.URLPath, err)
		}
		d.Matcher = matcher
	}
	a.routes.Store(router.Build(descriptors, a.logger))
	return nil
}

// StartDev runs the development watcher until the context ends: file
// changes invalidate the module cache, rebuild the route table, and notify
// connected browsers. No-op outside dev mode.
func (a *App) StartDev(ctx context.Context) error {
	if !a.config.DevMode {
		return nil
	}

	var dirs []string
	for _, root := range a.config.Routes.ConventionRoots() {
		dirs = append(dirs, root.Dir)
	}
	if a.config.Static.Dir != "" {
		dirs = append(dirs, a.config.Static.Dir)
	}

	watcher, err := dev.NewWatcher(dev.WatcherConfig{
		Dirs:   dirs,
		Logger: a.logger,
	})
	if err != nil {
		return err
	}

	watcher.OnChange(func(change dev.Change) {
		a.logger.Info("files changed, reloading", "count", len(change.Paths))
		a.modules.InvalidateAll()
		a.Rescan()
		if a.reload != nil {
			file := ""
			if len(change.Paths) > 0 {
				file = change.Paths[0]
			}
			a.reload.NotifyReload(file)
		}
	})

	return watcher.Start(ctx)
}

// ListenAndServe runs the HTTP server until the context ends, then shuts
// down gracefully.
func (a *App) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", a.config.Server.Host, a.config.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           a,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", "addr", addr, "dev", a.config.DevMode)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// ServeHTTP dispatches one request: internal endpoints, global middleware,
// static files, API routes, page routes, then the 404 path.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := newContext(w, r, a.logger)

	defer func() {
		if rec := recover(); rec != nil {
			a.recoverRequest(w, ctx, rec)
		}
	}()

	if strings.HasPrefix(r.URL.Path, InternalPrefix) {
		a.handleInternal(w, r, ctx)
		return
	}

	outcome := EvaluateMiddleware(ctx, a.globals, a.logger)
	if a.applyOutcome(w, ctx, outcome) {
		return
	}

	if a.tryServeStatic(w, r, ctx) {
		return
	}

	if a.config.DevMode {
		a.devRescan()
	}

	table := a.table()

	if m, ok := table.MatchAPI(ctx.Path()); ok {
		a.handleAPI(w, r, ctx, m)
		return
	}

	if m, ok := table.MatchPage(ctx.Path()); ok {
		a.handlePage(w, r, ctx, m)
		return
	}

	a.renderNotFound(w, ctx)
}

// recoverRequest turns a handler panic into a response. Control-flow
// signals raised as panics still take their normal path; anything else is
// a 500 whose details only dev mode exposes.
func (a *App) recoverRequest(w http.ResponseWriter, ctx *Context, rec any) {
	if err, ok := rec.(error); ok {
		if sig, isRedirect := AsRedirect(err); isRedirect && !ctx.responded {
			ctx.Redirect(sig.URL, sig.Code)
			return
		}
		if IsNotFoundSignal(err) && !ctx.responded {
			a.renderNotFound(w, ctx)
			return
		}
	}

	a.logger.Error("request panic", "path", ctx.OriginalPath(), "panic", rec)
	if ctx.responded {
		return
	}

	msg := "Internal Server Error"
	if a.config.DevMode {
		msg = fmt.Sprintf("panic: %v", rec)
	}
	http.Error(w, msg, http.StatusInternalServerError)
}

// handleInternal serves the reserved /_flexi/ endpoints.
func (a *App) handleInternal(w http.ResponseWriter, r *http.Request, ctx *Context) {
	rest := strings.TrimPrefix(r.URL.Path, InternalPrefix)

	switch {
	case strings.HasPrefix(rest, "assets/"):
		a.serveBuiltAsset(w, r)

	case rest == "action":
		a.handleAction(w, r, ctx)

	case rest == "livereload" && a.reload != nil:
		a.reload.ServeHTTP(w, r)

	default:
		http.NotFound(w, r)
	}
}

// handleAction invokes a registered server action from a JSON POST body.
func (a *App) handleAction(w http.ResponseWriter, r *http.Request, ctx *Context) {
	if r.Method != http.MethodPost {
		ctx.SetHeader("Allow", http.MethodPost)
		a.apiError(w, ctx, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var inv actions.Invocation
	if err := ctx.DecodeJSON(&inv); err != nil {
		a.apiError(w, ctx, http.StatusBadRequest, "malformed action invocation")
		return
	}

	result, err := a.actions.Invoke(r.Context(), inv)
	if err != nil {
		var unknown *actions.ErrUnknownAction
		if errors.As(err, &unknown) {
			a.apiError(w, ctx, http.StatusNotFound, err.Error())
			return
		}
		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			a.apiError(w, ctx, httpErr.Code, httpErr.Error())
			return
		}
		a.logger.Error("action failed", "action", inv.ID, "error", err)
		msg := "internal server error"
		if a.config.DevMode {
			msg = err.Error()
		}
		a.apiError(w, ctx, http.StatusInternalServerError, msg)
		return
	}

	_ = ctx.JSON(http.StatusOK, actions.Result{Data: result})
}
