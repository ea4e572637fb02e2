package flexi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/flexireact/flexi/internal/dev"
	"github.com/flexireact/flexi/pkg/islands"
	"github.com/flexireact/flexi/pkg/markup"
	"github.com/flexireact/flexi/pkg/render"
	"github.com/flexireact/flexi/pkg/router"
)

type islandRegistryKey struct{}

// Islands returns the per-render island registry. Page components pass it
// to islands.New; it is nil outside a page render.
func (c *Context) Islands() *islands.Registry {
	reg, _ := c.Value(islandRegistryKey{}).(*islands.Registry)
	return reg
}

// routeMiddleware collects the middleware that applies to one matched
// route: the nearest middleware file's stack first, then the module's own.
func (a *App) routeMiddleware(d *router.Descriptor, moduleMws []Middleware) []Middleware {
	var mws []Middleware
	if d.MiddlewareRef != "" {
		conv := a.specialConvention(d, d.MiddlewareRef)
		mws = append(mws, a.registry.middleware(moduleKey(conv, d.MiddlewareRef))...)
	}
	return append(mws, moduleMws...)
}

// specialConvention resolves which convention a special-file reference was
// discovered under. Falls back to the route's own convention.
func (a *App) specialConvention(d *router.Descriptor, ref string) router.Convention {
	if special, ok := a.table().Specials[ref]; ok {
		return special.Convention
	}
	return d.Convention
}

// applyOutcome writes a short-circuiting middleware outcome. Returns true
// when the request is finished.
func (a *App) applyOutcome(w http.ResponseWriter, ctx *Context, outcome Outcome) bool {
	switch outcome.Kind {
	case OutcomeRedirect:
		ctx.Redirect(outcome.URL, outcome.Code)
		return true
	case OutcomeResponse:
		for key, vals := range outcome.Headers {
			for _, v := range vals {
				ctx.AddHeader(key, v)
			}
		}
		status := outcome.Status
		if status == 0 {
			status = http.StatusOK
		}
		ctx.applyTo(w)
		w.WriteHeader(status)
		w.Write(outcome.Body)
		ctx.responded = true
		return true
	default:
		return false
	}
}

// handlePage serves one matched page route.
func (a *App) handlePage(w http.ResponseWriter, r *http.Request, ctx *Context, m *router.Matched) {
	d := m.Route
	ctx.setParams(m.Params)

	module, ok := a.modules.LoadPage(d.Convention, d.SourceFile)
	if !ok {
		a.logger.Error("page route has no registered module",
			"path", d.URLPath, "file", d.SourceFile)
		a.renderNotFound(w, ctx)
		return
	}

	outcome := EvaluateMiddleware(ctx, a.routeMiddleware(d, module.Middleware), a.logger)
	if a.applyOutcome(w, ctx, outcome) {
		return
	}

	props, finished := a.runDataHooks(w, ctx, d, module)
	if finished {
		return
	}

	a.renderPage(w, r, ctx, d, module, props, http.StatusOK)
}

// runDataHooks executes the module's data hook and resolves its result.
// Returns the merged props, or finished=true when the hook already decided
// the response (redirect, not-found, or error).
func (a *App) runDataHooks(w http.ResponseWriter, ctx *Context, d *router.Descriptor, module *PageModule) (Props, bool) {
	var (
		result *HookResult
		err    error
	)

	switch {
	case module.GetServerProps != nil:
		result, err = runHook(module.GetServerProps, ctx)
	case module.GetStaticProps != nil:
		result, err = a.modules.StaticProps(d.Convention, d.SourceFile, module.GetStaticProps, ctx)
	default:
		return Props{}, false
	}

	if err != nil {
		if sig, ok := AsRedirect(err); ok {
			ctx.Redirect(sig.URL, sig.Code)
			return nil, true
		}
		if IsNotFoundSignal(err) {
			a.renderNotFound(w, ctx)
			return nil, true
		}
		a.renderPageError(w, ctx, d, err)
		return nil, true
	}

	if result == nil {
		return Props{}, false
	}
	if result.Redirect != nil {
		ctx.Redirect(result.Redirect.Destination, result.Redirect.StatusCode)
		return nil, true
	}
	if result.NotFound {
		a.renderNotFound(w, ctx)
		return nil, true
	}
	if result.Props == nil {
		return Props{}, false
	}
	return result.Props, false
}

// runHook invokes a data hook, converting panics to errors so a broken
// hook renders the error path instead of crashing the server.
func runHook(hook DataHook, ctx *Context) (result *HookResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if recErr, ok := rec.(error); ok && isSignal(recErr) {
				err = recErr
				return
			}
			err = fmt.Errorf("data hook panic: %v", rec)
		}
	}()
	return hook(ctx)
}

// isSignal reports whether an error is a control-flow signal rather than a
// failure.
func isSignal(err error) bool {
	if _, ok := AsRedirect(err); ok {
		return true
	}
	return IsNotFoundSignal(err)
}

// renderPage composes the full node tree for a page (content, error
// boundary, layouts) and writes the document.
func (a *App) renderPage(w http.ResponseWriter, r *http.Request, ctx *Context, d *router.Descriptor, module *PageModule, props Props, status int) {
	reg := islands.NewRegistry()
	ctx.SetValue(islandRegistryKey{}, reg)

	body := a.composePage(ctx, d, module, props)

	doc := render.Document{
		Body:  body,
		Title: module.Title,
		Meta:  module.Meta,
	}
	if d.Capabilities.ClientHydrated {
		doc.Props = props
	}
	doc.FinalScripts = func() []render.ScriptTag {
		return a.finalScripts(d, reg)
	}

	if module.Stream {
		a.streamDocument(w, r, ctx, doc, status)
		return
	}

	// Buffer the document so a render failure can still become a clean
	// error response.
	var buf bytes.Buffer
	renderer := render.NewWithContext(r.Context(), render.Config{})
	if err := renderer.RenderDocument(&buf, doc); err != nil {
		a.renderPageError(w, ctx, d, err)
		return
	}

	ctx.SetHeader("Content-Type", "text/html; charset=utf-8")
	ctx.applyTo(w)
	w.WriteHeader(status)
	w.Write(buf.Bytes())
	ctx.responded = true
}

// composePage builds the node tree: the page component, wrapped in its
// nearest error boundary, wrapped in the layout chain outermost-last.
func (a *App) composePage(ctx *Context, d *router.Descriptor, module *PageModule, props Props) *markup.Node {
	page := func() *markup.Node {
		if module.Component == nil {
			return markup.Fragment()
		}
		return module.Component(ctx, props)
	}

	var body *markup.Node
	if errComp := a.errorComponentFor(d); errComp != nil {
		// The component call is deferred into the boundary so panics
		// and render errors surface there, not here.
		inner := &markup.Node{Kind: markup.KindComponent, Comp: componentFunc(page)}
		body = markup.Boundary(errComp, inner)
	} else {
		body = page()
	}

	if module.Stream && d.LoadingRef != "" {
		if loading := a.loadingComponentFor(d); loading != nil {
			content := body
			body = markup.Async(loading(), func(context.Context) (*markup.Node, error) {
				return content, nil
			})
		}
	}

	return a.wrapLayouts(ctx, d, props, body)
}

// wrapLayouts nests the body inside the route's layout chain, innermost
// layout applied first so chain[0] ends up outermost.
func (a *App) wrapLayouts(ctx *Context, d *router.Descriptor, props Props, body *markup.Node) *markup.Node {
	chain := a.table().LayoutChain(d)
	for i := len(chain) - 1; i >= 0; i-- {
		ref := chain[i]
		conv := a.specialConvention(d, ref)
		layout, ok := a.modules.LoadLayout(conv, ref)
		if !ok || layout.Component == nil {
			a.logger.Warn("layout file has no registered module", "file", ref)
			continue
		}
		body = layout.Component(ctx, props, body)
	}
	return body
}

// errorComponentFor resolves the nearest error component for a route.
func (a *App) errorComponentFor(d *router.Descriptor) ErrorComponent {
	if d.ErrorRef == "" {
		return nil
	}
	conv := a.specialConvention(d, d.ErrorRef)
	comp, ok := a.registry.errorPage(moduleKey(conv, d.ErrorRef))
	if !ok {
		return nil
	}
	return comp
}

// loadingComponentFor resolves the nearest loading component for a route.
func (a *App) loadingComponentFor(d *router.Descriptor) LoadingComponent {
	if d.LoadingRef == "" {
		return nil
	}
	conv := a.specialConvention(d, d.LoadingRef)
	comp, ok := a.registry.loading(moduleKey(conv, d.LoadingRef))
	if !ok {
		return nil
	}
	return comp
}

// finalScripts assembles the hydration scripts for a rendered page: the
// island bootstrap when islands registered, and the page entry module for
// fully hydrated pages. Server-only pages with no islands get nothing.
func (a *App) finalScripts(d *router.Descriptor, reg *islands.Registry) []render.ScriptTag {
	var scripts []render.ScriptTag

	if a.config.Islands.Enabled && reg.Len() > 0 {
		bootstrap, err := islands.BootstrapScript(reg.Records())
		if err != nil {
			a.logger.Error("island bootstrap generation failed", "error", err)
		} else if bootstrap != "" {
			scripts = append(scripts, render.ScriptTag{Inline: bootstrap, Module: true})
		}
	}

	if d.Capabilities.ClientHydrated && !d.Capabilities.ServerOnly {
		scripts = append(scripts, render.ScriptTag{
			Src:    clientEntryPath(d),
			Module: true,
		})
	}

	if a.config.DevMode {
		scripts = append(scripts, render.ScriptTag{Inline: dev.ClientScript})
	}

	return scripts
}

// clientEntryPath maps a route source file to its built client bundle URL.
func clientEntryPath(d *router.Descriptor) string {
	file := d.SourceFile
	if ext := path.Ext(file); ext != "" {
		file = strings.TrimSuffix(file, ext)
	}
	return InternalPrefix + "assets/" + d.Convention.String() + "/" + file + ".js"
}

// streamDocument serves a page with the streaming renderer: headers and the
// shell flush first, async chunks follow. Errors after the first byte can
// only be logged.
func (a *App) streamDocument(w http.ResponseWriter, r *http.Request, ctx *Context, doc render.Document, status int) {
	ctx.SetHeader("Content-Type", "text/html; charset=utf-8")
	ctx.applyTo(w)
	w.WriteHeader(status)
	ctx.responded = true

	sr := render.NewStreaming(r.Context(), w, render.Config{})
	if err := sr.StreamDocument(doc); err != nil {
		a.logger.Error("streaming render failed", "path", ctx.Path(), "error", err)
	}
}

// renderNotFound serves the 404 path: the nearest user not-found page when
// one exists, a minimal default document otherwise.
func (a *App) renderNotFound(w http.ResponseWriter, ctx *Context) {
	table := a.table()

	if d := table.NotFoundFor(ctx.Path()); d != nil {
		comp, ok := a.registry.notFoundPage(moduleKey(d.Convention, d.SourceFile))
		if ok && comp != nil {
			body := a.wrapLayouts(ctx, d, Props{}, comp(ctx))
			a.writeDocument(w, ctx, render.Document{Body: body, Title: "Not Found"}, http.StatusNotFound)
			return
		}
	}

	a.writeDocument(w, ctx, render.Document{
		Body:  markup.Main(markup.H1(markup.Text("404")), markup.P(markup.Text("Page not found"))),
		Title: "Not Found",
	}, http.StatusNotFound)
}

// renderPageError serves the 500 path for a failed hook or render. The
// nearest error component gets first shot; development responses include
// the error message, production responses never do.
func (a *App) renderPageError(w http.ResponseWriter, ctx *Context, d *router.Descriptor, err error) {
	a.logger.Error("page failed", "path", ctx.Path(), "error", err)

	status := http.StatusInternalServerError
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		status = httpErr.Code
	}

	if d != nil {
		if errComp := a.errorComponentFor(d); errComp != nil {
			body := errComp(err, func() *markup.Node { return nil })
			if body != nil {
				a.writeDocument(w, ctx, render.Document{Body: body, Title: "Error"}, status)
				return
			}
		}
	}

	msg := "Internal Server Error"
	if a.config.DevMode {
		msg = err.Error()
	}
	a.writeDocument(w, ctx, render.Document{
		Body:  markup.Main(markup.H1(markup.Text("Error")), markup.Pre(markup.Text(msg))),
		Title: "Error",
	}, status)
}

// writeDocument renders a document to a buffer and writes it with the given
// status. Render failures degrade to a plain-text 500.
func (a *App) writeDocument(w http.ResponseWriter, ctx *Context, doc render.Document, status int) {
	var buf bytes.Buffer
	renderer := render.New(render.Config{})
	if err := renderer.RenderDocument(&buf, doc); err != nil {
		a.logger.Error("document render failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ctx.SetHeader("Content-Type", "text/html; charset=utf-8")
	ctx.applyTo(w)
	w.WriteHeader(status)
	w.Write(buf.Bytes())
	ctx.responded = true
}

// handleAPI serves one matched API route.
func (a *App) handleAPI(w http.ResponseWriter, r *http.Request, ctx *Context, m *router.Matched) {
	d := m.Route
	ctx.setParams(m.Params)

	module, ok := a.modules.LoadAPI(d.Convention, d.SourceFile)
	if !ok {
		a.logger.Error("api route has no registered module",
			"path", d.URLPath, "file", d.SourceFile)
		a.apiError(w, ctx, http.StatusNotFound, "not found")
		return
	}

	outcome := EvaluateMiddleware(ctx, a.routeMiddleware(d, module.Middleware), a.logger)
	if a.applyOutcome(w, ctx, outcome) {
		return
	}

	handler, ok := module.HandlerFor(r.Method)
	if !ok {
		if methods := module.Methods(); len(methods) > 0 {
			ctx.SetHeader("Allow", strings.Join(methods, ", "))
		}
		a.apiError(w, ctx, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	err := invokeAPI(handler, ctx)
	if err == nil {
		if !ctx.responded {
			// Handler completed without a body; honor deferred status.
			ctx.applyTo(w)
			w.WriteHeader(ctx.status)
			ctx.responded = true
		}
		return
	}

	if ctx.responded {
		a.logger.Error("api handler failed after writing response",
			"path", ctx.Path(), "error", err)
		return
	}

	if sig, ok := AsRedirect(err); ok {
		ctx.Redirect(sig.URL, sig.Code)
		return
	}
	if IsNotFoundSignal(err) {
		a.apiError(w, ctx, http.StatusNotFound, "not found")
		return
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		a.apiError(w, ctx, httpErr.Code, httpErr.Error())
		return
	}

	a.logger.Error("api handler failed", "path", ctx.Path(), "error", err)
	msg := "internal server error"
	if a.config.DevMode {
		msg = err.Error()
	}
	a.apiError(w, ctx, http.StatusInternalServerError, msg)
}

// invokeAPI runs an API handler, converting panics to errors.
func invokeAPI(handler APIHandler, ctx *Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if recErr, ok := rec.(error); ok && isSignal(recErr) {
				err = recErr
				return
			}
			err = fmt.Errorf("api handler panic: %v", rec)
		}
	}()
	return handler(ctx)
}

// apiError writes a JSON error body with the given status.
func (a *App) apiError(w http.ResponseWriter, ctx *Context, status int, message string) {
	_ = ctx.JSON(status, map[string]string{"error": message})
}

// componentFunc adapts a plain function to the markup.Component interface.
type componentFunc func() *markup.Node

// Render implements markup.Component.
func (f componentFunc) Render() *markup.Node { return f() }
