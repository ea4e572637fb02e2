package flexi

import (
	"strings"
	"sync"

	"github.com/flexireact/flexi/pkg/markup"
	"github.com/flexireact/flexi/pkg/render"
	"github.com/flexireact/flexi/pkg/router"
)

// Props is the merged page props passed from data hooks to components.
type Props map[string]any

// PageComponent is a page module's default export: it renders the page
// content for a request.
type PageComponent func(ctx *Context, props Props) *markup.Node

// LayoutComponent wraps child content in a layout.
type LayoutComponent func(ctx *Context, props Props, children *markup.Node) *markup.Node

// LoadingComponent renders a loading fallback.
type LoadingComponent func() *markup.Node

// ErrorComponent replaces a page subtree whose render failed. The reset
// callback re-renders the subtree once.
type ErrorComponent func(err error, reset func() *markup.Node) *markup.Node

// NotFoundComponent renders a 404 page.
type NotFoundComponent func(ctx *Context) *markup.Node

// RedirectResult is a data hook's request to redirect instead of rendering.
type RedirectResult struct {
	Destination string
	StatusCode  int
}

// HookResult is what a data-fetching hook produces: exactly one of a props
// object, a redirect, or not-found.
type HookResult struct {
	Props    Props
	Redirect *RedirectResult
	NotFound bool
}

// DataHook fetches data for a page. A hook may also fail with an ordinary
// error, which renders the error path.
type DataHook func(ctx *Context) (*HookResult, error)

// PageModule is the contract a page source file provides: a component,
// optional data hooks, optional metadata, and optional route-local
// middleware.
type PageModule struct {
	// Component is the default-exported renderable. Required.
	Component PageComponent

	// GetServerProps runs per request. Takes precedence over
	// GetStaticProps when both are present.
	GetServerProps DataHook

	// GetStaticProps runs at build time; its result is cached with the
	// module.
	GetStaticProps DataHook

	// Title and Meta feed the document head.
	Title string
	Meta  []render.MetaTag

	// Middleware is route-local and runs after global middleware.
	Middleware []Middleware

	// Stream opts this page into streaming rendering.
	Stream bool
}

// APIHandler handles one API request through the enhanced context.
type APIHandler func(ctx *Context) error

// APIModule is the contract an API source file provides: per-method
// handlers and an optional catch-all.
type APIModule struct {
	// Handlers maps HTTP method names to handlers. Keys are
	// case-insensitive: "get" and "GET" address the same handler.
	Handlers map[string]APIHandler

	// Default is the catch-all used when no method-specific handler
	// exists.
	Default APIHandler

	// Middleware is route-local and runs after global middleware.
	Middleware []Middleware
}

// HandlerFor resolves the handler for a method, falling back to Default.
func (m *APIModule) HandlerFor(method string) (APIHandler, bool) {
	if m == nil {
		return nil, false
	}
	for name, h := range m.Handlers {
		if strings.EqualFold(name, method) {
			return h, true
		}
	}
	if m.Default != nil {
		return m.Default, true
	}
	return nil, false
}

// Methods lists the methods the module handles, for the Allow header.
func (m *APIModule) Methods() []string {
	var out []string
	for name := range m.Handlers {
		out = append(out, strings.ToUpper(name))
	}
	return out
}

// LayoutModule is the contract a layout source file provides.
type LayoutModule struct {
	Component LayoutComponent
}

// moduleKey namespaces a convention-relative source path so two conventions
// can register the same relative path independently.
func moduleKey(conv router.Convention, sourceFile string) string {
	return conv.String() + ":" + sourceFile
}

// ModuleRegistry maps route source files to their implementations. The app
// owns one registry; the scanner's descriptors reference files here.
type ModuleRegistry struct {
	mu          sync.RWMutex
	pages       map[string]*PageModule
	apis        map[string]*APIModule
	layouts     map[string]*LayoutModule
	loadings    map[string]LoadingComponent
	errorPages  map[string]ErrorComponent
	notFounds   map[string]NotFoundComponent
	middlewares map[string][]Middleware
}

// NewModuleRegistry creates an empty registry.
func NewModuleRegistry() *ModuleRegistry {
	return &ModuleRegistry{
		pages:       make(map[string]*PageModule),
		apis:        make(map[string]*APIModule),
		layouts:     make(map[string]*LayoutModule),
		loadings:    make(map[string]LoadingComponent),
		errorPages:  make(map[string]ErrorComponent),
		notFounds:   make(map[string]NotFoundComponent),
		middlewares: make(map[string][]Middleware),
	}
}

// Page registers a page module for a source file.
func (r *ModuleRegistry) Page(conv router.Convention, sourceFile string, m *PageModule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages[moduleKey(conv, sourceFile)] = m
}

// API registers an API module for a source file.
func (r *ModuleRegistry) API(conv router.Convention, sourceFile string, m *APIModule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.apis[moduleKey(conv, sourceFile)] = m
}

// Layout registers a layout module for a source file.
func (r *ModuleRegistry) Layout(conv router.Convention, sourceFile string, m *LayoutModule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.layouts[moduleKey(conv, sourceFile)] = m
}

// Loading registers a loading component for a source file.
func (r *ModuleRegistry) Loading(conv router.Convention, sourceFile string, c LoadingComponent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loadings[moduleKey(conv, sourceFile)] = c
}

// ErrorPage registers an error component for a source file.
func (r *ModuleRegistry) ErrorPage(conv router.Convention, sourceFile string, c ErrorComponent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errorPages[moduleKey(conv, sourceFile)] = c
}

// NotFoundPage registers a 404 component for a source file.
func (r *ModuleRegistry) NotFoundPage(conv router.Convention, sourceFile string, c NotFoundComponent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notFounds[moduleKey(conv, sourceFile)] = c
}

// Middleware registers route middleware for a middleware source file.
func (r *ModuleRegistry) Middleware(conv router.Convention, sourceFile string, mws ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range mws {
		// Invalid matcher patterns never match; registration proceeds.
		_ = mws[i].compile()
	}
	r.middlewares[moduleKey(conv, sourceFile)] = append(r.middlewares[moduleKey(conv, sourceFile)], mws...)
}

func (r *ModuleRegistry) page(key string) (*PageModule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.pages[key]
	return m, ok
}

func (r *ModuleRegistry) api(key string) (*APIModule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.apis[key]
	return m, ok
}

func (r *ModuleRegistry) layout(key string) (*LayoutModule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.layouts[key]
	return m, ok
}

func (r *ModuleRegistry) loading(key string) (LoadingComponent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.loadings[key]
	return c, ok
}

func (r *ModuleRegistry) errorPage(key string) (ErrorComponent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.errorPages[key]
	return c, ok
}

func (r *ModuleRegistry) notFoundPage(key string) (NotFoundComponent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.notFounds[key]
	return c, ok
}

func (r *ModuleRegistry) middleware(key string) []Middleware {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.middlewares[key]
}

// ModuleCache resolves module keys through the registry with explicit cache
// semantics: production resolves once and caches for the process lifetime,
// development calls Invalidate on file change so the next load re-resolves.
// This replaces loader cache-defeat tricks with an explicit operation.
type ModuleCache struct {
	registry *ModuleRegistry

	mu      sync.RWMutex
	caching bool
	cache   map[string]any
}

// NewModuleCache creates a cache over the registry. When caching is false
// every load consults the registry directly.
func NewModuleCache(registry *ModuleRegistry, caching bool) *ModuleCache {
	return &ModuleCache{
		registry: registry,
		caching:  caching,
		cache:    make(map[string]any),
	}
}

// Invalidate drops the cached resolution for a module key. Dev mode calls
// this when the watcher reports a change to the backing file.
func (c *ModuleCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cache, key)
}

// InvalidateAll drops every cached resolution.
func (c *ModuleCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]any)
}

// load resolves a key using resolve, caching the result when caching is on.
func (c *ModuleCache) load(key string, resolve func(string) (any, bool)) (any, bool) {
	if c.caching {
		c.mu.RLock()
		cached, ok := c.cache[key]
		c.mu.RUnlock()
		if ok {
			return cached, true
		}
	}

	value, ok := resolve(key)
	if !ok {
		return nil, false
	}

	if c.caching {
		c.mu.Lock()
		c.cache[key] = value
		c.mu.Unlock()
	}
	return value, true
}

// LoadPage resolves a page module.
func (c *ModuleCache) LoadPage(conv router.Convention, sourceFile string) (*PageModule, bool) {
	v, ok := c.load("page:"+moduleKey(conv, sourceFile), func(string) (any, bool) {
		return valueOK(c.registry.page(moduleKey(conv, sourceFile)))
	})
	if !ok {
		return nil, false
	}
	return v.(*PageModule), true
}

// LoadAPI resolves an API module.
func (c *ModuleCache) LoadAPI(conv router.Convention, sourceFile string) (*APIModule, bool) {
	v, ok := c.load("api:"+moduleKey(conv, sourceFile), func(string) (any, bool) {
		return valueOK(c.registry.api(moduleKey(conv, sourceFile)))
	})
	if !ok {
		return nil, false
	}
	return v.(*APIModule), true
}

// LoadLayout resolves a layout module.
func (c *ModuleCache) LoadLayout(conv router.Convention, sourceFile string) (*LayoutModule, bool) {
	v, ok := c.load("layout:"+moduleKey(conv, sourceFile), func(string) (any, bool) {
		return valueOK(c.registry.layout(moduleKey(conv, sourceFile)))
	})
	if !ok {
		return nil, false
	}
	return v.(*LayoutModule), true
}

// StaticProps runs a build-time data hook at most once per module when
// caching is on. Failed runs are not cached so a transient error does not
// poison the page for the process lifetime.
func (c *ModuleCache) StaticProps(conv router.Convention, sourceFile string, run DataHook, ctx *Context) (*HookResult, error) {
	key := "staticprops:" + moduleKey(conv, sourceFile)

	if c.caching {
		c.mu.RLock()
		cached, ok := c.cache[key]
		c.mu.RUnlock()
		if ok {
			return cached.(*HookResult), nil
		}
	}

	result, err := run(ctx)
	if err != nil {
		return nil, err
	}

	if c.caching {
		c.mu.Lock()
		c.cache[key] = result
		c.mu.Unlock()
	}
	return result, nil
}

func valueOK[T any](v T, ok bool) (any, bool) {
	if !ok {
		return nil, false
	}
	return v, true
}
