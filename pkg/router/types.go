package router

// Kind identifies what a discovered route file is.
type Kind int

const (
	KindPage Kind = iota
	KindAPI
	KindLayout
	KindLoading
	KindError
	KindNotFound
	KindMiddleware
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindPage:
		return "page"
	case KindAPI:
		return "api"
	case KindLayout:
		return "layout"
	case KindLoading:
		return "loading"
	case KindError:
		return "error"
	case KindNotFound:
		return "not-found"
	case KindMiddleware:
		return "middleware"
	default:
		return "unknown"
	}
}

// Convention is one of the supported route directory conventions.
// Lower values have higher priority when URL paths collide.
type Convention int

const (
	// ConventionRoutes is the dedicated routes tree (highest priority).
	ConventionRoutes Convention = iota

	// ConventionApp is the app-style tree.
	ConventionApp

	// ConventionPages is the legacy pages tree (lowest priority).
	ConventionPages
)

// String returns the string representation of the Convention.
func (c Convention) String() string {
	switch c {
	case ConventionRoutes:
		return "routes"
	case ConventionApp:
		return "app"
	case ConventionPages:
		return "pages"
	default:
		return "unknown"
	}
}

// Segment is one element of a route path template.
type Segment struct {
	// Literal is the verbatim segment text for static segments.
	Literal string

	// Param is the parameter name for :param and *catchAll segments.
	Param string

	// CatchAll marks a *param segment capturing all remaining segments.
	CatchAll bool
}

// IsParam returns true for dynamic segments (:param or *catchAll).
func (s Segment) IsParam() bool {
	return s.Param != ""
}

// Capabilities are flags derived from a route file's first-line directive.
type Capabilities struct {
	// ServerOnly marks a route that never ships client code.
	ServerOnly bool

	// ClientHydrated marks a page needing full-page client hydration.
	ClientHydrated bool

	// Island marks a page containing island sub-components.
	Island bool
}

// Descriptor is one discovered route file. Descriptors are created fresh on
// every scan pass and never mutated afterwards; a new scan supersedes the
// previous descriptor set wholesale.
type Descriptor struct {
	// Kind is the route file type.
	Kind Kind

	// Convention is the directory convention the file was found under.
	Convention Convention

	// URLPath is the normalized path template, e.g. "/blog/:slug".
	URLPath string

	// SourceFile is the path to the module implementing this route,
	// relative to the convention root.
	SourceFile string

	// Segments is the ordered segment list of URLPath.
	Segments []Segment

	// Matcher is the compiled pattern for URLPath. Nil for special files.
	// Not serialized; LoadRoutes recompiles from URLPath.
	Matcher *Matcher `json:"-"`

	// Nearest enclosing special files, resolved at scan time by value
	// propagation during the directory walk. Empty when none applies.
	LayoutRef     string
	LoadingRef    string
	ErrorRef      string
	MiddlewareRef string

	// Capabilities are the directive-derived flags.
	Capabilities Capabilities
}

// Matched pairs a descriptor with the parameter bindings produced by
// matching one concrete URL. It lives for a single request.
type Matched struct {
	Route  *Descriptor
	Params map[string]string
}
