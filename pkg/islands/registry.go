package islands

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/flexireact/flexi/pkg/markup"
)

// Strategy controls when an island hydrates on the client.
type Strategy int

const (
	// Immediate hydrates as soon as the DOM is ready.
	Immediate Strategy = iota

	// Visible hydrates when the island's DOM node scrolls into view.
	Visible

	// Idle hydrates during browser idle time.
	Idle

	// MediaQuery hydrates when a media query matches.
	MediaQuery
)

// String returns the client-side name for the strategy.
func (s Strategy) String() string {
	switch s {
	case Immediate:
		return "immediate"
	case Visible:
		return "visible"
	case Idle:
		return "idle"
	case MediaQuery:
		return "media"
	default:
		return "immediate"
	}
}

// Record is one island registered during a single render pass.
type Record struct {
	// ID is unique per render: component name plus a random suffix.
	ID string `json:"id"`

	// ClientEntry is where the island's client bundle can be fetched.
	ClientEntry string `json:"entry"`

	// Props is the JSON-safe props snapshot passed to the client mount.
	Props any `json:"props"`

	// Strategy selects the hydration trigger.
	Strategy Strategy `json:"-"`

	// Media is the media query for the MediaQuery strategy.
	Media string `json:"media,omitempty"`
}

// Registry collects islands registered during one render pass.
//
// A Registry is scoped to a single render call. Sharing one registry across
// concurrent requests leaks islands between pages; the page handler
// allocates a fresh registry per render and collects the records at the end.
type Registry struct {
	mu      sync.Mutex
	records []Record
}

// NewRegistry creates an empty per-render registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register records one island encountered during the render pass.
func (r *Registry) Register(rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

// Records returns the islands collected so far, in registration order.
func (r *Registry) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// Len returns the number of registered islands.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Reset clears the registry for reuse at the start of a render pass.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = nil
}

// newIslandID derives a per-render island id from the component name.
func newIslandID(name string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return name + "-" + suffix
}

// Options configures an island wrapper.
type Options struct {
	// ClientEntry is the URL of the island's client bundle.
	ClientEntry string

	// Props is the JSON-safe props snapshot for client hydration.
	Props any

	// Strategy selects the hydration trigger. Defaults to Immediate.
	Strategy Strategy

	// Media is the media query for the MediaQuery strategy.
	Media string
}

// island registers itself when rendered, so islands inside branches that
// never render are never registered.
type island struct {
	reg   *Registry
	name  string
	opts  Options
	inner markup.Component
}

// Render renders the inner component to server markup immediately (server
// output never depends on client JS) and registers the island record for
// hydration script generation.
func (i *island) Render() *markup.Node {
	id := newIslandID(i.name)

	i.reg.Register(Record{
		ID:          id,
		ClientEntry: i.opts.ClientEntry,
		Props:       i.opts.Props,
		Strategy:    i.opts.Strategy,
		Media:       i.opts.Media,
	})

	var content *markup.Node
	if i.inner != nil {
		content = i.inner.Render()
	}

	return markup.Div(
		markup.Data("flexi-island", i.name),
		markup.Data("flexi-island-id", id),
		content,
	)
}

// New wraps a component as an island. When the returned node renders, the
// inner component is rendered to a markup fragment and an island record is
// registered with the given per-render registry.
func New(reg *Registry, name string, inner markup.Component, opts Options) *markup.Node {
	return &markup.Node{
		Kind: markup.KindComponent,
		Comp: &island{reg: reg, name: name, opts: opts, inner: inner},
	}
}
