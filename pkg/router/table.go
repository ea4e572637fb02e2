package router

import (
	"log/slog"
	"sort"
)

// Table is the aggregate result of one scan pass: flat per-convention route
// lists for matching plus a segment tree for layout-chain lookups. Both are
// derived from the same descriptor list in the same Build call, so they
// cannot drift apart. Tables are immutable once built; dev mode builds a
// fresh table and swaps it wholesale.
type Table struct {
	// Pages and APIs are concatenated convention buckets in priority
	// order: the routes tree first, then app, then pages. Within one
	// bucket, more specific templates come first.
	Pages []*Descriptor
	APIs  []*Descriptor

	// Specials indexes layout/loading/error/not-found/middleware
	// descriptors by source file.
	Specials map[string]*Descriptor

	tree *TreeNode
}

// Build partitions descriptors into per-convention Page/API buckets,
// concatenates them in priority order, and constructs the layout tree.
// A static path collision across conventions keeps the earlier-priority
// route and logs a warning for the shadowed one.
func Build(descriptors []Descriptor, logger *slog.Logger) *Table {
	if logger == nil {
		logger = slog.Default()
	}

	t := &Table{
		Specials: make(map[string]*Descriptor),
		tree:     newTreeNode(),
	}

	pageBuckets := make(map[Convention][]*Descriptor)
	apiBuckets := make(map[Convention][]*Descriptor)

	for i := range descriptors {
		d := &descriptors[i]
		switch d.Kind {
		case KindPage:
			pageBuckets[d.Convention] = append(pageBuckets[d.Convention], d)
		case KindAPI:
			apiBuckets[d.Convention] = append(apiBuckets[d.Convention], d)
		default:
			t.Specials[d.SourceFile] = d
		}
	}

	conventions := []Convention{ConventionRoutes, ConventionApp, ConventionPages}

	// Special files insert in priority order so the earliest convention's
	// layout wins a node.
	for _, conv := range conventions {
		for i := range descriptors {
			d := &descriptors[i]
			if d.Convention != conv {
				continue
			}
			switch d.Kind {
			case KindPage, KindAPI:
				t.tree.addRoute(d)
			default:
				t.tree.addSpecial(d)
			}
		}
	}

	seenPage := make(map[string]Convention)
	seenAPI := make(map[string]Convention)

	for _, conv := range conventions {
		bucket := pageBuckets[conv]
		sortBySpecificity(bucket)
		for _, d := range bucket {
			if prev, ok := seenPage[d.URLPath]; ok {
				logger.Warn("route collision across conventions",
					"path", d.URLPath,
					"kept", prev.String(),
					"shadowed", d.Convention.String(),
					"file", d.SourceFile)
				continue
			}
			seenPage[d.URLPath] = conv
			t.Pages = append(t.Pages, d)
		}

		bucket = apiBuckets[conv]
		sortBySpecificity(bucket)
		for _, d := range bucket {
			if prev, ok := seenAPI[d.URLPath]; ok {
				logger.Warn("route collision across conventions",
					"path", d.URLPath,
					"kept", prev.String(),
					"shadowed", d.Convention.String(),
					"file", d.SourceFile)
				continue
			}
			seenAPI[d.URLPath] = conv
			t.APIs = append(t.APIs, d)
		}
	}

	return t
}

// MatchPage matches a concrete URL against the page routes, trying each
// convention bucket in priority order. The first match wins.
func (t *Table) MatchPage(url string) (*Matched, bool) {
	return match(t.Pages, url)
}

// MatchAPI matches a concrete URL against the API routes. Method resolution
// happens at dispatch time against the route's module exports.
func (t *Table) MatchAPI(url string) (*Matched, bool) {
	return match(t.APIs, url)
}

func match(routes []*Descriptor, url string) (*Matched, bool) {
	for _, d := range routes {
		if params, ok := d.Matcher.Match(url); ok {
			return &Matched{Route: d, Params: params}, true
		}
	}
	return nil, false
}

// LayoutChain returns the layout source files wrapping a route, outermost
// first.
func (t *Table) LayoutChain(d *Descriptor) []string {
	return t.tree.LayoutChain(d)
}

// NotFoundFor returns the closest not-found descriptor for a URL's position
// in the tree, or nil when no not-found file exists.
func (t *Table) NotFoundFor(url string) *Descriptor {
	var segs []Segment
	for _, part := range splitPath(url) {
		segs = append(segs, Segment{Literal: part})
	}
	return t.tree.nearestNotFound(segs)
}

// specificity orders templates so static routes match before parameterized
// ones and catch-alls come last: a page at /blog/new must win over
// /blog/:slug regardless of scan order.
func specificity(d *Descriptor) int {
	score := 0
	for _, seg := range d.Segments {
		switch {
		case seg.CatchAll:
			score += 100
		case seg.Param != "":
			score += 10
		}
	}
	// Shorter templates tie-break later so deeper static paths win.
	return score*1000 - len(d.Segments)
}

func sortBySpecificity(routes []*Descriptor) {
	sort.SliceStable(routes, func(i, j int) bool {
		return specificity(routes[i]) < specificity(routes[j])
	})
}
