// Package router discovers route files from convention directories and
// builds the matchable route table the server dispatches against.
//
// The Scanner walks one or more convention roots (routes, app, pages) and
// produces typed Descriptors: pages, API routes, and the special layout,
// loading, error, not-found, and middleware files. Special names carry an
// underscore prefix (_layout.go); the app convention additionally reserves
// the bare names (layout.go). Build turns a descriptor list into a Table
// with priority-ordered flat lists for matching and a segment tree for
// nested-layout lookups.
package router
