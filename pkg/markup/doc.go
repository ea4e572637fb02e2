// Package markup provides the server-side node tree that pages, layouts, and
// islands render into. A Node is either an element, text, a fragment, raw
// HTML, a nested component, an async boundary, or an error boundary. The
// render package serializes Node trees to HTML.
package markup
