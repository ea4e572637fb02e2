// Package render serializes markup.Node trees to HTML.
//
// The package offers two modes with the same composition rules. The
// synchronous Renderer resolves async boundaries inline and produces the
// whole document in one pass. The StreamingRenderer flushes the document
// shell first and streams async boundaries as they resolve.
//
// Render-time failures inside an error boundary are replaced by the
// boundary's fallback component; failures with no enclosing boundary are
// returned to the caller.
package render
