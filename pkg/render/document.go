package render

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/flexireact/flexi/pkg/markup"
)

// DefaultMountID is the id of the root mount container element.
const DefaultMountID = "__flexi"

// PropsScriptID is the id of the serialized props script element consumed by
// client-side hydration.
const PropsScriptID = "__FLEXI_DATA__"

// Document contains all data needed to render a complete HTML page.
type Document struct {
	// Body is the root node for the page content, already composed with
	// layouts and boundaries.
	Body *markup.Node

	// Title is the page title. Escaped on output.
	Title string

	// Meta contains meta tags for the document head.
	Meta []MetaTag

	// Links contains link tags (stylesheets, favicon, etc.)
	Links []LinkTag

	// Scripts contains script tags for the head (defer/async only).
	Scripts []ScriptTag

	// Styles contains inline CSS styles.
	Styles []string

	// StyleSheets contains paths to external stylesheets.
	StyleSheets []string

	// Props is the page props snapshot serialized into the document for
	// client-side consumption. Nil means no props blob is emitted.
	Props any

	// BodyScripts are appended before the closing body tag. The page
	// handler uses this for island bootstrap and full-page hydration.
	BodyScripts []ScriptTag

	// FinalScripts, when set, is called at document close time and its
	// tags are appended after BodyScripts. Unlike BodyScripts it can
	// depend on what the body render produced, such as which islands
	// registered.
	FinalScripts func() []ScriptTag

	// MountID overrides the root container element id.
	// Defaults to DefaultMountID.
	MountID string

	// Lang is the language attribute for the html element.
	// Defaults to "en" if not specified.
	Lang string
}

// MetaTag represents a meta element in the document head.
type MetaTag struct {
	Name      string // name attribute
	Content   string // content attribute
	Property  string // property attribute (for OpenGraph)
	HTTPEquiv string // http-equiv attribute
	Charset   string // charset attribute
}

// LinkTag represents a link element in the document head.
type LinkTag struct {
	Rel         string
	Href        string
	Type        string
	Sizes       string
	CrossOrigin string
	Media       string
}

// ScriptTag represents a script element.
type ScriptTag struct {
	Src    string
	Type   string
	Defer  bool
	Async  bool
	Module bool   // type="module"
	Inline string // inline script content
}

// Mount returns the effective mount container id.
func (d Document) Mount() string {
	if d.MountID != "" {
		return d.MountID
	}
	return DefaultMountID
}

// RenderDocument renders a complete HTML document to the given writer.
// The body node tree renders in one pass; async boundaries resolve inline.
func (r *Renderer) RenderDocument(w io.Writer, doc Document) error {
	if err := r.renderDocumentOpen(w, doc); err != nil {
		return err
	}

	// Root mount container holding the page markup.
	if _, err := fmt.Fprintf(w, `<div id="%s">`, escapeAttr(doc.Mount())); err != nil {
		return err
	}
	if r.config.Pretty {
		w.Write([]byte{'\n'})
	}
	if err := r.ToWriter(w, doc.Body); err != nil {
		return err
	}
	if _, err := w.Write([]byte("</div>\n")); err != nil {
		return err
	}

	return r.renderDocumentClose(w, doc)
}

// renderDocumentOpen writes everything up to and including the opening of
// the body element.
func (r *Renderer) renderDocumentOpen(w io.Writer, doc Document) error {
	lang := doc.Lang
	if lang == "" {
		lang = "en"
	}

	if _, err := w.Write([]byte("<!DOCTYPE html>\n")); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, `<html lang="%s">`+"\n", escapeAttr(lang)); err != nil {
		return err
	}
	if err := r.renderHead(w, doc); err != nil {
		return err
	}
	_, err := w.Write([]byte("<body>\n"))
	return err
}

// renderDocumentClose writes the props blob, body scripts, and closing tags.
func (r *Renderer) renderDocumentClose(w io.Writer, doc Document) error {
	if err := r.renderPropsBlob(w, doc); err != nil {
		return err
	}

	for _, script := range doc.BodyScripts {
		if err := r.renderScriptTag(w, script); err != nil {
			return err
		}
	}

	if doc.FinalScripts != nil {
		for _, script := range doc.FinalScripts() {
			if err := r.renderScriptTag(w, script); err != nil {
				return err
			}
		}
	}

	_, err := w.Write([]byte("</body>\n</html>\n"))
	return err
}

// renderHead renders the document head section.
func (r *Renderer) renderHead(w io.Writer, doc Document) error {
	if _, err := w.Write([]byte("<head>\n")); err != nil {
		return err
	}

	if _, err := w.Write([]byte(`  <meta charset="utf-8">` + "\n")); err != nil {
		return err
	}
	if _, err := w.Write([]byte(`  <meta name="viewport" content="width=device-width, initial-scale=1">` + "\n")); err != nil {
		return err
	}

	if doc.Title != "" {
		if _, err := fmt.Fprintf(w, "  <title>%s</title>\n", escapeHTML(doc.Title)); err != nil {
			return err
		}
	}

	for _, meta := range doc.Meta {
		if err := r.renderMetaTag(w, meta); err != nil {
			return err
		}
	}

	for _, link := range doc.Links {
		if err := r.renderLinkTag(w, link); err != nil {
			return err
		}
	}

	for _, href := range doc.StyleSheets {
		if _, err := fmt.Fprintf(w, `  <link rel="stylesheet" href="%s">`+"\n", escapeAttr(href)); err != nil {
			return err
		}
	}

	for _, style := range doc.Styles {
		if _, err := fmt.Fprintf(w, "  <style>%s</style>\n", style); err != nil {
			return err
		}
	}

	for _, script := range doc.Scripts {
		if script.Defer || script.Async {
			if err := r.renderScriptTag(w, script); err != nil {
				return err
			}
		}
	}

	_, err := w.Write([]byte("</head>\n"))
	return err
}

// renderPropsBlob serializes the page props into a JSON script element.
func (r *Renderer) renderPropsBlob(w io.Writer, doc Document) error {
	if doc.Props == nil {
		return nil
	}

	// encoding/json escapes <, >, and & so the payload cannot close the
	// script element.
	payload, err := json.Marshal(doc.Props)
	if err != nil {
		return fmt.Errorf("marshaling page props: %w", err)
	}

	_, err = fmt.Fprintf(w, `  <script id="%s" type="application/json">%s</script>`+"\n",
		PropsScriptID, escapeScriptJSON(string(payload)))
	return err
}

// renderMetaTag renders a meta element.
func (r *Renderer) renderMetaTag(w io.Writer, meta MetaTag) error {
	if _, err := w.Write([]byte("  <meta")); err != nil {
		return err
	}

	if meta.Charset != "" {
		if _, err := fmt.Fprintf(w, ` charset="%s"`, escapeAttr(meta.Charset)); err != nil {
			return err
		}
	}
	if meta.Name != "" {
		if _, err := fmt.Fprintf(w, ` name="%s"`, escapeAttr(meta.Name)); err != nil {
			return err
		}
	}
	if meta.Property != "" {
		if _, err := fmt.Fprintf(w, ` property="%s"`, escapeAttr(meta.Property)); err != nil {
			return err
		}
	}
	if meta.HTTPEquiv != "" {
		if _, err := fmt.Fprintf(w, ` http-equiv="%s"`, escapeAttr(meta.HTTPEquiv)); err != nil {
			return err
		}
	}
	if meta.Content != "" {
		if _, err := fmt.Fprintf(w, ` content="%s"`, escapeAttr(meta.Content)); err != nil {
			return err
		}
	}

	_, err := w.Write([]byte(">\n"))
	return err
}

// renderLinkTag renders a link element.
func (r *Renderer) renderLinkTag(w io.Writer, link LinkTag) error {
	if _, err := w.Write([]byte("  <link")); err != nil {
		return err
	}

	if link.Rel != "" {
		if _, err := fmt.Fprintf(w, ` rel="%s"`, escapeAttr(link.Rel)); err != nil {
			return err
		}
	}
	if link.Href != "" {
		if _, err := fmt.Fprintf(w, ` href="%s"`, escapeAttr(link.Href)); err != nil {
			return err
		}
	}
	if link.Type != "" {
		if _, err := fmt.Fprintf(w, ` type="%s"`, escapeAttr(link.Type)); err != nil {
			return err
		}
	}
	if link.Sizes != "" {
		if _, err := fmt.Fprintf(w, ` sizes="%s"`, escapeAttr(link.Sizes)); err != nil {
			return err
		}
	}
	if link.CrossOrigin != "" {
		if _, err := fmt.Fprintf(w, ` crossorigin="%s"`, escapeAttr(link.CrossOrigin)); err != nil {
			return err
		}
	}
	if link.Media != "" {
		if _, err := fmt.Fprintf(w, ` media="%s"`, escapeAttr(link.Media)); err != nil {
			return err
		}
	}

	_, err := w.Write([]byte(">\n"))
	return err
}

// renderScriptTag renders a script element.
func (r *Renderer) renderScriptTag(w io.Writer, script ScriptTag) error {
	if _, err := w.Write([]byte("  <script")); err != nil {
		return err
	}

	if script.Src != "" {
		if _, err := fmt.Fprintf(w, ` src="%s"`, escapeAttr(script.Src)); err != nil {
			return err
		}
	}

	if script.Module {
		if _, err := w.Write([]byte(` type="module"`)); err != nil {
			return err
		}
	} else if script.Type != "" {
		if _, err := fmt.Fprintf(w, ` type="%s"`, escapeAttr(script.Type)); err != nil {
			return err
		}
	}

	if script.Defer {
		if _, err := w.Write([]byte(" defer")); err != nil {
			return err
		}
	}
	if script.Async {
		if _, err := w.Write([]byte(" async")); err != nil {
			return err
		}
	}

	if _, err := w.Write([]byte(">")); err != nil {
		return err
	}

	if script.Inline != "" {
		if _, err := w.Write([]byte(script.Inline)); err != nil {
			return err
		}
	}

	_, err := w.Write([]byte("</script>\n"))
	return err
}
