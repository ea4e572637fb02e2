package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/flexireact/flexi/pkg/markup"
)

// Config configures the HTML renderer.
type Config struct {
	// Pretty enables pretty-printed HTML output with indentation.
	// Should only be used in development as it increases output size.
	Pretty bool

	// Indent is the string used for each indentation level in pretty mode.
	// Defaults to two spaces if not specified.
	Indent string
}

// Renderer serializes markup.Node trees to HTML.
//
// A Renderer is created per render pass and must not be shared across
// concurrent requests: async boundaries resolve against the renderer's
// context, and error boundaries track reset state per pass.
type Renderer struct {
	config Config
	ctx    context.Context

	// onAsync, when set, takes over async boundary rendering.
	// The streaming renderer uses it to defer resolution past the shell.
	onAsync func(w io.Writer, node *markup.Node, depth int) error
}

// New creates a Renderer with the given configuration.
// Async boundaries resolve against context.Background; use NewWithContext
// to thread a request context through the render pass.
func New(config Config) *Renderer {
	return NewWithContext(context.Background(), config)
}

// NewWithContext creates a Renderer whose async boundaries resolve against ctx.
func NewWithContext(ctx context.Context, config Config) *Renderer {
	if config.Indent == "" {
		config.Indent = "  "
	}
	return &Renderer{
		config: config,
		ctx:    ctx,
	}
}

// ToString renders a node tree to an HTML string.
func (r *Renderer) ToString(node *markup.Node) (string, error) {
	var buf bytes.Buffer
	if err := r.ToWriter(&buf, node); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ToWriter streams a node tree to the given writer.
// Async boundaries are resolved inline; errors inside an error boundary are
// replaced by the boundary's fallback, errors outside one are returned.
func (r *Renderer) ToWriter(w io.Writer, node *markup.Node) error {
	return r.renderNode(w, node, 0)
}

// renderNode dispatches rendering based on node kind.
func (r *Renderer) renderNode(w io.Writer, node *markup.Node, depth int) error {
	if node == nil {
		return nil
	}

	switch node.Kind {
	case markup.KindElement:
		return r.renderElement(w, node, depth)
	case markup.KindText:
		return r.renderText(w, node)
	case markup.KindFragment:
		return r.renderFragment(w, node, depth)
	case markup.KindComponent:
		return r.renderComponent(w, node, depth)
	case markup.KindRaw:
		return r.renderRaw(w, node)
	case markup.KindAsync:
		return r.renderAsync(w, node, depth)
	case markup.KindBoundary:
		return r.renderBoundary(w, node, depth)
	default:
		return fmt.Errorf("unknown node kind: %d", node.Kind)
	}
}

// renderElement renders an HTML element with its attributes and children.
func (r *Renderer) renderElement(w io.Writer, node *markup.Node, depth int) error {
	tag := node.Tag

	if r.config.Pretty && depth > 0 {
		r.writeIndent(w, depth)
	}

	if _, err := fmt.Fprintf(w, "<%s", tag); err != nil {
		return err
	}

	if err := r.renderAttributes(w, node); err != nil {
		return err
	}

	// Void elements have no closing tag and no children.
	if markup.IsVoidElement(tag) {
		if _, err := w.Write([]byte{'>'}); err != nil {
			return err
		}
		if r.config.Pretty {
			w.Write([]byte{'\n'})
		}
		return nil
	}

	if _, err := w.Write([]byte{'>'}); err != nil {
		return err
	}

	if rawHTML, ok := node.Props["dangerouslySetInnerHTML"].(string); ok {
		if _, err := w.Write([]byte(rawHTML)); err != nil {
			return err
		}
	} else {
		hasBlockChildren := len(node.Children) > 0 && !isInlineElement(tag)
		if r.config.Pretty && hasBlockChildren {
			w.Write([]byte{'\n'})
		}

		for _, child := range node.Children {
			if err := r.renderNode(w, child, depth+1); err != nil {
				return err
			}
		}

		if r.config.Pretty && hasBlockChildren {
			r.writeIndent(w, depth)
		}
	}

	if _, err := fmt.Fprintf(w, "</%s>", tag); err != nil {
		return err
	}
	if r.config.Pretty {
		w.Write([]byte{'\n'})
	}

	return nil
}

// renderText renders a text node with HTML escaping.
func (r *Renderer) renderText(w io.Writer, node *markup.Node) error {
	_, err := w.Write([]byte(escapeHTML(node.Text)))
	return err
}

// renderFragment renders a fragment's children without a wrapper element.
func (r *Renderer) renderFragment(w io.Writer, node *markup.Node, depth int) error {
	for _, child := range node.Children {
		if err := r.renderNode(w, child, depth); err != nil {
			return err
		}
	}
	return nil
}

// renderComponent renders a component by rendering its output node.
func (r *Renderer) renderComponent(w io.Writer, node *markup.Node, depth int) error {
	if node.Comp == nil {
		return nil
	}
	output, err := callComponent(node.Comp)
	if err != nil {
		return err
	}
	return r.renderNode(w, output, depth)
}

// renderRaw renders raw HTML without escaping.
func (r *Renderer) renderRaw(w io.Writer, node *markup.Node) error {
	_, err := w.Write([]byte(node.Text))
	return err
}

// renderAsync resolves an async boundary inline and renders the result.
// The synchronous renderer never shows the fallback; that path belongs to
// the streaming renderer.
func (r *Renderer) renderAsync(w io.Writer, node *markup.Node, depth int) error {
	if node.Resolve == nil {
		return r.renderNode(w, node.Fallback, depth)
	}
	if r.onAsync != nil {
		return r.onAsync(w, node, depth)
	}
	resolved, err := resolveAsync(r.ctx, node)
	if err != nil {
		return err
	}
	return r.renderNode(w, resolved, depth)
}

// renderBoundary renders children, replacing them with the boundary's
// fallback if any child fails. A panic during child rendering is treated as
// an error at this boundary, not as a server crash.
func (r *Renderer) renderBoundary(w io.Writer, node *markup.Node, depth int) error {
	var buf bytes.Buffer
	err := r.renderChildrenRecovering(&buf, node, depth)
	if err == nil {
		_, werr := w.Write(buf.Bytes())
		return werr
	}

	if node.ErrFallback == nil {
		return err
	}

	// reset re-renders the boundary's children once; a second failure
	// yields nil so the fallback cannot recurse forever.
	used := false
	reset := func() *markup.Node {
		if used {
			return nil
		}
		used = true
		return &markup.Node{Kind: markup.KindFragment, Children: node.Children}
	}

	fallback := node.ErrFallback(err, reset)
	if fallback == nil {
		return nil
	}
	return r.renderNode(w, fallback, depth)
}

// renderChildrenRecovering renders children into buf, converting panics to errors.
func (r *Renderer) renderChildrenRecovering(buf *bytes.Buffer, node *markup.Node, depth int) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("render panic: %v", rec)
		}
	}()
	for _, child := range node.Children {
		if err = r.renderNode(buf, child, depth); err != nil {
			return err
		}
	}
	return nil
}

// callComponent invokes a component's Render, converting panics to errors so
// they can be caught by an enclosing boundary.
func callComponent(c markup.Component) (node *markup.Node, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("component panic: %v", rec)
		}
	}()
	return c.Render(), nil
}

// resolveAsync runs an async boundary's resolver, converting panics to errors.
func resolveAsync(ctx context.Context, node *markup.Node) (resolved *markup.Node, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("async resolve panic: %v", rec)
		}
	}()
	return node.Resolve(ctx)
}

// renderAttributes renders all attributes for an element.
func (r *Renderer) renderAttributes(w io.Writer, node *markup.Node) error {
	if node.Props == nil {
		return nil
	}

	// Sort keys for deterministic output
	keys := make([]string, 0, len(node.Props))
	for key := range node.Props {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := node.Props[key]

		// Skip internal props
		if strings.HasPrefix(key, "_") {
			continue
		}

		// Handle special attributes
		switch key {
		case "className":
			key = "class"
		case "htmlFor":
			key = "for"
		case "dangerouslySetInnerHTML":
			// Handled separately in renderElement
			continue
		case "key":
			// Key is internal, not rendered
			continue
		}

		// Boolean attributes
		if isBooleanAttr(key) {
			if boolValue, ok := value.(bool); ok {
				if boolValue {
					if _, err := fmt.Fprintf(w, " %s", key); err != nil {
						return err
					}
				}
				continue
			}
		}

		strValue := attrToString(value)
		if strValue != "" {
			if _, err := fmt.Fprintf(w, ` %s="%s"`, key, escapeAttr(strValue)); err != nil {
				return err
			}
		}
	}

	return nil
}

// attrToString converts an attribute value to a string.
func attrToString(value any) string {
	if value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	case int:
		return fmt.Sprintf("%d", v)
	case int64:
		return fmt.Sprintf("%d", v)
	case float64:
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// writeIndent writes indentation for pretty printing.
func (r *Renderer) writeIndent(w io.Writer, depth int) {
	for i := 0; i < depth; i++ {
		w.Write([]byte(r.config.Indent))
	}
}
