package markup

import "context"

// Kind is the node type discriminator.
type Kind uint8

const (
	KindElement  Kind = iota // <div>, <button>, etc.
	KindText                 // Plain text node
	KindFragment             // Grouping without wrapper
	KindComponent            // Nested component
	KindRaw                  // Raw HTML (dangerous)
	KindAsync                // Async boundary resolved during render
	KindBoundary             // Error boundary
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	case KindFragment:
		return "Fragment"
	case KindComponent:
		return "Component"
	case KindRaw:
		return "Raw"
	case KindAsync:
		return "Async"
	case KindBoundary:
		return "Boundary"
	default:
		return "Unknown"
	}
}

// Props holds element attributes.
type Props map[string]any

// Node is a server-side markup tree node. Pages, layouts, and islands all
// produce Node trees; the render package serializes them to HTML.
type Node struct {
	Kind     Kind
	Tag      string  // Element tag name (e.g., "div")
	Props    Props   // Attributes
	Children []*Node // Child nodes
	Text     string  // For KindText and KindRaw
	Comp     Component

	// Async fields the resolution of a data-dependent subtree. Fallback is
	// rendered into the streaming shell; Resolve produces the final content.
	Fallback *Node
	Resolve  func(ctx context.Context) (*Node, error)

	// ErrFallback replaces the subtree when rendering it fails.
	// The reset callback re-renders the boundary's children once.
	ErrFallback func(err error, reset func() *Node) *Node
}

// Component is anything that can render to a Node.
type Component interface {
	Render() *Node
}

// FuncComponent wraps a render function.
type FuncComponent struct {
	render func() *Node
}

// Render implements Component.
func (f *FuncComponent) Render() *Node {
	return f.render()
}

// Func creates a component from a render function.
func Func(render func() *Node) Component {
	return &FuncComponent{render: render}
}

// Attr represents a single attribute.
type Attr struct {
	Key   string
	Value any
}

// IsEmpty returns true if this is an empty/nil attribute.
func (a Attr) IsEmpty() bool {
	return a.Key == ""
}

// Async creates an async boundary. The fallback is what streaming renders
// into the shell before resolve completes; the synchronous renderer resolves
// inline and never shows the fallback.
func Async(fallback *Node, resolve func(ctx context.Context) (*Node, error)) *Node {
	return &Node{
		Kind:     KindAsync,
		Fallback: fallback,
		Resolve:  resolve,
	}
}

// Boundary wraps children in an error boundary. If rendering any child
// fails, fallback is rendered in its place with the error and a reset
// callback that re-renders the children once.
func Boundary(fallback func(err error, reset func() *Node) *Node, children ...*Node) *Node {
	node := &Node{
		Kind:        KindBoundary,
		ErrFallback: fallback,
	}
	for _, c := range children {
		if c != nil {
			node.Children = append(node.Children, c)
		}
	}
	return node
}
