package markup

// voidElements are elements that cannot have children.
var voidElements = map[string]bool{
	"area":   true,
	"base":   true,
	"br":     true,
	"col":    true,
	"embed":  true,
	"hr":     true,
	"img":    true,
	"input":  true,
	"link":   true,
	"meta":   true,
	"param":  true,
	"source": true,
	"track":  true,
	"wbr":    true,
}

// IsVoidElement returns true if the tag is a void element.
func IsVoidElement(tag string) bool {
	return voidElements[tag]
}

// El creates an element node with the given tag.
// Arguments can be: nil, Attr, []Attr, *Node, []*Node, Component, string.
func El(tag string, args ...any) *Node {
	node := &Node{
		Kind:     KindElement,
		Tag:      tag,
		Props:    make(Props),
		Children: make([]*Node, 0),
	}

	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
			// Ignore nil (allows conditional attributes and children)
			continue

		case Attr:
			if v.Key != "" {
				node.Props[v.Key] = v.Value
			}

		case []Attr:
			for _, attr := range v {
				if attr.Key != "" {
					node.Props[attr.Key] = attr.Value
				}
			}

		case *Node:
			if v != nil {
				node.Children = append(node.Children, v)
			}

		case []*Node:
			for _, c := range v {
				if c != nil {
					node.Children = append(node.Children, c)
				}
			}

		case Component:
			node.Children = append(node.Children, &Node{
				Kind: KindComponent,
				Comp: v,
			})

		case string:
			node.Children = append(node.Children, Text(v))
		}
	}

	return node
}

// Common element constructors.

func Div(args ...any) *Node     { return El("div", args...) }
func Span(args ...any) *Node    { return El("span", args...) }
func P(args ...any) *Node       { return El("p", args...) }
func H1(args ...any) *Node      { return El("h1", args...) }
func H2(args ...any) *Node      { return El("h2", args...) }
func H3(args ...any) *Node      { return El("h3", args...) }
func A(args ...any) *Node       { return El("a", args...) }
func Ul(args ...any) *Node      { return El("ul", args...) }
func Ol(args ...any) *Node      { return El("ol", args...) }
func Li(args ...any) *Node      { return El("li", args...) }
func Main(args ...any) *Node    { return El("main", args...) }
func Header(args ...any) *Node  { return El("header", args...) }
func Footer(args ...any) *Node  { return El("footer", args...) }
func Nav(args ...any) *Node     { return El("nav", args...) }
func Section(args ...any) *Node { return El("section", args...) }
func Article(args ...any) *Node { return El("article", args...) }
func Aside(args ...any) *Node   { return El("aside", args...) }
func Button(args ...any) *Node  { return El("button", args...) }
func Form(args ...any) *Node    { return El("form", args...) }
func Input(args ...any) *Node   { return El("input", args...) }
func Label(args ...any) *Node   { return El("label", args...) }
func Img(args ...any) *Node     { return El("img", args...) }
func Pre(args ...any) *Node     { return El("pre", args...) }
func Code(args ...any) *Node    { return El("code", args...) }
func Table(args ...any) *Node   { return El("table", args...) }
func Tr(args ...any) *Node      { return El("tr", args...) }
func Td(args ...any) *Node      { return El("td", args...) }
func Th(args ...any) *Node      { return El("th", args...) }
func Strong(args ...any) *Node  { return El("strong", args...) }
func Em(args ...any) *Node      { return El("em", args...) }
func Br() *Node                 { return El("br") }
func Hr() *Node                 { return El("hr") }

// Common attribute constructors.

func Class(value string) Attr       { return Attr{Key: "class", Value: value} }
func ID(value string) Attr          { return Attr{Key: "id", Value: value} }
func Href(value string) Attr        { return Attr{Key: "href", Value: value} }
func Src(value string) Attr         { return Attr{Key: "src", Value: value} }
func Alt(value string) Attr         { return Attr{Key: "alt", Value: value} }
func Type(value string) Attr        { return Attr{Key: "type", Value: value} }
func Name(value string) Attr        { return Attr{Key: "name", Value: value} }
func Value(value string) Attr       { return Attr{Key: "value", Value: value} }
func Placeholder(value string) Attr { return Attr{Key: "placeholder", Value: value} }
func Title(value string) Attr       { return Attr{Key: "title", Value: value} }
func Role(value string) Attr        { return Attr{Key: "role", Value: value} }
func Custom(key, value string) Attr { return Attr{Key: key, Value: value} }

// Data creates a data-* attribute.
func Data(suffix, value string) Attr {
	return Attr{Key: "data-" + suffix, Value: value}
}
