package router

// TreeNode is one level of the segment-keyed route tree. The tree exists
// purely to answer layout-chain lookups without re-walking the filesystem;
// flat route lists handle matching.
type TreeNode struct {
	children map[string]*TreeNode

	// routes are the route descriptors registered exactly at this node.
	routes []*Descriptor

	// Special-file descriptors registered at this node.
	layout   *Descriptor
	loading  *Descriptor
	errPage  *Descriptor
	notFound *Descriptor
}

func newTreeNode() *TreeNode {
	return &TreeNode{children: make(map[string]*TreeNode)}
}

// key renders a segment into its tree map key. Parameter segments of
// different names share one key so layouts under [id] and [slug] siblings
// cannot diverge from the matching rules.
func segmentKey(seg Segment) string {
	switch {
	case seg.CatchAll:
		return "*"
	case seg.Param != "":
		return ":"
	default:
		return seg.Literal
	}
}

// insert walks to the node for the given segments, creating levels on demand.
func (n *TreeNode) insert(segs []Segment) *TreeNode {
	current := n
	for _, seg := range segs {
		key := segmentKey(seg)
		child, ok := current.children[key]
		if !ok {
			child = newTreeNode()
			current.children[key] = child
		}
		current = child
	}
	return current
}

// addRoute registers a route descriptor at its node.
func (n *TreeNode) addRoute(d *Descriptor) {
	node := n.insert(d.Segments)
	node.routes = append(node.routes, d)
}

// addSpecial registers a special-file descriptor at its node. The first
// registration wins, matching convention priority order of insertion.
func (n *TreeNode) addSpecial(d *Descriptor) {
	node := n.insert(d.Segments)
	switch d.Kind {
	case KindLayout:
		if node.layout == nil {
			node.layout = d
		}
	case KindLoading:
		if node.loading == nil {
			node.loading = d
		}
	case KindError:
		if node.errPage == nil {
			node.errPage = d
		}
	case KindNotFound:
		if node.notFound == nil {
			node.notFound = d
		}
	}
}

// LayoutChain collects the layout source files wrapping a route, walking
// from the tree root to the route's node. The result is ordered root-most
// first, so chain[0] is the outermost layout.
func (n *TreeNode) LayoutChain(d *Descriptor) []string {
	var chain []string
	current := n
	if current.layout != nil {
		chain = append(chain, current.layout.SourceFile)
	}
	for _, seg := range d.Segments {
		child, ok := current.children[segmentKey(seg)]
		if !ok {
			break
		}
		current = child
		if current.layout != nil {
			chain = append(chain, current.layout.SourceFile)
		}
	}
	return chain
}

// nearestNotFound walks toward a path's node and returns the closest
// not-found descriptor seen, or nil.
func (n *TreeNode) nearestNotFound(segs []Segment) *Descriptor {
	nearest := n.notFound
	current := n
	for _, seg := range segs {
		child, ok := current.children[segmentKey(seg)]
		if !ok {
			break
		}
		current = child
		if current.notFound != nil {
			nearest = current.notFound
		}
	}
	return nearest
}
