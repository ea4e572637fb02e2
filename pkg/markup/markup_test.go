package markup

import "testing"

func TestElCollectsArgs(t *testing.T) {
	node := El("div",
		Class("card"),
		ID("main"),
		Text("hello"),
		nil,
		[]Attr{Custom("role", "region")},
		[]*Node{Span(), nil},
		"plain string",
	)

	if node.Kind != KindElement || node.Tag != "div" {
		t.Fatalf("node = %+v", node)
	}
	if node.Props["class"] != "card" || node.Props["id"] != "main" || node.Props["role"] != "region" {
		t.Errorf("props = %+v", node.Props)
	}
	if len(node.Children) != 3 {
		t.Fatalf("children = %d, want 3", len(node.Children))
	}
	if node.Children[0].Kind != KindText || node.Children[0].Text != "hello" {
		t.Errorf("first child = %+v", node.Children[0])
	}
	if node.Children[1].Tag != "span" {
		t.Errorf("second child = %+v", node.Children[1])
	}
	if node.Children[2].Text != "plain string" {
		t.Errorf("third child = %+v", node.Children[2])
	}
}

func TestElIgnoresEmptyAttr(t *testing.T) {
	node := El("div", Attr{})
	if len(node.Props) != 0 {
		t.Errorf("empty attr stored: %+v", node.Props)
	}
}

func TestFragmentFlattens(t *testing.T) {
	frag := Fragment(
		Text("a"),
		nil,
		[]*Node{Text("b"), nil, Text("c")},
		"d",
	)
	if frag.Kind != KindFragment {
		t.Fatalf("kind = %v", frag.Kind)
	}
	if len(frag.Children) != 4 {
		t.Fatalf("children = %d, want 4", len(frag.Children))
	}
	for i, want := range []string{"a", "b", "c", "d"} {
		if frag.Children[i].Text != want {
			t.Errorf("child %d = %q, want %q", i, frag.Children[i].Text, want)
		}
	}
}

func TestConditionals(t *testing.T) {
	n := Text("x")
	if If(true, n) != n {
		t.Error("If(true) did not return node")
	}
	if If(false, n) != nil {
		t.Error("If(false) returned non-nil")
	}
	if IfElse(false, nil, n) != n {
		t.Error("IfElse(false) did not return second node")
	}

	called := false
	if When(false, func() *Node { called = true; return n }) != nil {
		t.Error("When(false) returned non-nil")
	}
	if called {
		t.Error("When(false) evaluated its function")
	}
	if When(true, func() *Node { return n }) != n {
		t.Error("When(true) did not return node")
	}
}

func TestMap(t *testing.T) {
	items := []string{"a", "b", "c"}
	nodes := Map(items, func(s string) *Node {
		if s == "b" {
			return nil
		}
		return Li(Text(s))
	})
	if len(nodes) != 2 {
		t.Fatalf("len = %d, want 2 (nil results dropped)", len(nodes))
	}
	if nodes[0].Children[0].Text != "a" || nodes[1].Children[0].Text != "c" {
		t.Errorf("nodes = %+v", nodes)
	}

	indexed := MapIndexed(items, func(i int, s string) *Node {
		return Textf("%d:%s", i, s)
	})
	if len(indexed) != 3 || indexed[2].Text != "2:c" {
		t.Errorf("indexed = %+v", indexed)
	}
}

func TestDataAttr(t *testing.T) {
	a := Data("island", "Counter")
	if a.Key != "data-island" || a.Value != "Counter" {
		t.Errorf("Data attr = %+v", a)
	}
}

func TestVoidElements(t *testing.T) {
	tests := []struct {
		tag  string
		want bool
	}{
		{"br", true},
		{"img", true},
		{"input", true},
		{"meta", true},
		{"link", true},
		{"div", false},
		{"span", false},
		{"script", false},
	}
	for _, tt := range tests {
		if got := IsVoidElement(tt.tag); got != tt.want {
			t.Errorf("IsVoidElement(%q) = %v, want %v", tt.tag, got, tt.want)
		}
	}
}

func TestFuncComponent(t *testing.T) {
	c := Func(func() *Node { return Text("out") })
	if got := c.Render(); got.Text != "out" {
		t.Errorf("Render() = %+v", got)
	}
}
