package graph

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// passFloat copies its "in" Float pin to its "out" Float pin.
func passFloat(n *Node) (Executor, error) {
	in := n.PinByName(Input, "in")
	out := n.PinByName(Output, "out")
	return ExecutorFunc(func(*Node) { out.SetFloat(in.Float.Val) }), nil
}

func testRegistry(t *testing.T, extra ...Template) *Registry {
	t.Helper()
	ts := append([]Template{
		{Name: "Producer", Pins: []Pin{TexturePin("frame", Output)}},
		{Name: "Effect", Pins: []Pin{
			TexturePin("frame", Input),
			FloatPin("level", Manual, 0.5, 0, 1),
			TexturePin("frame", Output),
		}},
		{Name: "Narrow", Pins: []Pin{
			FloatPin("in", Input, 0, 0, 10),
			FloatPin("out", Output, 0, 0, 10),
		}, New: passFloat},
		{Name: "Wide", Pins: []Pin{
			FloatPin("in", Input, 0, 0, 100),
			FloatPin("out", Output, 0, 0, 100),
		}, New: passFloat},
		{Name: "Levels", Pins: []Pin{
			IntPin("in", Input, 0, 0, 4),
			IntPin("out", Output, 8, 0, 16),
			ColorPin("tint", Input, RGB{}),
			ColorPin("tint", Output, RGB{1, 0.5, 0}),
		}},
	}, extra...)
	r, err := NewRegistry(ts...)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return r
}

func mustNode(t *testing.T, g *Graph, template string) *Node {
	t.Helper()
	id, err := g.CreateNode(template)
	if err != nil {
		t.Fatalf("CreateNode(%q) error = %v", template, err)
	}
	n, err := g.Node(id)
	if err != nil {
		t.Fatalf("Node(%d) error = %v", id, err)
	}
	return n
}

func mustLink(t *testing.T, g *Graph, start, end *Pin) ID {
	t.Helper()
	id, err := g.CreateLink(start.ID, end.ID)
	if err != nil {
		t.Fatalf("CreateLink(%d, %d) error = %v", start.ID, end.ID, err)
	}
	return id
}

func mustCheck(t *testing.T, g *Graph) {
	t.Helper()
	if err := g.Check(); err != nil {
		t.Fatalf("Check() = %v", err)
	}
}

func TestIDAllocator(t *testing.T) {
	a := NewIDAllocator()
	if a.Peek() != 1 {
		t.Errorf("Peek() = %d, want 1", a.Peek())
	}
	for want := ID(1); want <= 3; want++ {
		if got := a.Next(); got != want {
			t.Errorf("Next() = %d, want %d", got, want)
		}
	}
	var zero IDAllocator
	if got := zero.Next(); got != 1 {
		t.Errorf("zero IDAllocator Next() = %d, want 1", got)
	}
}

func TestCreateNodeAssignsIDs(t *testing.T) {
	g := New(testRegistry(t))

	n := mustNode(t, g, "Effect")
	if n.ID != 1 {
		t.Errorf("node id = %d, want 1", n.ID)
	}
	var pinIDs []ID
	for _, p := range n.Pins {
		pinIDs = append(pinIDs, p.ID)
		if p.NodeID != n.ID {
			t.Errorf("pin %d NodeID = %d, want %d", p.ID, p.NodeID, n.ID)
		}
	}
	if diff := cmp.Diff([]ID{2, 3, 4}, pinIDs); diff != "" {
		t.Errorf("pin ids mismatch (-want +got):\n%s", diff)
	}
	if g.PinCount() != 3 || g.NodeCount() != 1 {
		t.Errorf("counts = %d nodes, %d pins; want 1, 3", g.NodeCount(), g.PinCount())
	}
	mustCheck(t, g)
}

func TestCreateNodeClonesTemplatePins(t *testing.T) {
	g := New(testRegistry(t))
	a := mustNode(t, g, "Effect")
	b := mustNode(t, g, "Effect")

	a.PinByName(Manual, "level").SetFloat(0.9)
	if got := b.PinByName(Manual, "level").Float.Val; got != 0.5 {
		t.Errorf("second node level = %v, want template default 0.5", got)
	}
	tmpl, _ := g.Templates().Lookup("Effect")
	if got := tmpl.Pins[1].Float.Val; got != 0.5 {
		t.Errorf("template level = %v, want 0.5", got)
	}
}

func TestCreateNodeUnknownTemplate(t *testing.T) {
	g := New(testRegistry(t))
	if _, err := g.CreateNode("Missing"); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("CreateNode() error = %v, want ErrTemplateNotFound", err)
	}
	if g.NodeCount() != 0 {
		t.Error("failed CreateNode must not store a node")
	}
}

func TestCreateNodeExecutorError(t *testing.T) {
	errOpen := errors.New("device busy")
	g := New(testRegistry(t, Template{
		Name: "Broken",
		Pins: []Pin{TexturePin("frame", Output)},
		New:  func(*Node) (Executor, error) { return nil, errOpen },
	}))

	if _, err := g.CreateNode("Broken"); !errors.Is(err, errOpen) {
		t.Fatalf("CreateNode() error = %v, want wrapped %v", err, errOpen)
	}
	if g.NodeCount() != 0 || g.PinCount() != 0 {
		t.Errorf("counts = %d nodes, %d pins; want 0, 0", g.NodeCount(), g.PinCount())
	}

	// The node and pin ids consumed by the failed attempt are not reused.
	n := mustNode(t, g, "Producer")
	if n.ID != 3 {
		t.Errorf("next node id = %d, want 3", n.ID)
	}
}

func TestCanCreateLink(t *testing.T) {
	g := New(testRegistry(t))
	p := mustNode(t, g, "Producer")
	x := mustNode(t, g, "Effect")
	y := mustNode(t, g, "Effect")
	f := mustNode(t, g, "Narrow")

	pOut := p.Pins[0]
	xIn, xLevel, xOut := x.Pins[0], x.Pins[1], x.Pins[2]
	yIn := y.Pins[0]

	tests := []struct {
		name       string
		start, end ID
		want       bool
	}{
		{"output to input", pOut.ID, xIn.ID, true},
		{"chained effects", xOut.ID, yIn.ID, true},
		{"input as start", xIn.ID, yIn.ID, false},
		{"output as end", pOut.ID, xOut.ID, false},
		{"manual end", pOut.ID, xLevel.ID, false},
		{"manual start", xLevel.ID, yIn.ID, false},
		{"type mismatch", pOut.ID, f.Pins[0].ID, false},
		{"same node", xOut.ID, xIn.ID, false},
		{"unknown start", 999, xIn.ID, false},
		{"unknown end", pOut.ID, 999, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.CanCreateLink(tt.start, tt.end); got != tt.want {
				t.Errorf("CanCreateLink(%d, %d) = %v, want %v", tt.start, tt.end, got, tt.want)
			}
		})
	}
}

func TestCreateLinkIffCanCreateLink(t *testing.T) {
	g := New(testRegistry(t))
	for _, name := range []string{"Producer", "Effect", "Effect", "Narrow", "Wide", "Levels", "Levels"} {
		mustNode(t, g, name)
	}

	var pins []ID
	for _, n := range g.Nodes() {
		for _, p := range n.Pins {
			pins = append(pins, p.ID)
		}
	}

	created := 0
	for _, s := range pins {
		for _, e := range pins {
			can := g.CanCreateLink(s, e)
			_, err := g.CreateLink(s, e)
			if can != (err == nil) {
				t.Fatalf("CanCreateLink(%d, %d) = %v but CreateLink error = %v", s, e, can, err)
			}
			if err != nil && !errors.Is(err, ErrInvalidLink) {
				t.Fatalf("CreateLink(%d, %d) error = %v, want ErrInvalidLink", s, e, err)
			}
			if err == nil {
				created++
			}
		}
	}
	if created == 0 {
		t.Fatal("expected at least one link to be created")
	}

	for _, id := range pins {
		p, _ := g.Pin(id)
		if p.Kind == Input && p.LinkCount() > 1 {
			t.Errorf("input pin %d has %d links", id, p.LinkCount())
		}
	}
	mustCheck(t, g)
}

func TestProducerEffectScenario(t *testing.T) {
	g := New(testRegistry(t))
	p := mustNode(t, g, "Producer")
	x := mustNode(t, g, "Effect")
	pOut, xIn := p.Pins[0], x.Pins[0]

	if !g.CanCreateLink(pOut.ID, xIn.ID) {
		t.Fatal("CanCreateLink(P.output, X.input) = false, want true")
	}
	mustLink(t, g, pOut, xIn)

	if _, err := g.CreateLink(pOut.ID, xIn.ID); !errors.Is(err, ErrInvalidLink) {
		t.Errorf("second CreateLink() error = %v, want ErrInvalidLink", err)
	}

	if err := g.DeleteNode(p.ID); err != nil {
		t.Fatalf("DeleteNode(P) error = %v", err)
	}
	if xIn.LinkCount() != 0 {
		t.Errorf("X.input link count = %d, want 0", xIn.LinkCount())
	}
	if g.LinkCount() != 0 {
		t.Errorf("LinkCount() = %d, want 0", g.LinkCount())
	}
	mustCheck(t, g)
}

func TestDeleteNodeCascade(t *testing.T) {
	g := New(testRegistry(t))
	p := mustNode(t, g, "Producer")
	a := mustNode(t, g, "Effect")
	b := mustNode(t, g, "Effect")
	c := mustNode(t, g, "Effect")
	d := mustNode(t, g, "Effect")

	mustLink(t, g, p.Pins[0], a.Pins[0])
	mustLink(t, g, a.Pins[2], b.Pins[0])
	mustLink(t, g, a.Pins[2], c.Pins[0])
	keep := mustLink(t, g, c.Pins[2], d.Pins[0])

	// a has 3 attached links: one in, two out.
	if err := g.DeleteNode(a.ID); err != nil {
		t.Fatalf("DeleteNode() error = %v", err)
	}

	want := []Link{{ID: keep, Start: c.Pins[2].ID, End: d.Pins[0].ID}}
	if diff := cmp.Diff(want, g.Links()); diff != "" {
		t.Errorf("Links() mismatch (-want +got):\n%s", diff)
	}
	for _, pin := range a.Pins {
		if _, err := g.Pin(pin.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("Pin(%d) error = %v, want ErrNotFound", pin.ID, err)
		}
	}
	if p.Pins[0].LinkCount() != 0 || b.Pins[0].LinkCount() != 0 {
		t.Error("neighbour pins should have no links left")
	}
	mustCheck(t, g)
}

func TestCreateDeleteRoundTrip(t *testing.T) {
	g := New(testRegistry(t))
	p := mustNode(t, g, "Producer")
	x := mustNode(t, g, "Effect")
	mustLink(t, g, p.Pins[0], x.Pins[0])

	type snapshot struct {
		Nodes []ID
		Pins  int
		Links []Link
	}
	snap := func() snapshot {
		var s snapshot
		for _, n := range g.Nodes() {
			s.Nodes = append(s.Nodes, n.ID)
		}
		s.Pins = g.PinCount()
		s.Links = g.Links()
		return s
	}

	before := snap()
	next := g.ids.Peek()

	id, err := g.CreateNode("Effect")
	if err != nil {
		t.Fatalf("CreateNode() error = %v", err)
	}
	if err := g.DeleteNode(id); err != nil {
		t.Fatalf("DeleteNode() error = %v", err)
	}

	if diff := cmp.Diff(before, snap()); diff != "" {
		t.Errorf("graph changed after create+delete (-before +after):\n%s", diff)
	}
	if g.ids.Peek() <= next {
		t.Errorf("id counter rolled back: Peek() = %d, was %d", g.ids.Peek(), next)
	}
	mustCheck(t, g)
}

func TestDeleteNodeClosesAfterLinksSevered(t *testing.T) {
	var linksAtClose = -1
	var closed bool
	g := New(testRegistry(t, Template{
		Name: "Tracked",
		Pins: []Pin{TexturePin("frame", Input)},
		New: func(n *Node) (Executor, error) {
			return &closeHook{fn: func() error {
				closed = true
				linksAtClose = n.Pins[0].LinkCount()
				return errors.New("ignored")
			}}, nil
		},
	}))
	p := mustNode(t, g, "Producer")
	tr := mustNode(t, g, "Tracked")
	mustLink(t, g, p.Pins[0], tr.Pins[0])

	if err := g.DeleteNode(tr.ID); err != nil {
		t.Fatalf("DeleteNode() error = %v, close errors must only be logged", err)
	}
	if !closed {
		t.Fatal("executor was not closed")
	}
	if linksAtClose != 0 {
		t.Errorf("links at close = %d, want 0", linksAtClose)
	}
}

func TestNotFound(t *testing.T) {
	g := New(testRegistry(t))

	checks := map[string]error{
		"DeleteNode": g.DeleteNode(42),
		"DeleteLink": g.DeleteLink(42),
	}
	_, checks["Node"] = g.Node(42)
	_, checks["Pin"] = g.Pin(42)
	_, checks["Link"] = g.Link(42)

	for name, err := range checks {
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("%s(42) error = %v, want ErrNotFound", name, err)
		}
	}
}

func TestDeleteLinkKeepsDestinationValue(t *testing.T) {
	g := New(testRegistry(t))
	a := mustNode(t, g, "Levels")
	b := mustNode(t, g, "Levels")
	lid := mustLink(t, g, a.PinByName(Output, "out"), b.PinByName(Input, "in"))

	g.Update()
	if got := b.PinByName(Input, "in").Int.Val; got != 4 {
		t.Fatalf("propagated int = %d, want 4 (8 clamped to [0,4])", got)
	}

	if err := g.DeleteLink(lid); err != nil {
		t.Fatalf("DeleteLink() error = %v", err)
	}
	if got := b.PinByName(Input, "in").Int.Val; got != 4 {
		t.Errorf("value after DeleteLink = %d, want 4", got)
	}
	if _, err := g.Link(lid); !errors.Is(err, ErrNotFound) {
		t.Errorf("Link() after delete error = %v, want ErrNotFound", err)
	}
	mustCheck(t, g)
}

func TestClose(t *testing.T) {
	errClose := errors.New("release failed")
	closes := 0
	g := New(testRegistry(t, Template{
		Name: "Closer",
		Pins: []Pin{TexturePin("frame", Output)},
		New: func(*Node) (Executor, error) {
			return &closeHook{fn: func() error {
				closes++
				return errClose
			}}, nil
		},
	}))
	a := mustNode(t, g, "Closer")
	mustNode(t, g, "Closer")
	x := mustNode(t, g, "Effect")
	mustLink(t, g, a.Pins[0], x.Pins[0])

	err := g.Close()
	if !errors.Is(err, errClose) {
		t.Errorf("Close() error = %v, want %v", err, errClose)
	}
	if closes != 2 {
		t.Errorf("executors closed = %d, want 2", closes)
	}
	if g.NodeCount()+g.PinCount()+g.LinkCount() != 0 {
		t.Errorf("graph not empty after Close: %d nodes, %d pins, %d links",
			g.NodeCount(), g.PinCount(), g.LinkCount())
	}
}

func TestCheckDetectsCorruption(t *testing.T) {
	g := New(testRegistry(t))
	p := mustNode(t, g, "Producer")
	x := mustNode(t, g, "Effect")
	mustLink(t, g, p.Pins[0], x.Pins[0])
	mustCheck(t, g)

	x.Pins[1].attach(777)
	err := g.Check()
	if !errors.Is(err, ErrInconsistent) {
		t.Fatalf("Check() = %v, want ErrInconsistent", err)
	}
}

func TestAccessorsSorted(t *testing.T) {
	g := New(testRegistry(t))
	for i := 0; i < 5; i++ {
		n := mustNode(t, g, "Effect")
		if i%2 == 1 {
			_ = g.DeleteNode(n.ID)
		}
	}
	nodes := g.Nodes()
	ids := make([]ID, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	for i := 1; i < len(ids); i++ {
		if ids[i-1] >= ids[i] {
			t.Errorf("Nodes() not sorted by id: %v", ids)
			break
		}
	}
}

type closeHook struct {
	fn func() error
}

func (*closeHook) Compute(*Node)  {}
func (h *closeHook) Close() error { return h.fn() }
