// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package graph

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
)

// Option configures a Graph.
type Option func(*Graph)

// WithOrder selects the evaluation order used by Update.
func WithOrder(o Order) Option {
	return func(g *Graph) { g.order = o }
}

// WithIDAllocator makes the graph draw ids from a.
func WithIDAllocator(a *IDAllocator) Option {
	return func(g *Graph) { g.ids = a }
}

// Graph owns pins, nodes and links keyed by id, plus the template registry.
//
// A Graph is confined to one goroutine; see the package documentation.
type Graph struct {
	ids       *IDAllocator
	templates *Registry
	order     Order

	nodes map[ID]*Node
	pins  map[ID]*Pin
	links map[ID]*Link
}

// New creates an empty graph creating nodes from templates.
// A nil registry is treated as empty.
func New(templates *Registry, opts ...Option) *Graph {
	if templates == nil {
		templates = &Registry{templates: make(map[string]*Template)}
	}
	g := &Graph{
		ids:       NewIDAllocator(),
		templates: templates,
		nodes:     make(map[ID]*Node),
		pins:      make(map[ID]*Pin),
		links:     make(map[ID]*Link),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CreateNode instantiates the named template and returns the node id.
//
// The node id is allocated first, then one id per pin in template order.
// If the executor cannot be built the error is returned wrapped and the
// allocated ids stay consumed.
func (g *Graph) CreateNode(template string) (ID, error) {
	t, ok := g.templates.Lookup(template)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrTemplateNotFound, template)
	}

	n := &Node{
		ID:       g.ids.Next(),
		Name:     t.Name,
		Template: t.Name,
		Pins:     make([]*Pin, len(t.Pins)),
	}
	for i := range t.Pins {
		p := t.Pins[i].clone()
		p.ID = g.ids.Next()
		p.NodeID = n.ID
		n.Pins[i] = p
	}

	n.exec = nopExecutor{}
	if t.New != nil {
		exec, err := t.New(n)
		if err != nil {
			return 0, fmt.Errorf("graph: create node %q: %w", template, err)
		}
		if exec != nil {
			n.exec = exec
		}
	}

	g.nodes[n.ID] = n
	for _, p := range n.Pins {
		g.pins[p.ID] = p
	}
	slogger().Debug("graph: node created", "node", n.ID, "template", template, "pins", len(n.Pins))
	return n.ID, nil
}

// DeleteNode removes a node, every link attached to its pins and its pins.
// The executor is closed after the links are severed and before the pins
// are removed; Close errors are logged, not returned.
func (g *Graph) DeleteNode(id ID) error {
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("%w: node %d", ErrNotFound, id)
	}
	if err := g.deleteNode(n); err != nil {
		slogger().Warn("graph: executor close failed", "node", id, "template", n.Template, "err", err)
	}
	return nil
}

// deleteNode performs the cascade and returns the executor Close error.
func (g *Graph) deleteNode(n *Node) error {
	for _, p := range n.Pins {
		for _, lid := range p.LinkIDs() {
			// Both endpoints are live here, so this cannot fail.
			_ = g.DeleteLink(lid)
		}
	}
	err := n.exec.Close()
	for _, p := range n.Pins {
		delete(g.pins, p.ID)
	}
	delete(g.nodes, n.ID)
	slogger().Debug("graph: node deleted", "node", n.ID, "template", n.Template)
	return err
}

// DeleteLink removes a link and detaches it from both endpoints.
// The destination pin keeps its last propagated value.
func (g *Graph) DeleteLink(id ID) error {
	l, ok := g.links[id]
	if !ok {
		return fmt.Errorf("%w: link %d", ErrNotFound, id)
	}
	if p, ok := g.pins[l.Start]; ok {
		p.detach(id)
	}
	if p, ok := g.pins[l.End]; ok {
		p.detach(id)
	}
	delete(g.links, id)
	return nil
}

// CanCreateLink reports whether a link from start to end would be valid:
// start is an Output pin, end is an Input pin, both have the same type,
// they belong to different nodes and end has no link yet. Unknown ids
// report false.
func (g *Graph) CanCreateLink(start, end ID) bool {
	s, ok := g.pins[start]
	if !ok {
		return false
	}
	e, ok := g.pins[end]
	if !ok {
		return false
	}
	switch {
	case s.Kind != Output || e.Kind != Input:
		return false
	case s.Type != e.Type:
		return false
	case s.NodeID == e.NodeID:
		return false
	case len(e.links) != 0:
		return false
	}
	return true
}

// CreateLink connects start to end and returns the link id.
func (g *Graph) CreateLink(start, end ID) (ID, error) {
	if !g.CanCreateLink(start, end) {
		return 0, fmt.Errorf("%w: %d -> %d", ErrInvalidLink, start, end)
	}
	l := &Link{ID: g.ids.Next(), Start: start, End: end}
	g.links[l.ID] = l
	g.pins[start].attach(l.ID)
	g.pins[end].attach(l.ID)
	return l.ID, nil
}

// Node returns the node with the given id.
func (g *Graph) Node(id ID) (*Node, error) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: node %d", ErrNotFound, id)
	}
	return n, nil
}

// Pin returns the pin with the given id.
func (g *Graph) Pin(id ID) (*Pin, error) {
	p, ok := g.pins[id]
	if !ok {
		return nil, fmt.Errorf("%w: pin %d", ErrNotFound, id)
	}
	return p, nil
}

// Link returns the link with the given id.
func (g *Graph) Link(id ID) (Link, error) {
	l, ok := g.links[id]
	if !ok {
		return Link{}, fmt.Errorf("%w: link %d", ErrNotFound, id)
	}
	return *l, nil
}

// Nodes returns all nodes sorted by id.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	slices.SortFunc(out, func(a, b *Node) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Links returns all links sorted by id.
func (g *Graph) Links() []Link {
	out := make([]Link, 0, len(g.links))
	for _, l := range g.links {
		out = append(out, *l)
	}
	slices.SortFunc(out, func(a, b Link) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Templates returns the template registry.
func (g *Graph) Templates() *Registry { return g.templates }

// NodeCount returns the number of live nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// PinCount returns the number of live pins.
func (g *Graph) PinCount() int { return len(g.pins) }

// LinkCount returns the number of live links.
func (g *Graph) LinkCount() int { return len(g.links) }

// Close deletes every node in id order, releasing all executors.
// Executor Close errors are returned joined.
func (g *Graph) Close() error {
	var errs []error
	for _, n := range g.Nodes() {
		if err := g.deleteNode(n); err != nil {
			errs = append(errs, fmt.Errorf("graph: close node %d (%s): %w", n.ID, n.Template, err))
		}
	}
	return errors.Join(errs...)
}
