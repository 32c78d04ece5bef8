package graph

import (
	"errors"
	"fmt"
)

// Check verifies the referential integrity of the graph and returns every
// violation joined, each wrapping ErrInconsistent. A nil result means:
// every link endpoint is a live pin satisfying the link rules, every pin's
// link set is exactly the set of live links referencing it, every pin
// belongs to a live node that lists it, and no Input pin has more than one
// link.
func (g *Graph) Check() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInconsistent}, args...)...))
	}

	for id, l := range g.links {
		if l.ID != id {
			fail("link %d indexed as %d", l.ID, id)
		}
		s, sok := g.pins[l.Start]
		e, eok := g.pins[l.End]
		if !sok || !eok {
			fail("link %d has a dead endpoint (%d -> %d)", id, l.Start, l.End)
			continue
		}
		if s.Kind != Output || e.Kind != Input {
			fail("link %d connects %s to %s", id, s.Kind, e.Kind)
		}
		if s.Type != e.Type {
			fail("link %d connects %s to %s", id, s.Type, e.Type)
		}
		if s.NodeID == e.NodeID {
			fail("link %d loops on node %d", id, s.NodeID)
		}
		if !s.HasLink(id) || !e.HasLink(id) {
			fail("link %d missing from an endpoint link set", id)
		}
	}

	for id, p := range g.pins {
		if p.ID != id {
			fail("pin %d indexed as %d", p.ID, id)
		}
		n, ok := g.nodes[p.NodeID]
		if !ok {
			fail("pin %d owned by dead node %d", id, p.NodeID)
		} else if !ownsPin(n, p) {
			fail("pin %d not listed by node %d", id, p.NodeID)
		}
		if p.Kind == Input && len(p.links) > 1 {
			fail("input pin %d has %d links", id, len(p.links))
		}
		if p.Kind == Manual && len(p.links) > 0 {
			fail("manual pin %d has links", id)
		}
		for lid := range p.links {
			l, ok := g.links[lid]
			if !ok {
				fail("pin %d references dead link %d", id, lid)
				continue
			}
			if l.Start != id && l.End != id {
				fail("pin %d references link %d that does not touch it", id, lid)
			}
		}
	}

	for id, n := range g.nodes {
		if n.ID != id {
			fail("node %d indexed as %d", n.ID, id)
		}
		for _, p := range n.Pins {
			if g.pins[p.ID] != p {
				fail("node %d pin %d is not indexed", id, p.ID)
			}
		}
	}

	return errors.Join(errs...)
}

func ownsPin(n *Node, p *Pin) bool {
	for _, q := range n.Pins {
		if q == p {
			return true
		}
	}
	return false
}
