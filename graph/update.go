package graph

import (
	"cmp"
	"container/heap"
	"fmt"
	"slices"
)

// Order selects how Update visits nodes and links.
type Order uint8

const (
	// OrderUnordered computes every node, then propagates every link, both
	// in map iteration order. A chain of N hops may take up to N frames to
	// settle.
	OrderUnordered Order = iota

	// OrderTopological computes nodes in dependency order (ties by id) and
	// propagates each node's outgoing links right after it computes, so an
	// acyclic chain settles in one Update. Nodes on a cycle run last, in id
	// order, and read previous-frame values from their cycle inputs.
	OrderTopological
)

func (o Order) String() string {
	switch o {
	case OrderUnordered:
		return "unordered"
	case OrderTopological:
		return "topological"
	default:
		return fmt.Sprintf("Order(%d)", o)
	}
}

// ParseOrder parses "unordered" or "topological".
func ParseOrder(s string) (Order, error) {
	switch s {
	case "", "unordered":
		return OrderUnordered, nil
	case "topological":
		return OrderTopological, nil
	default:
		return 0, fmt.Errorf("graph: unknown order %q", s)
	}
}

// UpdateStats reports the work done by one Update.
type UpdateStats struct {
	Nodes int
	Links int
}

// Order returns the evaluation order of the graph.
func (g *Graph) Order() Order { return g.order }

// Update runs one evaluation pass: every node computes, every link
// propagates. It never fails; missing upstream data is an empty value.
func (g *Graph) Update() UpdateStats {
	if g.order == OrderTopological {
		return g.updateTopological()
	}

	for _, n := range g.nodes {
		n.exec.Compute(n)
	}
	for _, l := range g.links {
		g.propagateLink(l)
	}
	return UpdateStats{Nodes: len(g.nodes), Links: len(g.links)}
}

func (g *Graph) updateTopological() UpdateStats {
	var stats UpdateStats
	for _, n := range g.topoOrder() {
		n.exec.Compute(n)
		stats.Nodes++
		for _, p := range n.Pins {
			if p.Kind != Output {
				continue
			}
			for _, lid := range p.LinkIDs() {
				g.propagateLink(g.links[lid])
				stats.Links++
			}
		}
	}
	return stats
}

func (g *Graph) propagateLink(l *Link) {
	propagate(g.pins[l.Start], g.pins[l.End])
}

// topoOrder sorts nodes with Kahn's algorithm over the link relation,
// always taking the smallest ready id. Nodes left with unresolved inputs
// (cycles and everything downstream of them) follow in id order.
func (g *Graph) topoOrder() []*Node {
	indegree := make(map[ID]int, len(g.nodes))
	for _, l := range g.links {
		indegree[g.pins[l.End].NodeID]++
	}

	ready := &idHeap{}
	for id := range g.nodes {
		if indegree[id] == 0 {
			heap.Push(ready, id)
		}
	}

	order := make([]*Node, 0, len(g.nodes))
	done := make(map[ID]bool, len(g.nodes))
	for ready.Len() > 0 {
		n := g.nodes[heap.Pop(ready).(ID)]
		order = append(order, n)
		done[n.ID] = true
		for _, p := range n.Pins {
			if p.Kind != Output {
				continue
			}
			for lid := range p.links {
				down := g.pins[g.links[lid].End].NodeID
				indegree[down]--
				if indegree[down] == 0 {
					heap.Push(ready, down)
				}
			}
		}
	}

	if len(order) < len(g.nodes) {
		rest := make([]*Node, 0, len(g.nodes)-len(order))
		for id, n := range g.nodes {
			if !done[id] {
				rest = append(rest, n)
			}
		}
		slices.SortFunc(rest, func(a, b *Node) int { return cmp.Compare(a.ID, b.ID) })
		order = append(order, rest...)
	}
	return order
}

// idHeap is a min-heap of ids.
type idHeap []ID

func (h idHeap) Len() int           { return len(h) }
func (h idHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h idHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *idHeap) Push(x any)        { *h = append(*h, x.(ID)) }
func (h *idHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
