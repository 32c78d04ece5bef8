package graph

// Executor is the execution context of a node.
//
// Compute runs once per Update on the evaluation goroutine and may read and
// write only the pins of n. Close releases everything the executor owns
// (goroutines, devices, GPU resources) and blocks until that is done.
type Executor interface {
	Compute(n *Node)
	Close() error
}

// ExecutorFunc adapts a function with no resources to an Executor.
type ExecutorFunc func(n *Node)

// Compute calls f(n).
func (f ExecutorFunc) Compute(n *Node) { f(n) }

// Close does nothing.
func (ExecutorFunc) Close() error { return nil }

type nopExecutor struct{}

func (nopExecutor) Compute(*Node) {}
func (nopExecutor) Close() error  { return nil }

// Node is a named unit owning ordered pins and one executor.
type Node struct {
	ID       ID
	Name     string
	Template string
	Pins     []*Pin

	exec Executor
}

// Executor returns the node's execution context.
func (n *Node) Executor() Executor { return n.exec }

// FirstPin returns the first pin with the given kind and type, or nil.
func (n *Node) FirstPin(kind PinKind, typ PinType) *Pin {
	for _, p := range n.Pins {
		if p.Kind == kind && p.Type == typ {
			return p
		}
	}
	return nil
}

// LastPin returns the last pin with the given kind and type, or nil.
func (n *Node) LastPin(kind PinKind, typ PinType) *Pin {
	for i := len(n.Pins) - 1; i >= 0; i-- {
		if p := n.Pins[i]; p.Kind == kind && p.Type == typ {
			return p
		}
	}
	return nil
}

// PinByName returns the first pin named name with the given kind, or nil.
// Pin names are unique per kind only: an effect may have an Input and an
// Output pin both called "frame".
func (n *Node) PinByName(kind PinKind, name string) *Pin {
	for _, p := range n.Pins {
		if p.Kind == kind && p.Name == name {
			return p
		}
	}
	return nil
}

// Link is a directed connection from an Output pin to an Input pin.
type Link struct {
	ID    ID
	Start ID
	End   ID
}
