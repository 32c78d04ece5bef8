package graph

import (
	"fmt"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ExecutorFactory builds the executor of a freshly created node. The node
// already has its ids assigned; the factory may keep n's pin pointers.
type ExecutorFactory func(n *Node) (Executor, error)

// Template is a named blueprint for nodes.
type Template struct {
	Name string
	Pins []Pin

	// New constructs the executor. A nil New gives nodes that compute nothing.
	New ExecutorFactory
}

// Validate checks the pin declarations of t.
func (t *Template) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidTemplate)
	}
	for i, p := range t.Pins {
		if p.Name == "" {
			return fmt.Errorf("%w: %s: pin %d has no name", ErrInvalidTemplate, t.Name, i)
		}
		if p.Type > Texture || p.Kind > Manual {
			return fmt.Errorf("%w: %s: pin %s has type %s kind %s", ErrInvalidTemplate, t.Name, p.Name, p.Type, p.Kind)
		}
		switch p.Type {
		case Integer:
			if p.Int.Min > p.Int.Max || p.Int.Val < p.Int.Min || p.Int.Val > p.Int.Max {
				return fmt.Errorf("%w: %s: pin %s value %d outside [%d,%d]",
					ErrInvalidTemplate, t.Name, p.Name, p.Int.Val, p.Int.Min, p.Int.Max)
			}
		case Float:
			if !(p.Float.Min <= p.Float.Max) || p.Float.Val < p.Float.Min || p.Float.Val > p.Float.Max {
				return fmt.Errorf("%w: %s: pin %s value %g outside [%g,%g]",
					ErrInvalidTemplate, t.Name, p.Name, p.Float.Val, p.Float.Min, p.Float.Max)
			}
		}
	}
	return nil
}

// Registry holds templates keyed by name.
type Registry struct {
	templates map[string]*Template
}

// NewRegistry creates a registry holding ts.
func NewRegistry(ts ...Template) (*Registry, error) {
	r := &Registry{templates: make(map[string]*Template)}
	for _, t := range ts {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds t. Names are unique.
func (r *Registry) Register(t Template) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if _, dup := r.templates[t.Name]; dup {
		return fmt.Errorf("%w: %q", ErrDuplicateTemplate, t.Name)
	}
	t.Pins = append([]Pin(nil), t.Pins...)
	r.templates[t.Name] = &t
	return nil
}

// Lookup returns the named template.
func (r *Registry) Lookup(name string) (*Template, bool) {
	t, ok := r.templates[name]
	return t, ok
}

// Len returns the number of templates.
func (r *Registry) Len() int {
	return len(r.templates)
}

// Names returns the template names in menu order: case-insensitive
// collation, with ties broken by byte order for a stable result.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	c := collate.New(language.English, collate.IgnoreCase)
	sort.SliceStable(names, func(i, j int) bool {
		return c.CompareString(names[i], names[j]) < 0
	})
	return names
}
