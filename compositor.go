// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package freska

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/gogpu/freska/graph"
	"github.com/gogpu/freska/internal/telemetry"
	"github.com/gogpu/freska/render"
)

// DefaultFPS is the frame rate of Run when none is configured.
const DefaultFPS = 30

var (
	// ErrClosed is returned by operations on a closed Compositor.
	ErrClosed = errors.New("freska: compositor closed")

	// ErrRunning is returned by Run while another Run is active.
	ErrRunning = errors.New("freska: compositor already running")

	// ErrNoOutput is returned by Snapshot for a node without a ready
	// output texture.
	ErrNoOutput = errors.New("freska: node has no output texture")
)

// Option configures a Compositor.
type Option func(*Compositor)

// WithFPS sets the frame rate of Run. Non-positive values keep DefaultFPS.
func WithFPS(fps int) Option {
	return func(c *Compositor) {
		if fps > 0 {
			c.fps = fps
		}
	}
}

// WithOrder sets the evaluation order of the graph.
func WithOrder(o graph.Order) Option {
	return func(c *Compositor) { c.order = o }
}

// WithTracer sets the tracer frame spans are started on. The default is
// the global provider's tracer.
func WithTracer(t trace.Tracer) Option {
	return func(c *Compositor) { c.tracer = t }
}

// WithOwnedBackend makes Close close the backend too.
func WithOwnedBackend() Option {
	return func(c *Compositor) { c.ownBackend = true }
}

// Compositor drives a graph frame by frame.
//
// Frame, Do, Chain and Snapshot are serialized by an internal mutex, so the
// graph is never mutated during an evaluation pass.
type Compositor struct {
	backend    render.Backend
	order      graph.Order
	fps        int
	tracer     trace.Tracer
	ownBackend bool

	mu     sync.Mutex
	graph  *graph.Graph
	closed bool

	running atomic.Bool
	frames  atomic.Uint64
}

// New creates a compositor over a new graph built from reg.
func New(b render.Backend, reg *graph.Registry, opts ...Option) (*Compositor, error) {
	if b == nil {
		return nil, errors.New("freska: nil backend")
	}
	if reg == nil {
		return nil, errors.New("freska: nil template registry")
	}
	c := &Compositor{
		backend: b,
		order:   graph.OrderTopological,
		fps:     DefaultFPS,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(telemetry.TracerName)
	}
	c.graph = graph.New(reg, graph.WithOrder(c.order))

	Logger().Info("freska: compositor ready", "backend", b.Name(),
		"order", c.order.String(), "fps", c.fps, "templates", reg.Len())
	return c, nil
}

// Backend returns the render backend.
func (c *Compositor) Backend() render.Backend { return c.backend }

// FPS returns the frame rate of Run.
func (c *Compositor) FPS() int { return c.fps }

// Frames returns the number of frames evaluated so far.
func (c *Compositor) Frames() uint64 { return c.frames.Load() }

// Do runs fn with exclusive access to the graph. Node and link edits from
// other goroutines go through Do.
func (c *Compositor) Do(fn func(g *graph.Graph) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return fn(c.graph)
}

// Frame runs one evaluation pass inside a "freska.frame" span.
func (c *Compositor) Frame(ctx context.Context) (graph.UpdateStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return graph.UpdateStats{}, ErrClosed
	}

	frame := c.frames.Add(1)
	_, span := c.tracer.Start(ctx, "freska.frame",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.Int64("freska.frame.number", int64(frame)),
			attribute.String("freska.order", c.order.String()),
		),
	)
	defer span.End()

	stats := c.graph.Update()
	span.SetAttributes(
		attribute.Int("freska.frame.nodes", stats.Nodes),
		attribute.Int("freska.frame.links", stats.Links),
	)
	return stats, nil
}

// Run evaluates frames at the configured rate until frames have been
// rendered or ctx is done. frames <= 0 runs until ctx is done. The first
// frame is evaluated immediately.
func (c *Compositor) Run(ctx context.Context, frames int) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer c.running.Store(false)

	interval := time.Second / time.Duration(c.fps)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	Logger().Debug("freska: run started", "frames", frames, "interval", interval)
	start := time.Now()
	for n := 0; frames <= 0 || n < frames; n++ {
		if n > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := c.Frame(ctx); err != nil {
			return err
		}
	}
	Logger().Debug("freska: run finished", "frames", frames, "elapsed", time.Since(start))
	return nil
}

// Chain creates one node per template and links the output texture of each
// node to the input texture of the next. On error no node is left behind.
func (c *Compositor) Chain(templates ...string) ([]*graph.Node, error) {
	var chain []*graph.Node
	err := c.Do(func(g *graph.Graph) error {
		for _, name := range templates {
			id, err := g.CreateNode(name)
			if err != nil {
				return err
			}
			n, err := g.Node(id)
			if err != nil {
				return err
			}
			if len(chain) > 0 {
				if err := linkTextures(g, chain[len(chain)-1], n); err != nil {
					chain = append(chain, n)
					return err
				}
			}
			chain = append(chain, n)
		}
		return nil
	})
	if err != nil {
		c.unwind(chain)
		return nil, err
	}
	return chain, nil
}

func linkTextures(g *graph.Graph, from, to *graph.Node) error {
	out := from.LastPin(graph.Output, graph.Texture)
	in := to.FirstPin(graph.Input, graph.Texture)
	if out == nil || in == nil {
		return fmt.Errorf("%w: %s -> %s has no texture pins", graph.ErrInvalidLink, from.Template, to.Template)
	}
	_, err := g.CreateLink(out.ID, in.ID)
	return err
}

func (c *Compositor) unwind(chain []*graph.Node) {
	_ = c.Do(func(g *graph.Graph) error {
		for i := len(chain) - 1; i >= 0; i-- {
			if err := g.DeleteNode(chain[i].ID); err != nil {
				Logger().Warn("freska: chain unwind", "node", chain[i].ID, "err", err)
			}
		}
		return nil
	})
}

// Snapshot copies the output texture of node id to CPU memory.
func (c *Compositor) Snapshot(id graph.ID) (*image.RGBA, error) {
	var img *image.RGBA
	err := c.Do(func(g *graph.Graph) error {
		n, err := g.Node(id)
		if err != nil {
			return err
		}
		out := n.LastPin(graph.Output, graph.Texture)
		if out == nil || !render.Ready(out.Texture) {
			return fmt.Errorf("%w: node %d (%s)", ErrNoOutput, id, n.Template)
		}
		img, err = render.ReadPixels(c.backend, out.Texture)
		return err
	})
	return img, err
}

// Close deletes every node, stopping producers and releasing GPU resources,
// then closes the backend when it is owned. Later calls return nil.
func (c *Compositor) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	err := c.graph.Close()
	if c.ownBackend {
		err = errors.Join(err, c.backend.Close())
	}
	Logger().Info("freska: compositor closed", "frames", c.frames.Load())
	return err
}
