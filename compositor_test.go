package freska

import (
	"context"
	"errors"
	"image/color"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/gogpu/freska/graph"
	"github.com/gogpu/freska/nodes"
	"github.com/gogpu/freska/render"
)

// stillTemplate publishes a fixed texture on its output pin.
func stillTemplate(tex render.Texture) graph.Template {
	return graph.Template{
		Name: "Still",
		Pins: []graph.Pin{graph.TexturePin("frame", graph.Output)},
		New: func(*graph.Node) (graph.Executor, error) {
			return graph.ExecutorFunc(func(n *graph.Node) {
				n.FirstPin(graph.Output, graph.Texture).SetTexture(tex)
			}), nil
		},
	}
}

func newTestCompositor(t *testing.T, fill color.RGBA, opts ...Option) *Compositor {
	t.Helper()
	b := render.NewSoftware()
	tex, err := b.CreateTexture(render.TextureDescriptor{Label: "still", Width: 4, Height: 4})
	if err != nil {
		t.Fatal(err)
	}
	data := make([]byte, 4*4*4)
	for i := 0; i < len(data); i += 4 {
		data[i], data[i+1], data[i+2], data[i+3] = fill.R, fill.G, fill.B, fill.A
	}
	if err := tex.UpdateData(data); err != nil {
		t.Fatal(err)
	}

	reg, err := nodes.NewRegistry(nodes.Env{Backend: b})
	if err != nil {
		t.Fatal(err)
	}
	if err := reg.Register(stillTemplate(tex)); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register(graph.Template{
		Name: "Number",
		Pins: []graph.Pin{graph.FloatPin("x", graph.Output, 0, 0, 1)},
	}); err != nil {
		t.Fatal(err)
	}

	c, err := New(b, reg, append([]Option{WithFPS(1000), WithOwnedBackend()}, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNewRejectsNil(t *testing.T) {
	reg, _ := graph.NewRegistry()
	if _, err := New(nil, reg); err == nil {
		t.Error("New(nil backend) succeeded")
	}
	if _, err := New(render.NewSoftware(), nil); err == nil {
		t.Error("New(nil registry) succeeded")
	}
}

func TestCompositorRunChain(t *testing.T) {
	c := newTestCompositor(t, color.RGBA{51, 102, 153, 255})

	chain, err := c.Chain("Still", nodes.ColorCorrectionName)
	if err != nil {
		t.Fatal(err)
	}
	if len(chain) != 2 {
		t.Fatalf("len(chain) = %d, want 2", len(chain))
	}
	fx := chain[1]
	err = c.Do(func(*graph.Graph) error {
		fx.PinByName(graph.Manual, "exposure").SetFloat(0)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := c.Run(context.Background(), 3); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if c.Frames() != 3 {
		t.Errorf("Frames() = %d, want 3", c.Frames())
	}

	img, err := c.Snapshot(fx.ID)
	if err != nil {
		t.Fatal(err)
	}
	got := img.RGBAAt(1, 1)
	want := color.RGBA{51, 102, 153, 255}
	for i, pair := range [][2]uint8{{got.R, want.R}, {got.G, want.G}, {got.B, want.B}} {
		d := int(pair[0]) - int(pair[1])
		if d < -1 || d > 1 {
			t.Errorf("channel %d = %d, want %d±1", i, pair[0], pair[1])
		}
	}
}

func TestCompositorFrameSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	defer tp.Shutdown(context.Background())

	c := newTestCompositor(t, color.RGBA{A: 255}, WithTracer(tp.Tracer("test")))
	if _, err := c.Chain("Still", nodes.ColorQuantizationName); err != nil {
		t.Fatal(err)
	}

	stats, err := c.Frame(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Nodes != 2 || stats.Links != 1 {
		t.Errorf("stats = %+v, want 2 nodes, 1 link", stats)
	}

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	if spans[0].Name() != "freska.frame" {
		t.Errorf("span name = %q", spans[0].Name())
	}
	attrs := make(map[attribute.Key]attribute.Value)
	for _, kv := range spans[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}
	if v := attrs["freska.frame.nodes"]; v.AsInt64() != 2 {
		t.Errorf("nodes attribute = %v, want 2", v.AsInt64())
	}
	if v := attrs["freska.frame.links"]; v.AsInt64() != 1 {
		t.Errorf("links attribute = %v, want 1", v.AsInt64())
	}
	if v := attrs["freska.frame.number"]; v.AsInt64() != 1 {
		t.Errorf("frame attribute = %v, want 1", v.AsInt64())
	}
}

func TestCompositorChainErrorsUnwind(t *testing.T) {
	tests := []struct {
		name      string
		templates []string
		want      error
	}{
		{"unknown template", []string{"Still", "Nope"}, graph.ErrTemplateNotFound},
		{"no texture pins", []string{"Still", "Number"}, graph.ErrInvalidLink},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCompositor(t, color.RGBA{A: 255})
			_, err := c.Chain(tt.templates...)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Chain() error = %v, want %v", err, tt.want)
			}
			_ = c.Do(func(g *graph.Graph) error {
				if g.NodeCount() != 0 || g.PinCount() != 0 {
					t.Errorf("after unwind: %d nodes, %d pins", g.NodeCount(), g.PinCount())
				}
				return nil
			})
		})
	}
}

func TestCompositorSnapshotWithoutOutput(t *testing.T) {
	c := newTestCompositor(t, color.RGBA{A: 255})
	chain, err := c.Chain(nodes.ColorOutlineName)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Frame(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Snapshot(chain[0].ID); !errors.Is(err, ErrNoOutput) {
		t.Errorf("Snapshot() error = %v, want ErrNoOutput", err)
	}
	if _, err := c.Snapshot(9999); !errors.Is(err, graph.ErrNotFound) {
		t.Errorf("Snapshot(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestCompositorRunCancel(t *testing.T) {
	c := newTestCompositor(t, color.RGBA{A: 255})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, 0) }()

	deadline := time.Now().Add(5 * time.Second)
	for c.Frames() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("Run did not evaluate frames")
		}
		time.Sleep(time.Millisecond)
	}
	if err := c.Run(ctx, 1); !errors.Is(err, ErrRunning) {
		t.Errorf("second Run() error = %v, want ErrRunning", err)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestCompositorClose(t *testing.T) {
	c := newTestCompositor(t, color.RGBA{A: 255})
	chain, err := c.Chain("Still", nodes.ColorCorrectionName)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Frame(context.Background()); err != nil {
		t.Fatal(err)
	}
	out := chain[1].LastPin(graph.Output, graph.Texture).Texture
	if !render.Ready(out) {
		t.Fatal("effect output not ready")
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if render.Ready(out) {
		t.Error("effect target still ready after Close")
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, err := c.Frame(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Frame() after Close error = %v, want ErrClosed", err)
	}
	if err := c.Run(context.Background(), 1); !errors.Is(err, ErrClosed) {
		t.Errorf("Run() after Close error = %v, want ErrClosed", err)
	}
}
