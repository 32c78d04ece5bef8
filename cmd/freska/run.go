package main

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gogpu/freska"
	"github.com/gogpu/freska/capture"
	"github.com/gogpu/freska/graph"
	"github.com/gogpu/freska/internal/config"
	"github.com/gogpu/freska/internal/telemetry"
	"github.com/gogpu/freska/nodes"
	"github.com/gogpu/freska/render"
)

type runFlags struct {
	backend string
	frames  int
	output  string
	chain   []string
	driver  string
}

func newRunCmd(configPath *string) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run Video Source through a chain of effects",
		Long: `Run builds a Video Source node followed by the configured effect chain,
evaluates the graph at the configured frame rate and writes the last frame
of the chain as PNG when an output path is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("backend") {
				cfg.Backend = f.backend
			}
			if flags.Changed("frames") {
				cfg.Frames = f.frames
			}
			if flags.Changed("output") {
				cfg.Output = f.output
			}
			if flags.Changed("chain") {
				cfg.Chain = f.chain
			}
			if flags.Changed("driver") {
				cfg.Capture.Driver = f.driver
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return run(ctx, cfg, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&f.backend, "backend", "auto", "Render backend: auto, gpu or software")
	cmd.Flags().IntVar(&f.frames, "frames", 0, "Frames to render; 0 runs until interrupted")
	cmd.Flags().StringVar(&f.output, "output", "", "Write the last frame to this PNG file")
	cmd.Flags().StringSliceVar(&f.chain, "chain", nil, "Effect templates applied to the video source, in order")
	cmd.Flags().StringVar(&f.driver, "driver", "pattern", "Capture driver: "+strings.Join(capture.Drivers(), ", "))
	return cmd
}

// loadConfig loads cfg and prints its warnings to w.
func loadConfig(path string, w io.Writer) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	for _, warning := range cfg.Validate() {
		fmt.Fprintln(w, "warning:", warning)
	}
	freska.SetLogger(cfg.Log.NewLogger(w))
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config, out io.Writer) error {
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: freska.Version,
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		SampleRate:     cfg.Tracing.SampleRate,
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(sctx); err != nil {
			freska.Logger().Warn("freska: tracing shutdown", "err", err)
		}
	}()

	order, err := graph.ParseOrder(cfg.Order)
	if err != nil {
		return err
	}
	effects, err := loadEffects(cfg.Templates)
	if err != nil {
		return err
	}
	opener, err := capture.Open(cfg.Capture.Driver, capture.Options{
		Width:  cfg.Capture.Width,
		Height: cfg.Capture.Height,
		FPS:    cfg.Capture.FPS,
		Path:   cfg.Capture.Path,
	})
	if err != nil {
		return err
	}

	backend, err := openBackend(cfg)
	if err != nil {
		return err
	}
	reg, err := nodes.NewRegistry(nodes.Env{
		Backend:     backend,
		Capture:     opener,
		DeviceIndex: cfg.Capture.Index,
	}, effects...)
	if err != nil {
		_ = backend.Close()
		return err
	}

	c, err := freska.New(backend, reg,
		freska.WithFPS(cfg.FPS),
		freska.WithOrder(order),
		freska.WithTracer(tp.Tracer()),
		freska.WithOwnedBackend(),
	)
	if err != nil {
		_ = backend.Close()
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			freska.Logger().Warn("freska: close", "err", err)
		}
	}()

	chain, err := c.Chain(append([]string{nodes.VideoSourceName}, cfg.Chain...)...)
	if err != nil {
		return err
	}

	start := time.Now()
	err = c.Run(ctx, cfg.Frames)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "rendered %d frames on %s (%s) in %s\n", c.Frames(), backend.Name(),
		render.Adapter(backend).Name, time.Since(start).Round(time.Millisecond))

	if cfg.Output == "" {
		return nil
	}
	return writePNG(c, chain[len(chain)-1].ID, cfg.Output, out)
}

func writePNG(c *freska.Compositor, id graph.ID, path string, out io.Writer) error {
	img, err := c.Snapshot(id)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %s (%dx%d)\n", path, img.Bounds().Dx(), img.Bounds().Dy())
	return nil
}

// loadEffects loads user effects from path; an empty path loads none.
func loadEffects(path string) ([]nodes.Effect, error) {
	if path == "" {
		return nil, nil
	}
	return nodes.LoadEffects(path)
}
