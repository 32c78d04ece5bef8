package nodes

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/freska/capture"
	"github.com/gogpu/freska/graph"
	"github.com/gogpu/freska/render"
)

// DefaultRetryBackoff is how long the producer sleeps after a failed read.
const DefaultRetryBackoff = 10 * time.Millisecond

// SourceState is the lifecycle state of a VideoSource.
type SourceState int32

const (
	// SourceOpening is the state while the device is being opened.
	SourceOpening SourceState = iota
	// SourceCapturing means the producer goroutine is running.
	SourceCapturing
	// SourceStopped means the producer has been joined and the device closed.
	SourceStopped
)

func (s SourceState) String() string {
	switch s {
	case SourceOpening:
		return "opening"
	case SourceCapturing:
		return "capturing"
	case SourceStopped:
		return "stopped"
	default:
		return fmt.Sprintf("SourceState(%d)", int32(s))
	}
}

// SourceOption configures a VideoSource.
type SourceOption func(*VideoSource)

// WithRetryBackoff sets the pause after a failed device read.
func WithRetryBackoff(d time.Duration) SourceOption {
	return func(s *VideoSource) {
		if d > 0 {
			s.backoff = d
		}
	}
}

// VideoSource is the executor of Video Source nodes.
//
// A producer goroutine reads frames from the device and converts them into
// a shared RGBA buffer. Frames arriving faster than the graph updates
// overwrite each other: only the latest one is uploaded. Compute runs on the
// evaluation goroutine and uploads the buffer into the output texture.
type VideoSource struct {
	dev     capture.Device
	tex     render.Texture
	index   int
	backoff time.Duration

	mu  sync.Mutex
	buf *image.RGBA

	stop      atomic.Bool
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
	state     atomic.Int32
	degraded  atomic.Bool
	frames    atomic.Uint64
	failures  atomic.Uint64

	uploadFailed bool
}

// NewVideoSource opens device index and starts capturing. The output texture
// has the device's frame size.
func NewVideoSource(b render.Backend, open capture.Opener, index int, opts ...SourceOption) (*VideoSource, error) {
	s := &VideoSource{index: index, backoff: DefaultRetryBackoff}
	for _, opt := range opts {
		opt(s)
	}
	s.state.Store(int32(SourceOpening))

	if open == nil {
		return nil, fmt.Errorf("%w: no capture driver", capture.ErrDeviceUnavailable)
	}
	dev, err := open(index)
	switch {
	case err != nil && errors.Is(err, capture.ErrDeviceUnavailable):
		return nil, fmt.Errorf("nodes: open capture device %d: %w", index, err)
	case err != nil:
		return nil, fmt.Errorf("%w: device %d: %w", capture.ErrDeviceUnavailable, index, err)
	case dev == nil:
		return nil, fmt.Errorf("%w: device %d: driver returned no device", capture.ErrDeviceUnavailable, index)
	}
	w, h := dev.Size()
	tex, err := b.CreateTexture(render.TextureDescriptor{
		Label:  fmt.Sprintf("video-source-%d", index),
		Width:  w,
		Height: h,
	})
	if err != nil {
		_ = dev.Close()
		return nil, fmt.Errorf("nodes: video source texture: %w", err)
	}

	s.dev = dev
	s.tex = tex
	s.buf = image.NewRGBA(image.Rect(0, 0, w, h))

	s.wg.Add(1)
	go s.run()
	s.state.Store(int32(SourceCapturing))
	slogger().Info("nodes: video source started", "device", index, "width", w, "height", h)
	return s, nil
}

// run is the producer loop.
func (s *VideoSource) run() {
	defer s.wg.Done()
	failing := false
	for !s.stop.Load() {
		f, err := s.dev.Read()
		if err == nil {
			s.mu.Lock()
			err = capture.Convert(s.buf, f)
			s.mu.Unlock()
		}
		if err != nil {
			s.failures.Add(1)
			s.degraded.Store(true)
			if !failing {
				slogger().Warn("nodes: capture read failed", "device", s.index, "err", err)
				failing = true
			}
			time.Sleep(s.backoff)
			continue
		}
		if failing {
			slogger().Info("nodes: capture recovered", "device", s.index)
			failing = false
		}
		s.degraded.Store(false)
		s.frames.Add(1)
	}
}

// Compute uploads the latest frame and publishes the texture on the node's
// output texture pin.
func (s *VideoSource) Compute(n *graph.Node) {
	s.mu.Lock()
	err := s.tex.UpdateData(s.buf.Pix)
	s.mu.Unlock()
	if err != nil {
		if !s.uploadFailed {
			slogger().Error("nodes: video source upload failed", "node", n.ID, "err", err)
			s.uploadFailed = true
		}
		return
	}
	s.uploadFailed = false

	if out := n.FirstPin(graph.Output, graph.Texture); out != nil {
		out.SetTexture(s.tex)
	}
}

// Close stops the producer, waits for it to exit, then closes the device and
// releases the texture. Later calls return the first call's result.
func (s *VideoSource) Close() error {
	s.closeOnce.Do(func() { s.closeErr = s.shutdown() })
	return s.closeErr
}

func (s *VideoSource) shutdown() error {
	s.stop.Store(true)
	s.wg.Wait()
	s.state.Store(int32(SourceStopped))

	err := s.dev.Close()
	s.tex.Release()
	slogger().Info("nodes: video source stopped", "device", s.index,
		"frames", s.frames.Load(), "failures", s.failures.Load())
	if err != nil {
		return fmt.Errorf("nodes: close capture device %d: %w", s.index, err)
	}
	return nil
}

// State returns the lifecycle state.
func (s *VideoSource) State() SourceState { return SourceState(s.state.Load()) }

// Degraded reports whether the most recent device read failed.
func (s *VideoSource) Degraded() bool { return s.degraded.Load() }

// Frames returns the number of frames captured so far.
func (s *VideoSource) Frames() uint64 { return s.frames.Load() }

// Failures returns the number of failed reads so far.
func (s *VideoSource) Failures() uint64 { return s.failures.Load() }

// Texture returns the output texture.
func (s *VideoSource) Texture() render.Texture { return s.tex }

var _ graph.Executor = (*VideoSource)(nil)
