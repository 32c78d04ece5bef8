package capture

import (
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoding
	_ "image/jpeg" // register JPEG decoding
	_ "image/png"  // register PNG decoding
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"time"

	_ "golang.org/x/image/bmp" // register BMP decoding
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff" // register TIFF decoding
	_ "golang.org/x/image/webp" // register WebP decoding
)

// Sequence is a device that loops over decoded still images. All frames
// are normalised to the size of the first image (or the requested size).
type Sequence struct {
	frames   []*image.RGBA
	next     int
	interval time.Duration
	last     time.Time
	closed   atomic.Bool
}

// SequenceOpener is the "sequence" driver. opts.Path is a file, a directory
// or a glob pattern. The device index selects the first frame played.
func SequenceOpener(opts Options) (Opener, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("%w: sequence driver needs a path", ErrDeviceUnavailable)
	}
	return func(index int) (Device, error) {
		s, err := LoadSequence(opts.Path, opts.Width, opts.Height, opts.FPS)
		if err != nil {
			return nil, err
		}
		if index < 0 {
			return nil, fmt.Errorf("%w: index %d", ErrDeviceUnavailable, index)
		}
		s.next = index % len(s.frames)
		return s, nil
	}, nil
}

// LoadSequence decodes every image matched by path.
func LoadSequence(path string, width, height, fps int) (*Sequence, error) {
	files, err := expand(path)
	if err != nil {
		return nil, err
	}

	s := &Sequence{}
	if fps > 0 {
		s.interval = time.Second / time.Duration(fps)
	}
	for _, file := range files {
		img, err := decode(file)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
		}
		if width <= 0 || height <= 0 {
			b := img.Bounds()
			width, height = b.Dx(), b.Dy()
		}
		frame := image.NewRGBA(image.Rect(0, 0, width, height))
		if img.Bounds().Size() == frame.Rect.Size() {
			draw.Draw(frame, frame.Rect, img, img.Bounds().Min, draw.Src)
		} else {
			draw.ApproxBiLinear.Scale(frame, frame.Rect, img, img.Bounds(), draw.Src, nil)
		}
		s.frames = append(s.frames, frame)
	}
	return s, nil
}

func expand(path string) ([]string, error) {
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		path = filepath.Join(path, "*")
	}
	files, err := filepath.Glob(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	var out []string
	for _, f := range files {
		if fi, err := os.Stat(f); err == nil && fi.Mode().IsRegular() {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no images match %q", ErrDeviceUnavailable, path)
	}
	sort.Strings(out)
	return out, nil
}

func decode(file string) (image.Image, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", file, err)
	}
	return img, nil
}

// Len returns the number of frames.
func (s *Sequence) Len() int { return len(s.frames) }

// Size implements Device.
func (s *Sequence) Size() (int, int) {
	r := s.frames[0].Rect
	return r.Dx(), r.Dy()
}

// Read implements Device.
func (s *Sequence) Read() (Frame, error) {
	if s.closed.Load() {
		return Frame{}, ErrClosed
	}
	if s.interval > 0 {
		if wait := s.interval - time.Since(s.last); wait > 0 {
			time.Sleep(wait)
		}
		s.last = time.Now()
	}
	img := s.frames[s.next]
	s.next = (s.next + 1) % len(s.frames)
	return Frame{Pix: img.Pix, Width: img.Rect.Dx(), Height: img.Rect.Dy(), Layout: LayoutRGBA32}, nil
}

// Close implements Device.
func (s *Sequence) Close() error {
	s.closed.Store(true)
	return nil
}
