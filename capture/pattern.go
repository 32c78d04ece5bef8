package capture

import (
	"sync/atomic"
	"time"
)

// Default size of synthetic devices.
const (
	DefaultWidth  = 640
	DefaultHeight = 480
)

// bars are the classic test card colors, stored as BGR.
var bars = [...][3]byte{
	{0xc0, 0xc0, 0xc0}, // white
	{0x00, 0xc0, 0xc0}, // yellow
	{0xc0, 0xc0, 0x00}, // cyan
	{0x00, 0xc0, 0x00}, // green
	{0xc0, 0x00, 0xc0}, // magenta
	{0x00, 0x00, 0xc0}, // red
	{0xc0, 0x00, 0x00}, // blue
}

// Pattern is a synthetic device producing scrolling color bars in BGR24,
// the layout most camera drivers deliver.
type Pattern struct {
	width, height int
	interval      time.Duration
	pix           []byte
	frame         int
	last          time.Time
	closed        atomic.Bool
}

// NewPattern creates a pattern device. Zero sizes select the defaults and
// a zero fps reads without pacing.
func NewPattern(width, height, fps int) *Pattern {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	p := &Pattern{
		width:  width,
		height: height,
		pix:    make([]byte, width*height*3),
	}
	if fps > 0 {
		p.interval = time.Second / time.Duration(fps)
	}
	return p
}

// PatternOpener opens pattern devices; every index is available.
func PatternOpener(opts Options) Opener {
	return func(int) (Device, error) {
		return NewPattern(opts.Width, opts.Height, opts.FPS), nil
	}
}

// Size implements Device.
func (p *Pattern) Size() (int, int) { return p.width, p.height }

// Read implements Device. The bars shift by one pixel per frame.
func (p *Pattern) Read() (Frame, error) {
	if p.closed.Load() {
		return Frame{}, ErrClosed
	}
	if p.interval > 0 {
		if wait := p.interval - time.Since(p.last); wait > 0 {
			time.Sleep(wait)
		}
		p.last = time.Now()
	}

	barWidth := max(p.width/len(bars), 1)
	for y := 0; y < p.height; y++ {
		row := p.pix[y*p.width*3 : (y+1)*p.width*3]
		for x := 0; x < p.width; x++ {
			c := bars[((x+p.frame)/barWidth)%len(bars)]
			copy(row[x*3:x*3+3], c[:])
		}
	}
	p.frame++
	return Frame{Pix: p.pix, Width: p.width, Height: p.height, Layout: LayoutBGR24}, nil
}

// Close implements Device.
func (p *Pattern) Close() error {
	p.closed.Store(true)
	return nil
}
