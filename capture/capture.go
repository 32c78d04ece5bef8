// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package capture defines the frame source collaborator of freska: devices
// opened by index that yield raw frames on demand.
//
// Real camera drivers live outside this module and plug in through Register.
// Two drivers are built in:
//
//   - "pattern": a synthetic BGR test card that scrolls every frame
//   - "sequence": still images (PNG, JPEG, GIF, BMP, TIFF, WebP) played in a loop
//
// Devices are pull based. A producer goroutine calls Read in a loop and
// converts each frame to RGBA with Convert.
package capture

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Errors returned by drivers and devices.
var (
	// ErrDeviceUnavailable is returned when a device cannot be opened.
	ErrDeviceUnavailable = errors.New("capture: device unavailable")

	// ErrClosed is returned by Read after Close.
	ErrClosed = errors.New("capture: device closed")

	// ErrShortFrame is returned when a frame buffer is smaller than its size.
	ErrShortFrame = errors.New("capture: short frame")
)

// Layout is the pixel layout of a frame.
type Layout uint8

const (
	// LayoutBGR24 is 3 bytes per pixel, blue first (the common camera order).
	LayoutBGR24 Layout = iota
	// LayoutRGB24 is 3 bytes per pixel, red first.
	LayoutRGB24
	// LayoutRGBA32 is 4 bytes per pixel, red first, straight alpha.
	LayoutRGBA32
)

// BytesPerPixel returns the pixel size of l.
func (l Layout) BytesPerPixel() int {
	if l == LayoutRGBA32 {
		return 4
	}
	return 3
}

func (l Layout) String() string {
	switch l {
	case LayoutBGR24:
		return "BGR24"
	case LayoutRGB24:
		return "RGB24"
	case LayoutRGBA32:
		return "RGBA32"
	default:
		return fmt.Sprintf("Layout(%d)", l)
	}
}

// Frame is one raw image from a device. Rows are tightly packed.
// Pix may be reused by the device on the next Read.
type Frame struct {
	Pix    []byte
	Width  int
	Height int
	Layout Layout
}

// Validate reports whether Pix holds Width*Height pixels.
func (f Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrShortFrame, f.Width, f.Height)
	}
	if want := f.Width * f.Height * f.Layout.BytesPerPixel(); len(f.Pix) < want {
		return fmt.Errorf("%w: %d bytes for %dx%d %s, want %d", ErrShortFrame, len(f.Pix), f.Width, f.Height, f.Layout, want)
	}
	return nil
}

// Device is an open capture device.
//
// Read blocks until the next frame is available. Read is only called from
// one goroutine; Close is called after that goroutine has stopped.
type Device interface {
	// Size returns the nominal frame size in pixels.
	Size() (width, height int)

	// Read returns the next frame.
	Read() (Frame, error)

	// Close releases the device.
	Close() error
}

// Opener opens a device by index.
type Opener func(index int) (Device, error)

// Options configures a driver.
type Options struct {
	// Width and Height request a frame size; zero keeps the device default.
	Width, Height int

	// FPS paces synthetic devices; zero reads as fast as possible.
	FPS int

	// Path is the file or glob pattern used by file based drivers.
	Path string
}

// Driver builds an Opener from options.
type Driver func(opts Options) (Opener, error)

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

func init() {
	Register("pattern", func(opts Options) (Opener, error) {
		return PatternOpener(opts), nil
	})
	Register("sequence", SequenceOpener)
}

// Register makes a driver available by name, replacing any previous one.
func Register(name string, d Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	drivers[name] = d
}

// Drivers returns the registered driver names, sorted.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open returns the Opener of the named driver.
func Open(driver string, opts Options) (Opener, error) {
	driversMu.RLock()
	d, ok := drivers[driver]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown driver %q", ErrDeviceUnavailable, driver)
	}
	return d(opts)
}
