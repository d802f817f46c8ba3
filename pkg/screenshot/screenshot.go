// Package screenshot provides the frame sources the detection loop reads from:
// a live display or an image file for headless runs.
package screenshot

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"

	// 文件源支持的格式
	_ "image/jpeg"
	_ "image/png"

	"github.com/kbinani/screenshot"
)

// ErrNoDisplay is returned when the requested display does not exist.
var ErrNoDisplay = errors.New("screenshot: no such display")

// Capturer produces one frame per call.
type Capturer interface {
	Capture(ctx context.Context) (image.Image, error)
}

// CapturerFunc adapts a function to Capturer.
type CapturerFunc func(ctx context.Context) (image.Image, error)

// Capture calls f(ctx).
func (f CapturerFunc) Capture(ctx context.Context) (image.Image, error) { return f(ctx) }

// DisplayCount returns the number of active displays.
func DisplayCount() int {
	return screenshot.NumActiveDisplays()
}

// Display captures one monitor.
type Display struct {
	index int
}

// NewDisplay returns a capturer for the display at index.
func NewDisplay(index int) (*Display, error) {
	n := DisplayCount()
	if index < 0 || index >= n {
		return nil, fmt.Errorf("%w: index %d (available: %d)", ErrNoDisplay, index, n)
	}
	return &Display{index: index}, nil
}

// Index returns the display index.
func (d *Display) Index() int {
	return d.index
}

// Bounds returns the display's rectangle in virtual-screen coordinates.
func (d *Display) Bounds() image.Rectangle {
	return screenshot.GetDisplayBounds(d.index)
}

// Capture grabs the whole display. The returned image starts at (0, 0).
func (d *Display) Capture(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := screenshot.CaptureRect(d.Bounds())
	if err != nil {
		return nil, fmt.Errorf("capture display %d: %w", d.index, err)
	}
	return img, nil
}

// CaptureRegion grabs r, given relative to the display's top-left corner and
// clipped to the display.
func (d *Display) CaptureRegion(r image.Rectangle) (*image.RGBA, error) {
	bounds := d.Bounds()
	abs := r.Add(bounds.Min).Intersect(bounds)
	if abs.Empty() {
		return nil, fmt.Errorf("region %v is outside display %d (%v)", r, d.index, bounds)
	}

	img, err := screenshot.CaptureRect(abs)
	if err != nil {
		return nil, fmt.Errorf("capture region %v: %w", r, err)
	}
	return img, nil
}

// File replays a still image from disk, decoding it on every call so that
// the file can be swapped while running.
type File struct {
	Path string
}

// Capture decodes the file.
func (f File) Capture(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	img, _, err := image.Decode(fh)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.Path, err)
	}
	return img, nil
}
