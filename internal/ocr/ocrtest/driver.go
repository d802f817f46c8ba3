// Package ocrtest provides a scripted in-memory OCR driver for tests.
package ocrtest

import (
	"image"
	"sync"

	"github.com/PhiFever/vision-bridge/internal/ocr"
)

// Line is one scripted recognition result. A nil Text makes the cursor
// report "no text" for that line.
type Line struct {
	Text       []byte
	Confidence float32
	Box        image.Rectangle
}

// TextLine builds a Line from a string.
func TextLine(text string, confidence float32, box image.Rectangle) Line {
	return Line{Text: []byte(text), Confidence: confidence, Box: box}
}

// Driver answers Open with OpenStatus and every recognition with Lines.
type Driver struct {
	VersionString string
	OpenStatus    int
	Lines         []Line

	// Recognizer, when set, replaces Lines with a result computed from the
	// bound image.
	Recognizer func(img ocr.Image, ppi int) []Line

	mu      sync.Mutex
	handles []*Handle
}

// Version implements ocr.Driver.
func (d *Driver) Version() string {
	if d.VersionString == "" {
		return "fake-5.0.0"
	}
	return d.VersionString
}

// Open implements ocr.Driver. An empty model fails like a corrupt one.
func (d *Driver) Open(model []byte, language string) (ocr.Handle, int) {
	if d.OpenStatus != 0 {
		return nil, d.OpenStatus
	}
	if len(model) == 0 {
		return nil, -1
	}

	h := &Handle{driver: d, Language: language}
	d.mu.Lock()
	d.handles = append(d.handles, h)
	d.mu.Unlock()
	return h, 0
}

// Handles returns every handle opened so far.
func (d *Driver) Handles() []*Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Handle(nil), d.handles...)
}

// Live counts handles that have not been ended.
func (d *Driver) Live() int {
	n := 0
	for _, h := range d.Handles() {
		if !h.Ended() {
			n++
		}
	}
	return n
}

// Handle is a fake engine instance.
type Handle struct {
	driver   *Driver
	Language string

	mu          sync.Mutex
	ended       int
	recognized  int
	lastPPI     int
	lastImage   ocr.Image
	result      []Line
	outstanding int
	freed       int
	cursors     int
}

// Recognize implements ocr.Handle.
func (h *Handle) Recognize(img ocr.Image, ppi int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.recognized++
	h.lastPPI = ppi
	h.lastImage = img
	if h.driver.Recognizer != nil {
		h.result = h.driver.Recognizer(img, ppi)
	} else {
		h.result = h.driver.Lines
	}
}

// Iterator implements ocr.Handle.
func (h *Handle) Iterator() ocr.Cursor {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.recognized == 0 || len(h.result) == 0 {
		return nil
	}
	h.cursors++
	return &cursor{h: h, lines: h.result}
}

// End implements ocr.Handle.
func (h *Handle) End() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ended++
}

// Ended reports whether End was called.
func (h *Handle) Ended() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ended > 0
}

// EndCount returns how often End was called.
func (h *Handle) EndCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ended
}

// LastPPI returns the resolution passed to the last recognition.
func (h *Handle) LastPPI() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastPPI
}

// LastImage returns the image bound by the last recognition.
func (h *Handle) LastImage() ocr.Image {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastImage
}

// Outstanding counts text buffers handed out but not freed.
func (h *Handle) Outstanding() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.outstanding
}

// Freed counts text buffers freed so far.
func (h *Handle) Freed() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.freed
}

// OpenCursors counts cursors that were not deleted.
func (h *Handle) OpenCursors() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursors
}

type cursor struct {
	h     *Handle
	lines []Line
	pos   int
}

func (c *cursor) Text() ocr.TextBuffer {
	l := c.lines[c.pos]
	if l.Text == nil {
		return nil
	}

	c.h.mu.Lock()
	c.h.outstanding++
	c.h.mu.Unlock()

	return &buffer{h: c.h, b: append([]byte(nil), l.Text...)}
}

func (c *cursor) Confidence() float32 { return c.lines[c.pos].Confidence }

func (c *cursor) BoundingBox() image.Rectangle { return c.lines[c.pos].Box }

func (c *cursor) Next() bool {
	if c.pos+1 >= len(c.lines) {
		return false
	}
	c.pos++
	return true
}

func (c *cursor) Delete() {
	c.h.mu.Lock()
	c.h.cursors--
	c.h.mu.Unlock()
}

// buffer overwrites its bytes on Free so that retained slices show garbage.
type buffer struct {
	h *Handle
	b []byte
}

func (b *buffer) Bytes() []byte { return b.b }

func (b *buffer) Free() {
	for i := range b.b {
		b.b[i] = '#'
	}
	b.h.mu.Lock()
	b.h.outstanding--
	b.h.freed++
	b.h.mu.Unlock()
}
