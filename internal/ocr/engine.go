// Package ocr bridges a native text-recognition engine.
//
// An Engine owns one native handle from Init to Close. Recognition runs
// synchronously; results are walked line by line in the engine's own reading
// order. The package adds no recognition logic of its own.
package ocr

import (
	"errors"
	"fmt"
	"image"
	"iter"
	"strings"
)

// Init statuses produced by the bridge itself. Tesseract only returns 0 or -1,
// so these stay distinguishable from engine codes.
const (
	// StatusNoDriver is reported when no driver is available.
	StatusNoDriver = -1000
	// StatusInvalidArgument is reported for arguments rejected before any
	// driver is called.
	StatusInvalidArgument = -1001
)

var (
	// ErrClosed is returned when an engine is used after Close.
	ErrClosed = errors.New("ocr: engine is closed")
	// ErrNoDriver is wrapped by InitError when no driver matches.
	ErrNoDriver = errors.New("OCR support not compiled in (use -tags=ocr or -tags=gosseract to enable)")
)

// InitError carries the engine's initialisation status verbatim.
type InitError struct {
	Code int
	Err  error
}

func (e *InitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ocr: init failed with status %d: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("ocr: init failed with status %d", e.Code)
}

func (e *InitError) Unwrap() error { return e.Err }

// StatusCode extracts the native status from an Init error. It returns 0 for
// nil and StatusNoDriver for errors that carry no code.
func StatusCode(err error) int {
	if err == nil {
		return 0
	}
	var initErr *InitError
	if errors.As(err, &initErr) {
		return initErr.Code
	}
	return StatusNoDriver
}

// RawLine is a recognised text line as the engine hands it over. Text points
// into engine memory and is only valid inside the Visit callback.
type RawLine struct {
	Text       []byte
	Confidence float32 // 0-100
	Box        image.Rectangle
}

// Line is an owned copy of a recognised text line.
type Line struct {
	Text       string
	Confidence float32
	Box        image.Rectangle
}

// Copy detaches the line from engine memory.
func (r RawLine) Copy() Line {
	return Line{Text: string(r.Text), Confidence: r.Confidence, Box: r.Box}
}

// Option configures Init.
type Option func(*options)

type options struct {
	driver string
}

// WithDriver selects a registered driver by name.
func WithDriver(name string) Option {
	return func(o *options) { o.driver = name }
}

// Engine is an initialised text-recognition engine. It is not safe for
// concurrent use; share engines through a Pool.
type Engine struct {
	handle     Handle
	driver     string
	recognised bool
}

// Init creates an engine and loads the language model from memory. The
// engine always runs LSTM-only recognition with sparse-text page
// segmentation. On failure no engine is returned and the error is an
// *InitError holding the engine's status.
func Init(model []byte, language string, opts ...Option) (*Engine, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	name, d, ok := lookup(o.driver)
	if !ok {
		return nil, &InitError{Code: StatusNoDriver, Err: ErrNoDriver}
	}

	h, status := d.Open(model, language)
	if status != 0 {
		if h != nil {
			h.End()
		}
		return nil, &InitError{Code: status}
	}
	if h == nil {
		return nil, &InitError{Code: StatusNoDriver, Err: fmt.Errorf("driver %q returned no handle", name)}
	}

	return &Engine{handle: h, driver: name}, nil
}

// Driver returns the name of the driver backing the engine.
func (e *Engine) Driver() string {
	return e.driver
}

// Recognise binds img and runs a recognition pass. A positive ppi overrides
// the assumed source resolution. The image is only read during the call.
// Engine-internal failures are not observable; the returned error only
// reports a closed engine or an unusable buffer.
func (e *Engine) Recognise(img Image, ppi int) error {
	if e.handle == nil {
		return ErrClosed
	}
	if err := img.Validate(); err != nil {
		return err
	}

	e.handle.Recognize(img, ppi)
	e.recognised = true
	return nil
}

// Visit walks the last recognition's text lines in engine order and calls fn
// once per line. line.Text is freed as soon as fn returns. Iteration ends at
// the first line without text or when the lines run out. Without a prior
// recognition, or when nothing was found, fn is never called.
func (e *Engine) Visit(fn func(line RawLine)) {
	e.visit(func(line RawLine) bool {
		fn(line)
		return true
	})
}

// Lines yields owned copies of the last recognition's text lines. Breaking
// out of the loop releases the engine cursor.
func (e *Engine) Lines() iter.Seq[Line] {
	return func(yield func(Line) bool) {
		e.visit(func(line RawLine) bool {
			return yield(line.Copy())
		})
	}
}

// Read recognises img and returns its non-empty lines with surrounding
// whitespace trimmed.
func (e *Engine) Read(img Image, ppi int) ([]Line, error) {
	if err := e.Recognise(img, ppi); err != nil {
		return nil, err
	}

	var lines []Line
	for line := range e.Lines() {
		line.Text = strings.TrimSpace(line.Text)
		if line.Text == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// Close releases the native engine. Further calls are no-ops.
func (e *Engine) Close() error {
	if e.handle == nil {
		return nil
	}
	e.handle.End()
	e.handle = nil
	e.recognised = false
	return nil
}

func (e *Engine) visit(fn func(line RawLine) bool) {
	if e.handle == nil || !e.recognised {
		return
	}

	cur := e.handle.Iterator()
	if cur == nil {
		return
	}
	defer cur.Delete()

	for {
		text := cur.Text()
		if text == nil {
			return
		}

		line := RawLine{
			Text:       text.Bytes(),
			Confidence: cur.Confidence(),
			Box:        cur.BoundingBox(),
		}
		more := deliver(fn, line, text)

		if !more || !cur.Next() {
			return
		}
	}
}

// deliver runs fn and frees the text even when fn panics.
func deliver(fn func(RawLine) bool, line RawLine, text TextBuffer) bool {
	defer text.Free()
	return fn(line)
}
