// Package morph bridges a native morphological dilation primitive.
//
// The package only computes the interior region a kernel fully overlaps and
// hands it to a Primitive; the filtering itself always happens inside the
// native library. Status codes come back untouched.
package morph

import (
	"fmt"
	"image"
	"sync"
)

// Status is a primitive's native status code. Zero is success, any other
// value is defined by the backend library.
type Status int32

const (
	// StatusSuccess mirrors NPP_SUCCESS.
	StatusSuccess Status = 0
	// StatusBackendError is reported by backends whose library signals failure
	// without a code of its own.
	StatusBackendError Status = -1
	// StatusSizeError mirrors NPP_SIZE_ERROR.
	StatusSizeError Status = -6
	// StatusNullPointer mirrors NPP_NULL_POINTER_ERROR. Only the C entry
	// point reports it, for NULL buffers.
	StatusNullPointer Status = -8
	// StatusNotSupported mirrors NPP_NOT_SUPPORTED_MODE_ERROR and is returned
	// when no backend was compiled in.
	StatusNotSupported Status = -9999
)

// OK reports whether the primitive succeeded.
func (s Status) OK() bool { return s == StatusSuccess }

// Err returns nil on success and a *StatusError carrying the code otherwise.
func (s Status) Err() error {
	if s.OK() {
		return nil
	}
	return &StatusError{Code: s}
}

// StatusError wraps a non-zero primitive status.
type StatusError struct {
	Code Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("dilation primitive failed with status %d", int32(e.Code))
}

// Region describes the interior area a kernel fully overlaps.
type Region struct {
	Anchor image.Point // kernel anchor, also the interior origin
	Offset int         // byte offset of the interior origin in the buffer
	Size   image.Point // interior width/height, may be <= 0 for oversized kernels
	Step   int         // bytes per line of both buffers
}

// Plan computes the interior region for a width x height single-channel
// buffer and a kw x kh kernel. Even kernel sizes truncate toward zero.
// Nothing is validated: an oversized kernel yields a non-positive Size.
func Plan(width, height, kw, kh uint32) Region {
	ax := int(kw / 2)
	ay := int(kh / 2)
	return Region{
		Anchor: image.Pt(ax, ay),
		Offset: int(width)*ay + ax,
		Size:   image.Pt(int(width)-int(kw), int(height)-int(kh)),
		Step:   int(width),
	}
}

// Request is a single call into a Primitive.
type Request struct {
	Input  []byte
	Output []byte
	Region Region

	Kernel     []byte
	KernelSize image.Point
}

// Primitive is a native dilation routine. Implementations write only inside
// req.Region of req.Output and return their library's status code.
type Primitive interface {
	Dilate(req Request) Status
}

// PrimitiveFunc adapts a function to Primitive.
type PrimitiveFunc func(req Request) Status

// Dilate calls f(req).
func (f PrimitiveFunc) Dilate(req Request) Status { return f(req) }

var (
	active   Primitive = defaultPrimitive()
	activeMu sync.RWMutex
)

// SetPrimitive replaces the active primitive and returns a function that
// restores the previous one.
func SetPrimitive(p Primitive) (restore func()) {
	activeMu.Lock()
	prev := active
	active = p
	activeMu.Unlock()

	return func() {
		activeMu.Lock()
		active = prev
		activeMu.Unlock()
	}
}

// Backend returns the name of the compiled-in primitive.
func Backend() string {
	return backendName
}

// Dilate applies the active primitive to the interior of a width x height
// 8-bit single-channel buffer, anchoring the kernel at its centre. Border
// pixels of output outside the interior are not written.
func Dilate(input, output []byte, width, height uint32, kernel []byte, kw, kh uint32) Status {
	activeMu.RLock()
	p := active
	activeMu.RUnlock()

	return p.Dilate(Request{
		Input:      input,
		Output:     output,
		Region:     Plan(width, height, kw, kh),
		Kernel:     kernel,
		KernelSize: image.Pt(int(kw), int(kh)),
	})
}

// DilateGray dilates src into dst. Both images must be tightly packed
// (Stride == width) and the same size.
func DilateGray(src, dst *image.Gray, kernel []byte, kw, kh int) Status {
	b := src.Bounds()
	if dst.Bounds().Size() != b.Size() || src.Stride != b.Dx() || dst.Stride != b.Dx() {
		return StatusSizeError
	}
	return Dilate(src.Pix, dst.Pix, uint32(b.Dx()), uint32(b.Dy()), kernel, uint32(kw), uint32(kh))
}

// Box returns an all-ones w x h kernel.
func Box(w, h int) []byte {
	k := make([]byte, w*h)
	for i := range k {
		k[i] = 1
	}
	return k
}
