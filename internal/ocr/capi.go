//go:build ocr

package ocr

/*
#cgo LDFLAGS: -ltesseract -llept
#include <stdlib.h>
#include <string.h>
#include <tesseract/capi.h>

static void vb_tess_recognise(TessBaseAPI* api, int ppi, const unsigned char* image,
	int width, int height, int bytes_per_pixel, int bytes_per_line)
{
	TessBaseAPISetImage(api, image, width, height, bytes_per_pixel, bytes_per_line);
	if (ppi > 0) TessBaseAPISetSourceResolution(api, ppi);
	TessBaseAPIRecognize(api, NULL);
}
*/
import "C"

import (
	"image"
	"unsafe"

	"github.com/otiai10/gosseract/v2"
)

const textLine = C.TessPageIteratorLevel(gosseract.RIL_TEXTLINE)

func init() {
	Register(DriverCAPI, capiDriver{})
}

// capiDriver talks to Tesseract through its C API so that models can be
// loaded from memory and raw pixel buffers bound directly.
type capiDriver struct{}

func (capiDriver) Version() string {
	return C.GoString(C.TessVersion())
}

func (capiDriver) Open(model []byte, language string) (Handle, int) {
	// 长度为 0 时 Tesseract 会回退到 tessdata 目录加载模型
	if len(model) == 0 {
		return nil, -1
	}

	api := C.TessBaseAPICreate()

	lang := C.CString(language)
	defer C.free(unsafe.Pointer(lang))

	data := (*C.char)(unsafe.Pointer(unsafe.SliceData(model)))

	status := C.TessBaseAPIInit5(api, data, C.int(len(model)), lang, C.OEM_LSTM_ONLY,
		nil, 0, nil, nil, 0, C.FALSE)
	if status != 0 {
		C.TessBaseAPIDelete(api)
		return nil, int(status)
	}

	C.TessBaseAPISetPageSegMode(api, C.TessPageSegMode(gosseract.PSM_SPARSE_TEXT))
	return &capiHandle{api: api}, 0
}

type capiHandle struct {
	api *C.TessBaseAPI
}

// Recognize binds, configures and recognises in one cgo call so the Go
// buffer is never retained by C after the call returns.
func (h *capiHandle) Recognize(img Image, ppi int) {
	C.vb_tess_recognise(h.api, C.int(ppi),
		(*C.uchar)(unsafe.Pointer(unsafe.SliceData(img.Pix))),
		C.int(img.Width), C.int(img.Height),
		C.int(img.BytesPerPixel), C.int(img.BytesPerLine))
}

func (h *capiHandle) Iterator() Cursor {
	ri := C.TessBaseAPIGetIterator(h.api)
	if ri == nil {
		return nil
	}
	return &capiCursor{ri: ri, pi: C.TessResultIteratorGetPageIterator(ri)}
}

func (h *capiHandle) End() {
	C.TessBaseAPIEnd(h.api)
	C.TessBaseAPIDelete(h.api)
	h.api = nil
}

type capiCursor struct {
	ri *C.TessResultIterator
	pi *C.TessPageIterator
}

func (c *capiCursor) Text() TextBuffer {
	text := C.TessResultIteratorGetUTF8Text(c.ri, textLine)
	if text == nil {
		return nil
	}
	return capiText{p: text}
}

func (c *capiCursor) Confidence() float32 {
	return float32(C.TessResultIteratorConfidence(c.ri, textLine))
}

func (c *capiCursor) BoundingBox() image.Rectangle {
	var left, top, right, bottom C.int
	C.TessPageIteratorBoundingBox(c.pi, textLine, &left, &top, &right, &bottom)
	return image.Rect(int(left), int(top), int(right), int(bottom))
}

func (c *capiCursor) Next() bool {
	return C.TessResultIteratorNext(c.ri, textLine) != 0
}

func (c *capiCursor) Delete() {
	C.TessResultIteratorDelete(c.ri)
}

// capiText aliases a Tesseract-owned string until Free.
type capiText struct {
	p *C.char
}

func (t capiText) Bytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(t.p)), C.strlen(t.p))
}

func (t capiText) Free() {
	C.TessDeleteText(t.p)
}
