package main

/*
#include <stdlib.h>
#include <string.h>
#include "bridge.h"

#define VB_SINK_MAX 8
#define VB_SINK_TEXT 64

typedef struct {
	int calls;
	char text[VB_SINK_MAX][VB_SINK_TEXT];
	size_t len[VB_SINK_MAX];
	const char* ptr[VB_SINK_MAX];
	float confidence[VB_SINK_MAX];
	int box[VB_SINK_MAX][4];
} vb_sink;

void vb_sink_collect(void* state, vb_ocr_result r)
{
	vb_sink* s = (vb_sink*)state;
	if (s->calls < VB_SINK_MAX) {
		int i = s->calls;
		s->len[i] = strlen(r.text);
		strncpy(s->text[i], r.text, VB_SINK_TEXT - 1);
		s->ptr[i] = r.text;
		s->confidence[i] = r.confidence;
		s->box[i][0] = r.x1;
		s->box[i][1] = r.y1;
		s->box[i][2] = r.x2;
		s->box[i][3] = r.y2;
	}
	s->calls++;
}
*/
import "C"

import (
	"image"
	"unsafe"
)

// 以下辅助函数供 main_test.go 以 C 调用方的身份驱动导出函数（测试文件不能使用 cgo）

// sunkLine is one callback as a C caller saw it.
type sunkLine struct {
	Text       string
	Len        int
	Ptr        uintptr
	Confidence float32
	Box        image.Rectangle
}

// iterSink collects vb_ocr_iter callbacks in C memory.
type iterSink struct {
	s *C.vb_sink
}

func newIterSink() *iterSink {
	return &iterSink{s: (*C.vb_sink)(C.calloc(1, C.sizeof_vb_sink))}
}

func (k *iterSink) free() {
	C.free(unsafe.Pointer(k.s))
}

func (k *iterSink) iter(h uint64) {
	vb_ocr_iter(C.vb_ocr_handle(h), unsafe.Pointer(k.s), C.vb_ocr_iter_fn(C.vb_sink_collect))
}

func (k *iterSink) calls() int {
	return int(k.s.calls)
}

func (k *iterSink) lines() []sunkLine {
	n := min(k.calls(), int(C.VB_SINK_MAX))
	out := make([]sunkLine, n)
	for i := range out {
		out[i] = sunkLine{
			Text:       C.GoString(&k.s.text[i][0]),
			Len:        int(k.s.len[i]),
			Ptr:        uintptr(unsafe.Pointer(k.s.ptr[i])),
			Confidence: float32(k.s.confidence[i]),
			Box: image.Rect(int(k.s.box[i][0]), int(k.s.box[i][1]),
				int(k.s.box[i][2]), int(k.s.box[i][3])),
		}
	}
	return out
}

// iterNilCallback calls vb_ocr_iter with a NULL callback.
func iterNilCallback(h uint64) {
	vb_ocr_iter(C.vb_ocr_handle(h), nil, nil)
}

func cBytes(b []byte) *C.uint8_t {
	if b == nil {
		return nil
	}
	return (*C.uint8_t)(unsafe.Pointer(unsafe.SliceData(b)))
}

func callDilate(in, out []byte, width, height uint32, kernel []byte, kw, kh uint32) int32 {
	return int32(vb_dilate(cBytes(in), cBytes(out), C.uint32_t(width), C.uint32_t(height),
		cBytes(kernel), C.uint32_t(kw), C.uint32_t(kh)))
}

// callInit returns the handle written to *out, which starts out non-zero.
func callInit(model []byte, language string) (uint64, int) {
	lang := C.CString(language)
	defer C.free(unsafe.Pointer(lang))

	var data *C.char
	if model != nil {
		data = (*C.char)(C.CBytes(model))
		defer C.free(unsafe.Pointer(data))
	}

	out := C.vb_ocr_handle(0xdead)
	status := vb_ocr_init(&out, data, C.int(len(model)), lang)
	return uint64(out), int(status)
}

func callInitNullOut(model []byte, language string) int {
	lang := C.CString(language)
	defer C.free(unsafe.Pointer(lang))

	data := (*C.char)(C.CBytes(model))
	defer C.free(unsafe.Pointer(data))

	return int(vb_ocr_init(nil, data, C.int(len(model)), lang))
}

func callRecognise(h uint64, ppi int, pix []byte, width, height, bpp, bpl int) {
	vb_ocr_recognise(C.vb_ocr_handle(h), C.int(ppi), cBytes(pix),
		C.int(width), C.int(height), C.int(bpp), C.int(bpl))
}

func callDestroy(h uint64) {
	vb_ocr_destroy(C.vb_ocr_handle(h))
}

func callVersion() string {
	return C.GoString(vb_ocr_version())
}

func noDriverStatus() int { return int(C.VB_OCR_NO_DRIVER) }

func invalidArgumentStatus() int { return int(C.VB_OCR_INVALID_ARGUMENT) }

func nullPointerStatus() int { return int(C.VB_DILATE_NULL_POINTER) }
