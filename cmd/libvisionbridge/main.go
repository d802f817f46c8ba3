// Command libvisionbridge builds the C-linkage library:
//
//	go build -buildmode=c-shared -tags=ocr -o libvisionbridge.so ./cmd/libvisionbridge
//
// Every entry point is synchronous. An engine handle must not be used from
// two threads at once.
package main

/*
#include <stdlib.h>
#include <string.h>
#include "bridge.h"
*/
import "C"

import (
	"os"
	"sync"
	"unsafe"

	"github.com/PhiFever/vision-bridge/internal/config"
	"github.com/PhiFever/vision-bridge/internal/logger"
	"github.com/PhiFever/vision-bridge/internal/morph"
	"github.com/PhiFever/vision-bridge/internal/ocr"
)

var (
	handles handleTable

	// 驱动选择来自 VB_OCR_DRIVER
	settings = loadSettings()

	versionOnce sync.Once
	versionStr  *C.char

	// 回调文本的 C 内存，测试中替换以统计释放
	allocText = func(n int) unsafe.Pointer { return C.malloc(C.size_t(n)) }
	freeText  = func(p unsafe.Pointer) { C.free(p) }
)

func loadSettings() *config.Config {
	cfg := config.Default()
	if err := cfg.ApplyEnv(); err != nil {
		logger.SetOutput(logger.INFO, os.Stderr)
		logger.Warningf("[bridge] Ignoring environment: %v", err)
		return cfg
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logger.WARNING
	}
	logger.SetOutput(level, os.Stderr)
	return cfg
}

// recoverPanic keeps Go panics from unwinding into C.
func recoverPanic(entry string) {
	if r := recover(); r != nil {
		logger.Errorf("[bridge] %s panicked: %v", entry, r)
	}
}

//export vb_dilate
func vb_dilate(in *C.uint8_t, out *C.uint8_t, width, height C.uint32_t,
	kernel *C.uint8_t, kw, kh C.uint32_t) (status C.int) {
	status = C.int(morph.StatusBackendError)
	defer recoverPanic("vb_dilate")

	if in == nil || out == nil || kernel == nil {
		return C.int(morph.StatusNullPointer)
	}

	n := int(width) * int(height)
	input := unsafe.Slice((*byte)(unsafe.Pointer(in)), n)
	output := unsafe.Slice((*byte)(unsafe.Pointer(out)), n)
	mask := unsafe.Slice((*byte)(unsafe.Pointer(kernel)), int(kw)*int(kh))

	return C.int(morph.Dilate(input, output, uint32(width), uint32(height), mask, uint32(kw), uint32(kh)))
}

//export vb_ocr_version
func vb_ocr_version() *C.char {
	versionOnce.Do(func() {
		versionStr = C.CString(ocr.VersionOf(settings.OCR.Driver))
	})
	return versionStr
}

//export vb_ocr_init
func vb_ocr_init(out *C.vb_ocr_handle, data *C.char, length C.int, lang *C.char) (status C.int) {
	status = C.int(ocr.StatusInvalidArgument)
	defer recoverPanic("vb_ocr_init")

	if out == nil {
		return status
	}
	*out = 0

	var model []byte
	if data != nil && length > 0 {
		model = unsafe.Slice((*byte)(unsafe.Pointer(data)), int(length))
	}
	language := ""
	if lang != nil {
		language = C.GoString(lang)
	}

	engine, err := ocr.Init(model, language, ocr.WithDriver(settings.OCR.Driver))
	if err != nil {
		logger.Warningf("[bridge] %v", err)
		return C.int(ocr.StatusCode(err))
	}

	*out = C.vb_ocr_handle(handles.add(engine))
	return 0
}

//export vb_ocr_destroy
func vb_ocr_destroy(h C.vb_ocr_handle) {
	defer recoverPanic("vb_ocr_destroy")

	if engine, ok := handles.remove(uint64(h)); ok {
		engine.Close()
	}
}

//export vb_ocr_recognise
func vb_ocr_recognise(h C.vb_ocr_handle, ppi C.int, image *C.uint8_t,
	width, height, bpp, bpl C.int) {
	defer recoverPanic("vb_ocr_recognise")

	engine, ok := handles.get(uint64(h))
	if !ok || image == nil {
		return
	}

	n, err := ocr.BufferLen(int(width), int(height), int(bpp), int(bpl))
	if err != nil {
		logger.Warningf("[bridge] recognise: %v", err)
		return
	}
	img := ocr.Image{
		Pix:           unsafe.Slice((*byte)(unsafe.Pointer(image)), n),
		Width:         int(width),
		Height:        int(height),
		BytesPerPixel: int(bpp),
		BytesPerLine:  int(bpl),
	}
	if err := engine.Recognise(img, int(ppi)); err != nil {
		logger.Warningf("[bridge] recognise: %v", err)
	}
}

//export vb_ocr_iter
func vb_ocr_iter(h C.vb_ocr_handle, state unsafe.Pointer, fn C.vb_ocr_iter_fn) {
	defer recoverPanic("vb_ocr_iter")

	engine, ok := handles.get(uint64(h))
	if !ok || fn == nil {
		return
	}

	engine.Visit(func(line ocr.RawLine) {
		text := (*C.char)(allocText(len(line.Text) + 1))
		defer freeText(unsafe.Pointer(text))

		buf := unsafe.Slice((*byte)(unsafe.Pointer(text)), len(line.Text)+1)
		copy(buf, line.Text)
		buf[len(line.Text)] = 0

		C.vb_call_iter(fn, state, C.vb_ocr_result{
			text:       text,
			confidence: C.float(line.Confidence),
			x1:         C.int(line.Box.Min.X),
			y1:         C.int(line.Box.Min.Y),
			x2:         C.int(line.Box.Max.X),
			y2:         C.int(line.Box.Max.Y),
		})
	})
}

func main() {}
