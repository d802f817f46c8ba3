//go:build gosseract

package ocr

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strconv"

	"github.com/otiai10/gosseract/v2"

	"github.com/PhiFever/vision-bridge/internal/logger"
)

func init() {
	Register(DriverClient, clientDriver{})
}

// clientDriver runs Tesseract through gosseract. gosseract only loads models
// from a tessdata directory, so Open writes the model into a private
// temporary one. The engine mode is whatever the model provides; LSTM-only
// models therefore behave like the capi driver.
type clientDriver struct{}

func (clientDriver) Version() string {
	return gosseract.Version()
}

func (clientDriver) Open(model []byte, language string) (Handle, int) {
	if len(model) == 0 || language == "" {
		return nil, -1
	}

	dir, err := os.MkdirTemp("", "vision-bridge-tessdata-*")
	if err != nil {
		logger.Errorf("[ocr] client: create tessdata dir: %v", err)
		return nil, -1
	}
	if err := os.WriteFile(filepath.Join(dir, language+".traineddata"), model, 0600); err != nil {
		os.RemoveAll(dir)
		logger.Errorf("[ocr] client: write model: %v", err)
		return nil, -1
	}

	client := gosseract.NewClient()
	h := &clientHandle{client: client, dir: dir}

	client.SetTessdataPrefix(dir)
	if err := client.SetLanguage(language); err != nil {
		h.End()
		return nil, -1
	}
	if err := client.SetPageSegMode(gosseract.PSM_SPARSE_TEXT); err != nil {
		h.End()
		return nil, -1
	}

	// gosseract 延迟初始化，这里用空白页强制加载模型，损坏的模型在此失败
	if err := client.SetImageFromBytes(blankPage()); err != nil {
		h.End()
		return nil, -1
	}
	if _, err := client.Text(); err != nil {
		logger.Warningf("[ocr] client: load model: %v", err)
		h.End()
		return nil, -1
	}

	return h, 0
}

// blankPage returns a small white PNG.
func blankPage() []byte {
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

type clientHandle struct {
	client *gosseract.Client
	dir    string
	ppi    int
	boxes  []gosseract.BoundingBox
}

// Recognize runs the pass immediately and keeps the text lines until the next
// call, so iterating never recognises again.
func (h *clientHandle) Recognize(img Image, ppi int) {
	h.boxes = nil

	m, err := img.ToImage()
	if err != nil {
		logger.Warningf("[ocr] client: %v", err)
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, m); err != nil {
		logger.Warningf("[ocr] client: encode image: %v", err)
		return
	}
	if err := h.client.SetImageFromBytes(buf.Bytes()); err != nil {
		logger.Warningf("[ocr] client: set image: %v", err)
		return
	}
	// 修改变量会触发重新初始化，只在分辨率变化时设置
	if ppi > 0 && ppi != h.ppi {
		if err := h.client.SetVariable("user_defined_dpi", strconv.Itoa(ppi)); err != nil {
			logger.Warningf("[ocr] client: set resolution: %v", err)
		} else {
			h.ppi = ppi
		}
	}

	boxes, err := h.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		logger.Debugf("[ocr] client: bounding boxes: %v", err)
		return
	}
	h.boxes = boxes
}

func (h *clientHandle) Iterator() Cursor {
	if len(h.boxes) == 0 {
		return nil
	}
	return &clientCursor{boxes: h.boxes}
}

func (h *clientHandle) End() {
	h.client.Close()
	os.RemoveAll(h.dir)
	h.boxes = nil
}

type clientCursor struct {
	boxes []gosseract.BoundingBox
	pos   int
}

func (c *clientCursor) Text() TextBuffer {
	return &clientText{b: []byte(c.boxes[c.pos].Word)}
}

func (c *clientCursor) Confidence() float32 {
	return float32(c.boxes[c.pos].Confidence)
}

func (c *clientCursor) BoundingBox() image.Rectangle {
	return c.boxes[c.pos].Box
}

func (c *clientCursor) Next() bool {
	if c.pos+1 >= len(c.boxes) {
		return false
	}
	c.pos++
	return true
}

func (c *clientCursor) Delete() {
	c.boxes = nil
}

type clientText struct {
	b []byte
}

func (t *clientText) Bytes() []byte { return t.b }

func (t *clientText) Free() { t.b = nil }
