package server

import (
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"

	// 上传图片支持的格式
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/gofiber/fiber/v2"

	"github.com/PhiFever/vision-bridge/internal/morph"
	"github.com/PhiFever/vision-bridge/internal/ocr"
	"github.com/PhiFever/vision-bridge/pkg/version"
)

// DilateStatusHeader carries the primitive's status on successful dilations
const DilateStatusHeader = "X-Dilate-Status"

// Health reports liveness
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// VersionInfo describes the running build
type VersionInfo struct {
	App           string   `json:"app"`
	Version       string   `json:"version"`
	OCREngine     string   `json:"ocr_engine"`
	OCRDrivers    []string `json:"ocr_drivers"`
	DilateBackend string   `json:"dilate_backend"`
}

// Version returns the application and linked engine versions
func (h *Handler) Version(c *fiber.Ctx) error {
	return Success(c, VersionInfo{
		App:           version.AppName,
		Version:       version.Version,
		OCREngine:     ocr.VersionOf(h.cfg.OCR.Driver),
		OCRDrivers:    ocr.Drivers(),
		DilateBackend: morph.Backend(),
	})
}

// LineResponse is one recognised text line
type LineResponse struct {
	Text       string  `json:"text"`
	Confidence float32 `json:"confidence"`
	X1         int     `json:"x1"`
	Y1         int     `json:"y1"`
	X2         int     `json:"x2"`
	Y2         int     `json:"y2"`
}

// OCRResponse is the result of a recognition request
type OCRResponse struct {
	Width  int            `json:"width"`
	Height int            `json:"height"`
	Lines  []LineResponse `json:"lines"`
}

// Recognise runs text recognition on an uploaded image. The image comes
// either as a multipart "image" file or as a raw pixel body described by the
// width, height, bpp and bpl query parameters.
func (h *Handler) Recognise(c *fiber.Ctx) error {
	if h.pool == nil {
		return Error(c, fiber.StatusServiceUnavailable, ocr.ErrNoDriver.Error())
	}

	img, err := h.readImage(c)
	if err != nil {
		return Error(c, fiber.StatusBadRequest, err.Error())
	}

	ppi := c.QueryInt("ppi", h.cfg.OCR.PPI)

	var lines []ocr.Line
	err = h.pool.Do(c.UserContext(), func(e *ocr.Engine) error {
		var err error
		lines, err = e.Read(img, ppi)
		return err
	})
	switch {
	case errors.Is(err, ocr.ErrInvalidImage):
		return Error(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ocr.ErrPoolClosed):
		return Error(c, fiber.StatusServiceUnavailable, err.Error())
	case err != nil:
		return err
	}

	resp := OCRResponse{Width: img.Width, Height: img.Height, Lines: make([]LineResponse, 0, len(lines))}
	for _, l := range lines {
		resp.Lines = append(resp.Lines, LineResponse{
			Text:       l.Text,
			Confidence: l.Confidence,
			X1:         l.Box.Min.X,
			Y1:         l.Box.Min.Y,
			X2:         l.Box.Max.X,
			Y2:         l.Box.Max.Y,
		})
	}
	return Success(c, resp)
}

func (h *Handler) readImage(c *fiber.Ctx) (ocr.Image, error) {
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return decodeUpload(c)
	}

	width, err := queryPositive(c, "width")
	if err != nil {
		return ocr.Image{}, err
	}
	height, err := queryPositive(c, "height")
	if err != nil {
		return ocr.Image{}, err
	}
	bpp := c.QueryInt("bpp", 1)
	bpl := c.QueryInt("bpl", width*bpp)

	img := ocr.Image{
		Pix:           c.Body(),
		Width:         width,
		Height:        height,
		BytesPerPixel: bpp,
		BytesPerLine:  bpl,
	}
	return img, img.Validate()
}

func decodeUpload(c *fiber.Ctx) (ocr.Image, error) {
	file, err := c.FormFile("image")
	if err != nil {
		return ocr.Image{}, errors.New("image file is required")
	}

	src, err := file.Open()
	if err != nil {
		return ocr.Image{}, fmt.Errorf("read upload: %w", err)
	}
	defer src.Close()

	decoded, format, err := image.Decode(src)
	if err != nil {
		return ocr.Image{}, fmt.Errorf("unsupported image: %w", err)
	}
	if decoded.Bounds().Empty() {
		return ocr.Image{}, fmt.Errorf("empty %s image", format)
	}
	return ocr.FromImage(decoded), nil
}

// StatusResponse reports a failed dilation
type StatusResponse struct {
	Status int32 `json:"status"`
}

// Dilate runs the dilation primitive on a raw 8-bit single-channel body of
// width*height bytes, optionally followed by a kw*kh kernel mask. Pixels
// outside the interior keep their input values.
func (h *Handler) Dilate(c *fiber.Ctx) error {
	width, err := queryPositive(c, "width")
	if err != nil {
		return Error(c, fiber.StatusBadRequest, err.Error())
	}
	height, err := queryPositive(c, "height")
	if err != nil {
		return Error(c, fiber.StatusBadRequest, err.Error())
	}
	kw := c.QueryInt("kw", h.cfg.Dilation.KernelWidth)
	kh := c.QueryInt("kh", h.cfg.Dilation.KernelHeight)
	if kw <= 0 || kh <= 0 {
		return Error(c, fiber.StatusBadRequest, fmt.Sprintf("invalid kernel size %dx%d", kw, kh))
	}

	body := c.Body()
	pixels := width * height
	var kernel []byte
	switch len(body) {
	case pixels:
		kernel = morph.Box(kw, kh)
	case pixels + kw*kh:
		kernel = body[pixels:]
	default:
		return Error(c, fiber.StatusBadRequest, fmt.Sprintf(
			"body must be %d pixel bytes, optionally followed by %d kernel bytes; got %d",
			pixels, kw*kh, len(body)))
	}

	input := body[:pixels]
	output := make([]byte, pixels)
	copy(output, input)

	status := morph.Dilate(input, output, uint32(width), uint32(height), kernel, uint32(kw), uint32(kh))
	if !status.OK() {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(StatusResponse{Status: int32(status)})
	}

	c.Set(DilateStatusHeader, strconv.Itoa(int(status)))
	c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
	return c.Send(output)
}

func queryPositive(c *fiber.Ctx, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, fmt.Errorf("missing %s", key)
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return v, nil
}
