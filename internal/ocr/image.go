package ocr

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"math"
)

// ErrInvalidImage is returned for buffers that do not match their geometry.
var ErrInvalidImage = errors.New("ocr: invalid image buffer")

// Image is a caller-owned, row-major pixel buffer with its origin at the top
// left. The bridge never copies or frees Pix.
type Image struct {
	Pix           []byte
	Width         int
	Height        int
	BytesPerPixel int
	BytesPerLine  int
}

// MaxDimension bounds every geometry field; the native engine takes them as
// C ints.
const MaxDimension = math.MaxInt32

// Validate checks that Pix covers every pixel the geometry describes.
func (img Image) Validate() error {
	need, err := BufferLen(img.Width, img.Height, img.BytesPerPixel, img.BytesPerLine)
	if err != nil {
		return err
	}
	if len(img.Pix) < need {
		return fmt.Errorf("%w: have %d bytes, need %d", ErrInvalidImage, len(img.Pix), need)
	}
	return nil
}

// BufferLen returns the number of bytes a buffer with the given geometry must
// hold: every full row but the last, plus the last row's pixels.
func BufferLen(width, height, bytesPerPixel, bytesPerLine int) (int, error) {
	if width <= 0 || height <= 0 || width > MaxDimension || height > MaxDimension {
		return 0, fmt.Errorf("%w: %dx%d", ErrInvalidImage, width, height)
	}
	if bytesPerPixel <= 0 || bytesPerPixel > MaxDimension ||
		bytesPerLine <= 0 || bytesPerLine > MaxDimension {
		return 0, fmt.Errorf("%w: %d bytes per pixel, %d bytes per line",
			ErrInvalidImage, bytesPerPixel, bytesPerLine)
	}

	// 各项均不超过 2^31，乘积与和在 uint64 内不会溢出
	row := uint64(width) * uint64(bytesPerPixel)
	if uint64(bytesPerLine) < row {
		return 0, fmt.Errorf("%w: %d bytes per line for %d pixels of %d bytes",
			ErrInvalidImage, bytesPerLine, width, bytesPerPixel)
	}
	need := uint64(height-1)*uint64(bytesPerLine) + row
	if need > math.MaxInt {
		return 0, fmt.Errorf("%w: %dx%d needs %d bytes", ErrInvalidImage, width, height, need)
	}
	return int(need), nil
}

// GrayImage wraps a single-channel buffer with no row padding.
func GrayImage(pix []byte, width, height int) Image {
	return Image{Pix: pix, Width: width, Height: height, BytesPerPixel: 1, BytesPerLine: width}
}

// FromImage exposes img as an Image. Gray, RGBA and NRGBA images share
// their pixel memory; anything else is converted to gray first.
func FromImage(img image.Image) Image {
	b := img.Bounds()

	switch m := img.(type) {
	case *image.Gray:
		return Image{
			Pix:           m.Pix[m.PixOffset(b.Min.X, b.Min.Y):],
			Width:         b.Dx(),
			Height:        b.Dy(),
			BytesPerPixel: 1,
			BytesPerLine:  m.Stride,
		}
	case *image.RGBA:
		return Image{
			Pix:           m.Pix[m.PixOffset(b.Min.X, b.Min.Y):],
			Width:         b.Dx(),
			Height:        b.Dy(),
			BytesPerPixel: 4,
			BytesPerLine:  m.Stride,
		}
	case *image.NRGBA:
		return Image{
			Pix:           m.Pix[m.PixOffset(b.Min.X, b.Min.Y):],
			Width:         b.Dx(),
			Height:        b.Dy(),
			BytesPerPixel: 4,
			BytesPerLine:  m.Stride,
		}
	}

	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return GrayImage(gray.Pix, b.Dx(), b.Dy())
}

// ToImage copies the buffer into a Go image. One byte per pixel becomes
// gray; three or four become RGBA.
func (img Image) ToImage() (image.Image, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}

	rect := image.Rect(0, 0, img.Width, img.Height)
	switch img.BytesPerPixel {
	case 1:
		out := image.NewGray(rect)
		for y := 0; y < img.Height; y++ {
			copy(out.Pix[y*out.Stride:], img.Pix[y*img.BytesPerLine:y*img.BytesPerLine+img.Width])
		}
		return out, nil
	case 3, 4:
		out := image.NewRGBA(rect)
		for y := 0; y < img.Height; y++ {
			row := img.Pix[y*img.BytesPerLine:]
			for x := 0; x < img.Width; x++ {
				p := row[x*img.BytesPerPixel:]
				o := out.Pix[y*out.Stride+x*4:]
				o[0], o[1], o[2] = p[0], p[1], p[2]
				o[3] = 0xff
				if img.BytesPerPixel == 4 {
					o[3] = p[3]
				}
			}
		}
		return out, nil
	}

	return nil, fmt.Errorf("%w: unsupported %d bytes per pixel", ErrInvalidImage, img.BytesPerPixel)
}
