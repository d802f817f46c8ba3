package detector

import (
	"image"
	"image/color"
	"image/draw"
)

// Rect 表示一个矩形
type Rect struct {
	X, Y, Width, Height int
}

// NewRect 创建一个新的矩形
func NewRect(x, y, width, height int) Rect {
	return Rect{X: x, Y: y, Width: width, Height: height}
}

// Contains 检查点是否在矩形内
func (r Rect) Contains(p image.Point) bool {
	return p.In(r.ToImageRect())
}

// ToImageRect 转换为 image.Rectangle
func (r Rect) ToImageRect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// CropImage 将图像裁剪到指定的矩形（与图像边界求交集）
// 返回的图像原点为 (0, 0)
func CropImage(img image.Image, rect Rect) *image.RGBA {
	bounds := rect.ToImageRect().Intersect(img.Bounds())

	cropped := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(cropped, cropped.Bounds(), img, bounds.Min, draw.Src)
	return cropped
}

// RGB2Gray 将 RGB 图像转换为灰度图
func RGB2Gray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(bounds)

	if rgba, ok := img.(*image.RGBA); ok {
		// 快速路径：直接读取像素
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				i := rgba.PixOffset(x, y)
				r, g, b := rgba.Pix[i], rgba.Pix[i+1], rgba.Pix[i+2]
				gray.Pix[gray.PixOffset(x, y)] = luma(r, g, b)
			}
		}
		return gray
	}

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			gray.SetGray(x, y, color.Gray{Y: luma(uint8(r>>8), uint8(g>>8), uint8(b>>8))})
		}
	}
	return gray
}

// luma 使用标准公式计算灰度值
func luma(r, g, b uint8) uint8 {
	return uint8(0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b))
}

// Threshold 将灰度图转换为二值图，大于阈值的像素为 255
func Threshold(img *image.Gray, threshold uint8) *image.Gray {
	bounds := img.Bounds()
	binary := image.NewGray(bounds)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if img.GrayAt(x, y).Y > threshold {
				binary.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}

	return binary
}

// OtsuLevel 使用 Otsu 方法计算阈值
func OtsuLevel(img *image.Gray) uint8 {
	histogram := make([]int, 256)
	bounds := img.Bounds()
	total := bounds.Dx() * bounds.Dy()

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			histogram[img.GrayAt(x, y).Y]++
		}
	}

	sum := 0
	for i := 0; i < 256; i++ {
		sum += i * histogram[i]
	}

	sumB := 0
	wB := 0
	maxVariance := 0.0
	threshold := uint8(0)

	for t := 0; t < 256; t++ {
		wB += histogram[t]
		if wB == 0 {
			continue
		}

		wF := total - wB
		if wF == 0 {
			break
		}

		sumB += t * histogram[t]
		mB := float64(sumB) / float64(wB)
		mF := float64(sum-sumB) / float64(wF)

		variance := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if variance > maxVariance {
			maxVariance = variance
			threshold = uint8(t)
		}
	}

	return threshold
}

// AdaptiveThreshold 执行 Otsu 方法阈值化
func AdaptiveThreshold(img *image.Gray) *image.Gray {
	return Threshold(img, OtsuLevel(img))
}

// InvertImage 反转灰度图像
func InvertImage(img *image.Gray) *image.Gray {
	bounds := img.Bounds()
	inverted := image.NewGray(bounds)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			inverted.SetGray(x, y, color.Gray{Y: 255 - img.GrayAt(x, y).Y})
		}
	}

	return inverted
}
