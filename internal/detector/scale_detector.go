package detector

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/PhiFever/vision-bridge/internal/config"
	"github.com/PhiFever/vision-bridge/internal/logger"
	"github.com/PhiFever/vision-bridge/internal/morph"
	"github.com/PhiFever/vision-bridge/internal/ocr"
	"github.com/PhiFever/vision-bridge/internal/scales"
)

// ScaleDetectorName 是比例尺检测器的注册名
const ScaleDetectorName = "ScaleDetector"

// ScaleResult 表示一次比例尺检测的结果，坐标均为屏幕坐标
type ScaleResult struct {
	Scales         []scales.Scale
	StartY         int
	Bars           []scales.Bar
	MetersPerPixel float64 // 0 表示未测得
	Lines          []ocr.Line
	DilateStatus   morph.Status
	IsDetected     bool
	LastUpdateAt   time.Time
}

// String 返回结果的字符串表示
func (r *ScaleResult) String() string {
	if !r.IsDetected {
		return "Scales: Not Detected"
	}
	meters := make([]uint32, len(r.Scales))
	for i, s := range r.Scales {
		meters[i] = s.Meters
	}
	if r.MetersPerPixel == 0 {
		return fmt.Sprintf("Scales: %v | Ratio: unknown", meters)
	}
	return fmt.Sprintf("Scales: %v | Ratio: %.3f m/px", meters, r.MetersPerPixel)
}

// ScaleDetector 在屏幕区域中识别地图比例尺
// 流程：裁剪 → 灰度 → Otsu 二值化 → 膨胀 → 反转 → OCR → 解析比例尺 → 测量比例尺线段
type ScaleDetector struct {
	*BaseDetector
	pool *ocr.Pool

	region  Rect
	ppi     int
	dilate  bool
	kernelW int
	kernelH int

	mu         sync.Mutex
	lastResult *ScaleResult
}

// NewScaleDetector 创建一个新的比例尺检测器，pool 由调用方持有和关闭
func NewScaleDetector(cfg *config.Config, pool *ocr.Pool) *ScaleDetector {
	return &ScaleDetector{
		BaseDetector: NewBaseDetector(ScaleDetectorName),
		pool:         pool,
		region:       NewRect(cfg.Scales.X, cfg.Scales.Y, cfg.Scales.Width, cfg.Scales.Height),
		ppi:          cfg.OCR.PPI,
		dilate:       cfg.Dilation.Enabled,
		kernelW:      cfg.Dilation.KernelWidth,
		kernelH:      cfg.Dilation.KernelHeight,
		lastResult:   &ScaleResult{},
	}
}

// Initialize 检查依赖是否就绪
func (d *ScaleDetector) Initialize() error {
	logger.Infof("[%s] Initializing...", d.Name())

	if d.pool == nil {
		return errors.New("no OCR engine pool")
	}
	if d.region.Width <= 0 || d.region.Height <= 0 {
		return fmt.Errorf("invalid scales region %+v", d.region)
	}
	if d.dilate && morph.Backend() == "none" {
		logger.Warningf("[%s] No dilation backend compiled in, OCR input will not be dilated", d.Name())
	}

	logger.Infof("[%s] Initialized successfully (region: %+v, dilation backend: %s)",
		d.Name(), d.region, morph.Backend())
	return nil
}

// Cleanup 释放资源（引擎池由外部关闭）
func (d *ScaleDetector) Cleanup() error {
	logger.Infof("[%s] Cleaning up...", d.Name())
	return nil
}

// LastResult 返回最近一次的检测结果
func (d *ScaleDetector) LastResult() *ScaleResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastResult
}

// Detect 对截图执行比例尺检测
func (d *ScaleDetector) Detect(ctx context.Context, img image.Image) (any, error) {
	if !d.IsEnabled() {
		return d.LastResult(), nil
	}

	crop := CropImage(img, d.region)
	if crop.Bounds().Empty() {
		return nil, fmt.Errorf("scales region %+v is outside the %v screenshot", d.region, img.Bounds())
	}
	origin := d.region.ToImageRect().Intersect(img.Bounds()).Min

	gray := RGB2Gray(crop)
	processed, status := d.preprocess(gray)

	var lines []ocr.Line
	err := d.pool.Do(ctx, func(e *ocr.Engine) error {
		var err error
		lines, err = e.Read(ocr.FromImage(processed), d.ppi)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("recognise scales: %w", err)
	}

	result := &ScaleResult{
		Lines:        offsetLines(lines, origin),
		DilateStatus: status,
		LastUpdateAt: time.Now(),
	}

	parsed, ok := scales.Parse(lines)
	if ok {
		result.IsDetected = true

		ratio, bars, found := scales.MetersPerPixel(barImage(gray, parsed.StartY), parsed.Scales)
		if found {
			result.MetersPerPixel = ratio
			for _, b := range bars {
				result.Bars = append(result.Bars, scales.Bar{
					Meters: b.Meters,
					Left:   b.Left.Add(origin),
					Right:  b.Right.Add(origin),
				})
			}
		}

		parsed = parsed.Offset(origin)
		result.Scales = parsed.Scales
		result.StartY = parsed.StartY
	}

	d.mu.Lock()
	d.lastResult = result
	d.mu.Unlock()

	return result, nil
}

// preprocess 生成 OCR 输入：白底黑字，文字经过膨胀加粗
func (d *ScaleDetector) preprocess(gray *image.Gray) (*image.Gray, morph.Status) {
	binary := AdaptiveThreshold(gray)
	if !d.dilate {
		return InvertImage(binary), morph.StatusSuccess
	}

	// 边框像素不会被膨胀写入，先复制一份
	dilated := image.NewGray(binary.Bounds())
	copy(dilated.Pix, binary.Pix)

	status := morph.DilateGray(binary, dilated, morph.Box(d.kernelW, d.kernelH), d.kernelW, d.kernelH)
	if !status.OK() {
		logger.Debugf("[%s] Dilation skipped: %v", d.Name(), status.Err())
		return InvertImage(binary), status
	}
	return InvertImage(dilated), status
}

// barImage 将比例尺文字下方的区域二值化：非零像素为 255，比例尺线段保持为 0
func barImage(gray *image.Gray, startY int) *image.Gray {
	out := Threshold(gray, 0)
	b := out.Bounds()
	for y := b.Min.Y; y < min(startY, b.Max.Y); y++ {
		row := out.Pix[out.PixOffset(b.Min.X, y):out.PixOffset(b.Min.X, y)+b.Dx()]
		for i := range row {
			row[i] = 255
		}
	}
	return out
}

func offsetLines(lines []ocr.Line, p image.Point) []ocr.Line {
	out := make([]ocr.Line, len(lines))
	for i, l := range lines {
		l.Box = l.Box.Add(p)
		out[i] = l
	}
	return out
}
