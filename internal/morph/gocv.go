//go:build gocv && !cuda

package morph

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/PhiFever/vision-bridge/internal/logger"
)

const backendName = "gocv"

func defaultPrimitive() Primitive {
	return PrimitiveFunc(gocvDilate)
}

// gocvDilate runs OpenCV's dilate over the interior region of the input.
// OpenCV reads neighbours outside a sub-matrix the same way NPP reads outside
// its ROI, so border pixels feed the interior but are never written.
func gocvDilate(req Request) Status {
	r := req.Region
	kw, kh := req.KernelSize.X, req.KernelSize.Y
	if r.Size.X <= 0 || r.Size.Y <= 0 || kw <= 0 || kh <= 0 || r.Step <= 0 {
		return StatusSizeError
	}

	rows := len(req.Input) / r.Step
	if rows < r.Size.Y+kh || len(req.Output) < rows*r.Step || len(req.Kernel) < kw*kh {
		return StatusSizeError
	}

	src, err := gocv.NewMatFromBytes(rows, r.Step, gocv.MatTypeCV8UC1, req.Input[:rows*r.Step])
	if err != nil {
		logger.Errorf("[morph] gocv: wrap input: %v", err)
		return StatusBackendError
	}
	defer src.Close()

	kernel, err := gocv.NewMatFromBytes(kh, kw, gocv.MatTypeCV8UC1, req.Kernel[:kw*kh])
	if err != nil {
		logger.Errorf("[morph] gocv: wrap kernel: %v", err)
		return StatusBackendError
	}
	defer kernel.Close()

	interior := src.Region(image.Rect(r.Anchor.X, r.Anchor.Y, r.Anchor.X+r.Size.X, r.Anchor.Y+r.Size.Y))
	defer interior.Close()

	dst := gocv.NewMat()
	defer dst.Close()

	if err := gocv.DilateWithParams(interior, &dst, kernel, r.Anchor, 1, gocv.BorderConstant, color.RGBA{}); err != nil {
		logger.Errorf("[morph] gocv: dilate: %v", err)
		return StatusBackendError
	}

	out := dst.ToBytes()
	for y := 0; y < r.Size.Y; y++ {
		start := r.Offset + y*r.Step
		copy(req.Output[start:start+r.Size.X], out[y*r.Size.X:(y+1)*r.Size.X])
	}

	return StatusSuccess
}
