package scales

import (
	"image"
	"math"
)

const (
	minBarWidth    = 10
	minTickHeight  = 4
	searchPerWidth = 20.0 / 640.0
)

// Bar is a measured scale bar.
type Bar struct {
	Meters      uint32
	Left, Right image.Point
}

// Width is the bar length in pixels, ends included.
func (b Bar) Width() int {
	return b.Right.X - b.Left.X + 1
}

// MetersPerPixel measures the bar under each scale and averages
// meters/width over the bars it finds. img is a binarised crop in which the
// bars are black (0) on a non-zero background, in the same coordinates as the
// scale anchors. ok is false when no bar is found.
func MetersPerPixel(img *image.Gray, scales []Scale) (ratio float64, bars []Bar, ok bool) {
	var sum float64
	for _, s := range scales {
		bar, found := findBar(img, s)
		if !found {
			continue
		}
		bars = append(bars, bar)
		sum += float64(s.Meters) / float64(bar.Width())
	}
	if len(bars) == 0 {
		return 0, nil, false
	}
	return sum / float64(len(bars)), bars, true
}

// findBar walks down from the label anchor to the first black row and follows
// it to the vertical ticks at both ends.
func findBar(img *image.Gray, s Scale) (Bar, bool) {
	b := img.Bounds()
	x, y0 := s.Anchor.X, s.Anchor.Y
	if y0-b.Min.Y < minTickHeight || x < b.Min.X || x >= b.Max.X {
		return Bar{}, false
	}

	maxOffset := int(math.Round(searchPerWidth * float64(b.Dx())))
	for y := y0; y < min(b.Max.Y, y0+maxOffset); y++ {
		if !black(img, x, y) {
			continue
		}

		right, ok := scanTick(img, x, y, 1)
		if !ok {
			continue
		}
		left, ok := scanTick(img, x-1, y, -1)
		if !ok {
			continue
		}

		bar := Bar{Meters: s.Meters, Left: image.Pt(left, y), Right: image.Pt(right, y)}
		if bar.Width() < minBarWidth {
			continue
		}
		return bar, true
	}
	return Bar{}, false
}

// scanTick moves along row y in direction dir until the bar ends and returns
// the last bar column that carries a tick below it.
func scanTick(img *image.Gray, from, y, dir int) (int, bool) {
	b := img.Bounds()
	for x := from; x >= b.Min.X && x < b.Max.X; x += dir {
		if black(img, x, y) {
			continue
		}
		end := x - dir
		if end <= b.Min.X || !tick(img, end, y) {
			continue
		}
		return end, true
	}
	return 0, false
}

func tick(img *image.Gray, x, y int) bool {
	for dy := 0; dy < minTickHeight; dy++ {
		if !black(img, x, y+dy) {
			return false
		}
	}
	return true
}

func black(img *image.Gray, x, y int) bool {
	if !(image.Point{x, y}.In(img.Bounds())) {
		return false
	}
	return img.GrayAt(x, y).Y == 0
}
