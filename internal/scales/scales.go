// Package scales extracts map-scale labels ("100m", "250m") from OCR lines and
// measures the scale bars drawn next to them.
package scales

import (
	"image"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PhiFever/vision-bridge/internal/ocr"
)

// MaxScales is the most labels a map shows at once.
const MaxScales = 3

// Scale is one recognised scale label.
type Scale struct {
	Meters uint32
	// Anchor is the bottom centre of the label, where the bar starts.
	Anchor image.Point
}

// Result is what Parse found in one set of lines.
type Result struct {
	Scales []Scale
	// StartY is the smallest label bottom edge among the accepted lines.
	StartY int
}

// Parse picks scale labels out of lines in the order they arrive. A label is
// pure ASCII, has digits before its last 'm' and a value above zero. Repeated
// values are skipped and at most MaxScales are kept. ok is false when nothing
// matched.
func Parse(lines []ocr.Line) (res Result, ok bool) {
	res.StartY = math.MaxInt

	for _, line := range lines {
		meters, ok := parseLabel(line.Text)
		if !ok {
			continue
		}

		// 重复的比例尺也参与起始行的计算
		res.StartY = min(res.StartY, line.Box.Max.Y)

		if contains(res.Scales, meters) {
			continue
		}
		res.Scales = append(res.Scales, Scale{
			Meters: meters,
			Anchor: image.Pt((line.Box.Min.X+line.Box.Max.X)/2, line.Box.Max.Y),
		})
		if len(res.Scales) == MaxScales {
			break
		}
	}

	if len(res.Scales) == 0 {
		return Result{}, false
	}
	return res, true
}

func parseLabel(text string) (uint32, bool) {
	if !isASCII(text) {
		return 0, false
	}
	m := strings.LastIndexByte(text, 'm')
	if m < 0 {
		return 0, false
	}
	v, err := strconv.ParseUint(text[:m], 10, 32)
	if err != nil || v == 0 {
		return 0, false
	}
	return uint32(v), true
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func contains(scales []Scale, meters uint32) bool {
	for _, s := range scales {
		if s.Meters == meters {
			return true
		}
	}
	return false
}

// Offset translates every anchor and StartY by p, e.g. from an OCR crop back
// to screen coordinates.
func (r Result) Offset(p image.Point) Result {
	out := Result{StartY: r.StartY + p.Y, Scales: make([]Scale, len(r.Scales))}
	for i, s := range r.Scales {
		out.Scales[i] = Scale{Meters: s.Meters, Anchor: s.Anchor.Add(p)}
	}
	return out
}
