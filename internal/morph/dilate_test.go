package morph

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder captures the request and answers with a fixed status
type recorder struct {
	status Status
	calls  []Request
}

func (r *recorder) Dilate(req Request) Status {
	r.calls = append(r.calls, req)
	return r.status
}

// TestPlanInterior tests the interior region arithmetic for odd kernels
func TestPlanInterior(t *testing.T) {
	testCases := []struct {
		w, h, kw, kh uint32
	}{
		{10, 10, 3, 3},
		{64, 32, 5, 3},
		{7, 9, 7, 1},
		{100, 50, 1, 9},
		{5, 5, 5, 5},
	}

	for _, tc := range testCases {
		r := Plan(tc.w, tc.h, tc.kw, tc.kh)

		assert.Equal(t, image.Pt(int(tc.w-tc.kw), int(tc.h-tc.kh)), r.Size, "size for %+v", tc)
		assert.Equal(t, image.Pt(int(tc.kw/2), int(tc.kh/2)), r.Anchor, "anchor for %+v", tc)
		assert.Equal(t, int(tc.w)*int(tc.kh/2)+int(tc.kw/2), r.Offset, "offset for %+v", tc)
		assert.Equal(t, int(tc.w), r.Step)
	}
}

// TestPlanEvenKernelTruncates tests that even kernel sizes floor the anchor
func TestPlanEvenKernelTruncates(t *testing.T) {
	r := Plan(8, 8, 4, 2)
	assert.Equal(t, image.Pt(2, 1), r.Anchor)
	assert.Equal(t, 8*1+2, r.Offset)
	assert.Equal(t, image.Pt(4, 6), r.Size)
}

// TestPlanOversizedKernel tests that oversized kernels are not validated
func TestPlanOversizedKernel(t *testing.T) {
	r := Plan(4, 4, 7, 5)
	assert.LessOrEqual(t, r.Size.X, 0)
	assert.LessOrEqual(t, r.Size.Y, 0)
	assert.Equal(t, image.Pt(-3, -1), r.Size)
}

// TestDilateForwardsRequest tests that Dilate hands the interior to the primitive
func TestDilateForwardsRequest(t *testing.T) {
	rec := &recorder{}
	defer SetPrimitive(rec)()

	in := make([]byte, 12*8)
	out := make([]byte, 12*8)
	kernel := Box(3, 5)

	status := Dilate(in, out, 12, 8, kernel, 3, 5)
	require.True(t, status.OK())
	require.Len(t, rec.calls, 1)

	req := rec.calls[0]
	assert.Equal(t, image.Pt(9, 3), req.Region.Size)
	assert.Equal(t, image.Pt(1, 2), req.Region.Anchor)
	assert.Equal(t, 12*2+1, req.Region.Offset)
	assert.Equal(t, image.Pt(3, 5), req.KernelSize)
	assert.Len(t, req.Kernel, 15)
	assert.Same(t, &in[0], &req.Input[0])
	assert.Same(t, &out[0], &req.Output[0])
}

// TestDilateStatusPassthrough tests that status codes are returned verbatim
func TestDilateStatusPassthrough(t *testing.T) {
	for _, sentinel := range []Status{StatusSuccess, -7, 42, StatusSizeError, StatusNotSupported} {
		rec := &recorder{status: sentinel}
		restore := SetPrimitive(rec)

		got := Dilate(make([]byte, 25), make([]byte, 25), 5, 5, Box(3, 3), 3, 3)
		restore()

		assert.Equal(t, sentinel, got)
		if sentinel.OK() {
			assert.NoError(t, got.Err())
			continue
		}

		var statusErr *StatusError
		require.ErrorAs(t, got.Err(), &statusErr)
		assert.Equal(t, sentinel, statusErr.Code)
	}
}

// TestDilateLeavesBorderUntouched tests that only the interior is written
func TestDilateLeavesBorderUntouched(t *testing.T) {
	// a primitive that fills the interior it was given
	fill := PrimitiveFunc(func(req Request) Status {
		r := req.Region
		for y := 0; y < r.Size.Y; y++ {
			for x := 0; x < r.Size.X; x++ {
				req.Output[r.Offset+y*r.Step+x] = 255
			}
		}
		return StatusSuccess
	})
	defer SetPrimitive(fill)()

	const w, h = 9, 7
	out := make([]byte, w*h)
	for i := range out {
		out[i] = 7
	}

	require.True(t, Dilate(make([]byte, w*h), out, w, h, Box(3, 3), 3, 3).OK())

	interior := image.Rect(1, 1, 1+w-3, 1+h-3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := out[y*w+x]
			if image.Pt(x, y).In(interior) {
				assert.Equal(t, byte(255), v, "interior pixel (%d,%d)", x, y)
			} else {
				assert.Equal(t, byte(7), v, "border pixel (%d,%d)", x, y)
			}
		}
	}
}

// TestDilateGrayRejectsPaddedImages tests the stride guard
func TestDilateGrayRejectsPaddedImages(t *testing.T) {
	rec := &recorder{}
	defer SetPrimitive(rec)()

	src := image.NewGray(image.Rect(0, 0, 10, 10))
	dst := image.NewGray(image.Rect(0, 0, 8, 10))
	assert.Equal(t, StatusSizeError, DilateGray(src, dst, Box(3, 3), 3, 3))
	assert.Empty(t, rec.calls)

	dst = image.NewGray(image.Rect(0, 0, 10, 10))
	assert.True(t, DilateGray(src, dst, Box(3, 3), 3, 3).OK())
	assert.Len(t, rec.calls, 1)
}

// TestBox tests the all-ones kernel helper
func TestBox(t *testing.T) {
	k := Box(3, 2)
	assert.Equal(t, []byte{1, 1, 1, 1, 1, 1}, k)
}

// TestBackendName tests that a backend name is always reported
func TestBackendName(t *testing.T) {
	assert.NotEmpty(t, Backend())
}
