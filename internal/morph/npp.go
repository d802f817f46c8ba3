//go:build cuda

package morph

/*
#cgo LDFLAGS: -lnppim -lnppc -lcudart
#include <nppdefs.h>
#include <nppi.h>

static int vb_npp_dilate(const Npp8u* src, Npp8u* dst, int step,
	int roi_w, int roi_h, const Npp8u* mask, int kw, int kh, int ax, int ay)
{
	NppiSize roi = {roi_w, roi_h};
	NppiSize mask_size = {kw, kh};
	NppiPoint anchor = {ax, ay};
	return (int)nppiDilate_8u_C1R(src, step, dst, step, roi, mask, mask_size, anchor);
}
*/
import "C"

import "unsafe"

const backendName = "npp"

func defaultPrimitive() Primitive {
	return PrimitiveFunc(nppDilate)
}

// nppDilate forwards to nppiDilate_8u_C1R. The buffers and the mask must be
// addressable by the device (device or managed memory); NPP reports anything
// else through its own status code.
func nppDilate(req Request) Status {
	r := req.Region
	src := unsafe.Add(unsafe.Pointer(unsafe.SliceData(req.Input)), r.Offset)
	dst := unsafe.Add(unsafe.Pointer(unsafe.SliceData(req.Output)), r.Offset)

	return Status(C.vb_npp_dilate(
		(*C.Npp8u)(src),
		(*C.Npp8u)(dst),
		C.int(r.Step),
		C.int(r.Size.X), C.int(r.Size.Y),
		(*C.Npp8u)(unsafe.Pointer(unsafe.SliceData(req.Kernel))),
		C.int(req.KernelSize.X), C.int(req.KernelSize.Y),
		C.int(r.Anchor.X), C.int(r.Anchor.Y),
	))
}
