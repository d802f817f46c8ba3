//go:build !cuda && !gocv

package morph

const backendName = "none"

// defaultPrimitive 是未编译任何后端时的存根
func defaultPrimitive() Primitive {
	return PrimitiveFunc(func(Request) Status {
		return StatusNotSupported
	})
}
