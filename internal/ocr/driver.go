package ocr

import (
	"image"
	"sort"
	"sync"
)

// Driver opens native engine handles. Drivers register themselves from
// build-tagged files; a build without OCR tags has none.
type Driver interface {
	// Version returns the linked engine's version string.
	Version() string

	// Open creates a handle, loads the language model from model and applies
	// the fixed engine policy (LSTM only, sparse text). A non-zero status is
	// the engine's own code; the handle is nil in that case.
	Open(model []byte, language string) (Handle, int)
}

// Handle is one native engine instance. It is not safe for concurrent use.
type Handle interface {
	// Recognize binds img, applies ppi when it is positive and runs a
	// recognition pass. Engine-internal failures are not reported.
	Recognize(img Image, ppi int)

	// Iterator returns a text-line cursor positioned on the first line, or
	// nil when there is nothing to iterate.
	Iterator() Cursor

	// End releases the native instance.
	End()
}

// Cursor walks recognised text lines in engine order.
type Cursor interface {
	// Text returns the current line's UTF-8 text, or nil when the engine has
	// no text for it.
	Text() TextBuffer
	Confidence() float32
	BoundingBox() image.Rectangle
	// Next advances to the following line and reports whether there is one.
	Next() bool
	// Delete releases the cursor.
	Delete()
}

// TextBuffer is engine-owned text. Bytes is only valid until Free.
type TextBuffer interface {
	Bytes() []byte
	Free()
}

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// Register makes a driver available by name. It panics on duplicates, like
// database/sql.
func Register(name string, d Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()

	if d == nil {
		panic("ocr: Register driver is nil")
	}
	if _, dup := drivers[name]; dup {
		panic("ocr: Register called twice for driver " + name)
	}
	drivers[name] = d
}

// Unregister removes a driver. Intended for tests.
func Unregister(name string) {
	driversMu.Lock()
	defer driversMu.Unlock()
	delete(drivers, name)
}

// Drivers returns the sorted names of registered drivers.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()

	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Available reports whether any OCR driver was compiled in.
func Available() bool {
	return len(Drivers()) > 0
}

// lookup resolves a driver by name. An empty name picks "capi" when present,
// then the first registered driver.
func lookup(name string) (string, Driver, bool) {
	driversMu.RLock()
	defer driversMu.RUnlock()

	if name != "" {
		d, ok := drivers[name]
		return name, d, ok
	}
	if d, ok := drivers[DriverCAPI]; ok {
		return DriverCAPI, d, true
	}

	names := make([]string, 0, len(drivers))
	for n := range drivers {
		names = append(names, n)
	}
	if len(names) == 0 {
		return "", nil, false
	}
	sort.Strings(names)
	return names[0], drivers[names[0]], true
}

// Version returns the version of the default driver's engine, or "" when no
// driver is compiled in.
func Version() string {
	return VersionOf("")
}

// VersionOf returns the engine version of the named driver, resolved the same
// way Init resolves it. It returns "" when no such driver exists.
func VersionOf(name string) string {
	_, d, ok := lookup(name)
	if !ok {
		return ""
	}
	return d.Version()
}

// Driver names registered by the build-tagged backends.
const (
	DriverCAPI   = "capi"
	DriverClient = "client"
)
