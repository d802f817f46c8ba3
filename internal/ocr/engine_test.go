package ocr_test

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PhiFever/vision-bridge/internal/ocr"
	"github.com/PhiFever/vision-bridge/internal/ocr/ocrtest"
)

var testModel = []byte("fake traineddata")

// registerFake registers a fresh scripted driver under the test's name
func registerFake(t *testing.T, lines ...ocrtest.Line) (*ocrtest.Driver, ocr.Option) {
	t.Helper()
	d := &ocrtest.Driver{Lines: lines}
	ocr.Register(t.Name(), d)
	t.Cleanup(func() { ocr.Unregister(t.Name()) })
	return d, ocr.WithDriver(t.Name())
}

func blankImage(w, h int) ocr.Image {
	return ocr.GrayImage(make([]byte, w*h), w, h)
}

// threeLines returns three lines top to bottom
func threeLines() []ocrtest.Line {
	return []ocrtest.Line{
		ocrtest.TextLine("100m", 91.5, image.Rect(10, 10, 60, 24)),
		ocrtest.TextLine("200m", 88.0, image.Rect(10, 40, 60, 54)),
		ocrtest.TextLine("300m", 75.25, image.Rect(10, 70, 60, 84)),
	}
}

// TestInitSuccess tests initialising an engine with a valid model
func TestInitSuccess(t *testing.T) {
	d, withFake := registerFake(t)

	engine, err := ocr.Init(testModel, "eng", withFake)
	require.NoError(t, err)
	require.NotNil(t, engine)
	defer engine.Close()

	assert.Equal(t, t.Name(), engine.Driver())
	require.Len(t, d.Handles(), 1)
	assert.Equal(t, "eng", d.Handles()[0].Language)
}

// TestInitEmptyModel tests that an empty model yields a non-zero status
func TestInitEmptyModel(t *testing.T) {
	_, withFake := registerFake(t)

	engine, err := ocr.Init(nil, "eng", withFake)
	require.Error(t, err)
	assert.Nil(t, engine)
	assert.NotEqual(t, 0, ocr.StatusCode(err))
}

// TestInitStatusPassthrough tests that the engine's status is kept verbatim
func TestInitStatusPassthrough(t *testing.T) {
	d, withFake := registerFake(t)
	d.OpenStatus = 17

	_, err := ocr.Init(testModel, "eng", withFake)

	var initErr *ocr.InitError
	require.ErrorAs(t, err, &initErr)
	assert.Equal(t, 17, initErr.Code)
	assert.Equal(t, 17, ocr.StatusCode(err))
}

// TestInitUnknownDriver tests the missing-driver status
func TestInitUnknownDriver(t *testing.T) {
	_, err := ocr.Init(testModel, "eng", ocr.WithDriver("does-not-exist"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ocr.ErrNoDriver)
	assert.Equal(t, ocr.StatusNoDriver, ocr.StatusCode(err))
	assert.Equal(t, 0, ocr.StatusCode(nil))
}

// TestVisitOrderAndTransientText tests per-line callbacks and text lifetime
func TestVisitOrderAndTransientText(t *testing.T) {
	d, withFake := registerFake(t, threeLines()...)

	engine, err := ocr.Init(testModel, "eng", withFake)
	require.NoError(t, err)
	defer engine.Close()

	require.NoError(t, engine.Recognise(blankImage(100, 100), 0))

	var copies []string
	var retained [][]byte
	var boxes []image.Rectangle
	engine.Visit(func(line ocr.RawLine) {
		copies = append(copies, string(line.Text))
		retained = append(retained, line.Text)
		boxes = append(boxes, line.Box)
	})

	assert.Equal(t, []string{"100m", "200m", "300m"}, copies)
	for i := 1; i < len(boxes); i++ {
		assert.Less(t, boxes[i-1].Min.Y, boxes[i].Min.Y, "lines should arrive top to bottom")
	}

	// retained slices point at freed buffers
	for _, b := range retained {
		assert.Equal(t, "####", string(b))
	}

	h := d.Handles()[0]
	assert.Equal(t, 3, h.Freed())
	assert.Equal(t, 0, h.Outstanding())
	assert.Equal(t, 0, h.OpenCursors())
}

// TestVisitWithoutRecognise tests that nothing is visited before recognition
func TestVisitWithoutRecognise(t *testing.T) {
	d, withFake := registerFake(t, threeLines()...)

	engine, err := ocr.Init(testModel, "eng", withFake)
	require.NoError(t, err)
	defer engine.Close()

	calls := 0
	engine.Visit(func(ocr.RawLine) { calls++ })
	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, d.Handles()[0].OpenCursors())
}

// TestVisitNoResults tests a recognition that found nothing
func TestVisitNoResults(t *testing.T) {
	_, withFake := registerFake(t)

	engine, err := ocr.Init(testModel, "eng", withFake)
	require.NoError(t, err)
	defer engine.Close()

	require.NoError(t, engine.Recognise(blankImage(10, 10), 0))

	calls := 0
	engine.Visit(func(ocr.RawLine) { calls++ })
	assert.Equal(t, 0, calls)
}

// TestVisitStopsAtMissingText tests that a line without text ends the walk
func TestVisitStopsAtMissingText(t *testing.T) {
	lines := threeLines()
	lines[1].Text = nil
	d, withFake := registerFake(t, lines...)

	engine, err := ocr.Init(testModel, "eng", withFake)
	require.NoError(t, err)
	defer engine.Close()

	require.NoError(t, engine.Recognise(blankImage(10, 10), 0))

	var got []string
	engine.Visit(func(line ocr.RawLine) { got = append(got, string(line.Text)) })

	assert.Equal(t, []string{"100m"}, got)
	assert.Equal(t, 0, d.Handles()[0].OpenCursors())
}

// TestVisitDeliversEmptyText tests that an empty but present text is still a line
func TestVisitDeliversEmptyText(t *testing.T) {
	lines := threeLines()
	lines[1].Text = []byte{}
	_, withFake := registerFake(t, lines...)

	engine, err := ocr.Init(testModel, "eng", withFake)
	require.NoError(t, err)
	defer engine.Close()

	require.NoError(t, engine.Recognise(blankImage(10, 10), 0))

	calls := 0
	engine.Visit(func(ocr.RawLine) { calls++ })
	assert.Equal(t, 3, calls)
}

// TestVisitFreesOnPanic tests that the text buffer is released when the callback panics
func TestVisitFreesOnPanic(t *testing.T) {
	d, withFake := registerFake(t, threeLines()...)

	engine, err := ocr.Init(testModel, "eng", withFake)
	require.NoError(t, err)
	defer engine.Close()

	require.NoError(t, engine.Recognise(blankImage(10, 10), 0))

	assert.Panics(t, func() {
		engine.Visit(func(ocr.RawLine) { panic("boom") })
	})

	h := d.Handles()[0]
	assert.Equal(t, 0, h.Outstanding())
	assert.Equal(t, 0, h.OpenCursors())
}

// TestLinesYieldsCopies tests the iterator form and early break
func TestLinesYieldsCopies(t *testing.T) {
	d, withFake := registerFake(t, threeLines()...)

	engine, err := ocr.Init(testModel, "eng", withFake)
	require.NoError(t, err)
	defer engine.Close()

	require.NoError(t, engine.Recognise(blankImage(10, 10), 0))

	var all []ocr.Line
	for line := range engine.Lines() {
		all = append(all, line)
	}
	require.Len(t, all, 3)
	assert.Equal(t, "300m", all[2].Text)
	assert.InDelta(t, 75.25, all[2].Confidence, 0.001)
	assert.Equal(t, image.Rect(10, 70, 60, 84), all[2].Box)

	var first []string
	for line := range engine.Lines() {
		first = append(first, line.Text)
		break
	}
	assert.Equal(t, []string{"100m"}, first)

	h := d.Handles()[0]
	assert.Equal(t, 0, h.OpenCursors())
	assert.Equal(t, 0, h.Outstanding())
}

// TestReadTrimsAndDropsEmpty tests the convenience reader
func TestReadTrimsAndDropsEmpty(t *testing.T) {
	_, withFake := registerFake(t,
		ocrtest.TextLine("  100m\n", 90, image.Rect(0, 0, 10, 10)),
		ocrtest.TextLine(" \n", 10, image.Rect(0, 20, 10, 30)),
		ocrtest.TextLine("Gate B\n", 80, image.Rect(0, 40, 10, 50)),
	)

	engine, err := ocr.Init(testModel, "eng", withFake)
	require.NoError(t, err)
	defer engine.Close()

	lines, err := engine.Read(blankImage(10, 60), 96)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "100m", lines[0].Text)
	assert.Equal(t, "Gate B", lines[1].Text)
}

// TestRecogniseForwardsResolution tests the ppi hint and image binding
func TestRecogniseForwardsResolution(t *testing.T) {
	d, withFake := registerFake(t)

	engine, err := ocr.Init(testModel, "eng", withFake)
	require.NoError(t, err)
	defer engine.Close()

	img := blankImage(32, 16)
	require.NoError(t, engine.Recognise(img, 144))

	h := d.Handles()[0]
	assert.Equal(t, 144, h.LastPPI())
	assert.Equal(t, 32, h.LastImage().Width)
	assert.Equal(t, 16, h.LastImage().Height)
}

// TestRecogniseRepeatable tests that each pass replaces the previous results
func TestRecogniseRepeatable(t *testing.T) {
	d, withFake := registerFake(t)
	d.Recognizer = func(img ocr.Image, _ int) []ocrtest.Line {
		return []ocrtest.Line{ocrtest.TextLine(string(rune('0'+img.Width)), 50, image.Rect(0, 0, 1, 1))}
	}

	engine, err := ocr.Init(testModel, "eng", withFake)
	require.NoError(t, err)
	defer engine.Close()

	for _, w := range []int{1, 2, 3} {
		lines, err := engine.Read(blankImage(w, 1), 0)
		require.NoError(t, err)
		require.Len(t, lines, 1)
		assert.Equal(t, string(rune('0'+w)), lines[0].Text)
	}
}

// TestRecogniseInvalidImage tests the buffer guard
func TestRecogniseInvalidImage(t *testing.T) {
	d, withFake := registerFake(t)

	engine, err := ocr.Init(testModel, "eng", withFake)
	require.NoError(t, err)
	defer engine.Close()

	err = engine.Recognise(ocr.GrayImage(make([]byte, 10), 5, 5), 0)
	assert.ErrorIs(t, err, ocr.ErrInvalidImage)
	assert.Equal(t, ocr.Image{}, d.Handles()[0].LastImage())
}

// TestCloseReleasesOnce tests destroy semantics
func TestCloseReleasesOnce(t *testing.T) {
	d, withFake := registerFake(t, threeLines()...)

	engine, err := ocr.Init(testModel, "eng", withFake)
	require.NoError(t, err)

	require.NoError(t, engine.Recognise(blankImage(10, 10), 0))
	require.NoError(t, engine.Close())
	require.NoError(t, engine.Close())

	h := d.Handles()[0]
	assert.Equal(t, 1, h.EndCount())
	assert.Equal(t, 0, d.Live())

	assert.ErrorIs(t, engine.Recognise(blankImage(10, 10), 0), ocr.ErrClosed)

	calls := 0
	engine.Visit(func(ocr.RawLine) { calls++ })
	assert.Equal(t, 0, calls)
}

// TestVersionAndDrivers tests driver discovery
func TestVersionAndDrivers(t *testing.T) {
	d, _ := registerFake(t)
	d.VersionString = "9.9.9-test"

	assert.Contains(t, ocr.Drivers(), t.Name())
	assert.True(t, ocr.Available())
	assert.NotEmpty(t, ocr.Version())
	assert.Equal(t, "9.9.9-test", ocr.VersionOf(t.Name()))
	assert.Empty(t, ocr.VersionOf("does-not-exist"))
}
