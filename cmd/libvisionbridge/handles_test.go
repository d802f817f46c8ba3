package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PhiFever/vision-bridge/internal/ocr"
	"github.com/PhiFever/vision-bridge/internal/ocr/ocrtest"
)

// TestHandleTable tests add, lookup and single removal
func TestHandleTable(t *testing.T) {
	d := &ocrtest.Driver{}
	ocr.Register(t.Name(), d)
	defer ocr.Unregister(t.Name())

	engine, err := ocr.Init([]byte("model"), "eng", ocr.WithDriver(t.Name()))
	require.NoError(t, err)

	var table handleTable
	id := table.add(engine)
	assert.NotZero(t, id)

	got, ok := table.get(id)
	require.True(t, ok)
	assert.Same(t, engine, got)

	_, ok = table.remove(id)
	require.True(t, ok)
	_, ok = table.remove(id)
	assert.False(t, ok, "second destroy finds nothing")

	_, ok = table.get(0)
	assert.False(t, ok)

	assert.NotEqual(t, id, table.add(engine), "ids are not reused")
}
