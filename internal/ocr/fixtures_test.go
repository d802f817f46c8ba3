//go:build ocr || gosseract

package ocr_test

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/PhiFever/vision-bridge/internal/ocr"
)

// loadFixtures loads the real model and a rendered text sample, skipping when absent
func loadFixtures(t *testing.T) ([]byte, image.Image) {
	t.Helper()

	modelPath := filepath.Join("testdata", "eng.traineddata")
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		t.Skipf("Model not found: %s", modelPath)
	}
	model, err := ocr.LoadModel(modelPath)
	require.NoError(t, err)

	f, err := os.Open(filepath.Join("testdata", "three_lines.png"))
	if os.IsNotExist(err) {
		t.Skip("Sample image testdata/three_lines.png not found")
	}
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	return model, img
}
