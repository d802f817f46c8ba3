package ocr_test

import (
	"archive/tar"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PhiFever/vision-bridge/internal/ocr"
)

func writeTarGz(t *testing.T, path string, name string, data []byte) {
	t.Helper()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(zw)

	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "dir/", Typeflag: tar.TypeDir, Mode: 0755}))
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Typeflag: tar.TypeReg, Mode: 0644, Size: int64(len(data))}))
	_, err := tw.Write(data)
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, zw.Close())

	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

// TestLoadModelRaw tests loading an uncompressed model
func TestLoadModelRaw(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eng.traineddata")
	require.NoError(t, os.WriteFile(path, []byte("raw model"), 0644))

	data, err := ocr.LoadModel(path)
	require.NoError(t, err)
	assert.Equal(t, "raw model", string(data))
}

// TestLoadModelTarGz tests loading the first entry of a gzipped tarball
func TestLoadModelTarGz(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eng.traineddata.tar.gz")
	writeTarGz(t, path, "eng.traineddata", []byte("archived model"))

	data, err := ocr.LoadModel(path)
	require.NoError(t, err)
	assert.Equal(t, "archived model", string(data))
}

// TestDecodeModelGzipMagic tests gzip detection without an extension
func TestDecodeModelGzipMagic(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte("zipped"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	data, err := ocr.DecodeModel(&buf, "model.bin")
	require.NoError(t, err)
	assert.Equal(t, "zipped", string(data))
}

// TestLoadModelEmpty tests empty inputs
func TestLoadModelEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.traineddata")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	_, err := ocr.LoadModel(path)
	assert.ErrorIs(t, err, ocr.ErrEmptyModel)

	_, err = ocr.LoadModel(filepath.Join(t.TempDir(), "missing.traineddata"))
	assert.Error(t, err)
}
