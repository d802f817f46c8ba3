package ocr

import (
	"archive/tar"
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// ErrEmptyModel is returned when a model file or archive holds no data.
var ErrEmptyModel = errors.New("ocr: empty model")

// LoadModel reads a trained-data model from disk. Plain .traineddata files
// are returned as is, .gz files are decompressed and .tar.gz/.tgz archives
// yield their first regular entry.
func LoadModel(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model: %w", err)
	}
	defer f.Close()

	data, err := DecodeModel(f, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", path, err)
	}
	return data, nil
}

// DecodeModel reads a model from r, using name's extension to pick the
// container format. Gzip streams are detected by their magic bytes as well.
func DecodeModel(r io.Reader, name string) ([]byte, error) {
	br := bufio.NewReader(r)

	lower := strings.ToLower(name)
	isTar := strings.HasSuffix(lower, ".tar.gz") || strings.HasSuffix(lower, ".tgz") || strings.HasSuffix(lower, ".tar")
	isGzip := strings.HasSuffix(lower, ".gz") || strings.HasSuffix(lower, ".tgz")
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		isGzip = true
	}

	var src io.Reader = br
	if isGzip {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()
		src = zr
	}

	if isTar {
		return firstTarEntry(src)
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptyModel
	}
	return data, nil
}

func firstTarEntry(r io.Reader) ([]byte, error) {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyModel
		}
		if err != nil {
			return nil, fmt.Errorf("tar: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		var buf bytes.Buffer
		buf.Grow(int(hdr.Size))
		if _, err := io.Copy(&buf, tr); err != nil {
			return nil, fmt.Errorf("tar entry %s: %w", hdr.Name, err)
		}
		if buf.Len() == 0 {
			return nil, ErrEmptyModel
		}
		return buf.Bytes(), nil
	}
}
