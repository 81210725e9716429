package utils

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"
)

// GzipMagic is the header every gzip stream, and so every chart archive, starts with
var GzipMagic = []byte{0x1F, 0x8B}

// GzipCompress compresses data using gzip
func GzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)

	if _, err := w.Write(data); err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// GzipReader returns a reader decompressing r
func GzipReader(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}
