package cq

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// CompressionLevel selects how hard the response-assembly step in §4.1
// ("optionally set the compression level") should try to shrink the
// serialized response message before it is written to the wire.
type CompressionLevel int

const (
	// CompressionNone sends the serialized message as-is.
	CompressionNone CompressionLevel = iota
	// CompressionFast trades ratio for speed.
	CompressionFast
	// CompressionBest trades speed for ratio.
	CompressionBest
)

func (l CompressionLevel) gzipLevel() int {
	switch l {
	case CompressionFast:
		return gzip.BestSpeed
	case CompressionBest:
		return gzip.BestCompression
	default:
		return gzip.NoCompression
	}
}

// compressMessage gzip-encodes data at the requested level using
// klauspost/compress (the same package Query-farm-vgi-rpc-go depends on for
// its Arrow IPC stream compression), returning data unchanged for
// CompressionNone.
func compressMessage(data []byte, level CompressionLevel) ([]byte, error) {
	if level == CompressionNone {
		return data, nil
	}
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, level.gzipLevel())
	if err != nil {
		return nil, errors.Wrap(err, "new gzip writer")
	}
	if _, err := w.Write(data); err != nil {
		return nil, errors.Wrap(err, "gzip write")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "gzip close")
	}
	return buf.Bytes(), nil
}

// decompressMessage reverses compressMessage.
func decompressMessage(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "new gzip reader")
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "gzip read")
	}
	return out, nil
}
