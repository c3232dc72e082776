// Package compress implements threshold-based payload compression. Stored objects are
// never compressed, so ciphertext stays exactly what the key service produced; the
// HTTP layer uses it to gzip large downloads for clients that accept it.
package compress

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
)

// Level selects the speed/ratio trade-off.
type Level int

const (
	Fast     Level = 1
	Balanced Level = 6
	Maximum  Level = 9
)

const (
	// MinSize is the smallest payload worth compressing.
	MinSize = 1024
	// maxRatio is the compressed/original ratio above which compression is discarded.
	maxRatio = 0.9
)

// Result is the outcome of Compress. When Compressed is false, Data is the input unchanged.
type Result struct {
	Data       []byte
	Compressed bool
	Gzipped    bool
}

// Compress compresses data at level. Payloads below MinSize, and payloads that do not
// shrink below 90% of their size, are returned as-is. Maximum produces gzip framing;
// the other levels produce raw deflate.
func Compress(data []byte, level Level) (Result, error) {
	if len(data) < MinSize {
		return Result{Data: data}, nil
	}

	var buf bytes.Buffer
	gzipped := level == Maximum
	var w io.WriteCloser
	var err error
	if gzipped {
		w, err = gzip.NewWriterLevel(&buf, int(level))
	} else {
		w, err = flate.NewWriter(&buf, int(level))
	}
	if err != nil {
		return Result{}, fmt.Errorf("compress: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return Result{}, fmt.Errorf("compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return Result{}, fmt.Errorf("compress: %w", err)
	}

	if float64(buf.Len())/float64(len(data)) >= maxRatio {
		return Result{Data: data}, nil
	}
	return Result{Data: buf.Bytes(), Compressed: true, Gzipped: gzipped}, nil
}

// Decompress reverses Compress for a payload that was compressed.
func Decompress(data []byte, gzipped bool) ([]byte, error) {
	var r io.ReadCloser
	if gzipped {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decompress: %w", err)
		}
		r = zr
	} else {
		r = flate.NewReader(bytes.NewReader(data))
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	return out, nil
}
