package convert

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/spf13/afero"
)

// corpusReader is a decompressing reader that closes its source file.
type corpusReader struct {
	io.Reader
	closers []func() error
}

func (r *corpusReader) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// openCorpus opens path, decompressing by extension: .zst, .gz, .lz4 and
// .sz (framed snappy). Anything else is read as plain text.
func openCorpus(fs afero.Fs, path string) (io.ReadCloser, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	r := &corpusReader{Reader: f, closers: []func() error{f.Close}}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst", ".zstd":
		dec, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		r.Reader = dec
		r.closers = append([]func() error{func() error { dec.Close(); return nil }}, r.closers...)
	case ".gz":
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		r.Reader = gz
		r.closers = append([]func() error{gz.Close}, r.closers...)
	case ".lz4":
		r.Reader = lz4.NewReader(f)
	case ".sz":
		r.Reader = snappy.NewReader(f)
	}
	return r, nil
}
