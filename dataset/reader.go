// Package dataset loads candle, fill, and order history from CSV
// files, transparently decompressing gzip, xz, and zip inputs.
package dataset

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
	"github.com/xyproto/unzip"
)

// Open returns a reader over the decoded contents of path. The
// compression scheme is picked from the file extension; anything not
// recognized is read as-is.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("dataset: gzip %s: %w", path, err)
		}
		return &wrapped{Reader: zr, closers: []io.Closer{zr, f}}, nil

	case ".xz":
		xr, err := xz.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("dataset: xz %s: %w", path, err)
		}
		return &wrapped{Reader: xr, closers: []io.Closer{f}}, nil

	case ".zip":
		f.Close()
		return openZip(path)

	default:
		return f, nil
	}
}

// openZip extracts the archive to a scratch directory and opens the
// first regular file inside. Zip archives used for market history
// hold a single CSV.
func openZip(path string) (io.ReadCloser, error) {
	dir, err := os.MkdirTemp("", "dataset-zip-")
	if err != nil {
		return nil, err
	}
	if err := unzip.Extract(path, dir); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("dataset: unzip %s: %w", path, err)
	}

	var first string
	err = filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if first == "" && !d.IsDir() {
			first = p
		}
		return nil
	})
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	if first == "" {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("dataset: empty archive %s", path)
	}

	f, err := os.Open(first)
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	return &wrapped{Reader: f, closers: []io.Closer{f, removeAll(dir)}}, nil
}

type wrapped struct {
	io.Reader
	closers []io.Closer
}

func (w *wrapped) Close() error {
	var first error
	for _, c := range w.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type removeAll string

func (r removeAll) Close() error { return os.RemoveAll(string(r)) }
