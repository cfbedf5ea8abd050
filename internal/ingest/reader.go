// Package ingest turns GeoJSON FeatureCollection and NDJSON inputs, plain or
// compressed, into validated forest density cells.
package ingest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/forest-density-service/internal/domain"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/tidwall/gjson"
)

// RawFeature is a single GeoJSON Feature object as it appeared in the input.
type RawFeature struct {
	// Line is the 1-based physical line for NDJSON input, 0 for documents.
	Line int
	// Index is the 1-based position of the feature in the input.
	Index int
	Data  []byte
}

type source interface {
	next() (line int, data []byte, err error)
}

// FeatureReader yields features one at a time. Per-feature problems are
// returned as skippable errors (see domain.IsSkippable) and the reader may be
// advanced past them; any other error is final.
type FeatureReader struct {
	src    source
	closer io.Closer
	index  int
	err    error
}

// Open opens path for reading. Files ending in .gz or .zst are decompressed
// transparently; the remaining extension selects the format: .ndjson and
// .jsonl are read line by line, anything else as a single GeoJSON document.
func Open(path string) (*FeatureReader, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &domain.InputNotFoundError{Path: path}
		}
		return nil, fmt.Errorf("stat input: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}

	r, inner, err := decompress(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}

	fr, err := newReader(r, inner)
	if err != nil {
		r.Close()
		return nil, err
	}
	fr.closer = r
	return fr, nil
}

// NewReader reads features from r. name is only used to pick the format.
func NewReader(r io.Reader, name string) (*FeatureReader, error) {
	return newReader(r, name)
}

func newReader(r io.Reader, name string) (*FeatureReader, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".ndjson", ".jsonl":
		return &FeatureReader{src: newLineSource(r)}, nil
	}

	src, err := newDocumentSource(r)
	if err != nil {
		return nil, err
	}
	return &FeatureReader{src: src}, nil
}

// Next returns the next feature or io.EOF when the input is exhausted.
func (r *FeatureReader) Next() (*RawFeature, error) {
	if r.err != nil {
		return nil, r.err
	}

	line, data, err := r.src.next()
	if err != nil {
		r.err = err
		return nil, err
	}

	r.index++
	if err := checkFeature(line, r.index, data); err != nil {
		return nil, err
	}

	return &RawFeature{Line: line, Index: r.index, Data: data}, nil
}

// Close releases the underlying file.
func (r *FeatureReader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

func checkFeature(line, index int, data []byte) error {
	if !gjson.ValidBytes(data) {
		return &domain.MalformedInputError{Line: line, Index: index, Reason: "invalid JSON"}
	}

	if t := gjson.GetBytes(data, "type").String(); t != "Feature" {
		return &domain.MalformedInputError{
			Line:   line,
			Index:  index,
			Reason: fmt.Sprintf("expected a Feature object, got type %q", t),
		}
	}

	if g := gjson.GetBytes(data, "geometry"); !g.Exists() || g.Type == gjson.Null {
		return &domain.MalformedInputError{Line: line, Index: index, Reason: "feature has no geometry"}
	}

	return nil
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var errs []error
	for _, c := range m {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type readCloser struct {
	io.Reader
	io.Closer
}

// decompress wraps f according to its compression suffix and returns the
// file name with that suffix removed.
func decompress(f *os.File, path string) (io.ReadCloser, string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	inner := strings.TrimSuffix(path, filepath.Ext(path))

	switch ext {
	case ".gz", ".gzip":
		zr, err := gzip.NewReader(bufio.NewReader(f))
		if err != nil {
			return nil, "", &domain.MalformedInputError{Reason: "invalid gzip stream", Structural: true, Err: err}
		}
		return readCloser{Reader: zr, Closer: multiCloser{zr, f}}, inner, nil
	case ".zst", ".zstd":
		zr, err := zstd.NewReader(bufio.NewReader(f))
		if err != nil {
			return nil, "", &domain.MalformedInputError{Reason: "invalid zstd stream", Structural: true, Err: err}
		}
		rc := zr.IOReadCloser()
		return readCloser{Reader: rc, Closer: multiCloser{rc, f}}, inner, nil
	}

	return f, path, nil
}
