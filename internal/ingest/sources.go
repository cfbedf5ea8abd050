package ingest

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/forest-density-service/internal/domain"
	"github.com/tidwall/gjson"
)

// lineSource yields one non-blank line at a time.
type lineSource struct {
	br   *bufio.Reader
	line int
}

func newLineSource(r io.Reader) *lineSource {
	return &lineSource{br: bufio.NewReaderSize(r, 1<<20)}
}

func (s *lineSource) next() (int, []byte, error) {
	for {
		raw, err := s.br.ReadBytes('\n')
		if len(raw) == 0 && err != nil {
			if errors.Is(err, io.EOF) {
				return 0, nil, io.EOF
			}
			return 0, nil, fmt.Errorf("read line %d: %w", s.line+1, err)
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, nil, fmt.Errorf("read line %d: %w", s.line+1, err)
		}

		s.line++
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) == 0 {
			continue
		}
		return s.line, trimmed, nil
	}
}

// documentSource holds a parsed FeatureCollection or single Feature.
type documentSource struct {
	features []gjson.Result
	pos      int
}

func newDocumentSource(r io.Reader) (source, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	if !gjson.ValidBytes(data) {
		// newline-delimited features behind a generic extension
		if looksLikeNDJSON(data) {
			return newLineSource(bytes.NewReader(data)), nil
		}
		return nil, &domain.MalformedInputError{Reason: "input is not valid JSON", Structural: true}
	}

	doc := gjson.ParseBytes(data)
	switch doc.Get("type").String() {
	case "FeatureCollection":
		features := doc.Get("features")
		if !features.Exists() || features.Type == gjson.Null {
			return &documentSource{}, nil
		}
		if !features.IsArray() {
			return nil, &domain.MalformedInputError{Reason: "FeatureCollection.features is not an array", Structural: true}
		}
		return &documentSource{features: features.Array()}, nil
	case "Feature":
		return &documentSource{features: []gjson.Result{doc}}, nil
	}

	return nil, &domain.MalformedInputError{
		Reason:     "unrecognized GeoJSON structure; expected Feature or FeatureCollection",
		Structural: true,
	}
}

func (s *documentSource) next() (int, []byte, error) {
	if s.pos >= len(s.features) {
		return 0, nil, io.EOF
	}
	f := s.features[s.pos]
	s.pos++
	return 0, []byte(f.Raw), nil
}

// looksLikeNDJSON reports whether the first non-blank line is a complete JSON
// object on its own.
func looksLikeNDJSON(data []byte) bool {
	for len(data) > 0 {
		var line []byte
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			line, data = data[:i], data[i+1:]
		} else {
			line, data = data, nil
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		return line[0] == '{' && gjson.ValidBytes(line)
	}
	return false
}
