package domain

import (
	"errors"
	"fmt"
	"strings"
)

// InputNotFoundError is returned when the ingestion input path does not exist.
type InputNotFoundError struct {
	Path string
}

func (e *InputNotFoundError) Error() string {
	return fmt.Sprintf("input file not found: %s", e.Path)
}

// ConfigurationError reports an invalid load configuration. It is always
// raised before any data is read or written.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// MalformedInputError describes input that cannot be turned into a feature
// record. Line is the 1-based physical line for NDJSON input (0 otherwise),
// Index is the 1-based feature ordinal. Structural errors concern the whole
// document and can never be skipped.
type MalformedInputError struct {
	Line       int
	Index      int
	Reason     string
	Structural bool
	Err        error
}

func (e *MalformedInputError) Error() string {
	return "malformed input" + location(e.Line, e.Index) + ": " + withCause(e.Reason, e.Err)
}

func (e *MalformedInputError) Unwrap() error {
	return e.Err
}

// GeometryError is returned when a feature carries a geometry that cannot be
// built into a valid polygon in the declared CRS.
type GeometryError struct {
	Line  int
	Index int
	Err   error
}

func (e *GeometryError) Error() string {
	return "invalid geometry" + location(e.Line, e.Index) + ": " + withCause("", e.Err)
}

func (e *GeometryError) Unwrap() error {
	return e.Err
}

// IsSkippable reports whether err concerns a single feature, so that lenient
// loads may log it and carry on.
func IsSkippable(err error) bool {
	var malformed *MalformedInputError
	if errors.As(err, &malformed) {
		return !malformed.Structural
	}
	var geomErr *GeometryError
	return errors.As(err, &geomErr)
}

func location(line, index int) string {
	var parts []string
	if line > 0 {
		parts = append(parts, fmt.Sprintf("line %d", line))
	}
	if index > 0 {
		parts = append(parts, fmt.Sprintf("feature %d", index))
	}
	if len(parts) == 0 {
		return ""
	}
	return " at " + strings.Join(parts, ", ")
}

func withCause(reason string, err error) string {
	switch {
	case err == nil:
		return reason
	case reason == "":
		return err.Error()
	default:
		return reason + ": " + err.Error()
	}
}
