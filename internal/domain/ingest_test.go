package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validOptions() LoadOptions {
	return LoadOptions{Path: "cells.geojson", BatchSize: 500}.WithDefaults()
}

func TestLoadOptions_WithDefaults(t *testing.T) {
	opts := LoadOptions{Path: "x"}.WithDefaults()

	assert.Equal(t, DefaultCanopyField, opts.CanopyField)
	assert.Equal(t, DefaultTileField, opts.TileField)
	assert.Equal(t, DefaultSource, opts.DefaultSource)
	assert.Equal(t, 4326, opts.SRID)
	assert.Equal(t, LoadModeStrict, opts.Mode)
	assert.Zero(t, opts.BatchSize, "batch size is validated, never defaulted silently")
}

func TestLoadOptions_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(o *LoadOptions)
		wantField string
	}{
		{"valid", func(o *LoadOptions) {}, ""},
		{"missing path", func(o *LoadOptions) { o.Path = "" }, "file"},
		{"zero batch size", func(o *LoadOptions) { o.BatchSize = 0 }, "batch_size"},
		{"negative batch size", func(o *LoadOptions) { o.BatchSize = -5 }, "batch_size"},
		{"replace without source", func(o *LoadOptions) { o.Replace = true }, "replace"},
		{"replace with source", func(o *LoadOptions) { o.Replace = true; o.Source = "s" }, ""},
		{"unsupported srid", func(o *LoadOptions) { o.SRID = 2154 }, "srid"},
		{"web mercator srid", func(o *LoadOptions) { o.SRID = 3857 }, ""},
		{"unknown mode", func(o *LoadOptions) { o.Mode = "yolo" }, "mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := validOptions()
			tt.mutate(&opts)

			err := opts.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.wantField, cfgErr.Field)
		})
	}
}

func TestParseLoadMode(t *testing.T) {
	mode, err := ParseLoadMode("")
	require.NoError(t, err)
	assert.Equal(t, LoadModeStrict, mode)

	mode, err = ParseLoadMode("lenient")
	require.NoError(t, err)
	assert.Equal(t, LoadModeLenient, mode)

	mode, err = ParseLoadMode("LENIENT")
	require.NoError(t, err)
	assert.Equal(t, LoadModeLenient, mode)

	mode, err = ParseLoadMode(" Strict ")
	require.NoError(t, err)
	assert.Equal(t, LoadModeStrict, mode)

	_, err = ParseLoadMode("yolo")
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "mode", cfgErr.Field)
}

func TestLoadOptions_WithDefaults_NormalizesMode(t *testing.T) {
	assert.Equal(t, LoadModeLenient, LoadOptions{Mode: "Lenient"}.WithDefaults().Mode)
	assert.Equal(t, LoadModeStrict, LoadOptions{}.WithDefaults().Mode)
	assert.Equal(t, LoadMode("yolo"), LoadOptions{Mode: "yolo"}.WithDefaults().Mode)
}

func TestIngestErrors(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")

	t.Run("malformed input carries location", func(t *testing.T) {
		err := &MalformedInputError{Line: 3, Index: 2, Reason: "invalid JSON", Err: cause}
		assert.Equal(t, "malformed input at line 3, feature 2: invalid JSON: unexpected end of JSON input", err.Error())
		assert.ErrorIs(t, err, cause)
		assert.True(t, IsSkippable(err))
	})

	t.Run("structural errors are never skippable", func(t *testing.T) {
		err := &MalformedInputError{Reason: "unrecognized GeoJSON structure", Structural: true}
		assert.Equal(t, "malformed input: unrecognized GeoJSON structure", err.Error())
		assert.False(t, IsSkippable(err))
	})

	t.Run("geometry errors are skippable through wrapping", func(t *testing.T) {
		err := fmt.Errorf("convert: %w", &GeometryError{Index: 7, Err: cause})
		assert.True(t, IsSkippable(err))
		assert.Contains(t, err.Error(), "invalid geometry at feature 7")
	})

	t.Run("other errors are not skippable", func(t *testing.T) {
		assert.False(t, IsSkippable(cause))
		assert.False(t, IsSkippable(&InputNotFoundError{Path: "x"}))
	})
}

func TestResolveInputPath(t *testing.T) {
	tests := []struct {
		name    string
		root    string
		path    string
		want    string
		wantErr string
	}{
		{name: "absolute inside root", root: "/srv/canopy", path: "/srv/canopy/2024/cells.ndjson", want: "/srv/canopy/2024/cells.ndjson"},
		{name: "relative to root", root: "/srv/canopy", path: "cells.geojson", want: "/srv/canopy/cells.geojson"},
		{name: "root with trailing slash", root: "/srv/canopy/", path: "a/../b.ndjson", want: "/srv/canopy/b.ndjson"},
		{name: "file named with leading dots", root: "/srv/canopy", path: "..cells.ndjson", want: "/srv/canopy/..cells.ndjson"},
		{name: "absolute outside root", root: "/srv/canopy", path: "/etc/passwd", wantErr: "inside the ingest root"},
		{name: "relative escape", root: "/srv/canopy", path: "../../etc/passwd", wantErr: "inside the ingest root"},
		{name: "sibling with shared prefix", root: "/srv/canopy", path: "/srv/canopy-private/cells.ndjson", wantErr: "inside the ingest root"},
		{name: "root itself", root: "/srv/canopy", path: "/srv/canopy/", wantErr: "inside the ingest root"},
		{name: "no root", root: "", path: "/srv/canopy/cells.ndjson", wantErr: "require an ingest root"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveInputPath(tt.root, tt.path)
			if tt.wantErr != "" {
				var cfgErr *ConfigurationError
				require.ErrorAs(t, err, &cfgErr)
				assert.Equal(t, "file", cfgErr.Field)
				assert.Contains(t, cfgErr.Reason, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
