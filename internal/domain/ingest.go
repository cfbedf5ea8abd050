package domain

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/forest-density-service/internal/pkg/geo"
)

// LoadMode decides what happens to a feature that cannot be loaded.
type LoadMode string

const (
	// LoadModeStrict aborts the whole load on the first bad feature.
	LoadModeStrict LoadMode = "strict"
	// LoadModeLenient logs bad features, skips them and keeps loading.
	LoadModeLenient LoadMode = "lenient"
)

// ParseLoadMode parses a case-insensitive mode name; an empty name means strict.
func ParseLoadMode(s string) (LoadMode, error) {
	switch LoadMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", LoadModeStrict:
		return LoadModeStrict, nil
	case LoadModeLenient:
		return LoadModeLenient, nil
	}
	return "", &ConfigurationError{Field: "mode", Reason: fmt.Sprintf("unknown mode %q, expected strict or lenient", s)}
}

const (
	DefaultBatchSize   = 500
	DefaultCanopyField = "canopy_pct"
	DefaultTileField   = "tile_id"
)

// LoadOptions configures one ingestion run.
type LoadOptions struct {
	Path string `json:"path"`
	// Source overrides the per-feature source label.
	Source          string   `json:"source,omitempty"`
	DefaultSource   string   `json:"default_source,omitempty"`
	Replace         bool     `json:"replace"`
	CanopyField     string   `json:"canopy_field,omitempty"`
	TileField       string   `json:"tile_field,omitempty"`
	BatchSize       int      `json:"batch_size"`
	SRID            int      `json:"srid"`
	Mode            LoadMode `json:"mode"`
	IgnoreConflicts bool     `json:"ignore_conflicts"`
}

// WithDefaults fills unset optional fields.
func (o LoadOptions) WithDefaults() LoadOptions {
	if o.CanopyField == "" {
		o.CanopyField = DefaultCanopyField
	}
	if o.TileField == "" {
		o.TileField = DefaultTileField
	}
	if o.DefaultSource == "" {
		o.DefaultSource = DefaultSource
	}
	if o.SRID == 0 {
		o.SRID = geo.SRIDWGS84
	}
	if mode, err := ParseLoadMode(string(o.Mode)); err == nil {
		o.Mode = mode
	}
	return o
}

// Validate runs the pre-flight checks. It never touches the input file.
func (o LoadOptions) Validate() error {
	if o.Path == "" {
		return &ConfigurationError{Field: "file", Reason: "input path is required"}
	}
	if o.BatchSize <= 0 {
		return &ConfigurationError{Field: "batch_size", Reason: fmt.Sprintf("must be a positive integer, got %d", o.BatchSize)}
	}
	if o.Replace && o.Source == "" {
		return &ConfigurationError{Field: "replace", Reason: "--replace requires --source"}
	}
	if len(o.Source) > MaxSourceLength {
		return &ConfigurationError{Field: "source", Reason: fmt.Sprintf("longer than %d characters", MaxSourceLength)}
	}
	if !geo.SupportedSRID(o.SRID) {
		return &ConfigurationError{Field: "srid", Reason: fmt.Sprintf("unsupported SRID %d", o.SRID)}
	}
	if _, err := ParseLoadMode(string(o.Mode)); err != nil {
		return err
	}
	return nil
}

// ResolveInputPath confines path to root. Relative paths are taken relative
// to root; the result is absolute and cleaned. Symlinks are not followed,
// the file may live on another host.
func ResolveInputPath(root, path string) (string, error) {
	if strings.TrimSpace(root) == "" {
		return "", &ConfigurationError{Field: "file", Reason: "queued loads require an ingest root"}
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return "", &ConfigurationError{Field: "file", Reason: fmt.Sprintf("invalid ingest root: %v", err)}
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	path = filepath.Clean(path)

	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", &ConfigurationError{Field: "file", Reason: "path must be inside the ingest root"}
	}
	return path, nil
}

// LoadSummary - outcome of a load.
type LoadSummary struct {
	Inserted int64         `json:"inserted"`
	Deleted  int64         `json:"deleted"`
	Skipped  int64         `json:"skipped"`
	Batches  int           `json:"batches"`
	Duration time.Duration `json:"duration"`
}
