package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Batmanabcdefg/hp-afem/internal/trace"
)

// Defaults used when a field is omitted from the config file.
const (
	DefaultSnapshotPattern = "testLshaped_%d.%d_%d.sol"
	DefaultSnapshotDir     = "."
	DefaultWorkers         = 4
	DefaultDBPath          = "hpafem.db"
)

const maxFileSize = 1 * 1024 * 1024 // 1MB

// AnalysisConfig controls how logs and snapshots are parsed, joined and
// stored. Fields omitted from the JSON keep their defaults via the Get*
// accessors.
type AnalysisConfig struct {
	// Decoding
	OitsStart        *int  `json:"oits_start,omitempty"`
	ValidateGrouping *bool `json:"validate_grouping,omitempty"`

	// Snapshot lookup. The pattern receives outer, inner and dof count.
	SnapshotPattern *string `json:"snapshot_pattern,omitempty"`
	SnapshotDir     *string `json:"snapshot_dir,omitempty"`
	BasesDir        *string `json:"bases_dir,omitempty"`

	// Batch loading and storage
	Workers *int    `json:"workers,omitempty"`
	DBPath  *string `json:"db_path,omitempty"`
}

func ptrInt(v int) *int          { return &v }
func ptrBool(v bool) *bool       { return &v }
func ptrString(v string) *string { return &v }

// DefaultAnalysisConfig returns a config with every field set to its default.
func DefaultAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{
		OitsStart:        ptrInt(0),
		ValidateGrouping: ptrBool(true),
		SnapshotPattern:  ptrString(DefaultSnapshotPattern),
		SnapshotDir:      ptrString(DefaultSnapshotDir),
		BasesDir:         ptrString(""),
		Workers:          ptrInt(DefaultWorkers),
		DBPath:           ptrString(DefaultDBPath),
	}
}

// LoadAnalysisConfig loads an AnalysisConfig from a JSON file.
// The file must have a .json extension and be under 1MB. Partial files are
// fine; omitted fields fall back to defaults.
func LoadAnalysisConfig(path string) (*AnalysisConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &AnalysisConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are usable.
func (c *AnalysisConfig) Validate() error {
	if c.OitsStart != nil && *c.OitsStart < 0 {
		return fmt.Errorf("oits_start must be non-negative, got %d", *c.OitsStart)
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}
	if c.SnapshotPattern != nil {
		if n := strings.Count(*c.SnapshotPattern, "%d"); n != 3 {
			return fmt.Errorf("snapshot_pattern must contain three %%d verbs (outer, inner, dof), got %d in %q", n, *c.SnapshotPattern)
		}
	}
	if c.DBPath != nil && *c.DBPath == "" {
		return fmt.Errorf("db_path must not be empty")
	}
	return nil
}

// GetOitsStart returns the lowest outer iteration kept when decoding.
func (c *AnalysisConfig) GetOitsStart() int {
	if c.OitsStart == nil {
		return 0
	}
	return *c.OitsStart
}

// GetValidateGrouping reports whether outer iteration grouping is checked.
func (c *AnalysisConfig) GetValidateGrouping() bool {
	if c.ValidateGrouping == nil {
		return true
	}
	return *c.ValidateGrouping
}

func (c *AnalysisConfig) GetSnapshotPattern() string {
	if c.SnapshotPattern == nil || *c.SnapshotPattern == "" {
		return DefaultSnapshotPattern
	}
	return *c.SnapshotPattern
}

func (c *AnalysisConfig) GetSnapshotDir() string {
	if c.SnapshotDir == nil || *c.SnapshotDir == "" {
		return DefaultSnapshotDir
	}
	return *c.SnapshotDir
}

// GetBasesDir returns the directory holding basis_<type>.mat files, or ""
// when basis evaluation is not configured.
func (c *AnalysisConfig) GetBasesDir() string {
	if c.BasesDir == nil {
		return ""
	}
	return *c.BasesDir
}

func (c *AnalysisConfig) GetWorkers() int {
	if c.Workers == nil {
		return DefaultWorkers
	}
	return *c.Workers
}

func (c *AnalysisConfig) GetDBPath() string {
	if c.DBPath == nil || *c.DBPath == "" {
		return DefaultDBPath
	}
	return *c.DBPath
}

// TraceOptions returns the decoding options for trace.Parse.
func (c *AnalysisConfig) TraceOptions() trace.Options {
	return trace.Options{
		OitsStart:         c.GetOitsStart(),
		SkipGroupingCheck: !c.GetValidateGrouping(),
	}
}
