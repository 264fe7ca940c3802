// Package config holds the run configuration for the mirror CLI and a
// lightweight validator over it.
package config

import "time"

// Defaults applied by Normalize when a knob is unset.
const (
	DefaultRowLimit  = 10000
	DefaultBatchSize = 10000
	DefaultStoreKind = "duckdb"
	DefaultStorePath = "warehouse.duckdb"
)

// Run is everything one mirror invocation needs, typically populated from
// CLI flags.
type Run struct {
	// ProfilesPath locates the dbt-style profiles.yml with warehouse
	// credentials.
	ProfilesPath string
	// Profile names the profiles.yml entry; empty resolves the sole
	// supported profile when exactly one exists.
	Profile string
	// Target names the output within the profile; empty uses the profile's
	// declared default.
	Target string

	// ManifestPath locates the dbt manifest.json with the source catalog.
	ManifestPath string
	// Source optionally restricts the run to one catalog source.
	Source string

	// StoreKind selects the local store backend ("duckdb" or "sqlite").
	StoreKind string
	// StorePath is the local database file.
	StorePath string

	// RowLimit caps rows mirrored per table.
	RowLimit int
	// BatchSize is rows per local insert batch.
	BatchSize int

	// DryRun plans and reports without connecting or writing.
	DryRun bool
	// QueryTimeout bounds each table's source-side work; zero means
	// unbounded.
	QueryTimeout time.Duration
}

// Normalize fills unset knobs with defaults. It mutates in place and is
// idempotent.
func (r *Run) Normalize() {
	if r.RowLimit == 0 {
		r.RowLimit = DefaultRowLimit
	}
	if r.BatchSize == 0 {
		r.BatchSize = DefaultBatchSize
	}
	if r.StoreKind == "" {
		r.StoreKind = DefaultStoreKind
	}
	if r.StorePath == "" {
		r.StorePath = DefaultStorePath
	}
}
