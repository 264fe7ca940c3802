package config

import (
	"testing"
	"time"

	// register the built-in backends so kind validation sees them.
	_ "warehousetogo/internal/store/all"
)

func validRun() Run {
	return Run{
		ProfilesPath: "profiles.yml",
		ManifestPath: "manifest.json",
		StoreKind:    "duckdb",
		StorePath:    "warehouse.duckdb",
		RowLimit:     10000,
		BatchSize:    10000,
	}
}

func TestNormalizeDefaults(t *testing.T) {
	t.Parallel()

	r := Run{ProfilesPath: "profiles.yml", ManifestPath: "manifest.json"}
	r.Normalize()

	if r.RowLimit != DefaultRowLimit {
		t.Fatalf("row limit = %d, want %d", r.RowLimit, DefaultRowLimit)
	}
	if r.BatchSize != DefaultBatchSize {
		t.Fatalf("batch size = %d, want %d", r.BatchSize, DefaultBatchSize)
	}
	if r.StoreKind != "duckdb" || r.StorePath != "warehouse.duckdb" {
		t.Fatalf("store = %s/%s, want duckdb defaults", r.StoreKind, r.StorePath)
	}

	// Explicit values survive.
	r2 := validRun()
	r2.RowLimit = 50
	r2.StoreKind = "sqlite"
	r2.Normalize()
	if r2.RowLimit != 50 || r2.StoreKind != "sqlite" {
		t.Fatalf("normalize overwrote explicit values: %+v", r2)
	}
}

// TestValidateRegisteredStoreKinds verifies every registered backend passes
// kind validation without a warning.
func TestValidateRegisteredStoreKinds(t *testing.T) {
	t.Parallel()

	for _, kind := range []string{"duckdb", "sqlite"} {
		r := validRun()
		r.StoreKind = kind
		for _, iss := range Validate(r) {
			if iss.Path == "store.kind" {
				t.Fatalf("kind %q flagged: %v", kind, iss)
			}
		}
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		mutate     func(*Run)
		wantErrors bool
		wantPath   string
	}{
		{
			name:       "valid run has no errors",
			mutate:     func(r *Run) {},
			wantErrors: false,
		},
		{
			name:       "missing profiles path",
			mutate:     func(r *Run) { r.ProfilesPath = "" },
			wantErrors: true,
			wantPath:   "profiles",
		},
		{
			name:       "missing manifest path",
			mutate:     func(r *Run) { r.ManifestPath = "" },
			wantErrors: true,
			wantPath:   "manifest",
		},
		{
			name:       "zero row limit",
			mutate:     func(r *Run) { r.RowLimit = 0 },
			wantErrors: true,
			wantPath:   "row-limit",
		},
		{
			name:       "negative batch size",
			mutate:     func(r *Run) { r.BatchSize = -5 },
			wantErrors: true,
			wantPath:   "batch-size",
		},
		{
			name:       "negative query timeout",
			mutate:     func(r *Run) { r.QueryTimeout = -time.Second },
			wantErrors: true,
			wantPath:   "query-timeout",
		},
		{
			name:       "unregistered store kind is a warning only",
			mutate:     func(r *Run) { r.StoreKind = "clickhouse" },
			wantErrors: false,
			wantPath:   "store.kind",
		},
		{
			name:       "empty store path allowed on dry run",
			mutate:     func(r *Run) { r.StorePath = ""; r.DryRun = true },
			wantErrors: false,
		},
		{
			name: "batch size above row limit warns",
			mutate: func(r *Run) {
				r.RowLimit = 100
				r.BatchSize = 500
			},
			wantErrors: false,
			wantPath:   "batch-size",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := validRun()
			tt.mutate(&r)
			issues := Validate(r)

			if got := HasErrors(issues); got != tt.wantErrors {
				t.Fatalf("HasErrors = %v, want %v (issues: %v)", got, tt.wantErrors, issues)
			}
			if tt.wantPath != "" {
				found := false
				for _, iss := range issues {
					if iss.Path == tt.wantPath {
						found = true
					}
				}
				if !found {
					t.Fatalf("no issue at path %q: %v", tt.wantPath, issues)
				}
			}
		})
	}
}
