// Lightweight linter/validator for Run values. It performs static checks over
// an assembled Run and returns a list of issues (errors and warnings) that
// callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"strings"

	"warehousetogo/internal/store"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding for a Run.
//
// Path is a dotted path into the config (e.g. "store.kind"). Message is
// human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is error-severity.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate performs static validation of a Run, normally after Normalize.
//
// It does not mutate the run. Callers may decide whether to treat warnings as
// fatal or not.
func Validate(r Run) []Issue {
	var issues []Issue

	if strings.TrimSpace(r.ProfilesPath) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "profiles",
			Message:  "profiles path must not be empty",
		})
	}
	if strings.TrimSpace(r.ManifestPath) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "manifest",
			Message:  "manifest path must not be empty",
		})
	}

	// Registered backends, not a hardcoded list: a binary built with a
	// subset of store backends should warn truthfully.
	known := store.Kinds()
	registered := false
	for _, k := range known {
		if k == r.StoreKind {
			registered = true
		}
	}
	if !registered {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "store.kind",
			Message:  fmt.Sprintf("store kind %q is not registered (have: %s)", r.StoreKind, strings.Join(known, ", ")),
		})
	}
	if strings.TrimSpace(r.StorePath) == "" && !r.DryRun {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "store.path",
			Message:  "store path must not be empty",
		})
	}

	if r.RowLimit <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "row-limit",
			Message:  fmt.Sprintf("row limit must be > 0, got %d", r.RowLimit),
		})
	}
	if r.BatchSize <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "batch-size",
			Message:  fmt.Sprintf("batch size must be > 0, got %d", r.BatchSize),
		})
	}
	if r.BatchSize > 0 && r.RowLimit > 0 && r.BatchSize > r.RowLimit {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "batch-size",
			Message:  fmt.Sprintf("batch size %d exceeds row limit %d; every table lands in a single batch", r.BatchSize, r.RowLimit),
		})
	}
	if r.QueryTimeout < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "query-timeout",
			Message:  "query timeout must not be negative",
		})
	}

	return issues
}
