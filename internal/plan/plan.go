// Package plan turns the parsed source catalog and the run's filters into an
// ordered extraction plan.
package plan

import (
	"fmt"

	"warehousetogo/internal/manifest"
)

// Error reports a requested source name that is not in the catalog. It is
// fatal to the run and raised before any source session is opened.
type Error struct {
	Source string
}

func (e *Error) Error() string {
	return fmt.Sprintf("plan: unknown source %q", e.Source)
}

// TableJob is the unit of work for one table's end-to-end extraction. Its
// column order, once derived by the introspector, is immutable for the life
// of the job.
type TableJob struct {
	Source   string
	Database string
	Schema   string
	Table    string

	RowLimit  int
	BatchSize int
}

// QualifiedName returns the source-side DB.SCHEMA.TABLE identity for logs and
// outcome reporting.
func (j TableJob) QualifiedName() string {
	return j.Database + "." + j.Schema + "." + j.Table
}

// Filters narrow and parameterize the plan for one run. RowLimit and
// BatchSize are run-wide.
type Filters struct {
	// Source optionally restricts the plan to a single catalog source.
	Source    string
	RowLimit  int
	BatchSize int
}

// Build returns the ordered plan: sources in catalog order, tables in source
// order. Requesting a source name absent from the catalog is an *Error
// rather than a silently empty plan. Dry-run does not shape the plan; it only
// changes whether the extraction engine writes.
func Build(catalog []manifest.Source, f Filters) ([]TableJob, error) {
	if f.RowLimit <= 0 {
		return nil, fmt.Errorf("plan: row limit must be > 0, got %d", f.RowLimit)
	}
	if f.BatchSize <= 0 {
		return nil, fmt.Errorf("plan: batch size must be > 0, got %d", f.BatchSize)
	}

	selected := catalog
	if f.Source != "" {
		selected = nil
		for _, src := range catalog {
			if src.Name == f.Source {
				selected = []manifest.Source{src}
				break
			}
		}
		if selected == nil {
			return nil, &Error{Source: f.Source}
		}
	}

	var jobs []TableJob
	for _, src := range selected {
		for _, tbl := range src.Tables {
			jobs = append(jobs, TableJob{
				Source:    src.Name,
				Database:  src.Database,
				Schema:    src.Schema,
				Table:     tbl.Identifier,
				RowLimit:  f.RowLimit,
				BatchSize: f.BatchSize,
			})
		}
	}
	return jobs, nil
}
