package plan

import (
	"errors"
	"testing"

	"warehousetogo/internal/manifest"
)

func testCatalog() []manifest.Source {
	return []manifest.Source{
		{
			Name: "billing", Database: "FINANCE", Schema: "BILLING",
			Tables: []manifest.Table{
				{Name: "invoices", Identifier: "INVOICES_V2"},
				{Name: "payments", Identifier: "payments"},
			},
		},
		{
			Name: "crm", Database: "SALES", Schema: "CRM",
			Tables: []manifest.Table{
				{Name: "accounts", Identifier: "accounts"},
			},
		},
	}
}

// TestBuildKeepsCatalogOrder verifies jobs come out in catalog order, sources
// first, tables within each source next.
func TestBuildKeepsCatalogOrder(t *testing.T) {
	t.Parallel()

	jobs, err := Build(testCatalog(), Filters{RowLimit: 100, BatchSize: 10})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	want := []string{
		"FINANCE.BILLING.INVOICES_V2",
		"FINANCE.BILLING.payments",
		"SALES.CRM.accounts",
	}
	if len(jobs) != len(want) {
		t.Fatalf("got %d jobs, want %d", len(jobs), len(want))
	}
	for i, w := range want {
		if jobs[i].QualifiedName() != w {
			t.Fatalf("job[%d] = %s, want %s", i, jobs[i].QualifiedName(), w)
		}
		if jobs[i].RowLimit != 100 || jobs[i].BatchSize != 10 {
			t.Fatalf("job[%d] limits = %d/%d, want 100/10", i, jobs[i].RowLimit, jobs[i].BatchSize)
		}
	}
}

// TestBuildSourceFilter verifies single-source selection and the unknown
// source error.
func TestBuildSourceFilter(t *testing.T) {
	t.Parallel()

	jobs, err := Build(testCatalog(), Filters{Source: "crm", RowLimit: 100, BatchSize: 10})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Source != "crm" {
		t.Fatalf("jobs = %+v, want just crm", jobs)
	}

	_, err = Build(testCatalog(), Filters{Source: "nope", RowLimit: 100, BatchSize: 10})
	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("expected *plan.Error, got %T: %v", err, err)
	}
	if perr.Source != "nope" {
		t.Fatalf("error source = %q, want nope", perr.Source)
	}
}

// TestBuildRejectsBadLimits verifies the run-wide knobs must be positive.
func TestBuildRejectsBadLimits(t *testing.T) {
	t.Parallel()

	if _, err := Build(testCatalog(), Filters{RowLimit: 0, BatchSize: 10}); err == nil {
		t.Fatal("expected error for zero row limit")
	}
	if _, err := Build(testCatalog(), Filters{RowLimit: 10, BatchSize: -1}); err == nil {
		t.Fatal("expected error for negative batch size")
	}
}
