// Package mirror orchestrates one run end to end: resolve credentials, build
// the plan, open the source session and the local store, and hand the jobs to
// the extraction engine.
//
// Setup failures (credentials, plan, connect, store open) are fatal to the
// run and happen before any table job starts; per-table failures live in the
// engine's outcomes.
package mirror

import (
	"context"
	"fmt"
	"log"

	"warehousetogo/internal/credentials"
	"warehousetogo/internal/extract"
	"warehousetogo/internal/manifest"
	"warehousetogo/internal/plan"
	"warehousetogo/internal/store"
	"warehousetogo/internal/warehouse"
)

// SessionFactory opens the run's source session.
type SessionFactory func(ctx context.Context, p credentials.Profile) (warehouse.Session, error)

// StoreOpener opens the run's local store.
type StoreOpener func(ctx context.Context, cfg store.Config) (store.Writer, error)

// Request carries everything one run needs.
type Request struct {
	Registry *credentials.Registry
	Catalog  []manifest.Source

	// Profile and Target select the credentials entry; both may be empty
	// when the registry can resolve unambiguously.
	Profile string
	Target  string

	Store   store.Config
	Filters plan.Filters
	Options extract.Options
}

// Runner executes mirror runs. The zero value connects with the real
// warehouse and store packages; tests swap the factories.
type Runner struct {
	Sessions SessionFactory
	Stores   StoreOpener
}

// Run resolves, plans, connects, and extracts. Credentials and plan errors
// surface before the session factory is invoked, so a bad source name never
// costs a warehouse connection. Dry runs stop after planning: no session is
// opened and no store file is created.
func (r *Runner) Run(ctx context.Context, req Request) ([]extract.Outcome, error) {
	sessions := r.Sessions
	if sessions == nil {
		sessions = warehouse.Connect
	}
	stores := r.Stores
	if stores == nil {
		stores = store.Open
	}

	prof, err := req.Registry.Resolve(req.Profile, req.Target)
	if err != nil {
		return nil, err
	}

	jobs, err := plan.Build(req.Catalog, req.Filters)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("mirror: catalog has no tables to mirror")
	}
	log.Printf("profile %s/%s: %d table(s) planned", prof.Name, prof.Target, len(jobs))

	if req.Options.DryRun {
		return extract.New(nil, nil, req.Options).Run(ctx, jobs), nil
	}

	sess, err := sessions(ctx, prof)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	w, err := stores(ctx, req.Store)
	if err != nil {
		return nil, err
	}
	defer w.Close()

	return extract.New(sess, w, req.Options).Run(ctx, jobs), nil
}
