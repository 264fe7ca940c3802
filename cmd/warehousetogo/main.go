package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"warehousetogo/internal/config"
	"warehousetogo/internal/credentials"
	"warehousetogo/internal/extract"
	"warehousetogo/internal/manifest"
	"warehousetogo/internal/metrics"
	"warehousetogo/internal/metrics/datadog"
	"warehousetogo/internal/metrics/prompush"
	"warehousetogo/internal/mirror"
	"warehousetogo/internal/plan"
	"warehousetogo/internal/store"
	"warehousetogo/internal/warehouse"

	// register all store backends with the factory.
	// flags specify which to use but the binary builds in support for all of them.
	_ "warehousetogo/internal/store/all"
)

// main is the entry point for the mirror binary. It assembles the run config
// from flags, optionally initializes a metrics backend, and executes the run.
func main() {
	var (
		run               config.Run
		metricsBackendFlg string
		pushGatewayURLFlg string
		dogstatsdAddrFlg  string
		check             bool
		validate          bool
	)

	flag.StringVar(&run.ProfilesPath, "profiles", "profiles.yml", "dbt profiles.yml path with warehouse credentials")
	flag.StringVar(&run.Profile, "profile", "", "profile name (default: the sole supported profile)")
	flag.StringVar(&run.Target, "target", "", "profile target (default: the profile's own default)")
	flag.StringVar(&run.ManifestPath, "manifest", "target/manifest.json", "dbt manifest.json path with the source catalog")
	flag.StringVar(&run.Source, "source", "", "mirror only this catalog source")
	flag.StringVar(&run.StoreKind, "store", config.DefaultStoreKind, "local store backend (duckdb, sqlite)")
	flag.StringVar(&run.StorePath, "out", config.DefaultStorePath, "local store database file")
	flag.IntVar(&run.RowLimit, "row-limit", config.DefaultRowLimit, "max rows mirrored per table")
	flag.IntVar(&run.BatchSize, "batch-size", config.DefaultBatchSize, "rows per local insert batch")
	flag.BoolVar(&run.DryRun, "dry-run", false, "plan and report without connecting or writing")
	flag.DurationVar(&run.QueryTimeout, "query-timeout", 0, "per-table source query timeout (0 = none)")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "none", "metrics backend to use (pushgateway, datadog, none)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.StringVar(&dogstatsdAddrFlg, "dogstatsd-addr", "", "DogStatsD address (overrides env DD_AGENT_ADDR)")
	flag.BoolVar(&check, "check", false, "resolve credentials and ping the warehouse, then exit")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	run.Normalize()

	issues := config.Validate(run)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		log.Printf("configuration is invalid")
		os.Exit(1)
	}
	if validate {
		log.Printf("configuration is valid")
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry, err := credentials.LoadRegistry(run.ProfilesPath)
	if err != nil {
		fatalf("load profiles: %v", err)
	}

	if check {
		if err := checkConnection(ctx, registry, run); err != nil {
			fatalf("check: %v", err)
		}
		log.Printf("connection ok")
		return
	}

	catalog, err := manifest.Load(run.ManifestPath)
	if err != nil {
		fatalf("%v", err)
	}

	setupMetrics(metricsBackendFlg, pushGatewayURLFlg, dogstatsdAddrFlg, run.Profile, *verbose)
	defer func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}()

	start := time.Now()
	if *verbose {
		log.Printf("run: profiles=%s manifest=%s store=%s out=%s row_limit=%d batch_size=%d",
			run.ProfilesPath, run.ManifestPath, run.StoreKind, run.StorePath, run.RowLimit, run.BatchSize)
	}

	runner := &mirror.Runner{}
	outcomes, err := runner.Run(ctx, mirror.Request{
		Registry: registry,
		Catalog:  catalog,
		Profile:  run.Profile,
		Target:   run.Target,
		Store:    store.Config{Kind: run.StoreKind, Path: run.StorePath},
		Filters:  plan.Filters{Source: run.Source, RowLimit: run.RowLimit, BatchSize: run.BatchSize},
		Options:  extract.Options{DryRun: run.DryRun, QueryTimeout: run.QueryTimeout},
	})
	if err != nil {
		log.Fatalf("%v", err)
	}

	failed := summarize(outcomes)
	log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	if failed > 0 {
		// Per-table failures are reported above; the run itself still finished.
		log.Printf("%d table(s) failed", failed)
	}
}

// checkConnection resolves the profile and pings the warehouse without
// touching the manifest or the local store.
func checkConnection(ctx context.Context, registry *credentials.Registry, run config.Run) error {
	prof, err := registry.Resolve(run.Profile, run.Target)
	if err != nil {
		return err
	}
	log.Printf("profile %s/%s: type=%s account=%s user=%s database=%s",
		prof.Name, prof.Target, prof.Type, prof.Account, prof.User, prof.Database)

	sess, err := warehouse.Connect(ctx, prof)
	if err != nil {
		return err
	}
	defer sess.Close()
	return sess.Ping(ctx)
}

// setupMetrics decides and installs the metrics backend: flag → env → nop.
func setupMetrics(backendName, gwURL, ddAddr, jobName string, verbose bool) {
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	if jobName == "" {
		jobName = "warehousetogo"
	}

	switch backendName {
	case "pushgateway":
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}
		b, err := prompush.NewBackend(jobName, gwURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: backend=pushgateway url=%s job=%s", gwURL, jobName)
		metrics.SetBackend(b)

	case "datadog":
		if ddAddr == "" {
			ddAddr = os.Getenv("DD_AGENT_ADDR")
		}
		if ddAddr == "" {
			ddAddr = "127.0.0.1:8125"
		}
		b, err := datadog.NewBackend(datadog.Config{
			Addr:      ddAddr,
			Namespace: "warehousetogo.",
			GlobalTags: []string{
				"job:" + jobName,
			},
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: backend=datadog addr=%s job=%s", ddAddr, jobName)
		metrics.SetBackend(b)

	case "", "none":
		// metrics disabled; nop backend remains
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}
}

// summarize logs one line per source and returns the number of failed tables.
func summarize(outcomes []extract.Outcome) int {
	type tally struct {
		completed, truncated, failed, skipped int
		rows                                  int64
	}
	order := make([]string, 0)
	bySource := map[string]*tally{}
	failed := 0

	for _, out := range outcomes {
		tl, ok := bySource[out.Job.Source]
		if !ok {
			tl = &tally{}
			bySource[out.Job.Source] = tl
			order = append(order, out.Job.Source)
		}
		tl.rows += out.Rows
		switch out.Status {
		case extract.StatusCompleted:
			tl.completed++
		case extract.StatusTruncated:
			tl.truncated++
		case extract.StatusFailed:
			tl.failed++
			failed++
			log.Printf("failed: %s (%s): %v", out.Job.QualifiedName(), out.ErrKind(), out.Err)
		case extract.StatusSkipped:
			tl.skipped++
		}
	}

	for _, src := range order {
		tl := bySource[src]
		log.Printf("source %s: completed=%d truncated=%d failed=%d skipped=%d rows=%d",
			src, tl.completed, tl.truncated, tl.failed, tl.skipped, tl.rows)
	}
	return failed
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
