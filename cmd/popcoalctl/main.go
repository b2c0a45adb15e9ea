package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"popcoal/internal/lgo"
	"popcoal/internal/popnet"
	"popcoal/internal/storage"
	popapi "popcoal/pkg/popcoal"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "simulate":
		return runSimulate(ctx, args[1:])
	case "check":
		return runCheck(ctx, args[1:])
	case "kl":
		return runKL(ctx, args[1:])
	case "resid":
		return runResid(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "patterns":
		return runPatterns(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func usageError(msg string) error {
	return fmt.Errorf(`%s

usage: popcoalctl <command> [flags]

commands:
  simulate   simulate site-pattern probabilities for a population model
  check      validate a population model's structure and feasibility
  kl         KL divergence between observed and estimated pattern files
  resid      residuals (observed - estimated) between pattern files
  runs       list archived simulation runs
  patterns   print the archived table of one run`, msg)
}

func runSimulate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	reps := fs.Int64("i", 100, "number of replicates")
	workers := fs.Int("t", 0, "worker count; 0 detects cores")
	seed := fs.Int64("s", 0, "base RNG seed; 0 seeds from the clock")
	singletons := fs.Bool("singletons", false, "include single-tip site patterns")
	storeKind := fs.String("store", "", "archive backend: memory|sqlite (default: no archive)")
	dbPath := fs.String("db-path", "popcoal.db", "sqlite database path")
	runID := fs.String("run-id", "", "archive run id (default: random)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usageError("simulate: exactly one model file is required")
	}
	modelFile := fs.Arg(0)

	baseSeed := *seed
	if baseSeed == 0 {
		baseSeed = time.Now().UnixNano()
	}

	started := time.Now()
	summary, err := simulateOnce(ctx, simulateArgs{
		modelFile:  modelFile,
		reps:       *reps,
		workers:    *workers,
		seed:       baseSeed,
		singletons: *singletons,
		storeKind:  *storeKind,
		dbPath:     *dbPath,
		runID:      *runID,
	})
	if err != nil {
		return err
	}

	fmt.Printf("# nreps       : %s\n", humanize.Comma(*reps))
	fmt.Printf("# seed        : %d\n", baseSeed)
	fmt.Printf("# input file  : %s\n", modelFile)
	fmt.Printf("# elapsed     : %s\n", time.Since(started).Round(time.Millisecond))
	if summary.RunID != "" {
		fmt.Printf("# run id      : %s\n", summary.RunID)
	}
	fmt.Printf("#%14s %10s\n", "SitePat", "Prob")
	for _, p := range summary.Patterns {
		fmt.Printf("%15s %10.7f\n", p.Pattern, p.Prob)
	}
	return nil
}

type simulateArgs struct {
	modelFile  string
	reps       int64
	workers    int
	seed       int64
	singletons bool
	storeKind  string
	dbPath     string
	runID      string
}

func simulateOnce(ctx context.Context, a simulateArgs) (popapi.RunSummary, error) {
	if a.storeKind == "" {
		// No archive requested; run against a throwaway memory store.
		client, err := popapi.New(ctx, popapi.Options{StoreKind: "memory"})
		if err != nil {
			return popapi.RunSummary{}, err
		}
		defer func() { _ = client.Close() }()
		summary, err := client.Simulate(ctx, popapi.SimulateRequest{
			ModelFile:  a.modelFile,
			Reps:       a.reps,
			Workers:    a.workers,
			Seed:       a.seed,
			Singletons: a.singletons,
		})
		if err != nil {
			return popapi.RunSummary{}, err
		}
		summary.RunID = "" // nothing durable to refer back to
		return summary, nil
	}

	client, err := popapi.New(ctx, popapi.Options{StoreKind: a.storeKind, DBPath: a.dbPath})
	if err != nil {
		return popapi.RunSummary{}, err
	}
	defer func() { _ = client.Close() }()
	return client.Simulate(ctx, popapi.SimulateRequest{
		ModelFile:  a.modelFile,
		Reps:       a.reps,
		Workers:    a.workers,
		Seed:       a.seed,
		Singletons: a.singletons,
		RunID:      a.runID,
	})
}

func runCheck(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usageError("check: exactly one model file is required")
	}
	m, err := lgo.ParseFile(fs.Arg(0))
	if err != nil {
		return err
	}
	if err := m.Net.Feasible(popnet.DefaultBounds()); err != nil {
		return err
	}
	fmt.Printf("ok: %d segments, %d samples, %d free parameters, root=%s\n",
		m.Net.NSegs(), m.Net.NSamples(), m.Params.NFree(), m.Net.Seg(m.Root).Name)
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "popcoal.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := popapi.New(ctx, popapi.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	runs, err := client.Runs(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no archived runs")
		return nil
	}
	for _, r := range runs {
		fmt.Printf("%s  %s  %s  reps=%s workers=%d seed=%d\n",
			r.ID, r.CreatedAtUTC, r.ModelFile, humanize.Comma(r.Reps), r.Workers, r.Seed)
	}
	return nil
}

func runPatterns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("patterns", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "popcoal.db", "sqlite database path")
	runID := fs.String("run-id", "", "archived run id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return usageError("patterns: -run-id is required")
	}

	client, err := popapi.New(ctx, popapi.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	patterns, ok, err := client.Patterns(ctx, *runID)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("run not found: " + *runID)
	}
	fmt.Printf("#%14s %10s\n", "SitePat", "Prob")
	for _, p := range patterns {
		fmt.Printf("%15s %10.7f\n", p.Pattern, p.Prob)
	}
	return nil
}
