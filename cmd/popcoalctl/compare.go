package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"

	"popcoal/internal/branchtab"
	"popcoal/internal/labels"
)

// loadPatternPair reads observed and estimated site-pattern files
// against a shared label index inferred from both.
func loadPatternPair(obsPath, estPath string) (obs, est *branchtab.BranchTab, idx *labels.Index, err error) {
	obsData, err := os.ReadFile(obsPath)
	if err != nil {
		return nil, nil, nil, err
	}
	estData, err := os.ReadFile(estPath)
	if err != nil {
		return nil, nil, nil, err
	}

	joined := append(append(append([]byte{}, obsData...), '\n'), estData...)
	idx, err = branchtab.InferIndex(bytes.NewReader(joined))
	if err != nil {
		return nil, nil, nil, err
	}
	obs, err = branchtab.ReadPatterns(bytes.NewReader(obsData), idx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%s:%w", obsPath, err)
	}
	est, err = branchtab.ReadPatterns(bytes.NewReader(estData), idx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%s:%w", estPath, err)
	}
	return obs, est, idx, nil
}

func runKL(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("kl", flag.ContinueOnError)
	obsPath := fs.String("obs", "", "observed site-pattern file")
	estPath := fs.String("est", "", "estimated site-pattern file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *obsPath == "" || *estPath == "" {
		return usageError("kl: -obs and -est are required")
	}

	obs, est, _, err := loadPatternPair(*obsPath, *estPath)
	if err != nil {
		return err
	}
	if err := obs.Normalize(); err != nil {
		return fmt.Errorf("%s: %w", *obsPath, err)
	}
	if err := est.Normalize(); err != nil {
		return fmt.Errorf("%s: %w", *estPath, err)
	}
	kl, err := branchtab.KL(obs, est)
	if err != nil {
		return err
	}
	fmt.Printf("KL(obs||est) = %.9g\n", kl)
	return nil
}

func runResid(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("resid", flag.ContinueOnError)
	obsPath := fs.String("obs", "", "observed site-pattern file")
	estPath := fs.String("est", "", "estimated site-pattern file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *obsPath == "" || *estPath == "" {
		return usageError("resid: -obs and -est are required")
	}

	obs, est, idx, err := loadPatternPair(*obsPath, *estPath)
	if err != nil {
		return err
	}
	resid := obs.Dup()
	resid.MinusEquals(est)
	return branchtab.WritePatternsAs(os.Stdout, resid, idx, "Resid")
}
