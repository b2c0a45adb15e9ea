// Package popcoal is the embeddable client for the coalescent
// site-pattern toolkit: parse a population model, simulate branch
// lengths, and browse archived runs.
package popcoal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"popcoal/internal/branchtab"
	"popcoal/internal/labels"
	"popcoal/internal/lgo"
	"popcoal/internal/model"
	"popcoal/internal/sim"
	"popcoal/internal/storage"
)

type Options struct {
	StoreKind string
	DBPath    string
}

type Client struct {
	store storage.Store
}

func New(ctx context.Context, opts Options) (*Client, error) {
	store, err := storage.NewStore(opts.StoreKind, opts.DBPath)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	return &Client{store: store}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

type SimulateRequest struct {
	ModelFile  string
	Reps       int64
	Workers    int
	Seed       int64
	Singletons bool
	RunID      string
}

type RunSummary struct {
	RunID    string
	Patterns []model.PatternProb
}

// Simulate parses the model, runs the replicates, archives the
// normalized table, and returns it.
func (c *Client) Simulate(ctx context.Context, req SimulateRequest) (RunSummary, error) {
	m, err := lgo.ParseFile(req.ModelFile)
	if err != nil {
		return RunSummary{}, err
	}
	tab, err := sim.Run(ctx, sim.Config{
		Net:        m.Net,
		Reps:       req.Reps,
		Workers:    req.Workers,
		Seed:       req.Seed,
		Singletons: req.Singletons,
	})
	if err != nil {
		return RunSummary{}, err
	}
	patterns, err := PatternProbs(tab, m.Labels)
	if err != nil {
		return RunSummary{}, err
	}

	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	record := model.RunRecord{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: storage.CurrentSchemaVersion,
			CodecVersion:  storage.CurrentCodecVersion,
		},
		ID:           runID,
		CreatedAtUTC: time.Now().UTC().Format(time.RFC3339),
		ModelFile:    req.ModelFile,
		Reps:         req.Reps,
		Workers:      req.Workers,
		Seed:         req.Seed,
		Singletons:   req.Singletons,
		Patterns:     patterns,
	}
	if err := c.store.SaveRun(ctx, record); err != nil {
		return RunSummary{}, err
	}
	return RunSummary{RunID: runID, Patterns: patterns}, nil
}

// Runs lists archived runs.
func (c *Client) Runs(ctx context.Context) ([]model.RunRecord, error) {
	return c.store.ListRuns(ctx)
}

// Patterns returns the archived table of one run.
func (c *Client) Patterns(ctx context.Context, runID string) ([]model.PatternProb, bool, error) {
	run, ok, err := c.store.GetRun(ctx, runID)
	if err != nil || !ok {
		return nil, ok, err
	}
	return run.Patterns, true, nil
}

// PatternProbs renders a branch table as labeled rows in canonical
// bitmask order.
func PatternProbs(tab *branchtab.BranchTab, idx *labels.Index) ([]model.PatternProb, error) {
	ids, vals := tab.ToArrays()
	out := make([]model.PatternProb, 0, len(ids))
	for i, id := range ids {
		lbl, err := idx.Pattern(id)
		if err != nil {
			return nil, fmt.Errorf("render pattern %#x: %w", uint32(id), err)
		}
		out = append(out, model.PatternProb{Pattern: lbl, Prob: vals[i]})
	}
	return out, nil
}
