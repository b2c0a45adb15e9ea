//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "popcoal.db"))
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}()

	if err := store.SaveRun(ctx, testRun("r1")); err != nil {
		t.Fatalf("save: %v", err)
	}
	// Saving again must upsert, not fail.
	updated := testRun("r1")
	updated.Reps = 20000
	if err := store.SaveRun(ctx, updated); err != nil {
		t.Fatalf("resave: %v", err)
	}

	got, ok, err := store.GetRun(ctx, "r1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.Reps != 20000 {
		t.Fatalf("upsert: reps=%d", got.Reps)
	}

	if _, ok, err := store.GetRun(ctx, "nope"); err != nil || ok {
		t.Fatalf("missing run: ok=%v err=%v", ok, err)
	}

	runs, err := store.ListRuns(ctx)
	if err != nil || len(runs) != 1 {
		t.Fatalf("list: %d runs err=%v", len(runs), err)
	}
}
