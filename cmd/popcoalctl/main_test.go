package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testModel = `time fixed  T0=0
time free   Tab=1
twoN fixed  N=1
segment a   t=T0  twoN=N samples=1
segment b   t=T0  twoN=N samples=1
segment ab  t=Tab twoN=N
derive a from ab
derive b from ab
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	err := run(context.Background(), []string{"frobnicate"})
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("expected unknown-command error, got %v", err)
	}
	if err := run(context.Background(), nil); err == nil {
		t.Fatal("expected usage error for missing command")
	}
}

func TestCheckAcceptsAValidModel(t *testing.T) {
	path := writeFile(t, "model.lgo", testModel)
	if err := run(context.Background(), []string{"check", path}); err != nil {
		t.Fatalf("check: %v", err)
	}
}

func TestCheckRejectsABrokenModel(t *testing.T) {
	path := writeFile(t, "model.lgo", "segment a t=T0 twoN=N\n")
	if err := run(context.Background(), []string{"check", path}); err == nil {
		t.Fatal("expected parse failure")
	}
}

func TestKLAndResidCommands(t *testing.T) {
	obs := writeFile(t, "obs.txt", "# SitePat Prob\nx 0.25\ny 0.25\nx:y 0.5\n")
	est := writeFile(t, "est.txt", "# SitePat Prob\nx 0.25\ny 0.25\nx:y 0.5\n")

	if err := run(context.Background(), []string{"kl", "-obs", obs, "-est", est}); err != nil {
		t.Fatalf("kl: %v", err)
	}
	if err := run(context.Background(), []string{"resid", "-obs", obs, "-est", est}); err != nil {
		t.Fatalf("resid: %v", err)
	}

	missing := writeFile(t, "missing.txt", "# SitePat Prob\nx 1.0\n")
	if err := run(context.Background(), []string{"kl", "-obs", obs, "-est", missing}); err == nil {
		t.Fatal("expected KL failure for missing pattern")
	}
}

func TestSimulateCommandPrintsATable(t *testing.T) {
	path := writeFile(t, "model.lgo", testModel)
	err := run(context.Background(), []string{
		"simulate", "-i", "500", "-t", "2", "-s", "5", "-singletons", path,
	})
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
}
