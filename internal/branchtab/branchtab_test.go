package branchtab

import (
	"errors"
	"math"
	"testing"

	"popcoal/internal/labels"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestAddMergeIsCommutativeAndAssociative(t *testing.T) {
	mk := func(pairs map[labels.TipID]float64) *BranchTab {
		tab := New()
		for id, v := range pairs {
			tab.Add(id, v)
		}
		return tab
	}

	a := map[labels.TipID]float64{1: 0.5, 2: 1.5}
	b := map[labels.TipID]float64{2: 0.5, 4: 2.0}
	c := map[labels.TipID]float64{1: 1.0, 4: 0.25}

	ab := mk(a)
	ab.Merge(mk(b))
	ba := mk(b)
	ba.Merge(mk(a))
	for _, id := range []labels.TipID{1, 2, 4} {
		if ab.Get(id) != ba.Get(id) {
			t.Fatalf("merge not commutative at %#x: %g vs %g", uint32(id), ab.Get(id), ba.Get(id))
		}
	}

	abc1 := mk(a)
	abc1.Merge(mk(b))
	abc1.Merge(mk(c))
	bc := mk(b)
	bc.Merge(mk(c))
	abc2 := mk(a)
	abc2.Merge(bc)
	for _, id := range []labels.TipID{1, 2, 4} {
		if !almostEqual(abc1.Get(id), abc2.Get(id), 1e-15) {
			t.Fatalf("merge not associative at %#x", uint32(id))
		}
	}
}

func TestScaleComposes(t *testing.T) {
	tab := New()
	tab.Add(1, 2.0)
	tab.Add(3, 4.0)

	composed := tab.Dup()
	composed.Scale(0.5)
	composed.Scale(3.0)

	direct := tab.Dup()
	direct.Scale(1.5)

	for _, id := range []labels.TipID{1, 3} {
		if !almostEqual(composed.Get(id), direct.Get(id), 1e-15) {
			t.Fatalf("scale(a)∘scale(b) != scale(ab) at %#x", uint32(id))
		}
	}
}

func TestNormalizeAndEmptyTable(t *testing.T) {
	tab := New()
	if err := tab.Normalize(); !errors.Is(err, ErrEmptyBranchTab) {
		t.Fatalf("expected ErrEmptyBranchTab, got %v", err)
	}

	tab.Add(1, 3.0)
	tab.Add(2, 1.0)
	if err := tab.Normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if !almostEqual(tab.Sum(), 1.0, 1e-12) {
		t.Fatalf("sum after normalize: got %g", tab.Sum())
	}
	if !almostEqual(tab.Get(1), 0.75, 1e-12) {
		t.Fatalf("value after normalize: got %g want 0.75", tab.Get(1))
	}

	zero := New()
	zero.Add(1, 0.0)
	if err := zero.Normalize(); !errors.Is(err, ErrEmptyBranchTab) {
		t.Fatalf("expected ErrEmptyBranchTab on zero sum, got %v", err)
	}
}

func TestDivideByZeroFails(t *testing.T) {
	tab := New()
	tab.Add(1, 1.0)
	if err := tab.DivideBy(0); err == nil {
		t.Fatal("expected error dividing by zero")
	}
	if err := tab.DivideBy(4); err != nil {
		t.Fatalf("divide: %v", err)
	}
	if tab.Get(1) != 0.25 {
		t.Fatalf("divide: got %g want 0.25", tab.Get(1))
	}
}

func TestMinusEqualsAlignsOnKeyUnion(t *testing.T) {
	obs := New()
	obs.Add(1, 0.6)
	obs.Add(2, 0.4)
	est := New()
	est.Add(2, 0.1)
	est.Add(4, 0.9)

	obs.MinusEquals(est)
	if !almostEqual(obs.Get(1), 0.6, 1e-15) {
		t.Fatalf("key only in obs: got %g", obs.Get(1))
	}
	if !almostEqual(obs.Get(2), 0.3, 1e-15) {
		t.Fatalf("shared key: got %g", obs.Get(2))
	}
	if !almostEqual(obs.Get(4), -0.9, 1e-15) {
		t.Fatalf("key only in est: got %g", obs.Get(4))
	}
}

func TestToArraysSortedByKey(t *testing.T) {
	tab := New()
	tab.Add(6, 3.0)
	tab.Add(1, 1.0)
	tab.Add(3, 2.0)

	ids, vals := tab.ToArrays()
	wantIDs := []labels.TipID{1, 3, 6}
	wantVals := []float64{1.0, 2.0, 3.0}
	for i := range wantIDs {
		if ids[i] != wantIDs[i] || vals[i] != wantVals[i] {
			t.Fatalf("to arrays: got %v %v", ids, vals)
		}
	}
}

func TestKLOfDistributionAgainstItselfIsZero(t *testing.T) {
	p := New()
	p.Add(1, 0.25)
	p.Add(2, 0.5)
	p.Add(4, 0.25)

	kl, err := KL(p, p)
	if err != nil {
		t.Fatalf("kl: %v", err)
	}
	if !almostEqual(kl, 0.0, 1e-12) {
		t.Fatalf("kl(p||p): got %g want 0", kl)
	}
}

func TestKLPositiveAndMissingPattern(t *testing.T) {
	obs := New()
	obs.Add(1, 0.5)
	obs.Add(2, 0.5)
	est := New()
	est.Add(1, 0.9)
	est.Add(2, 0.1)

	kl, err := KL(obs, est)
	if err != nil {
		t.Fatalf("kl: %v", err)
	}
	if kl <= 0 {
		t.Fatalf("kl of different distributions: got %g", kl)
	}

	est2 := New()
	est2.Add(1, 1.0)
	if _, err := KL(obs, est2); !errors.Is(err, ErrMissingPattern) {
		t.Fatalf("expected ErrMissingPattern, got %v", err)
	}
}
