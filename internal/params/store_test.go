package params

import (
	"errors"
	"math"
	"testing"
)

func TestStoreRejectsCollisionsAndBadValues(t *testing.T) {
	s := NewStore()
	if _, err := s.Add("T0", 1.0, Time, Fixed); err != nil {
		t.Fatalf("add T0: %v", err)
	}
	if _, err := s.Add("T0", 2.0, Time, Free); err == nil {
		t.Fatal("expected duplicate name error")
	}
	if _, err := s.Add("N0", -1.0, TwoN, Free); err == nil {
		t.Fatal("expected out-of-bounds error for negative twoN")
	}
	if _, err := s.Add("m", 1.5, MixFrac, Free); err == nil {
		t.Fatal("expected out-of-bounds error for mixFrac > 1")
	}
}

func TestConstrainedEvaluatesInDeclarationOrder(t *testing.T) {
	s := NewStore()
	ta, err := s.Add("Ta", 2.0, Time, Free)
	if err != nil {
		t.Fatalf("add Ta: %v", err)
	}
	tb, err := s.AddConstrained("Tb", "2 * Ta", Time)
	if err != nil {
		t.Fatalf("add Tb: %v", err)
	}
	tc, err := s.AddConstrained("Tc", "Tb + Ta", Time)
	if err != nil {
		t.Fatalf("add Tc: %v", err)
	}

	if got := s.Value(tb); got != 4.0 {
		t.Fatalf("Tb: got %g want 4", got)
	}
	if got := s.Value(tc); got != 6.0 {
		t.Fatalf("Tc: got %g want 6", got)
	}

	if err := s.SetFree([]float64{3.0}); err != nil {
		t.Fatalf("set free: %v", err)
	}
	if got := s.Value(ta); got != 3.0 {
		t.Fatalf("Ta: got %g want 3", got)
	}
	if got := s.Value(tb); got != 6.0 {
		t.Fatalf("Tb after set: got %g want 6", got)
	}
	if got := s.Value(tc); got != 9.0 {
		t.Fatalf("Tc after set: got %g want 9", got)
	}
}

func TestConstrainedUndefinedReferenceFailsAtBuild(t *testing.T) {
	s := NewStore()
	_, err := s.AddConstrained("bad", "2 * nothere", Time)
	if !errors.Is(err, ErrUnknownParam) {
		t.Fatalf("expected ErrUnknownParam, got %v", err)
	}
}

func TestConstrainedDivisionByZeroIsInfeasible(t *testing.T) {
	s := NewStore()
	if _, err := s.Add("d", 1.0, Time, Free); err != nil {
		t.Fatalf("add d: %v", err)
	}
	if _, err := s.AddConstrained("q", "1 / d", Time); err != nil {
		t.Fatalf("add q: %v", err)
	}

	err := s.SetFree([]float64{0.0})
	if !errors.Is(err, ErrInfeasible) {
		t.Fatalf("expected ErrInfeasible, got %v", err)
	}
}

func TestConstrainedSupportsFunctions(t *testing.T) {
	s := NewStore()
	if _, err := s.Add("x", 1.0, Time, Fixed); err != nil {
		t.Fatalf("add x: %v", err)
	}
	h, err := s.AddConstrained("y", "log(exp(x)) + sqrt(4)", Time)
	if err != nil {
		t.Fatalf("add y: %v", err)
	}
	if got := s.Value(h); math.Abs(got-3.0) > 1e-12 {
		t.Fatalf("y: got %g want 3", got)
	}
}

func TestFreeVectorRoundTripAndBounds(t *testing.T) {
	s := NewStore()
	if _, err := s.Add("fixed0", 5.0, TwoN, Fixed); err != nil {
		t.Fatalf("add fixed0: %v", err)
	}
	if _, err := s.AddBounded("a", 1.0, 0, 10, TwoN, Free); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if _, err := s.AddBounded("b", 2.0, 1, 3, Time, Free); err != nil {
		t.Fatalf("add b: %v", err)
	}

	if s.NFree() != 2 {
		t.Fatalf("nfree: got %d want 2", s.NFree())
	}
	want := []float64{1.25, 2.5}
	if err := s.SetFree(want); err != nil {
		t.Fatalf("set free: %v", err)
	}
	got := s.Free()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("free round trip: got %v want %v", got, want)
		}
	}

	lo, hi := s.FreeBounds()
	if lo[0] != 0 || hi[0] != 10 || lo[1] != 1 || hi[1] != 3 {
		t.Fatalf("bounds: got lo=%v hi=%v", lo, hi)
	}

	if err := s.SetFree([]float64{1.0}); err == nil {
		t.Fatal("expected length mismatch error")
	}
}

func TestDupIsIndependentAndEqual(t *testing.T) {
	s := NewStore()
	if _, err := s.Add("a", 1.0, TwoN, Free); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if _, err := s.AddConstrained("b", "a * 10", TwoN); err != nil {
		t.Fatalf("add b: %v", err)
	}

	d := s.Dup()
	if !s.Equal(d) {
		t.Fatal("duplicate differs from original")
	}

	if err := d.SetFree([]float64{2.0}); err != nil {
		t.Fatalf("set free on dup: %v", err)
	}
	if s.Value(0) != 1.0 {
		t.Fatal("mutating the duplicate changed the original")
	}
	hb, _ := d.ByName("b")
	if got := d.Value(hb); got != 20.0 {
		t.Fatalf("dup constraint: got %g want 20", got)
	}
	if s.Equal(d) {
		t.Fatal("stores should differ after SetFree on the duplicate")
	}
}
