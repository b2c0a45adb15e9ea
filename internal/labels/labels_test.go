package labels

import (
	"errors"
	"testing"
)

func TestIndexSingleAndMultiSampleNames(t *testing.T) {
	idx := NewIndex()
	if err := idx.AddSamples("x", 1); err != nil {
		t.Fatalf("add x: %v", err)
	}
	if err := idx.AddSamples("y", 2); err != nil {
		t.Fatalf("add y: %v", err)
	}
	if idx.Size() != 3 {
		t.Fatalf("size: got %d want 3", idx.Size())
	}

	for i, want := range []string{"x", "y.0", "y.1"} {
		got, err := idx.Label(i)
		if err != nil {
			t.Fatalf("label %d: %v", i, err)
		}
		if got != want {
			t.Fatalf("label %d: got %s want %s", i, got, want)
		}
	}

	bit, ok := idx.Bit("y.1")
	if !ok || bit != 4 {
		t.Fatalf("bit y.1: got %#x ok=%v", uint32(bit), ok)
	}
	if idx.All() != 7 {
		t.Fatalf("all: got %#x", uint32(idx.All()))
	}
}

func TestIndexRejectsDuplicatesAndOverflow(t *testing.T) {
	idx := NewIndex()
	if err := idx.AddSamples("x", 1); err != nil {
		t.Fatalf("add x: %v", err)
	}
	if err := idx.AddSamples("x", 1); err == nil {
		t.Fatal("expected duplicate name error")
	}

	idx = NewIndex()
	if err := idx.AddSamples("big", Width); err != nil {
		t.Fatalf("add %d samples: %v", Width, err)
	}
	err := idx.AddSamples("one", 1)
	if !errors.Is(err, ErrTooManySamples) {
		t.Fatalf("expected ErrTooManySamples, got %v", err)
	}
}

func TestPatternRoundTrip(t *testing.T) {
	idx := NewIndex()
	for _, name := range []string{"x", "y", "z"} {
		if err := idx.AddSamples(name, 1); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
	}

	lbl, err := idx.Pattern(0b101)
	if err != nil {
		t.Fatalf("pattern: %v", err)
	}
	if lbl != "x:z" {
		t.Fatalf("pattern: got %s want x:z", lbl)
	}

	// Label order within the input is not significant.
	id, err := idx.ParsePattern("z:x")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id != 0b101 {
		t.Fatalf("parse: got %#x want 0x5", uint32(id))
	}

	if _, err := idx.ParsePattern("x:q"); err == nil {
		t.Fatal("expected unknown label error")
	}
	if _, err := idx.ParsePattern("x:x"); err == nil {
		t.Fatal("expected repeated label error")
	}
}

func TestSortPatternsIsCanonical(t *testing.T) {
	ids := []TipID{6, 1, 3, 2}
	SortPatterns(ids)
	want := []TipID{1, 2, 3, 6}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("order: got %v want %v", ids, want)
		}
	}
}
