package branchtab

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/exp/maps"

	"popcoal/internal/labels"
)

var (
	// ErrEmptyBranchTab reports a normalize over an empty or zero-sum
	// table, which indicates a broken upstream.
	ErrEmptyBranchTab = errors.New("empty branch table")

	// ErrMissingPattern reports a KL comparison where the estimated
	// distribution lacks a pattern the observed one weights.
	ErrMissingPattern = errors.New("pattern missing from estimate")
)

// BranchTab maps site patterns to accumulated branch lengths. Keys are
// exact bitmasks; the empty pattern and the all-samples pattern are
// reserved and never stored.
type BranchTab struct {
	m map[labels.TipID]float64
}

func New() *BranchTab {
	return &BranchTab{m: make(map[labels.TipID]float64)}
}

// Add accumulates length onto one pattern, creating the entry if
// absent.
func (t *BranchTab) Add(id labels.TipID, length float64) {
	t.m[id] += length
}

// Get returns the accumulated length for a pattern, zero if absent.
func (t *BranchTab) Get(id labels.TipID) float64 {
	return t.m[id]
}

// Len is the number of distinct patterns.
func (t *BranchTab) Len() int {
	return len(t.m)
}

// Merge sums other into t, key by key.
func (t *BranchTab) Merge(other *BranchTab) {
	for id, v := range other.m {
		t.m[id] += v
	}
}

// Scale multiplies every value by c.
func (t *BranchTab) Scale(c float64) {
	for id := range t.m {
		t.m[id] *= c
	}
}

// DivideBy divides every value by c.
func (t *BranchTab) DivideBy(c float64) error {
	if c == 0 {
		return fmt.Errorf("divide branch table by zero")
	}
	t.Scale(1 / c)
	return nil
}

// Sum is the total accumulated length.
func (t *BranchTab) Sum() float64 {
	total := 0.0
	for _, v := range t.m {
		total += v
	}
	return total
}

// Normalize divides every value by the sum, turning the table into a
// probability distribution over site patterns.
func (t *BranchTab) Normalize() error {
	total := t.Sum()
	if len(t.m) == 0 || total == 0 {
		return ErrEmptyBranchTab
	}
	t.Scale(1 / total)
	return nil
}

// MinusEquals subtracts other from t, aligning on the union of keys.
func (t *BranchTab) MinusEquals(other *BranchTab) {
	for id, v := range other.m {
		t.m[id] -= v
	}
}

// Dup deep-copies the table.
func (t *BranchTab) Dup() *BranchTab {
	out := New()
	for id, v := range t.m {
		out.m[id] = v
	}
	return out
}

// ToArrays emits parallel key and value slices sorted by key.
func (t *BranchTab) ToArrays() ([]labels.TipID, []float64) {
	ids := maps.Keys(t.m)
	labels.SortPatterns(ids)
	vals := make([]float64, len(ids))
	for i, id := range ids {
		vals[i] = t.m[id]
	}
	return ids, vals
}

// KL computes the Kullback-Leibler divergence of est from obs,
// summing obs(b)*log(obs(b)/est(b)) over patterns with positive
// observed weight. An estimated weight of zero (or a missing entry)
// for such a pattern is an error.
func KL(obs, est *BranchTab) (float64, error) {
	kl := 0.0
	ids, _ := obs.ToArrays()
	for _, id := range ids {
		o := obs.m[id]
		if o <= 0 {
			continue
		}
		e, ok := est.m[id]
		if !ok || e <= 0 {
			return math.Inf(1), fmt.Errorf("%w: %#x", ErrMissingPattern, uint32(id))
		}
		kl += o * math.Log(o/e)
	}
	return kl, nil
}
