package params

import (
	"fmt"
	"math"

	"github.com/Knetic/govaluate"
)

// Store owns every parameter of one population model. Entries are
// addressed by Handle and keep stable identity for the life of an
// optimization run. Constrained entries recompute, in declaration
// order, whenever the free vector changes.
type Store struct {
	params []Param
	byName map[string]Handle

	free        []Handle
	constrained []Handle
}

func NewStore() *Store {
	return &Store{byName: make(map[string]Handle)}
}

// Add declares a fixed or free parameter. The value must lie inside
// [low, high]; mixture fractions must lie inside [0,1].
func (s *Store) Add(name string, value float64, cat Category, status Status) (Handle, error) {
	if status == Constrained {
		return None, fmt.Errorf("parameter %s: use AddConstrained for constrained parameters", name)
	}
	lo, hi := DefaultBounds(cat)
	return s.add(Param{
		Name:     name,
		Value:    value,
		Low:      lo,
		High:     hi,
		Category: cat,
		Status:   status,
	})
}

// AddBounded is Add with explicit bounds.
func (s *Store) AddBounded(name string, value, low, high float64, cat Category, status Status) (Handle, error) {
	if status == Constrained {
		return None, fmt.Errorf("parameter %s: use AddConstrained for constrained parameters", name)
	}
	return s.add(Param{
		Name:     name,
		Value:    value,
		Low:      low,
		High:     high,
		Category: cat,
		Status:   status,
	})
}

// AddConstrained declares a parameter computed from previously declared
// parameters. The formula is compiled once; a reference to an
// undeclared name is an error here, not at evaluation time.
func (s *Store) AddConstrained(name, formula string, cat Category) (Handle, error) {
	expr, err := govaluate.NewEvaluableExpressionWithFunctions(formula, exprFuncs)
	if err != nil {
		return None, fmt.Errorf("parameter %s: bad constraint %q: %w", name, formula, err)
	}
	for _, ref := range expr.Vars() {
		if _, ok := s.byName[ref]; !ok {
			return None, fmt.Errorf("parameter %s: constraint references %s: %w",
				name, ref, ErrUnknownParam)
		}
	}
	lo, hi := DefaultBounds(cat)
	h, err := s.add(Param{
		Name:     name,
		Value:    math.NaN(),
		Low:      lo,
		High:     hi,
		Category: cat,
		Status:   Constrained,
		Formula:  formula,
		expr:     expr,
	})
	if err != nil {
		return None, err
	}
	if err := s.evalConstrained(h); err != nil {
		return None, err
	}
	return h, nil
}

func (s *Store) add(p Param) (Handle, error) {
	if p.Name == "" {
		return None, fmt.Errorf("parameter name is required")
	}
	if _, exists := s.byName[p.Name]; exists {
		return None, fmt.Errorf("duplicate parameter name: %s", p.Name)
	}
	if p.Category == MixFrac {
		p.Low = math.Max(p.Low, 0)
		p.High = math.Min(p.High, 1)
	}
	if p.Status != Constrained {
		if p.Low > p.Value || p.Value > p.High {
			return None, fmt.Errorf("parameter %s: value %g not in [%g, %g]",
				p.Name, p.Value, p.Low, p.High)
		}
	}

	h := Handle(len(s.params))
	s.params = append(s.params, p)
	s.byName[p.Name] = h
	switch p.Status {
	case Free:
		s.free = append(s.free, h)
	case Constrained:
		s.constrained = append(s.constrained, h)
	}
	return h, nil
}

// Value returns the current value behind a handle.
func (s *Store) Value(h Handle) float64 {
	return s.params[h].Value
}

// Get returns a copy of the parameter behind a handle.
func (s *Store) Get(h Handle) Param {
	return s.params[h]
}

// ByName resolves a declared name to its handle.
func (s *Store) ByName(name string) (Handle, bool) {
	h, ok := s.byName[name]
	return h, ok
}

// Len is the total number of parameters.
func (s *Store) Len() int {
	return len(s.params)
}

// NFree is the number of free parameters.
func (s *Store) NFree() int {
	return len(s.free)
}

// Free copies the current free-parameter vector, in declaration order.
func (s *Store) Free() []float64 {
	out := make([]float64, len(s.free))
	for i, h := range s.free {
		out[i] = s.params[h].Value
	}
	return out
}

// FreeBounds returns parallel lower and upper bound vectors over the
// free parameters.
func (s *Store) FreeBounds() (lo, hi []float64) {
	lo = make([]float64, len(s.free))
	hi = make([]float64, len(s.free))
	for i, h := range s.free {
		lo[i] = s.params[h].Low
		hi[i] = s.params[h].High
	}
	return lo, hi
}

// SetFree installs a new free-parameter vector and recomputes every
// constrained parameter in declaration order. A constraint that yields
// a non-finite value (a division by zero, say) makes the vector
// infeasible; the store is left with the offending values in place and
// the caller is expected to reject the move.
func (s *Store) SetFree(x []float64) error {
	if len(x) != len(s.free) {
		return fmt.Errorf("free vector length mismatch: got=%d want=%d", len(x), len(s.free))
	}
	for i, h := range s.free {
		s.params[h].Value = x[i]
	}
	for _, h := range s.constrained {
		if err := s.evalConstrained(h); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) evalConstrained(h Handle) error {
	p := &s.params[h]
	env := make(map[string]interface{}, len(s.params))
	for i := range s.params {
		if Handle(i) == h {
			continue
		}
		env[s.params[i].Name] = s.params[i].Value
	}
	res, err := p.expr.Evaluate(env)
	if err != nil {
		return fmt.Errorf("parameter %s: evaluate constraint: %w", p.Name, err)
	}
	v, ok := res.(float64)
	if !ok {
		return fmt.Errorf("parameter %s: constraint is not numeric", p.Name)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		p.Value = v
		return fmt.Errorf("parameter %s: constraint yields %g: %w", p.Name, v, ErrInfeasible)
	}
	p.Value = v
	return nil
}

// Dup deep-copies the store. Compiled constraint expressions are
// shared; they are immutable after compilation.
func (s *Store) Dup() *Store {
	out := &Store{
		params:      append([]Param(nil), s.params...),
		byName:      make(map[string]Handle, len(s.byName)),
		free:        append([]Handle(nil), s.free...),
		constrained: append([]Handle(nil), s.constrained...),
	}
	for name, h := range s.byName {
		out.byName[name] = h
	}
	return out
}

// Equal reports whether two stores agree on names, structure, and
// current values.
func (s *Store) Equal(other *Store) bool {
	if len(s.params) != len(other.params) {
		return false
	}
	for i := range s.params {
		a, b := s.params[i], other.params[i]
		if a.Name != b.Name || a.Status != b.Status || a.Category != b.Category {
			return false
		}
		if a.Formula != b.Formula {
			return false
		}
		if a.Value != b.Value || a.Low != b.Low || a.High != b.High {
			return false
		}
	}
	return true
}
