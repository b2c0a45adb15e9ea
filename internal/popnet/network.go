// Package popnet models a directed acyclic network of population
// segments. Segments and parameters are addressed by integer handles,
// so duplicating a network for a worker thread is a slice copy; no
// pointer remapping is involved.
package popnet

import (
	"fmt"
	"math"

	"popcoal/internal/params"
)

// SegID is a stable index into a Network's segment array.
type SegID int

// NoSeg marks an absent segment reference.
const NoSeg SegID = -1

// Segment is one edge of the population network: a population of
// constant size over a time interval. A segment with two parents is an
// admixture node; Mix is the probability a lineage ascends via
// Parents[1] (the introgressor) rather than Parents[0] (the native
// parent).
type Segment struct {
	Name string

	TwoN  params.Handle // population size 2N
	Start params.Handle // recent end of the interval
	End   params.Handle // ancient end; None at the root (open interval)
	Mix   params.Handle // admixture fraction; None unless two parents

	Parents   [2]SegID
	NParents  int
	Children  [2]SegID
	NChildren int

	// NSamples is the number of tips seeded into this segment at the
	// start of every replicate.
	NSamples int
}

// TipAssign records where one sampled tip lives. Tip i carries bitmask
// 1<<i, in assignment order.
type TipAssign struct {
	Seg SegID
}

// Bounds is the feasible region for network parameters.
type Bounds struct {
	LoTwoN, HiTwoN float64
	LoTime, HiTime float64
}

// DefaultBounds mirrors the conventional search box.
func DefaultBounds() Bounds {
	return Bounds{LoTwoN: 0, HiTwoN: 1e6, LoTime: 0, HiTime: 1e6}
}

// Network is the population DAG plus the parameter store its segments
// reference.
type Network struct {
	segs []Segment
	tips []TipAssign
	ps   *params.Store
}

func New(ps *params.Store) *Network {
	if ps == nil {
		ps = params.NewStore()
	}
	return &Network{ps: ps}
}

// Params exposes the backing parameter store.
func (n *Network) Params() *params.Store {
	return n.ps
}

// NSegs is the number of segments.
func (n *Network) NSegs() int {
	return len(n.segs)
}

// Seg returns a pointer to the segment behind id. The pointer is valid
// until the next AddSegment.
func (n *Network) Seg(id SegID) *Segment {
	return &n.segs[id]
}

// Tips returns the tip assignments in bitmask order.
func (n *Network) Tips() []TipAssign {
	return n.tips
}

// NSamples is the total number of sampled tips.
func (n *Network) NSamples() int {
	return len(n.tips)
}

// AddSegment declares a new segment with the given size and start-time
// handles.
func (n *Network) AddSegment(name string, twoN, start params.Handle) (SegID, error) {
	if name == "" {
		return NoSeg, fmt.Errorf("segment name is required")
	}
	for _, s := range n.segs {
		if s.Name == name {
			return NoSeg, fmt.Errorf("duplicate segment name: %s", name)
		}
	}
	id := SegID(len(n.segs))
	n.segs = append(n.segs, Segment{
		Name:     name,
		TwoN:     twoN,
		Start:    start,
		End:      params.None,
		Mix:      params.None,
		Parents:  [2]SegID{NoSeg, NoSeg},
		Children: [2]SegID{NoSeg, NoSeg},
	})
	return id, nil
}

// AddSamples seeds k tips into a segment. Tips acquire consecutive
// bitmask positions in call order.
func (n *Network) AddSamples(id SegID, k int) error {
	if k <= 0 {
		return fmt.Errorf("segment %s: sample count must be > 0", n.segs[id].Name)
	}
	for i := 0; i < k; i++ {
		n.tips = append(n.tips, TipAssign{Seg: id})
	}
	n.segs[id].NSamples += k
	return nil
}

// AddChild wires child under parent. The child's end-time handle
// becomes the parent's start-time handle; if the child already has an
// end, it must be the same handle, so that adjacent segments cannot
// desynchronize when the optimizer moves the shared time.
func (n *Network) AddChild(parent, child SegID) error {
	p, c := &n.segs[parent], &n.segs[child]
	if p.NChildren > 1 {
		return fmt.Errorf("segment %s: %w", p.Name, ErrTooManyChildren)
	}
	if c.NParents > 1 {
		return fmt.Errorf("segment %s: %w", c.Name, ErrTooManyParents)
	}
	if n.ps.Value(c.Start) > n.ps.Value(p.Start) {
		return fmt.Errorf("segment %s starts at %g, after parent %s at %g: %w",
			c.Name, n.ps.Value(c.Start), p.Name, n.ps.Value(p.Start), ErrDateMismatch)
	}
	if c.End == params.None {
		c.End = p.Start
	} else if c.End != p.Start {
		return fmt.Errorf("segment %s: end is not the parent's start time: %w",
			c.Name, ErrDateMismatch)
	}
	p.Children[p.NChildren] = child
	p.NChildren++
	c.Parents[c.NParents] = parent
	c.NParents++
	return nil
}

// Mix wires child under two parents at once. Both parents must share
// the same start-time handle, which becomes the child's end; the
// mixture fraction handle gives the probability a lineage ascends via
// the introgressor.
func (n *Network) Mix(child SegID, mix params.Handle, introgressor, native SegID) error {
	c := &n.segs[child]
	in, na := &n.segs[introgressor], &n.segs[native]
	if in.NChildren > 1 {
		return fmt.Errorf("segment %s: %w", in.Name, ErrTooManyChildren)
	}
	if na.NChildren > 1 {
		return fmt.Errorf("segment %s: %w", na.Name, ErrTooManyChildren)
	}
	if c.NParents > 0 {
		return fmt.Errorf("segment %s: %w", c.Name, ErrTooManyParents)
	}
	if in.Start != na.Start {
		return fmt.Errorf("segments %s and %s do not share an admixture time: %w",
			na.Name, in.Name, ErrDateMismatch)
	}
	if c.End == params.None {
		c.End = na.Start
	} else if c.End != na.Start {
		return fmt.Errorf("segment %s: end is not the admixture time: %w",
			c.Name, ErrDateMismatch)
	}
	c.Parents[0] = native
	c.Parents[1] = introgressor
	c.NParents = 2
	c.Mix = mix
	in.Children[in.NChildren] = child
	in.NChildren++
	na.Children[na.NChildren] = child
	na.NChildren++
	return nil
}

// Root returns the unique root of the network. Every segment's parent
// chains must converge to the same parentless segment.
func (n *Network) Root() (SegID, error) {
	if len(n.segs) == 0 {
		return NoSeg, fmt.Errorf("empty population network")
	}
	root := NoSeg
	for id := range n.segs {
		r, err := n.rootFrom(SegID(id), 0)
		if err != nil {
			return NoSeg, err
		}
		if root == NoSeg {
			root = r
		} else if root != r {
			return NoSeg, ErrMultipleRoots
		}
	}
	return root, nil
}

func (n *Network) rootFrom(id SegID, depth int) (SegID, error) {
	if depth > len(n.segs) {
		return NoSeg, fmt.Errorf("cycle detected at segment %s", n.segs[id].Name)
	}
	s := &n.segs[id]
	switch s.NParents {
	case 0:
		return id, nil
	case 1:
		return n.rootFrom(s.Parents[0], depth+1)
	default:
		r0, err := n.rootFrom(s.Parents[0], depth+1)
		if err != nil {
			return NoSeg, err
		}
		r1, err := n.rootFrom(s.Parents[1], depth+1)
		if err != nil {
			return NoSeg, err
		}
		if r0 != r1 {
			return NoSeg, ErrMultipleRoots
		}
		return r0, nil
	}
}

// Feasible checks every segment against the bounds and against the
// time ordering of its neighbors. It returns nil when the current
// parameter vector is usable and an error naming the first offender
// otherwise.
func (n *Network) Feasible(bnd Bounds) error {
	for id := range n.segs {
		s := &n.segs[id]
		twoN := n.ps.Value(s.TwoN)
		if twoN < bnd.LoTwoN || twoN > bnd.HiTwoN || math.IsNaN(twoN) {
			return fmt.Errorf("segment %s: twoN=%g not in [%g, %g]: %w",
				s.Name, twoN, bnd.LoTwoN, bnd.HiTwoN, ErrInfeasible)
		}
		start := n.ps.Value(s.Start)
		if start < bnd.LoTime || start > bnd.HiTime || math.IsNaN(start) {
			return fmt.Errorf("segment %s: start=%g not in [%g, %g]: %w",
				s.Name, start, bnd.LoTime, bnd.HiTime, ErrInfeasible)
		}
		for i := 0; i < s.NParents; i++ {
			pstart := n.ps.Value(n.segs[s.Parents[i]].Start)
			if start > pstart {
				return fmt.Errorf("segment %s at %g is older than parent %s at %g: %w",
					s.Name, start, n.segs[s.Parents[i]].Name, pstart, ErrInfeasible)
			}
		}
		for i := 0; i < s.NChildren; i++ {
			cstart := n.ps.Value(n.segs[s.Children[i]].Start)
			if start < cstart {
				return fmt.Errorf("segment %s at %g is younger than child %s at %g: %w",
					s.Name, start, n.segs[s.Children[i]].Name, cstart, ErrInfeasible)
			}
		}
		if s.Mix != params.None {
			m := n.ps.Value(s.Mix)
			if m < 0 || m > 1 || math.IsNaN(m) {
				return fmt.Errorf("segment %s: mix=%g not in [0, 1]: %w",
					s.Name, m, ErrInfeasible)
			}
		}
	}
	return nil
}

// Dup deep-copies the network together with a duplicate of its
// parameter store. Handles are indices, so all cross-references in the
// copy are valid as-is.
func (n *Network) Dup() *Network {
	return &Network{
		segs: append([]Segment(nil), n.segs...),
		tips: append([]TipAssign(nil), n.tips...),
		ps:   n.ps.Dup(),
	}
}

// Equal reports whether two networks have the same structure and the
// same parameter values.
func (n *Network) Equal(other *Network) bool {
	if len(n.segs) != len(other.segs) || len(n.tips) != len(other.tips) {
		return false
	}
	for i := range n.segs {
		if n.segs[i] != other.segs[i] {
			return false
		}
	}
	for i := range n.tips {
		if n.tips[i] != other.tips[i] {
			return false
		}
	}
	return n.ps.Equal(other.ps)
}
