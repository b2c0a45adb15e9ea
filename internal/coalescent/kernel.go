// Package coalescent simulates gene genealogies backward in time
// within a population network.
package coalescent

import (
	"fmt"
	"math"
	"math/rand"

	"popcoal/internal/labels"
	"popcoal/internal/params"
	"popcoal/internal/popnet"
)

// Simulator runs replicates against one network copy. It owns the
// per-segment lineage lists, so a Simulator is single-threaded; give
// each worker its own network duplicate and its own Simulator.
type Simulator struct {
	net  *popnet.Network
	root popnet.SegID

	samples [][]*Gene
	visited []bool
}

func NewSimulator(net *popnet.Network) (*Simulator, error) {
	root, err := net.Root()
	if err != nil {
		return nil, err
	}
	if net.NSamples() == 0 {
		return nil, fmt.Errorf("population network has no sampled tips")
	}
	return &Simulator{
		net:     net,
		root:    root,
		samples: make([][]*Gene, net.NSegs()),
		visited: make([]bool, net.NSegs()),
	}, nil
}

// Root is the root segment of the simulator's network.
func (s *Simulator) Root() popnet.SegID {
	return s.root
}

// Replicate clears per-segment lineage lists, seeds one tip lineage
// per sample, and coalesces the whole network. It returns the MRCA of
// the surviving lineage.
func (s *Simulator) Replicate(rng *rand.Rand) (*Gene, error) {
	s.clear()
	for i, tip := range s.net.Tips() {
		s.samples[tip.Seg] = append(s.samples[tip.Seg], newTip(labels.TipID(1)<<uint(i)))
	}
	if err := s.coalesce(s.root, rng); err != nil {
		return nil, err
	}
	if len(s.samples[s.root]) != 1 {
		return nil, fmt.Errorf("replicate finished with %d lineages at the root",
			len(s.samples[s.root]))
	}
	return s.samples[s.root][0], nil
}

// clear empties the per-replicate sample lists, reusing their backing
// arrays.
func (s *Simulator) clear() {
	for i := range s.samples {
		s.samples[i] = s.samples[i][:0]
		s.visited[i] = false
	}
}

func (s *Simulator) coalesce(id popnet.SegID, rng *rand.Rand) error {
	if s.visited[id] {
		return nil
	}
	s.visited[id] = true

	seg := s.net.Seg(id)
	ps := s.net.Params()

	// Children first, so every lineage below has been routed into
	// this segment's list before the clock starts.
	for i := 0; i < seg.NChildren; i++ {
		if err := s.coalesce(seg.Children[i], rng); err != nil {
			return err
		}
	}

	t := ps.Value(seg.Start)
	end := math.Inf(1)
	if seg.End != params.None {
		end = ps.Value(seg.End)
	}
	if math.IsNaN(end) {
		return fmt.Errorf("segment %s: end of interval is NaN", seg.Name)
	}
	if t > end {
		return fmt.Errorf("segment %s: start=%g > end=%g: %w",
			seg.Name, t, end, popnet.ErrInfeasible)
	}
	twoN := ps.Value(seg.TwoN)
	if twoN <= 0 || math.IsNaN(twoN) {
		return fmt.Errorf("segment %s: twoN=%g: %w", seg.Name, twoN, popnet.ErrInfeasible)
	}

	live := s.samples[id]
	for len(live) > 1 && t < end {
		n := len(live)
		mean := 2.0 * twoN / float64(n*(n-1))
		x := rng.ExpFloat64() * mean

		if t+x < end {
			// Coalescent event within the interval.
			t += x
			for _, g := range live {
				g.Branch += x
			}
			i := rng.Intn(n)
			j := rng.Intn(n - 1)
			if j >= i {
				j++
			}
			if j < i {
				i, j = j, i
			}
			live[i] = join(live[i], live[j])
			live[j] = live[n-1]
			live = live[:n-1]
		} else {
			// Interval ends before the next event.
			x = end - t
			for _, g := range live {
				g.Branch += x
			}
			t = end
		}
	}

	// Fewer than two lineages left: run the clock out. Nothing is
	// added above the MRCA when the root interval is open.
	if t < end && !math.IsInf(end, 1) {
		x := end - t
		for _, g := range live {
			g.Branch += x
		}
		t = end
	}

	s.samples[id] = live
	if len(live) == 0 || seg.NParents == 0 {
		return nil
	}

	// Route surviving lineages to the parents.
	switch seg.NParents {
	case 1:
		s.samples[seg.Parents[0]] = append(s.samples[seg.Parents[0]], live...)
	default:
		mix := ps.Value(seg.Mix)
		for _, g := range live {
			if rng.Float64() < mix {
				s.samples[seg.Parents[1]] = append(s.samples[seg.Parents[1]], g)
			} else {
				s.samples[seg.Parents[0]] = append(s.samples[seg.Parents[0]], g)
			}
		}
	}
	s.samples[id] = live[:0]
	return nil
}
