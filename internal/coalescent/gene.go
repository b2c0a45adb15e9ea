package coalescent

import (
	"popcoal/internal/branchtab"
	"popcoal/internal/labels"
)

// Gene is one node of a gene genealogy built during a single
// replicate. The tip set of an internal node is the union of its
// children's tip sets; a leaf has exactly one bit set.
type Gene struct {
	TipSet labels.TipID
	Branch float64 // length of the edge above this node

	Left, Right *Gene // nil for leaves
}

func newTip(bit labels.TipID) *Gene {
	return &Gene{TipSet: bit}
}

// join replaces two lineages with their common ancestor.
func join(a, b *Gene) *Gene {
	return &Gene{TipSet: a.TipSet | b.TipSet, Left: a, Right: b}
}

// Tabulate walks the genealogy and adds each node's branch length to
// the pattern given by its tip set. The empty and all-samples patterns
// are reserved and skipped, as are singletons unless doSing is set.
func Tabulate(g *Gene, tab *branchtab.BranchTab, all labels.TipID, doSing bool) {
	if g == nil {
		return
	}
	if g.TipSet != 0 && g.TipSet != all {
		if doSing || !labels.Singleton(g.TipSet) {
			tab.Add(g.TipSet, g.Branch)
		}
	}
	Tabulate(g.Left, tab, all, doSing)
	Tabulate(g.Right, tab, all, doSing)
}
