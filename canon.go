package molprint

import (
	"cmp"
	"slices"
)

// canonicalRanks assigns every atom a rank that does not depend on input atom order.
//
// HOW IT WORKS:
//
// ═══ STEP 1: Initial invariant ═══
// Atoms are ordered by (element, isotope, charge, heavy degree, hydrogens, aromatic, in ring).
//
// ═══ STEP 2: Refinement ═══
// Each atom is re-ranked by its own rank followed by the sorted ranks and bond orders
// of its neighbors, until the number of classes stops growing.
//
// ═══ STEP 3: Tie breaking ═══
// Symmetric atoms still sharing a rank are split by promoting one member of the
// lowest tied class, followed by another refinement.
func canonicalRanks(m *Mol) []int {
	n := len(m.atoms)
	if n == 0 {
		return nil
	}
	keys := make([][]int, n)
	for i, a := range m.atoms {
		arom, ring := 0, 0
		if a.Aromatic {
			arom = 1
		}
		if m.rings.atomInRing(i) {
			ring = 1
		}
		keys[i] = []int{a.Element, a.Isotope, a.Charge, m.HeavyDegree(i), m.TotalHs(i), arom, ring}
	}
	ranks, classes := rankKeys(keys)
	ranks, classes = refineRanks(m, ranks, classes)

	for classes < n {
		tied := tiedClass(ranks)
		pick := -1
		for i, r := range ranks {
			if r == tied {
				pick = i
				break
			}
		}
		for i := range keys {
			promote := 1
			if i == pick {
				promote = 0
			}
			keys[i] = []int{ranks[i], promote}
		}
		ranks, classes = rankKeys(keys)
		ranks, classes = refineRanks(m, ranks, classes)
	}
	return ranks
}

func refineRanks(m *Mol, ranks []int, classes int) ([]int, int) {
	keys := make([][]int, len(ranks))
	for {
		for i := range ranks {
			nb := make([]int, 0, len(m.adj[i]))
			for _, e := range m.adj[i] {
				nb = append(nb, ranks[e.atom]*8+int(m.bonds[e.bond].Order))
			}
			slices.Sort(nb)
			keys[i] = append([]int{ranks[i]}, nb...)
		}
		next, nextClasses := rankKeys(keys)
		if nextClasses == classes {
			return next, nextClasses
		}
		ranks, classes = next, nextClasses
	}
}

// rankKeys assigns dense ranks to lexicographically ordered keys; equal keys share a rank.
func rankKeys(keys [][]int) ([]int, int) {
	idx := make([]int, len(keys))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int { return slices.Compare(keys[a], keys[b]) })
	ranks := make([]int, len(keys))
	classes := 0
	for k, i := range idx {
		if k > 0 && slices.Compare(keys[idx[k-1]], keys[i]) != 0 {
			classes++
		}
		ranks[i] = classes
	}
	return ranks, classes + 1
}

// tiedClass returns the lowest rank held by more than one atom.
func tiedClass(ranks []int) int {
	counts := make(map[int]int, len(ranks))
	for _, r := range ranks {
		counts[r]++
	}
	best := -1
	for r, c := range counts {
		if c > 1 && (best < 0 || r < best) {
			best = r
		}
	}
	return best
}

// chiralNeighbors returns the neighbor order the chiral tag of atom i refers to.
// A hydrogen carried on the atom appears as -1.
func (m *Mol) chiralNeighbors(i int) []int {
	a := m.atoms[i]
	if len(a.chiralOrder) > 0 {
		return a.chiralOrder
	}
	order := m.Neighbors(i)
	if a.NumExplicitHs+a.implicitHs > 0 {
		order = append(order, -1)
	}
	return order
}

// chiralLabels derives an order-independent handedness label per atom: 0 when the
// atom carries no tetrahedral tag, otherwise 1 or 2 for the two configurations
// when neighbors are listed by ascending canonical rank.
func chiralLabels(m *Mol, ranks []int) []int {
	labels := make([]int, len(m.atoms))
	for i, a := range m.atoms {
		if a.Chiral == ChiralNone {
			continue
		}
		order := m.chiralNeighbors(i)
		if len(order) < 3 {
			continue
		}
		key := func(j int) int {
			if j < 0 {
				return -1
			}
			return ranks[j]
		}
		sorted := slices.Clone(order)
		slices.SortFunc(sorted, func(x, y int) int { return cmp.Compare(key(x), key(y)) })
		tag := a.Chiral
		if permutationParity(order, sorted) {
			tag = tag.flip()
		}
		labels[i] = int(tag)
	}
	return labels
}

// permutationParity reports whether turning from into to takes an odd number of swaps.
// Both slices must hold the same distinct values.
func permutationParity(from, to []int) bool {
	work := slices.Clone(from)
	odd := false
	for k := range work {
		if work[k] == to[k] {
			continue
		}
		for j := k + 1; j < len(work); j++ {
			if work[j] == to[k] {
				work[k], work[j] = work[j], work[k]
				odd = !odd
				break
			}
		}
	}
	return odd
}
