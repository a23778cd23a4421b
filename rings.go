package molprint

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/bits-and-blooms/bitset"
)

// ringInfo stores the smallest set of smallest rings (SSSR) of a molecule.
type ringInfo struct {
	atomRings [][]int // atoms of each ring, in cycle order
	bondRings [][]int // bonds of each ring
	atomCount []int   // number of SSSR rings containing each atom
	bondCount []int   // number of SSSR rings containing each bond
}

func (r ringInfo) clone() ringInfo {
	c := ringInfo{
		atomCount: append([]int(nil), r.atomCount...),
		bondCount: append([]int(nil), r.bondCount...),
	}
	for _, ring := range r.atomRings {
		c.atomRings = append(c.atomRings, append([]int(nil), ring...))
	}
	for _, ring := range r.bondRings {
		c.bondRings = append(c.bondRings, append([]int(nil), ring...))
	}
	return c
}

func (r ringInfo) atomInRing(i int) bool {
	return i < len(r.atomCount) && r.atomCount[i] > 0
}

// NumRings returns the size of the smallest set of smallest rings.
func (m *Mol) NumRings() int { return len(m.rings.atomRings) }

// Rings returns the atom cycles of the SSSR.
func (m *Mol) Rings() [][]int {
	out := make([][]int, len(m.rings.atomRings))
	for i, r := range m.rings.atomRings {
		out[i] = append([]int(nil), r...)
	}
	return out
}

// IsAtomInRing reports whether atom i lies on any ring.
func (m *Mol) IsAtomInRing(i int) bool { return m.rings.atomInRing(i) }

// AtomRingCount returns the number of SSSR rings containing atom i.
func (m *Mol) AtomRingCount(i int) int { return m.rings.atomCount[i] }

// IsBondInRing reports whether bond b lies on any ring.
func (m *Mol) IsBondInRing(b int) bool { return m.bonds[b].inRing }

// IsAtomInRingOfSize reports whether atom i belongs to an SSSR ring with n atoms.
func (m *Mol) IsAtomInRingOfSize(i, n int) bool {
	for _, ring := range m.rings.atomRings {
		if len(ring) == n && slices.Contains(ring, i) {
			return true
		}
	}
	return false
}

// NumAromaticRings returns the number of SSSR rings whose bonds are all aromatic.
func (m *Mol) NumAromaticRings() int {
	n := 0
	for _, ring := range m.rings.bondRings {
		aromatic := true
		for _, b := range ring {
			if m.bonds[b].Order != BondAromatic {
				aromatic = false
				break
			}
		}
		if aromatic {
			n++
		}
	}
	return n
}

type ringCandidate struct {
	atoms []int
	bonds []int
	key   string
}

// perceiveRings computes the SSSR. For every bond the shortest cycle through it is a
// candidate; candidates are taken smallest first while they stay linearly independent
// over GF(2) until the cyclomatic number is reached.
func (m *Mol) perceiveRings() {
	na, nb := len(m.atoms), len(m.bonds)
	info := ringInfo{atomCount: make([]int, na), bondCount: make([]int, nb)}
	target := nb - na + len(m.Fragments())
	if target <= 0 {
		m.rings = info
		for b := range m.bonds {
			m.bonds[b].inRing = false
		}
		return
	}

	seen := make(map[string]bool)
	var candidates []ringCandidate
	for b, bond := range m.bonds {
		atoms, bonds := m.shortestPathAvoiding(bond.Begin, bond.End, b)
		if atoms == nil {
			continue
		}
		bonds = append(bonds, b)
		sorted := append([]int(nil), bonds...)
		slices.Sort(sorted)
		key := intsKey(sorted)
		if seen[key] {
			continue
		}
		seen[key] = true
		candidates = append(candidates, ringCandidate{atoms: atoms, bonds: bonds, key: key})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if len(candidates[i].bonds) != len(candidates[j].bonds) {
			return len(candidates[i].bonds) < len(candidates[j].bonds)
		}
		return candidates[i].key < candidates[j].key
	})

	basis := make(map[uint]*bitset.BitSet)
	for _, c := range candidates {
		if len(info.atomRings) == target {
			break
		}
		v := bitset.New(uint(nb))
		for _, b := range c.bonds {
			v.Set(uint(b))
		}
		if !reduceAgainst(basis, v) {
			continue
		}
		info.atomRings = append(info.atomRings, c.atoms)
		info.bondRings = append(info.bondRings, c.bonds)
		for _, a := range c.atoms {
			info.atomCount[a]++
		}
		for _, b := range c.bonds {
			info.bondCount[b]++
		}
	}
	for b := range m.bonds {
		m.bonds[b].inRing = info.bondCount[b] > 0
	}
	m.rings = info
}

// reduceAgainst eliminates v against the basis. It returns true and extends the basis
// when v is independent.
func reduceAgainst(basis map[uint]*bitset.BitSet, v *bitset.BitSet) bool {
	for {
		pivot, ok := v.NextSet(0)
		if !ok {
			return false
		}
		row, exists := basis[pivot]
		if !exists {
			basis[pivot] = v
			return true
		}
		v.InPlaceSymmetricDifference(row)
	}
}

// shortestPathAvoiding finds the shortest path from s to t that does not use bond skip.
// It returns the atoms from s to t and the bonds between them.
func (m *Mol) shortestPathAvoiding(s, t, skip int) ([]int, []int) {
	parent := make([]int, len(m.atoms))
	parentBond := make([]int, len(m.atoms))
	for i := range parent {
		parent[i] = -2
	}
	parent[s] = -1
	queue := []int{s}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == t {
			break
		}
		for _, e := range m.adj[cur] {
			if e.bond == skip || parent[e.atom] != -2 {
				continue
			}
			parent[e.atom] = cur
			parentBond[e.atom] = e.bond
			queue = append(queue, e.atom)
		}
	}
	if parent[t] == -2 {
		return nil, nil
	}
	var atoms, bonds []int
	for cur := t; cur != -1; cur = parent[cur] {
		atoms = append(atoms, cur)
		if parent[cur] != -1 {
			bonds = append(bonds, parentBond[cur])
		}
	}
	slices.Reverse(atoms)
	slices.Reverse(bonds)
	return atoms, bonds
}

// perceiveAromaticity marks Kekulé rings satisfying the 4n+2 rule as aromatic. Rings
// written with lowercase atoms are taken as declared. Fused systems are resolved by
// repeating the pass until no further ring changes.
func (m *Mol) perceiveAromaticity() {
	declared := make([]bool, len(m.atoms))
	for i, a := range m.atoms {
		declared[i] = a.Aromatic
	}
	perceived := make([]bool, len(m.atoms))
	done := make([]bool, len(m.rings.atomRings))

	for changed := true; changed; {
		changed = false
		for r, ring := range m.rings.atomRings {
			if done[r] {
				continue
			}
			skip := false
			for _, a := range ring {
				if declared[a] {
					skip = true
					break
				}
			}
			if skip {
				done[r] = true
				continue
			}
			electrons, ok := m.ringPiElectrons(r, perceived)
			if !ok || electrons%4 != 2 {
				continue
			}
			for _, a := range ring {
				perceived[a] = true
				m.atoms[a].Aromatic = true
			}
			for _, b := range m.rings.bondRings[r] {
				m.bonds[b].Order = BondAromatic
			}
			done[r] = true
			changed = true
		}
	}
}

// ringPiElectrons counts the pi electrons ring r contributes, or false when some atom
// cannot take part in an aromatic system.
func (m *Mol) ringPiElectrons(r int, perceived []bool) (int, bool) {
	inRing := make(map[int]bool, len(m.rings.bondRings[r]))
	for _, b := range m.rings.bondRings[r] {
		inRing[b] = true
	}
	total := 0
	for _, a := range m.rings.atomRings[r] {
		atom := m.atoms[a]
		connections := len(m.adj[a]) + atom.NumExplicitHs + atom.implicitHs
		ringDouble, exoDouble, exoToAromatic, triple := false, false, false, false
		exoHetero := false
		for _, e := range m.adj[a] {
			switch m.bonds[e.bond].Order {
			case BondDouble:
				if inRing[e.bond] {
					ringDouble = true
				} else {
					exoDouble = true
					z := m.atoms[e.atom].Element
					exoHetero = z == 7 || z == 8 || z == 16
					exoToAromatic = perceived[e.atom]
				}
			case BondTriple:
				triple = true
			}
		}
		switch {
		case triple:
			return 0, false
		case ringDouble:
			total++
		case perceived[a]:
			switch atom.Element {
			case 7, 15:
				if connections == 3 {
					total += 2
				} else {
					total++
				}
			case 8, 16, 34:
				total += 2
			default:
				total++
			}
		case exoDouble && exoToAromatic:
			total++
		case exoDouble && exoHetero:
			// exocyclic C=O style atoms contribute no electrons
		case exoDouble:
			return 0, false
		default:
			switch atom.Element {
			case 7, 15:
				if connections > 3 && atom.Charge <= 0 {
					return 0, false
				}
				total += 2
			case 8, 16, 34:
				total += 2
			case 6:
				switch {
				case atom.Charge < 0:
					total += 2
				case atom.Charge > 0:
				default:
					return 0, false
				}
			case 5:
			default:
				return 0, false
			}
		}
	}
	return total, true
}

func intsKey(a []int) string {
	var sb strings.Builder
	for i, v := range a {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%d", v)
	}
	return sb.String()
}
