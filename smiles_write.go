package molprint

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
)

// MolToSmiles returns the canonical SMILES of a molecule. Two molecules with the same
// graph produce the same string regardless of the order their atoms were read in.
func MolToSmiles(m *Mol) string {
	return m.Smiles()
}

// Smiles returns the canonical SMILES of the molecule.
func (m *Mol) Smiles() string {
	if len(m.atoms) == 0 {
		return ""
	}
	w := newSmilesWriter(m)
	return w.write()
}

type smilesWriter struct {
	mol      *Mol
	ranks    []int
	visited  []bool
	parent   []int
	children [][]int
	// ring closures opened and closed at each atom, as bond indices
	opens  [][]int
	closes [][]int
	closed []bool
	digits map[int]int
	inUse  []bool
	sb     strings.Builder
}

func newSmilesWriter(m *Mol) *smilesWriter {
	n := len(m.atoms)
	w := &smilesWriter{
		mol:      m,
		ranks:    canonicalRanks(m),
		visited:  make([]bool, n),
		parent:   make([]int, n),
		children: make([][]int, n),
		opens:    make([][]int, n),
		closes:   make([][]int, n),
		closed:   make([]bool, len(m.bonds)),
		digits:   make(map[int]int),
	}
	for i := range w.parent {
		w.parent[i] = -1
	}
	return w
}

func (w *smilesWriter) write() string {
	// fragments are written in order of their lowest-ranked atom
	frags := w.mol.Fragments()
	starts := make([]int, len(frags))
	for f, atoms := range frags {
		starts[f] = slices.MinFunc(atoms, func(a, b int) int { return cmp.Compare(w.ranks[a], w.ranks[b]) })
	}
	slices.SortFunc(starts, func(a, b int) int { return cmp.Compare(w.ranks[a], w.ranks[b]) })

	for k, start := range starts {
		if k > 0 {
			w.sb.WriteByte('.')
		}
		w.plan(start, -1)
		w.emit(start)
	}
	return w.sb.String()
}

// byRank returns the neighbors of atom i ordered by canonical rank.
func (w *smilesWriter) byRank(i int) []adjEntry {
	nb := slices.Clone(w.mol.adj[i])
	slices.SortFunc(nb, func(a, b adjEntry) int { return cmp.Compare(w.ranks[a.atom], w.ranks[b.atom]) })
	return nb
}

// plan builds the depth-first spanning tree and classifies the remaining bonds as ring closures.
func (w *smilesWriter) plan(u, parentBond int) {
	w.visited[u] = true
	for _, e := range w.byRank(u) {
		if e.bond == parentBond || w.closed[e.bond] {
			continue
		}
		if w.visited[e.atom] {
			w.closed[e.bond] = true
			w.opens[e.atom] = append(w.opens[e.atom], e.bond)
			w.closes[u] = append(w.closes[u], e.bond)
			continue
		}
		w.parent[e.atom] = u
		w.children[u] = append(w.children[u], e.atom)
		w.plan(e.atom, e.bond)
	}
}

func (w *smilesWriter) emit(u int) {
	m := w.mol

	// neighbor order as it will appear in the output, for chirality
	var order []int
	if p := w.parent[u]; p >= 0 {
		order = append(order, p)
	}
	hs := m.atoms[u].NumExplicitHs + m.atoms[u].implicitHs
	if hs > 0 {
		order = append(order, -1)
	}

	var ring strings.Builder
	for _, b := range w.closes[u] {
		d := w.digits[b]
		delete(w.digits, b)
		w.inUse[d] = false
		ring.WriteString(w.bondSymbol(b))
		ring.WriteString(ringDigit(d))
		order = append(order, m.bonds[b].Other(u))
	}
	for _, b := range w.opens[u] {
		d := w.freeDigit()
		w.digits[b] = d
		ring.WriteString(ringDigit(d))
		order = append(order, m.bonds[b].Other(u))
	}
	order = append(order, w.children[u]...)

	w.sb.WriteString(w.atomSymbol(u, order))
	w.sb.WriteString(ring.String())

	for k, c := range w.children[u] {
		b, _ := m.BondBetween(u, c)
		last := k == len(w.children[u])-1
		if !last {
			w.sb.WriteByte('(')
		}
		w.sb.WriteString(w.bondSymbol(b))
		w.emit(c)
		if !last {
			w.sb.WriteByte(')')
		}
	}
}

func (w *smilesWriter) freeDigit() int {
	for d := 1; ; d++ {
		for d >= len(w.inUse) {
			w.inUse = append(w.inUse, false)
		}
		if !w.inUse[d] {
			w.inUse[d] = true
			return d
		}
	}
}

func ringDigit(d int) string {
	if d < 10 {
		return strconv.Itoa(d)
	}
	return "%" + strconv.Itoa(d)
}

func (w *smilesWriter) bondSymbol(b int) string {
	bond := w.mol.bonds[b]
	switch bond.Order {
	case BondDouble:
		return "="
	case BondTriple:
		return "#"
	case BondAromatic:
		if w.mol.atoms[bond.Begin].Aromatic && w.mol.atoms[bond.End].Aromatic {
			return ""
		}
		return ":"
	default:
		if w.mol.atoms[bond.Begin].Aromatic && w.mol.atoms[bond.End].Aromatic {
			return "-"
		}
		return ""
	}
}

// atomSymbol writes atom u, using brackets only when the organic subset cannot express it.
func (w *smilesWriter) atomSymbol(u int, order []int) string {
	m := w.mol
	a := m.atoms[u]
	sym := ElementSymbol(a.Element)
	if a.Aromatic {
		sym = strings.ToLower(sym)
	}

	chiral := ChiralNone
	if a.Chiral != ChiralNone {
		from := m.chiralNeighbors(u)
		if sameMembers(from, order) {
			chiral = a.Chiral
			if permutationParity(from, order) {
				chiral = chiral.flip()
			}
		}
	}

	hs := a.NumExplicitHs + a.implicitHs
	aromaticOK := !a.Aromatic || strings.Contains("bcnops", sym) && len(sym) == 1
	bare := (organicSubset[a.Element] || a.Element == 0) &&
		aromaticOK &&
		a.Isotope == 0 && a.Charge == 0 && a.Class == 0 && chiral == ChiralNone &&
		hs == m.organicHs(u)
	if bare {
		return sym
	}

	var sb strings.Builder
	sb.WriteByte('[')
	if a.Isotope > 0 {
		sb.WriteString(strconv.Itoa(a.Isotope))
	}
	sb.WriteString(sym)
	switch chiral {
	case ChiralCCW:
		sb.WriteString("@")
	case ChiralCW:
		sb.WriteString("@@")
	}
	if hs > 0 {
		sb.WriteByte('H')
		if hs > 1 {
			sb.WriteString(strconv.Itoa(hs))
		}
	}
	switch {
	case a.Charge == 1:
		sb.WriteByte('+')
	case a.Charge == -1:
		sb.WriteByte('-')
	case a.Charge > 1:
		sb.WriteString("+" + strconv.Itoa(a.Charge))
	case a.Charge < -1:
		sb.WriteString("-" + strconv.Itoa(-a.Charge))
	}
	if a.Class > 0 {
		sb.WriteString(":" + strconv.Itoa(a.Class))
	}
	sb.WriteByte(']')
	return sb.String()
}

func sameMembers(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	x, y := slices.Clone(a), slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)
	return slices.Equal(x, y)
}
