package molprint

import (
	"math"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"

	"github.com/wizenheimer/molprint/internal/log"
)

// ForceFieldKind selects the parameter set of the conformer force field.
type ForceFieldKind string

const (
	// UFF selects stiff bonds with a soft torsion term.
	UFF ForceFieldKind = "uff"

	// MMFF94 selects stiffer angles and torsions.
	MMFF94 ForceFieldKind = "mmff94"

	// MMFF94s is MMFF94 with stronger planarity at sp2 centers.
	MMFF94s ForceFieldKind = "mmff94s"
)

// forceFieldParams are the force constants of the harmonic model.
type forceFieldParams struct {
	bond      float64 // per Å² of bond stretch
	angle     float64 // per Å² of 1-3 distance deviation
	repulsion float64 // per Å² of overlap below the contact distance
	torsion3  float64 // threefold sp3 torsion barrier
	torsion2  float64 // twofold sp2 planarity barrier
}

// Singleton parameter sets. These are read-only and safe to share across goroutines.
var (
	uffParams     = forceFieldParams{bond: 350, angle: 60, repulsion: 10, torsion3: 1.0, torsion2: 2.5}
	mmff94Params  = forceFieldParams{bond: 400, angle: 80, repulsion: 12, torsion3: 1.4, torsion2: 3.5}
	mmff94sParams = forceFieldParams{bond: 400, angle: 80, repulsion: 12, torsion3: 1.4, torsion2: 6.0}
)

// forceFieldFor returns the parameters of a force field kind.
func forceFieldFor(kind ForceFieldKind) (forceFieldParams, error) {
	switch kind {
	case UFF:
		return uffParams, nil
	case MMFF94:
		return mmff94Params, nil
	case MMFF94s:
		return mmff94sParams, nil
	default:
		return forceFieldParams{}, errors.Wrapf(ErrInvalidConfig, "unknown force field %q", string(kind))
	}
}

type distanceTerm struct {
	i, j   int
	target float64
	k      float64
	// onlyBelow restricts the term to distances shorter than target.
	onlyBelow bool
}

type torsionTerm struct {
	a, b, c, d int
	k          float64
	fold       int // 2 favors planar, 3 favors staggered
}

// forceField is the energy model of one molecule.
type forceField struct {
	n        int
	distance []distanceTerm
	torsions []torsionTerm
}

// hybridization returns 1 for sp, 2 for sp2 and 3 for sp3 centers.
func hybridization(m *Mol, i int) int {
	doubles, aromatic := 0, false
	for _, e := range m.adj[i] {
		switch m.bonds[e.bond].Order {
		case BondTriple:
			return 1
		case BondDouble:
			doubles++
		case BondAromatic:
			aromatic = true
		}
	}
	switch {
	case doubles >= 2:
		return 1
	case doubles == 1 || aromatic:
		return 2
	}
	return 3
}

func idealAngle(hyb int) float64 {
	switch hyb {
	case 1:
		return math.Pi
	case 2:
		return 2 * math.Pi / 3
	}
	return 109.47 * math.Pi / 180
}

func bondLength(m *Mol, b int) float64 {
	bond := m.bonds[b]
	r := CovalentRadius(m.atoms[bond.Begin].Element) + CovalentRadius(m.atoms[bond.End].Element)
	switch bond.Order {
	case BondDouble:
		r *= 0.87
	case BondTriple:
		r *= 0.78
	case BondAromatic:
		r *= 0.93
	}
	return r
}

// newForceField derives the energy terms of m.
func newForceField(m *Mol, p forceFieldParams) *forceField {
	n := m.NumAtoms()
	ff := &forceField{n: n}
	topo := m.TopologicalDistances()

	lengths := make(map[[2]int]float64, m.NumBonds())
	for b, bond := range m.bonds {
		r := bondLength(m, b)
		lengths[[2]int{bond.Begin, bond.End}] = r
		lengths[[2]int{bond.End, bond.Begin}] = r
		ff.distance = append(ff.distance, distanceTerm{i: bond.Begin, j: bond.End, target: r, k: p.bond})
	}

	for c := 0; c < n; c++ {
		theta := idealAngle(hybridization(m, c))
		nb := m.adj[c]
		for x := 0; x < len(nb); x++ {
			for y := x + 1; y < len(nb); y++ {
				a, b := nb[x].atom, nb[y].atom
				ra, rb := lengths[[2]int{a, c}], lengths[[2]int{b, c}]
				d := math.Sqrt(ra*ra + rb*rb - 2*ra*rb*math.Cos(theta))
				ff.distance = append(ff.distance, distanceTerm{i: a, j: b, target: d, k: p.angle})
			}
		}
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			switch d := topo[i][j]; {
			case d == 3:
				ff.distance = append(ff.distance, distanceTerm{i: i, j: j, target: 2.5, k: p.repulsion, onlyBelow: true})
			case d > 3 || d < 0:
				ff.distance = append(ff.distance, distanceTerm{i: i, j: j, target: 3.0, k: p.repulsion, onlyBelow: true})
			}
		}
	}

	for _, bond := range m.bonds {
		b, c := bond.Begin, bond.End
		if len(m.adj[b]) < 2 || len(m.adj[c]) < 2 || bond.Order == BondTriple {
			continue
		}
		term := torsionTerm{k: p.torsion3, fold: 3}
		if hybridization(m, b) == 2 && hybridization(m, c) == 2 {
			term = torsionTerm{k: p.torsion2, fold: 2}
		}
		for _, ea := range m.adj[b] {
			if ea.atom == c {
				continue
			}
			for _, ed := range m.adj[c] {
				if ed.atom == b || ed.atom == ea.atom {
					continue
				}
				t := term
				t.a, t.b, t.c, t.d = ea.atom, b, c, ed.atom
				ff.torsions = append(ff.torsions, t)
			}
		}
	}
	return ff
}

// energy returns the total energy of coords and accumulates its gradient into grad
// when grad is not nil.
func (ff *forceField) energy(coords [][3]float64, grad [][3]float64) float64 {
	e := 0.0
	for _, t := range ff.distance {
		var diff [3]float64
		r2 := 0.0
		for k := 0; k < 3; k++ {
			diff[k] = coords[t.i][k] - coords[t.j][k]
			r2 += diff[k] * diff[k]
		}
		r := math.Sqrt(r2)
		dev := r - t.target
		if t.onlyBelow && dev >= 0 {
			continue
		}
		e += t.k * dev * dev
		if grad != nil && r > 1e-9 {
			f := 2 * t.k * dev / r
			for k := 0; k < 3; k++ {
				grad[t.i][k] += f * diff[k]
				grad[t.j][k] -= f * diff[k]
			}
		}
	}
	for _, t := range ff.torsions {
		e += torsionEnergy(coords, t)
		if grad != nil {
			torsionGradient(coords, t, grad)
		}
	}
	return e
}

func torsionEnergy(coords [][3]float64, t torsionTerm) float64 {
	phi := dihedral(coords[t.a], coords[t.b], coords[t.c], coords[t.d])
	if t.fold == 2 {
		return t.k * (1 - math.Cos(2*phi))
	}
	return t.k * (1 + math.Cos(3*phi))
}

// torsionGradient adds the central-difference gradient of one torsion term.
func torsionGradient(coords [][3]float64, t torsionTerm, grad [][3]float64) {
	atoms := [4]int{t.a, t.b, t.c, t.d}
	x := make([]float64, 12)
	for n, atom := range atoms {
		copy(x[3*n:3*n+3], coords[atom][:])
	}
	g := fd.Gradient(nil, func(x []float64) float64 {
		return torsionEnergyAt(t, x)
	}, x, &fd.Settings{Formula: fd.Central})
	for n, atom := range atoms {
		for k := 0; k < 3; k++ {
			grad[atom][k] += g[3*n+k]
		}
	}
}

// torsionEnergyAt is torsionEnergy over the packed positions of the four atoms.
func torsionEnergyAt(t torsionTerm, x []float64) float64 {
	var p [4][3]float64
	for n := range p {
		copy(p[n][:], x[3*n:3*n+3])
	}
	local := torsionTerm{a: 0, b: 1, c: 2, d: 3, k: t.k, fold: t.fold}
	return torsionEnergy(p[:], local)
}

func dihedral(p0, p1, p2, p3 [3]float64) float64 {
	b0 := sub3(p0, p1)
	b1 := sub3(p2, p1)
	b2 := sub3(p3, p2)
	n1 := cross3(b0, b1)
	n2 := cross3(b1, b2)
	m1 := cross3(n1, b1)
	bl := math.Sqrt(dot3(b1, b1))
	if bl < 1e-9 {
		return 0
	}
	x := dot3(n1, n2)
	y := dot3(m1, n2) / bl
	return math.Atan2(y, x)
}

func sub3(a, b [3]float64) [3]float64 { return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }
func dot3(a, b [3]float64) float64    { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }
func cross3(a, b [3]float64) [3]float64 {
	return [3]float64{a[1]*b[2] - a[2]*b[1], a[2]*b[0] - a[0]*b[2], a[0]*b[1] - a[1]*b[0]}
}

// minimize relaxes coords in place with L-BFGS and returns the final energy.
// It returns NaN when the optimizer could not start.
func (ff *forceField) minimize(coords [][3]float64, maxIters int) float64 {
	grad := make([][3]float64, ff.n)
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return ff.energy(unpackCoords(x), nil)
		},
		Grad: func(dst, x []float64) {
			for i := range grad {
				grad[i] = [3]float64{}
			}
			ff.energy(unpackCoords(x), grad)
			for i := range grad {
				copy(dst[3*i:3*i+3], grad[i][:])
			}
		},
	}
	settings := &optimize.Settings{
		MajorIterations:   maxIters,
		GradientThreshold: 1e-4,
	}
	res, err := optimize.Minimize(problem, packCoords(coords), settings, &optimize.LBFGS{})
	if res == nil {
		log.L().Debug("minimization failed", zap.Int("atoms", ff.n), zap.Error(err))
		return math.NaN()
	}
	copy(coords, unpackCoords(res.X))
	return res.F
}

func packCoords(coords [][3]float64) []float64 {
	x := make([]float64, 3*len(coords))
	for i, c := range coords {
		copy(x[3*i:3*i+3], c[:])
	}
	return x
}

func unpackCoords(x []float64) [][3]float64 {
	coords := make([][3]float64, len(x)/3)
	for i := range coords {
		copy(coords[i][:], x[3*i:3*i+3])
	}
	return coords
}
