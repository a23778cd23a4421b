package molprint

import "math"

// elementSymbols is indexed by atomic number. Index 0 is the SMILES wildcard.
var elementSymbols = [...]string{
	"*",
	"H", "He",
	"Li", "Be", "B", "C", "N", "O", "F", "Ne",
	"Na", "Mg", "Al", "Si", "P", "S", "Cl", "Ar",
	"K", "Ca", "Sc", "Ti", "V", "Cr", "Mn", "Fe", "Co", "Ni", "Cu", "Zn", "Ga", "Ge", "As", "Se", "Br", "Kr",
	"Rb", "Sr", "Y", "Zr", "Nb", "Mo", "Tc", "Ru", "Rh", "Pd", "Ag", "Cd", "In", "Sn", "Sb", "Te", "I", "Xe",
	"Cs", "Ba", "La", "Ce", "Pr", "Nd", "Pm", "Sm", "Eu", "Gd", "Tb", "Dy", "Ho", "Er", "Tm", "Yb", "Lu",
	"Hf", "Ta", "W", "Re", "Os", "Ir", "Pt", "Au", "Hg", "Tl", "Pb", "Bi", "Po", "At", "Rn",
	"Fr", "Ra", "Ac", "Th", "Pa", "U", "Np", "Pu", "Am", "Cm", "Bk", "Cf", "Es", "Fm", "Md", "No", "Lr",
	"Rf", "Db", "Sg", "Bh", "Hs", "Mt", "Ds", "Rg", "Cn", "Nh", "Fl", "Mc", "Lv", "Ts", "Og",
}

// standard atomic weights for the first 56 elements; heavier elements fall back
// to an estimate in AtomicMass.
var atomicMasses = [...]float64{
	0,
	1.008, 4.003,
	6.94, 9.012, 10.81, 12.011, 14.007, 15.999, 18.998, 20.180,
	22.990, 24.305, 26.982, 28.085, 30.974, 32.06, 35.45, 39.948,
	39.098, 40.078, 44.956, 47.867, 50.942, 51.996, 54.938, 55.845, 58.933, 58.693, 63.546, 65.38, 69.723, 72.630, 74.922, 78.971, 79.904, 83.798,
	85.468, 87.62, 88.906, 91.224, 92.906, 95.95, 98.0, 101.07, 102.91, 106.42, 107.87, 112.41, 114.82, 118.71, 121.76, 127.60, 126.90, 131.29,
	132.91, 137.33,
}

var heavyMasses = map[int]float64{
	78: 195.08, 79: 196.97, 80: 200.59, 81: 204.38, 82: 207.2, 83: 208.98,
}

// defaultValences lists the allowed valences used to infer implicit hydrogens.
// Elements missing from the map never receive implicit hydrogens.
var defaultValences = map[int][]int{
	1:  {1},
	3:  {1},
	5:  {3},
	6:  {4},
	7:  {3, 5},
	8:  {2},
	9:  {1},
	11: {1},
	12: {2},
	13: {3},
	14: {4},
	15: {3, 5},
	16: {2, 4, 6},
	17: {1},
	19: {1},
	20: {2},
	32: {4},
	33: {3, 5},
	34: {2, 4, 6},
	35: {1},
	50: {2, 4},
	52: {2, 4, 6},
	53: {1},
}

// single-bond covalent radii in angstroms.
var covalentRadii = map[int]float64{
	1: 0.31, 5: 0.84, 6: 0.76, 7: 0.71, 8: 0.66, 9: 0.57,
	14: 1.11, 15: 1.07, 16: 1.05, 17: 1.02, 34: 1.20, 35: 1.20, 53: 1.39,
}

// organicSubset holds the elements that may be written without brackets.
var organicSubset = map[int]bool{5: true, 6: true, 7: true, 8: true, 9: true, 15: true, 16: true, 17: true, 35: true, 53: true}

var symbolToNumber = func() map[string]int {
	m := make(map[string]int, len(elementSymbols))
	for z, s := range elementSymbols {
		m[s] = z
	}
	return m
}()

// ElementSymbol returns the symbol for an atomic number, or "*" when unknown.
func ElementSymbol(z int) string {
	if z < 0 || z >= len(elementSymbols) {
		return "*"
	}
	return elementSymbols[z]
}

// AtomicNumber returns the atomic number for a symbol and whether it is known.
func AtomicNumber(symbol string) (int, bool) {
	z, ok := symbolToNumber[symbol]
	return z, ok
}

// AtomicMass returns the standard atomic weight of element z.
func AtomicMass(z int) float64 {
	if z > 0 && z < len(atomicMasses) {
		return atomicMasses[z]
	}
	if m, ok := heavyMasses[z]; ok {
		return m
	}
	if z <= 0 {
		return 0
	}
	return math.Round(float64(z) * 2.5)
}

// CovalentRadius returns the single-bond covalent radius of element z in angstroms.
func CovalentRadius(z int) float64 {
	if r, ok := covalentRadii[z]; ok {
		return r
	}
	return 1.40
}

func isHalogen(z int) bool {
	return z == 9 || z == 17 || z == 35 || z == 53 || z == 85
}
