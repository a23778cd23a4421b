package molprint

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// SmilesError describes where a SMILES string failed to parse.
// It matches ErrInvalidSmiles with errors.Is.
type SmilesError struct {
	Smiles string
	Pos    int
	Msg    string
}

func (e *SmilesError) Error() string {
	return fmt.Sprintf("invalid smiles %q at offset %d: %s", e.Smiles, e.Pos, e.Msg)
}

// Is makes errors.Is(err, ErrInvalidSmiles) succeed.
func (e *SmilesError) Is(target error) bool { return target == ErrInvalidSmiles }

// ringBond is an open ring closure waiting for its partner.
type ringBond struct {
	atom  int
	order BondOrder
	set   bool // order was written explicitly at the opening
	slot  int  // index into the opener's chiralOrder
}

type smilesParser struct {
	s       string
	pos     int
	mol     *Mol
	prev    int
	branch  []int
	rings   map[int]ringBond
	order   BondOrder
	orderOK bool
}

// ParseSmiles parses a SMILES string into a molecule.
//
// Supported syntax: organic-subset and bracket atoms (isotope, chirality @/@@, hydrogen
// count, charge, atom class), branches, ring closures including %nn, bond symbols
// - = # : / \ and the dot disconnection. Directional bonds are read as single bonds.
//
// Example:
//
//	mol, err := ParseSmiles("c1ccccc1O")
//	if err != nil {
//	    log.Fatal(err)
//	}
func ParseSmiles(smiles string) (*Mol, error) {
	p := &smilesParser{
		s:     strings.TrimSpace(smiles),
		mol:   &Mol{},
		prev:  -1,
		rings: make(map[int]ringBond),
	}
	if p.s == "" {
		return nil, &SmilesError{Smiles: smiles, Pos: 0, Msg: "empty string"}
	}
	if err := p.parse(); err != nil {
		return nil, err
	}
	if err := p.mol.finalize(); err != nil {
		return nil, errors.Mark(&SmilesError{Smiles: smiles, Pos: len(p.s), Msg: err.Error()}, ErrInvalidMolecule)
	}
	return p.mol, nil
}

// MustParseSmiles is like ParseSmiles but panics on error. It simplifies
// initialization of package-level molecules and tests.
func MustParseSmiles(smiles string) *Mol {
	m, err := ParseSmiles(smiles)
	if err != nil {
		panic(err)
	}
	return m
}

func (p *smilesParser) fail(msg string, args ...any) error {
	return &SmilesError{Smiles: p.s, Pos: p.pos, Msg: fmt.Sprintf(msg, args...)}
}

func (p *smilesParser) parse() error {
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		switch {
		case c == '(':
			if p.prev < 0 {
				return p.fail("branch without preceding atom")
			}
			p.branch = append(p.branch, p.prev)
			p.pos++
		case c == ')':
			if len(p.branch) == 0 {
				return p.fail("unbalanced ')'")
			}
			if p.orderOK {
				return p.fail("bond symbol before ')'")
			}
			p.prev = p.branch[len(p.branch)-1]
			p.branch = p.branch[:len(p.branch)-1]
			p.pos++
		case c == '.':
			if p.orderOK {
				return p.fail("bond symbol before '.'")
			}
			p.prev = -1
			p.pos++
		case strings.IndexByte("-=#:/\\", c) >= 0:
			if p.orderOK {
				return p.fail("consecutive bond symbols")
			}
			p.order = bondSymbolOrder(c)
			p.orderOK = true
			p.pos++
		case c == '%' || (c >= '0' && c <= '9'):
			if err := p.ringClosure(); err != nil {
				return err
			}
		case c == '[':
			if err := p.bracketAtom(); err != nil {
				return err
			}
		default:
			if err := p.organicAtom(); err != nil {
				return err
			}
		}
	}
	if len(p.branch) > 0 {
		return p.fail("unclosed branch")
	}
	if len(p.rings) > 0 {
		for n := range p.rings {
			return p.fail("unclosed ring %d", n)
		}
	}
	if p.orderOK {
		return p.fail("dangling bond symbol")
	}
	return nil
}

func bondSymbolOrder(c byte) BondOrder {
	switch c {
	case '=':
		return BondDouble
	case '#':
		return BondTriple
	case ':':
		return BondAromatic
	default:
		return BondSingle
	}
}

func (p *smilesParser) defaultOrder(a, b int) BondOrder {
	if p.mol.atoms[a].Aromatic && p.mol.atoms[b].Aromatic {
		return BondAromatic
	}
	return BondSingle
}

// addAtom appends an atom and bonds it to the previous one.
func (p *smilesParser) addAtom(a Atom, bracketHs int) {
	idx := len(p.mol.atoms)
	p.mol.atoms = append(p.mol.atoms, a)
	p.mol.adj = append(p.mol.adj, nil)
	if p.prev >= 0 {
		order := p.defaultOrder(p.prev, idx)
		if p.orderOK {
			order = p.order
		}
		p.mol.addBond(p.prev, idx, order)
		p.mol.atoms[idx].chiralOrder = append(p.mol.atoms[idx].chiralOrder, p.prev)
		p.mol.atoms[p.prev].chiralOrder = append(p.mol.atoms[p.prev].chiralOrder, idx)
	}
	if bracketHs > 0 {
		p.mol.atoms[idx].chiralOrder = append(p.mol.atoms[idx].chiralOrder, -1)
	}
	p.orderOK = false
	p.prev = idx
}

func (p *smilesParser) organicAtom() error {
	c := p.s[p.pos]
	var sym string
	aromatic := false
	switch c {
	case 'C':
		if strings.HasPrefix(p.s[p.pos:], "Cl") {
			sym = "Cl"
		} else {
			sym = "C"
		}
	case 'B':
		if strings.HasPrefix(p.s[p.pos:], "Br") {
			sym = "Br"
		} else {
			sym = "B"
		}
	case 'N', 'O', 'P', 'S', 'F', 'I':
		sym = string(c)
	case 'b', 'c', 'n', 'o', 'p', 's':
		sym = strings.ToUpper(string(c))
		aromatic = true
	case '*':
		sym = "*"
	default:
		return p.fail("unexpected character %q", c)
	}
	z, _ := AtomicNumber(sym)
	p.pos += len(sym)
	p.addAtom(Atom{Element: z, Aromatic: aromatic}, 0)
	return nil
}

func (p *smilesParser) bracketAtom() error {
	end := strings.IndexByte(p.s[p.pos:], ']')
	if end < 0 {
		return p.fail("unclosed bracket atom")
	}
	body := p.s[p.pos+1 : p.pos+end]
	start := p.pos
	p.pos++
	a := Atom{NoImplicit: true}
	i := 0

	for i < len(body) && body[i] >= '0' && body[i] <= '9' {
		a.Isotope = a.Isotope*10 + int(body[i]-'0')
		i++
	}

	switch {
	case i < len(body) && body[i] == '*':
		a.Element = 0
		i++
	case i+1 < len(body) && isLower(body[i]) && isLower(body[i+1]) && aromaticTwoLetter(body[i:i+2]):
		z, _ := AtomicNumber(strings.ToUpper(body[i:i+1]) + body[i+1:i+2])
		a.Element, a.Aromatic = z, true
		i += 2
	case i < len(body) && isLower(body[i]):
		z, ok := AtomicNumber(strings.ToUpper(body[i : i+1]))
		if !ok || strings.IndexByte("bcnops", body[i]) < 0 {
			p.pos = start
			return p.fail("unknown aromatic symbol %q", body[i])
		}
		a.Element, a.Aromatic = z, true
		i++
	case i < len(body) && isUpper(body[i]):
		if i+1 < len(body) && isLower(body[i+1]) {
			if z, ok := AtomicNumber(body[i : i+2]); ok {
				a.Element = z
				i += 2
				break
			}
		}
		z, ok := AtomicNumber(body[i : i+1])
		if !ok {
			p.pos = start
			return p.fail("unknown element %q", body[i])
		}
		a.Element = z
		i++
	default:
		p.pos = start
		return p.fail("missing element symbol")
	}

	if strings.HasPrefix(body[i:], "@@") {
		a.Chiral = ChiralCW
		i += 2
	} else if i < len(body) && body[i] == '@' {
		a.Chiral = ChiralCCW
		i++
	}

	if i < len(body) && body[i] == 'H' {
		i++
		a.NumExplicitHs = 1
		if i < len(body) && body[i] >= '0' && body[i] <= '9' {
			a.NumExplicitHs = int(body[i] - '0')
			i++
		}
	}

	for i < len(body) && (body[i] == '+' || body[i] == '-') {
		sign := 1
		if body[i] == '-' {
			sign = -1
		}
		sym := body[i]
		i++
		n := 0
		for i < len(body) && body[i] >= '0' && body[i] <= '9' {
			n = n*10 + int(body[i]-'0')
			i++
		}
		if n == 0 {
			n = 1
			for i < len(body) && body[i] == sym {
				n++
				i++
			}
		}
		a.Charge += sign * n
	}

	if i < len(body) && body[i] == ':' {
		i++
		for i < len(body) && body[i] >= '0' && body[i] <= '9' {
			a.Class = a.Class*10 + int(body[i]-'0')
			i++
		}
	}

	if i != len(body) {
		p.pos = start + 1 + i
		return p.fail("unexpected %q in bracket atom", body[i])
	}
	p.pos = start + end + 1
	hs := 0
	if a.Chiral != ChiralNone {
		hs = a.NumExplicitHs
	}
	p.addAtom(a, hs)
	return nil
}

func aromaticTwoLetter(s string) bool {
	return s == "se" || s == "as" || s == "te"
}

func isLower(c byte) bool { return c >= 'a' && c <= 'z' }
func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }

func (p *smilesParser) ringClosure() error {
	if p.prev < 0 {
		return p.fail("ring closure without preceding atom")
	}
	var num int
	if p.s[p.pos] == '%' {
		if p.pos+2 >= len(p.s) || !isDigit(p.s[p.pos+1]) || !isDigit(p.s[p.pos+2]) {
			return p.fail("'%%' must be followed by two digits")
		}
		num = int(p.s[p.pos+1]-'0')*10 + int(p.s[p.pos+2]-'0')
		p.pos += 3
	} else {
		num = int(p.s[p.pos] - '0')
		p.pos++
	}

	open, ok := p.rings[num]
	if !ok {
		p.mol.atoms[p.prev].chiralOrder = append(p.mol.atoms[p.prev].chiralOrder, -2)
		p.rings[num] = ringBond{
			atom:  p.prev,
			order: p.order,
			set:   p.orderOK,
			slot:  len(p.mol.atoms[p.prev].chiralOrder) - 1,
		}
		p.orderOK = false
		return nil
	}

	delete(p.rings, num)
	if open.atom == p.prev {
		return p.fail("ring closure %d bonds an atom to itself", num)
	}
	if _, dup := p.mol.BondBetween(open.atom, p.prev); dup {
		return p.fail("ring closure %d duplicates an existing bond", num)
	}
	order := p.defaultOrder(open.atom, p.prev)
	switch {
	case p.orderOK && open.set && p.order != open.order:
		return p.fail("conflicting bond orders on ring closure %d", num)
	case p.orderOK:
		order = p.order
	case open.set:
		order = open.order
	}
	p.mol.addBond(open.atom, p.prev, order)
	p.mol.atoms[open.atom].chiralOrder[open.slot] = p.prev
	p.mol.atoms[p.prev].chiralOrder = append(p.mol.atoms[p.prev].chiralOrder, open.atom)
	p.orderOK = false
	return nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
