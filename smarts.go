package molprint

import (
	"fmt"
	"slices"
	"strings"

	"github.com/bits-and-blooms/bitset"
	"github.com/cockroachdb/errors"
)

type primKind uint8

const (
	primAny primKind = iota
	primAromatic
	primAliphatic
	primElement
	primTotalH
	primDegree
	primConnectivity
	primRingCount
	primRingSize
	primValence
	primCharge

	primBondSingle
	primBondDouble
	primBondTriple
	primBondAromatic
	primBondAny
	primBondRing
)

const (
	aromAny = iota
	aromNo
	aromYes
)

type smartsPrim struct {
	kind primKind
	val  int
	arom int
}

// exprNode is a node of a SMARTS logical expression. op is 0 for a leaf primitive,
// otherwise one of '!', '&', ',', ';'.
type exprNode struct {
	op   byte
	a, b *exprNode
	prim smartsPrim
}

func (n *exprNode) eval(test func(smartsPrim) bool) bool {
	switch n.op {
	case 0:
		return test(n.prim)
	case '!':
		return !n.a.eval(test)
	case ',':
		return n.a.eval(test) || n.b.eval(test)
	default:
		return n.a.eval(test) && n.b.eval(test)
	}
}

type patternBond struct {
	begin, end int
	expr       *exprNode // nil means single or aromatic
}

type backEdge struct {
	other int
	bond  int
}

// Pattern is a compiled SMARTS query. A Pattern is immutable and safe for concurrent use.
type Pattern struct {
	source string
	atoms  []*exprNode
	bonds  []patternBond
	back   [][]backEdge
}

// String returns the SMARTS the pattern was compiled from.
func (p *Pattern) String() string { return p.source }

// NumAtoms returns the number of query atoms.
func (p *Pattern) NumAtoms() int { return len(p.atoms) }

// CompileSmarts compiles a SMARTS query.
//
// Supported atom primitives: * A a, element symbols, #n, H<n>, D<n>, X<n>, R<n>, r<n>,
// v<n>, +<n>, -<n>. Supported bond primitives: - = # : ~ @. Both accept the logical
// operators ! & , ; with SMARTS precedence. Recursive SMARTS is not supported.
func CompileSmarts(smarts string) (*Pattern, error) {
	c := &smartsCompiler{s: smarts, prev: -1, rings: make(map[int]smartsRing)}
	if strings.TrimSpace(smarts) == "" {
		return nil, c.fail("empty pattern")
	}
	if err := c.compile(); err != nil {
		return nil, err
	}
	p := c.pat
	p.source = smarts
	p.back = make([][]backEdge, len(p.atoms))
	for b, bond := range p.bonds {
		lo, hi := bond.begin, bond.end
		if lo > hi {
			lo, hi = hi, lo
		}
		p.back[hi] = append(p.back[hi], backEdge{other: lo, bond: b})
	}
	return &p, nil
}

// MustCompileSmarts is like CompileSmarts but panics on error.
func MustCompileSmarts(smarts string) *Pattern {
	p, err := CompileSmarts(smarts)
	if err != nil {
		panic(err)
	}
	return p
}

type smartsRing struct {
	atom int
	expr *exprNode
}

type smartsCompiler struct {
	s      string
	pos    int
	pat    Pattern
	prev   int
	branch []int
	rings  map[int]smartsRing
	bond   *exprNode
	hasB   bool
}

func (c *smartsCompiler) fail(msg string, args ...any) error {
	return errors.Wrapf(ErrInvalidSmarts, "%q at offset %d: %s", c.s, c.pos, fmt.Sprintf(msg, args...))
}

const smartsBondChars = "-=#:~@!,;&/\\"

func (c *smartsCompiler) compile() error {
	for c.pos < len(c.s) {
		ch := c.s[c.pos]
		switch {
		case ch == '(':
			if c.prev < 0 {
				return c.fail("branch without preceding atom")
			}
			c.branch = append(c.branch, c.prev)
			c.pos++
		case ch == ')':
			if len(c.branch) == 0 {
				return c.fail("unbalanced ')'")
			}
			c.prev = c.branch[len(c.branch)-1]
			c.branch = c.branch[:len(c.branch)-1]
			c.pos++
		case ch == '.':
			c.prev = -1
			c.pos++
		case strings.IndexByte(smartsBondChars, ch) >= 0:
			end := c.pos
			for end < len(c.s) && strings.IndexByte(smartsBondChars, c.s[end]) >= 0 {
				end++
			}
			expr, err := parseExpr(c.s[c.pos:end], bondPrimitive)
			if err != nil {
				return c.fail("bond: %v", err)
			}
			c.bond, c.hasB = expr, true
			c.pos = end
		case ch == '%' || isDigit(ch):
			if err := c.ringClosure(); err != nil {
				return err
			}
		case ch == '[':
			end := strings.IndexByte(c.s[c.pos:], ']')
			if end < 0 {
				return c.fail("unclosed bracket")
			}
			expr, err := parseExpr(c.s[c.pos+1:c.pos+end], atomPrimitive)
			if err != nil {
				return c.fail("atom: %v", err)
			}
			c.pos += end + 1
			c.addAtom(expr)
		default:
			expr, n, err := bareAtom(c.s[c.pos:])
			if err != nil {
				return c.fail("%v", err)
			}
			c.pos += n
			c.addAtom(expr)
		}
	}
	if len(c.branch) > 0 {
		return c.fail("unclosed branch")
	}
	if len(c.rings) > 0 {
		return c.fail("unclosed ring")
	}
	return nil
}

func (c *smartsCompiler) addAtom(expr *exprNode) {
	idx := len(c.pat.atoms)
	c.pat.atoms = append(c.pat.atoms, expr)
	if c.prev >= 0 {
		var b *exprNode
		if c.hasB {
			b = c.bond
		}
		c.pat.bonds = append(c.pat.bonds, patternBond{begin: c.prev, end: idx, expr: b})
	}
	c.prev = idx
	c.bond, c.hasB = nil, false
}

func (c *smartsCompiler) ringClosure() error {
	if c.prev < 0 {
		return c.fail("ring closure without preceding atom")
	}
	num := 0
	if c.s[c.pos] == '%' {
		if c.pos+2 >= len(c.s) || !isDigit(c.s[c.pos+1]) || !isDigit(c.s[c.pos+2]) {
			return c.fail("'%%' must be followed by two digits")
		}
		num = int(c.s[c.pos+1]-'0')*10 + int(c.s[c.pos+2]-'0')
		c.pos += 3
	} else {
		num = int(c.s[c.pos] - '0')
		c.pos++
	}
	var expr *exprNode
	if c.hasB {
		expr = c.bond
	}
	c.bond, c.hasB = nil, false
	open, ok := c.rings[num]
	if !ok {
		c.rings[num] = smartsRing{atom: c.prev, expr: expr}
		return nil
	}
	delete(c.rings, num)
	if expr == nil {
		expr = open.expr
	}
	c.pat.bonds = append(c.pat.bonds, patternBond{begin: open.atom, end: c.prev, expr: expr})
	return nil
}

// bareAtom parses an atom written outside brackets and returns its length.
func bareAtom(s string) (*exprNode, int, error) {
	leaf := func(p smartsPrim) *exprNode { return &exprNode{prim: p} }
	switch {
	case s[0] == '*':
		return leaf(smartsPrim{kind: primAny}), 1, nil
	case s[0] == 'A':
		if len(s) > 1 && isLower(s[1]) {
			break
		}
		return leaf(smartsPrim{kind: primAliphatic}), 1, nil
	case s[0] == 'a':
		return leaf(smartsPrim{kind: primAromatic}), 1, nil
	case strings.HasPrefix(s, "Cl"):
		return leaf(smartsPrim{kind: primElement, val: 17, arom: aromNo}), 2, nil
	case strings.HasPrefix(s, "Br"):
		return leaf(smartsPrim{kind: primElement, val: 35, arom: aromNo}), 2, nil
	case strings.IndexByte("BCNOPSFI", s[0]) >= 0:
		z, _ := AtomicNumber(s[:1])
		return leaf(smartsPrim{kind: primElement, val: z, arom: aromNo}), 1, nil
	case strings.IndexByte("bcnops", s[0]) >= 0:
		z, _ := AtomicNumber(strings.ToUpper(s[:1]))
		return leaf(smartsPrim{kind: primElement, val: z, arom: aromYes}), 1, nil
	}
	return nil, 0, errors.Newf("unexpected character %q", s[0])
}

// exprParser parses SMARTS logical expressions. Precedence from high to low is
// '!', implicit and '&', ',' and ';'.
type exprParser struct {
	s    string
	pos  int
	prim func(p *exprParser) (smartsPrim, error)
}

func parseExpr(s string, prim func(p *exprParser) (smartsPrim, error)) (*exprNode, error) {
	if s == "" {
		return nil, errors.Newf("empty expression")
	}
	p := &exprParser{s: s, prim: prim}
	n, err := p.low()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.s) {
		return nil, errors.Newf("unexpected %q at %d", p.s[p.pos], p.pos)
	}
	return n, nil
}

func (p *exprParser) peek() byte {
	if p.pos < len(p.s) {
		return p.s[p.pos]
	}
	return 0
}

func (p *exprParser) low() (*exprNode, error) {
	n, err := p.or()
	if err != nil {
		return nil, err
	}
	for p.peek() == ';' {
		p.pos++
		r, err := p.or()
		if err != nil {
			return nil, err
		}
		n = &exprNode{op: ';', a: n, b: r}
	}
	return n, nil
}

func (p *exprParser) or() (*exprNode, error) {
	n, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.peek() == ',' {
		p.pos++
		r, err := p.and()
		if err != nil {
			return nil, err
		}
		n = &exprNode{op: ',', a: n, b: r}
	}
	return n, nil
}

func (p *exprParser) and() (*exprNode, error) {
	n, err := p.not()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek() {
		case '&':
			p.pos++
		case 0, ';', ',':
			return n, nil
		}
		r, err := p.not()
		if err != nil {
			return nil, err
		}
		n = &exprNode{op: '&', a: n, b: r}
	}
}

func (p *exprParser) not() (*exprNode, error) {
	if p.peek() == '!' {
		p.pos++
		n, err := p.not()
		if err != nil {
			return nil, err
		}
		return &exprNode{op: '!', a: n}, nil
	}
	if p.pos >= len(p.s) {
		return nil, errors.Newf("missing primitive")
	}
	prim, err := p.prim(p)
	if err != nil {
		return nil, err
	}
	return &exprNode{prim: prim}, nil
}

// number reads an optional unsigned integer, returning def when absent.
func (p *exprParser) number(def int) int {
	start := p.pos
	v := 0
	for p.pos < len(p.s) && isDigit(p.s[p.pos]) {
		v = v*10 + int(p.s[p.pos]-'0')
		p.pos++
	}
	if p.pos == start {
		return def
	}
	return v
}

func atomPrimitive(p *exprParser) (smartsPrim, error) {
	rest := p.s[p.pos:]
	c := rest[0]

	// two-letter element symbols take priority over single-letter primitives
	if isUpper(c) && len(rest) > 1 && isLower(rest[1]) {
		if z, ok := AtomicNumber(rest[:2]); ok {
			p.pos += 2
			return smartsPrim{kind: primElement, val: z, arom: aromNo}, nil
		}
	}
	if len(rest) > 1 && aromaticTwoLetter(rest[:2]) {
		z, _ := AtomicNumber(strings.ToUpper(rest[:1]) + rest[1:2])
		p.pos += 2
		return smartsPrim{kind: primElement, val: z, arom: aromYes}, nil
	}

	p.pos++
	switch c {
	case '*':
		return smartsPrim{kind: primAny}, nil
	case 'a':
		return smartsPrim{kind: primAromatic}, nil
	case 'A':
		return smartsPrim{kind: primAliphatic}, nil
	case '#':
		z := p.number(-1)
		if z < 0 {
			return smartsPrim{}, errors.Newf("'#' needs an atomic number")
		}
		return smartsPrim{kind: primElement, val: z, arom: aromAny}, nil
	case 'H':
		return smartsPrim{kind: primTotalH, val: p.number(1)}, nil
	case 'D':
		return smartsPrim{kind: primDegree, val: p.number(1)}, nil
	case 'X':
		return smartsPrim{kind: primConnectivity, val: p.number(1)}, nil
	case 'R':
		return smartsPrim{kind: primRingCount, val: p.number(-1)}, nil
	case 'r':
		return smartsPrim{kind: primRingSize, val: p.number(-1)}, nil
	case 'v':
		return smartsPrim{kind: primValence, val: p.number(1)}, nil
	case '+', '-':
		sign := 1
		if c == '-' {
			sign = -1
		}
		n := p.number(-1)
		if n < 0 {
			n = 1
			for p.peek() == c {
				n++
				p.pos++
			}
		}
		return smartsPrim{kind: primCharge, val: sign * n}, nil
	case '$':
		return smartsPrim{}, errors.Newf("recursive SMARTS is not supported")
	}
	if isUpper(c) {
		if z, ok := AtomicNumber(string(c)); ok {
			return smartsPrim{kind: primElement, val: z, arom: aromNo}, nil
		}
	}
	if strings.IndexByte("bcnops", c) >= 0 {
		z, _ := AtomicNumber(strings.ToUpper(string(c)))
		return smartsPrim{kind: primElement, val: z, arom: aromYes}, nil
	}
	p.pos--
	return smartsPrim{}, errors.Newf("unknown atom primitive %q", c)
}

func bondPrimitive(p *exprParser) (smartsPrim, error) {
	c := p.s[p.pos]
	p.pos++
	switch c {
	case '-', '/', '\\':
		return smartsPrim{kind: primBondSingle}, nil
	case '=':
		return smartsPrim{kind: primBondDouble}, nil
	case '#':
		return smartsPrim{kind: primBondTriple}, nil
	case ':':
		return smartsPrim{kind: primBondAromatic}, nil
	case '~':
		return smartsPrim{kind: primBondAny}, nil
	case '@':
		return smartsPrim{kind: primBondRing}, nil
	}
	p.pos--
	return smartsPrim{}, errors.Newf("unknown bond primitive %q", c)
}

func matchAtom(m *Mol, i int, expr *exprNode) bool {
	a := m.atoms[i]
	return expr.eval(func(p smartsPrim) bool {
		switch p.kind {
		case primAny:
			return true
		case primAromatic:
			return a.Aromatic
		case primAliphatic:
			return !a.Aromatic
		case primElement:
			if a.Element != p.val {
				return false
			}
			switch p.arom {
			case aromNo:
				return !a.Aromatic
			case aromYes:
				return a.Aromatic
			}
			return true
		case primTotalH:
			return m.TotalHs(i) == p.val
		case primDegree:
			return m.Degree(i) == p.val
		case primConnectivity:
			return m.Degree(i)+a.NumExplicitHs+a.implicitHs == p.val
		case primRingCount:
			if p.val < 0 {
				return m.IsAtomInRing(i)
			}
			return m.AtomRingCount(i) == p.val
		case primRingSize:
			if p.val < 0 {
				return m.IsAtomInRing(i)
			}
			return m.IsAtomInRingOfSize(i, p.val)
		case primValence:
			return m.Valence(i) == p.val
		case primCharge:
			return a.Charge == p.val
		}
		return false
	})
}

func matchBond(m *Mol, b int, expr *exprNode) bool {
	bond := m.bonds[b]
	if expr == nil {
		return bond.Order == BondSingle || bond.Order == BondAromatic
	}
	return expr.eval(func(p smartsPrim) bool {
		switch p.kind {
		case primBondSingle:
			return bond.Order == BondSingle
		case primBondDouble:
			return bond.Order == BondDouble
		case primBondTriple:
			return bond.Order == BondTriple
		case primBondAromatic:
			return bond.Order == BondAromatic
		case primBondAny:
			return true
		case primBondRing:
			return bond.inRing
		}
		return false
	})
}

// Matches reports whether the pattern occurs anywhere in the molecule.
func (p *Pattern) Matches(m *Mol) bool {
	found := false
	p.search(m, func([]int) bool {
		found = true
		return false
	})
	return found
}

// FindMatches returns every embedding of the pattern as molecule atom indices in query
// atom order. With unique set, embeddings covering the same atom set are reported once.
func (p *Pattern) FindMatches(m *Mol, unique bool) [][]int {
	var out [][]int
	seen := make(map[string]bool)
	p.search(m, func(mapping []int) bool {
		if unique {
			key := slices.Clone(mapping)
			slices.Sort(key)
			k := intsKey(key)
			if seen[k] {
				return true
			}
			seen[k] = true
		}
		out = append(out, slices.Clone(mapping))
		return true
	})
	return out
}

// CountMatches returns the number of embeddings, see FindMatches.
func (p *Pattern) CountMatches(m *Mol, unique bool) int {
	return len(p.FindMatches(m, unique))
}

// search enumerates embeddings by backtracking over query atoms in order. visit
// returns false to stop the search.
func (p *Pattern) search(m *Mol, visit func([]int) bool) {
	n := len(p.atoms)
	if n == 0 || n > len(m.atoms) {
		return
	}
	mapping := make([]int, n)
	used := bitset.New(uint(len(m.atoms)))

	var extend func(k int) bool
	extend = func(k int) bool {
		if k == n {
			return visit(mapping)
		}
		try := func(cand int) bool {
			if used.Test(uint(cand)) || !matchAtom(m, cand, p.atoms[k]) {
				return true
			}
			for _, e := range p.back[k] {
				b, ok := m.BondBetween(mapping[e.other], cand)
				if !ok || !matchBond(m, b, p.bonds[e.bond].expr) {
					return true
				}
			}
			mapping[k] = cand
			used.Set(uint(cand))
			cont := extend(k + 1)
			used.Clear(uint(cand))
			return cont
		}
		if len(p.back[k]) > 0 {
			for _, e := range m.adj[mapping[p.back[k][0].other]] {
				if !try(e.atom) {
					return false
				}
			}
			return true
		}
		for cand := range m.atoms {
			if !try(cand) {
				return false
			}
		}
		return true
	}
	extend(0)
}
