package molprint

import "github.com/cockroachdb/errors"

// ResultType selects the output form of the hashed topological fingerprints.
type ResultType string

const (
	// ResultDefault produces a SparseCountVect keyed by unfolded 32-bit identifiers.
	ResultDefault ResultType = "default"

	// ResultBitVect produces a BitVect of NBits positions.
	ResultBitVect ResultType = "as_bit_vect"

	// ResultHashed produces a CountVect of NBits positions.
	ResultHashed ResultType = "hashed"
)

// ParseResultType validates a result type name.
func ParseResultType(s string) (ResultType, error) {
	rt := ResultType(s)
	if err := rt.validate(); err != nil {
		return "", err
	}
	return rt, nil
}

func (r ResultType) validate() error {
	switch r {
	case ResultDefault, ResultBitVect, ResultHashed:
		return nil
	}
	return errors.Wrapf(ErrInvalidConfig, "result_type must be one of %q, %q or %q, got %q",
		ResultDefault, ResultBitVect, ResultHashed, string(r))
}

// width returns the output width for nbits under this result type.
func (r ResultType) width(nbits int) int {
	if r == ResultDefault {
		return SparseLength
	}
	return nbits
}

// shape turns identifier counts into the requested output form.
func (r ResultType) shape(counts map[uint32]uint32, nbits int) Fingerprint {
	switch r {
	case ResultBitVect:
		v := NewBitVect(nbits)
		for id := range counts {
			v.Set(int(id % uint32(nbits)))
		}
		return v
	case ResultHashed:
		v := NewCountVect(nbits)
		for id, c := range counts {
			v.Add(int(id%uint32(nbits)), c)
		}
		return v
	default:
		v := NewSparseCountVect()
		for id, c := range counts {
			v.Add(id, c)
		}
		return v
	}
}
