package molprint

import (
	"context"

	"github.com/cockroachdb/errors"
)

// MolFromSmilesTransformer parses SMILES strings into molecules.
type MolFromSmilesTransformer struct {
	FingerprintTransformer `mapstructure:",squash"`
	// ValidOnly replaces unparsable inputs by nil instead of failing.
	ValidOnly bool `mapstructure:"valid_only" json:"valid_only"`
}

// NewMolFromSmilesTransformer returns a parser adapter.
func NewMolFromSmilesTransformer(exec FingerprintTransformer) (*MolFromSmilesTransformer, error) {
	t := &MolFromSmilesTransformer{FingerprintTransformer: exec}
	if err := t.validateBase(); err != nil {
		return nil, err
	}
	return t, nil
}

// Fit checks that there is something to parse.
func (t *MolFromSmilesTransformer) Fit(_ context.Context, smiles []string) error {
	if len(smiles) == 0 {
		return ErrEmptyInput
	}
	return nil
}

// Transform parses every string, keeping input order.
func (t *MolFromSmilesTransformer) Transform(ctx context.Context, smiles []string) ([]*Mol, error) {
	if err := t.Fit(ctx, smiles); err != nil {
		return nil, err
	}
	validOnly := t.ValidOnly
	return dispatch(ctx, t.FingerprintTransformer, "mol_from_smiles", smiles,
		func(ctx context.Context, tk Toolkit, _ int, chunk []string) ([]*Mol, error) {
			out := make([]*Mol, len(chunk))
			for i, s := range chunk {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				m, err := tk.ParseSmiles(s)
				switch {
				case err == nil:
					out[i] = m
				case validOnly && (errors.Is(err, ErrInvalidSmiles) || errors.Is(err, ErrInvalidMolecule)):
					out[i] = nil
				default:
					return nil, err
				}
			}
			return out, nil
		})
}

// MolToSmilesTransformer writes molecules as canonical SMILES.
type MolToSmilesTransformer struct {
	FingerprintTransformer `mapstructure:",squash"`
}

// NewMolToSmilesTransformer returns a writer adapter.
func NewMolToSmilesTransformer(exec FingerprintTransformer) (*MolToSmilesTransformer, error) {
	t := &MolToSmilesTransformer{FingerprintTransformer: exec}
	if err := t.validateBase(); err != nil {
		return nil, err
	}
	return t, nil
}

// Transform returns one canonical SMILES per molecule.
func (t *MolToSmilesTransformer) Transform(ctx context.Context, mols []*Mol) ([]string, error) {
	if err := validateMols(mols); err != nil {
		return nil, err
	}
	return dispatch(ctx, t.FingerprintTransformer, "mol_to_smiles", mols,
		func(_ context.Context, tk Toolkit, _ int, chunk []*Mol) ([]string, error) {
			out := make([]string, len(chunk))
			for i, m := range chunk {
				s, err := tk.CanonicalSmiles(m)
				if err != nil {
					return nil, err
				}
				out[i] = s
			}
			return out, nil
		})
}

// MolStandardizer replaces each molecule by its standardized parent.
type MolStandardizer struct {
	FingerprintTransformer `mapstructure:",squash"`
	StandardizeOptions     `mapstructure:",squash"`
}

// NewMolStandardizer returns a standardization adapter.
func NewMolStandardizer(opts StandardizeOptions, exec FingerprintTransformer) (*MolStandardizer, error) {
	s := &MolStandardizer{FingerprintTransformer: exec, StandardizeOptions: opts}
	if err := s.validateBase(); err != nil {
		return nil, err
	}
	return s, nil
}

// Transform standardizes every molecule, keeping input order.
func (s *MolStandardizer) Transform(ctx context.Context, mols []*Mol) ([]*Mol, error) {
	if err := validateMols(mols); err != nil {
		return nil, err
	}
	opts := s.StandardizeOptions
	return dispatch(ctx, s.FingerprintTransformer, "mol_standardizer", mols,
		func(_ context.Context, tk Toolkit, _ int, chunk []*Mol) ([]*Mol, error) {
			out := make([]*Mol, len(chunk))
			for i, m := range chunk {
				std, err := tk.Standardize(m, opts)
				if err != nil {
					return nil, err
				}
				out[i] = std
			}
			return out, nil
		})
}
