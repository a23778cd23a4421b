package molprint

import (
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/go-viper/mapstructure/v2"
)

// FeaturizerKind names a featurizer in configuration files.
type FeaturizerKind string

const (
	MorganKind             FeaturizerKind = "morgan"
	MACCSKind              FeaturizerKind = "maccs"
	AtomPairKind           FeaturizerKind = "atom_pair"
	TopologicalTorsionKind FeaturizerKind = "topological_torsion"
	ERGKind                FeaturizerKind = "erg"
	E3FPKind               FeaturizerKind = "e3fp"
)

// FeaturizerKinds lists every configurable featurizer.
func FeaturizerKinds() []FeaturizerKind {
	return []FeaturizerKind{MorganKind, MACCSKind, AtomPairKind, TopologicalTorsionKind, ERGKind, E3FPKind}
}

// FeaturizerConfig describes a featurizer as data: a kind plus its parameters,
// keyed by their mapstructure names. Execution settings (n_jobs, verbose, sparse,
// toolkit) go in Params alongside the featurizer options.
//
// Example (YAML):
//
//	kind: morgan
//	params:
//	  radius: 2
//	  n_bits: 2048
//	  result_type: as_bit_vect
//	  n_jobs: 4
type FeaturizerConfig struct {
	Kind   FeaturizerKind `mapstructure:"kind" json:"kind"`
	Params map[string]any `mapstructure:"params" json:"params"`
}

// decodeParams overlays params on target, rejecting unknown keys.
func decodeParams(params map[string]any, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return errors.Wrap(err, "build params decoder")
	}
	if err := dec.Decode(params); err != nil {
		return errors.Mark(errors.Wrap(err, "decode params"), ErrInvalidConfig)
	}
	return nil
}

// asFeaturizer avoids returning a typed nil inside the interface on error.
func asFeaturizer(f Featurizer, err error) (Featurizer, error) {
	if err != nil {
		return nil, err
	}
	return f, nil
}

// NewFeaturizer builds the featurizer described by cfg. Parameters missing from
// cfg keep their defaults; E3FP has no default for bits and radius_multiplier.
func NewFeaturizer(cfg FeaturizerConfig) (Featurizer, error) {
	switch cfg.Kind {
	case MorganKind:
		f := &MorganFingerprint{MorganOptions: DefaultMorganOptions()}
		if err := decodeParams(cfg.Params, f); err != nil {
			return nil, err
		}
		return asFeaturizer(NewMorganFingerprint(f.MorganOptions, f.FingerprintTransformer))
	case MACCSKind:
		f := &MACCSKeysFingerprint{}
		if err := decodeParams(cfg.Params, f); err != nil {
			return nil, err
		}
		return asFeaturizer(NewMACCSKeysFingerprint(f.FingerprintTransformer))
	case AtomPairKind:
		f := &AtomPairFingerprint{AtomPairOptions: DefaultAtomPairOptions()}
		if err := decodeParams(cfg.Params, f); err != nil {
			return nil, err
		}
		return asFeaturizer(NewAtomPairFingerprint(f.AtomPairOptions, f.FingerprintTransformer))
	case TopologicalTorsionKind:
		f := &TopologicalTorsionFingerprint{TorsionOptions: DefaultTorsionOptions()}
		if err := decodeParams(cfg.Params, f); err != nil {
			return nil, err
		}
		return asFeaturizer(NewTopologicalTorsionFingerprint(f.TorsionOptions, f.FingerprintTransformer))
	case ERGKind:
		f := &ERGFingerprint{ERGOptions: DefaultERGOptions()}
		if err := decodeParams(cfg.Params, f); err != nil {
			return nil, err
		}
		return asFeaturizer(NewERGFingerprint(f.ERGOptions, f.FingerprintTransformer))
	case E3FPKind:
		f := &E3FP{E3FPOptions: DefaultE3FPOptions(0, 0)}
		if err := decodeParams(cfg.Params, f); err != nil {
			return nil, err
		}
		return asFeaturizer(NewE3FP(f.E3FPOptions, f.FingerprintTransformer))
	default:
		return nil, invalidConfig("unknown featurizer kind %q, want one of %v", string(cfg.Kind), FeaturizerKinds())
	}
}

// Valid reports whether k names a configurable featurizer.
func (k FeaturizerKind) Valid() bool { return slices.Contains(FeaturizerKinds(), k) }
