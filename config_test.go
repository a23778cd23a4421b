package molprint

import (
	"testing"

	"github.com/cockroachdb/errors"
)

func TestNewFeaturizer(t *testing.T) {
	tests := []struct {
		name        string
		cfg         FeaturizerConfig
		wantWidth   int
		expectedErr error
		check       func(t *testing.T, f Featurizer)
	}{
		{
			name:      "morgan defaults",
			cfg:       FeaturizerConfig{Kind: MorganKind},
			wantWidth: SparseLength,
		},
		{
			name: "morgan bit vector",
			cfg: FeaturizerConfig{Kind: MorganKind, Params: map[string]any{
				"radius":      3,
				"n_bits":      "1024",
				"result_type": "as_bit_vect",
				"n_jobs":      4,
			}},
			wantWidth: 1024,
			check: func(t *testing.T, f Featurizer) {
				m := f.(*MorganFingerprint)
				if m.Radius != 3 || m.NJobs != 4 || m.ResultType != ResultBitVect {
					t.Errorf("decoded %+v", m)
				}
			},
		},
		{
			name:      "maccs",
			cfg:       FeaturizerConfig{Kind: MACCSKind, Params: map[string]any{"sparse": true}},
			wantWidth: MACCSWidth,
			check: func(t *testing.T, f Featurizer) {
				if !f.(*MACCSKeysFingerprint).Sparse {
					t.Errorf("sparse not decoded")
				}
			},
		},
		{
			name: "atom pair",
			cfg: FeaturizerConfig{Kind: AtomPairKind, Params: map[string]any{
				"max_length":  5,
				"from_atoms":  []int{0, 1},
				"result_type": "hashed",
				"n_bits":      512,
			}},
			wantWidth: 512,
			check: func(t *testing.T, f Featurizer) {
				ap := f.(*AtomPairFingerprint)
				if ap.MaxLength != 5 || len(ap.FromAtoms) != 2 {
					t.Errorf("decoded %+v", ap.AtomPairOptions)
				}
			},
		},
		{
			name:      "topological torsion",
			cfg:       FeaturizerConfig{Kind: TopologicalTorsionKind, Params: map[string]any{"result_type": "as_bit_vect", "n_bits": 256}},
			wantWidth: 256,
		},
		{
			name:      "erg",
			cfg:       FeaturizerConfig{Kind: ERGKind, Params: map[string]any{"max_path": 5}},
			wantWidth: 105,
		},
		{
			name: "e3fp",
			cfg: FeaturizerConfig{Kind: E3FPKind, Params: map[string]any{
				"bits":              4096,
				"radius_multiplier": 1.718,
				"is_folded":         true,
				"fold_bits":         2048,
			}},
			wantWidth: 2048,
		},
		{
			name:        "e3fp without bits",
			cfg:         FeaturizerConfig{Kind: E3FPKind, Params: map[string]any{"radius_multiplier": 1.5}},
			expectedErr: ErrInvalidConfig,
		},
		{
			name:        "unknown parameter",
			cfg:         FeaturizerConfig{Kind: MorganKind, Params: map[string]any{"radios": 2}},
			expectedErr: ErrInvalidConfig,
		},
		{
			name:        "invalid value",
			cfg:         FeaturizerConfig{Kind: MorganKind, Params: map[string]any{"radius": -1}},
			expectedErr: ErrInvalidConfig,
		},
		{
			name:        "invalid result type",
			cfg:         FeaturizerConfig{Kind: AtomPairKind, Params: map[string]any{"result_type": "bitstring"}},
			expectedErr: ErrInvalidConfig,
		},
		{
			name:        "unknown kind",
			cfg:         FeaturizerConfig{Kind: "avalon"},
			expectedErr: ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFeaturizer(tt.cfg)
			if tt.expectedErr != nil {
				if !errors.Is(err, tt.expectedErr) {
					t.Errorf("error = %v, want %v", err, tt.expectedErr)
				}
				if f != nil {
					t.Errorf("featurizer %T returned alongside an error", f)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewFeaturizer unexpected error: %v", err)
			}
			if f.Width() != tt.wantWidth {
				t.Errorf("Width() = %d, want %d", f.Width(), tt.wantWidth)
			}
			if tt.check != nil {
				tt.check(t, f)
			}
		})
	}
}

func TestFeaturizerKindValid(t *testing.T) {
	for _, k := range FeaturizerKinds() {
		if !k.Valid() {
			t.Errorf("%q.Valid() = false", k)
		}
	}
	if FeaturizerKind("ecfp").Valid() {
		t.Errorf("unknown kind reported valid")
	}
}
