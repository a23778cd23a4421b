package main

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/wizenheimer/molprint"
	"github.com/wizenheimer/molprint/internal/log"
)

// featurizerConfig reads the "featurizer" section of the config and applies the
// --kind and --param overrides. Shared settings fill n_jobs, verbose and toolkit
// unless the section sets them.
func featurizerConfig(v *viper.Viper, s settings) (molprint.FeaturizerConfig, error) {
	var cfg molprint.FeaturizerConfig
	if err := v.UnmarshalKey("featurizer", &cfg); err != nil {
		return cfg, errors.Wrap(err, "decode featurizer config")
	}
	if kind := v.GetString("kind"); kind != "" && (cfg.Kind == "" || v.IsSet("kind")) {
		cfg.Kind = molprint.FeaturizerKind(kind)
	}
	if cfg.Params == nil {
		cfg.Params = map[string]any{}
	}
	for k, val := range v.GetStringMapString("param") {
		cfg.Params[k] = val
	}
	setDefault := func(key string, val any) {
		if _, ok := cfg.Params[key]; !ok {
			cfg.Params[key] = val
		}
	}
	setDefault("n_jobs", s.Jobs)
	setDefault("verbose", s.Verbose)
	setDefault("toolkit", s.Toolkit)
	return cfg, nil
}

func newFeaturizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "featurize",
		Short: "Compute fingerprints and write them as a .npy matrix",
		Example: `  molprint featurize --kind morgan --param n_bits=1024 --input mols.smi --output fps.npy
  molprint featurize --config fp.yaml --input mols.smi --output fps.npy --jobs 4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			cfg, err := featurizerConfig(v, s)
			if err != nil {
				return err
			}
			// A .npy matrix needs fixed-width rows.
			switch cfg.Kind {
			case molprint.MorganKind, molprint.AtomPairKind, molprint.TopologicalTorsionKind:
				if _, ok := cfg.Params["result_type"]; !ok {
					cfg.Params["result_type"] = string(molprint.ResultHashed)
				}
			}
			featurizer, err := molprint.NewFeaturizer(cfg)
			if err != nil {
				return err
			}
			_, mols, err := readMols(cmd.Context(), cmd, s)
			if err != nil {
				return err
			}
			logger := log.With(zap.String("kind", string(cfg.Kind)), zap.Int("width", featurizer.Width()))
			logger.Debug("featurizing", zap.Int("molecules", len(mols)))
			fps, err := featurizer.FitTransform(cmd.Context(), mols)
			if err != nil {
				return err
			}

			var out io.Writer = cmd.OutOrStdout()
			if path := v.GetString("output"); path != "" && path != "-" {
				f, err := os.Create(path)
				if err != nil {
					return errors.Wrap(err, "create output")
				}
				defer f.Close()
				out = f
			}
			if err := molprint.WriteNPY(out, fps, molprint.Precision(v.GetString("precision"))); err != nil {
				return err
			}
			logger.Info("fingerprints written", zap.Int("rows", len(fps)))
			return nil
		},
	}
	cmd.Flags().String("kind", string(molprint.MorganKind), "featurizer kind")
	cmd.Flags().StringToString("param", nil, "featurizer parameter key=value (repeatable)")
	cmd.Flags().StringP("output", "o", "-", "output .npy file (- for stdout)")
	cmd.Flags().String("precision", string(molprint.FullPrecision), "float64, float32, float16 or uint8")
	return cmd
}
