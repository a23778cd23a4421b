package main

import (
	"context"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/wizenheimer/molprint"
	"github.com/wizenheimer/molprint/internal/log"
)

const envPrefix = "MOLPRINT"

// settings are the options shared by every subcommand. Flags win over MOLPRINT_*
// environment variables, which win over the config file.
type settings struct {
	Config  string `mapstructure:"config"`
	Input   string `mapstructure:"input"`
	Jobs    int    `mapstructure:"jobs"`
	Toolkit string `mapstructure:"toolkit"`
	Verbose int    `mapstructure:"verbose"`
}

func (s settings) exec() molprint.FingerprintTransformer {
	return molprint.FingerprintTransformer{NJobs: s.Jobs, Verbose: s.Verbose, Toolkit: s.Toolkit}
}

// newViper binds cmd's flags and the environment to a fresh viper instance and
// reads the config file when one is given.
func newViper(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, errors.Wrap(err, "bind flags")
	}
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}
	return v, nil
}

func loadSettings(cmd *cobra.Command) (*viper.Viper, settings, error) {
	v, err := newViper(cmd)
	if err != nil {
		return nil, settings{}, err
	}
	var s settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, settings{}, errors.Wrap(err, "decode settings")
	}
	log.SetLevel(log.VerbosityLevel(s.Verbose))
	return v, s, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "molprint",
		Short:         "Molecular fingerprints from SMILES",
		Long:          "Featurize, canonicalize and search molecules stored in SMILES files.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().String("config", "", "YAML config file")
	root.PersistentFlags().StringP("input", "i", "", "input .smi file (- for stdin)")
	root.PersistentFlags().IntP("jobs", "j", 0, "parallel workers (0 = all CPUs)")
	root.PersistentFlags().String("toolkit", molprint.NativeToolkit,
		"chemistry toolkit, one of "+strings.Join(molprint.Toolkits(), ", "))
	root.PersistentFlags().CountP("verbose", "v", "increase verbosity")

	root.AddCommand(
		newFeaturizeCmd(),
		newCanonicalizeCmd(),
		newSimilarCmd(),
	)
	return root
}

// readMols reads a SMILES file and parses it, keeping record names.
func readMols(ctx context.Context, cmd *cobra.Command, s settings) ([]molprint.SmiRecord, []*molprint.Mol, error) {
	if s.Input == "" {
		return nil, nil, errors.New("--input is required")
	}
	in := cmd.InOrStdin()
	if s.Input != "-" {
		f, err := os.Open(s.Input)
		if err != nil {
			return nil, nil, errors.Wrap(err, "open input")
		}
		defer f.Close()
		in = f
	}
	records, err := molprint.ReadSmi(in)
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, errors.Wrapf(molprint.ErrEmptyInput, "no molecules in %s", s.Input)
	}
	parser, err := molprint.NewMolFromSmilesTransformer(s.exec())
	if err != nil {
		return nil, nil, err
	}
	mols, err := parser.Transform(ctx, molprint.SmilesOf(records))
	if err != nil {
		return nil, nil, err
	}
	log.L().Info("molecules read", zap.String("input", s.Input), zap.Int("count", len(mols)))
	return records, molprint.NameMols(mols, records), nil
}
