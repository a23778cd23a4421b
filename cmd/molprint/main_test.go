package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sbinet/npyio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wizenheimer/molprint"
)

const testSmi = `# test set
CCO ethanol
c1ccccc1O phenol
CC(=O)Oc1ccccc1C(=O)O aspirin
`

func writeSmi(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mols.smi")
	require.NoError(t, os.WriteFile(path, []byte(testSmi), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestFeaturizeWritesNPY(t *testing.T) {
	input := writeSmi(t)
	output := filepath.Join(t.TempDir(), "fps.npy")

	_, err := run(t, "featurize", "--kind", "morgan", "--param", "n_bits=1024",
		"--param", "result_type=as_bit_vect", "--input", input, "--output", output, "--jobs", "2")
	require.NoError(t, err)

	f, err := os.Open(output)
	require.NoError(t, err)
	defer f.Close()
	r, err := npyio.NewReader(f)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1024}, r.Header.Descr.Shape)
	assert.True(t, strings.HasSuffix(r.Header.Descr.Type, "f4"), r.Header.Descr.Type)

	_, err = f.Seek(0, 0)
	require.NoError(t, err)
	m, err := molprint.ReadNPY(f)
	require.NoError(t, err)
	rows, cols := m.Dims()
	require.Equal(t, 3, rows)
	require.Equal(t, 1024, cols)
	for i := 0; i < rows; i++ {
		on := 0.0
		for j := 0; j < cols; j++ {
			on += m.At(i, j)
		}
		assert.Positive(t, on, "row %d has no bits set", i)
	}
}

func TestFeaturizeFromConfigFile(t *testing.T) {
	input := writeSmi(t)
	dir := t.TempDir()
	cfg := filepath.Join(dir, "fp.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(`
featurizer:
  kind: maccs
`), 0o600))
	output := filepath.Join(dir, "fps.npy")

	_, err := run(t, "featurize", "--config", cfg, "--input", input, "--output", output, "--precision", "uint8")
	require.NoError(t, err)

	f, err := os.Open(output)
	require.NoError(t, err)
	defer f.Close()
	r, err := npyio.NewReader(f)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 166}, r.Header.Descr.Shape)
	assert.True(t, strings.HasSuffix(r.Header.Descr.Type, "u1"), r.Header.Descr.Type)
}

func TestFeaturizeRejectsBadParams(t *testing.T) {
	input := writeSmi(t)

	_, err := run(t, "featurize", "--kind", "morgan", "--param", "result_type=bogus",
		"--input", input, "--output", filepath.Join(t.TempDir(), "x.npy"))
	assert.Error(t, err)

	_, err = run(t, "featurize", "--kind", "nope", "--input", input)
	assert.Error(t, err)
}

func TestCanonicalize(t *testing.T) {
	input := filepath.Join(t.TempDir(), "mols.smi")
	require.NoError(t, os.WriteFile(input, []byte("OCC ethanol\nC(C)O again\n"), 0o600))

	out, err := run(t, "canonicalize", "--input", input)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	first := strings.Fields(lines[0])
	second := strings.Fields(lines[1])
	assert.Equal(t, first[0], second[0])
	assert.Equal(t, "ethanol", first[1])
	assert.Equal(t, "again", second[1])
}

func TestSimilar(t *testing.T) {
	input := writeSmi(t)

	out, err := run(t, "similar", "--query", "CCO", "--input", input, "--k", "2")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "SCORE")
	assert.Contains(t, lines[1], "ethanol")
	assert.Contains(t, lines[1], "1.0000")
}

func TestSimilarRequiresQuery(t *testing.T) {
	_, err := run(t, "similar", "--input", writeSmi(t))
	assert.Error(t, err)
}

func TestToolkitFlagListsRegisteredToolkits(t *testing.T) {
	out, err := run(t, "featurize", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "one of "+strings.Join(molprint.Toolkits(), ", "))
}
