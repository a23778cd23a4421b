package molprint

import (
	"bytes"
	"strings"
	"testing"
)

func TestReadSmi(t *testing.T) {
	input := "# header comment\n" +
		"CCO ethanol\n" +
		"\n" +
		"c1ccccc1\tbenzene ring\n" +
		"   CC(=O)O   acetic acid  \n" +
		"C\n" +
		"OC café\n"

	records, err := ReadSmi(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadSmi unexpected error: %v", err)
	}
	want := []SmiRecord{
		{Smiles: "CCO", Name: "ethanol", Line: 2},
		{Smiles: "c1ccccc1", Name: "benzene ring", Line: 4},
		{Smiles: "CC(=O)O", Name: "acetic acid", Line: 5},
		{Smiles: "C", Name: "", Line: 6},
		{Smiles: "OC", Name: "café", Line: 7},
	}
	if len(records) != len(want) {
		t.Fatalf("ReadSmi returned %d records, want %d: %+v", len(records), len(want), records)
	}
	for i := range want {
		if records[i] != want[i] {
			t.Errorf("record %d = %+v, want %+v", i, records[i], want[i])
		}
	}
}

func TestWriteSmi(t *testing.T) {
	records := []SmiRecord{
		{Smiles: "CCO", Name: "ethanol"},
		{Smiles: "C"},
	}
	var buf bytes.Buffer
	if err := WriteSmi(&buf, records); err != nil {
		t.Fatalf("WriteSmi unexpected error: %v", err)
	}
	if got, want := buf.String(), "CCO ethanol\nC\n"; got != want {
		t.Errorf("WriteSmi wrote %q, want %q", got, want)
	}

	back, err := ReadSmi(&buf)
	if err != nil {
		t.Fatalf("ReadSmi unexpected error: %v", err)
	}
	if len(back) != 2 || back[0].Name != "ethanol" || back[1].Smiles != "C" {
		t.Errorf("read back %+v", back)
	}
}

func TestNameMols(t *testing.T) {
	records := []SmiRecord{
		{Smiles: "CCO", Name: "ethanol"},
		{Smiles: "bad", Name: "broken"},
		{Smiles: "C"},
	}
	if got := SmilesOf(records); strings.Join(got, ",") != "CCO,bad,C" {
		t.Errorf("SmilesOf = %v", got)
	}

	mols := []*Mol{MustParseSmiles("CCO"), nil, MustParseSmiles("C")}
	named := NameMols(mols, records)
	if named[0].Name() != "ethanol" {
		t.Errorf("named[0].Name() = %q, want ethanol", named[0].Name())
	}
	if named[1] != nil {
		t.Errorf("nil molecule was replaced")
	}
	if named[2].Name() != "" {
		t.Errorf("named[2].Name() = %q, want empty", named[2].Name())
	}
	if mols[0].Name() != "" {
		t.Errorf("NameMols modified its input")
	}
}
