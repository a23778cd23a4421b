package molprint

import (
	"bufio"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/unicode/norm"
)

// SmiRecord is one entry of a SMILES file.
type SmiRecord struct {
	Smiles string
	// Name is the NFC-normalized title, possibly empty.
	Name string
	// Line is the 1-based line number.
	Line int
}

// ReadSmi reads a whitespace separated SMILES file: one molecule per line, SMILES
// first and the rest of the line as the name. Blank lines and lines starting with
// '#' are skipped.
func ReadSmi(r io.Reader) ([]SmiRecord, error) {
	var out []SmiRecord
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		smiles, name := text, ""
		if i := strings.IndexAny(text, " \t"); i >= 0 {
			smiles, name = text[:i], text[i+1:]
		}
		out = append(out, SmiRecord{
			Smiles: smiles,
			Name:   norm.NFC.String(strings.TrimSpace(name)),
			Line:   line,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "read smiles file")
	}
	return out, nil
}

// WriteSmi writes one "SMILES name" line per record.
func WriteSmi(w io.Writer, records []SmiRecord) error {
	bw := bufio.NewWriter(w)
	for _, rec := range records {
		bw.WriteString(rec.Smiles)
		if rec.Name != "" {
			bw.WriteByte(' ')
			bw.WriteString(norm.NFC.String(rec.Name))
		}
		bw.WriteByte('\n')
	}
	return errors.Wrap(bw.Flush(), "write smiles file")
}

// SmilesOf returns the SMILES column of records.
func SmilesOf(records []SmiRecord) []string {
	out := make([]string, len(records))
	for i, rec := range records {
		out[i] = rec.Smiles
	}
	return out
}

// NameMols attaches the record names to mols, which must be parsed from records in
// order. Nil molecules stay nil.
func NameMols(mols []*Mol, records []SmiRecord) []*Mol {
	out := make([]*Mol, len(mols))
	for i, m := range mols {
		if m != nil && i < len(records) && records[i].Name != "" {
			m = m.WithName(records[i].Name)
		}
		out[i] = m
	}
	return out
}
