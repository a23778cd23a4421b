package molprint

import (
	"io"
	"reflect"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// maxDenseWidth bounds dense exports. Sparse count fingerprints are 2^32 wide and
// must be folded before they can be densified.
const maxDenseWidth = 1 << 24

// matrixWidth checks that every fingerprint has the same width and returns it.
func matrixWidth(fps []Fingerprint) (int, error) {
	if len(fps) == 0 {
		return 0, ErrEmptyInput
	}
	width := -1
	for i, fp := range fps {
		if fp == nil {
			return 0, errors.Wrapf(ErrInvalidMolecule, "fingerprint %d is nil", i)
		}
		switch {
		case width < 0:
			width = fp.Len()
		case fp.Len() != width:
			return 0, errors.Wrapf(ErrDimensionMismatch, "fingerprint %d has width %d, expected %d", i, fp.Len(), width)
		}
	}
	return width, nil
}

// DenseMatrix stacks fps into a rows × width matrix.
func DenseMatrix(fps []Fingerprint) (*mat.Dense, error) {
	width, err := matrixWidth(fps)
	if err != nil {
		return nil, err
	}
	if width > maxDenseWidth {
		return nil, errors.Wrapf(ErrDimensionMismatch, "width %d is too wide for a dense matrix; fold the fingerprints first", width)
	}
	m := mat.NewDense(len(fps), width, nil)
	for r, fp := range fps {
		fp.NonZero(func(i int, v float64) { m.Set(r, i, v) })
	}
	return m, nil
}

// CSRMatrix is a read-only compressed sparse row matrix. Row r holds the values
// Data[IndPtr[r]:IndPtr[r+1]] at columns Indices[IndPtr[r]:IndPtr[r+1]], columns
// ascending.
type CSRMatrix struct {
	NumRows, NumCols int
	IndPtr           []int
	Indices          []int
	Data             []float64
}

// Compile-time check
var _ mat.Matrix = (*CSRMatrix)(nil)

// CSR stacks fps into a compressed sparse row matrix. Unlike DenseMatrix it accepts
// sparse count fingerprints.
func CSR(fps []Fingerprint) (*CSRMatrix, error) {
	width, err := matrixWidth(fps)
	if err != nil {
		return nil, err
	}
	m := &CSRMatrix{NumRows: len(fps), NumCols: width, IndPtr: make([]int, 1, len(fps)+1)}
	for _, fp := range fps {
		fp.NonZero(func(i int, v float64) {
			m.Indices = append(m.Indices, i)
			m.Data = append(m.Data, v)
		})
		m.IndPtr = append(m.IndPtr, len(m.Data))
	}
	return m, nil
}

// Dims returns the matrix shape.
func (m *CSRMatrix) Dims() (int, int) { return m.NumRows, m.NumCols }

// At returns the element at row i, column j.
func (m *CSRMatrix) At(i, j int) float64 {
	if i < 0 || i >= m.NumRows || j < 0 || j >= m.NumCols {
		panic(mat.ErrIndexOutOfRange)
	}
	lo, hi := m.IndPtr[i], m.IndPtr[i+1]
	k := lo + sort.SearchInts(m.Indices[lo:hi], j)
	if k < hi && m.Indices[k] == j {
		return m.Data[k]
	}
	return 0
}

// T returns the implicit transpose.
func (m *CSRMatrix) T() mat.Matrix { return mat.Transpose{Matrix: m} }

// NNZ returns the number of stored values.
func (m *CSRMatrix) NNZ() int { return len(m.Data) }

// Matrix stacks fps the way the transformer is configured to: compressed sparse rows
// when Sparse is set, dense otherwise.
func (t FingerprintTransformer) Matrix(fps []Fingerprint) (mat.Matrix, error) {
	if t.Sparse {
		return CSR(fps)
	}
	return DenseMatrix(fps)
}

// WriteNPY writes fps as a 2D NumPy array of the given precision. Half precision
// arrays are stored as their uint16 bit patterns; numpy's view(np.float16) restores
// them.
func WriteNPY(w io.Writer, fps []Fingerprint, precision Precision) error {
	q, err := NewQuantizer(precision)
	if err != nil {
		return err
	}
	width, err := matrixWidth(fps)
	if err != nil {
		return err
	}
	if width > maxDenseWidth {
		return errors.Wrapf(ErrDimensionMismatch, "width %d is too wide for a dense array; fold the fingerprints first", width)
	}

	// Rows are fixed-size arrays so that npyio infers a (rows, width) shape.
	rowType := reflect.ArrayOf(width, q.Elem())
	rows := reflect.MakeSlice(reflect.SliceOf(rowType), len(fps), len(fps))
	dense := make([]float64, width)
	for r, fp := range fps {
		clear(dense)
		fp.NonZero(func(i int, v float64) { dense[i] = v })
		reflect.Copy(rows.Index(r).Slice(0, width), reflect.ValueOf(q.Quantize(dense)))
	}
	return errors.Wrap(npyio.Write(w, rows.Interface()), "write npy")
}

// precisionOf maps a numpy dtype descriptor such as "<f4" to a Precision.
func precisionOf(dtype string) (Precision, error) {
	switch {
	case strings.HasSuffix(dtype, "f8"):
		return DoublePrecision, nil
	case strings.HasSuffix(dtype, "f4"):
		return FullPrecision, nil
	case strings.HasSuffix(dtype, "u2"):
		return HalfPrecision, nil
	case strings.HasSuffix(dtype, "u1"):
		return Uint8Precision, nil
	}
	return "", invalidConfig("unsupported npy dtype %q", dtype)
}

// ReadNPY reads a 2D array written by WriteNPY back into a dense matrix. uint16
// arrays are read as float16 bit patterns.
func ReadNPY(r io.Reader) (*mat.Dense, error) {
	nr, err := npyio.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "read npy header")
	}
	descr := nr.Header.Descr
	if len(descr.Shape) != 2 || descr.Fortran {
		return nil, errors.Wrapf(ErrDimensionMismatch, "want a C-ordered 2D array, got shape %v", descr.Shape)
	}
	rows, cols := descr.Shape[0], descr.Shape[1]
	if rows == 0 || cols == 0 {
		return nil, errors.Wrapf(ErrEmptyInput, "npy array has shape %v", descr.Shape)
	}
	precision, err := precisionOf(descr.Type)
	if err != nil {
		return nil, err
	}
	q, err := NewQuantizer(precision)
	if err != nil {
		return nil, err
	}

	stored := reflect.New(reflect.SliceOf(q.Elem()))
	if err := nr.Read(stored.Interface()); err != nil {
		return nil, errors.Wrap(err, "read npy data")
	}
	values, err := q.Dequantize(stored.Elem().Interface())
	if err != nil {
		return nil, err
	}
	if len(values) != rows*cols {
		return nil, errors.Wrapf(ErrDimensionMismatch, "read %d values for shape %v", len(values), descr.Shape)
	}
	return mat.NewDense(rows, cols, values), nil
}
