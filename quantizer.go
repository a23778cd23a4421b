package molprint

import (
	"math"
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/x448/float16"
)

// ============================================================================
// QUANTIZER INTERFACE
// ============================================================================

// Precision is the element type of exported fingerprint matrices.
type Precision string

const (
	DoublePrecision Precision = "float64"
	FullPrecision   Precision = "float32"
	HalfPrecision   Precision = "float16"
	Uint8Precision  Precision = "uint8"
)

// Quantizer converts fingerprint rows to a storage element type.
// Implementations are stateless singletons.
type Quantizer interface {
	// Quantize converts one row. It returns:
	//   - []float64 for DoublePrecision
	//   - []float32 for FullPrecision
	//   - []uint16 for HalfPrecision (float16 bits)
	//   - []uint8 for Uint8Precision
	Quantize(row []float64) any

	// Dequantize converts a stored row back to float64.
	// The input type must match the quantizer's storage format.
	Dequantize(stored any) ([]float64, error)

	// Elem returns the Go element type of stored rows.
	Elem() reflect.Type

	// Type returns the precision.
	Type() Precision
}

// ============================================================================
// FACTORY FUNCTION
// ============================================================================

var (
	doubleQuantizerImpl = doubleQuantizer{}
	fullQuantizerImpl   = fullQuantizer{}
	halfQuantizerImpl   = halfQuantizer{}
	uint8QuantizerImpl  = uint8Quantizer{}
)

// NewQuantizer returns the quantizer of a precision. An empty precision selects
// FullPrecision.
func NewQuantizer(p Precision) (Quantizer, error) {
	switch p {
	case DoublePrecision:
		return doubleQuantizerImpl, nil
	case FullPrecision, "":
		return fullQuantizerImpl, nil
	case HalfPrecision:
		return halfQuantizerImpl, nil
	case Uint8Precision:
		return uint8QuantizerImpl, nil
	default:
		return nil, invalidConfig("unsupported precision %q", string(p))
	}
}

func unexpected(want string, got any) error {
	return errors.Newf("expected %s, got %T", want, got)
}

// ============================================================================
// DOUBLE AND FULL PRECISION
// ============================================================================

type doubleQuantizer struct{}

func (doubleQuantizer) Quantize(row []float64) any {
	out := make([]float64, len(row))
	copy(out, row)
	return out
}

func (doubleQuantizer) Dequantize(stored any) ([]float64, error) {
	vec, ok := stored.([]float64)
	if !ok {
		return nil, unexpected("[]float64", stored)
	}
	out := make([]float64, len(vec))
	copy(out, vec)
	return out, nil
}

func (doubleQuantizer) Elem() reflect.Type { return reflect.TypeFor[float64]() }
func (doubleQuantizer) Type() Precision    { return DoublePrecision }

// fullQuantizer stores 32-bit floats. Counts up to 2^24 are exact.
type fullQuantizer struct{}

func (fullQuantizer) Quantize(row []float64) any {
	out := make([]float32, len(row))
	for i, v := range row {
		out[i] = float32(v)
	}
	return out
}

func (fullQuantizer) Dequantize(stored any) ([]float64, error) {
	vec, ok := stored.([]float32)
	if !ok {
		return nil, unexpected("[]float32", stored)
	}
	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = float64(v)
	}
	return out, nil
}

func (fullQuantizer) Elem() reflect.Type { return reflect.TypeFor[float32]() }
func (fullQuantizer) Type() Precision    { return FullPrecision }

// ============================================================================
// HALF PRECISION QUANTIZER (Float16)
// ============================================================================

// halfQuantizer compresses rows to IEEE 754 half precision, stored as uint16 bit
// patterns. Integers up to 2048 are exact; larger counts round.
type halfQuantizer struct{}

func (halfQuantizer) Quantize(row []float64) any {
	out := make([]uint16, len(row))
	for i, v := range row {
		out[i] = float16.Fromfloat32(float32(v)).Bits()
	}
	return out
}

func (halfQuantizer) Dequantize(stored any) ([]float64, error) {
	vec, ok := stored.([]uint16)
	if !ok {
		return nil, unexpected("[]uint16", stored)
	}
	out := make([]float64, len(vec))
	for i, bits := range vec {
		out[i] = float64(float16.Frombits(bits).Float32())
	}
	return out, nil
}

func (halfQuantizer) Elem() reflect.Type { return reflect.TypeFor[uint16]() }
func (halfQuantizer) Type() Precision    { return HalfPrecision }

// ============================================================================
// UINT8 QUANTIZER (Saturating Counts)
// ============================================================================

// uint8Quantizer rounds values and clamps them to [0, 255]. It suits bit and count
// fingerprints; real-valued fingerprints lose their fractions.
type uint8Quantizer struct{}

func (uint8Quantizer) Quantize(row []float64) any {
	out := make([]uint8, len(row))
	for i, v := range row {
		switch r := math.Round(v); {
		case math.IsNaN(r) || r <= 0:
			out[i] = 0
		case r >= math.MaxUint8:
			out[i] = math.MaxUint8
		default:
			out[i] = uint8(r)
		}
	}
	return out
}

func (uint8Quantizer) Dequantize(stored any) ([]float64, error) {
	vec, ok := stored.([]uint8)
	if !ok {
		return nil, unexpected("[]uint8", stored)
	}
	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = float64(v)
	}
	return out, nil
}

func (uint8Quantizer) Elem() reflect.Type { return reflect.TypeFor[uint8]() }
func (uint8Quantizer) Type() Precision    { return Uint8Precision }
