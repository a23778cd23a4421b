// Package metrics scores multi-task predictions, the usual setting for molecular
// property benchmarks.
//
// HOW IT WORKS:
// Targets and predictions are (samples × tasks) matrices. Each task column is scored
// on its own, ignoring rows whose target is NaN (missing labels are common in
// multi-task datasets). The per-task scores are then averaged uniformly. Tasks with
// no labeled row are skipped; if every task is empty the call fails.
//
// Classification metrics read predictions as labels, except AUROC and AUPRC which
// read them as scores for the positive class. The positive label is 1.
package metrics

import (
	"math"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/wizenheimer/molprint/internal/log"
)

var (
	// ErrShapeMismatch is returned when targets and predictions differ in shape.
	ErrShapeMismatch = errors.New("targets and predictions differ in shape")

	// ErrNoLabels is returned when no task has a non-NaN target.
	ErrNoLabels = errors.New("no labeled target in any task")

	// ErrUnknownKind is returned by Score for an unknown metric kind.
	ErrUnknownKind = errors.New("unknown metric kind")
)

// Kind names a metric.
type Kind string

const (
	AccuracyKind         Kind = "accuracy"
	AUROCKind            Kind = "auroc"
	AUPRCKind            Kind = "auprc"
	BalancedAccuracyKind Kind = "balanced_accuracy"
	CohenKappaKind       Kind = "cohen_kappa"
	F1Kind               Kind = "f1"
	MCCKind              Kind = "matthews_corr_coef"
	MAEKind              Kind = "mean_absolute_error"
	MSEKind              Kind = "mean_squared_error"
	PrecisionKind        Kind = "precision"
	RecallKind           Kind = "recall"
	RMSEKind             Kind = "root_mean_squared_error"
)

// options tunes degenerate cases.
type options struct {
	aurocDefault float64
	zeroDivision float64
}

func defaultOptions() options {
	return options{aurocDefault: 0.5, zeroDivision: 0}
}

// Option configures a metric call.
type Option func(*options)

// WithAUROCDefault sets the AUROC of a task whose labels hold a single class.
// The default is 0.5.
func WithAUROCDefault(v float64) Option {
	return func(o *options) { o.aurocDefault = v }
}

// WithZeroDivision sets the value of precision, recall, F1 and AUPRC when their
// denominator is zero. The default is 0.
func WithZeroDivision(v float64) Option {
	return func(o *options) { o.zeroDivision = v }
}

// taskFunc scores one task on its labeled rows.
type taskFunc func(yTrue, yPred []float64, o options) float64

var taskFuncs = map[Kind]taskFunc{
	AccuracyKind:         accuracy,
	AUROCKind:            auroc,
	AUPRCKind:            auprc,
	BalancedAccuracyKind: balancedAccuracy,
	CohenKappaKind:       cohenKappa,
	F1Kind:               f1,
	MCCKind:              mcc,
	MAEKind:              meanAbsoluteError,
	MSEKind:              meanSquaredError,
	PrecisionKind:        precision,
	RecallKind:           recall,
	RMSEKind:             rootMeanSquaredError,
}

// Score computes the metric named by kind.
func Score(kind Kind, yTrue, yPred mat.Matrix, opts ...Option) (float64, error) {
	fn, ok := taskFuncs[kind]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownKind, "%q", string(kind))
	}
	return multioutput(kind, fn, yTrue, yPred, opts)
}

// multioutput averages fn over the task columns, dropping NaN targets.
func multioutput(kind Kind, fn taskFunc, yTrue, yPred mat.Matrix, opts []Option) (float64, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	rows, cols := yTrue.Dims()
	pr, pc := yPred.Dims()
	if rows != pr || cols != pc {
		return 0, errors.Wrapf(ErrShapeMismatch, "targets are %dx%d, predictions %dx%d", rows, cols, pr, pc)
	}

	total, scored := 0.0, 0
	t := make([]float64, 0, rows)
	p := make([]float64, 0, rows)
	for c := 0; c < cols; c++ {
		t, p = t[:0], p[:0]
		for r := 0; r < rows; r++ {
			if v := yTrue.At(r, c); !math.IsNaN(v) {
				t = append(t, v)
				p = append(p, yPred.At(r, c))
			}
		}
		if len(t) == 0 {
			log.L().Debug("task has no labels", zap.String("metric", string(kind)), zap.Int("task", c))
			continue
		}
		total += fn(t, p, o)
		scored++
	}
	if scored == 0 {
		return 0, ErrNoLabels
	}
	return total / float64(scored), nil
}

// Accuracy is the fraction of predictions equal to the target.
func Accuracy(yTrue, yPred mat.Matrix, opts ...Option) (float64, error) {
	return Score(AccuracyKind, yTrue, yPred, opts...)
}

// AUROC is the area under the ROC curve of positive-class scores.
func AUROC(yTrue, yPred mat.Matrix, opts ...Option) (float64, error) {
	return Score(AUROCKind, yTrue, yPred, opts...)
}

// AUPRC is the average precision of positive-class scores.
func AUPRC(yTrue, yPred mat.Matrix, opts ...Option) (float64, error) {
	return Score(AUPRCKind, yTrue, yPred, opts...)
}

// BalancedAccuracy is the mean per-class recall.
func BalancedAccuracy(yTrue, yPred mat.Matrix, opts ...Option) (float64, error) {
	return Score(BalancedAccuracyKind, yTrue, yPred, opts...)
}

// CohenKappa is the chance-corrected agreement between targets and predictions.
func CohenKappa(yTrue, yPred mat.Matrix, opts ...Option) (float64, error) {
	return Score(CohenKappaKind, yTrue, yPred, opts...)
}

// F1 is the harmonic mean of precision and recall.
func F1(yTrue, yPred mat.Matrix, opts ...Option) (float64, error) {
	return Score(F1Kind, yTrue, yPred, opts...)
}

// MatthewsCorrCoef is the Matthews correlation coefficient.
func MatthewsCorrCoef(yTrue, yPred mat.Matrix, opts ...Option) (float64, error) {
	return Score(MCCKind, yTrue, yPred, opts...)
}

// MeanAbsoluteError is the mean absolute error.
func MeanAbsoluteError(yTrue, yPred mat.Matrix, opts ...Option) (float64, error) {
	return Score(MAEKind, yTrue, yPred, opts...)
}

// MeanSquaredError is the mean squared error.
func MeanSquaredError(yTrue, yPred mat.Matrix, opts ...Option) (float64, error) {
	return Score(MSEKind, yTrue, yPred, opts...)
}

// Precision is TP / (TP + FP).
func Precision(yTrue, yPred mat.Matrix, opts ...Option) (float64, error) {
	return Score(PrecisionKind, yTrue, yPred, opts...)
}

// Recall is TP / (TP + FN).
func Recall(yTrue, yPred mat.Matrix, opts ...Option) (float64, error) {
	return Score(RecallKind, yTrue, yPred, opts...)
}

// RootMeanSquaredError is the per-task RMSE averaged over tasks.
func RootMeanSquaredError(yTrue, yPred mat.Matrix, opts ...Option) (float64, error) {
	return Score(RMSEKind, yTrue, yPred, opts...)
}
