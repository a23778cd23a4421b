package metrics

import "math"

func meanAbsoluteError(yTrue, yPred []float64, _ options) float64 {
	sum := 0.0
	for i, t := range yTrue {
		sum += math.Abs(yPred[i] - t)
	}
	return sum / float64(len(yTrue))
}

func meanSquaredError(yTrue, yPred []float64, _ options) float64 {
	sum := 0.0
	for i, t := range yTrue {
		d := yPred[i] - t
		sum += d * d
	}
	return sum / float64(len(yTrue))
}

// rootMeanSquaredError is taken per task, before averaging across tasks.
func rootMeanSquaredError(yTrue, yPred []float64, o options) float64 {
	return math.Sqrt(meanSquaredError(yTrue, yPred, o))
}
