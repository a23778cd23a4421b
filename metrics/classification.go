package metrics

import (
	"cmp"
	"math"
	"slices"

	"go.uber.org/zap"

	"github.com/wizenheimer/molprint/internal/log"
)

// confusion counts binary outcomes with 1 as the positive label.
type confusion struct {
	tp, fp, tn, fn float64
}

func binaryConfusion(yTrue, yPred []float64) confusion {
	var c confusion
	for i, t := range yTrue {
		pos, predPos := t == 1, yPred[i] == 1
		switch {
		case pos && predPos:
			c.tp++
		case pos:
			c.fn++
		case predPos:
			c.fp++
		default:
			c.tn++
		}
	}
	return c
}

func ratio(num, den, zeroDivision float64) float64 {
	if den == 0 {
		return zeroDivision
	}
	return num / den
}

func accuracy(yTrue, yPred []float64, _ options) float64 {
	hits := 0
	for i, t := range yTrue {
		if yPred[i] == t {
			hits++
		}
	}
	return float64(hits) / float64(len(yTrue))
}

func precision(yTrue, yPred []float64, o options) float64 {
	c := binaryConfusion(yTrue, yPred)
	return ratio(c.tp, c.tp+c.fp, o.zeroDivision)
}

func recall(yTrue, yPred []float64, o options) float64 {
	c := binaryConfusion(yTrue, yPred)
	return ratio(c.tp, c.tp+c.fn, o.zeroDivision)
}

func f1(yTrue, yPred []float64, o options) float64 {
	c := binaryConfusion(yTrue, yPred)
	return ratio(2*c.tp, 2*c.tp+c.fp+c.fn, o.zeroDivision)
}

// mcc is 0 when any marginal is empty.
func mcc(yTrue, yPred []float64, _ options) float64 {
	c := binaryConfusion(yTrue, yPred)
	den := math.Sqrt((c.tp + c.fp) * (c.tp + c.fn) * (c.tn + c.fp) * (c.tn + c.fn))
	if den == 0 {
		return 0
	}
	return (c.tp*c.tn - c.fp*c.fn) / den
}

// balancedAccuracy averages the recall of every class present in yTrue.
func balancedAccuracy(yTrue, yPred []float64, _ options) float64 {
	total := map[float64]int{}
	hits := map[float64]int{}
	for i, t := range yTrue {
		total[t]++
		if yPred[i] == t {
			hits[t]++
		}
	}
	sum := 0.0
	for label, n := range total {
		sum += float64(hits[label]) / float64(n)
	}
	return sum / float64(len(total))
}

// cohenKappa handles any label set. It is 0 when chance agreement is already
// perfect.
func cohenKappa(yTrue, yPred []float64, _ options) float64 {
	n := float64(len(yTrue))
	trueCount := map[float64]float64{}
	predCount := map[float64]float64{}
	agree := 0.0
	for i, t := range yTrue {
		trueCount[t]++
		predCount[yPred[i]]++
		if yPred[i] == t {
			agree++
		}
	}
	po := agree / n
	pe := 0.0
	for label, c := range trueCount {
		pe += (c / n) * (predCount[label] / n)
	}
	if pe == 1 {
		return 0
	}
	return (po - pe) / (1 - pe)
}

type scored struct {
	score float64
	pos   bool
}

// rankByScore sorts samples by decreasing score.
func rankByScore(yTrue, yPred []float64) ([]scored, int) {
	s := make([]scored, len(yTrue))
	positives := 0
	for i, t := range yTrue {
		s[i] = scored{score: yPred[i], pos: t == 1}
		if t == 1 {
			positives++
		}
	}
	slices.SortStableFunc(s, func(a, b scored) int { return cmp.Compare(b.score, a.score) })
	return s, positives
}

// auroc uses the rank-sum formulation with tied scores sharing their mean rank.
func auroc(yTrue, yPred []float64, o options) float64 {
	s, positives := rankByScore(yTrue, yPred)
	negatives := len(s) - positives
	if positives == 0 || negatives == 0 {
		log.L().Warn("AUROC undefined for a single-class task, using default",
			zap.Int("samples", len(s)),
			zap.Float64("default", o.aurocDefault))
		return o.aurocDefault
	}
	// Ascending ranks: the lowest score gets rank 1.
	rankSum := 0.0
	for i := 0; i < len(s); {
		j := i
		for j < len(s) && s[j].score == s[i].score {
			j++
		}
		// positions i..j-1 in descending order hold ascending ranks n-j+1..n-i.
		mean := float64(2*len(s)-i-j+1) / 2
		for k := i; k < j; k++ {
			if s[k].pos {
				rankSum += mean
			}
		}
		i = j
	}
	p, n := float64(positives), float64(negatives)
	return (rankSum - p*(p+1)/2) / (p * n)
}

// auprc is the step-wise average precision: sum over thresholds of
// (R_k - R_{k-1}) · P_k.
func auprc(yTrue, yPred []float64, o options) float64 {
	s, positives := rankByScore(yTrue, yPred)
	if positives == 0 {
		log.L().Warn("AUPRC undefined without positive labels", zap.Int("samples", len(s)))
		return o.zeroDivision
	}
	ap, tp, prevRecall := 0.0, 0.0, 0.0
	for i := 0; i < len(s); {
		j := i
		for j < len(s) && s[j].score == s[i].score {
			if s[j].pos {
				tp++
			}
			j++
		}
		r := tp / float64(positives)
		ap += (r - prevRecall) * (tp / float64(j))
		prevRecall = r
		i = j
	}
	return ap
}
