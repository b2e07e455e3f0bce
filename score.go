// FILE: score.go
// Package main – Signal normalization and the composite bias score.
//
// Two raw indicators are squashed into [-1, 1] with tanh so neither one can
// dominate the average by magnitude:
//   • s_ema = tanh(ema_diff / (rolling sample std of P over 20 rows + eps))
//   • s_ret = tanh(clip(ret_z, -4, 4) / 4)
//
// The composite is the mean of whichever signals are present. Confidence is
// |score| scaled by how many contributing signals agree with its sign.

package main

import (
	"math"
)

const (
	emaVolWindow     = 20
	emaVolMinPeriods = 1
	volEpsilon       = 1e-12
	zClip            = 4.0
)

// emaSignal bounds the EMA differential by the recent volatility of P.
func emaSignal(diff, priceStd []float64) []float64 {
	out := make([]float64, len(diff))
	for i := range diff {
		// NaN in either input propagates through the division and tanh.
		out[i] = math.Tanh(diff[i] / (priceStd[i] + volEpsilon))
	}
	return out
}

// retSignal clips the return z-score to ±4 and scales it into (-1, 1).
func retSignal(z []float64) []float64 {
	out := make([]float64, len(z))
	for i, v := range z {
		if math.IsNaN(v) {
			out[i] = math.NaN()
			continue
		}
		out[i] = math.Tanh(math.Max(-zClip, math.Min(zClip, v)) / zClip)
	}
	return out
}

// nanMean averages the non-missing values; NaN if none are present.
func nanMean(vals ...float64) float64 {
	sum, n := 0.0, 0
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// sign maps a value to -1, 0 or +1; NaN counts as 0.
func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// vote is one signal's contribution to the agreement fraction.
type vote struct {
	sign   int
	weight float64
}

// agreement returns the weighted share of non-zero votes whose sign matches
// biasSign. A zero bias sign, or no non-zero votes, yields 0.
func agreement(biasSign int, votes [2]vote) float64 {
	if biasSign == 0 {
		return 0
	}
	var matched, nonzero float64
	for _, v := range votes {
		if v.sign == 0 {
			continue
		}
		nonzero += v.weight
		if v.sign == biasSign {
			matched += v.weight
		}
	}
	if nonzero == 0 {
		return 0
	}
	return matched / nonzero
}

// confidence is |score| × agreement, and 0 when the score is missing.
func confidence(score, agree float64) float64 {
	if math.IsNaN(score) || score == 0 || agree == 0 {
		return 0
	}
	return math.Abs(score) * agree
}

// composite fills BiasRaw/BiasScore, Agreement and Confidence for every row
// from the already-normalized SEMA and SRet columns.
func composite(rows []BiasRow) {
	for i := range rows {
		r := &rows[i]
		r.BiasRaw = nanMean(r.SEMA, r.SRet)
		r.BiasScore = r.BiasRaw
		r.Agreement = agreement(sign(r.BiasRaw), [2]vote{
			{sign: sign(r.SEMA), weight: 1},
			{sign: sign(r.SRet), weight: 1},
		})
		r.Confidence = confidence(r.BiasScore, r.Agreement)
	}
}
