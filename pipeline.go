// FILE: pipeline.go
// Package main – The causal bias pipeline.
//
// computeBias runs the stages strictly forward over normalized candles:
//   1) causal price     P[t] = Close[t-1]
//   2) indicators       EMA_fast/EMA_slow/ema_diff, ret, ret_z (all from P)
//   3) normalization    s_ema, s_ret
//   4) composite        Bias_raw, Bias_score, agreement, confidence
//   5) labeling         Bias_label
//
// No stage reads Close directly except the causal price step, so row t only
// ever depends on Close[0..t-1].

package main

import (
	"math"
)

// Params are the tunable knobs of the pipeline.
type Params struct {
	FastSpan    int     `yaml:"fast_span" toml:"fast_span" validate:"gte=1"`
	SlowSpan    int     `yaml:"slow_span" toml:"slow_span" validate:"gte=1"`
	ZWindow     int     `yaml:"z_window" toml:"z_window" validate:"gte=1"`
	ZMinPeriods int     `yaml:"z_min_periods" toml:"z_min_periods" validate:"gte=1,ltefield=ZWindow"`
	Threshold   float64 `yaml:"threshold" toml:"threshold" validate:"gte=0"`
}

// defaultParams mirrors the documented defaults.
func defaultParams() Params {
	return Params{
		FastSpan:    8,
		SlowSpan:    21,
		ZWindow:     52,
		ZMinPeriods: 8,
		Threshold:   0.20,
	}
}

// causalPrice returns P[t] = Close[t-1]; P[0] is NaN.
// Rows with a missing P are kept so indicators simply warm up.
func causalPrice(c []Candle) []float64 {
	p := make([]float64, len(c))
	for i := range c {
		if i == 0 {
			p[i] = math.NaN()
			continue
		}
		p[i] = c[i-1].Close
	}
	return p
}

// computeBias derives every causal column for the candles, which must be
// sorted ascending with unique timestamps. It never fails: insufficient
// history shows up as NaN indicators and Neutral labels.
func computeBias(c []Candle, p Params) []BiasRow {
	price := causalPrice(c)

	emaFast := EMA(price, p.FastSpan)
	emaSlow := EMA(price, p.SlowSpan)
	emaDiff := make([]float64, len(price))
	for i := range price {
		emaDiff[i] = emaFast[i] - emaSlow[i]
	}

	ret := PctChange(price)
	retZ := ZScore(ret, p.ZWindow, p.ZMinPeriods)

	sEMA := emaSignal(emaDiff, RollingStd(price, emaVolWindow, emaVolMinPeriods, 1))
	sRet := retSignal(retZ)

	rows := make([]BiasRow, len(c))
	for i := range c {
		rows[i] = BiasRow{
			Candle:    c[i],
			PrevClose: price[i],
			EMAFast:   emaFast[i],
			EMASlow:   emaSlow[i],
			EMADiff:   emaDiff[i],
			SEMA:      sEMA[i],
			Ret:       ret[i],
			RetZ:      retZ[i],
			SRet:      sRet[i],
		}
	}

	composite(rows)

	scores := make([]float64, len(rows))
	for i := range rows {
		scores[i] = rows[i].BiasScore
	}
	for i, l := range labelSeries(scores, p.Threshold) {
		rows[i].Label = l
	}
	return rows
}

// scoredRows counts rows with a non-missing Bias_score.
func scoredRows(rows []BiasRow) int {
	n := 0
	for _, r := range rows {
		if !math.IsNaN(r.BiasScore) {
			n++
		}
	}
	return n
}
