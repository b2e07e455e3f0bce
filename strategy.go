// FILE: strategy.go
// Package main – Core bias abstractions and the labeling rule.
//
// This file declares the market data types used across the pipeline (Candle),
// the label enum (Bullish/Bearish/Neutral), the per-row output record
// (BiasRow), and `classify`, which turns a composite score into a label.
//
// Missing values are NaN everywhere. A missing score is always Neutral.

package main

import (
	"math"
	"time"
)

// Candle is the normalized OHLCV row the pipeline uses everywhere.
// Absent or non-numeric fields are NaN; Close is the only required column.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Label is the categorical bias.
type Label int

const (
	Neutral Label = iota
	Bullish
	Bearish
)

// String implements fmt.Stringer; the values are also the CSV cell text.
func (l Label) String() string {
	switch l {
	case Bullish:
		return "Bullish"
	case Bearish:
		return "Bearish"
	default:
		return "Neutral"
	}
}

// BiasRow is one output row: the input candle plus every causal column.
type BiasRow struct {
	Candle

	PrevClose  float64 // P_prev_close
	EMAFast    float64
	EMASlow    float64
	EMADiff    float64
	SEMA       float64 // s_ema
	Ret        float64
	RetZ       float64
	SRet       float64 // s_ret
	BiasRaw    float64
	BiasScore  float64
	Label      Label
	Agreement  float64
	Confidence float64
}

// classify applies the threshold rule to a single score.
func classify(score, threshold float64) Label {
	switch {
	case math.IsNaN(score):
		return Neutral
	case score > threshold:
		return Bullish
	case score < -threshold:
		return Bearish
	default:
		return Neutral
	}
}

// labelSeries classifies every score; it keeps no state between rows.
func labelSeries(scores []float64, threshold float64) []Label {
	out := make([]Label, len(scores))
	for i, s := range scores {
		out[i] = classify(s, threshold)
	}
	return out
}
