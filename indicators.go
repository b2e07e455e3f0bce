// FILE: indicators.go
// Package main – Causal indicators over the lagged price series.
//
// This file implements the series helpers used by the bias pipeline:
//   • EMA(x, span)                       – recursive exponential smoothing
//   • PctChange(x)                       – one-step percent change
//   • RollingStd(x, window, minp, ddof)  – trailing standard deviation
//   • ZScore(x, window, minp)            – trailing z-score (population std)
//
// Notes
//   - Inputs and outputs are plain []float64 aligned to the candle slice.
//   - NaN marks a missing value and propagates; nothing here returns an error.
//   - Rolling helpers share one sliding accumulator, so each is O(n).
package main

import (
	"math"
)

// EMA returns the exponential moving average of x for the given span,
// using alpha = 2/(span+1) and seeding with the first non-missing value.
//
// Leading NaNs stay NaN. A NaN after the seed carries the previous value
// forward, and the next observation is blended with the decayed weight the
// gap accumulated: ((1-a)^(k+1)*prev + a*x) / ((1-a)^(k+1) + a).
func EMA(x []float64, span int) []float64 {
	out := make([]float64, len(x))
	if span < 1 {
		fillNaN(out)
		return out
	}
	alpha := 2.0 / float64(span+1)
	decay := 1.0 - alpha

	value := math.NaN()
	oldWt := 1.0
	seeded := false
	for i, v := range x {
		if !seeded {
			if math.IsNaN(v) {
				out[i] = math.NaN()
				continue
			}
			value = v
			seeded = true
			out[i] = value
			continue
		}
		oldWt *= decay
		if !math.IsNaN(v) {
			if value != v {
				value = (oldWt*value + alpha*v) / (oldWt + alpha)
			}
			oldWt = 1
		}
		out[i] = value
	}
	return out
}

// PctChange returns x[i]/x[i-1] - 1, aligned to x.
// The first element, any pair with a NaN, and a zero denominator yield NaN.
func PctChange(x []float64) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		if i == 0 || math.IsNaN(x[i]) || math.IsNaN(x[i-1]) || x[i-1] == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = x[i]/x[i-1] - 1
	}
	return out
}

// RollingStd returns the trailing standard deviation of x over window rows.
// A value needs at least minPeriods non-missing observations in the window
// and more observations than ddof; otherwise the result is NaN.
func RollingStd(x []float64, window, minPeriods, ddof int) []float64 {
	out := make([]float64, len(x))
	if window < 1 {
		fillNaN(out)
		return out
	}
	acc := newRollingStats(window, minPeriods, ddof)
	for i, v := range x {
		acc.push(v)
		out[i] = math.Sqrt(acc.variance())
	}
	return out
}

// ZScore returns (x[i]-mean)/std against the trailing window that ends at i
// (the current value included), using the population standard deviation.
// Zero deviation yields NaN rather than a division by zero.
func ZScore(x []float64, window, minPeriods int) []float64 {
	out := make([]float64, len(x))
	if window < 1 {
		fillNaN(out)
		return out
	}
	acc := newRollingStats(window, minPeriods, 0)
	for i, v := range x {
		acc.push(v)
		mean := acc.average()
		std := math.Sqrt(acc.variance())
		if math.IsNaN(v) || math.IsNaN(mean) || math.IsNaN(std) || std == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = (v - mean) / std
	}
	return out
}

// rollingStats is a sliding-window accumulator over the last `window` rows.
// Mean and squared deviations are maintained with Welford add/remove updates;
// NaN rows occupy a slot but are not counted as observations.
type rollingStats struct {
	window     int
	minPeriods int
	ddof       int

	ring   []float64
	head   int // next write slot; also the oldest slot once full
	filled int

	nobs  int
	mean  float64
	ssqdm float64

	// Consecutive identical observations; when they cover the whole window
	// the variance is exactly zero instead of a rounding residue.
	prev float64
	same int
}

func newRollingStats(window, minPeriods, ddof int) *rollingStats {
	if minPeriods < 1 {
		minPeriods = 1
	}
	return &rollingStats{
		window:     window,
		minPeriods: minPeriods,
		ddof:       ddof,
		ring:       make([]float64, window),
		prev:       math.NaN(),
	}
}

// push appends v as the newest row, evicting the row that leaves the window.
func (r *rollingStats) push(v float64) {
	if r.filled == r.window {
		r.remove(r.ring[r.head])
	} else {
		r.filled++
	}
	r.ring[r.head] = v
	r.head = (r.head + 1) % r.window
	r.add(v)
}

func (r *rollingStats) add(v float64) {
	if math.IsNaN(v) {
		return
	}
	r.nobs++
	delta := v - r.mean
	r.mean += delta / float64(r.nobs)
	r.ssqdm += float64(r.nobs-1) * delta * delta / float64(r.nobs)

	if v == r.prev {
		r.same++
	} else {
		r.same = 1
		r.prev = v
	}
}

func (r *rollingStats) remove(v float64) {
	if math.IsNaN(v) {
		return
	}
	r.nobs--
	if r.nobs == 0 {
		r.mean = 0
		r.ssqdm = 0
		return
	}
	delta := v - r.mean
	r.mean -= delta / float64(r.nobs)
	r.ssqdm -= float64(r.nobs+1) * delta * delta / float64(r.nobs)
}

// average is the window mean, NaN before minPeriods observations.
func (r *rollingStats) average() float64 {
	if r.nobs == 0 || r.nobs < r.minPeriods {
		return math.NaN()
	}
	if r.same >= r.nobs {
		return r.prev
	}
	return r.mean
}

// variance is the window variance with the configured ddof.
func (r *rollingStats) variance() float64 {
	if r.nobs < r.minPeriods || r.nobs <= r.ddof {
		return math.NaN()
	}
	if r.nobs == 1 || r.same >= r.nobs {
		return 0
	}
	v := r.ssqdm / float64(r.nobs-r.ddof)
	if v < 0 {
		v = 0
	}
	return v
}

func fillNaN(out []float64) {
	for i := range out {
		out[i] = math.NaN()
	}
}
