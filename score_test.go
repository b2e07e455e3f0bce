package main

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmaSignal(t *testing.T) {
	got := emaSignal(
		[]float64{nan, 1, -2, 0.5, 3},
		[]float64{1, nan, 2, 0, 3},
	)
	assertSeries(t, []float64{nan, nan, math.Tanh(-1), 1, math.Tanh(1)}, got)
}

func TestRetSignal(t *testing.T) {
	got := retSignal([]float64{nan, 0, 2, 10, -10})
	assertSeries(t, []float64{nan, 0, math.Tanh(0.5), math.Tanh(1), math.Tanh(-1)}, got)
	for _, v := range got[1:] {
		assert.LessOrEqual(t, math.Abs(v), math.Tanh(1))
	}
}

func TestNanMean(t *testing.T) {
	assert.Equal(t, 0.5, nanMean(0.2, 0.8))
	assert.Equal(t, -0.3, nanMean(nan, -0.3))
	assert.True(t, math.IsNaN(nanMean(nan, nan)))
	assert.True(t, math.IsNaN(nanMean()))
}

func TestSign(t *testing.T) {
	assert.Equal(t, 1, sign(0.1))
	assert.Equal(t, -1, sign(-3))
	assert.Equal(t, 0, sign(0))
	assert.Equal(t, 0, sign(nan))
}

func TestAgreement(t *testing.T) {
	tests := []struct {
		name  string
		bias  int
		votes [2]vote
		want  float64
	}{
		{"both agree", 1, [2]vote{{1, 1}, {1, 1}}, 1},
		{"split", 1, [2]vote{{1, 1}, {-1, 1}}, 0.5},
		{"one silent", -1, [2]vote{{-1, 1}, {0, 1}}, 1},
		{"both silent", 1, [2]vote{{0, 1}, {0, 1}}, 0},
		{"zero bias", 0, [2]vote{{1, 1}, {-1, 1}}, 0},
		{"weighted", 1, [2]vote{{1, 3}, {-1, 1}}, 0.75},
		{"all disagree", -1, [2]vote{{1, 1}, {1, 1}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, agreement(tt.bias, tt.votes), 1e-12)
		})
	}
}

func TestConfidence(t *testing.T) {
	assert.Equal(t, 0.0, confidence(nan, 1))
	assert.Equal(t, 0.0, confidence(0, 1))
	assert.Equal(t, 0.0, confidence(0.4, 0))
	assert.InDelta(t, 0.2, confidence(-0.4, 0.5), 1e-12)
}

func TestComposite(t *testing.T) {
	rows := []BiasRow{
		{SEMA: nan, SRet: nan},
		{SEMA: 0.6, SRet: nan},
		{SEMA: 0.6, SRet: -0.2},
		{SEMA: -0.4, SRet: -0.2},
		{SEMA: 0.3, SRet: -0.3},
	}
	composite(rows)

	assert.True(t, math.IsNaN(rows[0].BiasScore))
	assert.Equal(t, 0.0, rows[0].Agreement)
	assert.Equal(t, 0.0, rows[0].Confidence)

	assert.InDelta(t, 0.6, rows[1].BiasScore, 1e-12)
	assert.Equal(t, 1.0, rows[1].Agreement)
	assert.InDelta(t, 0.6, rows[1].Confidence, 1e-12)

	assert.InDelta(t, 0.2, rows[2].BiasScore, 1e-12)
	assert.Equal(t, 0.5, rows[2].Agreement)
	assert.InDelta(t, 0.1, rows[2].Confidence, 1e-12)

	assert.InDelta(t, -0.3, rows[3].BiasScore, 1e-12)
	assert.Equal(t, 1.0, rows[3].Agreement)
	assert.InDelta(t, 0.3, rows[3].Confidence, 1e-12)

	assert.Equal(t, 0.0, rows[4].BiasScore)
	assert.Equal(t, 0.0, rows[4].Agreement)
	assert.Equal(t, 0.0, rows[4].Confidence)

	for _, r := range rows {
		if !math.IsNaN(r.BiasScore) {
			assert.Equal(t, r.BiasRaw, r.BiasScore)
		}
	}
}
