package main

import (
	"bytes"
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{math.NaN(), ""},
		{100, "100.0"},
		{-0.5, "-0.5"},
		{0.30000000000000004, "0.30000000000000004"},
		{0.0001, "0.0001"},
		{0.00001, "1e-05"},
		{1.5e-7, "1.5e-07"},
		{1e16, "1e+16"},
		{123456789012345.0, "123456789012345.0"},
		{math.Copysign(0, -1), "-0.0"},
		{math.Inf(1), "inf"},
		{math.Inf(-1), "-inf"},
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.want, formatFloat(tt.in), "formatFloat(%v)", tt.in)
	}
}

func TestTimeLayout(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := func(ts ...time.Time) []BiasRow {
		out := make([]BiasRow, len(ts))
		for i, x := range ts {
			out[i].Time = x
		}
		return out
	}
	assert.Equal(t, time.DateOnly, timeLayout(rows(day, day.AddDate(0, 0, 7))))
	assert.Equal(t, time.DateTime, timeLayout(rows(day, day.Add(4*time.Hour))))
	assert.Equal(t, "2006-01-02 15:04:05.000000", timeLayout(rows(day, day.Add(1500*time.Millisecond))))
}

func TestWriteBiasCSV(t *testing.T) {
	rows := computeBias(dailyCandles(100, 102, 101, 105, 107), defaultParams())
	var buf bytes.Buffer
	require.NoError(t, writeBiasCSV(&buf, rows))

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 6)

	header := records[0]
	assert.Equal(t, "Datetime", header[0])
	assert.Equal(t, outputColumns, header[1:])
	col := func(name string) int {
		for i, h := range header {
			if h == name {
				return i
			}
		}
		t.Fatalf("column %s missing", name)
		return -1
	}

	assert.Equal(t, "2024-01-01", records[1][0])
	assert.Equal(t, "100.0", records[1][col("Close")])
	assert.Equal(t, "", records[1][col("P_prev_close")])
	assert.Equal(t, "", records[1][col("Volume")])
	assert.Equal(t, "Neutral", records[1][col("Bias_label")])
	assert.Equal(t, "0.0", records[1][col("confidence")])
	assert.Equal(t, "105.0", records[5][col("P_prev_close")])
	for _, rec := range records[1:] {
		assert.Len(t, rec, len(header))
	}
}

func TestWriteBiasCSVUsesUTCWallClock(t *testing.T) {
	plus2 := time.FixedZone("", 2*3600)
	candles := dailyCandles(100, 101)
	candles[0].Time = time.Date(2024, 1, 5, 10, 0, 0, 0, plus2)
	candles[1].Time = time.Date(2024, 1, 5, 9, 30, 0, 0, time.UTC)
	rows := computeBias(candles, defaultParams())

	var buf bytes.Buffer
	require.NoError(t, writeBiasCSV(&buf, rows))
	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "2024-01-05 08:00:00", records[1][0])
	assert.Equal(t, "2024-01-05 09:30:00", records[2][0])
}

func TestWriteOutputFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "bias.csv")
	rows := computeBias(dailyCandles(1, 2, 3), defaultParams())

	require.NoError(t, writeOutputFile(path, rows))
	first, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(first, []byte("Datetime,Open,High,Low,Close,Volume,P_prev_close,")))

	// rewriting replaces the file and leaves no temp files behind
	require.NoError(t, writeOutputFile(path, rows))
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteOutputFileBadDir(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	err := writeOutputFile(filepath.Join(blocker, "out.csv"), nil)
	assert.Error(t, err)
}

func TestWritePreview(t *testing.T) {
	rows := computeBias(dailyCandles(100, 102, 101, 105, 107), defaultParams())
	var buf bytes.Buffer
	require.NoError(t, writePreview(&buf, rows, 2))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Bias_score")
	assert.Contains(t, lines[1], "2024-01-04")
	assert.Contains(t, lines[2], "2024-01-05")
	assert.Contains(t, lines[2], "105.000000")
	assert.Contains(t, lines[2], "NaN")

	buf.Reset()
	require.NoError(t, writePreview(&buf, rows, 0))
	assert.Empty(t, buf.String())

	buf.Reset()
	require.NoError(t, writePreview(&buf, rows, 50))
	assert.Len(t, strings.Split(strings.TrimRight(buf.String(), "\n"), "\n"), 6)
}
