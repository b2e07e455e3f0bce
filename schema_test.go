package main

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanHeader(t *testing.T) {
	got := cleanHeader([]string{" <DATE> ", "[Close]", "Tick Vol", "<VOL>"})
	assert.Equal(t, []string{"DATE", "Close", "Tick Vol", "VOL"}, got)
}

func TestResolveColumns(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		want    map[field]int
	}{
		{
			name:    "metatrader export",
			headers: []string{"<DATE>", "<TIME>", "<OPEN>", "<HIGH>", "<LOW>", "<CLOSE>", "<TICKVOL>"},
			want:    map[field]int{fieldTime: 0, fieldOpen: 2, fieldHigh: 3, fieldLow: 4, fieldClose: 5, fieldVolume: 6},
		},
		{
			name:    "lowercase ohlcv",
			headers: []string{"timestamp", "open", "high", "low", "close", "volume"},
			want:    map[field]int{fieldTime: 0, fieldOpen: 1, fieldHigh: 2, fieldLow: 3, fieldClose: 4, fieldVolume: 5},
		},
		{
			name:    "price only, time falls back to first column",
			headers: []string{"ts", "Price"},
			want:    map[field]int{fieldTime: 0, fieldClose: 1},
		},
		{
			name:    "substring match",
			headers: []string{"Trade Date", "Adj Close"},
			// single-letter aliases match inside longer headers too
			want: map[field]int{fieldTime: 0, fieldClose: 1, fieldOpen: 1, fieldLow: 1},
		},
		{
			name:    "exact alias beats earlier substring",
			headers: []string{"Date", "Close Bid", "Close"},
			want:    map[field]int{fieldTime: 0, fieldClose: 2, fieldOpen: 1, fieldLow: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveColumns(cleanHeader(tt.headers))
			assert.Equal(t, columnMap(tt.want), got)
		})
	}
}

func TestResolveColumnsMissingClose(t *testing.T) {
	cols := resolveColumns([]string{"Date", "Open", "High"})
	assert.Equal(t, -1, cols.index(fieldClose))
}

func TestParseTimestampsDotted(t *testing.T) {
	ts, ok, pass := parseTimestamps([]string{"2024.01.05", "2024.01.12", " 2024.01.19 "})
	assert.Equal(t, passDashed, pass)
	assert.Equal(t, []bool{true, true, true}, ok)
	assert.Equal(t, time.Date(2024, 1, 19, 0, 0, 0, 0, time.UTC), ts[2])
}

func TestParseTimestampsDayFirst(t *testing.T) {
	ts, ok, _ := parseTimestamps([]string{"13/01/2024", "14/01/2024", "15/01/2024 10:30"})
	assert.Equal(t, []bool{true, true, true}, ok)
	assert.Equal(t, time.Date(2024, 1, 13, 0, 0, 0, 0, time.UTC), ts[0])
	assert.Equal(t, time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), ts[2])
}

func TestParseTimestampsOffsetsToUTC(t *testing.T) {
	ts, ok, _ := parseTimestamps([]string{
		"2024-01-05T10:00:00+02:00",
		"2024-01-05T09:30:00Z",
		"2024-01-05T03:45:00-05:00",
	})
	require.Equal(t, []bool{true, true, true}, ok)
	assert.Equal(t, time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC), ts[0])
	assert.Equal(t, time.UTC, ts[0].Location())
	assert.Equal(t, time.Date(2024, 1, 5, 8, 45, 0, 0, time.UTC), ts[2])
	assert.Equal(t, time.UTC, ts[2].Location())
	assert.True(t, ts[0].Before(ts[1]) && ts[2].Before(ts[1]))
}

func TestParseTimestampsShareIsStrict(t *testing.T) {
	values := func(n int) []string {
		var out []string
		for i := 1; i <= n; i++ {
			out = append(out, fmt.Sprintf("2024-02-%02d", i))
		}
		return append(out, "not a date")
	}

	// 10 of 11 parse: above 90%, first pass wins
	_, ok, pass := parseTimestamps(values(10))
	assert.Equal(t, passDashed, pass)
	assert.False(t, ok[10])

	// 9 of 10 parse: exactly 90% is not enough, so every pass falls through
	_, ok, pass = parseTimestamps(values(9))
	assert.Equal(t, passDayFirst, pass)
	assert.True(t, ok[0])
	assert.False(t, ok[9])
}

func TestParseNumber(t *testing.T) {
	assert.Equal(t, 1.25, parseNumber(" 1.25 "))
	assert.Equal(t, -3.0, parseNumber("-3"))
	assert.True(t, math.IsNaN(parseNumber("")))
	assert.True(t, math.IsNaN(parseNumber("n/a")))
}

func TestNormalizeTable(t *testing.T) {
	tbl := &rawTable{
		Header: []string{"Date", "Open", "Close"},
		Rows: [][]string{
			{"2024-01-03", "2.9", "3"},
			{"2024-01-01", "0.9", "1"},
			{"garbage", "9", "9"},
			{"2024-01-02", "x", "2"},
			{"2024-01-01", "1.4", "1.5"},
			{"2024-01-04"},
		},
	}
	candles, rep, err := normalizeTable(tbl)
	require.NoError(t, err)

	require.Len(t, candles, 4)
	assert.Equal(t, 1.0, candles[0].Close, "first duplicate wins")
	assert.Equal(t, 0.9, candles[0].Open)
	assert.True(t, math.IsNaN(candles[1].Open), "non-numeric cell becomes missing")
	assert.True(t, math.IsNaN(candles[0].High), "absent column is missing")
	assert.True(t, math.IsNaN(candles[3].Close), "short row reads as missing")
	for i := 1; i < len(candles); i++ {
		assert.True(t, candles[i-1].Time.Before(candles[i].Time))
	}

	assert.Equal(t, 6, rep.RowsRead)
	assert.Equal(t, 1, rep.BadTimestamps)
	assert.Equal(t, 1, rep.Duplicates)
	assert.Equal(t, 4, rep.Rows)
	assert.Equal(t, "Date", rep.Columns["Datetime"])
	assert.Equal(t, "Close", rep.Columns["Close"])
}

func TestNormalizeTableSchemaErrors(t *testing.T) {
	tests := []struct {
		name string
		tbl  *rawTable
	}{
		{
			name: "no close column",
			tbl:  &rawTable{Header: []string{"Date", "Open"}, Rows: [][]string{{"2024-01-01", "1"}}},
		},
		{
			name: "close never numeric",
			tbl: &rawTable{Header: []string{"Date", "Close"}, Rows: [][]string{
				{"2024-01-01", "abc"}, {"2024-01-02", ""},
			}},
		},
		{
			name: "no rows",
			tbl:  &rawTable{Header: []string{"Date", "Close"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := normalizeTable(tt.tbl)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSchema)
			var se *SchemaError
			assert.ErrorAs(t, err, &se)
		})
	}
}

func TestDedupeCandles(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	in := []Candle{{Time: day(1), Close: 1}, {Time: day(1), Close: 2}, {Time: day(2), Close: 3}, {Time: day(2), Close: 4}}
	out, dropped := dedupeCandles(in)
	assert.Equal(t, 2, dropped)
	require.Len(t, out, 2)
	assert.Equal(t, 1.0, out[0].Close)
	assert.Equal(t, 3.0, out[1].Close)

	out, dropped = dedupeCandles(nil)
	assert.Empty(t, out)
	assert.Zero(t, dropped)
}
