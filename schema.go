// FILE: schema.go
// Package main – Schema normalizer: noisy vendor headers -> canonical candles.
//
// Column resolution is a declarative list of rules. Each canonical field owns
// an ordered alias list and is resolved independently:
//   1) case-insensitive exact match, alias by alias, over every column
//   2) the same scan with substring matching
//   3) timestamp only: fall back to the first column
//
// Timestamps are parsed in layered passes, each accepted only when more than
// 90% of the values parse: dotted dates normalized to dashes, then free-form
// month-first parsing, then day-first layouts.

package main

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// field is a canonical column.
type field int

const (
	fieldTime field = iota
	fieldOpen
	fieldHigh
	fieldLow
	fieldClose
	fieldVolume
)

func (f field) String() string {
	switch f {
	case fieldTime:
		return "Datetime"
	case fieldOpen:
		return "Open"
	case fieldHigh:
		return "High"
	case fieldLow:
		return "Low"
	case fieldClose:
		return "Close"
	case fieldVolume:
		return "Volume"
	default:
		return "unknown"
	}
}

// columnRule maps one canonical field to its aliases, in priority order.
type columnRule struct {
	Field   field
	Aliases []string
}

var columnRules = []columnRule{
	{Field: fieldTime, Aliases: []string{"DATE", "DATETIME", "TIME", "TIMESTAMP"}},
	{Field: fieldClose, Aliases: []string{"CLOSE", "C", "PRICE"}},
	{Field: fieldOpen, Aliases: []string{"OPEN", "O"}},
	{Field: fieldHigh, Aliases: []string{"HIGH", "H"}},
	{Field: fieldLow, Aliases: []string{"LOW", "L"}},
	{Field: fieldVolume, Aliases: []string{"VOLUME", "VOL", "TICKVOL", "TICK_VOLUME"}},
}

// columnMap holds the resolved column index per field; -1 means unresolved.
type columnMap map[field]int

func (m columnMap) index(f field) int {
	if i, ok := m[f]; ok {
		return i
	}
	return -1
}

// cleanHeader trims whitespace and bracket characters from each header.
func cleanHeader(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		c = strings.TrimSpace(c)
		c = strings.NewReplacer("<", "", ">", "", "[", "", "]", "").Replace(c)
		out[i] = strings.TrimSpace(c)
	}
	return out
}

// findColumn applies the exact-then-substring scan for one alias list.
func findColumn(headers []string, aliases []string) int {
	for _, a := range aliases {
		for i, h := range headers {
			if strings.EqualFold(strings.TrimSpace(h), a) {
				return i
			}
		}
	}
	for _, a := range aliases {
		la := strings.ToLower(a)
		for i, h := range headers {
			if strings.Contains(strings.ToLower(strings.TrimSpace(h)), la) {
				return i
			}
		}
	}
	return -1
}

// resolveColumns runs every rule over the cleaned headers.
func resolveColumns(headers []string) columnMap {
	m := columnMap{}
	for _, rule := range columnRules {
		if i := findColumn(headers, rule.Aliases); i >= 0 {
			m[rule.Field] = i
		}
	}
	if _, ok := m[fieldTime]; !ok && len(headers) > 0 {
		m[fieldTime] = 0
	}
	return m
}

// timePass names the parsing pass that was accepted for the timestamp column.
type timePass string

const (
	passDashed   timePass = "dashed"
	passDefault  timePass = "default"
	passDayFirst timePass = "dayfirst"
)

// minParsedShare is the share of values a pass must parse (strictly more than).
const minParsedShare = 0.9

var dayFirstLayouts = func() []string {
	var out []string
	for _, date := range []string{"2/1/2006", "2-1-2006", "2.1.2006", "2/1/06", "2-1-06", "2.1.06"} {
		for _, clock := range []string{"", " 15:04", " 15:04:05", "T15:04:05"} {
			out = append(out, date+clock)
		}
	}
	return out
}()

func parseDefault(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	// explicit offsets are kept by the parser; output is UTC wall clock
	return t.UTC(), true
}

func parseDayFirst(s string) (time.Time, bool) {
	for _, layout := range dayFirstLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return parseDefault(s)
}

// parseTimestamps parses the raw timestamp strings with the layered fallback.
// ok[i] reports whether values[i] parsed under the accepted pass.
func parseTimestamps(values []string) (ts []time.Time, ok []bool, pass timePass) {
	trimmed := make([]string, len(values))
	for i, v := range values {
		trimmed[i] = strings.TrimSpace(v)
	}

	run := func(parse func(string) (time.Time, bool), normalize func(string) string) ([]time.Time, []bool, int) {
		ts := make([]time.Time, len(trimmed))
		ok := make([]bool, len(trimmed))
		n := 0
		for i, v := range trimmed {
			if normalize != nil {
				v = normalize(v)
			}
			if t, good := parse(v); good {
				ts[i], ok[i] = t, true
				n++
			}
		}
		return ts, ok, n
	}
	enough := func(n int) bool { return float64(n) > minParsedShare*float64(len(trimmed)) }

	dashed := func(s string) string { return strings.ReplaceAll(s, ".", "-") }
	if ts, ok, n := run(parseDefault, dashed); enough(n) {
		return ts, ok, passDashed
	}
	if ts, ok, n := run(parseDefault, nil); enough(n) {
		return ts, ok, passDefault
	}
	ts, ok, _ = run(parseDayFirst, nil)
	return ts, ok, passDayFirst
}

// parseNumber coerces a cell to float64; anything non-numeric is NaN.
func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// SchemaReport describes how the raw table was interpreted.
type SchemaReport struct {
	Columns       map[string]string // canonical field -> source header
	TimePass      timePass
	RowsRead      int
	BadTimestamps int
	Duplicates    int
	Rows          int
}

// normalizeTable resolves the schema and returns candles sorted ascending by
// time with unique timestamps (first occurrence wins). It fails with a
// SchemaError when Close cannot be resolved or holds no numeric value.
func normalizeTable(t *rawTable) ([]Candle, SchemaReport, error) {
	headers := cleanHeader(t.Header)
	cols := resolveColumns(headers)
	rep := SchemaReport{Columns: map[string]string{}, RowsRead: len(t.Rows)}
	for f, i := range cols {
		rep.Columns[f.String()] = headers[i]
	}

	closeCol := cols.index(fieldClose)
	if closeCol < 0 {
		return nil, rep, &SchemaError{Reason: "no Close-like column found (looked for CLOSE, C, PRICE)"}
	}

	timeCol := cols.index(fieldTime)
	raw := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		raw[i] = t.cell(row, timeCol)
	}
	ts, ok, pass := parseTimestamps(raw)
	rep.TimePass = pass

	num := func(row []string, f field) float64 {
		col := cols.index(f)
		if col < 0 {
			return math.NaN()
		}
		return parseNumber(t.cell(row, col))
	}

	candles := make([]Candle, 0, len(t.Rows))
	for i, row := range t.Rows {
		if !ok[i] {
			rep.BadTimestamps++
			continue
		}
		candles = append(candles, Candle{
			Time:   ts[i],
			Open:   num(row, fieldOpen),
			High:   num(row, fieldHigh),
			Low:    num(row, fieldLow),
			Close:  num(row, fieldClose),
			Volume: num(row, fieldVolume),
		})
	}

	sort.SliceStable(candles, func(i, j int) bool { return candles[i].Time.Before(candles[j].Time) })
	candles, rep.Duplicates = dedupeCandles(candles)
	rep.Rows = len(candles)

	hasClose := false
	for _, c := range candles {
		if !math.IsNaN(c.Close) {
			hasClose = true
			break
		}
	}
	if !hasClose {
		return nil, rep, &SchemaError{Reason: fmt.Sprintf("column %q has no numeric Close values", headers[closeCol])}
	}
	return candles, rep, nil
}

// dedupeCandles drops repeated timestamps from a sorted slice, keeping the first.
func dedupeCandles(c []Candle) ([]Candle, int) {
	if len(c) == 0 {
		return c, 0
	}
	out := c[:1]
	for _, x := range c[1:] {
		if x.Time.Equal(out[len(out)-1].Time) {
			continue
		}
		out = append(out, x)
	}
	return out, len(c) - len(out)
}
