// FILE: output.go
// Package main – CSV export and console preview of bias rows.
//
// The CSV is the only durable artifact of a run. It is written to a temp file
// beside the target and renamed into place, so a failed run never leaves a
// partial file behind. Formatting is deterministic: identical rows always
// serialize to identical bytes.

package main

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"
)

// outputColumns is the export column order after the Datetime key.
var outputColumns = []string{
	"Open", "High", "Low", "Close", "Volume",
	"P_prev_close",
	"EMA_fast", "EMA_slow", "ema_diff", "s_ema",
	"ret", "ret_z", "s_ret",
	"Bias_raw", "Bias_score", "Bias_label",
	"agreement", "confidence",
}

// formatFloat renders v for the export: empty for NaN,
// shortest round-trip digits, always a decimal point or an exponent, and
// scientific notation outside [1e-4, 1e16).
func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return ""
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	sci := strconv.FormatFloat(v, 'e', -1, 64)
	exp, err := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if err != nil || exp < -4 || exp >= 16 {
		return sci
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

// timeLayout picks one layout for the whole key column: date only when every
// timestamp is midnight, microseconds when any has a sub-second part.
func timeLayout(rows []BiasRow) string {
	datesOnly, fractional := true, false
	for _, r := range rows {
		h, m, s := r.Time.UTC().Clock()
		if h != 0 || m != 0 || s != 0 || r.Time.Nanosecond() != 0 {
			datesOnly = false
		}
		if r.Time.Nanosecond() != 0 {
			fractional = true
		}
	}
	switch {
	case datesOnly:
		return time.DateOnly
	case fractional:
		return "2006-01-02 15:04:05.000000"
	default:
		return time.DateTime
	}
}

// writeBiasCSV writes the header and one record per row.
func writeBiasCSV(w io.Writer, rows []BiasRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"Datetime"}, outputColumns...)); err != nil {
		return err
	}
	layout := timeLayout(rows)
	for _, r := range rows {
		rec := []string{
			r.Time.UTC().Format(layout),
			formatFloat(r.Open),
			formatFloat(r.High),
			formatFloat(r.Low),
			formatFloat(r.Close),
			formatFloat(r.Volume),
			formatFloat(r.PrevClose),
			formatFloat(r.EMAFast),
			formatFloat(r.EMASlow),
			formatFloat(r.EMADiff),
			formatFloat(r.SEMA),
			formatFloat(r.Ret),
			formatFloat(r.RetZ),
			formatFloat(r.SRet),
			formatFloat(r.BiasRaw),
			formatFloat(r.BiasScore),
			r.Label.String(),
			formatFloat(r.Agreement),
			formatFloat(r.Confidence),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeOutputFile replaces path atomically with the CSV export.
func writeOutputFile(path string, rows []BiasRow) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err = writeBiasCSV(bw, rows); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write csv: %w", err)
	}
	if err = bw.Flush(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("flush csv: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp output: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod output: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}

// writePreview prints the last n rows of the key signal columns.
func writePreview(w io.Writer, rows []BiasRow, n int) error {
	if n <= 0 || len(rows) == 0 {
		return nil
	}
	if n > len(rows) {
		n = len(rows)
	}
	cell := func(v float64) string {
		if math.IsNaN(v) {
			return "NaN"
		}
		return strconv.FormatFloat(v, 'f', 6, 64)
	}
	layout := timeLayout(rows)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "Datetime\tP_prev_close\ts_ema\ts_ret\tBias_score\tBias_label\tconfidence\t\n")
	for _, r := range rows[len(rows)-n:] {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			r.Time.UTC().Format(layout), cell(r.PrevClose), cell(r.SEMA), cell(r.SRet),
			cell(r.BiasScore), r.Label, cell(r.Confidence))
	}
	return tw.Flush()
}
