// FILE: run.go
// Package main – One batch run: read -> normalize -> compute -> export.
//
// Fatal conditions (missing input, unusable Close column) stop the run before
// anything is written. Cancellation is honored between stages only.

package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// runBias executes the pipeline for cfg and writes the CSV export. The run
// summary and preview go to stdout; structured logs go to log.
func runBias(ctx context.Context, cfg Config, log zerolog.Logger, stdout io.Writer) (rows []BiasRow, err error) {
	start := time.Now()
	defer func() { observeRun(err, time.Since(start)) }()

	table, err := readTable(cfg.InPath)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Str("path", cfg.InPath).
		Str("delimiter", string(table.Delim)).
		Int("columns", len(table.Header)).
		Int("rows", len(table.Rows)).
		Msg("input read")

	candles, rep, err := normalizeTable(table)
	observeSchema(rep)
	if err != nil {
		return nil, err
	}
	log.Info().
		Interface("columns", rep.Columns).
		Str("time_pass", string(rep.TimePass)).
		Int("rows", rep.Rows).
		Int("bad_timestamps", rep.BadTimestamps).
		Int("duplicates", rep.Duplicates).
		Msg("schema normalized")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows = computeBias(candles, cfg.Params)
	observeRows(rows)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := writeOutputFile(cfg.OutPath, rows); err != nil {
		return nil, err
	}

	scored := scoredRows(rows)
	log.Info().
		Str("out", cfg.OutPath).
		Int("rows", len(rows)).
		Int("scored", scored).
		Dur("elapsed", time.Since(start)).
		Msg("bias export written")

	fmt.Fprintf(stdout, "Saved causal bias CSV to: %s\n", cfg.OutPath)
	fmt.Fprintf(stdout, "Total rows: %d  Rows with Bias_score (non-NaN): %d\n", len(rows), scored)
	if cfg.PreviewRows > 0 && len(rows) > 0 {
		fmt.Fprintf(stdout, "\nPreview (last %d rows):\n", min(cfg.PreviewRows, len(rows)))
		if err := writePreview(stdout, rows, cfg.PreviewRows); err != nil {
			return rows, fmt.Errorf("write preview: %w", err)
		}
	}
	return rows, nil
}
