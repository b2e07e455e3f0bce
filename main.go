// FILE: main.go
// Package main – Program entrypoint.
//
// Boot sequence:
//   1) loadDotEnv()          – read .env (no shell exports required)
//   2) loadConfig(-config)   – defaults, params file, env overrides
//                              (-config falls back to BIAS_CONFIG, .env included)
//   3) apply CLI flags       – only flags present on the command line
//   4) validate              – parameter ranges (ConfigError on failure)
//   5) runBias               – read, normalize, compute, export
//   6) metrics               – optional textfile and/or /metrics server
//
// Flags:
//   -in <csv>          Input OHLC(V) file (comma, semicolon or tab delimited)
//   -out <csv>         Output CSV path
//   -fast/-slow        EMA spans (default 8/21)
//   -zwin/-zmin        Return z-score window and min periods (default 52/8)
//   -threshold         Label threshold (default 0.20)
//
// Example:
//   go run . -in data/EURUSD_W1.csv -out out/bias.csv -threshold 0.25
//
// Exit status is 2 on any fatal error; nothing is written in that case.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
)

const exitFatal = 2

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// run is main without the process boundary; it returns the exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("bias", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		configPath  = fs.String("config", "", "Params file (.yaml, .yml or .toml); defaults to $BIAS_CONFIG")
		inPath      = fs.String("in", "", "Input CSV path (OHLC CSV)")
		outPath     = fs.String("out", "", "Output CSV path")
		fastSpan    = fs.Int("fast", 8, "Fast EMA span")
		slowSpan    = fs.Int("slow", 21, "Slow EMA span")
		zWindow     = fs.Int("zwin", 52, "Window for returns z-score")
		zMinPeriods = fs.Int("zmin", 8, "min_periods for z-score")
		threshold   = fs.Float64("threshold", 0.20, "Threshold for labels")
		metricsFile = fs.String("metrics-file", "", "Write Prometheus metrics to this textfile after the run")
		metricsAddr = fs.String("metrics-addr", "", "Serve /metrics and /healthz on this address until interrupted")
		previewRows = fs.Int("preview", 8, "Rows to preview on stdout (0 disables)")
		logLevel    = fs.String("log-level", "info", "Log level (debug, info, warn, error)")
		logFormat   = fs.String("log-format", "json", "Log format (json or console)")
	)
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return exitFatal
	}

	envFile, envErr := loadDotEnv()
	if *configPath == "" {
		*configPath = getEnv("BIAS_CONFIG", "")
	}

	cfg, err := loadConfig(*configPath)
	if err == nil {
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "in":
				cfg.InPath = *inPath
			case "out":
				cfg.OutPath = *outPath
			case "fast":
				cfg.Params.FastSpan = *fastSpan
			case "slow":
				cfg.Params.SlowSpan = *slowSpan
			case "zwin":
				cfg.Params.ZWindow = *zWindow
			case "zmin":
				cfg.Params.ZMinPeriods = *zMinPeriods
			case "threshold":
				cfg.Params.Threshold = *threshold
			case "metrics-file":
				cfg.MetricsFile = *metricsFile
			case "metrics-addr":
				cfg.MetricsAddr = *metricsAddr
			case "preview":
				cfg.PreviewRows = *previewRows
			case "log-level":
				cfg.LogLevel = *logLevel
			case "log-format":
				cfg.LogFormat = *logFormat
			}
		})
		err = cfg.validate()
	}

	log := newLogger(cfg.LogLevel, cfg.LogFormat, stderr).With().Str("run_id", uuid.NewString()).Logger()
	if envErr != nil {
		log.Warn().Err(envErr).Msg("env file unreadable, relying on process env")
	} else if envFile != "" {
		log.Debug().Str("path", envFile).Msg("env file loaded")
	}

	if err == nil {
		log.Debug().
			Int("fast_span", cfg.Params.FastSpan).
			Int("slow_span", cfg.Params.SlowSpan).
			Int("z_window", cfg.Params.ZWindow).
			Int("z_min_periods", cfg.Params.ZMinPeriods).
			Float64("threshold", cfg.Params.Threshold).
			Msg("params")
		_, err = runBias(ctx, cfg, log, stdout)
	} else {
		observeRun(err, 0)
	}

	if cfg.MetricsFile != "" {
		if mErr := writeMetricsFile(cfg.MetricsFile); mErr != nil {
			log.Error().Err(mErr).Msg("metrics file")
		}
	}

	if err != nil {
		log.Error().Err(err).Str("result", runResult(err)).Msg("run failed")
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFatal
	}

	if cfg.MetricsAddr != "" {
		log.Info().Str("addr", cfg.MetricsAddr).Msg("serving metrics until interrupted")
		if err := serveMetrics(ctx, cfg.MetricsAddr); err != nil {
			log.Error().Err(err).Msg("metrics server")
			return exitFatal
		}
	}
	return 0
}
