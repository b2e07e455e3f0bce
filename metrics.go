// FILE: metrics.go
// Package main – Prometheus metrics for observability.
//
// Exposes run metrics updated by runBias:
//   • bias_runs_total{result}             – Runs by result (ok|input_not_found|schema_error|config_error|error)
//   • bias_rows_total{stage}              – Rows seen per stage (read|parsed|output)
//   • bias_rows_dropped_total{reason}     – Rows dropped (bad_timestamp|duplicate)
//   • bias_labels_total{label}            – Output rows by label (Bullish|Bearish|Neutral)
//   • bias_last_score                     – Bias_score of the newest row (NaN when missing)
//   • bias_last_confidence                – confidence of the newest row
//   • bias_run_duration_seconds           – Wall time of the last run
//
// These are registered in init(). A batch run can persist them with
// writeMetricsFile (node_exporter textfile format) or serve them at /metrics.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	mtxRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bias_runs_total",
			Help: "Pipeline runs by result",
		},
		[]string{"result"},
	)

	mtxRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bias_rows_total",
			Help: "Rows seen per pipeline stage",
		},
		[]string{"stage"},
	)

	mtxDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bias_rows_dropped_total",
			Help: "Input rows dropped during schema normalization",
		},
		[]string{"reason"},
	)

	mtxLabels = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bias_labels_total",
			Help: "Output rows by bias label",
		},
		[]string{"label"},
	)

	mtxLastScore = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bias_last_score",
			Help: "Bias_score of the newest output row",
		},
	)

	mtxLastConfidence = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bias_last_confidence",
			Help: "confidence of the newest output row",
		},
	)

	mtxDuration = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bias_run_duration_seconds",
			Help: "Wall time of the last pipeline run",
		},
	)
)

func init() {
	prometheus.MustRegister(mtxRuns, mtxRows, mtxDropped, mtxLabels)
	prometheus.MustRegister(mtxLastScore, mtxLastConfidence, mtxDuration)
}

// runResult maps a run error onto the bias_runs_total label.
func runResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInputNotFound):
		return "input_not_found"
	case errors.Is(err, ErrSchema):
		return "schema_error"
	case errors.Is(err, ErrConfig):
		return "config_error"
	default:
		return "error"
	}
}

func observeSchema(rep SchemaReport) {
	mtxRows.WithLabelValues("read").Add(float64(rep.RowsRead))
	mtxRows.WithLabelValues("parsed").Add(float64(rep.Rows))
	mtxDropped.WithLabelValues("bad_timestamp").Add(float64(rep.BadTimestamps))
	mtxDropped.WithLabelValues("duplicate").Add(float64(rep.Duplicates))
}

func observeRows(rows []BiasRow) {
	mtxRows.WithLabelValues("output").Add(float64(len(rows)))
	for _, r := range rows {
		mtxLabels.WithLabelValues(r.Label.String()).Inc()
	}
	if n := len(rows); n > 0 {
		mtxLastScore.Set(rows[n-1].BiasScore)
		mtxLastConfidence.Set(rows[n-1].Confidence)
	}
}

func observeRun(err error, elapsed time.Duration) {
	mtxRuns.WithLabelValues(runResult(err)).Inc()
	mtxDuration.Set(elapsed.Seconds())
}

// writeMetricsFile dumps the default registry in text exposition format.
func writeMetricsFile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics file: %w", err)
	}
	return nil
}

// serveMetrics exposes /metrics and /healthz on addr until ctx is done.
func serveMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
