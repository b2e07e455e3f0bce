// Fetch candles from the FastAPI bridge and write a CSV the bias CLI can read.
//
// Usage examples:
//   # In Docker Compose (inside the same network as the bridge):
//   docker compose run --rm bot go run ./tools/backfill \
//     -product BTC-USD -granularity ONE_DAY -limit 300 -out data/BTC-USD_D1.csv
//
//   # On host, paging backward 20 windows of 300 candles:
//   BRIDGE_URL=http://localhost:8787 go run ./tools/backfill \
//     -product BTC-USD -granularity ONE_HOUR -limit 300 -pages 20 -out data/BTC-USD_H1.csv
//
// Notes:
// - Bridge /candles returns a list of objects with fields: start (UNIX seconds),
//   open, high, low, close, volume (strings or numbers). start -> RFC3339 in the CSV.
// - The CSV header is: Datetime,Open,High,Low,Close,Volume.
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var errNoCandles = errors.New("no candles returned")

type candleRow struct {
	Start  string `json:"start"`
	Open   string `json:"open"`
	High   string `json:"high"`
	Low    string `json:"low"`
	Close  string `json:"close"`
	Volume string `json:"volume"`
}

func (r candleRow) unix() int64 {
	sec, _ := strconv.ParseInt(r.Start, 10, 64)
	return sec
}

type fetchOpts struct {
	Product     string
	Granularity string
	Limit       int
	Pages       int
	RPS         float64 // bridge requests per second; 0 disables the limiter
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("backfill", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		product     = fs.String("product", "BTC-USD", "Product ID (e.g., BTC-USD)")
		granularity = fs.String("granularity", "ONE_DAY", "Granularity (e.g., ONE_MINUTE, ONE_HOUR, ONE_DAY)")
		limit       = fs.Int("limit", 300, "Candles per request (API max typically 350)")
		pages       = fs.Int("pages", 1, "How many pages to fetch (backwards in time)")
		rps         = fs.Float64("rps", 2, "Max bridge requests per second (0 = unlimited)")
		outPath     = fs.String("out", "data/BTC-USD.csv", "Output CSV path")
	)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.TimeOnly, NoColor: true}).
		With().Timestamp().Str("tool", "backfill").Logger()

	bridge := getenv("BRIDGE_URL", "http://bridge:8787") // default matches Compose service name
	client := &http.Client{Timeout: 30 * time.Second}
	opts := fetchOpts{Product: *product, Granularity: *granularity, Limit: *limit, Pages: *pages, RPS: *rps}

	rows, err := fetchCandles(ctx, client, bridge, opts, time.Now().UTC())
	if err == nil {
		err = writeCandlesFile(*outPath, rows)
	}
	if err != nil {
		log.Error().Err(err).Str("bridge", bridge).Msg("backfill failed")
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	log.Info().Str("product", opts.Product).Str("granularity", opts.Granularity).Int("rows", len(rows)).Msg("backfill done")
	fmt.Fprintf(stdout, "Wrote %s (%d rows)\n", *outPath, len(rows))
	return 0
}

// fetchCandles pulls opts.Pages windows ending at now, newest first, and
// returns them deduplicated by start time in ascending order. A single page
// is requested without a time window so the bridge picks the latest candles.
func fetchCandles(ctx context.Context, client *http.Client, bridge string, opts fetchOpts, now time.Time) ([]candleRow, error) {
	if opts.Limit <= 0 {
		return nil, fmt.Errorf("limit must be positive (got %d)", opts.Limit)
	}
	pages := max(opts.Pages, 1)
	var secPer int64
	if pages > 1 {
		if secPer = granularitySeconds(opts.Granularity); secPer <= 0 {
			return nil, fmt.Errorf("unsupported granularity for paging: %s", opts.Granularity)
		}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RPS), 1)
	}

	base := strings.TrimRight(bridge, "/") + "/candles"
	end := now
	var all []candleRow
	for p := 0; p < pages; p++ {
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
		q := url.Values{}
		q.Set("product_id", opts.Product)
		q.Set("granularity", opts.Granularity)
		q.Set("limit", strconv.Itoa(opts.Limit))
		var start time.Time
		if pages > 1 {
			// pad the window a little to avoid edge filtering on the server
			start = end.Add(-time.Duration(int64(opts.Limit+5)*secPer) * time.Second)
			q.Set("start", strconv.FormatInt(start.Unix(), 10))
			q.Set("end", strconv.FormatInt(end.Unix(), 10))
		}

		batch, err := getCandles(ctx, client, base+"?"+q.Encode())
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		all = append(all, batch...)
		end = start
	}

	all = dedupeSort(all)
	if len(all) == 0 {
		return nil, errNoCandles
	}
	return all, nil
}

func getCandles(ctx context.Context, client *http.Client, u string) ([]candleRow, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("bridge /candles status %d", resp.StatusCode)
	}
	// The bridge returns a JSON array of objects; tolerate {"candles":[...]} too.
	var raw any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}
	return normalizeList(raw), nil
}

// dedupeSort drops rows without a start and keeps the last copy of each start.
func dedupeSort(rows []candleRow) []candleRow {
	byStart := make(map[string]candleRow, len(rows))
	for _, r := range rows {
		if r.Start != "" {
			byStart[r.Start] = r
		}
	}
	out := make([]candleRow, 0, len(byStart))
	for _, r := range byStart {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].unix() < out[j].unix() })
	return out
}

func writeCandlesCSV(w io.Writer, rows []candleRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Datetime", "Open", "High", "Low", "Close", "Volume"}); err != nil {
		return err
	}
	for _, r := range rows {
		ts := time.Unix(r.unix(), 0).UTC().Format(time.RFC3339)
		if err := cw.Write([]string{ts, r.Open, r.High, r.Low, r.Close, r.Volume}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeCandlesFile writes via a temp file in the target directory, then renames.
func writeCandlesFile(path string, rows []candleRow) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".backfill-*.csv")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := writeCandlesCSV(tmp, rows); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func granularitySeconds(g string) int64 {
	switch g {
	case "ONE_MINUTE":
		return 60
	case "FIVE_MINUTE":
		return 5 * 60
	case "FIFTEEN_MINUTE":
		return 15 * 60
	case "THIRTY_MINUTE":
		return 30 * 60
	case "ONE_HOUR":
		return 60 * 60
	case "TWO_HOUR":
		return 2 * 60 * 60
	case "FOUR_HOUR":
		return 4 * 60 * 60
	case "SIX_HOUR":
		return 6 * 60 * 60
	case "ONE_DAY":
		return 24 * 60 * 60
	default:
		return 0
	}
}

func normalizeList(raw any) []candleRow {
	switch v := raw.(type) {
	case []any:
		return toRows(v)
	case map[string]any:
		if arr, ok := v["candles"].([]any); ok {
			return toRows(arr)
		}
	}
	return nil
}

func toRows(arr []any) []candleRow {
	out := make([]candleRow, 0, len(arr))
	for _, it := range arr {
		if m, ok := it.(map[string]any); ok {
			out = append(out, candleRow{
				Start:  asString(m["start"]),
				Open:   asString(m["open"]),
				High:   asString(m["high"]),
				Low:    asString(m["low"]),
				Close:  asString(m["close"]),
				Volume: asString(m["volume"]),
			})
		}
	}
	return out
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		// JSON numbers come as float64; format without scientific notation.
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}
