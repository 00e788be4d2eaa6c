// Command loadtest drives POST /api/v1/match with a fixed worker pool and
// reports throughput, latency percentiles, cache hits and degraded answers.
//
// Usage:
//
//	go run ./cmd/loadtest -timelines t1,t2,t3 [-token rm_...] [-concurrency 10] [-duration 30s]
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type Config struct {
	BaseURL      string
	Token        string
	Concurrency  int
	Duration     time.Duration
	Limit        int
	RefreshEvery int
	Timelines    []string
}

type Stats struct {
	totalRequests atomic.Int64
	successCount  atomic.Int64
	errorCount    atomic.Int64
	cacheHits     atomic.Int64
	degraded      atomic.Int64
	latencies     []time.Duration
	statusCodes   map[int]int64
	mu            sync.Mutex
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make([]time.Duration, 0, 100000),
		statusCodes: make(map[int]int64),
	}
}

// Record counts one request. A zero status means the request never got a
// response.
func (s *Stats) Record(duration time.Duration, status int, header http.Header) {
	s.totalRequests.Add(1)
	if status == 0 {
		s.errorCount.Add(1)
		return
	}

	if status >= 200 && status < 300 {
		s.successCount.Add(1)
		if header.Get("X-Match-Cache") == "hit" {
			s.cacheHits.Add(1)
		}
		if header.Get("X-Match-Degraded") == "true" {
			s.degraded.Add(1)
		}
	} else {
		s.errorCount.Add(1)
	}

	s.mu.Lock()
	s.latencies = append(s.latencies, duration)
	s.statusCodes[status]++
	s.mu.Unlock()
}

func main() {
	baseURL := flag.String("url", "http://localhost:8003", "base URL of the match service")
	token := flag.String("token", "", "bearer token (omit when auth is disabled)")
	timelines := flag.String("timelines", "", "comma-separated timeline ids to match")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	limit := flag.Int("limit", 10, "matches requested per call")
	refreshEvery := flag.Int("refresh-every", 0, "send force_refresh on every Nth request per worker (0 = never)")
	flag.Parse()

	cfg := Config{
		BaseURL:      strings.TrimRight(*baseURL, "/"),
		Token:        *token,
		Concurrency:  *concurrency,
		Duration:     *duration,
		Limit:        *limit,
		RefreshEvery: *refreshEvery,
		Timelines:    splitIDs(*timelines),
	}
	if len(cfg.Timelines) == 0 {
		fmt.Fprintln(os.Stderr, "error: -timelines is required")
		os.Exit(1)
	}

	fmt.Println("=== Match Service Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Timelines:   %d\n", len(cfg.Timelines))
	fmt.Println()

	stats := runLoadTest(cfg)
	if !printReport(os.Stdout, stats, cfg.Duration) {
		os.Exit(1)
	}
}

func splitIDs(s string) []string {
	var ids []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func runLoadTest(cfg Config) *Stats {
	stats := NewStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	fmt.Print("Running")

	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for n := 0; ctx.Err() == nil; n++ {
				refresh := cfg.RefreshEvery > 0 && n%cfg.RefreshEvery == cfg.RefreshEvery-1
				req, err := newMatchRequest(ctx, cfg, cfg.Timelines[(workerID+n)%len(cfg.Timelines)], refresh)
				if err != nil {
					fmt.Fprintf(os.Stderr, "building request: %v\n", err)
					return
				}

				start := time.Now()
				resp, err := client.Do(req)
				elapsed := time.Since(start)
				if err != nil {
					if ctx.Err() == nil {
						stats.Record(elapsed, 0, nil)
					}
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				stats.Record(elapsed, resp.StatusCode, resp.Header)
			}
		}(w)
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	wg.Wait()
	fmt.Println(" done!")
	fmt.Println()
	return stats
}

func newMatchRequest(ctx context.Context, cfg Config, timelineID string, refresh bool) (*http.Request, error) {
	body, err := json.Marshal(map[string]any{
		"timeline_id":   timelineID,
		"limit":         cfg.Limit,
		"force_refresh": refresh,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL+"/api/v1/match", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.Token)
	}
	return req, nil
}

// printReport writes the summary and reports whether any request completed.
func printReport(w io.Writer, stats *Stats, duration time.Duration) bool {
	total := stats.totalRequests.Load()
	success := stats.successCount.Load()
	failed := stats.errorCount.Load()

	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Total Requests:  %d\n", total)
	fmt.Fprintf(w, "Successful:      %d\n", success)
	fmt.Fprintf(w, "Errors:          %d\n", failed)

	if total > 0 {
		fmt.Fprintf(w, "Error Rate:      %.2f%%\n", float64(failed)/float64(total)*100)
		fmt.Fprintf(w, "Requests/sec:    %.2f\n", float64(total)/duration.Seconds())
	}
	if success > 0 {
		fmt.Fprintf(w, "Cache Hit Rate:  %.2f%%\n", float64(stats.cacheHits.Load())/float64(success)*100)
		fmt.Fprintf(w, "Degraded:        %d\n", stats.degraded.Load())
	}

	stats.mu.Lock()
	latencies := slices.Clone(stats.latencies)
	codes := make([]int, 0, len(stats.statusCodes))
	for code := range stats.statusCodes {
		codes = append(codes, code)
	}
	counts := make(map[int]int64, len(codes))
	for _, code := range codes {
		counts[code] = stats.statusCodes[code]
	}
	stats.mu.Unlock()

	if len(latencies) > 0 {
		slices.Sort(latencies)

		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		avg := sum / time.Duration(len(latencies))

		var sumSquared float64
		for _, l := range latencies {
			diff := float64(l) - float64(avg)
			sumSquared += diff * diff
		}

		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Latency ===")
		fmt.Fprintf(w, "Min:    %s\n", latencies[0])
		fmt.Fprintf(w, "Avg:    %s\n", avg)
		fmt.Fprintf(w, "P50:    %s\n", percentile(latencies, 50))
		fmt.Fprintf(w, "P90:    %s\n", percentile(latencies, 90))
		fmt.Fprintf(w, "P95:    %s\n", percentile(latencies, 95))
		fmt.Fprintf(w, "P99:    %s\n", percentile(latencies, 99))
		fmt.Fprintf(w, "Max:    %s\n", latencies[len(latencies)-1])
		fmt.Fprintf(w, "StdDev: %s\n", time.Duration(math.Sqrt(sumSquared/float64(len(latencies)))))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Status Codes ===")
	slices.Sort(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  %d: %d\n", code, counts[code])
	}

	if total == 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "WARNING: No requests completed. Is the service running?")
		return false
	}
	return true
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[max(0, min(idx, len(sorted)-1))]
}
