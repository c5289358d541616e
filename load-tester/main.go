// Command load-tester drives the dashboard query service at a fixed request
// rate, either ingesting telemetry events or running widget queries.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

const (
	modeEvents = "events"
	modeQuery  = "query"
)

type config struct {
	endpoint      string
	mode          string
	total         int
	rate          int
	workers       int
	replayPercent int
	spread        time.Duration
}

func parseFlags() config {
	var c config
	flag.StringVar(&c.endpoint, "endpoint", "", "Target URL (required)")
	flag.StringVar(&c.mode, "mode", modeEvents, "Payload kind: events (POST /events) or query (POST /query/timeseries)")
	flag.IntVar(&c.total, "total", 10000, "Total requests")
	flag.IntVar(&c.rate, "rate", 2000, "Requests per second")
	flag.IntVar(&c.workers, "concurrency", 0, "Worker count (0=auto)")
	flag.IntVar(&c.replayPercent, "duplication-percent", 0, "Percent of events re-sent from recent history (events mode)")
	flag.DurationVar(&c.spread, "spread", time.Hour, "Event timestamps and query ranges cover this much of the past")
	flag.Parse()

	switch {
	case c.endpoint == "":
		fail("-endpoint is required")
	case c.mode != modeEvents && c.mode != modeQuery:
		fail("-mode must be events or query")
	case c.rate <= 0:
		fail("-rate must be positive")
	}

	if c.workers <= 0 {
		c.workers = max(c.rate/20, 50)
	}
	c.replayPercent = min(max(c.replayPercent, 0), 100)
	return c
}

func fail(msg string) {
	fmt.Fprintln(os.Stderr, "Error:", msg)
	flag.Usage()
	os.Exit(1)
}

// recorder aggregates request outcomes across workers.
type recorder struct {
	ok            atomic.Uint64
	failed        atomic.Uint64
	latencyMicros atomic.Int64
}

func (r *recorder) observe(elapsed time.Duration, err error) {
	if err != nil {
		r.failed.Add(1)
		return
	}
	r.ok.Add(1)
	r.latencyMicros.Add(elapsed.Microseconds())
}

// report logs per-second deltas until ctx is done.
func (r *recorder) report(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var prevOK, prevFailed uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ok, failed := r.ok.Load(), r.failed.Load()
			avg := 0.0
			if ok > 0 {
				avg = float64(r.latencyMicros.Load()) / float64(ok) / 1000
			}
			log.Printf("[STATS] 1s -> OK: %d | ERR: %d | AvgLat: %.2fms | Total OK: %d", ok-prevOK, failed-prevFailed, avg, ok)
			prevOK, prevFailed = ok, failed
		}
	}
}

func main() {
	cfg := parseFlags()
	rec := &recorder{}

	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.workers,
			MaxIdleConnsPerHost: cfg.workers,
			IdleConnTimeout:     90 * time.Second,
			DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		},
	}

	log.Printf("Starting Load Test: Target=%s Mode=%s Rate=%d/s Total=%d Workers=%d Spread=%s",
		cfg.endpoint, cfg.mode, cfg.rate, cfg.total, cfg.workers, cfg.spread)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go rec.report(ctx)

	jobs := make(chan struct{}, cfg.rate*2)
	seed := rand.New(rand.NewSource(time.Now().UnixNano()))

	var wg sync.WaitGroup
	for i := 0; i < cfg.workers; i++ {
		wg.Add(1)
		gen := newGenerator(cfg, rand.New(rand.NewSource(seed.Int63())))
		go func() {
			defer wg.Done()
			runWorker(client, cfg.endpoint, jobs, gen, rec)
		}()
	}

	dispatch(jobs, cfg.total, cfg.rate)
	close(jobs)
	wg.Wait()

	log.Printf("DONE. Total OK: %d | Total Errors: %d", rec.ok.Load(), rec.failed.Load())
}

// dispatch releases up to rate jobs at the start of every second.
func dispatch(jobs chan<- struct{}, total, rate int) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for remaining := total; remaining > 0; {
		n := min(rate, remaining)
		for i := 0; i < n; i++ {
			jobs <- struct{}{}
		}
		remaining -= n
		if remaining > 0 {
			<-ticker.C
		}
	}
}

func runWorker(client *http.Client, endpoint string, jobs <-chan struct{}, gen *generator, rec *recorder) {
	for range jobs {
		started := time.Now()
		err := post(client, endpoint, gen.next())
		rec.observe(time.Since(started), err)
	}
}

func post(client *http.Client, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	// drain so the connection is reused
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("http status: %d", resp.StatusCode)
	}
	return nil
}
