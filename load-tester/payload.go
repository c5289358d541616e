package main

import (
	"fmt"
	"math/rand"
	"time"
)

var (
	sources    = []string{"logs", "traces", "metrics"}
	services   = []string{"checkout", "billing", "search", "auth"}
	severities = []string{"debug", "info", "info", "info", "warn", "error", "fatal"}
	eventNames = map[string][]string{
		"logs":    {"request", "db_query", "cache_miss"},
		"traces":  {"http.server", "sql.query", "rpc.client"},
		"metrics": {"cpu_usage", "heap_bytes", "queue_depth"},
	}
	regions = []string{"eu-west-1", "us-east-1", "ap-south-1"}

	queryMetrics = []string{"count", "error_count", "avg", "p95"}
	groupBy      = []string{"", "service", "severity"}
	steps        = []string{"", "1m", "5m", "bad"}
)

const replaySize = 256

// generator produces request bodies for one worker. It is not safe for
// concurrent use; each worker owns one.
type generator struct {
	mode          string
	spread        time.Duration
	replayPercent int
	rng           *rand.Rand
	recent        []map[string]any
	cursor        int
}

func newGenerator(cfg config, rng *rand.Rand) *generator {
	return &generator{
		mode:          cfg.mode,
		spread:        cfg.spread,
		replayPercent: cfg.replayPercent,
		rng:           rng,
		recent:        make([]map[string]any, 0, replaySize),
	}
}

func (g *generator) next() any {
	if g.mode == modeQuery {
		return g.widgetQuery()
	}
	if g.replayPercent > 0 && len(g.recent) > 0 && g.rng.Intn(100) < g.replayPercent {
		return g.recent[g.rng.Intn(len(g.recent))]
	}
	evt := g.event()
	g.remember(evt)
	return evt
}

// remember keeps the last replaySize events in a ring.
func (g *generator) remember(evt map[string]any) {
	if len(g.recent) < replaySize {
		g.recent = append(g.recent, evt)
		return
	}
	g.recent[g.cursor] = evt
	g.cursor = (g.cursor + 1) % replaySize
}

// event builds a telemetry payload with a timestamp somewhere in the last
// spread, so dashboards over that range have data in every bucket.
func (g *generator) event() map[string]any {
	source := pick(g.rng, sources)
	offset := int64(0)
	if seconds := int64(g.spread / time.Second); seconds > 0 {
		offset = g.rng.Int63n(seconds)
	}
	return map[string]any{
		"source":    source,
		"service":   pick(g.rng, services),
		"severity":  pick(g.rng, severities),
		"name":      pick(g.rng, eventNames[source]),
		"value":     g.rng.ExpFloat64() * 120,
		"trace_id":  fmt.Sprintf("%016x", g.rng.Uint64()),
		"timestamp": time.Now().Unix() - offset,
		"attributes": map[string]any{
			"region": pick(g.rng, regions),
			"host":   fmt.Sprintf("node-%02d", g.rng.Intn(20)),
		},
	}
}

// widgetQuery builds a two-query widget with an error-rate formula over the
// last spread, comparing against the previous period half the time.
func (g *generator) widgetQuery() map[string]any {
	end := time.Now().UTC()
	start := end.Add(-g.spread)
	source := pick(g.rng, sources)
	return map[string]any{
		"start":   start.Format("2006-01-02 15:04:05"),
		"end":     end.Format("2006-01-02 15:04:05"),
		"compare": g.rng.Intn(2) == 0,
		"queries": []map[string]any{
			{
				"name": "A",
				"step": pick(g.rng, steps),
				"spec": map[string]any{"kind": "timeseries", "source": source, "metric": "error_count"},
			},
			{
				"name": "B",
				"spec": map[string]any{
					"kind":     "timeseries",
					"source":   source,
					"metric":   pick(g.rng, queryMetrics),
					"group_by": pick(g.rng, groupBy),
				},
			},
		},
		"formulas": []map[string]any{
			{"name": "F1", "expression": "A / B * 100", "legend": "error rate"},
		},
	}
}

func pick(rng *rand.Rand, values []string) string {
	return values[rng.Intn(len(values))]
}
