package timeseries

import (
	"testing"
	"time"

	"dashboard-query-service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendPercentChangeSeries(t *testing.T) {
	rows := []*model.MergedRow{
		{Bucket: "t1", Values: map[string]float64{"Errors": 15, "Errors (previous)": 10}},
		{Bucket: "t2", Values: map[string]float64{"Errors": 5, "Errors (previous)": 0}},
		{Bucket: "t3", Values: map[string]float64{"Errors": 5}},
	}

	columns := AppendPercentChangeSeries(rows,
		map[string]string{"q1::all": "Errors", "q2::all": "Latency"},
		map[string]string{"q1::all": "Errors (previous)"},
	)

	require.Equal(t, []string{"Errors (%Δ)"}, columns)
	assert.InDelta(t, 50.0, rows[0].Values["Errors (%Δ)"], 1e-9)
	assert.NotContains(t, rows[1].Values, "Errors (%Δ)")
	assert.NotContains(t, rows[2].Values, "Errors (%Δ)")
	assert.Equal(t, float64(15), rows[0].Values["Errors"], "existing columns are kept")
}

func TestComparisonKeys(t *testing.T) {
	current := []model.QueryRunResult{{
		QueryID: "q1", QueryName: "A",
		Data: []model.BucketRow{{Bucket: "t1", Series: map[string]float64{"web": 1, "api": 2}}},
	}}
	previous := []model.QueryRunResult{{
		QueryID: "q1", QueryName: "A",
		Data: []model.BucketRow{{Bucket: "t0", Series: map[string]float64{"web": 1}}},
	}}

	cur := ComparisonKeys(current, map[string]string{"q1": "Requests"})
	prev := ComparisonKeys(previous, map[string]string{"q1": "Requests (previous)"})

	assert.Equal(t, map[string]string{"q1::web": "Requests: web", "q1::api": "Requests: api"}, cur)
	assert.Equal(t, map[string]string{"q1::web": "Requests (previous): web"}, prev)
}

func TestShiftRows(t *testing.T) {
	rows := []model.BucketRow{
		{Bucket: "2026-01-01 00:00:00", Series: map[string]float64{"all": 1}},
		{Bucket: "bogus", Series: map[string]float64{"all": 2}},
	}

	shifted := ShiftRows(rows, 24*time.Hour)

	require.Len(t, shifted, 2)
	assert.Equal(t, "2026-01-02T00:00:00.000Z", shifted[0].Bucket)
	assert.Equal(t, "bogus", shifted[1].Bucket)
	assert.Equal(t, "2026-01-01 00:00:00", rows[0].Bucket)
}
