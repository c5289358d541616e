package model

import (
	"encoding/json"
	"sort"
)

// MergedRow is one chart row. Values never contains the bucket key.
type MergedRow struct {
	Bucket string
	Values map[string]float64
}

// MarshalJSON flattens the row into {"bucket": ..., "<series>": value}.
func (r MergedRow) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Values)+1)
	for k, v := range r.Values {
		out[k] = v
	}
	out["bucket"] = r.Bucket
	return json.Marshal(out)
}

// MergedTable aligns several query results by bucket.
type MergedTable struct {
	SeriesNames  []string
	RowsByBucket map[string]*MergedRow
}

// Rows returns the rows ordered by bucket.
func (t MergedTable) Rows() []*MergedRow {
	keys := make([]string, 0, len(t.RowsByBucket))
	for k := range t.RowsByBucket {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([]*MergedRow, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, t.RowsByBucket[k])
	}
	return rows
}
