package timeseries

import (
	"math"
	"sort"
	"time"

	"dashboard-query-service/internal/model"
)

// PercentChangeSuffix is appended to a current series name for its %-change column.
const PercentChangeSuffix = " (%Δ)"

// PairID identifies one current/previous series pair.
func PairID(queryID, seriesKey string) string {
	return queryID + "::" + seriesKey
}

// ComparisonKeys maps every pair id present in results to its merged column name.
func ComparisonKeys(results []model.QueryRunResult, displayNameByQueryID map[string]string) map[string]string {
	keys := map[string]string{}
	for _, result := range results {
		display := DisplayName(result, displayNameByQueryID)
		for _, row := range result.Data {
			for seriesKey := range row.Series {
				id := PairID(result.QueryID, seriesKey)
				if _, ok := keys[id]; ok {
					continue
				}
				keys[id] = SeriesColumnName(display, result.Source, seriesKey, len(row.Series))
			}
		}
	}
	return keys
}

// AppendPercentChangeSeries writes ((current-previous)/previous)*100 into a
// "<current> (%Δ)" column for every pair known to both maps. Rows where the
// previous value is zero or either value is absent get no entry. It returns
// the names of the columns it may have written, in pair id order.
func AppendPercentChangeSeries(rows []*model.MergedRow, currentKeyByPairID, previousKeyByPairID map[string]string) []string {
	pairIDs := make([]string, 0, len(currentKeyByPairID))
	for id := range currentKeyByPairID {
		if _, ok := previousKeyByPairID[id]; ok {
			pairIDs = append(pairIDs, id)
		}
	}
	sort.Strings(pairIDs)

	columns := make([]string, 0, len(pairIDs))
	for _, id := range pairIDs {
		currentKey := currentKeyByPairID[id]
		previousKey := previousKeyByPairID[id]
		column := currentKey + PercentChangeSuffix
		columns = append(columns, column)

		for _, row := range rows {
			current, okCurrent := row.Values[currentKey]
			previous, okPrevious := row.Values[previousKey]
			if !okCurrent || !okPrevious || previous == 0 {
				continue
			}
			pct := ((current - previous) / previous) * 100
			if math.IsNaN(pct) || math.IsInf(pct, 0) {
				continue
			}
			row.Values[column] = pct
		}
	}
	return columns
}

// ShiftRows moves every bucket forward by offset so a previous period lines
// up with the current one.
func ShiftRows(rows []model.BucketRow, offset time.Duration) []model.BucketRow {
	shifted := make([]model.BucketRow, 0, len(rows))
	for _, row := range rows {
		bucket := row.Bucket
		if t, ok := ParseTime(bucket); ok {
			bucket = FormatBucket(t.Add(offset))
		}
		shifted = append(shifted, model.BucketRow{Bucket: bucket, Series: row.Series})
	}
	return shifted
}
