package timeseries

import (
	"sort"

	"dashboard-query-service/internal/model"
)

// UngroupedSeriesKey is the single series key of a query without group by.
const UngroupedSeriesKey = "all"

// SeriesColumnName names the merged column for one series of a query.
// Ungrouped results (and a formula's own legend) use the display name alone.
func SeriesColumnName(displayName, source, seriesKey string, seriesCount int) string {
	if seriesCount == 1 && (seriesKey == UngroupedSeriesKey || (source == model.SourceFormula && seriesKey == displayName)) {
		return displayName
	}
	return displayName + ": " + seriesKey
}

// DisplayName resolves the label of a query result.
func DisplayName(result model.QueryRunResult, displayNameByQueryID map[string]string) string {
	if name, ok := displayNameByQueryID[result.QueryID]; ok && name != "" {
		return name
	}
	if result.QueryName != "" {
		return result.QueryName
	}
	return result.QueryID
}

// MergeQueryRunResults unions the buckets of all results into one table.
// Every row ends up with a value for every series name; absent cells are 0.
func MergeQueryRunResults(results []model.QueryRunResult, displayNameByQueryID map[string]string) model.MergedTable {
	table := model.MergedTable{
		SeriesNames:  []string{},
		RowsByBucket: map[string]*model.MergedRow{},
	}
	seen := map[string]struct{}{}

	for _, result := range results {
		display := DisplayName(result, displayNameByQueryID)
		for _, row := range result.Data {
			key := ToISOBucket(row.Bucket)
			merged, ok := table.RowsByBucket[key]
			if !ok {
				merged = &model.MergedRow{Bucket: key, Values: map[string]float64{}}
				table.RowsByBucket[key] = merged
			}

			for _, seriesKey := range sortedSeriesKeys(row.Series) {
				column := SeriesColumnName(display, result.Source, seriesKey, len(row.Series))
				merged.Values[column] = row.Series[seriesKey]
				if _, dup := seen[column]; !dup {
					seen[column] = struct{}{}
					table.SeriesNames = append(table.SeriesNames, column)
				}
			}
		}
	}

	for _, row := range table.RowsByBucket {
		for _, name := range table.SeriesNames {
			if _, ok := row.Values[name]; !ok {
				row.Values[name] = 0
			}
		}
	}

	return table
}

func sortedSeriesKeys(series map[string]float64) []string {
	keys := make([]string, 0, len(series))
	for k := range series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
