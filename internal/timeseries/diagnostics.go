package timeseries

import "dashboard-query-service/internal/model"

// NoDataMessage is shown when no query returned data and no error explains why.
const NoDataMessage = "No data found for the selected time range"

// CountSuccessfulQuerySeries counts results with at least one non-empty row.
func CountSuccessfulQuerySeries(results []model.QueryRunResult) int {
	count := 0
	for _, result := range results {
		for _, row := range result.Data {
			if len(row.Series) > 0 {
				count++
				break
			}
		}
	}
	return count
}

// NoQueryDataMessage prefers the first reported query error.
func NoQueryDataMessage(results []model.QueryRunResult) string {
	for _, result := range results {
		if result.Status == model.StatusError && result.Error != nil && *result.Error != "" {
			return *result.Error
		}
	}
	return NoDataMessage
}
