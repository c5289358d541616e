package timeseries

import (
	"testing"

	"dashboard-query-service/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestCountSuccessfulQuerySeries(t *testing.T) {
	results := []model.QueryRunResult{
		{QueryID: "shells", Data: []model.BucketRow{{Bucket: t1, Series: map[string]float64{}}}},
		{QueryID: "empty"},
		{QueryID: "data", Data: []model.BucketRow{{Bucket: t1, Series: map[string]float64{}}, {Bucket: t2, Series: map[string]float64{"all": 1}}}},
	}
	assert.Equal(t, 1, CountSuccessfulQuerySeries(results))
}

func TestNoQueryDataMessage(t *testing.T) {
	assert.Equal(t, NoDataMessage, NoQueryDataMessage(nil))

	results := []model.QueryRunResult{
		{Status: model.StatusSuccess},
		{Status: model.StatusError, Error: model.StringPtr("")},
		{Status: model.StatusError, Error: model.StringPtr("Timeseries query too expensive")},
		{Status: model.StatusError, Error: model.StringPtr("later")},
	}
	assert.Equal(t, "Timeseries query too expensive", NoQueryDataMessage(results))
}
