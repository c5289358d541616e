package model

// WidgetQuery is one named query of a timeseries widget request.
type WidgetQuery struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	Step        string    `json:"step,omitempty"`
	Spec        QuerySpec `json:"spec"`
}

// TimeseriesRequest is the body of a widget timeseries query.
type TimeseriesRequest struct {
	Start    string         `json:"start"`
	End      string         `json:"end"`
	Compare  bool           `json:"compare"`
	Queries  []WidgetQuery  `json:"queries"`
	Formulas []FormulaDraft `json:"formulas"`
}

// TimeseriesResponse is the chart-ready answer to a TimeseriesRequest.
type TimeseriesResponse struct {
	SeriesNames []string                     `json:"series_names"`
	Rows        []*MergedRow                 `json:"rows"`
	Timeline    []string                     `json:"timeline"`
	Queries     []QueryRunResult             `json:"queries"`
	Formulas    []QueryRunResult             `json:"formulas"`
	Attempts    map[string][]FallbackAttempt `json:"attempts"`
	Error       string                       `json:"error,omitempty"`
}
