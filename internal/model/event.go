package model

import (
	"time"
)

// Telemetry sources accepted by ingestion and timeseries queries.
const (
	SourceLogs    = "logs"
	SourceTraces  = "traces"
	SourceMetrics = "metrics"
)

// EventRequest represents incoming telemetry payload.
type EventRequest struct {
	Source     string                 `json:"source"`
	Service    string                 `json:"service"`
	Severity   string                 `json:"severity"`
	Name       string                 `json:"name"`
	Value      float64                `json:"value"`
	TraceID    string                 `json:"trace_id"`
	Timestamp  int64                  `json:"timestamp"`
	Attributes map[string]interface{} `json:"attributes"`
}

// Event is the domain model persisted in the database.
type Event struct {
	ID         string
	Source     string
	Service    string
	Severity   string
	Name       string
	Value      float64
	TraceID    string
	Timestamp  time.Time
	Attributes map[string]interface{}
}

// EventResult is returned once an event has been accepted.
type EventResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}
