package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/pkg/errors"

	"dashboard-query-service/internal/model"
	"dashboard-query-service/internal/timeseries"
)

// EventRepository defines database operations for telemetry events.
type EventRepository interface {
	// Create inserts a single event.
	Create(ctx context.Context, event model.Event) error

	// CreateBatch inserts multiple events with a single ClickHouse batch.
	CreateBatch(ctx context.Context, events []model.Event) error

	// FetchTimeseries aggregates events of one source into buckets of spec.BucketSeconds.
	FetchTimeseries(ctx context.Context, start, end time.Time, spec model.QuerySpec) ([]model.BucketRow, error)
}

type eventRepository struct {
	conn clickhouse.Conn
}

// NewEventRepository creates an EventRepository backed by ClickHouse.
func NewEventRepository(conn clickhouse.Conn) EventRepository {
	return &eventRepository{conn: conn}
}

const insertEventQuery = `
	INSERT INTO events (event_id, source, service, severity, name, value, trace_id, ts, attributes)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const insertEventBatchQuery = `INSERT INTO events (event_id, source, service, severity, name, value, trace_id, ts, attributes)`

func (r *eventRepository) Create(ctx context.Context, event model.Event) error {
	attributes, err := marshalAttributes(event.Attributes)
	if err != nil {
		return err
	}

	err = r.conn.Exec(ctx, insertEventQuery,
		event.ID,
		event.Source,
		event.Service,
		event.Severity,
		event.Name,
		event.Value,
		event.TraceID,
		event.Timestamp,
		attributes,
	)
	if err != nil {
		return errors.Wrap(err, "insert event")
	}
	return nil
}

func (r *eventRepository) CreateBatch(ctx context.Context, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := r.conn.PrepareBatch(ctx, insertEventBatchQuery)
	if err != nil {
		return errors.Wrap(err, "prepare batch")
	}

	for _, event := range events {
		attributes, err := marshalAttributes(event.Attributes)
		if err != nil {
			_ = batch.Abort()
			return err
		}

		err = batch.Append(
			event.ID,
			event.Source,
			event.Service,
			event.Severity,
			event.Name,
			event.Value,
			event.TraceID,
			event.Timestamp,
			attributes,
		)
		if err != nil {
			_ = batch.Abort()
			return errors.Wrap(err, "append batch")
		}
	}

	if err := batch.Send(); err != nil {
		return errors.Wrap(err, "send batch")
	}
	return nil
}

// timeseriesRecord is one (bucket, group) cell returned by ClickHouse.
type timeseriesRecord struct {
	Bucket   time.Time `ch:"bucket"`
	GroupKey string    `ch:"group_key"`
	Value    float64   `ch:"value"`
}

func (r *eventRepository) FetchTimeseries(ctx context.Context, start, end time.Time, spec model.QuerySpec) ([]model.BucketRow, error) {
	query, args, err := buildTimeseriesQuery(start, end, spec)
	if err != nil {
		return nil, err
	}

	var records []timeseriesRecord
	if err := r.conn.Select(ctx, &records, query, args...); err != nil {
		return nil, errors.Wrap(err, "timeseries query")
	}

	return foldRecords(records), nil
}

var metricExpressions = map[string]string{
	"count":         "count()",
	"error_count":   "countIf(severity IN ('error', 'fatal'))",
	"unique_traces": "uniqExact(trace_id)",
	"sum":           "sum(value)",
	"avg":           "avg(value)",
	"min":           "min(value)",
	"max":           "max(value)",
	"p95":           "quantile(0.95)(value)",
	"p99":           "quantile(0.99)(value)",
}

var queryableFields = map[string]bool{
	"service":  true,
	"severity": true,
	"name":     true,
	"trace_id": true,
}

var filterOperators = map[string]string{
	"":    "=",
	"eq":  "=",
	"neq": "!=",
}

// SupportedMetric reports whether metric can be aggregated.
func SupportedMetric(metric string) bool {
	_, ok := metricExpressions[metric]
	return ok
}

// SupportedField reports whether field can be grouped or filtered on.
func SupportedField(field string) bool {
	return queryableFields[field]
}

// SupportedOperator reports whether op is a known filter operator.
func SupportedOperator(op string) bool {
	_, ok := filterOperators[op]
	return ok
}

func buildTimeseriesQuery(start, end time.Time, spec model.QuerySpec) (string, []any, error) {
	// Only whitelisted identifiers reach the SQL text; values are bound.
	aggExpr, ok := metricExpressions[spec.Metric]
	if !ok {
		return "", nil, fmt.Errorf("unsupported metric: %s", spec.Metric)
	}

	groupExpr := fmt.Sprintf("'%s'", timeseries.UngroupedSeriesKey)
	if spec.GroupBy != "" {
		if !queryableFields[spec.GroupBy] {
			return "", nil, fmt.Errorf("unsupported group_by: %s", spec.GroupBy)
		}
		groupExpr = spec.GroupBy
	}

	bucketSeconds := 60
	if spec.BucketSeconds != nil && *spec.BucketSeconds > 0 {
		bucketSeconds = *spec.BucketSeconds
	}

	where := []string{"source = ?", "ts >= ?", "ts <= ?"}
	args := []any{spec.Source, start, end}
	for _, cond := range spec.Filter {
		if !queryableFields[cond.Field] {
			return "", nil, fmt.Errorf("unsupported filter field: %s", cond.Field)
		}
		op, ok := filterOperators[cond.Op]
		if !ok {
			return "", nil, fmt.Errorf("unsupported filter operator: %s", cond.Op)
		}
		where = append(where, fmt.Sprintf("%s %s ?", cond.Field, op))
		args = append(args, cond.Value)
	}

	query := fmt.Sprintf(
		"SELECT toStartOfInterval(ts, INTERVAL %d SECOND) AS bucket, %s AS group_key, toFloat64(%s) AS value FROM events WHERE %s GROUP BY bucket, group_key ORDER BY bucket, group_key",
		bucketSeconds, groupExpr, aggExpr, strings.Join(where, " AND "))

	return query, args, nil
}

func foldRecords(records []timeseriesRecord) []model.BucketRow {
	rows := make([]model.BucketRow, 0)
	index := map[string]int{}
	for _, rec := range records {
		key := timeseries.FormatBucket(rec.Bucket)
		i, ok := index[key]
		if !ok {
			i = len(rows)
			index[key] = i
			rows = append(rows, model.BucketRow{Bucket: key, Series: map[string]float64{}})
		}
		rows[i].Series[rec.GroupKey] = rec.Value
	}
	return rows
}

func marshalAttributes(attributes map[string]interface{}) (string, error) {
	if attributes == nil {
		return "{}", nil
	}
	b, err := json.Marshal(attributes)
	if err != nil {
		return "", errors.Wrap(err, "marshal attributes")
	}
	return string(b), nil
}
