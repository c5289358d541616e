package db

import (
	"context"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/pkg/errors"
)

const createEventsTable = `
CREATE TABLE IF NOT EXISTS events
(
	event_id        String,
	source          LowCardinality(String),
	service         LowCardinality(String),
	severity        LowCardinality(String),
	name            String,
	value           Float64,
	trace_id        String,
	ts              DateTime64(3, 'UTC'),
	attributes      String DEFAULT '{}',
	ingested_at     DateTime DEFAULT now()
)
ENGINE = ReplacingMergeTree
PARTITION BY toYYYYMMDD(ts)
ORDER BY (source, service, ts, event_id)
SETTINGS
    index_granularity = 8192;
`

// RunMigrations creates the events table if it is missing.
func RunMigrations(ctx context.Context, conn clickhouse.Conn) error {
	if err := conn.Exec(ctx, createEventsTable); err != nil {
		return errors.Wrap(err, "apply migrations")
	}
	return nil
}
