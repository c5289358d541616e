package db

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"dashboard-query-service/internal/config"
)

// NewConnection opens a ClickHouse connection configured from cfg and checks it is reachable.
func NewConnection(ctx context.Context, cfg *config.Config) (clickhouse.Conn, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: cfg.ClickHouseAddr,
		Auth: clickhouse.Auth{
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUser,
			Password: cfg.ClickHousePassword,
		},
		DialTimeout:     cfg.DBDialTimeout,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open clickhouse")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := conn.Ping(ctx); err != nil {
		return nil, errors.Wrap(err, "ping clickhouse")
	}

	if cfg.AppMode == "benchmark" {
		logrus.WithFields(logrus.Fields{
			"max_open_conns":    cfg.DBMaxOpenConns,
			"max_idle_conns":    cfg.DBMaxIdleConns,
			"conn_max_lifetime": cfg.DBConnMaxLifetime,
		}).Info("clickhouse pool configured")
	}

	return conn, nil
}
