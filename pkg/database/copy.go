package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"station-climatology/pkg/logging"
)

// CopySource streams rows for a bulk COPY
type CopySource = pgx.CopyFromSource

// CopyRows bulk-loads rows into table using the Postgres COPY protocol.
// It opens a dedicated pgx connection because database/sql does not expose COPY.
func (p *DB) CopyRows(ctx context.Context, table string, columns []string, src CopySource) (int64, error) {
	if p.config.Driver != DriverPostgres {
		return 0, fmt.Errorf("COPY is only supported by the %s driver, not %s", DriverPostgres, p.config.Driver)
	}

	timer := time.Now()

	conn, err := pgx.Connect(ctx, p.config.DSN())
	if err != nil {
		p.metrics.RecordDBError("copy_connect_error")
		return 0, fmt.Errorf("failed to open copy connection: %w", err)
	}
	defer conn.Close(context.Background())

	n, err := conn.CopyFrom(ctx, pgx.Identifier{table}, columns, src)
	p.metrics.DBQueryDuration.WithLabelValues("copy_" + table).Observe(time.Since(timer).Seconds())
	if err != nil {
		p.metrics.RecordDBError("copy_error")
		p.logger.Error(ctx, "[DB_COPY_ERROR] Bulk copy failed", logging.Fields{
			"table": table,
		}, err)
		return n, fmt.Errorf("failed to copy rows into %s: %w", table, err)
	}

	p.logger.Debug(ctx, "[DB_COPY] Bulk copy completed", logging.Fields{
		"table":       table,
		"rows":        n,
		"duration_ms": time.Since(timer).Milliseconds(),
	})

	return n, nil
}
