package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SnapshotRebuilder rebuilds the stock snapshot projection. The
// projection is a read-side convenience only; every quantity it holds is
// recomputed from the movement ledger and it is safe to drop at any time.
type SnapshotRebuilder struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewSnapshotRebuilder constructs SnapshotRebuilder.
func NewSnapshotRebuilder(pool *pgxpool.Pool, logger *slog.Logger) *SnapshotRebuilder {
	return &SnapshotRebuilder{pool: pool, logger: logger}
}

// Handle processes TaskStockSnapshot tasks.
func (s *SnapshotRebuilder) Handle(ctx context.Context, t *asynq.Task) error {
	var payload StockSnapshotPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	started := time.Now()
	rows, err := s.Rebuild(ctx)
	if err != nil {
		s.logger.Error("stock snapshot rebuild", slog.Any("error", err))
		return err
	}
	s.logger.Info("stock snapshot rebuilt",
		slog.Int64("rows", rows),
		slog.Duration("took", time.Since(started)))
	return nil
}

// Rebuild replaces the projection atomically so readers never observe a
// half-built table.
func (s *SnapshotRebuilder) Rebuild(ctx context.Context) (int64, error) {
	var rows int64
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM stock_snapshots`); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `
			INSERT INTO stock_snapshots (product_id, warehouse_id, quantity, last_movement_at, rebuilt_at)
			SELECT product_id, warehouse_id, SUM(quantity), MAX(created_at), NOW()
			FROM stock_movements
			GROUP BY product_id, warehouse_id`)
		if err != nil {
			return err
		}
		rows = tag.RowsAffected()
		return nil
	})
	return rows, err
}
