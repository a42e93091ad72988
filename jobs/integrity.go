package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// IntegrityScanner cross-checks the sale aggregate against the event
// stores. Findings are logged, never repaired: the ledgers are
// append-only and a mismatch is an operator problem.
type IntegrityScanner struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewIntegrityScanner constructs IntegrityScanner.
func NewIntegrityScanner(pool *pgxpool.Pool, logger *slog.Logger) *IntegrityScanner {
	return &IntegrityScanner{pool: pool, logger: logger}
}

// Handle processes TaskIntegrityScan tasks.
func (s *IntegrityScanner) Handle(ctx context.Context, t *asynq.Task) error {
	var payload IntegrityScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	started := time.Now()
	findings, err := s.Scan(ctx, payload.Since)
	if err != nil {
		s.logger.Error("integrity scan", slog.Any("error", err))
		return err
	}
	s.logger.Info("integrity scan finished",
		slog.Int("findings", findings),
		slog.Duration("took", time.Since(started)))
	return nil
}

// Scan returns the number of findings logged.
func (s *IntegrityScanner) Scan(ctx context.Context, since time.Time) (int, error) {
	findings := 0

	// Completed, non-refunded sales whose ledger postings do not sum to
	// the frozen grand total. Refunded sales net out their refund entry.
	rows, err := s.pool.Query(ctx, `
		SELECT s.id, s.number, s.grand_total, COALESCE(SUM(e.amount), 0)
		FROM sales s
		LEFT JOIN ledger_entries e ON e.reference_id = s.id
		WHERE s.status = 'COMPLETED' AND s.created_at >= $1
		GROUP BY s.id
		HAVING s.grand_total <> COALESCE(SUM(e.amount), 0)`, since)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id, number    string
			total, posted decimal.Decimal
		)
		if err := rows.Scan(&id, &number, &total, &posted); err != nil {
			return findings, err
		}
		findings++
		s.logger.Warn("sale ledger mismatch",
			slog.String("sale_id", id),
			slog.String("number", number),
			slog.String("grand_total", total.String()),
			slog.String("posted", posted.String()))
	}
	if err := rows.Err(); err != nil {
		return findings, err
	}

	// Refunded sales must net their stock back: SALE and REFUND movement
	// quantities cancel per product.
	rows, err = s.pool.Query(ctx, `
		SELECT s.id, s.number, m.product_id, SUM(m.quantity)
		FROM sales s
		JOIN stock_movements m ON m.reference_id = s.id AND m.movement_kind IN ('SALE', 'REFUND')
		WHERE s.status = 'REFUNDED' AND s.created_at >= $1
		GROUP BY s.id, s.number, m.product_id
		HAVING SUM(m.quantity) > 0`, since)
	if err != nil {
		return findings, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id, number, productID string
			net                   decimal.Decimal
		)
		if err := rows.Scan(&id, &number, &productID, &net); err != nil {
			return findings, err
		}
		findings++
		s.logger.Warn("refund stock mismatch",
			slog.String("sale_id", id),
			slog.String("number", number),
			slog.String("product_id", productID),
			slog.String("net_quantity", net.String()))
	}
	if err := rows.Err(); err != nil {
		return findings, err
	}
	return findings, nil
}
