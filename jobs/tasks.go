package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStockSnapshot rebuilds the stock snapshot projection from the
	// movement ledger.
	TaskStockSnapshot = "projection:stock_snapshot"
	// TaskIntegrityScan cross-checks completed sales against their stock
	// and ledger events.
	TaskIntegrityScan = "integrity:scan"
)

// StockSnapshotPayload parameterises a projection rebuild.
type StockSnapshotPayload struct {
	RequestedAt time.Time `json:"requested_at"`
}

// NewStockSnapshotTask constructs an Asynq task.
func NewStockSnapshotTask(payload StockSnapshotPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStockSnapshot, data), nil
}

// IntegrityScanPayload parameterises an integrity scan.
type IntegrityScanPayload struct {
	// Since bounds the scan to sales created after this instant. Zero
	// scans everything.
	Since time.Time `json:"since"`
}

// NewIntegrityScanTask constructs an Asynq task.
func NewIntegrityScanTask(payload IntegrityScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIntegrityScan, data), nil
}
