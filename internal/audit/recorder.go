package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sokoerp/sokoerp/internal/platform/db"
	"github.com/sokoerp/sokoerp/internal/shared"
)

// Recorder appends audit entries through whatever Querier it was built
// over. Callers that mutate business state construct a Recorder over their
// own transaction so the audit write commits or rolls back with the
// mutation it documents. The type exposes no update or delete operation.
type Recorder struct {
	q db.Querier
}

// NewRecorder builds a Recorder over a pool or transaction.
func NewRecorder(q db.Querier) *Recorder {
	return &Recorder{q: q}
}

// Record validates and appends one entry. Snapshots are marshalled here,
// at the instant of capture.
func (r *Recorder) Record(ctx context.Context, entry Entry) error {
	if entry.ActorID == uuid.Nil {
		return fmt.Errorf("%w: audit actor required", shared.ErrValidation)
	}
	if entry.EntityType == "" || entry.EntityID == uuid.Nil {
		return fmt.Errorf("%w: audit entity type and id required", shared.ErrValidation)
	}
	switch entry.Action {
	case ActionCreate:
		if entry.After == nil {
			return fmt.Errorf("%w: CREATE requires an after snapshot", shared.ErrValidation)
		}
		entry.Before = nil
	case ActionDelete:
		if entry.Before == nil {
			return fmt.Errorf("%w: DELETE requires a before snapshot", shared.ErrValidation)
		}
		entry.After = nil
	case ActionUpdate, ActionVoid:
		if entry.Before == nil || entry.After == nil {
			return fmt.Errorf("%w: %s requires both snapshots", shared.ErrValidation, entry.Action)
		}
	default:
		return fmt.Errorf("%w: unknown audit action %q", shared.ErrValidation, entry.Action)
	}

	before, err := marshalSnapshot(entry.Before)
	if err != nil {
		return fmt.Errorf("audit: marshal before snapshot: %w", err)
	}
	after, err := marshalSnapshot(entry.After)
	if err != nil {
		return fmt.Errorf("audit: marshal after snapshot: %w", err)
	}

	id := entry.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	at := entry.CreatedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}

	_, err = r.q.Exec(ctx, `
		INSERT INTO audit_logs (id, actor_id, action, entity_type, entity_id, before_state, after_state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, entry.ActorID, string(entry.Action), entry.EntityType, entry.EntityID, before, after, at)
	if err != nil {
		return db.MapError(err)
	}
	return nil
}

func marshalSnapshot(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
