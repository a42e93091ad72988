package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Action enumerates audited operations.
type Action string

const (
	// ActionCreate records entity creation; the before snapshot is absent.
	ActionCreate Action = "CREATE"
	// ActionUpdate records a mutation with both snapshots present.
	ActionUpdate Action = "UPDATE"
	// ActionDelete records entity removal; the after snapshot is absent.
	ActionDelete Action = "DELETE"
	// ActionVoid records cancellation of a pending business document.
	ActionVoid Action = "VOID"
)

// Entry is one immutable audit record. Before and After hold arbitrary
// entity state; the recorder serialises them at capture time so later
// mutation of the source entity cannot alter the stored snapshot.
type Entry struct {
	ID         uuid.UUID
	ActorID    uuid.UUID
	Action     Action
	EntityType string
	EntityID   uuid.UUID
	Before     any
	After      any
	CreatedAt  time.Time
}

// TimelineFilter narrows timeline queries.
type TimelineFilter struct {
	ActorID    *uuid.UUID
	EntityType string
	EntityID   *uuid.UUID
	Action     Action
	From       time.Time
	To         time.Time
	Page       int
	PageSize   int
}

// TimelineRow is a materialised audit record for listing and export.
type TimelineRow struct {
	ID         uuid.UUID       `json:"id"`
	ActorID    uuid.UUID       `json:"actor_id"`
	Action     Action          `json:"action"`
	EntityType string          `json:"entity_type"`
	EntityID   uuid.UUID       `json:"entity_id"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}
