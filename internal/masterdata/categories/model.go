package categories

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sokoerp/sokoerp/internal/shared"
)

// Category groups products. Parent forms a simple tree; cycles are
// rejected at the service layer.
type Category struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	ParentID  *uuid.UUID `json:"parent_id,omitempty"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
}

// Validate checks category fields before persistence.
func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: category name required", shared.ErrValidation)
	}
	if c.ParentID != nil && *c.ParentID == c.ID {
		return fmt.Errorf("%w: category cannot be its own parent", shared.ErrValidation)
	}
	return nil
}

// Input carries the mutable category fields.
type Input struct {
	Name     string     `json:"name" validate:"required,max=120"`
	ParentID *uuid.UUID `json:"parent_id"`
	IsActive bool       `json:"is_active"`
	ActorID  uuid.UUID  `json:"-"`
}
