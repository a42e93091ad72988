package warehouses

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sokoerp/sokoerp/internal/shared"
)

// Warehouse is a physical stock location. Stock is partitioned per
// warehouse; there is no pooling across locations.
type Warehouse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks warehouse fields before persistence.
func (w Warehouse) Validate() error {
	if strings.TrimSpace(w.Name) == "" {
		return fmt.Errorf("%w: warehouse name required", shared.ErrValidation)
	}
	return nil
}

// Input carries the mutable warehouse fields.
type Input struct {
	Name     string    `json:"name" validate:"required,max=120"`
	Location string    `json:"location" validate:"max=200"`
	IsActive bool      `json:"is_active"`
	ActorID  uuid.UUID `json:"-"`
}
