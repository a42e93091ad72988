package users

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sokoerp/sokoerp/internal/rbac"
	"github.com/sokoerp/sokoerp/internal/shared"
)

// User is a back-office operator. The password hash never leaves the
// package boundary in API responses.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	FullName     string    `json:"full_name"`
	Role         rbac.Role `json:"role"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Validate checks user fields before persistence.
func (u User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return fmt.Errorf("%w: username required", shared.ErrValidation)
	}
	if !u.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", shared.ErrValidation, u.Role)
	}
	return nil
}

// Input carries the mutable user fields.
type Input struct {
	Username string    `json:"username" validate:"required,min=3,max=60"`
	FullName string    `json:"full_name" validate:"required,max=120"`
	Role     rbac.Role `json:"role" validate:"required"`
	Password string    `json:"password" validate:"omitempty,min=8"`
	IsActive bool      `json:"is_active"`
	ActorID  uuid.UUID `json:"-"`
}
