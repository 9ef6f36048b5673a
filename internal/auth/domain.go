package auth

import (
	"time"

	"github.com/google/uuid"
)

// Account is a user record as the authentication flow sees it, password
// hash included. Other packages work with the trimmed users.User view.
type Account struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
