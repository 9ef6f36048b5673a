package users

import (
	"time"

	"github.com/google/uuid"
)

// User represents a community member.
type User struct {
	ID        uuid.UUID
	Email     string
	Name      string
	Image     string
	Role      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AwardedBadge is a badge as it appears on a member profile.
type AwardedBadge struct {
	ID          uuid.UUID
	Name        string
	Description string
	ImageURL    string
	AwardedAt   time.Time
}

// Profile combines a user with the badges they have been awarded.
type Profile struct {
	User   User
	Badges []AwardedBadge
}
