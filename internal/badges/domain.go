package badges

import (
	"time"

	"github.com/google/uuid"
)

// Badge is a catalog entry that admins hand out to users.
type Badge struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Award links a badge to a user. A user holds a given badge at most once.
type Award struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	BadgeID   uuid.UUID `json:"badge_id"`
	AwardedAt time.Time `json:"awarded_at"`
}

// BadgeWithUsage pairs a badge with the number of users holding it.
type BadgeWithUsage struct {
	Badge
	AwardCount int `json:"award_count"`
}
