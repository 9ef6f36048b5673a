package jams

import (
	"time"

	"github.com/google/uuid"
)

// Jam is a scheduled game jam event. Dates are stored in UTC; a jam is
// upcoming while its start date has not passed.
type Jam struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	ItchIoURL string    `json:"itch_io_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Upcoming reports whether the jam starts at or after the given instant.
func (j Jam) Upcoming(now time.Time) bool {
	return !j.StartDate.Before(now)
}
