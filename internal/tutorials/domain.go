package tutorials

import (
	"time"

	"github.com/google/uuid"

	"github.com/playforge/playforge/internal/rbac"
	"github.com/playforge/playforge/internal/shared"
)

// Tutorial is an authored piece of content moving through the moderation
// lifecycle. AuthorID is immutable after creation. PublishedAt is set
// exactly once, on the first publish, and never changes afterwards.
type Tutorial struct {
	ID          uuid.UUID
	AuthorID    uuid.UUID
	AuthorName  string
	Title       string
	Content     string
	IsPublished bool
	IsValidated bool
	PublishedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Rating is one member's score for one tutorial. The (UserID, TutorialID)
// pair is unique; re-rating replaces the score.
type Rating struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	TutorialID uuid.UUID
	Score      int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Comment belongs to one tutorial and one author.
type Comment struct {
	ID         uuid.UUID
	TutorialID uuid.UUID
	AuthorID   uuid.UUID
	AuthorName string
	Content    string
	CreatedAt  time.Time
}

// Stats carries the derived figures attached to a tutorial on reads.
// AverageRating is nil when nobody has rated yet.
type Stats struct {
	AverageRating *float64
	RatingCount   int
	CommentCount  int
}

// WithStats pairs a tutorial with its derived statistics.
type WithStats struct {
	Tutorial
	Stats
}

// VisibleTo applies the read gate: a tutorial is public once published and
// validated; otherwise only the author, admins and moderators may see it.
func (t Tutorial) VisibleTo(p *rbac.Principal) bool {
	if t.IsPublished && t.IsValidated {
		return true
	}
	if p == nil {
		return false
	}
	if p.ID == t.AuthorID {
		return true
	}
	return p.IsAdmin() || p.Rights().Has(shared.PermValidateTutorial)
}
