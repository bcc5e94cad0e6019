package completion

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// Record tracks whether a learner has worked on a resource.
// Keyed by (ResourceID, UserID); created lazily with WorkedOn=false.
// Invariant: CompletedAt is set iff WorkedOn is true.
type Record struct {
	ResourceID  string    `json:"resource_id"`
	UserID      string    `json:"user_id"`
	WorkedOn    bool      `json:"worked_on"`
	CompletedAt null.Time `json:"completed_at"` // UTC
}

// Event signals that a learner has worked on every resource of a content
// unit. Emitted at most once per (user, content unit) per completion.
type Event struct {
	UserID        string    `json:"user_id"`
	ContentUnitID string    `json:"content_unit_id"`
	CompletedAt   time.Time `json:"completed_at"` // UTC
}
