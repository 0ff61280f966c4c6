package domain

import "time"

// ReactionAction names what happened to a reaction write.
type ReactionAction string

const (
	ActionAccepted  ReactionAction = "accepted"
	ActionDuplicate ReactionAction = "duplicate"
	ActionRemoved   ReactionAction = "removed"
)

// ReactionEvent is one row of the reaction audit ledger. Every accepted,
// replayed or removed reaction is recorded together with the client's
// Idempotency-Key so retries can be traced after the fact. The ledger is never
// consulted for deduplication.
type ReactionEvent struct {
	ID             string         `json:"id"              gorm:"type:char(36);primaryKey"`
	AnnouncementID string         `json:"announcement_id" gorm:"type:varchar(128);not null;index:idx_reaction_events_ann,priority:1"`
	UserID         string         `json:"user_id"         gorm:"type:varchar(128);not null;index"`
	Action         ReactionAction `json:"action"          gorm:"type:varchar(16);not null;check:action IN ('accepted','duplicate','removed')"`
	Type           ReactionType   `json:"type,omitempty"  gorm:"type:varchar(16)"`
	IdempotencyKey string         `json:"idempotency_key,omitempty" gorm:"type:varchar(200)"`
	CreatedAt      time.Time      `json:"created_at"      gorm:"not null;index:idx_reaction_events_ann,priority:2"`
}

// TableName implements the GORM tabler interface.
func (ReactionEvent) TableName() string { return "reaction_events" }
