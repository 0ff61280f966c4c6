// Package repo implements the reaction audit ledger, backed by GORM. This file
// provides repository functions for the ReactionEvent model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/noticeboard/internal/domain"
)

// CreateReactionEvent inserts ev, filling ID and CreatedAt when unset.
func CreateReactionEvent(ctx context.Context, db *gorm.DB, ev *domain.ReactionEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(ev).Error
}

// CountReactionEvents uses a raw COUNT so a missing table surfaces as an error.
func CountReactionEvents(ctx context.Context, db *gorm.DB, announcementID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM reaction_events WHERE announcement_id = ?", announcementID).
		Scan(&total).Error
	return total, err
}

// ListReactionEventsPage returns a paginated slice ordered (CreatedAt ASC, ID ASC).
func ListReactionEventsPage(ctx context.Context, db *gorm.DB, announcementID string, offset, limit int) ([]domain.ReactionEvent, error) {
	var out []domain.ReactionEvent
	err := db.WithContext(ctx).
		Where("announcement_id = ?", announcementID).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ReactionLedger adapts the functions above to the service layer's ledger
// contract.
type ReactionLedger struct {
	DB *gorm.DB
}

// NewReactionLedger wraps db.
func NewReactionLedger(db *gorm.DB) *ReactionLedger {
	return &ReactionLedger{DB: db}
}

// Record appends one event.
func (l *ReactionLedger) Record(ctx context.Context, ev *domain.ReactionEvent) error {
	return CreateReactionEvent(ctx, l.DB, ev)
}

// Count returns how many events exist for announcementID.
func (l *ReactionLedger) Count(ctx context.Context, announcementID string) (int64, error) {
	return CountReactionEvents(ctx, l.DB, announcementID)
}

// Page returns events for announcementID in chronological order.
func (l *ReactionLedger) Page(ctx context.Context, announcementID string, offset, limit int) ([]domain.ReactionEvent, error) {
	return ListReactionEventsPage(ctx, l.DB, announcementID, offset, limit)
}

// Stats returns the event count and latest CreatedAt for announcementID.
func (l *ReactionLedger) Stats(ctx context.Context, announcementID string) (int64, *time.Time, error) {
	return ReactionEventsStats(ctx, l.DB, announcementID)
}
