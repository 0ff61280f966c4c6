// Package repo implements the reaction audit ledger, backed by GORM. This file
// provides small aggregate queries used for conditional responses (ETag
// generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/noticeboard/internal/domain"
)

// ReactionEventsStats returns aggregate metadata for an announcement's ledger:
// the total number of events and the greatest CreatedAt among them.
//
// When the announcement has no events, the returned count is 0 and
// maxCreatedAt is nil.
func ReactionEventsStats(ctx context.Context, db *gorm.DB, announcementID string) (count int64, maxCreatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.ReactionEvent{}).Where("announcement_id = ?", announcementID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest created_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		CreatedAt time.Time
	}
	if err = q.Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}
