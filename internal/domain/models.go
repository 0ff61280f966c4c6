// Package domain defines the notice-board entities shared by the registry,
// the service layer and the HTTP handlers. Announcements, comments and
// reactions live in process memory; only ReactionEvent is mapped with GORM
// (see reaction_event.go).
package domain

import (
	"errors"
	"strings"
	"time"
)

// Status is the lifecycle state of an announcement. It only ever moves from
// StatusActive to StatusClosed.
type Status string

const (
	StatusActive Status = "active"
	StatusClosed Status = "closed"
)

// ReactionType is the closed set of reactions a user can leave on an
// announcement.
type ReactionType string

const (
	ReactionUp    ReactionType = "up"
	ReactionDown  ReactionType = "down"
	ReactionHeart ReactionType = "heart"
)

// ErrInvalidReactionType is returned by ParseReactionType for anything outside
// the enum.
var ErrInvalidReactionType = errors.New("reaction type must be one of: up, down, heart")

// ReactionTypes lists every valid reaction type in display order.
func ReactionTypes() []ReactionType {
	return []ReactionType{ReactionUp, ReactionDown, ReactionHeart}
}

// ParseReactionType converts raw client input into a ReactionType. Matching is
// case-insensitive and ignores surrounding whitespace.
func ParseReactionType(s string) (ReactionType, error) {
	t := ReactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", ErrInvalidReactionType
	}
	return t, nil
}

// Valid reports whether t is a member of the enum.
func (t ReactionType) Valid() bool {
	switch t {
	case ReactionUp, ReactionDown, ReactionHeart:
		return true
	default:
		return false
	}
}

// Announcement is a posted notice. Comments keep insertion order; Reactions
// hold at most one entry per UserID.
//
// Fields:
//   - ID: caller-supplied or generated identifier, unique in the registry.
//   - Title: required, non-empty.
//   - Description: optional free text.
//   - Status: active until closed, never reopened.
//   - CreatedAt: set once on creation.
type Announcement struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	Comments    []Comment  `json:"comments"`
	Reactions   []Reaction `json:"reactions"`
}

// Comment is an immutable note appended to an announcement.
type Comment struct {
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Reaction is a single user's current sentiment on an announcement. The
// IdempotencyKey records which client token produced it and is kept for
// debugging only.
type Reaction struct {
	UserID         string       `json:"user_id"`
	Type           ReactionType `json:"type"`
	CreatedAt      time.Time    `json:"created_at"`
	IdempotencyKey string       `json:"idempotency_key"`
}

// ReactionCounts tallies reactions by type.
type ReactionCounts struct {
	Up    int `json:"up"`
	Down  int `json:"down"`
	Heart int `json:"heart"`
	Total int `json:"total"`
}

// Add increments the counter for t. Unknown types are ignored so Total always
// equals Up+Down+Heart.
func (c *ReactionCounts) Add(t ReactionType) {
	switch t {
	case ReactionUp:
		c.Up++
	case ReactionDown:
		c.Down++
	case ReactionHeart:
		c.Heart++
	default:
		return
	}
	c.Total++
}

// CountReactions builds ReactionCounts for rs.
func CountReactions(rs []Reaction) ReactionCounts {
	var c ReactionCounts
	for _, r := range rs {
		c.Add(r.Type)
	}
	return c
}
