// Package services – ReactionService
//
// This file implements ReactionService, the write and read path for
// announcement reactions. A write is deduplicated by the in-memory
// idempotency.Guard keyed on (announcement, user, Idempotency-Key) and then
// applied to the registry as an atomic replace of the user's reaction.
//
// Every outcome is appended to an optional audit ledger after the core
// mutation. Ledger failures are logged and never change the outcome.
//
// Observability: public methods are OpenTelemetry-instrumented and outcomes
// are counted in Prometheus.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/noticeboard/internal/domain"
	"github.com/tbourn/noticeboard/internal/idempotency"
	"github.com/tbourn/noticeboard/internal/registry"
	"github.com/tbourn/noticeboard/internal/utils"
)

// Outcome is the result of a reaction write.
type Outcome string

const (
	// OutcomeAccepted means the reaction was stored (replacing any previous one).
	OutcomeAccepted Outcome = "accepted"
	// OutcomeDuplicate means the Idempotency-Key was already seen; nothing changed.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeRemoved means the user's reaction was deleted.
	OutcomeRemoved Outcome = "removed"
)

// AddReactionResult reports what AddOrReplace did. Reaction is nil for
// duplicates.
type AddReactionResult struct {
	Outcome  Outcome
	Reaction *domain.Reaction
}

// ReactionList is a consistent snapshot of an announcement's reactions.
type ReactionList struct {
	Reactions []domain.Reaction
	Counts    domain.ReactionCounts
}

// ReactionLedger is the audit sink for reaction outcomes.
type ReactionLedger interface {
	Record(ctx context.Context, ev *domain.ReactionEvent) error
	Count(ctx context.Context, announcementID string) (int64, error)
	Page(ctx context.Context, announcementID string, offset, limit int) ([]domain.ReactionEvent, error)
}

// ReactionService coordinates the idempotency guard, the registry and the
// optional ledger.
type ReactionService struct {
	Registry *registry.Registry
	Guard    *idempotency.Guard
	Clock    clockwork.Clock

	// Ledger is optional; nil disables auditing and History.
	Ledger ReactionLedger

	// ReleaseOnMiss drops the reservation when the announcement does not
	// exist, so a retry after the announcement is created is not swallowed
	// as a duplicate.
	ReleaseOnMiss bool
}

// NewReactionService wires a ReactionService that stamps reactions with the
// guard's clock.
func NewReactionService(reg *registry.Registry, guard *idempotency.Guard, ledger ReactionLedger) *ReactionService {
	return &ReactionService{
		Registry:      reg,
		Guard:         guard,
		Clock:         guard.Clock(),
		Ledger:        ledger,
		ReleaseOnMiss: true,
	}
}

// AddOrReplace records userID's reaction of the given type on announcementID.
//
// Validation errors (ErrMissingUserID, ErrMissingIdempotencyKey,
// ErrInvalidReactionType) leave all state untouched. A repeated
// (announcement, user, key) within the guard's TTL yields OutcomeDuplicate
// with a nil error.
func (s *ReactionService) AddOrReplace(ctx context.Context, announcementID, userID, reactionType, idempotencyKey string) (*AddReactionResult, error) {
	tr := otel.Tracer("services/ReactionService")
	ctx, span := tr.Start(ctx, "AddOrReplace",
		trace.WithAttributes(
			attribute.String("announcement.id", announcementID),
			attribute.String("user.id", userID),
			attribute.String("reaction.type", reactionType),
		),
	)
	defer span.End()

	if strings.TrimSpace(userID) == "" {
		return nil, ErrMissingUserID
	}
	if strings.TrimSpace(idempotencyKey) == "" {
		return nil, ErrMissingIdempotencyKey
	}
	rt, err := domain.ParseReactionType(reactionType)
	if err != nil {
		return nil, ErrInvalidReactionType
	}

	key := idempotency.Key{AnnouncementID: announcementID, UserID: userID, Token: idempotencyKey}
	// The guard and its sweeper read the same clock; only stored stamps are UTC.
	now := s.Clock.Now()
	stamp := now.UTC()

	if s.Guard.CheckAndReserve(key, now, s.Guard.TTL()) == idempotency.Duplicate {
		span.SetAttributes(attribute.String("reaction.outcome", string(OutcomeDuplicate)))
		reactionOutcomes.WithLabelValues(string(OutcomeDuplicate)).Inc()
		s.record(ctx, &domain.ReactionEvent{
			AnnouncementID: announcementID,
			UserID:         userID,
			Action:         domain.ActionDuplicate,
			Type:           rt,
			IdempotencyKey: idempotencyKey,
			CreatedAt:      stamp,
		})
		return &AddReactionResult{Outcome: OutcomeDuplicate}, nil
	}

	rx := domain.Reaction{
		UserID:         userID,
		Type:           rt,
		CreatedAt:      stamp,
		IdempotencyKey: idempotencyKey,
	}
	if _, err := s.Registry.ReplaceReaction(announcementID, rx); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			if s.ReleaseOnMiss {
				s.Guard.Release(key)
			}
			return nil, ErrAnnouncementNotFound
		}
		return nil, fmt.Errorf("replace reaction: %w", err)
	}

	span.SetAttributes(attribute.String("reaction.outcome", string(OutcomeAccepted)))
	reactionOutcomes.WithLabelValues(string(OutcomeAccepted)).Inc()
	s.record(ctx, &domain.ReactionEvent{
		AnnouncementID: announcementID,
		UserID:         userID,
		Action:         domain.ActionAccepted,
		Type:           rt,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      stamp,
	})
	return &AddReactionResult{Outcome: OutcomeAccepted, Reaction: &rx}, nil
}

// Remove deletes userID's reaction on announcementID. Idempotency reservations
// are left alone.
func (s *ReactionService) Remove(ctx context.Context, announcementID, userID string) error {
	tr := otel.Tracer("services/ReactionService")
	ctx, span := tr.Start(ctx, "Remove",
		trace.WithAttributes(
			attribute.String("announcement.id", announcementID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	if strings.TrimSpace(userID) == "" {
		return ErrMissingUserID
	}

	removed, err := s.Registry.RemoveReaction(announcementID, userID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return ErrAnnouncementNotFound
		}
		return fmt.Errorf("remove reaction: %w", err)
	}
	if !removed {
		return ErrNoReactionFound
	}

	reactionOutcomes.WithLabelValues(string(OutcomeRemoved)).Inc()
	s.record(ctx, &domain.ReactionEvent{
		AnnouncementID: announcementID,
		UserID:         userID,
		Action:         domain.ActionRemoved,
		CreatedAt:      s.Clock.Now().UTC(),
	})
	return nil
}

// List returns the announcement's reactions (oldest first) with counts taken
// from the same snapshot.
func (s *ReactionService) List(ctx context.Context, announcementID string) (*ReactionList, error) {
	tr := otel.Tracer("services/ReactionService")
	_, span := tr.Start(ctx, "List",
		trace.WithAttributes(attribute.String("announcement.id", announcementID)),
	)
	defer span.End()

	rs, counts, err := s.Registry.Reactions(announcementID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return nil, ErrAnnouncementNotFound
		}
		return nil, err
	}
	return &ReactionList{Reactions: rs, Counts: counts}, nil
}

// History returns one page of ledger events for announcementID together with
// the total number of events.
func (s *ReactionService) History(ctx context.Context, announcementID string, page, pageSize int) ([]domain.ReactionEvent, int64, error) {
	tr := otel.Tracer("services/ReactionService")
	ctx, span := tr.Start(ctx, "History",
		trace.WithAttributes(
			attribute.String("announcement.id", announcementID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if s.Ledger == nil {
		return nil, 0, ErrLedgerDisabled
	}
	if !s.Registry.Exists(announcementID) {
		return nil, 0, ErrAnnouncementNotFound
	}

	page, pageSize = utils.NormalizePage(page, pageSize, 20, 0)
	offset := utils.Offset(page, pageSize)

	total, err := s.Ledger.Count(ctx, announcementID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.ReactionEvent{}, 0, nil
	}

	items, err := s.Ledger.Page(ctx, announcementID, offset, pageSize)
	return items, total, err
}

// record appends ev to the ledger, logging (not returning) failures.
func (s *ReactionService) record(ctx context.Context, ev *domain.ReactionEvent) {
	if s.Ledger == nil {
		return
	}
	if err := s.Ledger.Record(ctx, ev); err != nil {
		loggerFrom(ctx).Error().
			Err(err).
			Str("announcement_id", ev.AnnouncementID).
			Str("user_id", ev.UserID).
			Str("action", string(ev.Action)).
			Msg("reaction ledger write failed")
	}
}
