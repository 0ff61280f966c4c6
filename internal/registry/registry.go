// Package registry holds the notice board's announcements in process memory.
//
// The Registry owns every announcement together with its comments and
// reactions. A registry-wide RWMutex guards the id index and the insertion
// order; each announcement carries its own RWMutex guarding status, comments
// and reactions, so writes to different announcements never contend.
//
// All read methods return deep copies taken under the announcement's read
// lock, so callers always observe a consistent snapshot and can never mutate
// registry state by accident.
package registry

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tbourn/noticeboard/internal/domain"
)

var (
	// ErrNotFound indicates no announcement exists for the given id.
	ErrNotFound = errors.New("announcement not found")
	// ErrDuplicateID indicates an announcement with the same id already exists.
	ErrDuplicateID = errors.New("announcement id already exists")
	// ErrTitleRequired indicates an empty title on create.
	ErrTitleRequired = errors.New("title is required")
	// ErrIDRequired indicates an empty id on create.
	ErrIDRequired = errors.New("id is required")
)

// entry is the registry's private, lock-guarded form of an announcement.
type entry struct {
	mu sync.RWMutex

	id          string
	title       string
	description string
	status      domain.Status
	createdAt   time.Time
	comments    []domain.Comment
	reactions   map[string]domain.Reaction // keyed by user id
}

// Registry is safe for concurrent use. The zero value is not usable; call New.
type Registry struct {
	mu    sync.RWMutex
	byID  map[string]*entry
	order []*entry
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{byID: make(map[string]*entry)}
}

// Create stores a new active announcement. ID and Title are required and the
// ID must be unused. Comments and Reactions on a are ignored.
func (r *Registry) Create(a domain.Announcement) (domain.Announcement, error) {
	if strings.TrimSpace(a.ID) == "" {
		return domain.Announcement{}, ErrIDRequired
	}
	if strings.TrimSpace(a.Title) == "" {
		return domain.Announcement{}, ErrTitleRequired
	}
	e := &entry{
		id:          a.ID,
		title:       a.Title,
		description: a.Description,
		status:      domain.StatusActive,
		createdAt:   a.CreatedAt,
		reactions:   make(map[string]domain.Reaction),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[a.ID]; exists {
		return domain.Announcement{}, ErrDuplicateID
	}
	r.byID[a.ID] = e
	r.order = append(r.order, e)
	return e.snapshot(), nil
}

// Get returns a snapshot of the announcement with the given id.
func (r *Registry) Get(id string) (domain.Announcement, error) {
	e, err := r.find(id)
	if err != nil {
		return domain.Announcement{}, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshot(), nil
}

// Exists reports whether an announcement with id is registered.
func (r *Registry) Exists(id string) bool {
	_, err := r.find(id)
	return err == nil
}

// List returns snapshots of every announcement, newest first. Announcements
// created at the same instant keep reverse insertion order.
func (r *Registry) List() []domain.Announcement {
	r.mu.RLock()
	entries := make([]*entry, len(r.order))
	copy(entries, r.order)
	r.mu.RUnlock()

	out := make([]domain.Announcement, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		e.mu.RLock()
		out = append(out, e.snapshot())
		e.mu.RUnlock()
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Len returns the number of announcements.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Close marks the announcement closed. Closing twice is a no-op.
func (r *Registry) Close(id string) (domain.Announcement, error) {
	e, err := r.find(id)
	if err != nil {
		return domain.Announcement{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status = domain.StatusClosed
	return e.snapshot(), nil
}

// AddComment appends c to the announcement's comments.
func (r *Registry) AddComment(id string, c domain.Comment) (domain.Announcement, error) {
	e, err := r.find(id)
	if err != nil {
		return domain.Announcement{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.comments = append(e.comments, c)
	return e.snapshot(), nil
}

// Comments returns up to limit comments in insertion order. A limit <= 0
// returns all of them.
func (r *Registry) Comments(id string, limit int) ([]domain.Comment, error) {
	e, err := r.find(id)
	if err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	n := len(e.comments)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.Comment, n)
	copy(out, e.comments[:n])
	return out, nil
}

// ReplaceReaction installs rx as the current reaction of rx.UserID, dropping
// any previous one. Remove and insert happen under one write lock, so readers
// never see zero or two reactions for that user. It returns the reaction that
// was replaced, if any.
func (r *Registry) ReplaceReaction(id string, rx domain.Reaction) (prev *domain.Reaction, err error) {
	e, err := r.find(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if old, ok := e.reactions[rx.UserID]; ok {
		prev = &old
		delete(e.reactions, rx.UserID)
	}
	e.reactions[rx.UserID] = rx
	return prev, nil
}

// RemoveReaction deletes the reaction owned by userID. It reports false when
// the user had no reaction.
func (r *Registry) RemoveReaction(id, userID string) (bool, error) {
	e, err := r.find(id)
	if err != nil {
		return false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.reactions[userID]; !ok {
		return false, nil
	}
	delete(e.reactions, userID)
	return true, nil
}

// Reactions returns the announcement's reactions ordered by CreatedAt (then
// user id) together with their counts, both from the same snapshot.
func (r *Registry) Reactions(id string) ([]domain.Reaction, domain.ReactionCounts, error) {
	e, err := r.find(id)
	if err != nil {
		return nil, domain.ReactionCounts{}, err
	}
	e.mu.RLock()
	rs := e.sortedReactions()
	e.mu.RUnlock()
	return rs, domain.CountReactions(rs), nil
}

func (r *Registry) find(id string) (*entry, error) {
	r.mu.RLock()
	e, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

// snapshot copies e into a domain.Announcement. Caller holds e.mu.
func (e *entry) snapshot() domain.Announcement {
	comments := make([]domain.Comment, len(e.comments))
	copy(comments, e.comments)
	return domain.Announcement{
		ID:          e.id,
		Title:       e.title,
		Description: e.description,
		Status:      e.status,
		CreatedAt:   e.createdAt,
		Comments:    comments,
		Reactions:   e.sortedReactions(),
	}
}

// sortedReactions copies the reaction set in a stable order. Caller holds e.mu.
func (e *entry) sortedReactions() []domain.Reaction {
	out := make([]domain.Reaction, 0, len(e.reactions))
	for _, rx := range e.reactions {
		out = append(out, rx)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}
