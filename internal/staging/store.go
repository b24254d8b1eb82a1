package staging

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/postbot/core/logger"
)

// ErrNotFound is returned when the user has no live submission.
var ErrNotFound = errors.New("staging: submission not found")

// Store maps owners to their single live submission. One mutex guards the
// whole table, so operations on different owners are serialized too.
type Store struct {
	mu   sync.Mutex
	subs map[int64]*Submission
	now  func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		subs: make(map[int64]*Submission),
		now:  time.Now,
	}
}

// UpsertText creates a draft with caption for owner unless one already exists.
// An existing submission is returned untouched; created reports which case applied.
func (s *Store) UpsertText(owner int64, caption string) (v View, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sub, ok := s.subs[owner]; ok {
		return sub.view(), false
	}
	sub := &Submission{
		OwnerID:   owner,
		Caption:   caption,
		Stage:     StageDraft,
		CreatedAt: s.now(),
	}
	s.subs[owner] = sub
	return sub.view(), true
}

// AppendMedia appends a photo file id to the owner's submission.
func (s *Store) AppendMedia(owner int64, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[owner]
	if !ok {
		return ErrNotFound
	}
	sub.Media = append(sub.Media, fileID)
	return nil
}

// Get returns a snapshot of the owner's submission.
func (s *Store) Get(owner int64) (View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[owner]
	if !ok {
		return View{}, false
	}
	return sub.view(), true
}

// MarkAwaiting moves the owner's submission to StageAwaitingConfirmation and
// returns the snapshot that is about to be previewed.
func (s *Store) MarkAwaiting(owner int64) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[owner]
	if !ok {
		return View{}, ErrNotFound
	}
	sub.Stage = StageAwaitingConfirmation
	return sub.view(), nil
}

// Remove deletes the owner's submission. Several paths may race to clear the
// same owner, so a missing entry is logged and reported but callers usually ignore it.
func (s *Store) Remove(ctx context.Context, owner int64) error {
	s.mu.Lock()
	_, ok := s.subs[owner]
	delete(s.subs, owner)
	live := len(s.subs)
	s.mu.Unlock()

	if !ok {
		logger.Warn(ctx, "staging", "session.remove",
			slog.String("status", "skip"),
			slog.Int64("user_id", owner),
			slog.String("cause", "not_found"),
			slog.Int("live", live),
		)
		return ErrNotFound
	}
	logger.Debug(ctx, "staging", "session.remove",
		slog.String("status", "ok"),
		slog.Int64("user_id", owner),
		slog.Int("live", live),
	)
	return nil
}

// Len returns the number of live submissions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}
