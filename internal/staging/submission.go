// Package staging keeps the in-progress submission of every user.
package staging

import (
	"slices"
	"time"
)

// Stage is the position of a live submission in its lifecycle.
// A user without a submission has no stage at all.
type Stage uint8

const (
	// StageDraft means content is being collected and no preview was shown yet.
	StageDraft Stage = iota + 1
	// StageAwaitingConfirmation means the preview with Publish/Discard was shown.
	StageAwaitingConfirmation
)

func (s Stage) String() string {
	switch s {
	case StageDraft:
		return "draft"
	case StageAwaitingConfirmation:
		return "awaiting_confirmation"
	}
	return "none"
}

// Submission is a staged post. Caption holds HTML-escaped text and is fixed
// once the submission exists; Media only grows, in arrival order.
type Submission struct {
	OwnerID   int64
	Caption   string
	Media     []string
	Stage     Stage
	CreatedAt time.Time
}

// View is a detached snapshot of a Submission, safe to read outside the store lock.
type View struct {
	OwnerID   int64
	Caption   string
	Media     []string
	Stage     Stage
	CreatedAt time.Time
}

func (s *Submission) view() View {
	return View{
		OwnerID:   s.OwnerID,
		Caption:   s.Caption,
		Media:     slices.Clone(s.Media),
		Stage:     s.Stage,
		CreatedAt: s.CreatedAt,
	}
}

// HasMedia reports whether the submission carries at least one photo.
func (v View) HasMedia() bool {
	return len(v.Media) > 0
}
