// Package events publishes domain and telemetry events for committed profile
// changes. Listeners are registered against a fan-out notifier and invoked
// from a post-commit hook, so a rolled-back transaction never emits anything.
package events

import (
	"context"
	"time"

	"custodyprofile/internal/profile/models"
)

// Event types published to the domain topic.
const (
	TypeProfileUpdated = "custody-profile.person.updated"
	TypeProfileMerged  = "custody-profile.person.merged"
)

// ProfileChange is the committed-change fact both listeners react to.
type ProfileChange struct {
	EventType string
	PersonID  string
	// RemovedPersonID is set for merge events only.
	RemovedPersonID string
	Source          models.Source
	Fields          []models.Field
	OccurredAt      time.Time
}

// Listener reacts to one committed change. Implementations must be
// best-effort: a listener failure is its own problem, never the caller's.
type Listener interface {
	FieldsChanged(ctx context.Context, change ProfileChange)
}

// Fanout dispatches one change to every registered listener. Order between
// listeners is unspecified and must not be relied upon.
type Fanout struct {
	listeners []Listener
}

func NewFanout(listeners ...Listener) *Fanout {
	return &Fanout{listeners: listeners}
}

func (f *Fanout) FieldsChanged(ctx context.Context, change ProfileChange) {
	for _, l := range f.listeners {
		l.FieldsChanged(ctx, change)
	}
}
