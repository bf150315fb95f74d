// Package store holds the session, attempt and player repositories.
//
// Two implementations satisfy Store: Memory, a mutex-guarded fixture used
// in tests and demos, and SQLite, backed by libSQL. Both share the
// ordering rules defined in this file.
package store

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/flightkoy/questboard/internal/questboard"
)

type Sessions interface {
	// ListUpcoming returns sessions starting strictly after now, soonest first.
	ListUpcoming(ctx context.Context) ([]questboard.Session, error)
	// ListAll returns every session, latest start first.
	ListAll(ctx context.Context) ([]questboard.Session, error)
	Get(ctx context.Context, id int64) (questboard.Session, error)
	Create(ctx context.Context, s questboard.NewSession) (questboard.Session, error)
	// Delete removes the session and its attempts. Deleting an unknown id
	// is not an error.
	Delete(ctx context.Context, id int64) error
}

type Attempts interface {
	// Record appends an attempt. When a.CompletionID is set and an attempt
	// with the same session, user and completion already exists, that
	// attempt is returned with created == false.
	Record(ctx context.Context, a questboard.NewAttempt) (attempt questboard.Attempt, created bool, err error)
	// ListFor returns the user's attempts in a session, newest first.
	ListFor(ctx context.Context, sessionID int64, userName string) ([]questboard.Attempt, error)
	ListBySession(ctx context.Context, sessionID int64) ([]questboard.Attempt, error)
}

type Players interface {
	// ListPlayers returns players with the given admin flag in creation order.
	ListPlayers(ctx context.Context, admin bool) ([]questboard.Player, error)
	CreatePlayer(ctx context.Context, p questboard.Player) error
}

type Store interface {
	Sessions
	Attempts
	Players
	Close() error
}

// Options configure time handling shared by both stores.
type Options struct {
	// Now defaults to time.Now.
	Now func() time.Time
	// Location is where session start dates and times are interpreted.
	// Defaults to UTC.
	Location *time.Location
}

func (o Options) withDefaults() Options {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	return o
}

type startedSession struct {
	questboard.Session
	start time.Time
}

func withStarts(list []questboard.Session, loc *time.Location) []startedSession {
	out := make([]startedSession, len(list))
	for i, s := range list {
		// Malformed rows keep the zero time and sort as the oldest.
		start, _ := s.StartsAt(loc)
		out[i] = startedSession{Session: s, start: start}
	}
	return out
}

func unwrap(list []startedSession) []questboard.Session {
	out := make([]questboard.Session, len(list))
	for i, s := range list {
		out[i] = s.Session
	}
	return out
}

func upcoming(list []questboard.Session, now time.Time, loc *time.Location) []questboard.Session {
	started := withStarts(list, loc)
	started = slices.DeleteFunc(started, func(s startedSession) bool {
		return !s.start.After(now)
	})
	slices.SortStableFunc(started, func(a, b startedSession) int {
		if c := a.start.Compare(b.start); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return unwrap(started)
}

func latestFirst(list []questboard.Session, loc *time.Location) []questboard.Session {
	started := withStarts(list, loc)
	slices.SortStableFunc(started, func(a, b startedSession) int {
		if c := b.start.Compare(a.start); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return unwrap(started)
}

func newestFirst(list []questboard.Attempt) {
	slices.SortStableFunc(list, func(a, b questboard.Attempt) int {
		if c := b.DateTime.Compare(a.DateTime); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
}
