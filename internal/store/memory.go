package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/flightkoy/questboard/internal/questboard"
)

// Memory keeps everything in process memory. Ids come from counters and
// are never reused within one Memory.
type Memory struct {
	opts Options

	mu            sync.RWMutex
	nextSessionID int64
	nextAttemptID int64
	sessions      []questboard.Session
	attempts      []questboard.Attempt
	players       []questboard.Player
}

func NewMemory(opts Options) *Memory {
	return &Memory{
		opts:          opts.withDefaults(),
		nextSessionID: 1,
		nextAttemptID: 1,
	}
}

func (m *Memory) ListUpcoming(_ context.Context) ([]questboard.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return upcoming(m.sessions, m.opts.Now(), m.opts.Location), nil
}

func (m *Memory) ListAll(_ context.Context) ([]questboard.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return latestFirst(m.sessions, m.opts.Location), nil
}

func (m *Memory) Get(_ context.Context, id int64) (questboard.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		if s.ID == id {
			return s, nil
		}
	}
	return questboard.Session{}, fmt.Errorf("session %d: %w", id, questboard.ErrNotFound)
}

func (m *Memory) Create(_ context.Context, in questboard.NewSession) (questboard.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := questboard.Session{
		ID:          m.nextSessionID,
		StartDate:   in.StartDate,
		StartTime:   in.StartTime,
		Description: in.Description,
	}
	m.nextSessionID++
	m.sessions = append(m.sessions, s)
	return s, nil
}

func (m *Memory) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = slices.DeleteFunc(m.sessions, func(s questboard.Session) bool { return s.ID == id })
	m.attempts = slices.DeleteFunc(m.attempts, func(a questboard.Attempt) bool { return a.SessionID == id })
	return nil
}

func (m *Memory) Record(_ context.Context, in questboard.NewAttempt) (questboard.Attempt, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !slices.ContainsFunc(m.sessions, func(s questboard.Session) bool { return s.ID == in.SessionID }) {
		return questboard.Attempt{}, false, fmt.Errorf("session %d: %w", in.SessionID, questboard.ErrNotFound)
	}
	if in.CompletionID != "" {
		for _, a := range m.attempts {
			if a.SessionID == in.SessionID && a.UserName == in.UserName && a.CompletionID == in.CompletionID {
				return a, false, nil
			}
		}
	}

	at := in.At
	if at.IsZero() {
		at = m.opts.Now()
	}
	a := questboard.Attempt{
		ID:           m.nextAttemptID,
		SessionID:    in.SessionID,
		UserName:     in.UserName,
		DateTime:     at.UTC(),
		Rate:         in.Rate,
		CompletionID: in.CompletionID,
	}
	m.nextAttemptID++
	m.attempts = append(m.attempts, a)
	return a, true, nil
}

func (m *Memory) ListFor(_ context.Context, sessionID int64, userName string) ([]questboard.Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []questboard.Attempt{}
	for _, a := range m.attempts {
		if a.SessionID == sessionID && a.UserName == userName {
			out = append(out, a)
		}
	}
	newestFirst(out)
	return out, nil
}

func (m *Memory) ListBySession(_ context.Context, sessionID int64) ([]questboard.Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []questboard.Attempt{}
	for _, a := range m.attempts {
		if a.SessionID == sessionID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *Memory) ListPlayers(_ context.Context, admin bool) ([]questboard.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []questboard.Player{}
	for _, p := range m.players {
		if p.IsAdmin == admin {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *Memory) CreatePlayer(_ context.Context, p questboard.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if slices.ContainsFunc(m.players, func(x questboard.Player) bool { return x.UserName == p.UserName }) {
		return fmt.Errorf("player %q: %w", p.UserName, questboard.ErrUsernameTaken)
	}
	m.players = append(m.players, p)
	return nil
}

func (m *Memory) Close() error { return nil }

var _ Store = (*Memory)(nil)
