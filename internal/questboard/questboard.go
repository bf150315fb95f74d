// Package questboard defines the core domain types shared by the store,
// ranking, server and client packages. It has no external dependencies.
package questboard

import (
	"errors"
	"fmt"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

type Role string

const (
	RolePlayer Role = "player"
	RoleAdmin  Role = "admin"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrUsernameTaken      = errors.New("username taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidRate        = errors.New("rate must be between 0 and 100")
	ErrInvalidStart       = errors.New("invalid start date or time")
)

// Session is a scheduled quest event.
type Session struct {
	ID          int64  `json:"id"`
	StartDate   string `json:"startDate"`
	StartTime   string `json:"startTime"`
	Description string `json:"description"`
}

// NewSession carries the admin-supplied fields of a session.
type NewSession struct {
	StartDate   string `json:"startDate"`
	StartTime   string `json:"startTime"`
	Description string `json:"description"`
}

// StartsAt combines StartDate and StartTime in loc. Malformed values yield
// ErrInvalidStart.
func (s Session) StartsAt(loc *time.Location) (time.Time, error) {
	return ParseStart(s.StartDate, s.StartTime, loc)
}

// IsUpcoming reports whether the session starts strictly after now.
func (s Session) IsUpcoming(now time.Time, loc *time.Location) bool {
	start, err := s.StartsAt(loc)
	if err != nil {
		return false
	}
	return start.After(now)
}

func ParseStart(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, date+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q %q", ErrInvalidStart, date, clock)
	}
	return t, nil
}

// Attempt is one recorded play result of one user against one session.
type Attempt struct {
	ID           int64     `json:"id"`
	SessionID    int64     `json:"sessionId"`
	UserName     string    `json:"userName"`
	DateTime     time.Time `json:"dateTime"`
	Rate         int       `json:"rate"`
	CompletionID string    `json:"completionId,omitempty"`
}

// NewAttempt is what a caller supplies when recording an attempt; the id and
// timestamp are assigned by the store.
type NewAttempt struct {
	SessionID    int64
	UserName     string
	Rate         int
	CompletionID string
	// At backdates the attempt when importing fixtures. Zero means now.
	At time.Time
}

type Player struct {
	UserName     string
	PasswordHash string
	IsAdmin      bool
}

func (p Player) Role() Role {
	if p.IsAdmin {
		return RoleAdmin
	}
	return RolePlayer
}

type LeaderboardRow struct {
	Rank     int    `json:"rank"`
	UserName string `json:"userName"`
	Rate     int    `json:"rate"`
}

// ValidRate reports whether rate is inside the accepted score range.
func ValidRate(rate int) bool {
	return rate >= 0 && rate <= 100
}

// FormatSessionDate renders StartDate as DD.MM.YYYY.
func FormatSessionDate(s Session) string {
	t, err := time.Parse(DateLayout, s.StartDate)
	if err != nil {
		return s.StartDate
	}
	return t.Format("02.01.2006")
}

// FormatAttemptTime renders an attempt timestamp as DD.MM.YYYY HH:MM in loc.
func FormatAttemptTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("02.01.2006 15:04")
}
