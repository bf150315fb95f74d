package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/flightkoy/questboard/internal/questboard"
)

type demoPlayer struct {
	userName string
	password string
	isAdmin  bool
}

var demoPlayers = []demoPlayer{
	{"Artur_1", "artur", false},
	{"Antuan", "a", false},
	{"Maria", "m", false},
	{"Ivan", "i", false},
	{"admin", "admin", true},
}

type demoAttempt struct {
	userName string
	at       string
	rate     int
}

var demoAttempts = []demoAttempt{
	{"Antuan", "2025-03-01T14:35:00Z", 98},
	{"Maria", "2025-03-01T14:40:00Z", 81},
	{"Ivan", "2025-03-01T14:45:00Z", 69},
	{"Artur_1", "2025-03-01T15:00:00Z", 78},
	{"Artur_1", "2025-03-01T15:10:00Z", 65},
	{"Artur_1", "2025-03-01T15:20:00Z", 82},
}

// SeedDemo fills an empty store with the demo sessions, players and the
// results of the first session. hash turns a plain password into the
// stored credential. It does nothing if any player exists.
func SeedDemo(ctx context.Context, logger *slog.Logger, st Store, now time.Time, hash func(string) (string, error)) error {
	for _, admin := range []bool{false, true} {
		existing, err := st.ListPlayers(ctx, admin)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return nil
		}
	}

	for _, p := range demoPlayers {
		h, err := hash(p.password)
		if err != nil {
			return fmt.Errorf("hashing password of %s: %w", p.userName, err)
		}
		if err := st.CreatePlayer(ctx, questboard.Player{UserName: p.userName, PasswordHash: h, IsAdmin: p.isAdmin}); err != nil {
			return err
		}
	}

	next := now.AddDate(0, 0, 7)
	sessions := []questboard.NewSession{
		{StartDate: "2025-03-01", StartTime: "14:30", Description: "Session 1"},
		{StartDate: "2025-03-02", StartTime: "10:00", Description: "Session 2"},
		{StartDate: "2025-02-10", StartTime: "18:45", Description: "Past session"},
		{StartDate: next.Format(questboard.DateLayout), StartTime: "18:00", Description: "Upcoming session"},
	}
	var first questboard.Session
	for i, in := range sessions {
		s, err := st.Create(ctx, in)
		if err != nil {
			return err
		}
		if i == 0 {
			first = s
		}
	}

	for _, a := range demoAttempts {
		at, err := time.Parse(time.RFC3339, a.at)
		if err != nil {
			return err
		}
		_, _, err = st.Record(ctx, questboard.NewAttempt{
			SessionID: first.ID,
			UserName:  a.userName,
			Rate:      a.rate,
			At:        at,
		})
		if err != nil {
			return err
		}
	}

	logger.Info("demo data seeded", "players", len(demoPlayers), "sessions", len(sessions))
	return nil
}
