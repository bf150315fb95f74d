// Package ranking computes per-session leaderboards from recorded attempts.
//
// Every function here is pure: callers pass the attempts they have loaded
// and get a fresh slice back. A user's standing depends only on their best
// rate. Users with equal best rates are ordered by when they first reached
// that rate, then by the attempt id that reached it, then by name.
package ranking

import (
	"cmp"
	"slices"
	"time"

	"github.com/flightkoy/questboard/internal/questboard"
)

type best struct {
	userName  string
	rate      int
	reachedAt time.Time
	attemptID int64
}

// Leaderboard returns one row per user who has attempts in sessionID, best
// rate first. Ranks are 1-based positions.
func Leaderboard(attempts []questboard.Attempt, sessionID int64) []questboard.LeaderboardRow {
	byUser := make(map[string]*best)
	for _, a := range attempts {
		if a.SessionID != sessionID {
			continue
		}
		b, ok := byUser[a.UserName]
		if !ok {
			byUser[a.UserName] = &best{userName: a.UserName, rate: a.Rate, reachedAt: a.DateTime, attemptID: a.ID}
			continue
		}
		if a.Rate > b.rate || (a.Rate == b.rate && reachedEarlier(a, b)) {
			b.rate, b.reachedAt, b.attemptID = a.Rate, a.DateTime, a.ID
		}
	}

	list := make([]*best, 0, len(byUser))
	for _, b := range byUser {
		list = append(list, b)
	}
	slices.SortFunc(list, func(x, y *best) int {
		if c := cmp.Compare(y.rate, x.rate); c != 0 {
			return c
		}
		if c := x.reachedAt.Compare(y.reachedAt); c != 0 {
			return c
		}
		if c := cmp.Compare(x.attemptID, y.attemptID); c != 0 {
			return c
		}
		return cmp.Compare(x.userName, y.userName)
	})

	rows := make([]questboard.LeaderboardRow, len(list))
	for i, b := range list {
		rows[i] = questboard.LeaderboardRow{Rank: i + 1, UserName: b.userName, Rate: b.rate}
	}
	return rows
}

func reachedEarlier(a questboard.Attempt, b *best) bool {
	if c := a.DateTime.Compare(b.reachedAt); c != 0 {
		return c < 0
	}
	return a.ID < b.attemptID
}

// BestRate is the highest rate userName scored in sessionID, or 0.
func BestRate(attempts []questboard.Attempt, sessionID int64, userName string) int {
	rate := 0
	for _, a := range attempts {
		if a.SessionID == sessionID && a.UserName == userName && a.Rate > rate {
			rate = a.Rate
		}
	}
	return rate
}

// Rank is userName's position on the session leaderboard. A user without
// attempts gets len(leaderboard)+1, a placeholder rather than a real rank.
func Rank(attempts []questboard.Attempt, sessionID int64, userName string) int {
	rank, _ := Standing(Leaderboard(attempts, sessionID), userName)
	return rank
}

// Standing looks userName up in an already computed leaderboard. Absent
// users get len(rows)+1 and a rate of 0.
func Standing(rows []questboard.LeaderboardRow, userName string) (rank, rate int) {
	for _, r := range rows {
		if r.UserName == userName {
			return r.Rank, r.Rate
		}
	}
	return len(rows) + 1, 0
}

// Dedupe drops attempts whose (DateTime, Rate) pair was already seen,
// keeping the first occurrence and the input order. It is meant for display
// of a history that may contain double submissions.
func Dedupe(attempts []questboard.Attempt) []questboard.Attempt {
	type key struct {
		at   int64
		rate int
	}
	seen := make(map[key]struct{}, len(attempts))
	out := make([]questboard.Attempt, 0, len(attempts))
	for _, a := range attempts {
		k := key{at: a.DateTime.UnixNano(), rate: a.Rate}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, a)
	}
	return out
}
