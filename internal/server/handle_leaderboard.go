package server

import (
	"net/http"

	"github.com/flightkoy/questboard/internal/questboard"
	"github.com/flightkoy/questboard/internal/ranking"
)

// Standing is the caller's place on a leaderboard. Callers without attempts
// get the rank after the last row and a best rate of 0.
type Standing struct {
	UserName string `json:"userName"`
	Rank     int    `json:"rank"`
	BestRate int    `json:"bestRate"`
}

type LeaderboardResponse struct {
	SessionID int64                       `json:"sessionId"`
	Rows      []questboard.LeaderboardRow `json:"leaderboard"`
	Me        Standing                    `json:"me"`
}

// handleLeaderboard does not require the session to exist: a deleted
// session simply has an empty board.
func handleLeaderboard(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := sessionIDFrom(r)
		ctx := r.Context()

		rows, ok, err := d.Cache.Get(ctx, id)
		if err != nil {
			d.Logger.Warn("leaderboard cache read failed", "session_id", id, "error", err)
		}
		if !ok {
			attempts, err := d.Store.ListBySession(ctx, id)
			if err != nil {
				writeDomainError(w, d.Logger, r, err)
				return
			}
			rows = ranking.Leaderboard(attempts, id)
			// A Record that invalidates between the read above and this
			// write leaves a stale board until the TTL expires.
			if err := d.Cache.Set(ctx, id, rows); err != nil {
				d.Logger.Warn("leaderboard cache write failed", "session_id", id, "error", err)
			}
		}
		if rows == nil {
			rows = []questboard.LeaderboardRow{}
		}

		me := identityFrom(r).UserName
		rank, rate := ranking.Standing(rows, me)
		writeJSON(w, http.StatusOK, LeaderboardResponse{
			SessionID: id,
			Rows:      rows,
			Me:        Standing{UserName: me, Rank: rank, BestRate: rate},
		})
	}
}
