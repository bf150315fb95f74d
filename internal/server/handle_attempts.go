package server

import (
	"net/http"
	"strings"

	"github.com/flightkoy/questboard/internal/questboard"
)

// RecordAttemptRequest is the body of POST /api/sessions/{id}/attempts.
// CompletionID, when set, makes the call idempotent per session and user.
type RecordAttemptRequest struct {
	Rate         *int   `json:"rate" required:"true" minimum:"0" maximum:"100"`
	CompletionID string `json:"completionId,omitempty"`
}

type AttemptsResponse struct {
	Attempts []questboard.Attempt `json:"attempts"`
}

type AttemptResponse struct {
	Attempt questboard.Attempt `json:"attempt"`
}

func handleListAttempts(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userName := strings.TrimSpace(r.URL.Query().Get("userName"))
		if userName == "" {
			userName = identityFrom(r).UserName
		}

		list, err := d.Store.ListFor(r.Context(), sessionIDFrom(r), userName)
		if err != nil {
			writeDomainError(w, d.Logger, r, err)
			return
		}
		if list == nil {
			list = []questboard.Attempt{}
		}
		writeJSON(w, http.StatusOK, AttemptsResponse{Attempts: list})
	}
}

func handleRecordAttempt(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RecordAttemptRequest
		if err := readJSON(r, &req); err != nil {
			writeInvalid(w, "invalid request body")
			return
		}
		if req.Rate == nil {
			writeInvalid(w, "rate is required")
			return
		}
		if !questboard.ValidRate(*req.Rate) {
			writeDomainError(w, d.Logger, r, questboard.ErrInvalidRate)
			return
		}

		id := sessionIDFrom(r)
		user := identityFrom(r).UserName
		a, created, err := d.Store.Record(r.Context(), questboard.NewAttempt{
			SessionID:    id,
			UserName:     user,
			Rate:         *req.Rate,
			CompletionID: strings.TrimSpace(req.CompletionID),
		})
		if err != nil {
			writeDomainError(w, d.Logger, r, err)
			return
		}

		status := http.StatusOK
		if created {
			status = http.StatusCreated
			if err := d.Cache.Invalidate(r.Context(), id); err != nil {
				d.Logger.Warn("leaderboard cache invalidate failed", "session_id", id, "error", err)
			}
			d.Logger.Info("attempt recorded", "session_id", id, "user", user, "rate", a.Rate)
		}
		writeJSON(w, status, AttemptResponse{Attempt: a})
	}
}
