package server

import (
	"net/http"
	"strings"

	"github.com/flightkoy/questboard/internal/questboard"
)

const defaultSessionDescription = "Quest session"

// CreateSessionRequest is the body of POST /api/sessions.
type CreateSessionRequest struct {
	StartDate   string `json:"startDate" example:"2025-03-01"`
	StartTime   string `json:"startTime" example:"14:30"`
	Description string `json:"description,omitempty"`
}

type SessionsResponse struct {
	Sessions []questboard.Session `json:"sessions"`
}

type SessionResponse struct {
	Session questboard.Session `json:"session"`
}

func (req *CreateSessionRequest) validate(d Deps) error {
	req.StartDate = strings.TrimSpace(req.StartDate)
	req.StartTime = strings.TrimSpace(req.StartTime)
	req.Description = strings.TrimSpace(req.Description)
	if req.Description == "" {
		req.Description = defaultSessionDescription
	}
	_, err := questboard.ParseStart(req.StartDate, req.StartTime, d.Location)
	return err
}

func handleListSessions(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			list []questboard.Session
			err  error
		)
		switch scope := r.URL.Query().Get("scope"); scope {
		case "", "all":
			list, err = d.Store.ListAll(r.Context())
		case "upcoming":
			list, err = d.Store.ListUpcoming(r.Context())
		default:
			writeInvalid(w, "scope must be all or upcoming")
			return
		}
		if err != nil {
			writeDomainError(w, d.Logger, r, err)
			return
		}
		if list == nil {
			list = []questboard.Session{}
		}
		writeJSON(w, http.StatusOK, SessionsResponse{Sessions: list})
	}
}

func handleCreateSession(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateSessionRequest
		if err := readJSON(r, &req); err != nil {
			writeInvalid(w, "invalid request body")
			return
		}
		if err := req.validate(d); err != nil {
			writeInvalid(w, "startDate must be YYYY-MM-DD and startTime HH:MM")
			return
		}

		s, err := d.Store.Create(r.Context(), questboard.NewSession{
			StartDate:   req.StartDate,
			StartTime:   req.StartTime,
			Description: req.Description,
		})
		if err != nil {
			writeDomainError(w, d.Logger, r, err)
			return
		}
		d.Logger.Info("session created", "session_id", s.ID, "by", identityFrom(r).UserName)
		writeJSON(w, http.StatusCreated, SessionResponse{Session: s})
	}
}

func handleGetSession(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := d.Store.Get(r.Context(), sessionIDFrom(r))
		if err != nil {
			writeDomainError(w, d.Logger, r, err)
			return
		}
		writeJSON(w, http.StatusOK, SessionResponse{Session: s})
	}
}

func handleDeleteSession(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := sessionIDFrom(r)
		if err := d.Store.Delete(r.Context(), id); err != nil {
			writeDomainError(w, d.Logger, r, err)
			return
		}
		if err := d.Cache.Invalidate(r.Context(), id); err != nil {
			d.Logger.Warn("leaderboard cache invalidate failed", "session_id", id, "error", err)
		}
		d.Logger.Info("session deleted", "session_id", id, "by", identityFrom(r).UserName)
		w.WriteHeader(http.StatusNoContent)
	}
}
