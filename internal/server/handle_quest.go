package server

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/flightkoy/questboard/internal/questboard"
)

// StartQuestRequest is the optional body of POST /api/sessions/{id}/quest.
// ReturnBase is where the quest site sends the player back to.
type StartQuestRequest struct {
	ReturnBase string `json:"returnBase,omitempty"`
}

// StartQuestResponse tells the client where to play. An empty URL means no
// external quest site is configured.
type StartQuestResponse struct {
	SessionID    int64  `json:"sessionId"`
	CompletionID string `json:"completionId"`
	URL          string `json:"url,omitempty"`
}

func handleStartQuest(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StartQuestRequest
		if err := readJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			writeInvalid(w, "invalid request body")
			return
		}

		s, err := d.Store.Get(r.Context(), sessionIDFrom(r))
		if err != nil {
			writeDomainError(w, d.Logger, r, err)
			return
		}
		id := identityFrom(r)
		if !id.IsAdmin() && !s.IsUpcoming(d.Now(), d.Location) {
			writeDomainError(w, d.Logger, r, questboard.ErrForbidden)
			return
		}

		resp := StartQuestResponse{
			SessionID:    s.ID,
			CompletionID: uuid.NewString(),
		}
		if d.QuestURL != "" {
			u, err := questURL(d.QuestURL, s.ID, id.UserName, resp.CompletionID, req.ReturnBase)
			if err != nil {
				writeDomainError(w, d.Logger, r, err)
				return
			}
			resp.URL = u
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func questURL(base string, sessionID int64, userName, completionID, returnBase string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("sessionId", strconv.FormatInt(sessionID, 10))
	q.Set("userName", userName)
	q.Set("completionId", completionID)
	if returnBase != "" {
		q.Set("returnBase", returnBase)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
