package orchestrator

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/flightkoy/questboard/internal/client"
)

// Identity is who the interface is showing data for.
type Identity struct {
	UserName string
	IsAdmin  bool
	// FromToken is false when the identity came only from a return-trip
	// userName parameter; such a user cannot call the API.
	FromToken bool
}

// Completion is the result a quest site hands back in the query string.
type Completion struct {
	SessionID    int64
	Rate         int
	UserName     string
	CompletionID string
}

// Key identifies the completion for exactly-once processing. Without a
// completion id the key is session, user and rate, so two separate return
// trips with the same rate count once until the controller's user logs out.
func (c Completion) Key() string {
	if c.CompletionID != "" {
		return c.CompletionID
	}
	return strconv.FormatInt(c.SessionID, 10) + "/" + c.UserName + "/" + strconv.Itoa(c.Rate)
}

// ParseCompletion reads rate, sessionId, userName and completionId. The
// rate must be 1..100 and sessionId a positive integer.
func ParseCompletion(q url.Values) (Completion, bool) {
	if !q.Has("rate") || !q.Has("sessionId") {
		return Completion{}, false
	}
	rate, err := strconv.Atoi(strings.TrimSpace(q.Get("rate")))
	if err != nil || rate < 1 || rate > 100 {
		return Completion{}, false
	}
	sid, err := strconv.ParseInt(strings.TrimSpace(q.Get("sessionId")), 10, 64)
	if err != nil || sid <= 0 {
		return Completion{}, false
	}
	return Completion{
		SessionID:    sid,
		Rate:         rate,
		UserName:     q.Get("userName"),
		CompletionID: q.Get("completionId"),
	}, true
}

func parseQuery(raw string) (url.Values, error) {
	return url.ParseQuery(strings.TrimPrefix(raw, "?"))
}

// Input is everything known on load: the stored token, the current path
// and its query.
type Input struct {
	Token string
	Path  string
	Query url.Values
}

// Resolution is the reconciled start state.
type Resolution struct {
	Identity  *Identity
	View      View
	SessionID int64
	// ReplacePath, when set, replaces the current history entry so a reload
	// does not replay the load.
	ReplacePath string
	// ClearToken means the stored token could not be decoded.
	ClearToken bool
	// Completion is a quest result waiting to be recorded.
	Completion *Completion
}

// Resolve reconciles the stored token, the path and any return-trip
// parameters into one start state. It performs no I/O.
//
// A valid token on the selector moves to the session list. A completion
// opens its session's page and strips the query. Without any identity only
// the selector is reachable.
func Resolve(in Input) Resolution {
	route := ParseRoute(in.Path)
	res := Resolution{View: route.View, SessionID: route.SessionID}

	if in.Token != "" {
		claims, err := client.DecodeToken(in.Token)
		if err != nil {
			res.ClearToken = true
		} else {
			res.Identity = &Identity{UserName: claims.UserName, IsAdmin: claims.IsAdmin(), FromToken: true}
		}
	}

	stripQuery := false
	if c, ok := ParseCompletion(in.Query); ok {
		res.Completion = &c
		res.View, res.SessionID = ViewSessionDetail, c.SessionID
		stripQuery = true
		if res.Identity == nil && c.UserName != "" {
			res.Identity = &Identity{UserName: c.UserName}
		}
	}

	switch {
	case res.Identity == nil:
		res.View, res.SessionID = ViewSelector, 0
	case res.View == ViewSelector:
		res.View = ViewSessions
	}

	want := Route{View: res.View, SessionID: res.SessionID}.Path()
	if stripQuery || want != normalizePath(in.Path) {
		res.ReplacePath = want
	}
	return res
}
