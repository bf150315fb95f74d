package orchestrator

import (
	"strconv"
	"strings"
)

type View string

const (
	ViewSelector      View = "selector"
	ViewSessions      View = "sessions"
	ViewSessionDetail View = "sessionDetail"
	// ViewQuest is the in-app quest used when no external quest site is
	// configured.
	ViewQuest View = "quest"
)

const (
	PathSelector = "/"
	PathSessions = "/sessions"
)

type Route struct {
	View      View
	SessionID int64
}

// ParseRoute maps a navigable path to a view. A trailing slash is ignored
// and anything unrecognised is the selector.
func ParseRoute(path string) Route {
	path = normalizePath(path)
	switch {
	case path == PathSelector:
		return Route{View: ViewSelector}
	case path == PathSessions:
		return Route{View: ViewSessions}
	}
	rest, ok := strings.CutPrefix(path, PathSessions+"/")
	if !ok {
		return Route{View: ViewSelector}
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return Route{View: ViewSelector}
	}
	return Route{View: ViewSessionDetail, SessionID: id}
}

// Path is the canonical path of r. The quest view has no path of its own
// and stays on its session's page.
func (r Route) Path() string {
	switch r.View {
	case ViewSessions:
		return PathSessions
	case ViewSessionDetail, ViewQuest:
		return SessionPath(r.SessionID)
	default:
		return PathSelector
	}
}

func SessionPath(id int64) string {
	return PathSessions + "/" + strconv.FormatInt(id, 10)
}

func normalizePath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimRight(path, "/")
	if path == "" {
		return PathSelector
	}
	return path
}
