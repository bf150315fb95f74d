package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/flightkoy/questboard/internal/handler/health"
)

type sessionPath struct {
	ID int64 `path:"id" minimum:"1"`
}

type listSessionsQuery struct {
	Scope string `query:"scope" enum:"all,upcoming" default:"all"`
}

type listAttemptsQuery struct {
	UserName string `query:"userName" description:"Defaults to the caller."`
}

type operation struct {
	method, path  string
	summary, desc string
	bearer        bool
	req           []any
	resp          any
	status        int
	errors        []int
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Questboard API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Quest sessions, attempts and per-session leaderboards.")

	ops := []operation{
		{
			method: http.MethodGet, path: "/healthz",
			summary: "Health check", desc: "Returns the status of each backend dependency.",
			resp: map[string]health.Result{}, status: http.StatusOK,
			errors: []int{http.StatusServiceUnavailable},
		},
		{
			method: http.MethodPost, path: "/api/auth/player-login-old",
			summary: "Player login", desc: "Password-only login for existing players.",
			req:  []any{PasswordLoginRequest{}},
			resp: AuthResponse{}, status: http.StatusOK,
			errors: []int{http.StatusBadRequest, http.StatusUnauthorized},
		},
		{
			method: http.MethodPost, path: "/api/auth/admin-login",
			summary: "Admin login", desc: "Password-only login restricted to admins.",
			req:  []any{PasswordLoginRequest{}},
			resp: AuthResponse{}, status: http.StatusOK,
			errors: []int{http.StatusBadRequest, http.StatusUnauthorized},
		},
		{
			method: http.MethodPost, path: "/api/auth/player-register",
			summary: "Register player", desc: "Creates a player. Fails with username_taken if the name exists.",
			req:  []any{RegisterRequest{}},
			resp: AuthResponse{}, status: http.StatusCreated,
			errors: []int{http.StatusBadRequest, http.StatusConflict},
		},
		{
			method: http.MethodGet, path: "/api/sessions",
			summary: "List sessions", desc: "All sessions latest first, or upcoming sessions soonest first.",
			bearer: true, req: []any{listSessionsQuery{}},
			resp: SessionsResponse{}, status: http.StatusOK,
			errors: []int{http.StatusBadRequest, http.StatusUnauthorized},
		},
		{
			method: http.MethodPost, path: "/api/sessions",
			summary: "Create session", desc: "Admin only.",
			bearer: true, req: []any{CreateSessionRequest{}},
			resp: SessionResponse{}, status: http.StatusCreated,
			errors: []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden},
		},
		{
			method: http.MethodGet, path: "/api/sessions/{id}",
			summary: "Get session",
			bearer: true, req: []any{sessionPath{}},
			resp: SessionResponse{}, status: http.StatusOK,
			errors: []int{http.StatusUnauthorized, http.StatusNotFound},
		},
		{
			method: http.MethodDelete, path: "/api/sessions/{id}",
			summary: "Delete session", desc: "Admin only. Removes the session and all of its attempts.",
			bearer: true, req: []any{sessionPath{}},
			status: http.StatusNoContent,
			errors: []int{http.StatusUnauthorized, http.StatusForbidden},
		},
		{
			method: http.MethodGet, path: "/api/sessions/{id}/leaderboard",
			summary: "Session leaderboard", desc: "Best rate per user, with the caller's standing.",
			bearer: true, req: []any{sessionPath{}},
			resp: LeaderboardResponse{}, status: http.StatusOK,
			errors: []int{http.StatusUnauthorized},
		},
		{
			method: http.MethodGet, path: "/api/sessions/{id}/attempts",
			summary: "List attempts", desc: "A user's attempts in the session, newest first.",
			bearer: true, req: []any{sessionPath{}, listAttemptsQuery{}},
			resp: AttemptsResponse{}, status: http.StatusOK,
			errors: []int{http.StatusUnauthorized},
		},
		{
			method: http.MethodPost, path: "/api/sessions/{id}/attempts",
			summary: "Record attempt",
			desc:    "Records the caller's rate. Repeating a completionId returns the stored attempt with 200.",
			bearer:  true, req: []any{sessionPath{}, RecordAttemptRequest{}},
			resp: AttemptResponse{}, status: http.StatusCreated,
			errors: []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound},
		},
		{
			method: http.MethodPost, path: "/api/sessions/{id}/quest",
			summary: "Start quest",
			desc:    "Issues a completion id and the quest site URL. Players may only start upcoming sessions.",
			bearer:  true, req: []any{sessionPath{}, StartQuestRequest{}},
			resp: StartQuestResponse{}, status: http.StatusOK,
			errors: []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound},
		},
	}

	for _, op := range ops {
		oc, _ := r.NewOperationContext(op.method, op.path)
		oc.SetSummary(op.summary)
		desc := op.desc
		if op.bearer {
			desc += " Requires Bearer token."
		}
		oc.SetDescription(desc)
		for _, req := range op.req {
			oc.AddReqStructure(req)
		}
		oc.AddRespStructure(op.resp, openapi.WithHTTPStatus(op.status))
		for _, status := range op.errors {
			oc.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(status))
		}
		_ = r.AddOperation(oc)
	}

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
