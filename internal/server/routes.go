package server

import (
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/flightkoy/questboard/internal/handler/health"
)

func addRoutes(r chi.Router, d Deps) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Questboard API", "/openapi.json", "/docs"))
	r.Mount("/healthz", health.NewHandler(d.Logger, d.Checks).Routes())

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/player-login-old", handlePlayerLoginOld(d))
		r.Post("/admin-login", handleAdminLogin(d))
		r.Post("/player-register", handlePlayerRegister(d))
	})

	r.Group(func(r chi.Router) {
		r.Use(d.Tokens.Verifier())
		r.Use(authenticator)

		r.Get("/api/sessions", handleListSessions(d))
		r.With(adminOnly).Post("/api/sessions", handleCreateSession(d))

		r.Route("/api/sessions/{id}", func(r chi.Router) {
			r.Use(sessionIDParam)
			r.Get("/", handleGetSession(d))
			r.With(adminOnly).Delete("/", handleDeleteSession(d))
			r.Get("/leaderboard", handleLeaderboard(d))
			r.Get("/attempts", handleListAttempts(d))
			r.Post("/attempts", handleRecordAttempt(d))
			r.Post("/quest", handleStartQuest(d))
		})
	})

	if d.SPADir != "" {
		if info, err := os.Stat(d.SPADir); err == nil && info.IsDir() {
			d.Logger.Info("serving SPA", "dir", d.SPADir)
			r.NotFound(handleSPA(d.SPADir))
		}
	}
}
