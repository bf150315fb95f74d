package server

import (
	"context"
	"net/http"

	"github.com/flightkoy/questboard/internal/questboard"
)

// PasswordLoginRequest is the body of both password-only login endpoints.
type PasswordLoginRequest struct {
	Password string `json:"password"`
}

type RegisterRequest struct {
	UserName string `json:"userName"`
	Password string `json:"password"`
}

// AuthResponse carries a bearer token and the identity it speaks for.
type AuthResponse struct {
	Token    string          `json:"token"`
	UserName string          `json:"userName"`
	Role     questboard.Role `json:"role"`
}

func handlePlayerLoginOld(d Deps) http.HandlerFunc {
	return handlePasswordLogin(d, questboard.RolePlayer, d.Directory.ResolvePlayer)
}

func handleAdminLogin(d Deps) http.HandlerFunc {
	return handlePasswordLogin(d, questboard.RoleAdmin, d.Directory.ResolveAdmin)
}

func handlePasswordLogin(d Deps, role questboard.Role, resolve func(context.Context, string) (string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PasswordLoginRequest
		if err := readJSON(r, &req); err != nil {
			writeInvalid(w, "invalid request body")
			return
		}

		userName, err := resolve(r.Context(), req.Password)
		if err != nil {
			writeDomainError(w, d.Logger, r, err)
			return
		}
		issueToken(w, r, d, http.StatusOK, userName, role)
	}
}

func handlePlayerRegister(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := readJSON(r, &req); err != nil {
			writeInvalid(w, "invalid request body")
			return
		}

		userName, err := d.Directory.Register(r.Context(), req.UserName, req.Password)
		if err != nil {
			writeDomainError(w, d.Logger, r, err)
			return
		}
		d.Logger.Info("player registered", "user", userName)
		issueToken(w, r, d, http.StatusCreated, userName, questboard.RolePlayer)
	}
}

func issueToken(w http.ResponseWriter, r *http.Request, d Deps, status int, userName string, role questboard.Role) {
	token, err := d.Tokens.Issue(userName, role)
	if err != nil {
		writeDomainError(w, d.Logger, r, err)
		return
	}
	writeJSON(w, status, AuthResponse{Token: token, UserName: userName, Role: role})
}
