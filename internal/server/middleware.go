package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/flightkoy/questboard/internal/auth"
)

type ctxKey int

const (
	ctxKeyIdentity ctxKey = iota
	ctxKeySessionID
)

// authenticator rejects requests whose bearer token did not verify.
// It must run after Tokens.Verifier.
func authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := auth.FromContext(r.Context())
		if err != nil {
			writeError(w, http.StatusUnauthorized, codeUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyIdentity, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !identityFrom(r).IsAdmin() {
			writeError(w, http.StatusForbidden, codeForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sessionIDParam(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusNotFound, codeNotFound)
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeySessionID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func identityFrom(r *http.Request) auth.Identity {
	return r.Context().Value(ctxKeyIdentity).(auth.Identity)
}

func sessionIDFrom(r *http.Request) int64 {
	return r.Context().Value(ctxKeySessionID).(int64)
}
