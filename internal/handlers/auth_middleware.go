package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/chepyr/study-planner/internal/auth"
	"github.com/chepyr/study-planner/internal/planner"
)

type identityKey struct{}

/*
Verify the bearer token and put the caller's identity into the request
context. Handlers read it with identityFrom and pass it on explicitly.
*/
func (h *Handler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			sendError(w, "No token, authorization denied", http.StatusUnauthorized)
			return
		}
		userID, err := h.Tokens.Validate(strings.TrimPrefix(authHeader, "Bearer "))
		if errors.Is(err, auth.ErrExpiredToken) {
			sendError(w, "Token has expired", http.StatusUnauthorized)
			return
		}
		if err != nil {
			sendError(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), identityKey{}, planner.Identity{UserID: userID})
		next(w, r.WithContext(ctx))
	}
}

func identityFrom(r *http.Request) (planner.Identity, bool) {
	id, ok := r.Context().Value(identityKey{}).(planner.Identity)
	return id, ok
}
