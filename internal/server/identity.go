package server

import (
	"context"
	"net/http"
	"strings"

	"referral-deposit-go/internal/models"
)

const (
	headerUserId   = "X-User-ID"
	headerUserRole = "X-User-Role"
	roleAdmin      = "admin"
)

type principalKey struct{}

// identify reads the caller supplied by the upstream identity provider.
// Requests without a user id pass through anonymously.
func identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userId := strings.TrimSpace(r.Header.Get(headerUserId))
		if userId != "" {
			p := models.Principal{
				UserId: userId,
				Admin:  strings.EqualFold(strings.TrimSpace(r.Header.Get(headerUserRole)), roleAdmin),
			}
			r = r.WithContext(context.WithValue(r.Context(), principalKey{}, p))
		}
		next.ServeHTTP(w, r)
	})
}

func principalFrom(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(models.Principal)
	return p, ok
}

func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := principalFrom(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "missing "+headerUserId+" header")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := principalFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing "+headerUserId+" header")
			return
		}
		if !p.Admin {
			writeError(w, http.StatusForbidden, "administrator role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
