// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package server

import (
	"context"
	"net/http"
	"strings"
)

// UserHeader carries the caller's user id. mos sits behind a trusted
// frontend or reverse proxy that authenticates users and sets it.
const UserHeader = "X-User-ID"

type userKey struct{}

// WithUser returns a context carrying userID.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserFromContext returns the user id set by the user middleware.
func UserFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userKey{}).(string)
	return id
}

// public paths skip the user check.
func isPublic(path string) bool {
	switch path {
	case "/health", "/metrics", "/docs":
		return true
	}
	return strings.HasPrefix(path, "/openapi") || strings.HasPrefix(path, "/schemas/")
}

// userMiddleware rejects API requests without X-User-ID with 401.
func userMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublic(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		userID := strings.TrimSpace(r.Header.Get(UserHeader))
		if userID == "" {
			writeProblem(w, http.StatusUnauthorized, "missing "+UserHeader+" header")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), userID)))
	})
}
