// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	moserr "github.com/arc-dev/mos/pkg/errors"
)

// apiError converts a domain error into a huma status error. 5xx details
// stay in the log; clients get a generic message.
func (s *Server) apiError(op string, err error) error {
	status := moserr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			slog.String("operation", op),
			slog.String("code", string(moserr.CodeOf(err))),
			slog.Any("error", err),
		)
		if status == http.StatusInternalServerError {
			return huma.NewError(status, op+" failed")
		}
	}
	return huma.NewError(status, err.Error())
}

func notFound(what, id string) error {
	return moserr.New(moserr.CodeServerEntityNotFound, what+" not found", moserr.Field("id", id))
}

// writeProblem writes an RFC 9457 body shaped like huma's own errors for
// responses produced outside huma handlers.
func writeProblem(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(huma.ErrorModel{
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	})
}
