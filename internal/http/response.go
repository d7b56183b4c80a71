package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"aurabudget/internal/core"
	applog "aurabudget/internal/log"
	"aurabudget/internal/storage"
	"aurabudget/internal/views"
)

// errBadRequest marks request errors the client can fix by sending well-formed input.
var errBadRequest = errors.New("bad request")

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// errorStatus maps a handler error to its response status.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case core.IsValidation(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, views.ErrUnknownView):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrCategoryInUse), errors.Is(err, storage.ErrDuplicateCategory):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"error": "..."}. Internal errors are logged and
// answered with a generic message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		applog.NewStructuredLogger(s.logger).LogError(r.Context(), "Request failed", err, operation,
			applog.NewFields().
				WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent()).
				WithErrorType("internal"))
		msg = "internal server error"
	} else {
		s.logger.DebugContext(r.Context(), "Request rejected",
			applog.FieldOperation, operation,
			applog.FieldStatusCode, status,
			applog.FieldError, msg)
	}
	writeJSON(w, status, errorBody{Error: msg})
}
