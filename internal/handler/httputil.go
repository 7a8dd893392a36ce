package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/matthewbaird/ioncon/internal/app"
	"github.com/matthewbaird/ioncon/internal/mi"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error      string `json:"error"`
	Code       string `json:"code"`
	Diagnostic string `json:"diagnostic,omitempty"`
	Field      string `json:"field,omitempty"`
}

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("writeJSON encode error", zap.Error(err))
	}
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: message, Code: code})
}

// decodeJSON decodes the request body into v.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// parseIntParam extracts and validates an integer path parameter.
func parseIntParam(w http.ResponseWriter, r *http.Request, paramName string) (int, bool) {
	raw := chi.URLParam(r, paramName)
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid "+paramName+": "+raw)
		return 0, false
	}
	return n, true
}

// appErrorToHTTP maps controller and MI errors to HTTP responses.
func appErrorToHTTP(w http.ResponseWriter, err error) {
	var miErr *mi.Error
	switch {
	case errors.Is(err, app.ErrBusy):
		writeError(w, http.StatusConflict, "BUSY", err.Error())
	case errors.Is(err, app.ErrTransition):
		writeError(w, http.StatusConflict, "BOOTSTRAP_RUNNING", err.Error())
	case errors.Is(err, app.ErrNotReady):
		writeError(w, http.StatusConflict, "NOT_READY", err.Error())
	case errors.Is(err, app.ErrUnknownOption), errors.Is(err, app.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, app.ErrUnavailable):
		writeError(w, http.StatusBadRequest, "UNAVAILABLE", err.Error())
	case errors.Is(err, app.ErrInvalid):
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, app.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "UNAUTHORIZED", app.NotAuthorizedAlert)
	case errors.As(err, &miErr):
		writeJSON(w, http.StatusBadGateway, errorBody{
			Error:      miErr.ErrorMessage,
			Code:       "MI_ERROR",
			Diagnostic: miErr.Diagnostic(),
			Field:      miErr.ErrorField,
		})
	default:
		zap.L().Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
