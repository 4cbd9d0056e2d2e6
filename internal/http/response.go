package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"saldo/internal/core"
	"saldo/internal/log"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Failed to encode response", log.FieldError, err.Error())
	}
}

func writeMessage(w http.ResponseWriter, r *http.Request, status int, field, msg string) {
	writeJSON(w, r, status, errorResponse{Error: msg, Field: field})
}

// writeError maps ledger errors onto status codes. Unclassified errors are
// logged and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var validation *core.ValidationError
	switch {
	case errors.As(err, &validation):
		writeMessage(w, r, http.StatusUnprocessableEntity, validation.Field, validation.Message)
	case core.IsValidation(err):
		writeMessage(w, r, http.StatusUnprocessableEntity, "", err.Error())
	case core.IsNotFound(err):
		writeMessage(w, r, http.StatusNotFound, "", notFoundMessage(err))
	case core.IsConstraint(err):
		writeMessage(w, r, http.StatusConflict, "", constraintMessage(err))
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldError, err.Error(),
			log.FieldErrorType, log.ErrorTypeInternal)
		writeMessage(w, r, http.StatusInternalServerError, "", "Internal server error")
	}
}

func constraintMessage(err error) string {
	var ce *core.ConstraintError
	if errors.As(err, &ce) {
		return ce.Message
	}
	return err.Error()
}

func notFoundMessage(err error) string {
	var nf *core.NotFoundError
	if errors.As(err, &nf) {
		return nf.Error()
	}
	return err.Error()
}

func writeRateLimited(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, r, http.StatusTooManyRequests, "", "Rate limit exceeded. Please try again later.")
}
