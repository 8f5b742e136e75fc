package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"gitlab.com/offlinejudge.net/internal/static/errs"
)

type ErrorMessage struct {
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

func WriteError(w http.ResponseWriter, err ErrorMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	_ = json.NewEncoder(w).Encode(err)
}

func WriteSuccess(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, http.StatusOK, data)
}

func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// StatusFor maps service errors onto HTTP status codes
func StatusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrProblemNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrSourceTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errs.ErrInvalidRequest), errors.Is(err, errs.ErrInvalidProblem):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrMissingToken), errors.Is(err, errs.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, errs.ErrPermission):
		return http.StatusForbidden
	case errors.Is(err, errs.ErrRuntimeUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteServiceError writes err with the status from StatusFor. Internal
// errors are not echoed to the client.
func WriteServiceError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = errs.ErrInternal.Error()
	}
	WriteError(w, ErrorMessage{Message: message, StatusCode: status})
}
