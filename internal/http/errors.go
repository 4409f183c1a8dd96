package httpapi

import (
	"errors"
	"net/http"

	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/domain"

	"go.uber.org/zap"
)

// errorBody {success:false, message, error}
type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err onto a status; 4xx messages are the error text,
// everything else is reported as an internal error with the cause echoed.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := statusFor(err)
	body := errorBody{Message: err.Error(), Error: err.Error()}
	if status == http.StatusInternalServerError {
		body.Message = "Internal server error"
		logger.Error("Request failed", zap.Error(err))
	}
	writeJSON(w, status, body)
}
