package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"techstore/internal/domain"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// ErrorResponse is the envelope of every error reply
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp string         `json:"timestamp"`
}

// Machine readable codes for store failures
const (
	CodeInvalidAmount     = "invalid_amount"
	CodeInsufficientStock = "insufficient_stock"
	CodeDuplicateCode     = "duplicate_code"
	CodeDuplicateID       = "duplicate_id"
	CodeNotFound          = "not_found"
	CodePaymentDeclined   = "payment_declined"
	CodeValidation        = "validation_failed"
)

var domainErrors = []struct {
	target error
	status int
	code   string
}{
	{domain.ErrInvalidAmount, http.StatusBadRequest, CodeInvalidAmount},
	{domain.ErrInsufficientStock, http.StatusConflict, CodeInsufficientStock},
	{domain.ErrDuplicateCode, http.StatusConflict, CodeDuplicateCode},
	{domain.ErrDuplicateID, http.StatusConflict, CodeDuplicateID},
	{domain.ErrNotFound, http.StatusNotFound, CodeNotFound},
	{domain.ErrPaymentDeclined, http.StatusPaymentRequired, CodePaymentDeclined},
}

// StatusFor maps a store error to its HTTP status and error code. Unknown
// errors map to 500.
func StatusFor(err error) (int, string) {
	for _, m := range domainErrors {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}

// RespondWithDomainError writes err using its mapped status. Internal errors
// are logged and their message hidden.
func RespondWithDomainError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status, code := StatusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("Unhandled store error", zap.Error(err))
		message = "internal server error"
	}
	writeError(w, status, code, message, nil)
}

// RespondWithError sends a structured error response
func RespondWithError(w http.ResponseWriter, statusCode int, message string) {
	RespondWithErrorDetails(w, statusCode, message, nil)
}

// RespondWithErrorDetails sends a structured error response with additional details
func RespondWithErrorDetails(w http.ResponseWriter, statusCode int, message string, details map[string]any) {
	writeError(w, statusCode, http.StatusText(statusCode), message, details)
}

// RespondWithValidationErrors sends validation error response
func RespondWithValidationErrors(w http.ResponseWriter, errs []ValidationError) {
	writeError(w, http.StatusBadRequest, CodeValidation, "validation failed", map[string]any{
		"validation_errors": errs,
	})
}

func writeError(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	RespondWithJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:      code,
			Message:   message,
			Details:   details,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// Recover converts panics into 500 responses
func Recover(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error("Panic recovered",
						zap.Any("error", rec),
						zap.String("path", r.URL.Path),
						zap.String("method", r.Method),
					)
					RespondWithError(w, http.StatusInternalServerError, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RespondWithJSON sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}
