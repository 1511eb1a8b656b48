package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/helixml/jobsel/domain/job"
	"github.com/helixml/jobsel/domain/queue"
	"github.com/helixml/jobsel/domain/selection"
	"github.com/helixml/jobsel/infrastructure/api/jsonapi"
	"github.com/helixml/jobsel/infrastructure/metrics"
)

// Sentinel errors for the HTTP layer.
var (
	ErrAuthentication = errors.New("authentication failed")
	ErrServer         = errors.New("server error")
)

// APIError is an error with an explicit HTTP status code.
type APIError struct {
	code    int
	message string
	cause   error
}

// NewAPIError creates an APIError.
func NewAPIError(code int, message string, cause error) *APIError {
	return &APIError{code: code, message: message, cause: cause}
}

// Code returns the HTTP status code.
func (e *APIError) Code() int { return e.code }

// Message returns the client facing message.
func (e *APIError) Message() string { return e.message }

// Error implements error.
func (e *APIError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("api error %d: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("api error %d: %s", e.code, e.message)
}

// Unwrap returns the cause.
func (e *APIError) Unwrap() error { return e.cause }

// AuthenticationError reports a rejected credential.
type AuthenticationError struct {
	message string
}

// NewAuthenticationError creates an AuthenticationError.
func NewAuthenticationError(message string) *AuthenticationError {
	return &AuthenticationError{message: message}
}

// Error implements error.
func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("%v: %s", ErrAuthentication, e.message)
}

// Is reports whether target is ErrAuthentication.
func (e *AuthenticationError) Is(target error) bool { return target == ErrAuthentication }

// ServerError reports a failure on the server side.
type ServerError struct {
	status  int
	message string
}

// NewServerError creates a ServerError.
func NewServerError(status int, message string) *ServerError {
	return &ServerError{status: status, message: message}
}

// StatusCode returns the HTTP status code.
func (e *ServerError) StatusCode() int { return e.status }

// Message returns the client facing message.
func (e *ServerError) Message() string { return e.message }

// Error implements error.
func (e *ServerError) Error() string {
	return fmt.Sprintf("%v %d: %s", ErrServer, e.status, e.message)
}

// Is reports whether target is ErrServer.
func (e *ServerError) Is(target error) bool { return target == ErrServer }

// WriteJSON writes v as a JSON:API body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/vnd.api+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err to a status code and writes a JSON:API error
// document. Server side failures are logged.
func WriteError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	status, code := classify(err)

	if status >= http.StatusInternalServerError {
		if logger == nil {
			logger = slog.Default()
		}
		logger.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.Any("error", err),
		)
	}

	e := jsonapi.NewError(strconv.Itoa(status), http.StatusText(status), detail(err, status))
	e.Code = code
	if ordinal := selection.Ordinal(err); ordinal > 0 {
		e.Source = &jsonapi.ErrorSource{
			Pointer: fmt.Sprintf("/data/attributes/criteria/%d", ordinal-1),
		}
	}
	WriteJSON(w, status, jsonapi.NewErrorResponse(e))
}

func classify(err error) (int, string) {
	var (
		apiErr    *APIError
		serverErr *ServerError
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.Is(err, ErrAuthentication):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.As(err, &apiErr):
		return apiErr.Code(), ""
	case errors.As(err, &serverErr):
		return serverErr.StatusCode(), ""
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr),
		errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return http.StatusBadRequest, "malformed_body"
	case errors.Is(err, selection.ErrPermissionDenied):
		return http.StatusForbidden, metrics.Outcome(err)
	case errors.Is(err, selection.ErrOutOfMemory):
		return http.StatusInsufficientStorage, metrics.Outcome(err)
	case errors.Is(err, selection.ErrUnknownQueue),
		errors.Is(err, selection.ErrUnknownAttribute),
		errors.Is(err, selection.ErrUnknownResource),
		errors.Is(err, selection.ErrInvalidOperator),
		errors.Is(err, selection.ErrInvalidValue):
		return http.StatusBadRequest, metrics.Outcome(err)
	case errors.Is(err, queue.ErrNotFound):
		return http.StatusUnprocessableEntity, "unknown_queue"
	case errors.Is(err, job.ErrNotFound):
		return http.StatusNotFound, "not_found"
	default:
		return http.StatusInternalServerError, ""
	}
}

func detail(err error, status int) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message()
	}
	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		return serverErr.Message()
	}
	if status == http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}
