package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixml/jobsel/domain/attribute"
	"github.com/helixml/jobsel/domain/queue"
	"github.com/helixml/jobsel/domain/selection"
	"github.com/helixml/jobsel/infrastructure/api/jsonapi"
)

func decodeErrors(t *testing.T, body []byte) []jsonapi.Error {
	t.Helper()
	var doc jsonapi.Document
	require.NoError(t, json.Unmarshal(body, &doc))
	return doc.Errors
}

func TestErrorTypes(t *testing.T) {
	cause := errors.New("queue closed")
	apiErr := NewAPIError(http.StatusBadRequest, "invalid X-Requester-Perm header", cause)
	assert.Equal(t, "api error 400: invalid X-Requester-Perm header: queue closed", apiErr.Error())
	assert.Same(t, cause, errors.Unwrap(apiErr))

	authErr := fmt.Errorf("requester: %w", NewAuthenticationError("missing X-Requester-User header"))
	assert.ErrorIs(t, authErr, ErrAuthentication)
	var target *AuthenticationError
	assert.ErrorAs(t, authErr, &target)

	serverErr := NewServerError(http.StatusServiceUnavailable, "store closing")
	assert.ErrorIs(t, serverErr, ErrServer)
	assert.Equal(t, "server error 503: store closing", serverErr.Error())
}

func TestWriteError_Status(t *testing.T) {
	var syntaxErr error = &json.SyntaxError{}
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"unknown attribute", fmt.Errorf("compile: %w", selection.ErrUnknownAttribute), http.StatusBadRequest, "unknown_attribute"},
		{"unknown resource", selection.ErrUnknownResource, http.StatusBadRequest, "unknown_resource"},
		{"invalid operator", selection.ErrInvalidOperator, http.StatusBadRequest, "invalid_operator"},
		{"invalid value", selection.ErrInvalidValue, http.StatusBadRequest, "invalid_value"},
		{"unknown queue criterion", selection.ErrUnknownQueue, http.StatusBadRequest, "unknown_queue"},
		{"queue lookup", fmt.Errorf("%w: batch", queue.ErrNotFound), http.StatusUnprocessableEntity, "unknown_queue"},
		{"permission", selection.ErrPermissionDenied, http.StatusForbidden, "permission_denied"},
		{"capacity", selection.ErrOutOfMemory, http.StatusInsufficientStorage, "out_of_memory"},
		{"truncated body", io.ErrUnexpectedEOF, http.StatusBadRequest, "malformed_body"},
		{"bad json", syntaxErr, http.StatusBadRequest, "malformed_body"},
		{"auth", NewAuthenticationError("no key"), http.StatusUnauthorized, "unauthenticated"},
		{"api", NewAPIError(http.StatusConflict, "busy", nil), http.StatusConflict, ""},
		{"server", NewServerError(http.StatusServiceUnavailable, "closing"), http.StatusServiceUnavailable, ""},
		{"other", errors.New("boom"), http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			w := httptest.NewRecorder()
			WriteError(w, req, tt.err, slog.New(slog.DiscardHandler))

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "application/vnd.api+json", w.Header().Get("Content-Type"))
			errs := decodeErrors(t, w.Body.Bytes())
			require.Len(t, errs, 1)
			assert.Equal(t, fmt.Sprint(tt.status), errs[0].Status)
			assert.Equal(t, tt.code, errs[0].Code)
			assert.Nil(t, errs[0].Source)
		})
	}
}

func TestWriteError_ServerFailureLogged(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/selections", nil)
	WriteError(httptest.NewRecorder(), req, errors.New("database password leaked"), logger)
	assert.Contains(t, buf.String(), "request failed")
	assert.Contains(t, buf.String(), "/api/v1/selections")

	buf.Reset()
	WriteError(httptest.NewRecorder(), req, selection.ErrInvalidValue, logger)
	assert.Empty(t, buf.String())
}

func TestWriteError_InternalDetailHidden(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	w := httptest.NewRecorder()
	WriteError(w, req, errors.New("database password leaked"), slog.New(slog.DiscardHandler))

	errs := decodeErrors(t, w.Body.Bytes())
	require.Len(t, errs, 1)
	assert.Equal(t, "internal error", errs[0].Detail)
}

func TestWriteError_CriterionPointer(t *testing.T) {
	compiler := selection.NewCompiler(attribute.JobCatalog(), queue.NewRegistry())

	tests := []struct {
		name     string
		criteria []selection.Criterion
		pointer  string
	}{
		{
			name: "first criterion",
			criteria: []selection.Criterion{
				{Name: "no_such_attribute", Operator: selection.OpEqual, Value: "x"},
			},
			pointer: "/data/attributes/criteria/0",
		},
		{
			name: "second criterion",
			criteria: []selection.Criterion{
				{Name: attribute.NameJobOwner, Operator: selection.OpEqual, Value: "alice@login1"},
				{Name: "no_such_attribute", Operator: selection.OpEqual, Value: "x"},
			},
			pointer: "/data/attributes/criteria/1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := compiler.Compile(tt.criteria, attribute.PermUser)
			require.ErrorIs(t, err, selection.ErrUnknownAttribute)

			req := httptest.NewRequest(http.MethodPost, "/", nil)
			w := httptest.NewRecorder()
			WriteError(w, req, err, nil)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			errs := decodeErrors(t, w.Body.Bytes())
			require.Len(t, errs, 1)
			assert.Equal(t, "unknown_attribute", errs[0].Code)
			require.NotNil(t, errs[0].Source)
			assert.Equal(t, tt.pointer, errs[0].Source.Pointer)
		})
	}
}
