package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"projectdesk/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{domain.NewValidationError("bad"), http.StatusBadRequest},
		{&domain.AuthError{Status: 401, Message: "no"}, http.StatusUnauthorized},
		{&domain.NotFoundError{Message: "gone"}, http.StatusNotFound},
		{&domain.ServerError{Status: 500, Message: "boom"}, http.StatusBadGateway},
		{&domain.NetworkError{Message: "down"}, http.StatusBadGateway},
		{errors.New("other"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), "%v", tt.err)
	}
}

func TestRespondDomainError(t *testing.T) {
	rec := httptest.NewRecorder()

	RespondDomainError(rec, &domain.NotFoundError{Message: "Project not found."})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	var problem ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "Project not found.", problem.Detail)
	assert.Equal(t, "Not Found", problem.Title)
}

func TestRespondJSON_EncodeFailure(t *testing.T) {
	rec := httptest.NewRecorder()

	RespondJSON(rec, http.StatusOK, map[string]any{"bad": make(chan int)})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
