package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/compliance-sdk/pkg/composables"
	"github.com/iota-uz/compliance-sdk/pkg/serrors"
)

type createRequest struct {
	Title string `json:"title" validate:"required"`
}

func TestDecodeJSON(t *testing.T) {
	var req createRequest
	require.NoError(t, DecodeJSON(io.NopCloser(strings.NewReader(`{"title":"x"}`)), &req))
	assert.Equal(t, "x", req.Title)

	err := DecodeJSON(io.NopCloser(strings.NewReader(`{"title":"x","extra":1}`)), &req)
	require.Error(t, err)

	err = DecodeJSON(io.NopCloser(strings.NewReader(`{}`)), &createRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Title failed required")
}

func TestWriteServiceError(t *testing.T) {
	id := uuid.New()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(composables.WithRequestID(r.Context(), "req-1"))

	w := httptest.NewRecorder()
	WriteServiceError(w, r, "POLICY_INTERNAL", serrors.NotFound("POLICY_NOT_FOUND", "policy", id))
	require.Equal(t, http.StatusNotFound, w.Code)

	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "POLICY_NOT_FOUND", env.Code)
	assert.Contains(t, env.Message, id.String())
	assert.Equal(t, "req-1", env.Meta["request_id"])

	w = httptest.NewRecorder()
	WriteServiceError(w, r, "POLICY_INTERNAL", errors.New("db down"))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "POLICY_INTERNAL", env.Code)
	assert.NotContains(t, env.Message, "db down")
}
