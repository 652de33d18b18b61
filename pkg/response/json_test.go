package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	JSONWithMeta(rec, http.StatusOK, []string{"a"}, NewMeta(2, 20, 41))

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Success bool     `json:"success"`
		Data    []string `json:"data"`
		Meta    Meta     `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, []string{"a"}, body.Data)
	assert.Equal(t, 3, body.Meta.TotalPages)
}

func TestErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	InvalidSplitInput(rec, "shares must sum to more than zero")

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	require.NotNil(t, body.Error)
	assert.Equal(t, CodeInvalidSplitInput, body.Error.Code)
}

func TestNewMetaWithoutPageSize(t *testing.T) {
	assert.Equal(t, 0, NewMeta(1, 0, 10).TotalPages)
}
