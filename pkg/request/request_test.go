package request

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Name string `json:"name"`
	}

	var ok body
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"trip"}`))
	require.NoError(t, DecodeJSON(req, &ok))
	assert.Equal(t, "trip", ok.Name)

	for _, raw := range []string{`{"name":`, `{"nickname":"x"}`, `{"name":"a"}{"name":"b"}`} {
		var b body
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(raw))
		assert.Error(t, DecodeJSON(req, &b), raw)
	}
}

func TestUUIDParam(t *testing.T) {
	want := uuid.New()

	r := chi.NewRouter()
	r.Get("/groups/{id}", func(w http.ResponseWriter, r *http.Request) {
		got, err := UUIDParam(r, "id")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, want, got)
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/groups/"+want.String(), nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/groups/17", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPagination(t *testing.T) {
	tests := []struct {
		query       string
		page, limit int
	}{
		{"", 1, DefaultPerPage},
		{"?page=3&per_page=50", 3, 50},
		{"?page=-1&per_page=1000", 1, DefaultPerPage},
		{"?page=abc", 1, DefaultPerPage},
	}

	for _, tt := range tests {
		page, perPage := Pagination(httptest.NewRequest(http.MethodGet, "/"+tt.query, nil))
		assert.Equal(t, tt.page, page, tt.query)
		assert.Equal(t, tt.limit, perPage, tt.query)
	}

	assert.Equal(t, 40, Offset(3, 20))
}
