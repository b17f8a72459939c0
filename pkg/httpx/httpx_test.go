package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fjod/go_eshop/pkg/apperr"
	"github.com/fjod/go_eshop/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusRequest struct {
	Status *int   `json:"status" validate:"required"`
	Email  string `json:"email" validate:"omitempty,email"`
}

func TestDecode_ValidationDetailsUseJSONNames(t *testing.T) {
	r := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"email":"nope"}`))

	var req statusRequest
	err := Decode(r, NewValidator(), &req)

	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, map[string]string{"status": "required", "email": "email"}, apperr.FieldsOf(err))
}

func TestDecode_RejectsMalformedJSON(t *testing.T) {
	r := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"status":`))

	var req statusRequest
	err := Decode(r, NewValidator(), &req)

	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestWriteError_StatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("load: %w", apperr.NotFound("cart not found")), http.StatusNotFound},
		{"validation", apperr.Invalid("bad", map[string]string{"cvv": "len"}), http.StatusBadRequest},
		{"business", apperr.Business("illegal transition"), http.StatusBadRequest},
		{"transient", apperr.Transient("publish failed"), http.StatusServiceUnavailable},
		{"fatal", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(logger.Discard(), rec, httptest.NewRequest(http.MethodGet, "/x", nil), tt.err)

			assert.Equal(t, tt.want, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	h := RequestIDMiddleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "abc", seen)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, strings.HasPrefix(rec.Header().Get("X-Request-ID"), "req-"))
}
