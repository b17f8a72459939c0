package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fjod/go_eshop/pkg/apperr"
	"github.com/fjod/go_eshop/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSender(url string) *ResendSender {
	return NewResendSender("re_test", time.Second, logger.Discard(),
		WithBaseURL(url), WithHTTPClient(&http.Client{Timeout: time.Second}))
}

func validMessage() Message {
	return Message{To: "swn@example.com", Subject: "Order confirmation for swn", Text: "Order received"}
}

func TestResendSender_PostsMessage(t *testing.T) {
	var got resendRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id":"49a3999c"}`))
	}))
	defer srv.Close()

	require.NoError(t, newTestSender(srv.URL+"/").Send(context.Background(), validMessage()))

	assert.Equal(t, "Bearer re_test", auth)
	assert.Equal(t, DefaultFrom, got.From)
	assert.Equal(t, []string{"swn@example.com"}, got.To)
	assert.Equal(t, "Order received", got.Text)
	assert.Empty(t, got.HTML)
}

func TestResendSender_StatusClassification(t *testing.T) {
	tests := []struct {
		status int
		kind   apperr.Kind
	}{
		{http.StatusInternalServerError, apperr.KindTransient},
		{http.StatusTooManyRequests, apperr.KindTransient},
		{http.StatusUnprocessableEntity, apperr.KindFatal},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			err := newTestSender(srv.URL).Send(context.Background(), validMessage())
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}
}

func TestResendSender_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := newTestSender(url).Send(context.Background(), validMessage())
	assert.Equal(t, apperr.KindTransient, apperr.KindOf(err))
}

func TestMessage_Validate(t *testing.T) {
	err := Message{}.Validate()
	require.Error(t, err)
	fields := apperr.FieldsOf(err)
	assert.Len(t, fields, 3)

	m := validMessage()
	m.Text = ""
	m.HTML = "<p>hi</p>"
	assert.NoError(t, m.Validate())
}

func TestLogSender(t *testing.T) {
	s := NewLogSender(logger.Discard())

	assert.NoError(t, s.Send(context.Background(), validMessage()))
	assert.Error(t, s.Send(context.Background(), Message{}))
}
