package email_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ecorewards/loyalty-engine/email"
)

func TestSend_PostsJSONWithServerToken(t *testing.T) {
	// GIVEN: A configured client pointed at a fake Postmark
	// WHEN: Sending one message
	// THEN: JSON POST on /email with the server-token header

	var got *http.Request
	var payload map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"MessageID":"abc","ErrorCode":0}`))
	}))
	defer srv.Close()

	client := email.NewClient("server-token", "noreply@ecorewards.com",
		email.WithBaseURL(srv.URL),
		email.WithSubject("Payment Reminder - Due in 3 Days"))

	err := client.Send(context.Background(), "maria@example.com", "<h2>Payment Reminder</h2>")
	require.NoError(t, err)

	assert.Equal(t, "/email", got.URL.Path)
	assert.Equal(t, "server-token", got.Header.Get("X-Postmark-Server-Token"))
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))

	assert.Equal(t, "noreply@ecorewards.com", payload["From"])
	assert.Equal(t, "maria@example.com", payload["To"])
	assert.Equal(t, "Payment Reminder - Due in 3 Days", payload["Subject"])
	assert.Equal(t, "<h2>Payment Reminder</h2>", payload["HtmlBody"])
}

func TestSend_APIErrorSurfacesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"ErrorCode":300,"Message":"Invalid email address"}`))
	}))
	defer srv.Close()

	client := email.NewClient("server-token", "noreply@ecorewards.com", email.WithBaseURL(srv.URL))
	err := client.Send(context.Background(), "not-an-address", "body")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid email address")
}

func TestSend_Unconfigured(t *testing.T) {
	client := email.NewClient("", "noreply@ecorewards.com")
	assert.False(t, client.Configured())

	err := client.Send(context.Background(), "maria@example.com", "body")
	assert.Error(t, err)
}
