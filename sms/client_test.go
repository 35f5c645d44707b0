package sms_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ecorewards/loyalty-engine/sms"
)

func TestSend_PostsFormWithBasicAuth(t *testing.T) {
	// GIVEN: A configured client pointed at a fake Twilio
	// WHEN: Sending one message
	// THEN: Form-encoded POST on the messages endpoint with basic auth

	var got *http.Request
	var form map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		require.NoError(t, r.ParseForm())
		form = map[string]string{
			"To":   r.PostFormValue("To"),
			"From": r.PostFormValue("From"),
			"Body": r.PostFormValue("Body"),
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid":"SM123","status":"queued"}`))
	}))
	defer srv.Close()

	client := sms.NewClient("AC123", "token", "+15550000000", sms.WithBaseURL(srv.URL))
	err := client.Send(context.Background(), "+15551234567", "Your payment is due")
	require.NoError(t, err)

	assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", got.URL.Path)
	assert.Equal(t, http.MethodPost, got.Method)

	user, pass, ok := got.BasicAuth()
	require.True(t, ok)
	assert.Equal(t, "AC123", user)
	assert.Equal(t, "token", pass)

	assert.Equal(t, "+15551234567", form["To"])
	assert.Equal(t, "+15550000000", form["From"])
	assert.Equal(t, "Your payment is due", form["Body"])
}

func TestSend_APIErrorSurfacesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":21211,"message":"Invalid 'To' phone number"}`))
	}))
	defer srv.Close()

	client := sms.NewClient("AC123", "token", "+15550000000", sms.WithBaseURL(srv.URL))
	err := client.Send(context.Background(), "not-a-number", "hi")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid 'To' phone number")
}

func TestSend_Unconfigured(t *testing.T) {
	client := sms.NewClient("", "", "+15550000000")
	assert.False(t, client.Configured())

	err := client.Send(context.Background(), "+15551234567", "hi")
	assert.Error(t, err)
}

func TestSend_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	client := sms.NewClient("AC123", "token", "+15550000000", sms.WithBaseURL(srv.URL))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.Send(ctx, "+15551234567", "hi")
	assert.Error(t, err)
}
