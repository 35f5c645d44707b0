package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ecorewards/loyalty-engine/api"
	"github.com/ecorewards/loyalty-engine/loyalty"
	"github.com/ecorewards/loyalty-engine/notify"
	"github.com/ecorewards/loyalty-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type testServer struct {
	srv   *httptest.Server
	store *sqlite.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	service := loyalty.NewService(store)
	router := notify.NewRouter(map[notify.Channel]notify.Sender{
		notify.ChannelSMS:   &notify.LogSender{Channel: notify.ChannelSMS},
		notify.ChannelEmail: &notify.LogSender{Channel: notify.ChannelEmail},
	})
	scheduler := notify.NewScheduler(notify.SchedulerDeps{
		Due:         store,
		Preferences: store,
		Reminders:   store,
		Contacts:    store,
	}, router)

	handler := api.NewHandler(store, service, scheduler)
	srv := httptest.NewServer(api.NewRouter(handler))
	t.Cleanup(srv.Close)

	return &testServer{srv: srv, store: store}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func (ts *testServer) createUser(t *testing.T, id, phone string) string {
	t.Helper()
	resp, _ := ts.do(t, http.MethodPost, "/api/users", map[string]string{
		"id":    id,
		"name":  "Maria Garcia",
		"phone": phone,
		"email": id + "@example.com",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return id
}

// =============================================================================
// USER ENDPOINT TESTS
// =============================================================================

func TestCreateUser_CreditsWelcomeBonus(t *testing.T) {
	// GIVEN: A fresh registration
	// THEN: 201 with the welcome bonus already credited (500 points, silver)

	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodPost, "/api/users", map[string]string{
		"id":    "u-1",
		"name":  "Maria Garcia",
		"phone": "+15551234567",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var user struct {
		ID      string `json:"id"`
		Balance int64  `json:"balance"`
		Tier    string `json:"tier"`
	}
	require.NoError(t, json.Unmarshal(body, &user))
	assert.Equal(t, "u-1", user.ID)
	assert.Equal(t, int64(500), user.Balance)
	assert.Equal(t, "silver", user.Tier)
}

func TestCreateUser_MissingPhone(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.do(t, http.MethodPost, "/api/users", map[string]string{
		"name": "No Phone",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateUser_DuplicatePhone_Conflict(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "u-1", "+15551234567")

	resp, _ := ts.do(t, http.MethodPost, "/api/users", map[string]string{
		"id":    "u-2",
		"name":  "Impostor",
		"phone": "+15551234567",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestGetUser_ProfileWithTransactions(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "u-1", "+15551234567")

	resp, body := ts.do(t, http.MethodGet, "/api/users/u-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var profile struct {
		Balance      int64 `json:"balance"`
		Transactions []struct {
			Kind        string `json:"kind"`
			Amount      int64  `json:"amount"`
			Description string `json:"description"`
		} `json:"transactions"`
	}
	require.NoError(t, json.Unmarshal(body, &profile))
	assert.Equal(t, int64(500), profile.Balance)
	require.Len(t, profile.Transactions, 1)
	assert.Equal(t, "earn", profile.Transactions[0].Kind)
	assert.Equal(t, "Welcome bonus", profile.Transactions[0].Description)
}

func TestGetUser_NotFound(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.do(t, http.MethodGet, "/api/users/nobody", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// EARN / REDEEM TESTS
// =============================================================================

func TestEarn_SilverUserGetsBonus(t *testing.T) {
	// New users hold 500 points (silver), so a $100 payment earns
	// round(10 * 1.1) = 11 points.
	ts := newTestServer(t)
	ts.createUser(t, "u-1", "+15551234567")

	resp, body := ts.do(t, http.MethodPost, "/api/users/u-1/earn", map[string]any{
		"amount":      100,
		"description": "Payment for August",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Balance      int64  `json:"balance"`
		PointsEarned int64  `json:"points_earned"`
		BonusPoints  int64  `json:"bonus_points"`
		Tier         string `json:"tier"`
	}
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, int64(11), result.PointsEarned)
	assert.Equal(t, int64(1), result.BonusPoints)
	assert.Equal(t, int64(511), result.Balance)
	assert.Equal(t, "silver", result.Tier)
}

func TestEarn_InvalidAmount(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "u-1", "+15551234567")

	resp, _ := ts.do(t, http.MethodPost, "/api/users/u-1/earn", map[string]any{
		"amount": -10,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEarn_UnknownUser(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.do(t, http.MethodPost, "/api/users/nobody/earn", map[string]any{
		"amount": 100,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRedeem_Success(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "u-1", "+15551234567")

	resp, body := ts.do(t, http.MethodPost, "/api/users/u-1/redeem", map[string]any{
		"points": 200,
		"reward": "Free pickup",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		RemainingBalance int64  `json:"remaining_balance"`
		Tier             string `json:"tier"`
	}
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, int64(300), result.RemainingBalance)
	assert.Equal(t, "bronze", result.Tier, "redeeming below 500 downgrades")
}

func TestRedeem_InsufficientBalance(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "u-1", "+15551234567")

	resp, body := ts.do(t, http.MethodPost, "/api/users/u-1/redeem", map[string]any{
		"points": 10000,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errResp struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.Equal(t, "not enough points", errResp.Error)
}

// =============================================================================
// PREFERENCE TESTS
// =============================================================================

func TestPreferences_DefaultThenUpdate(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "u-1", "+15551234567")

	resp, body := ts.do(t, http.MethodGet, "/api/users/u-1/preferences", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var pref struct {
		SMS              bool `json:"sms"`
		Email            bool `json:"email"`
		RemindersEnabled bool `json:"reminders_enabled"`
		CooldownDays     int  `json:"cooldown_days"`
	}
	require.NoError(t, json.Unmarshal(body, &pref))
	assert.True(t, pref.SMS)
	assert.True(t, pref.Email)
	assert.True(t, pref.RemindersEnabled)
	assert.Equal(t, 30, pref.CooldownDays)

	resp, _ = ts.do(t, http.MethodPut, "/api/users/u-1/preferences", map[string]any{
		"sms":               false,
		"email":             true,
		"reminders_enabled": true,
		"cooldown_days":     14,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, body = ts.do(t, http.MethodGet, "/api/users/u-1/preferences", nil)
	require.NoError(t, json.Unmarshal(body, &pref))
	assert.False(t, pref.SMS)
	assert.Equal(t, 14, pref.CooldownDays)
}

func TestPreferences_UnknownUser(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.do(t, http.MethodGet, "/api/users/nobody/preferences", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// PROGRAM AND ADMIN TESTS
// =============================================================================

func TestGetTierTable(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodGet, "/api/loyalty/tiers", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var table struct {
		Tiers []struct {
			Tier       string   `json:"tier"`
			MinPoints  int64    `json:"min_points"`
			Multiplier string   `json:"multiplier"`
			Benefits   []string `json:"benefits"`
		} `json:"tiers"`
	}
	require.NoError(t, json.Unmarshal(body, &table))
	require.Len(t, table.Tiers, 4)
	assert.Equal(t, "bronze", table.Tiers[0].Tier)
	assert.Equal(t, "platinum", table.Tiers[3].Tier)
	assert.Equal(t, int64(5000), table.Tiers[3].MinPoints)
}

func TestTriggerSweep_RemindersCreated(t *testing.T) {
	// A fresh user has no payment earn, so the manual sweep reminds them.
	ts := newTestServer(t)
	ts.createUser(t, "u-1", "+15551234567")

	resp, body := ts.do(t, http.MethodPost, "/api/admin/sweep", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summary notify.SweepSummary
	require.NoError(t, json.Unmarshal(body, &summary))
	assert.Equal(t, 1, summary.Due)
	assert.Equal(t, 1, summary.Reminded)

	records, err := ts.store.ListReminders(context.Background(), "u-1", 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, notify.StatusSent, records[0].Status)
}

func TestReminderHistory_Endpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "u-1", "+15551234567")
	ts.do(t, http.MethodPost, "/api/admin/sweep", nil)

	resp, body := ts.do(t, http.MethodGet, "/api/users/u-1/reminders", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reminders []struct {
		Status string `json:"status"`
		DueAt  string `json:"due_at"`
	}
	require.NoError(t, json.Unmarshal(body, &reminders))
	require.Len(t, reminders, 1)
	assert.Equal(t, "sent", reminders[0].Status)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}
