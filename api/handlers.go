/*
handlers.go - HTTP API handlers for the loyalty engine

PURPOSE:
  Exposes the loyalty engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Users:
    POST   /api/users                      Register user (credits welcome bonus)
    GET    /api/users/{id}                 Profile with recent transactions
    POST   /api/users/{id}/earn            Credit points for a payment
    POST   /api/users/{id}/redeem          Spend points on a reward
    GET    /api/users/{id}/transactions    Ledger history
    GET    /api/users/{id}/preferences     Reminder preferences
    PUT    /api/users/{id}/preferences     Update reminder preferences
    GET    /api/users/{id}/reminders       Reminder history

  Loyalty:
    GET    /api/loyalty/tiers              Static tier table

  Admin:
    POST   /api/admin/sweep                Trigger one reminder sweep

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (service, scheduler, store)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid amounts, insufficient balance
  - 404: User not found
  - 409: Conflict (duplicate phone/email)
  - 500: Internal errors

SECURITY NOTE:
  Authentication and session handling live outside this service; all
  endpoints here are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ecorewards/loyalty-engine/loyalty"
	"github.com/ecorewards/loyalty-engine/notify"
	"github.com/ecorewards/loyalty-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     *sqlite.Store
	Loyalty   *loyalty.Service
	Scheduler *notify.Scheduler
}

// NewHandler creates a new handler.
func NewHandler(store *sqlite.Store, svc *loyalty.Service, scheduler *notify.Scheduler) *Handler {
	return &Handler{
		Store:     store,
		Loyalty:   svc,
		Scheduler: scheduler,
	}
}

// =============================================================================
// USER ENDPOINTS
// =============================================================================

// CreateUser registers a new user and credits the welcome bonus.
// POST /api/users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Phone == "" {
		writeError(w, http.StatusBadRequest, "phone is required", nil)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	user := loyalty.User{
		ID:    loyalty.UserID(req.ID),
		Name:  req.Name,
		Phone: req.Phone,
		Email: req.Email,
	}
	if err := h.Store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, loyalty.ErrUserExists) {
			writeError(w, http.StatusConflict, "user already exists with this phone or email", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create user", err)
		return
	}

	if err := h.Loyalty.GrantWelcomeBonus(ctx, user.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to credit welcome bonus", err)
		return
	}

	created, err := h.Store.GetUser(ctx, user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load user", err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(created))
}

// GetUser returns a profile with recent ledger history.
// GET /api/users/{id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := loyalty.UserID(chi.URLParam(r, "id"))

	user, err := h.Store.GetUser(ctx, userID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	entries, err := h.Loyalty.History(ctx, userID, 10)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ProfileDTO{
		UserDTO:      toUserDTO(user),
		Transactions: toEntryDTOs(entries),
	})
}

// Earn credits points for a payment.
// POST /api/users/{id}/earn
func (h *Handler) Earn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := loyalty.UserID(chi.URLParam(r, "id"))

	var req EarnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Description == "" {
		req.Description = "Payment"
	}

	result, err := h.Loyalty.Earn(ctx, userID, req.Amount, req.Description)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, EarnResponse{
		Balance:      result.Balance,
		PointsEarned: result.PointsEarned,
		BonusPoints:  result.BonusPoints,
		Tier:         string(result.Tier),
	})
}

// Redeem spends points on a reward.
// POST /api/users/{id}/redeem
func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := loyalty.UserID(chi.URLParam(r, "id"))

	var req RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Reward == "" {
		req.Reward = "Reward"
	}

	result, err := h.Loyalty.Redeem(ctx, userID, req.Points, req.Reward)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, RedeemResponse{
		RemainingBalance: result.RemainingBalance,
		Tier:             string(result.Tier),
	})
}

// GetTransactions returns the user's ledger history.
// GET /api/users/{id}/transactions?limit=N
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := loyalty.UserID(chi.URLParam(r, "id"))

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit", err)
			return
		}
		limit = parsed
	}

	entries, err := h.Loyalty.History(ctx, userID, limit)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTOs(entries))
}

// =============================================================================
// PREFERENCE ENDPOINTS
// =============================================================================

// GetPreferences returns reminder preferences, defaults applied if never set.
// GET /api/users/{id}/preferences
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := loyalty.UserID(chi.URLParam(r, "id"))

	if _, err := h.Store.GetUser(ctx, userID); err != nil {
		h.writeDomainError(w, err)
		return
	}

	pref, err := h.Store.GetPreferences(ctx, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get preferences", err)
		return
	}
	writeJSON(w, http.StatusOK, PreferenceDTO{
		SMS:              pref.SMS,
		Email:            pref.Email,
		RemindersEnabled: pref.RemindersEnabled,
		CooldownDays:     pref.CooldownDays,
	})
}

// UpdatePreferences stores the full reminder preference row.
// PUT /api/users/{id}/preferences
func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := loyalty.UserID(chi.URLParam(r, "id"))

	if _, err := h.Store.GetUser(ctx, userID); err != nil {
		h.writeDomainError(w, err)
		return
	}

	var req PreferenceDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.CooldownDays <= 0 {
		req.CooldownDays = notify.DefaultCooldownDays
	}

	pref := notify.Preference{
		UserID:           userID,
		SMS:              req.SMS,
		Email:            req.Email,
		RemindersEnabled: req.RemindersEnabled,
		CooldownDays:     req.CooldownDays,
	}
	if err := h.Store.SavePreferences(ctx, pref); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save preferences", err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// ListReminders returns the user's reminder history.
// GET /api/users/{id}/reminders
func (h *Handler) ListReminders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := loyalty.UserID(chi.URLParam(r, "id"))

	if _, err := h.Store.GetUser(ctx, userID); err != nil {
		h.writeDomainError(w, err)
		return
	}

	records, err := h.Store.ListReminders(ctx, userID, 20)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list reminders", err)
		return
	}
	writeJSON(w, http.StatusOK, toReminderDTOs(records))
}

// =============================================================================
// LOYALTY PROGRAM ENDPOINTS
// =============================================================================

// GetTierTable returns the static tier table.
// GET /api/loyalty/tiers
func (h *Handler) GetTierTable(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tiers": loyalty.TierTable()})
}

// =============================================================================
// ADMIN ENDPOINTS
// =============================================================================

// TriggerSweep runs one reminder sweep synchronously.
// POST /api/admin/sweep
func (h *Handler) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	summary := h.Scheduler.RunNow(r.Context())
	writeJSON(w, http.StatusOK, summary)
}

// Health reports service liveness.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// writeDomainError maps loyalty errors to HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	var balErr *loyalty.InsufficientBalanceError
	switch {
	case errors.Is(err, loyalty.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user not found", nil)
	case errors.As(err, &balErr):
		writeError(w, http.StatusBadRequest, "not enough points", balErr)
	case errors.Is(err, loyalty.ErrInsufficientBalance):
		writeError(w, http.StatusBadRequest, "not enough points", err)
	case errors.Is(err, loyalty.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "amount must be positive", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
