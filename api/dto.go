/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/ecorewards/loyalty-engine/loyalty"
	"github.com/ecorewards/loyalty-engine/notify"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// UserDTO represents a user in API responses.
type UserDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Email     string `json:"email,omitempty"`
	Balance   int64  `json:"balance"`
	Tier      string `json:"tier"`
	CreatedAt string `json:"created_at,omitempty"`
}

// CreateUserRequest is the request to register a user.
type CreateUserRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// EarnRequest is the request body for crediting points on a payment.
type EarnRequest struct {
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

// EarnResponse mirrors loyalty.EarnResult.
type EarnResponse struct {
	Balance      int64  `json:"balance"`
	PointsEarned int64  `json:"points_earned"`
	BonusPoints  int64  `json:"bonus_points"`
	Tier         string `json:"tier"`
}

// RedeemRequest is the request body for spending points.
type RedeemRequest struct {
	Points int64  `json:"points"`
	Reward string `json:"reward"`
}

// RedeemResponse mirrors loyalty.RedeemResult.
type RedeemResponse struct {
	RemainingBalance int64  `json:"remaining_balance"`
	Tier             string `json:"tier"`
}

// EntryDTO represents one ledger entry.
type EntryDTO struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Amount      int64  `json:"amount"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// ProfileDTO is a user with recent history attached.
type ProfileDTO struct {
	UserDTO
	Transactions []EntryDTO `json:"transactions"`
}

// PreferenceDTO represents reminder preferences.
type PreferenceDTO struct {
	SMS              bool `json:"sms"`
	Email            bool `json:"email"`
	RemindersEnabled bool `json:"reminders_enabled"`
	CooldownDays     int  `json:"cooldown_days"`
}

// ReminderDTO represents one reminder record with channel outcomes.
type ReminderDTO struct {
	ID             string                          `json:"id"`
	DueAt          string                          `json:"due_at"`
	Status         string                          `json:"status"`
	ChannelResults map[string]notify.ChannelResult `json:"channel_results"`
	CreatedAt      string                          `json:"created_at"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toUserDTO(u *loyalty.User) UserDTO {
	return UserDTO{
		ID:        string(u.ID),
		Name:      u.Name,
		Phone:     u.Phone,
		Email:     u.Email,
		Balance:   u.Balance,
		Tier:      string(u.Tier),
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}

func toEntryDTOs(entries []loyalty.Entry) []EntryDTO {
	out := make([]EntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, EntryDTO{
			ID:          string(e.ID),
			Kind:        string(e.Kind),
			Amount:      e.Amount,
			Description: e.Description,
			CreatedAt:   e.CreatedAt.Format(time.RFC3339),
		})
	}
	return out
}

func toReminderDTOs(records []notify.ReminderRecord) []ReminderDTO {
	out := make([]ReminderDTO, 0, len(records))
	for _, r := range records {
		results := make(map[string]notify.ChannelResult, len(r.ChannelResults))
		for ch, res := range r.ChannelResults {
			results[string(ch)] = res
		}
		out = append(out, ReminderDTO{
			ID:             r.ID,
			DueAt:          r.DueAt.Format(time.RFC3339),
			Status:         string(r.Status),
			ChannelResults: results,
			CreatedAt:      r.CreatedAt.Format(time.RFC3339),
		})
	}
	return out
}
