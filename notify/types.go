/*
Package notify provides payment reminders for the EcoRewards program.

PURPOSE:
  Users whose garbage-collection payment appears overdue get a reminder
  across the channels they have enabled. This package contains:
  - Preference: per-user channel toggles and reminder cadence
  - ReminderRecord: one reminder cycle with per-channel outcomes
  - Router: fan-out of a due reminder to SMS/email senders
  - Scheduler: the recurring sweep that finds due users

DUE DETECTION:
  A user is due when reminders are enabled and no qualifying earn entry
  (description containing "payment") exists within the cooldown window.
  The next qualifying payment implicitly resets the cycle: the user simply
  stops showing up as due.

RECORD LIFECYCLE:
  pending -> sent    at least one channel delivered
  pending -> failed  every attempted channel failed, or none was enabled
  Records are never overwritten by later cycles; each sweep that finds the
  user due again creates a new record.

SEE ALSO:
  - dispatch.go: Channel fan-out and result merge
  - scheduler.go: The recurring sweep
  - store.go: Persistence contracts
*/
package notify

import (
	"time"

	"github.com/ecorewards/loyalty-engine/loyalty"
)

// =============================================================================
// CHANNELS
// =============================================================================

type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// =============================================================================
// PREFERENCE - Per-user reminder configuration
// =============================================================================

// DefaultCooldownDays is the reminder cooldown applied when a user has no
// stored preference row.
const DefaultCooldownDays = 30

// Preference holds a user's reminder configuration. Always fully populated:
// stores resolve absent rows to DefaultPreference in one place, never at
// call sites.
type Preference struct {
	UserID           loyalty.UserID
	SMS              bool
	Email            bool
	RemindersEnabled bool
	CooldownDays     int
}

// DefaultPreference is the configuration for users who never saved one:
// all channels on, reminders on, 30-day cooldown.
func DefaultPreference(userID loyalty.UserID) Preference {
	return Preference{
		UserID:           userID,
		SMS:              true,
		Email:            true,
		RemindersEnabled: true,
		CooldownDays:     DefaultCooldownDays,
	}
}

// Channels returns the enabled channel set.
func (p Preference) Channels() []Channel {
	var out []Channel
	if p.SMS {
		out = append(out, ChannelSMS)
	}
	if p.Email {
		out = append(out, ChannelEmail)
	}
	return out
}

// =============================================================================
// REMINDER RECORD - One reminder cycle with per-channel outcomes
// =============================================================================

type ReminderStatus string

const (
	StatusPending ReminderStatus = "pending"
	StatusSent    ReminderStatus = "sent"
	StatusFailed  ReminderStatus = "failed"
)

// ChannelResult is the outcome of one channel attempt.
type ChannelResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// ReminderRecord tracks one reminder cycle for a user.
type ReminderRecord struct {
	ID             string
	UserID         loyalty.UserID
	DueAt          time.Time
	Status         ReminderStatus
	ChannelResults map[Channel]ChannelResult
	CreatedAt      time.Time
}

// Terminal reports whether dispatch has completed for this record.
func (r ReminderRecord) Terminal() bool {
	return r.Status == StatusSent || r.Status == StatusFailed
}

// =============================================================================
// CONTACT - Delivery targets for a user
// =============================================================================

// Contact carries the delivery targets the senders need.
type Contact struct {
	Name  string
	Phone string
	Email string
}
