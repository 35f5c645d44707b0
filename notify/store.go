/*
store.go - Persistence contracts for reminders and preferences

PURPOSE:
  Defines the interfaces between the reminder engine and the database.
  The production implementation lives in store/sqlite; tests use fakes.

SEE ALSO:
  - scheduler.go: Consumes all four contracts
  - store/sqlite/sqlite.go: Production implementation
*/
package notify

import (
	"context"

	"github.com/ecorewards/loyalty-engine/loyalty"
)

// PreferenceStore resolves per-user reminder configuration.
type PreferenceStore interface {
	// GetPreferences returns the user's preference, with defaults applied
	// when no row exists. Never returns a partially-populated Preference.
	GetPreferences(ctx context.Context, userID loyalty.UserID) (Preference, error)

	// SavePreferences stores the full preference row.
	SavePreferences(ctx context.Context, pref Preference) error
}

// ReminderStore persists reminder records. Records transition
// pending -> sent/failed exactly once; later cycles create new records.
type ReminderStore interface {
	CreateReminder(ctx context.Context, rec ReminderRecord) error

	// UpdateReminder writes the post-dispatch status and channel results.
	// This is the single merged write after all channel attempts complete.
	UpdateReminder(ctx context.Context, rec ReminderRecord) error

	// HasActiveReminder reports whether a non-terminal (pending) record
	// exists for the user.
	HasActiveReminder(ctx context.Context, userID loyalty.UserID) (bool, error)

	// ListReminders returns the user's records, newest first. limit <= 0
	// returns all.
	ListReminders(ctx context.Context, userID loyalty.UserID, limit int) ([]ReminderRecord, error)
}

// DueStore finds users overdue for a reminder: reminders enabled and no
// qualifying payment earn within the cooldown window.
type DueStore interface {
	ListUsersDue(ctx context.Context, cooldownDays int) ([]loyalty.UserID, error)
}

// ContactStore resolves delivery targets for a user.
type ContactStore interface {
	GetContact(ctx context.Context, userID loyalty.UserID) (Contact, error)
}
