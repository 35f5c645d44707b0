/*
store.go - Persistence interface for users and the points ledger

PURPOSE:
  Defines the interface between the loyalty engine and the database.
  Different implementations can use SQLite or in-memory storage.

APPEND-ONLY CONTRACT:
  Ledger entries are append-only:
  - AppendEntry(): The only entry write
  - NO update or delete methods exist for entries

ATOMIC DELTA:
  ApplyDelta is the only balance mutation and MUST be a single conditional
  update inside the store (e.g. "UPDATE ... WHERE balance + delta >= 0"),
  never a read followed by a write. Concurrent earns/redeems for the same
  user must not race on a stale in-memory balance; with floorAtZero set,
  a delta that would drive the balance negative is refused (ok=false) and
  the stored balance is untouched.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - loyalty/store/memory.go: In-memory for testing

SEE ALSO:
  - service.go: Earn/Redeem built on this interface
*/
package loyalty

import "context"

// =============================================================================
// STORE - Users, balances, and the append-only entry log
// =============================================================================

// Store handles persistence of users and ledger entries.
type Store interface {
	// GetUser returns the user, or ErrUserNotFound.
	GetUser(ctx context.Context, id UserID) (*User, error)

	// ApplyDelta atomically adjusts the user's balance. With floorAtZero,
	// the update is conditional: ok=false (and an unchanged balance) when
	// the delta would make the balance negative. Must be a single guarded
	// statement, not read-then-write.
	ApplyDelta(ctx context.Context, id UserID, delta int64, floorAtZero bool) (newBalance int64, ok bool, err error)

	// SetTier records the derived tier for a user. Tier is write-through
	// state: it is only ever set to TierOf(balance).
	SetTier(ctx context.Context, id UserID, tier Tier) error

	// AppendEntry persists a ledger entry. This is the ONLY entry write.
	AppendEntry(ctx context.Context, entry Entry) error

	// ListEntries returns the user's entries, newest first. limit <= 0
	// returns all.
	ListEntries(ctx context.Context, id UserID, limit int) ([]Entry, error)
}
