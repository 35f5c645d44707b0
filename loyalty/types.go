/*
Package loyalty provides the core points engine for the EcoRewards program.

PURPOSE:
  This package contains the domain types and algorithms for the loyalty
  points ledger: earning points on payments, redeeming them for rewards,
  and deriving a membership tier from the accumulated balance.

KEY CONCEPTS IN THIS FILE (types.go):
  - User: Account with a point balance and a derived tier
  - Entry: An immutable ledger entry recording a balance change
  - Tier: Discrete reward level (bronze/silver/gold/platinum)
  - UserID/EntryID: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Immutability: Ledger entries are never modified or deleted
  2. Precision: Uses decimal.Decimal for multiplier math (no float drift)
  3. Derivation: Tier is always computed from balance, never set directly
  4. Auditability: Every balance change has a description and timestamp

USAGE:
  svc := loyalty.NewService(store)
  result, err := svc.Earn(ctx, "user-1", 100, "Payment - March")
  // result.PointsEarned, result.BonusPoints, result.Tier

SEE ALSO:
  - tier.go: Tier thresholds, multipliers, and the static tier table
  - service.go: Earn/Redeem operations
  - store.go: Persistence interface
*/
package loyalty

import (
	"time"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type EntryID string

// =============================================================================
// USER - Account with balance and derived tier
// =============================================================================

// User is a loyalty program member. Balance is mutated only through the
// Service; Tier is recomputed from Balance after every mutation.
type User struct {
	ID        UserID
	Name      string
	Phone     string
	Email     string
	Balance   int64
	Tier      Tier
	CreatedAt time.Time
}

// =============================================================================
// ENTRY - Atomic change to the point balance (append-only)
// =============================================================================

type EntryKind string

const (
	KindEarn   EntryKind = "earn"   // Points credited (payment, bonus)
	KindRedeem EntryKind = "redeem" // Points spent on a reward
)

// Entry is an immutable ledger record. Amount is always positive; the kind
// determines the sign of the balance change.
type Entry struct {
	ID          EntryID
	UserID      UserID
	Kind        EntryKind
	Amount      int64
	Description string
	CreatedAt   time.Time
}

// Delta returns the signed balance change this entry represents.
func (e Entry) Delta() int64 {
	if e.Kind == KindRedeem {
		return -e.Amount
	}
	return e.Amount
}

// =============================================================================
// OPERATION RESULTS
// =============================================================================

// EarnResult is returned by Service.Earn.
type EarnResult struct {
	Balance      int64
	PointsEarned int64
	BonusPoints  int64
	Tier         Tier
}

// RedeemResult is returned by Service.Redeem.
type RedeemResult struct {
	RemainingBalance int64
	Tier             Tier
}
