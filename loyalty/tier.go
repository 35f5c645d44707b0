/*
tier.go - Tier derivation and the static tier table

PURPOSE:
  The tier evaluator is a pure function from balance to tier. It holds no
  state and has no side effects, so it is safe to call any number of times;
  the Service invokes it after every balance mutation (earn AND redeem, so a
  tier can fall as well as rise).

THRESHOLDS:
  0     -> bronze
  500   -> silver
  2000  -> gold
  5000  -> platinum

MULTIPLIERS:
  Each tier carries an earning multiplier applied to the base point value of
  a payment. Multipliers are decimals, not floats: round(base * 1.25) must be
  exact (round(12.5) = 13, half-up).

SEE ALSO:
  - service.go: Applies the multiplier and recomputes the tier
  - types.go: User carries the derived tier
*/
package loyalty

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// TIER - Discrete reward level derived from balance
// =============================================================================

type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

// Fixed thresholds: the minimum balance for each tier.
const (
	MinPointsSilver   = 500
	MinPointsGold     = 2000
	MinPointsPlatinum = 5000
)

// TierOf maps a balance to its tier. Pure function: deterministic, no side
// effects, idempotent.
func TierOf(balance int64) Tier {
	switch {
	case balance >= MinPointsPlatinum:
		return TierPlatinum
	case balance >= MinPointsGold:
		return TierGold
	case balance >= MinPointsSilver:
		return TierSilver
	default:
		return TierBronze
	}
}

// MultiplierFor returns the earning multiplier for a tier.
// Unknown tiers earn at the bronze rate.
func MultiplierFor(tier Tier) decimal.Decimal {
	switch tier {
	case TierSilver:
		return decimal.RequireFromString("1.1")
	case TierGold:
		return decimal.RequireFromString("1.25")
	case TierPlatinum:
		return decimal.RequireFromString("1.5")
	default:
		return decimal.NewFromInt(1)
	}
}

// =============================================================================
// TIER TABLE - Static program description for clients
// =============================================================================

// TierInfo describes one tier of the program.
type TierInfo struct {
	Tier       Tier     `json:"tier"`
	MinPoints  int64    `json:"min_points"`
	Multiplier string   `json:"multiplier"`
	Benefits   []string `json:"benefits"`
}

// TierTable returns the program's tiers, ascending by minimum points.
func TierTable() []TierInfo {
	return []TierInfo{
		{
			Tier:       TierBronze,
			MinPoints:  0,
			Multiplier: "1",
			Benefits:   []string{"Basic earning rate"},
		},
		{
			Tier:       TierSilver,
			MinPoints:  MinPointsSilver,
			Multiplier: "1.1",
			Benefits:   []string{"10% bonus points", "Faster support"},
		},
		{
			Tier:       TierGold,
			MinPoints:  MinPointsGold,
			Multiplier: "1.25",
			Benefits:   []string{"25% bonus points", "Priority service", "Special rewards"},
		},
		{
			Tier:       TierPlatinum,
			MinPoints:  MinPointsPlatinum,
			Multiplier: "1.5",
			Benefits:   []string{"50% bonus points", "VIP support", "Exclusive offers", "Early access"},
		},
	}
}
