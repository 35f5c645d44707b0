package loyalty_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ecorewards/loyalty-engine/loyalty"
)

// =============================================================================
// TIER THRESHOLD TESTS
// =============================================================================

func TestTierOf_Thresholds(t *testing.T) {
	// GIVEN: The four tier thresholds (0, 500, 2000, 5000)
	// WHEN: Deriving the tier at, just below, and just above each boundary
	// THEN: Boundaries are inclusive (exactly 500 points is silver)

	cases := []struct {
		balance int64
		want    loyalty.Tier
	}{
		{0, loyalty.TierBronze},
		{1, loyalty.TierBronze},
		{499, loyalty.TierBronze},
		{500, loyalty.TierSilver},
		{501, loyalty.TierSilver},
		{1999, loyalty.TierSilver},
		{2000, loyalty.TierGold},
		{4999, loyalty.TierGold},
		{5000, loyalty.TierPlatinum},
		{1000000, loyalty.TierPlatinum},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, loyalty.TierOf(tc.balance),
			"balance %d", tc.balance)
	}
}

func TestTierOf_Deterministic(t *testing.T) {
	// GIVEN: Any balance
	// WHEN: Deriving the tier twice
	// THEN: Same result; TierOf is a pure function of the balance

	for _, balance := range []int64{0, 499, 500, 2500, 7500} {
		assert.Equal(t, loyalty.TierOf(balance), loyalty.TierOf(balance))
	}
}

func TestMultiplierFor_KnownTiers(t *testing.T) {
	cases := []struct {
		tier loyalty.Tier
		want string
	}{
		{loyalty.TierBronze, "1"},
		{loyalty.TierSilver, "1.1"},
		{loyalty.TierGold, "1.25"},
		{loyalty.TierPlatinum, "1.5"},
	}

	for _, tc := range cases {
		got := loyalty.MultiplierFor(tc.tier)
		assert.Equal(t, tc.want, got.String(), "tier %s", tc.tier)
	}
}

func TestMultiplierFor_UnknownTier_Defaults(t *testing.T) {
	// An unrecognized tier value falls back to the base multiplier.
	got := loyalty.MultiplierFor(loyalty.Tier("diamond"))
	assert.Equal(t, "1", got.String())
}

func TestTierTable_OrderedAscending(t *testing.T) {
	// GIVEN: The published tier table
	// THEN: Four tiers, ascending by minimum points, each with benefits

	table := loyalty.TierTable()
	assert.Len(t, table, 4)

	var prev int64 = -1
	for _, info := range table {
		assert.Greater(t, info.MinPoints, prev, "tiers must ascend")
		assert.NotEmpty(t, info.Benefits)
		prev = info.MinPoints
	}

	assert.Equal(t, loyalty.TierBronze, table[0].Tier)
	assert.Equal(t, loyalty.TierPlatinum, table[3].Tier)
}
