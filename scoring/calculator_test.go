package scoring

import (
	"math"
	"testing"

	"github.com/arenastats/scoring-system/models"
	"github.com/stretchr/testify/assert"
)

func standardRuleset() *models.Ruleset {
	return &models.Ruleset{
		KillPoints: 1,
		PlacementPoints: models.PlacementTable{
			1: 10, 2: 6, 3: 5, 4: 4, 5: 3, 6: 2, 7: 1, 8: 1,
		},
		Multiplier: 1.0,
	}
}

func TestComputePoints_Breakdown(t *testing.T) {
	rs := standardRuleset()

	b := ComputePoints(7, 1, rs)
	assert.Equal(t, 7.0, b.KillPoints)
	assert.Equal(t, 10.0, b.PlacementPoints)
	assert.Equal(t, 0.0, b.BonusPoints)
	assert.Equal(t, 17.0, b.TotalPoints)
}

func TestComputePoints_Deterministic(t *testing.T) {
	rs := standardRuleset()
	rs.KillPoints = 1.2
	rs.Multiplier = 1.4

	first := ComputePoints(5, 2, rs)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, ComputePoints(5, 2, rs))
	}
}

func TestComputePoints_RoundsHalfAwayFromZero(t *testing.T) {
	// 5*1.2 + 6 = 12, 12*1.33 = 15.96 — ровно два знака, без дрейфа.
	rs := standardRuleset()
	rs.KillPoints = 1.2
	rs.Multiplier = 1.33

	b := ComputePoints(5, 2, rs)
	assert.Equal(t, 15.96, b.TotalPoints)

	// 0.125*3 = 0.375 → 0.38 (банковское округление дало бы 0.37 или хуже).
	assert.Equal(t, 0.38, Round2(0.375))
}

func TestComputePoints_PlacementOutsideTable(t *testing.T) {
	rs := standardRuleset()

	b := ComputePoints(3, 99, rs)
	assert.Equal(t, 0.0, b.PlacementPoints)
	assert.Equal(t, 3.0, b.TotalPoints)
}

func TestComputePoints_BonusRules(t *testing.T) {
	rs := standardRuleset()
	rs.BonusRules = models.BonusRules{
		{MinKills: 10, Points: 5},
		{MinKills: 15, Points: 5},
	}

	below := ComputePoints(9, 3, rs)
	assert.Equal(t, 0.0, below.BonusPoints)

	atThreshold := ComputePoints(10, 3, rs)
	assert.Equal(t, 5.0, atThreshold.BonusPoints)

	// Правила независимы: оба порога пройдены — бонусы складываются.
	both := ComputePoints(15, 3, rs)
	assert.Equal(t, 10.0, both.BonusPoints)
	assert.Equal(t, 30.0, both.TotalPoints)
}

func TestComputePoints_MalformedWeightsFallBack(t *testing.T) {
	rs := standardRuleset()
	rs.KillPoints = -3
	rs.Multiplier = 0

	b := ComputePoints(4, 1, rs)
	assert.Equal(t, 4.0, b.KillPoints, "negative kill weight falls back to 1")
	assert.Equal(t, 14.0, b.TotalPoints, "non-positive multiplier falls back to 1")

	rs.KillPoints = math.NaN()
	rs.Multiplier = math.NaN()
	b = ComputePoints(4, 1, rs)
	assert.Equal(t, 4.0, b.KillPoints)
	assert.Equal(t, 14.0, b.TotalPoints)
}

func TestComputePoints_NilRuleset(t *testing.T) {
	b := ComputePoints(6, 1, nil)
	assert.Equal(t, 6.0, b.KillPoints)
	assert.Equal(t, 0.0, b.PlacementPoints)
	assert.Equal(t, 6.0, b.TotalPoints)
}

func TestComputePoints_MultiplierAppliesToWholeSum(t *testing.T) {
	rs := standardRuleset()
	rs.Multiplier = 2.0
	rs.BonusRules = models.BonusRules{{MinKills: 5, Points: 3}}

	b := ComputePoints(5, 1, rs)
	// (5 + 10 + 3) * 2
	assert.Equal(t, 36.0, b.TotalPoints)
}
