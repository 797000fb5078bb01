// Package scoring содержит чистую логику начисления очков: калькулятор
// брейкдауна очков матча и таблицу пресетов ruleset'ов по играм.
// Никакого I/O — всё детерминированно и покрывается табличными тестами.
package scoring

import (
	"math"

	"github.com/arenastats/scoring-system/models"
)

// PointsBreakdown — результат калькулятора для одной команды в одном матче.
type PointsBreakdown struct {
	KillPoints      float64 `json:"kill_points"`
	PlacementPoints float64 `json:"placement_points"`
	BonusPoints     float64 `json:"bonus_points"`
	TotalPoints     float64 `json:"total_points"`
}

// ComputePoints вычисляет брейкдаун очков по киллам и месту команды.
// Вес килла берётся из ruleset'а; некорректный вес (отрицательный или NaN)
// заменяется на 1. Место за пределами таблицы даёт 0 очков размещения.
// Бонусные правила оцениваются независимо и суммируются.
func ComputePoints(kills, placement int, rs *models.Ruleset) PointsBreakdown {
	killWeight := 1.0
	multiplier := 1.0
	if rs != nil {
		if rs.KillPoints >= 0 && !math.IsNaN(rs.KillPoints) {
			killWeight = rs.KillPoints
		}
		if rs.Multiplier > 0 && !math.IsNaN(rs.Multiplier) {
			multiplier = rs.Multiplier
		}
	}

	b := PointsBreakdown{
		KillPoints: float64(kills) * killWeight,
	}
	if rs != nil {
		b.PlacementPoints = rs.PlacementPoints[placement]
		for _, rule := range rs.BonusRules {
			if kills >= rule.MinKills {
				b.BonusPoints += rule.Points
			}
		}
	}
	b.TotalPoints = Round2((b.KillPoints + b.PlacementPoints + b.BonusPoints) * multiplier)
	return b
}

// Round2 округляет до двух знаков после запятой.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round1 округляет до одного знака после запятой (strike rate).
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
