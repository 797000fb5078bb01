package scoring

import (
	"strings"

	"github.com/arenastats/scoring-system/models"
)

// preset — дефолтная конфигурация начисления очков для одной игры.
type preset struct {
	killPoints      float64
	placementPoints models.PlacementTable
	bonusRules      models.BonusRules
	tieBreakers     models.TieBreakers
}

// Таблица пресетов по нормализованному идентификатору игры.
// Таблицы размещения соответствуют официальным системам очков
// соответствующих лиг; multiplier всегда 1.0.
var presets = map[string]preset{
	"bgmi": {
		killPoints: 1,
		placementPoints: models.PlacementTable{
			1: 10, 2: 6, 3: 5, 4: 4, 5: 3, 6: 2, 7: 1, 8: 1,
		},
		tieBreakers: models.TieBreakers{models.TieBreakerWins, models.TieBreakerKills},
	},
	"pubg": {
		killPoints: 1,
		placementPoints: models.PlacementTable{
			1: 10, 2: 6, 3: 5, 4: 4, 5: 3, 6: 2, 7: 1, 8: 1,
		},
		tieBreakers: models.TieBreakers{models.TieBreakerWins, models.TieBreakerKills},
	},
	"freefire": {
		killPoints: 1,
		placementPoints: models.PlacementTable{
			1: 12, 2: 9, 3: 8, 4: 7, 5: 6, 6: 5, 7: 4, 8: 3, 9: 2, 10: 1,
		},
		tieBreakers: models.TieBreakers{models.TieBreakerKills, models.TieBreakerBestMatch},
	},
	"cod_mobile": {
		killPoints: 1,
		placementPoints: models.PlacementTable{
			1: 15, 2: 12, 3: 10, 4: 8, 5: 6, 6: 4, 7: 2, 8: 1,
		},
		bonusRules: models.BonusRules{
			{MinKills: 10, Points: 5},
		},
		tieBreakers: models.TieBreakers{models.TieBreakerKills, models.TieBreakerWins},
	},
	"apex": {
		killPoints: 1,
		placementPoints: models.PlacementTable{
			1: 12, 2: 9, 3: 7, 4: 5, 5: 4, 6: 3, 7: 3, 8: 2, 9: 2, 10: 2, 11: 1, 12: 1,
		},
		tieBreakers: models.TieBreakers{models.TieBreakerKills, models.TieBreakerAvgPlacement},
	},
}

// Генерик на случай неизвестной игры.
var genericPreset = preset{
	killPoints: 1,
	placementPoints: models.PlacementTable{
		1: 10, 2: 8, 3: 6, 4: 5, 5: 4, 6: 3, 7: 2, 8: 1,
	},
	tieBreakers: models.TieBreakers{models.TieBreakerKills},
}

// NormalizeGame приводит идентификатор игры к ключу таблицы пресетов.
func NormalizeGame(game string) string {
	g := strings.ToLower(strings.TrimSpace(game))
	g = strings.ReplaceAll(g, " ", "_")
	g = strings.ReplaceAll(g, "-", "_")
	return g
}

// DefaultRuleset возвращает дефолтный ruleset для игры. Неизвестные
// идентификаторы получают генерик-пресет. Возвращаемое значение — это
// шаблон: StageID заполняет вызывающая сторона перед сохранением.
func DefaultRuleset(game string) models.Ruleset {
	p, ok := presets[NormalizeGame(game)]
	if !ok {
		p = genericPreset
	}

	table := make(models.PlacementTable, len(p.placementPoints))
	for place, pts := range p.placementPoints {
		table[place] = pts
	}
	rules := make(models.BonusRules, len(p.bonusRules))
	copy(rules, p.bonusRules)
	breakers := make(models.TieBreakers, len(p.tieBreakers))
	copy(breakers, p.tieBreakers)

	return models.Ruleset{
		KillPoints:      p.killPoints,
		PlacementPoints: table,
		Multiplier:      1.0,
		BonusRules:      rules,
		TieBreakers:     breakers,
	}
}
