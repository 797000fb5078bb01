package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Критерии тай-брейка, которые понимает агрегатор. Порядок в списке
// ruleset'а определяет порядок применения после сравнения по очкам.
const (
	TieBreakerKills           = "kills"
	TieBreakerWins            = "wins"
	TieBreakerBestMatch       = "best_match"
	TieBreakerPlacementPoints = "placement_points"
	TieBreakerAvgPlacement    = "avg_placement"
)

// KnownTieBreakers — допустимые имена критериев для валидации ruleset'а.
var KnownTieBreakers = map[string]bool{
	TieBreakerKills:           true,
	TieBreakerWins:            true,
	TieBreakerBestMatch:       true,
	TieBreakerPlacementPoints: true,
	TieBreakerAvgPlacement:    true,
}

// PlacementTable — разреженная таблица "место -> очки", место нумеруется с 1.
// Места за пределами таблицы дают 0 очков. Хранится в БД как JSONB.
type PlacementTable map[int]float64

func (t PlacementTable) Value() (driver.Value, error) {
	if t == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(t)
}

func (t *PlacementTable) Scan(src interface{}) error {
	if src == nil {
		*t = PlacementTable{}
		return nil
	}
	data, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("placement table: unsupported scan type %T", src)
	}
	return json.Unmarshal(data, t)
}

// MaxPlacement возвращает наибольшее место, за которое начисляются очки.
func (t PlacementTable) MaxPlacement() int {
	max := 0
	for p := range t {
		if p > max {
			max = p
		}
	}
	return max
}

// BonusRule — плоский бонус за матч, если количество киллов достигло порога.
// Правила оцениваются независимо и суммируются.
type BonusRule struct {
	MinKills int     `json:"min_kills"`
	Points   float64 `json:"points"`
}

// BonusRules хранится в БД как JSONB-массив.
type BonusRules []BonusRule

func (b BonusRules) Value() (driver.Value, error) {
	if b == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(b)
}

func (b *BonusRules) Scan(src interface{}) error {
	if src == nil {
		*b = BonusRules{}
		return nil
	}
	data, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("bonus rules: unsupported scan type %T", src)
	}
	return json.Unmarshal(data, b)
}

// TieBreakers хранится в БД как JSONB-массив строк.
type TieBreakers []string

func (t TieBreakers) Value() (driver.Value, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t)
}

func (t *TieBreakers) Scan(src interface{}) error {
	if src == nil {
		*t = TieBreakers{}
		return nil
	}
	data, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("tie breakers: unsupported scan type %T", src)
	}
	return json.Unmarshal(data, t)
}

// Ruleset — конфигурация начисления очков этапа (ровно один на этап,
// уникальность по stage_id обеспечивается на уровне БД). Если этап
// запрашивает подсчёт без сохранённого ruleset'а, он синтезируется из
// пресета игры и сохраняется перед использованием.
type Ruleset struct {
	ID              int            `json:"id" db:"id"`
	StageID         int            `json:"stage_id" db:"stage_id"`
	KillPoints      float64        `json:"kill_points" db:"kill_points"`
	PlacementPoints PlacementTable `json:"placement_points" db:"placement_points"`
	Multiplier      float64        `json:"multiplier" db:"multiplier"`
	BonusRules      BonusRules     `json:"bonus_rules" db:"bonus_rules"`
	TieBreakers     TieBreakers    `json:"tie_breakers" db:"tie_breakers"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" db:"updated_at"`
}
