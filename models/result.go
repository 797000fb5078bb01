package models

import "time"

// MatchResult — одна строка результата на пару (матч, команда).
// Kills и Placement — входные данные; четыре поля очков всегда
// производные и переписываются при пересчёте ruleset'а.
// Инвариант: TotalPoints = round2((KillPoints+PlacementPoints+BonusPoints)*multiplier).
type MatchResult struct {
	ID              int       `json:"id" db:"id"`
	MatchID         int       `json:"match_id" db:"match_id"`
	TeamID          int       `json:"team_id" db:"team_id"`
	Kills           int       `json:"kills" db:"kills"`
	Placement       int       `json:"placement" db:"placement"`
	KillPoints      float64   `json:"kill_points" db:"kill_points"`
	PlacementPoints float64   `json:"placement_points" db:"placement_points"`
	BonusPoints     float64   `json:"bonus_points" db:"bonus_points"`
	TotalPoints     float64   `json:"total_points" db:"total_points"`
	TopPlayer       *string   `json:"top_player,omitempty" db:"top_player"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`

	// Опциональные связанные сущности (не мапятся напрямую)
	Match *Match `json:"match,omitempty" db:"-"`
	Team  *Team  `json:"team,omitempty" db:"-"`
}

// PlayerMatchResult — киллы одного игрока в одном матче. Не влияет на
// командные очки, используется только для топа киллов внутри команды.
type PlayerMatchResult struct {
	ID        int       `json:"id" db:"id"`
	MatchID   int       `json:"match_id" db:"match_id"`
	TeamID    int       `json:"team_id" db:"team_id"`
	PlayerID  int       `json:"player_id" db:"player_id"`
	Kills     int       `json:"kills" db:"kills"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// PlayerKills — агрегат киллов игрока в рамках этапа (производный).
type PlayerKills struct {
	TeamID   int    `json:"-"`
	PlayerID int    `json:"player_id"`
	Name     string `json:"name"`
	Kills    int    `json:"kills"`
}
