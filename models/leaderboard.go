package models

import "time"

// LeaderboardEntry — позиция команды в таблице лидеров. Производная
// структура: пересобирается из строк MatchResult при каждом промахе
// кэша и никогда не является источником истины.
// Поля с omitempty заполняются только для этапного скоупа.
type LeaderboardEntry struct {
	TeamID          int      `json:"team_id"`
	TeamName        string   `json:"team_name"`
	TeamTag         *string  `json:"team_tag,omitempty"`
	TeamLogo        *string  `json:"team_logo,omitempty"`
	TotalPoints     float64  `json:"total_points"`
	TotalKills      int      `json:"total_kills"`
	PlacementPoints *float64 `json:"placement_points,omitempty"`
	MatchesPlayed   int      `json:"matches_played"`
	Wins            int      `json:"wins"`
	Top5s           int      `json:"top5s"`
	AvgPlacement    float64  `json:"avg_placement"`
	BestMatchPoints float64  `json:"best_match_points"`
	Rank            int      `json:"rank"`

	RecentPlacements []int         `json:"recent_placements,omitempty"`
	StrikeRate       *float64      `json:"strike_rate,omitempty"`
	Players          []PlayerKills `json:"players,omitempty"`
}

// KillLeader — игрок в топе киллов этапа, собирается по полю TopPlayer
// завершённых результатов.
type KillLeader struct {
	PlayerName string `json:"player_name"`
	TotalKills int    `json:"total_kills"`
	MVPCount   int    `json:"mvp_count"`
}

// StageLeaderboard — полный ответ этапного скоупа.
type StageLeaderboard struct {
	StageID     int                `json:"stage_id"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
	KillLeaders []KillLeader       `json:"kill_leaders"`
	ComputedAt  time.Time          `json:"computed_at"`
}

// LedgerEntry — бегущие суммы команды из дельта-леджера. Побочный
// быстрый канал: агрегатор его не читает, числа должны независимо
// сходиться с полным пересчётом.
type LedgerEntry struct {
	TeamID int     `json:"team_id"`
	Points float64 `json:"points"`
	Kills  int     `json:"kills"`
}
