package models

import "time"

// Team — команда, зарегистрированная на турнир.
type Team struct {
	ID           int       `json:"id" db:"id"`
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	Name         string    `json:"name" db:"name"`
	Tag          *string   `json:"tag,omitempty" db:"tag"`
	LogoURL      *string   `json:"logo_url,omitempty" db:"logo_url"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Player — игрок в составе команды.
type Player struct {
	ID         int       `json:"id" db:"id"`
	TeamID     int       `json:"team_id" db:"team_id"`
	Name       string    `json:"name" db:"name"`
	InGameName *string   `json:"in_game_name,omitempty" db:"in_game_name"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
