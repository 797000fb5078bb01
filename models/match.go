package models

import "time"

type MatchStatus string

const (
	MatchStatusScheduled MatchStatus = "scheduled"
	MatchStatusLive      MatchStatus = "live"
	MatchStatusCompleted MatchStatus = "completed"
	MatchStatusCanceled  MatchStatus = "cancelled"
)

// Match — один матч этапа. Только результаты завершённых матчей
// попадают в таблицу лидеров. Флаг Locked, будучи установленным,
// блокирует любое редактирование результатов.
type Match struct {
	ID          int         `json:"id" db:"id"`
	StageID     int         `json:"stage_id" db:"stage_id"`
	Number      int         `json:"number" db:"number"`
	MapName     *string     `json:"map_name,omitempty" db:"map_name"`
	ScheduledAt time.Time   `json:"scheduled_at" db:"scheduled_at"`
	Status      MatchStatus `json:"status" db:"status"`
	Locked      bool        `json:"locked" db:"locked"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
}

// IsValidMatchStatusTransition проверяет допустимость перехода статуса матча.
func IsValidMatchStatusTransition(current, next MatchStatus) bool {
	if current == next {
		return true
	}
	allowedTransitions := map[MatchStatus][]MatchStatus{
		MatchStatusScheduled: {MatchStatusLive, MatchStatusCompleted, MatchStatusCanceled},
		MatchStatusLive:      {MatchStatusCompleted, MatchStatusCanceled},
		MatchStatusCompleted: {},
		MatchStatusCanceled:  {},
	}
	for _, allowedNext := range allowedTransitions[current] {
		if next == allowedNext {
			return true
		}
	}
	return false
}
