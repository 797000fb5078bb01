package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации пакета результатов
	ErrValidationFailed     = errors.New("validation failed")
	ErrResultsEmpty         = errors.New("results batch must not be empty")
	ErrDuplicatePlacement   = errors.New("duplicate placement in results batch")
	ErrDuplicateTeam        = errors.New("duplicate team in results batch")
	ErrNegativeKills        = errors.New("kills must be non-negative")
	ErrInvalidPlacement     = errors.New("placement must be positive")
	ErrUnknownTieBreaker    = errors.New("unknown tie-break criterion")
	ErrInvalidKillPoints    = errors.New("kill points weight must be non-negative")
	ErrInvalidMultiplier    = errors.New("multiplier must be positive")
	ErrInvalidPlacementRank = errors.New("placement table ranks must start at 1")

	// Ошибки жизненного цикла матча
	ErrMatchLocked                  = errors.New("match is locked for result edits")
	ErrMatchCanceled                = errors.New("cannot submit results for a cancelled match")
	ErrMatchInvalidStatus           = errors.New("invalid match status provided")
	ErrMatchInvalidStatusTransition = errors.New("invalid match status transition")

	// Ошибки, специфичные для сущностей
	ErrMatchNotFound      = errors.New("match not found")
	ErrStageNotFound      = errors.New("stage not found")
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrTeamNotFound       = errors.New("team not found")
	ErrRulesetNotFound    = errors.New("ruleset not found")

	// Команда не принадлежит турниру матча
	ErrTeamNotInTournament = errors.New("team is not registered in the match's tournament")
)
