package services

import (
	"context"
	"testing"

	"github.com/arenastats/scoring-system/models"
	"github.com/arenastats/scoring-system/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultForGame(t *testing.T) {
	env := newTestEnv(t, false)

	rs := env.rulesets.DefaultForGame("BGMI")
	assert.Equal(t, 1.0, rs.KillPoints)
	assert.Equal(t, 10.0, rs.PlacementPoints[1])

	generic := env.rulesets.DefaultForGame("some-new-game")
	assert.Equal(t, 10.0, generic.PlacementPoints[1])
	assert.Equal(t, 8.0, generic.PlacementPoints[2])
}

func TestGetOrCreateForStage_SynthesizesFromTournamentGame(t *testing.T) {
	env := newTestEnv(t, false)
	env.seedTournament(1, "ff-open", "freefire")
	env.seedStage(10, 1, "Finals")

	rs, err := env.rulesets.GetOrCreateForStage(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 10, rs.StageID)
	assert.Equal(t, 12.0, rs.PlacementPoints[1], "freefire preset placement table")
	assert.NotZero(t, rs.ID, "synthesized ruleset must be persisted")

	// Повторный вызов читает сохранённый, а не создаёт новый.
	again, err := env.rulesets.GetOrCreateForStage(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, rs.ID, again.ID)
}

func TestGetOrCreateForStage_LosesCreationRace(t *testing.T) {
	env := newTestEnv(t, false)
	env.seedTournament(1, "ff-open", "freefire")
	env.seedStage(10, 1, "Finals")

	// Конкурент успел создать ruleset между Get и Create.
	env.seedRuleset(10, models.PlacementTable{1: 99}, nil)
	winner := env.rulesetRepo.byStage[10]

	raceRepo := &racingRulesetRepo{fakeRulesetRepo: env.rulesetRepo}
	svc := NewRulesetService(raceRepo, env.stages, env.tournaments, discardLogger())

	rs, err := svc.GetOrCreateForStage(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, winner.ID, rs.ID, "loser of the race must read the winner's row")
	assert.Equal(t, 99.0, rs.PlacementPoints[1])
}

// racingRulesetRepo симулирует гонку: первый GetByStageID отвечает
// "не найдено", хотя строка уже существует, поэтому Create упирается
// в конфликт уникальности и сервис перечитывает победителя.
type racingRulesetRepo struct {
	*fakeRulesetRepo
	firstGetDone bool
}

func (r *racingRulesetRepo) GetByStageID(ctx context.Context, exec repositories.SQLExecutor, stageID int) (*models.Ruleset, error) {
	if !r.firstGetDone {
		r.firstGetDone = true
		return nil, repositories.ErrRulesetNotFound
	}
	return r.fakeRulesetRepo.GetByStageID(ctx, exec, stageID)
}

func TestGetOrCreateForStage_UnknownStage(t *testing.T) {
	env := newTestEnv(t, false)

	_, err := env.rulesets.GetOrCreateForStage(context.Background(), 404)
	assert.ErrorIs(t, err, ErrStageNotFound)
}

func TestUpdateStageRuleset_PartialUpdate(t *testing.T) {
	env := newTestEnv(t, false)
	env.seedTournament(1, "cup", "bgmi")
	env.seedStage(10, 1, "Finals")
	env.seedRuleset(10, models.PlacementTable{1: 10, 2: 6}, models.TieBreakers{models.TieBreakerKills})

	mult := 1.5
	rs, err := env.rulesets.UpdateStageRuleset(context.Background(), 10, UpdateRulesetInput{
		Multiplier: &mult,
	})
	require.NoError(t, err)
	assert.Equal(t, 1.5, rs.Multiplier)
	assert.Equal(t, 10.0, rs.PlacementPoints[1], "untouched fields keep their values")
	assert.Equal(t, models.TieBreakers{models.TieBreakerKills}, rs.TieBreakers)
}

func TestUpdateStageRuleset_Validation(t *testing.T) {
	env := newTestEnv(t, false)
	env.seedTournament(1, "cup", "bgmi")
	env.seedStage(10, 1, "Finals")
	env.seedRuleset(10, models.PlacementTable{1: 10}, nil)

	negKills := -1.0
	_, err := env.rulesets.UpdateStageRuleset(context.Background(), 10, UpdateRulesetInput{KillPoints: &negKills})
	assert.ErrorIs(t, err, ErrInvalidKillPoints)

	zeroMult := 0.0
	_, err = env.rulesets.UpdateStageRuleset(context.Background(), 10, UpdateRulesetInput{Multiplier: &zeroMult})
	assert.ErrorIs(t, err, ErrInvalidMultiplier)

	_, err = env.rulesets.UpdateStageRuleset(context.Background(), 10, UpdateRulesetInput{
		PlacementPoints: models.PlacementTable{0: 5},
	})
	assert.ErrorIs(t, err, ErrInvalidPlacementRank)

	_, err = env.rulesets.UpdateStageRuleset(context.Background(), 10, UpdateRulesetInput{
		PlacementPoints: models.PlacementTable{1: -5},
	})
	assert.ErrorIs(t, err, ErrValidationFailed)

	badBreakers := models.TieBreakers{"coin_flip"}
	_, err = env.rulesets.UpdateStageRuleset(context.Background(), 10, UpdateRulesetInput{TieBreakers: &badBreakers})
	assert.ErrorIs(t, err, ErrUnknownTieBreaker)
}

func TestUpdateStageRuleset_CreatesWhenMissing(t *testing.T) {
	env := newTestEnv(t, false)
	env.seedTournament(1, "cup", "apex")
	env.seedStage(10, 1, "Finals")

	kp := 2.0
	rs, err := env.rulesets.UpdateStageRuleset(context.Background(), 10, UpdateRulesetInput{KillPoints: &kp})
	require.NoError(t, err)
	assert.Equal(t, 2.0, rs.KillPoints)
	assert.Equal(t, 12.0, rs.PlacementPoints[1], "base comes from the apex preset")
}
