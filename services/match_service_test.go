package services

import (
	"context"
	"testing"
	"time"

	"github.com/arenastats/scoring-system/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedMatchFixture(env *testEnv) {
	env.seedTournament(1, "cup", "bgmi")
	env.seedStage(10, 1, "Finals")
	env.seedTeam(100, 1, "Alpha")
	env.seedRuleset(10, models.PlacementTable{1: 10}, nil)
	env.seedMatch(1000, 10, models.MatchStatusScheduled, time.Date(2026, 4, 1, 16, 0, 0, 0, time.UTC))
}

func TestUpdateStatus_ValidTransition(t *testing.T) {
	env := newTestEnv(t, false)
	seedMatchFixture(env)

	match, err := env.matchSvc.UpdateStatus(context.Background(), 1000, models.MatchStatusLive)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusLive, match.Status)
	assert.Empty(t, env.broadcaster.events, "going live does not change leaderboards")
}

func TestUpdateStatus_CompletionTriggersBroadcast(t *testing.T) {
	env := newTestEnv(t, false)
	seedMatchFixture(env)

	match, err := env.matchSvc.UpdateStatus(context.Background(), 1000, models.MatchStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusCompleted, match.Status)
	assert.Len(t, env.broadcaster.eventsFor(ScopeStage), 1)
	assert.Len(t, env.broadcaster.eventsFor(ScopeTournament), 1)
}

func TestUpdateStatus_InvalidTransition(t *testing.T) {
	env := newTestEnv(t, false)
	seedMatchFixture(env)
	env.matches.matches[1000].Status = models.MatchStatusCompleted

	_, err := env.matchSvc.UpdateStatus(context.Background(), 1000, models.MatchStatusLive)
	assert.ErrorIs(t, err, ErrMatchInvalidStatusTransition)
}

func TestUpdateStatus_UnknownStatus(t *testing.T) {
	env := newTestEnv(t, false)
	seedMatchFixture(env)

	_, err := env.matchSvc.UpdateStatus(context.Background(), 1000, "postponed")
	assert.ErrorIs(t, err, ErrMatchInvalidStatus)
}

func TestUpdateStatus_SameStatusIsNoop(t *testing.T) {
	env := newTestEnv(t, false)
	seedMatchFixture(env)

	match, err := env.matchSvc.UpdateStatus(context.Background(), 1000, models.MatchStatusScheduled)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusScheduled, match.Status)
	assert.Empty(t, env.broadcaster.events)
}

func TestLock_Idempotent(t *testing.T) {
	env := newTestEnv(t, false)
	seedMatchFixture(env)

	match, err := env.matchSvc.Lock(context.Background(), 1000)
	require.NoError(t, err)
	assert.True(t, match.Locked)

	again, err := env.matchSvc.Lock(context.Background(), 1000)
	require.NoError(t, err)
	assert.True(t, again.Locked)
}

func TestLock_UnknownMatch(t *testing.T) {
	env := newTestEnv(t, false)

	_, err := env.matchSvc.Lock(context.Background(), 404)
	assert.ErrorIs(t, err, ErrMatchNotFound)
}
