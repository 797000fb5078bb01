package handlers

import (
	"errors"
	"net/http"

	"github.com/arenastats/scoring-system/services"
	"github.com/go-chi/chi/v5"
)

type LeaderboardHandler struct {
	leaderboardService services.LeaderboardService
}

func NewLeaderboardHandler(ls services.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboardService: ls}
}

// TournamentHandler обрабатывает GET /tournaments/{tournamentIDOrSlug}/leaderboard.
// Параметр принимает первичный ключ или slug турнира.
func (h *LeaderboardHandler) TournamentHandler(w http.ResponseWriter, r *http.Request) {
	idOrSlug := chi.URLParam(r, "tournamentIDOrSlug")
	if idOrSlug == "" {
		badRequestResponse(w, r, errors.New("missing tournament identifier"))
		return
	}

	entries, err := h.leaderboardService.TournamentLeaderboard(r.Context(), idOrSlug)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"leaderboard": entries}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// StageHandler обрабатывает GET /stages/{stageID}/leaderboard.
func (h *LeaderboardHandler) StageHandler(w http.ResponseWriter, r *http.Request) {
	stageID, err := getIDFromURL(r, "stageID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	board, err := h.leaderboardService.StageLeaderboard(r.Context(), stageID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, board, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// LedgerHandler обрабатывает GET /stages/{stageID}/ledger — сырые
// бегущие суммы дельта-леджера для сверки с таблицей лидеров.
func (h *LeaderboardHandler) LedgerHandler(w http.ResponseWriter, r *http.Request) {
	stageID, err := getIDFromURL(r, "stageID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	entries, err := h.leaderboardService.StageLedger(r.Context(), stageID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"ledger": entries}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
