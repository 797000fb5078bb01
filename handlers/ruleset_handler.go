package handlers

import (
	"errors"
	"net/http"

	"github.com/arenastats/scoring-system/services"
	"github.com/go-chi/chi/v5"
)

type RulesetHandler struct {
	rulesetService services.RulesetService
	resultService  services.ResultService
}

func NewRulesetHandler(rs services.RulesetService, results services.ResultService) *RulesetHandler {
	return &RulesetHandler{rulesetService: rs, resultService: results}
}

// DefaultsHandler обрабатывает GET /rulesets/defaults/{game}.
func (h *RulesetHandler) DefaultsHandler(w http.ResponseWriter, r *http.Request) {
	game := chi.URLParam(r, "game")
	if game == "" {
		badRequestResponse(w, r, errors.New("missing game identifier"))
		return
	}

	ruleset := h.rulesetService.DefaultForGame(game)
	if err := writeJSON(w, http.StatusOK, jsonResponse{"ruleset": ruleset}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetStageRulesetHandler обрабатывает GET /stages/{stageID}/ruleset.
// Первый запрос к этапу без ruleset'а синтезирует и сохраняет дефолтный.
func (h *RulesetHandler) GetStageRulesetHandler(w http.ResponseWriter, r *http.Request) {
	stageID, err := getIDFromURL(r, "stageID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	ruleset, err := h.rulesetService.GetOrCreateForStage(r.Context(), stageID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"ruleset": ruleset}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateStageRulesetHandler обрабатывает PUT /stages/{stageID}/ruleset:
// обновляет конфигурацию и прогоняет драйвер пересчёта по существующим
// результатам этапа, чтобы сохранённые брейкдауны соответствовали
// новым правилам.
func (h *RulesetHandler) UpdateStageRulesetHandler(w http.ResponseWriter, r *http.Request) {
	stageID, err := getIDFromURL(r, "stageID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.UpdateRulesetInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	ruleset, err := h.rulesetService.UpdateStageRuleset(r.Context(), stageID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	results, err := h.resultService.RecalculateStageResults(r.Context(), stageID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"ruleset": ruleset, "results": results}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
