package server

import (
	"net/http"

	"fortune/models"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// getFortuneCounter handles GET /games/{gameID}/fortune-counter
func (s *Server) getFortuneCounter(w http.ResponseWriter, r *http.Request) {
	gameID, ok := int64Param(r, "gameID")
	if !ok {
		writeBadRequest(w, "invalid_game_id", "game id must be a positive integer")
		return
	}

	counter, err := s.services.FortuneCounter.GetCounter(r.Context(), gameID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newCounterResponse(counter))
}

// getPendingSettlement handles GET /games/{gameID}/fortune-counter/pending
func (s *Server) getPendingSettlement(w http.ResponseWriter, r *http.Request) {
	gameID, ok := int64Param(r, "gameID")
	if !ok {
		writeBadRequest(w, "invalid_game_id", "game id must be a positive integer")
		return
	}

	request, err := s.services.FortuneCounter.GetPendingRequest(r.Context(), gameID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if request == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, newSettlementRequestResponse(request))
}

// listResets handles GET /games/{gameID}/fortune-counter/resets?limit=
func (s *Server) listResets(w http.ResponseWriter, r *http.Request) {
	gameID, ok := int64Param(r, "gameID")
	if !ok {
		writeBadRequest(w, "invalid_game_id", "game id must be a positive integer")
		return
	}

	resets, err := s.services.FortuneCounter.ListResets(r.Context(), gameID, intQuery(r, "limit", 50))
	if err != nil {
		writeError(w, r, err)
		return
	}

	response := make([]*resetResponse, 0, len(resets))
	for _, reset := range resets {
		response = append(response, newResetResponse(reset))
	}
	writeJSON(w, http.StatusOK, response)
}

// requestSettlement handles POST /games/{gameID}/fortune-counter/requests
func (s *Server) requestSettlement(w http.ResponseWriter, r *http.Request) {
	gameID, ok := int64Param(r, "gameID")
	if !ok {
		writeBadRequest(w, "invalid_game_id", "game id must be a positive integer")
		return
	}

	request, err := s.services.FortuneCounter.RequestSettlement(r.Context(), identityFrom(r.Context()), gameID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newSettlementRequestResponse(request))
}

// confirmSettlement handles POST /fortune-counter/requests/{requestID}/confirm
func (s *Server) confirmSettlement(w http.ResponseWriter, r *http.Request) {
	requestID, err := uuid.Parse(chi.URLParam(r, "requestID"))
	if err != nil {
		writeBadRequest(w, "invalid_request_id", "request id must be a UUID")
		return
	}

	result, err := s.services.FortuneCounter.ConfirmSettlement(r.Context(), identityFrom(r.Context()), requestID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newSettlementResultResponse(result))
}

func newSettlementResultResponse(result *models.SettlementResult) settlementResultResponse {
	return settlementResultResponse{
		Request:  newSettlementRequestResponse(result.Request),
		Reset:    newResetResponse(result.Reset),
		Counter:  newCounterResponse(result.Counter),
		Replayed: result.Replayed,
	}
}
