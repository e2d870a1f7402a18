package server

import (
	"net/http"

	"fortune/models"
	"fortune/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// requestCancellation handles POST /bookings/{bookingID}/cancellations
func (s *Server) requestCancellation(w http.ResponseWriter, r *http.Request) {
	var req cancellationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "invalid_body", "invalid request body: "+err.Error())
		return
	}

	cancellation, err := s.services.Cancellation.RequestCancellation(r.Context(), chi.URLParam(r, "bookingID"), req.Reason, req.Details)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newCancellationResponse(cancellation))
}

// getLatestCancellation handles GET /bookings/{bookingID}/cancellations/latest
func (s *Server) getLatestCancellation(w http.ResponseWriter, r *http.Request) {
	cancellation, err := s.services.Cancellation.GetLatestForBooking(r.Context(), chi.URLParam(r, "bookingID"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newCancellationResponse(cancellation))
}

// setCancellationStatus handles PUT /cancellations/{cancellationID}/status (admin only)
func (s *Server) setCancellationStatus(w http.ResponseWriter, r *http.Request) {
	if identityFrom(r.Context()).Role != models.RoleAdmin {
		writeError(w, r, service.ErrForbidden)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "cancellationID"))
	if err != nil {
		writeBadRequest(w, "invalid_cancellation_id", "cancellation id must be a UUID")
		return
	}

	var req cancellationStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "invalid_body", "invalid request body: "+err.Error())
		return
	}

	cancellation, err := s.services.Cancellation.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newCancellationResponse(cancellation))
}
