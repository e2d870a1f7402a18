package server

import (
	"net/http"

	"fortune/models"
	"fortune/service"
)

// getReferralCode handles GET /referrals/code
func (s *Server) getReferralCode(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())
	if !identity.IsAuthenticated() {
		writeError(w, r, errUnauthenticated)
		return
	}

	code, err := s.services.Referral.GetOrCreateReferralCode(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"user_id": code.UserID, "code": code.Code})
}

// linkReferral handles POST /referrals/link for a newly registered user
func (s *Server) linkReferral(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())
	if !identity.IsAuthenticated() {
		writeError(w, r, errUnauthenticated)
		return
	}

	var req linkReferralRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "invalid_body", "invalid request body: "+err.Error())
		return
	}

	link, err := s.services.Referral.LinkReferral(r.Context(), identity.UserID, req.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newReferralLinkResponse(link))
}

// qualifyingPurchase handles POST /referrals/qualifying-purchases. Purchases made
// outside this service are reported here by an admin integration.
func (s *Server) qualifyingPurchase(w http.ResponseWriter, r *http.Request) {
	if identityFrom(r.Context()).Role != models.RoleAdmin {
		writeError(w, r, service.ErrForbidden)
		return
	}

	var req qualifyingPurchaseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "invalid_body", "invalid request body: "+err.Error())
		return
	}

	link, err := s.services.Referral.OnFirstQualifyingPurchase(r.Context(), req.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if link == nil {
		writeJSON(w, http.StatusOK, map[string]bool{"credited": false})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"credited": true, "link": newReferralLinkResponse(link)})
}
