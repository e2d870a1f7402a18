package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"fortune/service"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

var errUnauthenticated = errors.New("a signed-in user is required")

var notFoundCodes = map[string]bool{
	service.ErrTicketNotFound.Code:       true,
	service.ErrGameNotFound.Code:         true,
	service.ErrRequestNotFound.Code:      true,
	service.ErrCancellationNotFound.Code: true,
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps an error to its HTTP status by kind
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.WithFields(log.Fields{
			"path":  r.URL.Path,
			"error": err,
		}).Error("Request failed")
		writeJSON(w, status, ErrorResponse{Code: "internal", Error: "internal error"})
		return
	}

	code := service.CodeOf(err)
	if errors.Is(err, errUnauthenticated) {
		code = "unauthenticated"
	}
	writeJSON(w, status, ErrorResponse{Code: code, Error: err.Error()})
}

func statusFor(err error) int {
	if errors.Is(err, errUnauthenticated) {
		return http.StatusUnauthorized
	}

	switch service.KindOf(err) {
	case service.KindValidation:
		if notFoundCodes[service.CodeOf(err)] {
			return http.StatusNotFound
		}
		return http.StatusBadRequest
	case service.KindConflict:
		return http.StatusConflict
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindInvariant:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeBadRequest(w http.ResponseWriter, code, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: code, Error: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func int64Param(r *http.Request, name string) (int64, bool) {
	value, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || value < 1 {
		return 0, false
	}
	return value, true
}

func intQuery(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
