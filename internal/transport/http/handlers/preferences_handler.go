package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/paoshea/disco-sub000/internal/services/auth"
	matchingsvc "github.com/paoshea/disco-sub000/internal/services/matching"
	"github.com/paoshea/disco-sub000/internal/transport/http/dto"
	httperrors "github.com/paoshea/disco-sub000/internal/transport/http/errors"
)

type PreferencesHandler struct {
	service *matchingsvc.Service
}

func NewPreferencesHandler(service *matchingsvc.Service) *PreferencesHandler {
	return &PreferencesHandler{service: service}
}

func (h *PreferencesHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHING_SERVICE_UNAVAILABLE", "matching service is unavailable")
		return
	}

	prefs, err := h.service.GetPreferences(r.Context(), identity.UserID)
	if err != nil {
		switch {
		case errors.Is(err, matchingsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid preferences request")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to load preferences")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.PreferencesResponse{Preferences: prefs})
}

func (h *PreferencesHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHING_SERVICE_UNAVAILABLE", "matching service is unavailable")
		return
	}

	var req dto.PreferencesUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	prefs, err := h.service.UpdatePreferences(r.Context(), identity.UserID, req.RawPreferences)
	if err != nil {
		switch {
		case errors.Is(err, matchingsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid preferences payload")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to update preferences")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.PreferencesResponse{Preferences: prefs})
}
