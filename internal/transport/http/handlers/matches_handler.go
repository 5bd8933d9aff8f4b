package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/paoshea/disco-sub000/internal/services/auth"
	matchingsvc "github.com/paoshea/disco-sub000/internal/services/matching"
	"github.com/paoshea/disco-sub000/internal/transport/http/dto"
	httperrors "github.com/paoshea/disco-sub000/internal/transport/http/errors"
)

type MatchesHandler struct {
	service *matchingsvc.Service
}

func NewMatchesHandler(service *matchingsvc.Service) *MatchesHandler {
	return &MatchesHandler{service: service}
}

func (h *MatchesHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHING_SERVICE_UNAVAILABLE", "matching service is unavailable")
		return
	}

	items, err := h.service.FindMatches(r.Context(), identity.UserID)
	if err != nil {
		switch {
		case errors.Is(err, matchingsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid matches request")
		case errors.Is(err, matchingsvc.ErrNotFound):
			writeNotFound(w, "USER_NOT_FOUND", "user not found")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to find matches")
		}
		return
	}

	responseItems := make([]dto.MatchItemResponse, 0, len(items))
	for _, item := range items {
		responseItems = append(responseItems, dto.MatchItemResponse{
			UserID:      item.UserID,
			DisplayName: item.DisplayName,
			PhotoURL:    item.PhotoURL,
			DistanceKM:  item.DistanceKM,
			Score:       item.Score,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.MatchesResponse{Items: responseItems})
}

func (h *MatchesHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHING_SERVICE_UNAVAILABLE", "matching service is unavailable")
		return
	}

	targetID, ok := targetIDParam(r)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid target id")
		return
	}

	var req dto.MatchStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	result, err := h.service.UpdateMatchStatus(r.Context(), identity.UserID, targetID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, matchingsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid match status request")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to update match status")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.MatchStatusResponse{
		Status:     string(result.Match.Status),
		ChatRoomID: result.ChatRoomID,
	})
}

func (h *MatchesHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHING_SERVICE_UNAVAILABLE", "matching service is unavailable")
		return
	}

	targetID, ok := targetIDParam(r)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid target id")
		return
	}

	status, err := h.service.GetMatchStatus(r.Context(), identity.UserID, targetID)
	if err != nil {
		switch {
		case errors.Is(err, matchingsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid match status request")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to load match status")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.MatchStatusResponse{Status: string(status)})
}
